// Package sorobanrpc is a JSON-RPC client for the ledger gateway that builds, simulates,
// submits and tracks contract transactions on behalf of the marketplace.
package sorobanrpc

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync/atomic"
	"time"

	"github.com/go-resty/resty/v2"
	"go.uber.org/zap"
)

const defaultRequestTimeout = 30 * time.Second

var (
	// ErrInvalidConfig reports a missing endpoint.
	ErrInvalidConfig = errors.New("sorobanrpc: invalid config")
	// ErrUnexpectedStatus reports a non-2xx HTTP answer.
	ErrUnexpectedStatus = errors.New("sorobanrpc: unexpected http status")
	// ErrEmptyResult reports a response without a result.
	ErrEmptyResult = errors.New("sorobanrpc: empty result")
)

// Config describes the gateway endpoints.
type Config struct {
	Endpoint       string
	FriendbotURL   string
	RequestTimeout time.Duration
}

// Option configures a Client.
type Option func(*Client)

// WithLogger sets the client logger.
func WithLogger(logger *zap.Logger) Option {
	return func(client *Client) {
		if logger != nil {
			client.logger = logger
		}
	}
}

// WithHTTPClient replaces the underlying resty client.
func WithHTTPClient(httpClient *resty.Client) Option {
	return func(client *Client) {
		if httpClient != nil {
			client.http = httpClient
		}
	}
}

// Client talks to the ledger gateway.
type Client struct {
	endpoint     string
	friendbotURL string
	http         *resty.Client
	logger       *zap.Logger
	requestID    atomic.Uint64
}

// NewClient builds a gateway client.
func NewClient(config Config, options ...Option) (*Client, error) {
	endpoint := strings.TrimSpace(config.Endpoint)
	if endpoint == "" {
		return nil, fmt.Errorf("%w: endpoint is required", ErrInvalidConfig)
	}
	timeout := config.RequestTimeout
	if timeout <= 0 {
		timeout = defaultRequestTimeout
	}
	client := &Client{
		endpoint:     endpoint,
		friendbotURL: strings.TrimSpace(config.FriendbotURL),
		http:         resty.New().SetTimeout(timeout),
		logger:       zap.NewNop(),
	}
	for _, option := range options {
		if option != nil {
			option(client)
		}
	}
	return client, nil
}

// BuildInvocation asks the gateway for an unsigned transaction envelope.
func (client *Client) BuildInvocation(ctx context.Context, invocation Invocation) (string, error) {
	var result buildResult
	if err := client.call(ctx, methodBuild, invocation, &result); err != nil {
		return "", err
	}
	if strings.TrimSpace(result.TransactionXDR) == "" {
		return "", fmt.Errorf("%w: %s returned no transaction", ErrEmptyResult, methodBuild)
	}
	return result.TransactionXDR, nil
}

// SimulateInvocation runs a read-only call and returns the decoded contract return value.
func (client *Client) SimulateInvocation(ctx context.Context, invocation Invocation) (json.RawMessage, error) {
	var result simulateResult
	if err := client.call(ctx, methodSimulate, invocation, &result); err != nil {
		return nil, err
	}
	if len(result.Result) == 0 {
		return nil, fmt.Errorf("%w: %s returned no value", ErrEmptyResult, methodSimulate)
	}
	return result.Result, nil
}

// SendTransaction submits a signed envelope.
func (client *Client) SendTransaction(ctx context.Context, signedXDR string) (SendResult, error) {
	var result SendResult
	if err := client.call(ctx, methodSend, sendParams{Transaction: signedXDR}, &result); err != nil {
		return SendResult{}, err
	}
	return result, nil
}

// GetTransaction reports the status of a submitted transaction.
func (client *Client) GetTransaction(ctx context.Context, hash string) (TransactionResult, error) {
	var result TransactionResult
	if err := client.call(ctx, methodGetTransaction, hashParams{Hash: hash}, &result); err != nil {
		return TransactionResult{}, err
	}
	return result, nil
}

// GetAccount loads a ledger account.
func (client *Client) GetAccount(ctx context.Context, accountID string) (Account, error) {
	var result Account
	if err := client.call(ctx, methodGetAccount, accountParams{AccountID: accountID}, &result); err != nil {
		return Account{}, err
	}
	return result, nil
}

// Fund asks the test network faucet to create and fund address.
func (client *Client) Fund(ctx context.Context, address string) error {
	if client.friendbotURL == "" {
		return fmt.Errorf("%w: friendbot url is not configured", ErrInvalidConfig)
	}
	response, err := client.http.R().
		SetContext(ctx).
		SetQueryParam(friendbotAddressKey, address).
		Get(client.friendbotURL)
	if err != nil {
		return fmt.Errorf("sorobanrpc: friendbot: %w", err)
	}
	if response.IsError() {
		return fmt.Errorf("%w: friendbot returned %d: %s", ErrUnexpectedStatus, response.StatusCode(), strings.TrimSpace(response.String()))
	}
	client.logger.Info("account funded", zap.String("address", address))
	return nil
}

func (client *Client) call(ctx context.Context, method string, params any, target any) error {
	request := rpcRequest{
		JSONRPC: jsonRPCVersion,
		ID:      client.requestID.Add(1),
		Method:  method,
		Params:  params,
	}
	response, err := client.http.R().
		SetContext(ctx).
		SetHeader("Content-Type", contentTypeJSON).
		SetBody(request).
		Post(client.endpoint)
	if err != nil {
		return fmt.Errorf("sorobanrpc: %s: %w", method, err)
	}
	if response.IsError() {
		return fmt.Errorf("%w: %s returned %d", ErrUnexpectedStatus, method, response.StatusCode())
	}

	var envelope rpcResponse
	if err := json.Unmarshal(response.Body(), &envelope); err != nil {
		return fmt.Errorf("sorobanrpc: %s: decode response: %w", method, err)
	}
	if envelope.Error != nil {
		client.logger.Debug("gateway rejected call",
			zap.String("method", method),
			zap.Int("code", envelope.Error.Code),
			zap.String("message", envelope.Error.Message),
		)
		return envelope.Error
	}
	if len(envelope.Result) == 0 || string(envelope.Result) == "null" {
		return fmt.Errorf("%w: %s", ErrEmptyResult, method)
	}
	if err := json.Unmarshal(envelope.Result, target); err != nil {
		return fmt.Errorf("sorobanrpc: %s: decode result: %w", method, err)
	}
	return nil
}
