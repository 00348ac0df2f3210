// Package walletbridge reaches a browser wallet extension through a local HTTP bridge.
package walletbridge

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/MarkoPoloResearchLab/celestium/internal/wallet"
	"github.com/MarkoPoloResearchLab/celestium/pkg/marketplace"
	"github.com/go-resty/resty/v2"
	"go.uber.org/zap"
)

const (
	pathStatus    = "/status"
	pathConnect   = "/connect"
	pathPublicKey = "/public-key"
	pathSign      = "/sign"

	defaultRequestTimeout = 2 * time.Minute
)

// ErrBridgeRequest reports a failed bridge call.
var ErrBridgeRequest = errors.New("walletbridge: request failed")

// Config describes the bridge endpoint.
type Config struct {
	BaseURL           string
	NetworkPassphrase string
	RequestTimeout    time.Duration
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

// Client talks to the bridge. It is both the wallet.Locator and the wallet.Extension.
type Client struct {
	baseURL           string
	networkPassphrase string
	http              *resty.Client
	logger            *zap.Logger
}

type statusResponse struct {
	Available bool `json:"available"`
	Connected bool `json:"connected"`
}

type publicKeyResponse struct {
	PublicKey string `json:"publicKey"`
}

type signRequest struct {
	XDR               string `json:"xdr"`
	NetworkPassphrase string `json:"networkPassphrase,omitempty"`
}

type signResponse struct {
	SignedXDR string `json:"signedXdr"`
}

type errorResponse struct {
	Error string `json:"error"`
}

// NewClient builds a bridge client. An empty base URL yields a client that never finds an extension.
func NewClient(config Config, options ...Option) *Client {
	timeout := config.RequestTimeout
	if timeout <= 0 {
		timeout = defaultRequestTimeout
	}
	client := &Client{
		baseURL:           strings.TrimRight(strings.TrimSpace(config.BaseURL), "/"),
		networkPassphrase: strings.TrimSpace(config.NetworkPassphrase),
		http:              resty.New().SetTimeout(timeout),
		logger:            zap.NewNop(),
	}
	for _, option := range options {
		if option != nil {
			option(client)
		}
	}
	return client
}

// Locate reports the bridge as the extension when it answers and reports one available.
func (client *Client) Locate(ctx context.Context) (wallet.Extension, error) {
	if client.baseURL == "" {
		return nil, fmt.Errorf("%w: wallet bridge is not configured", marketplace.ErrExtensionNotFound)
	}
	status, err := client.status(ctx)
	if err != nil {
		client.logger.Debug("wallet bridge unreachable", zap.Error(err))
		return nil, fmt.Errorf("%w: %v", marketplace.ErrExtensionNotFound, err)
	}
	if !status.Available {
		return nil, marketplace.ErrExtensionNotFound
	}
	return client, nil
}

// IsConnected reports whether the extension already authorized this site.
func (client *Client) IsConnected(ctx context.Context) (bool, error) {
	status, err := client.status(ctx)
	if err != nil {
		return false, err
	}
	return status.Connected, nil
}

// Connect prompts the user to authorize the site.
func (client *Client) Connect(ctx context.Context) error {
	return client.do(ctx, http.MethodPost, pathConnect, nil, nil)
}

// PublicKey reads the active account key.
func (client *Client) PublicKey(ctx context.Context) (string, error) {
	var response publicKeyResponse
	if err := client.do(ctx, http.MethodGet, pathPublicKey, nil, &response); err != nil {
		return "", err
	}
	return response.PublicKey, nil
}

// SignTransaction asks the extension to sign an envelope for the configured network.
func (client *Client) SignTransaction(ctx context.Context, transactionXDR string) (string, error) {
	var response signResponse
	request := signRequest{XDR: transactionXDR, NetworkPassphrase: client.networkPassphrase}
	if err := client.do(ctx, http.MethodPost, pathSign, request, &response); err != nil {
		return "", err
	}
	return response.SignedXDR, nil
}

func (client *Client) status(ctx context.Context) (statusResponse, error) {
	var response statusResponse
	err := client.do(ctx, http.MethodGet, pathStatus, nil, &response)
	return response, err
}

func (client *Client) do(ctx context.Context, method string, path string, body any, target any) error {
	request := client.http.R().SetContext(ctx)
	if body != nil {
		request.SetHeader("Content-Type", "application/json").SetBody(body)
	}
	response, err := request.Execute(method, client.baseURL+path)
	if err != nil {
		return fmt.Errorf("%w: %s %s: %v", ErrBridgeRequest, method, path, err)
	}
	if response.IsError() {
		message := strings.TrimSpace(response.String())
		var decoded errorResponse
		if json.Unmarshal(response.Body(), &decoded) == nil && decoded.Error != "" {
			message = decoded.Error
		}
		return fmt.Errorf("%w: %s %s returned %d: %s", ErrBridgeRequest, method, path, response.StatusCode(), message)
	}
	if target == nil {
		return nil
	}
	if err := json.Unmarshal(response.Body(), target); err != nil {
		return fmt.Errorf("%w: %s %s: decode response: %v", ErrBridgeRequest, method, path, err)
	}
	return nil
}
