// Package livesource serves marketplace operations from the ledger through the gateway.
// Writes are built by the gateway, signed by the connected wallet, submitted and polled
// until the ledger reports a terminal status.
package livesource

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/MarkoPoloResearchLab/celestium/internal/sorobanrpc"
	"github.com/MarkoPoloResearchLab/celestium/pkg/marketplace"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

const (
	// DefaultPollInterval is the pause between status checks.
	DefaultPollInterval = time.Second
	// DefaultSubmitTimeout bounds how long a submission is polled.
	DefaultSubmitTimeout = 60 * time.Second

	stroopsExponent = 7
	nativeAssetType = "native"

	contractMint      = "mint"
	contractTransfer  = "transfer"
	contractSetPrice  = "set_price"
	contractGetNFT    = "get_nft"
	contractByOwner   = "get_nfts_by_owner"
	contractByCreator = "get_nfts_by_creator"
	contractAll       = "get_all_nfts"
	accountLookup     = "get_account"

	errorSubjectSubmit    = "submit"
	errorCodeBuildFailed  = "build_failed"
	errorCodeSendFailed   = "send_failed"
	errorCodePollFailed   = "poll_failed"
	errorCodeQueryFailed  = "query_failed"
	errorCodeAccountFetch = "account_failed"
)

// LedgerClient is the gateway surface used by the live source.
type LedgerClient interface {
	BuildInvocation(ctx context.Context, invocation sorobanrpc.Invocation) (string, error)
	SimulateInvocation(ctx context.Context, invocation sorobanrpc.Invocation) (json.RawMessage, error)
	SendTransaction(ctx context.Context, signedXDR string) (sorobanrpc.SendResult, error)
	GetTransaction(ctx context.Context, hash string) (sorobanrpc.TransactionResult, error)
	GetAccount(ctx context.Context, accountID string) (sorobanrpc.Account, error)
	Fund(ctx context.Context, address string) error
}

// Signer exposes the connected wallet.
type Signer interface {
	PublicKey() (string, bool)
	SignTransaction(ctx context.Context, transactionXDR string) (string, error)
}

// Config configures a Source.
type Config struct {
	ContractID    string
	PollInterval  time.Duration
	SubmitTimeout time.Duration
}

// Option configures a Source.
type Option func(*Source)

// WithLogger sets the logger.
func WithLogger(logger *zap.Logger) Option {
	return func(source *Source) {
		if logger != nil {
			source.logger = logger
		}
	}
}

// Source is the live-mode marketplace.DataSource.
type Source struct {
	client        LedgerClient
	signer        Signer
	contractID    string
	pollInterval  time.Duration
	submitTimeout time.Duration
	logger        *zap.Logger
}

// NewSource builds a live source.
func NewSource(client LedgerClient, signer Signer, config Config, options ...Option) (*Source, error) {
	if client == nil {
		return nil, fmt.Errorf("%w: ledger client is nil", marketplace.ErrInvalidServiceConfig)
	}
	if signer == nil {
		return nil, fmt.Errorf("%w: signer is nil", marketplace.ErrInvalidServiceConfig)
	}
	contractID := strings.TrimSpace(config.ContractID)
	if contractID == "" {
		return nil, fmt.Errorf("%w: contract id is required", marketplace.ErrInvalidServiceConfig)
	}
	source := &Source{
		client:        client,
		signer:        signer,
		contractID:    contractID,
		pollInterval:  config.PollInterval,
		submitTimeout: config.SubmitTimeout,
		logger:        zap.NewNop(),
	}
	if source.pollInterval <= 0 {
		source.pollInterval = DefaultPollInterval
	}
	if source.submitTimeout <= 0 {
		source.submitTimeout = DefaultSubmitTimeout
	}
	for _, option := range options {
		if option != nil {
			option(source)
		}
	}
	return source, nil
}

// Mode reports live mode.
func (source *Source) Mode() marketplace.Mode {
	return marketplace.ModeLive
}

// Mint submits a mint call; the new id is the contract's return value.
func (source *Source) Mint(ctx context.Context, draft marketplace.NFTDraft, creator marketplace.AccountAddress) (marketplace.Submission, error) {
	result, submission, err := source.submit(ctx, creator, contractMint,
		sorobanrpc.String(draft.Name),
		sorobanrpc.String(draft.Description),
		sorobanrpc.String(draft.ImageURL),
		sorobanrpc.U32(draft.RoyaltyPercentage.Uint32()),
		sorobanrpc.Address(creator.String()),
	)
	if err != nil {
		return marketplace.Submission{}, err
	}
	id, err := parseReturnedID(result.ReturnValue)
	if err != nil {
		return marketplace.Submission{}, err
	}
	submission.NFTID = id
	return submission, nil
}

// Transfer submits a transfer paying amount to the current owner.
func (source *Source) Transfer(ctx context.Context, id marketplace.NFTID, to marketplace.AccountAddress, amount decimal.Decimal, from marketplace.AccountAddress) (marketplace.Submission, error) {
	_, submission, err := source.submit(ctx, from, contractTransfer,
		sorobanrpc.String(id.String()),
		sorobanrpc.Address(to.String()),
		sorobanrpc.I128(marketplace.LumensToStroops(amount)),
	)
	if err != nil {
		return marketplace.Submission{}, err
	}
	submission.NFTID = id.String()
	return submission, nil
}

// SetPrice submits a new asking price.
func (source *Source) SetPrice(ctx context.Context, id marketplace.NFTID, price decimal.Decimal, owner marketplace.AccountAddress) (marketplace.Submission, error) {
	_, submission, err := source.submit(ctx, owner, contractSetPrice,
		sorobanrpc.String(id.String()),
		sorobanrpc.I128(marketplace.LumensToStroops(price)),
	)
	if err != nil {
		return marketplace.Submission{}, err
	}
	submission.NFTID = id.String()
	return submission, nil
}

// NFTDetails simulates get_nft.
func (source *Source) NFTDetails(ctx context.Context, id marketplace.NFTID) (marketplace.NFT, error) {
	raw, err := source.query(ctx, contractGetNFT, sorobanrpc.String(id.String()))
	if err != nil {
		return marketplace.NFT{}, err
	}
	return parseRecord(raw)
}

// NFTsByOwner simulates get_nfts_by_owner.
func (source *Source) NFTsByOwner(ctx context.Context, owner marketplace.AccountAddress) ([]marketplace.NFT, error) {
	raw, err := source.query(ctx, contractByOwner, sorobanrpc.Address(owner.String()))
	if err != nil {
		return nil, err
	}
	return source.records(contractByOwner, raw)
}

// NFTsByCreator simulates get_nfts_by_creator.
func (source *Source) NFTsByCreator(ctx context.Context, creator marketplace.AccountAddress) ([]marketplace.NFT, error) {
	raw, err := source.query(ctx, contractByCreator, sorobanrpc.Address(creator.String()))
	if err != nil {
		return nil, err
	}
	return source.records(contractByCreator, raw)
}

// AllNFTs simulates get_all_nfts.
func (source *Source) AllNFTs(ctx context.Context, page marketplace.Page) ([]marketplace.NFT, error) {
	raw, err := source.query(ctx, contractAll, sorobanrpc.U32(uint32(page.Limit)), sorobanrpc.U32(uint32(page.Offset)))
	if err != nil {
		return nil, err
	}
	return source.records(contractAll, raw)
}

func (source *Source) records(method string, raw json.RawMessage) ([]marketplace.NFT, error) {
	records, skipped, err := parseRecords(raw)
	if err != nil {
		return nil, err
	}
	for _, reason := range skipped {
		source.logger.Warn("skipping malformed contract record", zap.String("method", method), zap.Error(reason))
	}
	return records, nil
}

// AccountBalances loads the account's balances.
func (source *Source) AccountBalances(ctx context.Context, address marketplace.AccountAddress) ([]marketplace.Balance, error) {
	account, err := source.client.GetAccount(ctx, address.String())
	if err != nil {
		return nil, marketplace.WrapError(accountLookup, address.String(), errorCodeAccountFetch, err)
	}
	balances := make([]marketplace.Balance, 0, len(account.Balances))
	for _, line := range account.Balances {
		amount, err := decimal.NewFromString(line.Balance)
		if err != nil {
			return nil, fmt.Errorf("decode balance %q: %w", line.Balance, err)
		}
		assetType := line.AssetType
		if assetType == "" {
			assetType = nativeAssetType
		}
		balances = append(balances, marketplace.Balance{
			AssetType: assetType,
			AssetCode: line.AssetCode,
			Issuer:    line.AssetIssuer,
			Balance:   amount,
		})
	}
	return balances, nil
}

// FundAccount asks the test network faucet to fund address.
func (source *Source) FundAccount(ctx context.Context, address marketplace.AccountAddress) error {
	if err := source.client.Fund(ctx, address.String()); err != nil {
		return fmt.Errorf("%w: fund %s: %v", marketplace.ErrSubmissionFailed, address.String(), err)
	}
	return nil
}

func (source *Source) query(ctx context.Context, method string, args ...sorobanrpc.Argument) (json.RawMessage, error) {
	raw, err := source.client.SimulateInvocation(ctx, sorobanrpc.Invocation{
		ContractID: source.contractID,
		Method:     method,
		Args:       args,
	})
	if err != nil {
		return nil, marketplace.WrapError(method, source.contractID, errorCodeQueryFailed, err)
	}
	return raw, nil
}

// submit runs build, sign, send and poll for one contract call.
func (source *Source) submit(ctx context.Context, caller marketplace.AccountAddress, method string, args ...sorobanrpc.Argument) (sorobanrpc.TransactionResult, marketplace.Submission, error) {
	publicKey, connected := source.signer.PublicKey()
	if !connected {
		return sorobanrpc.TransactionResult{}, marketplace.Submission{}, marketplace.ErrNotConnected
	}
	if publicKey != caller.String() {
		return sorobanrpc.TransactionResult{}, marketplace.Submission{}, fmt.Errorf("%w: %s is not the connected wallet", marketplace.ErrNotConnected, caller.String())
	}

	unsigned, err := source.client.BuildInvocation(ctx, sorobanrpc.Invocation{
		Source:     publicKey,
		ContractID: source.contractID,
		Method:     method,
		Args:       args,
	})
	if err != nil {
		return sorobanrpc.TransactionResult{}, marketplace.Submission{}, submissionError(method, errorCodeBuildFailed, err)
	}

	signed, err := source.signer.SignTransaction(ctx, unsigned)
	if err != nil {
		if !errors.Is(err, marketplace.ErrSigningFailed) && !errors.Is(err, marketplace.ErrNotConnected) {
			err = fmt.Errorf("%w: %v", marketplace.ErrSigningFailed, err)
		}
		return sorobanrpc.TransactionResult{}, marketplace.Submission{}, err
	}

	sent, err := source.client.SendTransaction(ctx, signed)
	if err != nil {
		return sorobanrpc.TransactionResult{}, marketplace.Submission{}, submissionError(method, errorCodeSendFailed, err)
	}
	if sent.Status != sorobanrpc.StatusPending {
		return sorobanrpc.TransactionResult{}, marketplace.Submission{}, fmt.Errorf("%w: %s rejected with status %s", marketplace.ErrSubmissionFailed, method, sent.Status)
	}
	source.logger.Debug("transaction submitted", zap.String("method", method), zap.String("hash", sent.Hash))

	result, err := source.await(ctx, method, sent.Hash)
	if err != nil {
		return sorobanrpc.TransactionResult{}, marketplace.Submission{}, err
	}
	return result, marketplace.Submission{TxHash: sent.Hash, ResultXDR: result.ResultMetaXDR}, nil
}

// await polls the transaction while the ledger has not seen it, one interval after submission
// and every interval after that, bounded by the submit timeout and the caller's context.
func (source *Source) await(ctx context.Context, method string, hash string) (sorobanrpc.TransactionResult, error) {
	pollCtx, cancel := context.WithTimeout(ctx, source.submitTimeout)
	defer cancel()
	ticker := time.NewTicker(source.pollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-pollCtx.Done():
			return sorobanrpc.TransactionResult{}, source.pollAborted(ctx, hash)
		case <-ticker.C:
		}
		result, err := source.client.GetTransaction(pollCtx, hash)
		if err != nil {
			if pollCtx.Err() != nil {
				return sorobanrpc.TransactionResult{}, source.pollAborted(ctx, hash)
			}
			return sorobanrpc.TransactionResult{}, submissionError(method, errorCodePollFailed, err)
		}
		switch result.Status {
		case sorobanrpc.StatusSuccess:
			return result, nil
		case sorobanrpc.StatusNotFound:
		default:
			return sorobanrpc.TransactionResult{}, fmt.Errorf("%w: %s", marketplace.ErrSubmissionFailed, result.Status)
		}
	}
}

func (source *Source) pollAborted(ctx context.Context, hash string) error {
	if ctxErr := ctx.Err(); ctxErr != nil {
		return fmt.Errorf("transaction %s: %w", hash, ctxErr)
	}
	source.logger.Warn("transaction not confirmed in time", zap.String("hash", hash), zap.Duration("timeout", source.submitTimeout))
	return fmt.Errorf("%w: transaction %s not confirmed within %s", marketplace.ErrTimeout, hash, source.submitTimeout)
}

func submissionError(method string, code string, err error) error {
	return marketplace.WrapError(method, errorSubjectSubmit, code, fmt.Errorf("%w: %v", marketplace.ErrSubmissionFailed, err))
}
