package marketplace

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"
)

// Facade is the single entry point for NFT operations. Callers never check the data mode;
// the façade resolves the active DataSource once per call.
type Facade struct {
	modes  ModeReader
	demo   DataSource
	live   DataSource
	logger OperationLogger
}

// NewFacade wires a Facade.
func NewFacade(modes ModeReader, demo DataSource, live DataSource, options ...FacadeOption) (*Facade, error) {
	if modes == nil {
		return nil, fmt.Errorf("%w: mode reader dependency is nil", ErrInvalidServiceConfig)
	}
	if demo == nil {
		return nil, fmt.Errorf("%w: demo data source is nil", ErrInvalidServiceConfig)
	}
	if live == nil {
		return nil, fmt.Errorf("%w: live data source is nil", ErrInvalidServiceConfig)
	}
	facade := &Facade{modes: modes, demo: demo, live: live}
	for _, option := range options {
		if option != nil {
			option(facade)
		}
	}
	return facade, nil
}

// Mode returns the data mode that the next call would use.
func (facade *Facade) Mode(ctx context.Context) Mode {
	return facade.source(ctx).Mode()
}

// MintNFT mints a new NFT for the wallet owner.
func (facade *Facade) MintNFT(ctx context.Context, request MintRequest, walletPublicKey string) OperationResult {
	source := facade.source(ctx)
	submission, err := facade.mint(ctx, source, request, walletPublicKey)
	facade.logOperation(ctx, OperationLog{
		Operation: operationMint,
		Mode:      source.Mode(),
		NFTID:     submission.NFTID,
		Address:   walletPublicKey,
		TxHash:    submission.TxHash,
		Error:     err,
	})
	if err != nil {
		return Failed(err)
	}
	return Succeeded(submission)
}

func (facade *Facade) mint(ctx context.Context, source DataSource, request MintRequest, walletPublicKey string) (Submission, error) {
	draft, err := NewNFTDraft(request)
	if err != nil {
		return Submission{}, err
	}
	creator, err := NewAccountAddress(walletPublicKey)
	if err != nil {
		return Submission{}, err
	}
	return source.Mint(ctx, draft, creator)
}

// TransferNFT moves an NFT to a new owner against a payment in XLM.
func (facade *Facade) TransferNFT(ctx context.Context, rawID string, toAddress string, amount decimal.Decimal, fromPublicKey string) OperationResult {
	source := facade.source(ctx)
	submission, err := facade.transfer(ctx, source, rawID, toAddress, amount, fromPublicKey)
	facade.logOperation(ctx, OperationLog{
		Operation:    operationTransfer,
		Mode:         source.Mode(),
		NFTID:        rawID,
		Address:      fromPublicKey,
		Counterparty: toAddress,
		Amount:       amount,
		TxHash:       submission.TxHash,
		Error:        err,
	})
	if err != nil {
		return Failed(err)
	}
	return Succeeded(submission)
}

func (facade *Facade) transfer(ctx context.Context, source DataSource, rawID string, toAddress string, amount decimal.Decimal, fromPublicKey string) (Submission, error) {
	id, err := NewNFTID(rawID)
	if err != nil {
		return Submission{}, err
	}
	to, err := NewStellarAddress(toAddress)
	if err != nil {
		return Submission{}, err
	}
	payment, err := NewPositiveLumens(amount)
	if err != nil {
		return Submission{}, err
	}
	from, err := NewAccountAddress(fromPublicKey)
	if err != nil {
		return Submission{}, err
	}
	return source.Transfer(ctx, id, to, payment, from)
}

// SetNFTPrice sets the asking price of an NFT.
func (facade *Facade) SetNFTPrice(ctx context.Context, rawID string, price decimal.Decimal, ownerPublicKey string) OperationResult {
	source := facade.source(ctx)
	submission, err := facade.setPrice(ctx, source, rawID, price, ownerPublicKey)
	facade.logOperation(ctx, OperationLog{
		Operation: operationSetPrice,
		Mode:      source.Mode(),
		NFTID:     rawID,
		Address:   ownerPublicKey,
		Amount:    price,
		TxHash:    submission.TxHash,
		Error:     err,
	})
	if err != nil {
		return Failed(err)
	}
	return Succeeded(submission)
}

func (facade *Facade) setPrice(ctx context.Context, source DataSource, rawID string, price decimal.Decimal, ownerPublicKey string) (Submission, error) {
	id, err := NewNFTID(rawID)
	if err != nil {
		return Submission{}, err
	}
	askingPrice, err := NewPositiveLumens(price)
	if err != nil {
		return Submission{}, err
	}
	owner, err := NewAccountAddress(ownerPublicKey)
	if err != nil {
		return Submission{}, err
	}
	return source.SetPrice(ctx, id, askingPrice, owner)
}

// GetNFTDetails returns the NFT or nil when it cannot be loaded for any reason.
func (facade *Facade) GetNFTDetails(ctx context.Context, rawID string) *NFT {
	source := facade.source(ctx)
	var record NFT
	id, err := NewNFTID(rawID)
	if err == nil {
		record, err = source.NFTDetails(ctx, id)
	}
	facade.logOperation(ctx, OperationLog{
		Operation: operationDetails,
		Mode:      source.Mode(),
		NFTID:     rawID,
		Error:     err,
	})
	if err != nil {
		return nil
	}
	return &record
}

// GetNFTsByOwner lists NFTs owned by address; failures yield an empty list.
func (facade *Facade) GetNFTsByOwner(ctx context.Context, rawAddress string) []NFT {
	source := facade.source(ctx)
	return facade.listByAddress(ctx, source, operationByOwner, rawAddress, source.NFTsByOwner)
}

// GetNFTsByCreator lists NFTs created by address; failures yield an empty list.
func (facade *Facade) GetNFTsByCreator(ctx context.Context, rawAddress string) []NFT {
	source := facade.source(ctx)
	return facade.listByAddress(ctx, source, operationByCreator, rawAddress, source.NFTsByCreator)
}

func (facade *Facade) listByAddress(ctx context.Context, source DataSource, operation string, rawAddress string, query func(context.Context, AccountAddress) ([]NFT, error)) []NFT {
	var records []NFT
	address, err := NewAccountAddress(rawAddress)
	if err == nil {
		records, err = query(ctx, address)
	}
	facade.logOperation(ctx, OperationLog{
		Operation: operation,
		Mode:      source.Mode(),
		Address:   rawAddress,
		Count:     len(records),
		Error:     err,
	})
	if err != nil || records == nil {
		return []NFT{}
	}
	return records
}

// GetAllNFTs lists a page of NFTs; failures yield an empty list.
func (facade *Facade) GetAllNFTs(ctx context.Context, limit int, offset int) []NFT {
	source := facade.source(ctx)
	records, err := source.AllNFTs(ctx, NewPage(limit, offset))
	facade.logOperation(ctx, OperationLog{
		Operation: operationAll,
		Mode:      source.Mode(),
		Count:     len(records),
		Error:     err,
	})
	if err != nil || records == nil {
		return []NFT{}
	}
	return records
}

// GetAccountBalances lists the balances of an account; failures yield an empty list.
func (facade *Facade) GetAccountBalances(ctx context.Context, rawAddress string) []Balance {
	source := facade.source(ctx)
	var balances []Balance
	address, err := NewAccountAddress(rawAddress)
	if err == nil {
		balances, err = source.AccountBalances(ctx, address)
	}
	facade.logOperation(ctx, OperationLog{
		Operation: operationBalances,
		Mode:      source.Mode(),
		Address:   rawAddress,
		Count:     len(balances),
		Error:     err,
	})
	if err != nil || balances == nil {
		return []Balance{}
	}
	return balances
}

// FundTestAccount asks the test network to fund a fresh account.
func (facade *Facade) FundTestAccount(ctx context.Context, rawAddress string) OperationResult {
	source := facade.source(ctx)
	address, err := NewStellarAddress(rawAddress)
	if err == nil {
		err = source.FundAccount(ctx, address)
	}
	facade.logOperation(ctx, OperationLog{
		Operation: operationFund,
		Mode:      source.Mode(),
		Address:   rawAddress,
		Error:     err,
	})
	if err != nil {
		return Failed(err)
	}
	return Succeeded(Submission{})
}

func (facade *Facade) source(ctx context.Context) DataSource {
	if facade.modes.IsDemoMode(ctx) {
		return facade.demo
	}
	return facade.live
}

func (facade *Facade) logOperation(ctx context.Context, entry OperationLog) {
	if facade.logger == nil {
		return
	}
	if entry.Status == "" {
		if entry.Error != nil {
			entry.Status = operationStatusError
		} else {
			entry.Status = operationStatusOK
		}
	}
	facade.logger.LogOperation(ctx, entry)
}
