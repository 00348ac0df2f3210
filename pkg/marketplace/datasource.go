package marketplace

import (
	"context"

	"github.com/shopspring/decimal"
)

// DataSource serves every NFT operation for one data mode.
type DataSource interface {
	Mode() Mode
	Mint(ctx context.Context, draft NFTDraft, creator AccountAddress) (Submission, error)
	Transfer(ctx context.Context, id NFTID, to AccountAddress, amount decimal.Decimal, from AccountAddress) (Submission, error)
	SetPrice(ctx context.Context, id NFTID, price decimal.Decimal, owner AccountAddress) (Submission, error)
	NFTDetails(ctx context.Context, id NFTID) (NFT, error)
	NFTsByOwner(ctx context.Context, owner AccountAddress) ([]NFT, error)
	NFTsByCreator(ctx context.Context, creator AccountAddress) ([]NFT, error)
	AllNFTs(ctx context.Context, page Page) ([]NFT, error)
	AccountBalances(ctx context.Context, address AccountAddress) ([]Balance, error)
	FundAccount(ctx context.Context, address AccountAddress) error
}

// ModeReader reports the active data mode.
type ModeReader interface {
	IsDemoMode(ctx context.Context) bool
}
