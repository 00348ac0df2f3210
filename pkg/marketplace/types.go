package marketplace

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// Mode selects which data source serves façade calls.
type Mode string

const (
	ModeDemo Mode = "demo"
	ModeLive Mode = "live"
)

// String returns the mode name.
func (mode Mode) String() string {
	return string(mode)
}

// NFTID identifies an NFT within a data-mode session.
type NFTID struct {
	value string
}

// NewNFTID validates and normalizes an NFT id.
func NewNFTID(raw string) (NFTID, error) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return NFTID{}, fmt.Errorf("%w: nft id is empty", ErrInvalidInput)
	}
	return NFTID{value: trimmed}, nil
}

// String returns the normalized identifier.
func (id NFTID) String() string {
	return id.value
}

// AccountAddress is a ledger address used by value; it owns nothing.
type AccountAddress struct {
	value string
}

// NewAccountAddress accepts any non-empty address. Wallet keys and query seeds use it.
func NewAccountAddress(raw string) (AccountAddress, error) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return AccountAddress{}, fmt.Errorf("%w: address is empty", ErrInvalidInput)
	}
	return AccountAddress{value: trimmed}, nil
}

// NewStellarAddress requires a well-formed Stellar account id (G…, 56 base32 characters).
func NewStellarAddress(raw string) (AccountAddress, error) {
	trimmed := strings.TrimSpace(raw)
	if !IsStellarAddress(trimmed) {
		return AccountAddress{}, fmt.Errorf("%w: malformed stellar address %q", ErrInvalidInput, trimmed)
	}
	return AccountAddress{value: trimmed}, nil
}

// IsStellarAddress reports whether raw has the shape of a Stellar account id.
// The checksum is not verified; that belongs to the ledger.
func IsStellarAddress(raw string) bool {
	if len(raw) != stellarAddressLength || !strings.HasPrefix(raw, stellarAccountPrefix) {
		return false
	}
	for _, character := range raw {
		if !strings.ContainsRune(stellarAlphabet, character) {
			return false
		}
	}
	return true
}

// String returns the normalized address.
func (address AccountAddress) String() string {
	return address.value
}

// RoyaltyPercentage is the creator's share of every sale, 0 through 100 inclusive.
type RoyaltyPercentage uint32

// NewRoyaltyPercentage validates the royalty range.
func NewRoyaltyPercentage(raw int) (RoyaltyPercentage, error) {
	if raw < 0 || raw > maxRoyaltyPercentage {
		return 0, fmt.Errorf("%w: royalty percentage %d outside 0-%d", ErrInvalidInput, raw, maxRoyaltyPercentage)
	}
	return RoyaltyPercentage(raw), nil
}

// Uint32 returns the raw percentage.
func (percentage RoyaltyPercentage) Uint32() uint32 {
	return uint32(percentage)
}

// NewPositiveLumens validates a strictly positive XLM amount.
func NewPositiveLumens(amount decimal.Decimal) (decimal.Decimal, error) {
	if amount.Sign() <= 0 {
		return decimal.Zero, fmt.Errorf("%w: amount %s must be greater than zero", ErrInvalidInput, amount.String())
	}
	return amount, nil
}

// LumensToStroops converts XLM into the ledger base unit, truncating sub-stroop fractions.
func LumensToStroops(amount decimal.Decimal) int64 {
	return amount.Shift(stroopsExponent).Truncate(0).IntPart()
}

// StroopsToLumens converts ledger base units into XLM.
func StroopsToLumens(stroops int64) decimal.Decimal {
	return decimal.New(stroops, -stroopsExponent)
}

// NFT is the record exchanged between the façade and its callers.
type NFT struct {
	ID                string          `json:"id"`
	Name              string          `json:"name"`
	Description       string          `json:"description"`
	ImageURL          string          `json:"imageUrl"`
	Creator           string          `json:"creator"`
	Owner             string          `json:"owner"`
	RoyaltyPercentage uint32          `json:"royaltyPercentage"`
	Price             decimal.Decimal `json:"price"`
	CreatedAt         time.Time       `json:"createdAt"`
}

// MintRequest carries unvalidated mint input.
type MintRequest struct {
	Name              string `json:"name"`
	Description       string `json:"description"`
	ImageURL          string `json:"imageUrl"`
	RoyaltyPercentage int    `json:"royaltyPercentage"`
}

// NFTDraft is a validated mint request.
type NFTDraft struct {
	Name              string
	Description       string
	ImageURL          string
	RoyaltyPercentage RoyaltyPercentage
}

// NewNFTDraft validates mint input.
func NewNFTDraft(request MintRequest) (NFTDraft, error) {
	name := strings.TrimSpace(request.Name)
	if name == "" {
		return NFTDraft{}, fmt.Errorf("%w: name is required", ErrInvalidInput)
	}
	description := strings.TrimSpace(request.Description)
	if description == "" {
		return NFTDraft{}, fmt.Errorf("%w: description is required", ErrInvalidInput)
	}
	imageURL := strings.TrimSpace(request.ImageURL)
	if imageURL == "" {
		return NFTDraft{}, fmt.Errorf("%w: image url is required", ErrInvalidInput)
	}
	royalty, err := NewRoyaltyPercentage(request.RoyaltyPercentage)
	if err != nil {
		return NFTDraft{}, err
	}
	return NFTDraft{
		Name:              name,
		Description:       description,
		ImageURL:          imageURL,
		RoyaltyPercentage: royalty,
	}, nil
}

// Page bounds list queries.
type Page struct {
	Limit  int
	Offset int
}

// NewPage normalizes pagination: non-positive limits fall back to the default,
// large limits are capped and negative offsets clamp to zero.
func NewPage(limit int, offset int) Page {
	if limit <= 0 {
		limit = defaultPageLimit
	}
	if limit > maxPageLimit {
		limit = maxPageLimit
	}
	if offset < 0 {
		offset = 0
	}
	return Page{Limit: limit, Offset: offset}
}

// Balance is one asset balance of a ledger account.
type Balance struct {
	AssetType string          `json:"assetType"`
	AssetCode string          `json:"assetCode,omitempty"`
	Issuer    string          `json:"issuer,omitempty"`
	Balance   decimal.Decimal `json:"balance"`
}

// Submission is the outcome of a successful state-changing call.
type Submission struct {
	NFTID     string
	TxHash    string
	ResultXDR string
}
