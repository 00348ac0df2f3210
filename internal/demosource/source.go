// Package demosource serves marketplace operations from generated records. Records minted or
// changed during the session are kept in memory and take precedence over generated ones.
package demosource

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/MarkoPoloResearchLab/celestium/internal/mockdata"
	"github.com/MarkoPoloResearchLab/celestium/pkg/marketplace"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

const (
	nativeAssetType = "native"
	demoBalanceXLM  = 1000
)

// Option configures a Source.
type Option func(*Source)

// WithClock overrides the time source used for minted records.
func WithClock(clock func() time.Time) Option {
	return func(source *Source) {
		if clock != nil {
			source.now = clock
		}
	}
}

// WithCollectionSizes overrides the number of generated records per owner and creator.
func WithCollectionSizes(owned int, created int) Option {
	return func(source *Source) {
		if owned > 0 {
			source.ownedCount = owned
		}
		if created > 0 {
			source.createdCount = created
		}
	}
}

// Source is the demo-mode marketplace.DataSource.
type Source struct {
	generator    *mockdata.Generator
	now          func() time.Time
	ownedCount   int
	createdCount int

	mu       sync.RWMutex
	registry map[string]marketplace.NFT
	minted   []string
}

// NewSource builds a demo source over generator.
func NewSource(generator *mockdata.Generator, options ...Option) (*Source, error) {
	if generator == nil {
		return nil, fmt.Errorf("%w: generator is nil", marketplace.ErrInvalidServiceConfig)
	}
	source := &Source{
		generator:    generator,
		now:          time.Now,
		ownedCount:   mockdata.DefaultOwnedCount,
		createdCount: mockdata.DefaultCreatedCount,
		registry:     make(map[string]marketplace.NFT),
	}
	for _, option := range options {
		if option != nil {
			option(source)
		}
	}
	return source, nil
}

// Mode reports demo mode.
func (source *Source) Mode() marketplace.Mode {
	return marketplace.ModeDemo
}

// Mint registers a new record owned by its creator.
func (source *Source) Mint(_ context.Context, draft marketplace.NFTDraft, creator marketplace.AccountAddress) (marketplace.Submission, error) {
	source.mu.Lock()
	defer source.mu.Unlock()
	id := source.generator.NewID(func(candidate string) bool {
		_, exists := source.registry[candidate]
		return exists
	})
	source.registry[id] = marketplace.NFT{
		ID:                id,
		Name:              draft.Name,
		Description:       draft.Description,
		ImageURL:          draft.ImageURL,
		Creator:           creator.String(),
		Owner:             creator.String(),
		RoyaltyPercentage: draft.RoyaltyPercentage.Uint32(),
		Price:             decimal.Zero,
		CreatedAt:         source.now().UTC(),
	}
	source.minted = append(source.minted, id)
	return marketplace.Submission{NFTID: id, TxHash: syntheticTxHash()}, nil
}

// Transfer hands the record to its new owner.
func (source *Source) Transfer(_ context.Context, id marketplace.NFTID, to marketplace.AccountAddress, _ decimal.Decimal, _ marketplace.AccountAddress) (marketplace.Submission, error) {
	source.update(id, func(record *marketplace.NFT) {
		record.Owner = to.String()
	})
	return marketplace.Submission{NFTID: id.String(), TxHash: syntheticTxHash()}, nil
}

// SetPrice records the new asking price.
func (source *Source) SetPrice(_ context.Context, id marketplace.NFTID, price decimal.Decimal, _ marketplace.AccountAddress) (marketplace.Submission, error) {
	source.update(id, func(record *marketplace.NFT) {
		record.Price = price
	})
	return marketplace.Submission{NFTID: id.String(), TxHash: syntheticTxHash()}, nil
}

// NFTDetails returns the session record when one exists, the generated record otherwise.
func (source *Source) NFTDetails(_ context.Context, id marketplace.NFTID) (marketplace.NFT, error) {
	source.mu.RLock()
	defer source.mu.RUnlock()
	return source.lookup(id.String()), nil
}

// NFTsByOwner lists the owner's generated collection plus session records they now own.
func (source *Source) NFTsByOwner(_ context.Context, owner marketplace.AccountAddress) ([]marketplace.NFT, error) {
	address := owner.String()
	return source.merge(source.generator.OwnedBy(address, source.ownedCount), func(record marketplace.NFT) bool {
		return record.Owner == address
	}), nil
}

// NFTsByCreator lists the creator's generated portfolio plus session records they minted.
func (source *Source) NFTsByCreator(_ context.Context, creator marketplace.AccountAddress) ([]marketplace.NFT, error) {
	address := creator.String()
	return source.merge(source.generator.CreatedBy(address, source.createdCount), func(record marketplace.NFT) bool {
		return record.Creator == address
	}), nil
}

// AllNFTs returns one gallery page; the first page leads with records minted this session.
func (source *Source) AllNFTs(_ context.Context, page marketplace.Page) ([]marketplace.NFT, error) {
	generated := source.generator.Page(page.Offset, page.Limit)
	source.mu.RLock()
	defer source.mu.RUnlock()
	records := make([]marketplace.NFT, 0, page.Limit)
	if page.Offset == 0 {
		records = append(records, source.mintedLocked()...)
	}
	for _, record := range generated {
		if stored, ok := source.registry[record.ID]; ok {
			record = stored
		}
		records = append(records, record)
	}
	if len(records) > page.Limit {
		records = records[:page.Limit]
	}
	return records, nil
}

// AccountBalances reports the fixed demo balance.
func (source *Source) AccountBalances(context.Context, marketplace.AccountAddress) ([]marketplace.Balance, error) {
	return []marketplace.Balance{{AssetType: nativeAssetType, Balance: decimal.NewFromInt(demoBalanceXLM)}}, nil
}

// FundAccount always succeeds in demo mode.
func (source *Source) FundAccount(context.Context, marketplace.AccountAddress) error {
	return nil
}

func (source *Source) update(id marketplace.NFTID, mutate func(*marketplace.NFT)) {
	source.mu.Lock()
	defer source.mu.Unlock()
	record := source.lookup(id.String())
	mutate(&record)
	source.registry[record.ID] = record
}

func (source *Source) lookup(id string) marketplace.NFT {
	if record, ok := source.registry[id]; ok {
		return record
	}
	return source.generator.Detail(id)
}

// merge overlays session records on generated ones, drops generated records whose session
// copy no longer matches and appends matching session records not generated.
func (source *Source) merge(generated []marketplace.NFT, matches func(marketplace.NFT) bool) []marketplace.NFT {
	source.mu.RLock()
	defer source.mu.RUnlock()
	records := make([]marketplace.NFT, 0, len(generated))
	included := make(map[string]struct{}, len(generated))
	for _, record := range generated {
		if stored, ok := source.registry[record.ID]; ok {
			record = stored
		}
		if !matches(record) {
			continue
		}
		included[record.ID] = struct{}{}
		records = append(records, record)
	}
	var extra []marketplace.NFT
	for id, record := range source.registry {
		if _, seen := included[id]; seen || !matches(record) {
			continue
		}
		extra = append(extra, record)
	}
	sortNewestFirst(extra)
	return append(extra, records...)
}

func (source *Source) mintedLocked() []marketplace.NFT {
	minted := make([]marketplace.NFT, 0, len(source.minted))
	for index := len(source.minted) - 1; index >= 0; index-- {
		minted = append(minted, source.registry[source.minted[index]])
	}
	return minted
}

func sortNewestFirst(records []marketplace.NFT) {
	sort.SliceStable(records, func(left, right int) bool {
		if records[left].CreatedAt.Equal(records[right].CreatedAt) {
			return records[left].ID < records[right].ID
		}
		return records[left].CreatedAt.After(records[right].CreatedAt)
	})
}

func syntheticTxHash() string {
	return strings.ReplaceAll(uuid.NewString()+uuid.NewString(), "-", "")
}
