package readcache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/MarkoPoloResearchLab/celestium/pkg/marketplace"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

const (
	// DefaultTTL bounds how stale a cached read may be.
	DefaultTTL       = 30 * time.Second
	defaultNamespace = "celestium"

	kindNFT     = "nft"
	kindOwner   = "owner"
	kindCreator = "creator"
	kindGallery = "gallery"

	// galleryGenerationKey holds a token that prefixes every cached gallery page. Writes
	// rotate it, which orphans all cached pages at once.
	galleryGenerationKey = "generation"
	initialGeneration    = "0"
)

// Option configures a Source.
type Option func(*Source)

// WithTTL overrides DefaultTTL.
func WithTTL(ttl time.Duration) Option {
	return func(source *Source) {
		if ttl > 0 {
			source.ttl = ttl
		}
	}
}

// WithNamespace overrides the key prefix.
func WithNamespace(namespace string) Option {
	return func(source *Source) {
		if namespace != "" {
			source.namespace = namespace
		}
	}
}

// WithLogger sets the logger used for cache failures.
func WithLogger(logger *zap.Logger) Option {
	return func(source *Source) {
		if logger != nil {
			source.logger = logger
		}
	}
}

// Source is a marketplace.DataSource that reads through a Cache.
// Writes go straight to the wrapped source and invalidate the keys they touch.
type Source struct {
	next      marketplace.DataSource
	cache     Cache
	ttl       time.Duration
	namespace string
	logger    *zap.Logger
}

// NewSource decorates next with cache.
func NewSource(next marketplace.DataSource, cache Cache, options ...Option) (*Source, error) {
	if next == nil {
		return nil, fmt.Errorf("%w: data source is nil", marketplace.ErrInvalidServiceConfig)
	}
	if cache == nil {
		return nil, fmt.Errorf("%w: cache is nil", marketplace.ErrInvalidServiceConfig)
	}
	source := &Source{
		next:      next,
		cache:     cache,
		ttl:       DefaultTTL,
		namespace: defaultNamespace,
		logger:    zap.NewNop(),
	}
	for _, option := range options {
		if option != nil {
			option(source)
		}
	}
	return source, nil
}

// Mode reports the wrapped source's mode.
func (source *Source) Mode() marketplace.Mode {
	return source.next.Mode()
}

// Mint writes through and drops the creator's lists and the gallery.
func (source *Source) Mint(ctx context.Context, draft marketplace.NFTDraft, creator marketplace.AccountAddress) (marketplace.Submission, error) {
	submission, err := source.next.Mint(ctx, draft, creator)
	if err == nil {
		source.invalidate(ctx, kindOwner, creator.String())
		source.invalidate(ctx, kindCreator, creator.String())
		source.rotateGallery(ctx)
	}
	return submission, err
}

// Transfer writes through and drops every cached view that shows the record's owner.
func (source *Source) Transfer(ctx context.Context, id marketplace.NFTID, to marketplace.AccountAddress, amount decimal.Decimal, from marketplace.AccountAddress) (marketplace.Submission, error) {
	known, found := source.known(ctx, id)
	submission, err := source.next.Transfer(ctx, id, to, amount, from)
	if err == nil {
		source.invalidate(ctx, kindNFT, id.String())
		source.invalidate(ctx, kindOwner, from.String())
		source.invalidate(ctx, kindOwner, to.String())
		if found {
			source.invalidate(ctx, kindOwner, known.Owner)
			source.invalidate(ctx, kindCreator, known.Creator)
		}
		source.rotateGallery(ctx)
	}
	return submission, err
}

// SetPrice writes through and drops every cached view that shows the record's price.
func (source *Source) SetPrice(ctx context.Context, id marketplace.NFTID, price decimal.Decimal, owner marketplace.AccountAddress) (marketplace.Submission, error) {
	known, found := source.known(ctx, id)
	submission, err := source.next.SetPrice(ctx, id, price, owner)
	if err == nil {
		source.invalidate(ctx, kindNFT, id.String())
		source.invalidate(ctx, kindOwner, owner.String())
		if found {
			source.invalidate(ctx, kindOwner, known.Owner)
			source.invalidate(ctx, kindCreator, known.Creator)
		}
		source.rotateGallery(ctx)
	}
	return submission, err
}

// NFTDetails reads through the cache.
func (source *Source) NFTDetails(ctx context.Context, id marketplace.NFTID) (marketplace.NFT, error) {
	var record marketplace.NFT
	if source.lookup(ctx, kindNFT, id.String(), &record) {
		return record, nil
	}
	record, err := source.next.NFTDetails(ctx, id)
	if err != nil {
		return marketplace.NFT{}, err
	}
	source.store(ctx, kindNFT, id.String(), record)
	return record, nil
}

// NFTsByOwner reads through the cache.
func (source *Source) NFTsByOwner(ctx context.Context, owner marketplace.AccountAddress) ([]marketplace.NFT, error) {
	return source.list(ctx, kindOwner, owner.String(), func() ([]marketplace.NFT, error) {
		return source.next.NFTsByOwner(ctx, owner)
	})
}

// NFTsByCreator reads through the cache.
func (source *Source) NFTsByCreator(ctx context.Context, creator marketplace.AccountAddress) ([]marketplace.NFT, error) {
	return source.list(ctx, kindCreator, creator.String(), func() ([]marketplace.NFT, error) {
		return source.next.NFTsByCreator(ctx, creator)
	})
}

// AllNFTs reads through the cache, keyed by the current gallery generation and page.
func (source *Source) AllNFTs(ctx context.Context, page marketplace.Page) ([]marketplace.NFT, error) {
	key := source.galleryGeneration(ctx) + ":" + strconv.Itoa(page.Limit) + ":" + strconv.Itoa(page.Offset)
	return source.list(ctx, kindGallery, key, func() ([]marketplace.NFT, error) {
		return source.next.AllNFTs(ctx, page)
	})
}

// AccountBalances is never cached.
func (source *Source) AccountBalances(ctx context.Context, address marketplace.AccountAddress) ([]marketplace.Balance, error) {
	return source.next.AccountBalances(ctx, address)
}

// FundAccount is never cached.
func (source *Source) FundAccount(ctx context.Context, address marketplace.AccountAddress) error {
	return source.next.FundAccount(ctx, address)
}

// known returns the record as readers currently see it, so a write can drop the lists it
// appears in.
func (source *Source) known(ctx context.Context, id marketplace.NFTID) (marketplace.NFT, bool) {
	record, err := source.NFTDetails(ctx, id)
	if err != nil {
		source.logger.Debug("record unknown before write", zap.String("id", id.String()), zap.Error(err))
		return marketplace.NFT{}, false
	}
	return record, true
}

func (source *Source) galleryGeneration(ctx context.Context) string {
	generation, err := source.cache.Get(ctx, source.namespaceFor(kindGallery), galleryGenerationKey)
	if err != nil {
		return initialGeneration
	}
	return generation
}

func (source *Source) rotateGallery(ctx context.Context) {
	if err := source.cache.Set(ctx, source.namespaceFor(kindGallery), galleryGenerationKey, uuid.NewString(), 0); err != nil {
		source.logger.Warn("gallery invalidation failed", zap.Error(err))
	}
}

func (source *Source) list(ctx context.Context, kind string, key string, load func() ([]marketplace.NFT, error)) ([]marketplace.NFT, error) {
	var records []marketplace.NFT
	if source.lookup(ctx, kind, key, &records) {
		return records, nil
	}
	records, err := load()
	if err != nil {
		return nil, err
	}
	source.store(ctx, kind, key, records)
	return records, nil
}

func (source *Source) lookup(ctx context.Context, kind string, key string, target any) bool {
	raw, err := source.cache.Get(ctx, source.namespaceFor(kind), key)
	if errors.Is(err, ErrMiss) {
		return false
	}
	if err != nil {
		source.logger.Warn("cache read failed", zap.String("kind", kind), zap.String("key", key), zap.Error(err))
		return false
	}
	if err := json.Unmarshal([]byte(raw), target); err != nil {
		source.logger.Warn("cache entry undecodable", zap.String("kind", kind), zap.String("key", key), zap.Error(err))
		return false
	}
	return true
}

func (source *Source) store(ctx context.Context, kind string, key string, value any) {
	encoded, err := json.Marshal(value)
	if err != nil {
		return
	}
	if err := source.cache.Set(ctx, source.namespaceFor(kind), key, string(encoded), source.ttl); err != nil {
		source.logger.Warn("cache write failed", zap.String("kind", kind), zap.String("key", key), zap.Error(err))
	}
}

func (source *Source) invalidate(ctx context.Context, kind string, key string) {
	if err := source.cache.Delete(ctx, source.namespaceFor(kind), key); err != nil {
		source.logger.Warn("cache invalidation failed", zap.String("kind", kind), zap.String("key", key), zap.Error(err))
	}
}

func (source *Source) namespaceFor(kind string) string {
	return source.namespace + ":" + kind
}
