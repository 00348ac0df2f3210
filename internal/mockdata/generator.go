// Package mockdata synthesizes NFT records for demo mode. Every field is a pure function of
// the generator seed, the record id and the clock reading taken when the generator is built.
package mockdata

import (
	"crypto/sha512"
	"encoding/base32"
	"fmt"
	"hash/fnv"
	"math/rand/v2"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/MarkoPoloResearchLab/celestium/pkg/marketplace"
	"github.com/shopspring/decimal"
)

const (
	// DefaultSeed is used when no seed is configured.
	DefaultSeed uint64 = 20240301

	// DefaultOwnedCount is the size of an owner's demo collection.
	DefaultOwnedCount = 5
	// DefaultCreatedCount is the size of a creator's demo portfolio.
	DefaultCreatedCount = 8

	ownedIDBase   = 1000
	createdIDBase = 2000
	galleryIDBase = 3000

	mintedIDMin  = 10000
	mintedIDSpan = 90000

	// retainedCreated records of every portfolio stay with their creator.
	retainedCreated = (DefaultCreatedCount + 1) / 2

	idPrefix       = "NFT"
	idSeparator    = "-"
	imageURLFormat = "https://picsum.photos/id/%d/500/500"
	imageCount     = 100

	minRoyalty   = 5
	royaltySpan  = 11
	minPrice     = 50
	priceStep    = 5
	priceBuckets = 60

	stagger = 24 * time.Hour

	addressPrefix     = "G"
	addressBodyLength = 55
)

var addressEncoding = base32.StdEncoding.WithPadding(base32.NoPadding)

// Option configures a Generator.
type Option func(*Generator)

// WithClock overrides the time source used for creation timestamps.
func WithClock(clock func() time.Time) Option {
	return func(generator *Generator) {
		if clock != nil {
			generator.now = clock
		}
	}
}

// Generator produces demo NFT records.
type Generator struct {
	seed  uint64
	now   func() time.Time
	epoch time.Time

	mu       sync.Mutex
	sequence *rand.Rand
}

// NewGenerator builds a generator for the given seed.
func NewGenerator(seed uint64, options ...Option) *Generator {
	generator := &Generator{
		seed:     seed,
		now:      time.Now,
		sequence: rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15)),
	}
	for _, option := range options {
		if option != nil {
			option(generator)
		}
	}
	generator.epoch = generator.now().UTC()
	return generator
}

// Seed returns the configured seed.
func (generator *Generator) Seed() uint64 {
	return generator.seed
}

// Record builds the record for number; index staggers the creation time one day per step.
// Creator and owner default to seed-derived addresses.
func (generator *Generator) Record(number int, index int) marketplace.NFT {
	source := rand.New(rand.NewPCG(generator.seed, uint64(number)))
	entry := catalogue[positiveModulo(number, len(catalogue))]
	return marketplace.NFT{
		ID:                idPrefix + strconv.Itoa(number),
		Name:              entry.name,
		Description:       entry.description,
		ImageURL:          fmt.Sprintf(imageURLFormat, source.IntN(imageCount)),
		Creator:           generator.Address("creator-" + strconv.Itoa(number)),
		Owner:             generator.Address("owner-" + strconv.Itoa(number)),
		RoyaltyPercentage: uint32(minRoyalty + source.IntN(royaltySpan)),
		Price:             decimal.NewFromInt(int64(minPrice + priceStep*source.IntN(priceBuckets))),
		CreatedAt:         generator.epoch.Add(-time.Duration(index) * stagger),
	}
}

// OwnedBy returns count records created and owned by address. Ids carry the address so Detail
// rebuilds the same record.
func (generator *Generator) OwnedBy(address string, count int) []marketplace.NFT {
	records := make([]marketplace.NFT, 0, nonNegative(count))
	for index := 0; index < count; index++ {
		records = append(records, generator.owned(ownedIDBase+index, address))
	}
	return records
}

// CreatedBy returns count records created by address. The first records of every portfolio
// are still owned by the creator; the rest belong to collectors.
func (generator *Generator) CreatedBy(address string, count int) []marketplace.NFT {
	records := make([]marketplace.NFT, 0, nonNegative(count))
	for index := 0; index < count; index++ {
		records = append(records, generator.created(createdIDBase+index, address))
	}
	return records
}

func (generator *Generator) owned(number int, address string) marketplace.NFT {
	record := generator.Record(number, number-ownedIDBase)
	record.ID = scopedID(number, address)
	record.Creator = address
	record.Owner = address
	return record
}

func (generator *Generator) created(number int, address string) marketplace.NFT {
	index := number - createdIDBase
	record := generator.Record(number, index)
	record.ID = scopedID(number, address)
	record.Creator = address
	if index < retainedCreated {
		record.Owner = address
	} else {
		record.Owner = generator.Address(fmt.Sprintf("collector-%s-%d", address, index))
	}
	return record
}

// Page returns the gallery slice starting at offset.
func (generator *Generator) Page(offset int, limit int) []marketplace.NFT {
	offset = nonNegative(offset)
	records := make([]marketplace.NFT, 0, nonNegative(limit))
	for step := 0; step < limit; step++ {
		index := offset + step
		records = append(records, generator.Record(galleryIDBase+index, index))
	}
	return records
}

// Detail returns the record for an arbitrary id. The digits of the id select the record;
// ids without digits are hashed. Collection ids rebuild the owner and creator they were listed
// with.
func (generator *Generator) Detail(id string) marketplace.NFT {
	head, address, scoped := strings.Cut(id, idSeparator)
	number := numberFromID(head)
	if scoped && address != "" && strings.HasPrefix(head, idPrefix) {
		switch {
		case number >= ownedIDBase && number < createdIDBase:
			return generator.owned(number, address)
		case number >= createdIDBase && number < galleryIDBase:
			return generator.created(number, address)
		}
	}
	record := generator.Record(number, staggerIndex(number))
	record.ID = id
	return record
}

// Address derives a well-formed ledger account address from the seed and label.
func (generator *Generator) Address(label string) string {
	digest := sha512.Sum512([]byte(strconv.FormatUint(generator.seed, 10) + ":" + label))
	return addressPrefix + addressEncoding.EncodeToString(digest[:])[:addressBodyLength]
}

// NewID draws a fresh identifier for a minted record that taken does not report as used.
func (generator *Generator) NewID(taken func(string) bool) string {
	generator.mu.Lock()
	defer generator.mu.Unlock()
	for {
		candidate := idPrefix + strconv.Itoa(mintedIDMin+generator.sequence.IntN(mintedIDSpan))
		if taken == nil || !taken(candidate) {
			return candidate
		}
	}
}

func scopedID(number int, address string) string {
	return idPrefix + strconv.Itoa(number) + idSeparator + address
}

func staggerIndex(number int) int {
	switch {
	case number >= ownedIDBase && number < createdIDBase:
		return number - ownedIDBase
	case number >= createdIDBase && number < galleryIDBase:
		return number - createdIDBase
	case number >= galleryIDBase && number < mintedIDMin:
		return number - galleryIDBase
	}
	return 0
}

func numberFromID(id string) int {
	var digits strings.Builder
	for _, character := range id {
		if character >= '0' && character <= '9' {
			digits.WriteRune(character)
		}
	}
	if digits.Len() > 0 && digits.Len() < 10 {
		if number, err := strconv.Atoi(digits.String()); err == nil {
			return number
		}
	}
	hasher := fnv.New32a()
	_, _ = hasher.Write([]byte(id))
	return int(hasher.Sum32() & 0x7fffffff)
}

func positiveModulo(value int, modulus int) int {
	result := value % modulus
	if result < 0 {
		result += modulus
	}
	return result
}

func nonNegative(value int) int {
	if value < 0 {
		return 0
	}
	return value
}
