package demosource

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/MarkoPoloResearchLab/celestium/internal/mockdata"
	"github.com/MarkoPoloResearchLab/celestium/pkg/marketplace"
	"github.com/shopspring/decimal"
)

const (
	creatorAddress   = "GA2HGBJIJKI7O2CT5ZZNDRXT4ZAGZWCFK3QLTLMQT65YC7DYXJPC3LGX"
	collectorAddress = "GDZKFNH2LYJNUPKMZKCYVJ4IKCFIATC5IJKC5YWGKRPNZM5BQSTPZX5X"
)

var mintedAt = time.Date(2024, time.June, 1, 12, 0, 0, 0, time.UTC)

func mustNewSource(test *testing.T) *Source {
	test.Helper()
	generator := mockdata.NewGenerator(mockdata.DefaultSeed, mockdata.WithClock(func() time.Time { return mintedAt }))
	source, err := NewSource(generator, WithClock(func() time.Time { return mintedAt }))
	if err != nil {
		test.Fatalf("new source: %v", err)
	}
	return source
}

func mustAddress(test *testing.T, raw string) marketplace.AccountAddress {
	test.Helper()
	address, err := marketplace.NewAccountAddress(raw)
	if err != nil {
		test.Fatalf("address: %v", err)
	}
	return address
}

func mustID(test *testing.T, raw string) marketplace.NFTID {
	test.Helper()
	id, err := marketplace.NewNFTID(raw)
	if err != nil {
		test.Fatalf("id: %v", err)
	}
	return id
}

func mustDraft(test *testing.T) marketplace.NFTDraft {
	test.Helper()
	draft, err := marketplace.NewNFTDraft(marketplace.MintRequest{
		Name:              "Orbit Bloom",
		Description:       "Petals in low orbit",
		ImageURL:          "https://example.com/orbit.png",
		RoyaltyPercentage: 12,
	})
	if err != nil {
		test.Fatalf("draft: %v", err)
	}
	return draft
}

func TestNewSourceRequiresGenerator(test *testing.T) {
	test.Parallel()
	if _, err := NewSource(nil); !errors.Is(err, marketplace.ErrInvalidServiceConfig) {
		test.Fatalf("expected invalid service config, got %v", err)
	}
}

func TestMintThenDetailsRoundTrip(test *testing.T) {
	test.Parallel()
	source := mustNewSource(test)
	ctx := context.Background()
	submission, err := source.Mint(ctx, mustDraft(test), mustAddress(test, creatorAddress))
	if err != nil {
		test.Fatalf("mint: %v", err)
	}
	if submission.NFTID == "" || len(submission.TxHash) != 64 {
		test.Fatalf("unexpected submission %+v", submission)
	}
	record, err := source.NFTDetails(ctx, mustID(test, submission.NFTID))
	if err != nil {
		test.Fatalf("details: %v", err)
	}
	if record.Name != "Orbit Bloom" || record.Description != "Petals in low orbit" || record.RoyaltyPercentage != 12 {
		test.Fatalf("round trip lost fields: %+v", record)
	}
	if record.Creator != creatorAddress || record.Owner != creatorAddress || !record.CreatedAt.Equal(mintedAt) {
		test.Fatalf("unexpected ownership or timestamp: %+v", record)
	}
}

func TestMintProducesDistinctIDs(test *testing.T) {
	test.Parallel()
	source := mustNewSource(test)
	seen := map[string]bool{}
	for attempt := 0; attempt < 20; attempt++ {
		submission, err := source.Mint(context.Background(), mustDraft(test), mustAddress(test, creatorAddress))
		if err != nil {
			test.Fatalf("mint: %v", err)
		}
		if seen[submission.NFTID] {
			test.Fatalf("duplicate id %q", submission.NFTID)
		}
		seen[submission.NFTID] = true
	}
}

func TestNFTsByOwnerRelatesToAddress(test *testing.T) {
	test.Parallel()
	source := mustNewSource(test)
	records, err := source.NFTsByOwner(context.Background(), mustAddress(test, "GABC"))
	if err != nil {
		test.Fatalf("owner list: %v", err)
	}
	if len(records) == 0 {
		test.Fatalf("expected records")
	}
	for _, record := range records {
		if record.Owner != "GABC" && record.Creator != "GABC" {
			test.Fatalf("record %s unrelated to owner", record.ID)
		}
		if record.RoyaltyPercentage > 100 {
			test.Fatalf("record %s royalty out of range", record.ID)
		}
	}
}

func TestTransferMovesRecordBetweenOwners(test *testing.T) {
	test.Parallel()
	source := mustNewSource(test)
	ctx := context.Background()
	before, _ := source.NFTsByOwner(ctx, mustAddress(test, creatorAddress))
	moved := before[0]

	if _, err := source.Transfer(ctx, mustID(test, moved.ID), mustAddress(test, collectorAddress), decimal.NewFromInt(10), mustAddress(test, creatorAddress)); err != nil {
		test.Fatalf("transfer: %v", err)
	}

	after, _ := source.NFTsByOwner(ctx, mustAddress(test, creatorAddress))
	if len(after) != len(before)-1 {
		test.Fatalf("expected %d records after transfer, got %d", len(before)-1, len(after))
	}
	collected, _ := source.NFTsByOwner(ctx, mustAddress(test, collectorAddress))
	found := false
	for _, record := range collected {
		if record.ID == moved.ID {
			found = true
		}
	}
	if !found {
		test.Fatalf("expected %s in collector list", moved.ID)
	}
	detail, _ := source.NFTDetails(ctx, mustID(test, moved.ID))
	if detail.Owner != collectorAddress {
		test.Fatalf("expected detail owner %s, got %s", collectorAddress, detail.Owner)
	}
}

func TestSetPriceUpdatesDetails(test *testing.T) {
	test.Parallel()
	source := mustNewSource(test)
	ctx := context.Background()
	submission, err := source.SetPrice(ctx, mustID(test, "NFT3001"), decimal.RequireFromString("42.5"), mustAddress(test, creatorAddress))
	if err != nil || submission.TxHash == "" {
		test.Fatalf("set price: %+v %v", submission, err)
	}
	detail, _ := source.NFTDetails(ctx, mustID(test, "NFT3001"))
	if !detail.Price.Equal(decimal.RequireFromString("42.5")) {
		test.Fatalf("expected updated price, got %s", detail.Price)
	}
	page, _ := source.AllNFTs(ctx, marketplace.NewPage(5, 0))
	if !page[1].Price.Equal(decimal.RequireFromString("42.5")) {
		test.Fatalf("expected gallery to reflect new price, got %s", page[1].Price)
	}
}

func TestSetPriceOnOwnedRecordKeepsOwnership(test *testing.T) {
	test.Parallel()
	source := mustNewSource(test)
	ctx := context.Background()
	owner := mustAddress(test, creatorAddress)
	before, _ := source.NFTsByOwner(ctx, owner)
	target := before[0]
	otherBefore, _ := source.NFTsByOwner(ctx, mustAddress(test, collectorAddress))

	if _, err := source.SetPrice(ctx, mustID(test, target.ID), decimal.NewFromInt(42), owner); err != nil {
		test.Fatalf("set price: %v", err)
	}

	after, _ := source.NFTsByOwner(ctx, owner)
	if len(after) != len(before) {
		test.Fatalf("expected %d owned records after set price, got %d", len(before), len(after))
	}
	var repriced *marketplace.NFT
	for index := range after {
		if after[index].ID == target.ID {
			repriced = &after[index]
		}
	}
	if repriced == nil {
		test.Fatalf("expected %s to stay in the owner's list", target.ID)
	}
	if repriced.Owner != target.Owner || repriced.Creator != target.Creator || !repriced.CreatedAt.Equal(target.CreatedAt) || repriced.Name != target.Name {
		test.Fatalf("set price changed more than the price:\n%+v\n%+v", target, *repriced)
	}
	if !repriced.Price.Equal(decimal.NewFromInt(42)) {
		test.Fatalf("expected price 42, got %s", repriced.Price)
	}
	detail, _ := source.NFTDetails(ctx, mustID(test, target.ID))
	if detail.Owner != creatorAddress || detail.Creator != creatorAddress {
		test.Fatalf("detail ownership drifted: %+v", detail)
	}
	otherAfter, _ := source.NFTsByOwner(ctx, mustAddress(test, collectorAddress))
	if len(otherAfter) != len(otherBefore) {
		test.Fatalf("unrelated owner list changed from %d to %d", len(otherBefore), len(otherAfter))
	}
}

func TestDetailsMatchListedCollectionRecords(test *testing.T) {
	test.Parallel()
	source := mustNewSource(test)
	ctx := context.Background()
	created, _ := source.NFTsByCreator(ctx, mustAddress(test, creatorAddress))
	for _, record := range created {
		detail, _ := source.NFTDetails(ctx, mustID(test, record.ID))
		if detail.Owner != record.Owner || detail.Creator != record.Creator {
			test.Fatalf("detail of %s shows %s/%s, list showed %s/%s", record.ID, detail.Owner, detail.Creator, record.Owner, record.Creator)
		}
	}
}

func TestAllNFTsLeadsWithMintedRecords(test *testing.T) {
	test.Parallel()
	source := mustNewSource(test)
	ctx := context.Background()
	submission, _ := source.Mint(ctx, mustDraft(test), mustAddress(test, creatorAddress))
	first, _ := source.AllNFTs(ctx, marketplace.NewPage(3, 0))
	if len(first) != 3 || first[0].ID != submission.NFTID {
		test.Fatalf("expected minted record first, got %+v", first)
	}
	second, _ := source.AllNFTs(ctx, marketplace.NewPage(3, 3))
	if len(second) != 3 || second[0].ID != "NFT3003" {
		test.Fatalf("unexpected second page %+v", second)
	}
}

func TestBalancesAndFunding(test *testing.T) {
	test.Parallel()
	source := mustNewSource(test)
	balances, err := source.AccountBalances(context.Background(), mustAddress(test, creatorAddress))
	if err != nil || len(balances) != 1 || balances[0].AssetType != "native" || !balances[0].Balance.Equal(decimal.NewFromInt(1000)) {
		test.Fatalf("unexpected balances %+v %v", balances, err)
	}
	if err := source.FundAccount(context.Background(), mustAddress(test, creatorAddress)); err != nil {
		test.Fatalf("fund: %v", err)
	}
	if source.Mode() != marketplace.ModeDemo {
		test.Fatalf("expected demo mode")
	}
}
