package marketplace

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/shopspring/decimal"
)

type recorderLogger struct {
	entries []OperationLog
}

func (logger *recorderLogger) LogOperation(_ context.Context, entry OperationLog) {
	logger.entries = append(logger.entries, entry)
}

type fixedModes struct {
	demo bool
}

func (modes fixedModes) IsDemoMode(context.Context) bool {
	return modes.demo
}

type stubSource struct {
	mode       Mode
	calls      int
	err        error
	submission Submission
	records    []NFT
	lastDraft  NFTDraft
	lastPage   Page
}

func (source *stubSource) Mode() Mode {
	return source.mode
}

func (source *stubSource) Mint(_ context.Context, draft NFTDraft, _ AccountAddress) (Submission, error) {
	source.calls++
	source.lastDraft = draft
	return source.submission, source.err
}

func (source *stubSource) Transfer(context.Context, NFTID, AccountAddress, decimal.Decimal, AccountAddress) (Submission, error) {
	source.calls++
	return source.submission, source.err
}

func (source *stubSource) SetPrice(context.Context, NFTID, decimal.Decimal, AccountAddress) (Submission, error) {
	source.calls++
	return source.submission, source.err
}

func (source *stubSource) NFTDetails(_ context.Context, id NFTID) (NFT, error) {
	source.calls++
	if source.err != nil {
		return NFT{}, source.err
	}
	return NFT{ID: id.String(), Name: "Nebula Nexus", CreatedAt: time.Unix(0, 0)}, nil
}

func (source *stubSource) NFTsByOwner(context.Context, AccountAddress) ([]NFT, error) {
	source.calls++
	return source.records, source.err
}

func (source *stubSource) NFTsByCreator(context.Context, AccountAddress) ([]NFT, error) {
	source.calls++
	return source.records, source.err
}

func (source *stubSource) AllNFTs(_ context.Context, page Page) ([]NFT, error) {
	source.calls++
	source.lastPage = page
	return source.records, source.err
}

func (source *stubSource) AccountBalances(context.Context, AccountAddress) ([]Balance, error) {
	source.calls++
	if source.err != nil {
		return nil, source.err
	}
	return []Balance{{AssetType: "native", Balance: decimal.NewFromInt(1000)}}, nil
}

func (source *stubSource) FundAccount(context.Context, AccountAddress) error {
	source.calls++
	return source.err
}

func newStubSources() (*stubSource, *stubSource) {
	return &stubSource{mode: ModeDemo, submission: Submission{NFTID: "NFT4242", TxHash: "demo-hash"}},
		&stubSource{mode: ModeLive, submission: Submission{NFTID: "NFT7", TxHash: "live-hash"}}
}

func mustNewFacade(test *testing.T, demoMode bool, demo DataSource, live DataSource, options ...FacadeOption) *Facade {
	test.Helper()
	facade, err := NewFacade(fixedModes{demo: demoMode}, demo, live, options...)
	if err != nil {
		test.Fatalf("new facade: %v", err)
	}
	return facade
}

func TestNewFacadeRequiresDependencies(test *testing.T) {
	test.Parallel()
	demo, live := newStubSources()
	if _, err := NewFacade(nil, demo, live); !errors.Is(err, ErrInvalidServiceConfig) {
		test.Fatalf("expected invalid service config for nil modes, got %v", err)
	}
	if _, err := NewFacade(fixedModes{}, nil, live); !errors.Is(err, ErrInvalidServiceConfig) {
		test.Fatalf("expected invalid service config for nil demo source, got %v", err)
	}
	if _, err := NewFacade(fixedModes{}, demo, nil); !errors.Is(err, ErrInvalidServiceConfig) {
		test.Fatalf("expected invalid service config for nil live source, got %v", err)
	}
}

func TestMintRejectsRoyaltyOutsideRangeInBothModes(test *testing.T) {
	test.Parallel()
	for _, demoMode := range []bool{true, false} {
		for _, royalty := range []int{-1, 101, 250} {
			demo, live := newStubSources()
			facade := mustNewFacade(test, demoMode, demo, live)
			result := facade.MintNFT(context.Background(), MintRequest{Name: "X", Description: "Y", ImageURL: "Z", RoyaltyPercentage: royalty}, "GABC")
			if result.Success || result.ErrorKind != KindInvalidInput {
				test.Fatalf("demo=%v royalty=%d: expected invalid input, got %+v", demoMode, royalty, result)
			}
			if demo.calls != 0 || live.calls != 0 {
				test.Fatalf("demo=%v royalty=%d: expected no source calls, got demo=%d live=%d", demoMode, royalty, demo.calls, live.calls)
			}
		}
	}
}

func TestMintAcceptsRoyaltyBoundaries(test *testing.T) {
	test.Parallel()
	for _, royalty := range []int{0, 100} {
		demo, live := newStubSources()
		facade := mustNewFacade(test, true, demo, live)
		result := facade.MintNFT(context.Background(), MintRequest{Name: "X", Description: "Y", ImageURL: "Z", RoyaltyPercentage: royalty}, "GABC")
		if !result.Success {
			test.Fatalf("royalty=%d: expected success, got %+v", royalty, result)
		}
		if int(demo.lastDraft.RoyaltyPercentage) != royalty {
			test.Fatalf("royalty=%d: draft carried %d", royalty, demo.lastDraft.RoyaltyPercentage)
		}
	}
}

func TestFacadeDispatchesByMode(test *testing.T) {
	test.Parallel()
	demo, live := newStubSources()
	demoFacade := mustNewFacade(test, true, demo, live)
	result := demoFacade.MintNFT(context.Background(), MintRequest{Name: "X", Description: "Y", ImageURL: "Z", RoyaltyPercentage: 10}, "GABC")
	if !result.Success || result.NFTID != "NFT4242" || demo.calls != 1 || live.calls != 0 {
		test.Fatalf("expected demo dispatch, got result=%+v demo=%d live=%d", result, demo.calls, live.calls)
	}
	if demoFacade.Mode(context.Background()) != ModeDemo {
		test.Fatalf("expected demo mode")
	}

	liveFacade := mustNewFacade(test, false, demo, live)
	result = liveFacade.SetNFTPrice(context.Background(), "NFT7", decimal.NewFromInt(5), "GOWNER")
	if !result.Success || result.TxHash != "live-hash" || live.calls != 1 {
		test.Fatalf("expected live dispatch, got result=%+v live=%d", result, live.calls)
	}
}

func TestFacadeWrapsSourceFailures(test *testing.T) {
	test.Parallel()
	demo, live := newStubSources()
	live.err = fmt.Errorf("%w: wallet", ErrNotConnected)
	facade := mustNewFacade(test, false, demo, live)
	result := facade.TransferNFT(context.Background(), "NFT7", validStellarAddress, decimal.NewFromInt(10), "GFROM")
	if result.Success || result.ErrorKind != KindNotConnected || result.TxHash != "" {
		test.Fatalf("unexpected result: %+v", result)
	}
}

func TestTransferValidatesBeforeDispatch(test *testing.T) {
	test.Parallel()
	demo, live := newStubSources()
	facade := mustNewFacade(test, false, demo, live)
	cases := []struct {
		name   string
		id     string
		to     string
		amount decimal.Decimal
	}{
		{name: "empty id", id: "", to: validStellarAddress, amount: decimal.NewFromInt(1)},
		{name: "bad address", id: "NFT1", to: "nowhere", amount: decimal.NewFromInt(1)},
		{name: "zero amount", id: "NFT1", to: validStellarAddress, amount: decimal.Zero},
	}
	for _, testCase := range cases {
		result := facade.TransferNFT(context.Background(), testCase.id, testCase.to, testCase.amount, "GFROM")
		if result.Success || result.ErrorKind != KindInvalidInput {
			test.Fatalf("%s: expected invalid input, got %+v", testCase.name, result)
		}
	}
	if price := facade.SetNFTPrice(context.Background(), "NFT1", decimal.NewFromInt(-1), "GOWNER"); price.ErrorKind != KindInvalidInput {
		test.Fatalf("expected invalid input for negative price, got %+v", price)
	}
	if live.calls != 0 {
		test.Fatalf("expected no live calls, got %d", live.calls)
	}
}

func TestReadFailuresDegrade(test *testing.T) {
	test.Parallel()
	demo, live := newStubSources()
	live.err = errors.New("rpc unavailable")
	facade := mustNewFacade(test, false, demo, live)
	if record := facade.GetNFTDetails(context.Background(), "NFT1"); record != nil {
		test.Fatalf("expected nil record, got %+v", record)
	}
	if records := facade.GetNFTsByOwner(context.Background(), "GOWNER"); records == nil || len(records) != 0 {
		test.Fatalf("expected empty owner list, got %v", records)
	}
	if records := facade.GetNFTsByCreator(context.Background(), "GCREATOR"); records == nil || len(records) != 0 {
		test.Fatalf("expected empty creator list, got %v", records)
	}
	if records := facade.GetAllNFTs(context.Background(), 10, 0); records == nil || len(records) != 0 {
		test.Fatalf("expected empty gallery, got %v", records)
	}
	if balances := facade.GetAccountBalances(context.Background(), "GOWNER"); len(balances) != 0 {
		test.Fatalf("expected no balances, got %v", balances)
	}
}

func TestGetAllNFTsNormalizesPage(test *testing.T) {
	test.Parallel()
	demo, live := newStubSources()
	facade := mustNewFacade(test, true, demo, live)
	facade.GetAllNFTs(context.Background(), -5, -2)
	if demo.lastPage.Limit != defaultPageLimit || demo.lastPage.Offset != 0 {
		test.Fatalf("unexpected page: %+v", demo.lastPage)
	}
}

func TestFacadeLogsOperations(test *testing.T) {
	test.Parallel()
	demo, live := newStubSources()
	logger := &recorderLogger{}
	facade := mustNewFacade(test, true, demo, live, WithOperationLogger(logger))
	facade.MintNFT(context.Background(), MintRequest{Name: "X", Description: "Y", ImageURL: "Z", RoyaltyPercentage: 10}, "GABC")
	facade.MintNFT(context.Background(), MintRequest{Name: "X", Description: "Y", ImageURL: "Z", RoyaltyPercentage: 101}, "GABC")
	if len(logger.entries) != 2 {
		test.Fatalf("expected two log entries, got %d", len(logger.entries))
	}
	first := logger.entries[0]
	if first.Operation != operationMint || first.Status != operationStatusOK || first.Mode != ModeDemo || first.NFTID != "NFT4242" {
		test.Fatalf("unexpected success entry: %+v", first)
	}
	second := logger.entries[1]
	if second.Status != operationStatusError || !errors.Is(second.Error, ErrInvalidInput) {
		test.Fatalf("unexpected error entry: %+v", second)
	}
}

func TestFundTestAccountRequiresStellarAddress(test *testing.T) {
	test.Parallel()
	demo, live := newStubSources()
	facade := mustNewFacade(test, true, demo, live)
	if result := facade.FundTestAccount(context.Background(), "GABC"); result.ErrorKind != KindInvalidInput {
		test.Fatalf("expected invalid input, got %+v", result)
	}
	if result := facade.FundTestAccount(context.Background(), validStellarAddress); !result.Success {
		test.Fatalf("expected success, got %+v", result)
	}
}
