package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/MarkoPoloResearchLab/celestium/internal/activity"
	"github.com/MarkoPoloResearchLab/celestium/internal/datamode"
	"github.com/MarkoPoloResearchLab/celestium/internal/demosource"
	"github.com/MarkoPoloResearchLab/celestium/internal/livesource"
	"github.com/MarkoPoloResearchLab/celestium/internal/marketapi"
	"github.com/MarkoPoloResearchLab/celestium/internal/mockdata"
	"github.com/MarkoPoloResearchLab/celestium/internal/readcache"
	"github.com/MarkoPoloResearchLab/celestium/internal/sorobanrpc"
	"github.com/MarkoPoloResearchLab/celestium/internal/wallet"
	"github.com/MarkoPoloResearchLab/celestium/internal/walletbridge"
	"github.com/MarkoPoloResearchLab/celestium/pkg/marketplace"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"
)

const (
	envPrefix = "CELESTIUM"

	flagListenAddr        = "listen-addr"
	flagAllowedOrigins    = "allowed-origins"
	flagDatabaseURL       = "database-url"
	flagStore             = "store"
	flagLedgerRPCURL      = "ledger-rpc-url"
	flagFriendbotURL      = "friendbot-url"
	flagWalletBridgeURL   = "wallet-bridge-url"
	flagContractID        = "contract-id"
	flagNetworkPassphrase = "network-passphrase"
	flagPollInterval      = "poll-interval"
	flagSubmitTimeout     = "submit-timeout"
	flagRedisAddr         = "redis-addr"
	flagCacheTTL          = "cache-ttl"
	flagDemoSeed          = "demo-seed"

	storeGorm = "gorm"
	storePgx  = "pgx"

	defaultListenAddr        = ":8090"
	defaultDatabaseURL       = "sqlite:///tmp/celestium.db"
	defaultLedgerRPCURL      = "https://soroban-testnet.stellar.org"
	defaultFriendbotURL      = "https://friendbot.stellar.org"
	defaultContractID        = "CDLZFC3SYJYDZT7K67VZ75HPJVIEUVNIXF47ZG2FB2RMQQVU2HHGCYSC"
	defaultNetworkPassphrase = "Test SDF Network ; September 2015"
)

type runtimeConfig struct {
	ListenAddr        string
	AllowedOrigins    []string
	DatabaseURL       string
	Store             string
	LedgerRPCURL      string
	FriendbotURL      string
	WalletBridgeURL   string
	ContractID        string
	NetworkPassphrase string
	PollInterval      time.Duration
	SubmitTimeout     time.Duration
	RedisAddr         string
	CacheTTL          time.Duration
	DemoSeed          uint64
}

// marketStore is what both store backends provide.
type marketStore interface {
	datamode.Store
	activity.Recorder
	activity.Reader
}

func main() {
	cmd := newRootCommand()
	if err := cmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "celestiumd: %v\n", err)
		os.Exit(1)
	}
}

func newRootCommand() *cobra.Command {
	cfg := &runtimeConfig{}
	cmd := &cobra.Command{
		Use:           "celestiumd",
		Short:         "Celestium NFT marketplace API",
		SilenceUsage:  true,
		SilenceErrors: true,
		PreRunE: func(cmd *cobra.Command, args []string) error {
			return loadConfig(cmd, cfg)
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			return runServer(ctx, cfg)
		},
	}

	cmd.Flags().String(flagListenAddr, defaultListenAddr, "HTTP listen address")
	cmd.Flags().String(flagAllowedOrigins, "", "comma-separated CORS origins")
	cmd.Flags().String(flagDatabaseURL, defaultDatabaseURL, "PostgreSQL or sqlite connection string")
	cmd.Flags().String(flagStore, storeGorm, "store backend: gorm or pgx")
	cmd.Flags().String(flagLedgerRPCURL, defaultLedgerRPCURL, "ledger gateway JSON-RPC endpoint")
	cmd.Flags().String(flagFriendbotURL, defaultFriendbotURL, "test network funding endpoint")
	cmd.Flags().String(flagWalletBridgeURL, "", "wallet extension bridge base URL")
	cmd.Flags().String(flagContractID, defaultContractID, "NFT contract id")
	cmd.Flags().String(flagNetworkPassphrase, defaultNetworkPassphrase, "network passphrase used for signing")
	cmd.Flags().Duration(flagPollInterval, livesource.DefaultPollInterval, "transaction status poll interval")
	cmd.Flags().Duration(flagSubmitTimeout, livesource.DefaultSubmitTimeout, "how long a submission is polled before timing out")
	cmd.Flags().String(flagRedisAddr, "", "redis address for the live read cache; empty disables caching")
	cmd.Flags().Duration(flagCacheTTL, readcache.DefaultTTL, "live read cache TTL")
	cmd.Flags().Uint64(flagDemoSeed, mockdata.DefaultSeed, "demo data generator seed")

	return cmd
}

func loadConfig(cmd *cobra.Command, cfg *runtimeConfig) error {
	viper.SetEnvPrefix(envPrefix)
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	viper.AutomaticEnv()

	if err := viper.BindPFlags(cmd.Flags()); err != nil {
		return err
	}

	cfg.ListenAddr = viper.GetString(flagListenAddr)
	cfg.AllowedOrigins = marketapi.ParseAllowedOrigins(viper.GetString(flagAllowedOrigins))
	cfg.DatabaseURL = viper.GetString(flagDatabaseURL)
	if cfg.DatabaseURL == "" {
		cfg.DatabaseURL = defaultDatabaseURL
	}
	cfg.Store = strings.ToLower(strings.TrimSpace(viper.GetString(flagStore)))
	cfg.LedgerRPCURL = viper.GetString(flagLedgerRPCURL)
	cfg.FriendbotURL = viper.GetString(flagFriendbotURL)
	cfg.WalletBridgeURL = viper.GetString(flagWalletBridgeURL)
	cfg.ContractID = viper.GetString(flagContractID)
	cfg.NetworkPassphrase = viper.GetString(flagNetworkPassphrase)
	cfg.PollInterval = viper.GetDuration(flagPollInterval)
	cfg.SubmitTimeout = viper.GetDuration(flagSubmitTimeout)
	cfg.RedisAddr = viper.GetString(flagRedisAddr)
	cfg.CacheTTL = viper.GetDuration(flagCacheTTL)
	cfg.DemoSeed = viper.GetUint64(flagDemoSeed)

	if cfg.Store != storeGorm && cfg.Store != storePgx {
		return fmt.Errorf("store must be %q or %q, got %q", storeGorm, storePgx, cfg.Store)
	}
	if cfg.Store == storePgx && !isPostgresURL(cfg.DatabaseURL) {
		return fmt.Errorf("store %q requires a postgres database url", storePgx)
	}
	if strings.TrimSpace(cfg.LedgerRPCURL) == "" {
		return fmt.Errorf("ledger rpc url is required")
	}
	if strings.TrimSpace(cfg.ContractID) == "" {
		return fmt.Errorf("contract id is required")
	}
	return nil
}

func runServer(ctx context.Context, cfg *runtimeConfig) error {
	logger, err := zap.NewProduction()
	if err != nil {
		return fmt.Errorf("logger init: %w", err)
	}
	defer func() { _ = logger.Sync() }()

	store, cleanup, err := openStore(ctx, cfg)
	if err != nil {
		return err
	}
	defer cleanup()

	modes, err := datamode.NewSwitch(store, datamode.WithLogger(logger))
	if err != nil {
		return fmt.Errorf("data mode init: %w", err)
	}

	bridge := walletbridge.NewClient(walletbridge.Config{
		BaseURL:           cfg.WalletBridgeURL,
		NetworkPassphrase: cfg.NetworkPassphrase,
	}, walletbridge.WithLogger(logger))
	wallets, err := wallet.NewManager(bridge, wallet.WithLogger(logger))
	if err != nil {
		return fmt.Errorf("wallet init: %w", err)
	}
	wallets.Probe(ctx)

	gateway, err := sorobanrpc.NewClient(sorobanrpc.Config{
		Endpoint:     cfg.LedgerRPCURL,
		FriendbotURL: cfg.FriendbotURL,
	}, sorobanrpc.WithLogger(logger))
	if err != nil {
		return fmt.Errorf("ledger client init: %w", err)
	}
	live, err := livesource.NewSource(gateway, wallets, livesource.Config{
		ContractID:    cfg.ContractID,
		PollInterval:  cfg.PollInterval,
		SubmitTimeout: cfg.SubmitTimeout,
	}, livesource.WithLogger(logger))
	if err != nil {
		return fmt.Errorf("live source init: %w", err)
	}
	liveSource, closeCache, err := withReadCache(ctx, cfg, live, logger)
	if err != nil {
		return err
	}
	defer closeCache()

	demo, err := demosource.NewSource(mockdata.NewGenerator(cfg.DemoSeed))
	if err != nil {
		return fmt.Errorf("demo source init: %w", err)
	}

	journal, err := activity.NewJournal(store, activity.WithLogger(logger))
	if err != nil {
		return fmt.Errorf("activity journal init: %w", err)
	}
	facade, err := marketplace.NewFacade(modes, demo, liveSource, marketplace.WithOperationLogger(journal))
	if err != nil {
		return fmt.Errorf("marketplace init: %w", err)
	}

	server, err := marketapi.NewServer(marketapi.Config{
		ListenAddr:     cfg.ListenAddr,
		AllowedOrigins: cfg.AllowedOrigins,
		RequestTimeout: cfg.SubmitTimeout + 30*time.Second,
	}, marketapi.Dependencies{
		Marketplace: facade,
		Modes:       modes,
		Wallet:      wallets,
		Activity:    store,
		Logger:      logger,
	})
	if err != nil {
		return fmt.Errorf("api init: %w", err)
	}
	logger.Info("celestium starting",
		zap.String("store", cfg.Store),
		zap.String("mode", modes.Mode(ctx).String()),
		zap.Uint64("demo_seed", cfg.DemoSeed),
		zap.Bool("read_cache", cfg.RedisAddr != ""),
	)
	return server.Run(ctx)
}

func withReadCache(ctx context.Context, cfg *runtimeConfig, live marketplace.DataSource, logger *zap.Logger) (marketplace.DataSource, func(), error) {
	if strings.TrimSpace(cfg.RedisAddr) == "" {
		return live, func() {}, nil
	}
	cache := readcache.NewRedisCache(readcache.RedisConfig{Addrs: strings.Split(cfg.RedisAddr, ",")})
	if err := cache.Ping(ctx); err != nil {
		logger.Warn("redis unreachable; reads fall back to the ledger", zap.String("redis_addr", cfg.RedisAddr), zap.Error(err))
	}
	cached, err := readcache.NewSource(live, cache, readcache.WithTTL(cfg.CacheTTL), readcache.WithLogger(logger))
	if err != nil {
		_ = cache.Close()
		return nil, nil, fmt.Errorf("read cache init: %w", err)
	}
	return cached, func() { _ = cache.Close() }, nil
}
