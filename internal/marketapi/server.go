package marketapi

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/MarkoPoloResearchLab/celestium/internal/activity"
	"github.com/MarkoPoloResearchLab/celestium/internal/wallet"
	"github.com/MarkoPoloResearchLab/celestium/pkg/marketplace"
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

const (
	headerRequestID  = "X-Request-ID"
	contextRequestID = "request_id"
)

var ginModeOnce sync.Once

// Marketplace is the façade surface the API serves.
type Marketplace interface {
	Mode(ctx context.Context) marketplace.Mode
	MintNFT(ctx context.Context, request marketplace.MintRequest, walletPublicKey string) marketplace.OperationResult
	TransferNFT(ctx context.Context, rawID string, toAddress string, amount decimal.Decimal, fromPublicKey string) marketplace.OperationResult
	SetNFTPrice(ctx context.Context, rawID string, price decimal.Decimal, ownerPublicKey string) marketplace.OperationResult
	GetNFTDetails(ctx context.Context, rawID string) *marketplace.NFT
	GetNFTsByOwner(ctx context.Context, rawAddress string) []marketplace.NFT
	GetNFTsByCreator(ctx context.Context, rawAddress string) []marketplace.NFT
	GetAllNFTs(ctx context.Context, limit int, offset int) []marketplace.NFT
	GetAccountBalances(ctx context.Context, rawAddress string) []marketplace.Balance
	FundTestAccount(ctx context.Context, rawAddress string) marketplace.OperationResult
}

// ModeSwitch flips and reports the data mode.
type ModeSwitch interface {
	Mode(ctx context.Context) marketplace.Mode
	Toggle(ctx context.Context) bool
	StorageFailures() int64
}

// WalletSession is the wallet connection surface the API serves.
type WalletSession interface {
	Session() wallet.Session
	PublicKey() (string, bool)
	Connect(ctx context.Context) (wallet.Session, error)
	Disconnect() wallet.Session
}

// Dependencies are the services behind the API. Activity is optional.
type Dependencies struct {
	Marketplace Marketplace
	Modes       ModeSwitch
	Wallet      WalletSession
	Activity    activity.Reader
	Logger      *zap.Logger
}

// Server hosts the marketplace HTTP API.
type Server struct {
	cfg     Config
	handler *httpHandler
	router  *gin.Engine
	logger  *zap.Logger
}

// NewServer validates cfg and wires the router.
func NewServer(cfg Config, deps Dependencies) (*Server, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if deps.Marketplace == nil || deps.Modes == nil || deps.Wallet == nil {
		return nil, fmt.Errorf("%w: marketplace, mode switch and wallet are required", marketplace.ErrInvalidServiceConfig)
	}
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	handler := &httpHandler{
		logger:      logger,
		marketplace: deps.Marketplace,
		modes:       deps.Modes,
		wallet:      deps.Wallet,
		activity:    deps.Activity,
		cfg:         cfg,
	}
	return &Server{
		cfg:     cfg,
		handler: handler,
		router:  setupRouter(cfg, handler, logger),
		logger:  logger,
	}, nil
}

// Handler exposes the router.
func (server *Server) Handler() http.Handler {
	return server.router
}

// Run serves until ctx is cancelled, then shuts down gracefully.
func (server *Server) Run(ctx context.Context) error {
	httpServer := &http.Server{
		Addr:              server.cfg.ListenAddr,
		Handler:           server.router,
		ReadHeaderTimeout: server.cfg.ReadTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		server.logger.Info("marketplace api listening", zap.String("addr", server.cfg.ListenAddr))
		errCh <- httpServer.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if shutdownErr := httpServer.Shutdown(shutdownCtx); shutdownErr != nil {
			server.logger.Warn("server shutdown error", zap.Error(shutdownErr))
		}
		return nil
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	}
}

func setupRouter(cfg Config, handler *httpHandler, logger *zap.Logger) *gin.Engine {
	ginModeOnce.Do(func() { gin.SetMode(gin.ReleaseMode) })
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(requestIDMiddleware())
	router.Use(requestLogger(logger))
	router.Use(cors.New(corsConfig(cfg.AllowedOrigins)))

	router.GET("/healthz", func(ctx *gin.Context) {
		ctx.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	api := router.Group("/api")

	api.GET("/mode", handler.handleMode)
	api.POST("/mode/toggle", handler.handleToggleMode)

	api.GET("/wallet", handler.handleWallet)
	api.POST("/wallet/connect", handler.handleConnect)
	api.POST("/wallet/disconnect", handler.handleDisconnect)

	api.GET("/gallery", handler.handleGallery)
	api.GET("/nfts/:id", handler.handleNFT)
	api.POST("/nfts", handler.handleMint)
	api.POST("/nfts/:id/purchase", handler.handlePurchase)
	api.POST("/nfts/:id/price", handler.handleSetPrice)

	api.GET("/profile/:address", handler.handleProfile)
	api.POST("/accounts/:address/fund", handler.handleFund)
	api.GET("/activity", handler.handleActivity)

	return router
}

func corsConfig(origins []string) cors.Config {
	config := cors.Config{
		AllowMethods:     []string{"GET", "POST", "OPTIONS"},
		AllowHeaders:     []string{"Content-Type", "Origin", "Accept", headerRequestID},
		ExposeHeaders:    []string{headerRequestID},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}
	for _, origin := range origins {
		if origin == "*" {
			config.AllowAllOrigins = true
			config.AllowCredentials = false
			return config
		}
	}
	config.AllowOrigins = origins
	return config
}

func requestIDMiddleware() gin.HandlerFunc {
	return func(ctx *gin.Context) {
		requestID := ctx.GetHeader(headerRequestID)
		if requestID == "" {
			requestID = uuid.NewString()
		}
		ctx.Set(contextRequestID, requestID)
		ctx.Header(headerRequestID, requestID)
		ctx.Next()
	}
}

func requestLogger(logger *zap.Logger) gin.HandlerFunc {
	return func(ctx *gin.Context) {
		started := time.Now()
		ctx.Next()
		fields := []zap.Field{
			zap.String("method", ctx.Request.Method),
			zap.String("path", ctx.FullPath()),
			zap.Int("status", ctx.Writer.Status()),
			zap.Duration("latency", time.Since(started)),
			zap.String(contextRequestID, ctx.GetString(contextRequestID)),
		}
		if ctx.Writer.Status() >= http.StatusInternalServerError {
			logger.Warn("http request", fields...)
			return
		}
		logger.Info("http request", fields...)
	}
}
