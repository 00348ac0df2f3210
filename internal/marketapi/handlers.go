package marketapi

import (
	"context"
	"errors"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/MarkoPoloResearchLab/celestium/internal/activity"
	"github.com/MarkoPoloResearchLab/celestium/pkg/format"
	"github.com/MarkoPoloResearchLab/celestium/pkg/marketplace"
	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

const (
	errorCodeInvalidPayload = "invalid_payload"
	profileKeyHead          = 6
	profileKeyTail          = 6
)

type httpHandler struct {
	logger      *zap.Logger
	marketplace Marketplace
	modes       ModeSwitch
	wallet      WalletSession
	activity    activity.Reader
	cfg         Config
}

func (handler *httpHandler) handleMode(ctx *gin.Context) {
	ctx.JSON(http.StatusOK, handler.modeView(ctx.Request.Context()))
}

func (handler *httpHandler) handleToggleMode(ctx *gin.Context) {
	handler.modes.Toggle(ctx.Request.Context())
	ctx.JSON(http.StatusOK, handler.modeView(ctx.Request.Context()))
}

func (handler *httpHandler) modeView(ctx context.Context) modeResponse {
	mode := handler.modes.Mode(ctx)
	return modeResponse{
		Mode:            mode,
		DemoMode:        mode == marketplace.ModeDemo,
		StorageFailures: handler.modes.StorageFailures(),
	}
}

func (handler *httpHandler) handleWallet(ctx *gin.Context) {
	ctx.JSON(http.StatusOK, handler.wallet.Session())
}

func (handler *httpHandler) handleConnect(ctx *gin.Context) {
	requestCtx, cancel := context.WithTimeout(ctx.Request.Context(), handler.cfg.RequestTimeout)
	defer cancel()
	session, err := handler.wallet.Connect(requestCtx)
	if err != nil {
		kind := marketplace.ErrorKind(err)
		handler.logger.Warn("wallet connect failed", zap.String("error_kind", kind), zap.Error(err))
		ctx.JSON(statusForKind(kind), gin.H{
			"error":   errorBody(kind, err.Error()),
			"session": handler.wallet.Session(),
		})
		return
	}
	ctx.JSON(http.StatusOK, session)
}

func (handler *httpHandler) handleDisconnect(ctx *gin.Context) {
	ctx.JSON(http.StatusOK, handler.wallet.Disconnect())
}

func (handler *httpHandler) handleGallery(ctx *gin.Context) {
	limit, ok := queryInt(ctx, "limit", defaultGalleryLimit)
	if !ok {
		return
	}
	offset, ok := queryInt(ctx, "offset", 0)
	if !ok {
		return
	}
	requestCtx, cancel := context.WithTimeout(ctx.Request.Context(), handler.cfg.ReadTimeout)
	defer cancel()
	records := handler.marketplace.GetAllNFTs(requestCtx, limit, offset)
	ctx.JSON(http.StatusOK, gin.H{
		"nfts":   newNFTViews(records),
		"limit":  limit,
		"offset": offset,
	})
}

func (handler *httpHandler) handleNFT(ctx *gin.Context) {
	requestCtx, cancel := context.WithTimeout(ctx.Request.Context(), handler.cfg.ReadTimeout)
	defer cancel()
	record := handler.marketplace.GetNFTDetails(requestCtx, ctx.Param("id"))
	if record == nil {
		ctx.JSON(http.StatusNotFound, errorResponse(marketplace.KindNotFound, "NFT not found"))
		return
	}
	view := newNFTView(*record)
	publicKey, connected := handler.wallet.PublicKey()
	ctx.JSON(http.StatusOK, gin.H{
		"nft":       view,
		"isOwner":   connected && publicKey == record.Owner,
		"isCreator": connected && publicKey == record.Creator,
	})
}

func (handler *httpHandler) handleMint(ctx *gin.Context) {
	var form format.NFTForm
	if err := ctx.ShouldBindJSON(&form); err != nil {
		ctx.JSON(http.StatusBadRequest, errorResponse(errorCodeInvalidPayload, "expected JSON body"))
		return
	}
	validation := format.ValidateNFTForm(form)
	if !validation.Valid {
		ctx.JSON(http.StatusBadRequest, gin.H{
			"error":      errorBody(marketplace.KindInvalidInput, "form validation failed"),
			"validation": validation,
		})
		return
	}
	royalty, err := strconv.Atoi(strings.TrimSpace(form.RoyaltyPercentage))
	if err != nil {
		validation.Valid = false
		validation.Errors[format.FieldRoyaltyPercentage] = "Royalty percentage must be a whole number"
		ctx.JSON(http.StatusBadRequest, gin.H{
			"error":      errorBody(marketplace.KindInvalidInput, "form validation failed"),
			"validation": validation,
		})
		return
	}
	price, _ := decimal.NewFromString(strings.TrimSpace(form.Price))
	publicKey, ok := handler.requireWallet(ctx)
	if !ok {
		return
	}

	requestCtx, cancel := context.WithTimeout(ctx.Request.Context(), handler.cfg.RequestTimeout)
	defer cancel()
	minted := handler.marketplace.MintNFT(requestCtx, marketplace.MintRequest{
		Name:              form.Name,
		Description:       form.Description,
		ImageURL:          imageURLOrPlaceholder(form.ImageURL, form.Name),
		RoyaltyPercentage: royalty,
	}, publicKey)
	if !minted.Success {
		respondResult(ctx, minted)
		return
	}
	priced := handler.marketplace.SetNFTPrice(requestCtx, minted.NFTID, price, publicKey)
	if !priced.Success {
		handler.logger.Warn("initial price not applied", zap.String("nft_id", minted.NFTID), zap.String("error", priced.Error))
	}
	ctx.JSON(http.StatusCreated, gin.H{
		"result":      minted,
		"priceResult": priced,
	})
}

func (handler *httpHandler) handlePurchase(ctx *gin.Context) {
	var request purchaseRequest
	if err := ctx.ShouldBindJSON(&request); err != nil && !errors.Is(err, io.EOF) {
		ctx.JSON(http.StatusBadRequest, errorResponse(errorCodeInvalidPayload, "expected JSON body"))
		return
	}
	publicKey, ok := handler.requireWallet(ctx)
	if !ok {
		return
	}
	requestCtx, cancel := context.WithTimeout(ctx.Request.Context(), handler.cfg.RequestTimeout)
	defer cancel()

	amount := request.Amount
	if amount.IsZero() {
		record := handler.marketplace.GetNFTDetails(requestCtx, ctx.Param("id"))
		if record == nil {
			ctx.JSON(http.StatusNotFound, errorResponse(marketplace.KindNotFound, "NFT not found"))
			return
		}
		amount = record.Price
	}
	to := strings.TrimSpace(request.To)
	if to == "" {
		to = publicKey
	}
	respondResult(ctx, handler.marketplace.TransferNFT(requestCtx, ctx.Param("id"), to, amount, publicKey))
}

func (handler *httpHandler) handleSetPrice(ctx *gin.Context) {
	var request priceRequest
	if err := ctx.ShouldBindJSON(&request); err != nil {
		ctx.JSON(http.StatusBadRequest, errorResponse(errorCodeInvalidPayload, "expected JSON body with price"))
		return
	}
	publicKey, ok := handler.requireWallet(ctx)
	if !ok {
		return
	}
	requestCtx, cancel := context.WithTimeout(ctx.Request.Context(), handler.cfg.RequestTimeout)
	defer cancel()
	respondResult(ctx, handler.marketplace.SetNFTPrice(requestCtx, ctx.Param("id"), request.Price, publicKey))
}

func (handler *httpHandler) handleProfile(ctx *gin.Context) {
	address := ctx.Param("address")
	requestCtx, cancel := context.WithTimeout(ctx.Request.Context(), handler.cfg.ReadTimeout)
	defer cancel()

	owned := handler.marketplace.GetNFTsByOwner(requestCtx, address)
	created := handler.marketplace.GetNFTsByCreator(requestCtx, address)
	collected := make([]marketplace.NFT, 0, len(owned))
	for _, record := range owned {
		if record.Creator != address {
			collected = append(collected, record)
		}
	}
	ctx.JSON(http.StatusOK, profileResponse{
		Address:        address,
		DisplayAddress: format.TruncateKey(address, profileKeyHead, profileKeyTail),
		Owned:          newNFTViews(owned),
		Created:        newNFTViews(created),
		Collected:      newNFTViews(collected),
		Balances:       handler.marketplace.GetAccountBalances(requestCtx, address),
	})
}

func (handler *httpHandler) handleFund(ctx *gin.Context) {
	requestCtx, cancel := context.WithTimeout(ctx.Request.Context(), handler.cfg.RequestTimeout)
	defer cancel()
	respondResult(ctx, handler.marketplace.FundTestAccount(requestCtx, ctx.Param("address")))
}

func (handler *httpHandler) handleActivity(ctx *gin.Context) {
	limit, ok := queryInt(ctx, "limit", defaultActivityLimit)
	if !ok {
		return
	}
	if limit <= 0 || limit > maxActivityLimit {
		ctx.JSON(http.StatusBadRequest, errorResponse(marketplace.KindInvalidInput, "limit must be between 1 and 500"))
		return
	}
	if handler.activity == nil {
		ctx.JSON(http.StatusOK, gin.H{"entries": []activity.Record{}})
		return
	}
	requestCtx, cancel := context.WithTimeout(ctx.Request.Context(), handler.cfg.ReadTimeout)
	defer cancel()
	entries, err := handler.activity.ListActivity(requestCtx, strings.TrimSpace(ctx.Query("address")), limit)
	if err != nil {
		handler.logger.Error("activity list failed", zap.Error(err))
		ctx.JSON(http.StatusBadGateway, errorResponse(marketplace.KindStorageUnavailable, "activity unavailable"))
		return
	}
	ctx.JSON(http.StatusOK, gin.H{"entries": entries})
}

func (handler *httpHandler) requireWallet(ctx *gin.Context) (string, bool) {
	publicKey, connected := handler.wallet.PublicKey()
	if !connected {
		ctx.JSON(http.StatusUnauthorized, errorResponse(marketplace.KindNotConnected, "connect a wallet first"))
		return "", false
	}
	return publicKey, true
}

func queryInt(ctx *gin.Context, name string, fallback int) (int, bool) {
	raw := strings.TrimSpace(ctx.Query(name))
	if raw == "" {
		return fallback, true
	}
	value, err := strconv.Atoi(raw)
	if err != nil {
		ctx.JSON(http.StatusBadRequest, errorResponse(marketplace.KindInvalidInput, name+" must be an integer"))
		return 0, false
	}
	return value, true
}

func imageURLOrPlaceholder(imageURL string, name string) string {
	if trimmed := strings.TrimSpace(imageURL); trimmed != "" {
		return trimmed
	}
	return format.SpaceImageURL(name)
}

func respondResult(ctx *gin.Context, result marketplace.OperationResult) {
	if result.Success {
		ctx.JSON(http.StatusOK, result)
		return
	}
	ctx.JSON(statusForKind(result.ErrorKind), result)
}

func statusForKind(kind string) int {
	switch kind {
	case marketplace.KindInvalidInput:
		return http.StatusBadRequest
	case marketplace.KindNotConnected:
		return http.StatusUnauthorized
	case marketplace.KindExtensionNotFound, marketplace.KindNotFound:
		return http.StatusNotFound
	case marketplace.KindTimeout:
		return http.StatusGatewayTimeout
	default:
		return http.StatusBadGateway
	}
}

func errorBody(code string, message string) gin.H {
	return gin.H{
		"code":    code,
		"message": message,
	}
}

func errorResponse(code string, message string) gin.H {
	return gin.H{"error": errorBody(code, message)}
}

type modeResponse struct {
	Mode            marketplace.Mode `json:"mode"`
	DemoMode        bool             `json:"isDemoMode"`
	StorageFailures int64            `json:"storageFailures"`
}

type purchaseRequest struct {
	To     string          `json:"to"`
	Amount decimal.Decimal `json:"amount"`
}

type priceRequest struct {
	Price decimal.Decimal `json:"price"`
}

type profileResponse struct {
	Address        string                `json:"address"`
	DisplayAddress string                `json:"displayAddress"`
	Owned          []nftView             `json:"owned"`
	Created        []nftView             `json:"created"`
	Collected      []nftView             `json:"collected"`
	Balances       []marketplace.Balance `json:"balances"`
}

type nftView struct {
	marketplace.NFT
	PriceDisplay   string          `json:"priceDisplay"`
	CreatedDisplay string          `json:"createdDisplay"`
	OwnerDisplay   string          `json:"ownerDisplay"`
	CreatorDisplay string          `json:"creatorDisplay"`
	RoyaltyAmount  decimal.Decimal `json:"royaltyAmount"`
}

func newNFTView(record marketplace.NFT) nftView {
	return nftView{
		NFT:            record,
		PriceDisplay:   format.Price(record.Price, format.DefaultCurrency),
		CreatedDisplay: format.Date(record.CreatedAt),
		OwnerDisplay:   format.PublicKey(record.Owner),
		CreatorDisplay: format.PublicKey(record.Creator),
		RoyaltyAmount:  format.Royalty(record.Price, record.RoyaltyPercentage),
	}
}

func newNFTViews(records []marketplace.NFT) []nftView {
	views := make([]nftView, 0, len(records))
	for _, record := range records {
		views = append(views, newNFTView(record))
	}
	return views
}
