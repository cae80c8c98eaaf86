package handler

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	appcredential "github.com/opsdesk/backend/internal/application/credential"
	"github.com/opsdesk/backend/internal/domain/credential"
	"github.com/opsdesk/backend/internal/interfaces/http/dto"
)

// TokenHandler exposes merchant token status, manual refresh, and the
// on-demand sweep. Token and refresh-token values never leave this handler;
// responses carry lifecycle metadata only.
type TokenHandler struct {
	repo          credential.MerchantTokenRepository
	refresher     appcredential.Refresher
	sweeper       *appcredential.ExpirySweeper
	refreshWindow time.Duration
	logger        *zap.Logger
}

// NewTokenHandler creates a new TokenHandler
func NewTokenHandler(
	repo credential.MerchantTokenRepository,
	refresher appcredential.Refresher,
	sweeper *appcredential.ExpirySweeper,
	refreshWindow time.Duration,
	logger *zap.Logger,
) *TokenHandler {
	return &TokenHandler{
		repo:          repo,
		refresher:     refresher,
		sweeper:       sweeper,
		refreshWindow: refreshWindow,
		logger:        logger,
	}
}

// TokenStatusResponse describes the lifecycle state of a merchant's token
type TokenStatusResponse struct {
	MerchantID      string    `json:"merchant_id"`
	ExpiresAt       time.Time `json:"expires_at"`
	TimeToExpiry    string    `json:"time_to_expiry"`
	Scope           string    `json:"scope,omitempty"`
	LastRefreshedAt time.Time `json:"last_refreshed_at"`
	IsRefreshing    bool      `json:"is_refreshing"`
	RefreshAttempts int       `json:"refresh_attempts"`
	NeedsRefresh    bool      `json:"needs_refresh"`
}

// RegisterRoutes registers token routes on the API group
func (h *TokenHandler) RegisterRoutes(rg *gin.RouterGroup) {
	merchants := rg.Group("/merchants/:merchant_id")
	merchants.GET("/token", h.GetTokenStatus)
	merchants.POST("/token/refresh", h.RefreshToken)

	rg.POST("/token-sweep", h.RunSweep)
}

// GetTokenStatus returns the lifecycle state of the merchant's token
func (h *TokenHandler) GetTokenStatus(c *gin.Context) {
	merchantID := c.Param("merchant_id")
	if merchantID == "" {
		c.JSON(http.StatusBadRequest, dto.NewErrorResponse(dto.ErrCodeBadRequest, "merchant_id is required"))
		return
	}

	record, err := h.repo.FindByMerchant(c.Request.Context(), merchantID)
	if err != nil {
		h.respondError(c, merchantID, err)
		return
	}

	c.JSON(http.StatusOK, dto.NewSuccessResponse(h.statusOf(record)))
}

// RefreshToken forces an immediate refresh for the merchant
func (h *TokenHandler) RefreshToken(c *gin.Context) {
	merchantID := c.Param("merchant_id")
	if merchantID == "" {
		c.JSON(http.StatusBadRequest, dto.NewErrorResponse(dto.ErrCodeBadRequest, "merchant_id is required"))
		return
	}

	if _, err := h.refresher.ForceRefresh(c.Request.Context(), merchantID); err != nil {
		h.respondError(c, merchantID, err)
		return
	}

	record, err := h.repo.FindByMerchant(c.Request.Context(), merchantID)
	if err != nil {
		h.respondError(c, merchantID, err)
		return
	}

	c.JSON(http.StatusOK, dto.NewSuccessResponse(h.statusOf(record)))
}

// RunSweep runs a single expiry sweep and returns its stats
func (h *TokenHandler) RunSweep(c *gin.Context) {
	stats, err := h.sweeper.Sweep(c.Request.Context())
	if err != nil {
		h.logger.Error("On-demand token sweep failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, dto.NewErrorResponse(dto.ErrCodeInternal, "token sweep failed"))
		return
	}

	c.JSON(http.StatusOK, dto.NewSuccessResponse(stats))
}

// statusOf converts a token record to its public representation
func (h *TokenHandler) statusOf(record *credential.MerchantToken) TokenStatusResponse {
	now := time.Now()
	return TokenStatusResponse{
		MerchantID:      record.MerchantID,
		ExpiresAt:       record.ExpiresAt,
		TimeToExpiry:    record.TimeToExpiry(now).String(),
		Scope:           record.Scope,
		LastRefreshedAt: record.LastRefreshedAt,
		IsRefreshing:    record.IsRefreshing,
		RefreshAttempts: record.RefreshAttempts,
		NeedsRefresh:    record.NeedsRefresh(now, h.refreshWindow),
	}
}

// respondError maps credential errors to API responses
func (h *TokenHandler) respondError(c *gin.Context, merchantID string, err error) {
	code := dto.CodeForError(err)
	if code == dto.ErrCodeInternal {
		h.logger.Error("Token request failed",
			zap.String("merchant_id", merchantID),
			zap.Error(err))
	}
	c.JSON(dto.GetHTTPStatus(code), dto.NewErrorResponse(code, err.Error()))
}
