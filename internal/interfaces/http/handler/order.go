package handler

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/opsdesk/backend/internal/infrastructure/salla"
	"github.com/opsdesk/backend/internal/interfaces/http/dto"
)

// OrderHandler proxies back-office order operations to the merchant's
// storefront platform. Every call goes through the token provider, so a
// missing or unrefreshable credential surfaces as a token error here
// instead of an anonymous upstream failure.
type OrderHandler struct {
	api    *salla.MerchantAPI
	logger *zap.Logger
}

// NewOrderHandler creates a new OrderHandler
func NewOrderHandler(api *salla.MerchantAPI, logger *zap.Logger) *OrderHandler {
	return &OrderHandler{api: api, logger: logger}
}

// RegisterRoutes registers order routes on the API group
func (h *OrderHandler) RegisterRoutes(rg *gin.RouterGroup) {
	orders := rg.Group("/merchants/:merchant_id/orders")
	orders.GET("/:order_id", h.GetOrder)
	orders.POST("/:order_id/status", h.UpdateStatus)
	orders.POST("/:order_id/invoice", h.CreateInvoice)
}

// GetOrder fetches a single order from the platform
func (h *OrderHandler) GetOrder(c *gin.Context) {
	merchantID, orderID, ok := h.params(c)
	if !ok {
		return
	}

	order, err := h.api.GetOrder(c.Request.Context(), merchantID, orderID)
	if err != nil {
		h.respondError(c, merchantID, err)
		return
	}

	c.JSON(http.StatusOK, dto.NewSuccessResponse(order))
}

// UpdateStatus pushes a status transition to the platform
func (h *OrderHandler) UpdateStatus(c *gin.Context) {
	merchantID, orderID, ok := h.params(c)
	if !ok {
		return
	}

	var req salla.StatusUpdateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, dto.NewErrorResponse(dto.ErrCodeBadRequest, "invalid request body: "+err.Error()))
		return
	}
	if req.Slug == "" {
		c.JSON(http.StatusBadRequest, dto.NewErrorResponse(dto.ErrCodeBadRequest, "slug is required"))
		return
	}

	status, err := h.api.UpdateOrderStatus(c.Request.Context(), merchantID, orderID, req.Slug, req.Note)
	if err != nil {
		h.respondError(c, merchantID, err)
		return
	}

	c.JSON(http.StatusOK, dto.NewSuccessResponse(status))
}

// CreateInvoice issues an invoice for the order on the platform
func (h *OrderHandler) CreateInvoice(c *gin.Context) {
	merchantID, orderID, ok := h.params(c)
	if !ok {
		return
	}

	var req salla.InvoiceCreateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, dto.NewErrorResponse(dto.ErrCodeBadRequest, "invalid request body: "+err.Error()))
		return
	}

	invoice, err := h.api.CreateInvoice(c.Request.Context(), merchantID, orderID, req)
	if err != nil {
		h.respondError(c, merchantID, err)
		return
	}

	c.JSON(http.StatusCreated, dto.NewSuccessResponse(invoice))
}

func (h *OrderHandler) params(c *gin.Context) (string, int64, bool) {
	merchantID := c.Param("merchant_id")
	if merchantID == "" {
		c.JSON(http.StatusBadRequest, dto.NewErrorResponse(dto.ErrCodeBadRequest, "merchant_id is required"))
		return "", 0, false
	}

	orderID, err := strconv.ParseInt(c.Param("order_id"), 10, 64)
	if err != nil || orderID <= 0 {
		c.JSON(http.StatusBadRequest, dto.NewErrorResponse(dto.ErrCodeBadRequest, "order_id must be a positive integer"))
		return "", 0, false
	}

	return merchantID, orderID, true
}

// respondError maps credential errors to API responses; anything that is
// not a token lifecycle error is reported as an upstream platform failure.
func (h *OrderHandler) respondError(c *gin.Context, merchantID string, err error) {
	code := dto.CodeForError(err)
	if code == dto.ErrCodeInternal {
		h.logger.Error("Order request failed",
			zap.String("merchant_id", merchantID),
			zap.Error(err))
		c.JSON(http.StatusBadGateway, dto.NewErrorResponse(dto.ErrCodeInternal, "platform request failed"))
		return
	}
	c.JSON(dto.GetHTTPStatus(code), dto.NewErrorResponse(code, err.Error()))
}
