package handlers

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/polkiloo/storefront/internal/domain/model"
	"github.com/polkiloo/storefront/internal/server/http/dto"
)

// IdempotencyKeyHeader lets clients resubmit a checkout without creating a second order.
const IdempotencyKeyHeader = "Idempotency-Key"

const maxIdempotencyKeyLength = 128

// OrderHandler manages order-related endpoints.
type OrderHandler struct {
	facade OrderFacade
}

// NewOrderHandler constructs OrderHandler.
func NewOrderHandler(facade OrderFacade) *OrderHandler {
	return &OrderHandler{facade: facade}
}

// Create handles POST /api/orders. The order is assembled asynchronously and
// its outcome is pushed over the realtime gateway.
func (h *OrderHandler) Create(c *gin.Context) {
	var req dto.CreateOrderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, errorResponse{Code: "INVALID_REQUEST", Message: err.Error()})
		return
	}

	requestID := strings.TrimSpace(c.GetHeader(IdempotencyKeyHeader))
	if len(requestID) > maxIdempotencyKeyLength {
		c.AbortWithStatusJSON(http.StatusBadRequest, errorResponse{Code: "INVALID_REQUEST", Message: "idempotency key is too long"})
		return
	}

	job := req.ToJob(CurrentUserID(c), requestID)
	id, err := h.facade.PlaceOrder(c.Request.Context(), job)
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusAccepted, dto.AcceptedResponse{JobID: id.String(), RequestID: job.RequestID})
}

// List handles GET /api/orders.
func (h *OrderHandler) List(c *gin.Context) {
	orders, err := h.facade.Orders(c.Request.Context(), CurrentUserID(c))
	if err != nil {
		abortWithError(c, err)
		return
	}
	if len(orders) == 0 {
		c.Status(http.StatusNoContent)
		return
	}
	c.JSON(http.StatusOK, orders)
}

// Get handles GET /api/orders/:number. Other users' orders are reported as missing.
func (h *OrderHandler) Get(c *gin.Context) {
	order, err := h.facade.Order(c.Request.Context(), c.Param("number"))
	if err != nil {
		abortWithError(c, err)
		return
	}
	if order.UserID != CurrentUserID(c) {
		c.AbortWithStatusJSON(http.StatusNotFound, errorResponse{Code: "NOT_FOUND", Message: "order not found"})
		return
	}
	c.JSON(http.StatusOK, order)
}

// ChangeStatus handles PATCH /api/orders/:number/status.
func (h *OrderHandler) ChangeStatus(c *gin.Context) {
	var req dto.StatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, errorResponse{Code: "INVALID_REQUEST", Message: err.Error()})
		return
	}
	order, err := h.facade.ChangeOrderStatus(c.Request.Context(), c.Param("number"), model.OrderStatus(strings.ToUpper(req.Status)))
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, order)
}
