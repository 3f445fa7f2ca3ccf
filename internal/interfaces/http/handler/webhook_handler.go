package handler

import (
	"io"
	"net/http"
	"time"

	domain "github.com/erp/ordersync/internal/domain/ordersync"
	"github.com/erp/ordersync/internal/domain/shared"
	"github.com/erp/ordersync/internal/infrastructure/cart"
	"github.com/erp/ordersync/internal/infrastructure/logger"
	"github.com/erp/ordersync/internal/interfaces/http/dto"
	"github.com/erp/ordersync/internal/interfaces/http/middleware"
	"github.com/erp/ordersync/internal/interfaces/http/router"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// WebhookHandler receives order notifications pushed by the cart
type WebhookHandler struct {
	BaseHandler
	syncer    OrderSyncer
	replay    shared.IdempotencyStore
	replayTTL time.Duration
	secret    string
	limiter   *middleware.RateLimiter
}

// WebhookOption configures a WebhookHandler
type WebhookOption func(*WebhookHandler)

// WithReplayStore suppresses repeat deliveries of orders already synced
// through this endpoint within ttl
func WithReplayStore(store shared.IdempotencyStore, ttl time.Duration) WebhookOption {
	return func(h *WebhookHandler) {
		h.replay = store
		h.replayTTL = ttl
	}
}

// WithSharedSecret requires the X-Webhook-Token header to equal secret
func WithSharedSecret(secret string) WebhookOption {
	return func(h *WebhookHandler) {
		h.secret = secret
	}
}

// WithRateLimiter limits deliveries per client IP
func WithRateLimiter(limiter *middleware.RateLimiter) WebhookOption {
	return func(h *WebhookHandler) {
		h.limiter = limiter
	}
}

// NewWebhookHandler creates a new WebhookHandler
func NewWebhookHandler(syncer OrderSyncer, opts ...WebhookOption) *WebhookHandler {
	h := &WebhookHandler{syncer: syncer}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// Routes returns the webhook route group
func (h *WebhookHandler) Routes() *router.DomainGroup {
	group := router.NewDomainGroup("webhooks", "/webhooks")
	if h.limiter != nil {
		group.Use(middleware.RateLimit(h.limiter))
	}
	group.Use(middleware.WebhookToken(h.secret))
	return group.POST("/cart/orders", h.ReceiveOrders)
}

// ReceiveOrders syncs every order in a webhook delivery. It answers 502
// when any order failed for a reason a redelivery may fix, so the cart
// retries; other failures are final and answered 200.
// POST /webhooks/cart/orders
func (h *WebhookHandler) ReceiveOrders(c *gin.Context) {
	body, err := io.ReadAll(c.Request.Body)
	if err != nil {
		h.BindError(c, err)
		return
	}
	orders, err := cart.DecodeWebhookOrders(body)
	if err != nil {
		h.Error(c, http.StatusBadRequest, dto.ErrCodeInvalidJSON, err.Error())
		return
	}

	ctx, log := logger.WithSyncSource(c.Request.Context(), logger.GetGinLogger(c), "webhook")

	results := make([]dto.SyncResultResponse, 0, len(orders))
	redeliver := false
	for i := range orders {
		order := &orders[i]

		if h.replayed(c, order.OrderID, log) {
			status := domain.SyncStatus{OrderID: order.OrderID, Synced: true}
			resp := dto.NewSyncResultResponse(domain.NewAlreadySyncedResult(order.OrderID, status))
			resp.Replayed = true
			results = append(results, resp)
			continue
		}

		result := h.syncer.SyncOrderPayload(ctx, order)
		if result.Success && h.replay != nil {
			if _, err := h.replay.MarkProcessed(ctx, order.OrderID, h.replayTTL); err != nil {
				log.Warn("Failed to record webhook delivery", zap.String("order_id", order.OrderID), zap.Error(err))
			}
		}
		if retryable(result) {
			redeliver = true
		}
		results = append(results, dto.NewSyncResultResponse(result))
	}

	if redeliver {
		body := dto.NewErrorResponseWithRequestID(dto.ErrCodeUpstream,
			"One or more orders failed to sync; redeliver later", middleware.GetRequestID(c))
		body.Data = results
		c.JSON(http.StatusBadGateway, body)
		return
	}
	h.SuccessWithMeta(c, results, len(results), 0)
}

// replayed reports whether orderID was already synced by an earlier
// delivery. Store failures count as not replayed.
func (h *WebhookHandler) replayed(c *gin.Context, orderID string, log *zap.Logger) bool {
	if h.replay == nil {
		return false
	}
	seen, err := h.replay.IsProcessed(c.Request.Context(), orderID)
	if err != nil {
		log.Warn("Replay store lookup failed", zap.String("order_id", orderID), zap.Error(err))
		return false
	}
	return seen
}
