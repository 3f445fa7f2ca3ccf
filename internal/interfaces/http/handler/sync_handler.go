package handler

import (
	"context"
	"strings"

	domain "github.com/erp/ordersync/internal/domain/ordersync"
	"github.com/erp/ordersync/internal/infrastructure/logger"
	"github.com/erp/ordersync/internal/interfaces/http/dto"
	"github.com/erp/ordersync/internal/interfaces/http/middleware"
	"github.com/erp/ordersync/internal/interfaces/http/router"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

const (
	// MaxStatusIDs caps the ids accepted by one sync-status query
	MaxStatusIDs = 200

	defaultRecordLimit = 50
)

// OrderSyncer runs sync attempts
type OrderSyncer interface {
	SyncOrder(ctx context.Context, orderID string) domain.SyncResult
	SyncOrderPayload(ctx context.Context, order *domain.Order) domain.SyncResult
	SyncOrders(ctx context.Context, orderIDs []string, maxBatch int) (*domain.BulkSyncResult, error)
}

// SyncStatusReader reads destination status and stored attempts
type SyncStatusReader interface {
	CheckSyncedBulk(ctx context.Context, orderIDs []string) (map[string]domain.SyncStatus, error)
	History(ctx context.Context, orderID string, limit int) ([]domain.SyncRecord, error)
}

// SyncHandler serves the on-demand order sync endpoints
type SyncHandler struct {
	BaseHandler
	syncer   OrderSyncer
	status   SyncStatusReader
	maxBatch int
}

// NewSyncHandler creates a new SyncHandler. maxBatch caps bulk requests;
// zero leaves the cap to the syncer.
func NewSyncHandler(syncer OrderSyncer, status SyncStatusReader, maxBatch int) *SyncHandler {
	return &SyncHandler{
		syncer:   syncer,
		status:   status,
		maxBatch: maxBatch,
	}
}

// Routes returns the order sync route group
func (h *SyncHandler) Routes() *router.DomainGroup {
	return router.NewDomainGroup("orders", "/orders").
		POST("/sync", h.SyncOrders).
		GET("/sync-status", h.GetSyncStatus).
		POST("/:id/sync", h.SyncOrder).
		GET("/:id/sync-records", h.GetSyncRecords)
}

// SyncOrder syncs one cart order on demand
// POST /orders/:id/sync
func (h *SyncHandler) SyncOrder(c *gin.Context) {
	orderID := strings.TrimSpace(c.Param("id"))
	if orderID == "" {
		h.BadRequest(c, domain.ErrOrderIDRequired.Error())
		return
	}

	ctx, _ := logger.WithSyncSource(c.Request.Context(), logger.GetGinLogger(c), "api")
	result := h.syncer.SyncOrder(ctx, orderID)
	h.writeResult(c, result)
}

// writeResult sends one sync outcome. Failures keep the result in data so
// callers see the stage and kind alongside the error envelope.
func (h *BaseHandler) writeResult(c *gin.Context, result domain.SyncResult) {
	status, code := resultStatus(result)
	resp := dto.NewSyncResultResponse(result)
	if result.Success {
		c.JSON(status, dto.NewSuccessResponse(resp))
		return
	}
	body := dto.NewErrorResponseWithRequestID(code, result.Error, middleware.GetRequestID(c))
	body.Data = resp
	c.JSON(status, body)
}

// SyncOrders syncs a batch of cart orders in sequence
// POST /orders/sync
func (h *SyncHandler) SyncOrders(c *gin.Context) {
	var req dto.BulkSyncRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BindError(c, err)
		return
	}

	maxBatch := h.maxBatch
	if req.MaxBatch > 0 && (maxBatch == 0 || req.MaxBatch < maxBatch) {
		maxBatch = req.MaxBatch
	}

	ctx, _ := logger.WithSyncSource(c.Request.Context(), logger.GetGinLogger(c), "api")
	bulk, err := h.syncer.SyncOrders(ctx, req.OrderIDs, maxBatch)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, dto.NewBulkSyncResponse(bulk))
}

// GetSyncStatus reports the destination status of each listed order
// GET /orders/sync-status?ids=1001,1002
func (h *SyncHandler) GetSyncStatus(c *gin.Context) {
	var query dto.SyncStatusQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		h.BindError(c, err)
		return
	}

	ids := splitIDs(query.IDs)
	if len(ids) == 0 {
		h.BadRequest(c, "ids must name at least one order")
		return
	}
	if len(ids) > MaxStatusIDs {
		h.BadRequest(c, "too many ids in one query")
		return
	}

	statuses, err := h.status.CheckSyncedBulk(c.Request.Context(), ids)
	if err != nil {
		logger.GetGinLogger(c).Warn("Sync status lookup failed", zap.Error(err))
		h.HandleError(c, err)
		return
	}

	out := make([]dto.SyncStatusResponse, 0, len(ids))
	for _, id := range ids {
		s, ok := statuses[id]
		if !ok {
			s = domain.SyncStatus{OrderID: id}
		}
		out = append(out, dto.NewSyncStatusResponse(s))
	}
	h.SuccessWithMeta(c, out, len(out), 0)
}

// GetSyncRecords lists the stored attempts of one order, newest first
// GET /orders/:id/sync-records?limit=50
func (h *SyncHandler) GetSyncRecords(c *gin.Context) {
	orderID := strings.TrimSpace(c.Param("id"))
	var query dto.SyncRecordsQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		h.BindError(c, err)
		return
	}
	limit := query.Limit
	if limit == 0 {
		limit = defaultRecordLimit
	}

	records, err := h.status.History(c.Request.Context(), orderID, limit)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	out := make([]dto.SyncRecordResponse, 0, len(records))
	for _, r := range records {
		out = append(out, dto.NewSyncRecordResponse(r))
	}
	h.SuccessWithMeta(c, out, len(out), limit)
}

// splitIDs splits a comma list, dropping blanks and repeats
func splitIDs(raw string) []string {
	parts := strings.Split(raw, ",")
	seen := make(map[string]struct{}, len(parts))
	ids := make([]string, 0, len(parts))
	for _, p := range parts {
		id := strings.TrimSpace(p)
		if id == "" {
			continue
		}
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}
		ids = append(ids, id)
	}
	return ids
}
