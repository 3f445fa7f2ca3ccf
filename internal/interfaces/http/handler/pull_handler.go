package handler

import (
	"context"
	"net/http"
	"strconv"
	"time"

	domain "github.com/erp/ordersync/internal/domain/ordersync"
	"github.com/erp/ordersync/internal/infrastructure/logger"
	"github.com/erp/ordersync/internal/infrastructure/scheduler"
	"github.com/erp/ordersync/internal/interfaces/http/dto"
	"github.com/erp/ordersync/internal/interfaces/http/middleware"
	"github.com/erp/ordersync/internal/interfaces/http/router"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

const defaultPullHistoryLimit = 20

// OrderPuller runs date-range pulls and keeps their history
type OrderPuller interface {
	TriggerPull(ctx context.Context, start, end time.Time, status *domain.OrderStatus) (*scheduler.PullJob, error)
	History(limit int) []*scheduler.PullJob
}

// PullHandler serves manual date-range pulls
type PullHandler struct {
	BaseHandler
	puller OrderPuller
}

// NewPullHandler creates a new PullHandler
func NewPullHandler(puller OrderPuller) *PullHandler {
	return &PullHandler{puller: puller}
}

// Routes returns the pull route group
func (h *PullHandler) Routes() *router.DomainGroup {
	return router.NewDomainGroup("pulls", "/orders").
		POST("/pull", h.TriggerPull).
		GET("/pulls", h.ListPulls)
}

// TriggerPull syncs every cart order placed in [start, end] and waits for
// the run to finish
// POST /orders/pull
func (h *PullHandler) TriggerPull(c *gin.Context) {
	var req dto.PullRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BindError(c, err)
		return
	}

	var status *domain.OrderStatus
	if req.Status != nil {
		s := domain.OrderStatus(*req.Status)
		status = &s
	}

	ctx, log := logger.WithSyncSource(c.Request.Context(), logger.GetGinLogger(c), "manual_pull")
	job, err := h.puller.TriggerPull(ctx, req.Start, req.End, status)
	if err != nil {
		if job == nil {
			h.HandleError(c, err)
			return
		}
		log.Warn("Manual pull failed", zap.String("job_id", job.ID.String()), zap.Error(err))
		body := dto.NewErrorResponseWithRequestID(dto.ErrCodeUpstream, job.Error, middleware.GetRequestID(c))
		body.Data = NewPullJobResponse(job)
		c.JSON(http.StatusBadGateway, body)
		return
	}
	h.Success(c, NewPullJobResponse(job))
}

// ListPulls returns recent pulls, newest first
// GET /orders/pulls?limit=20
func (h *PullHandler) ListPulls(c *gin.Context) {
	limit := defaultPullHistoryLimit
	if raw := c.Query("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 {
			h.BadRequest(c, "limit must be a positive integer")
			return
		}
		limit = n
	}

	jobs := h.puller.History(limit)
	out := make([]dto.PullJobResponse, 0, len(jobs))
	for _, j := range jobs {
		out = append(out, NewPullJobResponse(j))
	}
	h.SuccessWithMeta(c, out, len(out), limit)
}

// NewPullJobResponse converts a scheduler job
func NewPullJobResponse(j *scheduler.PullJob) dto.PullJobResponse {
	return dto.PullJobResponse{
		ID:            j.ID.String(),
		Status:        string(j.Status),
		StartTime:     j.StartTime,
		EndTime:       j.EndTime,
		StartedAt:     j.StartedAt,
		CompletedAt:   j.CompletedAt,
		Error:         j.Error,
		Total:         j.Total,
		Succeeded:     j.Succeeded,
		AlreadySynced: j.AlreadySynced,
		Failed:        j.Failed,
		Skipped:       j.Skipped,
	}
}
