package handler

import (
	"errors"
	"net/http"

	domain "github.com/erp/ordersync/internal/domain/ordersync"
	"github.com/erp/ordersync/internal/domain/shared"
	"github.com/erp/ordersync/internal/infrastructure/scheduler"
	"github.com/erp/ordersync/internal/interfaces/http/dto"
	"github.com/erp/ordersync/internal/interfaces/http/middleware"
	"github.com/gin-gonic/gin"
)

// BaseHandler provides common handler utilities
type BaseHandler struct{}

// Success sends a success response
func (h *BaseHandler) Success(c *gin.Context, data any) {
	c.JSON(http.StatusOK, dto.NewSuccessResponse(data))
}

// SuccessWithMeta sends a success response for a collection
func (h *BaseHandler) SuccessWithMeta(c *gin.Context, data any, total, limit int) {
	c.JSON(http.StatusOK, dto.NewSuccessResponseWithMeta(data, total, limit))
}

// Error sends an error response with the appropriate status code
func (h *BaseHandler) Error(c *gin.Context, statusCode int, code, message string) {
	c.JSON(statusCode, dto.NewErrorResponseWithRequestID(code, message, middleware.GetRequestID(c)))
}

// BadRequest sends a 400 bad request response
func (h *BaseHandler) BadRequest(c *gin.Context, message string) {
	h.Error(c, http.StatusBadRequest, dto.ErrCodeInvalidInput, message)
}

// BindError answers a failed ShouldBind* call
func (h *BaseHandler) BindError(c *gin.Context, err error) {
	middleware.HandleBindError(c, err)
}

// HandleError converts service errors to HTTP responses
func (h *BaseHandler) HandleError(c *gin.Context, err error) {
	if err == nil {
		return
	}

	switch {
	case errors.Is(err, domain.ErrEmptyBatch),
		errors.Is(err, domain.ErrBatchTooLarge),
		errors.Is(err, domain.ErrInvalidDateRange),
		errors.Is(err, domain.ErrOrderIDRequired),
		errors.Is(err, scheduler.ErrInvalidTimeRange):
		h.Error(c, http.StatusBadRequest, dto.ErrCodeInvalidInput, err.Error())
		return
	case errors.Is(err, scheduler.ErrPullInProgress):
		h.Error(c, http.StatusConflict, dto.ErrCodeConflict, err.Error())
		return
	}

	var domainErr *shared.DomainError
	if errors.As(err, &domainErr) {
		code := dto.NormalizeErrorCode(domainErr.Code)
		h.Error(c, dto.GetHTTPStatus(code), code, domainErr.Message)
		return
	}

	switch domain.KindOf(err) {
	case domain.ErrorKindNotFound:
		h.Error(c, http.StatusNotFound, dto.ErrCodeNotFound, err.Error())
	case domain.ErrorKindGateway, domain.ErrorKindResponseShape:
		h.Error(c, http.StatusBadGateway, dto.ErrCodeUpstream, err.Error())
	case domain.ErrorKindValidation:
		h.Error(c, http.StatusBadRequest, dto.ErrCodeValidation, err.Error())
	default:
		h.Error(c, http.StatusInternalServerError, dto.ErrCodeInternal, "An unexpected error occurred")
	}
}

// resultStatus maps a single sync outcome to its HTTP status and error code
func resultStatus(r domain.SyncResult) (int, string) {
	if r.Success {
		return http.StatusOK, ""
	}
	switch r.ErrorKind {
	case domain.ErrorKindNotFound:
		return http.StatusNotFound, dto.ErrCodeNotFound
	case domain.ErrorKindValidation, domain.ErrorKindCustomerResolution:
		return http.StatusUnprocessableEntity, dto.ErrCodeValidation
	case domain.ErrorKindDuplicateOrder:
		return http.StatusConflict, dto.ErrCodeConflict
	case domain.ErrorKindGateway, domain.ErrorKindResponseShape:
		return http.StatusBadGateway, dto.ErrCodeUpstream
	default:
		return http.StatusInternalServerError, dto.ErrCodeInternal
	}
}

// retryable reports whether the cart should redeliver a webhook for r
func retryable(r domain.SyncResult) bool {
	return !r.Success && r.Retryable
}
