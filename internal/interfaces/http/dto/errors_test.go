package dto

import (
	"encoding/json"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGetHTTPStatus(t *testing.T) {
	tests := []struct {
		code     string
		expected int
	}{
		{ErrCodeInternal, http.StatusInternalServerError},
		{ErrCodeValidation, http.StatusBadRequest},
		{ErrCodeInvalidJSON, http.StatusBadRequest},
		{ErrCodePayloadTooLarge, http.StatusRequestEntityTooLarge},
		{ErrCodeUnauthorized, http.StatusUnauthorized},
		{ErrCodeRateLimited, http.StatusTooManyRequests},
		{ErrCodeNotFound, http.StatusNotFound},
		{ErrCodeConflict, http.StatusConflict},
		{ErrCodeUpstream, http.StatusBadGateway},
		{ErrCodeUnavailable, http.StatusServiceUnavailable},
		{"UNKNOWN_CODE", http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.code, func(t *testing.T) {
			assert.Equal(t, tt.expected, GetHTTPStatus(tt.code))
		})
	}
}

func TestNormalizeErrorCode(t *testing.T) {
	assert.Equal(t, ErrCodeNotFound, NormalizeErrorCode("NOT_FOUND"))
	assert.Equal(t, ErrCodeUpstream, NormalizeErrorCode("UPSTREAM_ERROR"))
	assert.Equal(t, ErrCodeConflict, NormalizeErrorCode("DUPLICATE"))
	assert.Equal(t, ErrCodeUnavailable, NormalizeErrorCode("SERVICE_UNAVAILABLE"))
	assert.Equal(t, ErrCodeBadRequest, NormalizeErrorCode(ErrCodeBadRequest))
	assert.Equal(t, "SOMETHING_ELSE", NormalizeErrorCode("SOMETHING_ELSE"))
}

func TestResponseEnvelope(t *testing.T) {
	t.Run("success omits error", func(t *testing.T) {
		body, err := json.Marshal(NewSuccessResponseWithMeta([]string{"1001"}, 1, 50))
		require.NoError(t, err)
		assert.JSONEq(t, `{"success":true,"data":["1001"],"meta":{"total":1,"limit":50}}`, string(body))
	})

	t.Run("error carries request id", func(t *testing.T) {
		body, err := json.Marshal(NewErrorResponseWithRequestID(ErrCodeNotFound, "order not found", "req-1"))
		require.NoError(t, err)
		assert.JSONEq(t, `{"success":false,"error":{"code":"ERR_NOT_FOUND","message":"order not found","request_id":"req-1"}}`, string(body))
	})

	t.Run("validation error lists fields", func(t *testing.T) {
		resp := NewValidationErrorResponse("Request validation failed", "", []ValidationDetail{{Field: "order_ids", Message: "This field is required"}})
		assert.Equal(t, ErrCodeValidation, resp.Error.Code)
		require.Len(t, resp.Error.Details, 1)
		assert.Equal(t, "order_ids", resp.Error.Details[0].Field)
	})
}
