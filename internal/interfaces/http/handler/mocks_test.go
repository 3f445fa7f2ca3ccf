package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	domain "github.com/erp/ordersync/internal/domain/ordersync"
	"github.com/erp/ordersync/internal/infrastructure/scheduler"
	"github.com/erp/ordersync/internal/interfaces/http/middleware"
	"github.com/erp/ordersync/internal/interfaces/http/router"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func init() {
	gin.SetMode(gin.TestMode)
	middleware.SetupValidator()
}

// MockOrderSyncer is a mock implementation of OrderSyncer
type MockOrderSyncer struct {
	mock.Mock
}

func (m *MockOrderSyncer) SyncOrder(ctx context.Context, orderID string) domain.SyncResult {
	args := m.Called(ctx, orderID)
	return args.Get(0).(domain.SyncResult)
}

func (m *MockOrderSyncer) SyncOrderPayload(ctx context.Context, order *domain.Order) domain.SyncResult {
	args := m.Called(ctx, order)
	return args.Get(0).(domain.SyncResult)
}

func (m *MockOrderSyncer) SyncOrders(ctx context.Context, orderIDs []string, maxBatch int) (*domain.BulkSyncResult, error) {
	args := m.Called(ctx, orderIDs, maxBatch)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.BulkSyncResult), args.Error(1)
}

// MockSyncStatusReader is a mock implementation of SyncStatusReader
type MockSyncStatusReader struct {
	mock.Mock
}

func (m *MockSyncStatusReader) CheckSyncedBulk(ctx context.Context, orderIDs []string) (map[string]domain.SyncStatus, error) {
	args := m.Called(ctx, orderIDs)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(map[string]domain.SyncStatus), args.Error(1)
}

func (m *MockSyncStatusReader) History(ctx context.Context, orderID string, limit int) ([]domain.SyncRecord, error) {
	args := m.Called(ctx, orderID, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.SyncRecord), args.Error(1)
}

// MockOrderPuller is a mock implementation of OrderPuller
type MockOrderPuller struct {
	mock.Mock
}

func (m *MockOrderPuller) TriggerPull(ctx context.Context, start, end time.Time, status *domain.OrderStatus) (*scheduler.PullJob, error) {
	args := m.Called(ctx, start, end, status)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*scheduler.PullJob), args.Error(1)
}

func (m *MockOrderPuller) History(limit int) []*scheduler.PullJob {
	args := m.Called(limit)
	return args.Get(0).([]*scheduler.PullJob)
}

// MockIdempotencyStore is a mock implementation of shared.IdempotencyStore
type MockIdempotencyStore struct {
	mock.Mock
}

func (m *MockIdempotencyStore) MarkProcessed(ctx context.Context, key string, ttl time.Duration) (bool, error) {
	args := m.Called(ctx, key, ttl)
	return args.Bool(0), args.Error(1)
}

func (m *MockIdempotencyStore) IsProcessed(ctx context.Context, key string) (bool, error) {
	args := m.Called(ctx, key)
	return args.Bool(0), args.Error(1)
}

func (m *MockIdempotencyStore) Forget(ctx context.Context, key string) error {
	return m.Called(ctx, key).Error(0)
}

func (m *MockIdempotencyStore) Close() error {
	return m.Called().Error(0)
}

// newTestEngine mounts groups under /api/v1 behind the request ID middleware
func newTestEngine(groups ...*router.DomainGroup) *gin.Engine {
	engine := gin.New()
	engine.Use(middleware.RequestID())
	r := router.NewRouter(engine)
	for _, g := range groups {
		r.Register(g)
	}
	r.Setup()
	return engine
}

// apiResponse mirrors dto.Response with raw data for per-test decoding
type apiResponse struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Error   *struct {
		Code      string `json:"code"`
		Message   string `json:"message"`
		RequestID string `json:"request_id"`
		Details   []struct {
			Field   string `json:"field"`
			Message string `json:"message"`
		} `json:"details"`
	} `json:"error"`
	Meta *struct {
		Total int `json:"total"`
		Limit int `json:"limit"`
	} `json:"meta"`
}

func doRequest(t *testing.T, engine *gin.Engine, method, path string, body any, headers ...string) (*httptest.ResponseRecorder, apiResponse) {
	t.Helper()

	var reader io.Reader
	switch b := body.(type) {
	case nil:
	case string:
		reader = bytes.NewBufferString(b)
	default:
		raw, err := json.Marshal(b)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	}

	req := httptest.NewRequest(method, path, reader)
	if reader != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	for i := 0; i+1 < len(headers); i += 2 {
		req.Header.Set(headers[i], headers[i+1])
	}
	w := httptest.NewRecorder()
	engine.ServeHTTP(w, req)

	var resp apiResponse
	if w.Code != http.StatusNoContent && w.Body.Len() > 0 {
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp), w.Body.String())
	}
	return w, resp
}

func decodeData[T any](t *testing.T, resp apiResponse) T {
	t.Helper()
	var out T
	require.NoError(t, json.Unmarshal(resp.Data, &out))
	return out
}
