package middleware

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func serve(router *gin.Engine, req *http.Request) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func TestRequestID(t *testing.T) {
	router := gin.New()
	router.Use(RequestID())
	router.GET("/id", func(c *gin.Context) {
		c.String(http.StatusOK, GetRequestID(c))
	})

	t.Run("generates an id", func(t *testing.T) {
		w := serve(router, httptest.NewRequest(http.MethodGet, "/id", nil))
		id := w.Header().Get(RequestIDHeader)
		assert.Len(t, id, 36)
		assert.Equal(t, id, w.Body.String())
	})

	t.Run("keeps the caller id", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/id", nil)
		req.Header.Set(RequestIDHeader, "cart-delivery-7")
		w := serve(router, req)
		assert.Equal(t, "cart-delivery-7", w.Body.String())
	})

	t.Run("truncates long ids", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/id", nil)
		req.Header.Set(RequestIDHeader, strings.Repeat("a", 500))
		w := serve(router, req)
		assert.Len(t, w.Body.String(), MaxRequestIDLength)
	})
}

func TestTimeout(t *testing.T) {
	router := gin.New()
	router.Use(Timeout(50 * time.Millisecond))
	router.GET("/slow", func(c *gin.Context) {
		deadline, ok := c.Request.Context().Deadline()
		require.True(t, ok)
		assert.WithinDuration(t, time.Now().Add(50*time.Millisecond), deadline, 50*time.Millisecond)
		<-c.Request.Context().Done()
		assert.ErrorIs(t, c.Request.Context().Err(), context.DeadlineExceeded)
		c.Status(http.StatusGatewayTimeout)
	})

	w := serve(router, httptest.NewRequest(http.MethodGet, "/slow", nil))
	assert.Equal(t, http.StatusGatewayTimeout, w.Code)
}

func TestBodyLimit(t *testing.T) {
	router := gin.New()
	router.Use(BodyLimit(100))
	router.POST("/webhook", func(c *gin.Context) {
		var body map[string]any
		if err := c.ShouldBindJSON(&body); err != nil {
			HandleBindError(c, err)
			return
		}
		c.Status(http.StatusOK)
	})

	t.Run("allows small bodies", func(t *testing.T) {
		w := serve(router, httptest.NewRequest(http.MethodPost, "/webhook", strings.NewReader(`{"orderid":1}`)))
		assert.Equal(t, http.StatusOK, w.Code)
	})

	t.Run("rejects declared oversize bodies", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/webhook", bytes.NewReader(make([]byte, 200)))
		w := serve(router, req)
		assert.Equal(t, http.StatusRequestEntityTooLarge, w.Code)
		assert.Contains(t, w.Body.String(), "ERR_PAYLOAD_TOO_LARGE")
	})

	t.Run("cuts off streamed oversize bodies", func(t *testing.T) {
		body := `{"x":"` + strings.Repeat("y", 200) + `"}`
		req := httptest.NewRequest(http.MethodPost, "/webhook", strings.NewReader(body))
		req.ContentLength = -1
		w := serve(router, req)
		assert.Equal(t, http.StatusRequestEntityTooLarge, w.Code)
	})
}

func TestRateLimit(t *testing.T) {
	limiter := NewRateLimiter(1, 2, time.Minute)
	defer limiter.Close()

	router := gin.New()
	router.Use(RateLimit(limiter))
	router.POST("/webhook", func(c *gin.Context) { c.Status(http.StatusAccepted) })

	newReq := func(ip string) *http.Request {
		req := httptest.NewRequest(http.MethodPost, "/webhook", nil)
		req.RemoteAddr = ip + ":5000"
		return req
	}

	assert.Equal(t, http.StatusAccepted, serve(router, newReq("10.0.0.1")).Code)
	assert.Equal(t, http.StatusAccepted, serve(router, newReq("10.0.0.1")).Code)

	w := serve(router, newReq("10.0.0.1"))
	assert.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.Equal(t, "1", w.Header().Get("Retry-After"))
	assert.Contains(t, w.Body.String(), "ERR_RATE_LIMITED")

	assert.Equal(t, http.StatusAccepted, serve(router, newReq("10.0.0.2")).Code, "keys are independent")
}

func TestWebhookToken(t *testing.T) {
	build := func(secret string) *gin.Engine {
		router := gin.New()
		router.Use(WebhookToken(secret))
		router.POST("/hook", func(c *gin.Context) { c.Status(http.StatusOK) })
		return router
	}

	t.Run("empty secret disables the check", func(t *testing.T) {
		assert.Equal(t, http.StatusOK, serve(build(""), httptest.NewRequest(http.MethodPost, "/hook", nil)).Code)
	})

	t.Run("wrong token is rejected", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/hook", nil)
		req.Header.Set(WebhookTokenHeader, "nope")
		w := serve(build("s3cret"), req)
		assert.Equal(t, http.StatusUnauthorized, w.Code)
		assert.Contains(t, w.Body.String(), "ERR_UNAUTHORIZED")
	})

	t.Run("matching token passes", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/hook", nil)
		req.Header.Set(WebhookTokenHeader, "s3cret")
		assert.Equal(t, http.StatusOK, serve(build("s3cret"), req).Code)
	})
}

func TestHandleBindError(t *testing.T) {
	SetupValidator()

	type bulkRequest struct {
		OrderIDs []string `json:"order_ids" binding:"required,min=1"`
		MaxBatch int      `json:"max_batch" binding:"omitempty,min=1"`
	}

	router := gin.New()
	router.POST("/bulk", func(c *gin.Context) {
		var req bulkRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			HandleBindError(c, err)
			return
		}
		c.Status(http.StatusOK)
	})

	t.Run("malformed json", func(t *testing.T) {
		w := serve(router, httptest.NewRequest(http.MethodPost, "/bulk", strings.NewReader(`{"order_ids":`)))
		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.Contains(t, w.Body.String(), "ERR_INVALID_JSON")
	})

	t.Run("field errors use json names", func(t *testing.T) {
		w := serve(router, httptest.NewRequest(http.MethodPost, "/bulk", strings.NewReader(`{"order_ids":[],"max_batch":0}`)))
		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.Contains(t, w.Body.String(), "ERR_VALIDATION")
		assert.Contains(t, w.Body.String(), `"field":"order_ids"`)
		assert.Contains(t, w.Body.String(), "Must contain at least 1 items")
	})
}

func TestTracing(t *testing.T) {
	recorder := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(recorder))
	defer func() { _ = tp.Shutdown(context.Background()) }()

	router := gin.New()
	router.Use(RequestID())
	router.Use(Tracing(TracingConfig{
		ServiceName:    "ordersync-test",
		Enabled:        true,
		SkipPaths:      []string{"/health"},
		TracerProvider: tp,
	}))
	router.Use(SpanErrorMarker())
	router.Use(SpanAttributes())
	router.POST("/api/v1/orders/:id/sync", func(c *gin.Context) { c.Status(http.StatusBadGateway) })
	router.GET("/health", func(c *gin.Context) { c.Status(http.StatusOK) })

	req := httptest.NewRequest(http.MethodPost, "/api/v1/orders/1001/sync", nil)
	req.Header.Set(RequestIDHeader, "req-trace")
	serve(router, req)
	serve(router, httptest.NewRequest(http.MethodGet, "/health", nil))

	spans := recorder.Ended()
	require.Len(t, spans, 1, "health probes are not traced")
	span := spans[0]
	assert.Equal(t, codes.Error, span.Status().Code)

	attrs := map[attribute.Key]attribute.Value{}
	for _, kv := range span.Attributes() {
		attrs[kv.Key] = kv.Value
	}
	assert.Equal(t, "req-trace", attrs["request_id"].AsString())
	assert.Equal(t, "1001", attrs["order_id"].AsString())
}

func TestTracing_Disabled(t *testing.T) {
	router := gin.New()
	router.Use(Tracing(TracingConfig{Enabled: false}))
	router.GET("/x", func(c *gin.Context) { c.Status(http.StatusNoContent) })

	assert.Equal(t, http.StatusNoContent, serve(router, httptest.NewRequest(http.MethodGet, "/x", nil)).Code)
}

func TestHTTPMetrics(t *testing.T) {
	reader := sdkmetric.NewManualReader()
	provider := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	defer func() { _ = provider.Shutdown(context.Background()) }()

	router := gin.New()
	router.Use(HTTPMetrics(provider.Meter("http.server")))
	router.POST("/api/v1/orders/:id/sync", func(c *gin.Context) { c.JSON(http.StatusOK, gin.H{"ok": true}) })

	serve(router, httptest.NewRequest(http.MethodPost, "/api/v1/orders/1001/sync", nil))
	serve(router, httptest.NewRequest(http.MethodPost, "/api/v1/orders/1002/sync", nil))

	var rm metricdata.ResourceMetrics
	require.NoError(t, reader.Collect(context.Background(), &rm))

	var found bool
	for _, sm := range rm.ScopeMetrics {
		for _, m := range sm.Metrics {
			if m.Name != "http_server_request_total" {
				continue
			}
			found = true
			sum := m.Data.(metricdata.Sum[int64])
			require.Len(t, sum.DataPoints, 1, "route pattern keeps cardinality low")
			dp := sum.DataPoints[0]
			assert.Equal(t, int64(2), dp.Value)
			route, _ := dp.Attributes.Value("http.route")
			assert.Equal(t, "/api/v1/orders/:id/sync", route.AsString())
		}
	}
	assert.True(t, found)
}

func TestHTTPMetrics_NilMeter(t *testing.T) {
	router := gin.New()
	router.Use(HTTPMetrics(nil))
	router.GET("/x", func(c *gin.Context) { c.Status(http.StatusOK) })

	assert.Equal(t, http.StatusOK, serve(router, httptest.NewRequest(http.MethodGet, "/x", nil)).Code)
}
