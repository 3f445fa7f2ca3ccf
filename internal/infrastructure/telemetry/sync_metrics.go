package telemetry

import (
	"context"
	"time"

	"github.com/erp/ordersync/internal/domain/ordersync"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// Sync metric attribute keys
var (
	AttrSyncState     = attribute.Key("state")
	AttrSyncStage     = attribute.Key("stage")
	AttrSyncErrorKind = attribute.Key("error_kind")
	AttrRecovered     = attribute.Key("recovered")
)

// SyncDurationBuckets are bucket boundaries for one order sync (seconds)
var SyncDurationBuckets = []float64{0.25, 0.5, 1, 2, 4, 8, 15, 30, 60}

// SyncMetrics records order sync outcomes
type SyncMetrics struct {
	syncTotal     *Counter
	syncDuration  *Histogram
	bulkTotal     *Counter
	bulkOrders    *Counter
	discrepancies *Counter
	bulkLastSize  *Gauge
}

// NewSyncMetrics creates the order sync instruments on meter
func NewSyncMetrics(meter metric.Meter) (*SyncMetrics, error) {
	if meter == nil {
		return nil, ErrMeterNil
	}

	var (
		m   SyncMetrics
		err error
	)

	m.syncTotal, err = NewCounter(meter,
		"ordersync_sync_total",
		"Total number of order sync attempts by terminal state",
		"{attempts}",
	)
	if err != nil {
		return nil, err
	}

	m.syncDuration, err = NewHistogram(meter, HistogramOpts{
		Name:        "ordersync_sync_duration_seconds",
		Description: "Duration of one order sync attempt",
		Unit:        "s",
		Boundaries:  SyncDurationBuckets,
	})
	if err != nil {
		return nil, err
	}

	m.bulkTotal, err = NewCounter(meter,
		"ordersync_bulk_total",
		"Total number of bulk sync runs",
		"{runs}",
	)
	if err != nil {
		return nil, err
	}

	m.bulkOrders, err = NewCounter(meter,
		"ordersync_bulk_orders_total",
		"Orders processed by bulk runs, by outcome",
		"{orders}",
	)
	if err != nil {
		return nil, err
	}

	m.discrepancies, err = NewCounter(meter,
		"ordersync_discount_discrepancy_total",
		"Synced orders whose destination total differs from the cart amount",
		"{orders}",
	)
	if err != nil {
		return nil, err
	}

	m.bulkLastSize, err = NewGauge(meter,
		"ordersync_bulk_last_size",
		"Number of orders considered by the most recent bulk run",
		"{orders}",
	)
	if err != nil {
		return nil, err
	}

	return &m, nil
}

// RecordSync records one attempt
func (m *SyncMetrics) RecordSync(ctx context.Context, result ordersync.SyncResult, duration time.Duration) {
	attrs := []attribute.KeyValue{
		AttrSyncState.String(result.State.String()),
		AttrSyncStage.String(string(result.Stage)),
		AttrSyncErrorKind.String(string(result.ErrorKind)),
		AttrRecovered.Bool(result.Recovered),
	}
	m.syncTotal.Inc(ctx, attrs...)
	m.syncDuration.RecordDuration(ctx, duration, AttrSyncState.String(result.State.String()))

	if result.State == ordersync.SyncStateSuccess && result.Totals != nil && !result.Totals.Discrepancy().IsZero() {
		m.discrepancies.Inc(ctx)
	}
}

// RecordBulk records one bulk run
func (m *SyncMetrics) RecordBulk(ctx context.Context, result *ordersync.BulkSyncResult) {
	m.bulkTotal.Inc(ctx)
	m.bulkLastSize.Record(ctx, int64(result.Total))
	m.bulkOrders.Add(ctx, int64(result.Succeeded), AttrSyncState.String(ordersync.SyncStateSuccess.String()))
	m.bulkOrders.Add(ctx, int64(result.AlreadySynced), AttrSyncState.String(ordersync.SyncStateAlreadySynced.String()))
	m.bulkOrders.Add(ctx, int64(result.Failed), AttrSyncState.String(ordersync.SyncStateFailed.String()))
	m.bulkOrders.Add(ctx, int64(result.Skipped), AttrSyncState.String("SKIPPED"))
}

// GatewayMetrics records outbound calls to the cart and accounting systems.
type GatewayMetrics struct {
	requests *Counter
	duration *Histogram
}

// NewGatewayMetrics creates the gateway call instruments on meter.
func NewGatewayMetrics(meter metric.Meter) (*GatewayMetrics, error) {
	if meter == nil {
		return nil, ErrMeterNil
	}
	requests, err := NewCounter(meter,
		"ordersync_gateway_requests_total",
		"Outbound gateway requests by gateway, operation and status",
		"{requests}",
	)
	if err != nil {
		return nil, err
	}
	duration, err := NewHistogram(meter, HistogramOpts{
		Name:        "ordersync_gateway_request_duration_seconds",
		Description: "Duration of outbound gateway requests",
		Unit:        "s",
		Boundaries:  HTTPDurationBuckets,
	})
	if err != nil {
		return nil, err
	}
	return &GatewayMetrics{requests: requests, duration: duration}, nil
}

// ObserveRequest records one outbound call. statusCode is 0 on transport failure.
func (m *GatewayMetrics) ObserveRequest(ctx context.Context, gateway, operation string, statusCode int, d time.Duration) {
	attrs := []attribute.KeyValue{
		AttrGateway.String(gateway),
		AttrOperation.String(operation),
		AttrHTTPStatusCode.Int(statusCode),
	}
	m.requests.Inc(ctx, attrs...)
	m.duration.RecordDuration(ctx, d, attrs[:2]...)
}

// ErrMeterNil is returned when meter is nil.
var ErrMeterNil = &MetricsError{Op: "telemetry", Err: "meter cannot be nil"}

// MetricsError represents a metrics-related error.
type MetricsError struct {
	Op  string
	Err string
}

func (e *MetricsError) Error() string {
	return e.Op + ": " + e.Err
}
