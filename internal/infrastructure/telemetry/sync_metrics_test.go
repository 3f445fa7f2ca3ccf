package telemetry_test

import (
	"context"
	"testing"
	"time"

	"github.com/erp/ordersync/internal/domain/ordersync"
	"github.com/erp/ordersync/internal/infrastructure/telemetry"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/attribute"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
)

func newTestMeter(t *testing.T) (*sdkmetric.ManualReader, *sdkmetric.MeterProvider) {
	t.Helper()
	reader := sdkmetric.NewManualReader()
	provider := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	t.Cleanup(func() { _ = provider.Shutdown(context.Background()) })
	return reader, provider
}

func collect(t *testing.T, reader *sdkmetric.ManualReader) metricdata.ResourceMetrics {
	t.Helper()
	var rm metricdata.ResourceMetrics
	require.NoError(t, reader.Collect(context.Background(), &rm))
	return rm
}

func findMetric(rm metricdata.ResourceMetrics, name string) (metricdata.Metrics, bool) {
	for _, sm := range rm.ScopeMetrics {
		for _, m := range sm.Metrics {
			if m.Name == name {
				return m, true
			}
		}
	}
	return metricdata.Metrics{}, false
}

// sumWhere totals the int64 sum data points whose attributes contain kv.
func sumWhere(t *testing.T, m metricdata.Metrics, kv ...attribute.KeyValue) int64 {
	t.Helper()
	sum, ok := m.Data.(metricdata.Sum[int64])
	require.True(t, ok, "metric %s is not an int64 sum", m.Name)

	var total int64
	for _, dp := range sum.DataPoints {
		match := true
		for _, want := range kv {
			got, found := dp.Attributes.Value(want.Key)
			if !found || got.Emit() != want.Value.Emit() {
				match = false
				break
			}
		}
		if match {
			total += dp.Value
		}
	}
	return total
}

func TestNewSyncMetrics_NilMeter(t *testing.T) {
	m, err := telemetry.NewSyncMetrics(nil)
	require.ErrorIs(t, err, telemetry.ErrMeterNil)
	assert.Nil(t, m)
	assert.Equal(t, "telemetry: meter cannot be nil", err.Error())
}

func TestSyncMetrics_RecordSync(t *testing.T) {
	reader, provider := newTestMeter(t)
	m, err := telemetry.NewSyncMetrics(provider.Meter("test"))
	require.NoError(t, err)
	ctx := context.Background()

	success := ordersync.SyncResult{
		OrderID: "1001",
		State:   ordersync.SyncStateSuccess,
		Stage:   ordersync.SyncStageCompleted,
		Totals: &ordersync.ReconciledTotals{
			ItemsTotal:     decimal.NewFromInt(100),
			TargetSubtotal: decimal.NewFromInt(95),
			Total:          decimal.NewFromInt(100),
			OrderAmount:    decimal.NewFromInt(95),
		},
	}
	failed := ordersync.SyncResult{
		OrderID:   "1002",
		State:     ordersync.SyncStateFailed,
		Stage:     ordersync.SyncStageCustomer,
		ErrorKind: ordersync.ErrorKindCustomerResolution,
	}

	m.RecordSync(ctx, success, 250*time.Millisecond)
	m.RecordSync(ctx, failed, time.Second)
	m.RecordSync(ctx, failed, time.Second)

	rm := collect(t, reader)
	total, ok := findMetric(rm, "ordersync_sync_total")
	require.True(t, ok)
	assert.Equal(t, int64(1), sumWhere(t, total, telemetry.AttrSyncState.String("SUCCESS")))
	assert.Equal(t, int64(2), sumWhere(t, total,
		telemetry.AttrSyncState.String("FAILED"),
		telemetry.AttrSyncStage.String("CUSTOMER"),
		telemetry.AttrSyncErrorKind.String("CUSTOMER_RESOLUTION"),
	))

	_, ok = findMetric(rm, "ordersync_sync_duration_seconds")
	assert.True(t, ok)

	discrepancies, ok := findMetric(rm, "ordersync_discount_discrepancy_total")
	require.True(t, ok)
	assert.Equal(t, int64(1), sumWhere(t, discrepancies))
}

func TestSyncMetrics_RecordBulk(t *testing.T) {
	reader, provider := newTestMeter(t)
	m, err := telemetry.NewSyncMetrics(provider.Meter("test"))
	require.NoError(t, err)

	m.RecordBulk(context.Background(), &ordersync.BulkSyncResult{
		Total:         6,
		Succeeded:     3,
		AlreadySynced: 1,
		Failed:        1,
		Skipped:       1,
	})

	rm := collect(t, reader)
	runs, ok := findMetric(rm, "ordersync_bulk_total")
	require.True(t, ok)
	assert.Equal(t, int64(1), sumWhere(t, runs))

	orders, ok := findMetric(rm, "ordersync_bulk_orders_total")
	require.True(t, ok)
	assert.Equal(t, int64(3), sumWhere(t, orders, telemetry.AttrSyncState.String("SUCCESS")))
	assert.Equal(t, int64(1), sumWhere(t, orders, telemetry.AttrSyncState.String("SKIPPED")))
	assert.Equal(t, int64(6), sumWhere(t, orders))

	_, ok = findMetric(rm, "ordersync_bulk_last_size")
	assert.True(t, ok)
}

func TestGatewayMetrics_ObserveRequest(t *testing.T) {
	reader, provider := newTestMeter(t)
	m, err := telemetry.NewGatewayMetrics(provider.Meter("test"))
	require.NoError(t, err)

	ctx := context.Background()
	m.ObserveRequest(ctx, "cart", "get_order", 200, 40*time.Millisecond)
	m.ObserveRequest(ctx, "accounting", "create_sales_order", 0, time.Second)

	rm := collect(t, reader)
	requests, ok := findMetric(rm, "ordersync_gateway_requests_total")
	require.True(t, ok)
	assert.Equal(t, int64(1), sumWhere(t, requests,
		telemetry.AttrGateway.String("accounting"),
		telemetry.AttrHTTPStatusCode.Int(0),
	))
	_, ok = findMetric(rm, "ordersync_gateway_request_duration_seconds")
	assert.True(t, ok)

	_, err = telemetry.NewGatewayMetrics(nil)
	assert.ErrorIs(t, err, telemetry.ErrMeterNil)
}
