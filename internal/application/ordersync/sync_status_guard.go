package ordersync

import (
	"context"
	"fmt"
	"strings"
	"time"

	domain "github.com/erp/ordersync/internal/domain/ordersync"
	"go.uber.org/zap"
)

// SyncStatusGuard is the idempotency gate. Sync state is derived from the
// accounting system by external reference; local records only add the last
// error of failed attempts.
type SyncStatusGuard struct {
	gateway domain.AccountingGateway
	records domain.SyncRecordRepository
	opts    Options
	logger  *zap.Logger
	now     func() time.Time
}

// NewSyncStatusGuard creates a SyncStatusGuard. records may be nil.
func NewSyncStatusGuard(
	gateway domain.AccountingGateway,
	records domain.SyncRecordRepository,
	opts Options,
	logger *zap.Logger,
) *SyncStatusGuard {
	opts.applyDefaults()
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SyncStatusGuard{
		gateway: gateway,
		records: records,
		opts:    opts,
		logger:  logger,
		now:     time.Now,
	}
}

// CheckSynced returns the sync status of a single order
func (g *SyncStatusGuard) CheckSynced(ctx context.Context, orderID string) (domain.SyncStatus, error) {
	if strings.TrimSpace(orderID) == "" {
		return domain.SyncStatus{}, domain.ErrOrderIDRequired
	}
	statuses, err := g.CheckSyncedBulk(ctx, []string{orderID})
	if err != nil {
		return domain.SyncStatus{}, err
	}
	return statuses[strings.TrimSpace(orderID)], nil
}

// CheckSyncedBulk returns the status of every order ID using one analytic
// query. Orders absent from the result set are reported as not synced.
func (g *SyncStatusGuard) CheckSyncedBulk(ctx context.Context, orderIDs []string) (map[string]domain.SyncStatus, error) {
	statuses := make(map[string]domain.SyncStatus, len(orderIDs))
	refs := make([]string, 0, len(orderIDs))
	orderByRef := make(map[string]string, len(orderIDs))

	for _, id := range orderIDs {
		id = strings.TrimSpace(id)
		if id == "" {
			continue
		}
		if _, seen := statuses[id]; seen {
			continue
		}
		statuses[id] = domain.SyncStatus{OrderID: id}
		ref := g.opts.ExternalRef(id)
		refs = append(refs, ref)
		orderByRef[ref] = id
	}
	if len(refs) == 0 {
		return statuses, nil
	}

	result, err := g.gateway.ExecuteAnalyticQuery(ctx, salesOrderStatusQuery(refs))
	if err != nil {
		return nil, fmt.Errorf("check sync status: %w", err)
	}

	matches := make(map[string][]domain.QueryRow)
	if result != nil {
		for _, row := range result.Items {
			ref := row.String("externalid")
			if _, ok := orderByRef[ref]; ok {
				matches[ref] = append(matches[ref], row)
			}
		}
	}

	var unsynced []string
	for ref, orderID := range orderByRef {
		rows := matches[ref]
		if len(rows) == 0 {
			unsynced = append(unsynced, orderID)
			continue
		}
		if len(rows) > 1 {
			g.logger.Warn("Multiple sales orders share one external reference, using the newest",
				zap.String("order_id", orderID),
				zap.String("external_ref", ref),
				zap.Int("matches", len(rows)),
			)
		}
		statuses[orderID] = statusFromRow(orderID, newestRow(rows))
	}

	g.attachLastErrors(ctx, unsynced, statuses)
	return statuses, nil
}

// attachLastErrors fills LastError from the newest failed local record
func (g *SyncStatusGuard) attachLastErrors(ctx context.Context, orderIDs []string, statuses map[string]domain.SyncStatus) {
	if g.records == nil || len(orderIDs) == 0 {
		return
	}
	latest, err := g.records.FindLatestByOrderIDs(ctx, orderIDs)
	if err != nil {
		g.logger.Warn("Failed to load sync history", zap.Int("orders", len(orderIDs)), zap.Error(err))
		return
	}
	for _, id := range orderIDs {
		rec, ok := latest[id]
		if !ok || rec == nil || rec.State != domain.SyncStateFailed {
			continue
		}
		status := statuses[id]
		status.LastError = rec.ErrorMessage
		statuses[id] = status
	}
}

// RecordResult persists the outcome of one attempt to the local history
func (g *SyncStatusGuard) RecordResult(ctx context.Context, orderID string, result domain.SyncResult) error {
	log := g.logger.With(
		zap.String("order_id", orderID),
		zap.String("state", result.State.String()),
		zap.String("stage", string(result.Stage)),
	)
	if result.State == domain.SyncStateFailed {
		log = log.With(zap.String("error_kind", string(result.ErrorKind)), zap.String("error", result.Error))
	}
	log.Info("Order sync finished", zap.Int("sales_order_id", result.SalesOrderID))

	if g.records == nil {
		return nil
	}
	result.OrderID = orderID
	if err := g.records.Save(ctx, domain.NewSyncRecord(result, g.opts.ExternalRef(orderID), g.now())); err != nil {
		return fmt.Errorf("record sync result: %w", err)
	}
	return nil
}

// History returns the newest local attempts for an order
func (g *SyncStatusGuard) History(ctx context.Context, orderID string, limit int) ([]domain.SyncRecord, error) {
	if g.records == nil {
		return nil, nil
	}
	return g.records.ListByOrderID(ctx, orderID, limit)
}

func statusFromRow(orderID string, row domain.QueryRow) domain.SyncStatus {
	status := domain.SyncStatus{
		OrderID:           orderID,
		Synced:            true,
		SalesOrderID:      row.Int("id"),
		TransactionNumber: row.String("tranid"),
		Status:            row.String("status"),
	}
	if ts, ok := row.Time("createddate"); ok {
		status.SyncedAt = &ts
	}
	return status
}

// newestRow picks the most recently created row; rows without a parsable
// date lose to any row with one, and ties keep the first row.
func newestRow(rows []domain.QueryRow) domain.QueryRow {
	best := rows[0]
	bestTime, bestOK := best.Time("createddate")
	for _, row := range rows[1:] {
		ts, ok := row.Time("createddate")
		if !ok {
			continue
		}
		if !bestOK || ts.After(bestTime) {
			best, bestTime, bestOK = row, ts, true
		}
	}
	return best
}
