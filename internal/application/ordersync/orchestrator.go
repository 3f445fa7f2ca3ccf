package ordersync

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	domain "github.com/erp/ordersync/internal/domain/ordersync"
	"github.com/erp/ordersync/internal/infrastructure/logger"
	"github.com/erp/ordersync/internal/infrastructure/telemetry"
	"go.uber.org/zap"
)

// SyncMetrics records sync outcomes
type SyncMetrics interface {
	RecordSync(ctx context.Context, result domain.SyncResult, duration time.Duration)
	RecordBulk(ctx context.Context, result *domain.BulkSyncResult)
}

// OrchestratorOption configures optional collaborators of the orchestrator
type OrchestratorOption func(*OrderSyncOrchestrator)

// WithPayloadArchive archives the raw order and mapped payload of every attempt
func WithPayloadArchive(archive domain.PayloadArchive) OrchestratorOption {
	return func(o *OrderSyncOrchestrator) {
		o.archive = archive
	}
}

// WithSyncMetrics records attempt outcomes and durations
func WithSyncMetrics(metrics SyncMetrics) OrchestratorOption {
	return func(o *OrderSyncOrchestrator) {
		o.metrics = metrics
	}
}

// OrderSyncOrchestrator sequences the sync of one order into the accounting
// system. It holds no per-invocation state, so concurrent calls are safe.
type OrderSyncOrchestrator struct {
	cart       domain.CartGateway
	accounting domain.AccountingGateway
	guard      *SyncStatusGuard
	resolver   *CustomerResolver
	pricing    *PricingReconciler
	mapper     *OrderMapper
	archive    domain.PayloadArchive
	metrics    SyncMetrics
	opts       Options
	logger     *zap.Logger
	sleep      func(ctx context.Context, d time.Duration) error
}

// NewOrderSyncOrchestrator wires the Core components. records may be nil.
func NewOrderSyncOrchestrator(
	cart domain.CartGateway,
	accounting domain.AccountingGateway,
	records domain.SyncRecordRepository,
	opts Options,
	log *zap.Logger,
	options ...OrchestratorOption,
) *OrderSyncOrchestrator {
	opts.applyDefaults()
	if log == nil {
		log = zap.NewNop()
	}
	addresses := NewAddressBookBuilder(opts.DefaultCountry)

	o := &OrderSyncOrchestrator{
		cart:       cart,
		accounting: accounting,
		guard:      NewSyncStatusGuard(accounting, records, opts, log),
		resolver:   NewCustomerResolver(accounting, addresses, opts, log),
		pricing:    NewPricingReconciler(),
		mapper:     NewOrderMapper(addresses, opts),
		opts:       opts,
		logger:     log,
		sleep:      sleepContext,
	}
	for _, opt := range options {
		opt(o)
	}
	return o
}

// Guard returns the status guard used by the orchestrator
func (o *OrderSyncOrchestrator) Guard() *SyncStatusGuard {
	return o.guard
}

// ---------------------------------------------------------------------------
// Single order
// ---------------------------------------------------------------------------

// SyncOrder syncs the order with the given cart ID, fetching it first
func (o *OrderSyncOrchestrator) SyncOrder(ctx context.Context, orderID string) domain.SyncResult {
	orderID = strings.TrimSpace(orderID)
	if orderID == "" {
		return domain.NewFailedResult(orderID, domain.SyncStageStatusCheck,
			&domain.ValidationError{Fields: []string{"order_id"}, Message: domain.ErrOrderIDRequired.Error()})
	}
	return o.run(ctx, orderID, nil)
}

// SyncOrderPayload syncs an order delivered in full, skipping the cart fetch
func (o *OrderSyncOrchestrator) SyncOrderPayload(ctx context.Context, order *domain.Order) domain.SyncResult {
	if order == nil || strings.TrimSpace(order.OrderID) == "" {
		return domain.NewFailedResult("", domain.SyncStageStatusCheck,
			&domain.ValidationError{Fields: []string{"order_id"}, Message: domain.ErrOrderRequired.Error()})
	}
	return o.run(ctx, strings.TrimSpace(order.OrderID), order)
}

// attempt carries what one run produced, for recording and archiving
type attempt struct {
	result  domain.SyncResult
	order   *domain.Order
	payload *domain.SalesOrderPayload
}

func (o *OrderSyncOrchestrator) run(ctx context.Context, orderID string, order *domain.Order) domain.SyncResult {
	ctx, span := telemetry.StartServiceSpan(ctx, "ordersync", "sync_order")
	defer span.End()
	telemetry.SetAttributes(span,
		telemetry.SpanAttrOrderID, orderID,
		telemetry.SpanAttrExternalRef, o.opts.ExternalRef(orderID),
	)

	start := time.Now()
	a := o.sync(ctx, orderID, order)
	a.result.OrderID = orderID

	telemetry.SetAttributes(span,
		telemetry.SpanAttrSyncState, a.result.State.String(),
		telemetry.SpanAttrSyncStage, string(a.result.Stage),
		telemetry.SpanAttrSalesOrderID, a.result.SalesOrderID,
		telemetry.SpanAttrCustomerID, a.result.CustomerID,
		telemetry.SpanAttrRecovered, a.result.Recovered,
	)
	if a.result.State == domain.SyncStateFailed {
		telemetry.RecordError(span, errors.New(a.result.Error))
	} else {
		telemetry.SetOK(span)
	}

	if err := o.guard.RecordResult(ctx, orderID, a.result); err != nil {
		logger.Scoped(ctx, o.logger).Warn("Failed to record sync result", zap.String("order_id", orderID), zap.Error(err))
	}
	o.archiveAttempt(ctx, orderID, a)
	if o.metrics != nil {
		o.metrics.RecordSync(ctx, a.result, time.Since(start))
	}

	return a.result
}

// sync runs the state machine; terminal states are SUCCESS, ALREADY_SYNCED and FAILED
func (o *OrderSyncOrchestrator) sync(ctx context.Context, orderID string, order *domain.Order) attempt {
	log := logger.Scoped(ctx, o.logger).With(zap.String("order_id", orderID))

	status, err := o.guard.CheckSynced(ctx, orderID)
	if err != nil {
		return attempt{result: domain.NewFailedResult(orderID, domain.SyncStageStatusCheck, err)}
	}
	if status.Synced {
		log.Info("Order already synced", zap.Int("sales_order_id", status.SalesOrderID))
		return attempt{result: domain.NewAlreadySyncedResult(orderID, status)}
	}

	if order == nil {
		order, err = o.cart.GetOrder(ctx, orderID)
		if err != nil {
			return attempt{result: domain.NewFailedResult(orderID, domain.SyncStageFetch, err)}
		}
	}
	a := attempt{order: order}

	customer, err := o.resolver.Resolve(ctx, order)
	if err != nil {
		a.result = domain.NewFailedResult(orderID, domain.SyncStageCustomer, err)
		return a
	}
	log = log.With(zap.Int("customer_id", customer.ID))

	totals := o.pricing.Reconcile(order)
	payload, err := o.mapper.Map(order, customer, totals)
	if err == nil && o.opts.ValidateItems {
		err = o.validateItems(ctx, payload)
	}
	if err != nil {
		a.result = withContext(domain.NewFailedResult(orderID, domain.SyncStageMapping, err), customer, totals)
		return a
	}
	a.payload = payload

	if discrepancy := totals.Discrepancy(); !discrepancy.IsZero() {
		log.Debug("Items total differs from cart subtotal",
			zap.String("items_total", totals.ItemsTotal.StringFixed(2)),
			zap.String("target_subtotal", totals.TargetSubtotal.StringFixed(2)),
			zap.String("discount", totals.Discount.StringFixed(2)),
		)
	}

	// Re-check right before creating; another invocation may have won the race
	status, err = o.guard.CheckSynced(ctx, orderID)
	if err != nil {
		a.result = withContext(domain.NewFailedResult(orderID, domain.SyncStageStatusCheck, err), customer, totals)
		return a
	}
	if status.Synced {
		log.Info("Order synced by a concurrent attempt", zap.Int("sales_order_id", status.SalesOrderID))
		a.result = withContext(domain.NewAlreadySyncedResult(orderID, status), customer, totals)
		return a
	}

	a.result = withContext(o.create(ctx, orderID, payload, log), customer, totals)
	return a
}

// duplicateReadBackDelay is the wait before re-querying a duplicate's
// external reference, covering query index lag after a concurrent create
const duplicateReadBackDelay = 2 * time.Second

// create submits the payload. Duplicates always resolve through a read-back;
// ambiguous failures get exactly one read-back before being reported.
func (o *OrderSyncOrchestrator) create(
	ctx context.Context,
	orderID string,
	payload *domain.SalesOrderPayload,
	log *zap.Logger,
) domain.SyncResult {
	ref, err := o.accounting.CreateSalesOrder(ctx, payload)
	if err == nil {
		if ref.TransactionNumber == "" {
			o.backfillTransactionNumber(ctx, ref, log)
		}
		log.Info("Created sales order",
			zap.Int("sales_order_id", ref.ID),
			zap.String("transaction_number", ref.TransactionNumber),
		)
		return domain.NewSuccessResult(orderID, *ref)
	}

	if !needsReadBack(err) {
		return domain.NewFailedResult(orderID, domain.SyncStageCreate, err)
	}

	log.Warn("Create outcome uncertain, reading back by external reference",
		zap.String("error_kind", string(domain.KindOf(err))),
		zap.Error(err),
	)
	status, checkErr := o.guard.CheckSynced(ctx, orderID)
	if checkErr == nil && status.Synced {
		return recoveredResult(orderID, status.SalesOrderID, status.TransactionNumber)
	}

	var duplicate *domain.DuplicateOrderError
	if errors.As(err, &duplicate) {
		return o.resolveDuplicate(ctx, orderID, duplicate, log)
	}
	if checkErr != nil {
		return domain.NewFailedResult(orderID, domain.SyncStageCreate, errors.Join(err, checkErr))
	}
	return domain.NewFailedResult(orderID, domain.SyncStageCreate, err)
}

// resolveDuplicate settles a create the destination rejected as a duplicate.
// The order exists there, so the outcome is never FAILED: the conflicting
// record is read by ID when the error names it, otherwise the external
// reference lookup is retried once after the query index catches up.
func (o *OrderSyncOrchestrator) resolveDuplicate(
	ctx context.Context,
	orderID string,
	dup *domain.DuplicateOrderError,
	log *zap.Logger,
) domain.SyncResult {
	if dup.ExistingID > 0 {
		so, err := o.accounting.GetSalesOrderByID(ctx, dup.ExistingID)
		if err == nil && so != nil {
			return recoveredResult(orderID, so.ID, so.TransactionNumber)
		}
		log.Debug("Duplicate record not readable by ID",
			zap.Int("sales_order_id", dup.ExistingID),
			zap.Error(err),
		)
	}

	if err := o.sleep(ctx, duplicateReadBackDelay); err == nil {
		status, err := o.guard.CheckSynced(ctx, orderID)
		if err == nil && status.Synced {
			return recoveredResult(orderID, status.SalesOrderID, status.TransactionNumber)
		}
	}

	log.Warn("Duplicate sales order could not be read back",
		zap.String("external_ref", dup.ExternalRef),
		zap.Int("sales_order_id", dup.ExistingID),
	)
	result := domain.NewAlreadySyncedResult(orderID, domain.SyncStatus{
		OrderID:      orderID,
		Synced:       true,
		SalesOrderID: dup.ExistingID,
	})
	result.Stage = domain.SyncStageCreate
	return result
}

func recoveredResult(orderID string, salesOrderID int, transactionNumber string) domain.SyncResult {
	result := domain.NewSuccessResult(orderID, domain.SalesOrderRef{
		ID:                salesOrderID,
		TransactionNumber: transactionNumber,
	})
	result.Recovered = true
	return result
}

func needsReadBack(err error) bool {
	var (
		duplicate *domain.DuplicateOrderError
		shape     *domain.ResponseShapeError
		gateway   *domain.GatewayError
	)
	switch {
	case errors.As(err, &duplicate), errors.As(err, &shape):
		return true
	case errors.As(err, &gateway):
		return gateway.IsAmbiguous()
	default:
		return false
	}
}

func (o *OrderSyncOrchestrator) backfillTransactionNumber(ctx context.Context, ref *domain.SalesOrderRef, log *zap.Logger) {
	so, err := o.accounting.GetSalesOrderByID(ctx, ref.ID)
	if err != nil || so == nil {
		log.Debug("Transaction number unavailable", zap.Int("sales_order_id", ref.ID), zap.Error(err))
		return
	}
	ref.TransactionNumber = so.TransactionNumber
}

// validateItems checks each catalog key against the destination item master
func (o *OrderSyncOrchestrator) validateItems(ctx context.Context, payload *domain.SalesOrderPayload) error {
	var invalid []string
	seen := make(map[string]struct{}, len(payload.Items))
	for _, line := range payload.Items {
		if _, ok := seen[line.ItemID]; ok {
			continue
		}
		seen[line.ItemID] = struct{}{}

		v, err := o.accounting.ValidateItem(ctx, line.ItemID)
		if err != nil {
			return fmt.Errorf("validate item %s: %w", line.ItemID, err)
		}
		if !v.Exists || !v.Usable {
			invalid = append(invalid, line.ItemID)
		}
	}
	if len(invalid) > 0 {
		return &domain.ValidationError{Fields: invalid, Message: "items missing or inactive in accounting system"}
	}
	return nil
}

func (o *OrderSyncOrchestrator) archiveAttempt(ctx context.Context, orderID string, a attempt) {
	if o.archive == nil || a.order == nil {
		return
	}
	entry := &domain.ArchiveEntry{
		OrderID:     orderID,
		ExternalRef: o.opts.ExternalRef(orderID),
		AttemptedAt: time.Now(),
		State:       a.result.State,
		Order:       a.order,
		Payload:     a.payload,
		Error:       a.result.Error,
	}
	if err := o.archive.Archive(ctx, entry); err != nil {
		logger.Scoped(ctx, o.logger).Warn("Failed to archive sync attempt", zap.String("order_id", orderID), zap.Error(err))
	}
}

func withContext(r domain.SyncResult, customer *domain.Customer, totals domain.ReconciledTotals) domain.SyncResult {
	if customer != nil {
		r.CustomerID = customer.ID
	}
	r.Totals = &totals
	return r
}

// ---------------------------------------------------------------------------
// Bulk
// ---------------------------------------------------------------------------

// SyncOrders syncs the given orders one at a time with a fixed delay between
// them. A failed order never stops the batch. maxBatch lowers the configured
// hard cap when positive.
func (o *OrderSyncOrchestrator) SyncOrders(ctx context.Context, orderIDs []string, maxBatch int) (*domain.BulkSyncResult, error) {
	ids := dedupeIDs(orderIDs)
	if len(ids) == 0 {
		return nil, domain.ErrEmptyBatch
	}
	limit := o.opts.MaxBatchSize
	if maxBatch > 0 && maxBatch < limit {
		limit = maxBatch
	}
	if len(ids) > limit {
		return nil, fmt.Errorf("%w: %d orders, limit %d", domain.ErrBatchTooLarge, len(ids), limit)
	}

	ctx, span := telemetry.StartServiceSpan(ctx, "ordersync", "sync_orders")
	defer span.End()
	telemetry.SetAttribute(span, telemetry.SpanAttrBatchSize, len(ids))

	bulk := &domain.BulkSyncResult{StartedAt: time.Now()}
	o.runSequential(ctx, ids, func(ctx context.Context, id string) domain.SyncResult {
		return o.SyncOrder(ctx, id)
	}, bulk)

	o.finishBulk(ctx, bulk)
	return bulk, nil
}

// SyncDateRange pulls orders placed in [start, end] from the cart and syncs
// the unsynced ones. Cancelled and incomplete orders are skipped, as are
// orders beyond the hard cap; the next run picks those up.
func (o *OrderSyncOrchestrator) SyncDateRange(
	ctx context.Context,
	start, end time.Time,
	status *domain.OrderStatus,
) (*domain.BulkSyncResult, error) {
	if !start.Before(end) {
		return nil, domain.ErrInvalidDateRange
	}

	ctx, span := telemetry.StartServiceSpan(ctx, "ordersync", "sync_date_range")
	defer span.End()

	orders, err := o.cart.GetOrdersByDateRange(ctx, start, end, status)
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, fmt.Errorf("fetch orders: %w", err)
	}

	bulk := &domain.BulkSyncResult{StartedAt: time.Now()}
	byID := make(map[string]*domain.Order, len(orders))
	ids := make([]string, 0, len(orders))
	for i := range orders {
		order := &orders[i]
		if !order.Status.IsSyncable() {
			bulk.Skipped++
			continue
		}
		if _, dup := byID[order.OrderID]; dup {
			continue
		}
		byID[order.OrderID] = order
		ids = append(ids, order.OrderID)
	}

	if len(ids) > 0 {
		statuses, err := o.guard.CheckSyncedBulk(ctx, ids)
		if err != nil {
			telemetry.RecordError(span, err)
			return nil, err
		}

		pending := ids[:0]
		for _, id := range ids {
			if st := statuses[id]; st.Synced {
				bulk.Add(domain.NewAlreadySyncedResult(id, st))
				continue
			}
			pending = append(pending, id)
		}

		if len(pending) > o.opts.MaxBatchSize {
			logger.Scoped(ctx, o.logger).Warn("Pulled more orders than the batch limit, deferring the rest",
				zap.Int("pending", len(pending)),
				zap.Int("limit", o.opts.MaxBatchSize),
			)
			bulk.Skipped += len(pending) - o.opts.MaxBatchSize
			pending = pending[:o.opts.MaxBatchSize]
		}

		o.runSequential(ctx, pending, func(ctx context.Context, id string) domain.SyncResult {
			return o.SyncOrderPayload(ctx, byID[id])
		}, bulk)
	}

	telemetry.SetAttributes(span, "pulled", len(orders), telemetry.SpanAttrBatchSize, bulk.Total)
	o.finishBulk(ctx, bulk)
	return bulk, nil
}

// runSequential syncs ids in order with the configured delay between them.
// Orders left when ctx ends are reported as failed without being attempted.
func (o *OrderSyncOrchestrator) runSequential(
	ctx context.Context,
	ids []string,
	syncOne func(ctx context.Context, id string) domain.SyncResult,
	bulk *domain.BulkSyncResult,
) {
	for i, id := range ids {
		if i > 0 {
			if err := o.sleep(ctx, o.opts.BulkDelay); err != nil {
				for _, rest := range ids[i:] {
					bulk.Add(domain.NewFailedResult(rest, domain.SyncStageStatusCheck,
						fmt.Errorf("not attempted: %w", err)))
				}
				return
			}
		}
		bulk.Add(syncOne(ctx, id))
	}
}

func (o *OrderSyncOrchestrator) finishBulk(ctx context.Context, bulk *domain.BulkSyncResult) {
	bulk.FinishedAt = time.Now()
	logger.Scoped(ctx, o.logger).Info("Bulk order sync finished",
		zap.Int("total", bulk.Total),
		zap.Int("succeeded", bulk.Succeeded),
		zap.Int("already_synced", bulk.AlreadySynced),
		zap.Int("failed", bulk.Failed),
		zap.Int("skipped", bulk.Skipped),
		zap.Duration("duration", bulk.FinishedAt.Sub(bulk.StartedAt)),
	)
	if o.metrics != nil {
		o.metrics.RecordBulk(ctx, bulk)
	}
}

func dedupeIDs(ids []string) []string {
	out := make([]string, 0, len(ids))
	seen := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		id = strings.TrimSpace(id)
		if id == "" {
			continue
		}
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
