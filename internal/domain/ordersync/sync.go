package ordersync

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// ---------------------------------------------------------------------------
// Sync Outcome Types
// ---------------------------------------------------------------------------

// SyncState is the terminal state of one sync attempt
type SyncState string

const (
	SyncStateSuccess       SyncState = "SUCCESS"
	SyncStateAlreadySynced SyncState = "ALREADY_SYNCED"
	SyncStateFailed        SyncState = "FAILED"
)

// IsValid returns true if the state is valid
func (s SyncState) IsValid() bool {
	switch s {
	case SyncStateSuccess, SyncStateAlreadySynced, SyncStateFailed:
		return true
	default:
		return false
	}
}

// String returns the string representation of SyncState
func (s SyncState) String() string {
	return string(s)
}

// SyncStage names the orchestrator step an attempt stopped at
type SyncStage string

const (
	SyncStageStatusCheck SyncStage = "STATUS_CHECK"
	SyncStageFetch       SyncStage = "FETCH"
	SyncStageCustomer    SyncStage = "CUSTOMER"
	SyncStageMapping     SyncStage = "MAPPING"
	SyncStageCreate      SyncStage = "CREATE"
	SyncStageCompleted   SyncStage = "COMPLETED"
)

// SyncResult is the observable outcome of one sync attempt
type SyncResult struct {
	OrderID string
	State   SyncState
	// Success is true for SUCCESS and ALREADY_SYNCED
	Success           bool
	SalesOrderID      int
	TransactionNumber string
	CustomerID        int
	// Stage is the step the attempt ended at
	Stage SyncStage
	// ErrorKind and Error are set only when State is FAILED
	ErrorKind ErrorKind
	Error     string
	// Retryable marks a FAILED result caused by a transient error
	Retryable bool
	// Recovered is true when the sales order ID came from a read-back
	Recovered bool
	// Totals holds the reconciled amounts when pricing ran
	Totals *ReconciledTotals
}

// NewSuccessResult builds a SUCCESS result
func NewSuccessResult(orderID string, ref SalesOrderRef) SyncResult {
	return SyncResult{
		OrderID:           orderID,
		State:             SyncStateSuccess,
		Success:           true,
		SalesOrderID:      ref.ID,
		TransactionNumber: ref.TransactionNumber,
		Stage:             SyncStageCompleted,
	}
}

// NewAlreadySyncedResult builds an ALREADY_SYNCED result from a status check
func NewAlreadySyncedResult(orderID string, status SyncStatus) SyncResult {
	return SyncResult{
		OrderID:           orderID,
		State:             SyncStateAlreadySynced,
		Success:           true,
		SalesOrderID:      status.SalesOrderID,
		TransactionNumber: status.TransactionNumber,
		Stage:             SyncStageStatusCheck,
	}
}

// NewFailedResult builds a FAILED result classified from err
func NewFailedResult(orderID string, stage SyncStage, err error) SyncResult {
	return SyncResult{
		OrderID:   orderID,
		State:     SyncStateFailed,
		Stage:     stage,
		ErrorKind: KindOf(err),
		Error:     err.Error(),
		Retryable: IsRetryable(err),
	}
}

// ReconciledTotals are the authoritative monetary values of an order
type ReconciledTotals struct {
	// ItemsTotal is the sum of quantity * effective price over all lines
	ItemsTotal decimal.Decimal
	// TargetSubtotal is orderAmount - tax - shipping
	TargetSubtotal decimal.Decimal
	Discount       decimal.Decimal
	Tax            decimal.Decimal
	Shipping       decimal.Decimal
	// Total is ItemsTotal + Tax + Shipping, the total the accounting system will compute
	Total       decimal.Decimal
	OrderAmount decimal.Decimal
}

// Discrepancy returns ItemsTotal - TargetSubtotal
func (t ReconciledTotals) Discrepancy() decimal.Decimal {
	return t.ItemsTotal.Sub(t.TargetSubtotal)
}

// SyncStatus is derived from the accounting system; it is never stored
type SyncStatus struct {
	OrderID           string
	Synced            bool
	SalesOrderID      int
	TransactionNumber string
	// Status is the accounting system's order status
	Status   string
	SyncedAt *time.Time
	// LastError is the error of the latest failed local attempt, if any
	LastError string
}

// BulkSyncResult is the outcome of a bulk run
type BulkSyncResult struct {
	Results       []SyncResult
	Total         int
	Succeeded     int
	AlreadySynced int
	Failed        int
	Skipped       int
	StartedAt     time.Time
	FinishedAt    time.Time
}

// Add appends a result and updates the aggregate counts
func (b *BulkSyncResult) Add(r SyncResult) {
	b.Results = append(b.Results, r)
	b.Total++
	switch r.State {
	case SyncStateSuccess:
		b.Succeeded++
	case SyncStateAlreadySynced:
		b.AlreadySynced++
	default:
		b.Failed++
	}
}

// ---------------------------------------------------------------------------
// Sync History
// ---------------------------------------------------------------------------

// SyncRecord is one locally persisted sync attempt
type SyncRecord struct {
	ID                uuid.UUID
	OrderID           string
	ExternalRef       string
	State             SyncState
	Stage             SyncStage
	ErrorKind         ErrorKind
	ErrorMessage      string
	SalesOrderID      int
	TransactionNumber string
	CustomerID        int
	ItemsTotal        decimal.Decimal
	TargetSubtotal    decimal.Decimal
	Discount          decimal.Decimal
	AttemptedAt       time.Time
	CreatedAt         time.Time
}

// NewSyncRecord builds a record from a result
func NewSyncRecord(result SyncResult, externalRef string, at time.Time) *SyncRecord {
	rec := &SyncRecord{
		ID:                uuid.New(),
		OrderID:           result.OrderID,
		ExternalRef:       externalRef,
		State:             result.State,
		Stage:             result.Stage,
		ErrorKind:         result.ErrorKind,
		ErrorMessage:      result.Error,
		SalesOrderID:      result.SalesOrderID,
		TransactionNumber: result.TransactionNumber,
		CustomerID:        result.CustomerID,
		AttemptedAt:       at,
	}
	if result.Totals != nil {
		rec.ItemsTotal = result.Totals.ItemsTotal
		rec.TargetSubtotal = result.Totals.TargetSubtotal
		rec.Discount = result.Totals.Discount
	}
	return rec
}

// ---------------------------------------------------------------------------
// External Reference Key
// ---------------------------------------------------------------------------

// DefaultExternalRefPrefix is prepended to the cart order ID
const DefaultExternalRefPrefix = "CART-"

// ExternalReferenceKey derives the deterministic key stored on the sales order
func ExternalReferenceKey(prefix, orderID string) string {
	return prefix + strings.TrimSpace(orderID)
}

// OrderIDFromExternalRef reverses ExternalReferenceKey; ok is false when the
// prefix does not match.
func OrderIDFromExternalRef(prefix, ref string) (string, bool) {
	if !strings.HasPrefix(ref, prefix) {
		return "", false
	}
	return strings.TrimPrefix(ref, prefix), true
}
