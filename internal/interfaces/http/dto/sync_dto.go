package dto

import (
	"time"

	domain "github.com/erp/ordersync/internal/domain/ordersync"
	"github.com/shopspring/decimal"
)

// BulkSyncRequest is the body of POST /orders/sync
type BulkSyncRequest struct {
	OrderIDs []string `json:"order_ids" binding:"required,min=1,dive,required"`
	// MaxBatch lowers the server's batch cap when set
	MaxBatch int `json:"max_batch" binding:"omitempty,min=1"`
}

// PullRequest is the body of POST /orders/pull
type PullRequest struct {
	Start  time.Time `json:"start" binding:"required"`
	End    time.Time `json:"end" binding:"required,gtfield=Start"`
	Status *int      `json:"status" binding:"omitempty,min=1,max=10"`
}

// SyncStatusQuery is the query of GET /orders/sync-status
type SyncStatusQuery struct {
	IDs string `form:"ids" binding:"required"`
}

// SyncRecordsQuery is the query of GET /orders/:id/sync-records
type SyncRecordsQuery struct {
	Limit int `form:"limit" binding:"omitempty,min=1,max=500"`
}

// TotalsResponse carries the reconciled amounts of an attempt
type TotalsResponse struct {
	ItemsTotal     decimal.Decimal `json:"items_total"`
	TargetSubtotal decimal.Decimal `json:"target_subtotal"`
	Discount       decimal.Decimal `json:"discount"`
	Tax            decimal.Decimal `json:"tax"`
	Shipping       decimal.Decimal `json:"shipping"`
	Total          decimal.Decimal `json:"total"`
}

// SyncResultResponse is one sync outcome
type SyncResultResponse struct {
	OrderID           string          `json:"order_id"`
	State             string          `json:"state"`
	Success           bool            `json:"success"`
	Stage             string          `json:"stage"`
	SalesOrderID      int             `json:"sales_order_id,omitempty"`
	TransactionNumber string          `json:"transaction_number,omitempty"`
	CustomerID        int             `json:"customer_id,omitempty"`
	ErrorKind         string          `json:"error_kind,omitempty"`
	Error             string          `json:"error,omitempty"`
	Retryable         bool            `json:"retryable,omitempty"`
	Recovered         bool            `json:"recovered,omitempty"`
	Replayed          bool            `json:"replayed,omitempty"`
	Totals            *TotalsResponse `json:"totals,omitempty"`
}

// BulkSyncResponse is the outcome of a bulk run
type BulkSyncResponse struct {
	Total         int                  `json:"total"`
	Succeeded     int                  `json:"succeeded"`
	AlreadySynced int                  `json:"already_synced"`
	Failed        int                  `json:"failed"`
	Skipped       int                  `json:"skipped"`
	StartedAt     time.Time            `json:"started_at"`
	FinishedAt    time.Time            `json:"finished_at"`
	Results       []SyncResultResponse `json:"results"`
}

// SyncStatusResponse is the destination-side sync status of one order
type SyncStatusResponse struct {
	OrderID           string     `json:"order_id"`
	Synced            bool       `json:"synced"`
	SalesOrderID      int        `json:"sales_order_id,omitempty"`
	TransactionNumber string     `json:"transaction_number,omitempty"`
	Status            string     `json:"status,omitempty"`
	SyncedAt          *time.Time `json:"synced_at,omitempty"`
	LastError         string     `json:"last_error,omitempty"`
}

// SyncRecordResponse is one stored sync attempt
type SyncRecordResponse struct {
	ID                string          `json:"id"`
	OrderID           string          `json:"order_id"`
	ExternalRef       string          `json:"external_ref"`
	State             string          `json:"state"`
	Stage             string          `json:"stage"`
	ErrorKind         string          `json:"error_kind,omitempty"`
	ErrorMessage      string          `json:"error_message,omitempty"`
	SalesOrderID      int             `json:"sales_order_id,omitempty"`
	TransactionNumber string          `json:"transaction_number,omitempty"`
	CustomerID        int             `json:"customer_id,omitempty"`
	ItemsTotal        decimal.Decimal `json:"items_total"`
	TargetSubtotal    decimal.Decimal `json:"target_subtotal"`
	Discount          decimal.Decimal `json:"discount"`
	AttemptedAt       time.Time       `json:"attempted_at"`
}

// PullJobResponse describes one date-range pull
type PullJobResponse struct {
	ID            string     `json:"id"`
	Status        string     `json:"status"`
	StartTime     time.Time  `json:"start_time"`
	EndTime       time.Time  `json:"end_time"`
	StartedAt     time.Time  `json:"started_at"`
	CompletedAt   *time.Time `json:"completed_at,omitempty"`
	Error         string     `json:"error,omitempty"`
	Total         int        `json:"total"`
	Succeeded     int        `json:"succeeded"`
	AlreadySynced int        `json:"already_synced"`
	Failed        int        `json:"failed"`
	Skipped       int        `json:"skipped"`
}

// NewSyncResultResponse converts a domain result
func NewSyncResultResponse(r domain.SyncResult) SyncResultResponse {
	resp := SyncResultResponse{
		OrderID:           r.OrderID,
		State:             string(r.State),
		Success:           r.Success,
		Stage:             string(r.Stage),
		SalesOrderID:      r.SalesOrderID,
		TransactionNumber: r.TransactionNumber,
		CustomerID:        r.CustomerID,
		ErrorKind:         string(r.ErrorKind),
		Error:             r.Error,
		Retryable:         r.Retryable,
		Recovered:         r.Recovered,
	}
	if r.Totals != nil {
		resp.Totals = &TotalsResponse{
			ItemsTotal:     r.Totals.ItemsTotal,
			TargetSubtotal: r.Totals.TargetSubtotal,
			Discount:       r.Totals.Discount,
			Tax:            r.Totals.Tax,
			Shipping:       r.Totals.Shipping,
			Total:          r.Totals.Total,
		}
	}
	return resp
}

// NewBulkSyncResponse converts a domain bulk result
func NewBulkSyncResponse(b *domain.BulkSyncResult) BulkSyncResponse {
	resp := BulkSyncResponse{
		Total:         b.Total,
		Succeeded:     b.Succeeded,
		AlreadySynced: b.AlreadySynced,
		Failed:        b.Failed,
		Skipped:       b.Skipped,
		StartedAt:     b.StartedAt,
		FinishedAt:    b.FinishedAt,
		Results:       make([]SyncResultResponse, 0, len(b.Results)),
	}
	for _, r := range b.Results {
		resp.Results = append(resp.Results, NewSyncResultResponse(r))
	}
	return resp
}

// NewSyncStatusResponse converts a domain status
func NewSyncStatusResponse(s domain.SyncStatus) SyncStatusResponse {
	return SyncStatusResponse{
		OrderID:           s.OrderID,
		Synced:            s.Synced,
		SalesOrderID:      s.SalesOrderID,
		TransactionNumber: s.TransactionNumber,
		Status:            s.Status,
		SyncedAt:          s.SyncedAt,
		LastError:         s.LastError,
	}
}

// NewSyncRecordResponse converts a stored attempt
func NewSyncRecordResponse(r domain.SyncRecord) SyncRecordResponse {
	return SyncRecordResponse{
		ID:                r.ID.String(),
		OrderID:           r.OrderID,
		ExternalRef:       r.ExternalRef,
		State:             string(r.State),
		Stage:             string(r.Stage),
		ErrorKind:         string(r.ErrorKind),
		ErrorMessage:      r.ErrorMessage,
		SalesOrderID:      r.SalesOrderID,
		TransactionNumber: r.TransactionNumber,
		CustomerID:        r.CustomerID,
		ItemsTotal:        r.ItemsTotal,
		TargetSubtotal:    r.TargetSubtotal,
		Discount:          r.Discount,
		AttemptedAt:       r.AttemptedAt,
	}
}
