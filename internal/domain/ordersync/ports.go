package ordersync

import (
	"context"
	"time"
)

// CartGateway reads orders from the storefront.
// GetOrder returns a *NotFoundError for unknown orders and an error wrapping
// ErrCartUnavailable (or a *GatewayError) for connectivity failures.
type CartGateway interface {
	GetOrder(ctx context.Context, orderID string) (*Order, error)
	// GetOrdersByDateRange returns orders placed in [start, end]; a nil status matches all
	GetOrdersByDateRange(ctx context.Context, start, end time.Time, status *OrderStatus) ([]Order, error)
}

// AccountingGateway talks to the accounting system
type AccountingGateway interface {
	// FindCustomerByEmail returns nil, nil when no customer matches
	FindCustomerByEmail(ctx context.Context, email string, includeAddresses bool) (*Customer, error)
	// CreateCustomer creates a customer and, when parentID is set, assigns the
	// parent in a separate write.
	CreateCustomer(ctx context.Context, payload *CustomerPayload, parentID *int) (*Customer, error)
	ValidateItem(ctx context.Context, itemID string) (ItemValidation, error)
	// CreateSalesOrder normalizes every success response shape into a SalesOrderRef.
	// It returns *DuplicateOrderError when the destination reports a duplicate and
	// *ResponseShapeError when no identifier can be recovered.
	CreateSalesOrder(ctx context.Context, payload *SalesOrderPayload) (*SalesOrderRef, error)
	// GetSalesOrderByID returns nil, nil when the order does not exist
	GetSalesOrderByID(ctx context.Context, id int) (*SalesOrder, error)
	ExecuteAnalyticQuery(ctx context.Context, query string) (*QueryResult, error)
}

// SyncRecordRepository persists the local history of sync attempts
type SyncRecordRepository interface {
	Save(ctx context.Context, record *SyncRecord) error
	// FindLatestByOrderID returns nil, nil when no record exists
	FindLatestByOrderID(ctx context.Context, orderID string) (*SyncRecord, error)
	// FindLatestByOrderIDs returns the newest record per order ID in one query
	FindLatestByOrderIDs(ctx context.Context, orderIDs []string) (map[string]*SyncRecord, error)
	ListByOrderID(ctx context.Context, orderID string, limit int) ([]SyncRecord, error)
}

// PayloadArchive stores the raw order and mapped payload of an attempt
type PayloadArchive interface {
	Archive(ctx context.Context, entry *ArchiveEntry) error
}

// ArchiveEntry is one archived sync attempt
type ArchiveEntry struct {
	OrderID     string             `json:"order_id"`
	ExternalRef string             `json:"external_ref"`
	AttemptedAt time.Time          `json:"attempted_at"`
	State       SyncState          `json:"state"`
	Order       *Order             `json:"order,omitempty"`
	Payload     *SalesOrderPayload `json:"payload,omitempty"`
	Error       string             `json:"error,omitempty"`
}
