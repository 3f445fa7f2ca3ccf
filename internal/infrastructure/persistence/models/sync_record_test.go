package models

import (
	"testing"
	"time"

	domain "github.com/erp/ordersync/internal/domain/ordersync"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func TestSyncRecordModel_TableName(t *testing.T) {
	assert.Equal(t, "order_sync_records", SyncRecordModel{}.TableName())
}

func TestSyncRecordModel_DomainRoundTrip(t *testing.T) {
	at := time.Date(2024, 3, 1, 10, 30, 0, 0, time.UTC)
	record := &domain.SyncRecord{
		ID:                uuid.New(),
		OrderID:           "1001",
		ExternalRef:       "CART-1001",
		State:             domain.SyncStateFailed,
		Stage:             domain.SyncStageCreate,
		ErrorKind:         domain.ErrorKindGateway,
		ErrorMessage:      "accounting system returned 503",
		CustomerID:        42,
		ItemsTotal:        decimal.RequireFromString("120.50"),
		TargetSubtotal:    decimal.RequireFromString("110.50"),
		Discount:          decimal.RequireFromString("10"),
		AttemptedAt:       at,
		TransactionNumber: "",
	}

	model := SyncRecordModelFromDomain(record)
	assert.Equal(t, "FAILED", model.State)
	assert.Equal(t, "CREATE", model.Stage)
	assert.Equal(t, "GATEWAY", model.ErrorKind)

	back := model.ToDomain()
	assert.Equal(t, record.ID, back.ID)
	assert.Equal(t, record.State, back.State)
	assert.Equal(t, record.ErrorKind, back.ErrorKind)
	assert.True(t, record.ItemsTotal.Equal(back.ItemsTotal))
	assert.True(t, record.Discount.Equal(back.Discount))
	assert.Equal(t, at, back.AttemptedAt)
}
