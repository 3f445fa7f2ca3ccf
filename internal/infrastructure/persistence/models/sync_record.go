package models

import (
	"time"

	domain "github.com/erp/ordersync/internal/domain/ordersync"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// SyncRecordModel is the persistence model for one order sync attempt
type SyncRecordModel struct {
	ID                uuid.UUID       `gorm:"type:uuid;primaryKey"`
	OrderID           string          `gorm:"type:varchar(64);not null;index:idx_order_sync_records_order_attempted,priority:1"`
	ExternalRef       string          `gorm:"type:varchar(100);not null"`
	State             string          `gorm:"type:varchar(20);not null"`
	Stage             string          `gorm:"type:varchar(20);not null"`
	ErrorKind         string          `gorm:"type:varchar(40)"`
	ErrorMessage      string          `gorm:"type:text"`
	SalesOrderID      int             `gorm:"not null;default:0"`
	TransactionNumber string          `gorm:"type:varchar(64)"`
	CustomerID        int             `gorm:"not null;default:0"`
	ItemsTotal        decimal.Decimal `gorm:"type:decimal(18,4);not null;default:0"`
	TargetSubtotal    decimal.Decimal `gorm:"type:decimal(18,4);not null;default:0"`
	Discount          decimal.Decimal `gorm:"type:decimal(18,4);not null;default:0"`
	AttemptedAt       time.Time       `gorm:"not null;index:idx_order_sync_records_order_attempted,priority:2;index"`
	CreatedAt         time.Time       `gorm:"autoCreateTime"`
}

// TableName returns the table name for GORM
func (SyncRecordModel) TableName() string {
	return "order_sync_records"
}

// ToDomain converts the persistence model to a domain SyncRecord
func (m *SyncRecordModel) ToDomain() *domain.SyncRecord {
	return &domain.SyncRecord{
		ID:                m.ID,
		OrderID:           m.OrderID,
		ExternalRef:       m.ExternalRef,
		State:             domain.SyncState(m.State),
		Stage:             domain.SyncStage(m.Stage),
		ErrorKind:         domain.ErrorKind(m.ErrorKind),
		ErrorMessage:      m.ErrorMessage,
		SalesOrderID:      m.SalesOrderID,
		TransactionNumber: m.TransactionNumber,
		CustomerID:        m.CustomerID,
		ItemsTotal:        m.ItemsTotal,
		TargetSubtotal:    m.TargetSubtotal,
		Discount:          m.Discount,
		AttemptedAt:       m.AttemptedAt,
		CreatedAt:         m.CreatedAt,
	}
}

// FromDomain populates the persistence model from a domain SyncRecord
func (m *SyncRecordModel) FromDomain(r *domain.SyncRecord) {
	m.ID = r.ID
	m.OrderID = r.OrderID
	m.ExternalRef = r.ExternalRef
	m.State = string(r.State)
	m.Stage = string(r.Stage)
	m.ErrorKind = string(r.ErrorKind)
	m.ErrorMessage = r.ErrorMessage
	m.SalesOrderID = r.SalesOrderID
	m.TransactionNumber = r.TransactionNumber
	m.CustomerID = r.CustomerID
	m.ItemsTotal = r.ItemsTotal
	m.TargetSubtotal = r.TargetSubtotal
	m.Discount = r.Discount
	m.AttemptedAt = r.AttemptedAt
	m.CreatedAt = r.CreatedAt
}

// SyncRecordModelFromDomain creates a persistence model from a domain SyncRecord
func SyncRecordModelFromDomain(r *domain.SyncRecord) *SyncRecordModel {
	m := &SyncRecordModel{}
	m.FromDomain(r)
	return m
}
