package ordersync

import (
	"context"
	"time"

	domain "github.com/erp/ordersync/internal/domain/ordersync"
	"github.com/stretchr/testify/mock"
)

// MockAccountingGateway is a mock implementation of AccountingGateway
type MockAccountingGateway struct {
	mock.Mock
}

func (m *MockAccountingGateway) FindCustomerByEmail(ctx context.Context, email string, includeAddresses bool) (*domain.Customer, error) {
	args := m.Called(ctx, email, includeAddresses)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Customer), args.Error(1)
}

func (m *MockAccountingGateway) CreateCustomer(ctx context.Context, payload *domain.CustomerPayload, parentID *int) (*domain.Customer, error) {
	args := m.Called(ctx, payload, parentID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Customer), args.Error(1)
}

func (m *MockAccountingGateway) ValidateItem(ctx context.Context, itemID string) (domain.ItemValidation, error) {
	args := m.Called(ctx, itemID)
	return args.Get(0).(domain.ItemValidation), args.Error(1)
}

func (m *MockAccountingGateway) CreateSalesOrder(ctx context.Context, payload *domain.SalesOrderPayload) (*domain.SalesOrderRef, error) {
	args := m.Called(ctx, payload)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.SalesOrderRef), args.Error(1)
}

func (m *MockAccountingGateway) GetSalesOrderByID(ctx context.Context, id int) (*domain.SalesOrder, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.SalesOrder), args.Error(1)
}

func (m *MockAccountingGateway) ExecuteAnalyticQuery(ctx context.Context, query string) (*domain.QueryResult, error) {
	args := m.Called(ctx, query)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.QueryResult), args.Error(1)
}

// MockCartGateway is a mock implementation of CartGateway
type MockCartGateway struct {
	mock.Mock
}

func (m *MockCartGateway) GetOrder(ctx context.Context, orderID string) (*domain.Order, error) {
	args := m.Called(ctx, orderID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Order), args.Error(1)
}

func (m *MockCartGateway) GetOrdersByDateRange(ctx context.Context, start, end time.Time, status *domain.OrderStatus) ([]domain.Order, error) {
	args := m.Called(ctx, start, end, status)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.Order), args.Error(1)
}

// MockSyncRecordRepository is a mock implementation of SyncRecordRepository
type MockSyncRecordRepository struct {
	mock.Mock
}

func (m *MockSyncRecordRepository) Save(ctx context.Context, record *domain.SyncRecord) error {
	args := m.Called(ctx, record)
	return args.Error(0)
}

func (m *MockSyncRecordRepository) FindLatestByOrderID(ctx context.Context, orderID string) (*domain.SyncRecord, error) {
	args := m.Called(ctx, orderID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.SyncRecord), args.Error(1)
}

func (m *MockSyncRecordRepository) FindLatestByOrderIDs(ctx context.Context, orderIDs []string) (map[string]*domain.SyncRecord, error) {
	args := m.Called(ctx, orderIDs)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(map[string]*domain.SyncRecord), args.Error(1)
}

func (m *MockSyncRecordRepository) ListByOrderID(ctx context.Context, orderID string, limit int) ([]domain.SyncRecord, error) {
	args := m.Called(ctx, orderID, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.SyncRecord), args.Error(1)
}

// MockPayloadArchive is a mock implementation of PayloadArchive
type MockPayloadArchive struct {
	mock.Mock
}

func (m *MockPayloadArchive) Archive(ctx context.Context, entry *domain.ArchiveEntry) error {
	args := m.Called(ctx, entry)
	return args.Error(0)
}

// Ensure mocks implement interfaces
var (
	_ domain.AccountingGateway    = (*MockAccountingGateway)(nil)
	_ domain.CartGateway          = (*MockCartGateway)(nil)
	_ domain.SyncRecordRepository = (*MockSyncRecordRepository)(nil)
	_ domain.PayloadArchive       = (*MockPayloadArchive)(nil)
)
