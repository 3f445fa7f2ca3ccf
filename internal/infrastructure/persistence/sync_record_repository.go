package persistence

import (
	"context"
	"errors"
	"fmt"

	domain "github.com/erp/ordersync/internal/domain/ordersync"
	"github.com/erp/ordersync/internal/infrastructure/persistence/models"
	"gorm.io/gorm"
)

const defaultRecordListLimit = 50

// GormSyncRecordRepository implements domain.SyncRecordRepository on GORM
type GormSyncRecordRepository struct {
	db *gorm.DB
}

var _ domain.SyncRecordRepository = (*GormSyncRecordRepository)(nil)

// NewGormSyncRecordRepository creates a new GormSyncRecordRepository
func NewGormSyncRecordRepository(db *gorm.DB) *GormSyncRecordRepository {
	return &GormSyncRecordRepository{db: db}
}

// Save inserts one sync attempt
func (r *GormSyncRecordRepository) Save(ctx context.Context, record *domain.SyncRecord) error {
	if record == nil {
		return errors.New("sync record cannot be nil")
	}
	model := models.SyncRecordModelFromDomain(record)
	if err := r.db.WithContext(ctx).Create(model).Error; err != nil {
		return fmt.Errorf("failed to save sync record for order %s: %w", record.OrderID, err)
	}
	record.CreatedAt = model.CreatedAt
	return nil
}

// FindLatestByOrderID returns the newest attempt for an order, or nil when none exists
func (r *GormSyncRecordRepository) FindLatestByOrderID(ctx context.Context, orderID string) (*domain.SyncRecord, error) {
	var model models.SyncRecordModel
	err := r.db.WithContext(ctx).
		Where("order_id = ?", orderID).
		Order("attempted_at DESC").
		Order("created_at DESC").
		First(&model).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to find sync record for order %s: %w", orderID, err)
	}
	return model.ToDomain(), nil
}

// FindLatestByOrderIDs returns the newest attempt per order ID using a single query.
// Orders without any attempt are absent from the map.
func (r *GormSyncRecordRepository) FindLatestByOrderIDs(ctx context.Context, orderIDs []string) (map[string]*domain.SyncRecord, error) {
	result := make(map[string]*domain.SyncRecord, len(orderIDs))
	if len(orderIDs) == 0 {
		return result, nil
	}

	var rows []models.SyncRecordModel
	err := r.db.WithContext(ctx).
		Where("order_id IN ?", orderIDs).
		Order("order_id ASC").
		Order("attempted_at DESC").
		Order("created_at DESC").
		Find(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("failed to find sync records: %w", err)
	}

	for i := range rows {
		if _, seen := result[rows[i].OrderID]; seen {
			continue
		}
		result[rows[i].OrderID] = rows[i].ToDomain()
	}
	return result, nil
}

// ListByOrderID returns attempts for an order, newest first
func (r *GormSyncRecordRepository) ListByOrderID(ctx context.Context, orderID string, limit int) ([]domain.SyncRecord, error) {
	if limit <= 0 {
		limit = defaultRecordListLimit
	}

	var rows []models.SyncRecordModel
	err := r.db.WithContext(ctx).
		Where("order_id = ?", orderID).
		Order("attempted_at DESC").
		Order("created_at DESC").
		Limit(limit).
		Find(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list sync records for order %s: %w", orderID, err)
	}

	records := make([]domain.SyncRecord, len(rows))
	for i := range rows {
		records[i] = *rows[i].ToDomain()
	}
	return records, nil
}
