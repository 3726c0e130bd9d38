package duplicates

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/luisarteaga/marketdesk-backend/pkg/db/models"
	"github.com/luisarteaga/marketdesk-backend/pkg/enums"
)

// Repository manages line item reads/writes for duplicate handling.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	ListByOrder(ctx context.Context, orderID uuid.UUID) ([]models.LineItem, error)
	FindByIDs(ctx context.Context, ids []uuid.UUID) ([]models.LineItem, error)
	UpdateStatus(ctx context.Context, ids []uuid.UUID, status enums.LineItemStatus) error
}

type repository struct {
	db *gorm.DB
}

// NewRepository returns a duplicates repository bound to the provided database.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) ListByOrder(ctx context.Context, orderID uuid.UUID) ([]models.LineItem, error) {
	var items []models.LineItem
	if err := r.db.WithContext(ctx).
		Where("order_id = ?", orderID).
		Order("created_at ASC").
		Order("id ASC").
		Find(&items).Error; err != nil {
		return nil, err
	}
	return items, nil
}

func (r *repository) FindByIDs(ctx context.Context, ids []uuid.UUID) ([]models.LineItem, error) {
	var items []models.LineItem
	if err := r.db.WithContext(ctx).
		Where("id IN ?", ids).
		Find(&items).Error; err != nil {
		return nil, err
	}
	return items, nil
}

func (r *repository) UpdateStatus(ctx context.Context, ids []uuid.UUID, status enums.LineItemStatus) error {
	return r.db.WithContext(ctx).
		Model(&models.LineItem{}).
		Where("id IN ?", ids).
		Update("status", status).Error
}
