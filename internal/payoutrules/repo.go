package payoutrules

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/luisarteaga/marketdesk-backend/pkg/db/models"
)

// Repository manages persistence for payout rules.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	FindByProductVendor(ctx context.Context, productID uuid.UUID, vendorName string) (*models.PayoutRule, error)
	ListByVendor(ctx context.Context, vendorName string) ([]models.PayoutRule, error)
	Upsert(ctx context.Context, rule *models.PayoutRule) error
}

type repository struct {
	db *gorm.DB
}

// NewRepository returns a payout rule repository bound to the provided database.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) FindByProductVendor(ctx context.Context, productID uuid.UUID, vendorName string) (*models.PayoutRule, error) {
	var rule models.PayoutRule
	err := r.db.WithContext(ctx).
		Where("product_id = ? AND vendor_name = ?", productID, vendorName).
		First(&rule).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &rule, nil
}

func (r *repository) ListByVendor(ctx context.Context, vendorName string) ([]models.PayoutRule, error) {
	var rules []models.PayoutRule
	if err := r.db.WithContext(ctx).
		Where("vendor_name = ?", vendorName).
		Order("created_at ASC").
		Find(&rules).Error; err != nil {
		return nil, err
	}
	return rules, nil
}

func (r *repository) Upsert(ctx context.Context, rule *models.PayoutRule) error {
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "product_id"}, {Name: "vendor_name"}},
			DoUpdates: clause.AssignmentColumns([]string{"payout_amount", "is_percentage", "updated_at"}),
		}).
		Create(rule).Error
}
