package refunds

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/luisarteaga/marketdesk-backend/pkg/db/models"
	"github.com/luisarteaga/marketdesk-backend/pkg/enums"
)

// Repository persists refund state transitions and the payout deductions that
// follow from refunds on already-settled items.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	FindLineItem(ctx context.Context, lineItemID uuid.UUID) (*models.LineItem, error)
	UpdateRefund(ctx context.Context, lineItemID uuid.UUID, status enums.RefundStatus, refundedAmount decimal.Decimal) error
	FindSettledBatchItem(ctx context.Context, lineItemID uuid.UUID) (*models.BatchItem, error)
	UpsertDeduction(ctx context.Context, deduction *models.PayoutDeduction) error
	ListOpenDeductions(ctx context.Context, vendorName string) ([]models.PayoutDeduction, error)
}

type repository struct {
	db *gorm.DB
}

// NewRepository returns a refund repository bound to the provided database.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) FindLineItem(ctx context.Context, lineItemID uuid.UUID) (*models.LineItem, error) {
	var item models.LineItem
	if err := r.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		First(&item, "id = ?", lineItemID).Error; err != nil {
		return nil, err
	}
	return &item, nil
}

func (r *repository) UpdateRefund(ctx context.Context, lineItemID uuid.UUID, status enums.RefundStatus, refundedAmount decimal.Decimal) error {
	return r.db.WithContext(ctx).
		Model(&models.LineItem{}).
		Where("id = ?", lineItemID).
		Updates(map[string]any{
			"refund_status":   status,
			"refunded_amount": refundedAmount,
		}).Error
}

// FindSettledBatchItem returns the batch item freezing this line item's payout
// inside a completed batch, or nil when the item was never paid out. Requested
// batches do not count; their items are still reclaimable by rollback.
func (r *repository) FindSettledBatchItem(ctx context.Context, lineItemID uuid.UUID) (*models.BatchItem, error) {
	var item models.BatchItem
	err := r.db.WithContext(ctx).
		Joins("JOIN settlement_batches ON settlement_batches.id = batch_items.batch_id").
		Where("batch_items.line_item_id = ?", lineItemID).
		Where("settlement_batches.status = ?", enums.BatchStatusCompleted).
		First(&item).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &item, nil
}

// UpsertDeduction writes the deduction keyed by line item. A full refund that
// follows a partial one replaces the smaller deduction with the frozen amount.
func (r *repository) UpsertDeduction(ctx context.Context, deduction *models.PayoutDeduction) error {
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "line_item_id"}},
			DoUpdates: clause.AssignmentColumns([]string{"amount", "settled_batch_id"}),
		}).
		Create(deduction).Error
}

func (r *repository) ListOpenDeductions(ctx context.Context, vendorName string) ([]models.PayoutDeduction, error) {
	var deductions []models.PayoutDeduction
	err := r.db.WithContext(ctx).
		Where("vendor_name = ?", vendorName).
		Where("applied_batch_id IS NULL").
		Order("created_at ASC").
		Find(&deductions).Error
	if err != nil {
		return nil, err
	}
	return deductions, nil
}
