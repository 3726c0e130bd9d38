package pending

import (
	"context"
	"time"

	"gorm.io/gorm"

	"github.com/luisarteaga/marketdesk-backend/pkg/db/models"
	"github.com/luisarteaga/marketdesk-backend/pkg/enums"
)

// DateRange bounds eligibility on the fulfillment timestamp. Zero values mean
// unbounded on that side.
type DateRange struct {
	From time.Time
	To   time.Time
}

// Repository runs the eligibility queries. The set-difference against
// batch_items covers every settlement batch regardless of its status: a batch
// that is merely requested still reserves its items.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	ListUnbatched(ctx context.Context, vendorName string, dateRange *DateRange) ([]models.LineItem, error)
	CountCandidates(ctx context.Context, vendorName string, dateRange *DateRange) (int64, error)
}

type repository struct {
	db *gorm.DB
}

// NewRepository returns a pending item repository bound to the provided database.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) ListUnbatched(ctx context.Context, vendorName string, dateRange *DateRange) ([]models.LineItem, error) {
	batched := r.db.Model(&models.BatchItem{}).Select("line_item_id")

	query := r.eligibleQuery(ctx, vendorName, dateRange).
		Where("id NOT IN (?)", batched).
		Order("fulfilled_at ASC").
		Order("id ASC")

	var items []models.LineItem
	if err := query.Find(&items).Error; err != nil {
		return nil, err
	}
	return items, nil
}

func (r *repository) CountCandidates(ctx context.Context, vendorName string, dateRange *DateRange) (int64, error) {
	var count int64
	err := r.eligibleQuery(ctx, vendorName, dateRange).Count(&count).Error
	return count, err
}

func (r *repository) eligibleQuery(ctx context.Context, vendorName string, dateRange *DateRange) *gorm.DB {
	query := r.db.WithContext(ctx).
		Model(&models.LineItem{}).
		Where("vendor_name = ?", vendorName).
		Where("status = ?", enums.LineItemStatusActive).
		Where("fulfillment_status = ?", enums.FulfillmentStatusFulfilled).
		Where("refund_status <> ?", enums.RefundStatusFull)
	if dateRange != nil {
		if !dateRange.From.IsZero() {
			query = query.Where("fulfilled_at >= ?", dateRange.From)
		}
		if !dateRange.To.IsZero() {
			query = query.Where("fulfilled_at < ?", dateRange.To)
		}
	}
	return query
}
