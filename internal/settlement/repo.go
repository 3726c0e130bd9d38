package settlement

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/luisarteaga/marketdesk-backend/pkg/db/models"
	"github.com/luisarteaga/marketdesk-backend/pkg/enums"
	"github.com/luisarteaga/marketdesk-backend/pkg/pagination"
)

// Repository manages persistence for settlement batches and their items.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	CreateBatch(ctx context.Context, batch *models.SettlementBatch) error
	ClaimedLineItems(ctx context.Context, lineItemIDs []uuid.UUID) (map[uuid.UUID]struct{}, error)
	InsertItem(ctx context.Context, item *models.BatchItem) (bool, error)
	UpdateTotal(ctx context.Context, batchID uuid.UUID, total decimal.Decimal) error
	FindByID(ctx context.Context, batchID uuid.UUID) (*models.SettlementBatch, error)
	List(ctx context.Context, vendorName string, limit int, cursor *pagination.Cursor) ([]models.SettlementBatch, error)
	DeleteBatch(ctx context.Context, batchID uuid.UUID) error
	ListOrphanRequested(ctx context.Context, olderThan time.Time) ([]models.SettlementBatch, error)
	ListDoublePaidLineItems(ctx context.Context) ([]uuid.UUID, error)
}

type repository struct {
	db *gorm.DB
}

// NewRepository returns a settlement repository bound to the provided database.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) CreateBatch(ctx context.Context, batch *models.SettlementBatch) error {
	return r.db.WithContext(ctx).Create(batch).Error
}

// ClaimedLineItems locks the candidate line item rows and returns the subset
// already attached to any batch. It must run inside the same transaction that
// inserts the batch items: the row locks serialize racing redemptions on the
// shared candidates, so the re-read cannot miss a claim committed by a
// transaction that held the locks first.
func (r *repository) ClaimedLineItems(ctx context.Context, lineItemIDs []uuid.UUID) (map[uuid.UUID]struct{}, error) {
	claimed := make(map[uuid.UUID]struct{})
	if len(lineItemIDs) == 0 {
		return claimed, nil
	}
	var locked []uuid.UUID
	err := r.db.WithContext(ctx).
		Model(&models.LineItem{}).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("id IN ?", lineItemIDs).
		Pluck("id", &locked).Error
	if err != nil {
		return nil, err
	}
	var taken []uuid.UUID
	err = r.db.WithContext(ctx).
		Model(&models.BatchItem{}).
		Where("line_item_id IN ?", lineItemIDs).
		Pluck("line_item_id", &taken).Error
	if err != nil {
		return nil, err
	}
	for _, id := range taken {
		claimed[id] = struct{}{}
	}
	return claimed, nil
}

// InsertItem writes a batch item with insert-or-ignore semantics on the
// (batch_id, line_item_id) pair. It reports false when the row already
// existed, so a retried request cannot attach an item twice to the same
// batch. Cross-batch claims are excluded by ClaimedLineItems before any
// insert runs.
func (r *repository) InsertItem(ctx context.Context, item *models.BatchItem) (bool, error) {
	result := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "batch_id"}, {Name: "line_item_id"}},
			DoNothing: true,
		}).
		Create(item)
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

func (r *repository) UpdateTotal(ctx context.Context, batchID uuid.UUID, total decimal.Decimal) error {
	return r.db.WithContext(ctx).
		Model(&models.SettlementBatch{}).
		Where("id = ?", batchID).
		Update("total_amount", total).Error
}

func (r *repository) FindByID(ctx context.Context, batchID uuid.UUID) (*models.SettlementBatch, error) {
	var batch models.SettlementBatch
	err := r.db.WithContext(ctx).
		Preload("Items").
		Where("id = ?", batchID).
		First(&batch).Error
	if err != nil {
		return nil, err
	}
	return &batch, nil
}

func (r *repository) List(ctx context.Context, vendorName string, limit int, cursor *pagination.Cursor) ([]models.SettlementBatch, error) {
	query := r.db.WithContext(ctx).Model(&models.SettlementBatch{})
	if vendorName != "" {
		query = query.Where("vendor_name = ?", vendorName)
	}
	if cursor != nil {
		query = query.Where(
			"(created_at, id) < (?, ?)",
			cursor.CreatedAt, cursor.ID,
		)
	}
	var batches []models.SettlementBatch
	err := query.
		Order("created_at DESC").
		Order("id DESC").
		Limit(limit).
		Find(&batches).Error
	if err != nil {
		return nil, err
	}
	return batches, nil
}

func (r *repository) DeleteBatch(ctx context.Context, batchID uuid.UUID) error {
	return r.db.WithContext(ctx).
		Where("id = ?", batchID).
		Delete(&models.SettlementBatch{}).Error
}

// ListOrphanRequested returns requested batches older than the cutoff with no
// attached items. These are leftovers of a crash mid-creation.
func (r *repository) ListOrphanRequested(ctx context.Context, olderThan time.Time) ([]models.SettlementBatch, error) {
	var batches []models.SettlementBatch
	err := r.db.WithContext(ctx).
		Where("status = ?", enums.BatchStatusRequested).
		Where("created_at < ?", olderThan).
		Where("id NOT IN (?)", r.db.Model(&models.BatchItem{}).Select("batch_id")).
		Order("created_at ASC").
		Find(&batches).Error
	if err != nil {
		return nil, err
	}
	return batches, nil
}

// ListDoublePaidLineItems returns line item ids attached to more than one
// batch. A non-empty result means the core invariant is broken.
func (r *repository) ListDoublePaidLineItems(ctx context.Context) ([]uuid.UUID, error) {
	var ids []uuid.UUID
	err := r.db.WithContext(ctx).
		Model(&models.BatchItem{}).
		Select("line_item_id").
		Group("line_item_id").
		Having("COUNT(*) > 1").
		Find(&ids).Error
	if err != nil {
		return nil, err
	}
	return ids, nil
}
