package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// BatchItem joins a settlement batch to a line item. The unique
// (batch_id, line_item_id) pair is the concurrency-control primitive for the
// whole payout core; Amount is the payout frozen at batch-creation time and a
// later rule change must never alter it.
type BatchItem struct {
	ID                 uuid.UUID       `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	BatchID            uuid.UUID       `gorm:"column:batch_id;type:uuid;not null;uniqueIndex:ux_batch_items_batch_line_item"`
	LineItemID         uuid.UUID       `gorm:"column:line_item_id;type:uuid;not null;uniqueIndex:ux_batch_items_batch_line_item;index"`
	Amount             decimal.Decimal `gorm:"column:amount;type:numeric(12,2);not null"`
	ManuallyMarkedPaid bool            `gorm:"column:manually_marked_paid;not null;default:false"`
	MarkedBy           *string         `gorm:"column:marked_by"`
	MarkedAt           *time.Time      `gorm:"column:marked_at"`
	CreatedAt          time.Time       `gorm:"column:created_at;autoCreateTime"`
}
