package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// PayoutDeduction is a refund-driven offset against a vendor's next
// settlement. It is written when a refund lands on a line item that was
// already paid in a completed batch; completed batches are never clawed back.
type PayoutDeduction struct {
	ID             uuid.UUID       `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	VendorName     string          `gorm:"column:vendor_name;not null;index"`
	LineItemID     uuid.UUID       `gorm:"column:line_item_id;type:uuid;not null;uniqueIndex:ux_payout_deductions_line_item"`
	Amount         decimal.Decimal `gorm:"column:amount;type:numeric(12,2);not null"`
	SettledBatchID uuid.UUID       `gorm:"column:settled_batch_id;type:uuid;not null"`
	AppliedBatchID *uuid.UUID      `gorm:"column:applied_batch_id;type:uuid"`
	CreatedAt      time.Time       `gorm:"column:created_at;autoCreateTime"`
}
