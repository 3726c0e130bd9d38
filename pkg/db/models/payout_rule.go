package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// PayoutRule is the externally supplied payout policy for a (product, vendor)
// pair. When no row exists for a pair the payout is undetermined, never zero.
type PayoutRule struct {
	ID           uuid.UUID       `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	ProductID    uuid.UUID       `gorm:"column:product_id;type:uuid;not null;uniqueIndex:ux_payout_rules_product_vendor"`
	VendorName   string          `gorm:"column:vendor_name;not null;uniqueIndex:ux_payout_rules_product_vendor"`
	PayoutAmount decimal.Decimal `gorm:"column:payout_amount;type:numeric(12,4);not null"`
	IsPercentage bool            `gorm:"column:is_percentage;not null;default:false"`
	CreatedAt    time.Time       `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt    time.Time       `gorm:"column:updated_at;autoUpdateTime"`
}
