package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/luisarteaga/marketdesk-backend/pkg/enums"
)

// LineItem is one purchased unit within an order. Rows are never deleted;
// admin corrections flip Status instead so historical batches stay auditable.
type LineItem struct {
	ID                uuid.UUID               `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	OrderID           uuid.UUID               `gorm:"column:order_id;type:uuid;not null;index"`
	ProductID         uuid.UUID               `gorm:"column:product_id;type:uuid;not null"`
	VendorName        string                  `gorm:"column:vendor_name;not null;index"`
	Price             decimal.Decimal         `gorm:"column:price;type:numeric(12,4);not null"`
	Qty               int                     `gorm:"column:qty;not null;default:1"`
	Status            enums.LineItemStatus    `gorm:"column:status;type:line_item_status;not null;default:'active'"`
	FulfillmentStatus enums.FulfillmentStatus `gorm:"column:fulfillment_status;type:fulfillment_status;not null;default:'unfulfilled'"`
	RefundStatus      enums.RefundStatus      `gorm:"column:refund_status;type:refund_status;not null;default:'none'"`
	RefundedAmount    *decimal.Decimal        `gorm:"column:refunded_amount;type:numeric(12,4)"`
	FulfilledAt       *time.Time              `gorm:"column:fulfilled_at"`
	CreatedAt         time.Time               `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt         time.Time               `gorm:"column:updated_at;autoUpdateTime"`
}

// PayoutEligible reports whether the item satisfies the payout-eligibility
// invariant: active, fully fulfilled, and not fully refunded. Partially
// refunded items stay payable at the reduced base (price minus RefundedAmount).
func (l LineItem) PayoutEligible() bool {
	return l.Status == enums.LineItemStatusActive &&
		l.FulfillmentStatus == enums.FulfillmentStatusFulfilled &&
		l.RefundStatus != enums.RefundStatusFull
}

// PayoutBase is the amount payout rules apply to: unit price less any
// partial refund, floored at zero.
func (l LineItem) PayoutBase() decimal.Decimal {
	base := l.Price
	if l.RefundedAmount != nil {
		base = base.Sub(*l.RefundedAmount)
	}
	if base.IsNegative() {
		return decimal.Zero
	}
	return base
}
