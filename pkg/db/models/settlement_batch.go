package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/luisarteaga/marketdesk-backend/pkg/enums"
)

// SettlementBatch is one payout event to one vendor. TotalAmount is captured
// at creation time and never recomputed; once completed the batch is immutable.
type SettlementBatch struct {
	ID          uuid.UUID         `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	VendorName  string            `gorm:"column:vendor_name;not null;index"`
	TotalAmount decimal.Decimal   `gorm:"column:total_amount;type:numeric(12,2);not null"`
	Status      enums.BatchStatus `gorm:"column:status;type:batch_status;not null;default:'requested'"`
	Reference   *string           `gorm:"column:reference"`
	ProcessedBy string            `gorm:"column:processed_by;not null"`
	Items       []BatchItem       `gorm:"foreignKey:BatchID;constraint:OnDelete:CASCADE"`
	CreatedAt   time.Time         `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt   time.Time         `gorm:"column:updated_at;autoUpdateTime"`
}
