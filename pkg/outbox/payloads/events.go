package payloads

import (
	"time"

	"github.com/google/uuid"

	"github.com/luisarteaga/marketdesk-backend/pkg/enums"
)

// BatchCreatedEvent is emitted when a settlement batch is persisted with its items.
type BatchCreatedEvent struct {
	BatchID    uuid.UUID   `json:"batch_id"`
	VendorName string      `json:"vendor_name"`
	Total      string      `json:"total"`
	ItemCount  int         `json:"item_count"`
	LineItems  []uuid.UUID `json:"line_item_ids"`
	Reference  string      `json:"reference,omitempty"`
}

// BatchRolledBackEvent records a compensating delete after a failed creation step.
type BatchRolledBackEvent struct {
	BatchID    uuid.UUID `json:"batch_id"`
	VendorName string    `json:"vendor_name"`
	Reason     string    `json:"reason"`
	ItemCount  int       `json:"item_count"`
}

// MonthMarkedPaidEvent records a manual month payout confirmation.
type MonthMarkedPaidEvent struct {
	BatchID    uuid.UUID `json:"batch_id"`
	VendorName string    `json:"vendor_name"`
	Year       int       `json:"year"`
	Month      int       `json:"month"`
	ItemCount  int       `json:"item_count"`
	Total      string    `json:"total"`
}

// RefundAppliedEvent is emitted when a refund lands on a line item.
type RefundAppliedEvent struct {
	LineItemID     uuid.UUID          `json:"line_item_id"`
	OrderID        uuid.UUID          `json:"order_id"`
	VendorName     string             `json:"vendor_name"`
	RefundType     enums.RefundType   `json:"refund_type"`
	Amount         string             `json:"amount"`
	DeductionOwed  bool               `json:"deduction_owed"`
	SettledBatchID *uuid.UUID         `json:"settled_batch_id,omitempty"`
	ResultStatus   enums.RefundStatus `json:"result_status"`
}

// LineItemsStatusChangedEvent captures a bulk status update on an order.
type LineItemsStatusChangedEvent struct {
	OrderID   uuid.UUID            `json:"order_id"`
	Status    enums.LineItemStatus `json:"status"`
	ItemIDs   []uuid.UUID          `json:"item_ids"`
	FailedIDs []uuid.UUID          `json:"failed_ids,omitempty"`
}

// OrphanBatchSweptEvent records removal of an empty batch past the grace window.
type OrphanBatchSweptEvent struct {
	BatchID    uuid.UUID `json:"batch_id"`
	VendorName string    `json:"vendor_name"`
	CreatedAt  time.Time `json:"created_at"`
	SweptAt    time.Time `json:"swept_at"`
}
