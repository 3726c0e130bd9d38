package enums

import "fmt"

// OutboxAggregateType maps to the aggregate_type enum in Postgres.
type OutboxAggregateType string

const (
	AggregateSettlementBatch OutboxAggregateType = "settlement_batch"
	AggregateLineItem        OutboxAggregateType = "line_item"
	AggregateOrder           OutboxAggregateType = "order"
)

var validAggregateTypes = []OutboxAggregateType{
	AggregateSettlementBatch,
	AggregateLineItem,
	AggregateOrder,
}

// IsValid reports whether the value matches the canonical aggregate_type enum.
func (a OutboxAggregateType) IsValid() bool {
	for _, candidate := range validAggregateTypes {
		if candidate == a {
			return true
		}
	}
	return false
}

// ParseOutboxAggregateType converts raw input into OutboxAggregateType.
func ParseOutboxAggregateType(value string) (OutboxAggregateType, error) {
	for _, candidate := range validAggregateTypes {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid aggregate type %q", value)
}

// OutboxEventType maps to the event_type enum in Postgres. Every money-moving
// operation reports exactly one audit event through the outbox.
type OutboxEventType string

const (
	EventBatchCreated       OutboxEventType = "batch_created"
	EventBatchRolledBack    OutboxEventType = "batch_rolled_back"
	EventMonthMarkedPaid    OutboxEventType = "month_marked_paid"
	EventRefundApplied      OutboxEventType = "refund_applied"
	EventLineItemsStatusSet OutboxEventType = "line_items_status_changed"
	EventOrphanBatchSwept   OutboxEventType = "orphan_batch_swept"
)

var validOutboxEventTypes = []OutboxEventType{
	EventBatchCreated,
	EventBatchRolledBack,
	EventMonthMarkedPaid,
	EventRefundApplied,
	EventLineItemsStatusSet,
	EventOrphanBatchSwept,
}

// IsValid reports whether the value matches the canonical event_type enum.
func (e OutboxEventType) IsValid() bool {
	for _, candidate := range validOutboxEventTypes {
		if candidate == e {
			return true
		}
	}
	return false
}

// ParseOutboxEventType converts raw input into OutboxEventType.
func ParseOutboxEventType(value string) (OutboxEventType, error) {
	for _, candidate := range validOutboxEventTypes {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid event type %q", value)
}
