package enums

import "fmt"

// BatchStatus is the lifecycle state of a settlement batch. A requested batch
// still reserves its items; completed, rejected and failed are terminal.
// The requested → processing → completed progression is driven by an external
// approval flow, this service only records it.
type BatchStatus string

const (
	BatchStatusRequested  BatchStatus = "requested"
	BatchStatusProcessing BatchStatus = "processing"
	BatchStatusCompleted  BatchStatus = "completed"
	BatchStatusRejected   BatchStatus = "rejected"
	BatchStatusFailed     BatchStatus = "failed"
)

var validBatchStatuses = []BatchStatus{
	BatchStatusRequested,
	BatchStatusProcessing,
	BatchStatusCompleted,
	BatchStatusRejected,
	BatchStatusFailed,
}

// String implements fmt.Stringer.
func (b BatchStatus) String() string {
	return string(b)
}

// IsValid reports whether the value is a known BatchStatus.
func (b BatchStatus) IsValid() bool {
	for _, candidate := range validBatchStatuses {
		if candidate == b {
			return true
		}
	}
	return false
}

// IsTerminal reports whether the batch can no longer change state.
func (b BatchStatus) IsTerminal() bool {
	switch b {
	case BatchStatusCompleted, BatchStatusRejected, BatchStatusFailed:
		return true
	default:
		return false
	}
}

// ParseBatchStatus converts raw input into a BatchStatus.
func ParseBatchStatus(value string) (BatchStatus, error) {
	for _, candidate := range validBatchStatuses {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid batch status %q", value)
}
