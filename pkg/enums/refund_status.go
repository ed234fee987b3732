package enums

import "fmt"

// RefundStatus tracks a refund request through review and gateway settlement.
type RefundStatus string

const (
	RefundStatusRequested  RefundStatus = "requested"
	RefundStatusApproved   RefundStatus = "approved"
	RefundStatusRejected   RefundStatus = "rejected"
	RefundStatusProcessing RefundStatus = "processing"
	RefundStatusSucceeded  RefundStatus = "succeeded"
	RefundStatusFailed     RefundStatus = "failed"
)

var validRefundStatuses = []RefundStatus{
	RefundStatusRequested,
	RefundStatusApproved,
	RefundStatusRejected,
	RefundStatusProcessing,
	RefundStatusSucceeded,
	RefundStatusFailed,
}

// String implements fmt.Stringer.
func (r RefundStatus) String() string {
	return string(r)
}

// IsValid reports whether the value is a known RefundStatus.
func (r RefundStatus) IsValid() bool {
	for _, candidate := range validRefundStatuses {
		if candidate == r {
			return true
		}
	}
	return false
}

// IsTerminal reports whether the status admits no further transitions.
func (r RefundStatus) IsTerminal() bool {
	switch r {
	case RefundStatusRejected, RefundStatusSucceeded, RefundStatusFailed:
		return true
	}
	return false
}

// ReservesItem reports whether a refund in this status blocks another refund
// against the same order item.
func (r RefundStatus) ReservesItem() bool {
	return r == RefundStatusProcessing || r == RefundStatusSucceeded
}

// ParseRefundStatus converts raw input into a RefundStatus.
func ParseRefundStatus(value string) (RefundStatus, error) {
	for _, candidate := range validRefundStatuses {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid refund status %q", value)
}
