package enums

import "fmt"

// RefundReasonTag is the structured reason forwarded to the payment gateway.
type RefundReasonTag string

const (
	RefundReasonDuplicate           RefundReasonTag = "duplicate"
	RefundReasonFraudulent          RefundReasonTag = "fraudulent"
	RefundReasonRequestedByCustomer RefundReasonTag = "requested_by_customer"
	RefundReasonAdminOverride       RefundReasonTag = "admin_override"
)

var validRefundReasonTags = []RefundReasonTag{
	RefundReasonDuplicate,
	RefundReasonFraudulent,
	RefundReasonRequestedByCustomer,
	RefundReasonAdminOverride,
}

// String implements fmt.Stringer.
func (r RefundReasonTag) String() string {
	return string(r)
}

// IsValid reports whether the value is a known RefundReasonTag.
func (r RefundReasonTag) IsValid() bool {
	for _, candidate := range validRefundReasonTags {
		if candidate == r {
			return true
		}
	}
	return false
}

// ParseRefundReasonTag converts raw input into a RefundReasonTag.
func ParseRefundReasonTag(value string) (RefundReasonTag, error) {
	for _, candidate := range validRefundReasonTags {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid refund reason tag %q", value)
}
