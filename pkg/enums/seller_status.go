package enums

import "fmt"

// SellerStatus tracks a seller application through review.
type SellerStatus string

const (
	SellerStatusPending  SellerStatus = "pending"
	SellerStatusApproved SellerStatus = "approved"
	SellerStatusRejected SellerStatus = "rejected"
)

var validSellerStatuses = []SellerStatus{
	SellerStatusPending,
	SellerStatusApproved,
	SellerStatusRejected,
}

// String implements fmt.Stringer.
func (s SellerStatus) String() string {
	return string(s)
}

// IsValid reports whether the value is a known SellerStatus.
func (s SellerStatus) IsValid() bool {
	for _, candidate := range validSellerStatuses {
		if candidate == s {
			return true
		}
	}
	return false
}

// CanTransitionTo enforces the forward-only review flow: pending moves to
// approved or rejected, and neither review outcome is revisited.
func (s SellerStatus) CanTransitionTo(next SellerStatus) bool {
	if s != SellerStatusPending {
		return false
	}
	return next == SellerStatusApproved || next == SellerStatusRejected
}

// ParseSellerStatus converts raw input into a SellerStatus.
func ParseSellerStatus(value string) (SellerStatus, error) {
	for _, candidate := range validSellerStatuses {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid seller status %q", value)
}
