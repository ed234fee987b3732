package enums

import "fmt"

// InventoryChangeType categorizes entries in the inventory audit log.
type InventoryChangeType string

const (
	InventoryChangeInitial  InventoryChangeType = "initial"
	InventoryChangePurchase InventoryChangeType = "purchase"
	InventoryChangeRefund   InventoryChangeType = "refund"
	InventoryChangeManual   InventoryChangeType = "manual"
)

var validInventoryChangeTypes = []InventoryChangeType{
	InventoryChangeInitial,
	InventoryChangePurchase,
	InventoryChangeRefund,
	InventoryChangeManual,
}

// String implements fmt.Stringer.
func (c InventoryChangeType) String() string {
	return string(c)
}

// IsValid reports whether the value is a known InventoryChangeType.
func (c InventoryChangeType) IsValid() bool {
	for _, candidate := range validInventoryChangeTypes {
		if candidate == c {
			return true
		}
	}
	return false
}

// ParseInventoryChangeType converts raw input into an InventoryChangeType.
func ParseInventoryChangeType(value string) (InventoryChangeType, error) {
	for _, candidate := range validInventoryChangeTypes {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid inventory change type %q", value)
}
