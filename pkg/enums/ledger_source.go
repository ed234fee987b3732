package enums

import "fmt"

// LedgerSource names where a derived earnings ledger entry comes from.
type LedgerSource string

const (
	LedgerSourceProduct            LedgerSource = "product"
	LedgerSourceMembership         LedgerSource = "membership"
	LedgerSourceCommission         LedgerSource = "commission"
	LedgerSourceRefund             LedgerSource = "refund"
	LedgerSourceCommissionReversal LedgerSource = "commission_reversal"
)

var validLedgerSources = []LedgerSource{
	LedgerSourceProduct,
	LedgerSourceMembership,
	LedgerSourceCommission,
	LedgerSourceRefund,
	LedgerSourceCommissionReversal,
}

// String implements fmt.Stringer.
func (s LedgerSource) String() string {
	return string(s)
}

// IsValid reports whether the value is a known LedgerSource.
func (s LedgerSource) IsValid() bool {
	for _, candidate := range validLedgerSources {
		if candidate == s {
			return true
		}
	}
	return false
}

// ParseLedgerSource converts raw input into a LedgerSource.
func ParseLedgerSource(value string) (LedgerSource, error) {
	for _, candidate := range validLedgerSources {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid ledger source %q", value)
}
