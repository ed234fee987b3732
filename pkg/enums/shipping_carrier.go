package enums

import "fmt"

// ShippingCarrier identifies the carrier handling a shipped order.
type ShippingCarrier string

const (
	ShippingCarrierCanadaPost ShippingCarrier = "canadapost"
	ShippingCarrierUPS        ShippingCarrier = "ups"
	ShippingCarrierFedEx      ShippingCarrier = "fedex"
	ShippingCarrierDHL        ShippingCarrier = "dhl"
	ShippingCarrierOther      ShippingCarrier = "other"
)

var validShippingCarriers = []ShippingCarrier{
	ShippingCarrierCanadaPost,
	ShippingCarrierUPS,
	ShippingCarrierFedEx,
	ShippingCarrierDHL,
	ShippingCarrierOther,
}

// String implements fmt.Stringer.
func (c ShippingCarrier) String() string {
	return string(c)
}

// IsValid reports whether the value is a known ShippingCarrier.
func (c ShippingCarrier) IsValid() bool {
	for _, candidate := range validShippingCarriers {
		if candidate == c {
			return true
		}
	}
	return false
}

// ParseShippingCarrier converts raw input into a ShippingCarrier.
func ParseShippingCarrier(value string) (ShippingCarrier, error) {
	for _, candidate := range validShippingCarriers {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid shipping carrier %q", value)
}
