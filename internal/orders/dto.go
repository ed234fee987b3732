package orders

import (
	"github.com/google/uuid"

	"github.com/fitmarkethq/fitmarket-backend/pkg/enums"
)

// CartLine is one requested product/quantity pair.
type CartLine struct {
	ProductID uuid.UUID
	Quantity  int
}

// PlaceOrderInput is the checkout request. Shipping comes from the user's
// profile unless a pickup location is chosen.
type PlaceOrderInput struct {
	UserID           uuid.UUID
	Lines            []CartLine
	PickupLocationID *uuid.UUID
	PaymentIntentID  string
}

// UpdateShippingInput mutates an order's fulfillment fields. Address fields
// only apply while the shipping snapshot is unlocked; tracking and carrier
// always apply.
type UpdateShippingInput struct {
	OrderID         uuid.UUID
	TrackingNumber  *string
	ShippingCarrier *enums.ShippingCarrier
	Address         *AddressInput
}

// AddressInput is a full replacement shipping address.
type AddressInput struct {
	Name       string
	Phone      string
	Address1   string
	Address2   string
	City       string
	Province   string
	PostalCode string
	Country    string
}

// StockShortage reports one line that could not be satisfied.
type StockShortage struct {
	ProductID uuid.UUID `json:"product_id"`
	Requested int       `json:"requested"`
	Available int       `json:"available"`
}
