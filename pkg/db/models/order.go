package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/fitmarkethq/fitmarket-backend/pkg/enums"
	"github.com/fitmarkethq/fitmarket-backend/pkg/money"
)

// Order is the buyer-facing record of a completed checkout. The shipping
// fields are a snapshot taken at placement, not a live reference.
type Order struct {
	ID              uuid.UUID              `gorm:"column:id;type:uuid;primaryKey"`
	UserID          uuid.UUID              `gorm:"column:user_id;type:uuid;not null;index"`
	Status          enums.OrderStatus      `gorm:"column:status;not null;default:'pending'"`
	PaymentIntentID string                 `gorm:"column:payment_intent_id;not null;default:''"`
	TrackingNumber  *string                `gorm:"column:tracking_number"`
	ShippingCarrier *enums.ShippingCarrier `gorm:"column:shipping_carrier"`

	IsPickup         bool       `gorm:"column:is_pickup;not null;default:false"`
	PickupLocationID *uuid.UUID `gorm:"column:pickup_location_id;type:uuid"`

	ShipName       string `gorm:"column:ship_name;not null;default:''"`
	ShipPhone      string `gorm:"column:ship_phone;not null;default:''"`
	ShipAddress1   string `gorm:"column:ship_address1;not null;default:''"`
	ShipAddress2   string `gorm:"column:ship_address2;not null;default:''"`
	ShipCity       string `gorm:"column:ship_city;not null;default:''"`
	ShipProvince   string `gorm:"column:ship_province;not null;default:''"`
	ShipPostalCode string `gorm:"column:ship_postal_code;not null;default:''"`
	ShipCountry    string `gorm:"column:ship_country;not null;default:''"`

	Subtotal money.Amount `gorm:"column:subtotal;type:numeric(10,2);not null"`
	Tax      money.Amount `gorm:"column:tax;type:numeric(10,2);not null"`
	Shipping money.Amount `gorm:"column:shipping;type:numeric(10,2);not null"`
	Total    money.Amount `gorm:"column:total;type:numeric(10,2);not null"`

	Items []OrderItem `gorm:"foreignKey:OrderID;constraint:OnDelete:CASCADE"`

	CreatedAt time.Time `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt time.Time `gorm:"column:updated_at;autoUpdateTime"`
}

// BeforeCreate assigns the primary key when the caller did not.
func (o *Order) BeforeCreate(_ *gorm.DB) error {
	if o.ID == uuid.Nil {
		o.ID = uuid.New()
	}
	return nil
}

// ShippingSnapshot groups the frozen shipping fields for copy/restore.
type ShippingSnapshot struct {
	Name       string
	Phone      string
	Address1   string
	Address2   string
	City       string
	Province   string
	PostalCode string
	Country    string
}

// Snapshot returns the order's current shipping fields.
func (o *Order) Snapshot() ShippingSnapshot {
	return ShippingSnapshot{
		Name:       o.ShipName,
		Phone:      o.ShipPhone,
		Address1:   o.ShipAddress1,
		Address2:   o.ShipAddress2,
		City:       o.ShipCity,
		Province:   o.ShipProvince,
		PostalCode: o.ShipPostalCode,
		Country:    o.ShipCountry,
	}
}

// ApplySnapshot writes the snapshot back onto the order's shipping fields.
func (o *Order) ApplySnapshot(s ShippingSnapshot) {
	o.ShipName = s.Name
	o.ShipPhone = s.Phone
	o.ShipAddress1 = s.Address1
	o.ShipAddress2 = s.Address2
	o.ShipCity = s.City
	o.ShipProvince = s.Province
	o.ShipPostalCode = s.PostalCode
	o.ShipCountry = s.Country
}
