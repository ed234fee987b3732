package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/fitmarkethq/fitmarket-backend/pkg/money"
)

// OrderItem is the immutable per-line snapshot of an order. PlatformFee plus
// SellerEarnings always equals LineTotal.
type OrderItem struct {
	ID             uuid.UUID    `gorm:"column:id;type:uuid;primaryKey"`
	OrderID        uuid.UUID    `gorm:"column:order_id;type:uuid;not null;index"`
	ProductID      uuid.UUID    `gorm:"column:product_id;type:uuid;not null"`
	SellerID       *uuid.UUID   `gorm:"column:seller_id;type:uuid;index"`
	ProductName    string       `gorm:"column:product_name;not null"`
	Quantity       int          `gorm:"column:quantity;not null"`
	UnitPrice      money.Amount `gorm:"column:unit_price;type:numeric(10,2);not null"`
	LineTotal      money.Amount `gorm:"column:line_total;type:numeric(10,2);not null"`
	GST            money.Amount `gorm:"column:gst;type:numeric(10,2);not null"`
	PST            money.Amount `gorm:"column:pst;type:numeric(10,2);not null"`
	PlatformFee    money.Amount `gorm:"column:platform_fee;type:numeric(10,2);not null"`
	SellerEarnings money.Amount `gorm:"column:seller_earnings;type:numeric(10,2);not null"`
	CreatedAt      time.Time    `gorm:"column:created_at;autoCreateTime"`
}

// BeforeCreate assigns the primary key when the caller did not.
func (i *OrderItem) BeforeCreate(_ *gorm.DB) error {
	if i.ID == uuid.Nil {
		i.ID = uuid.New()
	}
	return nil
}
