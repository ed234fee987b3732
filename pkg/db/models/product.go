package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/fitmarkethq/fitmarket-backend/pkg/enums"
	"github.com/fitmarkethq/fitmarket-backend/pkg/money"
)

// Product is a sellable listing. SellerID is nil for platform-owned lines
// such as membership plan products.
type Product struct {
	ID             uuid.UUID         `gorm:"column:id;type:uuid;primaryKey"`
	SellerID       *uuid.UUID        `gorm:"column:seller_id;type:uuid"`
	Name           string            `gorm:"column:name;not null"`
	Description    string            `gorm:"column:description"`
	Kind           enums.ProductKind `gorm:"column:kind;not null"`
	UnitPrice      money.Amount      `gorm:"column:unit_price;type:numeric(10,2);not null"`
	Stock          int               `gorm:"column:stock;not null;default:0"`
	ServiceSeats   *int              `gorm:"column:service_seats"`
	DigitalFileKey *string           `gorm:"column:digital_file_key"`
	DigitalURL     *string           `gorm:"column:digital_url"`
	ChargeGST      bool              `gorm:"column:charge_gst;not null;default:true"`
	ChargePST      bool              `gorm:"column:charge_pst;not null;default:true"`
	IsActive       bool              `gorm:"column:is_active;not null;default:true"`
	CreatedAt      time.Time         `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt      time.Time         `gorm:"column:updated_at;autoUpdateTime"`
}

// BeforeCreate assigns the primary key when the caller did not.
func (p *Product) BeforeCreate(_ *gorm.DB) error {
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	return nil
}
