package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// PickupLocation is a storefront or depot where buyers collect orders.
type PickupLocation struct {
	ID           uuid.UUID `gorm:"column:id;type:uuid;primaryKey"`
	Name         string    `gorm:"column:name;not null"`
	Address1     string    `gorm:"column:address1;not null"`
	Address2     string    `gorm:"column:address2;not null;default:''"`
	City         string    `gorm:"column:city;not null"`
	Province     string    `gorm:"column:province;not null"`
	PostalCode   string    `gorm:"column:postal_code;not null"`
	Country      string    `gorm:"column:country;not null;default:'CA'"`
	Phone        string    `gorm:"column:phone;not null;default:''"`
	Instructions string    `gorm:"column:instructions;not null;default:''"`
	IsActive     bool      `gorm:"column:is_active;not null;default:true"`
	DisplayOrder int       `gorm:"column:display_order;not null;default:0"`
	CreatedAt    time.Time `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt    time.Time `gorm:"column:updated_at;autoUpdateTime"`
}

// BeforeCreate assigns the primary key when the caller did not.
func (p *PickupLocation) BeforeCreate(_ *gorm.DB) error {
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	return nil
}
