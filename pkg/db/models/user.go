package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// User is the minimal account record the engine needs: identity plus the
// shipping profile that seeds order snapshots.
type User struct {
	ID             uuid.UUID `gorm:"column:id;type:uuid;primaryKey"`
	Email          string    `gorm:"column:email;not null;uniqueIndex"`
	Name           string    `gorm:"column:name;not null"`
	Phone          string    `gorm:"column:phone;not null;default:''"`
	ShipAddress1   string    `gorm:"column:ship_address1;not null;default:''"`
	ShipAddress2   string    `gorm:"column:ship_address2;not null;default:''"`
	ShipCity       string    `gorm:"column:ship_city;not null;default:''"`
	ShipProvince   string    `gorm:"column:ship_province;not null;default:''"`
	ShipPostalCode string    `gorm:"column:ship_postal_code;not null;default:''"`
	ShipCountry    string    `gorm:"column:ship_country;not null;default:'CA'"`
	IsAdmin        bool      `gorm:"column:is_admin;not null;default:false"`
	CreatedAt      time.Time `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt      time.Time `gorm:"column:updated_at;autoUpdateTime"`
}

// BeforeCreate assigns the primary key when the caller did not.
func (u *User) BeforeCreate(_ *gorm.DB) error {
	if u.ID == uuid.Nil {
		u.ID = uuid.New()
	}
	return nil
}
