package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/fitmarkethq/fitmarket-backend/pkg/enums"
)

// Seller is a vendor account tied to a platform user.
type Seller struct {
	ID              uuid.UUID          `gorm:"column:id;type:uuid;primaryKey"`
	UserID          uuid.UUID          `gorm:"column:user_id;type:uuid;not null;uniqueIndex"`
	DisplayName     string             `gorm:"column:display_name;not null"`
	Status          enums.SellerStatus `gorm:"column:status;not null;default:'pending'"`
	CommissionRate  decimal.Decimal    `gorm:"column:commission_rate;type:numeric(5,4);not null;default:0"`
	PayoutHoldDays  int                `gorm:"column:payout_hold_days;not null;default:7"`
	IsTrusted       bool               `gorm:"column:is_trusted;not null;default:false"`
	BusinessName    *string            `gorm:"column:business_name"`
	BusinessNumber  *string            `gorm:"column:business_number"`
	SupportEmail    *string            `gorm:"column:support_email"`
	StripeAccountID *string            `gorm:"column:stripe_account_id"`
	CreatedAt       time.Time          `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt       time.Time          `gorm:"column:updated_at;autoUpdateTime"`
}

// BeforeCreate assigns the primary key when the caller did not.
func (s *Seller) BeforeCreate(_ *gorm.DB) error {
	if s.ID == uuid.Nil {
		s.ID = uuid.New()
	}
	return nil
}
