package models

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/fitmarkethq/fitmarket-backend/pkg/money"
)

// MembershipLinePrefix marks order lines materialized by membership
// renewals. The earnings ledger classifies lines by this prefix.
const MembershipLinePrefix = "Membership: "

// IsMembershipLine reports whether an order line came from a membership
// renewal.
func IsMembershipLine(productName string) bool {
	return strings.HasPrefix(productName, MembershipLinePrefix)
}

// MembershipPlan is a recurring plan whose paid renewals materialize as
// orders so they flow through the earnings ledger.
type MembershipPlan struct {
	ID                uuid.UUID    `gorm:"column:id;type:uuid;primaryKey"`
	SellerID          *uuid.UUID   `gorm:"column:seller_id;type:uuid"`
	Name              string       `gorm:"column:name;not null"`
	Slug              string       `gorm:"column:slug;not null;uniqueIndex"`
	Price             money.Amount `gorm:"column:price;type:numeric(10,2);not null"`
	BillingPeriodDays int          `gorm:"column:billing_period_days;not null;default:30"`
	ProductID         uuid.UUID    `gorm:"column:product_id;type:uuid;not null"`
	IsActive          bool         `gorm:"column:is_active;not null;default:true"`
	CreatedAt         time.Time    `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt         time.Time    `gorm:"column:updated_at;autoUpdateTime"`
}

// BeforeCreate assigns the primary key when the caller did not.
func (m *MembershipPlan) BeforeCreate(_ *gorm.DB) error {
	if m.ID == uuid.Nil {
		m.ID = uuid.New()
	}
	return nil
}

// Membership tracks one user's subscription to a plan.
type Membership struct {
	ID              uuid.UUID  `gorm:"column:id;type:uuid;primaryKey"`
	PlanID          uuid.UUID  `gorm:"column:plan_id;type:uuid;not null;index"`
	UserID          uuid.UUID  `gorm:"column:user_id;type:uuid;not null;index"`
	IsActive        bool       `gorm:"column:is_active;not null;default:true"`
	NextBillingDate time.Time  `gorm:"column:next_billing_date;not null"`
	CancelledAt     *time.Time `gorm:"column:cancelled_at"`
	CreatedAt       time.Time  `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt       time.Time  `gorm:"column:updated_at;autoUpdateTime"`
}

// BeforeCreate assigns the primary key when the caller did not.
func (m *Membership) BeforeCreate(_ *gorm.DB) error {
	if m.ID == uuid.Nil {
		m.ID = uuid.New()
	}
	return nil
}
