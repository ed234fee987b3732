package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/fitmarkethq/fitmarket-backend/pkg/enums"
	"github.com/fitmarkethq/fitmarket-backend/pkg/money"
)

// Refund is a money-return request against an order, optionally scoped to a
// single order item. GatewayRefundID is written once, when the gateway
// confirms the refund.
type Refund struct {
	ID              uuid.UUID             `gorm:"column:id;type:uuid;primaryKey"`
	OrderID         uuid.UUID             `gorm:"column:order_id;type:uuid;not null;index"`
	SellerID        *uuid.UUID            `gorm:"column:seller_id;type:uuid;index"`
	OrderItemID     *uuid.UUID            `gorm:"column:order_item_id;type:uuid;index"`
	Amount          money.Amount          `gorm:"column:amount;type:numeric(10,2);not null"`
	Reason          string                `gorm:"column:reason;not null"`
	ReasonTag       enums.RefundReasonTag `gorm:"column:reason_tag;not null"`
	CreatedBy       uuid.UUID             `gorm:"column:created_by;type:uuid;not null"`
	Status          enums.RefundStatus    `gorm:"column:status;not null;default:'requested';index"`
	GatewayRefundID string                `gorm:"column:gateway_refund_id;not null;default:''"`
	FailureDetail   string                `gorm:"column:failure_detail;not null;default:''"`
	ProcessingAt    *time.Time            `gorm:"column:processing_at"`
	ResolvedAt      *time.Time            `gorm:"column:resolved_at"`
	CreatedAt       time.Time             `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt       time.Time             `gorm:"column:updated_at;autoUpdateTime"`
}

// BeforeCreate assigns the primary key when the caller did not.
func (r *Refund) BeforeCreate(_ *gorm.DB) error {
	if r.ID == uuid.Nil {
		r.ID = uuid.New()
	}
	return nil
}
