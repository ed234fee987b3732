package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/fitmarkethq/fitmarket-backend/pkg/enums"
)

// InventoryLog is the append-only audit trail of stock movement. Delta is
// the REQUESTED change; the stock column may clamp at zero independently.
type InventoryLog struct {
	ID         uuid.UUID                 `gorm:"column:id;type:uuid;primaryKey"`
	ProductID  uuid.UUID                 `gorm:"column:product_id;type:uuid;not null;index"`
	Delta      int                       `gorm:"column:delta;not null"`
	ChangeType enums.InventoryChangeType `gorm:"column:change_type;not null"`
	CreatedBy  *uuid.UUID                `gorm:"column:created_by;type:uuid"`
	OrderID    *uuid.UUID                `gorm:"column:order_id;type:uuid;index"`
	Note       string                    `gorm:"column:note;not null;default:''"`
	CreatedAt  time.Time                 `gorm:"column:created_at;autoCreateTime"`
}

// BeforeCreate assigns the primary key when the caller did not.
func (l *InventoryLog) BeforeCreate(_ *gorm.DB) error {
	if l.ID == uuid.Nil {
		l.ID = uuid.New()
	}
	return nil
}
