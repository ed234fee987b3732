package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// DigitalDownload grants a buyer access to a purchased digital product. One
// grant exists per (order, product) pair.
type DigitalDownload struct {
	ID            uuid.UUID  `gorm:"column:id;type:uuid;primaryKey"`
	OrderID       uuid.UUID  `gorm:"column:order_id;type:uuid;not null;uniqueIndex:idx_download_order_product"`
	ProductID     uuid.UUID  `gorm:"column:product_id;type:uuid;not null;uniqueIndex:idx_download_order_product"`
	Token         uuid.UUID  `gorm:"column:token;type:uuid;not null;uniqueIndex"`
	ExpiresAt     *time.Time `gorm:"column:expires_at"`
	MaxDownloads  int        `gorm:"column:max_downloads;not null;default:0"`
	DownloadCount int        `gorm:"column:download_count;not null;default:0"`
	CreatedAt     time.Time  `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt     time.Time  `gorm:"column:updated_at;autoUpdateTime"`
}

// BeforeCreate assigns the primary key and token when the caller did not.
func (d *DigitalDownload) BeforeCreate(_ *gorm.DB) error {
	if d.ID == uuid.Nil {
		d.ID = uuid.New()
	}
	if d.Token == uuid.Nil {
		d.Token = uuid.New()
	}
	return nil
}

// Exhausted reports whether the grant has hit its download limit.
func (d *DigitalDownload) Exhausted() bool {
	return d.MaxDownloads > 0 && d.DownloadCount >= d.MaxDownloads
}

// Expired reports whether the grant is past its expiry, if any.
func (d *DigitalDownload) Expired(now time.Time) bool {
	return d.ExpiresAt != nil && now.After(*d.ExpiresAt)
}
