package inventory

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/fitmarkethq/fitmarket-backend/pkg/db/models"
	"github.com/fitmarkethq/fitmarket-backend/pkg/pagination"
)

// Repository defines persistence operations for stock and the audit log.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	FindProduct(ctx context.Context, productID uuid.UUID) (*models.Product, error)
	CompareAndSetStock(ctx context.Context, productID uuid.UUID, current, next int) (bool, error)
	CompareAndSetSeats(ctx context.Context, productID uuid.UUID, current, next int) (bool, error)
	CreateLog(ctx context.Context, entry *models.InventoryLog) error
	ListLogs(ctx context.Context, productID uuid.UUID, params pagination.Params) ([]models.InventoryLog, error)
}
