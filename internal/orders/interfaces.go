package orders

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/fitmarkethq/fitmarket-backend/internal/inventory"
	"github.com/fitmarkethq/fitmarket-backend/pkg/db/models"
	"github.com/fitmarkethq/fitmarket-backend/pkg/pagination"
)

// Repository defines persistence operations for orders and their lines.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	FindProductsForUpdate(ctx context.Context, ids []uuid.UUID) ([]models.Product, error)
	FindSellers(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]models.Seller, error)
	FindUser(ctx context.Context, id uuid.UUID) (*models.User, error)
	FindPickupLocation(ctx context.Context, id uuid.UUID) (*models.PickupLocation, error)
	PaymentIntentExists(ctx context.Context, paymentIntentID string) (bool, error)
	CreateOrder(ctx context.Context, order *models.Order) error
	CreateOrderItems(ctx context.Context, items []models.OrderItem) error
	FindOrder(ctx context.Context, id uuid.UUID) (*models.Order, error)
	ListByUser(ctx context.Context, userID uuid.UUID, params pagination.Params) ([]models.Order, error)
	UpdateOrder(ctx context.Context, id uuid.UUID, updates map[string]any) error
	CountRefunds(ctx context.Context, orderID uuid.UUID) (int64, error)
	DeleteOrder(ctx context.Context, id uuid.UUID) error
}

// InventoryAdjuster mutates stock inside the checkout transaction.
type InventoryAdjuster interface {
	Adjust(ctx context.Context, tx *gorm.DB, input inventory.AdjustInput) (int, error)
	AdjustSeats(ctx context.Context, tx *gorm.DB, input inventory.AdjustInput) (int, error)
	LogOnly(ctx context.Context, tx *gorm.DB, input inventory.AdjustInput) error
}

// DownloadGranter creates digital download grants for purchased lines.
type DownloadGranter interface {
	Grant(ctx context.Context, tx *gorm.DB, orderID, productID uuid.UUID) (*models.DigitalDownload, error)
}
