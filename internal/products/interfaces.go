package products

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/fitmarkethq/fitmarket-backend/pkg/db/models"
	"github.com/fitmarkethq/fitmarket-backend/pkg/pagination"
)

// Repository defines persistence operations for the catalog.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Create(ctx context.Context, product *models.Product) (*models.Product, error)
	FindByID(ctx context.Context, id uuid.UUID) (*models.Product, error)
	Update(ctx context.Context, id uuid.UUID, updates map[string]any) error
	ListBySeller(ctx context.Context, sellerID uuid.UUID, params pagination.Params) ([]models.Product, error)
	ListActive(ctx context.Context, params pagination.Params) ([]models.Product, error)
}

// SellerGate verifies a seller may list products.
type SellerGate interface {
	RequireApproved(ctx context.Context, sellerID uuid.UUID) (*models.Seller, error)
}
