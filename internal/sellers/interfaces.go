package sellers

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/fitmarkethq/fitmarket-backend/pkg/db/models"
	"github.com/fitmarkethq/fitmarket-backend/pkg/enums"
	"github.com/fitmarkethq/fitmarket-backend/pkg/pagination"
)

// Repository defines persistence operations for seller accounts.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Create(ctx context.Context, seller *models.Seller) (*models.Seller, error)
	FindByID(ctx context.Context, id uuid.UUID) (*models.Seller, error)
	FindByUserID(ctx context.Context, userID uuid.UUID) (*models.Seller, error)
	Update(ctx context.Context, id uuid.UUID, updates map[string]any) error
	ListByStatus(ctx context.Context, status enums.SellerStatus, params pagination.Params) ([]models.Seller, error)
}
