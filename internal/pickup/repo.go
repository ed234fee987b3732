package pickup

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/fitmarkethq/fitmarket-backend/pkg/db/models"
)

// Repository defines persistence operations for pickup locations.
type Repository interface {
	Create(ctx context.Context, location *models.PickupLocation) error
	Find(ctx context.Context, id uuid.UUID) (*models.PickupLocation, error)
	List(ctx context.Context, activeOnly bool) ([]models.PickupLocation, error)
	Update(ctx context.Context, id uuid.UUID, updates map[string]any) error
}

type repository struct {
	db *gorm.DB
}

// NewRepository builds a pickup repository bound to the provided DB.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) Create(ctx context.Context, location *models.PickupLocation) error {
	return r.db.WithContext(ctx).Create(location).Error
}

func (r *repository) Find(ctx context.Context, id uuid.UUID) (*models.PickupLocation, error) {
	var location models.PickupLocation
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&location).Error; err != nil {
		return nil, err
	}
	return &location, nil
}

func (r *repository) List(ctx context.Context, activeOnly bool) ([]models.PickupLocation, error) {
	query := r.db.WithContext(ctx).Order("display_order ASC, name ASC")
	if activeOnly {
		query = query.Where("is_active = ?", true)
	}
	var locations []models.PickupLocation
	err := query.Find(&locations).Error
	return locations, err
}

func (r *repository) Update(ctx context.Context, id uuid.UUID, updates map[string]any) error {
	return r.db.WithContext(ctx).
		Model(&models.PickupLocation{}).
		Where("id = ?", id).
		Updates(updates).Error
}
