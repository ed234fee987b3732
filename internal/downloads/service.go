// Package downloads manages access grants for purchased digital products.
package downloads

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/fitmarkethq/fitmarket-backend/pkg/db/models"
	pkgerrors "github.com/fitmarkethq/fitmarket-backend/pkg/errors"
)

// Repository defines persistence operations for download grants.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	FindByOrderProduct(ctx context.Context, orderID, productID uuid.UUID) (*models.DigitalDownload, error)
	FindByToken(ctx context.Context, token uuid.UUID) (*models.DigitalDownload, error)
	Create(ctx context.Context, grant *models.DigitalDownload) error
	IncrementCount(ctx context.Context, id uuid.UUID) error
}

// Service hands out and redeems download grants.
type Service interface {
	Grant(ctx context.Context, tx *gorm.DB, orderID, productID uuid.UUID) (*models.DigitalDownload, error)
	Consume(ctx context.Context, token uuid.UUID, now time.Time) (*models.DigitalDownload, error)
}

type service struct {
	repo Repository
}

// NewService builds a downloads service with the required dependencies.
func NewService(repo Repository) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("downloads repository required")
	}
	return &service{repo: repo}, nil
}

// Grant returns the existing grant for (order, product) or creates one.
// Re-running a checkout step therefore never hands out a second token.
func (s *service) Grant(ctx context.Context, tx *gorm.DB, orderID, productID uuid.UUID) (*models.DigitalDownload, error) {
	if orderID == uuid.Nil || productID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "order and product ids required")
	}
	repo := s.repo.WithTx(tx)

	existing, err := repo.FindByOrderProduct(ctx, orderID, productID)
	if err != nil && err != gorm.ErrRecordNotFound {
		return nil, err
	}
	if existing != nil {
		return existing, nil
	}

	grant := &models.DigitalDownload{
		OrderID:   orderID,
		ProductID: productID,
		Token:     uuid.New(),
	}
	if err := repo.Create(ctx, grant); err != nil {
		return nil, err
	}
	return grant, nil
}

// Consume validates a token and counts the download.
func (s *service) Consume(ctx context.Context, token uuid.UUID, now time.Time) (*models.DigitalDownload, error) {
	if token == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "token required")
	}
	grant, err := s.repo.FindByToken(ctx, token)
	if err == gorm.ErrRecordNotFound {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "unknown download token")
	}
	if err != nil {
		return nil, err
	}
	if grant.Expired(now) {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "download link has expired")
	}
	if grant.Exhausted() {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "download limit reached")
	}
	if err := s.repo.IncrementCount(ctx, grant.ID); err != nil {
		return nil, err
	}
	grant.DownloadCount++
	return grant, nil
}
