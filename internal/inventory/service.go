package inventory

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/fitmarkethq/fitmarket-backend/pkg/db/models"
	"github.com/fitmarkethq/fitmarket-backend/pkg/enums"
	pkgerrors "github.com/fitmarkethq/fitmarket-backend/pkg/errors"
	"github.com/fitmarkethq/fitmarket-backend/pkg/pagination"
)

// casAttempts bounds the compare-and-set retry loop under write contention.
const casAttempts = 5

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

// Service mutates stock with an audit trail. Every change appends an
// InventoryLog entry carrying the requested delta, even when the stored
// stock clamps at zero.
type Service interface {
	SetInitial(ctx context.Context, input SetInitialInput) (*models.Product, error)
	Adjust(ctx context.Context, tx *gorm.DB, input AdjustInput) (int, error)
	AdjustSeats(ctx context.Context, tx *gorm.DB, input AdjustInput) (int, error)
	LogOnly(ctx context.Context, tx *gorm.DB, input AdjustInput) error
	Logs(ctx context.Context, productID uuid.UUID, params pagination.Params) ([]models.InventoryLog, error)
}

type service struct {
	repo Repository
	tx   txRunner
}

// NewService builds an inventory service with the required dependencies.
func NewService(repo Repository, tx txRunner) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("inventory repository required")
	}
	if tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	return &service{repo: repo, tx: tx}, nil
}

// SetInitialInput sets an absolute stock level for a product.
type SetInitialInput struct {
	ProductID uuid.UUID
	Quantity  int
	ActorID   *uuid.UUID
	Note      string
}

// AdjustInput describes one stock movement.
type AdjustInput struct {
	ProductID  uuid.UUID
	Delta      int
	ChangeType enums.InventoryChangeType
	ActorID    *uuid.UUID
	OrderID    *uuid.UUID
	Note       string
}

func (s *service) SetInitial(ctx context.Context, input SetInitialInput) (*models.Product, error) {
	if input.ProductID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "product id required")
	}
	if input.Quantity < 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "initial quantity cannot be negative")
	}

	var product *models.Product
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)

		var err error
		for attempt := 0; attempt < casAttempts; attempt++ {
			product, err = repo.FindProduct(ctx, input.ProductID)
			if err != nil {
				return mapNotFound(err, input.ProductID)
			}
			ok, err := repo.CompareAndSetStock(ctx, input.ProductID, product.Stock, input.Quantity)
			if err != nil {
				return err
			}
			if ok {
				product.Stock = input.Quantity
				return repo.CreateLog(ctx, &models.InventoryLog{
					ProductID:  input.ProductID,
					Delta:      input.Quantity,
					ChangeType: enums.InventoryChangeInitial,
					CreatedBy:  input.ActorID,
					Note:       input.Note,
				})
			}
		}
		return pkgerrors.New(pkgerrors.CodeConflict, "inventory is being modified concurrently")
	})
	if err != nil {
		return nil, err
	}
	return product, nil
}

// Adjust applies a signed stock delta inside the caller's transaction. The
// stored stock floors at zero; the log keeps the requested delta so the
// audit trail shows what was asked for. Returns the resulting stock.
func (s *service) Adjust(ctx context.Context, tx *gorm.DB, input AdjustInput) (int, error) {
	if err := validateAdjust(input); err != nil {
		return 0, err
	}
	repo := s.repo.WithTx(tx)

	for attempt := 0; attempt < casAttempts; attempt++ {
		product, err := repo.FindProduct(ctx, input.ProductID)
		if err != nil {
			return 0, mapNotFound(err, input.ProductID)
		}
		next := product.Stock + input.Delta
		if next < 0 {
			next = 0
		}
		ok, err := repo.CompareAndSetStock(ctx, input.ProductID, product.Stock, next)
		if err != nil {
			return 0, err
		}
		if ok {
			return next, repo.CreateLog(ctx, s.logEntry(input))
		}
	}
	return 0, pkgerrors.New(pkgerrors.CodeConflict, "inventory is being modified concurrently")
}

// AdjustSeats applies a signed delta to a service product's seat count.
// Products with unlimited seats (nil) only get the log entry.
func (s *service) AdjustSeats(ctx context.Context, tx *gorm.DB, input AdjustInput) (int, error) {
	if err := validateAdjust(input); err != nil {
		return 0, err
	}
	repo := s.repo.WithTx(tx)

	for attempt := 0; attempt < casAttempts; attempt++ {
		product, err := repo.FindProduct(ctx, input.ProductID)
		if err != nil {
			return 0, mapNotFound(err, input.ProductID)
		}
		if product.ServiceSeats == nil {
			return 0, repo.CreateLog(ctx, s.logEntry(input))
		}
		next := *product.ServiceSeats + input.Delta
		if next < 0 {
			next = 0
		}
		ok, err := repo.CompareAndSetSeats(ctx, input.ProductID, *product.ServiceSeats, next)
		if err != nil {
			return 0, err
		}
		if ok {
			return next, repo.CreateLog(ctx, s.logEntry(input))
		}
	}
	return 0, pkgerrors.New(pkgerrors.CodeConflict, "inventory is being modified concurrently")
}

// LogOnly records a movement without touching stock. Digital purchases use
// it so the audit trail still shows the sale.
func (s *service) LogOnly(ctx context.Context, tx *gorm.DB, input AdjustInput) error {
	if err := validateAdjust(input); err != nil {
		return err
	}
	return s.repo.WithTx(tx).CreateLog(ctx, s.logEntry(input))
}

func (s *service) Logs(ctx context.Context, productID uuid.UUID, params pagination.Params) ([]models.InventoryLog, error) {
	if productID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "product id required")
	}
	return s.repo.ListLogs(ctx, productID, params)
}

func (s *service) logEntry(input AdjustInput) *models.InventoryLog {
	return &models.InventoryLog{
		ProductID:  input.ProductID,
		Delta:      input.Delta,
		ChangeType: input.ChangeType,
		CreatedBy:  input.ActorID,
		OrderID:    input.OrderID,
		Note:       input.Note,
	}
}

func validateAdjust(input AdjustInput) error {
	if input.ProductID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "product id required")
	}
	if input.Delta == 0 {
		return pkgerrors.New(pkgerrors.CodeValidation, "delta cannot be zero")
	}
	if !input.ChangeType.IsValid() {
		return pkgerrors.New(pkgerrors.CodeValidation, "invalid change type")
	}
	return nil
}

func mapNotFound(err error, productID uuid.UUID) error {
	if err == gorm.ErrRecordNotFound {
		return pkgerrors.New(pkgerrors.CodeNotFound, fmt.Sprintf("product %s not found", productID))
	}
	return err
}
