package sellers

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/fitmarkethq/fitmarket-backend/pkg/db/models"
	"github.com/fitmarkethq/fitmarket-backend/pkg/enums"
	pkgerrors "github.com/fitmarkethq/fitmarket-backend/pkg/errors"
	"github.com/fitmarkethq/fitmarket-backend/pkg/pagination"
)

var maxCommissionRate = decimal.NewFromInt(1)

// Service manages the seller account lifecycle. Review transitions move
// forward only: a rejected seller cannot re-apply and review outcomes are
// never revisited.
type Service interface {
	Apply(ctx context.Context, input ApplyInput) (*models.Seller, error)
	Approve(ctx context.Context, sellerID, adminID uuid.UUID) (*models.Seller, error)
	Reject(ctx context.Context, sellerID, adminID uuid.UUID) (*models.Seller, error)
	Configure(ctx context.Context, input ConfigureInput) (*models.Seller, error)
	Get(ctx context.Context, sellerID uuid.UUID) (*models.Seller, error)
	GetByUser(ctx context.Context, userID uuid.UUID) (*models.Seller, error)
	RequireApproved(ctx context.Context, sellerID uuid.UUID) (*models.Seller, error)
	ListPending(ctx context.Context, params pagination.Params) ([]models.Seller, error)
}

type service struct {
	repo Repository
}

// NewService builds a sellers service with the required dependencies.
func NewService(repo Repository) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("sellers repository required")
	}
	return &service{repo: repo}, nil
}

// ApplyInput is a user's application to become a seller.
type ApplyInput struct {
	UserID         uuid.UUID
	DisplayName    string
	BusinessName   *string
	BusinessNumber *string
	SupportEmail   *string
}

// ConfigureInput adjusts a seller's payout policy.
type ConfigureInput struct {
	SellerID       uuid.UUID
	CommissionRate *decimal.Decimal
	PayoutHoldDays *int
	IsTrusted      *bool
}

func (s *service) Apply(ctx context.Context, input ApplyInput) (*models.Seller, error) {
	if input.UserID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "user id required")
	}
	if input.DisplayName == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "display name required")
	}

	existing, err := s.repo.FindByUserID(ctx, input.UserID)
	if err != nil && err != gorm.ErrRecordNotFound {
		return nil, err
	}
	if existing != nil {
		if existing.Status == enums.SellerStatusRejected {
			return nil, pkgerrors.New(pkgerrors.CodeForbidden, "rejected sellers cannot re-apply")
		}
		return nil, pkgerrors.New(pkgerrors.CodeConflict, "seller account already exists for this user")
	}

	return s.repo.Create(ctx, &models.Seller{
		UserID:         input.UserID,
		DisplayName:    input.DisplayName,
		Status:         enums.SellerStatusPending,
		BusinessName:   input.BusinessName,
		BusinessNumber: input.BusinessNumber,
		SupportEmail:   input.SupportEmail,
	})
}

func (s *service) Approve(ctx context.Context, sellerID, adminID uuid.UUID) (*models.Seller, error) {
	return s.review(ctx, sellerID, adminID, enums.SellerStatusApproved)
}

func (s *service) Reject(ctx context.Context, sellerID, adminID uuid.UUID) (*models.Seller, error) {
	return s.review(ctx, sellerID, adminID, enums.SellerStatusRejected)
}

func (s *service) review(ctx context.Context, sellerID, adminID uuid.UUID, next enums.SellerStatus) (*models.Seller, error) {
	if sellerID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "seller id required")
	}
	if adminID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "admin identity missing")
	}

	seller, err := s.load(ctx, sellerID)
	if err != nil {
		return nil, err
	}
	if seller.Status == next {
		return seller, nil
	}
	if !seller.Status.CanTransitionTo(next) {
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict,
			fmt.Sprintf("seller in status %s cannot move to %s", seller.Status, next))
	}

	if err := s.repo.Update(ctx, sellerID, map[string]any{"status": next}); err != nil {
		return nil, err
	}
	seller.Status = next
	return seller, nil
}

func (s *service) Configure(ctx context.Context, input ConfigureInput) (*models.Seller, error) {
	seller, err := s.load(ctx, input.SellerID)
	if err != nil {
		return nil, err
	}

	updates := map[string]any{}
	if input.CommissionRate != nil {
		rate := *input.CommissionRate
		if rate.IsNegative() || rate.GreaterThan(maxCommissionRate) {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "commission rate must be between 0 and 1")
		}
		updates["commission_rate"] = rate
		seller.CommissionRate = rate
	}
	if input.PayoutHoldDays != nil {
		if *input.PayoutHoldDays < 0 {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "payout hold days cannot be negative")
		}
		updates["payout_hold_days"] = *input.PayoutHoldDays
		seller.PayoutHoldDays = *input.PayoutHoldDays
	}
	if input.IsTrusted != nil {
		updates["is_trusted"] = *input.IsTrusted
		seller.IsTrusted = *input.IsTrusted
	}
	if len(updates) == 0 {
		return seller, nil
	}

	if err := s.repo.Update(ctx, input.SellerID, updates); err != nil {
		return nil, err
	}
	return seller, nil
}

func (s *service) Get(ctx context.Context, sellerID uuid.UUID) (*models.Seller, error) {
	return s.load(ctx, sellerID)
}

func (s *service) GetByUser(ctx context.Context, userID uuid.UUID) (*models.Seller, error) {
	seller, err := s.repo.FindByUserID(ctx, userID)
	if err == gorm.ErrRecordNotFound {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "no seller account for user")
	}
	return seller, err
}

// RequireApproved loads a seller and fails unless it passed review. The
// catalog uses it to gate listing creation.
func (s *service) RequireApproved(ctx context.Context, sellerID uuid.UUID) (*models.Seller, error) {
	seller, err := s.load(ctx, sellerID)
	if err != nil {
		return nil, err
	}
	if seller.Status != enums.SellerStatusApproved {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "seller is not approved")
	}
	return seller, nil
}

func (s *service) ListPending(ctx context.Context, params pagination.Params) ([]models.Seller, error) {
	return s.repo.ListByStatus(ctx, enums.SellerStatusPending, params)
}

func (s *service) load(ctx context.Context, sellerID uuid.UUID) (*models.Seller, error) {
	if sellerID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "seller id required")
	}
	seller, err := s.repo.FindByID(ctx, sellerID)
	if err == gorm.ErrRecordNotFound {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, fmt.Sprintf("seller %s not found", sellerID))
	}
	return seller, err
}
