package products

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/fitmarkethq/fitmarket-backend/pkg/db/models"
	"github.com/fitmarkethq/fitmarket-backend/pkg/enums"
	pkgerrors "github.com/fitmarkethq/fitmarket-backend/pkg/errors"
	"github.com/fitmarkethq/fitmarket-backend/pkg/money"
	"github.com/fitmarkethq/fitmarket-backend/pkg/pagination"
)

// Service manages the catalog. Listings belong to approved sellers;
// platform-owned lines (nil seller) bypass the gate.
type Service interface {
	Create(ctx context.Context, input CreateInput) (*models.Product, error)
	Update(ctx context.Context, input UpdateInput) (*models.Product, error)
	Retire(ctx context.Context, productID, sellerID uuid.UUID) error
	Get(ctx context.Context, productID uuid.UUID) (*models.Product, error)
	ListBySeller(ctx context.Context, sellerID uuid.UUID, params pagination.Params) ([]models.Product, error)
	ListActive(ctx context.Context, params pagination.Params) ([]models.Product, error)
}

type service struct {
	repo    Repository
	sellers SellerGate
}

// NewService builds a products service with the required dependencies.
func NewService(repo Repository, sellers SellerGate) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("products repository required")
	}
	if sellers == nil {
		return nil, fmt.Errorf("seller gate required")
	}
	return &service{repo: repo, sellers: sellers}, nil
}

// CreateInput describes a new listing.
type CreateInput struct {
	SellerID       *uuid.UUID
	Name           string
	Description    string
	Kind           enums.ProductKind
	UnitPrice      money.Amount
	Stock          int
	ServiceSeats   *int
	DigitalFileKey *string
	DigitalURL     *string
	ChargeGST      bool
	ChargePST      bool
}

// UpdateInput carries mutable listing fields. Nil pointers leave the field
// untouched.
type UpdateInput struct {
	ProductID   uuid.UUID
	SellerID    uuid.UUID
	Name        *string
	Description *string
	UnitPrice   *money.Amount
	IsActive    *bool
}

func (s *service) Create(ctx context.Context, input CreateInput) (*models.Product, error) {
	if input.Name == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "product name required")
	}
	if !input.Kind.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid product kind")
	}
	if input.UnitPrice.IsNegative() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "unit price cannot be negative")
	}
	if err := validateKind(input); err != nil {
		return nil, err
	}

	if input.SellerID != nil {
		if _, err := s.sellers.RequireApproved(ctx, *input.SellerID); err != nil {
			return nil, err
		}
	}

	return s.repo.Create(ctx, &models.Product{
		SellerID:       input.SellerID,
		Name:           input.Name,
		Description:    input.Description,
		Kind:           input.Kind,
		UnitPrice:      input.UnitPrice,
		Stock:          input.Stock,
		ServiceSeats:   input.ServiceSeats,
		DigitalFileKey: input.DigitalFileKey,
		DigitalURL:     input.DigitalURL,
		ChargeGST:      input.ChargeGST,
		ChargePST:      input.ChargePST,
		IsActive:       true,
	})
}

func validateKind(input CreateInput) error {
	switch input.Kind {
	case enums.ProductKindPhysical:
		if input.Stock < 0 {
			return pkgerrors.New(pkgerrors.CodeValidation, "stock cannot be negative")
		}
	case enums.ProductKindDigital:
		if input.DigitalFileKey == nil && input.DigitalURL == nil {
			return pkgerrors.New(pkgerrors.CodeValidation, "digital products need a file key or URL")
		}
	case enums.ProductKindService:
		if input.ServiceSeats != nil && *input.ServiceSeats < 0 {
			return pkgerrors.New(pkgerrors.CodeValidation, "service seats cannot be negative")
		}
	}
	return nil
}

func (s *service) Update(ctx context.Context, input UpdateInput) (*models.Product, error) {
	product, err := s.owned(ctx, input.ProductID, input.SellerID)
	if err != nil {
		return nil, err
	}

	updates := map[string]any{}
	if input.Name != nil {
		if *input.Name == "" {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "product name required")
		}
		updates["name"] = *input.Name
		product.Name = *input.Name
	}
	if input.Description != nil {
		updates["description"] = *input.Description
		product.Description = *input.Description
	}
	if input.UnitPrice != nil {
		if input.UnitPrice.IsNegative() {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "unit price cannot be negative")
		}
		updates["unit_price"] = *input.UnitPrice
		product.UnitPrice = *input.UnitPrice
	}
	if input.IsActive != nil {
		updates["is_active"] = *input.IsActive
		product.IsActive = *input.IsActive
	}
	if len(updates) == 0 {
		return product, nil
	}

	if err := s.repo.Update(ctx, input.ProductID, updates); err != nil {
		return nil, err
	}
	return product, nil
}

// Retire soft-deletes a listing: it disappears from the storefront but past
// orders keep referencing it.
func (s *service) Retire(ctx context.Context, productID, sellerID uuid.UUID) error {
	if _, err := s.owned(ctx, productID, sellerID); err != nil {
		return err
	}
	return s.repo.Update(ctx, productID, map[string]any{"is_active": false})
}

func (s *service) Get(ctx context.Context, productID uuid.UUID) (*models.Product, error) {
	if productID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "product id required")
	}
	product, err := s.repo.FindByID(ctx, productID)
	if err == gorm.ErrRecordNotFound {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, fmt.Sprintf("product %s not found", productID))
	}
	return product, err
}

func (s *service) ListBySeller(ctx context.Context, sellerID uuid.UUID, params pagination.Params) ([]models.Product, error) {
	return s.repo.ListBySeller(ctx, sellerID, params)
}

func (s *service) ListActive(ctx context.Context, params pagination.Params) ([]models.Product, error) {
	return s.repo.ListActive(ctx, params)
}

func (s *service) owned(ctx context.Context, productID, sellerID uuid.UUID) (*models.Product, error) {
	product, err := s.Get(ctx, productID)
	if err != nil {
		return nil, err
	}
	if product.SellerID == nil || *product.SellerID != sellerID {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "product belongs to another seller")
	}
	return product, nil
}
