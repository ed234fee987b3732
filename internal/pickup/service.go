// Package pickup manages the pickup locations offered at checkout.
package pickup

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/fitmarkethq/fitmarket-backend/pkg/db/models"
	pkgerrors "github.com/fitmarkethq/fitmarket-backend/pkg/errors"
)

// Service manages pickup locations. Listing for buyers returns only active
// locations in display order; admins see everything.
type Service interface {
	Create(ctx context.Context, input LocationInput) (*models.PickupLocation, error)
	Update(ctx context.Context, id uuid.UUID, input LocationInput) (*models.PickupLocation, error)
	Get(ctx context.Context, id uuid.UUID) (*models.PickupLocation, error)
	ListActive(ctx context.Context) ([]models.PickupLocation, error)
	ListAll(ctx context.Context) ([]models.PickupLocation, error)
	SetActive(ctx context.Context, id uuid.UUID, active bool) (*models.PickupLocation, error)
}

// LocationInput carries the writable fields of a pickup location.
type LocationInput struct {
	Name         string
	Address1     string
	Address2     string
	City         string
	Province     string
	PostalCode   string
	Country      string
	Phone        string
	Instructions string
	DisplayOrder int
}

func (in LocationInput) validate() error {
	missing := func(field string) error {
		return pkgerrors.New(pkgerrors.CodeValidation, field+" required")
	}
	switch {
	case strings.TrimSpace(in.Name) == "":
		return missing("name")
	case strings.TrimSpace(in.Address1) == "":
		return missing("address1")
	case strings.TrimSpace(in.City) == "":
		return missing("city")
	case strings.TrimSpace(in.Province) == "":
		return missing("province")
	case strings.TrimSpace(in.PostalCode) == "":
		return missing("postal code")
	}
	return nil
}

type service struct {
	repo Repository
}

// NewService builds a pickup service with the required dependencies.
func NewService(repo Repository) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("pickup repository required")
	}
	return &service{repo: repo}, nil
}

func (s *service) Create(ctx context.Context, input LocationInput) (*models.PickupLocation, error) {
	if err := input.validate(); err != nil {
		return nil, err
	}
	location := &models.PickupLocation{
		Name:         input.Name,
		Address1:     input.Address1,
		Address2:     input.Address2,
		City:         input.City,
		Province:     input.Province,
		PostalCode:   input.PostalCode,
		Country:      input.Country,
		Phone:        input.Phone,
		Instructions: input.Instructions,
		DisplayOrder: input.DisplayOrder,
		IsActive:     true,
	}
	if location.Country == "" {
		location.Country = "CA"
	}
	if err := s.repo.Create(ctx, location); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "create pickup location")
	}
	return location, nil
}

func (s *service) Update(ctx context.Context, id uuid.UUID, input LocationInput) (*models.PickupLocation, error) {
	if err := input.validate(); err != nil {
		return nil, err
	}
	if _, err := s.repo.Find(ctx, id); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeNotFound, err, "pickup location not found")
	}
	updates := map[string]any{
		"name":          input.Name,
		"address1":      input.Address1,
		"address2":      input.Address2,
		"city":          input.City,
		"province":      input.Province,
		"postal_code":   input.PostalCode,
		"phone":         input.Phone,
		"instructions":  input.Instructions,
		"display_order": input.DisplayOrder,
	}
	if input.Country != "" {
		updates["country"] = input.Country
	}
	if err := s.repo.Update(ctx, id, updates); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "update pickup location")
	}
	return s.repo.Find(ctx, id)
}

func (s *service) Get(ctx context.Context, id uuid.UUID) (*models.PickupLocation, error) {
	location, err := s.repo.Find(ctx, id)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeNotFound, err, "pickup location not found")
	}
	return location, nil
}

func (s *service) ListActive(ctx context.Context) ([]models.PickupLocation, error) {
	return s.repo.List(ctx, true)
}

func (s *service) ListAll(ctx context.Context) ([]models.PickupLocation, error) {
	return s.repo.List(ctx, false)
}

// SetActive toggles buyer visibility. Deactivated locations stay referenced
// by historical orders.
func (s *service) SetActive(ctx context.Context, id uuid.UUID, active bool) (*models.PickupLocation, error) {
	if _, err := s.repo.Find(ctx, id); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeNotFound, err, "pickup location not found")
	}
	if err := s.repo.Update(ctx, id, map[string]any{"is_active": active}); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "toggle pickup location")
	}
	return s.repo.Find(ctx, id)
}
