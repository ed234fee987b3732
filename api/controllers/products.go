package controllers

import (
	"net/http"

	"github.com/google/uuid"

	"github.com/fitmarkethq/fitmarket-backend/api/middleware"
	"github.com/fitmarkethq/fitmarket-backend/api/responses"
	"github.com/fitmarkethq/fitmarket-backend/api/validators"
	"github.com/fitmarkethq/fitmarket-backend/internal/products"
	"github.com/fitmarkethq/fitmarket-backend/pkg/enums"
	pkgerrors "github.com/fitmarkethq/fitmarket-backend/pkg/errors"
	"github.com/fitmarkethq/fitmarket-backend/pkg/logger"
	"github.com/fitmarkethq/fitmarket-backend/pkg/money"
	"github.com/fitmarkethq/fitmarket-backend/pkg/pagination"
)

// Products serves the seller catalog.
type Products struct {
	svc  products.Service
	logg *logger.Logger
}

func NewProducts(svc products.Service, logg *logger.Logger) *Products {
	return &Products{svc: svc, logg: logg}
}

type createProductRequest struct {
	Name           string       `json:"name" validate:"required"`
	Description    string       `json:"description"`
	Kind           string       `json:"kind" validate:"required,oneof=physical digital service"`
	UnitPrice      money.Amount `json:"unit_price"`
	Stock          int          `json:"stock" validate:"min=0"`
	ServiceSeats   *int         `json:"service_seats,omitempty"`
	DigitalFileKey *string      `json:"digital_file_key,omitempty"`
	DigitalURL     *string      `json:"digital_url,omitempty"`
	ChargeGST      bool         `json:"charge_gst"`
	ChargePST      bool         `json:"charge_pst"`
}

// Create lists a new product for the acting seller.
func (c *Products) Create(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var body createProductRequest
	if err := validators.DecodeJSONBody(r, &body); err != nil {
		responses.WriteError(ctx, c.logg, w, err)
		return
	}

	var sellerID *uuid.UUID
	if id := middleware.SellerIDFromContext(ctx); id != uuid.Nil {
		sellerID = &id
	} else if !middleware.IsAdmin(ctx) {
		responses.WriteError(ctx, c.logg, w,
			pkgerrors.New(pkgerrors.CodeForbidden, "seller account required"))
		return
	}

	product, err := c.svc.Create(ctx, products.CreateInput{
		SellerID:       sellerID,
		Name:           body.Name,
		Description:    body.Description,
		Kind:           enums.ProductKind(body.Kind),
		UnitPrice:      body.UnitPrice,
		Stock:          body.Stock,
		ServiceSeats:   body.ServiceSeats,
		DigitalFileKey: body.DigitalFileKey,
		DigitalURL:     body.DigitalURL,
		ChargeGST:      body.ChargeGST,
		ChargePST:      body.ChargePST,
	})
	if err != nil {
		responses.WriteError(ctx, c.logg, w, err)
		return
	}
	responses.WriteSuccessStatus(w, http.StatusCreated, toProductResponse(product))
}

type updateProductRequest struct {
	Name        *string       `json:"name,omitempty"`
	Description *string       `json:"description,omitempty"`
	UnitPrice   *money.Amount `json:"unit_price,omitempty"`
	IsActive    *bool         `json:"is_active,omitempty"`
}

// Update mutates the acting seller's listing.
func (c *Products) Update(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	productID, err := validators.PathUUID(r, "productID")
	if err != nil {
		responses.WriteError(ctx, c.logg, w, err)
		return
	}
	var body updateProductRequest
	if err := validators.DecodeJSONBody(r, &body); err != nil {
		responses.WriteError(ctx, c.logg, w, err)
		return
	}

	product, err := c.svc.Update(ctx, products.UpdateInput{
		ProductID:   productID,
		SellerID:    middleware.SellerIDFromContext(ctx),
		Name:        body.Name,
		Description: body.Description,
		UnitPrice:   body.UnitPrice,
		IsActive:    body.IsActive,
	})
	if err != nil {
		responses.WriteError(ctx, c.logg, w, err)
		return
	}
	responses.WriteSuccess(w, toProductResponse(product))
}

// Retire soft-deletes a listing.
func (c *Products) Retire(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	productID, err := validators.PathUUID(r, "productID")
	if err != nil {
		responses.WriteError(ctx, c.logg, w, err)
		return
	}
	if err := c.svc.Retire(ctx, productID, middleware.SellerIDFromContext(ctx)); err != nil {
		responses.WriteError(ctx, c.logg, w, err)
		return
	}
	responses.WriteSuccess(w, map[string]string{"retired": productID.String()})
}

// Get returns one listing.
func (c *Products) Get(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	productID, err := validators.PathUUID(r, "productID")
	if err != nil {
		responses.WriteError(ctx, c.logg, w, err)
		return
	}
	product, err := c.svc.Get(ctx, productID)
	if err != nil {
		responses.WriteError(ctx, c.logg, w, err)
		return
	}
	responses.WriteSuccess(w, toProductResponse(product))
}

// List returns active listings, or the acting seller's listings when
// ?mine=true.
func (c *Products) List(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	limit, err := validators.ParseQueryInt(r, "limit", 25, 1, 100)
	if err != nil {
		responses.WriteError(ctx, c.logg, w, err)
		return
	}
	params := pagination.Params{Limit: limit, Cursor: r.URL.Query().Get("cursor")}

	var list []ProductResponse
	if r.URL.Query().Get("mine") == "true" {
		sellerID := middleware.SellerIDFromContext(ctx)
		if sellerID == uuid.Nil {
			responses.WriteError(ctx, c.logg, w,
				pkgerrors.New(pkgerrors.CodeForbidden, "seller account required"))
			return
		}
		mine, err := c.svc.ListBySeller(ctx, sellerID, params)
		if err != nil {
			responses.WriteError(ctx, c.logg, w, err)
			return
		}
		list = toProductResponses(mine)
	} else {
		active, err := c.svc.ListActive(ctx, params)
		if err != nil {
			responses.WriteError(ctx, c.logg, w, err)
			return
		}
		list = toProductResponses(active)
	}
	responses.WriteSuccess(w, list)
}
