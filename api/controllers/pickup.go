package controllers

import (
	"net/http"

	"github.com/fitmarkethq/fitmarket-backend/api/responses"
	"github.com/fitmarkethq/fitmarket-backend/api/validators"
	"github.com/fitmarkethq/fitmarket-backend/internal/pickup"
	"github.com/fitmarkethq/fitmarket-backend/pkg/logger"
)

// Pickup serves pickup location administration and the public active list.
type Pickup struct {
	svc  pickup.Service
	logg *logger.Logger
}

func NewPickup(svc pickup.Service, logg *logger.Logger) *Pickup {
	return &Pickup{svc: svc, logg: logg}
}

type pickupLocationRequest struct {
	Name         string `json:"name" validate:"required"`
	Address1     string `json:"address1" validate:"required"`
	Address2     string `json:"address2"`
	City         string `json:"city" validate:"required"`
	Province     string `json:"province" validate:"required"`
	PostalCode   string `json:"postal_code" validate:"required"`
	Country      string `json:"country"`
	Phone        string `json:"phone"`
	Instructions string `json:"instructions"`
	DisplayOrder int    `json:"display_order" validate:"min=0"`
}

func (b pickupLocationRequest) toInput() pickup.LocationInput {
	return pickup.LocationInput{
		Name:         b.Name,
		Address1:     b.Address1,
		Address2:     b.Address2,
		City:         b.City,
		Province:     b.Province,
		PostalCode:   b.PostalCode,
		Country:      b.Country,
		Phone:        b.Phone,
		Instructions: b.Instructions,
		DisplayOrder: b.DisplayOrder,
	}
}

// Create registers a pickup location.
func (c *Pickup) Create(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var body pickupLocationRequest
	if err := validators.DecodeJSONBody(r, &body); err != nil {
		responses.WriteError(ctx, c.logg, w, err)
		return
	}
	location, err := c.svc.Create(ctx, body.toInput())
	if err != nil {
		responses.WriteError(ctx, c.logg, w, err)
		return
	}
	responses.WriteSuccessStatus(w, http.StatusCreated, toPickupLocationResponse(location))
}

// Update rewrites a pickup location.
func (c *Pickup) Update(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	locationID, err := validators.PathUUID(r, "locationID")
	if err != nil {
		responses.WriteError(ctx, c.logg, w, err)
		return
	}
	var body pickupLocationRequest
	if err := validators.DecodeJSONBody(r, &body); err != nil {
		responses.WriteError(ctx, c.logg, w, err)
		return
	}
	location, err := c.svc.Update(ctx, locationID, body.toInput())
	if err != nil {
		responses.WriteError(ctx, c.logg, w, err)
		return
	}
	responses.WriteSuccess(w, toPickupLocationResponse(location))
}

// Get returns one pickup location.
func (c *Pickup) Get(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	locationID, err := validators.PathUUID(r, "locationID")
	if err != nil {
		responses.WriteError(ctx, c.logg, w, err)
		return
	}
	location, err := c.svc.Get(ctx, locationID)
	if err != nil {
		responses.WriteError(ctx, c.logg, w, err)
		return
	}
	responses.WriteSuccess(w, toPickupLocationResponse(location))
}

// ListActive returns locations shown at checkout.
func (c *Pickup) ListActive(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	list, err := c.svc.ListActive(ctx)
	if err != nil {
		responses.WriteError(ctx, c.logg, w, err)
		return
	}
	responses.WriteSuccess(w, toPickupLocationResponses(list))
}

// ListAll returns every location, hidden ones included.
func (c *Pickup) ListAll(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	list, err := c.svc.ListAll(ctx)
	if err != nil {
		responses.WriteError(ctx, c.logg, w, err)
		return
	}
	responses.WriteSuccess(w, toPickupLocationResponses(list))
}

type setActiveRequest struct {
	Active bool `json:"active"`
}

// SetActive shows or hides a location at checkout.
func (c *Pickup) SetActive(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	locationID, err := validators.PathUUID(r, "locationID")
	if err != nil {
		responses.WriteError(ctx, c.logg, w, err)
		return
	}
	var body setActiveRequest
	if err := validators.DecodeJSONBody(r, &body); err != nil {
		responses.WriteError(ctx, c.logg, w, err)
		return
	}
	location, err := c.svc.SetActive(ctx, locationID, body.Active)
	if err != nil {
		responses.WriteError(ctx, c.logg, w, err)
		return
	}
	responses.WriteSuccess(w, toPickupLocationResponse(location))
}
