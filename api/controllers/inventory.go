package controllers

import (
	"context"
	"net/http"

	"github.com/google/uuid"

	"github.com/fitmarkethq/fitmarket-backend/api/middleware"
	"github.com/fitmarkethq/fitmarket-backend/api/responses"
	"github.com/fitmarkethq/fitmarket-backend/api/validators"
	"github.com/fitmarkethq/fitmarket-backend/internal/inventory"
	"github.com/fitmarkethq/fitmarket-backend/pkg/enums"
	"github.com/fitmarkethq/fitmarket-backend/pkg/logger"
	"github.com/fitmarkethq/fitmarket-backend/pkg/pagination"
)

// Inventory serves stock administration and the movement audit trail.
type Inventory struct {
	svc  inventory.Service
	logg *logger.Logger
}

func NewInventory(svc inventory.Service, logg *logger.Logger) *Inventory {
	return &Inventory{svc: svc, logg: logg}
}

type setInitialRequest struct {
	Quantity int    `json:"quantity" validate:"min=0"`
	Note     string `json:"note"`
}

// SetInitial sets the absolute stock level with an initial audit entry.
func (c *Inventory) SetInitial(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	productID, err := validators.PathUUID(r, "productID")
	if err != nil {
		responses.WriteError(ctx, c.logg, w, err)
		return
	}
	var body setInitialRequest
	if err := validators.DecodeJSONBody(r, &body); err != nil {
		responses.WriteError(ctx, c.logg, w, err)
		return
	}

	actor := actorPointer(ctx)
	product, err := c.svc.SetInitial(ctx, inventory.SetInitialInput{
		ProductID: productID,
		Quantity:  body.Quantity,
		ActorID:   actor,
		Note:      body.Note,
	})
	if err != nil {
		responses.WriteError(ctx, c.logg, w, err)
		return
	}
	responses.WriteSuccess(w, toProductResponse(product))
}

type adjustRequest struct {
	Delta int    `json:"delta" validate:"required"`
	Note  string `json:"note"`
}

// Adjust applies a manual stock delta. The log records the requested delta
// even when the stock floor clamps the result.
func (c *Inventory) Adjust(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	productID, err := validators.PathUUID(r, "productID")
	if err != nil {
		responses.WriteError(ctx, c.logg, w, err)
		return
	}
	var body adjustRequest
	if err := validators.DecodeJSONBody(r, &body); err != nil {
		responses.WriteError(ctx, c.logg, w, err)
		return
	}

	actor := actorPointer(ctx)
	newStock, err := c.svc.Adjust(ctx, nil, inventory.AdjustInput{
		ProductID:  productID,
		Delta:      body.Delta,
		ChangeType: enums.InventoryChangeManual,
		ActorID:    actor,
		Note:       body.Note,
	})
	if err != nil {
		responses.WriteError(ctx, c.logg, w, err)
		return
	}
	responses.WriteSuccess(w, map[string]any{"product_id": productID, "stock": newStock})
}

// Logs streams the audit trail for a product, newest first.
func (c *Inventory) Logs(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	productID, err := validators.PathUUID(r, "productID")
	if err != nil {
		responses.WriteError(ctx, c.logg, w, err)
		return
	}
	limit, err := validators.ParseQueryInt(r, "limit", 25, 1, 100)
	if err != nil {
		responses.WriteError(ctx, c.logg, w, err)
		return
	}
	logs, err := c.svc.Logs(ctx, productID, pagination.Params{Limit: limit, Cursor: r.URL.Query().Get("cursor")})
	if err != nil {
		responses.WriteError(ctx, c.logg, w, err)
		return
	}
	responses.WriteSuccess(w, toInventoryLogResponses(logs))
}

func actorPointer(ctx context.Context) *uuid.UUID {
	if id := middleware.UserIDFromContext(ctx); id != uuid.Nil {
		return &id
	}
	return nil
}
