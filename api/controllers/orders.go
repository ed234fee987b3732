package controllers

import (
	"net/http"

	"github.com/google/uuid"

	"github.com/fitmarkethq/fitmarket-backend/api/middleware"
	"github.com/fitmarkethq/fitmarket-backend/api/responses"
	"github.com/fitmarkethq/fitmarket-backend/api/validators"
	"github.com/fitmarkethq/fitmarket-backend/internal/orders"
	"github.com/fitmarkethq/fitmarket-backend/pkg/enums"
	pkgerrors "github.com/fitmarkethq/fitmarket-backend/pkg/errors"
	"github.com/fitmarkethq/fitmarket-backend/pkg/logger"
	"github.com/fitmarkethq/fitmarket-backend/pkg/pagination"
)

// Orders serves checkout and order reads.
type Orders struct {
	svc  orders.Service
	logg *logger.Logger
}

func NewOrders(svc orders.Service, logg *logger.Logger) *Orders {
	return &Orders{svc: svc, logg: logg}
}

type checkoutLineRequest struct {
	ProductID uuid.UUID `json:"product_id" validate:"required"`
	Quantity  int       `json:"quantity" validate:"required,min=1"`
}

type checkoutRequest struct {
	Lines            []checkoutLineRequest `json:"lines" validate:"required,min=1,dive"`
	PickupLocationID *uuid.UUID            `json:"pickup_location_id,omitempty"`
	PaymentIntentID  string                `json:"payment_intent_id" validate:"required"`
}

// Checkout places an order for the authenticated user.
func (c *Orders) Checkout(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var body checkoutRequest
	if err := validators.DecodeJSONBody(r, &body); err != nil {
		responses.WriteError(ctx, c.logg, w, err)
		return
	}

	lines := make([]orders.CartLine, 0, len(body.Lines))
	for _, line := range body.Lines {
		lines = append(lines, orders.CartLine{ProductID: line.ProductID, Quantity: line.Quantity})
	}

	order, err := c.svc.PlaceOrder(ctx, orders.PlaceOrderInput{
		UserID:           middleware.UserIDFromContext(ctx),
		Lines:            lines,
		PickupLocationID: body.PickupLocationID,
		PaymentIntentID:  body.PaymentIntentID,
	})
	if err != nil {
		responses.WriteError(ctx, c.logg, w, err)
		return
	}
	responses.WriteSuccessStatus(w, http.StatusCreated, toOrderResponse(order))
}

// Get returns one order. Buyers see their own orders; admins see all.
func (c *Orders) Get(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	orderID, err := validators.PathUUID(r, "orderID")
	if err != nil {
		responses.WriteError(ctx, c.logg, w, err)
		return
	}
	order, err := c.svc.Get(ctx, orderID)
	if err != nil {
		responses.WriteError(ctx, c.logg, w, err)
		return
	}
	if !middleware.IsAdmin(ctx) && order.UserID != middleware.UserIDFromContext(ctx) {
		responses.WriteError(ctx, c.logg, w,
			pkgerrors.New(pkgerrors.CodeNotFound, "order not found"))
		return
	}
	responses.WriteSuccess(w, toOrderResponse(order))
}

// List returns the authenticated user's orders, newest first.
func (c *Orders) List(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	limit, err := validators.ParseQueryInt(r, "limit", 25, 1, 100)
	if err != nil {
		responses.WriteError(ctx, c.logg, w, err)
		return
	}
	params := pagination.Params{Limit: limit, Cursor: r.URL.Query().Get("cursor")}

	list, err := c.svc.ListByUser(ctx, middleware.UserIDFromContext(ctx), params)
	if err != nil {
		responses.WriteError(ctx, c.logg, w, err)
		return
	}
	responses.WriteSuccess(w, toOrderResponses(list))
}

type shippingAddressRequest struct {
	Name       string `json:"name" validate:"required"`
	Phone      string `json:"phone"`
	Address1   string `json:"address1" validate:"required"`
	Address2   string `json:"address2"`
	City       string `json:"city" validate:"required"`
	Province   string `json:"province" validate:"required"`
	PostalCode string `json:"postal_code" validate:"required"`
	Country    string `json:"country" validate:"required"`
}

type updateShippingRequest struct {
	TrackingNumber  *string                 `json:"tracking_number,omitempty"`
	ShippingCarrier *string                 `json:"shipping_carrier,omitempty"`
	Address         *shippingAddressRequest `json:"address,omitempty"`
}

// UpdateShipping sets tracking and carrier, and rewrites the address while
// the shipping snapshot is still unlocked.
func (c *Orders) UpdateShipping(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	orderID, err := validators.PathUUID(r, "orderID")
	if err != nil {
		responses.WriteError(ctx, c.logg, w, err)
		return
	}
	var body updateShippingRequest
	if err := validators.DecodeJSONBody(r, &body); err != nil {
		responses.WriteError(ctx, c.logg, w, err)
		return
	}

	input := orders.UpdateShippingInput{
		OrderID:        orderID,
		TrackingNumber: body.TrackingNumber,
	}
	if body.ShippingCarrier != nil {
		carrier, err := enums.ParseShippingCarrier(*body.ShippingCarrier)
		if err != nil {
			responses.WriteError(ctx, c.logg, w,
				pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid shipping carrier"))
			return
		}
		input.ShippingCarrier = &carrier
	}
	if body.Address != nil {
		input.Address = &orders.AddressInput{
			Name:       body.Address.Name,
			Phone:      body.Address.Phone,
			Address1:   body.Address.Address1,
			Address2:   body.Address.Address2,
			City:       body.Address.City,
			Province:   body.Address.Province,
			PostalCode: body.Address.PostalCode,
			Country:    body.Address.Country,
		}
	}

	order, err := c.svc.UpdateShipping(ctx, input)
	if err != nil {
		responses.WriteError(ctx, c.logg, w, err)
		return
	}
	responses.WriteSuccess(w, toOrderResponse(order))
}

// Delete removes an order. Refused while refunds reference it.
func (c *Orders) Delete(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	orderID, err := validators.PathUUID(r, "orderID")
	if err != nil {
		responses.WriteError(ctx, c.logg, w, err)
		return
	}
	if err := c.svc.Delete(ctx, orderID); err != nil {
		responses.WriteError(ctx, c.logg, w, err)
		return
	}
	responses.WriteSuccessStatus(w, http.StatusOK, map[string]string{"deleted": orderID.String()})
}
