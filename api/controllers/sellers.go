package controllers

import (
	"net/http"

	"github.com/shopspring/decimal"

	"github.com/fitmarkethq/fitmarket-backend/api/middleware"
	"github.com/fitmarkethq/fitmarket-backend/api/responses"
	"github.com/fitmarkethq/fitmarket-backend/api/validators"
	"github.com/fitmarkethq/fitmarket-backend/internal/sellers"
	pkgerrors "github.com/fitmarkethq/fitmarket-backend/pkg/errors"
	"github.com/fitmarkethq/fitmarket-backend/pkg/logger"
	"github.com/fitmarkethq/fitmarket-backend/pkg/pagination"
)

// Sellers serves the vendor lifecycle.
type Sellers struct {
	svc  sellers.Service
	logg *logger.Logger
}

func NewSellers(svc sellers.Service, logg *logger.Logger) *Sellers {
	return &Sellers{svc: svc, logg: logg}
}

type applyRequest struct {
	DisplayName    string  `json:"display_name" validate:"required"`
	BusinessName   *string `json:"business_name,omitempty"`
	BusinessNumber *string `json:"business_number,omitempty"`
	SupportEmail   *string `json:"support_email,omitempty" validate:"omitempty,email"`
}

// Apply opens a pending seller application for the authenticated user.
func (c *Sellers) Apply(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var body applyRequest
	if err := validators.DecodeJSONBody(r, &body); err != nil {
		responses.WriteError(ctx, c.logg, w, err)
		return
	}

	seller, err := c.svc.Apply(ctx, sellers.ApplyInput{
		UserID:         middleware.UserIDFromContext(ctx),
		DisplayName:    body.DisplayName,
		BusinessName:   body.BusinessName,
		BusinessNumber: body.BusinessNumber,
		SupportEmail:   body.SupportEmail,
	})
	if err != nil {
		responses.WriteError(ctx, c.logg, w, err)
		return
	}
	responses.WriteSuccessStatus(w, http.StatusCreated, toSellerResponse(seller))
}

// Me returns the seller record owned by the authenticated user.
func (c *Sellers) Me(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	seller, err := c.svc.GetByUser(ctx, middleware.UserIDFromContext(ctx))
	if err != nil {
		responses.WriteError(ctx, c.logg, w, err)
		return
	}
	responses.WriteSuccess(w, toSellerResponse(seller))
}

// Approve moves a pending application to approved.
func (c *Sellers) Approve(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	sellerID, err := validators.PathUUID(r, "sellerID")
	if err != nil {
		responses.WriteError(ctx, c.logg, w, err)
		return
	}
	seller, err := c.svc.Approve(ctx, sellerID, middleware.UserIDFromContext(ctx))
	if err != nil {
		responses.WriteError(ctx, c.logg, w, err)
		return
	}
	responses.WriteSuccess(w, toSellerResponse(seller))
}

// Reject declines a pending application. Rejection is final.
func (c *Sellers) Reject(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	sellerID, err := validators.PathUUID(r, "sellerID")
	if err != nil {
		responses.WriteError(ctx, c.logg, w, err)
		return
	}
	seller, err := c.svc.Reject(ctx, sellerID, middleware.UserIDFromContext(ctx))
	if err != nil {
		responses.WriteError(ctx, c.logg, w, err)
		return
	}
	responses.WriteSuccess(w, toSellerResponse(seller))
}

type configureSellerRequest struct {
	CommissionRate *string `json:"commission_rate,omitempty"`
	PayoutHoldDays *int    `json:"payout_hold_days,omitempty" validate:"omitempty,min=0"`
	IsTrusted      *bool   `json:"is_trusted,omitempty"`
}

// Configure adjusts a seller's commission rate and payout policy.
func (c *Sellers) Configure(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	sellerID, err := validators.PathUUID(r, "sellerID")
	if err != nil {
		responses.WriteError(ctx, c.logg, w, err)
		return
	}
	var body configureSellerRequest
	if err := validators.DecodeJSONBody(r, &body); err != nil {
		responses.WriteError(ctx, c.logg, w, err)
		return
	}

	input := sellers.ConfigureInput{
		SellerID:       sellerID,
		PayoutHoldDays: body.PayoutHoldDays,
		IsTrusted:      body.IsTrusted,
	}
	if body.CommissionRate != nil {
		rate, err := decimal.NewFromString(*body.CommissionRate)
		if err != nil {
			responses.WriteError(ctx, c.logg, w,
				pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid commission rate"))
			return
		}
		input.CommissionRate = &rate
	}

	seller, err := c.svc.Configure(ctx, input)
	if err != nil {
		responses.WriteError(ctx, c.logg, w, err)
		return
	}
	responses.WriteSuccess(w, toSellerResponse(seller))
}

// Pending lists applications awaiting review.
func (c *Sellers) Pending(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	limit, err := validators.ParseQueryInt(r, "limit", 25, 1, 100)
	if err != nil {
		responses.WriteError(ctx, c.logg, w, err)
		return
	}
	list, err := c.svc.ListPending(ctx, pagination.Params{Limit: limit, Cursor: r.URL.Query().Get("cursor")})
	if err != nil {
		responses.WriteError(ctx, c.logg, w, err)
		return
	}
	responses.WriteSuccess(w, toSellerResponses(list))
}
