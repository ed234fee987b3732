package controllers

import (
	"net/http"

	"github.com/google/uuid"

	"github.com/fitmarkethq/fitmarket-backend/api/middleware"
	"github.com/fitmarkethq/fitmarket-backend/api/responses"
	"github.com/fitmarkethq/fitmarket-backend/api/validators"
	"github.com/fitmarkethq/fitmarket-backend/internal/memberships"
	pkgerrors "github.com/fitmarkethq/fitmarket-backend/pkg/errors"
	"github.com/fitmarkethq/fitmarket-backend/pkg/logger"
	"github.com/fitmarkethq/fitmarket-backend/pkg/money"
)

// Memberships serves recurring plans and subscriptions.
type Memberships struct {
	svc  memberships.Service
	logg *logger.Logger
}

func NewMemberships(svc memberships.Service, logg *logger.Logger) *Memberships {
	return &Memberships{svc: svc, logg: logg}
}

type createPlanRequest struct {
	SellerID          *uuid.UUID   `json:"seller_id,omitempty"`
	Name              string       `json:"name" validate:"required"`
	Price             money.Amount `json:"price"`
	BillingPeriodDays int          `json:"billing_period_days" validate:"min=0"`
	ChargeGST         bool         `json:"charge_gst"`
	ChargePST         bool         `json:"charge_pst"`
}

// CreatePlan registers a recurring plan. Omitting seller_id makes the plan
// platform-owned.
func (c *Memberships) CreatePlan(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var body createPlanRequest
	if err := validators.DecodeJSONBody(r, &body); err != nil {
		responses.WriteError(ctx, c.logg, w, err)
		return
	}
	plan, err := c.svc.CreatePlan(ctx, memberships.CreatePlanInput{
		SellerID:          body.SellerID,
		Name:              body.Name,
		Price:             body.Price,
		BillingPeriodDays: body.BillingPeriodDays,
		ChargeGST:         body.ChargeGST,
		ChargePST:         body.ChargePST,
	})
	if err != nil {
		responses.WriteError(ctx, c.logg, w, err)
		return
	}
	responses.WriteSuccessStatus(w, http.StatusCreated, toMembershipPlanResponse(plan))
}

// GetPlan returns one plan.
func (c *Memberships) GetPlan(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	planID, err := validators.PathUUID(r, "planID")
	if err != nil {
		responses.WriteError(ctx, c.logg, w, err)
		return
	}
	plan, err := c.svc.GetPlan(ctx, planID)
	if err != nil {
		responses.WriteError(ctx, c.logg, w, err)
		return
	}
	responses.WriteSuccess(w, toMembershipPlanResponse(plan))
}

// Subscribe enrolls the authenticated user in a plan. Re-subscribing to a
// plan the user already holds returns the existing membership.
func (c *Memberships) Subscribe(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	planID, err := validators.PathUUID(r, "planID")
	if err != nil {
		responses.WriteError(ctx, c.logg, w, err)
		return
	}
	membership, err := c.svc.Subscribe(ctx, middleware.UserIDFromContext(ctx), planID)
	if err != nil {
		responses.WriteError(ctx, c.logg, w, err)
		return
	}
	responses.WriteSuccessStatus(w, http.StatusCreated, toMembershipResponse(membership))
}

// Cancel ends the caller's membership. The current cycle stays paid.
func (c *Memberships) Cancel(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	membershipID, err := validators.PathUUID(r, "membershipID")
	if err != nil {
		responses.WriteError(ctx, c.logg, w, err)
		return
	}
	membership, err := c.svc.GetMembership(ctx, membershipID)
	if err != nil {
		responses.WriteError(ctx, c.logg, w, err)
		return
	}
	if !middleware.IsAdmin(ctx) && membership.UserID != middleware.UserIDFromContext(ctx) {
		// Same shape as an unknown id so membership ids cannot be probed.
		responses.WriteError(ctx, c.logg, w,
			pkgerrors.New(pkgerrors.CodeNotFound, "membership not found"))
		return
	}
	cancelled, err := c.svc.Cancel(ctx, membershipID)
	if err != nil {
		responses.WriteError(ctx, c.logg, w, err)
		return
	}
	responses.WriteSuccess(w, toMembershipResponse(cancelled))
}

// Renew bills one cycle immediately. Admin-triggered; the scheduled worker
// handles the steady state.
func (c *Memberships) Renew(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	membershipID, err := validators.PathUUID(r, "membershipID")
	if err != nil {
		responses.WriteError(ctx, c.logg, w, err)
		return
	}
	var body struct {
		PaymentIntentID string `json:"payment_intent_id"`
	}
	if err := validators.DecodeJSONBody(r, &body); err != nil {
		responses.WriteError(ctx, c.logg, w, err)
		return
	}
	order, err := c.svc.Renew(ctx, membershipID, body.PaymentIntentID)
	if err != nil {
		responses.WriteError(ctx, c.logg, w, err)
		return
	}
	responses.WriteSuccessStatus(w, http.StatusCreated, toOrderResponse(order))
}
