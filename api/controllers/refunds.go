package controllers

import (
	"net/http"

	"github.com/google/uuid"

	"github.com/fitmarkethq/fitmarket-backend/api/middleware"
	"github.com/fitmarkethq/fitmarket-backend/api/responses"
	"github.com/fitmarkethq/fitmarket-backend/api/validators"
	"github.com/fitmarkethq/fitmarket-backend/internal/refunds"
	"github.com/fitmarkethq/fitmarket-backend/pkg/enums"
	pkgerrors "github.com/fitmarkethq/fitmarket-backend/pkg/errors"
	"github.com/fitmarkethq/fitmarket-backend/pkg/logger"
	"github.com/fitmarkethq/fitmarket-backend/pkg/money"
	"github.com/fitmarkethq/fitmarket-backend/pkg/pagination"
)

// Refunds serves the seller refund request and the admin review queue.
type Refunds struct {
	svc  refunds.Service
	logg *logger.Logger
}

func NewRefunds(svc refunds.Service, logg *logger.Logger) *Refunds {
	return &Refunds{svc: svc, logg: logg}
}

type refundRequestBody struct {
	OrderID   uuid.UUID    `json:"order_id" validate:"required"`
	Amount    money.Amount `json:"amount"`
	Reason    string       `json:"reason" validate:"required"`
	ReasonTag string       `json:"reason_tag" validate:"required"`
}

// RequestItemRefund opens a refund for one order line, on behalf of the
// seller owning it. A zero or omitted amount means the full line.
func (c *Refunds) RequestItemRefund(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	itemID, err := validators.PathUUID(r, "itemID")
	if err != nil {
		responses.WriteError(ctx, c.logg, w, err)
		return
	}
	var body refundRequestBody
	if err := validators.DecodeJSONBody(r, &body); err != nil {
		responses.WriteError(ctx, c.logg, w, err)
		return
	}
	tag, err := enums.ParseRefundReasonTag(body.ReasonTag)
	if err != nil {
		responses.WriteError(ctx, c.logg, w,
			pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid reason tag"))
		return
	}

	refund, err := c.svc.Request(ctx, refunds.RequestInput{
		OrderID:     body.OrderID,
		OrderItemID: &itemID,
		Amount:      body.Amount,
		Reason:      body.Reason,
		ReasonTag:   tag,
		SellerID:    middleware.SellerIDFromContext(ctx),
		ActorID:     middleware.UserIDFromContext(ctx),
	})
	if err != nil {
		responses.WriteError(ctx, c.logg, w, err)
		return
	}
	responses.WriteSuccessStatus(w, http.StatusCreated, toRefundResponse(refund))
}

// Queue lists refunds awaiting review, oldest first.
func (c *Refunds) Queue(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	limit, err := validators.ParseQueryInt(r, "limit", 25, 1, 100)
	if err != nil {
		responses.WriteError(ctx, c.logg, w, err)
		return
	}
	list, err := c.svc.Queue(ctx, pagination.Params{Limit: limit, Cursor: r.URL.Query().Get("cursor")})
	if err != nil {
		responses.WriteError(ctx, c.logg, w, err)
		return
	}
	responses.WriteSuccess(w, toRefundResponses(list))
}

// Get returns one refund.
func (c *Refunds) Get(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	refundID, err := validators.PathUUID(r, "refundID")
	if err != nil {
		responses.WriteError(ctx, c.logg, w, err)
		return
	}
	refund, err := c.svc.Get(ctx, refundID)
	if err != nil {
		responses.WriteError(ctx, c.logg, w, err)
		return
	}
	responses.WriteSuccess(w, toRefundResponse(refund))
}

// Approve moves a requested refund to approved.
func (c *Refunds) Approve(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	refundID, err := validators.PathUUID(r, "refundID")
	if err != nil {
		responses.WriteError(ctx, c.logg, w, err)
		return
	}
	refund, err := c.svc.Approve(ctx, refundID, middleware.UserIDFromContext(ctx))
	if err != nil {
		responses.WriteError(ctx, c.logg, w, err)
		return
	}
	responses.WriteSuccess(w, toRefundResponse(refund))
}

type rejectRequestBody struct {
	Reason string `json:"reason" validate:"required"`
}

// Reject declines a requested refund with a reviewer note.
func (c *Refunds) Reject(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	refundID, err := validators.PathUUID(r, "refundID")
	if err != nil {
		responses.WriteError(ctx, c.logg, w, err)
		return
	}
	var body rejectRequestBody
	if err := validators.DecodeJSONBody(r, &body); err != nil {
		responses.WriteError(ctx, c.logg, w, err)
		return
	}
	refund, err := c.svc.Reject(ctx, refundID, middleware.UserIDFromContext(ctx), body.Reason)
	if err != nil {
		responses.WriteError(ctx, c.logg, w, err)
		return
	}
	responses.WriteSuccess(w, toRefundResponse(refund))
}

// Process sends an approved refund to the gateway. A refund left in
// processing means the gateway was unreachable; the reconciler settles it.
func (c *Refunds) Process(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	refundID, err := validators.PathUUID(r, "refundID")
	if err != nil {
		responses.WriteError(ctx, c.logg, w, err)
		return
	}
	refund, err := c.svc.Process(ctx, refundID)
	if err != nil {
		responses.WriteError(ctx, c.logg, w, err)
		return
	}
	status := http.StatusOK
	if refund.Status == enums.RefundStatusProcessing {
		status = http.StatusAccepted
	}
	responses.WriteSuccessStatus(w, status, toRefundResponse(refund))
}

type forceRefundBody struct {
	OrderItemID *uuid.UUID   `json:"order_item_id,omitempty"`
	Amount      money.Amount `json:"amount"`
	Reason      string       `json:"reason" validate:"required"`
}

// ForceRefund opens a pre-approved refund against an order, bypassing
// review. Eligibility caps still apply.
func (c *Refunds) ForceRefund(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	orderID, err := validators.PathUUID(r, "orderID")
	if err != nil {
		responses.WriteError(ctx, c.logg, w, err)
		return
	}
	var body forceRefundBody
	if err := validators.DecodeJSONBody(r, &body); err != nil {
		responses.WriteError(ctx, c.logg, w, err)
		return
	}
	refund, err := c.svc.ForceRefund(ctx, refunds.ForceRefundInput{
		OrderID:     orderID,
		OrderItemID: body.OrderItemID,
		Amount:      body.Amount,
		Reason:      body.Reason,
		AdminID:     middleware.UserIDFromContext(ctx),
	})
	if err != nil {
		responses.WriteError(ctx, c.logg, w, err)
		return
	}
	responses.WriteSuccessStatus(w, http.StatusCreated, toRefundResponse(refund))
}
