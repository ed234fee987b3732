package refunds

import (
	"time"

	"github.com/google/uuid"

	"github.com/fitmarkethq/fitmarket-backend/pkg/db/models"
	"github.com/fitmarkethq/fitmarket-backend/pkg/enums"
	pkgerrors "github.com/fitmarkethq/fitmarket-backend/pkg/errors"
	"github.com/fitmarkethq/fitmarket-backend/pkg/money"
)

// WithinWindow reports whether the order is still inside the auto-refund
// window of windowDays after placement.
func WithinWindow(order *models.Order, windowDays int, now time.Time) bool {
	if order == nil || windowDays <= 0 {
		return false
	}
	return now.Before(order.CreatedAt.AddDate(0, 0, windowDays))
}

// CanAutoRefund decides whether a seller-initiated refund skips admin review.
// The seller must own the targeted line, the refund must cover the full line,
// the order must not be disputed, and the window must still be open.
func CanAutoRefund(order *models.Order, item *models.OrderItem, sellerID uuid.UUID, isPartial bool, windowDays int, now time.Time) bool {
	if order == nil || item == nil {
		return false
	}
	if item.SellerID == nil || *item.SellerID != sellerID {
		return false
	}
	if isPartial {
		return false
	}
	if order.Status == enums.OrderStatusDisputed {
		return false
	}
	return WithinWindow(order, windowDays, now)
}

// checkEligibility enforces the constraints shared by seller requests and
// admin force-refunds. It returns the resolved amount: callers may pass a
// zero amount to mean the full remaining scope.
func checkEligibility(order *models.Order, item *models.OrderItem, existing []models.Refund, amount money.Amount) (money.Amount, error) {
	if order.PaymentIntentID == "" {
		return money.Zero(), pkgerrors.New(pkgerrors.CodeRefundNotEligible, "order has no payment to refund")
	}
	if order.Status == enums.OrderStatusCancelled {
		return money.Zero(), pkgerrors.New(pkgerrors.CodeRefundNotEligible, "cancelled orders cannot be refunded")
	}
	if amount.IsNegative() {
		return money.Zero(), pkgerrors.New(pkgerrors.CodeValidation, "refund amount cannot be negative")
	}

	reserved := money.Zero()
	for _, r := range existing {
		if r.Status.ReservesItem() {
			reserved = reserved.Add(r.Amount)
		}
	}
	orderRemaining := order.Total.Sub(reserved)

	var remaining money.Amount
	if item != nil {
		// Item-scope refunds cap at the line total. A single settled or
		// in-flight refund exhausts the line.
		for _, r := range existing {
			if r.OrderItemID != nil && *r.OrderItemID == item.ID && r.Status.ReservesItem() {
				return money.Zero(), pkgerrors.New(pkgerrors.CodeRefundNotEligible, "order item already has a refund in flight or settled")
			}
		}
		// The order-level balance caps every scope, so an order-scope
		// refund in flight shrinks what the line can still claim.
		remaining = item.LineTotal
		if orderRemaining.Cmp(remaining) < 0 {
			remaining = orderRemaining
		}
	} else {
		remaining = orderRemaining
	}

	if !remaining.IsPositive() {
		return money.Zero(), pkgerrors.New(pkgerrors.CodeRefundNotEligible, "nothing left to refund for this scope")
	}
	if amount.IsZero() {
		amount = remaining
	}
	if amount.Cmp(remaining) > 0 {
		return money.Zero(), pkgerrors.New(pkgerrors.CodeRefundNotEligible, "refund amount exceeds the remaining refundable balance")
	}
	return amount, nil
}
