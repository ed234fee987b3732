package gateway

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/stripe/stripe-go/v84"
	"github.com/stripe/stripe-go/v84/refund"

	"github.com/fitmarkethq/fitmarket-backend/pkg/enums"
	pkgerrors "github.com/fitmarkethq/fitmarket-backend/pkg/errors"
	pkgstripe "github.com/fitmarkethq/fitmarket-backend/pkg/stripe"
)

const defaultTimeout = 15 * time.Second

// StripeRefunder implements Refunder on top of the Stripe API. Every call is
// bounded by the configured timeout so a stalled provider cannot hold a
// refund worker.
type StripeRefunder struct {
	client  *pkgstripe.Client
	timeout time.Duration
}

// NewStripeRefunder wraps the shared Stripe client.
func NewStripeRefunder(client *pkgstripe.Client, timeout time.Duration) (*StripeRefunder, error) {
	if client == nil {
		return nil, fmt.Errorf("stripe client required")
	}
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	return &StripeRefunder{client: client, timeout: timeout}, nil
}

func (s *StripeRefunder) CreateRefund(ctx context.Context, paymentIntentID string, amountCents int64, reasonTag enums.RefundReasonTag) (string, error) {
	if paymentIntentID == "" {
		return "", pkgerrors.New(pkgerrors.CodeDependency, "payment intent id required for gateway refund")
	}
	if amountCents <= 0 {
		return "", pkgerrors.New(pkgerrors.CodeDependency, "refund amount must be positive")
	}

	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	params := &stripe.RefundParams{
		PaymentIntent: stripe.String(paymentIntentID),
		Amount:        stripe.Int64(amountCents),
	}
	if reason := stripeReason(reasonTag); reason != "" {
		params.Reason = stripe.String(reason)
	}
	params.Context = ctx

	created, err := refund.New(params)
	if err != nil {
		return "", mapStripeError(err)
	}
	return created.ID, nil
}

func (s *StripeRefunder) FindRefundsByIntent(ctx context.Context, paymentIntentID string) ([]GatewayRefund, error) {
	if paymentIntentID == "" {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "payment intent id required")
	}

	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	params := &stripe.RefundListParams{
		PaymentIntent: stripe.String(paymentIntentID),
	}
	params.Context = ctx

	var out []GatewayRefund
	it := refund.List(params)
	for it.Next() {
		r := it.Refund()
		out = append(out, GatewayRefund{
			ID:          r.ID,
			AmountCents: r.Amount,
			Status:      string(r.Status),
			Created:     time.Unix(r.Created, 0).UTC(),
		})
	}
	if err := it.Err(); err != nil {
		return nil, mapStripeError(err)
	}
	return out, nil
}

// stripeReason maps the engine's reason tags onto Stripe's closed set.
// Admin overrides go out as customer-requested because Stripe has no
// equivalent category.
func stripeReason(tag enums.RefundReasonTag) string {
	switch tag {
	case enums.RefundReasonDuplicate:
		return string(stripe.RefundReasonDuplicate)
	case enums.RefundReasonFraudulent:
		return string(stripe.RefundReasonFraudulent)
	case enums.RefundReasonRequestedByCustomer, enums.RefundReasonAdminOverride:
		return string(stripe.RefundReasonRequestedByCustomer)
	}
	return ""
}

// mapStripeError splits provider failures into a definitive rejection (the
// provider heard us and said no) and unavailability (we cannot know whether
// the request landed). The refund state machine treats the two differently.
func mapStripeError(err error) error {
	var stripeErr *stripe.Error
	if errors.As(err, &stripeErr) {
		switch {
		case stripeErr.HTTPStatusCode >= http.StatusInternalServerError,
			stripeErr.HTTPStatusCode == http.StatusTooManyRequests:
			return pkgerrors.Wrap(pkgerrors.CodeGatewayUnavailable, err, "stripe temporarily unavailable")
		default:
			return pkgerrors.Wrap(pkgerrors.CodeGatewayRejected, err, stripeErr.Msg).
				WithDetails(map[string]any{"stripe_code": string(stripeErr.Code)})
		}
	}
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return pkgerrors.Wrap(pkgerrors.CodeGatewayUnavailable, err, "stripe request timed out")
	}
	return pkgerrors.Wrap(pkgerrors.CodeGatewayUnavailable, err, "stripe unreachable")
}
