// Package gateway isolates the payment provider behind a narrow refund
// capability. Only this package speaks Stripe types.
package gateway

import (
	"context"
	"time"

	"github.com/fitmarkethq/fitmarket-backend/pkg/enums"
)

// GatewayRefund is the provider's view of a refund, used for reconciliation.
type GatewayRefund struct {
	ID          string
	AmountCents int64
	Status      string
	Created     time.Time
}

// Refunder issues refunds against a captured payment intent and lists the
// refunds the provider already knows about.
type Refunder interface {
	CreateRefund(ctx context.Context, paymentIntentID string, amountCents int64, reasonTag enums.RefundReasonTag) (string, error)
	FindRefundsByIntent(ctx context.Context, paymentIntentID string) ([]GatewayRefund, error)
}
