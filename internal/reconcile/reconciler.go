// Package reconcile recovers refunds left in processing when a gateway call
// never got an answer: the gateway is queried by payment intent and each
// stale row is settled, failed, or left for the next run.
package reconcile

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/google/uuid"
	"go.uber.org/multierr"

	"github.com/fitmarkethq/fitmarket-backend/internal/gateway"
	"github.com/fitmarkethq/fitmarket-backend/internal/refunds"
	"github.com/fitmarkethq/fitmarket-backend/pkg/config"
	"github.com/fitmarkethq/fitmarket-backend/pkg/db/models"
	"github.com/fitmarkethq/fitmarket-backend/pkg/logger"
	"github.com/fitmarkethq/fitmarket-backend/pkg/metrics"
)

const (
	lockName       = "refund-reconciler"
	defaultLockTTL = 10 * time.Minute
)

// locker is the distributed-lock surface the reconciler needs.
type locker interface {
	AcquireLock(ctx context.Context, name, holder string, ttl time.Duration) (bool, error)
	ReleaseLock(ctx context.Context, name string) error
}

// refundSettler is the slice of the refunds service the reconciler uses.
type refundSettler interface {
	StaleProcessing(ctx context.Context, olderThan time.Time, limit int) ([]refunds.StaleRefund, error)
	MarkSucceeded(ctx context.Context, refundID uuid.UUID, gatewayID string) (*models.Refund, error)
	MarkFailed(ctx context.Context, refundID uuid.UUID, detail string) (*models.Refund, error)
}

// Report summarizes one reconciler pass.
type Report struct {
	Skipped   bool
	Examined  int
	Succeeded int
	Failed    int
	Left      int
}

// Reconciler resolves stale processing refunds under a distributed lock.
type Reconciler struct {
	refunds refundSettler
	gateway gateway.Refunder
	locks   locker
	log     *logger.Logger
	met     *metrics.RefundMetrics
	holder  string
	lockTTL time.Duration
	engine  config.EngineConfig
}

// New builds a reconciler with the required dependencies.
func New(settler refundSettler, gw gateway.Refunder, locks locker, log *logger.Logger, met *metrics.RefundMetrics, engine config.EngineConfig) (*Reconciler, error) {
	if settler == nil {
		return nil, fmt.Errorf("refund settler required")
	}
	if gw == nil {
		return nil, fmt.Errorf("gateway refunder required")
	}
	if locks == nil {
		return nil, fmt.Errorf("lock provider required")
	}
	if log == nil {
		log = logger.New(logger.Options{ServiceName: "reconciler", Output: io.Discard})
	}
	return &Reconciler{
		refunds: settler,
		gateway: gw,
		locks:   locks,
		log:     log,
		met:     met,
		holder:  uuid.NewString(),
		lockTTL: defaultLockTTL,
		engine:  engine,
	}, nil
}

// Run performs one reconciliation pass. Individual row failures are
// aggregated so one bad refund never blocks the rest of the batch.
func (r *Reconciler) Run(ctx context.Context) (Report, error) {
	acquired, err := r.locks.AcquireLock(ctx, lockName, r.holder, r.lockTTL)
	if err != nil {
		return Report{}, fmt.Errorf("acquire reconciler lock: %w", err)
	}
	if !acquired {
		r.log.Info(ctx, "reconciler lock held elsewhere, skipping run")
		return Report{Skipped: true}, nil
	}
	defer func() {
		if relErr := r.locks.ReleaseLock(ctx, lockName); relErr != nil {
			r.log.Error(ctx, "release reconciler lock", relErr)
		}
	}()

	cutoff := time.Now().Add(-r.engine.ReconcileAfter)
	stale, err := r.refunds.StaleProcessing(ctx, cutoff, r.engine.ReconcileBatchSize)
	if err != nil {
		return Report{}, fmt.Errorf("list stale refunds: %w", err)
	}
	r.met.SetStaleProcessing(len(stale))

	report := Report{Examined: len(stale)}
	var errs error
	for _, row := range stale {
		resolution, rowErr := r.reconcileOne(ctx, row)
		if rowErr != nil {
			errs = multierr.Append(errs, fmt.Errorf("refund %s: %w", row.Refund.ID, rowErr))
		}
		switch resolution {
		case metrics.ReconcileResolvedSucceeded:
			report.Succeeded++
		case metrics.ReconcileResolvedFailed:
			report.Failed++
		default:
			report.Left++
		}
		r.met.IncReconciled(resolution)
	}
	return report, errs
}

// reconcileOne decides the fate of one stale refund from the gateway's view.
// Exactly one unclaimed gateway refund with a matching amount settles the
// row; none fails it; anything ambiguous leaves it for a human or a later run.
func (r *Reconciler) reconcileOne(ctx context.Context, row refunds.StaleRefund) (string, error) {
	logCtx := r.log.WithRefundID(ctx, row.Refund.ID.String())

	if row.PaymentIntentID == "" {
		return metrics.ReconcileResolvedLeft, fmt.Errorf("processing refund without a payment intent")
	}

	remote, err := r.gateway.FindRefundsByIntent(ctx, row.PaymentIntentID)
	if err != nil {
		// Cannot reach the gateway: leave the row, next run retries.
		return metrics.ReconcileResolvedLeft, nil
	}

	claimed := make(map[string]bool, len(row.ClaimedGatewayIDs))
	for _, id := range row.ClaimedGatewayIDs {
		claimed[id] = true
	}

	wantCents := row.Refund.Amount.Cents()
	var candidates []gateway.GatewayRefund
	for _, gr := range remote {
		if gr.AmountCents == wantCents && !claimed[gr.ID] {
			candidates = append(candidates, gr)
		}
	}

	switch len(candidates) {
	case 0:
		// The gateway answered and has no matching refund: the original
		// call never landed.
		if _, err := r.refunds.MarkFailed(ctx, row.Refund.ID, "no matching refund found at the gateway"); err != nil {
			return metrics.ReconcileResolvedLeft, err
		}
		r.log.Warn(logCtx, "stale refund failed: gateway has no matching refund")
		return metrics.ReconcileResolvedFailed, nil

	case 1:
		match := candidates[0]
		switch match.Status {
		case "succeeded":
			if _, err := r.refunds.MarkSucceeded(ctx, row.Refund.ID, match.ID); err != nil {
				return metrics.ReconcileResolvedLeft, err
			}
			r.log.Info(logCtx, "stale refund settled from gateway state")
			return metrics.ReconcileResolvedSucceeded, nil
		case "failed", "canceled":
			if _, err := r.refunds.MarkFailed(ctx, row.Refund.ID, fmt.Sprintf("gateway refund %s ended %s", match.ID, match.Status)); err != nil {
				return metrics.ReconcileResolvedLeft, err
			}
			return metrics.ReconcileResolvedFailed, nil
		default:
			// Still pending at the gateway.
			return metrics.ReconcileResolvedLeft, nil
		}

	default:
		r.log.Warn(logCtx, "ambiguous gateway refunds, leaving processing")
		return metrics.ReconcileResolvedLeft, nil
	}
}
