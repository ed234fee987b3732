// Package refunds runs the refund lifecycle: seller request or admin
// override, review, the gateway call, and the order-status side effects.
package refunds

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/fitmarkethq/fitmarket-backend/internal/gateway"
	"github.com/fitmarkethq/fitmarket-backend/internal/inventory"
	"github.com/fitmarkethq/fitmarket-backend/pkg/config"
	"github.com/fitmarkethq/fitmarket-backend/pkg/db/models"
	"github.com/fitmarkethq/fitmarket-backend/pkg/enums"
	pkgerrors "github.com/fitmarkethq/fitmarket-backend/pkg/errors"
	"github.com/fitmarkethq/fitmarket-backend/pkg/logger"
	"github.com/fitmarkethq/fitmarket-backend/pkg/metrics"
	"github.com/fitmarkethq/fitmarket-backend/pkg/money"
	"github.com/fitmarkethq/fitmarket-backend/pkg/pagination"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

// Service drives refunds from request to settlement.
type Service interface {
	Request(ctx context.Context, input RequestInput) (*models.Refund, error)
	ForceRefund(ctx context.Context, input ForceRefundInput) (*models.Refund, error)
	Approve(ctx context.Context, refundID, adminID uuid.UUID) (*models.Refund, error)
	Reject(ctx context.Context, refundID, adminID uuid.UUID, reason string) (*models.Refund, error)
	Process(ctx context.Context, refundID uuid.UUID) (*models.Refund, error)
	Get(ctx context.Context, refundID uuid.UUID) (*models.Refund, error)
	Queue(ctx context.Context, params pagination.Params) ([]models.Refund, error)

	// Settlement surface shared with the reconciler.
	StaleProcessing(ctx context.Context, olderThan time.Time, limit int) ([]StaleRefund, error)
	MarkSucceeded(ctx context.Context, refundID uuid.UUID, gatewayID string) (*models.Refund, error)
	MarkFailed(ctx context.Context, refundID uuid.UUID, detail string) (*models.Refund, error)
}

// StaleRefund pairs a refund stuck in processing with the order context the
// reconciler needs to query the gateway.
type StaleRefund struct {
	Refund          models.Refund
	PaymentIntentID string
	// ClaimedGatewayIDs holds gateway refund ids already recorded by other
	// refunds of the same order, so the reconciler never matches one twice.
	ClaimedGatewayIDs []string
}

type service struct {
	repo    Repository
	tx      txRunner
	gateway gateway.Refunder
	stock   StockRestorer
	log     *logger.Logger
	met     *metrics.RefundMetrics
	engine  config.EngineConfig
}

// NewService builds a refunds service with the required dependencies.
func NewService(repo Repository, tx txRunner, gw gateway.Refunder, stock StockRestorer, log *logger.Logger, met *metrics.RefundMetrics, engine config.EngineConfig) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("refunds repository required")
	}
	if tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	if gw == nil {
		return nil, fmt.Errorf("gateway refunder required")
	}
	if stock == nil {
		return nil, fmt.Errorf("stock restorer required")
	}
	if log == nil {
		log = logger.New(logger.Options{ServiceName: "refunds", Output: io.Discard})
	}
	return &service{
		repo:    repo,
		tx:      tx,
		gateway: gw,
		stock:   stock,
		log:     log,
		met:     met,
		engine:  engine,
	}, nil
}

// RequestInput is a seller-initiated refund. A zero Amount means the full
// remaining scope (the line total, or the order's remaining balance).
type RequestInput struct {
	OrderID     uuid.UUID
	OrderItemID *uuid.UUID
	Amount      money.Amount
	Reason      string
	ReasonTag   enums.RefundReasonTag
	SellerID    uuid.UUID
	ActorID     uuid.UUID
}

// ForceRefundInput is an admin-initiated refund that skips the request step.
type ForceRefundInput struct {
	OrderID     uuid.UUID
	OrderItemID *uuid.UUID
	Amount      money.Amount
	Reason      string
	AdminID     uuid.UUID
}

// Request creates a refund row. Auto-eligible requests land directly in
// approved; everything else waits in requested for admin review.
func (s *service) Request(ctx context.Context, input RequestInput) (*models.Refund, error) {
	if input.OrderID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "order id required")
	}
	if input.SellerID == uuid.Nil || input.ActorID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "seller and actor ids required")
	}
	if !input.ReasonTag.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid refund reason tag")
	}

	var refund *models.Refund
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)

		order, item, err := s.resolveScope(ctx, repo, input.OrderID, input.OrderItemID)
		if err != nil {
			return err
		}
		if item != nil && (item.SellerID == nil || *item.SellerID != input.SellerID) {
			return pkgerrors.New(pkgerrors.CodeForbidden, "order item belongs to another seller")
		}
		existing, err := repo.ListByOrder(ctx, order.ID)
		if err != nil {
			return err
		}
		amount, err := checkEligibility(order, item, existing, input.Amount)
		if err != nil {
			return err
		}

		isPartial := item != nil && !amount.Equal(item.LineTotal)
		status := enums.RefundStatusRequested
		if CanAutoRefund(order, item, input.SellerID, isPartial, s.engine.RefundWindowDays, time.Now()) {
			status = enums.RefundStatusApproved
		}

		sellerID := input.SellerID
		refund = &models.Refund{
			OrderID:     order.ID,
			SellerID:    &sellerID,
			OrderItemID: input.OrderItemID,
			Amount:      amount,
			Reason:      input.Reason,
			ReasonTag:   input.ReasonTag,
			CreatedBy:   input.ActorID,
			Status:      status,
		}
		return repo.Create(ctx, refund)
	})
	if err != nil {
		return nil, err
	}

	s.log.Info(s.log.WithRefundID(ctx, refund.ID.String()), "refund requested")
	return refund, nil
}

// ForceRefund creates a refund already approved. The eligibility caps still
// apply; only the review step is skipped.
func (s *service) ForceRefund(ctx context.Context, input ForceRefundInput) (*models.Refund, error) {
	if input.OrderID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "order id required")
	}
	if input.AdminID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "admin id required")
	}

	var refund *models.Refund
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)

		order, item, err := s.resolveScope(ctx, repo, input.OrderID, input.OrderItemID)
		if err != nil {
			return err
		}
		existing, err := repo.ListByOrder(ctx, order.ID)
		if err != nil {
			return err
		}
		amount, err := checkEligibility(order, item, existing, input.Amount)
		if err != nil {
			return err
		}

		var sellerID *uuid.UUID
		if item != nil {
			sellerID = item.SellerID
		}
		refund = &models.Refund{
			OrderID:     order.ID,
			SellerID:    sellerID,
			OrderItemID: input.OrderItemID,
			Amount:      amount,
			Reason:      input.Reason,
			ReasonTag:   enums.RefundReasonAdminOverride,
			CreatedBy:   input.AdminID,
			Status:      enums.RefundStatusApproved,
		}
		return repo.Create(ctx, refund)
	})
	if err != nil {
		return nil, err
	}

	s.log.Info(s.log.WithRefundID(ctx, refund.ID.String()), "refund force-created")
	return refund, nil
}

// Approve moves a requested refund to approved. Approving a refund that is
// already approved is a no-op.
func (s *service) Approve(ctx context.Context, refundID, adminID uuid.UUID) (*models.Refund, error) {
	if refundID == uuid.Nil || adminID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "refund and admin ids required")
	}
	refund, err := s.findRefund(ctx, refundID)
	if err != nil {
		return nil, err
	}

	switch refund.Status {
	case enums.RefundStatusApproved:
		return refund, nil
	case enums.RefundStatusRequested:
	default:
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict, fmt.Sprintf("refund in status %s cannot be approved", refund.Status))
	}

	ok, err := s.repo.TransitionStatus(ctx, refundID, enums.RefundStatusRequested, enums.RefundStatusApproved, nil)
	if err != nil {
		return nil, err
	}
	if !ok {
		// Lost a race with another reviewer. Re-read and apply the
		// monotonic rule.
		refund, err = s.findRefund(ctx, refundID)
		if err != nil {
			return nil, err
		}
		if refund.Status == enums.RefundStatusApproved {
			return refund, nil
		}
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict, fmt.Sprintf("refund moved to %s concurrently", refund.Status))
	}
	refund.Status = enums.RefundStatusApproved
	return refund, nil
}

// Reject moves a requested refund to rejected with the reviewer's reason.
func (s *service) Reject(ctx context.Context, refundID, adminID uuid.UUID, reason string) (*models.Refund, error) {
	if refundID == uuid.Nil || adminID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "refund and admin ids required")
	}
	refund, err := s.findRefund(ctx, refundID)
	if err != nil {
		return nil, err
	}

	switch refund.Status {
	case enums.RefundStatusRejected:
		return refund, nil
	case enums.RefundStatusRequested:
	default:
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict, fmt.Sprintf("refund in status %s cannot be rejected", refund.Status))
	}

	now := time.Now()
	ok, err := s.repo.TransitionStatus(ctx, refundID, enums.RefundStatusRequested, enums.RefundStatusRejected, map[string]any{
		"failure_detail": reason,
		"resolved_at":    now,
	})
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict, "refund left requested concurrently")
	}
	refund.Status = enums.RefundStatusRejected
	refund.FailureDetail = reason
	refund.ResolvedAt = &now
	return refund, nil
}

// Process settles an approved refund with the gateway. The row is parked in
// processing before the call and finalized after it, so a crash between the
// two leaves a marker the reconciler can recover from. The returned refund's
// status tells the caller the outcome: succeeded, failed, or still
// processing when the gateway could not be reached.
func (s *service) Process(ctx context.Context, refundID uuid.UUID) (*models.Refund, error) {
	if refundID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "refund id required")
	}

	var refund *models.Refund
	var order *models.Order
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)

		r, err := repo.FindRefund(ctx, refundID)
		if err == gorm.ErrRecordNotFound {
			return pkgerrors.New(pkgerrors.CodeNotFound, "refund not found")
		}
		if err != nil {
			return err
		}
		if r.Status != enums.RefundStatusApproved {
			return pkgerrors.New(pkgerrors.CodeStateConflict, fmt.Sprintf("refund in status %s cannot be processed", r.Status))
		}

		order, err = repo.FindOrder(ctx, r.OrderID)
		if err != nil {
			return err
		}
		if order.PaymentIntentID == "" {
			return pkgerrors.New(pkgerrors.CodeInvariantViolation, "approved refund on an order without a payment intent")
		}

		now := time.Now()
		ok, err := repo.TransitionStatus(ctx, r.ID, enums.RefundStatusApproved, enums.RefundStatusProcessing, map[string]any{
			"processing_at": now,
		})
		if err != nil {
			return err
		}
		if !ok {
			return pkgerrors.New(pkgerrors.CodeStateConflict, "refund is already being processed")
		}
		r.Status = enums.RefundStatusProcessing
		r.ProcessingAt = &now
		refund = r
		return nil
	})
	if err != nil {
		return nil, err
	}

	// The gateway call happens outside any transaction. Whatever the
	// outcome, the processing row is already committed.
	gatewayID, gwErr := s.gateway.CreateRefund(ctx, order.PaymentIntentID, refund.Amount.Cents(), refund.ReasonTag)

	logCtx := s.log.WithRefundID(s.log.WithOrderID(ctx, order.ID.String()), refund.ID.String())
	switch {
	case gwErr == nil:
		settled, err := s.MarkSucceeded(ctx, refund.ID, gatewayID)
		if err != nil {
			return nil, err
		}
		s.met.IncOutcome(metrics.RefundOutcomeSucceeded)
		s.log.Info(logCtx, "refund succeeded")
		return settled, nil

	case pkgerrors.HasCode(gwErr, pkgerrors.CodeGatewayRejected):
		failed, err := s.MarkFailed(ctx, refund.ID, gwErr.Error())
		if err != nil {
			return nil, err
		}
		s.met.IncOutcome(metrics.RefundOutcomeFailed)
		s.log.Warn(logCtx, "refund rejected by gateway")
		return failed, nil

	default:
		// Unavailable or unknown: we cannot tell whether the charge was
		// refunded. The row stays in processing for the reconciler.
		s.met.IncOutcome(metrics.RefundOutcomePending)
		s.log.Warn(logCtx, "gateway unavailable, refund left processing")
		return refund, nil
	}
}

func (s *service) Get(ctx context.Context, refundID uuid.UUID) (*models.Refund, error) {
	if refundID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "refund id required")
	}
	return s.findRefund(ctx, refundID)
}

// Queue lists refunds waiting for admin review, oldest first.
func (s *service) Queue(ctx context.Context, params pagination.Params) ([]models.Refund, error) {
	return s.repo.ListByStatus(ctx, enums.RefundStatusRequested, params)
}

// StaleProcessing lists refunds stuck in processing since before olderThan,
// paired with the payment intent and sibling gateway claims of their order.
func (s *service) StaleProcessing(ctx context.Context, olderThan time.Time, limit int) ([]StaleRefund, error) {
	rows, err := s.repo.ListStaleProcessing(ctx, olderThan, limit)
	if err != nil {
		return nil, err
	}
	stale := make([]StaleRefund, 0, len(rows))
	for _, row := range rows {
		order, err := s.repo.FindOrder(ctx, row.OrderID)
		if err != nil {
			return nil, err
		}
		siblings, err := s.repo.ListByOrder(ctx, row.OrderID)
		if err != nil {
			return nil, err
		}
		var claimed []string
		for _, sib := range siblings {
			if sib.ID != row.ID && sib.GatewayRefundID != "" {
				claimed = append(claimed, sib.GatewayRefundID)
			}
		}
		stale = append(stale, StaleRefund{
			Refund:            row,
			PaymentIntentID:   order.PaymentIntentID,
			ClaimedGatewayIDs: claimed,
		})
	}
	return stale, nil
}

// MarkSucceeded settles a processing refund with the gateway id and applies
// the order-status and restock side effects. The gateway id is write-once:
// a different id for an already-settled refund is an invariant violation.
func (s *service) MarkSucceeded(ctx context.Context, refundID uuid.UUID, gatewayID string) (*models.Refund, error) {
	if gatewayID == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "gateway refund id required")
	}

	var refund *models.Refund
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)

		r, err := repo.FindRefund(ctx, refundID)
		if err == gorm.ErrRecordNotFound {
			return pkgerrors.New(pkgerrors.CodeNotFound, "refund not found")
		}
		if err != nil {
			return err
		}

		if r.Status == enums.RefundStatusSucceeded {
			if r.GatewayRefundID != gatewayID {
				return pkgerrors.New(pkgerrors.CodeInvariantViolation, "refund already settled with a different gateway id")
			}
			refund = r
			return nil
		}
		if r.Status != enums.RefundStatusProcessing {
			return pkgerrors.New(pkgerrors.CodeStateConflict, fmt.Sprintf("refund in status %s cannot be settled", r.Status))
		}

		order, err := repo.FindOrder(ctx, r.OrderID)
		if err != nil {
			return err
		}

		now := time.Now()
		ok, err := repo.TransitionStatus(ctx, r.ID, enums.RefundStatusProcessing, enums.RefundStatusSucceeded, map[string]any{
			"gateway_refund_id": gatewayID,
			"resolved_at":       now,
		})
		if err != nil {
			return err
		}
		if !ok {
			return pkgerrors.New(pkgerrors.CodeStateConflict, "refund left processing concurrently")
		}
		r.Status = enums.RefundStatusSucceeded
		r.GatewayRefundID = gatewayID
		r.ResolvedAt = &now
		refund = r

		if err := recomputeOrderStatus(ctx, repo, order); err != nil {
			return err
		}
		return s.maybeRestock(ctx, tx, repo, r, order)
	})
	if err != nil {
		return nil, err
	}
	return refund, nil
}

// MarkFailed settles a processing refund as failed with the given detail.
func (s *service) MarkFailed(ctx context.Context, refundID uuid.UUID, detail string) (*models.Refund, error) {
	var refund *models.Refund
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)

		r, err := repo.FindRefund(ctx, refundID)
		if err == gorm.ErrRecordNotFound {
			return pkgerrors.New(pkgerrors.CodeNotFound, "refund not found")
		}
		if err != nil {
			return err
		}
		if r.Status == enums.RefundStatusFailed {
			refund = r
			return nil
		}
		if r.Status != enums.RefundStatusProcessing {
			return pkgerrors.New(pkgerrors.CodeStateConflict, fmt.Sprintf("refund in status %s cannot be failed", r.Status))
		}

		now := time.Now()
		ok, err := repo.TransitionStatus(ctx, r.ID, enums.RefundStatusProcessing, enums.RefundStatusFailed, map[string]any{
			"failure_detail": detail,
			"resolved_at":    now,
		})
		if err != nil {
			return err
		}
		if !ok {
			return pkgerrors.New(pkgerrors.CodeStateConflict, "refund left processing concurrently")
		}
		r.Status = enums.RefundStatusFailed
		r.FailureDetail = detail
		r.ResolvedAt = &now
		refund = r
		return nil
	})
	if err != nil {
		return nil, err
	}
	return refund, nil
}

// recomputeOrderStatus re-derives the order status from its settled refunds.
func recomputeOrderStatus(ctx context.Context, repo Repository, order *models.Order) error {
	refunds, err := repo.ListByOrder(ctx, order.ID)
	if err != nil {
		return err
	}
	settled := money.Zero()
	for _, r := range refunds {
		if r.Status == enums.RefundStatusSucceeded {
			settled = settled.Add(r.Amount)
		}
	}
	status := enums.OrderStatusPartiallyRefunded
	if settled.Cmp(order.Total) >= 0 {
		status = enums.OrderStatusRefunded
	}
	order.Status = status
	return repo.UpdateOrder(ctx, order.ID, map[string]any{"status": status})
}

// maybeRestock puts physical stock back for full-line refunds when the
// restore policy is enabled.
func (s *service) maybeRestock(ctx context.Context, tx *gorm.DB, repo Repository, refund *models.Refund, order *models.Order) error {
	if !s.engine.RestockOnRefund || refund.OrderItemID == nil {
		return nil
	}
	item := findItem(order.Items, *refund.OrderItemID)
	if item == nil || !refund.Amount.Equal(item.LineTotal) {
		return nil
	}
	product, err := repo.FindProduct(ctx, item.ProductID)
	if err != nil {
		return err
	}
	if product.Kind != enums.ProductKindPhysical {
		return nil
	}
	actorID := refund.CreatedBy
	_, err = s.stock.Adjust(ctx, tx, inventory.AdjustInput{
		ProductID:  item.ProductID,
		Delta:      item.Quantity,
		ChangeType: enums.InventoryChangeRefund,
		ActorID:    &actorID,
		OrderID:    &order.ID,
		Note:       "stock restored after refund",
	})
	return err
}

func (s *service) resolveScope(ctx context.Context, repo Repository, orderID uuid.UUID, itemID *uuid.UUID) (*models.Order, *models.OrderItem, error) {
	order, err := repo.FindOrder(ctx, orderID)
	if err == gorm.ErrRecordNotFound {
		return nil, nil, pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
	}
	if err != nil {
		return nil, nil, err
	}
	if itemID == nil {
		return order, nil, nil
	}
	item := findItem(order.Items, *itemID)
	if item == nil {
		return nil, nil, pkgerrors.New(pkgerrors.CodeNotFound, "order item not found on this order")
	}
	return order, item, nil
}

func (s *service) findRefund(ctx context.Context, id uuid.UUID) (*models.Refund, error) {
	refund, err := s.repo.FindRefund(ctx, id)
	if err == gorm.ErrRecordNotFound {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "refund not found")
	}
	if err != nil {
		return nil, err
	}
	return refund, nil
}

func findItem(items []models.OrderItem, id uuid.UUID) *models.OrderItem {
	for i := range items {
		if items[i].ID == id {
			return &items[i]
		}
	}
	return nil
}
