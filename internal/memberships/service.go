// Package memberships manages recurring plans. Paid renewals materialize as
// orders against the plan's synthetic product line so they flow through the
// same commission split and earnings ledger as regular sales.
package memberships

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/multierr"
	"gorm.io/gorm"

	"github.com/fitmarkethq/fitmarket-backend/internal/commission"
	"github.com/fitmarkethq/fitmarket-backend/pkg/db/models"
	"github.com/fitmarkethq/fitmarket-backend/pkg/enums"
	pkgerrors "github.com/fitmarkethq/fitmarket-backend/pkg/errors"
	"github.com/fitmarkethq/fitmarket-backend/pkg/logger"
	"github.com/fitmarkethq/fitmarket-backend/pkg/money"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

// Service manages plans, subscriptions, and renewal billing.
type Service interface {
	CreatePlan(ctx context.Context, input CreatePlanInput) (*models.MembershipPlan, error)
	GetPlan(ctx context.Context, planID uuid.UUID) (*models.MembershipPlan, error)
	Subscribe(ctx context.Context, userID, planID uuid.UUID) (*models.Membership, error)
	GetMembership(ctx context.Context, membershipID uuid.UUID) (*models.Membership, error)
	Renew(ctx context.Context, membershipID uuid.UUID, paymentIntentID string) (*models.Order, error)
	RenewDue(ctx context.Context, now time.Time, limit int) (int, error)
	Cancel(ctx context.Context, membershipID uuid.UUID) (*models.Membership, error)
}

// CreatePlanInput describes a new recurring plan. A nil SellerID makes the
// plan platform-owned, which zeroes the commission split on renewals.
type CreatePlanInput struct {
	SellerID          *uuid.UUID
	Name              string
	Price             money.Amount
	BillingPeriodDays int
	ChargeGST         bool
	ChargePST         bool
}

type service struct {
	repo Repository
	tx   txRunner
	log  *logger.Logger
}

// NewService builds a memberships service with the required dependencies.
func NewService(repo Repository, tx txRunner, log *logger.Logger) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("memberships repository required")
	}
	if tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	if log == nil {
		log = logger.New(logger.Options{ServiceName: "memberships", Output: io.Discard})
	}
	return &service{repo: repo, tx: tx, log: log}, nil
}

// CreatePlan creates the plan together with its synthetic product. The
// product name carries the membership line prefix so the ledger can classify
// renewal lines without a join.
func (s *service) CreatePlan(ctx context.Context, input CreatePlanInput) (*models.MembershipPlan, error) {
	if strings.TrimSpace(input.Name) == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "plan name required")
	}
	if !input.Price.IsPositive() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "plan price must be positive")
	}
	periodDays := input.BillingPeriodDays
	if periodDays <= 0 {
		periodDays = 30
	}

	var plan *models.MembershipPlan
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)

		product := &models.Product{
			SellerID:  input.SellerID,
			Name:      models.MembershipLinePrefix + input.Name,
			Kind:      enums.ProductKindService,
			UnitPrice: input.Price,
			ChargeGST: input.ChargeGST,
			ChargePST: input.ChargePST,
			IsActive:  true,
		}
		if err := repo.CreateProduct(ctx, product); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "create plan product")
		}

		plan = &models.MembershipPlan{
			SellerID:          input.SellerID,
			Name:              input.Name,
			Slug:              slugify(input.Name),
			Price:             input.Price,
			BillingPeriodDays: periodDays,
			ProductID:         product.ID,
			IsActive:          true,
		}
		if err := repo.CreatePlan(ctx, plan); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeConflict, err, "create plan")
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.log.Info(s.log.WithField(ctx, "plan_id", plan.ID.String()), "membership plan created")
	return plan, nil
}

func (s *service) GetPlan(ctx context.Context, planID uuid.UUID) (*models.MembershipPlan, error) {
	plan, err := s.repo.FindPlan(ctx, planID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeNotFound, err, "plan not found")
	}
	return plan, nil
}

// Subscribe enrolls the user. Re-subscribing to a plan the user is already
// active on returns the existing membership unchanged.
func (s *service) Subscribe(ctx context.Context, userID, planID uuid.UUID) (*models.Membership, error) {
	if userID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "user id required")
	}
	plan, err := s.repo.FindPlan(ctx, planID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeNotFound, err, "plan not found")
	}
	if !plan.IsActive {
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict, "plan is no longer offered")
	}

	existing, err := s.repo.FindActiveMembership(ctx, userID, planID)
	if err == nil {
		return existing, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "lookup membership")
	}

	membership := &models.Membership{
		PlanID:          planID,
		UserID:          userID,
		IsActive:        true,
		NextBillingDate: startOfDay(time.Now()).AddDate(0, 0, plan.BillingPeriodDays),
	}
	if err := s.repo.CreateMembership(ctx, membership); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "create membership")
	}

	s.log.Info(s.log.WithUserID(ctx, userID.String()), "membership started")
	return membership, nil
}

// GetMembership returns one membership.
func (s *service) GetMembership(ctx context.Context, membershipID uuid.UUID) (*models.Membership, error) {
	membership, err := s.repo.FindMembership(ctx, membershipID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeNotFound, err, "membership not found")
	}
	return membership, nil
}

// Renew bills one cycle: it writes a paid order with a single line against
// the plan's product, splits commission at the seller's current rate, and
// advances the billing date. The next date is anchored to today, not to the
// date the cycle was due, so a late run drifts the schedule forward.
func (s *service) Renew(ctx context.Context, membershipID uuid.UUID, paymentIntentID string) (*models.Order, error) {
	membership, err := s.repo.FindMembership(ctx, membershipID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeNotFound, err, "membership not found")
	}
	if !membership.IsActive {
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict, "membership is cancelled")
	}
	plan, err := s.repo.FindPlan(ctx, membership.PlanID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeNotFound, err, "plan not found")
	}
	product, err := s.repo.FindProduct(ctx, plan.ProductID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInvariantViolation, err, "plan product missing")
	}

	var order *models.Order
	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)

		gst, pst := money.LineTax(plan.Price, product.ChargeGST, product.ChargePST)
		fee, earnings := money.Zero(), plan.Price
		if plan.SellerID != nil {
			seller, err := repo.FindSeller(ctx, *plan.SellerID)
			if err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeInvariantViolation, err, "plan seller missing")
			}
			fee, earnings = commission.Split(plan.Price, seller.CommissionRate)
		}

		tax := gst.Add(pst)
		order = &models.Order{
			UserID:          membership.UserID,
			Status:          enums.OrderStatusPaid,
			PaymentIntentID: paymentIntentID,
			Subtotal:        plan.Price,
			Tax:             tax,
			Shipping:        money.Zero(),
			Total:           plan.Price.Add(tax),
		}
		if err := repo.CreateOrder(ctx, order); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "create renewal order")
		}

		item := &models.OrderItem{
			OrderID:        order.ID,
			ProductID:      product.ID,
			SellerID:       plan.SellerID,
			ProductName:    product.Name,
			Quantity:       1,
			UnitPrice:      plan.Price,
			LineTotal:      plan.Price,
			GST:            gst,
			PST:            pst,
			PlatformFee:    fee,
			SellerEarnings: earnings,
		}
		if err := repo.CreateOrderItem(ctx, item); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "create renewal line")
		}
		order.Items = []models.OrderItem{*item}

		next := startOfDay(time.Now()).AddDate(0, 0, plan.BillingPeriodDays)
		return repo.UpdateMembership(ctx, membership.ID, map[string]any{
			"next_billing_date": next,
		})
	})
	if err != nil {
		return nil, err
	}

	s.log.Info(s.log.WithOrderID(ctx, order.ID.String()), "membership renewed")
	return order, nil
}

// RenewDue bills every active membership whose cycle has come due, up to
// limit. Failures are collected so one bad membership never stalls the rest.
// Renewals billed here carry no payment intent; collection happens out of
// band and the order's intent is filled in when the charge settles.
func (s *service) RenewDue(ctx context.Context, now time.Time, limit int) (int, error) {
	due, err := s.repo.ListDue(ctx, now, limit)
	if err != nil {
		return 0, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "list due memberships")
	}

	var renewed int
	var errs error
	for _, membership := range due {
		if _, err := s.Renew(ctx, membership.ID, ""); err != nil {
			s.log.Error(ctx, "membership renewal failed", err)
			errs = multierr.Append(errs, fmt.Errorf("membership %s: %w", membership.ID, err))
			continue
		}
		renewed++
	}
	return renewed, errs
}

// Cancel ends the membership. The current cycle stays paid; no refund is
// issued here.
func (s *service) Cancel(ctx context.Context, membershipID uuid.UUID) (*models.Membership, error) {
	membership, err := s.repo.FindMembership(ctx, membershipID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeNotFound, err, "membership not found")
	}
	if !membership.IsActive {
		return membership, nil
	}

	now := time.Now()
	err = s.repo.UpdateMembership(ctx, membership.ID, map[string]any{
		"is_active":    false,
		"cancelled_at": now,
	})
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "cancel membership")
	}
	membership.IsActive = false
	membership.CancelledAt = &now

	s.log.Info(s.log.WithUserID(ctx, membership.UserID.String()), "membership cancelled")
	return membership, nil
}

func startOfDay(t time.Time) time.Time {
	year, month, day := t.Date()
	return time.Date(year, month, day, 0, 0, 0, 0, t.Location())
}

func slugify(name string) string {
	var b strings.Builder
	lastDash := true
	for _, r := range strings.ToLower(name) {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			b.WriteRune(r)
			lastDash = false
		default:
			if !lastDash {
				b.WriteByte('-')
				lastDash = true
			}
		}
	}
	return strings.TrimSuffix(b.String(), "-")
}
