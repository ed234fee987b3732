// Package ledger derives a seller's earnings history from order items and
// settled refunds. Nothing here writes to the store: the ledger is a pure
// function of what already happened.
package ledger

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/fitmarkethq/fitmarket-backend/pkg/config"
	"github.com/fitmarkethq/fitmarket-backend/pkg/db/models"
	"github.com/fitmarkethq/fitmarket-backend/pkg/enums"
	pkgerrors "github.com/fitmarkethq/fitmarket-backend/pkg/errors"
	"github.com/fitmarkethq/fitmarket-backend/pkg/money"
)

// Entry is one signed movement in a seller's earnings history.
type Entry struct {
	Timestamp   time.Time          `json:"timestamp"`
	Source      enums.LedgerSource `json:"source"`
	Description string             `json:"description"`
	Amount      money.Amount       `json:"amount"`
	Balance     money.Amount       `json:"balance"`
	OrderID     uuid.UUID          `json:"order_id"`
}

// TaxTotals accumulates per-line GST/PST for reference, split by line kind.
type TaxTotals struct {
	ProductGST    money.Amount `json:"product_gst"`
	ProductPST    money.Amount `json:"product_pst"`
	MembershipGST money.Amount `json:"membership_gst"`
	MembershipPST money.Amount `json:"membership_pst"`
}

// Summary condenses a statement window.
type Summary struct {
	GrossRevenue    money.Amount `json:"gross_revenue"`
	CommissionTotal money.Amount `json:"commission_total"`
	NetChange       money.Amount `json:"net_change"`
	EndingBalance   money.Amount `json:"ending_balance"`
	Tax             TaxTotals    `json:"tax"`
}

// Statement is the seller's earnings history for a window.
type Statement struct {
	SellerID uuid.UUID `json:"seller_id"`
	From     time.Time `json:"from"`
	To       time.Time `json:"to"`
	Entries  []Entry   `json:"entries"`
	Summary  Summary   `json:"summary"`
}

// Balances partitions a seller's lifetime earnings by the hold period.
type Balances struct {
	Available    money.Amount `json:"available"`
	Pending      money.Amount `json:"pending"`
	HoldDays     int          `json:"hold_days"`
	NextPayoutAt *time.Time   `json:"next_payout_at,omitempty"`
}

// Repository reads the rows the ledger is derived from.
type Repository interface {
	FindSeller(ctx context.Context, id uuid.UUID) (*models.Seller, error)
	ListItemsBySeller(ctx context.Context, sellerID uuid.UUID, from, to time.Time) ([]models.OrderItem, error)
	ListSucceededRefundsBySeller(ctx context.Context, sellerID uuid.UUID, from, to time.Time) ([]models.Refund, error)
	FindItems(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]models.OrderItem, error)
	FindOrderCreatedAts(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]time.Time, error)
}

// Service exposes the derived earnings views.
type Service interface {
	Statement(ctx context.Context, sellerID uuid.UUID, from, to time.Time) (*Statement, error)
	Balances(ctx context.Context, sellerID uuid.UUID, now time.Time) (*Balances, error)
}

type service struct {
	repo   Repository
	engine config.EngineConfig
}

// NewService builds a ledger service with the required dependencies.
func NewService(repo Repository, engine config.EngineConfig) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("ledger repository required")
	}
	return &service{repo: repo, engine: engine}, nil
}

// movement is an entry plus the order placement time used by Balances.
type movement struct {
	entry        Entry
	orderCreated time.Time
}

// Statement builds the time-ordered entry stream with a running balance
// starting at zero for the window.
func (s *service) Statement(ctx context.Context, sellerID uuid.UUID, from, to time.Time) (*Statement, error) {
	if sellerID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "seller id required")
	}
	if !to.After(from) {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "statement window must end after it starts")
	}
	if _, err := s.repo.FindSeller(ctx, sellerID); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeNotFound, err, "seller not found")
	}

	movements, tax, err := s.collect(ctx, sellerID, from, to)
	if err != nil {
		return nil, err
	}

	entries := make([]Entry, 0, len(movements))
	balance := money.Zero()
	summary := Summary{
		GrossRevenue:    money.Zero(),
		CommissionTotal: money.Zero(),
		NetChange:       money.Zero(),
		EndingBalance:   money.Zero(),
		Tax:             tax,
	}
	for _, m := range movements {
		balance = balance.Add(m.entry.Amount)
		m.entry.Balance = balance
		entries = append(entries, m.entry)

		if m.entry.Amount.IsPositive() {
			summary.GrossRevenue = summary.GrossRevenue.Add(m.entry.Amount)
		}
		switch m.entry.Source {
		case enums.LedgerSourceCommission:
			summary.CommissionTotal = summary.CommissionTotal.Add(m.entry.Amount.Neg())
		case enums.LedgerSourceCommissionReversal:
			summary.CommissionTotal = summary.CommissionTotal.Sub(m.entry.Amount)
		}
	}
	summary.NetChange = balance
	summary.EndingBalance = balance

	return &Statement{
		SellerID: sellerID,
		From:     from,
		To:       to,
		Entries:  entries,
		Summary:  summary,
	}, nil
}

// Balances partitions lifetime net earnings into available and pending by
// whether the originating order's hold period has elapsed.
func (s *service) Balances(ctx context.Context, sellerID uuid.UUID, now time.Time) (*Balances, error) {
	if sellerID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "seller id required")
	}
	seller, err := s.repo.FindSeller(ctx, sellerID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeNotFound, err, "seller not found")
	}

	holdDays := seller.PayoutHoldDays
	if holdDays <= 0 {
		holdDays = s.engine.DefaultHoldDays
	}
	cutoff := now.AddDate(0, 0, -holdDays)

	movements, _, err := s.collect(ctx, sellerID, time.Time{}, now)
	if err != nil {
		return nil, err
	}

	balances := &Balances{
		Available: money.Zero(),
		Pending:   money.Zero(),
		HoldDays:  holdDays,
	}
	var oldestPending *time.Time
	for _, m := range movements {
		if m.orderCreated.Before(cutoff) {
			balances.Available = balances.Available.Add(m.entry.Amount)
			continue
		}
		balances.Pending = balances.Pending.Add(m.entry.Amount)
		if oldestPending == nil || m.orderCreated.Before(*oldestPending) {
			created := m.orderCreated
			oldestPending = &created
		}
	}
	if oldestPending != nil {
		next := oldestPending.AddDate(0, 0, holdDays)
		balances.NextPayoutAt = &next
	}
	return balances, nil
}

// collect builds the raw movement stream for a window, sorted by timestamp.
// Earnings post at the line's creation time; refund legs post at settlement.
func (s *service) collect(ctx context.Context, sellerID uuid.UUID, from, to time.Time) ([]movement, TaxTotals, error) {
	tax := TaxTotals{
		ProductGST:    money.Zero(),
		ProductPST:    money.Zero(),
		MembershipGST: money.Zero(),
		MembershipPST: money.Zero(),
	}

	items, err := s.repo.ListItemsBySeller(ctx, sellerID, from, to)
	if err != nil {
		return nil, tax, err
	}
	refunds, err := s.repo.ListSucceededRefundsBySeller(ctx, sellerID, from, to)
	if err != nil {
		return nil, tax, err
	}

	orderIDs := make([]uuid.UUID, 0, len(items)+len(refunds))
	for _, item := range items {
		orderIDs = append(orderIDs, item.OrderID)
	}
	var refundItemIDs []uuid.UUID
	for _, refund := range refunds {
		orderIDs = append(orderIDs, refund.OrderID)
		if refund.OrderItemID != nil {
			refundItemIDs = append(refundItemIDs, *refund.OrderItemID)
		}
	}
	orderCreated, err := s.repo.FindOrderCreatedAts(ctx, orderIDs)
	if err != nil {
		return nil, tax, err
	}
	refundItems, err := s.repo.FindItems(ctx, refundItemIDs)
	if err != nil {
		return nil, tax, err
	}

	var movements []movement
	for _, item := range items {
		source := enums.LedgerSourceProduct
		if models.IsMembershipLine(item.ProductName) {
			source = enums.LedgerSourceMembership
			tax.MembershipGST = tax.MembershipGST.Add(item.GST)
			tax.MembershipPST = tax.MembershipPST.Add(item.PST)
		} else {
			tax.ProductGST = tax.ProductGST.Add(item.GST)
			tax.ProductPST = tax.ProductPST.Add(item.PST)
		}

		movements = append(movements, movement{
			entry: Entry{
				Timestamp:   item.CreatedAt,
				Source:      source,
				Description: item.ProductName,
				Amount:      item.SellerEarnings,
				OrderID:     item.OrderID,
			},
			orderCreated: orderCreated[item.OrderID],
		})
		if item.PlatformFee.IsPositive() {
			movements = append(movements, movement{
				entry: Entry{
					Timestamp:   item.CreatedAt,
					Source:      enums.LedgerSourceCommission,
					Description: "Commission on " + item.ProductName,
					Amount:      item.PlatformFee.Neg(),
					OrderID:     item.OrderID,
				},
				orderCreated: orderCreated[item.OrderID],
			})
		}
	}

	for _, refund := range refunds {
		settledAt := refund.CreatedAt
		if refund.ResolvedAt != nil {
			settledAt = *refund.ResolvedAt
		}
		movements = append(movements, movement{
			entry: Entry{
				Timestamp:   settledAt,
				Source:      enums.LedgerSourceRefund,
				Description: "Refund " + refund.Reason,
				Amount:      refund.Amount.Neg(),
				OrderID:     refund.OrderID,
			},
			orderCreated: orderCreated[refund.OrderID],
		})

		if refund.OrderItemID == nil {
			continue
		}
		item, ok := refundItems[*refund.OrderItemID]
		if !ok || !item.PlatformFee.IsPositive() || !item.LineTotal.IsPositive() {
			continue
		}
		// The reversal is proportional to how much of the line was
		// refunded, rounded half-even at the cent boundary.
		ratio := refund.Amount.Ratio(item.LineTotal)
		reversal := item.PlatformFee.MulRate(ratio)
		if reversal.IsZero() {
			continue
		}
		movements = append(movements, movement{
			entry: Entry{
				Timestamp:   settledAt,
				Source:      enums.LedgerSourceCommissionReversal,
				Description: "Commission reversal on " + item.ProductName,
				Amount:      reversal,
				OrderID:     refund.OrderID,
			},
			orderCreated: orderCreated[refund.OrderID],
		})
	}

	sort.SliceStable(movements, func(i, j int) bool {
		return movements[i].entry.Timestamp.Before(movements[j].entry.Timestamp)
	})
	return movements, tax, nil
}
