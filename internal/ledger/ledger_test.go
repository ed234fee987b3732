package ledger

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/fitmarkethq/fitmarket-backend/pkg/config"
	"github.com/fitmarkethq/fitmarket-backend/pkg/db/models"
	"github.com/fitmarkethq/fitmarket-backend/pkg/enums"
	"github.com/fitmarkethq/fitmarket-backend/pkg/money"
)

func newTestLedger(t *testing.T) (Service, *gorm.DB) {
	t.Helper()
	dsn := "file:ledger_" + uuid.NewString() + "?mode=memory&cache=shared"
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	err = db.AutoMigrate(&models.Seller{}, &models.Order{}, &models.OrderItem{}, &models.Refund{})
	if err != nil {
		t.Fatalf("migrate: %v", err)
	}
	svc, err := NewService(NewRepository(db), config.EngineConfig{DefaultHoldDays: 7})
	if err != nil {
		t.Fatalf("ledger service: %v", err)
	}
	return svc, db
}

func seedSeller(t *testing.T, db *gorm.DB) *models.Seller {
	t.Helper()
	seller := &models.Seller{
		UserID:         uuid.New(),
		DisplayName:    "Iron Supply Co",
		Status:         enums.SellerStatusApproved,
		CommissionRate: decimal.RequireFromString("0.10"),
		PayoutHoldDays: 7,
	}
	if err := db.Create(seller).Error; err != nil {
		t.Fatalf("seed seller: %v", err)
	}
	return seller
}

// seedSale creates an order with one line for the seller, placed at a given
// age, and returns the line.
func seedSale(t *testing.T, db *gorm.DB, seller *models.Seller, name, lineTotal, fee, earnings string, age time.Duration) *models.OrderItem {
	t.Helper()
	order := &models.Order{
		UserID:          uuid.New(),
		Status:          enums.OrderStatusPaid,
		PaymentIntentID: "pi_" + uuid.NewString()[:8],
		Subtotal:        money.MustFromString(lineTotal),
		Tax:             money.Zero(),
		Shipping:        money.Zero(),
		Total:           money.MustFromString(lineTotal),
		Items: []models.OrderItem{{
			ProductID:      uuid.New(),
			SellerID:       &seller.ID,
			ProductName:    name,
			Quantity:       1,
			UnitPrice:      money.MustFromString(lineTotal),
			LineTotal:      money.MustFromString(lineTotal),
			GST:            money.Zero(),
			PST:            money.Zero(),
			PlatformFee:    money.MustFromString(fee),
			SellerEarnings: money.MustFromString(earnings),
		}},
	}
	if err := db.Create(order).Error; err != nil {
		t.Fatalf("seed order: %v", err)
	}
	placedAt := time.Now().Add(-age)
	if err := db.Model(&models.Order{}).Where("id = ?", order.ID).
		UpdateColumn("created_at", placedAt).Error; err != nil {
		t.Fatalf("backdate order: %v", err)
	}
	if err := db.Model(&models.OrderItem{}).Where("id = ?", order.Items[0].ID).
		UpdateColumn("created_at", placedAt).Error; err != nil {
		t.Fatalf("backdate item: %v", err)
	}
	return &order.Items[0]
}

func seedSucceededRefund(t *testing.T, db *gorm.DB, seller *models.Seller, item *models.OrderItem, amount string, resolvedAgo time.Duration) {
	t.Helper()
	resolved := time.Now().Add(-resolvedAgo)
	refund := &models.Refund{
		OrderID:         item.OrderID,
		SellerID:        &seller.ID,
		OrderItemID:     &item.ID,
		Amount:          money.MustFromString(amount),
		Reason:          "returned",
		ReasonTag:       enums.RefundReasonRequestedByCustomer,
		CreatedBy:       uuid.New(),
		Status:          enums.RefundStatusSucceeded,
		GatewayRefundID: "re_" + uuid.NewString()[:8],
		ResolvedAt:      &resolved,
	}
	if err := db.Create(refund).Error; err != nil {
		t.Fatalf("seed refund: %v", err)
	}
}

func TestStatementFullRefundPostings(t *testing.T) {
	t.Parallel()

	svc, db := newTestLedger(t)
	seller := seedSeller(t, db)
	item := seedSale(t, db, seller, "Squat Rack", "100.00", "10.00", "90.00", 48*time.Hour)
	seedSucceededRefund(t, db, seller, item, "100.00", time.Hour)

	stmt, err := svc.Statement(context.Background(), seller.ID, time.Now().Add(-30*24*time.Hour), time.Now().Add(time.Hour))
	if err != nil {
		t.Fatalf("statement: %v", err)
	}
	if len(stmt.Entries) != 4 {
		t.Fatalf("expected 4 entries, got %d", len(stmt.Entries))
	}

	wantAmounts := []string{"90.00", "-10.00", "-100.00", "10.00"}
	wantBalances := []string{"90.00", "80.00", "-20.00", "-10.00"}
	wantSources := []enums.LedgerSource{
		enums.LedgerSourceProduct,
		enums.LedgerSourceCommission,
		enums.LedgerSourceRefund,
		enums.LedgerSourceCommissionReversal,
	}
	for i, entry := range stmt.Entries {
		if entry.Amount.String() != wantAmounts[i] {
			t.Fatalf("entry %d amount %s, want %s", i, entry.Amount, wantAmounts[i])
		}
		if entry.Balance.String() != wantBalances[i] {
			t.Fatalf("entry %d balance %s, want %s", i, entry.Balance, wantBalances[i])
		}
		if entry.Source != wantSources[i] {
			t.Fatalf("entry %d source %s, want %s", i, entry.Source, wantSources[i])
		}
	}

	if stmt.Summary.EndingBalance.String() != "-10.00" {
		t.Fatalf("ending balance %s, want -10.00", stmt.Summary.EndingBalance)
	}
	if stmt.Summary.GrossRevenue.String() != "100.00" {
		t.Fatalf("gross revenue %s, want 100.00", stmt.Summary.GrossRevenue)
	}
	if stmt.Summary.CommissionTotal.String() != "0.00" {
		t.Fatalf("net commission %s, want 0.00 after full reversal", stmt.Summary.CommissionTotal)
	}
}

func TestStatementPartialReversalRoundsHalfEven(t *testing.T) {
	t.Parallel()

	svc, db := newTestLedger(t)
	seller := seedSeller(t, db)
	item := seedSale(t, db, seller, "Resistance Bands", "30.00", "3.00", "27.00", 48*time.Hour)
	seedSucceededRefund(t, db, seller, item, "10.00", time.Hour)

	stmt, err := svc.Statement(context.Background(), seller.ID, time.Now().Add(-30*24*time.Hour), time.Now().Add(time.Hour))
	if err != nil {
		t.Fatalf("statement: %v", err)
	}

	var reversal *Entry
	for i := range stmt.Entries {
		if stmt.Entries[i].Source == enums.LedgerSourceCommissionReversal {
			reversal = &stmt.Entries[i]
		}
	}
	if reversal == nil {
		t.Fatal("expected a commission reversal entry")
	}
	// 10/30 of a 3.00 fee is exactly 1.00.
	if reversal.Amount.String() != "1.00" {
		t.Fatalf("reversal %s, want 1.00", reversal.Amount)
	}
}

func TestStatementClassifiesMembershipLines(t *testing.T) {
	t.Parallel()

	svc, db := newTestLedger(t)
	seller := seedSeller(t, db)
	seedSale(t, db, seller, models.MembershipLinePrefix+"Gold", "20.00", "2.00", "18.00", 24*time.Hour)

	stmt, err := svc.Statement(context.Background(), seller.ID, time.Now().Add(-30*24*time.Hour), time.Now().Add(time.Hour))
	if err != nil {
		t.Fatalf("statement: %v", err)
	}
	if len(stmt.Entries) == 0 || stmt.Entries[0].Source != enums.LedgerSourceMembership {
		t.Fatalf("expected membership source first, got %+v", stmt.Entries)
	}
}

func TestStatementIsRepeatable(t *testing.T) {
	t.Parallel()

	svc, db := newTestLedger(t)
	seller := seedSeller(t, db)
	item := seedSale(t, db, seller, "Bench", "80.00", "8.00", "72.00", 72*time.Hour)
	seedSucceededRefund(t, db, seller, item, "80.00", 2*time.Hour)

	from, to := time.Now().Add(-30*24*time.Hour), time.Now().Add(time.Hour)
	first, err := svc.Statement(context.Background(), seller.ID, from, to)
	if err != nil {
		t.Fatalf("first statement: %v", err)
	}
	second, err := svc.Statement(context.Background(), seller.ID, from, to)
	if err != nil {
		t.Fatalf("second statement: %v", err)
	}
	if len(first.Entries) != len(second.Entries) {
		t.Fatalf("entry counts differ: %d vs %d", len(first.Entries), len(second.Entries))
	}
	for i := range first.Entries {
		if !first.Entries[i].Amount.Equal(second.Entries[i].Amount) ||
			!first.Entries[i].Balance.Equal(second.Entries[i].Balance) {
			t.Fatalf("entry %d differs between runs", i)
		}
	}
}

func TestBalancesHoldPartition(t *testing.T) {
	t.Parallel()

	svc, db := newTestLedger(t)
	seller := seedSeller(t, db)
	// Old enough that the 7-day hold has elapsed.
	seedSale(t, db, seller, "Old Sale", "100.00", "10.00", "90.00", 10*24*time.Hour)
	// Fresh: still held.
	fresh := seedSale(t, db, seller, "New Sale", "100.00", "10.00", "90.00", time.Hour)

	balances, err := svc.Balances(context.Background(), seller.ID, time.Now())
	if err != nil {
		t.Fatalf("balances: %v", err)
	}
	if balances.Available.String() != "80.00" {
		t.Fatalf("available %s, want 80.00", balances.Available)
	}
	if balances.Pending.String() != "80.00" {
		t.Fatalf("pending %s, want 80.00", balances.Pending)
	}
	if balances.HoldDays != 7 {
		t.Fatalf("hold days %d, want 7", balances.HoldDays)
	}
	if balances.NextPayoutAt == nil {
		t.Fatal("expected next payout date while earnings are pending")
	}

	var freshOrder models.Order
	if err := db.First(&freshOrder, "id = ?", fresh.OrderID).Error; err != nil {
		t.Fatalf("reload fresh order: %v", err)
	}
	want := freshOrder.CreatedAt.AddDate(0, 0, 7)
	if !balances.NextPayoutAt.Equal(want) {
		t.Fatalf("next payout %s, want %s", balances.NextPayoutAt, want)
	}
}
