package sellers

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/fitmarkethq/fitmarket-backend/pkg/db/models"
	"github.com/fitmarkethq/fitmarket-backend/pkg/enums"
	pkgerrors "github.com/fitmarkethq/fitmarket-backend/pkg/errors"
	"github.com/fitmarkethq/fitmarket-backend/pkg/pagination"
)

func newTestService(t *testing.T) (Service, *gorm.DB) {
	t.Helper()
	dsn := "file:sellers_" + uuid.NewString() + "?mode=memory&cache=shared"
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	if err := db.AutoMigrate(&models.Seller{}); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	svc, err := NewService(NewRepository(db))
	if err != nil {
		t.Fatalf("new service: %v", err)
	}
	return svc, db
}

func TestApplyCreatesPendingSeller(t *testing.T) {
	t.Parallel()

	svc, _ := newTestService(t)
	ctx := context.Background()

	seller, err := svc.Apply(ctx, ApplyInput{UserID: uuid.New(), DisplayName: "Peak Strength Co"})
	if err != nil {
		t.Fatalf("apply: %v", err)
	}
	if seller.Status != enums.SellerStatusPending {
		t.Fatalf("expected pending, got %s", seller.Status)
	}
}

func TestApplyRejectsDuplicateAndRejectedUsers(t *testing.T) {
	t.Parallel()

	svc, db := newTestService(t)
	ctx := context.Background()
	userID := uuid.New()

	if _, err := svc.Apply(ctx, ApplyInput{UserID: userID, DisplayName: "First"}); err != nil {
		t.Fatalf("apply: %v", err)
	}
	if _, err := svc.Apply(ctx, ApplyInput{UserID: userID, DisplayName: "Again"}); !pkgerrors.HasCode(err, pkgerrors.CodeConflict) {
		t.Fatalf("expected conflict, got %v", err)
	}

	rejectedUser := uuid.New()
	if err := db.Create(&models.Seller{
		UserID:      rejectedUser,
		DisplayName: "Rejected Co",
		Status:      enums.SellerStatusRejected,
	}).Error; err != nil {
		t.Fatalf("seed rejected: %v", err)
	}
	if _, err := svc.Apply(ctx, ApplyInput{UserID: rejectedUser, DisplayName: "Retry"}); !pkgerrors.HasCode(err, pkgerrors.CodeForbidden) {
		t.Fatalf("expected forbidden for rejected re-apply, got %v", err)
	}
}

func TestReviewTransitionsAreForwardOnly(t *testing.T) {
	t.Parallel()

	svc, _ := newTestService(t)
	ctx := context.Background()
	adminID := uuid.New()

	seller, err := svc.Apply(ctx, ApplyInput{UserID: uuid.New(), DisplayName: "Pending Co"})
	if err != nil {
		t.Fatalf("apply: %v", err)
	}

	approved, err := svc.Approve(ctx, seller.ID, adminID)
	if err != nil {
		t.Fatalf("approve: %v", err)
	}
	if approved.Status != enums.SellerStatusApproved {
		t.Fatalf("expected approved, got %s", approved.Status)
	}

	// approving again is a no-op
	if _, err := svc.Approve(ctx, seller.ID, adminID); err != nil {
		t.Fatalf("re-approve should be a no-op, got %v", err)
	}

	// an approved seller never becomes rejected
	if _, err := svc.Reject(ctx, seller.ID, adminID); !pkgerrors.HasCode(err, pkgerrors.CodeStateConflict) {
		t.Fatalf("expected state conflict, got %v", err)
	}
}

func TestConfigureValidatesPolicy(t *testing.T) {
	t.Parallel()

	svc, _ := newTestService(t)
	ctx := context.Background()

	seller, err := svc.Apply(ctx, ApplyInput{UserID: uuid.New(), DisplayName: "Policy Co"})
	if err != nil {
		t.Fatalf("apply: %v", err)
	}

	rate := decimal.RequireFromString("0.15")
	hold := 14
	updated, err := svc.Configure(ctx, ConfigureInput{
		SellerID:       seller.ID,
		CommissionRate: &rate,
		PayoutHoldDays: &hold,
	})
	if err != nil {
		t.Fatalf("configure: %v", err)
	}
	if !updated.CommissionRate.Equal(rate) || updated.PayoutHoldDays != 14 {
		t.Fatalf("unexpected config: %+v", updated)
	}

	bad := decimal.RequireFromString("1.5")
	if _, err := svc.Configure(ctx, ConfigureInput{SellerID: seller.ID, CommissionRate: &bad}); !pkgerrors.HasCode(err, pkgerrors.CodeValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
	negHold := -1
	if _, err := svc.Configure(ctx, ConfigureInput{SellerID: seller.ID, PayoutHoldDays: &negHold}); !pkgerrors.HasCode(err, pkgerrors.CodeValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestRequireApproved(t *testing.T) {
	t.Parallel()

	svc, _ := newTestService(t)
	ctx := context.Background()

	seller, err := svc.Apply(ctx, ApplyInput{UserID: uuid.New(), DisplayName: "Gate Co"})
	if err != nil {
		t.Fatalf("apply: %v", err)
	}
	if _, err := svc.RequireApproved(ctx, seller.ID); !pkgerrors.HasCode(err, pkgerrors.CodeForbidden) {
		t.Fatalf("expected forbidden for pending seller, got %v", err)
	}

	if _, err := svc.Approve(ctx, seller.ID, uuid.New()); err != nil {
		t.Fatalf("approve: %v", err)
	}
	if _, err := svc.RequireApproved(ctx, seller.ID); err != nil {
		t.Fatalf("approved seller should pass the gate: %v", err)
	}
}

func TestListPending(t *testing.T) {
	t.Parallel()

	svc, _ := newTestService(t)
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		if _, err := svc.Apply(ctx, ApplyInput{UserID: uuid.New(), DisplayName: "Queue Co"}); err != nil {
			t.Fatalf("apply: %v", err)
		}
	}
	pending, err := svc.ListPending(ctx, pagination.Params{Limit: 10})
	if err != nil {
		t.Fatalf("list pending: %v", err)
	}
	if len(pending) != 2 {
		t.Fatalf("expected 2 pending sellers, got %d", len(pending))
	}
}
