package products

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/fitmarkethq/fitmarket-backend/pkg/db/models"
	"github.com/fitmarkethq/fitmarket-backend/pkg/enums"
	pkgerrors "github.com/fitmarkethq/fitmarket-backend/pkg/errors"
	"github.com/fitmarkethq/fitmarket-backend/pkg/money"
	"github.com/fitmarkethq/fitmarket-backend/pkg/pagination"
)

type stubSellerGate struct {
	approved map[uuid.UUID]bool
}

func (s *stubSellerGate) RequireApproved(_ context.Context, sellerID uuid.UUID) (*models.Seller, error) {
	if s.approved[sellerID] {
		return &models.Seller{ID: sellerID, Status: enums.SellerStatusApproved}, nil
	}
	return nil, pkgerrors.New(pkgerrors.CodeForbidden, "seller is not approved")
}

func newTestService(t *testing.T) (Service, *stubSellerGate, *gorm.DB) {
	t.Helper()
	dsn := "file:products_" + uuid.NewString() + "?mode=memory&cache=shared"
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	if err := db.AutoMigrate(&models.Product{}); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	gate := &stubSellerGate{approved: map[uuid.UUID]bool{}}
	svc, err := NewService(NewRepository(db), gate)
	if err != nil {
		t.Fatalf("new service: %v", err)
	}
	return svc, gate, db
}

func TestCreateRequiresApprovedSeller(t *testing.T) {
	t.Parallel()

	svc, gate, _ := newTestService(t)
	ctx := context.Background()
	sellerID := uuid.New()

	input := CreateInput{
		SellerID:  &sellerID,
		Name:      "resistance bands",
		Kind:      enums.ProductKindPhysical,
		UnitPrice: money.MustFromString("24.99"),
		Stock:     10,
		ChargeGST: true,
		ChargePST: true,
	}

	if _, err := svc.Create(ctx, input); !pkgerrors.HasCode(err, pkgerrors.CodeForbidden) {
		t.Fatalf("expected forbidden for unapproved seller, got %v", err)
	}

	gate.approved[sellerID] = true
	product, err := svc.Create(ctx, input)
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if !product.IsActive {
		t.Fatal("new products start active")
	}
}

func TestCreatePlatformProductSkipsGate(t *testing.T) {
	t.Parallel()

	svc, _, _ := newTestService(t)

	product, err := svc.Create(context.Background(), CreateInput{
		Name:      "pro membership",
		Kind:      enums.ProductKindService,
		UnitPrice: money.MustFromString("29.00"),
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if product.SellerID != nil {
		t.Fatal("platform product must have nil seller")
	}
}

func TestCreateKindValidation(t *testing.T) {
	t.Parallel()

	svc, gate, _ := newTestService(t)
	ctx := context.Background()
	sellerID := uuid.New()
	gate.approved[sellerID] = true

	// digital without any delivery reference
	_, err := svc.Create(ctx, CreateInput{
		SellerID:  &sellerID,
		Name:      "training plan pdf",
		Kind:      enums.ProductKindDigital,
		UnitPrice: money.MustFromString("9.99"),
	})
	if !pkgerrors.HasCode(err, pkgerrors.CodeValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}

	url := "https://cdn.fitmarket.test/plan.pdf"
	if _, err := svc.Create(ctx, CreateInput{
		SellerID:   &sellerID,
		Name:       "training plan pdf",
		Kind:       enums.ProductKindDigital,
		UnitPrice:  money.MustFromString("9.99"),
		DigitalURL: &url,
	}); err != nil {
		t.Fatalf("create digital: %v", err)
	}

	negSeats := -1
	_, err = svc.Create(ctx, CreateInput{
		SellerID:     &sellerID,
		Name:         "pt session",
		Kind:         enums.ProductKindService,
		UnitPrice:    money.MustFromString("80.00"),
		ServiceSeats: &negSeats,
	})
	if !pkgerrors.HasCode(err, pkgerrors.CodeValidation) {
		t.Fatalf("expected validation error for negative seats, got %v", err)
	}
}

func TestUpdateEnforcesOwnership(t *testing.T) {
	t.Parallel()

	svc, gate, _ := newTestService(t)
	ctx := context.Background()
	owner := uuid.New()
	gate.approved[owner] = true

	product, err := svc.Create(ctx, CreateInput{
		SellerID:  &owner,
		Name:      "foam roller",
		Kind:      enums.ProductKindPhysical,
		UnitPrice: money.MustFromString("35.00"),
		Stock:     5,
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	newPrice := money.MustFromString("30.00")
	updated, err := svc.Update(ctx, UpdateInput{
		ProductID: product.ID,
		SellerID:  owner,
		UnitPrice: &newPrice,
	})
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if !updated.UnitPrice.Equal(newPrice) {
		t.Fatalf("price not updated: %s", updated.UnitPrice)
	}

	if _, err := svc.Update(ctx, UpdateInput{
		ProductID: product.ID,
		SellerID:  uuid.New(),
		UnitPrice: &newPrice,
	}); !pkgerrors.HasCode(err, pkgerrors.CodeForbidden) {
		t.Fatalf("expected forbidden for non-owner, got %v", err)
	}
}

func TestRetireHidesFromActiveListing(t *testing.T) {
	t.Parallel()

	svc, gate, _ := newTestService(t)
	ctx := context.Background()
	owner := uuid.New()
	gate.approved[owner] = true

	product, err := svc.Create(ctx, CreateInput{
		SellerID:  &owner,
		Name:      "kettlebell 16kg",
		Kind:      enums.ProductKindPhysical,
		UnitPrice: money.MustFromString("59.00"),
		Stock:     3,
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	if err := svc.Retire(ctx, product.ID, owner); err != nil {
		t.Fatalf("retire: %v", err)
	}

	active, err := svc.ListActive(ctx, pagination.Params{Limit: 10})
	if err != nil {
		t.Fatalf("list active: %v", err)
	}
	for _, p := range active {
		if p.ID == product.ID {
			t.Fatal("retired product still listed as active")
		}
	}

	// still readable for order history
	got, err := svc.Get(ctx, product.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.IsActive {
		t.Fatal("expected product to be inactive")
	}
}
