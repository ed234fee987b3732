package orders

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/fitmarkethq/fitmarket-backend/internal/inventory"
	"github.com/fitmarkethq/fitmarket-backend/pkg/config"
	"github.com/fitmarkethq/fitmarket-backend/pkg/db/models"
	"github.com/fitmarkethq/fitmarket-backend/pkg/enums"
	pkgerrors "github.com/fitmarkethq/fitmarket-backend/pkg/errors"
	"github.com/fitmarkethq/fitmarket-backend/pkg/money"
)

type stubGranter struct {
	grants []uuid.UUID
}

func (g *stubGranter) Grant(_ context.Context, tx *gorm.DB, orderID, productID uuid.UUID) (*models.DigitalDownload, error) {
	grant := &models.DigitalDownload{OrderID: orderID, ProductID: productID}
	if err := tx.Create(grant).Error; err != nil {
		return nil, err
	}
	g.grants = append(g.grants, productID)
	return grant, nil
}

type gormTxRunner struct {
	db *gorm.DB
}

func (r gormTxRunner) WithTx(_ context.Context, fn func(tx *gorm.DB) error) error {
	return r.db.Transaction(fn)
}

type testEnv struct {
	svc     Service
	db      *gorm.DB
	granter *stubGranter
	user    *models.User
	seller  *models.Seller
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	dsn := "file:orders_" + uuid.NewString() + "?mode=memory&cache=shared"
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	err = db.AutoMigrate(
		&models.User{}, &models.Seller{}, &models.Product{},
		&models.Order{}, &models.OrderItem{}, &models.InventoryLog{},
		&models.Refund{}, &models.PickupLocation{}, &models.DigitalDownload{},
	)
	if err != nil {
		t.Fatalf("migrate: %v", err)
	}

	runner := gormTxRunner{db: db}
	invSvc, err := inventory.NewService(inventory.NewRepository(db), runner)
	if err != nil {
		t.Fatalf("inventory service: %v", err)
	}
	granter := &stubGranter{}
	svc, err := NewService(NewRepository(db), runner, invSvc, granter, nil, config.EngineConfig{
		FlatShippingFee:       "15.00",
		FreeShippingThreshold: "100.00",
	})
	if err != nil {
		t.Fatalf("orders service: %v", err)
	}

	user := &models.User{
		Email:          "buyer@fitmarket.test",
		Name:           "Jordan Buyer",
		Phone:          "604-555-0101",
		ShipAddress1:   "12 Main St",
		ShipCity:       "Vancouver",
		ShipProvince:   "BC",
		ShipPostalCode: "V5K 0A1",
		ShipCountry:    "CA",
	}
	if err := db.Create(user).Error; err != nil {
		t.Fatalf("seed user: %v", err)
	}
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

	return &testEnv{svc: svc, db: db, granter: granter, user: user, seller: seller}
}

func (e *testEnv) seedProduct(t *testing.T, p models.Product) *models.Product {
	t.Helper()
	if err := e.db.Create(&p).Error; err != nil {
		t.Fatalf("seed product: %v", err)
	}
	return &p
}

func TestPlaceOrderMixedCart(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t)
	ctx := context.Background()

	seats := 5
	physical := env.seedProduct(t, models.Product{
		SellerID: &env.seller.ID, Name: "olympic barbell", Kind: enums.ProductKindPhysical,
		UnitPrice: money.MustFromString("30.00"), Stock: 10, ChargeGST: true, ChargePST: true, IsActive: true,
	})
	digital := env.seedProduct(t, models.Product{
		Name: "8 week program", Kind: enums.ProductKindDigital,
		UnitPrice: money.MustFromString("10.00"), ChargeGST: true, ChargePST: false, IsActive: true,
		DigitalURL: strPtr("https://cdn.fitmarket.test/program.pdf"),
	})
	service := env.seedProduct(t, models.Product{
		SellerID: &env.seller.ID, Name: "form check session", Kind: enums.ProductKindService,
		UnitPrice: money.MustFromString("25.00"), ServiceSeats: &seats, IsActive: true,
	})

	order, err := env.svc.PlaceOrder(ctx, PlaceOrderInput{
		UserID: env.user.ID,
		Lines: []CartLine{
			{ProductID: physical.ID, Quantity: 2},
			{ProductID: digital.ID, Quantity: 1},
			{ProductID: service.ID, Quantity: 1},
		},
		PaymentIntentID: "pi_mixed_cart",
	})
	if err != nil {
		t.Fatalf("place order: %v", err)
	}

	if order.Status != enums.OrderStatusPaid {
		t.Fatalf("expected paid, got %s", order.Status)
	}
	if got := order.Subtotal.String(); got != "95.00" {
		t.Fatalf("subtotal = %s", got)
	}
	if got := order.Tax.String(); got != "7.70" {
		t.Fatalf("tax = %s", got)
	}
	if got := order.Shipping.String(); got != "15.00" {
		t.Fatalf("shipping = %s", got)
	}
	if got := order.Total.String(); got != "117.70" {
		t.Fatalf("total = %s", got)
	}
	if order.ShipName != env.user.Name || order.ShipCity != "Vancouver" {
		t.Fatalf("shipping snapshot missing: %+v", order.Snapshot())
	}
	if len(order.Items) != 3 {
		t.Fatalf("expected 3 items, got %d", len(order.Items))
	}

	for _, item := range order.Items {
		if !item.PlatformFee.Add(item.SellerEarnings).Equal(item.LineTotal) {
			t.Fatalf("split identity broken on %s", item.ProductName)
		}
		switch item.ProductID {
		case physical.ID:
			if item.PlatformFee.String() != "6.00" || item.SellerEarnings.String() != "54.00" {
				t.Fatalf("physical split: %s / %s", item.PlatformFee, item.SellerEarnings)
			}
		case digital.ID:
			if !item.PlatformFee.IsZero() {
				t.Fatalf("platform product should carry no fee, got %s", item.PlatformFee)
			}
		case service.ID:
			if item.PlatformFee.String() != "2.50" {
				t.Fatalf("service fee: %s", item.PlatformFee)
			}
		}
	}

	var reloadedPhysical, reloadedService models.Product
	if err := env.db.First(&reloadedPhysical, "id = ?", physical.ID).Error; err != nil {
		t.Fatalf("reload physical: %v", err)
	}
	if reloadedPhysical.Stock != 8 {
		t.Fatalf("expected stock 8, got %d", reloadedPhysical.Stock)
	}
	if err := env.db.First(&reloadedService, "id = ?", service.ID).Error; err != nil {
		t.Fatalf("reload service: %v", err)
	}
	if reloadedService.ServiceSeats == nil || *reloadedService.ServiceSeats != 4 {
		t.Fatalf("expected 4 seats, got %v", reloadedService.ServiceSeats)
	}

	var digitalLog models.InventoryLog
	if err := env.db.First(&digitalLog, "product_id = ?", digital.ID).Error; err != nil {
		t.Fatalf("digital purchase must log: %v", err)
	}
	if digitalLog.Delta != -1 || digitalLog.ChangeType != enums.InventoryChangePurchase {
		t.Fatalf("unexpected digital log: %+v", digitalLog)
	}

	if len(env.granter.grants) != 1 || env.granter.grants[0] != digital.ID {
		t.Fatalf("expected one download grant for the digital line")
	}
}

func TestPlaceOrderInsufficientStockRollsBack(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t)
	ctx := context.Background()

	low := env.seedProduct(t, models.Product{
		SellerID: &env.seller.ID, Name: "chalk block", Kind: enums.ProductKindPhysical,
		UnitPrice: money.MustFromString("5.00"), Stock: 1, IsActive: true,
	})

	_, err := env.svc.PlaceOrder(ctx, PlaceOrderInput{
		UserID:          env.user.ID,
		Lines:           []CartLine{{ProductID: low.ID, Quantity: 3}},
		PaymentIntentID: "pi_shortage",
	})
	if !pkgerrors.HasCode(err, pkgerrors.CodeInsufficientStock) {
		t.Fatalf("expected insufficient stock, got %v", err)
	}

	pkgErr := pkgerrors.As(err)
	if pkgErr == nil {
		t.Fatalf("expected typed error")
	}
	details, ok := pkgErr.Details().(map[string]any)
	if !ok {
		t.Fatalf("expected detail map, got %+v", pkgErr.Details())
	}
	shortages, ok := details["shortages"].([]StockShortage)
	if !ok || len(shortages) != 1 {
		t.Fatalf("expected shortage detail, got %+v", details)
	}
	if shortages[0].Requested != 3 || shortages[0].Available != 1 {
		t.Fatalf("unexpected shortage: %+v", shortages[0])
	}

	var orderCount int64
	if err := env.db.Model(&models.Order{}).Count(&orderCount).Error; err != nil {
		t.Fatalf("count orders: %v", err)
	}
	if orderCount != 0 {
		t.Fatal("failed checkout must not create an order")
	}
	var reloaded models.Product
	if err := env.db.First(&reloaded, "id = ?", low.ID).Error; err != nil {
		t.Fatalf("reload: %v", err)
	}
	if reloaded.Stock != 1 {
		t.Fatalf("stock must be untouched, got %d", reloaded.Stock)
	}
}

func TestPlaceOrderDuplicatePaymentIntent(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t)
	ctx := context.Background()

	product := env.seedProduct(t, models.Product{
		SellerID: &env.seller.ID, Name: "lifting straps", Kind: enums.ProductKindPhysical,
		UnitPrice: money.MustFromString("12.00"), Stock: 20, IsActive: true,
	})

	input := PlaceOrderInput{
		UserID:          env.user.ID,
		Lines:           []CartLine{{ProductID: product.ID, Quantity: 1}},
		PaymentIntentID: "pi_once_only",
	}
	if _, err := env.svc.PlaceOrder(ctx, input); err != nil {
		t.Fatalf("first order: %v", err)
	}
	if _, err := env.svc.PlaceOrder(ctx, input); !pkgerrors.HasCode(err, pkgerrors.CodeDuplicatePaymentIntent) {
		t.Fatalf("expected duplicate payment intent, got %v", err)
	}
}

func TestShippingFeeRules(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t)
	ctx := context.Background()

	cheap := env.seedProduct(t, models.Product{
		SellerID: &env.seller.ID, Name: "wrist wraps", Kind: enums.ProductKindPhysical,
		UnitPrice: money.MustFromString("20.00"), Stock: 50, IsActive: true,
	})
	bulky := env.seedProduct(t, models.Product{
		SellerID: &env.seller.ID, Name: "plate set", Kind: enums.ProductKindPhysical,
		UnitPrice: money.MustFromString("100.00"), Stock: 50, IsActive: true,
	})
	digital := env.seedProduct(t, models.Product{
		Name: "mobility guide", Kind: enums.ProductKindDigital,
		UnitPrice: money.MustFromString("8.00"), IsActive: true,
		DigitalURL: strPtr("https://cdn.fitmarket.test/mobility.pdf"),
	})
	location := &models.PickupLocation{
		Name: "Downtown Gym", Address1: "400 Granville St", City: "Vancouver",
		Province: "BC", PostalCode: "V6C 1T2", IsActive: true,
	}
	if err := env.db.Create(location).Error; err != nil {
		t.Fatalf("seed location: %v", err)
	}

	// under the threshold: flat fee
	order, err := env.svc.PlaceOrder(ctx, PlaceOrderInput{
		UserID: env.user.ID, Lines: []CartLine{{ProductID: cheap.ID, Quantity: 1}}, PaymentIntentID: "pi_flat",
	})
	if err != nil {
		t.Fatalf("flat fee order: %v", err)
	}
	if order.Shipping.String() != "15.00" {
		t.Fatalf("expected flat fee, got %s", order.Shipping)
	}

	// at the threshold (inclusive): free
	order, err = env.svc.PlaceOrder(ctx, PlaceOrderInput{
		UserID: env.user.ID, Lines: []CartLine{{ProductID: bulky.ID, Quantity: 1}}, PaymentIntentID: "pi_free",
	})
	if err != nil {
		t.Fatalf("threshold order: %v", err)
	}
	if !order.Shipping.IsZero() {
		t.Fatalf("expected free shipping at threshold, got %s", order.Shipping)
	}

	// no physical item: free
	order, err = env.svc.PlaceOrder(ctx, PlaceOrderInput{
		UserID: env.user.ID, Lines: []CartLine{{ProductID: digital.ID, Quantity: 1}}, PaymentIntentID: "pi_digital",
	})
	if err != nil {
		t.Fatalf("digital order: %v", err)
	}
	if !order.Shipping.IsZero() {
		t.Fatalf("expected free shipping for digital cart, got %s", order.Shipping)
	}

	// pickup: free, snapshot from the location
	order, err = env.svc.PlaceOrder(ctx, PlaceOrderInput{
		UserID:           env.user.ID,
		Lines:            []CartLine{{ProductID: cheap.ID, Quantity: 1}},
		PickupLocationID: &location.ID,
		PaymentIntentID:  "pi_pickup",
	})
	if err != nil {
		t.Fatalf("pickup order: %v", err)
	}
	if !order.Shipping.IsZero() {
		t.Fatalf("expected free shipping for pickup, got %s", order.Shipping)
	}
	if !order.IsPickup || order.ShipName != "Downtown Gym" {
		t.Fatalf("pickup snapshot wrong: %+v", order.Snapshot())
	}
}

func TestUpdateShippingFrozenSnapshot(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t)
	ctx := context.Background()

	product := env.seedProduct(t, models.Product{
		SellerID: &env.seller.ID, Name: "jump rope", Kind: enums.ProductKindPhysical,
		UnitPrice: money.MustFromString("18.00"), Stock: 5, IsActive: true,
	})
	order, err := env.svc.PlaceOrder(ctx, PlaceOrderInput{
		UserID: env.user.ID, Lines: []CartLine{{ProductID: product.ID, Quantity: 1}}, PaymentIntentID: "pi_frozen",
	})
	if err != nil {
		t.Fatalf("place order: %v", err)
	}

	// paid orders have a locked snapshot: the address change is silently kept out
	tracking := "CP123456789CA"
	carrier := enums.ShippingCarrierCanadaPost
	updated, err := env.svc.UpdateShipping(ctx, UpdateShippingInput{
		OrderID:         order.ID,
		TrackingNumber:  &tracking,
		ShippingCarrier: &carrier,
		Address: &AddressInput{
			Name: "Someone Else", Address1: "99 Other Rd", City: "Burnaby",
			Province: "BC", PostalCode: "V5H 0A0", Country: "CA",
		},
	})
	if err != nil {
		t.Fatalf("update shipping: %v", err)
	}
	if updated.TrackingNumber == nil || *updated.TrackingNumber != tracking {
		t.Fatal("tracking must always apply")
	}
	if updated.ShipAddress1 != "12 Main St" || updated.ShipName != env.user.Name {
		t.Fatalf("locked snapshot was overwritten: %+v", updated.Snapshot())
	}

	var persisted models.Order
	if err := env.db.First(&persisted, "id = ?", order.ID).Error; err != nil {
		t.Fatalf("reload: %v", err)
	}
	if persisted.ShipAddress1 != "12 Main St" {
		t.Fatalf("persisted snapshot changed: %s", persisted.ShipAddress1)
	}
}

func TestDeleteRefusedWhileRefundsExist(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t)
	ctx := context.Background()

	product := env.seedProduct(t, models.Product{
		SellerID: &env.seller.ID, Name: "gym towel", Kind: enums.ProductKindPhysical,
		UnitPrice: money.MustFromString("9.00"), Stock: 5, IsActive: true,
	})
	order, err := env.svc.PlaceOrder(ctx, PlaceOrderInput{
		UserID: env.user.ID, Lines: []CartLine{{ProductID: product.ID, Quantity: 1}}, PaymentIntentID: "pi_delete",
	})
	if err != nil {
		t.Fatalf("place order: %v", err)
	}

	refund := &models.Refund{
		OrderID:   order.ID,
		Amount:    money.MustFromString("9.00"),
		Reason:    "damaged",
		ReasonTag: enums.RefundReasonRequestedByCustomer,
		CreatedBy: env.user.ID,
		Status:    enums.RefundStatusRequested,
	}
	if err := env.db.Create(refund).Error; err != nil {
		t.Fatalf("seed refund: %v", err)
	}

	if err := env.svc.Delete(ctx, order.ID); !pkgerrors.HasCode(err, pkgerrors.CodeConflict) {
		t.Fatalf("expected conflict, got %v", err)
	}

	if err := env.db.Delete(refund).Error; err != nil {
		t.Fatalf("remove refund: %v", err)
	}
	if err := env.svc.Delete(ctx, order.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, err := env.svc.Get(ctx, order.ID); !pkgerrors.HasCode(err, pkgerrors.CodeNotFound) {
		t.Fatalf("expected not found after delete, got %v", err)
	}
}

func TestPlaceOrderValidation(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t)
	ctx := context.Background()

	if _, err := env.svc.PlaceOrder(ctx, PlaceOrderInput{UserID: env.user.ID}); !pkgerrors.HasCode(err, pkgerrors.CodeValidation) {
		t.Fatalf("expected validation error for empty cart, got %v", err)
	}

	product := env.seedProduct(t, models.Product{
		SellerID: &env.seller.ID, Name: "retired shaker", Kind: enums.ProductKindPhysical,
		UnitPrice: money.MustFromString("7.00"), Stock: 5, IsActive: false,
	})
	_, err := env.svc.PlaceOrder(ctx, PlaceOrderInput{
		UserID: env.user.ID, Lines: []CartLine{{ProductID: product.ID, Quantity: 1}},
	})
	if !pkgerrors.HasCode(err, pkgerrors.CodeValidation) {
		t.Fatalf("expected validation error for inactive product, got %v", err)
	}

	_, err = env.svc.PlaceOrder(ctx, PlaceOrderInput{
		UserID: env.user.ID, Lines: []CartLine{{ProductID: uuid.New(), Quantity: 1}},
	})
	if !pkgerrors.HasCode(err, pkgerrors.CodeValidation) {
		t.Fatalf("expected validation error for unknown product, got %v", err)
	}

	_, err = env.svc.PlaceOrder(ctx, PlaceOrderInput{
		UserID: env.user.ID, Lines: []CartLine{{ProductID: product.ID, Quantity: 0}},
	})
	if !pkgerrors.HasCode(err, pkgerrors.CodeValidation) {
		t.Fatalf("expected validation error for zero quantity, got %v", err)
	}
}

func strPtr(s string) *string {
	return &s
}
