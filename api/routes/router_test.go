package routes

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/fitmarkethq/fitmarket-backend/internal/inventory"
	"github.com/fitmarkethq/fitmarket-backend/internal/ledger"
	"github.com/fitmarkethq/fitmarket-backend/internal/memberships"
	"github.com/fitmarkethq/fitmarket-backend/internal/orders"
	"github.com/fitmarkethq/fitmarket-backend/internal/pickup"
	"github.com/fitmarkethq/fitmarket-backend/internal/products"
	"github.com/fitmarkethq/fitmarket-backend/internal/refunds"
	"github.com/fitmarkethq/fitmarket-backend/internal/sellers"
	"github.com/fitmarkethq/fitmarket-backend/pkg/config"
	"github.com/fitmarkethq/fitmarket-backend/pkg/db/models"
	"github.com/fitmarkethq/fitmarket-backend/pkg/logger"
	"github.com/fitmarkethq/fitmarket-backend/pkg/pagination"
)

type stubPinger struct{}

func (stubPinger) Ping(context.Context) error {
	return nil
}

type stubLimiter struct {
	allow bool
}

func (s stubLimiter) FixedWindowAllow(context.Context, string, int64, time.Duration) (bool, int64, error) {
	return s.allow, 1, nil
}

type stubOrdersService struct{}

func (stubOrdersService) PlaceOrder(ctx context.Context, input orders.PlaceOrderInput) (*models.Order, error) {
	panic("unimplemented")
}

func (stubOrdersService) UpdateShipping(ctx context.Context, input orders.UpdateShippingInput) (*models.Order, error) {
	panic("unimplemented")
}

func (stubOrdersService) Get(ctx context.Context, orderID uuid.UUID) (*models.Order, error) {
	panic("unimplemented")
}

func (stubOrdersService) ListByUser(ctx context.Context, userID uuid.UUID, params pagination.Params) ([]models.Order, error) {
	return []models.Order{}, nil
}

func (stubOrdersService) Delete(ctx context.Context, orderID uuid.UUID) error {
	return nil
}

type stubRefundsService struct{}

func (stubRefundsService) Request(ctx context.Context, input refunds.RequestInput) (*models.Refund, error) {
	panic("unimplemented")
}

func (stubRefundsService) ForceRefund(ctx context.Context, input refunds.ForceRefundInput) (*models.Refund, error) {
	panic("unimplemented")
}

func (stubRefundsService) Approve(ctx context.Context, refundID, adminID uuid.UUID) (*models.Refund, error) {
	panic("unimplemented")
}

func (stubRefundsService) Reject(ctx context.Context, refundID, adminID uuid.UUID, reason string) (*models.Refund, error) {
	panic("unimplemented")
}

func (stubRefundsService) Process(ctx context.Context, refundID uuid.UUID) (*models.Refund, error) {
	panic("unimplemented")
}

func (stubRefundsService) Get(ctx context.Context, refundID uuid.UUID) (*models.Refund, error) {
	panic("unimplemented")
}

func (stubRefundsService) Queue(ctx context.Context, params pagination.Params) ([]models.Refund, error) {
	return []models.Refund{}, nil
}

func (stubRefundsService) StaleProcessing(ctx context.Context, olderThan time.Time, limit int) ([]refunds.StaleRefund, error) {
	panic("unimplemented")
}

func (stubRefundsService) MarkSucceeded(ctx context.Context, refundID uuid.UUID, gatewayID string) (*models.Refund, error) {
	panic("unimplemented")
}

func (stubRefundsService) MarkFailed(ctx context.Context, refundID uuid.UUID, detail string) (*models.Refund, error) {
	panic("unimplemented")
}

type stubLedgerService struct{}

func (stubLedgerService) Statement(ctx context.Context, sellerID uuid.UUID, from, to time.Time) (*ledger.Statement, error) {
	return &ledger.Statement{}, nil
}

func (stubLedgerService) Balances(ctx context.Context, sellerID uuid.UUID, now time.Time) (*ledger.Balances, error) {
	return &ledger.Balances{}, nil
}

type stubProductsService struct{}

func (stubProductsService) Create(ctx context.Context, input products.CreateInput) (*models.Product, error) {
	panic("unimplemented")
}

func (stubProductsService) Update(ctx context.Context, input products.UpdateInput) (*models.Product, error) {
	panic("unimplemented")
}

func (stubProductsService) Retire(ctx context.Context, productID, sellerID uuid.UUID) error {
	panic("unimplemented")
}

func (stubProductsService) Get(ctx context.Context, productID uuid.UUID) (*models.Product, error) {
	panic("unimplemented")
}

func (stubProductsService) ListBySeller(ctx context.Context, sellerID uuid.UUID, params pagination.Params) ([]models.Product, error) {
	return []models.Product{}, nil
}

func (stubProductsService) ListActive(ctx context.Context, params pagination.Params) ([]models.Product, error) {
	return []models.Product{}, nil
}

type stubSellersService struct{}

func (stubSellersService) Apply(ctx context.Context, input sellers.ApplyInput) (*models.Seller, error) {
	panic("unimplemented")
}

func (stubSellersService) Approve(ctx context.Context, sellerID, adminID uuid.UUID) (*models.Seller, error) {
	panic("unimplemented")
}

func (stubSellersService) Reject(ctx context.Context, sellerID, adminID uuid.UUID) (*models.Seller, error) {
	panic("unimplemented")
}

func (stubSellersService) Configure(ctx context.Context, input sellers.ConfigureInput) (*models.Seller, error) {
	panic("unimplemented")
}

func (stubSellersService) Get(ctx context.Context, sellerID uuid.UUID) (*models.Seller, error) {
	panic("unimplemented")
}

func (stubSellersService) GetByUser(ctx context.Context, userID uuid.UUID) (*models.Seller, error) {
	panic("unimplemented")
}

func (stubSellersService) RequireApproved(ctx context.Context, sellerID uuid.UUID) (*models.Seller, error) {
	panic("unimplemented")
}

func (stubSellersService) ListPending(ctx context.Context, params pagination.Params) ([]models.Seller, error) {
	return []models.Seller{}, nil
}

type stubInventoryService struct{}

func (stubInventoryService) SetInitial(ctx context.Context, input inventory.SetInitialInput) (*models.Product, error) {
	panic("unimplemented")
}

func (stubInventoryService) Adjust(ctx context.Context, tx *gorm.DB, input inventory.AdjustInput) (int, error) {
	panic("unimplemented")
}

func (stubInventoryService) AdjustSeats(ctx context.Context, tx *gorm.DB, input inventory.AdjustInput) (int, error) {
	panic("unimplemented")
}

func (stubInventoryService) LogOnly(ctx context.Context, tx *gorm.DB, input inventory.AdjustInput) error {
	panic("unimplemented")
}

func (stubInventoryService) Logs(ctx context.Context, productID uuid.UUID, params pagination.Params) ([]models.InventoryLog, error) {
	return []models.InventoryLog{}, nil
}

type stubPickupService struct{}

func (stubPickupService) Create(ctx context.Context, input pickup.LocationInput) (*models.PickupLocation, error) {
	panic("unimplemented")
}

func (stubPickupService) Update(ctx context.Context, id uuid.UUID, input pickup.LocationInput) (*models.PickupLocation, error) {
	panic("unimplemented")
}

func (stubPickupService) Get(ctx context.Context, id uuid.UUID) (*models.PickupLocation, error) {
	panic("unimplemented")
}

func (stubPickupService) ListActive(ctx context.Context) ([]models.PickupLocation, error) {
	return []models.PickupLocation{}, nil
}

func (stubPickupService) ListAll(ctx context.Context) ([]models.PickupLocation, error) {
	return []models.PickupLocation{}, nil
}

func (stubPickupService) SetActive(ctx context.Context, id uuid.UUID, active bool) (*models.PickupLocation, error) {
	panic("unimplemented")
}

type stubMembershipsService struct{}

func (stubMembershipsService) CreatePlan(ctx context.Context, input memberships.CreatePlanInput) (*models.MembershipPlan, error) {
	panic("unimplemented")
}

func (stubMembershipsService) GetPlan(ctx context.Context, planID uuid.UUID) (*models.MembershipPlan, error) {
	panic("unimplemented")
}

func (stubMembershipsService) Subscribe(ctx context.Context, userID, planID uuid.UUID) (*models.Membership, error) {
	panic("unimplemented")
}

func (stubMembershipsService) GetMembership(ctx context.Context, membershipID uuid.UUID) (*models.Membership, error) {
	panic("unimplemented")
}

func (stubMembershipsService) Renew(ctx context.Context, membershipID uuid.UUID, paymentIntentID string) (*models.Order, error) {
	panic("unimplemented")
}

func (stubMembershipsService) RenewDue(ctx context.Context, now time.Time, limit int) (int, error) {
	panic("unimplemented")
}

func (stubMembershipsService) Cancel(ctx context.Context, membershipID uuid.UUID) (*models.Membership, error) {
	panic("unimplemented")
}

type stubDownloadsService struct{}

func (stubDownloadsService) Grant(ctx context.Context, tx *gorm.DB, orderID, productID uuid.UUID) (*models.DigitalDownload, error) {
	panic("unimplemented")
}

func (stubDownloadsService) Consume(ctx context.Context, token uuid.UUID, now time.Time) (*models.DigitalDownload, error) {
	panic("unimplemented")
}

func testConfig() *config.Config {
	return &config.Config{
		App: config.AppConfig{Env: "test", Port: "0"},
		Engine: config.EngineConfig{
			CheckoutRateLimit:  10,
			CheckoutRateWindow: time.Minute,
		},
	}
}

func newTestRouter(cfg *config.Config, limiter stubLimiter) http.Handler {
	logg := logger.New(logger.Options{ServiceName: "test-routing", Level: logger.ParseLevel("debug"), Output: io.Discard})
	return NewRouter(Deps{
		Cfg:         cfg,
		Logg:        logg,
		DB:          stubPinger{},
		Cache:       stubPinger{},
		Limiter:     limiter,
		Orders:      stubOrdersService{},
		Refunds:     stubRefundsService{},
		Ledger:      stubLedgerService{},
		Products:    stubProductsService{},
		Sellers:     stubSellersService{},
		Inventory:   stubInventoryService{},
		Pickup:      stubPickupService{},
		Memberships: stubMembershipsService{},
		Downloads:   stubDownloadsService{},
	})
}

func TestHealthzIsPublic(t *testing.T) {
	router := newTestRouter(testConfig(), stubLimiter{allow: true})
	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 for healthz got %d", resp.Code)
	}
}

func TestPickupLocationsArePublic(t *testing.T) {
	router := newTestRouter(testConfig(), stubLimiter{allow: true})
	req := httptest.NewRequest(http.MethodGet, "/api/v1/pickup-locations", nil)
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 for pickup locations got %d", resp.Code)
	}
}

func TestCheckoutRequiresUser(t *testing.T) {
	router := newTestRouter(testConfig(), stubLimiter{allow: true})
	req := httptest.NewRequest(http.MethodPost, "/api/v1/checkout", nil)
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)
	if resp.Code != http.StatusForbidden {
		t.Fatalf("expected 403 without user header got %d", resp.Code)
	}
}

func TestCheckoutRateLimited(t *testing.T) {
	router := newTestRouter(testConfig(), stubLimiter{allow: false})
	req := httptest.NewRequest(http.MethodPost, "/api/v1/checkout", nil)
	req.Header.Set("X-User-Id", uuid.NewString())
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)
	if resp.Code != http.StatusTooManyRequests {
		t.Fatalf("expected 429 when limiter blocks got %d", resp.Code)
	}
}

func TestOrdersListRequiresUser(t *testing.T) {
	router := newTestRouter(testConfig(), stubLimiter{allow: true})

	req := httptest.NewRequest(http.MethodGet, "/api/v1/orders", nil)
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)
	if resp.Code != http.StatusForbidden {
		t.Fatalf("expected 403 without user header got %d", resp.Code)
	}

	withUser := httptest.NewRequest(http.MethodGet, "/api/v1/orders", nil)
	withUser.Header.Set("X-User-Id", uuid.NewString())
	resp = httptest.NewRecorder()
	router.ServeHTTP(resp, withUser)
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 with user header got %d", resp.Code)
	}
}

func TestEarningsRequireSeller(t *testing.T) {
	router := newTestRouter(testConfig(), stubLimiter{allow: true})

	req := httptest.NewRequest(http.MethodGet, "/api/v1/sellers/me/earnings", nil)
	req.Header.Set("X-User-Id", uuid.NewString())
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)
	if resp.Code != http.StatusForbidden {
		t.Fatalf("expected 403 without seller header got %d", resp.Code)
	}

	asSeller := httptest.NewRequest(http.MethodGet, "/api/v1/sellers/me/earnings", nil)
	asSeller.Header.Set("X-User-Id", uuid.NewString())
	asSeller.Header.Set("X-Seller-Id", uuid.NewString())
	resp = httptest.NewRecorder()
	router.ServeHTTP(resp, asSeller)
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 with seller header got %d", resp.Code)
	}
}

func TestAdminRefundQueueRequiresAdmin(t *testing.T) {
	router := newTestRouter(testConfig(), stubLimiter{allow: true})

	req := httptest.NewRequest(http.MethodGet, "/api/admin/v1/refunds/", nil)
	req.Header.Set("X-User-Id", uuid.NewString())
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)
	if resp.Code != http.StatusForbidden {
		t.Fatalf("expected 403 for non-admin got %d", resp.Code)
	}

	asAdmin := httptest.NewRequest(http.MethodGet, "/api/admin/v1/refunds/", nil)
	asAdmin.Header.Set("X-User-Id", uuid.NewString())
	asAdmin.Header.Set("X-Admin", "true")
	resp = httptest.NewRecorder()
	router.ServeHTTP(resp, asAdmin)
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 for admin got %d", resp.Code)
	}
}

func TestMetricsExposed(t *testing.T) {
	router := newTestRouter(testConfig(), stubLimiter{allow: true})
	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 for metrics got %d", resp.Code)
	}
}
