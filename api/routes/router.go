package routes

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/fitmarkethq/fitmarket-backend/api/controllers"
	"github.com/fitmarkethq/fitmarket-backend/api/middleware"
	"github.com/fitmarkethq/fitmarket-backend/internal/downloads"
	"github.com/fitmarkethq/fitmarket-backend/internal/inventory"
	"github.com/fitmarkethq/fitmarket-backend/internal/ledger"
	"github.com/fitmarkethq/fitmarket-backend/internal/memberships"
	"github.com/fitmarkethq/fitmarket-backend/internal/orders"
	"github.com/fitmarkethq/fitmarket-backend/internal/pickup"
	"github.com/fitmarkethq/fitmarket-backend/internal/products"
	"github.com/fitmarkethq/fitmarket-backend/internal/refunds"
	"github.com/fitmarkethq/fitmarket-backend/internal/sellers"
	"github.com/fitmarkethq/fitmarket-backend/pkg/config"
	"github.com/fitmarkethq/fitmarket-backend/pkg/logger"
)

// Pinger reports whether a backing dependency is reachable.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Deps carries everything the router wires into handlers.
type Deps struct {
	Cfg  *config.Config
	Logg *logger.Logger

	DB      Pinger
	Cache   Pinger
	Limiter middleware.WindowLimiter

	Orders      orders.Service
	Refunds     refunds.Service
	Ledger      ledger.Service
	Products    products.Service
	Sellers     sellers.Service
	Inventory   inventory.Service
	Pickup      pickup.Service
	Memberships memberships.Service
	Downloads   downloads.Service
}

// NewRouter assembles the chi router. Identity comes from edge-proxy headers;
// the guards below only enforce presence, never authentication.
func NewRouter(d Deps) http.Handler {
	logg := d.Logg

	ordersCtl := controllers.NewOrders(d.Orders, logg)
	refundsCtl := controllers.NewRefunds(d.Refunds, logg)
	earningsCtl := controllers.NewEarnings(d.Ledger, logg)
	productsCtl := controllers.NewProducts(d.Products, logg)
	sellersCtl := controllers.NewSellers(d.Sellers, logg)
	inventoryCtl := controllers.NewInventory(d.Inventory, logg)
	pickupCtl := controllers.NewPickup(d.Pickup, logg)
	membershipsCtl := controllers.NewMemberships(d.Memberships, logg)
	downloadsCtl := controllers.NewDownloads(d.Downloads, d.Products, logg)

	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg),
		middleware.Identity(logg),
	)

	r.Get("/healthz", controllers.Health(d.DB, d.Cache, logg))
	r.Method(http.MethodGet, "/metrics", promhttp.Handler())

	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/pickup-locations", pickupCtl.ListActive)
		r.Get("/products", productsCtl.List)
		r.Get("/products/{productID}", productsCtl.Get)
		r.Get("/membership-plans/{planID}", membershipsCtl.GetPlan)
		r.Get("/downloads/{token}", downloadsCtl.Redeem)

		r.Group(func(r chi.Router) {
			r.Use(middleware.RequireUser(logg))

			checkoutLimit := middleware.RateLimit(
				d.Limiter, logg, "checkout",
				d.Cfg.Engine.CheckoutRateLimit, d.Cfg.Engine.CheckoutRateWindow,
			)
			r.With(checkoutLimit).Post("/checkout", ordersCtl.Checkout)

			r.Get("/orders", ordersCtl.List)
			r.Get("/orders/{orderID}", ordersCtl.Get)
			r.Post("/orders/{orderID}/shipping", ordersCtl.UpdateShipping)

			r.Post("/membership-plans/{planID}/subscribe", membershipsCtl.Subscribe)
			r.Post("/memberships/{membershipID}/cancel", membershipsCtl.Cancel)

			r.Post("/sellers/apply", sellersCtl.Apply)
		})

		r.Group(func(r chi.Router) {
			r.Use(middleware.RequireSeller(logg))

			r.Get("/sellers/me", sellersCtl.Me)
			r.Get("/sellers/me/earnings", earningsCtl.Statement)
			r.Get("/sellers/me/balances", earningsCtl.Balances)

			r.Post("/products", productsCtl.Create)
			r.Patch("/products/{productID}", productsCtl.Update)
			r.Delete("/products/{productID}", productsCtl.Retire)

			r.Post("/order-items/{itemID}/refund", refundsCtl.RequestItemRefund)
		})
	})

	r.Route("/api/admin/v1", func(r chi.Router) {
		r.Use(middleware.RequireAdmin(logg))

		r.Route("/refunds", func(r chi.Router) {
			r.Get("/", refundsCtl.Queue)
			r.Get("/{refundID}", refundsCtl.Get)
			r.Post("/{refundID}/approve", refundsCtl.Approve)
			r.Post("/{refundID}/reject", refundsCtl.Reject)
			r.Post("/{refundID}/process", refundsCtl.Process)
		})

		r.Route("/orders", func(r chi.Router) {
			r.Post("/{orderID}/force-refund", refundsCtl.ForceRefund)
			r.Delete("/{orderID}", ordersCtl.Delete)
		})

		r.Route("/sellers", func(r chi.Router) {
			r.Get("/pending", sellersCtl.Pending)
			r.Post("/{sellerID}/approve", sellersCtl.Approve)
			r.Post("/{sellerID}/reject", sellersCtl.Reject)
			r.Patch("/{sellerID}/config", sellersCtl.Configure)
		})

		r.Route("/products/{productID}/inventory", func(r chi.Router) {
			r.Post("/initial", inventoryCtl.SetInitial)
			r.Post("/adjust", inventoryCtl.Adjust)
			r.Get("/logs", inventoryCtl.Logs)
		})

		r.Route("/pickup-locations", func(r chi.Router) {
			r.Get("/", pickupCtl.ListAll)
			r.Post("/", pickupCtl.Create)
			r.Get("/{locationID}", pickupCtl.Get)
			r.Put("/{locationID}", pickupCtl.Update)
			r.Post("/{locationID}/active", pickupCtl.SetActive)
		})

		r.Post("/membership-plans", membershipsCtl.CreatePlan)
		r.Post("/memberships/{membershipID}/renew", membershipsCtl.Renew)
	})

	return r
}
