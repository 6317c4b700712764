package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/caribcell/caribcell-backend/api/controllers"
	"github.com/caribcell/caribcell-backend/api/middleware"
	"github.com/caribcell/caribcell-backend/internal/access"
	cartsvc "github.com/caribcell/caribcell-backend/internal/cart"
	catalogsvc "github.com/caribcell/caribcell-backend/internal/catalog"
	checkoutsvc "github.com/caribcell/caribcell-backend/internal/checkout"
	orderssvc "github.com/caribcell/caribcell-backend/internal/orders"
	reviewssvc "github.com/caribcell/caribcell-backend/internal/reviews"
	shippingsvc "github.com/caribcell/caribcell-backend/internal/shipping"
	userssvc "github.com/caribcell/caribcell-backend/internal/users"
	"github.com/caribcell/caribcell-backend/pkg/auth/session"
	"github.com/caribcell/caribcell-backend/pkg/config"
	"github.com/caribcell/caribcell-backend/pkg/enums"
	"github.com/caribcell/caribcell-backend/pkg/logger"
)

// Deps carries everything the router wires into handlers.
type Deps struct {
	Config   *config.Config
	Logger   *logger.Logger
	Sessions session.AccessSessionChecker
	Gate     *access.Gate

	Users    userssvc.Service
	Catalog  catalogsvc.Service
	Cart     cartsvc.Service
	Checkout checkoutsvc.Service
	Orders   orderssvc.Service
	Reviews  reviewssvc.Service
	Shipping shippingsvc.Service

	HealthChecks    map[string]func() error
	MetricsGatherer prometheus.Gatherer
}

// NewRouter assembles the HTTP surface.
func NewRouter(deps Deps) http.Handler {
	cfg := deps.Config
	logg := deps.Logger

	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg),
		middleware.CORS(),
	)

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, logg, deps.HealthChecks))
	})

	if deps.MetricsGatherer != nil {
		r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(deps.MetricsGatherer, promhttp.HandlerOpts{}))
	}

	r.Route("/api/v1/auth", func(r chi.Router) {
		r.Post("/register", controllers.Register(deps.Users, logg))
		r.Post("/login", controllers.Login(deps.Users, logg))

		r.Group(func(r chi.Router) {
			r.Use(middleware.Auth(cfg.JWT, deps.Sessions, logg))
			r.Post("/logout", controllers.Logout(deps.Users, logg))
			r.Get("/me", controllers.Me(deps.Users, logg))
		})
	})

	r.Route("/api/v1/products", func(r chi.Router) {
		r.Get("/", controllers.ListProducts(deps.Catalog, logg))
		r.Get("/{slug}", controllers.GetProduct(deps.Catalog, logg))
		r.Get("/{productID}/reviews", controllers.ListProductReviews(deps.Reviews, logg))

		r.Group(func(r chi.Router) {
			r.Use(middleware.Auth(cfg.JWT, deps.Sessions, logg))
			r.Post("/{productID}/reviews", controllers.SubmitReview(deps.Reviews, logg))
		})
	})

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(middleware.Auth(cfg.JWT, deps.Sessions, logg))

		r.Route("/addresses", func(r chi.Router) {
			r.Get("/", controllers.ListAddresses(deps.Users, logg))
			r.Post("/", controllers.CreateAddress(deps.Users, logg))
		})

		r.Route("/cart", func(r chi.Router) {
			r.Get("/", controllers.GetCart(deps.Cart, logg))
			r.Post("/items", controllers.AddCartItem(deps.Cart, logg))
			r.Patch("/items/{itemID}", controllers.UpdateCartItem(deps.Cart, logg))
			r.Delete("/items/{itemID}", controllers.RemoveCartItem(deps.Cart, logg))
		})

		r.Route("/checkout", func(r chi.Router) {
			r.Post("/", controllers.BeginCheckout(deps.Checkout, logg))
			r.Post("/confirm-payment", controllers.ConfirmPayment(deps.Orders, logg))
		})

		r.Route("/orders", func(r chi.Router) {
			r.Get("/", controllers.ListMyOrders(deps.Orders, logg))
			r.Get("/{orderID}", controllers.GetOrder(deps.Orders, logg))
			r.Post("/{orderID}/cancel", controllers.CancelOrder(deps.Orders, logg))
		})
	})

	r.Route("/api/admin/v1", func(r chi.Router) {
		r.Use(middleware.Auth(cfg.JWT, deps.Sessions, logg))

		r.Group(func(r chi.Router) {
			r.Use(middleware.RequirePermission(deps.Gate, enums.PermissionCatalogWrite, logg))
			r.Post("/products", controllers.CreateProduct(deps.Catalog, logg))
			r.Post("/variants", controllers.CreateVariant(deps.Catalog, logg))
			r.Patch("/variants/{variantID}/price", controllers.UpdateVariantPrice(deps.Catalog, logg))
		})

		r.Group(func(r chi.Router) {
			r.Use(middleware.RequirePermission(deps.Gate, enums.PermissionStockAdjust, logg))
			r.Post("/variants/{variantID}/stock", controllers.ReceiveStock(deps.Catalog, logg))
		})

		r.Group(func(r chi.Router) {
			r.Use(middleware.RequirePermission(deps.Gate, enums.PermissionOrdersRead, logg))
			r.Get("/orders", controllers.ListOrders(deps.Orders, logg))
			r.Get("/orders/{orderID}", controllers.GetOrder(deps.Orders, logg))
		})

		r.Group(func(r chi.Router) {
			r.Use(middleware.RequirePermission(deps.Gate, enums.PermissionOrdersCancel, logg))
			r.Post("/orders/{orderID}/cancel", controllers.CancelOrder(deps.Orders, logg))
		})

		r.Group(func(r chi.Router) {
			r.Use(middleware.RequirePermission(deps.Gate, enums.PermissionOrdersShip, logg))
			r.Post("/orders/{orderID}/ship", controllers.ShipOrder(deps.Shipping, logg))
		})

		r.Group(func(r chi.Router) {
			r.Use(middleware.RequirePermission(deps.Gate, enums.PermissionReviewModerate, logg))
			r.Get("/reviews/pending", controllers.ListPendingReviews(deps.Reviews, logg))
			r.Post("/reviews/{reviewID}/moderate", controllers.ModerateReview(deps.Reviews, logg))
		})

		r.Group(func(r chi.Router) {
			r.Use(middleware.RequirePermission(deps.Gate, enums.PermissionUsersManage, logg))
			r.Patch("/users/{userID}/status", controllers.SetAccountStatus(deps.Users, logg))
			r.Post("/users/{userID}/roles", controllers.GrantRole(deps.Users, logg))
			r.Delete("/users/{userID}/roles/{role}", controllers.RevokeRole(deps.Users, logg))
		})
	})

	return r
}
