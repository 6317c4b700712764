package main

import (
	"context"
	"net/http"
	"os"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/caribcell/caribcell-backend/api/routes"
	"github.com/caribcell/caribcell-backend/internal/access"
	"github.com/caribcell/caribcell-backend/internal/cart"
	"github.com/caribcell/caribcell-backend/internal/catalog"
	"github.com/caribcell/caribcell-backend/internal/checkout"
	"github.com/caribcell/caribcell-backend/internal/inventory"
	"github.com/caribcell/caribcell-backend/internal/orders"
	"github.com/caribcell/caribcell-backend/internal/reviews"
	"github.com/caribcell/caribcell-backend/internal/shipping"
	"github.com/caribcell/caribcell-backend/internal/users"
	"github.com/caribcell/caribcell-backend/pkg/auth/session"
	"github.com/caribcell/caribcell-backend/pkg/carrier"
	"github.com/caribcell/caribcell-backend/pkg/config"
	"github.com/caribcell/caribcell-backend/pkg/db"
	"github.com/caribcell/caribcell-backend/pkg/logger"
	"github.com/caribcell/caribcell-backend/pkg/metrics"
	"github.com/caribcell/caribcell-backend/pkg/migrate"
	"github.com/caribcell/caribcell-backend/pkg/redis"
	"github.com/caribcell/caribcell-backend/pkg/stripe"
)

func main() {
	logg := logger.New(logger.Options{ServiceName: "api"})

	if err := godotenv.Load(); err != nil {
		logg.Warn(context.Background(), ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		logg.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}

	logg = logger.New(logger.Options{
		ServiceName: "api",
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		WarnStack:   cfg.App.LogWarnStack,
	})

	ctx := context.Background()

	dbClient, err := db.New(ctx, cfg.DB, logg)
	if err != nil {
		logg.Error(ctx, "failed to bootstrap database", err)
		os.Exit(1)
	}
	defer func() {
		if err := dbClient.Close(); err != nil {
			logg.Error(ctx, "error closing database", err)
		}
	}()

	if err := migrate.MaybeRunDev(ctx, cfg, logg, dbClient); err != nil {
		logg.Error(ctx, "failed to run dev migrations", err)
		os.Exit(1)
	}

	redisClient, err := redis.New(ctx, cfg.Redis, logg)
	if err != nil {
		logg.Error(ctx, "failed to bootstrap redis", err)
		os.Exit(1)
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logg.Error(ctx, "error closing redis", err)
		}
	}()

	sessionManager, err := session.NewManager(redisClient, cfg.JWT)
	if err != nil {
		logg.Error(ctx, "failed to create session manager", err)
		os.Exit(1)
	}

	stripeClient, err := stripe.NewClient(ctx, cfg.Stripe, logg)
	if err != nil {
		logg.Error(ctx, "failed to create stripe client", err)
		os.Exit(1)
	}

	carrierClient, err := carrier.NewClient(cfg.Carrier, logg)
	if err != nil {
		logg.Error(ctx, "failed to create carrier client", err)
		os.Exit(1)
	}

	registry := prometheus.NewRegistry()
	flowMetrics := metrics.NewOrderFlowMetrics(registry)

	gate, err := access.NewGate(access.NewRepository(dbClient.DB()), access.NewPermissionTable())
	if err != nil {
		logg.Error(ctx, "failed to create access gate", err)
		os.Exit(1)
	}

	ledger := inventory.NewLedger()
	usersRepo := users.NewRepository(dbClient.DB())
	catalogRepo := catalog.NewRepository(dbClient.DB())
	cartRepo := cart.NewRepository(dbClient.DB())
	ordersRepo := orders.NewRepository(dbClient.DB())
	shippingRepo := shipping.NewRepository(dbClient.DB())

	usersService, err := users.NewService(usersRepo, sessionManager, cfg.JWT, cfg.Password, logg)
	if err != nil {
		logg.Error(ctx, "failed to create users service", err)
		os.Exit(1)
	}
	catalogService, err := catalog.NewService(catalogRepo, dbClient)
	if err != nil {
		logg.Error(ctx, "failed to create catalog service", err)
		os.Exit(1)
	}
	cartService, err := cart.NewService(cartRepo, catalogRepo)
	if err != nil {
		logg.Error(ctx, "failed to create cart service", err)
		os.Exit(1)
	}
	checkoutService, err := checkout.NewService(cartRepo, catalogRepo, ordersRepo, ledger, dbClient, stripeClient, cfg.Checkout)
	if err != nil {
		logg.Error(ctx, "failed to create checkout service", err)
		os.Exit(1)
	}
	ordersService, err := orders.NewService(ordersRepo, dbClient, ledger, stripeClient, gate, flowMetrics, logg)
	if err != nil {
		logg.Error(ctx, "failed to create orders service", err)
		os.Exit(1)
	}
	reviewsService, err := reviews.NewService(reviews.NewRepository(dbClient.DB()))
	if err != nil {
		logg.Error(ctx, "failed to create reviews service", err)
		os.Exit(1)
	}
	shippingService, err := shipping.NewService(shippingRepo, ordersRepo, dbClient, carrierClient)
	if err != nil {
		logg.Error(ctx, "failed to create shipping service", err)
		os.Exit(1)
	}

	port := os.Getenv("PORT")
	if port == "" {
		port = cfg.App.Port
	}
	addr := ":" + port

	ctx = logg.WithFields(ctx, map[string]any{
		"env":  cfg.App.Env,
		"addr": addr,
	})
	logg.Info(ctx, "starting api server")

	router := routes.NewRouter(routes.Deps{
		Config:   cfg,
		Logger:   logg,
		Sessions: sessionManager,
		Gate:     gate,
		Users:    usersService,
		Catalog:  catalogService,
		Cart:     cartService,
		Checkout: checkoutService,
		Orders:   ordersService,
		Reviews:  reviewsService,
		Shipping: shippingService,
		HealthChecks: map[string]func() error{
			"database": func() error { return dbClient.Ping(context.Background()) },
			"redis":    func() error { return redisClient.Ping(context.Background()) },
		},
		MetricsGatherer: registry,
	})

	server := &http.Server{
		Addr:    addr,
		Handler: router,
	}

	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logg.Error(ctx, "api server stopped unexpectedly", err)
		os.Exit(1)
	}
}
