package main // Entry point package

import (
	"context" // Context for the background coordinator
	"log"     // Logging library

	"github.com/joho/godotenv"                                // Loads .env files in development
	"github.com/labstack/echo/v4"                             // Echo web framework
	"github.com/prometheus/client_golang/prometheus"          // Metrics registry
	"github.com/prometheus/client_golang/prometheus/promhttp" // Metrics HTTP exposition

	"github.com/yihan-study/seat-booking/internal/booking"
	"github.com/yihan-study/seat-booking/internal/config"
	"github.com/yihan-study/seat-booking/internal/database"
	"github.com/yihan-study/seat-booking/internal/handler"
	"github.com/yihan-study/seat-booking/internal/middleware"
	"github.com/yihan-study/seat-booking/internal/obs"
	"github.com/yihan-study/seat-booking/internal/queue"
	"github.com/yihan-study/seat-booking/internal/repository"
	"github.com/yihan-study/seat-booking/internal/router"
)

func main() {
	// Load .env when present; real deployments set the environment directly.
	if err := godotenv.Load(); err != nil {
		log.Printf("no .env file loaded: %v", err)
	}
	cfg := config.Load() // Load environment config

	db, err := database.Open(cfg.DBUser, cfg.DBPass, cfg.DBHost, cfg.DBPort, cfg.DBName)
	if err != nil {
		log.Fatalf("database connect failed: %v", err)
	}
	defer db.Close()

	// Repositories
	storeRepo := repository.NewStoreRepo(db)
	seatRepo := repository.NewSeatRepo(db)
	orderRepo := repository.NewOrderRepo(db)
	occupancyRepo := repository.NewOccupancyRepo(db)
	bookingStore := repository.NewBookingStore(db, orderRepo, occupancyRepo)

	// Booking core: durable store + in-memory index and locks
	registry := prometheus.NewRegistry()
	metrics := obs.NewMetrics(registry)
	index := booking.NewIndex()
	locks := booking.NewLockManager(index, cfg.LockTTL, metrics)
	coordinator := booking.NewCoordinator(index, locks, bookingStore, seatRepo, booking.Config{
		LockTTL:        cfg.LockTTL,
		PaymentTimeout: cfg.PaymentTimeout,
		MinDuration:    cfg.MinDuration,
		MaxDuration:    cfg.MaxDuration,
		SweepInterval:  cfg.SweepInterval,
	}, metrics)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	if err := coordinator.Hydrate(ctx); err != nil {
		log.Fatalf("index hydration failed: %v", err)
	}
	go coordinator.Run(ctx) // Periodic lock/order sweep

	// Background consumer that mirrors order events into logs/order.log
	go func() {
		if err := queue.StartOrderConsumer(); err != nil {
			log.Printf("order consumer stopped: %v", err)
		}
	}()

	e := echo.New() // Create Echo instance

	// Redis-backed rate limiting and response caching.  A missing Redis
	// degrades both to no-ops instead of failing startup.
	rdb := config.NewRedisClient()
	if rdb == nil {
		log.Printf("redis unavailable; rate limiting and response cache disabled")
	}
	e.Use(middleware.NewTokenBucket(config.LoadRateLimitConfig(), rdb))
	cacheMW := middleware.NewRedisCache(config.LoadCacheConfig(), rdb)

	// Handlers
	publicHandler := handler.NewPublicHandler(storeRepo, seatRepo, coordinator)
	checkoutHandler := handler.NewCheckoutHandler(coordinator)
	orderHandler := handler.NewOrderHandler(coordinator, orderRepo)
	paymentHandler := handler.NewPaymentHandler(coordinator)
	staffHandler := handler.NewStaffHandler(coordinator)

	// Routes
	router.RegisterRoutes(e)
	router.RegisterPublic(e, publicHandler, cacheMW)
	router.RegisterCustomer(e, checkoutHandler, orderHandler, cfg.JWTSecret)
	router.RegisterStaff(e, staffHandler, cfg.JWTSecret)
	router.RegisterPayment(e, paymentHandler, cfg.CallbackSecret)
	e.GET("/metrics", echo.WrapHandler(promhttp.HandlerFor(registry, promhttp.HandlerOpts{})))

	addr := ":" + cfg.Port                                // Address string with port
	log.Printf("listening on %s (env=%s)", addr, cfg.Env) // Print startup info

	if err := e.Start(addr); err != nil { // Start HTTP server
		log.Fatal(err) // Log and exit if server fails
	}
}
