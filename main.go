package main

import (
	"context"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"soothe/config"
	"soothe/cron"
	"soothe/database"
	bookingRepo "soothe/database/repository/booking"
	tierRepo "soothe/database/repository/tier"
	"soothe/handlers"
	"soothe/routes"
	"soothe/services/admin"
	"soothe/services/booking"
	"soothe/services/metrics"
	"soothe/services/notification"
	"soothe/services/payment"
	"soothe/services/pricing"
	"soothe/services/tasks"
	"soothe/utils"

	"github.com/gin-gonic/gin"
	"github.com/hibiken/asynq"
	"github.com/jonboulle/clockwork"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

// stores bundles the persistence chosen by STORE_BACKEND.
type stores struct {
	directory bookingRepo.Directory
	catalog   pricing.Catalog
	checks    map[string]utils.HealthCheck
	close     func()
}

func openStores(ctx context.Context, logger *zap.Logger) stores {
	tiers := pricing.TiersFromConfig(config.AppConfig.ServiceTiers)
	if len(tiers) == 0 {
		tiers = pricing.DefaultTiers()
	}
	s := stores{checks: map[string]utils.HealthCheck{}, close: func() {}}

	switch config.AppConfig.StoreBackend {
	case "mongo":
		database.InitDB()
		db := database.MongoDatabase()
		dir := bookingRepo.NewMongoDirectory(db)
		if err := dir.EnsureIndexes(ctx); err != nil {
			logger.Fatal("main: failed to ensure booking indexes", zap.Error(err))
		}
		catalog := tierRepo.NewMongoCatalog(db)
		if err := catalog.Seed(ctx, tiers); err != nil {
			logger.Fatal("main: failed to seed service tiers", zap.Error(err))
		}
		s.directory, s.catalog = dir, catalog
		s.checks["mongo"] = utils.MongoHealthCheck(database.MongoClient)
		s.close = func() { _ = database.MongoClient.Disconnect(context.Background()) }
		return s

	case "postgres":
		db, err := database.OpenPostgres()
		if err != nil {
			logger.Fatal("main: failed to open postgres", zap.Error(err))
		}
		dir := bookingRepo.NewGormDirectory(db)
		if err := dir.AutoMigrate(ctx); err != nil {
			logger.Fatal("main: failed to migrate postgres", zap.Error(err))
		}
		s.directory = dir
		if sqlDB, err := db.DB(); err == nil {
			s.checks["postgres"] = sqlDB.PingContext
			s.close = func() { _ = sqlDB.Close() }
		}

	case "memory", "":
		logger.Warn("main: using the in-memory booking store; data is lost on restart")
		s.directory = bookingRepo.NewMemoryDirectory()

	default:
		logger.Fatal("main: unknown STORE_BACKEND", zap.String("backend", config.AppConfig.StoreBackend))
	}

	catalog, err := pricing.NewStaticCatalog(tiers)
	if err != nil {
		logger.Fatal("main: invalid service catalog", zap.Error(err))
	}
	s.catalog = catalog
	return s
}

func main() {
	config.LoadConfig()
	logger := utils.GetLogger()
	defer func() { _ = logger.Sync() }()
	zap.ReplaceGlobals(logger)

	if config.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	st := openStores(ctx, logger)
	defer st.close()

	cache := utils.GetCacheClient()
	st.checks["redis"] = utils.RedisHealthCheck(cache)

	// Notification channels.
	tokens := notification.NewRedisDeviceTokenStore(cache)
	publisher := notification.NewRedisPublisher(cache)
	channels := map[string]notification.Notifier{"pubsub": publisher}
	if fcm, err := utils.FirebaseInit(ctx); err != nil {
		logger.Warn("main: push notifications disabled", zap.Error(err))
	} else {
		channels["push"] = notification.NewPushNotifier(fcm, tokens)
	}
	dispatcher := notification.NewDispatcher(logger, channels)

	// Payments.
	profiles := payment.NewRedisProfileStore(cache)
	var processor booking.PaymentProcessor
	if config.AppConfig.StripeKey != "" {
		processor = payment.NewStripeProcessor(payment.NewStripeBackend(""), config.AppConfig.StripeKey, profiles, logger)
	} else {
		logger.Warn("main: STRIPE_KEY not set; accepted bookings wait for the payment webhook")
	}

	// Durable expiry queue.
	queueOpts := asynq.RedisClientOpt{
		Addr:     config.AppConfig.RedisAddr,
		Password: config.AppConfig.RedisPassword,
		DB:       config.AppConfig.RedisQueueDB,
	}
	expiryQueue := tasks.NewAsynqExpiryQueue(queueOpts)
	defer func() { _ = expiryQueue.Close() }()

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	bookingService := booking.NewDefaultBookingService(booking.Options{
		Directory: st.directory,
		Catalog:   st.catalog,
		Payments:  processor,
		Notifier:  dispatcher,
		Expiry:    expiryQueue,
		Metrics:   metrics.NewBookingMetrics(reg),
		Clock:     clockwork.NewRealClock(),
		Logger:    logger,
		Window:    config.AppConfig.AcceptanceWindow(),
		Currency:  config.AppConfig.Currency,
	})
	if _, err := bookingService.Recover(ctx); err != nil {
		logger.Error("main: failed to recover acceptance timers", zap.Error(err))
	}

	worker, err := cron.InitExpiryWorker(queueOpts, bookingService, logger)
	if err != nil {
		logger.Fatal("main: expiry worker", zap.Error(err))
	}

	monitor := utils.NewHealthMonitor(60*time.Second, st.checks)
	monitor.Start(ctx)

	// Create the Gin router.
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(gin.Logger())

	bookingHandler := handlers.NewBookingHandler(bookingService, publisher, logger)
	adminHandler := handlers.NewAdminHandler(admin.NewDefaultAdminService(st.directory, config.AppConfig.Currency, nil))
	paymentHandler := handlers.NewPaymentHandler(payment.NewWebhookVerifier(config.AppConfig.StripeWebhookSecret), bookingService, profiles, logger)
	deviceHandler := handlers.NewDeviceHandler(tokens)

	handlerBundle := handlers.NewHandlerBundle(bookingHandler, adminHandler, paymentHandler, deviceHandler, monitor,
		gin.WrapH(promhttp.HandlerFor(reg, promhttp.HandlerOpts{})))
	handlerBundle.AdminTokenHash = config.AppConfig.AdminTokenHash
	handlerBundle.RatePerMinute = config.AppConfig.MaxRequestsPerMin

	// Register routes with the assembled handler bundle.
	routes.RegisterRoutes(router, handlerBundle)

	// Start the HTTP server.
	port := config.AppConfig.AppPort
	if port == "" {
		port = "8080"
	}
	srv := &http.Server{
		Addr:              "0.0.0.0:" + port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	logger.Sugar().Infof("Starting server on %s...", srv.Addr)
	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Sugar().Fatalf("main: server failed to start: %v", err)
		}
	}()

	// Wait for an OS signal to gracefully shutdown.
	<-ctx.Done()
	logger.Sugar().Info("main: server is shutting down...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Sugar().Errorf("main: server forced to shutdown: %v", err)
	}
	worker.Shutdown()
	bookingService.Close()
	dispatcher.Close()
	_ = cache.Close()

	logger.Sugar().Info("main: server stopped gracefully")
}
