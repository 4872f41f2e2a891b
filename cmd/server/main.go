package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	appautomation "github.com/tradelinemarket/backend/internal/application/automation"
	appbroker "github.com/tradelinemarket/backend/internal/application/broker"
	appcatalog "github.com/tradelinemarket/backend/internal/application/catalog"
	appclient "github.com/tradelinemarket/backend/internal/application/client"
	appdashboard "github.com/tradelinemarket/backend/internal/application/dashboard"
	appidentity "github.com/tradelinemarket/backend/internal/application/identity"
	apporder "github.com/tradelinemarket/backend/internal/application/order"
	apppayout "github.com/tradelinemarket/backend/internal/application/payout"
	appwidget "github.com/tradelinemarket/backend/internal/application/widget"
	"github.com/tradelinemarket/backend/internal/infrastructure/auth"
	"github.com/tradelinemarket/backend/internal/infrastructure/cache"
	"github.com/tradelinemarket/backend/internal/infrastructure/config"
	"github.com/tradelinemarket/backend/internal/infrastructure/logger"
	"github.com/tradelinemarket/backend/internal/infrastructure/messaging"
	"github.com/tradelinemarket/backend/internal/infrastructure/persistence"
	"github.com/tradelinemarket/backend/internal/interfaces/http/handler"
	"github.com/tradelinemarket/backend/internal/interfaces/http/middleware"
	"github.com/tradelinemarket/backend/internal/interfaces/http/router"
)

// documentUploadLimit leaves room for multipart framing around a maximum size document
const documentUploadLimit = appclient.MaxDocumentSize + 1<<20

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		panic("Failed to load configuration: " + err.Error())
	}

	// Initialize logger
	logCfg := logger.ForEnvironment(cfg.App.Env)
	if cfg.Log.Level != "" {
		logCfg.Level = cfg.Log.Level
	}
	if cfg.Log.Format != "" {
		logCfg.Format = cfg.Log.Format
	}
	if cfg.Log.Output != "" {
		logCfg.Output = cfg.Log.Output
	}
	logCfg.Service = cfg.App.Name
	log, err := logger.New(logCfg)
	if err != nil {
		panic("Failed to initialize logger: " + err.Error())
	}
	defer func() {
		_ = log.Sync()
	}()

	log.Info("Starting Tradeline Marketplace backend",
		zap.String("app", cfg.App.Name),
		zap.String("env", cfg.App.Env),
		zap.String("port", cfg.App.Port),
	)

	// Database is required. Without it the process exits and the supervisor restarts it.
	gormLog := logger.NewGormLogger(log, logger.MapGormLogLevel(cfg.Log.Level), cfg.Database.SlowThreshold)
	db, err := persistence.NewDatabaseWithCustomLogger(&cfg.Database, gormLog)
	if err != nil {
		log.Fatal("Failed to connect to database", zap.Error(err))
	}
	defer func() {
		if err := db.Close(); err != nil {
			log.Error("Error closing database", zap.Error(err))
		}
	}()
	log.Info("Database connected successfully")

	if cfg.Database.AutoMigrate {
		if err := migrateUp(db, log); err != nil {
			log.Fatal("Failed to apply migrations", zap.Error(err))
		}
	}

	// Optional infrastructure: each piece degrades to a local fallback
	store, err := cache.NewStoreFactory(cfg.Redis, cache.WithLogger(log)).CreateStore()
	if err != nil {
		log.Fatal("Failed to create cache store", zap.Error(err))
	}
	defer func() {
		_ = store.Close()
	}()
	advisory := cache.NewAdvisory(store, log)
	blacklist := newTokenBlacklist(store, log)

	documents := newDocumentStorage(cfg, log)
	supplier, feed := newSupplier(cfg, log)
	payments := newPaymentGateway(cfg, log)
	sessions, closeSessions := newSessionManager(cfg, log)
	defer closeSessions()

	events := messaging.NewOrderEventBus(cfg.Kafka, log)
	_ = events.Start(context.Background())
	defer func() {
		stopCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := events.Stop(stopCtx); err != nil {
			log.Warn("Error stopping event bus", zap.Error(err))
		}
	}()

	// Repositories
	adminRepo := persistence.NewGormAdminRepository(db.DB)
	brokerRepo := persistence.NewGormBrokerRepository(db.DB)
	clientRepo := persistence.NewGormClientRepository(db.DB)
	orderRepo := persistence.NewGormOrderRepository(db.DB)
	commissionRepo := persistence.NewGormCommissionRepository(db.DB)
	payoutRepo := persistence.NewGormPayoutRepository(db.DB)
	analyticsRepo := persistence.NewGormAnalyticsRepository(db.DB)
	activityRepo := persistence.NewGormActivityRepository(db.DB)
	webhookLogRepo := persistence.NewGormWebhookLogRepository(db.DB)
	txScope := persistence.NewGormTransactionScope(db.DB)

	mailer := newMailer(cfg, log)
	subscribeNotifications(events, mailer, orderRepo, brokerRepo, cfg, log)

	// Services
	jwtService := auth.NewJWTService(cfg.JWT)
	tradelineService := appcatalog.NewTradelineService(feed, advisory, log)

	authService := appidentity.NewAuthService(appidentity.AuthServiceDeps{
		Admins:    adminRepo,
		Brokers:   brokerRepo,
		Clients:   clientRepo,
		Activity:  activityRepo,
		Tokens:    jwtService,
		Blacklist: blacklist,
		Logger:    log,
	})
	if err := authService.EnsureBootstrapAdmin(context.Background(), cfg.App.AdminEmail, cfg.App.AdminPass); err != nil {
		log.Error("Failed to create bootstrap admin", zap.Error(err))
	}

	brokerService := appbroker.NewBrokerService(appbroker.BrokerServiceDeps{
		Brokers:   brokerRepo,
		Analytics: analyticsRepo,
		Activity:  activityRepo,
		Cache:     advisory,
		Prices:    tradelineService,
		Revoker:   blacklist,
		Events:    events,
		TokenTTL:  jwtService.Expiration(),
		Embed: appbroker.EmbedSettings{
			ScriptURL:  cfg.Widget.ScriptURL,
			APIBaseURL: cfg.App.PublicURL,
			Theme:      appbroker.ThemeFromConfig(cfg.Widget),
		},
		Logger: log,
	})

	orderDeps := apporder.OrderServiceDeps{
		Scope:     txScope,
		Orders:    orderRepo,
		Clients:   clientRepo,
		Brokers:   brokerRepo,
		Activity:  activityRepo,
		Quoter:    tradelineService,
		Events:    events,
		PortalURL: cfg.App.PortalURL,
		Logger:    log,
	}
	// Assigned only when present so the service sees a nil interface, not a nil pointer
	if supplier != nil {
		orderDeps.Supplier = supplier
	}
	if payments != nil {
		orderDeps.Checkout = payments
	}
	orderService := apporder.NewOrderService(orderDeps)

	var verifier apporder.WebhookVerifier
	if payments != nil {
		verifier = payments
	}
	stripeWebhookService := apporder.NewStripeWebhookService(verifier, orderService, webhookLogRepo, advisory, log)

	clientDeps := appclient.ClientServiceDeps{
		Clients:   clientRepo,
		Storage:   documents,
		Activity:  activityRepo,
		Revoker:   blacklist,
		TokenTTL:  jwtService.Expiration(),
		PortalURL: cfg.App.PortalURL,
		Logger:    log,
	}
	if mailer != nil {
		clientDeps.Notifier = mailer
	}
	clientService := appclient.NewClientService(clientDeps)

	payoutService := apppayout.NewPayoutService(apppayout.PayoutServiceDeps{
		Scope:       txScope,
		Payouts:     payoutRepo,
		Commissions: commissionRepo,
		Brokers:     brokerRepo,
		Logger:      log,
	})

	dashboardService := appdashboard.NewDashboardService(appdashboard.DashboardServiceDeps{
		Brokers:     brokerService,
		Orders:      orderService,
		Commissions: payoutService,
		Activity:    activityRepo,
		Logger:      log,
	})

	widgetService := appwidget.NewWidgetService(appwidget.WidgetServiceDeps{
		Prices:    tradelineService,
		Quoter:    tradelineService,
		Orders:    orderService,
		Analytics: analyticsRepo,
		Config:    cfg.Widget,
		Logger:    log,
	})

	automationService := appautomation.NewAutomationService(appautomation.AutomationServiceDeps{
		Orders:       orderRepo,
		Clients:      clientRepo,
		Sessions:     sessions,
		Activity:     activityRepo,
		DefaultPromo: cfg.Automation.DefaultPromo,
		Logger:       log,
	})

	// Handlers
	handlers := router.Handlers{
		Auth:    handler.NewAuthHandler(authService),
		Brokers: handler.NewBrokerHandler(brokerService),
		BrokerPortal: handler.NewBrokerPortalHandler(handler.BrokerPortalDeps{
			Brokers:   brokerService,
			Dashboard: dashboardService,
			Orders:    orderService,
			Payouts:   payoutService,
		}),
		Orders:     handler.NewOrderHandler(orderService),
		Clients:    handler.NewClientHandler(clientService),
		Dashboard:  handler.NewDashboardHandler(dashboardService),
		Payouts:    handler.NewPayoutHandler(payoutService),
		Automation: handler.NewAutomationHandler(automationService),
		Portal:     handler.NewPortalHandler(clientService, orderService),
		Widget:     handler.NewWidgetHandler(widgetService),
		Webhooks:   handler.NewWebhookHandler(stripeWebhookService),
	}

	// Set Gin mode based on environment
	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}
	middleware.SetupValidator()

	engine := gin.New()
	if err := engine.SetTrustedProxies(cfg.HTTP.TrustedProxies); err != nil {
		log.Warn("Invalid trusted proxies, trusting none", zap.Error(err))
		_ = engine.SetTrustedProxies(nil)
	}

	// Middleware order:
	// 1. RequestID - Generate/propagate request ID
	// 2. Recovery - Catch panics
	// 3. Logger - Log requests
	// 4. Security - Add security headers
	// 5. CORS - Wildcard for the widget, whitelist for the portals
	// 6. BodyLimit - Limit request body size
	engine.Use(middleware.RequestID())
	engine.Use(logger.Recovery(log))
	engine.Use(logger.GinMiddleware(log))
	engine.Use(middleware.Secure())

	r := router.NewRouter(engine, router.WithAPIVersion("v1"))

	portalCORS := middleware.DefaultCORSConfig()
	portalCORS.AllowOrigins = cfg.HTTP.CORSAllowOrigins
	portalCORS.AllowMethods = cfg.HTTP.CORSAllowMethods
	portalCORS.AllowHeaders = cfg.HTTP.CORSAllowHeaders
	widgetCORS := middleware.DefaultCORSConfig()
	widgetCORS.AllowOrigins = []string{"*"}
	widgetCORS.AllowCredentials = false
	engine.Use(middleware.CORSByPrefix(r.Prefix()+"/public",
		middleware.CORSWithConfig(widgetCORS),
		middleware.CORSWithConfig(portalCORS)))

	engine.Use(middleware.BodyLimit(cfg.HTTP.MaxBodySize))

	guards := router.Guards{
		Authenticate: middleware.JWTAuth(middleware.JWTMiddlewareConfig{
			Validator:      jwtService,
			TokenBlacklist: blacklist,
			Logger:         log,
		}),
		WidgetAuth:         middleware.APIKeyAuth(brokerService, log),
		AutomationCallback: middleware.SharedSecret(middleware.AutomationSecretHeader, cfg.Automation.CallbackSecret),
		DocumentUpload:     middleware.BodyLimit(documentUploadLimit),
	}
	if cfg.HTTP.RateLimitEnabled {
		widgetLimiter := middleware.NewRateLimiter(cfg.HTTP.RateLimitRequests, cfg.HTTP.RateLimitWindow)
		defer widgetLimiter.Stop()
		guards.WidgetRateLimit = middleware.RateLimit(widgetLimiter)
		log.Info("Widget rate limiting enabled",
			zap.Int("requests", cfg.HTTP.RateLimitRequests),
			zap.Duration("window", cfg.HTTP.RateLimitWindow),
		)
	}
	if cfg.HTTP.AuthRateLimitEnabled {
		loginLimiter := middleware.NewRateLimiter(cfg.HTTP.AuthRateLimitRequests, cfg.HTTP.AuthRateLimitWindow)
		defer loginLimiter.Stop()
		guards.LoginRateLimit = middleware.RateLimit(loginLimiter)
	}

	// Health check endpoint (outside API versioning)
	engine.GET("/health", handler.Health(db))

	r.Register(router.APIGroups(handlers, guards)...)
	r.Setup()

	srv := &http.Server{
		Addr:           ":" + cfg.App.Port,
		Handler:        engine,
		ReadTimeout:    cfg.HTTP.ReadTimeout,
		WriteTimeout:   cfg.HTTP.WriteTimeout,
		IdleTimeout:    cfg.HTTP.IdleTimeout,
		MaxHeaderBytes: cfg.HTTP.MaxHeaderBytes,
	}

	go func() {
		log.Info("Server starting", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal("Failed to start server", zap.Error(err))
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Error("Server forced to shutdown", zap.Error(err))
	}

	log.Info("Server exited gracefully")
}
