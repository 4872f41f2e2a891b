package main

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	appautomation "github.com/tradelinemarket/backend/internal/application/automation"
	appclient "github.com/tradelinemarket/backend/internal/application/client"
	"github.com/tradelinemarket/backend/internal/application/notification"
	"github.com/tradelinemarket/backend/internal/domain/broker"
	"github.com/tradelinemarket/backend/internal/domain/order"
	"github.com/tradelinemarket/backend/internal/infrastructure/auth"
	"github.com/tradelinemarket/backend/internal/infrastructure/automation"
	"github.com/tradelinemarket/backend/internal/infrastructure/cache"
	"github.com/tradelinemarket/backend/internal/infrastructure/config"
	"github.com/tradelinemarket/backend/internal/infrastructure/mail"
	"github.com/tradelinemarket/backend/internal/infrastructure/messaging"
	"github.com/tradelinemarket/backend/internal/infrastructure/migration"
	"github.com/tradelinemarket/backend/internal/infrastructure/payment"
	"github.com/tradelinemarket/backend/internal/infrastructure/persistence"
	"github.com/tradelinemarket/backend/internal/infrastructure/storage"
	"github.com/tradelinemarket/backend/internal/infrastructure/upstream"
	"github.com/tradelinemarket/backend/migrations"
)

const startupCheckTimeout = 5 * time.Second

func migrateUp(db *persistence.Database, log *zap.Logger) error {
	sqlDB, err := db.DB.DB()
	if err != nil {
		return fmt.Errorf("get sql.DB: %w", err)
	}
	m, err := migration.NewFromFS(sqlDB, migrations.FS, log)
	if err != nil {
		return err
	}
	// Closing the migrator would close the shared pool
	return m.Up()
}

// newTokenBlacklist shares the cache's Redis client when there is one, so
// revocations are seen by every instance.
func newTokenBlacklist(store cache.Store, log *zap.Logger) auth.TokenBlacklist {
	if rs, ok := store.(*cache.RedisStore); ok {
		return auth.NewRedisTokenBlacklist(rs.Client())
	}
	log.Warn("Token blacklist is in-memory; logouts are not shared between instances")
	return auth.NewInMemoryTokenBlacklist()
}

func newDocumentStorage(cfg *config.Config, log *zap.Logger) appclient.DocumentStorage {
	if !cfg.Storage.Enabled {
		log.Warn("Object storage disabled, KYC documents are kept in memory")
		return storage.NewStubDocumentStorage()
	}
	s3, err := storage.NewS3DocumentStorage(&cfg.Storage, storage.WithLogger(log))
	if err != nil {
		log.Warn("Object storage unavailable, KYC documents are kept in memory", zap.Error(err))
		return storage.NewStubDocumentStorage()
	}
	ctx, cancel := context.WithTimeout(context.Background(), startupCheckTimeout)
	defer cancel()
	if err := s3.EnsureBucket(ctx); err != nil {
		log.Warn("Object storage bucket check failed, KYC documents are kept in memory",
			zap.String("bucket", s3.Bucket()), zap.Error(err))
		return storage.NewStubDocumentStorage()
	}
	log.Info("Object storage ready", zap.String("bucket", s3.Bucket()))
	return s3
}

// newSupplier returns the feed client and, when credentials are configured,
// the same client as the fulfillment gateway.
func newSupplier(cfg *config.Config, log *zap.Logger) (supplier *upstream.Client, feed *upstream.Client) {
	client := upstream.NewClient(cfg.Upstream, log)
	if cfg.Upstream.ConsumerKey == "" || cfg.Upstream.ConsumerSecret == "" {
		log.Warn("Supplier credentials not configured, order fulfillment is disabled")
		return nil, client
	}

	ctx, cancel := context.WithTimeout(context.Background(), startupCheckTimeout)
	defer cancel()
	ok, err := client.ValidateCredentials(ctx)
	switch {
	case err != nil:
		log.Warn("Supplier credential check failed", zap.Error(err))
	case !ok:
		log.Warn("Supplier rejected the configured credentials")
	default:
		log.Info("Supplier credentials verified", zap.String("base_url", cfg.Upstream.BaseURL))
	}
	return client, client
}

func newPaymentGateway(cfg *config.Config, log *zap.Logger) *payment.StripeGateway {
	if !cfg.Stripe.Enabled {
		log.Info("Card payments disabled")
		return nil
	}
	gw, err := payment.NewStripeGateway(cfg.Stripe, log)
	if err != nil {
		log.Warn("Card payments unavailable", zap.Error(err))
		return nil
	}
	return gw
}

// newSessionManager starts a browser driver when automation is enabled.
// Without one, sessions wait for an external worker to report back.
func newSessionManager(cfg *config.Config, log *zap.Logger) (appautomation.SessionRunner, func()) {
	var driver automation.Driver
	closeDriver := func() {}
	if cfg.Automation.Enabled {
		chrome, err := automation.NewChromeDriver(cfg.Automation, cfg.Upstream.StoreURL, log)
		if err != nil {
			log.Warn("Browser automation unavailable", zap.Error(err))
		} else {
			driver = chrome
			closeDriver = chrome.Close
		}
	}
	manager := automation.NewSessionManager(driver, cfg.Automation.SessionTimeout, log)
	return manager, func() {
		manager.Close()
		closeDriver()
	}
}

// newMailer connects the SMTP relay when mail is enabled. Without one, reset
// links are not delivered and order emails are skipped.
func newMailer(cfg *config.Config, log *zap.Logger) *mail.Mailer {
	if !cfg.Mail.Enabled {
		log.Info("Mail delivery disabled")
		return nil
	}
	smtp, err := mail.NewSMTPClient(cfg.Mail)
	if err != nil {
		log.Warn("Mail delivery unavailable", zap.Error(err))
		return nil
	}
	log.Info("Mail delivery enabled", zap.String("host", cfg.Mail.Host), zap.Int("port", cfg.Mail.Port))
	return mail.NewMailer(smtp, mail.Options{
		From:       cfg.Mail.From,
		AdminEmail: cfg.Mail.AdminEmail,
		PortalURL:  cfg.App.PortalURL,
		Logger:     log,
	})
}

// subscribeNotifications sends the transactional emails off the event bus.
// The bus closes the handler on Stop, flushing queued emails.
func subscribeNotifications(events *messaging.InMemoryEventBus, mailer *mail.Mailer, orders order.Repository, brokers broker.Repository, cfg *config.Config, log *zap.Logger) {
	if mailer == nil {
		return
	}
	events.Subscribe(notification.NewHandler(orders, brokers, mailer, notification.Options{
		SendTimeout: cfg.Mail.Timeout * 2,
		Logger:      log,
	}))
}
