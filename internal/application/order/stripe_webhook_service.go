package order

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/stripe/stripe-go/v81"
	"go.uber.org/zap"

	"github.com/tradelinemarket/backend/internal/domain/analytics"
	"github.com/tradelinemarket/backend/internal/domain/order"
	"github.com/tradelinemarket/backend/internal/domain/shared"
	"github.com/tradelinemarket/backend/internal/infrastructure/cache"
	"github.com/tradelinemarket/backend/internal/infrastructure/payment"
)

// Handled Stripe event types
const (
	EventCheckoutSessionCompleted = stripe.EventType("checkout.session.completed")
	EventPaymentIntentSucceeded   = stripe.EventType("payment_intent.succeeded")
	EventPaymentIntentFailed      = stripe.EventType("payment_intent.payment_failed")
)

// webhookClaimTTL bounds how long a delivered event id is remembered
const webhookClaimTTL = 24 * time.Hour

// WebhookVerifier checks the Stripe-Signature header and decodes the event
type WebhookVerifier interface {
	ConstructEvent(payload []byte, signature string) (stripe.Event, error)
}

// WebhookResult reports how an event was handled
type WebhookResult struct {
	EventID string                  `json:"event_id"`
	Type    string                  `json:"type"`
	Status  analytics.WebhookStatus `json:"status"`
	OrderID *uuid.UUID              `json:"order_id,omitempty"`
}

// StripeWebhookService settles orders from Stripe events. Redelivered events
// are acknowledged without being applied twice.
type StripeWebhookService struct {
	verifier WebhookVerifier
	orders   *OrderService
	logs     analytics.WebhookLogRepository
	cache    *cache.Advisory
	logger   *zap.Logger
}

// NewStripeWebhookService creates a new StripeWebhookService
func NewStripeWebhookService(verifier WebhookVerifier, orders *OrderService, logs analytics.WebhookLogRepository, advisory *cache.Advisory, logger *zap.Logger) *StripeWebhookService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &StripeWebhookService{
		verifier: verifier,
		orders:   orders,
		logs:     logs,
		cache:    advisory,
		logger:   logger.Named("stripe_webhook"),
	}
}

// Handle verifies and applies one webhook delivery. A signature failure
// returns payment.ErrSignature; everything after verification is recorded in
// the webhook log and acknowledged unless processing failed.
func (s *StripeWebhookService) Handle(ctx context.Context, payload []byte, signature string) (*WebhookResult, error) {
	if s.verifier == nil {
		return nil, shared.NewDomainError("PAYMENTS_DISABLED", "Card payments are not configured")
	}
	event, err := s.verifier.ConstructEvent(payload, signature)
	if err != nil {
		s.logger.Warn("Rejected webhook", zap.Error(err))
		return nil, err
	}

	result := &WebhookResult{EventID: event.ID, Type: string(event.Type)}
	entry := analytics.NewWebhookLog("stripe", event.ID, string(event.Type), payload)

	if !s.cache.Claim(ctx, "webhook:stripe:"+event.ID, webhookClaimTTL) {
		s.logger.Info("Duplicate webhook delivery", zap.String("event_id", event.ID))
		entry.Status = analytics.WebhookStatusIgnored
		entry.Error = "duplicate delivery"
		s.store(ctx, entry)
		result.Status = analytics.WebhookStatusIgnored
		return result, nil
	}

	orderID, status, procErr := s.apply(ctx, event)
	entry.Status = status
	entry.OrderID = orderID
	if procErr != nil {
		entry.Error = procErr.Error()
	}
	s.store(ctx, entry)

	result.Status = status
	result.OrderID = orderID
	if procErr != nil {
		s.logger.Error("Webhook processing failed",
			zap.String("event_id", event.ID),
			zap.String("type", string(event.Type)),
			zap.Error(procErr))
		// Release the claim so Stripe's retry is processed.
		s.cache.Delete(ctx, "webhook:stripe:"+event.ID)
		return result, procErr
	}
	return result, nil
}

func (s *StripeWebhookService) store(ctx context.Context, entry *analytics.WebhookLog) {
	if err := s.logs.Create(ctx, entry); err != nil {
		s.logger.Warn("Failed to store webhook log", zap.String("event_id", entry.EventID), zap.Error(err))
	}
}

func (s *StripeWebhookService) apply(ctx context.Context, event stripe.Event) (*uuid.UUID, analytics.WebhookStatus, error) {
	if event.Data == nil {
		return nil, analytics.WebhookStatusIgnored, nil
	}
	switch event.Type {
	case EventCheckoutSessionCompleted:
		var session stripe.CheckoutSession
		if err := json.Unmarshal(event.Data.Raw, &session); err != nil {
			return nil, analytics.WebhookStatusFailed, fmt.Errorf("decode checkout session: %w", err)
		}
		if session.PaymentStatus != stripe.CheckoutSessionPaymentStatusPaid {
			return nil, analytics.WebhookStatusIgnored, nil
		}
		o, err := s.resolve(ctx, session.Metadata, func() (*order.Order, error) {
			return s.orders.orders.FindByStripeSession(ctx, session.ID)
		})
		if err != nil {
			return nil, statusFor(err), ignoreNotFound(err)
		}
		intentID := ""
		if session.PaymentIntent != nil {
			intentID = session.PaymentIntent.ID
		}
		if intentID != "" && o.StripePaymentIntentID == "" {
			o.AttachPaymentIntent(intentID)
			if err := s.orders.orders.Update(ctx, o); err != nil {
				return &o.ID, analytics.WebhookStatusFailed, err
			}
		}
		return s.settle(ctx, o, intentID)

	case EventPaymentIntentSucceeded:
		var intent stripe.PaymentIntent
		if err := json.Unmarshal(event.Data.Raw, &intent); err != nil {
			return nil, analytics.WebhookStatusFailed, fmt.Errorf("decode payment intent: %w", err)
		}
		o, err := s.resolve(ctx, intent.Metadata, func() (*order.Order, error) {
			return s.orders.orders.FindByStripePaymentIntent(ctx, intent.ID)
		})
		if err != nil {
			return nil, statusFor(err), ignoreNotFound(err)
		}
		return s.settle(ctx, o, intent.ID)

	case EventPaymentIntentFailed:
		var intent stripe.PaymentIntent
		if err := json.Unmarshal(event.Data.Raw, &intent); err != nil {
			return nil, analytics.WebhookStatusFailed, fmt.Errorf("decode payment intent: %w", err)
		}
		o, err := s.resolve(ctx, intent.Metadata, func() (*order.Order, error) {
			return s.orders.orders.FindByStripePaymentIntent(ctx, intent.ID)
		})
		if err != nil {
			return nil, statusFor(err), ignoreNotFound(err)
		}
		if err := s.orders.MarkPaymentFailed(ctx, o.ID); err != nil {
			if errors.Is(err, shared.ErrAlreadyPaid) {
				return &o.ID, analytics.WebhookStatusIgnored, nil
			}
			return &o.ID, analytics.WebhookStatusFailed, err
		}
		return &o.ID, analytics.WebhookStatusProcessed, nil
	}
	return nil, analytics.WebhookStatusIgnored, nil
}

// settle marks the order paid by card. A payment that clears after the order
// was cancelled or refunded is acknowledged and the order flagged for a refund.
func (s *StripeWebhookService) settle(ctx context.Context, o *order.Order, intentID string) (*uuid.UUID, analytics.WebhookStatus, error) {
	_, err := s.orders.MarkPaid(ctx, o.ID, MarkPaidRequest{PaymentMethod: order.PaymentMethodCard.String()}, analytics.SystemActor)
	switch {
	case errors.Is(err, shared.ErrAlreadyPaid):
		return &o.ID, analytics.WebhookStatusIgnored, nil
	case errors.Is(err, shared.ErrInvalidState):
		if err := s.orders.FlagRefundDue(ctx, o.ID, intentID); err != nil {
			return &o.ID, analytics.WebhookStatusFailed, err
		}
		return &o.ID, analytics.WebhookStatusProcessed, nil
	case err != nil:
		return &o.ID, analytics.WebhookStatusFailed, err
	}
	return &o.ID, analytics.WebhookStatusProcessed, nil
}

// resolve finds the order by metadata first and falls back to the Stripe id
func (s *StripeWebhookService) resolve(ctx context.Context, metadata map[string]string, fallback func() (*order.Order, error)) (*order.Order, error) {
	if raw := metadata[payment.MetadataOrderID]; raw != "" {
		if id, err := uuid.Parse(raw); err == nil {
			return s.orders.orders.FindByID(ctx, id)
		}
	}
	return fallback()
}

// An event for an order that no longer exists is acknowledged and logged as ignored
func statusFor(err error) analytics.WebhookStatus {
	if errors.Is(err, shared.ErrNotFound) {
		return analytics.WebhookStatusIgnored
	}
	return analytics.WebhookStatusFailed
}

func ignoreNotFound(err error) error {
	if errors.Is(err, shared.ErrNotFound) {
		return nil
	}
	return err
}
