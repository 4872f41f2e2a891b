// Package payment integrates Stripe Checkout for card payments and verifies
// Stripe webhooks.
package payment

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/stripe/stripe-go/v81"
	"github.com/stripe/stripe-go/v81/client"
	"github.com/stripe/stripe-go/v81/webhook"
	"github.com/tradelinemarket/backend/internal/infrastructure/config"
	"go.uber.org/zap"
)

// Metadata keys set on sessions and payment intents
const (
	MetadataOrderID  = "order_id"
	MetadataBrokerID = "broker_id"
)

// ErrSignature is returned when a webhook payload fails verification
var ErrSignature = errors.New("stripe: webhook signature verification failed")

// CheckoutItem is one Checkout line, priced per unit in cents
type CheckoutItem struct {
	Name        string
	Description string
	UnitAmount  int64
	Quantity    int64
}

// CheckoutInput describes the order being paid
type CheckoutInput struct {
	OrderID       string
	OrderNumber   string
	BrokerID      string
	CustomerEmail string
	Items         []CheckoutItem
	SuccessURL    string
	CancelURL     string
}

// CheckoutSession is the created session
type CheckoutSession struct {
	ID  string
	URL string
}

// StripeGateway creates Checkout sessions and verifies webhooks
type StripeGateway struct {
	api           *client.API
	currency      string
	webhookSecret string
	logger        *zap.Logger
}

// StripeOption is a functional option for configuring the gateway
type StripeOption func(*stripeOptions)

type stripeOptions struct {
	backends *stripe.Backends
}

// WithBackends overrides the Stripe HTTP backends, used to point at a test server
func WithBackends(b *stripe.Backends) StripeOption {
	return func(o *stripeOptions) {
		o.backends = b
	}
}

// NewStripeGateway creates a gateway from configuration
func NewStripeGateway(cfg config.StripeConfig, logger *zap.Logger, opts ...StripeOption) (*StripeGateway, error) {
	if cfg.SecretKey == "" {
		return nil, errors.New("stripe: secret key is required")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	var o stripeOptions
	for _, opt := range opts {
		opt(&o)
	}

	currency := strings.ToLower(cfg.Currency)
	if currency == "" {
		currency = string(stripe.CurrencyUSD)
	}

	return &StripeGateway{
		api:           client.New(cfg.SecretKey, o.backends),
		currency:      currency,
		webhookSecret: cfg.WebhookSecret,
		logger:        logger.Named("stripe"),
	}, nil
}

// CreateCheckoutSession opens a payment-mode session with one price_data line per item.
// Order and broker ids go into both session and payment intent metadata.
func (g *StripeGateway) CreateCheckoutSession(ctx context.Context, in CheckoutInput) (*CheckoutSession, error) {
	if len(in.Items) == 0 {
		return nil, errors.New("stripe: checkout requires at least one item")
	}

	metadata := map[string]string{MetadataOrderID: in.OrderID}
	if in.BrokerID != "" {
		metadata[MetadataBrokerID] = in.BrokerID
	}

	params := &stripe.CheckoutSessionParams{
		Mode:              stripe.String(string(stripe.CheckoutSessionModePayment)),
		SuccessURL:        stripe.String(in.SuccessURL),
		CancelURL:         stripe.String(in.CancelURL),
		ClientReferenceID: stripe.String(in.OrderID),
		PaymentIntentData: &stripe.CheckoutSessionPaymentIntentDataParams{
			Metadata:    metadata,
			Description: stripe.String("Order " + in.OrderNumber),
		},
	}
	params.Context = ctx
	for k, v := range metadata {
		params.AddMetadata(k, v)
	}
	if in.CustomerEmail != "" {
		params.CustomerEmail = stripe.String(in.CustomerEmail)
	}

	for _, item := range in.Items {
		product := &stripe.CheckoutSessionLineItemPriceDataProductDataParams{
			Name: stripe.String(item.Name),
		}
		if item.Description != "" {
			product.Description = stripe.String(item.Description)
		}
		params.LineItems = append(params.LineItems, &stripe.CheckoutSessionLineItemParams{
			PriceData: &stripe.CheckoutSessionLineItemPriceDataParams{
				Currency:    stripe.String(g.currency),
				ProductData: product,
				UnitAmount:  stripe.Int64(item.UnitAmount),
			},
			Quantity: stripe.Int64(item.Quantity),
		})
	}

	s, err := g.api.CheckoutSessions.New(params)
	if err != nil {
		g.logger.Error("Failed to create checkout session",
			zap.String("order_id", in.OrderID),
			zap.Error(err))
		return nil, fmt.Errorf("stripe: failed to create checkout session: %w", err)
	}

	g.logger.Info("Created checkout session",
		zap.String("order_id", in.OrderID),
		zap.String("session_id", s.ID))
	return &CheckoutSession{ID: s.ID, URL: s.URL}, nil
}

// ConstructEvent verifies the Stripe-Signature header and decodes the event.
// API version mismatches are tolerated so account upgrades do not drop events.
func (g *StripeGateway) ConstructEvent(payload []byte, signature string) (stripe.Event, error) {
	if g.webhookSecret == "" {
		return stripe.Event{}, fmt.Errorf("%w: webhook secret not configured", ErrSignature)
	}
	event, err := webhook.ConstructEventWithOptions(payload, signature, g.webhookSecret, webhook.ConstructEventOptions{
		IgnoreAPIVersionMismatch: true,
	})
	if err != nil {
		return stripe.Event{}, fmt.Errorf("%w: %v", ErrSignature, err)
	}
	return event, nil
}
