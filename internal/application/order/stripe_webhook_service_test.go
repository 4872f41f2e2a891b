package order

import (
	"context"
	"encoding/json"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"github.com/stripe/stripe-go/v81"
	"go.uber.org/zap"

	"github.com/tradelinemarket/backend/internal/domain/analytics"
	"github.com/tradelinemarket/backend/internal/domain/order"
	"github.com/tradelinemarket/backend/internal/domain/shared"
	"github.com/tradelinemarket/backend/internal/infrastructure/payment"
	"github.com/tradelinemarket/backend/tests/testutil"
)

type webhookFixture struct {
	*orderFixture
	verifier *MockWebhookVerifier
	logs     *testutil.MockWebhookLogRepository
	service  *StripeWebhookService
}

func setupWebhookService(t *testing.T) *webhookFixture {
	t.Helper()
	f := &webhookFixture{
		orderFixture: setupOrderService(t, false),
		verifier:     new(MockWebhookVerifier),
		logs:         new(testutil.MockWebhookLogRepository),
	}
	f.service = NewStripeWebhookService(f.verifier, f.orderFixture.service, f.logs, testutil.NewAdvisory(t), zap.NewNop())
	return f
}

func sessionEvent(id string, o *order.Order, paymentStatus string) stripe.Event {
	raw := fmt.Sprintf(`{"id":"cs_test_1","object":"checkout.session","payment_status":%q,"payment_intent":"pi_test_1","metadata":{%q:%q}}`,
		paymentStatus, payment.MetadataOrderID, o.ID.String())
	return stripe.Event{
		ID:   id,
		Type: EventCheckoutSessionCompleted,
		Data: &stripe.EventData{Raw: json.RawMessage(raw)},
	}
}

func webhookLogWith(status analytics.WebhookStatus) any {
	return mock.MatchedBy(func(l *analytics.WebhookLog) bool {
		return l.Source == "stripe" && l.Status == status
	})
}

func TestStripeWebhookService_Handle(t *testing.T) {
	ctx := context.Background()
	payload := []byte(`{}`)

	t.Run("bad signature rejected", func(t *testing.T) {
		f := setupWebhookService(t)
		f.verifier.On("ConstructEvent", payload, "bad").Return(stripe.Event{}, payment.ErrSignature)

		_, err := f.service.Handle(ctx, payload, "bad")

		assert.ErrorIs(t, err, payment.ErrSignature)
		f.logs.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
	})

	t.Run("completed session settles the order", func(t *testing.T) {
		f := setupWebhookService(t)
		o := testutil.NewPendingOrder(t, nil, nil)
		o.ClearDomainEvents()

		f.verifier.On("ConstructEvent", payload, "sig").Return(sessionEvent("evt_1", o, "paid"), nil)
		f.orders.On("FindByID", ctx, o.ID).Return(o, nil)
		f.orders.On("Update", ctx, mock.MatchedBy(func(u *order.Order) bool {
			return u.StripePaymentIntentID == "pi_test_1"
		})).Return(nil)
		f.orders.On("MarkPaid", ctx, o).Return(nil)
		f.activity.On("Create", ctx, testutil.ActionIs(analytics.ActionOrderMarkedPaid)).Return(nil)
		f.logs.On("Create", ctx, webhookLogWith(analytics.WebhookStatusProcessed)).Return(nil)

		result, err := f.service.Handle(ctx, payload, "sig")

		require.NoError(t, err)
		assert.Equal(t, analytics.WebhookStatusProcessed, result.Status)
		require.NotNil(t, result.OrderID)
		assert.Equal(t, o.ID, *result.OrderID)
		assert.Equal(t, order.PaymentMethodCard, o.PaymentMethod)
		assert.Equal(t, []string{order.EventTypeOrderPaid}, f.events.Types())
	})

	t.Run("redelivered event is not applied twice", func(t *testing.T) {
		f := setupWebhookService(t)
		o := testutil.NewPendingOrder(t, nil, nil)

		f.verifier.On("ConstructEvent", payload, "sig").Return(sessionEvent("evt_dup", o, "paid"), nil)
		f.orders.On("FindByID", ctx, o.ID).Return(o, nil).Twice()
		f.orders.On("Update", ctx, mock.Anything).Return(nil)
		f.orders.On("MarkPaid", ctx, o).Return(nil).Once()
		f.activity.On("Create", ctx, mock.Anything).Return(nil)
		f.logs.On("Create", ctx, webhookLogWith(analytics.WebhookStatusProcessed)).Return(nil).Once()
		f.logs.On("Create", ctx, mock.MatchedBy(func(l *analytics.WebhookLog) bool {
			return l.EventID == "evt_dup" && l.Status == analytics.WebhookStatusIgnored && l.Error == "duplicate delivery"
		})).Return(nil).Once()

		_, err := f.service.Handle(ctx, payload, "sig")
		require.NoError(t, err)
		second, err := f.service.Handle(ctx, payload, "sig")

		require.NoError(t, err)
		assert.Equal(t, analytics.WebhookStatusIgnored, second.Status)
		f.orders.AssertNumberOfCalls(t, "MarkPaid", 1)
		f.logs.AssertNumberOfCalls(t, "Create", 2)
	})

	t.Run("payment for a cancelled order is acknowledged and flagged", func(t *testing.T) {
		f := setupWebhookService(t)
		o := testutil.NewPendingOrder(t, nil, nil)
		require.NoError(t, o.Cancel("buyer backed out"))
		o.StripePaymentIntentID = "pi_test_1"
		o.ClearDomainEvents()

		f.verifier.On("ConstructEvent", payload, "sig").Return(sessionEvent("evt_late", o, "paid"), nil)
		f.orders.On("FindByID", ctx, o.ID).Return(o, nil)
		f.orders.On("Update", ctx, o).Return(nil).Once()
		f.activity.On("Create", ctx, testutil.ActionIs(analytics.ActionOrderRefundDue)).Return(nil)
		f.logs.On("Create", ctx, webhookLogWith(analytics.WebhookStatusProcessed)).Return(nil)

		result, err := f.service.Handle(ctx, payload, "sig")

		require.NoError(t, err)
		assert.Equal(t, analytics.WebhookStatusProcessed, result.Status)
		assert.Equal(t, order.StatusCancelled, o.Status)
		assert.Equal(t, order.PaymentStatusUnpaid, o.PaymentStatus)
		assert.Contains(t, o.Note, order.RefundDueNote)
		f.orders.AssertNotCalled(t, "MarkPaid", mock.Anything, mock.Anything)
		f.activity.AssertExpectations(t)
	})

	t.Run("already paid order is acknowledged", func(t *testing.T) {
		f := setupWebhookService(t)
		o := testutil.NewPendingOrder(t, nil, nil)
		o.StripePaymentIntentID = "pi_test_1"

		f.verifier.On("ConstructEvent", payload, "sig").Return(sessionEvent("evt_2", o, "paid"), nil)
		f.orders.On("FindByID", ctx, o.ID).Return(o, nil)
		f.orders.On("MarkPaid", ctx, o).Return(shared.ErrAlreadyPaid)
		f.logs.On("Create", ctx, webhookLogWith(analytics.WebhookStatusIgnored)).Return(nil)

		result, err := f.service.Handle(ctx, payload, "sig")

		require.NoError(t, err)
		assert.Equal(t, analytics.WebhookStatusIgnored, result.Status)
	})

	t.Run("unpaid session ignored", func(t *testing.T) {
		f := setupWebhookService(t)
		o := testutil.NewPendingOrder(t, nil, nil)

		f.verifier.On("ConstructEvent", payload, "sig").Return(sessionEvent("evt_3", o, "unpaid"), nil)
		f.logs.On("Create", ctx, webhookLogWith(analytics.WebhookStatusIgnored)).Return(nil)

		result, err := f.service.Handle(ctx, payload, "sig")

		require.NoError(t, err)
		assert.Equal(t, analytics.WebhookStatusIgnored, result.Status)
		f.orders.AssertNotCalled(t, "FindByID", mock.Anything, mock.Anything)
	})

	t.Run("payment failure recorded", func(t *testing.T) {
		f := setupWebhookService(t)
		o := testutil.NewPendingOrder(t, nil, nil)
		raw := fmt.Sprintf(`{"id":"pi_test_9","object":"payment_intent","metadata":{%q:%q}}`, payment.MetadataOrderID, o.ID.String())
		event := stripe.Event{ID: "evt_4", Type: EventPaymentIntentFailed, Data: &stripe.EventData{Raw: json.RawMessage(raw)}}

		f.verifier.On("ConstructEvent", payload, "sig").Return(event, nil)
		f.orders.On("FindByID", ctx, o.ID).Return(o, nil)
		f.orders.On("Update", ctx, o).Return(nil)
		f.logs.On("Create", ctx, webhookLogWith(analytics.WebhookStatusProcessed)).Return(nil)

		result, err := f.service.Handle(ctx, payload, "sig")

		require.NoError(t, err)
		assert.Equal(t, analytics.WebhookStatusProcessed, result.Status)
		assert.Equal(t, order.PaymentStatusFailed, o.PaymentStatus)
	})

	t.Run("unknown order acknowledged", func(t *testing.T) {
		f := setupWebhookService(t)
		o := testutil.NewPendingOrder(t, nil, nil)

		f.verifier.On("ConstructEvent", payload, "sig").Return(sessionEvent("evt_5", o, "paid"), nil)
		f.orders.On("FindByID", ctx, o.ID).Return(nil, shared.ErrNotFound)
		f.logs.On("Create", ctx, webhookLogWith(analytics.WebhookStatusIgnored)).Return(nil)

		result, err := f.service.Handle(ctx, payload, "sig")

		require.NoError(t, err)
		assert.Equal(t, analytics.WebhookStatusIgnored, result.Status)
	})

	t.Run("unhandled type ignored", func(t *testing.T) {
		f := setupWebhookService(t)
		event := stripe.Event{ID: "evt_6", Type: stripe.EventType("customer.created"), Data: &stripe.EventData{Raw: json.RawMessage(`{}`)}}
		f.verifier.On("ConstructEvent", payload, "sig").Return(event, nil)
		f.logs.On("Create", ctx, webhookLogWith(analytics.WebhookStatusIgnored)).Return(nil)

		result, err := f.service.Handle(ctx, payload, "sig")

		require.NoError(t, err)
		assert.Equal(t, analytics.WebhookStatusIgnored, result.Status)
	})
}
