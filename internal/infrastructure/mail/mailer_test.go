package mail

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	gomail "github.com/wneessen/go-mail"

	"github.com/tradelinemarket/backend/internal/domain/order"
	"github.com/tradelinemarket/backend/internal/infrastructure/config"
	"github.com/tradelinemarket/backend/tests/testutil"
)

// fakeTransport keeps every message instead of dialing a relay
type fakeTransport struct {
	mu   sync.Mutex
	sent []*gomail.Msg
	err  error
}

func (f *fakeTransport) DialAndSendWithContext(_ context.Context, messages ...*gomail.Msg) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.sent = append(f.sent, messages...)
	return nil
}

func (f *fakeTransport) only(t *testing.T) *gomail.Msg {
	t.Helper()
	f.mu.Lock()
	defer f.mu.Unlock()
	require.Len(t, f.sent, 1)
	return f.sent[0]
}

func recipients(t *testing.T, msg *gomail.Msg) []string {
	t.Helper()
	rcpts, err := msg.GetRecipients()
	require.NoError(t, err)
	return rcpts
}

func subject(msg *gomail.Msg) string {
	values := msg.GetGenHeader(gomail.HeaderSubject)
	if len(values) == 0 {
		return ""
	}
	return values[0]
}

func body(t *testing.T, msg *gomail.Msg) string {
	t.Helper()
	parts := msg.GetParts()
	require.NotEmpty(t, parts)
	content, err := parts[0].GetContent()
	require.NoError(t, err)
	return string(content)
}

func newTestMailer(transport Transport) *Mailer {
	return NewMailer(transport, Options{
		From:       "Tradeline Marketplace <no-reply@tradeline.test>",
		AdminEmail: "ops@tradeline.test",
		PortalURL:  "https://portal.test/",
	})
}

func TestMailer_SendPasswordReset(t *testing.T) {
	transport := &fakeTransport{}
	m := newTestMailer(transport)
	cl := testutil.NewTestClient(t)
	link := "https://portal.test/reset-password?token=abc123"

	require.NoError(t, m.SendPasswordReset(context.Background(), cl, link))

	msg := transport.only(t)
	assert.Equal(t, []string{cl.Email}, recipients(t, msg))
	assert.Equal(t, "Reset your password", subject(msg))
	html := body(t, msg)
	assert.Contains(t, html, "https://portal.test/reset-password?token=abc123")
	assert.Contains(t, html, cl.Name)
}

func TestMailer_OrderEmails(t *testing.T) {
	ctx := context.Background()
	o := testutil.NewPendingOrder(t, nil, nil)
	o.Customer.Name = "<script>alert(1)</script>"

	t.Run("confirmation lists items and links the portal", func(t *testing.T) {
		transport := &fakeTransport{}
		require.NoError(t, newTestMailer(transport).SendOrderConfirmation(ctx, o))

		msg := transport.only(t)
		assert.Equal(t, []string{o.Customer.Email}, recipients(t, msg))
		assert.Equal(t, "Order "+o.OrderNumber+" received", subject(msg))
		html := body(t, msg)
		assert.Contains(t, html, o.Items[0].BankName)
		assert.Contains(t, html, "$"+o.TotalCharged.String())
		assert.Contains(t, html, "https://portal.test/login?email=")
		assert.NotContains(t, html, "<script>", "customer input is escaped")
	})

	t.Run("admin notice goes to the operations inbox", func(t *testing.T) {
		transport := &fakeTransport{}
		require.NoError(t, newTestMailer(transport).SendNewOrderAdminNotice(ctx, o))

		msg := transport.only(t)
		assert.Equal(t, []string{"ops@tradeline.test"}, recipients(t, msg))
		assert.Contains(t, body(t, msg), o.Customer.Email)
	})

	t.Run("admin notice is skipped without an inbox", func(t *testing.T) {
		transport := &fakeTransport{}
		m := NewMailer(transport, Options{From: "no-reply@tradeline.test"})
		require.NoError(t, m.SendNewOrderAdminNotice(ctx, o))
		assert.Empty(t, transport.sent)
	})

	t.Run("payment confirmation names the method", func(t *testing.T) {
		transport := &fakeTransport{}
		paid := testutil.NewPendingOrder(t, nil, nil)
		paid.PaymentMethod = order.PaymentMethod("zelle")

		require.NoError(t, newTestMailer(transport).SendPaymentConfirmation(ctx, paid))

		msg := transport.only(t)
		assert.Equal(t, "Payment received for order "+paid.OrderNumber, subject(msg))
		assert.Contains(t, body(t, msg), "by zelle")
	})

	t.Run("fulfilled", func(t *testing.T) {
		transport := &fakeTransport{}
		require.NoError(t, newTestMailer(transport).SendOrderFulfilled(ctx, o))
		assert.Equal(t, "Order "+o.OrderNumber+" fulfilled", subject(transport.only(t)))
	})
}

func TestMailer_SendBrokerWelcome(t *testing.T) {
	transport := &fakeTransport{}
	b, secret := testutil.NewPendingBroker(t)

	require.NoError(t, newTestMailer(transport).SendBrokerWelcome(context.Background(), b))

	msg := transport.only(t)
	assert.Equal(t, []string{b.Email}, recipients(t, msg))
	html := body(t, msg)
	assert.Contains(t, html, b.APIKey)
	assert.Contains(t, html, "awaiting approval")
	assert.NotContains(t, html, secret)
}

func TestMailer_Errors(t *testing.T) {
	ctx := context.Background()
	cl := testutil.NewTestClient(t)

	t.Run("transport failure is returned", func(t *testing.T) {
		transport := &fakeTransport{err: errors.New("connection refused")}
		err := newTestMailer(transport).SendPasswordReset(ctx, cl, "https://portal.test/x")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "connection refused")
	})

	t.Run("invalid recipient", func(t *testing.T) {
		transport := &fakeTransport{}
		cl := testutil.NewTestClient(t)
		cl.Email = "not an address"
		assert.Error(t, newTestMailer(transport).SendPasswordReset(ctx, cl, "https://portal.test/x"))
		assert.Empty(t, transport.sent)
	})
}

func TestNewSMTPClient(t *testing.T) {
	cfg := config.MailConfig{Host: "smtp.test", Port: 2525, Username: "relay", Password: "secret", Timeout: 5 * time.Second}
	c, err := NewSMTPClient(cfg)
	require.NoError(t, err)
	assert.NotNil(t, c)

	_, err = NewSMTPClient(config.MailConfig{Host: "", Port: 25, Timeout: 5 * time.Second})
	assert.Error(t, err, "a host is required")
}
