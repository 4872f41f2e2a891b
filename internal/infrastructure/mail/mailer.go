// Package mail delivers marketplace emails over SMTP.
package mail

import (
	"context"
	"fmt"
	"html/template"
	"net/url"
	"strings"

	gomail "github.com/wneessen/go-mail"
	"go.uber.org/zap"

	"github.com/tradelinemarket/backend/internal/domain/broker"
	"github.com/tradelinemarket/backend/internal/domain/client"
	"github.com/tradelinemarket/backend/internal/domain/order"
	"github.com/tradelinemarket/backend/internal/infrastructure/config"
)

// Transport sends composed messages. *gomail.Client satisfies it.
type Transport interface {
	DialAndSendWithContext(ctx context.Context, messages ...*gomail.Msg) error
}

// NewSMTPClient builds the SMTP transport from config. STARTTLS is used when
// the relay offers it.
func NewSMTPClient(cfg config.MailConfig) (*gomail.Client, error) {
	opts := []gomail.Option{
		gomail.WithPort(cfg.Port),
		gomail.WithTimeout(cfg.Timeout),
		gomail.WithTLSPortPolicy(gomail.TLSOpportunistic),
	}
	if cfg.Username != "" {
		opts = append(opts,
			gomail.WithSMTPAuth(gomail.SMTPAuthPlain),
			gomail.WithUsername(cfg.Username),
			gomail.WithPassword(cfg.Password))
	}
	client, err := gomail.NewClient(cfg.Host, opts...)
	if err != nil {
		return nil, fmt.Errorf("create smtp client: %w", err)
	}
	return client, nil
}

// Options configures a Mailer
type Options struct {
	From       string
	AdminEmail string // new order notices are skipped when empty
	PortalURL  string
	Logger     *zap.Logger
}

// Mailer renders and sends every marketplace email
type Mailer struct {
	transport  Transport
	from       string
	adminEmail string
	portalURL  string
	templates  map[string]*template.Template
	logger     *zap.Logger
}

// NewMailer creates a Mailer
func NewMailer(transport Transport, opts Options) *Mailer {
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Mailer{
		transport:  transport,
		from:       opts.From,
		adminEmail: opts.AdminEmail,
		portalURL:  strings.TrimRight(opts.PortalURL, "/"),
		templates:  parseTemplates(),
		logger:     logger.Named("mail"),
	}
}

// SendPasswordReset mails the reset link to a portal client
func (m *Mailer) SendPasswordReset(ctx context.Context, c *client.Client, link string) error {
	return m.send(ctx, c.Email, "Reset your password", "password_reset", map[string]string{
		"Name": c.Name,
		"Link": link,
	})
}

// SendOrderConfirmation tells the customer the order was received
func (m *Mailer) SendOrderConfirmation(ctx context.Context, o *order.Order) error {
	return m.send(ctx, o.Customer.Email, "Order "+o.OrderNumber+" received", "order_confirmation", m.orderView(o))
}

// SendNewOrderAdminNotice alerts the operations inbox of a new order
func (m *Mailer) SendNewOrderAdminNotice(ctx context.Context, o *order.Order) error {
	if m.adminEmail == "" {
		return nil
	}
	return m.send(ctx, m.adminEmail, "New order "+o.OrderNumber, "admin_new_order", m.orderView(o))
}

// SendPaymentConfirmation tells the customer the payment was recorded
func (m *Mailer) SendPaymentConfirmation(ctx context.Context, o *order.Order) error {
	return m.send(ctx, o.Customer.Email, "Payment received for order "+o.OrderNumber, "payment_confirmation", m.orderView(o))
}

// SendOrderFulfilled tells the customer the tradelines were posted
func (m *Mailer) SendOrderFulfilled(ctx context.Context, o *order.Order) error {
	return m.send(ctx, o.Customer.Email, "Order "+o.OrderNumber+" fulfilled", "order_fulfilled", m.orderView(o))
}

// SendBrokerWelcome greets a newly registered broker. The API secret is
// never mailed.
func (m *Mailer) SendBrokerWelcome(ctx context.Context, b *broker.Broker) error {
	return m.send(ctx, b.Email, "Welcome to Tradeline Marketplace", "broker_welcome", map[string]any{
		"Name":        b.Name,
		"CompanyName": b.CompanyName,
		"APIKey":      b.APIKey,
		"Pending":     b.Status == broker.StatusPending,
	})
}

func (m *Mailer) send(ctx context.Context, to, subject, name string, data any) error {
	tpl, ok := m.templates[name]
	if !ok {
		return fmt.Errorf("unknown mail template %q", name)
	}

	msg := gomail.NewMsg()
	if err := msg.From(m.from); err != nil {
		return fmt.Errorf("set sender: %w", err)
	}
	if err := msg.To(to); err != nil {
		return fmt.Errorf("set recipient: %w", err)
	}
	msg.Subject(subject)
	msg.SetDate()
	msg.SetMessageID()
	if err := msg.SetBodyHTMLTemplate(tpl, data); err != nil {
		return fmt.Errorf("render %s: %w", name, err)
	}

	if err := m.transport.DialAndSendWithContext(ctx, msg); err != nil {
		return fmt.Errorf("send %s: %w", name, err)
	}
	m.logger.Info("Email sent", zap.String("template", name), zap.String("to", to))
	return nil
}

type itemView struct {
	BankName    string
	CreditLimit int64
	Quantity    int
	LineTotal   string
}

type orderView struct {
	OrderNumber   string
	CustomerName  string
	CustomerEmail string
	Items         []itemView
	HasDiscount   bool
	PromoCode     string
	Discount      string
	Total         string
	PaymentMethod string
	Brokered      bool
	PortalURL     string
}

func (m *Mailer) orderView(o *order.Order) orderView {
	v := orderView{
		OrderNumber:   o.OrderNumber,
		CustomerName:  o.Customer.Name,
		CustomerEmail: o.Customer.Email,
		Items:         make([]itemView, 0, len(o.Items)),
		HasDiscount:   o.Discount.Int64() > 0,
		PromoCode:     o.PromoCode,
		Discount:      o.Discount.String(),
		Total:         o.TotalCharged.String(),
		PaymentMethod: string(o.PaymentMethod),
		Brokered:      o.IsBrokered(),
	}
	for _, item := range o.Items {
		v.Items = append(v.Items, itemView{
			BankName:    item.BankName,
			CreditLimit: item.CreditLimit,
			Quantity:    item.Quantity,
			LineTotal:   item.LineTotal().String(),
		})
	}
	if m.portalURL != "" {
		v.PortalURL = m.portalURL + "/login?email=" + url.QueryEscape(o.Customer.Email)
	}
	return v
}
