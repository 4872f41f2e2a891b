package order

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"

	"go.uber.org/zap"

	"github.com/tradelinemarket/backend/internal/domain/analytics"
	"github.com/tradelinemarket/backend/internal/domain/client"
	"github.com/tradelinemarket/backend/internal/domain/identity"
	"github.com/tradelinemarket/backend/internal/domain/order"
	"github.com/tradelinemarket/backend/internal/domain/shared"
	"github.com/tradelinemarket/backend/internal/infrastructure/payment"
)

// Checkout prices the cart, upserts the client and creates an UNPAID order
// with its commission record in one transaction. When a card gateway is
// configured a hosted checkout session is attached afterwards; a gateway
// failure leaves the order payable by other means.
func (s *OrderService) Checkout(ctx context.Context, req CheckoutRequest) (*CheckoutResponse, error) {
	email := identity.NormalizeEmail(req.Customer.Email)
	if err := identity.ValidateEmail(email); err != nil {
		return nil, err
	}
	if strings.TrimSpace(req.Customer.Name) == "" {
		return nil, shared.NewDomainError("INVALID_CUSTOMER_NAME", "Customer name cannot be empty")
	}

	quote, err := s.quoter.Quote(ctx, req.Items, req.Terms, req.PromoCode, nil)
	if err != nil {
		return nil, err
	}

	var created *order.Order
	err = s.scope.Execute(ctx, func(repos TransactionalRepositories) error {
		cl, err := s.upsertClient(ctx, repos.Clients(), email, req.Customer)
		if err != nil {
			return err
		}

		number, err := s.nextOrderNumber(ctx, repos.Orders())
		if err != nil {
			return err
		}
		o, err := order.NewOrder(number, req.BrokerID, &cl.ID, order.Customer{
			Name:  strings.TrimSpace(req.Customer.Name),
			Email: email,
			Phone: strings.TrimSpace(req.Customer.Phone),
		}, quote)
		if err != nil {
			return err
		}
		if err := repos.Orders().Create(ctx, o); err != nil {
			return err
		}
		if rec := order.NewCommissionRecord(o); rec != nil {
			if err := repos.Commissions().Create(ctx, rec); err != nil {
				return fmt.Errorf("create commission: %w", err)
			}
		}
		entry := analytics.NewActivityLog(analytics.ActionOrderCreated, "order", &o.ID, analytics.Actor{Role: "client", ID: &cl.ID}, map[string]any{
			"order_number":  o.OrderNumber,
			"total_charged": o.TotalCharged.Int64(),
			"promo_code":    o.PromoCode,
			"brokered":      o.IsBrokered(),
		})
		if err := repos.Activity().Create(ctx, entry); err != nil {
			return fmt.Errorf("record activity: %w", err)
		}
		created = o
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("Order created",
		zap.String("order_id", created.ID.String()),
		zap.String("order_number", created.OrderNumber),
		zap.Int64("total_charged", created.TotalCharged.Int64()))
	s.publish(ctx, created)

	resp := &CheckoutResponse{
		OrderID:     created.ID,
		OrderNumber: created.OrderNumber,
		Total:       created.TotalCharged.USD(),
		Discount:    created.Discount.USD(),
		RedirectURL: s.portalLoginURL(email),
	}
	if session := s.openCheckoutSession(ctx, created, req); session != nil {
		resp.CheckoutURL = session.URL
	}
	return resp, nil
}

func (s *OrderService) upsertClient(ctx context.Context, repo client.Repository, email string, c CheckoutCustomer) (*client.Client, error) {
	contact := client.Contact{
		Name:        c.Name,
		Email:       email,
		Phone:       c.Phone,
		Address:     c.Address,
		DateOfBirth: c.DateOfBirth,
	}

	cl, err := repo.FindByEmail(ctx, email)
	switch {
	case errors.Is(err, shared.ErrNotFound):
		cl, err = client.NewClient(contact)
		if err != nil {
			return nil, err
		}
	case err != nil:
		return nil, err
	default:
		// The buyer is not authenticated; existing details stay as they are.
		cl.FillMissingContact(contact)
	}

	if c.Signature != "" && !cl.IsSigned() {
		if err := cl.Sign(c.Signature, s.now()); err != nil {
			return nil, err
		}
	}
	// An existing portal password is never overwritten from the widget.
	if c.Password != "" && !cl.HasPortalAccess() {
		if err := cl.SetPassword(c.Password); err != nil {
			return nil, err
		}
	}
	if err := repo.Save(ctx, cl); err != nil {
		return nil, err
	}
	return cl, nil
}

func (s *OrderService) openCheckoutSession(ctx context.Context, o *order.Order, req CheckoutRequest) *payment.CheckoutSession {
	if s.checkout == nil || req.SuccessURL == "" {
		return nil
	}

	in := payment.CheckoutInput{
		OrderID:       o.ID.String(),
		OrderNumber:   o.OrderNumber,
		CustomerEmail: o.Customer.Email,
		SuccessURL:    req.SuccessURL,
		CancelURL:     req.CancelURL,
	}
	if o.BrokerID != nil {
		in.BrokerID = o.BrokerID.String()
	}
	if o.Discount.Int64() > 0 {
		// Stripe line items carry no discount, so a discounted cart is
		// charged as a single line for the exact total.
		in.Items = []payment.CheckoutItem{{
			Name:        "Tradeline order " + o.OrderNumber,
			Description: fmt.Sprintf("%d tradelines, promo %s", len(o.Items), o.PromoCode),
			UnitAmount:  o.TotalCharged.Int64(),
			Quantity:    1,
		}}
	} else {
		for _, it := range o.Items {
			in.Items = append(in.Items, payment.CheckoutItem{
				Name:        fmt.Sprintf("%s tradeline", it.BankName),
				Description: fmt.Sprintf("Card %s, limit $%d", it.CardID, it.CreditLimit),
				UnitAmount:  it.CustomerPrice.Int64(),
				Quantity:    int64(it.Quantity),
			})
		}
	}

	session, err := s.checkout.CreateCheckoutSession(ctx, in)
	if err != nil {
		s.logger.Warn("Failed to create checkout session",
			zap.String("order_id", o.ID.String()),
			zap.Error(err))
		return nil
	}
	o.AttachCheckoutSession(session.ID)
	if err := s.orders.Update(ctx, o); err != nil {
		s.logger.Warn("Failed to store checkout session",
			zap.String("order_id", o.ID.String()),
			zap.Error(err))
	}
	return session
}

func (s *OrderService) portalLoginURL(email string) string {
	if s.portalURL == "" {
		return ""
	}
	return s.portalURL + "/login?email=" + url.QueryEscape(email)
}
