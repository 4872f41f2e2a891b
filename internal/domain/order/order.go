// Package order holds the Order aggregate and its settlement state machine.
package order

import (
	"crypto/rand"
	"fmt"
	"math/big"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/tradelinemarket/backend/internal/domain/pricing"
	"github.com/tradelinemarket/backend/internal/domain/shared"
	"github.com/tradelinemarket/backend/internal/domain/shared/valueobject"
)

// OrderNumberPrefix starts every marketplace order number
const OrderNumberPrefix = "TLM"

// Item is one purchased tradeline line. Prices are per unit.
type Item struct {
	ID                 uuid.UUID
	OrderID            uuid.UUID
	CardID             string
	BankName           string
	CreditLimit        int64
	Quantity           int
	BasePrice          valueobject.Cents
	BrokerRevenueShare valueobject.Cents
	BrokerMarkup       valueobject.Cents
	CustomerPrice      valueobject.Cents
	CreatedAt          time.Time
}

// LineTotal is customer price times quantity
func (i Item) LineTotal() valueobject.Cents {
	return i.CustomerPrice.Mul(i.Quantity)
}

// Customer is the buyer snapshot stored on the order
type Customer struct {
	Name  string
	Email string
	Phone string
}

// Order is the purchase aggregate root
type Order struct {
	shared.BaseAggregateRoot
	OrderNumber           string
	BrokerID              *uuid.UUID
	ClientID              *uuid.UUID
	Customer              Customer
	Items                 []Item
	SubtotalBase          valueobject.Cents
	BrokerRevenueShare    valueobject.Cents
	BrokerMarkup          valueobject.Cents
	Discount              valueobject.Cents
	PlatformNetRevenue    valueobject.Cents
	TotalCharged          valueobject.Cents
	PromoCode             string
	Status                Status
	PaymentStatus         PaymentStatus
	PaymentMethod         PaymentMethod
	PaidAt                *time.Time
	StripeSessionID       string
	StripePaymentIntentID string
	SupplierOrderID       string
	SupplierStatus        string
	FulfilledAt           *time.Time
	CompletedAt           *time.Time
	CancelledAt           *time.Time
	Note                  string
}

// GenerateOrderNumber returns TLM + YY + MM + 4 random digits.
// Uniqueness is checked by the caller against the repository.
func GenerateOrderNumber(now time.Time) (string, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(10000))
	if err != nil {
		return "", fmt.Errorf("generate order number: %w", err)
	}
	return fmt.Sprintf("%s%s%04d", OrderNumberPrefix, now.Format("0601"), n.Int64()), nil
}

// NewOrder creates a PENDING/UNPAID order from a priced quote.
// A nil brokerID records a direct (house) sale.
func NewOrder(orderNumber string, brokerID, clientID *uuid.UUID, customer Customer, quote pricing.Quote) (*Order, error) {
	if strings.TrimSpace(orderNumber) == "" {
		return nil, shared.NewDomainError("INVALID_ORDER_NUMBER", "Order number cannot be empty")
	}
	if strings.TrimSpace(customer.Name) == "" {
		return nil, shared.NewDomainError("INVALID_CUSTOMER_NAME", "Customer name cannot be empty")
	}
	if strings.TrimSpace(customer.Email) == "" {
		return nil, shared.NewDomainError("INVALID_CUSTOMER_EMAIL", "Customer email cannot be empty")
	}
	if len(quote.Lines) == 0 {
		return nil, shared.NewDomainError("NO_ITEMS", "Order must contain at least one item")
	}

	o := &Order{
		BaseAggregateRoot:  shared.NewBaseAggregateRoot(),
		OrderNumber:        orderNumber,
		BrokerID:           brokerID,
		ClientID:           clientID,
		Customer:           customer,
		SubtotalBase:       quote.SubtotalBase,
		BrokerRevenueShare: quote.BrokerRevenueShare,
		BrokerMarkup:       quote.BrokerMarkup,
		Discount:           quote.Discount,
		PlatformNetRevenue: quote.PlatformNetRevenue,
		TotalCharged:       quote.TotalCharged,
		PromoCode:          quote.PromoCode,
		Status:             StatusPending,
		PaymentStatus:      PaymentStatusUnpaid,
		Items:              make([]Item, 0, len(quote.Lines)),
	}
	for _, l := range quote.Lines {
		o.Items = append(o.Items, Item{
			ID:                 uuid.New(),
			OrderID:            o.ID,
			CardID:             l.CardID,
			BankName:           l.BankName,
			CreditLimit:        l.CreditLimit,
			Quantity:           l.Quantity,
			BasePrice:          l.BasePrice,
			BrokerRevenueShare: l.BrokerRevenueShare,
			BrokerMarkup:       l.BrokerMarkup,
			CustomerPrice:      l.CustomerPrice,
			CreatedAt:          o.CreatedAt,
		})
	}

	o.AddDomainEvent(NewCreatedEvent(o))
	return o, nil
}

// ItemsTotal is the sum of item line totals. Promo discounts are already in
// the item prices, so this matches TotalCharged.
func (o *Order) ItemsTotal() valueobject.Cents {
	var total valueobject.Cents
	for _, it := range o.Items {
		total = total.Add(it.LineTotal())
	}
	return total
}

// IsBrokered reports whether a broker referred the order
func (o *Order) IsBrokered() bool {
	return o.BrokerID != nil
}

// IsPaid reports whether payment has been recorded
func (o *Order) IsPaid() bool {
	return o.PaymentStatus == PaymentStatusPaid
}

// MarkPaid records a payment and moves the order to PROCESSING.
// A second call fails with ALREADY_PAID and changes nothing.
func (o *Order) MarkPaid(method PaymentMethod, at time.Time) error {
	if o.IsPaid() {
		return shared.ErrAlreadyPaid
	}
	if !method.IsValid() {
		return shared.NewDomainError("INVALID_PAYMENT_METHOD", fmt.Sprintf("Invalid payment method: %s", method))
	}
	if !o.Status.CanTransitionTo(StatusProcessing) {
		return shared.NewDomainError("INVALID_STATE", fmt.Sprintf("Cannot mark order paid in %s status", o.Status))
	}

	o.PaymentStatus = PaymentStatusPaid
	o.Status = StatusProcessing
	o.PaymentMethod = method
	o.PaidAt = &at
	o.UpdatedAt = time.Now()

	o.AddDomainEvent(NewPaidEvent(o))
	return nil
}

// MarkPaymentFailed records a declined card payment. The order stays PENDING.
func (o *Order) MarkPaymentFailed() error {
	if o.IsPaid() {
		return shared.ErrAlreadyPaid
	}
	o.PaymentStatus = PaymentStatusFailed
	o.Touch()
	return nil
}

// AttachCheckoutSession stores the Stripe checkout session reference
func (o *Order) AttachCheckoutSession(sessionID string) {
	o.StripeSessionID = sessionID
	o.Touch()
}

// AttachPaymentIntent stores the Stripe payment intent reference
func (o *Order) AttachPaymentIntent(intentID string) {
	if intentID != "" {
		o.StripePaymentIntentID = intentID
		o.Touch()
	}
}

// AttachSupplierOrder records the supplier's order id while PROCESSING
func (o *Order) AttachSupplierOrder(supplierOrderID, supplierStatus string) error {
	if o.Status != StatusProcessing {
		return shared.NewDomainError("INVALID_STATE", fmt.Sprintf("Cannot submit order to supplier in %s status", o.Status))
	}
	if strings.TrimSpace(supplierOrderID) == "" {
		return shared.NewDomainError("INVALID_SUPPLIER_ORDER", "Supplier order id cannot be empty")
	}
	o.SupplierOrderID = supplierOrderID
	o.SupplierStatus = supplierStatus
	o.Touch()
	return nil
}

// UpdateSupplierStatus records the latest status polled from the supplier
func (o *Order) UpdateSupplierStatus(status string) {
	o.SupplierStatus = status
	o.Touch()
}

// Complete marks the order fulfilled
func (o *Order) Complete(supplierOrderID string) error {
	if !o.Status.CanTransitionTo(StatusCompleted) {
		return shared.NewDomainError("INVALID_STATE", fmt.Sprintf("Cannot complete order in %s status", o.Status))
	}
	if supplierOrderID != "" {
		o.SupplierOrderID = supplierOrderID
	}

	now := time.Now()
	o.Status = StatusCompleted
	o.FulfilledAt = &now
	o.CompletedAt = &now
	o.UpdatedAt = now

	o.AddDomainEvent(NewCompletedEvent(o))
	return nil
}

// Cancel cancels a PENDING or PROCESSING order
func (o *Order) Cancel(reason string) error {
	if !o.Status.CanTransitionTo(StatusCancelled) {
		return shared.NewDomainError("INVALID_STATE", fmt.Sprintf("Cannot cancel order in %s status", o.Status))
	}

	now := time.Now()
	o.Status = StatusCancelled
	o.CancelledAt = &now
	o.UpdatedAt = now
	if reason != "" {
		o.Note = reason
	}

	o.AddDomainEvent(NewCancelledEvent(o, reason))
	return nil
}

// Refund refunds a PROCESSING or COMPLETED order
func (o *Order) Refund() error {
	if !o.Status.CanTransitionTo(StatusRefunded) {
		return shared.NewDomainError("INVALID_STATE", fmt.Sprintf("Cannot refund order in %s status", o.Status))
	}
	o.Status = StatusRefunded
	o.PaymentStatus = PaymentStatusRefunded
	o.Touch()

	o.AddDomainEvent(NewRefundedEvent(o))
	return nil
}

// RefundDueNote is recorded on orders paid after cancellation
const RefundDueNote = "Card payment received after the order was closed; refund required"

// FlagRefundDue records a card payment that cleared after the order was
// cancelled or refunded. Status is unchanged; the note tells an operator to
// refund the charge.
func (o *Order) FlagRefundDue(intentID string) error {
	if o.IsPaid() {
		return shared.ErrAlreadyPaid
	}
	if o.Status != StatusCancelled && o.Status != StatusRefunded {
		return shared.NewDomainError("INVALID_STATE", fmt.Sprintf("Order in %s status can still be settled", o.Status))
	}
	if intentID != "" {
		o.StripePaymentIntentID = intentID
	}
	if o.Note == "" {
		o.Note = RefundDueNote
	} else if !strings.Contains(o.Note, RefundDueNote) {
		o.Note = o.Note + "\n" + RefundDueNote
	}
	o.Touch()
	return nil
}

// SetNote replaces the operator note
func (o *Order) SetNote(note string) {
	o.Note = note
	o.Touch()
}
