// Package automation drives a headless Chrome through the supplier storefront
// to stage an order for checkout. Login, CAPTCHA and payment stay manual.
package automation

import (
	"strings"
	"time"

	"github.com/tradelinemarket/backend/internal/domain/client"
	"github.com/tradelinemarket/backend/internal/domain/order"
	"github.com/tradelinemarket/backend/internal/domain/shared/valueobject"
)

// DefaultPromoCode is applied when the order carries none
const DefaultPromoCode = "PKGDEAL"

// Status is the lifecycle state of a session
type Status string

const (
	StatusWaiting   Status = "waiting"
	StatusRunning   Status = "running"
	StatusCompleted Status = "completed"
	StatusFailed    Status = "failed"
	StatusCancelled Status = "cancelled"
)

// IsValid reports whether s is a known status
func (s Status) IsValid() bool {
	switch s {
	case StatusWaiting, StatusRunning, StatusCompleted, StatusFailed, StatusCancelled:
		return true
	}
	return false
}

// IsTerminal reports whether no further transition is possible
func (s Status) IsTerminal() bool {
	return s == StatusCompleted || s == StatusFailed || s == StatusCancelled
}

// ContextItem is one card to add to the supplier cart
type ContextItem struct {
	CardID      string            `json:"card_id"`
	BankName    string            `json:"bank_name"`
	CreditLimit int64             `json:"credit_limit"`
	Quantity    int               `json:"quantity"`
	Price       valueobject.Cents `json:"price"`
}

// OrderContext carries everything the browser run needs
type OrderContext struct {
	OrderID       string            `json:"order_id"`
	OrderNumber   string            `json:"order_number"`
	ClientName    string            `json:"client_name"`
	ClientEmail   string            `json:"client_email"`
	ClientPhone   string            `json:"client_phone,omitempty"`
	ClientAddress client.Address    `json:"client_address"`
	ClientDOB     string            `json:"client_dob,omitempty"`
	Items         []ContextItem     `json:"items"`
	PromoCode     string            `json:"promo_code"`
	TotalAmount   valueobject.Cents `json:"total_amount"`
}

// CardIDs lists the card ids in order
func (c OrderContext) CardIDs() []string {
	ids := make([]string, 0, len(c.Items))
	for _, it := range c.Items {
		ids = append(ids, it.CardID)
	}
	return ids
}

// BuildOrderContext snapshots an order and its client. Client contact data wins
// over the checkout snapshot when present.
func BuildOrderContext(o *order.Order, cl *client.Client, defaultPromo string) OrderContext {
	oc := OrderContext{
		OrderID:     o.ID.String(),
		OrderNumber: o.OrderNumber,
		ClientName:  o.Customer.Name,
		ClientEmail: o.Customer.Email,
		ClientPhone: o.Customer.Phone,
		PromoCode:   strings.TrimSpace(o.PromoCode),
		TotalAmount: o.TotalCharged,
	}
	if cl != nil {
		if cl.Name != "" {
			oc.ClientName = cl.Name
		}
		if cl.Email != "" {
			oc.ClientEmail = cl.Email
		}
		if cl.Phone != "" {
			oc.ClientPhone = cl.Phone
		}
		oc.ClientAddress = cl.Address
		if cl.DateOfBirth != nil {
			oc.ClientDOB = cl.DateOfBirth.Format("2006-01-02")
		}
	}
	if oc.PromoCode == "" {
		oc.PromoCode = defaultPromo
	}
	if oc.PromoCode == "" {
		oc.PromoCode = DefaultPromoCode
	}
	for _, it := range o.Items {
		oc.Items = append(oc.Items, ContextItem{
			CardID:      it.CardID,
			BankName:    it.BankName,
			CreditLimit: it.CreditLimit,
			Quantity:    it.Quantity,
			Price:       it.CustomerPrice,
		})
	}
	return oc
}

// Session is a snapshot of one automation run
type Session struct {
	ID        string         `json:"id"`
	OrderID   string         `json:"order_id"`
	Status    Status         `json:"status"`
	Context   OrderContext   `json:"context"`
	Result    map[string]any `json:"result,omitempty"`
	Error     string         `json:"error,omitempty"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
}
