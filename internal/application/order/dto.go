package order

import (
	"path"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	appcatalog "github.com/tradelinemarket/backend/internal/application/catalog"
	"github.com/tradelinemarket/backend/internal/domain/client"
	"github.com/tradelinemarket/backend/internal/domain/order"
	"github.com/tradelinemarket/backend/internal/domain/pricing"
)

// CheckoutCustomer is the buyer data collected by the widget
type CheckoutCustomer struct {
	Name        string
	Email       string
	Phone       string
	Address     client.Address
	DateOfBirth *time.Time
	Password    string
	Signature   string
}

// CheckoutRequest creates an unpaid order on behalf of a broker's widget.
// A nil BrokerID is a direct sale.
type CheckoutRequest struct {
	BrokerID   *uuid.UUID
	Terms      *pricing.BrokerTerms
	Customer   CheckoutCustomer
	Items      []appcatalog.QuoteItem
	PromoCode  string
	SuccessURL string
	CancelURL  string
}

// CheckoutResponse is returned to the widget after checkout
type CheckoutResponse struct {
	OrderID     uuid.UUID       `json:"order_id"`
	OrderNumber string          `json:"order_number"`
	Total       decimal.Decimal `json:"total"`
	Discount    decimal.Decimal `json:"discount"`
	CheckoutURL string          `json:"checkout_url,omitempty"`
	RedirectURL string          `json:"redirect_url,omitempty"`
}

// MarkPaidRequest records a manual payment
type MarkPaidRequest struct {
	PaymentMethod string
	Note          string
}

// OrderItemResponse is one purchased line
type OrderItemResponse struct {
	ID                 uuid.UUID       `json:"id"`
	CardID             string          `json:"card_id"`
	BankName           string          `json:"bank_name"`
	CreditLimit        int64           `json:"credit_limit"`
	Quantity           int             `json:"quantity"`
	BasePrice          decimal.Decimal `json:"base_price"`
	BrokerRevenueShare decimal.Decimal `json:"broker_revenue_share"`
	BrokerMarkup       decimal.Decimal `json:"broker_markup"`
	CustomerPrice      decimal.Decimal `json:"customer_price"`
	LineTotal          decimal.Decimal `json:"line_total"`
}

// ClientSummary is the KYC view of the buyer shown to admins
type ClientSummary struct {
	ID                  uuid.UUID  `json:"id"`
	Name                string     `json:"name"`
	Email               string     `json:"email"`
	Phone               string     `json:"phone,omitempty"`
	DocumentsVerified   bool       `json:"documents_verified"`
	IDDocument          string     `json:"id_document,omitempty"`
	SSNDocument         string     `json:"ssn_document,omitempty"`
	HasSignature        bool       `json:"has_signature"`
	SignatureIsImage    bool       `json:"signature_is_image"`
	SignedAgreementDate *time.Time `json:"signed_agreement_date,omitempty"`
}

// ToClientSummary converts a client; document keys are reduced to filenames
func ToClientSummary(c *client.Client) *ClientSummary {
	if c == nil {
		return nil
	}
	return &ClientSummary{
		ID:                  c.ID,
		Name:                c.Name,
		Email:               c.Email,
		Phone:               c.Phone,
		DocumentsVerified:   c.DocumentsVerified,
		IDDocument:          baseName(c.IDDocumentPath),
		SSNDocument:         baseName(c.SSNDocumentPath),
		HasSignature:        c.Signature != "",
		SignatureIsImage:    c.SignatureIsImage(),
		SignedAgreementDate: c.SignedAgreementDate,
	}
}

// OrderResponse represents an order in admin and broker responses
type OrderResponse struct {
	ID                  uuid.UUID           `json:"id"`
	OrderNumber         string              `json:"order_number"`
	BrokerID            *uuid.UUID          `json:"broker_id,omitempty"`
	BrokerName          string              `json:"broker_name,omitempty"`
	ClientID            *uuid.UUID          `json:"client_id,omitempty"`
	CustomerName        string              `json:"customer_name"`
	CustomerEmail       string              `json:"customer_email"`
	CustomerPhone       string              `json:"customer_phone,omitempty"`
	Items               []OrderItemResponse `json:"items"`
	SubtotalBase        decimal.Decimal     `json:"subtotal_base"`
	BrokerRevenueShare  decimal.Decimal     `json:"broker_revenue_share"`
	BrokerMarkup        decimal.Decimal     `json:"broker_markup"`
	BrokerTotalEarnings decimal.Decimal     `json:"broker_total_earnings"`
	Discount            decimal.Decimal     `json:"discount"`
	PlatformNetRevenue  decimal.Decimal     `json:"platform_net_revenue"`
	TotalCharged        decimal.Decimal     `json:"total_charged"`
	PromoCode           string              `json:"promo_code,omitempty"`
	Status              string              `json:"status"`
	PaymentStatus       string              `json:"payment_status"`
	PaymentMethod       string              `json:"payment_method,omitempty"`
	PaidAt              *time.Time          `json:"paid_at,omitempty"`
	StripeSessionID     string              `json:"stripe_session_id,omitempty"`
	SupplierOrderID     string              `json:"supplier_order_id,omitempty"`
	SupplierStatus      string              `json:"supplier_status,omitempty"`
	FulfilledAt         *time.Time          `json:"fulfilled_at,omitempty"`
	CompletedAt         *time.Time          `json:"completed_at,omitempty"`
	CancelledAt         *time.Time          `json:"cancelled_at,omitempty"`
	Note                string              `json:"note,omitempty"`
	Client              *ClientSummary      `json:"client,omitempty"`
	CreatedAt           time.Time           `json:"created_at"`
	UpdatedAt           time.Time           `json:"updated_at"`
}

// ToOrderResponse converts a domain Order to OrderResponse
func ToOrderResponse(o *order.Order) OrderResponse {
	resp := OrderResponse{
		ID:                  o.ID,
		OrderNumber:         o.OrderNumber,
		BrokerID:            o.BrokerID,
		ClientID:            o.ClientID,
		CustomerName:        o.Customer.Name,
		CustomerEmail:       o.Customer.Email,
		CustomerPhone:       o.Customer.Phone,
		Items:               toItemResponses(o.Items),
		SubtotalBase:        o.SubtotalBase.USD(),
		BrokerRevenueShare:  o.BrokerRevenueShare.USD(),
		BrokerMarkup:        o.BrokerMarkup.USD(),
		BrokerTotalEarnings: o.BrokerRevenueShare.Add(o.BrokerMarkup).USD(),
		Discount:            o.Discount.USD(),
		PlatformNetRevenue:  o.PlatformNetRevenue.USD(),
		TotalCharged:        o.TotalCharged.USD(),
		PromoCode:           o.PromoCode,
		Status:              o.Status.String(),
		PaymentStatus:       o.PaymentStatus.String(),
		PaymentMethod:       o.PaymentMethod.String(),
		PaidAt:              o.PaidAt,
		StripeSessionID:     o.StripeSessionID,
		SupplierOrderID:     o.SupplierOrderID,
		SupplierStatus:      o.SupplierStatus,
		FulfilledAt:         o.FulfilledAt,
		CompletedAt:         o.CompletedAt,
		CancelledAt:         o.CancelledAt,
		Note:                o.Note,
		CreatedAt:           o.CreatedAt,
		UpdatedAt:           o.UpdatedAt,
	}
	return resp
}

func toItemResponses(items []order.Item) []OrderItemResponse {
	out := make([]OrderItemResponse, len(items))
	for i, it := range items {
		out[i] = OrderItemResponse{
			ID:                 it.ID,
			CardID:             it.CardID,
			BankName:           it.BankName,
			CreditLimit:        it.CreditLimit,
			Quantity:           it.Quantity,
			BasePrice:          it.BasePrice.USD(),
			BrokerRevenueShare: it.BrokerRevenueShare.USD(),
			BrokerMarkup:       it.BrokerMarkup.USD(),
			CustomerPrice:      it.CustomerPrice.USD(),
			LineTotal:          it.LineTotal().USD(),
		}
	}
	return out
}

// PortalItemResponse is a purchased line as the client sees it
type PortalItemResponse struct {
	CardID      string          `json:"card_id"`
	BankName    string          `json:"bank_name"`
	CreditLimit int64           `json:"credit_limit"`
	Quantity    int             `json:"quantity"`
	UnitPrice   decimal.Decimal `json:"unit_price"`
	LineTotal   decimal.Decimal `json:"line_total"`
}

// PortalOrderResponse is an order as the client sees it. Commission splits are omitted.
type PortalOrderResponse struct {
	ID            uuid.UUID            `json:"id"`
	OrderNumber   string               `json:"order_number"`
	Items         []PortalItemResponse `json:"items"`
	Discount      decimal.Decimal      `json:"discount"`
	TotalCharged  decimal.Decimal      `json:"total_charged"`
	PromoCode     string               `json:"promo_code,omitempty"`
	Status        string               `json:"status"`
	PaymentStatus string               `json:"payment_status"`
	PaidAt        *time.Time           `json:"paid_at,omitempty"`
	CompletedAt   *time.Time           `json:"completed_at,omitempty"`
	CreatedAt     time.Time            `json:"created_at"`
}

// ToPortalOrderResponse converts an order for the client portal
func ToPortalOrderResponse(o *order.Order) PortalOrderResponse {
	resp := PortalOrderResponse{
		ID:            o.ID,
		OrderNumber:   o.OrderNumber,
		Items:         make([]PortalItemResponse, len(o.Items)),
		Discount:      o.Discount.USD(),
		TotalCharged:  o.TotalCharged.USD(),
		PromoCode:     o.PromoCode,
		Status:        o.Status.String(),
		PaymentStatus: o.PaymentStatus.String(),
		PaidAt:        o.PaidAt,
		CompletedAt:   o.CompletedAt,
		CreatedAt:     o.CreatedAt,
	}
	for i, it := range o.Items {
		resp.Items[i] = PortalItemResponse{
			CardID:      it.CardID,
			BankName:    it.BankName,
			CreditLimit: it.CreditLimit,
			Quantity:    it.Quantity,
			UnitPrice:   it.CustomerPrice.USD(),
			LineTotal:   it.LineTotal().USD(),
		}
	}
	return resp
}

// StatsResponse is the dashboard summary over orders
type StatsResponse struct {
	Total           int64           `json:"orders_total"`
	Pending         int64           `json:"orders_pending"`
	Completed       int64           `json:"orders_completed"`
	PlatformRevenue decimal.Decimal `json:"revenue_platform"`
	GrossSales      decimal.Decimal `json:"gross_sales"`
	BrokerEarnings  decimal.Decimal `json:"broker_earnings"`
}

// ToStatsResponse converts order stats
func ToStatsResponse(s order.Stats) StatsResponse {
	return StatsResponse{
		Total:           s.Total,
		Pending:         s.Pending,
		Completed:       s.Completed,
		PlatformRevenue: s.PlatformRevenue.USD(),
		GrossSales:      s.GrossSales.USD(),
		BrokerEarnings:  s.BrokerEarnings.USD(),
	}
}

func baseName(key string) string {
	if key == "" {
		return ""
	}
	return path.Base(key)
}
