package catalog

import (
	"github.com/shopspring/decimal"

	"github.com/tradelinemarket/backend/internal/domain/pricing"
)

// Currency is the only settlement currency
const Currency = "USD"

// TradelineResponse is a catalog entry as shown to customers
type TradelineResponse struct {
	CardID           string          `json:"card_id"`
	BankName         string          `json:"bank_name"`
	CreditLimit      int64           `json:"credit_limit"`
	DateOpened       string          `json:"date_opened"`
	PurchaseDeadline string          `json:"purchase_deadline"`
	ReportingPeriod  string          `json:"reporting_period"`
	Stock            int             `json:"stock"`
	Price            decimal.Decimal `json:"price"`
	Image            string          `json:"image,omitempty"`
}

// ToTradelineResponses converts priced entries, exposing only the customer price
func ToTradelineResponses(list []PricedTradeline) []TradelineResponse {
	out := make([]TradelineResponse, len(list))
	for i, p := range list {
		out[i] = TradelineResponse{
			CardID:           p.CardID,
			BankName:         p.BankName,
			CreditLimit:      p.CreditLimit,
			DateOpened:       p.DateOpened,
			PurchaseDeadline: p.PurchaseDeadline,
			ReportingPeriod:  p.ReportingPeriod,
			Stock:            p.Stock,
			Price:            p.Pricing.CustomerPrice.USD(),
			Image:            p.Image,
		}
	}
	return out
}

// QuoteLineResponse is one priced cart line
type QuoteLineResponse struct {
	CardID    string          `json:"card_id"`
	BankName  string          `json:"bank_name"`
	Quantity  int             `json:"quantity"`
	UnitPrice decimal.Decimal `json:"unit_price"`
	Total     decimal.Decimal `json:"total"`
	Discount  decimal.Decimal `json:"discount"`
}

// QuoteResponse is a priced cart
type QuoteResponse struct {
	Items     []QuoteLineResponse `json:"items"`
	Subtotal  decimal.Decimal     `json:"subtotal"`
	Discount  decimal.Decimal     `json:"discount"`
	Total     decimal.Decimal     `json:"total"`
	PromoCode string              `json:"promo_code,omitempty"`
	ItemCount int                 `json:"item_count"`
	Currency  string              `json:"currency"`
}

// ToQuoteResponse converts a quote for the widget
func ToQuoteResponse(q pricing.Quote) QuoteResponse {
	resp := QuoteResponse{
		Items:     make([]QuoteLineResponse, len(q.Lines)),
		Discount:  q.Discount.USD(),
		Total:     q.TotalCharged.USD(),
		PromoCode: q.PromoCode,
		Currency:  Currency,
	}
	subtotal := q.TotalCharged.Add(q.Discount)
	resp.Subtotal = subtotal.USD()
	for i, l := range q.Lines {
		resp.Items[i] = QuoteLineResponse{
			CardID:    l.CardID,
			BankName:  l.BankName,
			Quantity:  l.Quantity,
			UnitPrice: l.CustomerPrice.USD(),
			Total:     l.LineTotal.USD(),
			Discount:  l.Discount.USD(),
		}
		resp.ItemCount += l.Quantity
	}
	return resp
}
