// Package catalog models the tradeline inventory mirrored from the supplier feed.
package catalog

import (
	"strings"

	"github.com/tradelinemarket/backend/internal/domain/shared/valueobject"
)

// RawTradeline is one row of the supplier pricing feed as received.
// Price, CreditLimit and Stock may be numbers or HTML-bearing strings.
type RawTradeline struct {
	CardID           any    `json:"card_id"`
	BankName         string `json:"bank_name"`
	CreditLimit      any    `json:"credit_limit"`
	DateOpened       string `json:"date_opened"`
	PurchaseDeadline string `json:"purchase_deadline"`
	ReportingPeriod  string `json:"reporting_period"`
	Stock            any    `json:"stock"`
	Price            any    `json:"price"`
	Image            string `json:"image"`
}

// Tradeline is a cleaned catalog entry. Price is the supplier base price in cents.
type Tradeline struct {
	CardID           string            `json:"card_id"`
	BankName         string            `json:"bank_name"`
	CreditLimit      int64             `json:"credit_limit"`
	DateOpened       string            `json:"date_opened"`
	PurchaseDeadline string            `json:"purchase_deadline"`
	ReportingPeriod  string            `json:"reporting_period"`
	Stock            int               `json:"stock"`
	Price            valueobject.Cents `json:"price"`
	Image            string            `json:"image,omitempty"`
}

// InStock reports whether the supplier still lists available slots
func (t Tradeline) InStock() bool {
	return t.Stock > 0
}

// NormalizeFeed cleans raw feed rows. Rows whose price parses to zero are
// treated as sold out and dropped.
func NormalizeFeed(rows []RawTradeline) []Tradeline {
	out := make([]Tradeline, 0, len(rows))
	for _, r := range rows {
		price := ParsePrice(r.Price)
		if price <= 0 {
			continue
		}
		out = append(out, Tradeline{
			CardID:           cardIDString(r.CardID),
			BankName:         strings.TrimSpace(StripTags(r.BankName)),
			CreditLimit:      int64(ParsePrice(r.CreditLimit)),
			DateOpened:       r.DateOpened,
			PurchaseDeadline: r.PurchaseDeadline,
			ReportingPeriod:  r.ReportingPeriod,
			Stock:            ParseStock(r.Stock),
			Price:            valueobject.NewCentsFromUSD(price),
			Image:            r.Image,
		})
	}
	return out
}

// ExcludeBanks drops tradelines whose bank name matches any of banks, case-insensitively
func ExcludeBanks(list []Tradeline, banks []string) []Tradeline {
	if len(banks) == 0 {
		return list
	}
	excluded := make(map[string]struct{}, len(banks))
	for _, b := range banks {
		if b = strings.ToLower(strings.TrimSpace(b)); b != "" {
			excluded[b] = struct{}{}
		}
	}
	out := make([]Tradeline, 0, len(list))
	for _, t := range list {
		if _, skip := excluded[strings.ToLower(t.BankName)]; skip {
			continue
		}
		out = append(out, t)
	}
	return out
}

// FindByCardID returns the tradeline with the given card id
func FindByCardID(list []Tradeline, cardID string) (Tradeline, bool) {
	for _, t := range list {
		if t.CardID == cardID {
			return t, true
		}
	}
	return Tradeline{}, false
}
