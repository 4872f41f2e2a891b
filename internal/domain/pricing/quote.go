package pricing

import (
	"sort"
	"strings"

	"github.com/shopspring/decimal"
	"github.com/tradelinemarket/backend/internal/domain/shared"
	"github.com/tradelinemarket/backend/internal/domain/shared/valueobject"
)

// BundlePromoCode gives increasing discounts for multi-tradeline orders
const BundlePromoCode = "10-30OFF"

// LineInput is one requested tradeline with its supplier base price
type LineInput struct {
	CardID      string
	BankName    string
	CreditLimit int64
	BasePrice   valueobject.Cents
	Quantity    int
}

// QuoteLine is a priced line
type QuoteLine struct {
	CardID      string `json:"card_id"`
	BankName    string `json:"bank_name"`
	CreditLimit int64  `json:"credit_limit"`
	Quantity    int    `json:"quantity"`
	Breakdown
	LineTotal valueobject.Cents `json:"line_total"`
	Discount  valueobject.Cents `json:"discount"`
}

// Quote is the priced result for a set of lines
type Quote struct {
	Lines              []QuoteLine       `json:"lines"`
	SubtotalBase       valueobject.Cents `json:"subtotal_base"`
	BrokerRevenueShare valueobject.Cents `json:"broker_revenue_share"`
	BrokerMarkup       valueobject.Cents `json:"broker_markup"`
	PlatformNetRevenue valueobject.Cents `json:"platform_net_revenue"`
	Discount           valueobject.Cents `json:"discount"`
	PromoCode          string            `json:"promo_code,omitempty"`
	TotalCharged       valueobject.Cents `json:"total_charged"`
}

// BrokerTotalEarnings is revenue share plus markup across the quote
func (q Quote) BrokerTotalEarnings() valueobject.Cents {
	return q.BrokerRevenueShare.Add(q.BrokerMarkup)
}

// bundleDiscountPercent returns the discount for the unit at zero-based
// position i once units are ranked by customer price, highest first
func bundleDiscountPercent(i int) int64 {
	switch {
	case i == 0:
		return 0
	case i == 1:
		return 10
	case i == 2:
		return 20
	default:
		return 30
	}
}

// NormalizePromoCode trims and upper-cases a promo code
func NormalizePromoCode(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}

// BuildQuote prices every line and aggregates totals.
//
// With the bundle promo every line is split into single units, ranked by
// customer price (highest first, ties keep input order) and unit n is
// discounted by 0/10/20/30%. The discount scales base price, revenue share,
// markup and platform revenue of that unit down by the same factor, so the
// commission split follows the discounted price. Discounted units come back
// as lines of quantity 1.
func BuildQuote(lines []LineInput, terms *BrokerTerms, promoCode string) (Quote, error) {
	if len(lines) == 0 {
		return Quote{}, shared.NewDomainError("INVALID_INPUT", "At least one item is required")
	}

	promo := NormalizePromoCode(promoCode)
	if promo != "" && promo != BundlePromoCode {
		return Quote{}, shared.ErrInvalidPromo
	}

	priced := make([]QuoteLine, 0, len(lines))
	for _, in := range lines {
		if in.Quantity < 1 {
			return Quote{}, shared.NewDomainError("INVALID_INPUT", "Quantity must be at least 1")
		}
		b, err := Calculate(in.BasePrice, terms)
		if err != nil {
			return Quote{}, err
		}
		priced = append(priced, QuoteLine{
			CardID:      in.CardID,
			BankName:    in.BankName,
			CreditLimit: in.CreditLimit,
			Quantity:    in.Quantity,
			Breakdown:   b,
			LineTotal:   b.CustomerPrice.Mul(in.Quantity),
		})
	}

	if promo == BundlePromoCode {
		priced = applyBundleDiscount(priced)
	}

	q := Quote{Lines: priced, PromoCode: promo}
	for _, l := range priced {
		q.SubtotalBase = q.SubtotalBase.Add(l.BasePrice.Mul(l.Quantity))
		q.BrokerRevenueShare = q.BrokerRevenueShare.Add(l.BrokerRevenueShare.Mul(l.Quantity))
		q.BrokerMarkup = q.BrokerMarkup.Add(l.BrokerMarkup.Mul(l.Quantity))
		q.PlatformNetRevenue = q.PlatformNetRevenue.Add(l.PlatformNetRevenue.Mul(l.Quantity))
		q.Discount = q.Discount.Add(l.Discount)
		q.TotalCharged = q.TotalCharged.Add(l.LineTotal)
	}
	return q, nil
}

func applyBundleDiscount(lines []QuoteLine) []QuoteLine {
	units := make([]QuoteLine, 0, len(lines))
	for _, l := range lines {
		for n := 0; n < l.Quantity; n++ {
			unit := l
			unit.Quantity = 1
			unit.LineTotal = l.CustomerPrice
			units = append(units, unit)
		}
	}
	sort.SliceStable(units, func(i, j int) bool {
		return units[i].CustomerPrice > units[j].CustomerPrice
	})

	for i := range units {
		pct := bundleDiscountPercent(i)
		if pct == 0 {
			continue
		}
		units[i].Breakdown = units[i].Breakdown.scaled(decimal.NewFromInt(100 - pct))
		units[i].Discount = units[i].LineTotal.Sub(units[i].CustomerPrice)
		units[i].LineTotal = units[i].CustomerPrice
	}
	return units
}

// scaled keeps pct percent of every component. The customer price is rebuilt
// from the scaled parts so it always equals base + share + markup.
func (b Breakdown) scaled(pct decimal.Decimal) Breakdown {
	out := Breakdown{
		BasePrice:               b.BasePrice.Percent(pct),
		BrokerRevenueShare:      b.BrokerRevenueShare.Percent(pct),
		BrokerMarkup:            b.BrokerMarkup.Percent(pct),
		PlatformGrossCommission: b.PlatformGrossCommission.Percent(pct),
		PlatformNetRevenue:      b.PlatformNetRevenue.Percent(pct),
	}
	out.CustomerPrice = out.BasePrice.Add(out.BrokerRevenueShare).Add(out.BrokerMarkup)
	out.BrokerTotalEarnings = out.BrokerRevenueShare.Add(out.BrokerMarkup)
	return out
}
