// Package pricing computes customer prices and the platform/broker revenue split
// for tradelines sold through the marketplace.
package pricing

import (
	"fmt"

	"github.com/shopspring/decimal"
	"github.com/tradelinemarket/backend/internal/domain/shared"
	"github.com/tradelinemarket/backend/internal/domain/shared/valueobject"
)

// Commission policy. Base prices from the supplier already include the
// platform's gross commission; brokers receive a share of the base price.
const (
	PlatformCommissionPercent = 50
	MinBrokerSharePercent     = 10
	MaxBrokerSharePercent     = 25
	DefaultBrokerSharePercent = 10
)

// MarkupType selects how a broker markup value is interpreted
type MarkupType string

const (
	MarkupTypePercentage MarkupType = "PERCENTAGE"
	MarkupTypeFixed      MarkupType = "FIXED"
)

// IsValid checks if the markup type is valid
func (t MarkupType) IsValid() bool {
	return t == MarkupTypePercentage || t == MarkupTypeFixed
}

// String returns the string representation
func (t MarkupType) String() string {
	return string(t)
}

// BrokerTerms is the commercial configuration of a broker as seen by the calculator.
// MarkupValue is a percent for PERCENTAGE and cents for FIXED.
type BrokerTerms struct {
	RevenueSharePercent decimal.Decimal
	MarkupType          MarkupType
	MarkupValue         decimal.Decimal
}

// DefaultTerms returns terms for a newly registered broker
func DefaultTerms() BrokerTerms {
	return BrokerTerms{
		RevenueSharePercent: decimal.NewFromInt(DefaultBrokerSharePercent),
		MarkupType:          MarkupTypePercentage,
		MarkupValue:         decimal.Zero,
	}
}

// Validate checks markup bounds. Share percent is clamped rather than rejected.
func (t BrokerTerms) Validate() error {
	if !t.MarkupType.IsValid() {
		return shared.NewDomainError("INVALID_INPUT", fmt.Sprintf("Invalid markup type: %s", t.MarkupType))
	}
	if t.MarkupValue.IsNegative() {
		return shared.NewDomainError("INVALID_INPUT", "Markup value cannot be negative")
	}
	if t.MarkupType == MarkupTypePercentage && t.MarkupValue.GreaterThan(decimal.NewFromInt(100)) {
		return shared.NewDomainError("INVALID_INPUT", "Percentage markup must be between 0 and 100")
	}
	return nil
}

// EffectiveSharePercent clamps a configured share percent to the policy bounds
func EffectiveSharePercent(configured decimal.Decimal) decimal.Decimal {
	lo := decimal.NewFromInt(MinBrokerSharePercent)
	hi := decimal.NewFromInt(MaxBrokerSharePercent)
	if configured.LessThan(lo) {
		return lo
	}
	if configured.GreaterThan(hi) {
		return hi
	}
	return configured
}

// Breakdown is the per-unit price split for one tradeline
type Breakdown struct {
	BasePrice               valueobject.Cents `json:"base_price"`
	BrokerRevenueShare      valueobject.Cents `json:"broker_revenue_share"`
	BrokerMarkup            valueobject.Cents `json:"broker_markup"`
	CustomerPrice           valueobject.Cents `json:"customer_price"`
	PlatformGrossCommission valueobject.Cents `json:"platform_gross_commission"`
	PlatformNetRevenue      valueobject.Cents `json:"platform_net_revenue"`
	BrokerTotalEarnings     valueobject.Cents `json:"broker_total_earnings"`
}

// Calculate splits a supplier base price using the given broker terms.
// A nil terms value prices a direct (house) sale with no share and no markup.
func Calculate(base valueobject.Cents, terms *BrokerTerms) (Breakdown, error) {
	if base.IsNegative() {
		return Breakdown{}, shared.NewDomainError("INVALID_INPUT", "Base price cannot be negative")
	}

	gross := base.Percent(decimal.NewFromInt(PlatformCommissionPercent))
	b := Breakdown{
		BasePrice:               base,
		CustomerPrice:           base,
		PlatformGrossCommission: gross,
		PlatformNetRevenue:      gross,
	}
	if terms == nil {
		return b, nil
	}
	if err := terms.Validate(); err != nil {
		return Breakdown{}, err
	}

	b.BrokerRevenueShare = base.Percent(EffectiveSharePercent(terms.RevenueSharePercent))

	switch terms.MarkupType {
	case MarkupTypeFixed:
		b.BrokerMarkup = valueobject.Cents(terms.MarkupValue.Round(0).IntPart())
	case MarkupTypePercentage:
		b.BrokerMarkup = base.Percent(terms.MarkupValue)
	}

	b.CustomerPrice = base.Add(b.BrokerRevenueShare).Add(b.BrokerMarkup)
	b.PlatformNetRevenue = gross.Sub(b.BrokerRevenueShare)
	if b.PlatformNetRevenue.IsNegative() {
		b.PlatformNetRevenue = 0
	}
	b.BrokerTotalEarnings = b.BrokerRevenueShare.Add(b.BrokerMarkup)
	return b, nil
}
