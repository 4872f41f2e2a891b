package broker

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/tradelinemarket/backend/internal/domain/analytics"
	"github.com/tradelinemarket/backend/internal/domain/broker"
	"github.com/tradelinemarket/backend/internal/domain/pricing"
)

var hundred = decimal.NewFromInt(100)

// CreateBrokerRequest represents a request to register a broker.
// MarkupValue is a percent for PERCENTAGE and USD for FIXED.
type CreateBrokerRequest struct {
	Name                string
	Email               string
	CompanyName         string
	Phone               string
	Website             string
	Notes               string
	Password            string
	RevenueSharePercent *decimal.Decimal
	MarkupType          string
	MarkupValue         *decimal.Decimal
}

// UpdateBrokerRequest represents a partial broker update
type UpdateBrokerRequest struct {
	Name                *string
	Email               *string
	CompanyName         *string
	Phone               *string
	Website             *string
	Notes               *string
	Password            *string
	RevenueSharePercent *decimal.Decimal
	MarkupType          *string
	MarkupValue         *decimal.Decimal
}

func (r UpdateBrokerRequest) changesTerms() bool {
	return r.RevenueSharePercent != nil || r.MarkupType != nil || r.MarkupValue != nil
}

// BrokerResponse represents a broker in API responses. The secret hash is never exposed.
type BrokerResponse struct {
	ID                  uuid.UUID       `json:"id"`
	Name                string          `json:"name"`
	Email               string          `json:"email"`
	CompanyName         string          `json:"company_name,omitempty"`
	Phone               string          `json:"phone,omitempty"`
	Website             string          `json:"website,omitempty"`
	APIKey              string          `json:"api_key"`
	RevenueSharePercent decimal.Decimal `json:"revenue_share_percent"`
	MarkupType          string          `json:"markup_type"`
	MarkupValue         decimal.Decimal `json:"markup_value"`
	Status              string          `json:"status"`
	HasPassword         bool            `json:"has_password"`
	ApprovedAt          *time.Time      `json:"approved_at,omitempty"`
	LastLoginAt         *time.Time      `json:"last_login_at,omitempty"`
	Notes               string          `json:"notes,omitempty"`
	CreatedAt           time.Time       `json:"created_at"`
	UpdatedAt           time.Time       `json:"updated_at"`
}

// ToBrokerResponse converts a domain Broker to BrokerResponse
func ToBrokerResponse(b *broker.Broker) BrokerResponse {
	return BrokerResponse{
		ID:                  b.ID,
		Name:                b.Name,
		Email:               b.Email,
		CompanyName:         b.CompanyName,
		Phone:               b.Phone,
		Website:             b.Website,
		APIKey:              b.APIKey,
		RevenueSharePercent: b.RevenueSharePercent,
		MarkupType:          b.MarkupType.String(),
		MarkupValue:         displayMarkup(b.MarkupType, b.MarkupValue),
		Status:              b.Status.String(),
		HasPassword:         b.PasswordHash != "",
		ApprovedAt:          b.ApprovedAt,
		LastLoginAt:         b.LastLoginAt,
		Notes:               b.Notes,
		CreatedAt:           b.CreatedAt,
		UpdatedAt:           b.UpdatedAt,
	}
}

// ToBrokerResponses converts a slice of brokers
func ToBrokerResponses(list []broker.Broker) []BrokerResponse {
	out := make([]BrokerResponse, len(list))
	for i := range list {
		out[i] = ToBrokerResponse(&list[i])
	}
	return out
}

// CredentialsResponse carries a plaintext API secret. It is returned only on
// create and reset.
type CredentialsResponse struct {
	Broker    BrokerResponse `json:"broker"`
	APISecret string         `json:"api_secret"`
}

// DailyAnalyticsResponse is one day of widget counters
type DailyAnalyticsResponse struct {
	Date             string          `json:"date"`
	Views            int64           `json:"views"`
	Clicks           int64           `json:"clicks"`
	AddToCarts       int64           `json:"add_to_carts"`
	CheckoutsStarted int64           `json:"checkouts_started"`
	Orders           int64           `json:"orders"`
	Revenue          decimal.Decimal `json:"revenue"`
}

// AnalyticsResponse summarizes a broker's widget funnel
type AnalyticsResponse struct {
	BrokerID         uuid.UUID                `json:"broker_id"`
	Days             int                      `json:"days"`
	Views            int64                    `json:"total_views"`
	Clicks           int64                    `json:"total_clicks"`
	AddToCarts       int64                    `json:"total_add_to_carts"`
	CheckoutsStarted int64                    `json:"total_checkouts_started"`
	Orders           int64                    `json:"total_orders"`
	Revenue          decimal.Decimal          `json:"total_revenue"`
	ConversionRate   decimal.Decimal          `json:"conversion_rate"`
	Daily            []DailyAnalyticsResponse `json:"daily"`
}

func toAnalyticsResponse(brokerID uuid.UUID, days int, rows []analytics.Daily) AnalyticsResponse {
	sum := analytics.Summarize(rows)
	resp := AnalyticsResponse{
		BrokerID:         brokerID,
		Days:             days,
		Views:            sum.Views,
		Clicks:           sum.Clicks,
		AddToCarts:       sum.AddToCarts,
		CheckoutsStarted: sum.CheckoutsStarted,
		Orders:           sum.Orders,
		Revenue:          sum.Revenue.USD(),
		ConversionRate:   decimal.Zero,
		Daily:            make([]DailyAnalyticsResponse, len(rows)),
	}
	if sum.Views > 0 {
		resp.ConversionRate = decimal.NewFromInt(sum.Orders).Mul(hundred).Div(decimal.NewFromInt(sum.Views)).Round(2)
	}
	for i, r := range rows {
		resp.Daily[i] = DailyAnalyticsResponse{
			Date:             r.Date.Format("2006-01-02"),
			Views:            r.Views,
			Clicks:           r.Clicks,
			AddToCarts:       r.AddToCarts,
			CheckoutsStarted: r.CheckoutsStarted,
			Orders:           r.Orders,
			Revenue:          r.Revenue.USD(),
		}
	}
	return resp
}

// WidgetBroker is the cached view of a broker used to serve widget traffic
type WidgetBroker struct {
	ID          uuid.UUID           `json:"id"`
	Name        string              `json:"name"`
	CompanyName string              `json:"company_name"`
	Website     string              `json:"website"`
	Status      broker.Status       `json:"status"`
	Terms       pricing.BrokerTerms `json:"terms"`
}

// IsActive reports whether the broker may serve the widget
func (w WidgetBroker) IsActive() bool {
	return w.Status == broker.StatusActive
}

func toWidgetBroker(b *broker.Broker) WidgetBroker {
	return WidgetBroker{
		ID:          b.ID,
		Name:        b.Name,
		CompanyName: b.CompanyName,
		Website:     b.Website,
		Status:      b.Status,
		Terms:       b.Terms(),
	}
}

// termsFrom merges requested terms over base, converting FIXED markup from USD to cents
func termsFrom(base pricing.BrokerTerms, share *decimal.Decimal, markupType *string, markupValue *decimal.Decimal) pricing.BrokerTerms {
	terms := base
	if share != nil {
		terms.RevenueSharePercent = *share
	}
	if markupType != nil && *markupType != "" {
		if terms.MarkupType != pricing.MarkupType(*markupType) && markupValue == nil {
			terms.MarkupValue = decimal.Zero
		}
		terms.MarkupType = pricing.MarkupType(*markupType)
	}
	if markupValue != nil {
		terms.MarkupValue = *markupValue
		if terms.MarkupType == pricing.MarkupTypeFixed {
			terms.MarkupValue = markupValue.Mul(hundred).Round(0)
		}
	}
	return terms
}

func displayMarkup(t pricing.MarkupType, v decimal.Decimal) decimal.Decimal {
	if t == pricing.MarkupTypeFixed {
		return v.Div(hundred)
	}
	return v
}
