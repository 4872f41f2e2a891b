package handler

import (
	"github.com/shopspring/decimal"

	appbroker "github.com/tradelinemarket/backend/internal/application/broker"
)

// CreateBrokerRequest represents a request to register a broker
type CreateBrokerRequest struct {
	Name                string           `json:"name" binding:"required,notblank,max=200"`
	Email               string           `json:"email" binding:"required,email,max=255"`
	CompanyName         string           `json:"company_name" binding:"max=200"`
	Phone               string           `json:"phone" binding:"max=50"`
	Website             string           `json:"website" binding:"omitempty,url,max=500"`
	Notes               string           `json:"notes" binding:"max=2000"`
	Password            string           `json:"password" binding:"omitempty,min=8,max=128"`
	RevenueSharePercent *decimal.Decimal `json:"revenue_share_percent"`
	MarkupType          string           `json:"markup_type" binding:"omitempty,oneof=PERCENTAGE FIXED"`
	MarkupValue         *decimal.Decimal `json:"markup_value"`
}

func (r CreateBrokerRequest) toApp() appbroker.CreateBrokerRequest {
	return appbroker.CreateBrokerRequest{
		Name:                r.Name,
		Email:               r.Email,
		CompanyName:         r.CompanyName,
		Phone:               r.Phone,
		Website:             r.Website,
		Notes:               r.Notes,
		Password:            r.Password,
		RevenueSharePercent: r.RevenueSharePercent,
		MarkupType:          r.MarkupType,
		MarkupValue:         r.MarkupValue,
	}
}

// UpdateBrokerRequest represents a partial broker update. Omitted fields are unchanged.
type UpdateBrokerRequest struct {
	Name                *string          `json:"name" binding:"omitempty,notblank,max=200"`
	Email               *string          `json:"email" binding:"omitempty,email,max=255"`
	CompanyName         *string          `json:"company_name" binding:"omitempty,max=200"`
	Phone               *string          `json:"phone" binding:"omitempty,max=50"`
	Website             *string          `json:"website" binding:"omitempty,max=500"`
	Notes               *string          `json:"notes" binding:"omitempty,max=2000"`
	Password            *string          `json:"password" binding:"omitempty,min=8,max=128"`
	RevenueSharePercent *decimal.Decimal `json:"revenue_share_percent"`
	MarkupType          *string          `json:"markup_type" binding:"omitempty,oneof=PERCENTAGE FIXED"`
	MarkupValue         *decimal.Decimal `json:"markup_value"`
}

func (r UpdateBrokerRequest) toApp() appbroker.UpdateBrokerRequest {
	return appbroker.UpdateBrokerRequest{
		Name:                r.Name,
		Email:               r.Email,
		CompanyName:         r.CompanyName,
		Phone:               r.Phone,
		Website:             r.Website,
		Notes:               r.Notes,
		Password:            r.Password,
		RevenueSharePercent: r.RevenueSharePercent,
		MarkupType:          r.MarkupType,
		MarkupValue:         r.MarkupValue,
	}
}

// APISecretResponse is returned after a secret reset
type APISecretResponse struct {
	APIKey    string `json:"api_key"`
	APISecret string `json:"api_secret"`
}
