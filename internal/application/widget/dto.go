package widget

import (
	"time"

	appbroker "github.com/tradelinemarket/backend/internal/application/broker"
	appcatalog "github.com/tradelinemarket/backend/internal/application/catalog"
)

// BrokerInfo is the public face of the broker serving the widget
type BrokerInfo struct {
	Name         string `json:"name"`
	BusinessName string `json:"business_name,omitempty"`
	Website      string `json:"website,omitempty"`
}

// PricingSettings describes how prices were computed
type PricingSettings struct {
	MarkupType string `json:"markup_type"`
	Currency   string `json:"currency"`
}

// PricingResponse is the widget catalog
type PricingResponse struct {
	Broker    BrokerInfo                     `json:"broker"`
	Pricing   []appcatalog.TradelineResponse `json:"pricing"`
	Settings  PricingSettings                `json:"settings"`
	Timestamp time.Time                      `json:"timestamp"`
}

// Features toggles widget behavior
type Features struct {
	ShowStock            bool `json:"show_stock"`
	ShowPurchaseDeadline bool `json:"show_purchase_deadline"`
	ShowReportingPeriod  bool `json:"show_reporting_period"`
	EnableCart           bool `json:"enable_cart"`
	MaxItemsPerOrder     int  `json:"max_items_per_order"`
	MaxQuantityPerItem   int  `json:"max_quantity_per_item"`
}

// CheckoutURLs are where the hosted card checkout returns the buyer
type CheckoutURLs struct {
	SuccessURL *string `json:"success_url"`
	CancelURL  *string `json:"cancel_url"`
}

// ConfigResponse is the widget bootstrap configuration
type ConfigResponse struct {
	Broker   BrokerInfo      `json:"broker"`
	Features Features        `json:"features"`
	Theme    appbroker.Theme `json:"theme"`
	Checkout CheckoutURLs    `json:"checkout"`
}
