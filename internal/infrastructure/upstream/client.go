// Package upstream is the client for the supplier's WooCommerce REST API:
// the pricing feed, order submission and order status.
package upstream

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/tradelinemarket/backend/internal/domain/catalog"
	"github.com/tradelinemarket/backend/internal/infrastructure/config"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

// OrderSource is sent as order metadata so the supplier can attribute orders
const OrderSource = "tradeline-marketplace"

// SupplierLineItem is one card to purchase
type SupplierLineItem struct {
	CardID   string
	Quantity int
}

// SupplierOrderRequest is the data needed to place an order with the supplier
type SupplierOrderRequest struct {
	PlatformOrderID string
	CustomerName    string
	CustomerEmail   string
	CustomerPhone   string
	Items           []SupplierLineItem
}

// SupplierOrder is the supplier's view of an order
type SupplierOrder struct {
	ID          json.Number `json:"id"`
	Number      string      `json:"number"`
	Status      string      `json:"status"`
	Total       string      `json:"total"`
	DateCreated string      `json:"date_created"`
}

type wooBilling struct {
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Email     string `json:"email"`
	Phone     string `json:"phone,omitempty"`
}

type wooLineItem struct {
	ProductID any `json:"product_id"`
	Quantity  int `json:"quantity"`
}

type wooMeta struct {
	Key   string `json:"key"`
	Value string `json:"value"`
}

type wooOrder struct {
	PaymentMethod      string        `json:"payment_method"`
	PaymentMethodTitle string        `json:"payment_method_title"`
	SetPaid            bool          `json:"set_paid"`
	Billing            wooBilling    `json:"billing"`
	LineItems          []wooLineItem `json:"line_items"`
	MetaData           []wooMeta     `json:"meta_data"`
}

type wooError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// Client calls the supplier API. Calls are rate limited client-side and
// never retried.
type Client struct {
	http    *resty.Client
	limiter *rate.Limiter
	signer  *signer
	baseURL string
	logger  *zap.Logger
}

// NewClient creates a supplier client from configuration
func NewClient(cfg config.UpstreamConfig, logger *zap.Logger) *Client {
	if logger == nil {
		logger = zap.NewNop()
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	rps := cfg.RateLimit
	if rps <= 0 {
		rps = 5
	}
	burst := cfg.RateBurst
	if burst <= 0 {
		burst = 10
	}
	baseURL := strings.TrimRight(cfg.BaseURL, "/")

	httpClient := resty.New().
		SetBaseURL(baseURL).
		SetTimeout(timeout).
		SetRetryCount(0).
		SetHeader("Accept", "application/json").
		SetHeader("Content-Type", "application/json")

	return &Client{
		http:    httpClient,
		limiter: rate.NewLimiter(rate.Limit(rps), burst),
		signer:  newSigner(cfg.ConsumerKey, cfg.ConsumerSecret),
		baseURL: baseURL,
		logger:  logger.Named("upstream"),
	}
}

// do sends a signed request and decodes a 2xx body into result
func (c *Client) do(ctx context.Context, method, path string, body, result any) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return &Error{Kind: KindGeneric, Message: "rate limiter wait cancelled", Err: err}
	}

	query, err := c.signer.sign(method, c.baseURL+path, nil)
	if err != nil {
		return &Error{Kind: KindGeneric, Message: "sign request", Err: err}
	}

	req := c.http.R().SetContext(ctx).SetQueryParamsFromValues(query)
	if body != nil {
		req.SetBody(body)
	}

	start := time.Now()
	resp, err := req.Execute(method, path)
	if err != nil {
		c.logger.Warn("Supplier request failed",
			zap.String("method", method), zap.String("path", path), zap.Error(err))
		return &Error{Kind: KindGeneric, Err: err}
	}

	c.logger.Debug("Supplier request",
		zap.String("method", method),
		zap.String("path", path),
		zap.Int("status", resp.StatusCode()),
		zap.Duration("latency", time.Since(start)),
	)

	if !resp.IsSuccess() {
		var we wooError
		_ = json.Unmarshal(resp.Body(), &we)
		message := we.Message
		if message == "" {
			message = http.StatusText(resp.StatusCode())
		}
		c.logger.Warn("Supplier returned error",
			zap.String("path", path), zap.Int("status", resp.StatusCode()), zap.String("message", message))
		return errorForStatus(resp.StatusCode(), message)
	}

	if result == nil {
		return nil
	}
	if err := json.Unmarshal(resp.Body(), result); err != nil {
		return &Error{Kind: KindGeneric, StatusCode: resp.StatusCode(), Message: "invalid response body", Err: err}
	}
	return nil
}

// FetchPricing returns the raw pricing feed. Prices include the platform commission.
func (c *Client) FetchPricing(ctx context.Context) ([]catalog.RawTradeline, error) {
	var rows []catalog.RawTradeline
	if err := c.do(ctx, http.MethodGet, "/pricing", nil, &rows); err != nil {
		return nil, err
	}
	c.logger.Info("Fetched supplier pricing", zap.Int("count", len(rows)))
	return rows, nil
}

// CreateOrder places a paid order with the supplier
func (c *Client) CreateOrder(ctx context.Context, req SupplierOrderRequest) (*SupplierOrder, error) {
	if len(req.Items) == 0 {
		return nil, &Error{Kind: KindGeneric, Message: "order has no items"}
	}

	first, last := splitName(req.CustomerName)
	payload := wooOrder{
		PaymentMethod:      "bacs",
		PaymentMethodTitle: "Direct Bank Transfer",
		SetPaid:            true,
		Billing: wooBilling{
			FirstName: first,
			LastName:  last,
			Email:     req.CustomerEmail,
			Phone:     req.CustomerPhone,
		},
		MetaData: []wooMeta{
			{Key: "platform_order_id", Value: req.PlatformOrderID},
			{Key: "source", Value: OrderSource},
		},
	}
	for _, item := range req.Items {
		payload.LineItems = append(payload.LineItems, wooLineItem{
			ProductID: productID(item.CardID),
			Quantity:  item.Quantity,
		})
	}

	var out SupplierOrder
	if err := c.do(ctx, http.MethodPost, "/orders", payload, &out); err != nil {
		return nil, err
	}
	c.logger.Info("Created supplier order",
		zap.String("supplier_order_id", out.ID.String()),
		zap.String("platform_order_id", req.PlatformOrderID))
	return &out, nil
}

// GetOrder fetches an order's current supplier status
func (c *Client) GetOrder(ctx context.Context, supplierOrderID string) (*SupplierOrder, error) {
	if strings.TrimSpace(supplierOrderID) == "" {
		return nil, &Error{Kind: KindGeneric, Message: "supplier order id is required"}
	}
	var out SupplierOrder
	if err := c.do(ctx, http.MethodGet, "/orders/"+supplierOrderID, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// ValidateCredentials reports whether the configured keys are accepted
func (c *Client) ValidateCredentials(ctx context.Context) (bool, error) {
	_, err := c.FetchPricing(ctx)
	if err == nil {
		return true, nil
	}
	if errors.Is(err, ErrUnauthorized) {
		return false, nil
	}
	return false, err
}

// splitName splits on the first space: the remainder is the last name
func splitName(name string) (string, string) {
	fields := strings.Fields(name)
	if len(fields) == 0 {
		return "", ""
	}
	return fields[0], strings.Join(fields[1:], " ")
}

// productID sends numeric card ids as numbers, which WooCommerce expects
func productID(cardID string) any {
	if n, err := strconv.ParseInt(cardID, 10, 64); err == nil {
		return n
	}
	return cardID
}

// IsCompleted reports whether the supplier considers the order fulfilled
func (o *SupplierOrder) IsCompleted() bool {
	return o != nil && strings.EqualFold(o.Status, "completed")
}
