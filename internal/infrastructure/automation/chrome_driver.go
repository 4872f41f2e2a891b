package automation

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/chromedp/cdproto/network"
	"github.com/chromedp/chromedp"
	"github.com/tradelinemarket/backend/internal/infrastructure/config"
	"go.uber.org/zap"
)

// Storefront selectors
const (
	selCouponInput  = "#coupon_code"
	selApplyCoupon  = `button[name="apply_coupon"]`
	selCheckoutForm = "form.checkout"
	selOrderTotal   = ".order-total .amount"
)

var orderTotalJS = `(document.querySelector("` + selOrderTotal + `") || {}).textContent || ""`

// field is one billing input on the checkout page
type field struct {
	Selector string
	Value    string
}

// checkoutPlan is the navigation sequence for one order
type checkoutPlan struct {
	AddToCartURLs []string
	CartURL       string
	CheckoutURL   string
	PromoCode     string
	Billing       []field
}

func buildPlan(storeURL string, oc OrderContext) (checkoutPlan, error) {
	base, err := url.Parse(strings.TrimRight(storeURL, "/"))
	if err != nil || base.Scheme == "" || base.Host == "" {
		return checkoutPlan{}, fmt.Errorf("automation: invalid store url %q", storeURL)
	}
	if len(oc.Items) == 0 {
		return checkoutPlan{}, errors.New("automation: order has no items")
	}

	p := checkoutPlan{
		CartURL:     base.String() + "/cart/",
		CheckoutURL: base.String() + "/checkout/",
		PromoCode:   oc.PromoCode,
	}
	for _, it := range oc.Items {
		qty := it.Quantity
		if qty < 1 {
			qty = 1
		}
		q := url.Values{}
		q.Set("add-to-cart", it.CardID)
		if qty > 1 {
			q.Set("quantity", fmt.Sprint(qty))
		}
		p.AddToCartURLs = append(p.AddToCartURLs, base.String()+"/?"+q.Encode())
	}

	first, last := splitName(oc.ClientName)
	candidates := []field{
		{"#billing_first_name", first},
		{"#billing_last_name", last},
		{"#billing_email", oc.ClientEmail},
		{"#billing_phone", oc.ClientPhone},
		{"#billing_address_1", oc.ClientAddress.Street},
		{"#billing_city", oc.ClientAddress.City},
		{"#billing_state", oc.ClientAddress.State},
		{"#billing_postcode", oc.ClientAddress.ZipCode},
	}
	for _, f := range candidates {
		if f.Value != "" {
			p.Billing = append(p.Billing, f)
		}
	}
	return p, nil
}

func splitName(full string) (string, string) {
	parts := strings.Fields(full)
	switch len(parts) {
	case 0:
		return "Client", "User"
	case 1:
		return parts[0], "User"
	}
	return parts[0], strings.Join(parts[1:], " ")
}

// ChromeDriver runs the plan in a Chrome instance via the DevTools protocol
type ChromeDriver struct {
	storeURL    string
	logger      *zap.Logger
	allocCtx    context.Context
	allocCancel context.CancelFunc
}

// NewChromeDriver creates a driver. An empty RemoteURL launches a local browser.
func NewChromeDriver(cfg config.AutomationConfig, storeURL string, logger *zap.Logger) (*ChromeDriver, error) {
	if storeURL == "" {
		return nil, errors.New("automation: store url is required")
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	d := &ChromeDriver{storeURL: storeURL, logger: logger.Named("chrome")}
	if cfg.RemoteURL != "" {
		d.allocCtx, d.allocCancel = chromedp.NewRemoteAllocator(context.Background(), cfg.RemoteURL)
		return d, nil
	}

	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", cfg.Headless),
		chromedp.Flag("disable-gpu", true),
		chromedp.Flag("no-first-run", true),
		chromedp.Flag("disable-extensions", true),
		chromedp.Flag("disable-dev-shm-usage", true),
		chromedp.Flag("no-sandbox", true),
		chromedp.WindowSize(1366, 900),
	)
	d.allocCtx, d.allocCancel = chromedp.NewExecAllocator(context.Background(), opts...)
	return d, nil
}

// Run adds every card to the cart, applies the promo and fills checkout billing.
// It stops before the payment step and reports the checkout total it saw.
func (d *ChromeDriver) Run(ctx context.Context, oc OrderContext) (map[string]any, error) {
	plan, err := buildPlan(d.storeURL, oc)
	if err != nil {
		return nil, err
	}

	browserCtx, cancel := chromedp.NewContext(d.allocCtx,
		chromedp.WithLogf(func(format string, args ...interface{}) {
			d.logger.Debug(fmt.Sprintf(format, args...))
		}),
	)
	defer cancel()
	stop := context.AfterFunc(ctx, cancel)
	defer stop()

	started := time.Now()
	var total string
	tasks := chromedp.Tasks{network.Enable(), network.SetCacheDisabled(true)}
	for _, u := range plan.AddToCartURLs {
		tasks = append(tasks,
			chromedp.Navigate(u),
			chromedp.WaitReady("body", chromedp.ByQuery),
		)
	}
	tasks = append(tasks,
		chromedp.Navigate(plan.CartURL),
		chromedp.WaitVisible(selCouponInput, chromedp.ByQuery),
		chromedp.SetValue(selCouponInput, plan.PromoCode, chromedp.ByQuery),
		chromedp.Click(selApplyCoupon, chromedp.ByQuery),
		chromedp.Sleep(2*time.Second),
		chromedp.Navigate(plan.CheckoutURL),
		chromedp.WaitVisible(selCheckoutForm, chromedp.ByQuery),
	)
	for _, f := range plan.Billing {
		tasks = append(tasks,
			chromedp.SetValue(f.Selector, "", chromedp.ByQuery),
			chromedp.SendKeys(f.Selector, f.Value, chromedp.ByQuery),
		)
	}
	tasks = append(tasks, chromedp.Evaluate(orderTotalJS, &total))

	if err := chromedp.Run(browserCtx, tasks); err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, fmt.Errorf("automation: browser run failed: %w", err)
	}

	d.logger.Info("Checkout staged",
		zap.String("order_number", oc.OrderNumber),
		zap.Int("cards", len(plan.AddToCartURLs)),
		zap.Duration("duration", time.Since(started)))

	return map[string]any{
		"cards_added":    len(plan.AddToCartURLs),
		"promo_code":     plan.PromoCode,
		"checkout_total": strings.TrimSpace(total),
		"stage":          "awaiting_payment",
	}, nil
}

// Close shuts the browser allocator down
func (d *ChromeDriver) Close() {
	if d.allocCancel != nil {
		d.allocCancel()
	}
}

var _ Driver = (*ChromeDriver)(nil)
