package handler

import (
	"context"
	"net/http"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	appbroker "github.com/tradelinemarket/backend/internal/application/broker"
	appcatalog "github.com/tradelinemarket/backend/internal/application/catalog"
	apporder "github.com/tradelinemarket/backend/internal/application/order"
	appwidget "github.com/tradelinemarket/backend/internal/application/widget"
	"github.com/tradelinemarket/backend/internal/domain/broker"
	"github.com/tradelinemarket/backend/internal/domain/pricing"
	"github.com/tradelinemarket/backend/internal/domain/shared"
	"github.com/tradelinemarket/backend/internal/infrastructure/config"
	"github.com/tradelinemarket/backend/internal/interfaces/http/middleware"
	"github.com/tradelinemarket/backend/tests/testutil"
)

const testAPIKey = "tlm_0123456789abcdef0123456789abcdef0123456789abcdef0123456789abcdef"

type keyAuthenticator struct {
	wb appbroker.WidgetBroker
}

func (a keyAuthenticator) AuthenticateAPIKey(_ context.Context, key string) (*appbroker.WidgetBroker, error) {
	if key != testAPIKey {
		return nil, shared.NewDomainError("UNAUTHORIZED", "Invalid API key")
	}
	wb := a.wb
	return &wb, nil
}

type fixedQuoter struct {
	calls []string
}

func (q *fixedQuoter) Quote(_ context.Context, items []appcatalog.QuoteItem, terms *pricing.BrokerTerms, promo string, _ []string) (pricing.Quote, error) {
	lines := make([]pricing.LineInput, len(items))
	for i, it := range items {
		lines[i] = pricing.LineInput{CardID: it.CardID, BankName: "Chase", CreditLimit: 10000, BasePrice: 20000, Quantity: it.Quantity}
		q.calls = append(q.calls, it.CardID)
	}
	return pricing.BuildQuote(lines, terms, promo)
}

type recordingPlacer struct {
	got *apporder.CheckoutRequest
}

func (p *recordingPlacer) Checkout(_ context.Context, req apporder.CheckoutRequest) (*apporder.CheckoutResponse, error) {
	p.got = &req
	return &apporder.CheckoutResponse{OrderID: uuid.New(), OrderNumber: "TL-20260101-ABC123", Total: decimal.NewFromInt(230)}, nil
}

type widgetFixture struct {
	wb        appbroker.WidgetBroker
	analytics *testutil.MockAnalyticsRepository
	placer    *recordingPlacer
	router    *gin.Engine
}

func setupWidgetHandler(t *testing.T) *widgetFixture {
	t.Helper()
	f := &widgetFixture{
		wb: appbroker.WidgetBroker{
			ID:      uuid.New(),
			Name:    "Jane Broker",
			Website: "https://brokerage.test",
			Status:  broker.StatusActive,
			Terms:   testutil.BrokerTerms(),
		},
		analytics: new(testutil.MockAnalyticsRepository),
		placer:    &recordingPlacer{},
	}
	svc := appwidget.NewWidgetService(appwidget.WidgetServiceDeps{
		Quoter:    &fixedQuoter{},
		Orders:    f.placer,
		Analytics: f.analytics,
		Config:    config.WidgetConfig{},
		Logger:    zap.NewNop(),
	})
	h := NewWidgetHandler(svc)

	f.router = newTestRouter(nil)
	g := f.router.Group("/public", middleware.APIKeyAuth(keyAuthenticator{wb: f.wb}, zap.NewNop()))
	g.POST("/calculate", h.Calculate)
	g.POST("/track", h.Track)
	g.GET("/config", h.Config)
	g.POST("/checkout", h.Checkout)
	return f
}

func withKey() map[string]string {
	return map[string]string{middleware.APIKeyHeader: testAPIKey}
}

// =============================================================================
// Authentication
// =============================================================================

func TestWidgetHandler_APIKey(t *testing.T) {
	f := setupWidgetHandler(t)

	t.Run("missing", func(t *testing.T) {
		w := testutil.PerformRequest(t, f.router, http.MethodGet, "/public/config", nil, nil)
		testutil.AssertErrorCode(t, w, http.StatusUnauthorized, "ERR_INVALID_API_KEY")
	})

	t.Run("unknown", func(t *testing.T) {
		w := testutil.PerformRequest(t, f.router, http.MethodGet, "/public/config", nil,
			map[string]string{middleware.APIKeyHeader: "tlm_nope"})
		testutil.AssertErrorCode(t, w, http.StatusUnauthorized, "ERR_INVALID_API_KEY")
	})

	t.Run("query parameter", func(t *testing.T) {
		w := testutil.PerformRequest(t, f.router, http.MethodGet, "/public/config?api_key="+testAPIKey, nil, nil)
		assert.Equal(t, http.StatusOK, w.Code)
	})
}

// =============================================================================
// Endpoints
// =============================================================================

func TestWidgetHandler_Config(t *testing.T) {
	f := setupWidgetHandler(t)

	w := testutil.PerformRequest(t, f.router, http.MethodGet, "/public/config", nil, withKey())

	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	cfg := testutil.DecodeData[appwidget.ConfigResponse](t, w)
	assert.Equal(t, "Jane Broker", cfg.Broker.Name)
	assert.Equal(t, 10, cfg.Features.MaxItemsPerOrder)
	assert.Equal(t, 3, cfg.Features.MaxQuantityPerItem)
	require.NotNil(t, cfg.Checkout.SuccessURL)
}

func TestWidgetHandler_Calculate(t *testing.T) {
	t.Run("priced with broker terms", func(t *testing.T) {
		f := setupWidgetHandler(t)

		w := testutil.PerformRequest(t, f.router, http.MethodPost, "/public/calculate", map[string]any{
			"items": []map[string]any{{"card_id": "101", "quantity": 1}},
		}, withKey())

		require.Equal(t, http.StatusOK, w.Code, w.Body.String())
		quote := testutil.DecodeData[appcatalog.QuoteResponse](t, w)
		// 200 base + 15% share + 10% markup
		assert.True(t, decimal.NewFromInt(250).Equal(quote.Total), quote.Total.String())
	})

	t.Run("quantity above limit", func(t *testing.T) {
		f := setupWidgetHandler(t)

		w := testutil.PerformRequest(t, f.router, http.MethodPost, "/public/calculate", map[string]any{
			"items": []map[string]any{{"card_id": "101", "quantity": 4}},
		}, withKey())

		testutil.AssertErrorCode(t, w, http.StatusBadRequest, "ERR_INVALID_INPUT")
	})

	t.Run("empty cart", func(t *testing.T) {
		f := setupWidgetHandler(t)

		w := testutil.PerformRequest(t, f.router, http.MethodPost, "/public/calculate", map[string]any{
			"items": []map[string]any{},
		}, withKey())

		testutil.AssertErrorCode(t, w, http.StatusBadRequest, "ERR_VALIDATION")
	})
}

func TestWidgetHandler_Track(t *testing.T) {
	t.Run("counts event", func(t *testing.T) {
		f := setupWidgetHandler(t)
		f.analytics.On("Increment", mock.Anything, f.wb.ID, mock.Anything, mock.Anything).Return(nil)

		w := testutil.PerformRequest(t, f.router, http.MethodPost, "/public/track", map[string]any{"event": "view"}, withKey())

		assert.Equal(t, http.StatusOK, w.Code, w.Body.String())
		f.analytics.AssertExpectations(t)
	})

	t.Run("unknown event", func(t *testing.T) {
		f := setupWidgetHandler(t)

		w := testutil.PerformRequest(t, f.router, http.MethodPost, "/public/track", map[string]any{"event": "purchase"}, withKey())

		testutil.AssertErrorCode(t, w, http.StatusBadRequest, "ERR_VALIDATION")
		f.analytics.AssertNotCalled(t, "Increment", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	})
}

func TestWidgetHandler_Checkout(t *testing.T) {
	f := setupWidgetHandler(t)

	w := testutil.PerformRequest(t, f.router, http.MethodPost, "/public/checkout", map[string]any{
		"customer": map[string]any{
			"name":          "John Client",
			"email":         "john@client.test",
			"date_of_birth": "1990-04-01",
			"signature":     "John Client",
		},
		"items":      []map[string]any{{"card_id": "101", "quantity": 1}},
		"promo_code": "PKGDEAL",
	}, withKey())

	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	require.NotNil(t, f.placer.got)
	assert.Equal(t, f.wb.ID, *f.placer.got.BrokerID)
	assert.Equal(t, "PKGDEAL", f.placer.got.PromoCode)
	require.NotNil(t, f.placer.got.Customer.DateOfBirth)
	assert.Equal(t, 1990, f.placer.got.Customer.DateOfBirth.Year())
	assert.Contains(t, f.placer.got.SuccessURL, "brokerage.test")
}
