package integration

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	appcatalog "github.com/tradelinemarket/backend/internal/application/catalog"
	apporder "github.com/tradelinemarket/backend/internal/application/order"
	apppayout "github.com/tradelinemarket/backend/internal/application/payout"
	"github.com/tradelinemarket/backend/internal/domain/analytics"
	"github.com/tradelinemarket/backend/internal/domain/broker"
	"github.com/tradelinemarket/backend/internal/domain/order"
	"github.com/tradelinemarket/backend/internal/domain/pricing"
	"github.com/tradelinemarket/backend/internal/domain/shared"
	"github.com/tradelinemarket/backend/internal/domain/shared/valueobject"
	"github.com/tradelinemarket/backend/internal/infrastructure/persistence"
	"github.com/tradelinemarket/backend/tests/testutil"
)

// fixedQuoter prices every cart from a static supplier price list
type fixedQuoter struct {
	prices map[string]pricing.LineInput
}

func (q fixedQuoter) Quote(_ context.Context, items []appcatalog.QuoteItem, terms *pricing.BrokerTerms, promoCode string, _ []string) (pricing.Quote, error) {
	lines := make([]pricing.LineInput, 0, len(items))
	for _, item := range items {
		line, ok := q.prices[item.CardID]
		if !ok {
			return pricing.Quote{}, shared.NewDomainError("TRADELINE_NOT_FOUND", "Unknown tradeline")
		}
		line.Quantity = item.Quantity
		lines = append(lines, line)
	}
	return pricing.BuildQuote(lines, terms, promoCode)
}

type marketplaceSetup struct {
	DB      *TestDB
	Orders  *apporder.OrderService
	Payouts *apppayout.PayoutService
	Broker  *broker.Broker
	Admin   analytics.Actor
}

func newMarketplaceSetup(t *testing.T) *marketplaceSetup {
	t.Helper()
	testDB := NewTestDB(t)
	db := testDB.DB

	b, _ := testutil.NewActiveBroker(t)
	testDB.SaveBroker(b)

	scope := persistence.NewGormTransactionScope(db)
	brokers := persistence.NewGormBrokerRepository(db)
	commissions := persistence.NewGormCommissionRepository(db)

	orders := apporder.NewOrderService(apporder.OrderServiceDeps{
		Scope:    scope,
		Orders:   persistence.NewGormOrderRepository(db),
		Clients:  persistence.NewGormClientRepository(db),
		Brokers:  brokers,
		Activity: persistence.NewGormActivityRepository(db),
		Quoter: fixedQuoter{prices: map[string]pricing.LineInput{
			"101": {CardID: "101", BankName: "Chase", CreditLimit: 10000, BasePrice: valueobject.Cents(50000)},
			"202": {CardID: "202", BankName: "Citi", CreditLimit: 25000, BasePrice: valueobject.Cents(80000)},
		}},
		Events:    testutil.NewRecordingPublisher(),
		PortalURL: "https://portal.test",
		Logger:    zap.NewNop(),
	})
	payouts := apppayout.NewPayoutService(apppayout.PayoutServiceDeps{
		Scope:       scope,
		Payouts:     persistence.NewGormPayoutRepository(db),
		Commissions: commissions,
		Brokers:     brokers,
		Logger:      zap.NewNop(),
	})

	return &marketplaceSetup{
		DB:      testDB,
		Orders:  orders,
		Payouts: payouts,
		Broker:  b,
		Admin:   analytics.Actor{Role: "admin"},
	}
}

func (s *marketplaceSetup) checkout(t *testing.T, email string) *apporder.CheckoutResponse {
	t.Helper()
	terms := s.Broker.Terms()
	resp, err := s.Orders.Checkout(context.Background(), apporder.CheckoutRequest{
		BrokerID: &s.Broker.ID,
		Terms:    &terms,
		Customer: apporder.CheckoutCustomer{
			Name:      "John Client",
			Email:     email,
			Password:  "supersecret1",
			Signature: "John Client",
		},
		Items: []appcatalog.QuoteItem{
			{CardID: "101", Quantity: 1},
			{CardID: "202", Quantity: 1},
		},
		PromoCode: pricing.BundlePromoCode,
	})
	require.NoError(t, err)
	return resp
}

// =============================================================================
// Checkout
// =============================================================================

func TestMarketplace_CheckoutPersistsOrderAndCommission(t *testing.T) {
	s := newMarketplaceSetup(t)
	ctx := context.Background()

	resp := s.checkout(t, "John@Client.test")

	got, err := s.Orders.GetByID(ctx, resp.OrderID)
	require.NoError(t, err)
	assert.Equal(t, resp.OrderNumber, got.OrderNumber)
	assert.Equal(t, string(order.StatusPending), got.Status)
	assert.Equal(t, string(order.PaymentStatusUnpaid), got.PaymentStatus)
	assert.Len(t, got.Items, 2)
	assert.True(t, got.Discount.IsPositive(), "bundle promo discounts the second line")

	var commissions int64
	require.NoError(t, s.DB.DB.Table("commission_records").Where("order_id = ?", resp.OrderID).Count(&commissions).Error)
	assert.Equal(t, int64(1), commissions)

	cl, err := persistence.NewGormClientRepository(s.DB.DB).FindByEmail(ctx, "john@client.test")
	require.NoError(t, err)
	assert.True(t, cl.HasPortalAccess())

	t.Run("repeat buyer reuses the client record", func(t *testing.T) {
		s.checkout(t, "john@client.test")
		var clients int64
		require.NoError(t, s.DB.DB.Table("clients").Count(&clients).Error)
		assert.Equal(t, int64(1), clients)
	})
}

// =============================================================================
// Settlement
// =============================================================================

func TestMarketplace_ConcurrentMarkPaidHasOneWinner(t *testing.T) {
	s := newMarketplaceSetup(t)
	ctx := context.Background()
	resp := s.checkout(t, "race@client.test")

	const workers = 8
	var (
		wg          sync.WaitGroup
		start       = make(chan struct{})
		wins        atomic.Int32
		alreadyPaid atomic.Int32
		unexpected  = make(chan error, workers)
	)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			<-start
			_, err := s.Orders.MarkPaid(ctx, resp.OrderID, apporder.MarkPaidRequest{PaymentMethod: "zelle"}, s.Admin)
			switch {
			case err == nil:
				wins.Add(1)
			case errors.Is(err, shared.ErrAlreadyPaid):
				alreadyPaid.Add(1)
			default:
				unexpected <- err
			}
		}()
	}
	close(start)
	wg.Wait()
	close(unexpected)

	for err := range unexpected {
		t.Errorf("unexpected settlement error: %v", err)
	}
	assert.Equal(t, int32(1), wins.Load())
	assert.Equal(t, int32(workers-1), alreadyPaid.Load())

	got, err := s.Orders.GetByID(ctx, resp.OrderID)
	require.NoError(t, err)
	assert.Equal(t, string(order.PaymentStatusPaid), got.PaymentStatus)
	assert.Equal(t, string(order.StatusProcessing), got.Status)

	daily, err := persistence.NewGormAnalyticsRepository(s.DB.DB).FindRange(ctx, s.Broker.ID, analytics.Day(time.Now()).AddDate(0, 0, -1))
	require.NoError(t, err)
	require.Len(t, daily, 1)
	assert.Equal(t, int64(1), daily[0].Orders, "analytics counts the order once")

	var settled int64
	require.NoError(t, s.DB.DB.Table("activity_logs").Where("action = ?", analytics.ActionOrderMarkedPaid).Count(&settled).Error)
	assert.Equal(t, int64(1), settled)
}

// =============================================================================
// Payouts
// =============================================================================

func TestMarketplace_PayoutLifecycle(t *testing.T) {
	s := newMarketplaceSetup(t)
	ctx := context.Background()

	resp := s.checkout(t, "payout@client.test")

	t.Run("unfinished orders are not payable", func(t *testing.T) {
		_, err := s.Payouts.Create(ctx, apppayout.CreatePayoutRequest{BrokerID: s.Broker.ID, PaymentMethod: "ACH"}, s.Admin)
		var domainErr *shared.DomainError
		require.ErrorAs(t, err, &domainErr)
		assert.Equal(t, "NO_COMMISSIONS", domainErr.Code)
	})

	_, err := s.Orders.MarkPaid(ctx, resp.OrderID, apporder.MarkPaidRequest{PaymentMethod: "WIRE"}, s.Admin)
	require.NoError(t, err)
	_, err = s.Orders.Complete(ctx, resp.OrderID, s.Admin)
	require.NoError(t, err)

	pending, err := s.Payouts.PendingForBroker(ctx, s.Broker.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(1), pending.RecordCount)
	assert.True(t, pending.Total.IsPositive())

	created, err := s.Payouts.Create(ctx, apppayout.CreatePayoutRequest{
		BrokerID:      s.Broker.ID,
		PeriodEnd:     time.Now(),
		PaymentMethod: "ACH",
	}, s.Admin)
	require.NoError(t, err)
	assert.Equal(t, 1, created.CommissionCount)
	assert.True(t, created.TotalAmount.Equal(pending.Total))
	assert.Equal(t, "PENDING", created.Status)

	t.Run("batched commissions leave the pending pool", func(t *testing.T) {
		pending, err := s.Payouts.PendingForBroker(ctx, s.Broker.ID)
		require.NoError(t, err)
		assert.Equal(t, int64(0), pending.RecordCount)
	})

	processed, err := s.Payouts.Process(ctx, created.ID, apppayout.ProcessPayoutRequest{TransactionID: "ach-7781"}, s.Admin)
	require.NoError(t, err)
	assert.Equal(t, "COMPLETED", processed.Status)
	assert.Equal(t, "ach-7781", processed.TransactionID)

	var statuses []string
	require.NoError(t, s.DB.DB.Table("commission_records").Where("payout_id = ?", created.ID).Pluck("payout_status", &statuses).Error)
	assert.Equal(t, []string{string(order.CommissionCompleted)}, statuses)

	t.Run("processing twice is rejected", func(t *testing.T) {
		_, err := s.Payouts.Process(ctx, created.ID, apppayout.ProcessPayoutRequest{TransactionID: "ach-7782"}, s.Admin)
		assert.Error(t, err)
	})

	t.Run("unknown payout", func(t *testing.T) {
		_, err := s.Payouts.Process(ctx, uuid.New(), apppayout.ProcessPayoutRequest{TransactionID: "x"}, s.Admin)
		assert.ErrorIs(t, err, shared.ErrNotFound)
	})
}
