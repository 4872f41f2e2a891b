package payout

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	apporder "github.com/tradelinemarket/backend/internal/application/order"
	"github.com/tradelinemarket/backend/internal/domain/analytics"
	"github.com/tradelinemarket/backend/internal/domain/broker"
	"github.com/tradelinemarket/backend/internal/domain/order"
	"github.com/tradelinemarket/backend/internal/domain/payout"
	"github.com/tradelinemarket/backend/internal/domain/shared"
	"github.com/tradelinemarket/backend/internal/domain/shared/valueobject"
	"github.com/tradelinemarket/backend/tests/testutil"
)

type payoutFixture struct {
	payouts     *testutil.MockPayoutRepository
	commissions *testutil.MockCommissionRepository
	brokers     *testutil.MockBrokerRepository
	activity    *testutil.MockActivityRepository
	service     *PayoutService
}

func setupPayoutService(t *testing.T) *payoutFixture {
	t.Helper()
	f := &payoutFixture{
		payouts:     new(testutil.MockPayoutRepository),
		commissions: new(testutil.MockCommissionRepository),
		brokers:     new(testutil.MockBrokerRepository),
		activity:    new(testutil.MockActivityRepository),
	}
	f.service = NewPayoutService(PayoutServiceDeps{
		Scope: &apporder.NoOpTransactionScope{
			CommissionRepo: f.commissions,
			PayoutRepo:     f.payouts,
			ActivityRepo:   f.activity,
		},
		Payouts:     f.payouts,
		Commissions: f.commissions,
		Brokers:     f.brokers,
		Logger:      zap.NewNop(),
	})
	return f
}

func payableCommissions(t *testing.T, b *broker.Broker, n int) []order.CommissionRecord {
	t.Helper()
	out := make([]order.CommissionRecord, 0, n)
	for i := 0; i < n; i++ {
		o := testutil.NewPendingOrder(t, &b.ID, nil)
		c := order.NewCommissionRecord(o)
		require.NotNil(t, c)
		out = append(out, *c)
	}
	return out
}

// =============================================================================
// Pending
// =============================================================================

func TestPayoutService_Pending(t *testing.T) {
	ctx := context.Background()

	t.Run("adds broker names", func(t *testing.T) {
		f := setupPayoutService(t)
		b, _ := testutil.NewActiveBroker(t)
		gone := uuid.New()
		f.commissions.On("PendingTotals", ctx).Return([]order.PendingCommission{
			{BrokerID: b.ID, RecordCount: 2, RevenueShare: 4500, Markup: 3000, Total: 7500},
			{BrokerID: gone, RecordCount: 1, Total: 100},
		}, nil)
		f.brokers.On("FindByID", ctx, b.ID).Return(b, nil)
		f.brokers.On("FindByID", ctx, gone).Return(nil, shared.ErrNotFound)

		list, err := f.service.Pending(ctx)

		require.NoError(t, err)
		require.Len(t, list, 2)
		assert.Equal(t, "Jane Broker", list[0].BrokerName)
		assert.Equal(t, "75", list[0].Total.String())
		assert.Empty(t, list[1].BrokerName)
	})

	t.Run("broker with nothing owed", func(t *testing.T) {
		f := setupPayoutService(t)
		brokerID := uuid.New()
		f.commissions.On("PendingTotals", ctx).Return([]order.PendingCommission{}, nil)

		resp, err := f.service.PendingForBroker(ctx, brokerID)

		require.NoError(t, err)
		assert.Equal(t, brokerID, resp.BrokerID)
		assert.True(t, resp.Total.IsZero())
		assert.Zero(t, resp.RecordCount)
	})
}

// =============================================================================
// Create
// =============================================================================

func TestPayoutService_Create(t *testing.T) {
	ctx := context.Background()
	actor := analytics.Actor{Role: "admin", ID: ptr(uuid.New())}

	t.Run("batches payable commissions", func(t *testing.T) {
		f := setupPayoutService(t)
		b, _ := testutil.NewActiveBroker(t)
		commissions := payableCommissions(t, b, 2)
		start := time.Date(2026, 9, 1, 0, 0, 0, 0, time.UTC)
		end := time.Date(2026, 9, 30, 0, 0, 0, 0, time.UTC)

		f.brokers.On("FindByID", ctx, b.ID).Return(b, nil)
		f.commissions.On("FindPayable", ctx, b.ID, order.Period{
			From: start,
			To:   time.Date(2026, 10, 1, 0, 0, 0, 0, time.UTC),
		}).Return(commissions, nil)
		f.commissions.On("Update", ctx, mock.AnythingOfType("*order.CommissionRecord")).Return(nil).Twice()
		f.payouts.On("Save", ctx, mock.AnythingOfType("*payout.Payout")).Return(nil)
		f.activity.On("Create", ctx, testutil.ActionIs(analytics.ActionPayoutCreated)).Return(nil)

		resp, err := f.service.Create(ctx, CreatePayoutRequest{
			BrokerID:      b.ID,
			PeriodStart:   start,
			PeriodEnd:     end,
			PaymentMethod: "ACH",
		}, actor)

		require.NoError(t, err)
		want := commissions[0].TotalCommission.Add(commissions[1].TotalCommission)
		assert.Equal(t, want.USD().String(), resp.TotalAmount.String())
		assert.Equal(t, 2, resp.CommissionCount)
		assert.Equal(t, "PENDING", resp.Status)
		assert.Equal(t, "Jane Broker", resp.BrokerName)
		for _, c := range commissions {
			assert.Equal(t, order.CommissionProcessing, c.PayoutStatus)
			require.NotNil(t, c.PayoutID)
			assert.Equal(t, resp.ID, *c.PayoutID)
		}
		f.commissions.AssertExpectations(t)
		f.activity.AssertExpectations(t)
	})

	t.Run("nothing payable", func(t *testing.T) {
		f := setupPayoutService(t)
		b, _ := testutil.NewActiveBroker(t)
		f.brokers.On("FindByID", ctx, b.ID).Return(b, nil)
		f.commissions.On("FindPayable", ctx, b.ID, mock.Anything).Return([]order.CommissionRecord{}, nil)

		_, err := f.service.Create(ctx, CreatePayoutRequest{BrokerID: b.ID, PaymentMethod: "ACH"}, actor)

		var domainErr *shared.DomainError
		require.ErrorAs(t, err, &domainErr)
		assert.Equal(t, "NO_COMMISSIONS", domainErr.Code)
		f.payouts.AssertNotCalled(t, "Save", mock.Anything, mock.Anything)
	})

	t.Run("unknown broker", func(t *testing.T) {
		f := setupPayoutService(t)
		id := uuid.New()
		f.brokers.On("FindByID", ctx, id).Return(nil, shared.ErrNotFound)

		_, err := f.service.Create(ctx, CreatePayoutRequest{BrokerID: id, PaymentMethod: "ACH"}, actor)

		assert.ErrorIs(t, err, shared.ErrNotFound)
	})
}

// =============================================================================
// Process
// =============================================================================

func TestPayoutService_Process(t *testing.T) {
	ctx := context.Background()

	newPayout := func(t *testing.T) (*payout.Payout, []order.CommissionRecord) {
		t.Helper()
		b, _ := testutil.NewActiveBroker(t)
		commissions := payableCommissions(t, b, 1)
		p, err := payout.New(b.ID, order.Period{}, "WIRE", commissions)
		require.NoError(t, err)
		return p, commissions
	}

	t.Run("completes commissions", func(t *testing.T) {
		f := setupPayoutService(t)
		p, commissions := newPayout(t)
		f.payouts.On("FindByID", ctx, p.ID).Return(p, nil)
		f.commissions.On("FindByPayoutID", ctx, p.ID).Return(commissions, nil)
		f.commissions.On("Update", ctx, mock.AnythingOfType("*order.CommissionRecord")).Return(nil)
		f.payouts.On("Save", ctx, p).Return(nil)
		f.activity.On("Create", ctx, testutil.ActionIs(analytics.ActionPayoutProcessed)).Return(nil)

		resp, err := f.service.Process(ctx, p.ID, ProcessPayoutRequest{TransactionID: " WIRE-123 "}, analytics.SystemActor)

		require.NoError(t, err)
		assert.Equal(t, "COMPLETED", resp.Status)
		assert.Equal(t, "WIRE-123", resp.TransactionID)
		assert.NotNil(t, resp.ProcessedAt)
		assert.Equal(t, order.CommissionCompleted, commissions[0].PayoutStatus)
	})

	t.Run("processed twice", func(t *testing.T) {
		f := setupPayoutService(t)
		p, commissions := newPayout(t)
		require.NoError(t, p.Process("WIRE-1", commissions))
		f.payouts.On("FindByID", ctx, p.ID).Return(p, nil)
		f.commissions.On("FindByPayoutID", ctx, p.ID).Return(commissions, nil)

		_, err := f.service.Process(ctx, p.ID, ProcessPayoutRequest{TransactionID: "WIRE-2"}, analytics.SystemActor)

		assert.ErrorIs(t, err, shared.ErrInvalidState)
		f.payouts.AssertNotCalled(t, "Save", mock.Anything, mock.Anything)
	})
}

func TestPayoutService_ListForBroker(t *testing.T) {
	ctx := context.Background()
	f := setupPayoutService(t)
	brokerID := uuid.New()
	filter := shared.DefaultFilter()
	f.payouts.On("FindByBroker", ctx, brokerID, filter).Return([]payout.Payout{{
		BrokerID:    brokerID,
		TotalAmount: valueobject.Cents(12345),
		Status:      payout.StatusPending,
	}}, int64(1), nil)

	list, total, err := f.service.ListForBroker(ctx, brokerID, filter)

	require.NoError(t, err)
	assert.Equal(t, int64(1), total)
	assert.Equal(t, "123.45", list[0].TotalAmount.StringFixed(2))
	assert.Nil(t, list[0].PeriodStart)
}

func ptr[T any](v T) *T { return &v }
