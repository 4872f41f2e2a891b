package handler

import (
	"net/http"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	apporder "github.com/tradelinemarket/backend/internal/application/order"
	"github.com/tradelinemarket/backend/internal/domain/order"
	"github.com/tradelinemarket/backend/internal/domain/shared"
	"github.com/tradelinemarket/backend/tests/testutil"
)

type orderFixture struct {
	orders   *testutil.MockOrderRepository
	activity *testutil.MockActivityRepository
	router   *gin.Engine
}

func setupOrderHandler(t *testing.T) *orderFixture {
	t.Helper()
	f := &orderFixture{
		orders:   new(testutil.MockOrderRepository),
		activity: new(testutil.MockActivityRepository),
	}
	f.activity.On("Create", mock.Anything, mock.Anything).Return(nil).Maybe()

	svc := apporder.NewOrderService(apporder.OrderServiceDeps{
		Scope: &apporder.NoOpTransactionScope{
			OrderRepo:    f.orders,
			ActivityRepo: f.activity,
		},
		Orders:   f.orders,
		Activity: f.activity,
		Events:   testutil.NewRecordingPublisher(),
		Logger:   zap.NewNop(),
	})
	h := NewOrderHandler(svc)

	f.router = newTestRouter(adminPrincipal())
	g := f.router.Group("/admin/orders")
	g.GET("", h.List)
	g.GET("/:id", h.GetByID)
	g.POST("/:id/mark-paid", h.MarkPaid)
	g.DELETE("/:id", h.Delete)
	g.POST("/:id/fulfill", h.Fulfill)
	g.POST("/:id/cancel", h.Cancel)
	return f
}

// =============================================================================
// List
// =============================================================================

func TestOrderHandler_List(t *testing.T) {
	f := setupOrderHandler(t)
	o := testutil.NewPendingOrder(t, nil, nil)
	f.orders.On("FindAll", mock.Anything, mock.MatchedBy(func(filter shared.Filter) bool {
		return filter.PageSize == 50 &&
			filter.Filters["status"] == "PENDING" &&
			filter.Filters["payment_status"] == "UNPAID"
	})).Return([]order.Order{*o}, int64(1), nil)

	w := testutil.PerformRequest(t, f.router, http.MethodGet, "/admin/orders?status=PENDING&payment_status=UNPAID", nil, nil)

	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	list := testutil.DecodeData[[]apporder.OrderResponse](t, w)
	require.Len(t, list, 1)
	assert.Len(t, list[0].Items, 2)
	assert.Contains(t, string(testutil.DecodeEnvelope(t, w).Meta), `"page_size":50`)
}

// =============================================================================
// Mark paid
// =============================================================================

func TestOrderHandler_MarkPaid(t *testing.T) {
	t.Run("paid once then conflict", func(t *testing.T) {
		f := setupOrderHandler(t)
		o := testutil.NewPendingOrder(t, nil, nil)
		f.orders.On("FindByID", mock.Anything, o.ID).Return(o, nil)
		f.orders.On("MarkPaid", mock.Anything, o).Return(nil).Once()
		path := "/admin/orders/" + o.ID.String() + "/mark-paid"
		body := map[string]any{"payment_method": "wire", "note": "ref 8812"}

		first := testutil.PerformRequest(t, f.router, http.MethodPost, path, body, nil)
		second := testutil.PerformRequest(t, f.router, http.MethodPost, path, body, nil)

		require.Equal(t, http.StatusOK, first.Code, first.Body.String())
		resp := testutil.DecodeData[apporder.OrderResponse](t, first)
		assert.Equal(t, "PAID", resp.PaymentStatus)
		assert.Equal(t, "PROCESSING", resp.Status)
		assert.Equal(t, "WIRE", resp.PaymentMethod)

		testutil.AssertErrorCode(t, second, http.StatusUnprocessableEntity, "ERR_ALREADY_PAID")
		f.orders.AssertNumberOfCalls(t, "MarkPaid", 1)
	})

	t.Run("payment method required", func(t *testing.T) {
		f := setupOrderHandler(t)
		w := testutil.PerformRequest(t, f.router, http.MethodPost, "/admin/orders/"+uuid.NewString()+"/mark-paid", map[string]any{}, nil)
		testutil.AssertErrorCode(t, w, http.StatusBadRequest, "ERR_VALIDATION")
	})

	t.Run("unknown payment method", func(t *testing.T) {
		f := setupOrderHandler(t)
		w := testutil.PerformRequest(t, f.router, http.MethodPost, "/admin/orders/"+uuid.NewString()+"/mark-paid",
			map[string]any{"payment_method": "BITCOIN"}, nil)
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})
}

// =============================================================================
// Delete, fulfill, cancel
// =============================================================================

func TestOrderHandler_Delete(t *testing.T) {
	t.Run("missing order", func(t *testing.T) {
		f := setupOrderHandler(t)
		id := uuid.New()
		f.orders.On("FindByID", mock.Anything, id).Return(nil, shared.ErrNotFound)

		w := testutil.PerformRequest(t, f.router, http.MethodDelete, "/admin/orders/"+id.String(), nil, nil)

		testutil.AssertErrorCode(t, w, http.StatusNotFound, "ERR_NOT_FOUND")
		f.orders.AssertNotCalled(t, "Delete", mock.Anything, mock.Anything)
	})

	t.Run("deleted", func(t *testing.T) {
		f := setupOrderHandler(t)
		o := testutil.NewPendingOrder(t, nil, nil)
		f.orders.On("FindByID", mock.Anything, o.ID).Return(o, nil)
		f.orders.On("Delete", mock.Anything, o.ID).Return(nil)

		w := testutil.PerformRequest(t, f.router, http.MethodDelete, "/admin/orders/"+o.ID.String(), nil, nil)

		assert.Equal(t, http.StatusOK, w.Code, w.Body.String())
		f.orders.AssertExpectations(t)
	})
}

func TestOrderHandler_Fulfill_SupplierNotConfigured(t *testing.T) {
	f := setupOrderHandler(t)

	w := testutil.PerformRequest(t, f.router, http.MethodPost, "/admin/orders/"+uuid.NewString()+"/fulfill", nil, nil)

	testutil.AssertErrorCode(t, w, http.StatusServiceUnavailable, "ERR_SERVICE_UNAVAILABLE")
}

func TestOrderHandler_Cancel(t *testing.T) {
	t.Run("with reason", func(t *testing.T) {
		f := setupOrderHandler(t)
		o := testutil.NewPendingOrder(t, nil, nil)
		f.orders.On("FindByID", mock.Anything, o.ID).Return(o, nil)
		f.orders.On("Update", mock.Anything, o).Return(nil)

		w := testutil.PerformRequest(t, f.router, http.MethodPost, "/admin/orders/"+o.ID.String()+"/cancel",
			map[string]any{"reason": "customer request"}, nil)

		require.Equal(t, http.StatusOK, w.Code, w.Body.String())
		assert.Equal(t, "CANCELLED", testutil.DecodeData[apporder.OrderResponse](t, w).Status)
	})

	t.Run("without body", func(t *testing.T) {
		f := setupOrderHandler(t)
		o := testutil.NewPendingOrder(t, nil, nil)
		f.orders.On("FindByID", mock.Anything, o.ID).Return(o, nil)
		f.orders.On("Update", mock.Anything, o).Return(nil)

		w := testutil.PerformRequest(t, f.router, http.MethodPost, "/admin/orders/"+o.ID.String()+"/cancel", nil, nil)

		assert.Equal(t, http.StatusOK, w.Code, w.Body.String())
	})
}
