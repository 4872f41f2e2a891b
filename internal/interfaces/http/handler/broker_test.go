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

	appbroker "github.com/tradelinemarket/backend/internal/application/broker"
	"github.com/tradelinemarket/backend/internal/domain/broker"
	"github.com/tradelinemarket/backend/internal/domain/shared"
	"github.com/tradelinemarket/backend/tests/testutil"
)

type brokerFixture struct {
	brokers  *testutil.MockBrokerRepository
	activity *testutil.MockActivityRepository
	router   *gin.Engine
}

func setupBrokerHandler(t *testing.T) *brokerFixture {
	t.Helper()
	f := &brokerFixture{
		brokers:  new(testutil.MockBrokerRepository),
		activity: new(testutil.MockActivityRepository),
	}
	f.activity.On("Create", mock.Anything, mock.Anything).Return(nil).Maybe()

	svc := appbroker.NewBrokerService(appbroker.BrokerServiceDeps{
		Brokers:  f.brokers,
		Activity: f.activity,
		Cache:    testutil.NewAdvisory(t),
		Logger:   zap.NewNop(),
	})
	h := NewBrokerHandler(svc)

	f.router = newTestRouter(adminPrincipal())
	g := f.router.Group("/admin/brokers")
	g.GET("", h.List)
	g.POST("", h.Create)
	g.GET("/:id", h.GetByID)
	g.PUT("/:id", h.Update)
	g.POST("/:id/approve", h.Approve)
	g.POST("/:id/suspend", h.Suspend)
	g.DELETE("/:id", h.Deactivate)
	g.POST("/:id/reset-secret", h.ResetSecret)
	return f
}

// =============================================================================
// Create
// =============================================================================

func TestBrokerHandler_Create(t *testing.T) {
	t.Run("returns secret once with 201", func(t *testing.T) {
		f := setupBrokerHandler(t)
		f.brokers.On("ExistsByEmail", mock.Anything, "jane@brokerage.test").Return(false, nil)
		f.brokers.On("Save", mock.Anything, mock.AnythingOfType("*broker.Broker")).Return(nil)

		w := testutil.PerformRequest(t, f.router, http.MethodPost, "/admin/brokers", map[string]any{
			"name":                  "Jane Broker",
			"email":                 "Jane@Brokerage.test",
			"revenue_share_percent": 20,
			"markup_type":           "FIXED",
			"markup_value":          25,
		}, nil)

		require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
		creds := testutil.DecodeData[appbroker.CredentialsResponse](t, w)
		assert.Len(t, creds.APISecret, 32)
		assert.Equal(t, "jane@brokerage.test", creds.Broker.Email)
		assert.Equal(t, "PENDING", creds.Broker.Status)
		assert.NotContains(t, w.Body.String(), "api_secret_hash")
	})

	t.Run("validation details per field", func(t *testing.T) {
		f := setupBrokerHandler(t)

		w := testutil.PerformRequest(t, f.router, http.MethodPost, "/admin/brokers", map[string]any{
			"email":       "not-an-email",
			"markup_type": "BOGUS",
		}, nil)

		testutil.AssertErrorCode(t, w, http.StatusBadRequest, "ERR_VALIDATION")
		env := testutil.DecodeEnvelope(t, w)
		fields := make([]string, 0, len(env.Error.Details))
		for _, d := range env.Error.Details {
			fields = append(fields, d.Field)
		}
		assert.ElementsMatch(t, []string{"name", "email", "markup_type"}, fields)
		f.brokers.AssertNotCalled(t, "Save", mock.Anything, mock.Anything)
	})

	t.Run("duplicate email", func(t *testing.T) {
		f := setupBrokerHandler(t)
		f.brokers.On("ExistsByEmail", mock.Anything, "jane@brokerage.test").Return(true, nil)

		w := testutil.PerformRequest(t, f.router, http.MethodPost, "/admin/brokers", map[string]any{
			"name":  "Jane Broker",
			"email": "jane@brokerage.test",
		}, nil)

		testutil.AssertErrorCode(t, w, http.StatusConflict, "ERR_ALREADY_EXISTS")
	})
}

// =============================================================================
// Read and transitions
// =============================================================================

func TestBrokerHandler_GetByID(t *testing.T) {
	t.Run("found", func(t *testing.T) {
		f := setupBrokerHandler(t)
		b, _ := testutil.NewActiveBroker(t)
		f.brokers.On("FindByID", mock.Anything, b.ID).Return(b, nil)

		w := testutil.PerformRequest(t, f.router, http.MethodGet, "/admin/brokers/"+b.ID.String(), nil, nil)

		require.Equal(t, http.StatusOK, w.Code)
		resp := testutil.DecodeData[appbroker.BrokerResponse](t, w)
		assert.Equal(t, b.APIKey, resp.APIKey)
		assert.NotContains(t, w.Body.String(), "api_secret")
	})

	t.Run("missing", func(t *testing.T) {
		f := setupBrokerHandler(t)
		id := uuid.New()
		f.brokers.On("FindByID", mock.Anything, id).Return(nil, shared.ErrNotFound)

		w := testutil.PerformRequest(t, f.router, http.MethodGet, "/admin/brokers/"+id.String(), nil, nil)

		testutil.AssertErrorCode(t, w, http.StatusNotFound, "ERR_NOT_FOUND")
	})

	t.Run("malformed id", func(t *testing.T) {
		f := setupBrokerHandler(t)
		w := testutil.PerformRequest(t, f.router, http.MethodGet, "/admin/brokers/42", nil, nil)
		testutil.AssertErrorCode(t, w, http.StatusBadRequest, "ERR_VALIDATION_FORMAT")
	})
}

func TestBrokerHandler_List(t *testing.T) {
	f := setupBrokerHandler(t)
	b, _ := testutil.NewActiveBroker(t)
	f.brokers.On("FindAll", mock.Anything, mock.MatchedBy(func(filter shared.Filter) bool {
		return filter.Filters["status"] == "ACTIVE" && filter.Search == "jane" && filter.PageSize == 20
	})).Return([]broker.Broker{*b}, int64(1), nil)

	w := testutil.PerformRequest(t, f.router, http.MethodGet, "/admin/brokers?status=ACTIVE&search=jane", nil, nil)

	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	list := testutil.DecodeData[[]appbroker.BrokerResponse](t, w)
	assert.Len(t, list, 1)
	assert.Contains(t, string(testutil.DecodeEnvelope(t, w).Meta), `"total":1`)
}

func TestBrokerHandler_Approve(t *testing.T) {
	t.Run("pending becomes active", func(t *testing.T) {
		f := setupBrokerHandler(t)
		b, _ := testutil.NewPendingBroker(t)
		f.brokers.On("FindByID", mock.Anything, b.ID).Return(b, nil)
		f.brokers.On("Save", mock.Anything, b).Return(nil)

		w := testutil.PerformRequest(t, f.router, http.MethodPost, "/admin/brokers/"+b.ID.String()+"/approve", nil, nil)

		require.Equal(t, http.StatusOK, w.Code, w.Body.String())
		assert.Equal(t, "ACTIVE", testutil.DecodeData[appbroker.BrokerResponse](t, w).Status)
	})

	t.Run("already active is a state conflict", func(t *testing.T) {
		f := setupBrokerHandler(t)
		b, _ := testutil.NewActiveBroker(t)
		f.brokers.On("FindByID", mock.Anything, b.ID).Return(b, nil)

		w := testutil.PerformRequest(t, f.router, http.MethodPost, "/admin/brokers/"+b.ID.String()+"/approve", nil, nil)

		assert.Equal(t, http.StatusUnprocessableEntity, w.Code, w.Body.String())
	})
}

func TestBrokerHandler_ResetSecret(t *testing.T) {
	f := setupBrokerHandler(t)
	b, oldSecret := testutil.NewActiveBroker(t)
	f.brokers.On("FindByID", mock.Anything, b.ID).Return(b, nil)
	f.brokers.On("Save", mock.Anything, b).Return(nil)

	w := testutil.PerformRequest(t, f.router, http.MethodPost, "/admin/brokers/"+b.ID.String()+"/reset-secret", nil, nil)

	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	resp := testutil.DecodeData[APISecretResponse](t, w)
	assert.NotEqual(t, oldSecret, resp.APISecret)
	assert.True(t, b.VerifySecret(resp.APISecret))
	assert.False(t, b.VerifySecret(oldSecret))
}
