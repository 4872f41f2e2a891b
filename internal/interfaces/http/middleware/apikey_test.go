package middleware

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"

	appbroker "github.com/tradelinemarket/backend/internal/application/broker"
	"github.com/tradelinemarket/backend/internal/domain/broker"
	"github.com/tradelinemarket/backend/internal/domain/shared"
	"github.com/tradelinemarket/backend/internal/interfaces/http/dto"
)

type stubAuthenticator struct {
	brokers map[string]*appbroker.WidgetBroker
	err     error
}

func (s stubAuthenticator) AuthenticateAPIKey(_ context.Context, key string) (*appbroker.WidgetBroker, error) {
	if s.err != nil {
		return nil, s.err
	}
	wb, ok := s.brokers[key]
	if !ok {
		return nil, shared.NewDomainError("UNAUTHORIZED", "Invalid API key")
	}
	if !wb.IsActive() {
		return nil, shared.NewDomainError("FORBIDDEN", "Broker account is not active")
	}
	return wb, nil
}

func widgetRouter(a APIKeyAuthenticator) *gin.Engine {
	router := gin.New()
	router.Use(RequestID(), APIKeyAuth(a, nil))
	router.GET("/test", func(c *gin.Context) {
		wb, _ := GetWidgetBroker(c)
		c.String(http.StatusOK, wb.ID.String())
	})
	return router
}

func TestAPIKeyAuth(t *testing.T) {
	active := &appbroker.WidgetBroker{ID: uuid.New(), Name: "Active", Status: broker.StatusActive}
	suspended := &appbroker.WidgetBroker{ID: uuid.New(), Name: "Suspended", Status: broker.StatusSuspended}
	router := widgetRouter(stubAuthenticator{brokers: map[string]*appbroker.WidgetBroker{
		"key-active":    active,
		"key-suspended": suspended,
	}})

	send := func(header, query string) *httptest.ResponseRecorder {
		target := "/test"
		if query != "" {
			target += "?api_key=" + query
		}
		req := httptest.NewRequest(http.MethodGet, target, nil)
		if header != "" {
			req.Header.Set(APIKeyHeader, header)
		}
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)
		return w
	}

	t.Run("header key resolves broker", func(t *testing.T) {
		w := send("key-active", "")
		assert.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, active.ID.String(), w.Body.String())
	})

	t.Run("query key for script embeds", func(t *testing.T) {
		w := send("", "key-active")
		assert.Equal(t, http.StatusOK, w.Code)
	})

	t.Run("missing key", func(t *testing.T) {
		w := send("", "")
		assert.Equal(t, http.StatusUnauthorized, w.Code)
		assert.Contains(t, w.Body.String(), dto.ErrCodeInvalidAPIKey)
	})

	t.Run("unknown key", func(t *testing.T) {
		w := send("key-unknown", "")
		assert.Equal(t, http.StatusUnauthorized, w.Code)
	})

	t.Run("inactive broker", func(t *testing.T) {
		w := send("key-suspended", "")
		assert.Equal(t, http.StatusForbidden, w.Code)
		assert.Contains(t, w.Body.String(), dto.ErrCodeForbidden)
	})

	t.Run("lookup failure", func(t *testing.T) {
		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, "/test", nil)
		req.Header.Set(APIKeyHeader, "key-active")
		widgetRouter(stubAuthenticator{err: errors.New("db down")}).ServeHTTP(w, req)
		assert.Equal(t, http.StatusInternalServerError, w.Code)
	})
}

func TestSharedSecret(t *testing.T) {
	newRouter := func(secret string) *gin.Engine {
		router := gin.New()
		router.POST("/callback", SharedSecret(AutomationSecretHeader, secret), func(c *gin.Context) {
			c.Status(http.StatusOK)
		})
		return router
	}
	send := func(router http.Handler, header string) int {
		req := httptest.NewRequest(http.MethodPost, "/callback", nil)
		if header != "" {
			req.Header.Set(AutomationSecretHeader, header)
		}
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)
		return w.Code
	}

	assert.Equal(t, http.StatusOK, send(newRouter("s3cret"), "s3cret"))
	assert.Equal(t, http.StatusUnauthorized, send(newRouter("s3cret"), "wrong"))
	assert.Equal(t, http.StatusUnauthorized, send(newRouter("s3cret"), ""))
	assert.Equal(t, http.StatusServiceUnavailable, send(newRouter(""), "anything"))
}
