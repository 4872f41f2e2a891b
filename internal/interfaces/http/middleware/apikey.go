package middleware

import (
	"context"
	"crypto/subtle"
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	appbroker "github.com/tradelinemarket/backend/internal/application/broker"
	"github.com/tradelinemarket/backend/internal/domain/shared"
	"github.com/tradelinemarket/backend/internal/infrastructure/logger"
	"github.com/tradelinemarket/backend/internal/interfaces/http/dto"
)

// Widget and callback headers
const (
	APIKeyHeader           = "X-API-Key"
	AutomationSecretHeader = "X-Automation-Secret"
	WidgetBrokerKey        = "widget_broker"
)

// APIKeyAuthenticator resolves a widget API key to its broker
type APIKeyAuthenticator interface {
	AuthenticateAPIKey(ctx context.Context, apiKey string) (*appbroker.WidgetBroker, error)
}

// APIKeyAuth authenticates widget traffic by the X-API-Key header. The key may
// also arrive as the api_key query parameter for script-tag embeds.
func APIKeyAuth(authenticator APIKeyAuthenticator, log *zap.Logger) gin.HandlerFunc {
	if log == nil {
		log = zap.NewNop()
	}
	return func(c *gin.Context) {
		key := strings.TrimSpace(c.GetHeader(APIKeyHeader))
		if key == "" {
			key = strings.TrimSpace(c.Query("api_key"))
		}
		if key == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, dto.NewErrorResponseWithRequestID(
				dto.ErrCodeInvalidAPIKey, "API key required", GetRequestID(c)))
			return
		}

		wb, err := authenticator.AuthenticateAPIKey(c.Request.Context(), key)
		if err != nil {
			var domainErr *shared.DomainError
			if errors.As(err, &domainErr) {
				code := dto.ErrCodeInvalidAPIKey
				if domainErr.Code == "FORBIDDEN" {
					code = dto.ErrCodeForbidden
				}
				c.AbortWithStatusJSON(dto.GetHTTPStatus(code), dto.NewErrorResponseWithRequestID(
					code, domainErr.Message, GetRequestID(c)))
				return
			}
			log.Error("API key lookup failed", zap.Error(err))
			c.AbortWithStatusJSON(http.StatusInternalServerError, dto.NewErrorResponseWithRequestID(
				dto.ErrCodeInternal, "An unexpected error occurred", GetRequestID(c)))
			return
		}

		c.Set(WidgetBrokerKey, *wb)
		c.Request = c.Request.WithContext(logger.WithActor(c.Request.Context(), logger.Actor{
			Role: "widget",
			ID:   wb.ID.String(),
		}))
		c.Next()
	}
}

// GetWidgetBroker returns the broker resolved by APIKeyAuth
func GetWidgetBroker(c *gin.Context) (appbroker.WidgetBroker, bool) {
	if v, exists := c.Get(WidgetBrokerKey); exists {
		if wb, ok := v.(appbroker.WidgetBroker); ok {
			return wb, true
		}
	}
	return appbroker.WidgetBroker{}, false
}

// SharedSecret guards machine-to-machine callbacks. An empty secret disables
// the route.
func SharedSecret(header, secret string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if secret == "" {
			c.AbortWithStatusJSON(http.StatusServiceUnavailable, dto.NewErrorResponseWithRequestID(
				dto.ErrCodeServiceUnavailable, "Callback is not configured", GetRequestID(c)))
			return
		}
		got := c.GetHeader(header)
		if subtle.ConstantTimeCompare([]byte(got), []byte(secret)) != 1 {
			c.AbortWithStatusJSON(http.StatusUnauthorized, dto.NewErrorResponseWithRequestID(
				dto.ErrCodeUnauthorized, "Invalid callback secret", GetRequestID(c)))
			return
		}
		c.Request = c.Request.WithContext(logger.WithActor(c.Request.Context(), logger.Actor{
			Role: "system",
			ID:   "automation",
		}))
		c.Next()
	}
}
