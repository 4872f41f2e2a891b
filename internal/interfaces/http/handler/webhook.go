package handler

import (
	"errors"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"

	apporder "github.com/tradelinemarket/backend/internal/application/order"
	"github.com/tradelinemarket/backend/internal/infrastructure/payment"
	"github.com/tradelinemarket/backend/internal/interfaces/http/dto"
)

// MaxWebhookBodySize caps Stripe webhook payloads
const MaxWebhookBodySize = 64 << 10

// StripeSignatureHeader carries the webhook signature
const StripeSignatureHeader = "Stripe-Signature"

// WebhookHandler receives payment processor events
type WebhookHandler struct {
	BaseHandler
	stripe *apporder.StripeWebhookService
}

// NewWebhookHandler creates a new WebhookHandler
func NewWebhookHandler(stripe *apporder.StripeWebhookService) *WebhookHandler {
	return &WebhookHandler{stripe: stripe}
}

// Stripe godoc
// @Summary      Stripe webhook
// @Description  Verifies the signature over the raw body. Processing failures return 5xx so Stripe retries.
// @Tags         webhooks
// @Param        Stripe-Signature header string true "Webhook signature"
// @Router       /webhooks/stripe [post]
func (h *WebhookHandler) Stripe(c *gin.Context) {
	payload, err := io.ReadAll(http.MaxBytesReader(c.Writer, c.Request.Body, MaxWebhookBodySize))
	if err != nil {
		h.Error(c, http.StatusRequestEntityTooLarge, dto.ErrCodeFileTooLarge, "Payload too large")
		return
	}

	result, err := h.stripe.Handle(c.Request.Context(), payload, c.GetHeader(StripeSignatureHeader))
	if err != nil {
		if errors.Is(err, payment.ErrSignature) {
			h.Error(c, http.StatusBadRequest, dto.ErrCodeBadRequest, "Invalid webhook signature")
			return
		}
		h.HandleError(c, err)
		return
	}
	h.Success(c, result)
}
