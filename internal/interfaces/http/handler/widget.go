package handler

import (
	"strings"

	"github.com/gin-gonic/gin"

	appwidget "github.com/tradelinemarket/backend/internal/application/widget"
	"github.com/tradelinemarket/backend/internal/interfaces/http/middleware"
)

// WidgetHandler serves the embeddable storefront. Routes sit behind APIKeyAuth.
type WidgetHandler struct {
	BaseHandler
	widgetService *appwidget.WidgetService
}

// NewWidgetHandler creates a new WidgetHandler
func NewWidgetHandler(widgetService *appwidget.WidgetService) *WidgetHandler {
	return &WidgetHandler{widgetService: widgetService}
}

// Pricing godoc
// @Summary      Broker price list
// @Tags         widget
// @Param        X-API-Key     header string true  "Broker API key"
// @Param        exclude_banks query  string false "Comma separated bank names"
// @Router       /public/pricing [get]
func (h *WidgetHandler) Pricing(c *gin.Context) {
	wb, ok := middleware.GetWidgetBroker(c)
	if !ok {
		h.Unauthorized(c, "API key required")
		return
	}
	resp, err := h.widgetService.Pricing(c.Request.Context(), wb, splitCSV(c.Query("exclude_banks")))
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, resp)
}

// Calculate godoc
// @Summary      Price a cart
// @Tags         widget
// @Router       /public/calculate [post]
func (h *WidgetHandler) Calculate(c *gin.Context) {
	wb, ok := middleware.GetWidgetBroker(c)
	if !ok {
		h.Unauthorized(c, "API key required")
		return
	}
	var req CalculateRequest
	if !middleware.BindJSON(c, &req) {
		return
	}
	quote, err := h.widgetService.Calculate(c.Request.Context(), wb, toQuoteItems(req.Items), req.PromoCode)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, quote)
}

// Track godoc
// @Summary      Record a funnel event
// @Tags         widget
// @Router       /public/track [post]
func (h *WidgetHandler) Track(c *gin.Context) {
	wb, ok := middleware.GetWidgetBroker(c)
	if !ok {
		h.Unauthorized(c, "API key required")
		return
	}
	var req TrackRequest
	if !middleware.BindJSON(c, &req) {
		return
	}
	if err := h.widgetService.Track(c.Request.Context(), wb, req.Event); err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, MessageResponse{Message: "Event tracked"})
}

// Config godoc
// @Summary      Widget bootstrap configuration
// @Tags         widget
// @Router       /public/config [get]
func (h *WidgetHandler) Config(c *gin.Context) {
	wb, ok := middleware.GetWidgetBroker(c)
	if !ok {
		h.Unauthorized(c, "API key required")
		return
	}
	h.Success(c, h.widgetService.Config(wb))
}

// Checkout godoc
// @Summary      Place an order
// @Description  Creates an unpaid order and, when card payments are enabled, a hosted checkout URL
// @Tags         widget
// @Router       /public/checkout [post]
func (h *WidgetHandler) Checkout(c *gin.Context) {
	wb, ok := middleware.GetWidgetBroker(c)
	if !ok {
		h.Unauthorized(c, "API key required")
		return
	}
	var req CheckoutRequest
	if !middleware.BindJSON(c, &req) {
		return
	}
	resp, err := h.widgetService.Checkout(c.Request.Context(), wb, req.Customer.toApp(), toQuoteItems(req.Items), req.PromoCode)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Created(c, resp)
}

func splitCSV(v string) []string {
	if v == "" {
		return nil
	}
	var out []string
	for _, part := range strings.Split(v, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
