package handler

import (
	"github.com/gin-gonic/gin"

	appbroker "github.com/tradelinemarket/backend/internal/application/broker"
	appdashboard "github.com/tradelinemarket/backend/internal/application/dashboard"
	apporder "github.com/tradelinemarket/backend/internal/application/order"
	apppayout "github.com/tradelinemarket/backend/internal/application/payout"
)

// BrokerPortalHandler serves the authenticated broker's own data.
// Every query is scoped to the broker id in the token.
type BrokerPortalHandler struct {
	BaseHandler
	brokers   *appbroker.BrokerService
	dashboard *appdashboard.DashboardService
	orders    *apporder.OrderService
	payouts   *apppayout.PayoutService
}

// BrokerPortalDeps wires BrokerPortalHandler
type BrokerPortalDeps struct {
	Brokers   *appbroker.BrokerService
	Dashboard *appdashboard.DashboardService
	Orders    *apporder.OrderService
	Payouts   *apppayout.PayoutService
}

// NewBrokerPortalHandler creates a new BrokerPortalHandler
func NewBrokerPortalHandler(deps BrokerPortalDeps) *BrokerPortalHandler {
	return &BrokerPortalHandler{
		brokers:   deps.Brokers,
		dashboard: deps.Dashboard,
		orders:    deps.Orders,
		payouts:   deps.Payouts,
	}
}

// Me godoc
// @Summary      Current broker profile
// @Tags         broker-portal
// @Router       /broker/me [get]
func (h *BrokerPortalHandler) Me(c *gin.Context) {
	p, ok := h.principal(c)
	if !ok {
		return
	}
	b, err := h.brokers.GetByID(c.Request.Context(), p.ID)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, b)
}

// Dashboard godoc
// @Summary      Broker dashboard
// @Tags         broker-portal
// @Router       /broker/dashboard [get]
func (h *BrokerPortalHandler) Dashboard(c *gin.Context) {
	p, ok := h.principal(c)
	if !ok {
		return
	}
	resp, err := h.dashboard.Broker(c.Request.Context(), p.ID)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, resp)
}

// Orders godoc
// @Summary      Orders placed through the broker's widget
// @Tags         broker-portal
// @Param        status query string false "Order status"
// @Router       /broker/orders [get]
func (h *BrokerPortalHandler) Orders(c *gin.Context) {
	p, ok := h.principal(c)
	if !ok {
		return
	}
	filter := listFilter(c, 20)
	if status := c.Query("status"); status != "" {
		filter.Filters["status"] = status
	}

	orders, total, err := h.orders.ListForBroker(c.Request.Context(), p.ID, filter)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.SuccessWithMeta(c, orders, total, filter.Page, filter.PageSize)
}

// Order godoc
// @Summary      One of the broker's orders
// @Tags         broker-portal
// @Router       /broker/orders/{id} [get]
func (h *BrokerPortalHandler) Order(c *gin.Context) {
	p, ok := h.principal(c)
	if !ok {
		return
	}
	id, ok := h.pathUUID(c, "id")
	if !ok {
		return
	}
	o, err := h.orders.GetForBroker(c.Request.Context(), p.ID, id)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, o)
}

// Payouts godoc
// @Summary      Payout history
// @Tags         broker-portal
// @Router       /broker/payouts [get]
func (h *BrokerPortalHandler) Payouts(c *gin.Context) {
	p, ok := h.principal(c)
	if !ok {
		return
	}
	filter := listFilter(c, 20)
	payouts, total, err := h.payouts.ListForBroker(c.Request.Context(), p.ID, filter)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.SuccessWithMeta(c, payouts, total, filter.Page, filter.PageSize)
}

// PendingCommission godoc
// @Summary      Unpaid commission balance
// @Tags         broker-portal
// @Router       /broker/pending-commission [get]
func (h *BrokerPortalHandler) PendingCommission(c *gin.Context) {
	p, ok := h.principal(c)
	if !ok {
		return
	}
	resp, err := h.payouts.PendingForBroker(c.Request.Context(), p.ID)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, resp)
}

// Embed godoc
// @Summary      Widget embed snippet for the current broker
// @Tags         broker-portal
// @Router       /broker/embed [get]
func (h *BrokerPortalHandler) Embed(c *gin.Context) {
	p, ok := h.principal(c)
	if !ok {
		return
	}
	resp, err := h.brokers.Embed(c.Request.Context(), p.ID)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, resp)
}
