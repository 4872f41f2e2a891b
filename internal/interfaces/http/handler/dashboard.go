package handler

import (
	"github.com/gin-gonic/gin"

	appdashboard "github.com/tradelinemarket/backend/internal/application/dashboard"
)

// DashboardHandler serves the admin dashboard and activity feed
type DashboardHandler struct {
	BaseHandler
	dashboardService *appdashboard.DashboardService
}

// NewDashboardHandler creates a new DashboardHandler
func NewDashboardHandler(dashboardService *appdashboard.DashboardService) *DashboardHandler {
	return &DashboardHandler{dashboardService: dashboardService}
}

// Admin godoc
// @Summary      Admin dashboard
// @Description  Broker counts, order totals, platform revenue and the latest orders
// @Tags         admin-dashboard
// @Router       /admin/dashboard [get]
func (h *DashboardHandler) Admin(c *gin.Context) {
	resp, err := h.dashboardService.Admin(c.Request.Context())
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, resp)
}

// Activity godoc
// @Summary      Audit trail
// @Tags         admin-dashboard
// @Param        entity_type query string false "broker, order, client, payout"
// @Param        action      query string false "Activity action"
// @Router       /admin/activity [get]
func (h *DashboardHandler) Activity(c *gin.Context) {
	filter := listFilter(c, 50)
	for _, key := range []string{"entity_type", "action"} {
		if v := c.Query(key); v != "" {
			filter.Filters[key] = v
		}
	}

	entries, total, err := h.dashboardService.Activity(c.Request.Context(), filter)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.SuccessWithMeta(c, entries, total, filter.Page, filter.PageSize)
}
