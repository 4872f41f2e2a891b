package handler

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	appautomation "github.com/tradelinemarket/backend/internal/application/automation"
	"github.com/tradelinemarket/backend/internal/interfaces/http/middleware"
)

// StartSessionRequest opens an automation session for an order
type StartSessionRequest struct {
	OrderID string `json:"order_id" binding:"required,uuid"`
}

// CallbackRequest is a status report posted by an external automation worker
type CallbackRequest struct {
	SessionID string         `json:"session_id" binding:"required,max=64"`
	Status    string         `json:"status" binding:"required,oneof=running completed failed cancelled"`
	Result    map[string]any `json:"result"`
	Error     string         `json:"error" binding:"max=2000"`
}

// AutomationHandler handles fulfillment automation sessions
type AutomationHandler struct {
	BaseHandler
	automationService *appautomation.AutomationService
}

// NewAutomationHandler creates a new AutomationHandler
func NewAutomationHandler(automationService *appautomation.AutomationService) *AutomationHandler {
	return &AutomationHandler{automationService: automationService}
}

// Start godoc
// @Summary      Start an automation session
// @Description  Stages the order's cards in the supplier cart and fills checkout. Stops before payment.
// @Tags         admin-automation
// @Router       /admin/automation/sessions [post]
func (h *AutomationHandler) Start(c *gin.Context) {
	var req StartSessionRequest
	if !middleware.BindJSON(c, &req) {
		return
	}
	session, err := h.automationService.Start(c.Request.Context(), uuid.MustParse(req.OrderID), actor(c))
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Created(c, session)
}

// List godoc
// @Summary      List automation sessions
// @Tags         admin-automation
// @Router       /admin/automation/sessions [get]
func (h *AutomationHandler) List(c *gin.Context) {
	h.Success(c, h.automationService.List())
}

// Get godoc
// @Summary      Get automation session
// @Tags         admin-automation
// @Router       /admin/automation/sessions/{id} [get]
func (h *AutomationHandler) Get(c *gin.Context) {
	session, err := h.automationService.Get(c.Param("id"))
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, session)
}

// Cancel godoc
// @Summary      Cancel automation session
// @Tags         admin-automation
// @Router       /admin/automation/sessions/{id} [delete]
func (h *AutomationHandler) Cancel(c *gin.Context) {
	session, err := h.automationService.Cancel(c.Param("id"))
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, session)
}

// Callback godoc
// @Summary      Worker status callback
// @Tags         automation
// @Param        X-Automation-Secret header string true "Shared secret"
// @Router       /automation/callback [post]
func (h *AutomationHandler) Callback(c *gin.Context) {
	var req CallbackRequest
	if !middleware.BindJSON(c, &req) {
		return
	}
	session, err := h.automationService.Callback(appautomation.CallbackRequest{
		SessionID: req.SessionID,
		Status:    req.Status,
		Result:    req.Result,
		Error:     req.Error,
	})
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, session)
}
