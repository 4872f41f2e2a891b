package handler

import (
	"context"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	appbroker "github.com/tradelinemarket/backend/internal/application/broker"
	"github.com/tradelinemarket/backend/internal/domain/analytics"
	"github.com/tradelinemarket/backend/internal/interfaces/http/middleware"
)

// BrokerHandler handles admin broker management
type BrokerHandler struct {
	BaseHandler
	brokerService *appbroker.BrokerService
}

// NewBrokerHandler creates a new BrokerHandler
func NewBrokerHandler(brokerService *appbroker.BrokerService) *BrokerHandler {
	return &BrokerHandler{brokerService: brokerService}
}

// List godoc
// @Summary      List brokers
// @Tags         admin-brokers
// @Param        status query string false "PENDING, ACTIVE, SUSPENDED or INACTIVE"
// @Param        search query string false "Name, email or company"
// @Router       /admin/brokers [get]
func (h *BrokerHandler) List(c *gin.Context) {
	filter := listFilter(c, 20)
	if status := c.Query("status"); status != "" {
		filter.Filters["status"] = status
	}

	brokers, total, err := h.brokerService.List(c.Request.Context(), filter)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.SuccessWithMeta(c, brokers, total, filter.Page, filter.PageSize)
}

// Create godoc
// @Summary      Register a broker
// @Description  The broker starts PENDING. The API secret is shown only in this response.
// @Tags         admin-brokers
// @Router       /admin/brokers [post]
func (h *BrokerHandler) Create(c *gin.Context) {
	var req CreateBrokerRequest
	if !middleware.BindJSON(c, &req) {
		return
	}

	creds, err := h.brokerService.Create(c.Request.Context(), req.toApp(), actor(c))
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Created(c, creds)
}

// GetByID godoc
// @Summary      Get broker
// @Tags         admin-brokers
// @Router       /admin/brokers/{id} [get]
func (h *BrokerHandler) GetByID(c *gin.Context) {
	id, ok := h.pathUUID(c, "id")
	if !ok {
		return
	}
	b, err := h.brokerService.GetByID(c.Request.Context(), id)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, b)
}

// Update godoc
// @Summary      Update broker profile or terms
// @Tags         admin-brokers
// @Router       /admin/brokers/{id} [put]
func (h *BrokerHandler) Update(c *gin.Context) {
	id, ok := h.pathUUID(c, "id")
	if !ok {
		return
	}
	var req UpdateBrokerRequest
	if !middleware.BindJSON(c, &req) {
		return
	}

	b, err := h.brokerService.Update(c.Request.Context(), id, req.toApp(), actor(c))
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, b)
}

// Approve godoc
// @Summary      Approve a pending or suspended broker
// @Tags         admin-brokers
// @Router       /admin/brokers/{id}/approve [post]
func (h *BrokerHandler) Approve(c *gin.Context) {
	h.transition(c, h.brokerService.Approve)
}

// Suspend godoc
// @Summary      Suspend a broker
// @Description  Revokes portal sessions and stops widget traffic
// @Tags         admin-brokers
// @Router       /admin/brokers/{id}/suspend [post]
func (h *BrokerHandler) Suspend(c *gin.Context) {
	h.transition(c, h.brokerService.Suspend)
}

// Deactivate godoc
// @Summary      Deactivate a broker
// @Description  The record is kept for order history; approve reactivates it
// @Tags         admin-brokers
// @Router       /admin/brokers/{id} [delete]
func (h *BrokerHandler) Deactivate(c *gin.Context) {
	h.transition(c, h.brokerService.Deactivate)
}

// ResetSecret godoc
// @Summary      Rotate broker API secret
// @Description  The new secret is shown only in this response. Open portal sessions are revoked.
// @Tags         admin-brokers
// @Router       /admin/brokers/{id}/reset-secret [post]
func (h *BrokerHandler) ResetSecret(c *gin.Context) {
	id, ok := h.pathUUID(c, "id")
	if !ok {
		return
	}
	creds, err := h.brokerService.ResetSecret(c.Request.Context(), id, actor(c))
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, APISecretResponse{APIKey: creds.Broker.APIKey, APISecret: creds.APISecret})
}

// Analytics godoc
// @Summary      Broker funnel analytics
// @Tags         admin-brokers
// @Param        days query int false "Window in days (default 30, max 365)"
// @Router       /admin/brokers/{id}/analytics [get]
func (h *BrokerHandler) Analytics(c *gin.Context) {
	id, ok := h.pathUUID(c, "id")
	if !ok {
		return
	}
	days, _ := strconv.Atoi(c.Query("days"))

	resp, err := h.brokerService.Analytics(c.Request.Context(), id, days)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, resp)
}

// Embed godoc
// @Summary      Widget embed snippet
// @Tags         admin-brokers
// @Router       /admin/brokers/{id}/embed [get]
func (h *BrokerHandler) Embed(c *gin.Context) {
	id, ok := h.pathUUID(c, "id")
	if !ok {
		return
	}
	resp, err := h.brokerService.Embed(c.Request.Context(), id)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, resp)
}

type brokerTransition func(ctx context.Context, id uuid.UUID, actor analytics.Actor) (*appbroker.BrokerResponse, error)

func (h *BrokerHandler) transition(c *gin.Context, fn brokerTransition) {
	id, ok := h.pathUUID(c, "id")
	if !ok {
		return
	}
	b, err := fn(c.Request.Context(), id, actor(c))
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, b)
}
