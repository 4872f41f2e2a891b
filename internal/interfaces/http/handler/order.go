package handler

import (
	"github.com/gin-gonic/gin"

	apporder "github.com/tradelinemarket/backend/internal/application/order"
	"github.com/tradelinemarket/backend/internal/interfaces/http/middleware"
)

// adminOrderPageSize is the default page size of the admin order list
const adminOrderPageSize = 50

// OrderHandler handles admin order operations
type OrderHandler struct {
	BaseHandler
	orderService *apporder.OrderService
}

// NewOrderHandler creates a new OrderHandler
func NewOrderHandler(orderService *apporder.OrderService) *OrderHandler {
	return &OrderHandler{orderService: orderService}
}

// List godoc
// @Summary      List orders
// @Description  Includes broker names, client KYC fields and line items
// @Tags         admin-orders
// @Param        status         query string false "Order status"
// @Param        payment_status query string false "Payment status"
// @Param        broker_id      query string false "Broker ID"
// @Router       /admin/orders [get]
func (h *OrderHandler) List(c *gin.Context) {
	filter := listFilter(c, adminOrderPageSize)
	for _, key := range []string{"status", "payment_status", "broker_id", "client_id"} {
		if v := c.Query(key); v != "" {
			filter.Filters[key] = v
		}
	}

	orders, total, err := h.orderService.List(c.Request.Context(), filter)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.SuccessWithMeta(c, orders, total, filter.Page, filter.PageSize)
}

// GetByID godoc
// @Summary      Get order
// @Tags         admin-orders
// @Router       /admin/orders/{id} [get]
func (h *OrderHandler) GetByID(c *gin.Context) {
	id, ok := h.pathUUID(c, "id")
	if !ok {
		return
	}
	o, err := h.orderService.GetByID(c.Request.Context(), id)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, o)
}

// MarkPaid godoc
// @Summary      Record a manual payment
// @Description  Returns 422 ALREADY_PAID when the order was settled before
// @Tags         admin-orders
// @Router       /admin/orders/{id}/mark-paid [post]
func (h *OrderHandler) MarkPaid(c *gin.Context) {
	id, ok := h.pathUUID(c, "id")
	if !ok {
		return
	}
	var req MarkPaidRequest
	if !middleware.BindJSON(c, &req) {
		return
	}

	o, err := h.orderService.MarkPaid(c.Request.Context(), id, apporder.MarkPaidRequest{
		PaymentMethod: req.PaymentMethod,
		Note:          req.Note,
	}, actor(c))
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, o)
}

// Delete godoc
// @Summary      Delete order
// @Description  Removes the order with its items and unpaid commission
// @Tags         admin-orders
// @Router       /admin/orders/{id} [delete]
func (h *OrderHandler) Delete(c *gin.Context) {
	id, ok := h.pathUUID(c, "id")
	if !ok {
		return
	}
	if err := h.orderService.Delete(c.Request.Context(), id, actor(c)); err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, MessageResponse{Message: "Order deleted"})
}

// Fulfill godoc
// @Summary      Submit a paid order to the supplier
// @Tags         admin-orders
// @Router       /admin/orders/{id}/fulfill [post]
func (h *OrderHandler) Fulfill(c *gin.Context) {
	h.transition(c, h.orderService.Fulfill)
}

// Sync godoc
// @Summary      Poll the supplier for order status
// @Tags         admin-orders
// @Router       /admin/orders/{id}/sync [post]
func (h *OrderHandler) Sync(c *gin.Context) {
	h.transition(c, h.orderService.SyncSupplierStatus)
}

// Complete godoc
// @Summary      Mark an order completed
// @Tags         admin-orders
// @Router       /admin/orders/{id}/complete [post]
func (h *OrderHandler) Complete(c *gin.Context) {
	h.transition(c, h.orderService.Complete)
}

// Refund godoc
// @Summary      Refund a paid order
// @Tags         admin-orders
// @Router       /admin/orders/{id}/refund [post]
func (h *OrderHandler) Refund(c *gin.Context) {
	h.transition(c, h.orderService.Refund)
}

// Cancel godoc
// @Summary      Cancel an order
// @Tags         admin-orders
// @Router       /admin/orders/{id}/cancel [post]
func (h *OrderHandler) Cancel(c *gin.Context) {
	id, ok := h.pathUUID(c, "id")
	if !ok {
		return
	}
	var req CancelOrderRequest
	// body is optional
	if c.Request.ContentLength > 0 && !middleware.BindJSON(c, &req) {
		return
	}

	o, err := h.orderService.Cancel(c.Request.Context(), id, req.Reason, actor(c))
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, o)
}

func (h *OrderHandler) transition(c *gin.Context, fn orderTransition) {
	id, ok := h.pathUUID(c, "id")
	if !ok {
		return
	}
	o, err := fn(c.Request.Context(), id, actor(c))
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, o)
}
