package handler

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	apppayout "github.com/tradelinemarket/backend/internal/application/payout"
	"github.com/tradelinemarket/backend/internal/interfaces/http/dto"
	"github.com/tradelinemarket/backend/internal/interfaces/http/middleware"
)

// CreatePayoutRequest batches a broker's payable commissions.
// Period bounds accept YYYY-MM-DD or RFC 3339 and may be omitted.
type CreatePayoutRequest struct {
	BrokerID      string `json:"broker_id" binding:"required,uuid"`
	PeriodStart   string `json:"period_start" binding:"max=40"`
	PeriodEnd     string `json:"period_end" binding:"max=40"`
	PaymentMethod string `json:"payment_method" binding:"required,max=50"`
}

// ProcessPayoutRequest records the transfer reference
type ProcessPayoutRequest struct {
	TransactionID string `json:"transaction_id" binding:"required,notblank,max=100"`
}

// PayoutHandler handles admin payout operations
type PayoutHandler struct {
	BaseHandler
	payoutService *apppayout.PayoutService
}

// NewPayoutHandler creates a new PayoutHandler
func NewPayoutHandler(payoutService *apppayout.PayoutService) *PayoutHandler {
	return &PayoutHandler{payoutService: payoutService}
}

// Pending godoc
// @Summary      Payable commission per broker
// @Tags         admin-payouts
// @Router       /admin/payouts/pending [get]
func (h *PayoutHandler) Pending(c *gin.Context) {
	pending, err := h.payoutService.Pending(c.Request.Context())
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, pending)
}

// Create godoc
// @Summary      Create a payout
// @Tags         admin-payouts
// @Router       /admin/payouts [post]
func (h *PayoutHandler) Create(c *gin.Context) {
	var req CreatePayoutRequest
	if !middleware.BindJSON(c, &req) {
		return
	}
	start, err := parsePeriodDate(req.PeriodStart)
	if err != nil {
		h.Error(c, http.StatusBadRequest, dto.ErrCodeValidationFormat, "period_start must be YYYY-MM-DD")
		return
	}
	end, err := parsePeriodDate(req.PeriodEnd)
	if err != nil {
		h.Error(c, http.StatusBadRequest, dto.ErrCodeValidationFormat, "period_end must be YYYY-MM-DD")
		return
	}
	if !start.IsZero() && !end.IsZero() && end.Before(start) {
		h.Error(c, http.StatusBadRequest, dto.ErrCodeValidation, "period_end must not be before period_start")
		return
	}

	p, err := h.payoutService.Create(c.Request.Context(), apppayout.CreatePayoutRequest{
		BrokerID:      uuid.MustParse(req.BrokerID),
		PeriodStart:   start,
		PeriodEnd:     end,
		PaymentMethod: req.PaymentMethod,
	}, actor(c))
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Created(c, p)
}

// Process godoc
// @Summary      Mark a payout sent
// @Tags         admin-payouts
// @Router       /admin/payouts/{id}/process [post]
func (h *PayoutHandler) Process(c *gin.Context) {
	id, ok := h.pathUUID(c, "id")
	if !ok {
		return
	}
	var req ProcessPayoutRequest
	if !middleware.BindJSON(c, &req) {
		return
	}

	p, err := h.payoutService.Process(c.Request.Context(), id, apppayout.ProcessPayoutRequest{
		TransactionID: req.TransactionID,
	}, actor(c))
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, p)
}

func parsePeriodDate(v string) (time.Time, error) {
	if v == "" {
		return time.Time{}, nil
	}
	if t, err := time.Parse(time.DateOnly, v); err == nil {
		return t, nil
	}
	return time.Parse(time.RFC3339, v)
}
