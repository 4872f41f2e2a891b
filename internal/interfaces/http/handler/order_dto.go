package handler

import (
	"context"

	"github.com/google/uuid"

	apporder "github.com/tradelinemarket/backend/internal/application/order"
	"github.com/tradelinemarket/backend/internal/domain/analytics"
)

// MarkPaidRequest records a manual payment
type MarkPaidRequest struct {
	PaymentMethod string `json:"payment_method" binding:"required,max=20"`
	Note          string `json:"note" binding:"max=1000"`
}

// CancelOrderRequest carries an optional cancellation reason
type CancelOrderRequest struct {
	Reason string `json:"reason" binding:"max=500"`
}

type orderTransition func(ctx context.Context, id uuid.UUID, actor analytics.Actor) (*apporder.OrderResponse, error)
