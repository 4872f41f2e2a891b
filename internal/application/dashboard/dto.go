package dashboard

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	apporder "github.com/tradelinemarket/backend/internal/application/order"
	"github.com/tradelinemarket/backend/internal/domain/analytics"
)

// AdminDashboardResponse is the back-office landing page
type AdminDashboardResponse struct {
	Brokers       int64 `json:"brokers"`
	ActiveBrokers int64 `json:"active_brokers"`
	apporder.StatsResponse
	RecentOrders []apporder.OrderResponse `json:"recent_orders"`
}

// BrokerDashboardResponse is the broker portal landing page
type BrokerDashboardResponse struct {
	apporder.StatsResponse
	PendingCommission decimal.Decimal          `json:"pending_commission"`
	RecentOrders      []apporder.OrderResponse `json:"recent_orders"`
}

// ActivityResponse is one audit trail entry
type ActivityResponse struct {
	ID         uuid.UUID      `json:"id"`
	Action     string         `json:"action"`
	EntityType string         `json:"entity_type"`
	EntityID   *uuid.UUID     `json:"entity_id,omitempty"`
	ActorRole  string         `json:"actor_role"`
	ActorID    *uuid.UUID     `json:"actor_id,omitempty"`
	Metadata   map[string]any `json:"metadata,omitempty"`
	CreatedAt  time.Time      `json:"created_at"`
}

// ToActivityResponse converts an activity log entry
func ToActivityResponse(l *analytics.ActivityLog) ActivityResponse {
	return ActivityResponse{
		ID:         l.ID,
		Action:     l.Action,
		EntityType: l.EntityType,
		EntityID:   l.EntityID,
		ActorRole:  l.Actor.Role,
		ActorID:    l.Actor.ID,
		Metadata:   l.Metadata,
		CreatedAt:  l.CreatedAt,
	}
}
