// Package automation starts and tracks browser sessions that stage paid
// orders on the supplier storefront.
package automation

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/tradelinemarket/backend/internal/domain/analytics"
	"github.com/tradelinemarket/backend/internal/domain/client"
	"github.com/tradelinemarket/backend/internal/domain/order"
	"github.com/tradelinemarket/backend/internal/domain/shared"
	"github.com/tradelinemarket/backend/internal/infrastructure/automation"
)

// SessionRunner runs and tracks automation sessions
type SessionRunner interface {
	Start(ctx context.Context, oc automation.OrderContext) (automation.Session, error)
	Get(id string) (automation.Session, error)
	List() []automation.Session
	Cancel(id string) (automation.Session, error)
	HandleCallback(id string, status automation.Status, result map[string]any, errMsg string) (automation.Session, error)
}

// CallbackRequest is a status report from an external worker
type CallbackRequest struct {
	SessionID string
	Status    string
	Result    map[string]any
	Error     string
}

// AutomationServiceDeps wires AutomationService
type AutomationServiceDeps struct {
	Orders       order.Repository
	Clients      client.Repository
	Sessions     SessionRunner
	Activity     analytics.ActivityRepository
	DefaultPromo string
	Logger       *zap.Logger
}

// AutomationService handles fulfillment automation sessions
type AutomationService struct {
	orders       order.Repository
	clients      client.Repository
	sessions     SessionRunner
	activity     analytics.ActivityRepository
	defaultPromo string
	logger       *zap.Logger
}

// NewAutomationService creates a new AutomationService
func NewAutomationService(deps AutomationServiceDeps) *AutomationService {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AutomationService{
		orders:       deps.Orders,
		clients:      deps.Clients,
		sessions:     deps.Sessions,
		activity:     deps.Activity,
		defaultPromo: deps.DefaultPromo,
		logger:       logger.Named("automation"),
	}
}

// Start opens a session for an order
func (s *AutomationService) Start(ctx context.Context, orderID uuid.UUID, actor analytics.Actor) (*automation.Session, error) {
	o, err := s.orders.FindByID(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if len(o.Items) == 0 {
		return nil, shared.NewDomainError("INVALID_STATE", "Order has no items")
	}

	var cl *client.Client
	if o.ClientID != nil {
		cl, err = s.clients.FindByID(ctx, *o.ClientID)
		if err != nil && !errors.Is(err, shared.ErrNotFound) {
			return nil, err
		}
	}

	session, err := s.sessions.Start(ctx, automation.BuildOrderContext(o, cl, s.defaultPromo))
	if err != nil {
		return nil, err
	}

	if s.activity != nil {
		entry := analytics.NewActivityLog(analytics.ActionAutomationCreated, "order", &o.ID, actor, map[string]any{
			"session_id":   session.ID,
			"order_number": o.OrderNumber,
		})
		if err := s.activity.Create(ctx, entry); err != nil {
			s.logger.Warn("Failed to record activity", zap.Error(err))
		}
	}
	return &session, nil
}

// Get returns one session
func (s *AutomationService) Get(id string) (*automation.Session, error) {
	session, err := s.sessions.Get(id)
	if err != nil {
		return nil, mapSessionError(err)
	}
	return &session, nil
}

// List returns all sessions, newest first
func (s *AutomationService) List() []automation.Session {
	return s.sessions.List()
}

// Cancel stops a running or waiting session
func (s *AutomationService) Cancel(id string) (*automation.Session, error) {
	session, err := s.sessions.Cancel(id)
	if err != nil {
		return nil, mapSessionError(err)
	}
	return &session, nil
}

// Callback records a worker's report
func (s *AutomationService) Callback(req CallbackRequest) (*automation.Session, error) {
	session, err := s.sessions.HandleCallback(req.SessionID, automation.Status(req.Status), req.Result, req.Error)
	if err != nil {
		return nil, mapSessionError(err)
	}
	return &session, nil
}

func mapSessionError(err error) error {
	switch {
	case errors.Is(err, automation.ErrSessionNotFound):
		return shared.NewDomainError("NOT_FOUND", "Automation session not found")
	case errors.Is(err, automation.ErrSessionFinished):
		return shared.NewDomainError("INVALID_STATE", "Automation session has already finished")
	case errors.Is(err, automation.ErrInvalidStatus):
		return shared.NewDomainError("INVALID_INPUT", "Status must be running, completed, failed or cancelled")
	}
	return err
}
