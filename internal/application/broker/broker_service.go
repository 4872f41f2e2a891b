// Package broker implements the broker-affiliate use cases: registration,
// commercial terms, approval, credentials, analytics and widget API keys.
package broker

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/tradelinemarket/backend/internal/domain/analytics"
	"github.com/tradelinemarket/backend/internal/domain/broker"
	"github.com/tradelinemarket/backend/internal/domain/identity"
	"github.com/tradelinemarket/backend/internal/domain/pricing"
	"github.com/tradelinemarket/backend/internal/domain/shared"
	"github.com/tradelinemarket/backend/internal/infrastructure/cache"
)

const (
	DefaultAnalyticsDays = 30
	MaxAnalyticsDays     = 365
)

// PriceInvalidator drops memoised price lists
type PriceInvalidator interface {
	InvalidateBroker(ctx context.Context, brokerID uuid.UUID)
}

// PrincipalRevoker invalidates every token issued to a principal so far
type PrincipalRevoker interface {
	InvalidatePrincipal(ctx context.Context, principalID string, ttl time.Duration) error
}

// BrokerService handles broker-related business operations
type BrokerService struct {
	brokerRepo    broker.Repository
	analyticsRepo analytics.Repository
	activityRepo  analytics.ActivityRepository
	cache         *cache.Advisory
	prices        PriceInvalidator
	revoker       PrincipalRevoker
	events        shared.EventPublisher
	tokenTTL      time.Duration
	embed         EmbedSettings
	logger        *zap.Logger
}

// BrokerServiceDeps groups the collaborators of BrokerService
type BrokerServiceDeps struct {
	Brokers   broker.Repository
	Analytics analytics.Repository
	Activity  analytics.ActivityRepository
	Cache     *cache.Advisory
	Prices    PriceInvalidator
	Revoker   PrincipalRevoker
	Events    shared.EventPublisher
	TokenTTL  time.Duration
	Embed     EmbedSettings
	Logger    *zap.Logger
}

// NewBrokerService creates a new BrokerService
func NewBrokerService(deps BrokerServiceDeps) *BrokerService {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &BrokerService{
		brokerRepo:    deps.Brokers,
		analyticsRepo: deps.Analytics,
		activityRepo:  deps.Activity,
		cache:         deps.Cache,
		prices:        deps.Prices,
		revoker:       deps.Revoker,
		events:        deps.Events,
		tokenTTL:      deps.TokenTTL,
		embed:         deps.Embed,
		logger:        logger.Named("brokers"),
	}
}

// Create registers a PENDING broker. The plaintext API secret is returned once.
func (s *BrokerService) Create(ctx context.Context, req CreateBrokerRequest, actor analytics.Actor) (*CredentialsResponse, error) {
	exists, err := s.brokerRepo.ExistsByEmail(ctx, identity.NormalizeEmail(req.Email))
	if err != nil {
		return nil, err
	}
	if exists {
		return nil, shared.NewDomainError("ALREADY_EXISTS", "Broker with this email already exists")
	}

	markupType := req.MarkupType
	terms := termsFrom(pricing.DefaultTerms(), req.RevenueSharePercent, &markupType, req.MarkupValue)

	b, secret, err := broker.NewBroker(broker.Profile{
		Name:        req.Name,
		Email:       req.Email,
		CompanyName: req.CompanyName,
		Phone:       req.Phone,
		Website:     req.Website,
		Notes:       req.Notes,
	}, terms)
	if err != nil {
		return nil, err
	}
	if req.Password != "" {
		if err := b.SetPassword(req.Password); err != nil {
			return nil, err
		}
	}

	if err := s.brokerRepo.Save(ctx, b); err != nil {
		return nil, err
	}
	s.publish(ctx, b)

	s.audit(ctx, analytics.ActionBrokerCreated, b.ID, actor, map[string]any{
		"email":                 b.Email,
		"revenue_share_percent": b.RevenueSharePercent.String(),
		"markup_type":           b.MarkupType,
	})

	return &CredentialsResponse{Broker: ToBrokerResponse(b), APISecret: secret}, nil
}

// GetByID retrieves a broker by ID
func (s *BrokerService) GetByID(ctx context.Context, id uuid.UUID) (*BrokerResponse, error) {
	b, err := s.brokerRepo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	resp := ToBrokerResponse(b)
	return &resp, nil
}

// List retrieves brokers. Filters: "status".
func (s *BrokerService) List(ctx context.Context, filter shared.Filter) ([]BrokerResponse, int64, error) {
	list, total, err := s.brokerRepo.FindAll(ctx, filter)
	if err != nil {
		return nil, 0, err
	}
	return ToBrokerResponses(list), total, nil
}

// Update changes profile fields and commercial terms
func (s *BrokerService) Update(ctx context.Context, id uuid.UUID, req UpdateBrokerRequest, actor analytics.Actor) (*BrokerResponse, error) {
	b, err := s.brokerRepo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}

	profile := broker.Profile{
		Name:        pick(req.Name, b.Name),
		Email:       pick(req.Email, b.Email),
		CompanyName: pick(req.CompanyName, b.CompanyName),
		Phone:       pick(req.Phone, b.Phone),
		Website:     pick(req.Website, b.Website),
		Notes:       pick(req.Notes, b.Notes),
	}
	if email := identity.NormalizeEmail(profile.Email); email != b.Email {
		exists, err := s.brokerRepo.ExistsByEmail(ctx, email)
		if err != nil {
			return nil, err
		}
		if exists {
			return nil, shared.NewDomainError("ALREADY_EXISTS", "Broker with this email already exists")
		}
	}
	if err := b.UpdateProfile(profile); err != nil {
		return nil, err
	}

	if req.changesTerms() {
		terms := termsFrom(b.Terms(), req.RevenueSharePercent, req.MarkupType, req.MarkupValue)
		if err := b.UpdateTerms(terms); err != nil {
			return nil, err
		}
	}
	if req.Password != nil && *req.Password != "" {
		if err := b.SetPassword(*req.Password); err != nil {
			return nil, err
		}
	}

	if err := s.brokerRepo.Save(ctx, b); err != nil {
		return nil, err
	}
	s.publish(ctx, b)
	s.invalidate(ctx, b)

	s.audit(ctx, analytics.ActionBrokerUpdated, b.ID, actor, map[string]any{
		"terms_changed": req.changesTerms(),
	})

	resp := ToBrokerResponse(b)
	return &resp, nil
}

// Approve activates a broker
func (s *BrokerService) Approve(ctx context.Context, id uuid.UUID, actor analytics.Actor) (*BrokerResponse, error) {
	b, err := s.brokerRepo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	adminID := uuid.Nil
	if actor.ID != nil {
		adminID = *actor.ID
	}
	if err := b.Approve(adminID); err != nil {
		return nil, err
	}
	if err := s.brokerRepo.Save(ctx, b); err != nil {
		return nil, err
	}
	s.publish(ctx, b)
	s.invalidate(ctx, b)

	s.audit(ctx, analytics.ActionBrokerApproved, b.ID, actor, nil)

	resp := ToBrokerResponse(b)
	return &resp, nil
}

// Suspend blocks a broker and revokes its portal sessions
func (s *BrokerService) Suspend(ctx context.Context, id uuid.UUID, actor analytics.Actor) (*BrokerResponse, error) {
	return s.disable(ctx, id, actor, analytics.ActionBrokerSuspended, (*broker.Broker).Suspend)
}

// Deactivate retires a broker. Its widget key and portal sessions stop working.
func (s *BrokerService) Deactivate(ctx context.Context, id uuid.UUID, actor analytics.Actor) (*BrokerResponse, error) {
	return s.disable(ctx, id, actor, analytics.ActionBrokerDeactivated, (*broker.Broker).Deactivate)
}

func (s *BrokerService) disable(ctx context.Context, id uuid.UUID, actor analytics.Actor, action string, apply func(*broker.Broker) error) (*BrokerResponse, error) {
	b, err := s.brokerRepo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := apply(b); err != nil {
		return nil, err
	}
	if err := s.brokerRepo.Save(ctx, b); err != nil {
		return nil, err
	}
	s.publish(ctx, b)
	s.invalidate(ctx, b)
	s.revoke(ctx, b.ID)

	s.audit(ctx, action, b.ID, actor, nil)

	resp := ToBrokerResponse(b)
	return &resp, nil
}

// ResetSecret issues a new API secret; the old one stops validating at once
func (s *BrokerService) ResetSecret(ctx context.Context, id uuid.UUID, actor analytics.Actor) (*CredentialsResponse, error) {
	b, err := s.brokerRepo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	secret, err := b.ResetSecret()
	if err != nil {
		return nil, err
	}
	if err := s.brokerRepo.Save(ctx, b); err != nil {
		return nil, err
	}
	s.publish(ctx, b)
	s.invalidate(ctx, b)
	s.revoke(ctx, b.ID)

	s.audit(ctx, analytics.ActionBrokerSecretReset, b.ID, actor, nil)

	return &CredentialsResponse{Broker: ToBrokerResponse(b), APISecret: secret}, nil
}

// Analytics returns the widget funnel for the last days (default 30)
func (s *BrokerService) Analytics(ctx context.Context, id uuid.UUID, days int) (*AnalyticsResponse, error) {
	if days <= 0 {
		days = DefaultAnalyticsDays
	}
	if days > MaxAnalyticsDays {
		days = MaxAnalyticsDays
	}
	if _, err := s.brokerRepo.FindByID(ctx, id); err != nil {
		return nil, err
	}

	since := analytics.Day(time.Now()).AddDate(0, 0, -(days - 1))
	rows, err := s.analyticsRepo.FindRange(ctx, id, since)
	if err != nil {
		return nil, err
	}
	resp := toAnalyticsResponse(id, days, rows)
	return &resp, nil
}

// Embed renders the widget snippet for a broker
func (s *BrokerService) Embed(ctx context.Context, id uuid.UUID) (*EmbedResponse, error) {
	b, err := s.brokerRepo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	resp, err := RenderEmbed(b.APIKey, s.embed)
	if err != nil {
		return nil, err
	}
	return &resp, nil
}

// AuthenticateAPIKey resolves widget traffic to an ACTIVE broker
func (s *BrokerService) AuthenticateAPIKey(ctx context.Context, apiKey string) (*WidgetBroker, error) {
	if !broker.LooksLikeAPIKey(apiKey) {
		return nil, shared.NewDomainError("UNAUTHORIZED", "Invalid API key")
	}

	var wb WidgetBroker
	if !s.cache.Get(ctx, cache.BrokerAPIKeyKey(apiKey), &wb) {
		b, err := s.brokerRepo.FindByAPIKey(ctx, apiKey)
		if err != nil {
			if errors.Is(err, shared.ErrNotFound) {
				return nil, shared.NewDomainError("UNAUTHORIZED", "Invalid API key")
			}
			return nil, err
		}
		wb = toWidgetBroker(b)
		s.cache.Set(ctx, cache.BrokerAPIKeyKey(apiKey), wb, cache.TTLBroker)
		s.cache.Set(ctx, cache.BrokerKey(b.ID), wb, cache.TTLBroker)
	}

	if !wb.IsActive() {
		return nil, shared.NewDomainError("FORBIDDEN", "Broker account is not active")
	}
	return &wb, nil
}

// Counts returns the total and ACTIVE broker counts
func (s *BrokerService) Counts(ctx context.Context) (total, active int64, err error) {
	if total, err = s.brokerRepo.CountByStatus(ctx, ""); err != nil {
		return 0, 0, err
	}
	if active, err = s.brokerRepo.CountByStatus(ctx, broker.StatusActive); err != nil {
		return 0, 0, err
	}
	return total, active, nil
}

func (s *BrokerService) invalidate(ctx context.Context, b *broker.Broker) {
	s.cache.Delete(ctx, cache.BrokerKey(b.ID), cache.BrokerAPIKeyKey(b.APIKey))
	if s.prices != nil {
		s.prices.InvalidateBroker(ctx, b.ID)
	}
}

func (s *BrokerService) revoke(ctx context.Context, id uuid.UUID) {
	if s.revoker == nil {
		return
	}
	if err := s.revoker.InvalidatePrincipal(ctx, id.String(), s.tokenTTL); err != nil {
		s.logger.Warn("Failed to revoke broker sessions",
			zap.String("broker_id", id.String()),
			zap.Error(err),
		)
	}
}

func (s *BrokerService) audit(ctx context.Context, action string, id uuid.UUID, actor analytics.Actor, metadata map[string]any) {
	entry := analytics.NewActivityLog(action, "broker", &id, actor, metadata)
	if err := s.activityRepo.Create(ctx, entry); err != nil {
		s.logger.Warn("Failed to write activity log",
			zap.String("action", action),
			zap.Error(err),
		)
	}
}

func pick(v *string, current string) string {
	if v == nil {
		return current
	}
	return *v
}

// publish hands the broker's pending events to the bus. Delivery failures
// are logged; the change is already committed.
func (s *BrokerService) publish(ctx context.Context, b *broker.Broker) {
	events := b.GetDomainEvents()
	if len(events) == 0 {
		return
	}
	b.ClearDomainEvents()
	if s.events == nil {
		return
	}
	if err := s.events.Publish(ctx, events...); err != nil {
		s.logger.Warn("Failed to publish broker events",
			zap.String("broker_id", b.ID.String()),
			zap.Error(err))
	}
}
