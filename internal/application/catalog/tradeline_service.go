package catalog

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/tradelinemarket/backend/internal/domain/catalog"
	"github.com/tradelinemarket/backend/internal/domain/pricing"
	"github.com/tradelinemarket/backend/internal/domain/shared"
	"github.com/tradelinemarket/backend/internal/infrastructure/cache"
)

// FeedSource provides the raw supplier pricing feed
type FeedSource interface {
	FetchPricing(ctx context.Context) ([]catalog.RawTradeline, error)
}

// PricedTradeline is a catalog entry with its per-unit price split
type PricedTradeline struct {
	catalog.Tradeline
	Pricing pricing.Breakdown `json:"pricing"`
}

// QuoteItem is one requested card and quantity
type QuoteItem struct {
	CardID   string
	Quantity int
}

// TradelineService serves the normalized catalog and computed price lists.
// Results are memoised in the advisory cache.
type TradelineService struct {
	feed   FeedSource
	cache  *cache.Advisory
	logger *zap.Logger
}

// NewTradelineService creates a new TradelineService
func NewTradelineService(feed FeedSource, advisory *cache.Advisory, logger *zap.Logger) *TradelineService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &TradelineService{
		feed:   feed,
		cache:  advisory,
		logger: logger.Named("tradelines"),
	}
}

// Tradelines returns the normalized supplier catalog
func (s *TradelineService) Tradelines(ctx context.Context) ([]catalog.Tradeline, error) {
	var cached []catalog.Tradeline
	if s.cache.Get(ctx, cache.KeyTradelines, &cached) {
		return cached, nil
	}

	raw, err := s.feed.FetchPricing(ctx)
	if err != nil {
		return nil, fmt.Errorf("fetch supplier pricing: %w", err)
	}
	list := catalog.NormalizeFeed(raw)
	s.logger.Debug("Supplier feed refreshed",
		zap.Int("raw", len(raw)),
		zap.Int("priced", len(list)),
	)

	s.cache.Set(ctx, cache.KeyTradelines, list, cache.TTLTradelines)
	return list, nil
}

// BasePricing returns the catalog priced as a direct sale
func (s *TradelineService) BasePricing(ctx context.Context, excludeBanks []string) ([]PricedTradeline, error) {
	list, err := s.priced(ctx, cache.KeyPricingBase, nil)
	if err != nil {
		return nil, err
	}
	return excludePriced(list, excludeBanks), nil
}

// BrokerPricing returns the catalog priced with a broker's terms
func (s *TradelineService) BrokerPricing(ctx context.Context, brokerID uuid.UUID, terms pricing.BrokerTerms, excludeBanks []string) ([]PricedTradeline, error) {
	list, err := s.priced(ctx, cache.PricingBrokerKey(brokerID), &terms)
	if err != nil {
		return nil, err
	}
	return excludePriced(list, excludeBanks), nil
}

func (s *TradelineService) priced(ctx context.Context, key string, terms *pricing.BrokerTerms) ([]PricedTradeline, error) {
	var cached []PricedTradeline
	if s.cache.Get(ctx, key, &cached) {
		return cached, nil
	}

	list, err := s.Tradelines(ctx)
	if err != nil {
		return nil, err
	}

	out := make([]PricedTradeline, 0, len(list))
	for _, t := range list {
		b, err := pricing.Calculate(t.Price, terms)
		if err != nil {
			return nil, err
		}
		out = append(out, PricedTradeline{Tradeline: t, Pricing: b})
	}

	s.cache.Set(ctx, key, out, cache.TTLPricing)
	return out, nil
}

// Quote prices a cart against the live catalog. terms is nil for a direct sale.
func (s *TradelineService) Quote(ctx context.Context, items []QuoteItem, terms *pricing.BrokerTerms, promoCode string, excludeBanks []string) (pricing.Quote, error) {
	if len(items) == 0 {
		return pricing.Quote{}, shared.NewDomainError("INVALID_INPUT", "At least one item is required")
	}

	list, err := s.Tradelines(ctx)
	if err != nil {
		return pricing.Quote{}, err
	}
	list = catalog.ExcludeBanks(list, excludeBanks)

	lines := make([]pricing.LineInput, 0, len(items))
	for _, item := range items {
		t, ok := catalog.FindByCardID(list, item.CardID)
		if !ok {
			return pricing.Quote{}, shared.NewDomainError("INVALID_INPUT", fmt.Sprintf("Tradeline %s is not available", item.CardID))
		}
		if item.Quantity > t.Stock {
			return pricing.Quote{}, shared.NewDomainError("INVALID_INPUT", fmt.Sprintf("Only %d slots left for tradeline %s", t.Stock, item.CardID))
		}
		lines = append(lines, pricing.LineInput{
			CardID:      t.CardID,
			BankName:    t.BankName,
			CreditLimit: t.CreditLimit,
			BasePrice:   t.Price,
			Quantity:    item.Quantity,
		})
	}

	return pricing.BuildQuote(lines, terms, promoCode)
}

// InvalidateBroker drops a broker's memoised price list
func (s *TradelineService) InvalidateBroker(ctx context.Context, brokerID uuid.UUID) {
	s.cache.Delete(ctx, cache.PricingBrokerKey(brokerID))
}

// InvalidateAll drops the feed and every price list
func (s *TradelineService) InvalidateAll(ctx context.Context) {
	s.cache.Delete(ctx, cache.KeyTradelines, cache.KeyPricingBase)
	s.cache.DeletePattern(ctx, cache.PatternPricingBrokers)
}

func excludePriced(list []PricedTradeline, banks []string) []PricedTradeline {
	if len(banks) == 0 {
		return list
	}
	plain := make([]catalog.Tradeline, len(list))
	for i := range list {
		plain[i] = list[i].Tradeline
	}
	keep := make(map[string]struct{})
	for _, t := range catalog.ExcludeBanks(plain, banks) {
		keep[t.CardID] = struct{}{}
	}
	out := make([]PricedTradeline, 0, len(keep))
	for _, p := range list {
		if _, ok := keep[p.CardID]; ok {
			out = append(out, p)
		}
	}
	return out
}
