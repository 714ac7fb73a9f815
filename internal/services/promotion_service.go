package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	domain "github.com/marugo-kitchen/api/internal/domain"
	"github.com/marugo-kitchen/api/internal/repositories"
)

// Flash program fallbacks used when the backend supplies no constants.
const (
	defaultFlashThreshold = 2000
	defaultFlashPercent   = 1
)

var (
	errPromotionRepositoryRequired = errors.New("promotion service: repository is required")
	errPromotionClockRequired      = errors.New("promotion service: clock is required")
)

// ErrPromotionUnavailable indicates the promotion backend cannot be reached
// and no cached snapshot exists to serve instead.
var ErrPromotionUnavailable = errors.New("promotion service: unavailable")

// ErrPromotionZoneUnknown indicates the requested delivery zone label does not exist.
var ErrPromotionZoneUnknown = errors.New("promotion service: unknown zone")

// PromotionServiceDeps wires the repository and caching dependencies for promotion reads.
type PromotionServiceDeps struct {
	Repository       repositories.PromotionRepository
	RefreshTTL       time.Duration
	DefaultZoneLabel string
	Clock            func() time.Time
	Logger           func(context.Context, string, map[string]any)
}

type promotionRules struct {
	tiers []domain.PromotionTier
	zones []domain.DeliveryZone
	flash repositories.FlashProgram
}

type promotionService struct {
	repo        repositories.PromotionRepository
	ttl         time.Duration
	defaultZone string
	now         func() time.Time
	logger      func(context.Context, string, map[string]any)

	mu        sync.RWMutex
	rules     *promotionRules
	fetchedAt time.Time
}

// NewPromotionService constructs a PromotionService enforcing dependency validation.
func NewPromotionService(deps PromotionServiceDeps) (PromotionService, error) {
	if deps.Repository == nil {
		return nil, errPromotionRepositoryRequired
	}
	if deps.Clock == nil {
		return nil, errPromotionClockRequired
	}
	ttl := deps.RefreshTTL
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	defaultZone := strings.TrimSpace(deps.DefaultZoneLabel)
	if defaultZone == "" {
		defaultZone = "standard"
	}
	logger := deps.Logger
	if logger == nil {
		logger = func(context.Context, string, map[string]any) {}
	}
	return &promotionService{
		repo:        deps.Repository,
		ttl:         ttl,
		defaultZone: defaultZone,
		now:         func() time.Time { return deps.Clock().UTC() },
		logger:      logger,
	}, nil
}

// Snapshot assembles the rule snapshot for the given zone label. An empty
// label resolves to the configured default zone; an unknown label fails so
// the caller never silently prices against the wrong zone.
func (s *promotionService) Snapshot(ctx context.Context, zoneLabel string) (RuleSnapshot, error) {
	rules, err := s.current(ctx)
	if err != nil {
		return RuleSnapshot{}, err
	}

	label := strings.TrimSpace(zoneLabel)
	if label == "" {
		label = s.defaultZone
	}
	zone, ok := findZone(rules.zones, label)
	if !ok {
		return RuleSnapshot{}, fmt.Errorf("%w: %s", ErrPromotionZoneUnknown, label)
	}

	threshold := rules.flash.FundingThreshold
	if threshold <= 0 {
		threshold = defaultFlashThreshold
	}
	percent := rules.flash.DiscountPercent
	if percent <= 0 || percent > 100 {
		percent = defaultFlashPercent
	}

	tiers := make([]domain.PromotionTier, len(rules.tiers))
	copy(tiers, rules.tiers)

	return RuleSnapshot{
		Tiers:          tiers,
		Zone:           zone,
		FlashThreshold: threshold,
		FlashPercent:   percent,
	}, nil
}

// ListZones returns the known delivery zones.
func (s *promotionService) ListZones(ctx context.Context) ([]DeliveryZone, error) {
	rules, err := s.current(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]DeliveryZone, len(rules.zones))
	copy(out, rules.zones)
	return out, nil
}

func (s *promotionService) current(ctx context.Context) (*promotionRules, error) {
	s.mu.RLock()
	fresh := s.rules != nil && s.now().Sub(s.fetchedAt) < s.ttl
	rules := s.rules
	s.mu.RUnlock()
	if fresh {
		return rules, nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.rules != nil && s.now().Sub(s.fetchedAt) < s.ttl {
		return s.rules, nil
	}

	loaded, err := s.load(ctx)
	if err != nil {
		if s.rules != nil {
			s.logger(ctx, "promotions.refresh_failed_serving_stale", map[string]any{
				"error": err.Error(),
				"age":   s.now().Sub(s.fetchedAt).String(),
			})
			return s.rules, nil
		}
		return nil, fmt.Errorf("%w: %v", ErrPromotionUnavailable, err)
	}

	s.rules = loaded
	s.fetchedAt = s.now()
	s.logger(ctx, "promotions.refreshed", map[string]any{
		"tiers": len(loaded.tiers),
		"zones": len(loaded.zones),
	})
	return s.rules, nil
}

func (s *promotionService) load(ctx context.Context) (*promotionRules, error) {
	tiers, err := s.repo.ListTiers(ctx)
	if err != nil {
		return nil, err
	}
	zones, err := s.repo.ListZones(ctx)
	if err != nil {
		return nil, err
	}
	flash, err := s.repo.FlashProgram(ctx)
	if err != nil {
		return nil, err
	}
	return &promotionRules{tiers: tiers, zones: zones, flash: flash}, nil
}

func findZone(zones []domain.DeliveryZone, label string) (domain.DeliveryZone, bool) {
	for _, zone := range zones {
		if strings.EqualFold(zone.Label, label) {
			return zone, true
		}
	}
	return domain.DeliveryZone{}, false
}
