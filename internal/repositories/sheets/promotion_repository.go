package sheets

import (
	"context"
	"errors"
	"fmt"
	"strings"

	sheetsv4 "google.golang.org/api/sheets/v4"

	domain "github.com/marugo-kitchen/api/internal/domain"
	"github.com/marugo-kitchen/api/internal/platform/config"
	"github.com/marugo-kitchen/api/internal/platform/sheetsapi"
	"github.com/marugo-kitchen/api/internal/repositories"
)

// Promotion worksheet columns within the configured range.
const (
	tierColMinTotal = iota
	tierColPercent
)

// Zone worksheet columns within the configured range.
const (
	zoneColLabel = iota
	zoneColCost
	zoneColFreeFrom
)

// PromotionRepository reads discount tiers and delivery zones from their
// worksheets. The flash program constants are operator configuration, not
// worksheet data, so they are pinned at construction time.
type PromotionRepository struct {
	provider *sheetsapi.Provider
	cfg      config.SheetsConfig
	flash    repositories.FlashProgram
}

// NewPromotionRepository constructs a Sheets-backed promotion repository.
func NewPromotionRepository(provider *sheetsapi.Provider, cfg config.SheetsConfig, flash repositories.FlashProgram) (*PromotionRepository, error) {
	if provider == nil {
		return nil, errors.New("promotion repository requires sheets provider")
	}
	if strings.TrimSpace(cfg.SpreadsheetID) == "" {
		return nil, errors.New("promotion repository requires spreadsheet id")
	}
	return &PromotionRepository{provider: provider, cfg: cfg, flash: flash}, nil
}

// ListTiers returns discount tiers in worksheet order. Ordering and overlap
// resolution are the caller's concern.
func (r *PromotionRepository) ListTiers(ctx context.Context) ([]domain.PromotionTier, error) {
	if r == nil || r.provider == nil {
		return nil, errors.New("promotion repository not initialised")
	}

	values, err := r.fetch(ctx, r.cfg.PromotionsRange, "list tiers")
	if err != nil {
		return nil, err
	}

	tiers := make([]domain.PromotionTier, 0, len(values))
	for _, row := range values {
		minTotal, minErr := cellInt64(row, tierColMinTotal)
		percent, pctErr := cellInt64(row, tierColPercent)
		if minErr != nil || pctErr != nil {
			continue
		}
		if minTotal < 0 || percent <= 0 || percent > 100 {
			continue
		}
		tiers = append(tiers, domain.PromotionTier{MinTotal: minTotal, DiscountPercent: percent})
	}
	return tiers, nil
}

// ListZones returns delivery zones in worksheet order.
func (r *PromotionRepository) ListZones(ctx context.Context) ([]domain.DeliveryZone, error) {
	if r == nil || r.provider == nil {
		return nil, errors.New("promotion repository not initialised")
	}

	values, err := r.fetch(ctx, r.cfg.ZonesRange, "list zones")
	if err != nil {
		return nil, err
	}

	zones := make([]domain.DeliveryZone, 0, len(values))
	for _, row := range values {
		label := cellString(row, zoneColLabel)
		if label == "" {
			continue
		}
		cost, costErr := cellInt64(row, zoneColCost)
		freeFrom, freeErr := cellInt64(row, zoneColFreeFrom)
		if costErr != nil || freeErr != nil || cost < 0 || freeFrom < 0 {
			continue
		}
		zones = append(zones, domain.DeliveryZone{Label: label, Cost: cost, FreeFrom: freeFrom})
	}
	return zones, nil
}

// FlashProgram returns the configured flash offer constants.
func (r *PromotionRepository) FlashProgram(ctx context.Context) (repositories.FlashProgram, error) {
	if r == nil {
		return repositories.FlashProgram{}, errors.New("promotion repository not initialised")
	}
	return r.flash, nil
}

func (r *PromotionRepository) fetch(ctx context.Context, readRange, op string) ([][]interface{}, error) {
	service, err := r.provider.Service(ctx)
	if err != nil {
		return nil, repositories.NewUnavailableError(err)
	}

	var resp *sheetsv4.ValueRange
	err = sheetsapi.Invoke(ctx, func(ctx context.Context) error {
		var callErr error
		resp, callErr = service.Spreadsheets.Values.
			Get(r.cfg.SpreadsheetID, readRange).
			Context(ctx).
			Do()
		return callErr
	})
	if err != nil {
		return nil, repositories.NewUnavailableError(fmt.Errorf("%s: %w", op, err))
	}
	return resp.Values, nil
}
