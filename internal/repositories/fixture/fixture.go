// Package fixture provides file-backed repositories for local development,
// replacing the spreadsheet backend when no spreadsheet id is configured.
package fixture

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"sync"

	"gopkg.in/yaml.v3"

	domain "github.com/marugo-kitchen/api/internal/domain"
	"github.com/marugo-kitchen/api/internal/repositories"
)

// File is the on-disk fixture document.
type File struct {
	Products []productEntry `yaml:"products"`
	Tiers    []tierEntry    `yaml:"tiers"`
	Zones    []zoneEntry    `yaml:"zones"`
	Flash    flashEntry     `yaml:"flash"`
}

type productEntry struct {
	ID          string `yaml:"id"`
	Name        string `yaml:"name"`
	Description string `yaml:"description"`
	Price       int64  `yaml:"price"`
	Category    string `yaml:"category"`
}

type tierEntry struct {
	MinTotal        int64 `yaml:"min_total"`
	DiscountPercent int64 `yaml:"discount_percent"`
}

type zoneEntry struct {
	Label    string `yaml:"label"`
	Cost     int64  `yaml:"cost"`
	FreeFrom int64  `yaml:"free_from"`
}

type flashEntry struct {
	FundingThreshold int64 `yaml:"funding_threshold"`
	DiscountPercent  int64 `yaml:"discount_percent"`
}

// Load parses the fixture file at path.
func Load(path string) (*File, error) {
	if strings.TrimSpace(path) == "" {
		return nil, errors.New("fixture: path is required")
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("fixture: read %s: %w", path, err)
	}
	var file File
	if err := yaml.Unmarshal(raw, &file); err != nil {
		return nil, fmt.Errorf("fixture: parse %s: %w", path, err)
	}
	return &file, nil
}

// CatalogRepository serves products parsed from the fixture file.
type CatalogRepository struct {
	products []domain.Product
}

// NewCatalogRepository constructs a fixture-backed catalog repository.
func NewCatalogRepository(file *File) (*CatalogRepository, error) {
	if file == nil {
		return nil, errors.New("fixture catalog repository requires a loaded file")
	}
	products := make([]domain.Product, 0, len(file.Products))
	for _, entry := range file.Products {
		id := strings.TrimSpace(entry.ID)
		if id == "" || entry.Price < 0 {
			continue
		}
		products = append(products, domain.Product{
			ID:          id,
			Name:        strings.TrimSpace(entry.Name),
			Description: strings.TrimSpace(entry.Description),
			Price:       entry.Price,
			Category:    strings.TrimSpace(entry.Category),
			Attributes:  domain.ParseProductAttributes(id),
		})
	}
	return &CatalogRepository{products: products}, nil
}

// ListProducts returns the fixture products in file order.
func (r *CatalogRepository) ListProducts(ctx context.Context) ([]domain.Product, error) {
	if r == nil {
		return nil, errors.New("fixture catalog repository not initialised")
	}
	out := make([]domain.Product, len(r.products))
	copy(out, r.products)
	return out, nil
}

// PromotionRepository serves tiers, zones, and flash constants from the
// fixture file. Zero flash values fall back to the supplied defaults.
type PromotionRepository struct {
	tiers []domain.PromotionTier
	zones []domain.DeliveryZone
	flash repositories.FlashProgram
}

// NewPromotionRepository constructs a fixture-backed promotion repository.
func NewPromotionRepository(file *File, defaults repositories.FlashProgram) (*PromotionRepository, error) {
	if file == nil {
		return nil, errors.New("fixture promotion repository requires a loaded file")
	}

	tiers := make([]domain.PromotionTier, 0, len(file.Tiers))
	for _, entry := range file.Tiers {
		if entry.MinTotal < 0 || entry.DiscountPercent <= 0 || entry.DiscountPercent > 100 {
			continue
		}
		tiers = append(tiers, domain.PromotionTier{MinTotal: entry.MinTotal, DiscountPercent: entry.DiscountPercent})
	}

	zones := make([]domain.DeliveryZone, 0, len(file.Zones))
	for _, entry := range file.Zones {
		label := strings.TrimSpace(entry.Label)
		if label == "" || entry.Cost < 0 || entry.FreeFrom < 0 {
			continue
		}
		zones = append(zones, domain.DeliveryZone{Label: label, Cost: entry.Cost, FreeFrom: entry.FreeFrom})
	}

	flash := defaults
	if file.Flash.FundingThreshold > 0 {
		flash.FundingThreshold = file.Flash.FundingThreshold
	}
	if file.Flash.DiscountPercent > 0 {
		flash.DiscountPercent = file.Flash.DiscountPercent
	}

	return &PromotionRepository{tiers: tiers, zones: zones, flash: flash}, nil
}

// ListTiers returns the fixture tiers in file order.
func (r *PromotionRepository) ListTiers(ctx context.Context) ([]domain.PromotionTier, error) {
	if r == nil {
		return nil, errors.New("fixture promotion repository not initialised")
	}
	out := make([]domain.PromotionTier, len(r.tiers))
	copy(out, r.tiers)
	return out, nil
}

// ListZones returns the fixture zones in file order.
func (r *PromotionRepository) ListZones(ctx context.Context) ([]domain.DeliveryZone, error) {
	if r == nil {
		return nil, errors.New("fixture promotion repository not initialised")
	}
	out := make([]domain.DeliveryZone, len(r.zones))
	copy(out, r.zones)
	return out, nil
}

// FlashProgram returns the fixture flash constants.
func (r *PromotionRepository) FlashProgram(ctx context.Context) (repositories.FlashProgram, error) {
	if r == nil {
		return repositories.FlashProgram{}, errors.New("fixture promotion repository not initialised")
	}
	return r.flash, nil
}

// OrderRepository collects appended orders in memory. Local development has
// no orders worksheet to write to.
type OrderRepository struct {
	mu     sync.Mutex
	orders []domain.OrderRow
}

// NewOrderRepository constructs an in-memory order sink.
func NewOrderRepository() *OrderRepository {
	return &OrderRepository{}
}

// AppendOrder records the order row.
func (r *OrderRepository) AppendOrder(ctx context.Context, row domain.OrderRow) error {
	if r == nil {
		return errors.New("fixture order repository not initialised")
	}
	if strings.TrimSpace(row.OrderNumber) == "" {
		return errors.New("fixture order repository: order number is required")
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.orders = append(r.orders, row)
	return nil
}

// Orders returns a copy of the recorded orders.
func (r *OrderRepository) Orders() []domain.OrderRow {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]domain.OrderRow, len(r.orders))
	copy(out, r.orders)
	return out
}
