package di

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/marugo-kitchen/api/internal/platform/config"
	"github.com/marugo-kitchen/api/internal/platform/sheetsapi"
	"github.com/marugo-kitchen/api/internal/repositories"
	"github.com/marugo-kitchen/api/internal/repositories/fixture"
	"github.com/marugo-kitchen/api/internal/repositories/sheets"
	"github.com/marugo-kitchen/api/internal/services"
)

// Repositories bundles the storefront data dependencies behind their contracts.
// Concrete implementations come from the spreadsheet backend or the local fixture.
type Repositories struct {
	Catalog    repositories.CatalogRepository
	Promotions repositories.PromotionRepository
	Orders     repositories.OrderRepository
}

// Services bundles the service-layer contracts that handlers rely upon.
type Services struct {
	Catalog    services.CatalogService
	Promotions services.PromotionService
	Cart       services.CartService
	Checkout   services.CheckoutService
}

// Container wires repositories and services for runtime use.
type Container struct {
	Config       config.Config
	Repositories Repositories
	Services     Services

	provider *sheetsapi.Provider
}

// NewContainer assembles the runtime dependencies. When the configuration names
// a spreadsheet, repositories read through the Sheets API; otherwise the local
// fixture file backs the catalog and promotions, and orders stay in memory.
func NewContainer(ctx context.Context, cfg config.Config, logger *zap.Logger) (*Container, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	c := &Container{Config: cfg}

	flashDefaults := repositories.FlashProgram{
		FundingThreshold: cfg.Promotions.FlashThreshold,
		DiscountPercent:  cfg.Promotions.FlashPercent,
	}

	if strings.TrimSpace(cfg.Sheets.SpreadsheetID) != "" {
		if err := c.buildSheetsRepositories(cfg, flashDefaults); err != nil {
			return nil, err
		}
		logger.Info("container: using sheets backend",
			zap.String("spreadsheet_id", cfg.Sheets.SpreadsheetID))
	} else {
		if err := c.buildFixtureRepositories(cfg, flashDefaults); err != nil {
			return nil, err
		}
		logger.Info("container: using fixture backend",
			zap.String("fixture_file", cfg.Promotions.FixtureFile))
	}

	svc, err := buildServices(cfg, c.Repositories, logger)
	if err != nil {
		c.closeProvider()
		return nil, err
	}
	c.Services = svc
	return c, nil
}

// Close releases the Sheets client when one was opened. Fixture-backed
// containers hold no external resources.
func (c *Container) Close(ctx context.Context) error {
	if c == nil {
		return nil
	}
	return c.closeProvider()
}

// FixtureOrders exposes the in-memory order sink when the container runs in
// fixture mode, for inspection by local tooling. It returns nil in sheets mode.
func (c *Container) FixtureOrders() *fixture.OrderRepository {
	if c == nil {
		return nil
	}
	if sink, ok := c.Repositories.Orders.(*fixture.OrderRepository); ok {
		return sink
	}
	return nil
}

func (c *Container) buildSheetsRepositories(cfg config.Config, flash repositories.FlashProgram) error {
	provider := sheetsapi.NewProvider(cfg.Sheets)

	catalogRepo, err := sheets.NewCatalogRepository(provider, cfg.Sheets)
	if err != nil {
		return fmt.Errorf("build catalog repository: %w", err)
	}
	promotionRepo, err := sheets.NewPromotionRepository(provider, cfg.Sheets, flash)
	if err != nil {
		return fmt.Errorf("build promotion repository: %w", err)
	}
	orderRepo, err := sheets.NewOrderRepository(provider, cfg.Sheets)
	if err != nil {
		return fmt.Errorf("build order repository: %w", err)
	}

	c.provider = provider
	c.Repositories = Repositories{
		Catalog:    catalogRepo,
		Promotions: promotionRepo,
		Orders:     orderRepo,
	}
	return nil
}

func (c *Container) buildFixtureRepositories(cfg config.Config, flash repositories.FlashProgram) error {
	path := strings.TrimSpace(cfg.Promotions.FixtureFile)
	if path == "" {
		return errors.New("fixture file path is required when no spreadsheet is configured")
	}
	file, err := fixture.Load(path)
	if err != nil {
		return fmt.Errorf("load fixture file: %w", err)
	}

	catalogRepo, err := fixture.NewCatalogRepository(file)
	if err != nil {
		return fmt.Errorf("build fixture catalog repository: %w", err)
	}
	promotionRepo, err := fixture.NewPromotionRepository(file, flash)
	if err != nil {
		return fmt.Errorf("build fixture promotion repository: %w", err)
	}

	c.Repositories = Repositories{
		Catalog:    catalogRepo,
		Promotions: promotionRepo,
		Orders:     fixture.NewOrderRepository(),
	}
	return nil
}

func (c *Container) closeProvider() error {
	if c.provider == nil {
		return nil
	}
	err := c.provider.Close()
	c.provider = nil
	return err
}

func buildServices(cfg config.Config, repos Repositories, logger *zap.Logger) (Services, error) {
	var svc Services

	catalogSvc, err := services.NewCatalogService(services.CatalogServiceDeps{
		Repository: repos.Catalog,
		RefreshTTL: cfg.Catalog.RefreshTTL,
		Clock:      time.Now,
		Logger:     eventLogger(logger.Named("catalog")),
	})
	if err != nil {
		return Services{}, fmt.Errorf("build catalog service: %w", err)
	}
	svc.Catalog = catalogSvc

	promotionSvc, err := services.NewPromotionService(services.PromotionServiceDeps{
		Repository:       repos.Promotions,
		RefreshTTL:       cfg.Promotions.RefreshTTL,
		DefaultZoneLabel: cfg.Promotions.DefaultZoneLabel,
		Clock:            time.Now,
		Logger:           eventLogger(logger.Named("promotions")),
	})
	if err != nil {
		return Services{}, fmt.Errorf("build promotion service: %w", err)
	}
	svc.Promotions = promotionSvc

	cartSvc, err := services.NewCartService(services.CartServiceDeps{
		Catalog:    catalogSvc,
		Promotions: promotionSvc,
		Clock:      time.Now,
		Logger:     eventLogger(logger.Named("cart")),
	})
	if err != nil {
		return Services{}, fmt.Errorf("build cart service: %w", err)
	}
	svc.Cart = cartSvc

	checkoutSvc, err := services.NewCheckoutService(services.CheckoutServiceDeps{
		Carts:  cartSvc,
		Orders: repos.Orders,
		Clock:  time.Now,
		Logger: eventLogger(logger.Named("checkout")),
	})
	if err != nil {
		return Services{}, fmt.Errorf("build checkout service: %w", err)
	}
	svc.Checkout = checkoutSvc

	return svc, nil
}

func eventLogger(logger *zap.Logger) func(context.Context, string, map[string]any) {
	return func(_ context.Context, event string, fields map[string]any) {
		zFields := make([]zap.Field, 0, len(fields)+1)
		zFields = append(zFields, zap.String("event", event))
		for k, v := range fields {
			zFields = append(zFields, zap.Any(k, v))
		}
		logger.Debug(event, zFields...)
	}
}
