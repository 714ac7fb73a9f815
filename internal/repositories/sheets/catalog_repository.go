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

// Product worksheet columns within the configured range.
const (
	productColID = iota
	productColName
	productColDescription
	productColPrice
	productColCategory
	productColAvailable
)

// CatalogRepository reads product rows from the catalog worksheet.
type CatalogRepository struct {
	provider *sheetsapi.Provider
	cfg      config.SheetsConfig
}

// NewCatalogRepository constructs a Sheets-backed catalog repository.
func NewCatalogRepository(provider *sheetsapi.Provider, cfg config.SheetsConfig) (*CatalogRepository, error) {
	if provider == nil {
		return nil, errors.New("catalog repository requires sheets provider")
	}
	if strings.TrimSpace(cfg.SpreadsheetID) == "" {
		return nil, errors.New("catalog repository requires spreadsheet id")
	}
	return &CatalogRepository{provider: provider, cfg: cfg}, nil
}

// ListProducts returns every available product row in worksheet order.
// Rows missing an id or a parseable price are skipped rather than failing
// the whole snapshot; the worksheet is hand-edited and partial rows happen.
func (r *CatalogRepository) ListProducts(ctx context.Context) ([]domain.Product, error) {
	if r == nil || r.provider == nil {
		return nil, errors.New("catalog repository not initialised")
	}

	service, err := r.provider.Service(ctx)
	if err != nil {
		return nil, repositories.NewUnavailableError(err)
	}

	var resp *sheetsv4.ValueRange
	err = sheetsapi.Invoke(ctx, func(ctx context.Context) error {
		var callErr error
		resp, callErr = service.Spreadsheets.Values.
			Get(r.cfg.SpreadsheetID, r.cfg.ProductsRange).
			Context(ctx).
			Do()
		return callErr
	})
	if err != nil {
		return nil, repositories.NewUnavailableError(fmt.Errorf("list products: %w", err))
	}

	products := make([]domain.Product, 0, len(resp.Values))
	for _, row := range resp.Values {
		rawID := cellString(row, productColID)
		if rawID == "" {
			continue
		}
		price, priceErr := cellInt64(row, productColPrice)
		if priceErr != nil || price < 0 {
			continue
		}
		if len(row) > productColAvailable && !cellBool(row, productColAvailable) {
			continue
		}
		products = append(products, domain.Product{
			ID:          rawID,
			Name:        cellString(row, productColName),
			Description: cellString(row, productColDescription),
			Price:       price,
			Category:    cellString(row, productColCategory),
			Attributes:  domain.ParseProductAttributes(rawID),
		})
	}
	return products, nil
}
