package sheets

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	sheetsv4 "google.golang.org/api/sheets/v4"

	domain "github.com/marugo-kitchen/api/internal/domain"
	"github.com/marugo-kitchen/api/internal/platform/config"
	"github.com/marugo-kitchen/api/internal/platform/sheetsapi"
	"github.com/marugo-kitchen/api/internal/repositories"
)

// OrderRepository appends accepted orders to the orders worksheet.
type OrderRepository struct {
	provider *sheetsapi.Provider
	cfg      config.SheetsConfig
}

// NewOrderRepository constructs a Sheets-backed order repository.
func NewOrderRepository(provider *sheetsapi.Provider, cfg config.SheetsConfig) (*OrderRepository, error) {
	if provider == nil {
		return nil, errors.New("order repository requires sheets provider")
	}
	if strings.TrimSpace(cfg.SpreadsheetID) == "" {
		return nil, errors.New("order repository requires spreadsheet id")
	}
	return &OrderRepository{provider: provider, cfg: cfg}, nil
}

// AppendOrder writes one flattened order row. Each call appends exactly one
// row; the worksheet is the system of record for accepted orders.
func (r *OrderRepository) AppendOrder(ctx context.Context, row domain.OrderRow) error {
	if r == nil || r.provider == nil {
		return errors.New("order repository not initialised")
	}
	if strings.TrimSpace(row.OrderNumber) == "" {
		return errors.New("order repository: order number is required")
	}

	service, err := r.provider.Service(ctx)
	if err != nil {
		return repositories.NewUnavailableError(err)
	}

	values := &sheetsv4.ValueRange{
		Values: [][]interface{}{{
			row.OrderNumber,
			row.SessionID,
			row.ZoneLabel,
			row.LineCount,
			row.Subtotal,
			row.Discount,
			row.DeliveryFee,
			row.GrandTotal,
			row.PlacedAt.UTC().Format(time.RFC3339),
		}},
	}

	err = sheetsapi.Invoke(ctx, func(ctx context.Context) error {
		_, callErr := service.Spreadsheets.Values.
			Append(r.cfg.SpreadsheetID, r.cfg.OrdersRange, values).
			ValueInputOption("RAW").
			InsertDataOption("INSERT_ROWS").
			Context(ctx).
			Do()
		return callErr
	})
	if err != nil {
		return repositories.NewUnavailableError(fmt.Errorf("append order: %w", err))
	}
	return nil
}
