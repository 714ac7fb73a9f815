package sheetsapi

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/googleapis/gax-go/v2"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"
	"google.golang.org/api/sheets/v4"

	"github.com/marugo-kitchen/api/internal/platform/config"
)

// ErrProviderClosed is returned when the provider has been shut down.
var ErrProviderClosed = errors.New("sheetsapi: provider is closed")

var defaultBackoff = gax.Backoff{
	Initial:    200 * time.Millisecond,
	Max:        5 * time.Second,
	Multiplier: 2,
}

// Provider lazily initialises a shared Sheets API service instance.
type Provider struct {
	cfg        config.SheetsConfig
	clientOpts []option.ClientOption

	mu      sync.Mutex
	service *sheets.Service
	closed  bool
}

// ProviderOption customises the Provider behaviour.
type ProviderOption func(*Provider)

// WithClientOptions appends client options applied during initialisation.
func WithClientOptions(opts ...option.ClientOption) ProviderOption {
	return func(p *Provider) {
		if len(opts) > 0 {
			p.clientOpts = append(p.clientOpts, opts...)
		}
	}
}

// NewProvider constructs a Provider using the supplied configuration.
func NewProvider(cfg config.SheetsConfig, opts ...ProviderOption) *Provider {
	provider := &Provider{cfg: cfg}
	for _, opt := range opts {
		if opt != nil {
			opt(provider)
		}
	}
	return provider
}

// Service returns the lazily initialised Sheets API service.
func (p *Provider) Service(ctx context.Context) (*sheets.Service, error) {
	if ctx == nil {
		return nil, errors.New("sheetsapi: context is required")
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	if p.closed {
		return nil, ErrProviderClosed
	}
	if p.service != nil {
		return p.service, nil
	}

	opts := make([]option.ClientOption, 0, len(p.clientOpts)+1)
	if file := strings.TrimSpace(p.cfg.CredentialsFile); file != "" {
		opts = append(opts, option.WithCredentialsFile(file))
	}
	opts = append(opts, p.clientOpts...)

	service, err := sheets.NewService(ctx, opts...)
	if err != nil {
		return nil, err
	}
	p.service = service
	return p.service, nil
}

// Close marks the provider closed. The underlying HTTP client carries no
// connection state worth draining.
func (p *Provider) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.closed = true
	p.service = nil
	return nil
}

// Invoke runs fn with exponential backoff, retrying transient Sheets API
// failures (rate limits and server errors).
func Invoke(ctx context.Context, fn func(context.Context) error) error {
	return gax.Invoke(ctx, func(ctx context.Context, _ gax.CallSettings) error {
		return fn(ctx)
	}, gax.WithRetry(func() gax.Retryer {
		return gax.OnErrorFunc(defaultBackoff, IsTransient)
	}))
}

// IsTransient reports whether err is worth retrying.
func IsTransient(err error) bool {
	var apiErr *googleapi.Error
	if !errors.As(err, &apiErr) {
		return false
	}
	switch apiErr.Code {
	case http.StatusTooManyRequests,
		http.StatusInternalServerError,
		http.StatusBadGateway,
		http.StatusServiceUnavailable:
		return true
	}
	return false
}
