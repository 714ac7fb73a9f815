package config

import (
	"fmt"
	"os"
	"sort"
	"strconv"
	"strings"
	"time"
)

const (
	defaultPort            = "8080"
	defaultReadTimeout     = 15 * time.Second
	defaultWriteTimeout    = 30 * time.Second
	defaultIdleTimeout     = 120 * time.Second
	defaultProductsRange   = "Products!A2:F"
	defaultPromotionsRange = "Promotions!A2:B"
	defaultZonesRange      = "Zones!A2:C"
	defaultOrdersRange     = "Orders!A:I"
	defaultFixtureFile     = "promotions.local.yaml"
	defaultCatalogTTL      = 5 * time.Minute
	defaultPromotionsTTL   = 5 * time.Minute
	defaultZoneLabel       = "standard"
	defaultSessionCookie   = "mk_session"
	defaultSessionTTL      = 24 * time.Hour
	defaultIdemHeader      = "Idempotency-Key"
	defaultIdemTTL         = 24 * time.Hour
	defaultFlashThreshold  = 2000
	defaultFlashPercent    = 1
)

// Config captures all runtime configuration organised by concern.
type Config struct {
	Server      ServerConfig
	Sheets      SheetsConfig
	Catalog     CatalogConfig
	Promotions  PromotionsConfig
	Session     SessionConfig
	Idempotency IdempotencyConfig
	Trace       TraceConfig
}

// ServerConfig configures HTTP server parameters.
type ServerConfig struct {
	Port         string
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	IdleTimeout  time.Duration
}

// SheetsConfig locates the backing spreadsheet and its worksheet ranges.
// An empty SpreadsheetID switches the promotion layer to the local fixture
// file, which is the development mode.
type SheetsConfig struct {
	SpreadsheetID   string
	CredentialsFile string
	ProductsRange   string
	PromotionsRange string
	ZonesRange      string
	OrdersRange     string
}

// CatalogConfig controls catalog snapshot caching.
type CatalogConfig struct {
	RefreshTTL time.Duration
}

// PromotionsConfig controls promotion snapshot caching and fallbacks.
type PromotionsConfig struct {
	RefreshTTL       time.Duration
	DefaultZoneLabel string
	FixtureFile      string
	FlashThreshold   int64
	FlashPercent     int64
}

// SessionConfig controls the anonymous session cookie.
type SessionConfig struct {
	CookieName string
	TTL        time.Duration
}

// IdempotencyConfig controls idempotency middleware behaviour.
type IdempotencyConfig struct {
	Header string
	TTL    time.Duration
}

// TraceConfig carries the project id used to form Cloud Logging trace resources.
type TraceConfig struct {
	ProjectID string
}

// ValidationError is returned when required configuration fields are missing or invalid.
type ValidationError struct {
	fields []string
}

// Error implements the error interface.
func (e *ValidationError) Error() string {
	return fmt.Sprintf("config validation failed: missing or invalid fields [%s]", strings.Join(e.fields, ", "))
}

// Fields returns a copy of the missing/invalid field list.
func (e *ValidationError) Fields() []string {
	out := make([]string, len(e.fields))
	copy(out, e.fields)
	return out
}

// Load assembles the configuration from API_* environment variables, applying
// defaults and validating the result.
func Load() (Config, error) {
	cfg := Config{
		Server: ServerConfig{
			Port:         envString("API_SERVER_PORT", defaultPort),
			ReadTimeout:  envDuration("API_SERVER_READ_TIMEOUT", defaultReadTimeout),
			WriteTimeout: envDuration("API_SERVER_WRITE_TIMEOUT", defaultWriteTimeout),
			IdleTimeout:  envDuration("API_SERVER_IDLE_TIMEOUT", defaultIdleTimeout),
		},
		Sheets: SheetsConfig{
			SpreadsheetID:   envString("API_SHEETS_SPREADSHEET_ID", ""),
			CredentialsFile: envString("API_SHEETS_CREDENTIALS_FILE", ""),
			ProductsRange:   envString("API_SHEETS_PRODUCTS_RANGE", defaultProductsRange),
			PromotionsRange: envString("API_SHEETS_PROMOTIONS_RANGE", defaultPromotionsRange),
			ZonesRange:      envString("API_SHEETS_ZONES_RANGE", defaultZonesRange),
			OrdersRange:     envString("API_SHEETS_ORDERS_RANGE", defaultOrdersRange),
		},
		Catalog: CatalogConfig{
			RefreshTTL: envDuration("API_CATALOG_REFRESH_TTL", defaultCatalogTTL),
		},
		Promotions: PromotionsConfig{
			RefreshTTL:       envDuration("API_PROMOTIONS_REFRESH_TTL", defaultPromotionsTTL),
			DefaultZoneLabel: envString("API_PROMOTIONS_DEFAULT_ZONE", defaultZoneLabel),
			FixtureFile:      envString("API_PROMOTIONS_FIXTURE_FILE", defaultFixtureFile),
			FlashThreshold:   envInt64("API_PROMOTIONS_FLASH_THRESHOLD", defaultFlashThreshold),
			FlashPercent:     envInt64("API_PROMOTIONS_FLASH_PERCENT", defaultFlashPercent),
		},
		Session: SessionConfig{
			CookieName: envString("API_SESSION_COOKIE", defaultSessionCookie),
			TTL:        envDuration("API_SESSION_TTL", defaultSessionTTL),
		},
		Idempotency: IdempotencyConfig{
			Header: envString("API_IDEMPOTENCY_HEADER", defaultIdemHeader),
			TTL:    envDuration("API_IDEMPOTENCY_TTL", defaultIdemTTL),
		},
		Trace: TraceConfig{
			ProjectID: envString("API_TRACE_PROJECT_ID", ""),
		},
	}

	if err := validate(cfg); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func validate(cfg Config) error {
	var invalid []string

	if strings.TrimSpace(cfg.Server.Port) == "" {
		invalid = append(invalid, "Server.Port")
	} else if _, err := strconv.Atoi(cfg.Server.Port); err != nil {
		invalid = append(invalid, "Server.Port")
	}
	if cfg.Server.ReadTimeout <= 0 {
		invalid = append(invalid, "Server.ReadTimeout")
	}
	if cfg.Server.WriteTimeout <= 0 {
		invalid = append(invalid, "Server.WriteTimeout")
	}

	if strings.TrimSpace(cfg.Sheets.SpreadsheetID) == "" && strings.TrimSpace(cfg.Promotions.FixtureFile) == "" {
		invalid = append(invalid, "Sheets.SpreadsheetID")
	}
	if strings.TrimSpace(cfg.Sheets.SpreadsheetID) != "" {
		if strings.TrimSpace(cfg.Sheets.ProductsRange) == "" {
			invalid = append(invalid, "Sheets.ProductsRange")
		}
		if strings.TrimSpace(cfg.Sheets.PromotionsRange) == "" {
			invalid = append(invalid, "Sheets.PromotionsRange")
		}
		if strings.TrimSpace(cfg.Sheets.ZonesRange) == "" {
			invalid = append(invalid, "Sheets.ZonesRange")
		}
	}

	if cfg.Catalog.RefreshTTL <= 0 {
		invalid = append(invalid, "Catalog.RefreshTTL")
	}
	if cfg.Promotions.RefreshTTL <= 0 {
		invalid = append(invalid, "Promotions.RefreshTTL")
	}
	if cfg.Promotions.FlashThreshold < 0 {
		invalid = append(invalid, "Promotions.FlashThreshold")
	}
	if cfg.Promotions.FlashPercent <= 0 || cfg.Promotions.FlashPercent > 100 {
		invalid = append(invalid, "Promotions.FlashPercent")
	}
	if strings.TrimSpace(cfg.Promotions.DefaultZoneLabel) == "" {
		invalid = append(invalid, "Promotions.DefaultZoneLabel")
	}
	if strings.TrimSpace(cfg.Session.CookieName) == "" {
		invalid = append(invalid, "Session.CookieName")
	}

	if len(invalid) == 0 {
		return nil
	}
	sort.Strings(invalid)
	return &ValidationError{fields: invalid}
}

func envString(key, fallback string) string {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return fallback
	}
	return value
}

func envDuration(key string, fallback time.Duration) time.Duration {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return fallback
	}
	parsed, err := time.ParseDuration(raw)
	if err != nil {
		return fallback
	}
	return parsed
}

func envInt64(key string, fallback int64) int64 {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return fallback
	}
	parsed, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return fallback
	}
	return parsed
}
