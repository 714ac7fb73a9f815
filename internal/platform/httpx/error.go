package httpx

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5/middleware"

	"github.com/marugo-kitchen/api/internal/platform/requestctx"
)

// Error is the JSON error envelope every endpoint returns. Code is a stable
// machine-readable identifier ("flash_offer_rejected", "zone_unknown");
// Message is safe to show to a shopper.
type Error struct {
	Code      string `json:"error"`
	Message   string `json:"message"`
	Status    int    `json:"status"`
	RequestID string `json:"request_id,omitempty"`
	TraceID   string `json:"trace_id,omitempty"`
}

// NewError builds an error envelope. A zero status maps to 500.
func NewError(code, message string, status int) Error {
	if status == 0 {
		status = http.StatusInternalServerError
	}
	return Error{
		Code:    clip(code, 80),
		Message: clip(message, 512),
		Status:  status,
	}
}

// WriteError fills in the request and trace identifiers from the context and
// writes the envelope. Handlers never set those fields themselves.
func WriteError(ctx context.Context, w http.ResponseWriter, err Error) {
	if err.Status == 0 {
		err.Status = http.StatusInternalServerError
	}
	if err.Code == "" {
		err.Code = "internal_server_error"
	}
	if err.RequestID == "" {
		err.RequestID = clip(middleware.GetReqID(ctx), 80)
	}
	if err.TraceID == "" {
		err.TraceID = clip(requestctx.TraceID(ctx), 64)
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(err.Status)
	_ = json.NewEncoder(w).Encode(err)
}

// clip strips newlines and truncates so backend error text cannot smuggle
// log-breaking or oversized content into a response.
func clip(value string, limit int) string {
	value = strings.Map(func(r rune) rune {
		if r == '\n' || r == '\r' {
			return ' '
		}
		return r
	}, value)
	value = strings.TrimSpace(value)
	if limit > 0 && len(value) > limit {
		value = value[:limit]
	}
	return value
}
