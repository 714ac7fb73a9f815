package idempotency

import (
	"bytes"
	"errors"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/marugo-kitchen/api/internal/platform/httpx"
	"github.com/marugo-kitchen/api/internal/platform/requestctx"
)

const (
	defaultHeaderName = "Idempotency-Key"
	replayHeaderName  = "X-Idempotent-Replay"
)

// Logger abstracts the logging dependency used inside the middleware.
type Logger interface {
	Printf(format string, args ...any)
}

type middlewareConfig struct {
	headerName string
	ttl        time.Duration
	clock      func() time.Time
	logger     Logger
}

// MiddlewareOption customises middleware behaviour.
type MiddlewareOption func(*middlewareConfig)

// WithHeader overrides the header carrying the idempotency key.
func WithHeader(name string) MiddlewareOption {
	return func(cfg *middlewareConfig) {
		if name = strings.TrimSpace(name); name != "" {
			cfg.headerName = name
		}
	}
}

// WithTTL configures how long completed responses stay replayable.
func WithTTL(ttl time.Duration) MiddlewareOption {
	return func(cfg *middlewareConfig) {
		if ttl > 0 {
			cfg.ttl = ttl
		}
	}
}

// WithLogger injects a logger for store failures.
func WithLogger(logger Logger) MiddlewareOption {
	return func(cfg *middlewareConfig) {
		cfg.logger = logger
	}
}

// WithClock overrides the time source, primarily for testing.
func WithClock(clock func() time.Time) MiddlewareOption {
	return func(cfg *middlewareConfig) {
		if clock != nil {
			cfg.clock = clock
		}
	}
}

// Middleware guards mutating cart and checkout requests that carry an
// idempotency key. Keys are scoped to the request's session, so two shoppers
// reusing the same key never collide. Requests without the header pass
// through unguarded; replay protection is opt-in per request, which matters
// for order submission and is harmless for cart tweaks.
//
// Server failures (5xx) are not retained: the client may retry the same key
// once the backend recovers.
func Middleware(store Store, opts ...MiddlewareOption) func(http.Handler) http.Handler {
	if store == nil {
		return func(next http.Handler) http.Handler { return next }
	}

	cfg := middlewareConfig{
		headerName: defaultHeaderName,
		ttl:        DefaultTTL,
		clock:      time.Now,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(&cfg)
		}
	}

	return func(next http.Handler) http.Handler {
		if next == nil {
			next = http.HandlerFunc(func(http.ResponseWriter, *http.Request) {})
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !mutating(r.Method) {
				next.ServeHTTP(w, r)
				return
			}
			clientKey := strings.TrimSpace(r.Header.Get(cfg.headerName))
			if clientKey == "" {
				next.ServeHTTP(w, r)
				return
			}

			ctx := r.Context()
			body, err := bufferBody(r)
			if err != nil {
				httpx.WriteError(ctx, w, httpx.NewError("invalid_request", "unable to read request body", http.StatusBadRequest))
				return
			}

			sessionID := strings.TrimSpace(requestctx.SessionID(ctx))
			if sessionID == "" {
				sessionID = "anonymous"
			}
			key := hashKey(sessionID, clientKey)
			fingerprint := requestFingerprint(r, body)

			claim, err := store.Claim(ctx, key, fingerprint, cfg.clock(), cfg.ttl)
			if err != nil {
				if errors.Is(err, ErrKeyReused) {
					httpx.WriteError(ctx, w, httpx.NewError("idempotency_key_conflict", "idempotency key was already used for a different request", http.StatusConflict))
					return
				}
				cfg.printf("idempotency: claim failed for session %s: %v", sessionID, err)
				httpx.WriteError(ctx, w, httpx.NewError("internal_server_error", "unable to process idempotency key", http.StatusInternalServerError))
				return
			}

			switch claim.State {
			case ClaimReplay:
				replay(w, claim.Response)
				return
			case ClaimInFlight:
				httpx.WriteError(ctx, w, httpx.NewError("idempotency_in_progress", "another request with this idempotency key is still processing", http.StatusConflict))
				return
			}

			capture := newCaptureWriter(w)
			next.ServeHTTP(capture, r)

			if capture.Status() >= http.StatusInternalServerError {
				// Let the client retry the same key after a backend failure.
				if err := store.Forget(ctx, key); err != nil {
					cfg.printf("idempotency: forget failed for session %s: %v", sessionID, err)
				}
			} else {
				stored := StoredResponse{
					Status: capture.Status(),
					Header: storableHeader(capture.Header()),
					Body:   capture.Body(),
				}
				if err := store.Complete(ctx, key, stored, cfg.clock(), cfg.ttl); err != nil {
					cfg.printf("idempotency: complete failed for session %s: %v", sessionID, err)
					if forgetErr := store.Forget(ctx, key); forgetErr != nil {
						cfg.printf("idempotency: forget after complete failure: %v", forgetErr)
					}
				}
			}

			capture.Flush()
		})
	}
}

func (cfg *middlewareConfig) printf(format string, args ...any) {
	if cfg.logger != nil {
		cfg.logger.Printf(format, args...)
	}
}

func mutating(method string) bool {
	switch method {
	case http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete:
		return true
	}
	return false
}

func bufferBody(r *http.Request) ([]byte, error) {
	if r.Body == nil {
		return nil, nil
	}
	data, err := io.ReadAll(r.Body)
	if err != nil {
		return nil, err
	}
	if err := r.Body.Close(); err != nil {
		return nil, err
	}
	r.Body = io.NopCloser(bytes.NewReader(data))
	return data, nil
}

// requestFingerprint binds a key to the request it was first used for. The
// session is already part of the store key, so it is not repeated here.
func requestFingerprint(r *http.Request, body []byte) string {
	parts := []string{strings.ToUpper(r.Method), r.URL.Path, r.URL.RawQuery}
	if len(body) > 0 {
		parts = append(parts, digest(string(body)))
	}
	return digest(strings.Join(parts, "\x00"))
}

func replay(w http.ResponseWriter, resp StoredResponse) {
	header := w.Header()
	for name := range header {
		header.Del(name)
	}
	for name, values := range resp.Header {
		for _, value := range values {
			header.Add(name, value)
		}
	}
	header.Set(replayHeaderName, "true")

	status := resp.Status
	if status == 0 {
		status = http.StatusOK
	}
	w.WriteHeader(status)
	if len(resp.Body) > 0 {
		_, _ = w.Write(resp.Body)
	}
}

// storableHeader drops headers that must not be replayed verbatim.
func storableHeader(src http.Header) http.Header {
	if len(src) == 0 {
		return nil
	}
	dst := make(http.Header, len(src))
	for name, values := range src {
		switch http.CanonicalHeaderKey(name) {
		case "Content-Length", "Date", "Connection", "Transfer-Encoding", "Set-Cookie":
			continue
		}
		copied := make([]string, len(values))
		copy(copied, values)
		dst[http.CanonicalHeaderKey(name)] = copied
	}
	if len(dst) == 0 {
		return nil
	}
	return dst
}

// captureWriter buffers the handler's response so it can be stored before it
// is sent to the client.
type captureWriter struct {
	parent http.ResponseWriter
	header http.Header
	status int
	body   bytes.Buffer
}

func newCaptureWriter(parent http.ResponseWriter) *captureWriter {
	return &captureWriter{parent: parent, header: make(http.Header)}
}

func (c *captureWriter) Header() http.Header {
	return c.header
}

func (c *captureWriter) WriteHeader(status int) {
	if status <= 0 {
		status = http.StatusOK
	}
	if c.status == 0 {
		c.status = status
	}
}

func (c *captureWriter) Write(data []byte) (int, error) {
	if c.status == 0 {
		c.status = http.StatusOK
	}
	return c.body.Write(data)
}

func (c *captureWriter) Status() int {
	if c.status == 0 {
		return http.StatusOK
	}
	return c.status
}

func (c *captureWriter) Body() []byte {
	if c.body.Len() == 0 {
		return nil
	}
	return append([]byte(nil), c.body.Bytes()...)
}

// Flush forwards the buffered response to the real writer.
func (c *captureWriter) Flush() {
	dst := c.parent.Header()
	for name, values := range c.header {
		dst[name] = values
	}
	c.parent.WriteHeader(c.Status())
	if c.body.Len() > 0 {
		_, _ = c.parent.Write(c.body.Bytes())
	}
}
