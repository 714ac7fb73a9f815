package session

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/marugo-kitchen/api/internal/platform/requestctx"
)

func TestMiddlewareIssuesCookie(t *testing.T) {
	var captured string
	handler := Middleware(Config{CookieName: "mk_session", TTL: time.Hour})(
		http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			captured = requestctx.SessionID(r.Context())
			w.WriteHeader(http.StatusNoContent)
		}))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/cart", nil))

	if captured == "" {
		t.Fatalf("expected session id on context")
	}
	if _, err := ulid.ParseStrict(captured); err != nil {
		t.Fatalf("expected ulid session id got %q: %v", captured, err)
	}

	cookies := rec.Result().Cookies()
	if len(cookies) != 1 || cookies[0].Name != "mk_session" || cookies[0].Value != captured {
		t.Fatalf("expected issued session cookie got %#v", cookies)
	}
	if !cookies[0].HttpOnly {
		t.Fatalf("expected http-only cookie")
	}
}

func TestMiddlewareReusesValidCookie(t *testing.T) {
	existing := ulid.Make().String()
	var captured string
	handler := Middleware(Config{})(
		http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			captured = requestctx.SessionID(r.Context())
		}))

	req := httptest.NewRequest(http.MethodGet, "/cart", nil)
	req.AddCookie(&http.Cookie{Name: defaultCookieName, Value: existing})
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if captured != existing {
		t.Fatalf("expected reused session %q got %q", existing, captured)
	}
	if cookies := rec.Result().Cookies(); len(cookies) != 0 {
		t.Fatalf("expected no new cookie got %#v", cookies)
	}
}

func TestMiddlewareReplacesTamperedCookie(t *testing.T) {
	var captured string
	handler := Middleware(Config{})(
		http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			captured = requestctx.SessionID(r.Context())
		}))

	req := httptest.NewRequest(http.MethodGet, "/cart", nil)
	req.AddCookie(&http.Cookie{Name: defaultCookieName, Value: "not-a-ulid"})
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if captured == "" || captured == "not-a-ulid" {
		t.Fatalf("expected fresh session id got %q", captured)
	}
	if cookies := rec.Result().Cookies(); len(cookies) != 1 {
		t.Fatalf("expected replacement cookie got %#v", cookies)
	}
}
