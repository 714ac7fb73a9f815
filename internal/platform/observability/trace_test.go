package observability

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/marugo-kitchen/api/internal/platform/requestctx"
)

func TestParseCloudTraceContext(t *testing.T) {
	traceID := "105445aa7843bc8bf206b12000100000"

	cases := []struct {
		name    string
		header  string
		ok      bool
		sampled bool
	}{
		{name: "decimal span id", header: traceID + "/1;o=1", ok: true, sampled: true},
		{name: "decimal unsampled", header: traceID + "/42;o=0", ok: true},
		{name: "hex span id", header: traceID + "/00f067aa0ba902b7;o=1", ok: true, sampled: true},
		{name: "no options", header: traceID + "/1", ok: true},
		{name: "missing span", header: traceID},
		{name: "short trace id", header: "abc123/1;o=1"},
		{name: "empty", header: ""},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			spanCtx, ok := parseCloudTraceContext(tc.header)
			if ok != tc.ok {
				t.Fatalf("ok=%v, want %v", ok, tc.ok)
			}
			if !tc.ok {
				return
			}
			if spanCtx.TraceID().String() != traceID {
				t.Fatalf("trace id %s, want %s", spanCtx.TraceID(), traceID)
			}
			if !spanCtx.HasSpanID() {
				t.Fatal("span id missing")
			}
			if spanCtx.IsSampled() != tc.sampled {
				t.Fatalf("sampled=%v, want %v", spanCtx.IsSampled(), tc.sampled)
			}
			if !spanCtx.IsRemote() {
				t.Fatal("span context should be marked remote")
			}
		})
	}
}

func TestTraceMiddlewareRecordsTraceInfo(t *testing.T) {
	var got requestctx.TraceInfo
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got, _ = requestctx.Trace(r.Context())
		w.WriteHeader(http.StatusOK)
	})

	req := httptest.NewRequest(http.MethodGet, "/api/v1/catalog/products", nil)
	req.Header.Set(cloudTraceHeader, "105445aa7843bc8bf206b12000100000/1;o=1")

	rr := httptest.NewRecorder()
	TraceMiddleware("marugo-dev")(next).ServeHTTP(rr, req)

	if got.ProjectID != "marugo-dev" {
		t.Fatalf("project id %q", got.ProjectID)
	}
	if got.TraceID != "105445aa7843bc8bf206b12000100000" {
		t.Fatalf("trace id %q should continue the incoming trace", got.TraceID)
	}
	if got.SpanID == "" {
		t.Fatal("span id should be recorded")
	}
	if rr.Header().Get(cloudTraceHeader) == "" {
		t.Fatal("response should echo the trace header")
	}
}
