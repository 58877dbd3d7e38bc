package routing

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/jacksonlee411/assetdesk/pkg/logger"
)

type captureLogger struct {
	entries *[]string
	fields  []any
}

func (c captureLogger) log(level, msg string) { *c.entries = append(*c.entries, level+":"+msg) }

func (c captureLogger) Debug(msg string, _ ...any) { c.log("debug", msg) }
func (c captureLogger) Info(msg string, _ ...any)  { c.log("info", msg) }
func (c captureLogger) Warn(msg string, _ ...any)  { c.log("warn", msg) }
func (c captureLogger) Error(msg string, _ ...any) { c.log("error", msg) }
func (c captureLogger) With(kv ...any) logger.Logger {
	return captureLogger{entries: c.entries, fields: append(append([]any{}, c.fields...), kv...)}
}

func TestWithRequestLog(t *testing.T) {
	t.Parallel()

	c, err := NewClassifier(Allowlist{Version: 1, Entrypoints: map[string]Entrypoint{
		"server": {Routes: []Route{{Path: "/health", Methods: []string{"GET"}, RouteClass: "ops"}}},
	}}, "server")
	if err != nil {
		t.Fatal(err)
	}

	var entries []string
	base := captureLogger{entries: &entries}
	var fromCtx logger.Logger
	h := WithRequestLog(c, base, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fromCtx = logger.FromContext(r.Context())
		switch r.URL.Path {
		case "/api/v1/fail":
			w.WriteHeader(http.StatusInternalServerError)
		default:
			_, _ = w.Write([]byte("ok"))
		}
	}))

	cases := []struct {
		path string
		want string
	}{
		{path: "/api/v1/assets", want: "info:request"},
		{path: "/health", want: "debug:request"},
		{path: "/api/v1/fail", want: "error:request"},
	}
	for _, tc := range cases {
		entries = entries[:0]
		req := httptest.NewRequest(http.MethodGet, tc.path, nil)
		req.Header.Set("traceparent", "00-0123456789abcdef0123456789abcdef-0123456789abcdef-01")
		h.ServeHTTP(httptest.NewRecorder(), req)
		if len(entries) != 1 || entries[0] != tc.want {
			t.Fatalf("path=%s entries=%v", tc.path, entries)
		}
		cl, ok := fromCtx.(captureLogger)
		if !ok {
			t.Fatalf("context logger=%T", fromCtx)
		}
		if len(cl.fields) != 6 {
			t.Fatalf("fields=%v", cl.fields)
		}
	}
}

func TestStatusRecorder_DefaultsToOK(t *testing.T) {
	t.Parallel()

	rec := &statusRecorder{ResponseWriter: httptest.NewRecorder()}
	_, _ = rec.Write([]byte("abc"))
	rec.WriteHeader(http.StatusTeapot)
	if rec.status != http.StatusOK || rec.bytes != 3 {
		t.Fatalf("status=%d bytes=%d", rec.status, rec.bytes)
	}
}
