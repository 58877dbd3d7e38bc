package routing

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func newTestRouter(t *testing.T) *Router {
	t.Helper()

	c, err := NewClassifier(Allowlist{
		Version: 1,
		Entrypoints: map[string]Entrypoint{
			"server": {Routes: []Route{{Path: "/health", Methods: []string{"GET"}, RouteClass: "ops"}}},
		},
	}, "server")
	if err != nil {
		t.Fatal(err)
	}
	return NewRouter(c)
}

func TestRouter_PanicBecomes500JSON(t *testing.T) {
	t.Parallel()

	r := newTestRouter(t)
	r.Handle(RouteClassPublicAPI, http.MethodGet, "/api/v1/panic", http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		panic("boom")
	}))

	req := httptest.NewRequest(http.MethodGet, "/api/v1/panic", nil)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("status=%d", rec.Code)
	}
	if !strings.HasPrefix(rec.Header().Get("Content-Type"), "application/json") {
		t.Fatalf("content-type=%q", rec.Header().Get("Content-Type"))
	}
}

func TestRouter_MethodNotAllowed(t *testing.T) {
	t.Parallel()

	r := newTestRouter(t)
	r.HandleFunc(RouteClassPublicAPI, http.MethodGet, "/api/v1/ping", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	r.HandleFunc(RouteClassOps, http.MethodGet, "/health", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	cases := []struct {
		path   string
		wantCT string
	}{
		{path: "/api/v1/ping", wantCT: "application/json"},
		{path: "/health", wantCT: "text/html"},
	}
	for _, tc := range cases {
		rec := httptest.NewRecorder()
		r.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, tc.path, nil))
		if rec.Code != http.StatusMethodNotAllowed {
			t.Fatalf("path=%s status=%d", tc.path, rec.Code)
		}
		if !strings.HasPrefix(rec.Header().Get("Content-Type"), tc.wantCT) {
			t.Fatalf("path=%s content-type=%q", tc.path, rec.Header().Get("Content-Type"))
		}
	}
}

func TestRouter_NotFoundFollowsRouteClass(t *testing.T) {
	t.Parallel()

	r := newTestRouter(t)
	for _, path := range []string{"/api/v1/unknown", "/ops/api/unknown"} {
		rec := httptest.NewRecorder()
		r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
		if rec.Code != http.StatusNotFound {
			t.Fatalf("path=%s status=%d", path, rec.Code)
		}
		if !strings.HasPrefix(rec.Header().Get("Content-Type"), "application/json") {
			t.Fatalf("path=%s content-type=%q", path, rec.Header().Get("Content-Type"))
		}
	}

	uiRec := httptest.NewRecorder()
	r.ServeHTTP(uiRec, httptest.NewRequest(http.MethodGet, "/inventory", nil))
	if !strings.HasPrefix(uiRec.Header().Get("Content-Type"), "text/html") {
		t.Fatalf("ui content-type=%q", uiRec.Header().Get("Content-Type"))
	}

	uiJSONReq := httptest.NewRequest(http.MethodGet, "/inventory", nil)
	uiJSONReq.Header.Set("Accept", "application/json")
	uiJSONRec := httptest.NewRecorder()
	r.ServeHTTP(uiJSONRec, uiJSONReq)
	if !strings.HasPrefix(uiJSONRec.Header().Get("Content-Type"), "application/json") {
		t.Fatalf("ui json content-type=%q", uiJSONRec.Header().Get("Content-Type"))
	}
}

func TestRouter_Routes(t *testing.T) {
	t.Parallel()

	r := newTestRouter(t)
	noop := func(http.ResponseWriter, *http.Request) {}
	r.HandleFunc(RouteClassPublicAPI, http.MethodPost, "/api/v1/assets", noop)
	r.HandleFunc(RouteClassPublicAPI, http.MethodGet, "/api/v1/assets", noop)
	r.HandleFunc(RouteClassOps, http.MethodGet, "/health", noop)

	got := r.Routes()
	want := []string{"GET /api/v1/assets", "POST /api/v1/assets", "GET /health"}
	if len(got) != len(want) {
		t.Fatalf("got=%v", got)
	}
	for i := range want {
		if got[i].String() != want[i] {
			t.Fatalf("routes[%d]=%q want %q", i, got[i].String(), want[i])
		}
	}
}

func TestEntrypointClass_Fallback(t *testing.T) {
	t.Parallel()

	if got := entrypointClass(map[string]routeEntry{}, RouteClassUI); got != RouteClassUI {
		t.Fatalf("got=%q", got)
	}
}

func TestRouter_PatternRoutes(t *testing.T) {
	t.Parallel()

	r := newTestRouter(t)
	r.HandleFunc(RouteClassPublicAPI, http.MethodGet, "/api/v1/assets/export", func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte("export"))
	})
	r.HandleFunc(RouteClassPublicAPI, http.MethodGet, "/api/v1/assets/{id}", func(w http.ResponseWriter, req *http.Request) {
		_, _ = w.Write([]byte("view:" + PathParam(req, "id")))
	})

	cases := map[string]string{
		"/api/v1/assets/export": "export",
		"/api/v1/assets/a1":     "view:a1",
	}
	for path, want := range cases {
		rec := httptest.NewRecorder()
		r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
		if rec.Body.String() != want {
			t.Fatalf("path=%s body=%q", path, rec.Body.String())
		}
	}

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodDelete, "/api/v1/assets/a1", nil))
	if rec.Code != http.StatusMethodNotAllowed {
		t.Fatalf("status=%d", rec.Code)
	}
	if got := PathParam(httptest.NewRequest(http.MethodGet, "/x", nil), "id"); got != "" {
		t.Fatalf("got=%q", got)
	}
}
