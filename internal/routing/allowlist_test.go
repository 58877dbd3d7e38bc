package routing

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestParseAllowlistYAML_Errors(t *testing.T) {
	t.Parallel()

	_, err := ParseAllowlistYAML([]byte{0xff})
	if err == nil {
		t.Fatal("expected yaml error")
	}

	_, err = ParseAllowlistYAML([]byte("version: 2\nentrypoints: {}"))
	if err == nil {
		t.Fatal("expected version error")
	}

	_, err = ParseAllowlistYAML([]byte("version: 1"))
	if err == nil {
		t.Fatal("expected entrypoints error")
	}
}

func testAllowlist() Allowlist {
	return Allowlist{
		Version: 1,
		Entrypoints: map[string]Entrypoint{
			"server": {Routes: []Route{
				{Path: "/health", Methods: []string{"GET"}, RouteClass: "ops"},
				{Path: "/api/v1/assets", Methods: []string{"GET", "POST"}, RouteClass: "public_api"},
				{Path: "/api/v1/imports/{preview_id}/errors", Methods: []string{"GET"}, RouteClass: "public_api"},
			}},
		},
	}
}

func TestAllowlist_Allows(t *testing.T) {
	t.Parallel()

	a := testAllowlist()
	cases := []struct {
		method, path string
		want         bool
	}{
		{"GET", "/health", true},
		{"post", "/api/v1/assets", true},
		{"DELETE", "/api/v1/assets", false},
		{"GET", "/api/v1/imports/abc/errors", true},
		{"GET", "/api/v1/imports/errors", false},
		{"GET", "/metrics", false},
	}
	for _, tc := range cases {
		if got := a.Allows("server", tc.method, tc.path); got != tc.want {
			t.Fatalf("%s %s got=%v want=%v", tc.method, tc.path, got, tc.want)
		}
	}
	if a.Allows("tools", "GET", "/health") {
		t.Fatal("unknown entrypoint must not allow")
	}
}

func TestVerifyRoutes(t *testing.T) {
	t.Parallel()

	a := testAllowlist()
	if err := VerifyRoutes(a, "server", []RouteKey{{Method: "GET", Path: "/health"}, {Method: "POST", Path: "/api/v1/assets"}}); err != nil {
		t.Fatalf("err=%v", err)
	}
	err := VerifyRoutes(a, "server", []RouteKey{{Method: "GET", Path: "/metrics"}, {Method: "PUT", Path: "/api/v1/assets"}})
	if err == nil {
		t.Fatal("expected error")
	}
	if !strings.Contains(err.Error(), "GET /metrics") || !strings.Contains(err.Error(), "PUT /api/v1/assets") {
		t.Fatalf("err=%v", err)
	}
}

func TestRepoAllowlist_LoadsAndIsVersioned(t *testing.T) {
	path, err := DefaultAllowlistPath()
	if err != nil {
		t.Fatal(err)
	}
	a, err := LoadAllowlist(path)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := NewClassifier(a, "server"); err != nil {
		t.Fatal(err)
	}
	for name, ep := range a.Entrypoints {
		for _, r := range ep.Routes {
			if strings.HasPrefix(r.Path, "/api/") && !strings.HasPrefix(r.Path, "/api/v1/") {
				t.Fatalf("%s: non-versioned api route: %s", name, r.Path)
			}
			if len(r.Methods) == 0 {
				t.Fatalf("%s: route without methods: %s", name, r.Path)
			}
		}
	}
}

func TestLoadAllowlist_MissingFile(t *testing.T) {
	t.Parallel()

	if _, err := LoadAllowlist(filepath.Join(t.TempDir(), "nope.yaml")); !os.IsNotExist(err) {
		t.Fatalf("err=%v", err)
	}
}
