package routing

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"
)

// Allowlist is config/routing/allowlist.yaml: every route an entrypoint may
// serve, with its methods and route class.
type Allowlist struct {
	Version     int                   `yaml:"version"`
	Entrypoints map[string]Entrypoint `yaml:"entrypoints"`
}

type Entrypoint struct {
	Routes []Route `yaml:"routes"`
}

type Route struct {
	Path       string   `yaml:"path"`
	Methods    []string `yaml:"methods"`
	RouteClass string   `yaml:"route_class"`
}

// RouteKey identifies one registered handler.
type RouteKey struct {
	Method string
	Path   string
}

func (k RouteKey) String() string { return k.Method + " " + k.Path }

func ParseAllowlistYAML(b []byte) (Allowlist, error) {
	var a Allowlist
	if err := yaml.Unmarshal(b, &a); err != nil {
		return Allowlist{}, err
	}
	if a.Version != 1 {
		return Allowlist{}, errors.New("allowlist: unsupported version")
	}
	if a.Entrypoints == nil {
		return Allowlist{}, errors.New("allowlist: missing entrypoints")
	}
	return a, nil
}

func LoadAllowlist(path string) (Allowlist, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return Allowlist{}, err
	}
	return ParseAllowlistYAML(b)
}

// DefaultAllowlistPath walks up from the working directory looking for
// config/routing/allowlist.yaml.
func DefaultAllowlistPath() (string, error) {
	path := "config/routing/allowlist.yaml"
	for range 8 {
		if _, err := os.Stat(path); err == nil {
			return path, nil
		}
		path = filepath.Join("..", path)
	}
	return "", errors.New("routing: allowlist not found")
}

// Allows reports whether entrypoint lists method on path (exact or pattern).
func (a Allowlist) Allows(entrypoint string, method string, path string) bool {
	ep, ok := a.Entrypoints[entrypoint]
	if !ok {
		return false
	}
	for _, r := range ep.Routes {
		if r.Path != path {
			p, ok := parsePathPattern(r.Path)
			if !ok || !p.Match(path) {
				continue
			}
		}
		for _, m := range r.Methods {
			if strings.EqualFold(m, method) {
				return true
			}
		}
	}
	return false
}

// VerifyRoutes fails when a registered handler is missing from the allowlist.
func VerifyRoutes(a Allowlist, entrypoint string, registered []RouteKey) error {
	var missing []string
	for _, k := range registered {
		if !a.Allows(entrypoint, k.Method, k.Path) {
			missing = append(missing, k.String())
		}
	}
	if len(missing) == 0 {
		return nil
	}
	sort.Strings(missing)
	return fmt.Errorf("allowlist: %s routes not listed: %s", entrypoint, strings.Join(missing, ", "))
}
