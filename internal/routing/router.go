package routing

import (
	"fmt"
	"net/http"
	"runtime/debug"
	"sort"

	"github.com/jacksonlee411/assetdesk/pkg/logger"
)

// Router dispatches on exact path, then on {param} patterns in registration
// order, then on method. Unknown paths and methods get the error envelope of
// the path's route class.
type Router struct {
	classifier *Classifier
	routes     map[string]map[string]routeEntry
	patterns   []patternEntry
}

type patternEntry struct {
	pattern PathPattern
	methods map[string]routeEntry
}

type routeEntry struct {
	rc      RouteClass
	handler http.Handler
}

func NewRouter(classifier *Classifier) *Router {
	return &Router{
		classifier: classifier,
		routes:     make(map[string]map[string]routeEntry),
	}
}

// Handle registers h. Paths containing {name} segments become pattern routes
// readable through PathParam. A panic inside h is logged and answered with a 500.
func (r *Router) Handle(rc RouteClass, method string, path string, h http.Handler) {
	r.methodsFor(path)[method] = routeEntry{
		rc: rc,
		handler: http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
			defer func() {
				if rec := recover(); rec != nil {
					logger.FromContext(req.Context()).Error("handler panic",
						"path", req.URL.Path,
						"method", req.Method,
						"panic", fmt.Sprint(rec),
						"stack", string(debug.Stack()),
					)
					WriteError(w, req, rc, http.StatusInternalServerError, "internal_error", "internal error")
				}
			}()
			h.ServeHTTP(w, req)
		}),
	}
}

func (r *Router) methodsFor(path string) map[string]routeEntry {
	if p, ok := parsePathPattern(path); ok {
		for _, e := range r.patterns {
			if e.pattern.raw == path {
				return e.methods
			}
		}
		e := patternEntry{pattern: p, methods: make(map[string]routeEntry)}
		r.patterns = append(r.patterns, e)
		return e.methods
	}
	if r.routes[path] == nil {
		r.routes[path] = make(map[string]routeEntry)
	}
	return r.routes[path]
}

func (r *Router) HandleFunc(rc RouteClass, method string, path string, fn func(http.ResponseWriter, *http.Request)) {
	r.Handle(rc, method, path, http.HandlerFunc(fn))
}

// Routes lists every registered method and path, sorted by path.
func (r *Router) Routes() []RouteKey {
	out := make([]RouteKey, 0, len(r.routes)+len(r.patterns))
	for path, methods := range r.routes {
		for method := range methods {
			out = append(out, RouteKey{Method: method, Path: path})
		}
	}
	for _, e := range r.patterns {
		for method := range e.methods {
			out = append(out, RouteKey{Method: method, Path: e.pattern.raw})
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Path != out[j].Path {
			return out[i].Path < out[j].Path
		}
		return out[i].Method < out[j].Method
	})
	return out
}

func (r *Router) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	methods, ok := r.routes[req.URL.Path]
	if !ok {
		for _, e := range r.patterns {
			if params, match := e.pattern.Params(req.URL.Path); match {
				methods, ok = e.methods, true
				req = req.WithContext(withPathParams(req.Context(), params))
				break
			}
		}
	}
	if !ok {
		WriteError(w, req, r.classifier.Classify(req.URL.Path), http.StatusNotFound, "not_found", "not found")
		return
	}
	entry, ok := methods[req.Method]
	if !ok {
		WriteError(w, req, entrypointClass(methods, r.classifier.Classify(req.URL.Path)), http.StatusMethodNotAllowed, "method_not_allowed", "method not allowed")
		return
	}
	entry.handler.ServeHTTP(w, req)
}

func entrypointClass(methods map[string]routeEntry, fallback RouteClass) RouteClass {
	for _, e := range methods {
		return e.rc
	}
	return fallback
}
