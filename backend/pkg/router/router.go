// Package router wraps chi with route metadata so every endpoint is registered with
// an operation ID, a summary and its documented parameters.
package router

import (
	"fmt"
	"log/slog"
	"net/http"
	"slices"
	"strings"
	"sync"

	"github.com/go-chi/chi/v5"
)

type ParameterIn string

const (
	ParameterInPath   ParameterIn = "path"
	ParameterInQuery  ParameterIn = "query"
	ParameterInHeader ParameterIn = "header"
)

type ParameterSpec struct {
	In          ParameterIn
	Description string
	Required    bool
}

type ResponseSpec struct {
	Description string
}

type RouteSpec struct {
	OperationID string
	Summary     string
	Description string
	Group       string
	Parameters  map[string]ParameterSpec
	Responses   map[int]ResponseSpec
	Handler     http.HandlerFunc

	method   string
	fullPath string
}

// RouteInfo describes a registered route.
type RouteInfo struct {
	OperationID string   `json:"operationID"`
	Method      string   `json:"method"`
	Path        string   `json:"path"`
	Group       string   `json:"group"`
	Summary     string   `json:"summary"`
	Parameters  []string `json:"parameters,omitempty"`
}

type registry struct {
	mu     sync.Mutex
	routes map[string]RouteInfo
}

type RouteBuilder struct {
	l      *slog.Logger
	router chi.Router
	prefix string
	reg    *registry
}

func NewRouteBuilder(l *slog.Logger) *RouteBuilder {
	return &RouteBuilder{
		l:      l.With(slog.String("component", "route-builder")),
		router: chi.NewRouter(),
		reg:    &registry{routes: make(map[string]RouteInfo)},
	}
}

// Router returns the underlying chi router, for mounting handlers that carry no
// route metadata.
func (rb *RouteBuilder) Router() chi.Router {
	return rb.router
}

func (rb *RouteBuilder) Use(middlewares ...func(http.Handler) http.Handler) {
	rb.router.Use(middlewares...)
}

// Route mounts a sub-router at pattern and hands fn a builder scoped to it.
func (rb *RouteBuilder) Route(pattern string, fn func(rb *RouteBuilder)) {
	rb.router.Route(pattern, func(r chi.Router) {
		fn(&RouteBuilder{
			l:      rb.l,
			router: r,
			prefix: joinPath(rb.prefix, pattern),
			reg:    rb.reg,
		})
	})
}

func (rb *RouteBuilder) Get(path string, spec RouteSpec) error {
	return rb.handle(http.MethodGet, path, spec)
}

func (rb *RouteBuilder) Post(path string, spec RouteSpec) error {
	return rb.handle(http.MethodPost, path, spec)
}

func (rb *RouteBuilder) MustGet(path string, spec RouteSpec) {
	rb.must(rb.Get(path, spec))
}

func (rb *RouteBuilder) MustPost(path string, spec RouteSpec) {
	rb.must(rb.Post(path, spec))
}

func (rb *RouteBuilder) must(err error) {
	if err != nil {
		panic(err)
	}
}

func (rb *RouteBuilder) handle(method, path string, spec RouteSpec) error {
	spec.method = method
	spec.fullPath = joinPath(rb.prefix, path)

	if err := validateRouteSpec(spec); err != nil {
		return fmt.Errorf("invalid route %s %s: %w", method, spec.fullPath, err)
	}
	params, err := validateParameters(spec)
	if err != nil {
		return err
	}

	rb.reg.mu.Lock()
	defer rb.reg.mu.Unlock()

	if existing, ok := rb.reg.routes[spec.OperationID]; ok {
		return fmt.Errorf("duplicate operationID %s: already used by %s %s", spec.OperationID, existing.Method, existing.Path)
	}
	rb.reg.routes[spec.OperationID] = RouteInfo{
		OperationID: spec.OperationID,
		Method:      method,
		Path:        spec.fullPath,
		Group:       spec.Group,
		Summary:     spec.Summary,
		Parameters:  params,
	}

	rb.router.Method(method, path, spec.Handler)
	rb.l.Debug("route registered", slog.String("method", method), slog.String("path", spec.fullPath), slog.String("operation_id", spec.OperationID))
	return nil
}

// Routes lists every registered route ordered by path, then method.
func (rb *RouteBuilder) Routes() []RouteInfo {
	rb.reg.mu.Lock()
	defer rb.reg.mu.Unlock()

	out := make([]RouteInfo, 0, len(rb.reg.routes))
	for _, r := range rb.reg.routes {
		out = append(out, r)
	}
	slices.SortFunc(out, func(a, b RouteInfo) int {
		if c := strings.Compare(a.Path, b.Path); c != 0 {
			return c
		}
		return strings.Compare(a.Method, b.Method)
	})
	return out
}

func joinPath(prefix, path string) string {
	full := strings.TrimSuffix(prefix, "/") + "/" + strings.TrimPrefix(path, "/")
	if len(full) > 1 {
		full = strings.TrimSuffix(full, "/")
	}
	return full
}
