package router

import (
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newBuilder() *RouteBuilder {
	return NewRouteBuilder(slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func okSpec(id string) RouteSpec {
	return RouteSpec{
		OperationID: id,
		Summary:     "summary",
		Description: "description",
		Group:       "Test",
		Handler: func(w http.ResponseWriter, r *http.Request) {
			_, _ = io.WriteString(w, id+":"+chi.URLParam(r, "command"))
		},
	}
}

func TestRouteBuilderMountsNestedRoutes(t *testing.T) {
	rb := newBuilder()
	rb.Route("/api", func(rb *RouteBuilder) {
		rb.MustGet("/ping", okSpec("ping"))
		rb.Route("/control", func(rb *RouteBuilder) {
			spec := okSpec("control")
			spec.Parameters = map[string]ParameterSpec{
				"command": {In: ParameterInPath, Description: "command name", Required: true},
			}
			rb.MustPost("/{command}", spec)
		})
	})

	rec := httptest.NewRecorder()
	rb.Router().ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/control/setManualPWM", nil))
	assert.Equal(t, "control:setManualPWM", rec.Body.String())

	routes := rb.Routes()
	require.Len(t, routes, 2)
	assert.Equal(t, RouteInfo{OperationID: "control", Method: http.MethodPost, Path: "/api/control/{command}", Group: "Test", Summary: "summary", Parameters: []string{"command"}}, routes[0])
	assert.Equal(t, "/api/ping", routes[1].Path)
}

func TestRouteBuilderRejectsInvalidSpecs(t *testing.T) {
	tests := []struct {
		name   string
		path   string
		mutate func(*RouteSpec)
		errMsg string
	}{
		{name: "missing operation id", path: "/x", mutate: func(s *RouteSpec) { s.OperationID = "" }, errMsg: "OperationID"},
		{name: "missing handler", path: "/x", mutate: func(s *RouteSpec) { s.Handler = nil }, errMsg: "Handler"},
		{name: "undocumented path parameter", path: "/{id}", mutate: func(*RouteSpec) {}, errMsg: "not documented"},
		{name: "unmatched brace", path: "/{id", mutate: func(*RouteSpec) {}, errMsg: "unmatched"},
		{
			name: "optional path parameter",
			path: "/{id}",
			mutate: func(s *RouteSpec) {
				s.Parameters = map[string]ParameterSpec{"id": {In: ParameterInPath, Description: "id"}}
			},
			errMsg: "must be required",
		},
		{
			name: "documented parameter missing from path",
			path: "/x",
			mutate: func(s *RouteSpec) {
				s.Parameters = map[string]ParameterSpec{"id": {In: ParameterInPath, Description: "id", Required: true}}
			},
			errMsg: "not found in path",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			spec := okSpec("op")
			tt.mutate(&spec)
			err := newBuilder().Get(tt.path, spec)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.errMsg)
		})
	}
}

func TestRouteBuilderRejectsDuplicateOperationID(t *testing.T) {
	rb := newBuilder()
	require.NoError(t, rb.Get("/a", okSpec("same")))
	err := rb.Post("/b", okSpec("same"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "duplicate operationID")

	assert.Panics(t, func() { rb.MustGet("/c", okSpec("same")) })
}

func TestJoinPath(t *testing.T) {
	assert.Equal(t, "/api/logs", joinPath("/api", "/logs"))
	assert.Equal(t, "/api", joinPath("/api", "/"))
	assert.Equal(t, "/", joinPath("", "/"))
	assert.Equal(t, "/health", joinPath("", "health"))
}
