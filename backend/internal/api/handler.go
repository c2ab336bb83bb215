package api

import (
	"log/slog"
	"net/http"
	"time"

	"smart-led-controller/backend/internal/services"
	"smart-led-controller/backend/pkg/router"
)

const (
	CoreGroup      = "Core"
	LogsGroup      = "Logs"
	AnalyticsGroup = "Analytics"
	ControlGroup   = "Control"
)

type Handler struct {
	l   *slog.Logger
	svc *services.Services
	mw  *MiddlewareHandler
	loc *time.Location
	now func() time.Time
	// routes is filled once registration is complete
	routes []router.RouteInfo
}

// NewAPIHandler creates the REST handler. Dates in query strings are read in loc.
func NewAPIHandler(l *slog.Logger, svc *services.Services, loc *time.Location) *Handler {
	if loc == nil {
		loc = time.Local
	}
	return &Handler{
		l:   l.With(slog.String("component", "api")),
		svc: svc,
		mw:  NewMiddlewareHandler(l),
		loc: loc,
		now: time.Now,
	}
}

// Register mounts every REST route under /api plus the bare /health probe.
func (h *Handler) Register(rb *router.RouteBuilder) {
	rb.Route("/api", func(rb *router.RouteBuilder) {
		rb.Use(h.mw.RecoveryMiddleware)
		rb.Use(h.mw.RequestIDMiddleware)
		rb.Use(h.mw.LoggerMiddleware)

		h.RegisterPing("/ping", rb)
		h.RegisterHealth("/health", rb)
		h.RegisterRoutes("/routes", rb)
		h.RegisterStats("/stats", rb)
		h.RegisterState("/state", rb)

		rb.Route("/logs", func(rb *router.RouteBuilder) {
			h.RegisterListLogs("/", rb)
			h.RegisterLatestLog("/latest", rb)
			h.RegisterCreateLog("/", rb)
		})

		rb.Route("/analytics", func(rb *router.RouteBuilder) {
			h.RegisterHourly("/hourly", rb)
			h.RegisterSavings("/savings", rb)
			h.RegisterHeatmap("/heatmap", rb)
			h.RegisterStability("/stability", rb)
		})

		rb.Route("/control", func(rb *router.RouteBuilder) {
			h.RegisterCommand("/{command}", rb)
		})
	})

	rb.Router().With(h.mw.RequestIDMiddleware).Get("/health", ErrorHandler(h.Health))

	h.routes = rb.Routes()
}

func writeData[T any](w http.ResponseWriter, r *http.Request, code int, data T) {
	RespondJSON(w, r, code, OK(data))
}
