package api

import (
	"net/http"

	"smart-led-controller/backend/pkg/router"
	"smart-led-controller/backend/pkg/utils"
)

func (h *Handler) Ping(w http.ResponseWriter, r *http.Request) error {
	RespondJSON(w, r, http.StatusOK, PingResponse{
		Message: "Pong", Status: PingStatusOK, Version: utils.GetVersionShort(),
	})

	return nil
}

func (h *Handler) RegisterPing(path string, rb *router.RouteBuilder) {
	rb.MustGet(path, router.RouteSpec{
		OperationID: "ping",
		Summary:     "Ping the server",
		Description: "Check if the server is alive",
		Group:       CoreGroup,
		Handler:     ErrorHandler(h.Ping),
		Responses: map[int]router.ResponseSpec{
			http.StatusOK: {Description: "Successful ping response"},
		},
	})
}

func (h *Handler) Health(w http.ResponseWriter, r *http.Request) error {
	status := h.svc.Core.Health(r.Context())
	resp := HealthResponse{
		Status:    PingStatusOK,
		Database:  status.Database,
		Fallback:  status.Fallback,
		MQTT:      status.MQTT,
		Breaker:   status.Breaker,
		Timestamp: h.now().UTC(),
	}
	if h.svc.Lighting != nil {
		resp.Observers = h.svc.Lighting.Observers()
	}

	code := http.StatusOK
	switch {
	case !status.Healthy():
		resp.Status = PingStatusError
		code = http.StatusServiceUnavailable
	case status.Degraded():
		resp.Status = PingStatusDegraded
	}

	RespondJSON(w, r, code, resp)

	return nil
}

func (h *Handler) RegisterHealth(path string, rb *router.RouteBuilder) {
	rb.MustGet(path, router.RouteSpec{
		OperationID: "health",
		Summary:     "Check server health",
		Description: "Reports store and MQTT reachability and the persistence breaker state",
		Group:       CoreGroup,
		Handler:     ErrorHandler(h.Health),
		Responses: map[int]router.ResponseSpec{
			http.StatusOK:                 {Description: "All dependencies reachable"},
			http.StatusServiceUnavailable: {Description: "A dependency is unreachable"},
		},
	})
}

func (h *Handler) Routes(w http.ResponseWriter, r *http.Request) error {
	writeData(w, r, http.StatusOK, h.routes)
	return nil
}

func (h *Handler) RegisterRoutes(path string, rb *router.RouteBuilder) {
	rb.MustGet(path, router.RouteSpec{
		OperationID: "listRoutes",
		Summary:     "List API routes",
		Description: "Lists every registered REST operation",
		Group:       CoreGroup,
		Handler:     ErrorHandler(h.Routes),
		Responses: map[int]router.ResponseSpec{
			http.StatusOK: {Description: "Registered routes"},
		},
	})
}
