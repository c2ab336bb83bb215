package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"smart-led-controller/backend/internal/control"
	"smart-led-controller/backend/internal/reading"
	"smart-led-controller/backend/pkg/router"
)

type StateResponse struct {
	State     control.State    `json:"state"`
	Reading   *reading.Reading `json:"reading"`
	Observers int              `json:"observers"`
}

func (h *Handler) State(w http.ResponseWriter, r *http.Request) error {
	st, err := h.svc.Lighting.State(r.Context())
	if err != nil {
		return serviceError(err)
	}

	writeData(w, r, http.StatusOK, StateResponse{
		State:     st,
		Reading:   h.svc.Lighting.Latest(),
		Observers: h.svc.Lighting.Observers(),
	})
	return nil
}

func (h *Handler) RegisterState(path string, rb *router.RouteBuilder) {
	rb.MustGet(path, router.RouteSpec{
		OperationID: "controlState",
		Summary:     "Controller state",
		Description: "Current control state, the last produced reading and the observer count",
		Group:       ControlGroup,
		Handler:     ErrorHandler(h.State),
		Responses: map[int]router.ResponseSpec{
			http.StatusOK:                 {Description: "Controller state"},
			http.StatusServiceUnavailable: {Description: "Control loop not running"},
		},
	})
}

func (h *Handler) Command(w http.ResponseWriter, r *http.Request) error {
	body, err := readBody(w, r)
	if err != nil {
		return err
	}

	cmd, err := control.DecodeCommand(chi.URLParam(r, "command"), body)
	if err != nil {
		return serviceError(err)
	}

	rd, err := h.svc.Lighting.Submit(r.Context(), cmd)
	if err != nil {
		return serviceError(err)
	}

	writeData(w, r, http.StatusOK, rd)
	return nil
}

func (h *Handler) RegisterCommand(path string, rb *router.RouteBuilder) {
	rb.MustPost(path, router.RouteSpec{
		OperationID: "controlCommand",
		Summary:     "Apply a control command",
		Description: "Applies setManualMode, setSimulationMode, updateSimulation or setManualPWM and returns the reading it produced",
		Group:       ControlGroup,
		Parameters: map[string]router.ParameterSpec{
			"command": {In: router.ParameterInPath, Description: "Command name", Required: true},
		},
		Handler: ErrorHandler(h.Command),
		Responses: map[int]router.ResponseSpec{
			http.StatusOK:         {Description: "The reading produced by the command"},
			http.StatusBadRequest: {Description: "Malformed payload"},
			http.StatusNotFound:   {Description: "Unknown command"},
		},
	})
}
