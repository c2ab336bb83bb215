package api

import (
	"net/http"

	"smart-led-controller/backend/internal/reading"
	"smart-led-controller/backend/internal/services"
	"smart-led-controller/backend/pkg/router"
)

func (h *Handler) ListLogs(w http.ResponseWriter, r *http.Request) error {
	page, err := h.svc.Readings.List(r.Context(),
		queryInt(r, "page", 1),
		queryInt(r, "limit", services.DefaultPageLimit),
	)
	if err != nil {
		return serviceError(err)
	}

	RespondJSON(w, r, http.StatusOK, Response[[]reading.Reading]{
		Success:    true,
		Data:       page.Readings,
		Pagination: &page.Pagination,
	})
	return nil
}

func (h *Handler) RegisterListLogs(path string, rb *router.RouteBuilder) {
	rb.MustGet(path, router.RouteSpec{
		OperationID: "listLogs",
		Summary:     "List readings",
		Description: "Returns stored readings newest first, one page at a time",
		Group:       LogsGroup,
		Parameters: map[string]router.ParameterSpec{
			"page":  {In: router.ParameterInQuery, Description: "1-based page number, default 1"},
			"limit": {In: router.ParameterInQuery, Description: "Page size, default 100, at most 1000"},
		},
		Handler: ErrorHandler(h.ListLogs),
		Responses: map[int]router.ResponseSpec{
			http.StatusOK: {Description: "A page of readings"},
		},
	})
}

func (h *Handler) LatestLog(w http.ResponseWriter, r *http.Request) error {
	latest, err := h.svc.Readings.Latest(r.Context())
	if err != nil {
		return serviceError(err)
	}

	writeData(w, r, http.StatusOK, latest)
	return nil
}

func (h *Handler) RegisterLatestLog(path string, rb *router.RouteBuilder) {
	rb.MustGet(path, router.RouteSpec{
		OperationID: "latestLog",
		Summary:     "Latest reading",
		Description: "Returns the newest stored reading, or null when there is none",
		Group:       LogsGroup,
		Handler:     ErrorHandler(h.LatestLog),
		Responses: map[int]router.ResponseSpec{
			http.StatusOK: {Description: "The newest reading"},
		},
	})
}

func (h *Handler) CreateLog(w http.ResponseWriter, r *http.Request) error {
	in, err := DecodeJSON[reading.Reading](w, r)
	if err != nil {
		return err
	}

	created, err := h.svc.Readings.Create(r.Context(), in)
	if err != nil {
		return serviceError(err)
	}

	writeData(w, r, http.StatusCreated, created)
	return nil
}

func (h *Handler) RegisterCreateLog(path string, rb *router.RouteBuilder) {
	rb.MustPost(path, router.RouteSpec{
		OperationID: "createLog",
		Summary:     "Store a reading",
		Description: "Validates an externally produced reading, recomputes its derived fields and stores it",
		Group:       LogsGroup,
		Handler:     ErrorHandler(h.CreateLog),
		Responses: map[int]router.ResponseSpec{
			http.StatusCreated:    {Description: "The stored reading"},
			http.StatusBadRequest: {Description: "Malformed body or validation failure"},
		},
	})
}

func (h *Handler) Stats(w http.ResponseWriter, r *http.Request) error {
	stats, err := h.svc.Analytics.Stats(r.Context())
	if err != nil {
		return serviceError(err)
	}

	writeData(w, r, http.StatusOK, stats)
	return nil
}

func (h *Handler) RegisterStats(path string, rb *router.RouteBuilder) {
	rb.MustGet(path, router.RouteSpec{
		OperationID: "stats",
		Summary:     "Reading statistics",
		Description: "Total and today's reading counts and the mean energy draw",
		Group:       LogsGroup,
		Handler:     ErrorHandler(h.Stats),
		Responses: map[int]router.ResponseSpec{
			http.StatusOK: {Description: "Summary statistics"},
		},
	})
}
