package api

import (
	"net/http"

	"smart-led-controller/backend/internal/analytics"
	"smart-led-controller/backend/pkg/router"
)

func (h *Handler) Hourly(w http.ResponseWriter, r *http.Request) error {
	date, ok, err := queryDate(r, "date", h.loc)
	if err != nil {
		return err
	}
	if !ok {
		date = h.now().In(h.loc)
	}

	buckets, err := h.svc.Analytics.HourlyRollup(r.Context(), date)
	if err != nil {
		return serviceError(err)
	}

	writeData(w, r, http.StatusOK, buckets)
	return nil
}

func (h *Handler) RegisterHourly(path string, rb *router.RouteBuilder) {
	rb.MustGet(path, router.RouteSpec{
		OperationID: "hourlyAnalytics",
		Summary:     "Hourly rollup",
		Description: "Per-hour averages and energy totals for one calendar day. Hours without readings are omitted",
		Group:       AnalyticsGroup,
		Parameters: map[string]router.ParameterSpec{
			"date": {In: router.ParameterInQuery, Description: "Day to roll up as YYYY-MM-DD, default today"},
		},
		Handler: ErrorHandler(h.Hourly),
		Responses: map[int]router.ResponseSpec{
			http.StatusOK:         {Description: "Hourly buckets ordered by hour"},
			http.StatusBadRequest: {Description: "Malformed date"},
		},
	})
}

func (h *Handler) Savings(w http.ResponseWriter, r *http.Request) error {
	from, hasFrom, err := queryDate(r, "from", h.loc)
	if err != nil {
		return err
	}
	to, hasTo, err := queryDate(r, "to", h.loc)
	if err != nil {
		return err
	}

	var savings analytics.Savings
	switch {
	case hasFrom && hasTo:
		if to.Before(from) {
			return NewError(http.StatusBadRequest, "'to' must not be before 'from'")
		}
		// to names the last day included
		savings, err = h.svc.Analytics.EnergySavings(r.Context(), from, to.AddDate(0, 0, 1))
	case hasFrom || hasTo:
		return NewError(http.StatusBadRequest, "'from' and 'to' must be given together")
	default:
		savings, err = h.svc.Analytics.EnergySavingsDays(r.Context(), queryInt(r, "days", analytics.DefaultDays))
	}
	if err != nil {
		return serviceError(err)
	}

	writeData(w, r, http.StatusOK, savings)
	return nil
}

func (h *Handler) RegisterSavings(path string, rb *router.RouteBuilder) {
	rb.MustGet(path, router.RouteSpec{
		OperationID: "savingsAnalytics",
		Summary:     "Energy savings",
		Description: "Compares the energy drawn against an always-on-at-full-power baseline",
		Group:       AnalyticsGroup,
		Parameters: map[string]router.ParameterSpec{
			"days": {In: router.ParameterInQuery, Description: "Trailing window in days, default 7"},
			"from": {In: router.ParameterInQuery, Description: "First day of an explicit window, YYYY-MM-DD"},
			"to":   {In: router.ParameterInQuery, Description: "Last day of an explicit window, YYYY-MM-DD"},
		},
		Handler: ErrorHandler(h.Savings),
		Responses: map[int]router.ResponseSpec{
			http.StatusOK:         {Description: "Savings over the window"},
			http.StatusBadRequest: {Description: "Malformed window"},
		},
	})
}

func (h *Handler) Heatmap(w http.ResponseWriter, r *http.Request) error {
	cells, err := h.svc.Analytics.OccupancyHeatmap(r.Context(), queryInt(r, "days", analytics.DefaultDays))
	if err != nil {
		return serviceError(err)
	}

	writeData(w, r, http.StatusOK, cells)
	return nil
}

func (h *Handler) RegisterHeatmap(path string, rb *router.RouteBuilder) {
	rb.MustGet(path, router.RouteSpec{
		OperationID: "heatmapAnalytics",
		Summary:     "Occupancy heatmap",
		Description: "Mean occupancy per weekday (1 is Sunday) and hour over the trailing window",
		Group:       AnalyticsGroup,
		Parameters: map[string]router.ParameterSpec{
			"days": {In: router.ParameterInQuery, Description: "Trailing window in days, default 7"},
		},
		Handler: ErrorHandler(h.Heatmap),
		Responses: map[int]router.ResponseSpec{
			http.StatusOK: {Description: "Heatmap cells ordered by weekday then hour"},
		},
	})
}

func (h *Handler) Stability(w http.ResponseWriter, r *http.Request) error {
	points, err := h.svc.Analytics.StabilitySample(r.Context(), queryInt(r, "limit", analytics.DefaultStabilityLimit))
	if err != nil {
		return serviceError(err)
	}

	writeData(w, r, http.StatusOK, points)
	return nil
}

func (h *Handler) RegisterStability(path string, rb *router.RouteBuilder) {
	rb.MustGet(path, router.RouteSpec{
		OperationID: "stabilityAnalytics",
		Summary:     "Light stability sample",
		Description: "Ambient, LED and total lux of the newest readings, newest first",
		Group:       AnalyticsGroup,
		Parameters: map[string]router.ParameterSpec{
			"limit": {In: router.ParameterInQuery, Description: "Number of readings, default 200"},
		},
		Handler: ErrorHandler(h.Stability),
		Responses: map[int]router.ResponseSpec{
			http.StatusOK: {Description: "Stability points"},
		},
	})
}
