package api

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"smart-led-controller/backend/internal/analytics"
	"smart-led-controller/backend/internal/broadcast"
	"smart-led-controller/backend/internal/control"
	"smart-led-controller/backend/internal/reading"
	"smart-led-controller/backend/internal/services"
	"smart-led-controller/backend/internal/store"
	"smart-led-controller/backend/pkg/router"
)

var now = time.Date(2025, 6, 2, 12, 0, 0, 0, time.UTC)

type testServer struct {
	srv   *httptest.Server
	store *store.MemoryStore
	svc   *services.Services
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()

	l := slog.New(slog.NewTextHandler(io.Discard, nil))
	st := store.NewMemoryStore(0)
	engine := control.NewEngine(control.WithClock(func() time.Time { return now }), control.WithLocation(time.UTC))
	lighting := services.NewLightingService(l, engine, broadcast.New(l, nil), st, services.WithTickInterval(time.Hour))

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		_ = lighting.Run(ctx)
	}()

	svc := services.NewServices(l, st, lighting, time.UTC)
	svc.Analytics = analytics.New(st, time.UTC, analytics.WithClock(func() time.Time { return now }))
	h := NewAPIHandler(l, svc, time.UTC)
	h.now = func() time.Time { return now }
	rb := router.NewRouteBuilder(l)
	h.Register(rb)

	srv := httptest.NewServer(rb.Router())
	t.Cleanup(func() {
		srv.Close()
		cancel()
		<-done
	})
	return &testServer{srv: srv, store: st, svc: svc}
}

type envelope struct {
	Success    bool                 `json:"success"`
	Data       json.RawMessage      `json:"data"`
	Error      string               `json:"error"`
	Errors     map[string]string    `json:"errors"`
	RequestID  string               `json:"requestID"`
	Pagination *services.Pagination `json:"pagination"`
}

func (ts *testServer) do(t *testing.T, method, path, body string) (*http.Response, envelope) {
	t.Helper()

	req, err := http.NewRequest(method, ts.srv.URL+path, strings.NewReader(body))
	require.NoError(t, err)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	var env envelope
	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	require.NoError(t, json.Unmarshal(raw, &env), string(raw))
	return resp, env
}

func decode[T any](t *testing.T, raw json.RawMessage) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(raw, &v))
	return v
}

func TestPing(t *testing.T) {
	ts := newTestServer(t)
	resp, err := http.Get(ts.srv.URL + "/api/ping")
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.NotEmpty(t, resp.Header.Get(RequestIDHeader))

	var pong PingResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&pong))
	assert.Equal(t, PingStatusOK, pong.Status)
}

func TestHealth(t *testing.T) {
	ts := newTestServer(t)
	for _, path := range []string{"/health", "/api/health"} {
		resp, err := http.Get(ts.srv.URL + path)
		require.NoError(t, err)
		var hr HealthResponse
		require.NoError(t, json.NewDecoder(resp.Body).Decode(&hr))
		resp.Body.Close()

		assert.Equal(t, http.StatusOK, resp.StatusCode, path)
		assert.True(t, hr.Database)
		assert.Equal(t, PingStatusOK, hr.Status)
	}
}

func TestHealthReportsStoreFallback(t *testing.T) {
	ts := newTestServer(t)
	ts.svc.RegisterStoreFallback()

	resp, err := http.Get(ts.srv.URL + "/api/health")
	require.NoError(t, err)
	defer resp.Body.Close()

	var hr HealthResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&hr))
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, PingStatusDegraded, hr.Status)
	assert.False(t, hr.Database)
	assert.True(t, hr.Fallback)
}

func TestCreateAndListLogs(t *testing.T) {
	ts := newTestServer(t)

	body := `{"timestamp":"2025-06-02T09:00:00Z","occupancyCount":3,"ambientLux":300,"ledOutputPWM":102,"energyConsumedWatts":20,"mode":"automatic"}`
	resp, env := ts.do(t, http.MethodPost, "/api/logs", body)
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	created := decode[reading.Reading](t, env.Data)
	assert.Equal(t, 500.0, created.TotalLux)
	assert.Equal(t, reading.StatusActive, created.Status)

	body = strings.Replace(body, "09:00", "10:00", 1)
	resp, _ = ts.do(t, http.MethodPost, "/api/logs", body)
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	resp, env = ts.do(t, http.MethodGet, "/api/logs?limit=1&page=2", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.NotNil(t, env.Pagination)
	assert.Equal(t, services.Pagination{Page: 2, Limit: 1, Total: 2, Pages: 2}, *env.Pagination)
	logs := decode[[]reading.Reading](t, env.Data)
	require.Len(t, logs, 1)
	assert.Equal(t, 9, logs[0].Timestamp.Hour())

	resp, env = ts.do(t, http.MethodGet, "/api/logs/latest", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, 10, decode[reading.Reading](t, env.Data).Timestamp.Hour())
}

func TestCreateLogRejectsInvalid(t *testing.T) {
	ts := newTestServer(t)

	resp, env := ts.do(t, http.MethodPost, "/api/logs", `{"occupancyCount":500,"ambientLux":10,"ledOutputPWM":0,"energyConsumedWatts":0,"mode":"energy_saving"}`)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.False(t, env.Success)
	assert.Contains(t, env.Errors, "occupancyCount")
	assert.Contains(t, env.Errors, "mode")
	assert.NotEmpty(t, env.RequestID)

	resp, env = ts.do(t, http.MethodPost, "/api/logs", `{"occupancyCount":`)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, "Malformed JSON", env.Error)

	resp, _ = ts.do(t, http.MethodPost, "/api/logs", `{"bogus":1}`)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestLatestLogEmpty(t *testing.T) {
	ts := newTestServer(t)
	resp, env := ts.do(t, http.MethodGet, "/api/logs/latest", "")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.True(t, env.Success)
	assert.Equal(t, "null", string(env.Data))
}

func TestControlCommands(t *testing.T) {
	ts := newTestServer(t)

	resp, env := ts.do(t, http.MethodPost, "/api/control/setManualMode", `{"enabled":true,"pwm":200}`)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	rd := decode[reading.Reading](t, env.Data)
	assert.Equal(t, 200, rd.LEDOutputPWM)
	assert.Equal(t, reading.ModeManual, rd.Mode)

	resp, env = ts.do(t, http.MethodPost, "/api/control/setManualPWM", `64`)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, 64, decode[reading.Reading](t, env.Data).LEDOutputPWM)

	resp, env = ts.do(t, http.MethodGet, "/api/state", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	state := decode[StateResponse](t, env.Data)
	assert.Equal(t, 64, state.State.ManualPWM)
	require.NotNil(t, state.Reading)

	resp, _ = ts.do(t, http.MethodPost, "/api/control/selfDestruct", `{}`)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	resp, _ = ts.do(t, http.MethodPost, "/api/control/updateSimulation", `{"sunlight":100}`)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestAnalyticsEndpoints(t *testing.T) {
	ts := newTestServer(t)
	for i := range 4 {
		r := reading.New(now.Add(-time.Duration(i+1)*time.Hour), 2, 300, 102, reading.ModeAutomatic, false)
		require.NoError(t, ts.store.Append(context.Background(), r))
	}

	resp, env := ts.do(t, http.MethodGet, "/api/analytics/hourly?date=2025-06-02", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Len(t, decode[[]map[string]any](t, env.Data), 4)

	resp, env = ts.do(t, http.MethodGet, "/api/analytics/savings?days=1", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	savings := decode[map[string]float64](t, env.Data)
	assert.InDelta(t, 80, savings["smartEnergy"], 0.001)
	assert.InDelta(t, 200, savings["staticEnergy"], 0.001)
	assert.InDelta(t, 60, savings["savingsPercent"], 0.001)

	resp, env = ts.do(t, http.MethodGet, "/api/analytics/savings?from=2025-06-02&to=2025-06-02", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.InDelta(t, 4, decode[map[string]float64](t, env.Data)["readings"], 0.001)

	resp, env = ts.do(t, http.MethodGet, "/api/analytics/heatmap", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Len(t, decode[[]map[string]any](t, env.Data), 4)

	resp, env = ts.do(t, http.MethodGet, "/api/analytics/stability?limit=2", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Len(t, decode[[]map[string]any](t, env.Data), 2)

	resp, env = ts.do(t, http.MethodGet, "/api/stats", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.InDelta(t, 4, decode[map[string]float64](t, env.Data)["totalLogs"], 0.001)

	resp, _ = ts.do(t, http.MethodGet, "/api/analytics/hourly?date=yesterday", "")
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp, _ = ts.do(t, http.MethodGet, "/api/analytics/savings?from=2025-06-02", "")
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

type brokenSource struct{ err error }

func (b brokenSource) Query(context.Context, store.Query) ([]reading.Reading, error) {
	return nil, &store.QueryError{Op: "readings", Err: b.err}
}

func (b brokenSource) Summarize(context.Context, store.Query) (store.Summary, error) {
	return store.Summary{}, &store.QueryError{Op: "summary", Err: b.err}
}

func TestAnalyticsQueryFailureIsReported(t *testing.T) {
	ts := newTestServer(t)
	ts.svc.Analytics = analytics.New(brokenSource{err: errors.New("connection reset by peer")}, time.UTC)

	tests := []struct {
		path string
		want string
	}{
		{path: "/api/analytics/stability", want: "query readings: connection reset by peer"},
		{path: "/api/analytics/hourly", want: "query readings: connection reset by peer"},
		{path: "/api/analytics/savings", want: "query summary: connection reset by peer"},
		{path: "/api/stats", want: "query summary: connection reset by peer"},
	}

	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			resp, env := ts.do(t, http.MethodGet, tt.path, "")
			assert.Equal(t, http.StatusInternalServerError, resp.StatusCode)
			assert.False(t, env.Success)
			assert.Equal(t, tt.want, env.Error)
		})
	}
}

func TestRoutesIndex(t *testing.T) {
	ts := newTestServer(t)
	resp, env := ts.do(t, http.MethodGet, "/api/routes", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)

	routes := decode[[]router.RouteInfo](t, env.Data)
	ids := make([]string, 0, len(routes))
	for _, r := range routes {
		ids = append(ids, r.OperationID)
	}
	assert.Contains(t, ids, "controlCommand")
	assert.Contains(t, ids, "hourlyAnalytics")
}

func TestRecoveryMiddleware(t *testing.T) {
	mw := NewMiddlewareHandler(slog.New(slog.NewTextHandler(io.Discard, nil)))
	h := mw.RequestIDMiddleware(mw.RecoveryMiddleware(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		panic("boom")
	})))

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set(RequestIDHeader, "req-1")
	h.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Contains(t, rec.Body.String(), `"requestID":"req-1"`)
}
