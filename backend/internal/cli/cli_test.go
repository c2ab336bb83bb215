package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"smart-led-controller/backend/internal/config"
	"smart-led-controller/backend/internal/control"
	"smart-led-controller/backend/internal/reading"
	"smart-led-controller/backend/internal/store"
)

var fixedNow = time.Date(2025, 6, 2, 12, 0, 0, 0, time.UTC)

// run executes ledctl against st with a fixed clock and returns stdout.
func run(t *testing.T, st store.Store, args ...string) (string, error) {
	t.Helper()
	t.Setenv("DATA_DIR", t.TempDir())
	t.Setenv("TIMEZONE", "UTC")
	t.Setenv("CONFIG_FILE", "")

	opts := &RootOptions{
		openStore: func(context.Context, *slog.Logger, *config.Config) (store.Store, error) { return st, nil },
		now:       func() time.Time { return fixedNow },
	}
	cmd := newRootCommand(opts)

	var stdout, stderr bytes.Buffer
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)
	cmd.SetArgs(args)

	err := cmd.ExecuteContext(context.Background())
	return stdout.String(), err
}

func TestCommandPresence(t *testing.T) {
	t.Parallel()

	cmd := NewRootCommand()
	for _, path := range [][]string{
		{"demo"}, {"seed"}, {"report", "hourly"}, {"report", "savings"},
		{"report", "heatmap"}, {"report", "stability"}, {"report", "stats"},
	} {
		sub, _, err := cmd.Find(path)
		require.NoError(t, err, "command %v should exist", path)
		assert.Equal(t, path[len(path)-1], sub.Name())
	}

	format := cmd.PersistentFlags().Lookup("format")
	require.NotNil(t, format)
	assert.Equal(t, "text", format.DefValue)
}

func TestInvalidFormat(t *testing.T) {
	_, err := run(t, store.NewMemoryStore(0), "report", "stats", "--format", "yaml")
	require.Error(t, err)
	assert.Contains(t, err.Error(), `invalid format "yaml"`)
}

func TestDemoSimulated(t *testing.T) {
	out, err := run(t, nil, "demo", "--ticks", "3", "--simulate", "--sunlight", "300", "--occupancy", "4", "--format", "json")
	require.NoError(t, err)

	var res DemoResult
	require.NoError(t, json.Unmarshal([]byte(out), &res))
	require.Len(t, res.Readings, 3)
	for _, r := range res.Readings {
		assert.Equal(t, 102, r.LEDOutputPWM)
		assert.Equal(t, 300.0, r.AmbientLux)
		assert.Equal(t, reading.StatusActive, r.Status)
		assert.True(t, r.SimulationMode)
	}
	assert.Equal(t, 3, res.Savings.Readings)
	assert.Equal(t, 60.0, res.Savings.SmartEnergy)
	assert.Equal(t, 150.0, res.Savings.StaticEnergy)
	assert.Equal(t, 60.0, res.Savings.SavingsPercent)
}

func TestDemoManualText(t *testing.T) {
	out, err := run(t, nil, "demo", "--ticks", "2", "--manual", "200")
	require.NoError(t, err)

	assert.Contains(t, out, "MODE")
	assert.Contains(t, out, "manual")
	assert.Contains(t, out, "2 readings")
}

func TestDemoRejectsZeroTicks(t *testing.T) {
	_, err := run(t, nil, "demo", "--ticks", "0")
	require.Error(t, err)
}

func TestSeed(t *testing.T) {
	st := store.NewMemoryStore(0)

	out, err := run(t, st, "seed", "--format", "json")
	require.NoError(t, err)
	assert.JSONEq(t, `{"seeded":289}`, out)

	sum, err := st.Summarize(context.Background(), store.Query{})
	require.NoError(t, err)
	assert.Equal(t, 289, sum.Count)

	out, err = run(t, st, "seed")
	require.NoError(t, err)
	assert.Contains(t, out, "nothing seeded")
}

func TestReports(t *testing.T) {
	st := store.NewMemoryStore(0)
	ctx := context.Background()
	state := control.DefaultState()
	state.SimulationEnabled = true
	state.SimulatedSunlight = 300
	state.SimulatedOccupancy = 4
	for i := range 4 {
		require.NoError(t, st.Append(ctx, control.Evaluate(state, fixedNow.Add(-time.Duration(i)*time.Hour))))
	}

	t.Run("stats", func(t *testing.T) {
		out, err := run(t, st, "report", "stats", "--format", "json")
		require.NoError(t, err)
		assert.JSONEq(t, `{"totalLogs":4,"todayLogs":4,"avgEnergyConsumption":20}`, out)
	})

	t.Run("savings", func(t *testing.T) {
		out, err := run(t, st, "report", "savings")
		require.NoError(t, err)
		assert.Contains(t, out, "saved:         60.0%")
	})

	t.Run("hourly", func(t *testing.T) {
		out, err := run(t, st, "report", "hourly", "--date", "2025-06-02", "--format", "json")
		require.NoError(t, err)

		var buckets []map[string]any
		require.NoError(t, json.Unmarshal([]byte(out), &buckets))
		assert.Len(t, buckets, 4)
	})

	t.Run("hourly bad date", func(t *testing.T) {
		_, err := run(t, st, "report", "hourly", "--date", "June 2")
		require.Error(t, err)
	})

	t.Run("heatmap", func(t *testing.T) {
		out, err := run(t, st, "report", "heatmap")
		require.NoError(t, err)
		assert.Contains(t, out, "Mon  11:00")
	})

	t.Run("stability", func(t *testing.T) {
		out, err := run(t, st, "report", "stability", "--limit", "2", "--format", "json")
		require.NoError(t, err)

		var points []map[string]any
		require.NoError(t, json.Unmarshal([]byte(out), &points))
		assert.Len(t, points, 2)
	})
}
