package store

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryStoreQuery(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	m := NewMemoryStore(0)
	// Appended out of order on purpose.
	for _, min := range []int{10, 0, 30, 20} {
		require.NoError(t, m.Append(ctx, at(min, 1, 100, min)))
	}

	newest, err := m.Query(ctx, Query{})
	require.NoError(t, err)
	require.Len(t, newest, 4)
	assert.Equal(t, []int{30, 20, 10, 0}, pwms(newest))

	oldest, err := m.Query(ctx, Query{Order: OldestFirst, Limit: 2, Offset: 1})
	require.NoError(t, err)
	assert.Equal(t, []int{10, 20}, pwms(oldest))

	window, err := m.Query(ctx, Query{From: baseTime.Add(10 * time.Minute), To: baseTime.Add(30 * time.Minute)})
	require.NoError(t, err)
	assert.Equal(t, []int{20, 10}, pwms(window))

	past, err := m.Query(ctx, Query{Offset: 10})
	require.NoError(t, err)
	assert.Empty(t, past)
}

func TestMemoryStoreRetention(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	m := NewMemoryStore(2)
	for min := range 5 {
		require.NoError(t, m.Append(ctx, at(min, 1, 100, min)))
	}

	all, err := m.Query(ctx, Query{Order: OldestFirst})
	require.NoError(t, err)
	assert.Equal(t, []int{3, 4}, pwms(all))
}

func TestMemoryStoreSummarizeAndLatest(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	m := NewMemoryStore(0)

	latest, err := Latest(ctx, m)
	require.NoError(t, err)
	assert.Nil(t, latest)

	require.NoError(t, m.Append(ctx, at(0, 1, 0, 255)))
	require.NoError(t, m.Append(ctx, at(5, 1, 300, 102)))

	sum, err := m.Summarize(ctx, Query{})
	require.NoError(t, err)
	assert.Equal(t, 2, sum.Count)
	assert.InDelta(t, 70.0, sum.EnergyWatts, 1e-9)
	assert.InDelta(t, 357.0, sum.PWMSum, 1e-9)

	latest, err = Latest(ctx, m)
	require.NoError(t, err)
	require.NotNil(t, latest)
	assert.Equal(t, 102, latest.LEDOutputPWM)
	assert.NotZero(t, latest.ID)
}

func TestMemoryStoreCancelledContext(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	m := NewMemoryStore(0)

	assert.ErrorIs(t, m.Append(ctx, at(0, 1, 1, 1)), ErrStoreUnavailable)

	_, err := m.Query(ctx, Query{})
	var qerr *QueryError
	assert.ErrorAs(t, err, &qerr)
}
