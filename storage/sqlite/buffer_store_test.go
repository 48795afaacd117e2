package sqlite

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"homefleet/app/metrics"
)

func newTestBuffer(t *testing.T) *BufferStore {
	t.Helper()
	store, err := NewBufferStore(filepath.Join(t.TempDir(), "buffer.db"))
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return store
}

func TestBufferAddAndPending(t *testing.T) {
	store := newTestBuffer(t)
	ctx := context.Background()

	base := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)
	for i := 0; i < 3; i++ {
		err := store.Add(ctx, metrics.Resource{CPUPercent: float64(10 * i)}, base.Add(time.Duration(i)*time.Minute))
		require.NoError(t, err)
	}

	samples, err := store.Pending(ctx, 10)
	require.NoError(t, err)
	require.Len(t, samples, 3)

	// Oldest first.
	assert.Equal(t, 0.0, samples[0].Resource.CPUPercent)
	assert.Equal(t, 20.0, samples[2].Resource.CPUPercent)
	assert.True(t, samples[0].RecordedAt.Before(samples[2].RecordedAt))
}

func TestBufferPendingLimit(t *testing.T) {
	store := newTestBuffer(t)
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		require.NoError(t, store.Add(ctx, metrics.Resource{}, time.Now()))
	}

	samples, err := store.Pending(ctx, 2)
	require.NoError(t, err)
	assert.Len(t, samples, 2)
}

func TestBufferDelete(t *testing.T) {
	store := newTestBuffer(t)
	ctx := context.Background()

	require.NoError(t, store.Add(ctx, metrics.Resource{CPUPercent: 1}, time.Now()))
	require.NoError(t, store.Add(ctx, metrics.Resource{CPUPercent: 2}, time.Now()))

	samples, err := store.Pending(ctx, 10)
	require.NoError(t, err)
	require.Len(t, samples, 2)

	require.NoError(t, store.Delete(ctx, []int64{samples[0].ID}))

	left, err := store.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, left)
}

func TestBufferDeleteEmptyIsNoop(t *testing.T) {
	store := newTestBuffer(t)
	assert.NoError(t, store.Delete(context.Background(), nil))
}
