package parallel_test

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"testing/synctest"
	"time"

	"github.com/CZERTAINLY/Spotter/internal/parallel"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func TestAll(t *testing.T) {
	t.Parallel()

	f := func(_ context.Context, d time.Duration) (int, error) {
		time.Sleep(d)
		return int(d), nil
	}

	input := []time.Duration{1 * time.Second, 2 * time.Second, 5 * time.Second, 10 * time.Second}
	expected := []int{
		int(1 * time.Second),
		int(2 * time.Second),
		int(5 * time.Second),
		int(10 * time.Second),
	}

	var testCases = []struct {
		scenario string
		limit    int
		then     time.Duration
	}{
		{"limit 1", 1, 18 * time.Second},
		{"limit 2", 2, 12 * time.Second},
		{"no limit", 0, 10 * time.Second},
	}

	for _, tt := range testCases {
		t.Run(tt.scenario, func(t *testing.T) {
			t.Parallel()
			synctest.Test(t, func(t *testing.T) {
				start := time.Now()
				got, err := parallel.All(t.Context(), tt.limit, input, f)
				require.NoError(t, err)
				require.Equal(t, expected, got)
				require.Equal(t, tt.then, time.Since(start))
			})
		})
	}
}

func TestAllFails(t *testing.T) {
	t.Parallel()
	boom := errors.New("boom")

	synctest.Test(t, func(t *testing.T) {
		var finished atomic.Int32
		f := func(ctx context.Context, d time.Duration) (int, error) {
			if d == 0 {
				return 0, boom
			}
			select {
			case <-ctx.Done():
			case <-time.After(d):
			}
			finished.Add(1)
			return int(d), nil
		}

		start := time.Now()
		got, err := parallel.All(t.Context(), 0, []time.Duration{time.Hour, 0, time.Hour}, f)
		require.ErrorIs(t, err, boom)
		require.Nil(t, got)
		// failure cancels the siblings, which are still awaited
		require.Equal(t, int32(2), finished.Load())
		require.Zero(t, time.Since(start))
	})
}

func TestAllEmpty(t *testing.T) {
	t.Parallel()
	got, err := parallel.All(t.Context(), 4, []int(nil), func(context.Context, int) (int, error) {
		return 0, errors.New("never called")
	})
	require.NoError(t, err)
	require.Empty(t, got)
}
