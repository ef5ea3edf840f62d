package history_test

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/CZERTAINLY/Spotter/internal/history"
	"github.com/CZERTAINLY/Spotter/internal/model"
	"github.com/CZERTAINLY/Spotter/internal/notify"

	"github.com/stretchr/testify/require"
)

func TestStore(t *testing.T) {
	t.Parallel()

	var testCases = []struct {
		scenario string
		dsn      func(t *testing.T) string
	}{
		{"memory", func(*testing.T) string { return ":memory:" }},
		{"file", func(t *testing.T) string { return filepath.Join(t.TempDir(), "spotter.db") }},
		{"prefix", func(t *testing.T) string { return "sqlite://" + filepath.Join(t.TempDir(), "spotter.db") }},
	}

	for _, tt := range testCases {
		t.Run(tt.scenario, func(t *testing.T) {
			t.Parallel()
			store, err := history.Open(t.Context(), tt.dsn(t))
			require.NoError(t, err)
			t.Cleanup(func() { require.NoError(t, store.Close()) })

			now := time.Now().UTC()
			older := model.Notification{ID: "1", Phrases: []string{"Enter Dungeon"}, At: now.Add(-time.Minute)}
			newer := model.Notification{ID: "2", Phrases: []string{"Enter Dungeon", "Game Over"}, At: now}
			require.NoError(t, store.Notify(t.Context(), older))
			require.NoError(t, store.Notify(t.Context(), newer))

			got, err := store.Recent(t.Context(), 10)
			require.NoError(t, err)
			require.Len(t, got, 2)
			require.Equal(t, "2", got[0].ID)
			require.Equal(t, newer.Phrases, got[0].Phrases)
			require.True(t, newer.At.Equal(got[0].At))
			require.Equal(t, "1", got[1].ID)

			got, err = store.Recent(t.Context(), 1)
			require.NoError(t, err)
			require.Len(t, got, 1)

			// ids are unique
			require.Error(t, store.Notify(t.Context(), older))
		})
	}
}

func TestOpenEmpty(t *testing.T) {
	t.Parallel()
	_, err := history.Open(t.Context(), " ")
	require.Error(t, err)
}

func TestRecentOrder(t *testing.T) {
	t.Parallel()
	store, err := history.Open(t.Context(), ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { require.NoError(t, store.Close()) })

	base := time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC)
	for id, at := range map[string]time.Time{
		"whole":    base,
		"fraction": base.Add(500 * time.Millisecond),
		"milli":    base.Add(701 * time.Millisecond),
		"later":    base.Add(time.Second),
	} {
		require.NoError(t, store.Notify(t.Context(), model.Notification{ID: id, Phrases: []string{"Play"}, At: at}))
	}

	got, err := store.Recent(t.Context(), 0)
	require.NoError(t, err)
	ids := make([]string, 0, len(got))
	for _, n := range got {
		ids = append(ids, n.ID)
	}
	require.Equal(t, []string{"later", "milli", "fraction", "whole"}, ids)
	require.True(t, base.Equal(got[3].At))
	require.True(t, base.Add(701*time.Millisecond).Equal(got[1].At))
}

func TestRecentNow(t *testing.T) {
	t.Parallel()
	store, err := history.Open(t.Context(), "sqlite://"+filepath.Join(t.TempDir(), "spotter.db"))
	require.NoError(t, err)
	t.Cleanup(func() { require.NoError(t, store.Close()) })

	n := notify.New(model.NewMatches("Enter Dungeon"))
	n.At = n.At.Truncate(time.Millisecond)
	require.NoError(t, store.Notify(t.Context(), n))

	got, err := store.Recent(t.Context(), 1)
	require.NoError(t, err)
	require.Len(t, got, 1)
	require.Equal(t, n.ID, got[0].ID)
	require.True(t, n.At.Equal(got[0].At))
}
