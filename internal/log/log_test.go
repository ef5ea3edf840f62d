package log_test

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/CZERTAINLY/Spotter/internal/log"

	"github.com/stretchr/testify/require"
)

func TestContextAttrs(t *testing.T) {
	t.Parallel()
	var buf bytes.Buffer
	logger := log.New(&buf, false)

	ctx := log.ContextAttrs(t.Context(), slog.String("cycle", "abc"))
	child := log.ContextAttrs(ctx, slog.Int("screen", 1))
	logger.InfoContext(child, "recognized")
	logger.DebugContext(ctx, "not visible")

	var rec map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &rec))
	require.Equal(t, "recognized", rec["msg"])
	require.Equal(t, "abc", rec["cycle"])
	require.Equal(t, float64(1), rec["screen"])

	// parent context must not see attrs added to the child
	buf.Reset()
	logger.InfoContext(ctx, "parent")
	rec = nil
	require.NoError(t, json.Unmarshal(buf.Bytes(), &rec))
	require.NotContains(t, rec, "screen")
}

func TestWriter(t *testing.T) {
	t.Parallel()
	for _, dest := range []string{"", log.Stderr, log.Stdout, log.Discard} {
		w := log.Writer(dest)
		require.NoError(t, w.Close(), dest)
	}
	// standard streams stay usable after Close
	_, err := log.Writer(log.Discard).Write([]byte("line\n"))
	require.NoError(t, err)
	require.NoError(t, log.Writer(log.Stderr).Close())
	_, err = os.Stderr.Stat()
	require.NoError(t, err)

	path := filepath.Join(t.TempDir(), "spotter.log")
	w := log.Writer(path)
	_, err = w.Write([]byte("line\n"))
	require.NoError(t, err)
	require.NoError(t, w.Close())
	b, err := os.ReadFile(path)
	require.NoError(t, err)
	require.Equal(t, "line\n", string(b))
}
