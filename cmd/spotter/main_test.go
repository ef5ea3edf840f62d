package main

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestInitSpotter(t *testing.T) {
	// can't be parallel as touches the package level config and slog default
	prev := slog.Default()
	t.Cleanup(func() { slog.SetDefault(prev) })

	write := func(t *testing.T, content string) string {
		t.Helper()
		path := filepath.Join(t.TempDir(), "spotter.yaml")
		require.NoError(t, os.WriteFile(path, []byte(content), 0600))
		return path
	}

	t.Run("invalid config", func(t *testing.T) {
		var buf bytes.Buffer
		slog.SetDefault(slog.New(slog.NewJSONHandler(&buf, nil)))
		t.Setenv("SPOTTERCONFIG", write(t, "version: 0\ndelays:\n  idle: soon\n"))

		err := initSpotter(rootCmd, nil)
		require.Error(t, err)
		require.Contains(t, err.Error(), "parsing config")

		lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
		require.NotEmpty(t, lines)
		var rec struct {
			Msg    string `json:"msg"`
			Detail struct {
				Code    string `json:"code"`
				Path    string `json:"path"`
				Message string `json:"message"`
			} `json:"detail"`
		}
		require.NoError(t, json.Unmarshal([]byte(lines[0]), &rec))
		require.Equal(t, "invalid config", rec.Msg)
		require.NotEmpty(t, rec.Detail.Code)
		require.NotEmpty(t, rec.Detail.Message)
	})

	t.Run("valid config", func(t *testing.T) {
		logPath := filepath.Join(t.TempDir(), "spotter.log")
		t.Setenv("SPOTTERCONFIG", write(t, "version: 0\nphrases: [\"Play\"]\nservice:\n  log: "+logPath+"\n"))

		require.NoError(t, initSpotter(rootCmd, nil))
		require.Equal(t, []string{"Play"}, config.Phrases)
		require.NotNil(t, logWriter)

		slog.Info("written")
		require.NoError(t, logWriter.Close())
		b, err := os.ReadFile(logPath)
		require.NoError(t, err)
		require.Contains(t, string(b), `"msg":"written"`)
	})
}
