package model_test

import (
	"errors"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/CZERTAINLY/Spotter/internal/model"
	"github.com/stretchr/testify/require"
)

func TestLoadConfig(t *testing.T) {
	t.Setenv("SPOTTER_TEST_PREFIX", "/opt/tessdata")
	yml := `
version: 0
phrases:
  - Enter Dungeon
  - Game Over
delays:
  found: 2m
  idle: 1500ms
ocr:
  path: /usr/bin/tesseract
  args: ["-l", "eng"]
  timeout: 10s
  env:
    tessdata_prefix: $SPOTTER_TEST_PREFIX
capture:
  displays: [0, 2]
notify:
  redis:
    enabled: true
    addr: redis:6379
service:
  log: stdout
`
	cfg, err := model.LoadConfig(strings.NewReader(yml))
	require.NoError(t, err)
	require.Equal(t, []string{"Enter Dungeon", "Game Over"}, cfg.Phrases)
	require.Equal(t, 2*time.Minute, cfg.Delays.FoundDuration())
	require.Equal(t, 1500*time.Millisecond, cfg.Delays.IdleDuration())
	require.Equal(t, "/usr/bin/tesseract", cfg.OCR.Path)
	require.Equal(t, []string{"-l", "eng"}, cfg.OCR.Args)
	require.Equal(t, 10*time.Second, cfg.OCR.TimeoutDuration())
	require.Equal(t, []string{"TESSDATA_PREFIX=/opt/tessdata"}, cfg.OCR.Environ())
	require.Equal(t, []int{0, 2}, cfg.Capture.Displays)
	require.True(t, cfg.Notify.Log)
	require.True(t, cfg.Notify.Redis.Enabled)
	require.Equal(t, "redis:6379", cfg.Notify.Redis.Addr)
	require.Equal(t, "spotter:notified", cfg.Notify.Redis.Channel)
	require.Equal(t, "stdout", cfg.Service.Log)
	require.False(t, cfg.Service.Autostart)
}

func TestDefaultConfig(t *testing.T) {
	t.Parallel()
	cfg := model.DefaultConfig()
	require.Equal(t, []string{"Enter Dungeon"}, cfg.Phrases)
	require.Equal(t, model.DefaultFoundDelay, cfg.Delays.FoundDuration())
	require.Equal(t, model.DefaultIdleDelay, cfg.Delays.IdleDuration())
	require.Equal(t, "tesseract", cfg.OCR.Path)
	require.Equal(t, model.DefaultOCRTimeout, cfg.OCR.TimeoutDuration())
	require.Equal(t, "127.0.0.1:7878", cfg.Server.Addr)
	require.False(t, cfg.History.Enabled)
	require.Equal(t, "stderr", cfg.Service.Log)
}

func TestLoadConfig_Fail(t *testing.T) {
	t.Parallel()
	var testCases = []struct {
		scenario string
		given    string
	}{
		{"bad duration", "version: 0\ndelays:\n  found: soon\n"},
		{"empty phrase", "version: 0\nphrases: [\"\"]\n"},
		{"unknown field", "version: 0\nunknown: true\n"},
		{"wrong version", "version: 1\n"},
		{"negative display", "version: 0\ncapture:\n  displays: [-1]\n"},
	}

	for _, tt := range testCases {
		t.Run(tt.scenario, func(t *testing.T) {
			t.Parallel()
			_, err := model.LoadConfig(strings.NewReader(tt.given))
			require.Error(t, err)
			details := model.CueErrDetails(err)
			require.NotEmpty(t, details)
		})
	}
}

func TestCueErrDetails(t *testing.T) {
	t.Parallel()
	_, err := model.LoadConfig(strings.NewReader("version: 0\nunknown: true\n"))
	require.Error(t, err)

	var d model.CueErrorDetail
	for _, x := range model.CueErrDetails(err) {
		if x.Code == "unknown_field" {
			d = x
		}
	}
	require.Equal(t, "unknown_field", d.Code)
	require.Equal(t, "unknown", d.Path)
	require.Equal(t, "config.yaml", d.Pos.Filename)

	attr := d.Attr("detail")
	require.Equal(t, "detail", attr.Key)
	group := map[string]slog.Value{}
	for _, a := range attr.Value.Group() {
		group[a.Key] = a.Value
	}
	require.Equal(t, "unknown_field", group["code"].String())
	require.Equal(t, "unknown", group["path"].String())
	require.Equal(t, int64(d.Pos.Line), group["line"].Int64())

	require.Nil(t, model.CueErrDetails(nil))
	plain := model.CueErrDetails(errors.New("boom"))
	require.Equal(t, []model.CueErrorDetail{{Code: "validation_error", Message: "boom"}}, plain)
}
