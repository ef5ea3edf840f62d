package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/CZERTAINLY/Spotter/internal/capture"
	"github.com/CZERTAINLY/Spotter/internal/detect"
	"github.com/CZERTAINLY/Spotter/internal/history"
	"github.com/CZERTAINLY/Spotter/internal/log"
	"github.com/CZERTAINLY/Spotter/internal/metrics"
	"github.com/CZERTAINLY/Spotter/internal/model"
	"github.com/CZERTAINLY/Spotter/internal/notify"
	"github.com/CZERTAINLY/Spotter/internal/ocr"
	"github.com/CZERTAINLY/Spotter/internal/server"
	"github.com/CZERTAINLY/Spotter/internal/service"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"
)

// Spotter wires the detection loop, notifiers and the HTTP server together.
type Spotter struct {
	supervisor *service.Supervisor
	server     *http.Server
	autostart  bool
	closers    []io.Closer
}

func NewSpotter(ctx context.Context, cfg model.Config) (*Spotter, error) {
	if cfg.Version != 0 {
		return nil, fmt.Errorf("config version %d is not supported, expected 0", cfg.Version)
	}
	if err := metrics.Register(prometheus.DefaultRegisterer); err != nil {
		return nil, fmt.Errorf("registering metrics: %w", err)
	}

	s := &Spotter{autostart: cfg.Service.Autostart}

	events := notify.NewBroadcaster()
	hub := notify.NewHub(events)
	if cfg.Notify.Log {
		hub.Add(notify.Log{})
	}
	if cfg.Notify.Redis.Enabled {
		r := notify.NewRedis(cfg.Notify.Redis)
		hub.Add(r)
		s.closers = append(s.closers, r)
		slog.DebugContext(ctx, "publishing notifications to redis", "addr", cfg.Notify.Redis.Addr, "channel", cfg.Notify.Redis.Channel)
	}

	// a nil *history.Store must not end up in the interface
	var hist server.History
	if cfg.History.Enabled {
		path := cfg.History.Path
		if path == "" {
			path = filepath.Join(userConfigPath, "spotter.db")
		}
		store, err := history.Open(ctx, path)
		if err != nil {
			_ = s.Close()
			return nil, err
		}
		hub.Add(store)
		s.closers = append(s.closers, store)
		hist = store
		slog.DebugContext(ctx, "recording history", "path", path)
	}

	s.supervisor = service.SupervisorFromConfig(ctx, cfg, newCycle(cfg), hub)
	s.server = server.New(cfg.Server.Addr, server.NewHandler(s.supervisor, events, hist))
	return s, nil
}

// Run serves the control API until ctx is canceled.
func (s *Spotter) Run(ctx context.Context) error {
	if s.autostart {
		s.supervisor.Start(nil)
	}
	err := server.ListenAndServe(ctx, s.server)
	s.supervisor.Close()
	return err
}

func (s *Spotter) Close() error {
	var errs []error
	for _, c := range s.closers {
		errs = append(errs, c.Close())
	}
	return errors.Join(errs...)
}

func newCycle(cfg model.Config) *detect.Cycle {
	provider := capture.NewScreenshot(cfg.Capture.Displays...)
	recognizer := ocr.NewTesseract(ocr.CommandFromConfig(cfg.OCR))
	return detect.NewCycle(provider, recognizer).WithTmpRoot(cfg.Capture.TmpDir)
}

func doRun(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	attrs := slog.Group("spotter",
		slog.String("cmd", "run"),
		slog.Int("pid", os.Getpid()),
	)
	ctx = log.ContextAttrs(ctx, attrs)

	spotter, err := NewSpotter(ctx, config)
	if err != nil {
		return err
	}
	defer func() {
		if err := spotter.Close(); err != nil {
			slog.WarnContext(ctx, "closing spotter", "err", err)
		}
	}()

	return spotter.Run(ctx)
}

func doScan(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	attrs := slog.Group("spotter",
		slog.String("cmd", "scan"),
		slog.Int("pid", os.Getpid()),
	)
	ctx = log.ContextAttrs(ctx, attrs)

	phrases := args
	if len(phrases) == 0 {
		phrases = config.Phrases
	}
	found, err := newCycle(config).Run(ctx, phrases)
	if err != nil {
		return err
	}
	return printJSON(cmd.OutOrStdout(), found.Sorted())
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
