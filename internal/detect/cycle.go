// Package detect implements one detection cycle: capture every display,
// recognize the text on each capture and match it against target phrases.
//
// Data flow of Cycle.Run:
//
//	MkdirTemp ---> Displays ---> for each display, in parallel:
//	                                Capture -> Persist -> Recognize -> Remove -> Match
//	                             <--- all-or-nothing join
//	           <--- union of matches
//	RemoveAll (always)
//
// Invariants:
//   - every cycle uses its own uniquely named temporary directory
//   - the directory is removed on every return path, including cancellation
//   - an artifact is removed as soon as the recognition is done
//   - a failure of any display fails the whole cycle, no partial result is returned
package detect

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/CZERTAINLY/Spotter/internal/capture"
	"github.com/CZERTAINLY/Spotter/internal/log"
	"github.com/CZERTAINLY/Spotter/internal/metrics"
	"github.com/CZERTAINLY/Spotter/internal/model"
	"github.com/CZERTAINLY/Spotter/internal/ocr"
	"github.com/CZERTAINLY/Spotter/internal/parallel"

	"github.com/google/uuid"
)

const tmpPattern = "spotter-*"

type Cycle struct {
	provider   capture.Provider
	recognizer ocr.Recognizer
	tmpRoot    string
	limit      int
}

func NewCycle(provider capture.Provider, recognizer ocr.Recognizer) *Cycle {
	return &Cycle{
		provider:   provider,
		recognizer: recognizer,
	}
}

// WithTmpRoot sets a directory where per cycle temporary directories are
// created. Empty string means os.TempDir.
func (c *Cycle) WithTmpRoot(dir string) *Cycle {
	c.tmpRoot = dir
	return c
}

// WithLimit limits the number of displays processed in parallel. Zero means
// all displays at once.
func (c *Cycle) WithLimit(limit int) *Cycle {
	c.limit = limit
	return c
}

// Run executes one detection cycle and returns the phrases found on any
// display.
func (c *Cycle) Run(ctx context.Context, phrases []string) (_ model.Matches, err error) {
	ctx = log.ContextAttrs(ctx, slog.String("cycle", uuid.NewString()))
	started := time.Now()
	defer func() {
		metrics.ObserveCycleDuration(time.Since(started).Seconds())
	}()

	dir, err := os.MkdirTemp(c.tmpRoot, tmpPattern)
	if err != nil {
		return nil, &model.IOError{Op: "mkdir", Path: filepath.Join(c.tmpRoot, tmpPattern), Err: err}
	}
	defer func() {
		if rerr := os.RemoveAll(dir); rerr != nil {
			slog.ErrorContext(ctx, "removing cycle directory failed", "dir", dir, "error", rerr)
			err = errors.Join(err, &model.IOError{Op: "remove", Path: dir, Err: rerr})
		}
	}()

	screens, err := c.provider.Displays(ctx)
	if err != nil {
		return nil, err
	}
	slog.DebugContext(ctx, "cycle started", "displays", len(screens), "dir", dir)

	found, err := parallel.All(ctx, c.limit, screens, func(ctx context.Context, id model.ScreenID) (model.Matches, error) {
		return c.screen(ctx, dir, id, phrases)
	})
	if err != nil {
		return nil, err
	}

	ret := model.NewMatches()
	for _, m := range found {
		ret.Union(m)
	}
	slog.DebugContext(ctx, "cycle finished", "matches", ret.Sorted(), "elapsed", time.Since(started).String())
	return ret, nil
}

func (c *Cycle) screen(ctx context.Context, dir string, id model.ScreenID, phrases []string) (model.Matches, error) {
	ctx = log.ContextAttrs(ctx, slog.Int("screen", int(id)))

	img, err := c.provider.Capture(ctx, id)
	if err != nil {
		return nil, err
	}

	path := filepath.Join(dir, ArtifactName(id))
	if err := capture.Persist(img, path); err != nil {
		return nil, err
	}

	text, err := c.recognizer.Recognize(ctx, path)
	if rerr := os.Remove(path); rerr != nil && !errors.Is(rerr, os.ErrNotExist) {
		err = errors.Join(err, &model.IOError{Op: "remove", Path: path, Err: rerr})
	}
	if err != nil {
		return nil, err
	}

	found := Match(text, phrases)
	slog.DebugContext(ctx, "screen recognized", "text_len", len(text), "matches", len(found))
	return found, nil
}

// ArtifactName is a deterministic file name of a display capture within the
// cycle directory.
func ArtifactName(id model.ScreenID) string {
	return fmt.Sprintf("screen-%d.png", id)
}
