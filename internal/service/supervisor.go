package service

import (
	"context"
	"log/slog"
	"slices"
	"sync"
	"time"

	"github.com/CZERTAINLY/Spotter/internal/log"
	"github.com/CZERTAINLY/Spotter/internal/metrics"
	"github.com/CZERTAINLY/Spotter/internal/model"
	"github.com/CZERTAINLY/Spotter/internal/notify"
)

// Cycler runs one detection cycle.
type Cycler interface {
	Run(ctx context.Context, phrases []string) (model.Matches, error)
}

type Delays struct {
	Found time.Duration
	Idle  time.Duration
}

func DefaultDelays() Delays {
	return Delays{
		Found: model.DefaultFoundDelay,
		Idle:  model.DefaultIdleDelay,
	}
}

type Supervisor struct {
	ctx      context.Context
	cycle    Cycler
	notifier notify.Notifier
	phrases  []string
	delays   Delays

	mx      sync.Mutex
	running bool
	cancel  context.CancelFunc
	gen     uint64
	wg      sync.WaitGroup
}

// NewSupervisor creates an idle supervisor. Loops started later are bound to
// ctx, so canceling it stops any running loop.
func NewSupervisor(ctx context.Context, cycle Cycler, notifier notify.Notifier) *Supervisor {
	return &Supervisor{
		ctx:      ctx,
		cycle:    cycle,
		notifier: notifier,
		delays:   DefaultDelays(),
	}
}

// SupervisorFromConfig applies phrases and delays of the config.
func SupervisorFromConfig(ctx context.Context, cfg model.Config, cycle Cycler, notifier notify.Notifier) *Supervisor {
	return NewSupervisor(ctx, cycle, notifier).
		WithPhrases(cfg.Phrases...).
		WithDelays(Delays{
			Found: cfg.Delays.FoundDuration(),
			Idle:  cfg.Delays.IdleDuration(),
		})
}

// WithPhrases sets the phrases used when Start is called without any.
func (s *Supervisor) WithPhrases(phrases ...string) *Supervisor {
	s.phrases = slices.Clone(phrases)
	return s
}

func (s *Supervisor) WithDelays(d Delays) *Supervisor {
	s.delays = d
	return s
}

// Start spawns the detection loop looking for phrases, or for the default
// phrases if none are given. It returns immediately. If the loop is already
// running, nothing happens.
func (s *Supervisor) Start(phrases []string) model.Status {
	s.mx.Lock()
	defer s.mx.Unlock()
	if s.running {
		slog.DebugContext(s.ctx, "detection loop already running")
		return model.Status{Running: true}
	}

	if len(phrases) == 0 {
		phrases = s.phrases
	}
	phrases = slices.Clone(phrases)

	ctx, cancel := context.WithCancel(s.ctx)
	s.gen++
	gen := s.gen
	s.running = true
	s.cancel = cancel
	metrics.SetRunning(true)

	ctx = log.ContextAttrs(ctx, slog.Uint64("loop", gen))
	slog.InfoContext(ctx, "starting detection loop", "phrases", phrases)
	s.wg.Go(func() {
		s.loop(ctx, gen, phrases)
	})
	return model.Status{Running: true}
}

// Stop cancels the running loop and returns without waiting for it to end.
// It does nothing when the loop is not running.
func (s *Supervisor) Stop() model.Status {
	s.mx.Lock()
	defer s.mx.Unlock()
	if !s.running {
		return model.Status{Running: false}
	}
	slog.InfoContext(s.ctx, "stopping detection loop", "loop", s.gen)
	s.reset()
	return model.Status{Running: false}
}

func (s *Supervisor) Status() model.Status {
	s.mx.Lock()
	defer s.mx.Unlock()
	return model.Status{Running: s.running}
}

// Close stops the loop and waits until all its goroutines are gone.
func (s *Supervisor) Close() {
	s.Stop()
	s.wg.Wait()
}

// reset must be called with s.mx held
func (s *Supervisor) reset() {
	if s.cancel != nil {
		s.cancel()
		s.cancel = nil
	}
	s.running = false
	metrics.SetRunning(false)
}

// finished is called by a loop on exit, state is changed only if the loop is
// still the current one
func (s *Supervisor) finished(gen uint64) {
	s.mx.Lock()
	defer s.mx.Unlock()
	if s.gen == gen && s.running {
		s.reset()
	}
}

func (s *Supervisor) loop(ctx context.Context, gen uint64, phrases []string) {
	defer s.finished(gen)

	for {
		found, err := s.runCycle(ctx, phrases)
		if ctx.Err() != nil {
			slog.DebugContext(ctx, "detection loop canceled")
			return
		}

		delay := s.delays.Idle
		switch {
		case err != nil:
			metrics.IncCycle(metrics.ResultFailed)
			slog.ErrorContext(ctx, "detection cycle failed", "error", err)
		case found.Empty():
			metrics.IncCycle(metrics.ResultEmpty)
		default:
			metrics.IncCycle(metrics.ResultMatch)
			delay = s.delays.Found
			s.notify(ctx, found)
		}

		slog.DebugContext(ctx, "next detection cycle", "delay", delay.String())
		if !sleep(ctx, delay) {
			slog.DebugContext(ctx, "detection loop canceled")
			return
		}
	}
}

// runCycle races the cycle against cancellation. A canceled cycle keeps
// unwinding in its own goroutine.
func (s *Supervisor) runCycle(ctx context.Context, phrases []string) (model.Matches, error) {
	type result struct {
		found model.Matches
		err   error
	}
	ch := make(chan result, 1)
	s.wg.Go(func() {
		found, err := s.cycle.Run(ctx, phrases)
		ch <- result{found: found, err: err}
	})

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case r := <-ch:
		return r.found, r.err
	}
}

func (s *Supervisor) notify(ctx context.Context, found model.Matches) {
	// a Stop may have landed after the cycle returned
	if s.notifier == nil || ctx.Err() != nil {
		return
	}
	n := notify.New(found)
	metrics.IncNotification()
	if err := s.notifier.Notify(ctx, n); err != nil {
		slog.WarnContext(ctx, "notification delivery failed", "id", n.ID, "error", err)
	}
}

func sleep(ctx context.Context, d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}
