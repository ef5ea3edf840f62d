// Package notify delivers notified events to listeners. Delivery is best
// effort: there is no acknowledgement and no retry.
package notify

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/CZERTAINLY/Spotter/internal/model"

	"github.com/google/uuid"
)

type Notifier interface {
	Notify(ctx context.Context, n model.Notification) error
}

// New builds a notification with a fresh id for the matched phrases.
func New(m model.Matches) model.Notification {
	return model.Notification{
		ID:      uuid.NewString(),
		Phrases: m.Sorted(),
		At:      time.Now().UTC(),
	}
}

// Hub dispatches a notification to all registered notifiers.
type Hub struct {
	notifiers []Notifier
}

func NewHub(notifiers ...Notifier) *Hub {
	return &Hub{notifiers: notifiers}
}

// Add registers another notifier. It must not be called concurrently with Notify.
func (h *Hub) Add(n Notifier) {
	h.notifiers = append(h.notifiers, n)
}

// Notify calls every notifier. Failures are logged and joined, one failing
// notifier does not prevent the others from being called. Dispatching ends
// once ctx is canceled.
func (h *Hub) Notify(ctx context.Context, n model.Notification) error {
	var errs []error
	for _, notifier := range h.notifiers {
		if err := ctx.Err(); err != nil {
			errs = append(errs, err)
			break
		}
		if err := notifier.Notify(ctx, n); err != nil {
			slog.WarnContext(ctx, "notification failed", "id", n.ID, "error", err)
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Log writes notifications to the default slog logger.
type Log struct{}

func (Log) Notify(ctx context.Context, n model.Notification) error {
	slog.InfoContext(ctx, "notified", "id", n.ID, "phrases", n.Phrases)
	return nil
}

// Func adapts a function to the Notifier interface.
type Func func(ctx context.Context, n model.Notification) error

func (f Func) Notify(ctx context.Context, n model.Notification) error {
	return f(ctx, n)
}
