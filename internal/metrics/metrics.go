package metrics

import (
	"errors"
	"net/http"
	"sync/atomic"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const (
	ResultMatch  = "match"
	ResultEmpty  = "empty"
	ResultFailed = "failed"
)

// Package-level Prometheus collectors. They are registered via Register.
var (
	regOK atomic.Bool

	cycles = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "spotter",
			Subsystem: "detect",
			Name:      "cycles_total",
			Help:      "Number of finished detection cycles by result.",
		}, []string{"result"},
	)
	cycleDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: "spotter",
			Subsystem: "detect",
			Name:      "cycle_duration_seconds",
			Help:      "Duration of a detection cycle including capture and recognition.",
			Buckets:   prometheus.DefBuckets,
		},
	)
	notifications = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "spotter",
			Subsystem: "notify",
			Name:      "notifications_total",
			Help:      "Number of notified events emitted.",
		},
	)
	loopRunning = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "spotter",
			Subsystem: "loop",
			Name:      "running",
			Help:      "1 when the detection loop is running.",
		},
	)
	loopStarts = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "spotter",
			Subsystem: "loop",
			Name:      "starts_total",
			Help:      "Number of detection loop starts.",
		},
	)
)

// Register registers all metrics with the provided registerer.
// It is safe to call multiple times; subsequent calls after success are no-ops.
func Register(r prometheus.Registerer) error {
	if regOK.Load() {
		return nil
	}
	cs := []prometheus.Collector{cycles, cycleDuration, notifications, loopRunning, loopStarts}
	for _, c := range cs {
		if err := r.Register(c); err != nil {
			var are prometheus.AlreadyRegisteredError
			if errors.As(err, &are) {
				continue
			}
			return err
		}
	}
	regOK.Store(true)
	return nil
}

// Handler returns an http.Handler that serves Prometheus metrics for the DefaultGatherer.
func Handler() http.Handler { return promhttp.Handler() }

// Below are lightweight helpers used by internal packages to record metrics.
// They no-op if Register hasn't been called.

func IncCycle(result string) {
	if regOK.Load() {
		cycles.WithLabelValues(result).Inc()
	}
}

func ObserveCycleDuration(seconds float64) {
	if regOK.Load() {
		cycleDuration.Observe(seconds)
	}
}

func IncNotification() {
	if regOK.Load() {
		notifications.Inc()
	}
}

func SetRunning(running bool) {
	if !regOK.Load() {
		return
	}
	if running {
		loopRunning.Set(1)
		loopStarts.Inc()
	} else {
		loopRunning.Set(0)
	}
}
