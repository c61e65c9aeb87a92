// Package telemetry provides Prometheus metrics and correlation-id aware logging helpers.
package telemetry

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	once sync.Once

	// Counters
	UpdatesReceived  *prometheus.CounterVec // by variant
	EventsNormalized *prometheus.CounterVec // by kind
	EventsDropped    *prometheus.CounterVec // by reason
	RowsAppended     *prometheus.CounterVec // by status
	RowsUpdated      *prometheus.CounterVec // by status
	StoreErrors      *prometheus.CounterVec // by op, class
	DedupHits        prometheus.Counter

	// Histograms (seconds)
	ReconcileDuration prometheus.Observer

	// Gauges
	EntitiesCached prometheus.Gauge
)

// Init registers metrics (idempotent).
func Init() {
	once.Do(func() {
		UpdatesReceived = promauto.NewCounterVec(prometheus.CounterOpts{Name: "mirror_updates_total", Help: "Raw updates received, by TL variant"}, []string{"variant"})
		EventsNormalized = promauto.NewCounterVec(prometheus.CounterOpts{Name: "mirror_events_total", Help: "Message events produced by normalization, by kind"}, []string{"kind"})
		EventsDropped = promauto.NewCounterVec(prometheus.CounterOpts{Name: "mirror_events_dropped_total", Help: "Message events dropped without a write, by reason"}, []string{"reason"})
		RowsAppended = promauto.NewCounterVec(prometheus.CounterOpts{Name: "mirror_rows_appended_total", Help: "Rows appended to the message log, by status"}, []string{"status"})
		RowsUpdated = promauto.NewCounterVec(prometheus.CounterOpts{Name: "mirror_rows_updated_total", Help: "Rows updated in place, by status"}, []string{"status"})
		StoreErrors = promauto.NewCounterVec(prometheus.CounterOpts{Name: "mirror_store_errors_total", Help: "Message log store errors, by operation and class"}, []string{"op", "class"})
		DedupHits = promauto.NewCounter(prometheus.CounterOpts{Name: "mirror_dedup_hits_total", Help: "Redelivered transitions suppressed by the dedup guard"})
		ReconcileDuration = promauto.NewHistogram(prometheus.HistogramOpts{Name: "mirror_reconcile_duration_seconds", Help: "Time to reconcile one message event", Buckets: prometheus.DefBuckets})
		EntitiesCached = promauto.NewGauge(prometheus.GaugeOpts{Name: "mirror_entities_cached", Help: "Entities known to the relay transport"})
	})
}

// IncUpdate counts a raw update.
func IncUpdate(variant string) {
	if UpdatesReceived != nil {
		UpdatesReceived.WithLabelValues(variant).Inc()
	}
}

// IncEvent counts a normalized event.
func IncEvent(kind string) {
	if EventsNormalized != nil {
		EventsNormalized.WithLabelValues(kind).Inc()
	}
}

// IncDropped counts an event that ended without a write.
func IncDropped(reason string) {
	if EventsDropped != nil {
		EventsDropped.WithLabelValues(reason).Inc()
	}
}

// IncAppended counts an appended row.
func IncAppended(status string) {
	if RowsAppended != nil {
		RowsAppended.WithLabelValues(status).Inc()
	}
}

// IncUpdated counts an in-place row update.
func IncUpdated(status string) {
	if RowsUpdated != nil {
		RowsUpdated.WithLabelValues(status).Inc()
	}
}

// IncStoreError counts a failed store call.
func IncStoreError(op, class string) {
	if StoreErrors != nil {
		StoreErrors.WithLabelValues(op, class).Inc()
	}
}

// IncDedupHit counts a suppressed redelivery.
func IncDedupHit() {
	if DedupHits != nil {
		DedupHits.Inc()
	}
}

// SetEntitiesCached records the entity cache size.
func SetEntitiesCached(n int) {
	if EntitiesCached != nil {
		EntitiesCached.Set(float64(n))
	}
}

// TimeFunc measures the duration of fn and records in observer if non-nil.
func TimeFunc(obs prometheus.Observer, fn func()) time.Duration {
	start := time.Now()
	fn()
	d := time.Since(start)
	if obs != nil {
		obs.Observe(d.Seconds())
	}
	return d
}

// Correlation ID helpers ----------------------------------------------------
type corrKeyType struct{}

var corrKey corrKeyType

// WithCorrelation returns a new context embedding the correlation id.
func WithCorrelation(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, corrKey, id)
}

// GetCorrelation returns correlation id or empty string.
func GetCorrelation(ctx context.Context) string {
	if s, ok := ctx.Value(corrKey).(string); ok {
		return s
	}
	return ""
}

// LoggerWithCorr returns a logger with corr attribute if present.
func LoggerWithCorr(ctx context.Context) *slog.Logger {
	if id := GetCorrelation(ctx); id != "" {
		return slog.Default().With(slog.String("corr", id))
	}
	return slog.Default()
}
