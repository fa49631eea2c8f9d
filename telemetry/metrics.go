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
	NotificationsReceived  prometheus.Counter
	DuplicateNotifications prometheus.Counter
	MergeFailures          prometheus.Counter
	FullRefreshes          prometheus.Counter
	PlaysReported          prometheus.Counter
	MessagesSent           prometheus.Counter
	MessagesFailed         *prometheus.CounterVec // label: class
	MessageEdits           prometheus.Counter
	MessageEditsFailed     *prometheus.CounterVec // label: class
	SavantPolls            prometheus.Counter
	SavantExhausted        prometheus.Counter
	StatusPolls            prometheus.Counter

	// Histograms (seconds)
	UpdateDuration prometheus.Observer

	// Gauges
	SubscribedChannelsGauge prometheus.Gauge
	TrackedGameGauge        prometheus.Gauge // gamePk, 0 when idle
	PendingBackfillsGauge   prometheus.Gauge
)

// Init registers metrics (idempotent).
func Init() {
	once.Do(func() {
		NotificationsReceived = promauto.NewCounter(prometheus.CounterOpts{Name: "gameday_notifications_received_total", Help: "Push notifications received from the gameday socket"})
		DuplicateNotifications = promauto.NewCounter(prometheus.CounterOpts{Name: "gameday_notifications_duplicate_total", Help: "Push notifications dropped as duplicates of the previous one"})
		MergeFailures = promauto.NewCounter(prometheus.CounterOpts{Name: "gameday_merge_failures_total", Help: "Patch batches that failed to apply and forced a snapshot refetch"})
		FullRefreshes = promauto.NewCounter(prometheus.CounterOpts{Name: "gameday_full_refreshes_total", Help: "Full snapshot replacements (full_refresh or full diff response)"})
		PlaysReported = promauto.NewCounter(prometheus.CounterOpts{Name: "gameday_plays_reported_total", Help: "Plays appended to the reported-description ledger"})
		MessagesSent = promauto.NewCounter(prometheus.CounterOpts{Name: "gameday_messages_sent_total", Help: "Messages delivered to subscribed channels"})
		MessagesFailed = promauto.NewCounterVec(prometheus.CounterOpts{Name: "gameday_messages_failed_total", Help: "Message sends that failed, by error class"}, []string{"class"})
		MessageEdits = promauto.NewCounter(prometheus.CounterOpts{Name: "gameday_message_edits_total", Help: "Message edits applied by metric backfill"})
		MessageEditsFailed = promauto.NewCounterVec(prometheus.CounterOpts{Name: "gameday_message_edits_failed_total", Help: "Message edits that failed, by error class"}, []string{"class"})
		SavantPolls = promauto.NewCounter(prometheus.CounterOpts{Name: "gameday_savant_polls_total", Help: "Advanced metric feed poll attempts"})
		SavantExhausted = promauto.NewCounter(prometheus.CounterOpts{Name: "gameday_savant_exhausted_total", Help: "Backfill trackers that ended without every metric"})
		StatusPolls = promauto.NewCounter(prometheus.CounterOpts{Name: "gameday_status_polls_total", Help: "Schedule polls looking for a live game"})
		UpdateDuration = promauto.NewHistogram(prometheus.HistogramOpts{Name: "gameday_update_duration_seconds", Help: "Time to merge and report one push notification", Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10}})
		SubscribedChannelsGauge = promauto.NewGauge(prometheus.GaugeOpts{Name: "gameday_subscribed_channels", Help: "Channels currently subscribed to live updates"})
		TrackedGameGauge = promauto.NewGauge(prometheus.GaugeOpts{Name: "gameday_tracked_game_pk", Help: "gamePk of the tracked game, 0 when idle"})
		PendingBackfillsGauge = promauto.NewGauge(prometheus.GaugeOpts{Name: "gameday_pending_backfills", Help: "Messages with advanced metrics still pending"})
	})
}

// SetSubscribedChannels records the subscriber count.
func SetSubscribedChannels(n int) {
	if SubscribedChannelsGauge != nil {
		SubscribedChannelsGauge.Set(float64(n))
	}
}

// SetTrackedGame records the tracked gamePk (0 when idle).
func SetTrackedGame(gamePk int) {
	if TrackedGameGauge != nil {
		TrackedGameGauge.Set(float64(gamePk))
	}
}

// AddPendingBackfills moves the pending backfill gauge by delta.
func AddPendingBackfills(delta int) {
	if PendingBackfillsGauge != nil {
		PendingBackfillsGauge.Add(float64(delta))
	}
}

// Inc increments c if it was registered.
func Inc(c prometheus.Counter) {
	if c != nil {
		c.Inc()
	}
}

// IncClass increments the labelled counter for an error class.
func IncClass(c *prometheus.CounterVec, class string) {
	if c != nil {
		c.WithLabelValues(class).Inc()
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
	v := ctx.Value(corrKey)
	if s, ok := v.(string); ok {
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
