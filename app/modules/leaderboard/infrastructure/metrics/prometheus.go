package leaderboardmetrics

import (
	"context"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	leaderboardservice "github.com/tribe-arena/ranking-service/app/modules/leaderboard/application"
)

// PrometheusMetrics implements the service metrics seam on a caller-owned
// registry.
type PrometheusMetrics struct {
	awardAttempts   prometheus.Counter
	awardFailures   prometheus.Counter
	awardDuplicates prometheus.Counter
	awardDuration   prometheus.Histogram

	queryDuration  *prometheus.HistogramVec
	queryFailures  *prometheus.CounterVec
	cacheFallbacks *prometheus.CounterVec

	rollovers      *prometheus.CounterVec
	driftRepaired  *prometheus.CounterVec
	publishDropped *prometheus.CounterVec
}

var _ leaderboardservice.Metrics = (*PrometheusMetrics)(nil)

func NewPrometheusMetrics(registry *prometheus.Registry) *PrometheusMetrics {
	factory := promauto.With(registry)
	return &PrometheusMetrics{
		awardAttempts: factory.NewCounter(prometheus.CounterOpts{
			Name: "leaderboard_award_attempts_total",
			Help: "Point award requests received.",
		}),
		awardFailures: factory.NewCounter(prometheus.CounterOpts{
			Name: "leaderboard_award_failures_total",
			Help: "Point award requests that failed.",
		}),
		awardDuplicates: factory.NewCounter(prometheus.CounterOpts{
			Name: "leaderboard_award_duplicates_total",
			Help: "Point award requests ignored as dedup-token replays.",
		}),
		awardDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "leaderboard_award_duration_seconds",
			Help:    "End to end latency of successful awards.",
			Buckets: prometheus.DefBuckets,
		}),
		queryDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "leaderboard_query_duration_seconds",
			Help:    "Latency of leaderboard reads.",
			Buckets: prometheus.DefBuckets,
		}, []string{"operation"}),
		queryFailures: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "leaderboard_query_failures_total",
			Help: "Leaderboard reads that failed.",
		}, []string{"operation"}),
		cacheFallbacks: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "leaderboard_cache_fallbacks_total",
			Help: "Reads served from the durable store because the score cache was unreachable.",
		}, []string{"operation"}),
		rollovers: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "leaderboard_rollovers_total",
			Help: "Weekly rollover runs by outcome.",
		}, []string{"outcome"}),
		driftRepaired: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "leaderboard_drift_repaired_total",
			Help: "Cache entries rewritten or removed by reconciliation.",
		}, []string{"namespace"}),
		publishDropped: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "leaderboard_publish_dropped_total",
			Help: "Broadcasts shed by the rate limiter or lost to bus errors.",
		}, []string{"subject"}),
	}
}

func (m *PrometheusMetrics) RecordAwardAttempt(context.Context) { m.awardAttempts.Inc() }
func (m *PrometheusMetrics) RecordAwardFailure(context.Context) { m.awardFailures.Inc() }
func (m *PrometheusMetrics) RecordAwardDuplicate(context.Context) {
	m.awardDuplicates.Inc()
}

func (m *PrometheusMetrics) RecordAwardSuccess(_ context.Context, duration time.Duration) {
	m.awardDuration.Observe(duration.Seconds())
}

func (m *PrometheusMetrics) RecordQuery(_ context.Context, operation string, duration time.Duration) {
	m.queryDuration.WithLabelValues(operation).Observe(duration.Seconds())
}

func (m *PrometheusMetrics) RecordQueryFailure(_ context.Context, operation string) {
	m.queryFailures.WithLabelValues(operation).Inc()
}

func (m *PrometheusMetrics) RecordCacheFallback(_ context.Context, operation string) {
	m.cacheFallbacks.WithLabelValues(operation).Inc()
}

func (m *PrometheusMetrics) RecordRollover(_ context.Context, outcome string) {
	m.rollovers.WithLabelValues(outcome).Inc()
}

func (m *PrometheusMetrics) RecordDriftRepaired(_ context.Context, namespace string, repaired int) {
	m.driftRepaired.WithLabelValues(namespace).Add(float64(repaired))
}

func (m *PrometheusMetrics) RecordPublishDropped(_ context.Context, subject string) {
	m.publishDropped.WithLabelValues(subject).Inc()
}
