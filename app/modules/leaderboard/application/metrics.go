package leaderboardservice

import (
	"context"
	"time"
)

// Metrics records operational counters for the ranking subsystem. The
// prometheus implementation lives in infrastructure/metrics; tests use
// NoopMetrics.
type Metrics interface {
	RecordAwardAttempt(ctx context.Context)
	RecordAwardSuccess(ctx context.Context, duration time.Duration)
	RecordAwardFailure(ctx context.Context)
	RecordAwardDuplicate(ctx context.Context)

	RecordQuery(ctx context.Context, operation string, duration time.Duration)
	RecordQueryFailure(ctx context.Context, operation string)
	RecordCacheFallback(ctx context.Context, operation string)

	RecordRollover(ctx context.Context, outcome string)
	RecordDriftRepaired(ctx context.Context, namespace string, repaired int)
	RecordPublishDropped(ctx context.Context, subject string)
}

// NoopMetrics discards every observation.
type NoopMetrics struct{}

var _ Metrics = NoopMetrics{}

func (NoopMetrics) RecordAwardAttempt(context.Context)                 {}
func (NoopMetrics) RecordAwardSuccess(context.Context, time.Duration)  {}
func (NoopMetrics) RecordAwardFailure(context.Context)                 {}
func (NoopMetrics) RecordAwardDuplicate(context.Context)               {}
func (NoopMetrics) RecordQuery(context.Context, string, time.Duration) {}
func (NoopMetrics) RecordQueryFailure(context.Context, string)         {}
func (NoopMetrics) RecordCacheFallback(context.Context, string)        {}
func (NoopMetrics) RecordRollover(context.Context, string)             {}
func (NoopMetrics) RecordDriftRepaired(context.Context, string, int)   {}
func (NoopMetrics) RecordPublishDropped(context.Context, string)       {}
