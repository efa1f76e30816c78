package leaderboardqueue

// RolloverJob triggers the weekly snapshot-and-reset transition. Scheduled
// just after the Monday boundary; safe to redeliver because snapshot creation
// is idempotent per period.
type RolloverJob struct{}

// Kind returns the job type identifier for River
func (RolloverJob) Kind() string { return "leaderboard_rollover" }

// ReconcileJob sweeps the score cache against the durable store and repairs
// drift.
type ReconcileJob struct{}

// Kind returns the job type identifier for River
func (ReconcileJob) Kind() string { return "leaderboard_reconcile" }

// RankRefreshJob persists the denormalized rank columns from current totals.
type RankRefreshJob struct{}

// Kind returns the job type identifier for River
func (RankRefreshJob) Kind() string { return "leaderboard_rank_refresh" }
