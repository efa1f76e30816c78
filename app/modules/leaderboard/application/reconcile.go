package leaderboardservice

import (
	"context"
	"fmt"
	"log/slog"

	leaderboarddomain "github.com/tribe-arena/ranking-service/app/modules/leaderboard/domain"
)

// Drift is the difference between a cache namespace and the durable store's
// authoritative totals for it.
type Drift struct {
	Namespace leaderboarddomain.Namespace

	// Stale holds entries whose cache score is missing or wrong; the score
	// is the store's authoritative value to write.
	Stale []leaderboarddomain.Entry

	// Orphaned are entities present in the cache with no points on record.
	Orphaned []leaderboarddomain.EntityID
}

func (d *Drift) Empty() bool {
	return len(d.Stale) == 0 && len(d.Orphaned) == 0
}

// Diff compares one cache namespace against the store. The store wins: the
// cache is a derived performance structure, and the award path deliberately
// tolerates divergence between the two.
func (s *RankingService) Diff(ctx context.Context, ns leaderboarddomain.Namespace) (*Drift, error) {
	rows, err := s.repo.TopByScore(ctx, nil, ns.Scope, ns.Period, ns.Country, 0)
	if err != nil {
		return nil, fmt.Errorf("diff %s: store read: %w", ns, err)
	}
	authoritative := make(map[leaderboarddomain.EntityID]float64, len(rows))
	for _, row := range rows {
		authoritative[leaderboarddomain.EntityID(row.ID)] = float64(periodPoints(row, ns.Period))
	}

	total, err := s.cache.Cardinality(ctx, ns)
	if err != nil {
		return nil, fmt.Errorf("diff %s: cache cardinality: %w", ns, err)
	}
	var cached []leaderboarddomain.Entry
	if total > 0 {
		cached, err = s.cache.RangeDesc(ctx, ns, 0, total-1)
		if err != nil {
			return nil, fmt.Errorf("diff %s: cache read: %w", ns, err)
		}
	}

	drift := &Drift{Namespace: ns}
	seen := make(map[leaderboarddomain.EntityID]bool, len(cached))
	for _, entry := range cached {
		seen[entry.EntityID] = true
		want, ok := authoritative[entry.EntityID]
		if !ok {
			drift.Orphaned = append(drift.Orphaned, entry.EntityID)
			continue
		}
		if entry.Score != want {
			drift.Stale = append(drift.Stale, leaderboarddomain.Entry{EntityID: entry.EntityID, Score: want})
		}
	}
	for id, want := range authoritative {
		if !seen[id] {
			drift.Stale = append(drift.Stale, leaderboarddomain.Entry{EntityID: id, Score: want})
		}
	}
	return drift, nil
}

// Repair rewrites the drifted cache entries from the store's values and
// removes orphans.
func (s *RankingService) Repair(ctx context.Context, drift *Drift) error {
	for _, entry := range drift.Stale {
		if err := s.cache.Set(ctx, drift.Namespace, entry.EntityID, entry.Score); err != nil {
			return fmt.Errorf("repair %s: set %s: %w", drift.Namespace, entry.EntityID, err)
		}
	}
	for _, id := range drift.Orphaned {
		if err := s.cache.Remove(ctx, drift.Namespace, id); err != nil {
			return fmt.Errorf("repair %s: remove %s: %w", drift.Namespace, id, err)
		}
	}
	return nil
}

// RunReconciliation sweeps every namespace, repairing detected drift, and
// prunes expired dedup tokens. Drift is repaired and logged, never surfaced
// to users.
func (s *RankingService) RunReconciliation(ctx context.Context) (*ReconcileReport, error) {
	ctx, span := s.tracer.Start(ctx, "leaderboard.RunReconciliation")
	defer span.End()

	report := &ReconcileReport{}
	for _, scope := range []leaderboarddomain.Scope{leaderboarddomain.ScopeUsers, leaderboarddomain.ScopeTribes} {
		countries, err := s.repo.DistinctCountries(ctx, nil, scope)
		if err != nil {
			return report, fmt.Errorf("reconcile: list countries: %w", err)
		}
		for _, period := range []leaderboarddomain.Period{leaderboarddomain.PeriodWeekly, leaderboarddomain.PeriodAllTime} {
			namespaces := []leaderboarddomain.Namespace{{Scope: scope, Period: period}}
			for _, country := range countries {
				namespaces = append(namespaces, leaderboarddomain.Namespace{Scope: scope, Period: period, Country: country})
			}
			for _, ns := range namespaces {
				report.Namespaces++
				drift, err := s.Diff(ctx, ns)
				if err != nil {
					return report, err
				}
				if drift.Empty() {
					continue
				}
				s.logger.WarnContext(ctx, "score cache drift detected",
					slog.String("namespace", ns.String()),
					slog.Int("stale", len(drift.Stale)),
					slog.Int("orphaned", len(drift.Orphaned)))
				if err := s.Repair(ctx, drift); err != nil {
					return report, err
				}
				report.Repaired += len(drift.Stale)
				report.Orphans += len(drift.Orphaned)
				s.metrics.RecordDriftRepaired(ctx, ns.String(), len(drift.Stale)+len(drift.Orphaned))
			}
		}
	}

	pruned, err := s.repo.PruneAwardTokens(ctx, nil, s.now().Add(-s.tokenRetention))
	if err != nil {
		return report, fmt.Errorf("reconcile: prune tokens: %w", err)
	}
	report.PrunedTokens = pruned

	return report, nil
}
