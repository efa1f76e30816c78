package leaderboardservice

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	leaderboarddomain "github.com/tribe-arena/ranking-service/app/modules/leaderboard/domain"
	leaderboardevents "github.com/tribe-arena/ranking-service/app/modules/leaderboard/events"
	leaderboarddb "github.com/tribe-arena/ranking-service/app/modules/leaderboard/infrastructure/repositories"
)

// Award applies a point award to the score cache and the aggregate store,
// then broadcasts the new standings.
//
// The cache and store writes are individually atomic but deliberately not
// atomic with each other: the award path favors latency, and the
// reconciliation job bounds the divergence a mid-flight failure leaves
// behind. The durable-store write is the acknowledgement gate — if it fails,
// the award fails, even though the cache moved.
func (s *RankingService) Award(ctx context.Context, req AwardRequest) (*AwardResult, error) {
	ctx, span := s.tracer.Start(ctx, "leaderboard.Award")
	defer span.End()

	start := s.now()
	s.metrics.RecordAwardAttempt(ctx)

	if req.Points <= 0 {
		s.metrics.RecordAwardFailure(ctx)
		return nil, ErrInvalidPoints
	}
	if _, err := leaderboarddomain.ParseScope(string(req.Scope)); err != nil {
		s.metrics.RecordAwardFailure(ctx)
		return nil, err
	}

	token := req.DedupToken
	if token == "" {
		token = leaderboarddomain.ComputeDedupToken(req.Scope, req.EntityID, req.Points, req.Reason, req.Ref)
	}

	claimed, prior, err := s.repo.ClaimAwardToken(ctx, nil, &leaderboarddb.AppliedAward{
		Token:     token,
		Scope:     string(req.Scope),
		EntityID:  string(req.EntityID),
		Points:    req.Points,
		Reason:    req.Reason,
		Ref:       req.Ref,
		AppliedAt: start,
	})
	if err != nil {
		s.metrics.RecordAwardFailure(ctx)
		return nil, fmt.Errorf("award: claim dedup token: %w", err)
	}
	if !claimed {
		s.metrics.RecordAwardDuplicate(ctx)
		s.logger.InfoContext(ctx, "duplicate award ignored",
			slog.String("token", token),
			slog.String("entity_id", string(req.EntityID)))
		result := &AwardResult{Duplicate: true}
		if prior != nil {
			result.WeeklyScore = prior.WeeklyScore
			result.AllTimeScore = prior.AllTimeScore
		}
		return result, nil
	}

	// Country variants only apply when the entity's country is on record.
	country := ""
	if row, err := s.repo.GetAggregate(ctx, nil, req.Scope, req.EntityID); err == nil {
		country = row.Country
	} else if !errors.Is(err, leaderboarddb.ErrAggregateNotFound) {
		s.releaseToken(ctx, token)
		s.metrics.RecordAwardFailure(ctx)
		return nil, fmt.Errorf("award: read aggregate: %w", err)
	}

	delta := float64(req.Points)
	weeklyNS := leaderboarddomain.Namespace{Scope: req.Scope, Period: leaderboarddomain.PeriodWeekly}
	allTimeNS := leaderboarddomain.Namespace{Scope: req.Scope, Period: leaderboarddomain.PeriodAllTime}

	weeklyScore, err := s.cache.Increment(ctx, weeklyNS, req.EntityID, delta)
	if err != nil {
		s.releaseToken(ctx, token)
		s.metrics.RecordAwardFailure(ctx)
		return nil, fmt.Errorf("award: weekly cache increment: %w", err)
	}
	allTimeScore, err := s.cache.Increment(ctx, allTimeNS, req.EntityID, delta)
	if err != nil {
		s.releaseToken(ctx, token)
		s.metrics.RecordAwardFailure(ctx)
		return nil, fmt.Errorf("award: all-time cache increment: %w", err)
	}

	if country != "" {
		for _, period := range []leaderboarddomain.Period{leaderboarddomain.PeriodWeekly, leaderboarddomain.PeriodAllTime} {
			ns := leaderboarddomain.Namespace{Scope: req.Scope, Period: period, Country: country}
			if _, err := s.cache.Increment(ctx, ns, req.EntityID, delta); err != nil {
				s.releaseToken(ctx, token)
				s.metrics.RecordAwardFailure(ctx)
				return nil, fmt.Errorf("award: country cache increment %s: %w", ns, err)
			}
		}
	}

	if err := s.repo.AwardPoints(ctx, nil, req.Scope, req.EntityID, req.Points, start); err != nil {
		// The cache is now ahead of the store; reconciliation will pull it
		// back. Free the token so the caller can retry the whole award.
		s.releaseToken(ctx, token)
		s.metrics.RecordAwardFailure(ctx)
		s.logger.ErrorContext(ctx, "durable award write failed after cache increment",
			slog.String("entity_id", string(req.EntityID)),
			slog.Any("error", err))
		return nil, fmt.Errorf("award: store write: %w", err)
	}

	if err := s.repo.RecordAwardResult(ctx, nil, token, weeklyScore, allTimeScore); err != nil {
		// Award landed; a lost result only degrades duplicate responses.
		s.logger.WarnContext(ctx, "failed to record award result", slog.Any("error", err))
	}

	s.publisher.PublishScoreUpdated(ctx, leaderboardevents.ScoreUpdatedPayload{
		Scope:     req.Scope,
		Period:    leaderboarddomain.PeriodWeekly,
		EntityID:  req.EntityID,
		NewPoints: weeklyScore,
		Delta:     req.Points,
	})
	s.publisher.PublishScoreUpdated(ctx, leaderboardevents.ScoreUpdatedPayload{
		Scope:     req.Scope,
		Period:    leaderboarddomain.PeriodAllTime,
		EntityID:  req.EntityID,
		NewPoints: allTimeScore,
		Delta:     req.Points,
	})

	s.metrics.RecordAwardSuccess(ctx, s.now().Sub(start))
	s.logger.InfoContext(ctx, "points awarded",
		slog.String("scope", string(req.Scope)),
		slog.String("entity_id", string(req.EntityID)),
		slog.Int64("points", req.Points),
		slog.String("reason", req.Reason))

	return &AwardResult{WeeklyScore: weeklyScore, AllTimeScore: allTimeScore}, nil
}

func (s *RankingService) releaseToken(ctx context.Context, token string) {
	if err := s.repo.ReleaseAwardToken(ctx, nil, token); err != nil {
		s.logger.ErrorContext(ctx, "failed to release award token; retries with this token will no-op",
			slog.String("token", token),
			slog.Any("error", err))
	}
}

// RegisterUser upserts a user's denormalized identity fields.
func (s *RankingService) RegisterUser(ctx context.Context, user *leaderboarddb.UserAggregate) error {
	if user.UpdatedAt.IsZero() {
		user.UpdatedAt = s.now()
	}
	if user.CreatedAt.IsZero() {
		user.CreatedAt = user.UpdatedAt
	}
	if err := s.repo.UpsertUser(ctx, nil, user); err != nil {
		return fmt.Errorf("register user: %w", err)
	}
	return nil
}

// RegisterTribe upserts a tribe's denormalized identity fields.
func (s *RankingService) RegisterTribe(ctx context.Context, tribe *leaderboarddb.TribeAggregate) error {
	if tribe.UpdatedAt.IsZero() {
		tribe.UpdatedAt = s.now()
	}
	if tribe.CreatedAt.IsZero() {
		tribe.CreatedAt = tribe.UpdatedAt
	}
	if err := s.repo.UpsertTribe(ctx, nil, tribe); err != nil {
		return fmt.Errorf("register tribe: %w", err)
	}
	return nil
}
