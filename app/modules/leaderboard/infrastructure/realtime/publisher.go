package realtime

import (
	"context"
	"encoding/json"
	"log/slog"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	"golang.org/x/time/rate"

	"github.com/tribe-arena/ranking-service/app/eventbus"
	leaderboardservice "github.com/tribe-arena/ranking-service/app/modules/leaderboard/application"
	leaderboardevents "github.com/tribe-arena/ranking-service/app/modules/leaderboard/events"
)

// DefaultScoreUpdateRate bounds score-delta broadcasts per second. Award
// bursts beyond it are shed; clients converge on the next delivered update
// or their own refetch.
const DefaultScoreUpdateRate = 50

// Publisher broadcasts ranking events over the event bus. Score updates are
// advisory and rate-limited; reset events always go out.
type Publisher struct {
	bus     eventbus.EventBus
	logger  *slog.Logger
	metrics leaderboardservice.Metrics
	limiter *rate.Limiter
}

var _ leaderboardservice.EventPublisher = (*Publisher)(nil)

func NewPublisher(bus eventbus.EventBus, logger *slog.Logger, metrics leaderboardservice.Metrics) *Publisher {
	if metrics == nil {
		metrics = leaderboardservice.NoopMetrics{}
	}
	return &Publisher{
		bus:     bus,
		logger:  logger,
		metrics: metrics,
		limiter: rate.NewLimiter(rate.Limit(DefaultScoreUpdateRate), DefaultScoreUpdateRate),
	}
}

// PublishScoreUpdated broadcasts a score delta. Dropped silently when the
// limiter is saturated; logged when the bus rejects it. Either way the award
// itself already succeeded.
func (p *Publisher) PublishScoreUpdated(ctx context.Context, payload leaderboardevents.ScoreUpdatedPayload) {
	if !p.limiter.Allow() {
		p.metrics.RecordPublishDropped(ctx, leaderboardevents.ScoreUpdatedSubject)
		return
	}
	if err := p.publish(ctx, leaderboardevents.ScoreUpdatedSubject, payload); err != nil {
		p.metrics.RecordPublishDropped(ctx, leaderboardevents.ScoreUpdatedSubject)
		p.logger.WarnContext(ctx, "score update broadcast failed",
			slog.String("entity_id", string(payload.EntityID)),
			slog.Any("error", err))
	}
}

// PublishReset broadcasts a weekly reset. Not rate-limited: there is one per
// week and every client must hear it.
func (p *Publisher) PublishReset(ctx context.Context, payload leaderboardevents.ResetPayload) {
	if err := p.publish(ctx, leaderboardevents.ResetSubject, payload); err != nil {
		p.logger.ErrorContext(ctx, "reset broadcast failed", slog.Any("error", err))
	}
}

func (p *Publisher) publish(ctx context.Context, subject string, payload any) error {
	raw, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	msg := message.NewMessage(watermill.NewUUID(), raw)
	msg.Metadata.Set("subject", subject)
	return p.bus.Publish(ctx, leaderboardevents.LeaderboardStreamName, msg)
}
