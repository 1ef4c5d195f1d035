package weight

import (
	"context"
	"fmt"

	"github.com/jmehdipour/kuritterweight/internal/composer"
	"github.com/jmehdipour/kuritterweight/internal/metrics"
	"github.com/jmehdipour/kuritterweight/internal/model"
	"go.uber.org/zap"
)

// InvalidDataNotice is replied when the message text is not a weight.
const InvalidDataNotice = "体重データが不正です"

// Outcome classifies what HandleEvent did with an event.
type Outcome string

const (
	OutcomeIgnored  Outcome = "ignored"
	OutcomeInvalid  Outcome = "invalid"
	OutcomeRecorded Outcome = "recorded"
	OutcomeFailed   Outcome = "failed"
)

func (o Outcome) String() string { return string(o) }

// Store reads and appends weight records.
type Store interface {
	Latest(ctx context.Context, userID string) (*model.WeightRecord, error)
	Save(ctx context.Context, userID string, weight float64, previous *float64) (model.WeightRecord, error)
}

// Poster publishes a status line to the social network.
type Poster interface {
	Post(ctx context.Context, text string) (string, error)
}

// Replier answers the chat event identified by a reply token.
type Replier interface {
	Reply(ctx context.Context, replyToken, text string) error
}

// Service handles one inbound chat event:
// parse -> latest -> compose -> post (best effort) -> save -> reply.
type Service struct {
	store   Store
	poster  Poster
	replier Replier
	log     *zap.Logger
}

// New constructs the weight service.
func New(store Store, poster Poster, replier Replier, log *zap.Logger) *Service {
	if log == nil {
		log = zap.NewNop()
	}
	return &Service{store: store, poster: poster, replier: replier, log: log}
}

// HandleEvent processes a single webhook event. Non-text events and events without a
// user are ignored. Store and reply failures are returned; posting failures never are.
func (s *Service) HandleEvent(ctx context.Context, ev model.InboundEvent) (Outcome, error) {
	userID := ev.UserID()
	if !ev.IsText() || userID == "" {
		return OutcomeIgnored, nil
	}

	outcome := OutcomeInvalid
	message := InvalidDataNotice

	if current, ok := ParseWeight(ev.Text()); ok {
		latest, err := s.store.Latest(ctx, userID)
		if err != nil {
			return OutcomeFailed, fmt.Errorf("latest weight for %s: %w", userID, err)
		}

		var previous *float64
		baseline := 0.0
		if latest != nil {
			baseline = latest.Weight
			previous = &latest.Weight
		}

		message = composer.Compose(baseline, current)

		_ = s.postBestEffort(ctx, message)

		rec, err := s.store.Save(ctx, userID, current, previous)
		if err != nil {
			return OutcomeFailed, fmt.Errorf("save weight for %s: %w", userID, err)
		}
		s.log.Info("weight recorded",
			zap.String("user_id", userID),
			zap.String("record_id", rec.ID),
			zap.Float64("weight", current),
			zap.String("recorded_at", rec.Timestamp()),
		)
		outcome = OutcomeRecorded
	}

	if err := s.replier.Reply(ctx, ev.ReplyToken, message); err != nil {
		metrics.RepliesTotal.WithLabelValues("failed").Inc()
		return OutcomeFailed, fmt.Errorf("reply to %s: %w", userID, err)
	}
	metrics.RepliesTotal.WithLabelValues("sent").Inc()

	return outcome, nil
}

// postBestEffort posts text and reports whether it landed. Failures are logged only;
// callers are free to ignore the result.
func (s *Service) postBestEffort(ctx context.Context, text string) bool {
	id, err := s.poster.Post(ctx, text)
	if err != nil {
		metrics.PostsTotal.WithLabelValues("failed").Inc()
		s.log.Warn("social post failed", zap.Error(err))
		return false
	}

	metrics.PostsTotal.WithLabelValues("posted").Inc()
	s.log.Info("social post sent", zap.String("post_id", id))
	return true
}
