package syncer

import (
	"context"
	"fmt"
	"time"

	"log/slog"

	"github.com/linkpilot/linkpilot/internal/metrics"
	"github.com/linkpilot/linkpilot/internal/models"
	"github.com/linkpilot/linkpilot/internal/social"
)

// APIClient is the slice of the LinkedIn client the sync engine consumes.
// Each method costs exactly one unit against the call budget.
type APIClient interface {
	ListRecentPosts(ctx context.Context) ([]social.Post, error)
	ListEngagementForPost(ctx context.Context, postURN string) ([]social.EngagementActor, error)
}

// EngagementSyncer performs the per-connection sync: it checks a bounded
// window of the user's most recent tracked posts for engagement by one
// connection, persists matched events and recomputes the connection's
// summary from the full event log.
type EngagementSyncer struct {
	client             APIClient
	posts              models.TrackedPostRepository
	events             models.EngagementEventRepository
	summaries          models.EngagementSummaryRepository
	collector          *metrics.SyncCollector
	logger             *slog.Logger
	postsPerConnection int
}

// NewEngagementSyncer creates a per-connection engagement syncer.
func NewEngagementSyncer(
	client APIClient,
	posts models.TrackedPostRepository,
	events models.EngagementEventRepository,
	summaries models.EngagementSummaryRepository,
	collector *metrics.SyncCollector,
	logger *slog.Logger,
	postsPerConnection int,
) *EngagementSyncer {
	return &EngagementSyncer{
		client:             client,
		posts:              posts,
		events:             events,
		summaries:          summaries,
		collector:          collector,
		logger:             logger,
		postsPerConnection: postsPerConnection,
	}
}

// SyncConnection fetches engagement for the top tracked posts, one budgeted
// call per post, and attributes matching actors to the connection. Actors
// that match no stored identifier are ignored. Returns ErrBudgetExhausted or
// social.ErrRateLimited when the run must pause; any other error is a
// per-item failure for the caller to record on the queue item.
func (s *EngagementSyncer) SyncConnection(ctx context.Context, conn *models.Connection, budget *CallBudget, now time.Time) error {
	posts, err := s.posts.ListTop(ctx, s.postsPerConnection)
	if err != nil {
		return fmt.Errorf("failed to list tracked posts: %w", err)
	}

	for _, post := range posts {
		if !budget.CanAfford(1) {
			return ErrBudgetExhausted
		}

		actors, fetchErr := s.client.ListEngagementForPost(ctx, post.ID)
		if err := budget.Record(ctx, 1); err != nil {
			return fmt.Errorf("failed to record api call: %w", err)
		}
		s.collector.RecordAPICalls(1)

		if fetchErr != nil {
			// Rate-limit errors propagate as-is so the orchestrator
			// pauses the whole run instead of burning retries.
			return fmt.Errorf("failed to fetch engagement for %s: %w", post.ID, fetchErr)
		}

		matched := 0
		for _, actor := range actors {
			if !conn.MatchesIdentifier(actor.ActorURN) && !conn.MatchesIdentifier(actor.ProfileURL) {
				continue
			}

			eventType, ok := mapEngagementType(actor.Type)
			if !ok {
				s.logger.Debug("skipping unknown engagement type", "type", actor.Type)
				continue
			}

			event := &models.EngagementEvent{
				ConnectionID: conn.ID,
				PostID:       post.ID,
				Type:         eventType,
				ActorURN:     actor.ActorURN,
				Detail: models.EngagementDetail{
					Reaction:    actor.Reaction,
					CommentText: actor.Comment,
				},
				OccurredAt: actor.OccurredAt,
			}
			if err := s.events.Append(ctx, event); err != nil {
				return fmt.Errorf("failed to store engagement event: %w", err)
			}
			matched++
		}

		if matched > 0 {
			s.collector.RecordEngagementEvents(matched)
		}

		if err := s.posts.TouchSynced(ctx, post.ID, now); err != nil {
			return fmt.Errorf("failed to mark post synced: %w", err)
		}
	}

	return s.RecomputeSummary(ctx, conn, now)
}

// RecomputeSummary overwrites the connection's summary from its full event
// log. Summaries are a materialized view: recomputing from scratch is always
// safe, even after a partial failure.
func (s *EngagementSyncer) RecomputeSummary(ctx context.Context, conn *models.Connection, now time.Time) error {
	events, err := s.events.ListByConnection(ctx, conn.ID)
	if err != nil {
		return fmt.Errorf("failed to list engagement events: %w", err)
	}

	summary := BuildSummary(conn.ID, events, now)
	summary.PriorityScore = ScorePriority(conn, summary, now)

	if err := s.summaries.Upsert(ctx, summary); err != nil {
		return fmt.Errorf("failed to store engagement summary: %w", err)
	}
	return nil
}

// BuildSummary derives a summary from a connection's event log. Pure
// function of the events and the reference time.
func BuildSummary(connectionID string, events []*models.EngagementEvent, now time.Time) *models.EngagementSummary {
	summary := &models.EngagementSummary{
		ConnectionID:   connectionID,
		Status:         models.EngagementStatusUnknown,
		RecalculatedAt: now,
	}

	var lastEngagedAt time.Time
	for _, event := range events {
		summary.TotalEngagements++
		switch event.Type {
		case models.EngagementLike:
			summary.Likes++
		case models.EngagementComment:
			summary.Comments++
		case models.EngagementShare:
			summary.Shares++
		}

		age := now.Sub(event.OccurredAt)
		if age < 7*24*time.Hour {
			summary.Last7Days++
		}
		if age < 30*24*time.Hour {
			summary.Last30Days++
		}

		if event.OccurredAt.After(lastEngagedAt) {
			lastEngagedAt = event.OccurredAt
		}
	}

	if summary.TotalEngagements > 0 {
		t := lastEngagedAt
		summary.LastEngagedAt = &t
		summary.Status = classifyEngagement(lastEngagedAt, now)
	}

	return summary
}

func classifyEngagement(lastEngagedAt, now time.Time) models.EngagementStatus {
	since := now.Sub(lastEngagedAt)
	switch {
	case since < 7*24*time.Hour:
		return models.EngagementStatusActive
	case since < 30*24*time.Hour:
		return models.EngagementStatusQuiet
	default:
		return models.EngagementStatusCold
	}
}

func mapEngagementType(raw string) (models.EngagementType, bool) {
	switch raw {
	case "like":
		return models.EngagementLike, true
	case "comment":
		return models.EngagementComment, true
	case "share":
		return models.EngagementShare, true
	default:
		return "", false
	}
}
