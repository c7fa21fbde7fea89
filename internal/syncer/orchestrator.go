package syncer

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"log/slog"

	"github.com/google/uuid"
	"github.com/linkpilot/linkpilot/internal/metrics"
	"github.com/linkpilot/linkpilot/internal/models"
	"github.com/linkpilot/linkpilot/internal/social"
)

// ErrSyncAlreadyRunning is returned when a run finds an unfinished session
// in the running state. The date-keyed session acts as the advisory lock:
// a second invocation declines rather than racing the first.
var ErrSyncAlreadyRunning = errors.New("sync: a sync run is already in progress")

// Config carries the orchestrator knobs, read once at construction and never
// hot-reloaded mid-run.
type Config struct {
	UserID             string
	UsableCallLimit    int // daily hard limit minus the manual-action reserve
	BatchSize          int
	PostsPerConnection int
	RelevanceKeywords  []string
}

// Orchestrator drives the end-to-end daily sync: session lifecycle, post
// refresh, relevance marking, queue rebuild, budget-gated drain and insight
// computation. Runs are strictly sequential; the budget counter and session
// row are the only state shared across steps, and every mutation is
// persisted immediately so a crash leaves the session resumable.
type Orchestrator struct {
	cfg         Config
	sessions    models.SyncSessionRepository
	connections models.ConnectionRepository
	posts       models.TrackedPostRepository
	queue       *Queue
	engagement  *EngagementSyncer
	insights    *InsightCalculator
	client      APIClient
	collector   *metrics.SyncCollector
	logger      *slog.Logger

	// now is swapped in tests to pin the clock.
	now func() time.Time
}

// NewOrchestrator wires the sync engine together.
func NewOrchestrator(
	cfg Config,
	sessions models.SyncSessionRepository,
	connections models.ConnectionRepository,
	posts models.TrackedPostRepository,
	queue *Queue,
	engagement *EngagementSyncer,
	insights *InsightCalculator,
	client APIClient,
	collector *metrics.SyncCollector,
	logger *slog.Logger,
) *Orchestrator {
	return &Orchestrator{
		cfg:         cfg,
		sessions:    sessions,
		connections: connections,
		posts:       posts,
		queue:       queue,
		engagement:  engagement,
		insights:    insights,
		client:      client,
		collector:   collector,
		logger:      logger,
		now:         time.Now,
	}
}

// Run executes one sync pass. Budget exhaustion and external rate limiting
// pause the session and return nil; any unexpected failure pauses the
// session with the error recorded, then propagates to the caller.
func (o *Orchestrator) Run(ctx context.Context) (runErr error) {
	session, resumed, err := o.openSession(ctx)
	if err != nil {
		return err
	}
	if session == nil {
		// Today's sync already completed; the trigger is idempotent.
		return nil
	}

	budget := NewCallBudget(o.sessions, session)
	o.logger.Info("sync run started",
		"session_id", session.ID,
		"date", session.Date,
		"budget_remaining", budget.Remaining())

	defer func() {
		if runErr != nil {
			o.pauseSession(ctx, session, runErr.Error())
		}
	}()

	o.refreshPosts(ctx, budget)

	connections, err := o.connections.ListAll(ctx)
	if err != nil {
		return fmt.Errorf("failed to list connections: %w", err)
	}

	if err := o.markRelevance(ctx, connections); err != nil {
		return err
	}

	// A fresh session walks the whole network again; a resumed one keeps
	// its finished work settled so no budget is spent on redone syncs.
	if !resumed {
		if err := o.queue.ResetCompleted(ctx, o.now()); err != nil {
			return fmt.Errorf("failed to reset queue for a fresh run: %w", err)
		}
	}

	total, err := o.queue.Rebuild(ctx, connections, o.now())
	if err != nil {
		return fmt.Errorf("failed to rebuild sync queue: %w", err)
	}
	if err := o.sessions.Update(ctx, session.ID, models.SyncSessionUpdate{
		TotalConnections: &total,
	}); err != nil {
		return fmt.Errorf("failed to record queue size: %w", err)
	}
	session.TotalConnections = total

	drained, err := o.drain(ctx, session, budget)
	if err != nil {
		return err
	}
	if !drained {
		o.pauseSession(ctx, session, "")
		o.collector.RecordSessionOutcome("paused")
		return nil
	}

	if err := o.insights.Compute(ctx, session.Date, o.now()); err != nil {
		return err
	}

	return o.completeSession(ctx, session)
}

// openSession resumes the latest unfinished session or creates today's.
// Returns (nil, false, nil) when today's sync already settled. Resuming
// restores the persisted call counter, so a restarted process continues
// counting from where it stopped. A paused session is resumed even across a
// day boundary, and the first resume of each new day grants a fresh day's
// usable quota on top of what the session already spent: the quota is per
// calendar day, so a multi-day walk of a large network replenishes every
// morning instead of wedging on the first exhausted budget.
func (o *Orchestrator) openSession(ctx context.Context) (*models.SyncSession, bool, error) {
	today := o.now().Format(models.SessionDateFormat)

	unfinished, err := o.sessions.LatestUnfinished(ctx)
	if err != nil {
		return nil, false, fmt.Errorf("failed to look up unfinished session: %w", err)
	}

	if unfinished != nil {
		if unfinished.Status == models.SyncStatusRunning {
			return nil, false, ErrSyncAlreadyRunning
		}

		status := models.SyncStatusRunning
		empty := ""
		update := models.SyncSessionUpdate{
			Status: &status,
			Error:  &empty,
		}

		// PausedAt marks the last day the session held a quota. On the
		// first resume of a later day the limit is topped up so exactly
		// one fresh usable quota is available; same-day resumes keep
		// spending the current day's.
		lastActive := unfinished.Date
		if unfinished.PausedAt != nil {
			lastActive = unfinished.PausedAt.Format(models.SessionDateFormat)
		}
		if lastActive != today {
			limit := unfinished.APICallsUsed + o.cfg.UsableCallLimit
			update.APICallLimit = &limit
			unfinished.APICallLimit = limit
		}

		if err := o.sessions.Update(ctx, unfinished.ID, update); err != nil {
			return nil, false, fmt.Errorf("failed to resume session: %w", err)
		}
		unfinished.Status = status
		unfinished.Error = ""

		o.logger.Info("resuming paused sync session",
			"session_id", unfinished.ID,
			"date", unfinished.Date,
			"api_calls_used", unfinished.APICallsUsed,
			"api_call_limit", unfinished.APICallLimit)
		return unfinished, true, nil
	}

	existing, err := o.sessions.GetByDate(ctx, today)
	if err != nil {
		return nil, false, fmt.Errorf("failed to look up today's session: %w", err)
	}
	if existing != nil {
		o.logger.Info("sync already settled today, nothing to do",
			"session_id", existing.ID, "status", existing.Status)
		return nil, false, nil
	}

	session := &models.SyncSession{
		ID:           uuid.New().String(),
		Date:         today,
		Status:       models.SyncStatusRunning,
		APICallLimit: o.cfg.UsableCallLimit,
		StartedAt:    o.now(),
	}
	if err := o.sessions.Create(ctx, session); err != nil {
		return nil, false, fmt.Errorf("failed to create sync session: %w", err)
	}
	return session, false, nil
}

// refreshPosts caches the user's recent posts with a recency-weighted sync
// priority. Best effort: failures are logged and swallowed, the run
// continues with whatever posts are already cached.
func (o *Orchestrator) refreshPosts(ctx context.Context, budget *CallBudget) {
	if !budget.CanAfford(1) {
		o.logger.Warn("skipping post refresh, no budget remaining")
		return
	}

	posts, fetchErr := o.client.ListRecentPosts(ctx)
	if err := budget.Record(ctx, 1); err != nil {
		o.logger.Error("failed to record post refresh call", "error", err)
		return
	}
	o.collector.RecordAPICalls(1)

	if fetchErr != nil {
		o.logger.Warn("post refresh failed, continuing with cached posts", "error", fetchErr)
		return
	}

	now := o.now()
	for _, post := range posts {
		tracked := &models.TrackedPost{
			ID:           post.URN,
			TextPreview:  truncate(post.Text, 200),
			PostedAt:     post.PostedAt,
			SyncPriority: postSyncPriority(post.PostedAt, now),
		}
		if err := o.posts.Store(ctx, tracked); err != nil {
			o.logger.Warn("failed to cache tracked post", "post", post.URN, "error", err)
		}
	}
	o.logger.Info("tracked posts refreshed", "count", len(posts))
}

// markRelevance flags connections whose profile text matches a configured
// keyword. Zero API cost; the flag feeds the priority scorer.
func (o *Orchestrator) markRelevance(ctx context.Context, connections []*models.Connection) error {
	if len(o.cfg.RelevanceKeywords) == 0 {
		return nil
	}

	for _, conn := range connections {
		relevant := matchesAnyKeyword(conn.ProfileText(), o.cfg.RelevanceKeywords)
		if relevant == conn.Relevant {
			continue
		}
		if err := o.connections.SetRelevant(ctx, conn.ID, relevant); err != nil {
			return fmt.Errorf("failed to update relevance for %s: %w", conn.ID, err)
		}
		conn.Relevant = relevant
	}
	return nil
}

// drain works through the queue in batches, checking the budget before every
// connection. Returns true when the queue is fully drained, false when the
// run must pause (budget exhausted or the API rate-limited us).
func (o *Orchestrator) drain(ctx context.Context, session *models.SyncSession, budget *CallBudget) (bool, error) {
	estimatedCost := o.cfg.PostsPerConnection

	for {
		batch, err := o.queue.NextBatch(ctx, o.cfg.BatchSize, o.now())
		if err != nil {
			return false, fmt.Errorf("failed to fetch next batch: %w", err)
		}
		if len(batch) == 0 {
			return true, nil
		}

		for _, item := range batch {
			if !budget.CanAfford(estimatedCost) {
				o.logger.Info("call budget exhausted, pausing drain",
					"api_calls_used", budget.Used(),
					"remaining", budget.Remaining())
				return false, nil
			}

			if err := o.queue.MarkProcessing(ctx, item, o.now()); err != nil {
				return false, fmt.Errorf("failed to claim queue item: %w", err)
			}

			conn, err := o.connections.GetByID(ctx, item.ConnectionID)
			if err != nil {
				return false, fmt.Errorf("failed to load connection %s: %w", item.ConnectionID, err)
			}
			if conn == nil {
				if err := o.queue.MarkFailed(ctx, item, errors.New("connection no longer exists"), o.now()); err != nil {
					return false, err
				}
				continue
			}

			syncErr := o.engagement.SyncConnection(ctx, conn, budget, o.now())
			switch {
			case errors.Is(syncErr, ErrBudgetExhausted):
				// Not an attempt; the item goes back to pending.
				if err := o.queue.Release(ctx, item, o.now()); err != nil {
					return false, err
				}
				return false, nil

			case errors.Is(syncErr, social.ErrRateLimited):
				// The external view of the quota is authoritative.
				o.logger.Warn("rate limited by the API, pausing run",
					"api_calls_used", budget.Used())
				if err := o.queue.Release(ctx, item, o.now()); err != nil {
					return false, err
				}
				return false, nil

			case syncErr != nil:
				// Per-item failure: recorded with back-off, the run
				// moves on.
				o.logger.Warn("connection sync failed",
					"connection_id", conn.ID, "error", syncErr)
				if err := o.queue.MarkFailed(ctx, item, syncErr, o.now()); err != nil {
					return false, err
				}
				o.collector.RecordItem("failed")

			default:
				if err := o.queue.MarkCompleted(ctx, item, o.now()); err != nil {
					return false, err
				}
				o.collector.RecordItem("completed")

				synced := session.ConnectionsSynced + 1
				if err := o.sessions.Update(ctx, session.ID, models.SyncSessionUpdate{
					ConnectionsSynced: &synced,
					LastConnectionID:  &conn.ID,
				}); err != nil {
					return false, fmt.Errorf("failed to record sync progress: %w", err)
				}
				session.ConnectionsSynced = synced
				session.LastConnectionID = conn.ID
			}
		}
	}
}

// pauseSession leaves the session resumable, recording the error when one
// escaped the run. This runs before any failure crosses the component
// boundary so no sync ever vanishes into an ambiguous state.
func (o *Orchestrator) pauseSession(ctx context.Context, session *models.SyncSession, errMsg string) {
	status := models.SyncStatusPaused
	pausedAt := o.now()
	update := models.SyncSessionUpdate{
		Status:   &status,
		PausedAt: &pausedAt,
	}
	if errMsg != "" {
		update.Error = &errMsg
	}

	if err := o.sessions.Update(ctx, session.ID, update); err != nil {
		o.logger.Error("failed to pause session", "session_id", session.ID, "error", err)
		return
	}
	session.Status = status

	o.logger.Info("sync session paused",
		"session_id", session.ID,
		"connections_synced", session.ConnectionsSynced,
		"api_calls_used", session.APICallsUsed,
		"error", errMsg)
}

func (o *Orchestrator) completeSession(ctx context.Context, session *models.SyncSession) error {
	status := models.SyncStatusCompleted
	completedAt := o.now()
	if err := o.sessions.Update(ctx, session.ID, models.SyncSessionUpdate{
		Status:      &status,
		CompletedAt: &completedAt,
	}); err != nil {
		return fmt.Errorf("failed to complete session: %w", err)
	}
	session.Status = status
	o.collector.RecordSessionOutcome("completed")

	o.logger.Info("sync session completed",
		"session_id", session.ID,
		"connections_synced", session.ConnectionsSynced,
		"api_calls_used", session.APICallsUsed)
	return nil
}

func matchesAnyKeyword(text string, keywords []string) bool {
	if text == "" {
		return false
	}
	lower := strings.ToLower(text)
	for _, kw := range keywords {
		if strings.Contains(lower, strings.ToLower(kw)) {
			return true
		}
	}
	return false
}

// postSyncPriority weights recent posts higher so the bounded engagement
// window samples the posts most likely to have new activity.
func postSyncPriority(postedAt, now time.Time) int {
	age := now.Sub(postedAt)
	switch {
	case age < 7*24*time.Hour:
		return 100
	case age < 30*24*time.Hour:
		return 50
	default:
		return 10
	}
}

// truncate clips s to at most n bytes without splitting a rune.
func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	for n > 0 && !utf8.RuneStart(s[n]) {
		n--
	}
	return s[:n]
}
