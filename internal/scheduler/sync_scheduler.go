package scheduler

import (
	"context"
	"errors"
	"time"

	"log/slog"

	"github.com/linkpilot/linkpilot/internal/models"
	"github.com/linkpilot/linkpilot/internal/syncer"
)

// SyncScheduler triggers the daily engagement sync once the configured hour
// passes, and picks paused sessions back up on later checks. Manual triggers
// through the API share the same orchestrator, so both paths respect the
// one-session-per-day rule.
type SyncScheduler struct {
	orchestrator  *syncer.Orchestrator
	sessions      models.SyncSessionRepository
	logger        *slog.Logger
	stopChan      chan struct{}
	checkInterval time.Duration
	syncHour      int
	now           func() time.Time
}

// NewSyncScheduler creates a scheduler that fires at the given local hour.
func NewSyncScheduler(
	orchestrator *syncer.Orchestrator,
	sessions models.SyncSessionRepository,
	logger *slog.Logger,
	syncHour int,
) *SyncScheduler {
	return &SyncScheduler{
		orchestrator:  orchestrator,
		sessions:      sessions,
		logger:        logger,
		stopChan:      make(chan struct{}),
		checkInterval: 1 * time.Minute, // Check every minute
		syncHour:      syncHour,
		now:           time.Now,
	}
}

// Start begins the scheduler loop
func (s *SyncScheduler) Start(ctx context.Context) {
	s.logger.Info("starting sync scheduler",
		"check_interval", s.checkInterval,
		"sync_hour", s.syncHour)
	ticker := time.NewTicker(s.checkInterval)
	defer ticker.Stop()

	// Run once immediately on start so a paused session resumes without
	// waiting for the next scheduled hour.
	s.checkAndRun(ctx)

	for {
		select {
		case <-ticker.C:
			s.checkAndRun(ctx)
		case <-s.stopChan:
			s.logger.Info("sync scheduler stopped")
			return
		case <-ctx.Done():
			s.logger.Info("sync scheduler stopping due to context cancellation")
			return
		}
	}
}

// Stop stops the scheduler
func (s *SyncScheduler) Stop() {
	close(s.stopChan)
}

// checkAndRun starts a sync when one is due: either a paused session exists,
// or today's scheduled hour has passed and today has no session yet.
func (s *SyncScheduler) checkAndRun(ctx context.Context) {
	due, err := s.syncDue(ctx)
	if err != nil {
		s.logger.Error("failed to check sync schedule", "error", err)
		return
	}
	if !due {
		return
	}

	if err := s.orchestrator.Run(ctx); err != nil {
		if errors.Is(err, syncer.ErrSyncAlreadyRunning) {
			return
		}
		s.logger.Error("scheduled sync run failed", "error", err)
	}
}

func (s *SyncScheduler) syncDue(ctx context.Context) (bool, error) {
	unfinished, err := s.sessions.LatestUnfinished(ctx)
	if err != nil {
		return false, err
	}
	if unfinished != nil {
		// A paused session is always worth a resume attempt; a running
		// one is left to its owner.
		return unfinished.Status == models.SyncStatusPaused, nil
	}

	now := s.now()
	if now.Hour() < s.syncHour {
		return false, nil
	}

	today, err := s.sessions.GetByDate(ctx, now.Format(models.SessionDateFormat))
	if err != nil {
		return false, err
	}
	return today == nil, nil
}
