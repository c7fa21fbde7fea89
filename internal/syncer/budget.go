package syncer

import (
	"context"
	"errors"

	"github.com/linkpilot/linkpilot/internal/models"
)

// ErrBudgetExhausted signals that the current session's call budget cannot
// cover the next external call. It is an expected condition, not a failure:
// the orchestrator pauses the session and resumes on a later invocation.
var ErrBudgetExhausted = errors.New("sync: call budget exhausted")

// CallBudget counts external API calls consumed against one session's usable
// quota. It is owned by a single orchestrator run; every Record is
// immediately persisted onto the session row so a crash mid-run resumes from
// the correct counter instead of resetting to zero.
type CallBudget struct {
	sessions models.SyncSessionRepository
	session  *models.SyncSession
}

// NewCallBudget wraps the session's persisted counter. A resumed session
// carries its prior APICallsUsed, so the budget picks up where it left off.
func NewCallBudget(sessions models.SyncSessionRepository, session *models.SyncSession) *CallBudget {
	return &CallBudget{sessions: sessions, session: session}
}

// Remaining returns how many calls the session may still issue.
func (b *CallBudget) Remaining() int {
	remaining := b.session.APICallLimit - b.session.APICallsUsed
	if remaining < 0 {
		return 0
	}
	return remaining
}

// CanAfford reports whether issuing n more calls stays within the quota.
// Call sites must check this before every external call.
func (b *CallBudget) CanAfford(n int) bool {
	return b.session.APICallsUsed+n <= b.session.APICallLimit
}

// Used returns the calls consumed so far in this session.
func (b *CallBudget) Used() int {
	return b.session.APICallsUsed
}

// Record counts n issued calls and flushes the counter to the session row.
func (b *CallBudget) Record(ctx context.Context, n int) error {
	b.session.APICallsUsed += n
	used := b.session.APICallsUsed
	return b.sessions.Update(ctx, b.session.ID, models.SyncSessionUpdate{
		APICallsUsed: &used,
	})
}
