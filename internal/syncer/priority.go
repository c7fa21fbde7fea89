package syncer

import (
	"time"

	"github.com/linkpilot/linkpilot/internal/models"
)

// Additive priority bonuses. The raw sum can reach 115; the final score is
// clamped to maxPriority.
const (
	relevanceBonus  = 50
	recencyBonus7d  = 30
	recencyBonus30d = 20
	recencyBonus90d = 10
	historyBonus    = 20
	activeBonus     = 15
	maxPriority     = 100
)

// ScorePriority maps a connection's known signals to a sync priority in
// [0, maxPriority]. Pure function: it reads the summary but writes nothing,
// and the same inputs always produce the same score. summary may be nil when
// the connection has never been summarized.
func ScorePriority(conn *models.Connection, summary *models.EngagementSummary, now time.Time) int {
	score := 0

	if conn.Relevant {
		score += relevanceBonus
	}

	if conn.ConnectedAt != nil {
		age := now.Sub(*conn.ConnectedAt)
		switch {
		case age < 7*24*time.Hour:
			score += recencyBonus7d
		case age < 30*24*time.Hour:
			score += recencyBonus30d
		case age < 90*24*time.Hour:
			score += recencyBonus90d
		}
	}

	if summary != nil {
		if summary.TotalEngagements > 0 {
			score += historyBonus
		}
		if summary.Status == models.EngagementStatusActive {
			score += activeBonus
		}
	}

	if score > maxPriority {
		score = maxPriority
	}
	return score
}
