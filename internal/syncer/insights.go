package syncer

import (
	"context"
	"fmt"
	"sort"
	"time"

	"log/slog"

	"github.com/linkpilot/linkpilot/internal/models"
)

const (
	insightListSize = 10

	// atRiskMinEngagements is the "previously active" bar: connections
	// with fewer total engagements were never warm enough to be at risk.
	atRiskMinEngagements = 3
)

// InsightCalculator derives the three dated network reports from engagement
// summaries. It reads summaries and connections only and writes nothing but
// NetworkInsight rows.
type InsightCalculator struct {
	connections models.ConnectionRepository
	summaries   models.EngagementSummaryRepository
	insights    models.NetworkInsightRepository
	logger      *slog.Logger
	userID      string
}

// NewInsightCalculator creates an insight calculator for one user.
func NewInsightCalculator(
	connections models.ConnectionRepository,
	summaries models.EngagementSummaryRepository,
	insights models.NetworkInsightRepository,
	logger *slog.Logger,
	userID string,
) *InsightCalculator {
	return &InsightCalculator{
		connections: connections,
		summaries:   summaries,
		insights:    insights,
		logger:      logger,
		userID:      userID,
	}
}

// Compute writes one insight row per report type for the given date.
// Re-running on the same date overwrites that date's rows, so repeated
// manual triggers stay idempotent per day.
func (c *InsightCalculator) Compute(ctx context.Context, date string, now time.Time) error {
	summaries, err := c.summaries.ListAll(ctx)
	if err != nil {
		return fmt.Errorf("failed to list summaries: %w", err)
	}

	connections, err := c.connections.ListAll(ctx)
	if err != nil {
		return fmt.Errorf("failed to list connections: %w", err)
	}
	byID := make(map[string]*models.Connection, len(connections))
	for _, conn := range connections {
		byID[conn.ID] = conn
	}

	reports := []struct {
		typ     models.InsightType
		entries []models.InsightEntry
	}{
		{models.InsightTopEngagers, c.topEngagers(summaries, byID)},
		{models.InsightRisingStars, c.risingStars(summaries, byID)},
		{models.InsightAtRisk, c.atRisk(summaries, byID, now)},
	}

	for _, report := range reports {
		insight := &models.NetworkInsight{
			UserID:  c.userID,
			Date:    date,
			Type:    report.typ,
			Entries: report.entries,
		}
		if err := c.insights.Upsert(ctx, insight); err != nil {
			return fmt.Errorf("failed to store %s insight: %w", report.typ, err)
		}
	}

	c.logger.Info("network insights computed", "date", date)
	return nil
}

// topEngagers ranks every connection by total engagement volume.
func (c *InsightCalculator) topEngagers(summaries []*models.EngagementSummary, byID map[string]*models.Connection) []models.InsightEntry {
	var candidates []scoredSummary
	for _, s := range summaries {
		if s.TotalEngagements == 0 {
			continue
		}
		candidates = append(candidates, scoredSummary{
			summary: s,
			score:   float64(s.TotalEngagements),
			detail:  fmt.Sprintf("%d engagements total", s.TotalEngagements),
		})
	}
	return rankEntries(candidates, byID)
}

// risingStars ranks relevant connections by the growth of their weekly
// engagement rate: this week's count against the average week of the
// preceding 23 days.
func (c *InsightCalculator) risingStars(summaries []*models.EngagementSummary, byID map[string]*models.Connection) []models.InsightEntry {
	var candidates []scoredSummary
	for _, s := range summaries {
		conn, ok := byID[s.ConnectionID]
		if !ok || !conn.Relevant {
			continue
		}
		if s.Last7Days == 0 {
			continue
		}
		priorWeekly := float64(s.Last30Days-s.Last7Days) / 3.0
		growth := float64(s.Last7Days) - priorWeekly
		if growth <= 0 {
			continue
		}
		candidates = append(candidates, scoredSummary{
			summary: s,
			score:   growth,
			detail:  fmt.Sprintf("%d engagements in the last 7 days", s.Last7Days),
		})
	}
	return rankEntries(candidates, byID)
}

// atRisk ranks relevant, previously-active connections by how long they have
// been dormant.
func (c *InsightCalculator) atRisk(summaries []*models.EngagementSummary, byID map[string]*models.Connection, now time.Time) []models.InsightEntry {
	var candidates []scoredSummary
	for _, s := range summaries {
		conn, ok := byID[s.ConnectionID]
		if !ok || !conn.Relevant {
			continue
		}
		if s.TotalEngagements < atRiskMinEngagements || s.Status != models.EngagementStatusCold {
			continue
		}
		if s.LastEngagedAt == nil {
			continue
		}
		dormantDays := now.Sub(*s.LastEngagedAt).Hours() / 24
		candidates = append(candidates, scoredSummary{
			summary: s,
			score:   dormantDays,
			detail:  fmt.Sprintf("no engagement for %d days", int(dormantDays)),
		})
	}
	return rankEntries(candidates, byID)
}

type scoredSummary struct {
	summary *models.EngagementSummary
	score   float64
	detail  string
}

// rankEntries orders candidates by score descending with connection ID as a
// stable tie-break, truncates to the list size and fills in display names.
func rankEntries(candidates []scoredSummary, byID map[string]*models.Connection) []models.InsightEntry {
	sort.Slice(candidates, func(i, j int) bool {
		if candidates[i].score != candidates[j].score {
			return candidates[i].score > candidates[j].score
		}
		return candidates[i].summary.ConnectionID < candidates[j].summary.ConnectionID
	})

	if len(candidates) > insightListSize {
		candidates = candidates[:insightListSize]
	}

	entries := make([]models.InsightEntry, 0, len(candidates))
	for i, cand := range candidates {
		name := ""
		if conn, ok := byID[cand.summary.ConnectionID]; ok {
			name = conn.FullName()
		}
		entries = append(entries, models.InsightEntry{
			Rank:         i + 1,
			ConnectionID: cand.summary.ConnectionID,
			Name:         name,
			Score:        cand.score,
			Detail:       cand.detail,
		})
	}
	return entries
}
