package syncer

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/linkpilot/linkpilot/internal/models"
)

func TestInsightCalculatorRanksReports(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2026, 3, 15, 12, 0, 0, 0, time.UTC)

	connections := newMemConnections(
		&models.Connection{ID: "c-heavy", FirstName: "Heavy", LastName: "Hitter", Relevant: true},
		&models.Connection{ID: "c-riser", FirstName: "Rising", LastName: "Star", Relevant: true},
		&models.Connection{ID: "c-gone", FirstName: "Gone", LastName: "Quiet", Relevant: true},
		&models.Connection{ID: "c-casual", FirstName: "Casual", LastName: "Liker"},
	)

	lastWeek := now.AddDate(0, 0, -2)
	twoMonthsAgo := now.AddDate(0, 0, -60)
	summaries := newMemSummaries()
	seed := []*models.EngagementSummary{
		{ConnectionID: "c-heavy", TotalEngagements: 40, Last7Days: 2, Last30Days: 10, Status: models.EngagementStatusActive, LastEngagedAt: &lastWeek},
		{ConnectionID: "c-riser", TotalEngagements: 8, Last7Days: 6, Last30Days: 7, Status: models.EngagementStatusActive, LastEngagedAt: &lastWeek},
		{ConnectionID: "c-gone", TotalEngagements: 12, Status: models.EngagementStatusCold, LastEngagedAt: &twoMonthsAgo},
		{ConnectionID: "c-casual", TotalEngagements: 3, Last7Days: 3, Last30Days: 3, Status: models.EngagementStatusActive, LastEngagedAt: &lastWeek},
	}
	for _, s := range seed {
		if err := summaries.Upsert(ctx, s); err != nil {
			t.Fatalf("Upsert returned error: %v", err)
		}
	}

	insightRepo := newMemInsights()
	calc := NewInsightCalculator(connections, summaries, insightRepo, testLogger(), "owner")

	if err := calc.Compute(ctx, "2026-03-15", now); err != nil {
		t.Fatalf("Compute returned error: %v", err)
	}

	t.Run("top engagers ranked by volume regardless of relevance", func(t *testing.T) {
		top, err := insightRepo.GetByKey(ctx, "owner", "2026-03-15", models.InsightTopEngagers)
		if err != nil {
			t.Fatalf("GetByKey returned error: %v", err)
		}
		if len(top.Entries) != 4 {
			t.Fatalf("entries = %d, want 4", len(top.Entries))
		}
		if top.Entries[0].ConnectionID != "c-heavy" || top.Entries[0].Rank != 1 {
			t.Fatalf("first entry = %+v, want c-heavy at rank 1", top.Entries[0])
		}
		if top.Entries[3].ConnectionID != "c-casual" {
			t.Fatalf("last entry = %+v, want c-casual", top.Entries[3])
		}
	})

	t.Run("rising stars include only relevant growers", func(t *testing.T) {
		rising, err := insightRepo.GetByKey(ctx, "owner", "2026-03-15", models.InsightRisingStars)
		if err != nil {
			t.Fatalf("GetByKey returned error: %v", err)
		}
		// c-riser grows (6 this week vs a prior weekly third of 1);
		// c-heavy declines; c-casual grows but is not relevant.
		if len(rising.Entries) != 1 {
			t.Fatalf("entries = %d, want 1", len(rising.Entries))
		}
		if rising.Entries[0].ConnectionID != "c-riser" {
			t.Fatalf("entry = %+v, want c-riser", rising.Entries[0])
		}
	})

	t.Run("at risk needs relevance, history and a cold status", func(t *testing.T) {
		atRisk, err := insightRepo.GetByKey(ctx, "owner", "2026-03-15", models.InsightAtRisk)
		if err != nil {
			t.Fatalf("GetByKey returned error: %v", err)
		}
		if len(atRisk.Entries) != 1 {
			t.Fatalf("entries = %d, want 1", len(atRisk.Entries))
		}
		entry := atRisk.Entries[0]
		if entry.ConnectionID != "c-gone" {
			t.Fatalf("entry = %+v, want c-gone", entry)
		}
		if entry.Name != "Gone Quiet" {
			t.Fatalf("entry name = %q, want %q", entry.Name, "Gone Quiet")
		}
	})
}

func TestInsightCalculatorIsIdempotentPerDay(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2026, 3, 15, 12, 0, 0, 0, time.UTC)

	connections := newMemConnections(&models.Connection{ID: "c1", FirstName: "One"})
	summaries := newMemSummaries()
	_ = summaries.Upsert(ctx, &models.EngagementSummary{ConnectionID: "c1", TotalEngagements: 5})

	insightRepo := newMemInsights()
	calc := NewInsightCalculator(connections, summaries, insightRepo, testLogger(), "owner")

	for i := 0; i < 3; i++ {
		if err := calc.Compute(ctx, "2026-03-15", now); err != nil {
			t.Fatalf("Compute run %d returned error: %v", i, err)
		}
	}

	reports, err := insightRepo.ListByDate(ctx, "owner", "2026-03-15")
	if err != nil {
		t.Fatalf("ListByDate returned error: %v", err)
	}
	if len(reports) != 3 {
		t.Fatalf("reports = %d, want exactly one row per type", len(reports))
	}
}

func TestInsightListsTruncateToTen(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2026, 3, 15, 12, 0, 0, 0, time.UTC)

	connections := newMemConnections()
	summaries := newMemSummaries()
	for i := 0; i < 15; i++ {
		id := fmt.Sprintf("c%02d", i)
		_ = connections.Store(ctx, &models.Connection{ID: id, FirstName: id})
		_ = summaries.Upsert(ctx, &models.EngagementSummary{ConnectionID: id, TotalEngagements: i + 1})
	}

	insightRepo := newMemInsights()
	calc := NewInsightCalculator(connections, summaries, insightRepo, testLogger(), "owner")

	if err := calc.Compute(ctx, "2026-03-15", now); err != nil {
		t.Fatalf("Compute returned error: %v", err)
	}

	top, _ := insightRepo.GetByKey(ctx, "owner", "2026-03-15", models.InsightTopEngagers)
	if len(top.Entries) != insightListSize {
		t.Fatalf("entries = %d, want %d", len(top.Entries), insightListSize)
	}
	if top.Entries[0].ConnectionID != "c14" {
		t.Fatalf("first entry = %s, want the highest-volume connection", top.Entries[0].ConnectionID)
	}
	for i, entry := range top.Entries {
		if entry.Rank != i+1 {
			t.Fatalf("entry %d has rank %d", i, entry.Rank)
		}
	}
}
