package usage_test

import (
	"context"
	"fmt"
	"testing"

	dbfs "github.com/agentfolio/axscore/db"
	"github.com/agentfolio/axscore/internal/db"
	"github.com/agentfolio/axscore/internal/repository/sqlite"
	"github.com/agentfolio/axscore/internal/usage"
	"github.com/agentfolio/axscore/pkg/models"
)

func newTestRepo(t *testing.T) *sqlite.SQLiteRepo {
	t.Helper()
	ctx := context.Background()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())
	d, err := db.New(ctx, dsn, nil)
	if err != nil {
		t.Fatalf("db.New: %v", err)
	}
	t.Cleanup(func() { d.Close() })
	if err := db.Migrate(ctx, d, dbfs.Migrations); err != nil {
		t.Fatalf("db.Migrate: %v", err)
	}
	return sqlite.New(d, nil)
}

func seedDeveloper(t *testing.T, repo *sqlite.SQLiteRepo, plan string) int64 {
	t.Helper()
	id, err := repo.CreateDeveloper(context.Background(), &models.Developer{
		Name: "Dev", Email: plan + "@example.com", Plan: plan,
	})
	if err != nil {
		t.Fatalf("CreateDeveloper: %v", err)
	}
	return id
}

func TestFreePlanExhaustsGenerations(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()
	devID := seedDeveloper(t, repo, "free")
	month, _ := models.ParseMonth("2026-07")

	tr := usage.NewTracker(repo, repo, nil)

	// free plan allows two report generations per month
	for i := 0; i < 2; i++ {
		res, err := tr.CheckUsageLimit(ctx, devID, usage.CounterGenerations, month)
		if err != nil {
			t.Fatalf("CheckUsageLimit: %v", err)
		}
		if !res.Allowed {
			t.Fatalf("generation %d blocked: %+v", i+1, res)
		}
		if err := tr.IncrementUsage(ctx, devID, usage.CounterGenerations, month); err != nil {
			t.Fatalf("IncrementUsage: %v", err)
		}
	}

	res, err := tr.CheckUsageLimit(ctx, devID, usage.CounterGenerations, month)
	if err != nil {
		t.Fatalf("CheckUsageLimit: %v", err)
	}
	if res.Allowed {
		t.Fatalf("third generation allowed on the free plan")
	}
	if res.Used != 2 || res.Limit != 2 {
		t.Fatalf("used/limit = %d/%d, want 2/2", res.Used, res.Limit)
	}

	// other counters are untouched
	scans, err := tr.CheckUsageLimit(ctx, devID, usage.CounterScans, month)
	if err != nil {
		t.Fatalf("CheckUsageLimit scans: %v", err)
	}
	if !scans.Allowed || scans.Used != 0 || scans.Limit != 10 {
		t.Fatalf("scan quota moved: %+v", scans)
	}
}

func TestEnterprisePlanUnlimited(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()
	devID := seedDeveloper(t, repo, "enterprise")
	month, _ := models.ParseMonth("2026-07")

	tr := usage.NewTracker(repo, repo, nil)
	res, err := tr.CheckUsageLimit(ctx, devID, usage.CounterScans, month)
	if err != nil {
		t.Fatalf("CheckUsageLimit: %v", err)
	}
	if !res.Allowed || res.Limit != usage.Unlimited {
		t.Fatalf("enterprise check = %+v, want allowed and unlimited", res)
	}
}

func TestQuotaResetsAcrossMonths(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()
	devID := seedDeveloper(t, repo, "free")
	july, _ := models.ParseMonth("2026-07")
	august := july.Next()

	tr := usage.NewTracker(repo, repo, nil)
	for i := 0; i < 10; i++ {
		if err := tr.IncrementUsage(ctx, devID, usage.CounterScans, july); err != nil {
			t.Fatalf("IncrementUsage: %v", err)
		}
	}

	blocked, err := tr.CheckUsageLimit(ctx, devID, usage.CounterScans, july)
	if err != nil {
		t.Fatalf("CheckUsageLimit july: %v", err)
	}
	if blocked.Allowed {
		t.Fatalf("july quota not exhausted: %+v", blocked)
	}

	fresh, err := tr.CheckUsageLimit(ctx, devID, usage.CounterScans, august)
	if err != nil {
		t.Fatalf("CheckUsageLimit august: %v", err)
	}
	if !fresh.Allowed || fresh.Used != 0 {
		t.Fatalf("august quota not fresh: %+v", fresh)
	}
}

func TestUsageZeroedWhenNothingUsed(t *testing.T) {
	repo := newTestRepo(t)
	devID := seedDeveloper(t, repo, "free")
	month, _ := models.ParseMonth("2026-07")

	tr := usage.NewTracker(repo, repo, nil)
	rec, err := tr.Usage(context.Background(), devID, month)
	if err != nil {
		t.Fatalf("Usage: %v", err)
	}
	if rec.ScansUsed != 0 || rec.SimulationsUsed != 0 || rec.GenerationsUsed != 0 {
		t.Fatalf("fresh record not zeroed: %+v", rec)
	}
	if rec.Month != "2026-07" {
		t.Fatalf("month %q, want 2026-07", rec.Month)
	}
}

func TestUnknownCounterRejected(t *testing.T) {
	repo := newTestRepo(t)
	devID := seedDeveloper(t, repo, "free")
	month, _ := models.ParseMonth("2026-07")

	tr := usage.NewTracker(repo, repo, nil)
	if _, err := tr.CheckUsageLimit(context.Background(), devID, "exports", month); err == nil {
		t.Fatalf("unknown counter accepted by check")
	}
	if err := tr.IncrementUsage(context.Background(), devID, "exports", month); err == nil {
		t.Fatalf("unknown counter accepted by increment")
	}
}

func TestUnknownPlanFallsBackToFree(t *testing.T) {
	repo := newTestRepo(t)
	devID := seedDeveloper(t, repo, "legacy-beta")
	month, _ := models.ParseMonth("2026-07")

	tr := usage.NewTracker(repo, repo, nil)
	res, err := tr.CheckUsageLimit(context.Background(), devID, usage.CounterScans, month)
	if err != nil {
		t.Fatalf("CheckUsageLimit: %v", err)
	}
	if res.Limit != 10 {
		t.Fatalf("unknown plan limit %d, want the free tier's 10", res.Limit)
	}
}
