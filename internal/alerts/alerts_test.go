package alerts_test

import (
	"context"
	"fmt"
	"testing"
	"time"

	dbfs "github.com/agentfolio/axscore/db"
	"github.com/agentfolio/axscore/internal/alerts"
	"github.com/agentfolio/axscore/internal/db"
	"github.com/agentfolio/axscore/internal/repository/sqlite"
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

type fixture struct {
	repo  *sqlite.SQLiteRepo
	devID int64
	site  *models.Site
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	repo := newTestRepo(t)
	ctx := context.Background()
	devID, err := repo.CreateDeveloper(ctx, &models.Developer{Name: "Dev", Email: "dev@example.com"})
	if err != nil {
		t.Fatalf("CreateDeveloper: %v", err)
	}
	site, err := repo.GetOrCreateSite(ctx, devID, "https://example.com", "")
	if err != nil {
		t.Fatalf("GetOrCreateSite: %v", err)
	}
	return &fixture{repo: repo, devID: devID, site: site}
}

func (f *fixture) addScan(t *testing.T, score int, age time.Duration) int64 {
	t.Helper()
	id, err := f.repo.CreateScan(context.Background(), &models.Scan{
		SiteID: f.site.ID, DeveloperID: f.devID, URL: f.site.URL,
		Score:          score,
		CategoryScores: map[string]int{models.CategoryDiscovery: score},
		Signals:        models.SignalSet{},
		ScanType:       "full",
		Status:         models.ScanStatusCompleted,
		Created:        time.Now().UTC().Add(-age).UnixMilli(),
	})
	if err != nil {
		t.Fatalf("CreateScan: %v", err)
	}
	return id
}

func (f *fixture) setBaseline(t *testing.T, scanID int64, score int) {
	t.Helper()
	_, err := f.repo.CreateBaseline(context.Background(), &models.Baseline{
		SiteID: f.site.ID, DeveloperID: f.devID, ScanID: scanID,
		Score:          score,
		CategoryScores: map[string]int{models.CategoryDiscovery: score},
		Signals:        models.SignalSet{},
	})
	if err != nil {
		t.Fatalf("CreateBaseline: %v", err)
	}
}

func TestWeeklyAlertsRegression(t *testing.T) {
	f := newFixture(t)
	old := f.addScan(t, 80, 30*24*time.Hour)
	f.setBaseline(t, old, 80)
	f.addScan(t, 60, time.Hour)

	g := alerts.NewGenerator(f.repo, f.repo, f.repo, f.repo, nil)
	created, err := g.GenerateWeeklyAlerts(context.Background(), f.devID)
	if err != nil {
		t.Fatalf("GenerateWeeklyAlerts: %v", err)
	}
	if created != 1 {
		t.Fatalf("created %d alerts, want 1", created)
	}

	got, err := g.List(context.Background(), f.devID, models.AlertStatusActive, 0)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(got) != 1 {
		t.Fatalf("got %d alerts, want 1", len(got))
	}
	a := got[0]
	if a.AlertType != models.AlertTypeRegression {
		t.Fatalf("alert type %q, want regression", a.AlertType)
	}
	if a.Severity != models.SeverityCritical {
		t.Fatalf("severity %q, want critical for a 20-point drop", a.Severity)
	}
	if a.ScoreDelta == nil || *a.ScoreDelta != -20 {
		t.Fatalf("score delta %v, want -20", a.ScoreDelta)
	}
	if a.Category != models.CategoryDiscovery {
		t.Fatalf("category %q, want discovery", a.Category)
	}
	if a.BaselineID == nil {
		t.Fatalf("regression alert must reference its baseline")
	}
}

func TestWeeklyAlertsImprovement(t *testing.T) {
	f := newFixture(t)
	old := f.addScan(t, 50, 30*24*time.Hour)
	f.setBaseline(t, old, 50)
	f.addScan(t, 60, time.Hour)

	g := alerts.NewGenerator(f.repo, f.repo, f.repo, f.repo, nil)
	created, err := g.GenerateWeeklyAlerts(context.Background(), f.devID)
	if err != nil {
		t.Fatalf("GenerateWeeklyAlerts: %v", err)
	}
	if created != 1 {
		t.Fatalf("created %d alerts, want 1", created)
	}
	got, _ := g.List(context.Background(), f.devID, "", 0)
	if got[0].AlertType != models.AlertTypeImprovement || got[0].Severity != models.SeverityInfo {
		t.Fatalf("unexpected alert: %+v", got[0])
	}
}

func TestWeeklyAlertsVolatility(t *testing.T) {
	f := newFixture(t)
	// no baseline, only a swinging week of scans
	for i, score := range []int{50, 90, 40, 95, 30} {
		f.addScan(t, score, time.Duration(i+1)*time.Hour)
	}

	g := alerts.NewGenerator(f.repo, f.repo, f.repo, f.repo, nil)
	created, err := g.GenerateWeeklyAlerts(context.Background(), f.devID)
	if err != nil {
		t.Fatalf("GenerateWeeklyAlerts: %v", err)
	}
	if created != 1 {
		t.Fatalf("created %d alerts, want 1", created)
	}
	got, _ := g.List(context.Background(), f.devID, "", 0)
	if got[0].AlertType != models.AlertTypeVolatility || got[0].Severity != models.SeverityWarning {
		t.Fatalf("unexpected alert: %+v", got[0])
	}
}

func TestWeeklyAlertsQuietWeek(t *testing.T) {
	f := newFixture(t)
	old := f.addScan(t, 80, 30*24*time.Hour)
	f.setBaseline(t, old, 80)
	// latest scan matches the baseline, nothing to report

	g := alerts.NewGenerator(f.repo, f.repo, f.repo, f.repo, nil)
	created, err := g.GenerateWeeklyAlerts(context.Background(), f.devID)
	if err != nil {
		t.Fatalf("GenerateWeeklyAlerts: %v", err)
	}
	if created != 0 {
		t.Fatalf("created %d alerts for a quiet week, want 0", created)
	}
}

func TestUpdateStatusValidation(t *testing.T) {
	f := newFixture(t)
	g := alerts.NewGenerator(f.repo, f.repo, f.repo, f.repo, nil)
	if err := g.UpdateStatus(context.Background(), f.devID, 1, "bogus"); err == nil {
		t.Fatalf("bogus status accepted")
	}
}
