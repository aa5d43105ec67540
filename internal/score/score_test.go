package score_test

import (
	"testing"

	"github.com/agentfolio/axscore/internal/score"
	"github.com/agentfolio/axscore/pkg/models"
)

func allFound() models.SignalSet {
	out := models.SignalSet{}
	for _, name := range models.SignalNames {
		out[name] = models.Signal{Found: true}
	}
	return out
}

func TestWeightsSumTo100(t *testing.T) {
	sum := 0
	for _, w := range score.Weights {
		sum += w
	}
	if sum != 100 {
		t.Fatalf("weights sum to %d, want 100", sum)
	}
	if len(score.Weights) != len(models.SignalNames) {
		t.Fatalf("weights cover %d signals, want %d", len(score.Weights), len(models.SignalNames))
	}
}

func TestOverall(t *testing.T) {
	if got := score.Overall(allFound()); got != 100 {
		t.Fatalf("all signals found: got %d, want 100", got)
	}
	if got := score.Overall(models.SignalSet{}); got != 0 {
		t.Fatalf("no signals found: got %d, want 0", got)
	}

	partial := models.SignalSet{
		models.SignalLLMsTxt:   {Found: true},
		models.SignalRobotsTxt: {Found: true},
		models.SignalSchemaOrg: {Found: false},
	}
	if got := score.Overall(partial); got != 30 {
		t.Fatalf("llms+robots: got %d, want 30", got)
	}
}

func TestOverallIgnoresUnknownSignals(t *testing.T) {
	sigs := models.SignalSet{
		"somethingElse":      {Found: true},
		models.SignalLLMsTxt: {Found: true},
	}
	if got := score.Overall(sigs); got != 20 {
		t.Fatalf("got %d, want 20", got)
	}
}

func TestByCategory(t *testing.T) {
	full := score.ByCategory(allFound())
	if len(full) != len(score.Categories) {
		t.Fatalf("got %d categories, want %d", len(full), len(score.Categories))
	}
	for cat, v := range full {
		if v != 100 {
			t.Fatalf("category %s: got %d, want 100", cat, v)
		}
	}

	empty := score.ByCategory(models.SignalSet{})
	for cat, v := range empty {
		if v != 0 {
			t.Fatalf("category %s: got %d, want 0", cat, v)
		}
	}
}

func TestByCategoryRounding(t *testing.T) {
	// discovery has 3 members; 1 of 3 found is round(33.33) = 33, 2 of 3 is
	// round(66.67) = 67
	one := models.SignalSet{models.SignalRobotsTxt: {Found: true}}
	if got := score.ByCategory(one)[models.CategoryDiscovery]; got != 33 {
		t.Fatalf("1/3 found: got %d, want 33", got)
	}
	two := models.SignalSet{
		models.SignalRobotsTxt: {Found: true},
		models.SignalLLMsTxt:   {Found: true},
	}
	if got := score.ByCategory(two)[models.CategoryDiscovery]; got != 67 {
		t.Fatalf("2/3 found: got %d, want 67", got)
	}
}
