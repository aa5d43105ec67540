// Package score turns a signal set into an overall score and per-category
// scores. It is pure: no I/O, deterministic for a given signal set.
package score

import (
	"math"

	"github.com/agentfolio/axscore/pkg/models"
)

// Weights assigns each signal its contribution to the overall score. The
// weights sum to 100.
var Weights = map[string]int{
	models.SignalRobotsTxt:       10,
	models.SignalLLMsTxt:         20,
	models.SignalOpenAPIJSON:     15,
	models.SignalAIPluginJSON:    10,
	models.SignalSchemaOrg:       15,
	models.SignalSitemapXML:      10,
	models.SignalMetaDescription: 10,
	models.SignalSecurityTxt:     10,
}

// Categories maps each category to its closed set of member signals. The
// mapping is static; every category has at least one member so category
// scoring never divides by zero.
var Categories = map[string][]string{
	models.CategoryDiscovery:      {models.SignalRobotsTxt, models.SignalLLMsTxt, models.SignalSitemapXML},
	models.CategoryAPIQuality:     {models.SignalOpenAPIJSON, models.SignalAIPluginJSON},
	models.CategoryStructuredData: {models.SignalSchemaOrg, models.SignalMetaDescription},
	models.CategoryAuthOnboarding: {models.SignalOpenAPIJSON, models.SignalAIPluginJSON, models.SignalLLMsTxt},
	models.CategoryErrorHandling:  {models.SignalOpenAPIJSON, models.SignalRobotsTxt},
	models.CategoryDocumentation:  {models.SignalLLMsTxt, models.SignalMetaDescription, models.SignalSecurityTxt},
}

// Overall sums the weights of every found signal, clamped to [0,100].
func Overall(signals models.SignalSet) int {
	total := 0
	for name, sig := range signals {
		if !sig.Found {
			continue
		}
		total += Weights[name]
	}
	if total > 100 {
		total = 100
	}
	if total < 0 {
		total = 0
	}
	return total
}

// ByCategory computes round(100 * found / total) over each category's member
// signals.
func ByCategory(signals models.SignalSet) map[string]int {
	out := make(map[string]int, len(Categories))
	for cat, members := range Categories {
		found := 0
		for _, name := range members {
			if signals[name].Found {
				found++
			}
		}
		out[cat] = int(math.Round(100 * float64(found) / float64(len(members))))
	}
	return out
}
