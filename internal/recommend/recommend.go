// Package recommend turns a scan's signal set into prioritized improvement
// recommendations. The primary path is one bounded AI call; on any provider
// failure a deterministic rule-based fallback emits one recommendation per
// missing signal, so a scan always yields actionable output.
package recommend

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	"github.com/agentfolio/axscore/internal/textgen"
	"github.com/agentfolio/axscore/pkg/models"
)

const systemPrompt = `You are an AI-discoverability consultant. Given the signal scan of a website, respond with a JSON array of at most 10 recommendation objects. Each object has the keys: category (one of discovery, apiQuality, structuredData, authOnboarding, errorHandling, documentation), priority (high, medium or low), title, description, currentState, suggestedFix, and impactScore (integer 0-100). Respond with the JSON array only.`

// Analyzer produces recommendations for a scan.
type Analyzer struct {
	engine *textgen.Engine
	logger *slog.Logger
}

func New(engine *textgen.Engine, logger *slog.Logger) *Analyzer {
	if logger == nil {
		logger = slog.Default()
	}
	return &Analyzer{engine: engine, logger: logger}
}

// Item matches the JSON shape the model is instructed to emit
// (and that the fallback emits).
type Item struct {
	Category     string `json:"category"`
	Priority     string `json:"priority"`
	Title        string `json:"title"`
	Description  string `json:"description"`
	CurrentState string `json:"currentState,omitempty"`
	SuggestedFix string `json:"suggestedFix,omitempty"`
	ImpactScore  *int   `json:"impactScore,omitempty"`
}

// Analyze returns recommendations plus the model name that produced them
// ("fallback" when the AI path failed) and the raw model output if any.
func (a *Analyzer) Analyze(ctx context.Context, signals models.SignalSet, pageContent string) ([]models.Recommendation, string, string) {
	prompt := buildPrompt(signals, pageContent)

	res := a.engine.GenerateJSON(ctx, systemPrompt, prompt, "recommendations", func() json.RawMessage {
		b, _ := json.Marshal(Fallback(signals))
		return b
	})

	var items []Item
	if err := json.Unmarshal(res.Payload, &items); err != nil {
		// the fallback payload always unmarshals; this only happens if a
		// schema-valid AI payload disagrees with our struct, so degrade the
		// same way
		a.logger.Warn("recommend: unmarshal failed, using fallback", slog.Any("err", err))
		items = Fallback(signals)
		res.ModelName = textgen.FallbackModelName
		res.ModelOutput = ""
	}
	if len(items) > 10 {
		items = items[:10]
	}

	out := make([]models.Recommendation, 0, len(items))
	for _, it := range items {
		if strings.TrimSpace(it.Title) == "" {
			continue
		}
		switch it.Priority {
		case "high", "medium", "low":
		default:
			it.Priority = "medium"
		}
		out = append(out, models.Recommendation{
			Category:     it.Category,
			Priority:     it.Priority,
			Title:        it.Title,
			Description:  it.Description,
			CurrentState: it.CurrentState,
			SuggestedFix: it.SuggestedFix,
			ImpactScore:  it.ImpactScore,
		})
	}

	return out, res.ModelName, res.ModelOutput
}

func buildPrompt(signals models.SignalSet, pageContent string) string {
	var sb strings.Builder
	sb.WriteString("Signal scan results:\n")
	for _, name := range models.SignalNames {
		sig := signals[name]
		if sig.Found {
			fmt.Fprintf(&sb, "- %s: found at %s\n", name, sig.URL)
		} else {
			fmt.Fprintf(&sb, "- %s: not found\n", name)
		}
	}
	if pageContent != "" {
		sb.WriteString("\nHomepage excerpt:\n")
		sb.WriteString(pageContent)
	}
	return sb.String()
}

// fallbackRule is one fixed recommendation emitted when its signal is
// missing.
type fallbackRule struct {
	signal string
	rec    Item
}

func intp(v int) *int { return &v }

// fallbackRules is ordered by impact; only missing signals fire, so the
// fallback emits at most six items.
var fallbackRules = []fallbackRule{
	{models.SignalLLMsTxt, Item{
		Category:     models.CategoryDocumentation,
		Priority:     "high",
		Title:        "Add an llms.txt file",
		Description:  "llms.txt tells AI agents what your site offers and how to use it. It is the single highest-weight discoverability signal.",
		CurrentState: "No llms.txt found at /llms.txt.",
		SuggestedFix: "Publish a plain-text llms.txt at the site root describing your product, key pages, and API entry points.",
		ImpactScore:  intp(90),
	}},
	{models.SignalOpenAPIJSON, Item{
		Category:     models.CategoryAPIQuality,
		Priority:     "high",
		Title:        "Publish an OpenAPI specification",
		Description:  "An openapi.json document lets agents discover and call your API without guesswork.",
		CurrentState: "No openapi.json found at /openapi.json.",
		SuggestedFix: "Generate an OpenAPI 3 document for your public API and serve it at /openapi.json.",
		ImpactScore:  intp(80),
	}},
	{models.SignalSchemaOrg, Item{
		Category:     models.CategoryStructuredData,
		Priority:     "medium",
		Title:        "Add schema.org structured data",
		Description:  "JSON-LD structured data gives agents a machine-readable summary of your pages.",
		CurrentState: "No application/ld+json block found on the homepage.",
		SuggestedFix: "Embed a <script type=\"application/ld+json\"> block with Organization and WebSite markup.",
		ImpactScore:  intp(75),
	}},
	{models.SignalRobotsTxt, Item{
		Category:     models.CategoryDiscovery,
		Priority:     "medium",
		Title:        "Add a robots.txt file",
		Description:  "robots.txt is the first file most crawlers and agents request; its absence reads as an unmaintained site.",
		CurrentState: "No robots.txt found at /robots.txt.",
		SuggestedFix: "Serve a robots.txt with at least a User-agent: * section and a link to your sitemap.",
		ImpactScore:  intp(60),
	}},
	{models.SignalSitemapXML, Item{
		Category:     models.CategoryDiscovery,
		Priority:     "medium",
		Title:        "Publish a sitemap.xml",
		Description:  "A sitemap lets agents enumerate your pages instead of crawling blindly.",
		CurrentState: "No sitemap.xml found at /sitemap.xml.",
		SuggestedFix: "Generate a sitemap.xml listing your public pages and reference it from robots.txt.",
		ImpactScore:  intp(55),
	}},
	{models.SignalMetaDescription, Item{
		Category:     models.CategoryStructuredData,
		Priority:     "low",
		Title:        "Add a meta description",
		Description:  "The meta description is the cheapest summary an agent can read without parsing your page.",
		CurrentState: "No <meta name=\"description\"> tag found on the homepage.",
		SuggestedFix: "Add a one-sentence meta description to the homepage head.",
		ImpactScore:  intp(50),
	}},
}

// Fallback emits the deterministic rule-based recommendations for every
// missing signal in the prioritized subset. Always well-formed, at most six
// items.
func Fallback(signals models.SignalSet) []Item {
	out := make([]Item, 0, len(fallbackRules))
	for _, r := range fallbackRules {
		if signals[r.signal].Found {
			continue
		}
		out = append(out, r.rec)
	}
	return out
}
