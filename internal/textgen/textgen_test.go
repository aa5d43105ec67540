package textgen

import (
	"context"
	"encoding/json"
	"fmt"
	"testing"

	"github.com/agentfolio/axscore/pkg/ollama"
)

// stubGenerator returns canned text or an error.
type stubGenerator struct {
	text string
	err  error
}

func (s *stubGenerator) Generate(ctx context.Context, model string, prompt string, opts *ollama.GenerateOpts) (ollama.GenerateResult, error) {
	if s.err != nil {
		return ollama.GenerateResult{}, s.err
	}
	return ollama.GenerateResult{Text: s.text}, nil
}

func TestExtractJSON(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{`{"a":1}`, `{"a":1}`},
		{"here you go:\n```json\n{\"a\":1}\n```", `{"a":1}`},
		{`[1,2,3]`, `[1,2,3]`},
		{"the array is [1,2] as requested", `[1,2]`},
		{`text {"a":[1,2]} trailing`, `{"a":[1,2]}`},
		{"no json at all", ""},
		{"{unclosed", ""},
	}
	for _, c := range cases {
		if got := ExtractJSON(c.in); got != c.want {
			t.Fatalf("ExtractJSON(%q) = %q, want %q", c.in, got, c.want)
		}
	}
}

func TestGenerateJSONNilClientFallsBack(t *testing.T) {
	e, err := NewEngine(nil, "m", 0, nil)
	if err != nil {
		t.Fatalf("NewEngine: %v", err)
	}

	res := e.GenerateJSON(context.Background(), "sys", "prompt", "report", func() json.RawMessage {
		return json.RawMessage(`{"title":"t","summary":"s","actionItems":[]}`)
	})
	if res.ModelName != FallbackModelName {
		t.Fatalf("model name %q, want %q", res.ModelName, FallbackModelName)
	}
	var out struct {
		Title string `json:"title"`
	}
	if err := json.Unmarshal(res.Payload, &out); err != nil || out.Title != "t" {
		t.Fatalf("fallback payload not returned: %s", res.Payload)
	}
}

func TestGenerateJSONProviderError(t *testing.T) {
	e, err := NewEngine(&stubGenerator{err: fmt.Errorf("connection refused")}, "m", 0, nil)
	if err != nil {
		t.Fatalf("NewEngine: %v", err)
	}

	res := e.GenerateJSON(context.Background(), "sys", "prompt", "report", func() json.RawMessage {
		return json.RawMessage(`{"fallback":true}`)
	})
	if res.ModelName != FallbackModelName {
		t.Fatalf("model name %q, want fallback", res.ModelName)
	}
}

func TestGenerateJSONValidOutput(t *testing.T) {
	valid := `{"title":"Report","summary":"All good.","actionItems":["keep going"]}`
	e, err := NewEngine(&stubGenerator{text: "Sure! " + valid}, "m", 0, nil)
	if err != nil {
		t.Fatalf("NewEngine: %v", err)
	}

	res := e.GenerateJSON(context.Background(), "sys", "prompt", "report", func() json.RawMessage {
		t.Fatalf("fallback must not run on a valid response")
		return nil
	})
	if res.ModelName != "m" {
		t.Fatalf("model name %q, want m", res.ModelName)
	}
	if string(res.Payload) != valid {
		t.Fatalf("payload %s, want extracted JSON", res.Payload)
	}
	if res.ModelOutput == "" {
		t.Fatalf("raw model output not preserved")
	}
}

func TestGenerateJSONSchemaViolationFallsBack(t *testing.T) {
	// report schema requires summary and actionItems
	e, err := NewEngine(&stubGenerator{text: `{"title":"only a title"}`}, "m", 0, nil)
	if err != nil {
		t.Fatalf("NewEngine: %v", err)
	}

	res := e.GenerateJSON(context.Background(), "sys", "prompt", "report", func() json.RawMessage {
		return json.RawMessage(`{"ok":true}`)
	})
	if res.ModelName != FallbackModelName {
		t.Fatalf("schema-violating output must fall back, got model %q", res.ModelName)
	}
}

func TestGenerateJSONUnknownSchema(t *testing.T) {
	e, err := NewEngine(&stubGenerator{text: `{}`}, "m", 0, nil)
	if err != nil {
		t.Fatalf("NewEngine: %v", err)
	}
	res := e.GenerateJSON(context.Background(), "sys", "prompt", "nope", func() json.RawMessage {
		return json.RawMessage(`{}`)
	})
	if res.ModelName != FallbackModelName {
		t.Fatalf("unknown schema must fall back")
	}
}

func TestRecommendationsSchemaAcceptsArray(t *testing.T) {
	valid := `[{"category":"discovery","priority":"high","title":"t","description":"d"}]`
	e, err := NewEngine(&stubGenerator{text: valid}, "m", 0, nil)
	if err != nil {
		t.Fatalf("NewEngine: %v", err)
	}
	res := e.GenerateJSON(context.Background(), "sys", "prompt", "recommendations", func() json.RawMessage {
		t.Fatalf("fallback must not run")
		return nil
	})
	if res.ModelName != "m" {
		t.Fatalf("valid recommendations array rejected")
	}
}
