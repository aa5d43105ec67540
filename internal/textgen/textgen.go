// Package textgen wraps the Ollama client behind a single
// "generate-or-fall-back" entry point. Every AI call site in the engine
// (recommendations, monthly report narratives) supplies its prompt, the name
// of the JSON schema the model output must satisfy, and a deterministic
// fallback; any provider error, timeout, parse failure, or schema violation
// silently yields the fallback so the pipeline never produces zero output.
package textgen

import (
	"context"
	"embed"
	"encoding/json"
	"fmt"
	"io/fs"
	"log/slog"
	"path"
	"strings"
	"time"

	"github.com/qri-io/jsonschema"

	"github.com/agentfolio/axscore/pkg/ollama"
)

//go:embed schemas/*.json
var schemaFS embed.FS

// FallbackModelName marks results produced by the deterministic path.
const FallbackModelName = "fallback"

// Generator is the subset of the Ollama client the engine depends on.
type Generator interface {
	Generate(ctx context.Context, model string, prompt string, opts *ollama.GenerateOpts) (ollama.GenerateResult, error)
}

// Result is the outcome of one generation, AI or fallback.
type Result struct {
	// Payload is the JSON value that downstream code consumes.
	Payload json.RawMessage
	// ModelName is the configured model, or FallbackModelName.
	ModelName string
	// ModelOutput is the raw model text when the AI path succeeded.
	ModelOutput string
}

// Engine runs bounded AI calls with schema validation and fallback.
type Engine struct {
	client  Generator
	model   string
	timeout time.Duration
	logger  *slog.Logger
	schemas map[string]*jsonschema.Schema
}

// NewEngine creates an engine. A nil client is valid and means the provider
// is unconfigured: every call takes the fallback path.
func NewEngine(client Generator, model string, timeout time.Duration, logger *slog.Logger) (*Engine, error) {
	if timeout <= 0 {
		timeout = 20 * time.Second
	}
	if logger == nil {
		logger = slog.Default()
	}

	schemas, err := loadSchemas()
	if err != nil {
		return nil, fmt.Errorf("load schemas: %w", err)
	}

	return &Engine{client: client, model: model, timeout: timeout, logger: logger, schemas: schemas}, nil
}

func loadSchemas() (map[string]*jsonschema.Schema, error) {
	entries, err := fs.ReadDir(schemaFS, "schemas")
	if err != nil {
		return nil, err
	}

	out := make(map[string]*jsonschema.Schema, len(entries))
	for _, e := range entries {
		b, err := fs.ReadFile(schemaFS, path.Join("schemas", e.Name()))
		if err != nil {
			return nil, err
		}
		rs := &jsonschema.Schema{}
		if err := json.Unmarshal(b, rs); err != nil {
			return nil, fmt.Errorf("compile schema %s: %w", e.Name(), err)
		}
		out[strings.TrimSuffix(e.Name(), ".json")] = rs
	}

	return out, nil
}

// GenerateJSON makes at most one bounded AI call (no retries beyond what the
// client itself does) expecting JSON-mode output that satisfies the named
// schema. On any failure the fallback output is returned transparently.
func (e *Engine) GenerateJSON(ctx context.Context, system, prompt, schemaName string, fallback func() json.RawMessage) Result {
	payload, raw, err := e.tryGenerate(ctx, system, prompt, schemaName)
	if err != nil {
		e.logger.Warn("textgen: falling back to deterministic output",
			slog.String("schema", schemaName), slog.Any("err", err))
		return Result{Payload: fallback(), ModelName: FallbackModelName}
	}
	return Result{Payload: payload, ModelName: e.model, ModelOutput: raw}
}

func (e *Engine) tryGenerate(ctx context.Context, system, prompt, schemaName string) (json.RawMessage, string, error) {
	if e.client == nil {
		return nil, "", fmt.Errorf("no provider configured")
	}

	schema, ok := e.schemas[schemaName]
	if !ok {
		return nil, "", fmt.Errorf("no schema named %s", schemaName)
	}

	ctxReq, cancel := context.WithTimeout(ctx, e.timeout)
	defer cancel()

	out, err := e.client.Generate(ctxReq, e.model, prompt, &ollama.GenerateOpts{System: system, JSONMode: true})
	if err != nil {
		return nil, "", fmt.Errorf("generate: %w", err)
	}

	j := ExtractJSON(out.Text)
	if j == "" {
		return nil, "", fmt.Errorf("no JSON value found in response")
	}

	verrs, err := schema.ValidateBytes(ctxReq, []byte(j))
	if err != nil {
		return nil, "", fmt.Errorf("schema validate error: %w", err)
	}
	if len(verrs) > 0 {
		var sb strings.Builder
		for _, v := range verrs {
			sb.WriteString(v.Message)
			sb.WriteString("; ")
		}
		return nil, "", fmt.Errorf("response does not match schema: %s", sb.String())
	}

	return json.RawMessage(j), out.Text, nil
}

// ExtractJSON returns the first JSON object or array embedded in s. This is a
// pragmatic approach to handle model outputs that wrap JSON in text or
// markdown fences.
func ExtractJSON(s string) string {
	obj := strings.Index(s, "{")
	arr := strings.Index(s, "[")

	switch {
	case obj == -1 && arr == -1:
		return ""
	case arr == -1 || (obj != -1 && obj < arr):
		last := strings.LastIndex(s, "}")
		if last < obj {
			return ""
		}
		return s[obj : last+1]
	default:
		last := strings.LastIndex(s, "]")
		if last < arr {
			return ""
		}
		return s[arr : last+1]
	}
}
