// Dev tool to poke the configured Ollama instance with an AX Score style
// prompt. Useful for checking model availability and JSON-mode behavior
// before enabling the AI path in config.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"time"

	"github.com/agentfolio/axscore/pkg/ollama"
)

func main() {
	baseURL := flag.String("url", "http://localhost:11434", "ollama base url")
	model := flag.String("model", "llama3.2", "model name")
	timeout := flag.Duration("timeout", 30*time.Second, "request timeout")
	flag.Parse()

	cfg := ollama.DefaultConfig()
	cfg.BaseURL = *baseURL
	cfg.Model = *model
	cfg.Timeout = *timeout

	client, err := ollama.NewDefaultClient(cfg)
	if err != nil {
		log.Fatal(err)
	}
	defer client.Close()

	ctx := context.Background()
	if err := client.Health(ctx); err != nil {
		log.Fatalf("health: %v", err)
	}
	fmt.Println("ollama healthy")

	prompt := `A website scan found robots.txt but no llms.txt and no OpenAPI spec. Respond with a JSON array of improvement recommendations, each with category, priority, title, and description.`
	res, err := client.Generate(ctx, *model, prompt, &ollama.GenerateOpts{
		System:   "You are an AI-discoverability consultant. Respond with JSON only.",
		JSONMode: true,
	})
	if err != nil {
		log.Fatalf("generate: %v", err)
	}

	fmt.Printf("model: %v latency: %vms\n", res.Meta["model"], res.Meta["latency_ms"])
	fmt.Println(res.Text)
}
