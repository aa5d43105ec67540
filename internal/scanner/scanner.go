// Package scanner probes a target site for AI-discoverability signals. Six
// signals come from well-known paths fetched concurrently; two (schemaOrg,
// metaDescription) are derived from the homepage body. A failed probe only
// degrades its own signal to not-found; only an unreachable homepage fails
// the scan as a whole.
package scanner

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/agentfolio/axscore/pkg/models"
)

// Config holds scanner limits and timeouts.
type Config struct {
	// ProbeTimeout bounds each individual GET request.
	ProbeTimeout time.Duration `yaml:"probe_timeout"`
	// BodyLimit is the maximum number of bytes read from any response body
	// before parsing or validation.
	BodyLimit int64 `yaml:"body_limit"`
	// DetailLimit caps the excerpt stored in a signal's details.
	DetailLimit int `yaml:"detail_limit"`
	// ContentLimit caps the homepage content handed to the analyzer.
	ContentLimit int `yaml:"content_limit"`
	// UserAgent is sent on every probe.
	UserAgent string `yaml:"user_agent"`
}

// DefaultConfig returns the limits used in production.
func DefaultConfig() Config {
	return Config{
		ProbeTimeout: 8 * time.Second,
		BodyLimit:    10000,
		DetailLimit:  500,
		ContentLimit: 4000,
		UserAgent:    "axscore-scanner/1.0",
	}
}

// Result is the raw outcome of scanning one site.
type Result struct {
	Signals models.SignalSet
	// Homepage is the truncated homepage body, input for the analyzer.
	Homepage string
	Duration time.Duration
}

// Scanner issues the probes. Safe for concurrent use.
type Scanner struct {
	client *http.Client
	cfg    Config
	logger *slog.Logger
}

// New creates a scanner. A nil client gets a default one bounded by the
// probe timeout.
func New(cfg Config, client *http.Client, logger *slog.Logger) *Scanner {
	if cfg.ProbeTimeout <= 0 {
		cfg.ProbeTimeout = DefaultConfig().ProbeTimeout
	}
	if cfg.BodyLimit <= 0 {
		cfg.BodyLimit = DefaultConfig().BodyLimit
	}
	if cfg.DetailLimit <= 0 {
		cfg.DetailLimit = DefaultConfig().DetailLimit
	}
	if cfg.ContentLimit <= 0 {
		cfg.ContentLimit = DefaultConfig().ContentLimit
	}
	if cfg.UserAgent == "" {
		cfg.UserAgent = DefaultConfig().UserAgent
	}
	if client == nil {
		client = &http.Client{Timeout: cfg.ProbeTimeout}
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Scanner{client: client, cfg: cfg, logger: logger}
}

// pathProbe describes one well-known path fetch. Candidates are tried in
// order; the first fetch that passes validate wins.
type pathProbe struct {
	signal     string
	candidates []string
	validate   func(body string) bool
}

func probes() []pathProbe {
	return []pathProbe{
		{models.SignalRobotsTxt, []string{"/robots.txt"}, validRobotsTxt},
		{models.SignalLLMsTxt, []string{"/llms.txt"}, validLLMsTxt},
		{models.SignalOpenAPIJSON, []string{"/openapi.json"}, validOpenAPIJSON},
		{models.SignalAIPluginJSON, []string{"/.well-known/ai-plugin.json"}, validAIPluginJSON},
		{models.SignalSitemapXML, []string{"/sitemap.xml"}, validSitemapXML},
		{models.SignalSecurityTxt, []string{"/.well-known/security.txt", "/security.txt"}, validSecurityTxt},
	}
}

// Scan probes siteURL and returns the full signal set. It returns an error
// only when the homepage itself cannot be fetched; individual probe failures
// just leave their signal not-found.
func (s *Scanner) Scan(ctx context.Context, siteURL string) (*Result, error) {
	start := time.Now()

	origin, err := originOf(siteURL)
	if err != nil {
		return nil, fmt.Errorf("invalid site url: %w", err)
	}

	res := &Result{Signals: make(models.SignalSet, len(models.SignalNames))}

	// All probes run concurrently; a homepage failure cancels the group and
	// fails the scan.
	g, gctx := errgroup.WithContext(ctx)

	results := make([]models.Signal, len(probes()))
	for i, p := range probes() {
		g.Go(func() error {
			results[i] = s.runProbe(gctx, origin, p)
			return nil
		})
	}

	var homepage string
	var homepageSignals map[string]models.Signal
	g.Go(func() error {
		body, err := s.fetch(gctx, siteURL)
		if err != nil {
			return fmt.Errorf("fetch homepage: %w", err)
		}
		homepage = truncate(body, s.cfg.ContentLimit)
		homepageSignals = s.homepageSignals(siteURL, body)
		return nil
	})

	if err := g.Wait(); err != nil {
		return nil, err
	}

	for i, p := range probes() {
		res.Signals[p.signal] = results[i]
	}
	for name, sig := range homepageSignals {
		res.Signals[name] = sig
	}
	res.Homepage = homepage
	res.Duration = time.Since(start)
	return res, nil
}

func (s *Scanner) runProbe(ctx context.Context, origin string, p pathProbe) models.Signal {
	for _, path := range p.candidates {
		u := origin + path
		body, err := s.fetch(ctx, u)
		if err != nil {
			s.logger.Debug("probe failed", slog.String("signal", p.signal), slog.String("url", u), slog.Any("err", err))
			continue
		}
		if !p.validate(body) {
			continue
		}
		return models.Signal{Found: true, URL: u, Details: truncate(body, s.cfg.DetailLimit)}
	}
	return models.Signal{Found: false}
}

// fetch GETs the URL with the probe timeout and returns the body truncated
// to the configured byte limit. Non-2xx statuses are errors.
func (s *Scanner) fetch(ctx context.Context, u string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, s.cfg.ProbeTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return "", err
	}
	req.Header.Set("User-Agent", s.cfg.UserAgent)

	resp, err := s.client.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", fmt.Errorf("status %d", resp.StatusCode)
	}

	b, err := io.ReadAll(io.LimitReader(resp.Body, s.cfg.BodyLimit))
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// homepageSignals derives schemaOrg and metaDescription from the homepage
// body.
func (s *Scanner) homepageSignals(siteURL, body string) map[string]models.Signal {
	out := make(map[string]models.Signal, 2)

	if block, ok := findJSONLD(body); ok {
		out[models.SignalSchemaOrg] = models.Signal{Found: true, URL: siteURL, Details: truncate(block, s.cfg.DetailLimit)}
	} else {
		out[models.SignalSchemaOrg] = models.Signal{Found: false}
	}

	if desc, ok := findMetaDescription(body); ok {
		out[models.SignalMetaDescription] = models.Signal{Found: true, URL: siteURL, Details: truncate(desc, s.cfg.DetailLimit)}
	} else {
		out[models.SignalMetaDescription] = models.Signal{Found: false}
	}

	return out
}

// originOf reduces a URL to scheme://host[:port].
func originOf(raw string) (string, error) {
	u, err := url.Parse(raw)
	if err != nil {
		return "", err
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return "", fmt.Errorf("unsupported scheme %q", u.Scheme)
	}
	if u.Host == "" {
		return "", fmt.Errorf("missing host")
	}
	return u.Scheme + "://" + u.Host, nil
}

// NormalizeURL canonicalizes a site URL for the (developer, url) uniqueness
// key: lowercased scheme/host, trailing slash stripped.
func NormalizeURL(raw string) (string, error) {
	u, err := url.Parse(strings.TrimSpace(raw))
	if err != nil {
		return "", err
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return "", fmt.Errorf("unsupported scheme %q", u.Scheme)
	}
	if u.Host == "" {
		return "", fmt.Errorf("missing host")
	}
	u.Scheme = strings.ToLower(u.Scheme)
	u.Host = strings.ToLower(u.Host)
	u.Fragment = ""
	out := u.String()
	return strings.TrimRight(out, "/"), nil
}

func truncate(s string, n int) string {
	if n <= 0 || len(s) <= n {
		return s
	}
	return s[:n]
}
