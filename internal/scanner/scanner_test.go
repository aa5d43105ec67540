package scanner_test

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/agentfolio/axscore/internal/scanner"
	"github.com/agentfolio/axscore/internal/score"
	"github.com/agentfolio/axscore/pkg/models"
)

const fullHomepage = `<html><head>
<meta name="description" content="An example API product.">
<script type="application/ld+json">{"@context":"https://schema.org","@type":"Organization"}</script>
</head><body>Welcome</body></html>`

// fullSiteHandler serves every well-known artifact a scan looks for.
func fullSiteHandler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/robots.txt", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprintln(w, "User-Agent: *\nAllow: /")
	})
	mux.HandleFunc("/llms.txt", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprintln(w, "# Example\nDocs for AI agents.")
	})
	mux.HandleFunc("/openapi.json", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprintln(w, `{"openapi":"3.0.0","info":{"title":"example"}}`)
	})
	mux.HandleFunc("/.well-known/ai-plugin.json", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprintln(w, `{"schema_version":"v1","name_for_model":"example"}`)
	})
	mux.HandleFunc("/sitemap.xml", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprintln(w, `<?xml version="1.0"?><urlset></urlset>`)
	})
	mux.HandleFunc("/.well-known/security.txt", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprintln(w, "Contact: mailto:security@example.com")
	})
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, fullHomepage)
	})
	return mux
}

func TestScanAllSignalsFound(t *testing.T) {
	srv := httptest.NewServer(fullSiteHandler())
	defer srv.Close()

	sc := scanner.New(scanner.DefaultConfig(), srv.Client(), nil)
	res, err := sc.Scan(context.Background(), srv.URL)
	if err != nil {
		t.Fatalf("Scan: %v", err)
	}

	for _, name := range models.SignalNames {
		sig, ok := res.Signals[name]
		if !ok {
			t.Fatalf("signal %s missing from result", name)
		}
		if !sig.Found {
			t.Fatalf("signal %s not found", name)
		}
	}
	if got := score.Overall(res.Signals); got != 100 {
		t.Fatalf("overall score %d, want 100", got)
	}
	if !strings.Contains(res.Homepage, "Welcome") {
		t.Fatalf("homepage content missing: %q", res.Homepage)
	}
	if res.Duration <= 0 {
		t.Fatalf("duration not recorded")
	}
}

func TestScanNoSignals(t *testing.T) {
	// homepage responds but nothing else exists
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/" {
			http.NotFound(w, r)
			return
		}
		fmt.Fprint(w, "<html><body>plain</body></html>")
	}))
	defer srv.Close()

	sc := scanner.New(scanner.DefaultConfig(), srv.Client(), nil)
	res, err := sc.Scan(context.Background(), srv.URL)
	if err != nil {
		t.Fatalf("Scan: %v", err)
	}

	for _, name := range models.SignalNames {
		if res.Signals[name].Found {
			t.Fatalf("signal %s unexpectedly found", name)
		}
	}
	if got := score.Overall(res.Signals); got != 0 {
		t.Fatalf("overall score %d, want 0", got)
	}
}

func TestScanHomepageDownFails(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/robots.txt" {
			fmt.Fprintln(w, "User-Agent: *")
			return
		}
		http.Error(w, "down", http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	sc := scanner.New(scanner.DefaultConfig(), srv.Client(), nil)
	if _, err := sc.Scan(context.Background(), srv.URL); err == nil {
		t.Fatalf("expected scan failure when homepage is unreachable")
	}
}

func TestScanInvalidArtifactsNotCounted(t *testing.T) {
	// paths respond 200 but the content fails validation
	mux := http.NewServeMux()
	mux.HandleFunc("/openapi.json", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, "<html>not json</html>")
	})
	mux.HandleFunc("/sitemap.xml", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, "just text")
	})
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/" {
			http.NotFound(w, r)
			return
		}
		fmt.Fprint(w, "<html></html>")
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	sc := scanner.New(scanner.DefaultConfig(), srv.Client(), nil)
	res, err := sc.Scan(context.Background(), srv.URL)
	if err != nil {
		t.Fatalf("Scan: %v", err)
	}
	if res.Signals[models.SignalOpenAPIJSON].Found {
		t.Fatalf("non-JSON openapi.json counted as found")
	}
	if res.Signals[models.SignalSitemapXML].Found {
		t.Fatalf("non-XML sitemap counted as found")
	}
}

func TestScanSecurityTxtFallbackPath(t *testing.T) {
	// only the legacy /security.txt location exists
	mux := http.NewServeMux()
	mux.HandleFunc("/security.txt", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprintln(w, "Contact: security@example.com")
	})
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/" {
			http.NotFound(w, r)
			return
		}
		fmt.Fprint(w, "<html></html>")
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	sc := scanner.New(scanner.DefaultConfig(), srv.Client(), nil)
	res, err := sc.Scan(context.Background(), srv.URL)
	if err != nil {
		t.Fatalf("Scan: %v", err)
	}
	sig := res.Signals[models.SignalSecurityTxt]
	if !sig.Found {
		t.Fatalf("security.txt at fallback path not found")
	}
	if !strings.HasSuffix(sig.URL, "/security.txt") || strings.Contains(sig.URL, ".well-known") {
		t.Fatalf("unexpected signal URL %q", sig.URL)
	}
}

func TestScanBodyLimit(t *testing.T) {
	big := strings.Repeat("a", 50000)
	mux := http.NewServeMux()
	mux.HandleFunc("/llms.txt", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, big)
	})
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/" {
			http.NotFound(w, r)
			return
		}
		fmt.Fprint(w, "<html></html>")
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	cfg := scanner.DefaultConfig()
	sc := scanner.New(cfg, srv.Client(), nil)
	res, err := sc.Scan(context.Background(), srv.URL)
	if err != nil {
		t.Fatalf("Scan: %v", err)
	}
	sig := res.Signals[models.SignalLLMsTxt]
	if !sig.Found {
		t.Fatalf("oversized llms.txt not found")
	}
	if len(sig.Details) > cfg.DetailLimit {
		t.Fatalf("details length %d exceeds cap %d", len(sig.Details), cfg.DetailLimit)
	}
}

func TestNormalizeURL(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{"HTTPS://Example.COM/", "https://example.com"},
		{"https://example.com", "https://example.com"},
		{"https://example.com/docs/", "https://example.com/docs"},
		{"https://example.com/#section", "https://example.com"},
		{"  https://example.com  ", "https://example.com"},
	}
	for _, c := range cases {
		got, err := scanner.NormalizeURL(c.in)
		if err != nil {
			t.Fatalf("NormalizeURL(%q): %v", c.in, err)
		}
		if got != c.want {
			t.Fatalf("NormalizeURL(%q) = %q, want %q", c.in, got, c.want)
		}
	}

	for _, bad := range []string{"", "ftp://example.com", "example.com", "https://"} {
		if _, err := scanner.NormalizeURL(bad); err == nil {
			t.Fatalf("NormalizeURL(%q) succeeded, want error", bad)
		}
	}
}
