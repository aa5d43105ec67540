package api

import (
	"strings"
	"testing"
)

func TestValidateScanURL(t *testing.T) {
	valid := []string{
		"https://example.com",
		"http://example.com/docs",
		"https://sub.example.co.uk:8443/path",
	}
	for _, u := range valid {
		if err := validateScanURL(u); err != nil {
			t.Fatalf("validateScanURL(%q) = %v, want nil", u, err)
		}
	}

	invalid := []string{
		"",
		"example.com",
		"ftp://example.com",
		"https://",
		"https://localhost",
		"https://localhost:8080",
		"https://app.localhost",
		"https://127.0.0.1",
		"https://127.0.0.1:9090/admin",
		"https://10.0.0.5",
		"https://192.168.1.1",
		"https://172.16.0.1",
		"https://169.254.169.254/latest/meta-data/",
		"https://[::1]",
		"https://0.0.0.0",
		"https://metadata.google.internal/computeMetadata/v1/",
		"https://example.com/" + strings.Repeat("a", 2100),
	}
	for _, u := range invalid {
		if err := validateScanURL(u); err == nil {
			t.Fatalf("validateScanURL(%q) = nil, want error", u)
		}
	}
}
