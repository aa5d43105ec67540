package scanner

import (
	"encoding/json"
	"strings"
)

// Structural validators for the path-based signals. A body that fetched fine
// but fails its validator still counts as not-found.

func validRobotsTxt(body string) bool {
	return strings.Contains(strings.ToLower(body), "user-agent")
}

func validLLMsTxt(body string) bool {
	return strings.TrimSpace(body) != ""
}

func validOpenAPIJSON(body string) bool {
	var doc map[string]json.RawMessage
	if err := json.Unmarshal([]byte(body), &doc); err != nil {
		return false
	}
	_, hasOpenAPI := doc["openapi"]
	_, hasSwagger := doc["swagger"]
	return hasOpenAPI || hasSwagger
}

func validAIPluginJSON(body string) bool {
	var doc map[string]json.RawMessage
	if err := json.Unmarshal([]byte(body), &doc); err != nil {
		return false
	}
	_, hasSchema := doc["schema_version"]
	_, hasModelName := doc["name_for_model"]
	return hasSchema || hasModelName
}

func validSitemapXML(body string) bool {
	return strings.Contains(body, "<urlset") || strings.Contains(body, "<sitemapindex")
}

func validSecurityTxt(body string) bool {
	return strings.Contains(strings.ToLower(body), "contact:")
}
