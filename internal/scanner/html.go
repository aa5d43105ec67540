package scanner

import (
	"strings"

	"golang.org/x/net/html"
)

// findJSONLD returns the contents of the first
// <script type="application/ld+json"> block in the document.
func findJSONLD(body string) (string, bool) {
	z := html.NewTokenizer(strings.NewReader(body))
	inJSONLD := false
	for {
		switch z.Next() {
		case html.ErrorToken:
			return "", false
		case html.StartTagToken:
			tok := z.Token()
			if tok.Data != "script" {
				continue
			}
			for _, a := range tok.Attr {
				if a.Key == "type" && strings.EqualFold(strings.TrimSpace(a.Val), "application/ld+json") {
					inJSONLD = true
				}
			}
		case html.TextToken:
			if inJSONLD {
				txt := strings.TrimSpace(z.Token().Data)
				if txt != "" {
					return txt, true
				}
			}
		case html.EndTagToken:
			inJSONLD = false
		}
	}
}

// findMetaDescription returns the content of <meta name="description">.
func findMetaDescription(body string) (string, bool) {
	z := html.NewTokenizer(strings.NewReader(body))
	for {
		switch z.Next() {
		case html.ErrorToken:
			return "", false
		case html.StartTagToken, html.SelfClosingTagToken:
			tok := z.Token()
			if tok.Data != "meta" {
				continue
			}
			var name, content string
			for _, a := range tok.Attr {
				switch a.Key {
				case "name":
					name = strings.ToLower(strings.TrimSpace(a.Val))
				case "content":
					content = strings.TrimSpace(a.Val)
				}
			}
			if name == "description" && content != "" {
				return content, true
			}
		}
	}
}
