// Package extract turns a raw job page into model.ExtractedFields without
// any external service: schema.org JSON-LD first, page heuristics second.
package extract

import (
	"html"
	"regexp"
	"strings"
)

var (
	htmlTagRegex     = regexp.MustCompile(`<[^>]*>`)
	scriptStyleRegex = regexp.MustCompile(`(?is)<(script|style|noscript)\b[^>]*>.*?</(script|style|noscript)>`)
)

// cleanText converts an HTML or HTML-encoded string to plain text.
// It first unescapes HTML entities (JSON-LD descriptions are often
// entity-encoded markup), strips all tags, then collapses whitespace.
func cleanText(content string) string {
	unescaped := html.UnescapeString(content)
	plain := htmlTagRegex.ReplaceAllString(unescaped, " ")
	return strings.Join(strings.Fields(plain), " ")
}

// PageText returns the visible text of a whole page. Script and style
// bodies are dropped before tags are stripped.
func PageText(page string) string {
	return cleanText(scriptStyleRegex.ReplaceAllString(page, " "))
}
