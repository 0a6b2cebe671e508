package websearch

import (
	"fmt"
	"strings"

	"funnel-canvas-be/pkg/rag"
)

// Interrogative and recency markers the gate recognizes. The product's user
// base writes mostly Korean, so both alphabets are covered.
var (
	interrogativeKeywords = []string{
		"누구", "언제", "어디", "무엇", "뭐", "어떻게", "왜", "얼마",
		"who", "when", "where", "what", "how", "why",
	}
	recencyKeywords = []string{
		"최신", "최근", "오늘", "어제", "지금", "현재", "요즘",
		"recent", "latest", "today", "current",
	}
)

// ShouldSearch is a cheap heuristic gate used both as a pre-filter and as a
// sanity check before issuing paid search calls.
func ShouldSearch(message string) bool {
	trimmed := strings.TrimSpace(message)
	if trimmed == "" {
		return false
	}
	lower := strings.ToLower(trimmed)

	// An explicit search request always passes.
	if strings.Contains(lower, "검색") || strings.Contains(lower, "search for") {
		return true
	}

	if strings.HasSuffix(trimmed, "?") || strings.HasSuffix(trimmed, "？") {
		return true
	}

	for _, kw := range recencyKeywords {
		if strings.Contains(lower, kw) {
			return true
		}
	}

	for _, kw := range interrogativeKeywords {
		if strings.Contains(lower, kw) {
			return true
		}
	}

	return false
}

// FormatResults renders search results as a readable block for prompt
// inclusion.
func FormatResults(results []rag.WebSearchResult) string {
	if len(results) == 0 {
		return ""
	}

	var sb strings.Builder
	sb.WriteString("Web search results:\n")
	for i, r := range results {
		sb.WriteString(fmt.Sprintf("%d. %s\n", i+1, r.Title))
		if r.Snippet != "" {
			sb.WriteString(fmt.Sprintf("   %s\n", r.Snippet))
		}
		sb.WriteString(fmt.Sprintf("   URL: %s\n", r.URL))
	}
	return sb.String()
}
