package websearch

import (
	"testing"

	"funnel-canvas-be/pkg/rag"

	"github.com/stretchr/testify/assert"
)

func TestShouldSearch(t *testing.T) {
	tests := []struct {
		name    string
		message string
		want    bool
	}{
		{"empty", "", false},
		{"whitespace only", "   ", false},
		{"plain statement", "퍼널 구조를 정리해줘", false},
		{"explicit korean search request", "환율 검색해줘", true},
		{"explicit english search request", "please search for funnel benchmarks", true},
		{"trailing question mark", "이 제품의 환불 정책은?", true},
		{"fullwidth question mark", "환불 정책이 뭐야？", true},
		{"korean recency keyword", "오늘 날씨 알려줘", true},
		{"english recency keyword", "latest conversion benchmarks", true},
		{"korean interrogative", "결제 담당자가 누구야", true},
		{"english interrogative", "how do funnels convert", true},
		{"imperative without markers", "회의록 요약 부탁해", false},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, ShouldSearch(tc.message))
		})
	}
}

func TestFormatResults(t *testing.T) {
	t.Run("empty input yields empty block", func(t *testing.T) {
		assert.Equal(t, "", FormatResults(nil))
	})

	t.Run("renders numbered entries with snippet and url", func(t *testing.T) {
		block := FormatResults([]rag.WebSearchResult{
			{Title: "환율 요약", URL: "https://news.example.com/fx", Snippet: "주요 통화 시세"},
			{Title: "No snippet entry", URL: "https://example.com/a"},
		})

		assert.Contains(t, block, "Web search results:")
		assert.Contains(t, block, "1. 환율 요약")
		assert.Contains(t, block, "주요 통화 시세")
		assert.Contains(t, block, "URL: https://news.example.com/fx")
		assert.Contains(t, block, "2. No snippet entry")
	})
}
