package citation

import (
	"fmt"
	"strings"
	"testing"

	"funnel-canvas-be/pkg/rag"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuildKnowledgeCitationsCap(t *testing.T) {
	builder := NewBuilder()

	var chunks []rag.KnowledgeChunk
	for i := 0; i < 12; i++ {
		chunks = append(chunks, rag.KnowledgeChunk{
			ID:          fmt.Sprintf("chunk-%d", i),
			KnowledgeID: fmt.Sprintf("doc-%d", i),
			Title:       "Landing Page Copy",
			Text:        strings.Repeat("conversion rate ", 40),
			Similarity:  0.9 - float64(i)*0.01,
		})
	}

	citations := builder.BuildKnowledgeCitations(chunks)

	require.Len(t, citations, 8)
	assert.Equal(t, "chunk-0", citations[0].ChunkID, "ranking order is preserved")
	for _, c := range citations {
		assert.LessOrEqual(t, len(c.Snippet), 300)
	}
}

func TestBuildKnowledgeCitationsFields(t *testing.T) {
	builder := NewBuilder()

	citations := builder.BuildKnowledgeCitations([]rag.KnowledgeChunk{
		{ID: "c1", KnowledgeID: "d1", Title: "Refund Policy", Text: "14 days, no questions asked.", Similarity: 0.91},
	})

	require.Len(t, citations, 1)
	assert.Equal(t, "c1", citations[0].ChunkID)
	assert.Equal(t, "d1", citations[0].KnowledgeID)
	assert.Equal(t, "Refund Policy", citations[0].Title)
	assert.Equal(t, "14 days, no questions asked.", citations[0].Snippet)
	assert.Equal(t, 0.91, citations[0].Similarity)
}

func TestBuildWebCitationsCap(t *testing.T) {
	builder := NewBuilder()

	var results []rag.WebSearchResult
	for i := 0; i < 9; i++ {
		results = append(results, rag.WebSearchResult{
			Title:   fmt.Sprintf("Result %d", i),
			URL:     fmt.Sprintf("https://example.com/%d", i),
			Snippet: "snippet",
		})
	}

	citations := builder.BuildWebCitations(results)

	require.Len(t, citations, 5)
	assert.Equal(t, "https://example.com/0", citations[0].URL)
}

func TestBuildCitationsEmptyInput(t *testing.T) {
	builder := NewBuilder()

	assert.Empty(t, builder.BuildKnowledgeCitations(nil))
	assert.Empty(t, builder.BuildWebCitations(nil))
}
