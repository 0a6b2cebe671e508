package knowledge

import (
	"strings"
	"testing"

	"funnel-canvas-be/pkg/rag"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMergeAndRank(t *testing.T) {
	canvas := []rag.KnowledgeChunk{
		{ID: "c1", Similarity: 0.82},
		{ID: "c2", Similarity: 0.71},
	}
	global := []rag.KnowledgeChunk{
		{ID: "g1", Similarity: 0.99},
		{ID: "g2", Similarity: 0.75},
	}

	merged := MergeAndRank(canvas, global, 20)

	require.Len(t, merged, 4)
	assert.Equal(t, "g1", merged[0].ID, "highest similarity wins regardless of scope")
	assert.Equal(t, "c1", merged[1].ID)
	assert.Equal(t, "g2", merged[2].ID)
	assert.Equal(t, "c2", merged[3].ID)
}

func TestMergeAndRankCap(t *testing.T) {
	var canvas, global []rag.KnowledgeChunk
	for i := 0; i < 15; i++ {
		canvas = append(canvas, rag.KnowledgeChunk{ID: "c", Similarity: 0.9})
		global = append(global, rag.KnowledgeChunk{ID: "g", Similarity: 0.8})
	}

	merged := MergeAndRank(canvas, global, 20)
	assert.Len(t, merged, 20)
}

func TestMergeAndRankStableOnTies(t *testing.T) {
	canvas := []rag.KnowledgeChunk{{ID: "c1", Similarity: 0.8}}
	global := []rag.KnowledgeChunk{{ID: "g1", Similarity: 0.8}}

	merged := MergeAndRank(canvas, global, 20)

	require.Len(t, merged, 2)
	assert.Equal(t, "c1", merged[0].ID, "canvas chunk stays ahead on equal similarity")
}

func TestComposeContext(t *testing.T) {
	chunks := []rag.KnowledgeChunk{
		{ID: "c1", Title: "Pricing Page", Text: "Plans start at $29.", Similarity: 0.9},
		{ID: "g1", Title: "Refund Policy", Text: "Refunds within 14 days.", Similarity: 0.8},
	}
	globalSet := map[string]bool{"g1": true}

	out := ComposeContext(chunks, globalSet)

	assert.Contains(t, out, "=== Canvas Knowledge ===")
	assert.Contains(t, out, "=== Shared Knowledge ===")
	assert.Contains(t, out, "[Pricing Page] (relevance 95%)")
	assert.Contains(t, out, "[Refund Policy] (relevance 90%)")
	assert.Less(t, strings.Index(out, "Canvas Knowledge"), strings.Index(out, "Shared Knowledge"))
}

func TestComposeContextCanvasOnly(t *testing.T) {
	chunks := []rag.KnowledgeChunk{
		{ID: "c1", Title: "Launch Plan", Text: "Launch in Q3.", Similarity: 0.76},
	}

	out := ComposeContext(chunks, map[string]bool{})

	assert.Contains(t, out, "=== Canvas Knowledge ===")
	assert.NotContains(t, out, "Shared Knowledge")
}

func TestComposeFallbackContext(t *testing.T) {
	docs := []rag.FallbackDocument{
		{ID: "d1", Title: "Onboarding Funnel", Excerpt: "Step one is the landing page."},
		{ID: "d2", Title: "Ad Campaign", Excerpt: "Budget allocated for August."},
	}

	out := ComposeFallbackContext(docs)

	assert.Contains(t, out, "=== Recent Canvas Documents ===")
	assert.Contains(t, out, "[Onboarding Funnel]")
	assert.Contains(t, out, "Step one is the landing page.")
	assert.NotContains(t, out, "%", "fallback excerpts carry no relevance annotation")
}

func TestComposeFallbackContextEmpty(t *testing.T) {
	assert.Equal(t, "", ComposeFallbackContext(nil))
}
