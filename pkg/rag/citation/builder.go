package citation

import (
	"funnel-canvas-be/pkg/rag"
)

const (
	maxKnowledgeCitations = 8
	maxWebCitations       = 5
	maxSnippetLength      = 300
)

// Builder maps matched chunks and web results into user-facing citation
// records. Citations are best-effort provenance: they cover what the answer
// was grounded on, not which lines the model actually used.
type Builder struct{}

// NewBuilder creates a new citation builder
func NewBuilder() *Builder {
	return &Builder{}
}

// BuildKnowledgeCitations maps ranked chunks to citations, keeping the top
// matches and truncating each snippet.
func (b *Builder) BuildKnowledgeCitations(chunks []rag.KnowledgeChunk) []rag.KnowledgeCitation {
	if len(chunks) > maxKnowledgeCitations {
		chunks = chunks[:maxKnowledgeCitations]
	}

	citations := make([]rag.KnowledgeCitation, len(chunks))
	for i, c := range chunks {
		citations[i] = rag.KnowledgeCitation{
			ChunkID:     c.ID,
			KnowledgeID: c.KnowledgeID,
			Title:       c.Title,
			Snippet:     rag.Truncate(c.Text, maxSnippetLength),
			Similarity:  c.Similarity,
		}
	}
	return citations
}

// BuildWebCitations maps ranked web results 1:1 to citations, keeping the
// top results.
func (b *Builder) BuildWebCitations(results []rag.WebSearchResult) []rag.WebCitation {
	if len(results) > maxWebCitations {
		results = results[:maxWebCitations]
	}

	citations := make([]rag.WebCitation, len(results))
	for i, r := range results {
		citations[i] = rag.WebCitation{
			Title:          r.Title,
			URL:            r.URL,
			Source:         r.Source,
			Snippet:        rag.Truncate(r.Snippet, maxSnippetLength),
			RelevanceScore: r.RelevanceScore,
		}
	}
	return citations
}
