package rag

import "time"

// KnowledgeChunk is one retrieved slice of a knowledge document together with
// its raw cosine similarity against the query embedding.
type KnowledgeChunk struct {
	ID          string  `json:"id"`
	KnowledgeID string  `json:"knowledge_id"`
	Title       string  `json:"title"`
	Text        string  `json:"text"`
	Similarity  float64 `json:"similarity"` // raw cosine, [-1, 1]
}

// FallbackDocument is a recency-ranked document used when vector retrieval
// produced nothing. It carries no similarity score.
type FallbackDocument struct {
	ID      string `json:"id"`
	Title   string `json:"title"`
	Excerpt string `json:"excerpt"`
}

// Retrieval is the outcome of scoped knowledge retrieval for one request.
type Retrieval struct {
	Chunks       []KnowledgeChunk   // merged across scopes, ranked by similarity desc
	GlobalChunks []KnowledgeChunk   // subset of Chunks that came from the global scope
	Fallback     []FallbackDocument // populated only when RAGSuccess is false
	RAGSuccess   bool
	Context      string // composed knowledge context block for the prompt
}

// WebSearchResult is a single ranked result from the web search provider.
type WebSearchResult struct {
	Title          string  `json:"title"`
	URL            string  `json:"url"`
	Snippet        string  `json:"snippet"`
	Source         string  `json:"source,omitempty"`
	RelevanceScore float64 `json:"relevance_score,omitempty"`
}

// KnowledgeCitation points an answer back at a matched knowledge chunk.
type KnowledgeCitation struct {
	ChunkID     string  `json:"chunk_id"`
	KnowledgeID string  `json:"knowledge_id"`
	Title       string  `json:"title"`
	Snippet     string  `json:"snippet"`
	Similarity  float64 `json:"similarity"`
}

// WebCitation points an answer back at a web search result.
type WebCitation struct {
	Title          string  `json:"title"`
	URL            string  `json:"url"`
	Source         string  `json:"source,omitempty"`
	Snippet        string  `json:"snippet"`
	RelevanceScore float64 `json:"relevance_score,omitempty"`
}

// ConversationTurn is one prior message of the conversation, supplied by the
// caller. The pipeline only reads it.
type ConversationTurn struct {
	Role      string    `json:"role"` // "user" or "assistant"
	Content   string    `json:"content"`
	Timestamp time.Time `json:"timestamp"`
}

// Usage reports what the pipeline actually consumed for one request so the
// caller can surface degraded quality to the user.
type Usage struct {
	ChunksMatched int  `json:"chunks_matched"`
	WebSearchUsed bool `json:"web_search_used"`
}

// Result is the pipeline's output contract. It is ephemeral; persistence
// belongs to the caller.
type Result struct {
	KnowledgeContext   string              `json:"knowledge_context"`
	KnowledgeCitations []KnowledgeCitation `json:"knowledge_citations"`
	WebCitations       []WebCitation       `json:"web_citations"`
	WebContext         string              `json:"web_context"`
	RAGUsed            Usage               `json:"rag_used"`
	ActionDecision     *ActionDecision     `json:"action_decision,omitempty"`
}

// SimilarityToPercent rescales a raw cosine similarity in [-1, 1] onto a
// 0-100 scale, clamping out-of-range inputs.
func SimilarityToPercent(s float64) float64 {
	p := (s + 1) * 50
	if p < 0 {
		return 0
	}
	if p > 100 {
		return 100
	}
	return p
}

// Truncate shortens s so the returned string, ellipsis included, never
// exceeds max bytes. Used for citation snippets and fallback excerpts.
func Truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	cut := s[:max-3]
	// Avoid splitting a multi-byte rune at the boundary.
	for len(cut) > 0 && cut[len(cut)-1]&0xC0 == 0x80 {
		cut = cut[:len(cut)-1]
	}
	return cut + "..."
}
