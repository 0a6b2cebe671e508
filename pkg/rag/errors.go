package rag

import "fmt"

// ProviderError wraps a failed upstream call (embedding, vector search, chat,
// web search). Optional enrichment stages treat it as zero contribution.
type ProviderError struct {
	Provider string // "embedding", "vector-search", "chat", "agentic-chat", "web-search"
	Err      error
}

func (e *ProviderError) Error() string {
	return fmt.Sprintf("%s provider failed: %v", e.Provider, e.Err)
}

func (e *ProviderError) Unwrap() error { return e.Err }

// NewProviderError wraps err with its provider name. Returns nil for nil err.
func NewProviderError(provider string, err error) error {
	if err == nil {
		return nil
	}
	return &ProviderError{Provider: provider, Err: err}
}

// ParseError reports malformed classifier output. It triggers the heuristic
// fallback and never reaches the caller.
type ParseError struct {
	Raw string
	Err error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("decision parse failed: %v", e.Err)
}

func (e *ParseError) Unwrap() error { return e.Err }

// EmptyResultError signals that neither knowledge nor web search contributed
// anything. The pipeline still returns a structured Result in that case.
type EmptyResultError struct{}

func (e *EmptyResultError) Error() string {
	return "no knowledge matches and no web results"
}
