package embedding

import "context"

// EmbeddingProvider turns text into a fixed-length vector.
// No internal retry: callers treat a failure as "no embedding available" and
// take their own fallback path.
type EmbeddingProvider interface {
	Generate(ctx context.Context, text string) ([]float32, error)
}
