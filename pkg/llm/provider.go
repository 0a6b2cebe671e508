package llm

import (
	"context"
)

// Message represents a chat message in a provider-agnostic format
type Message struct {
	Role    string // "user", "assistant", "system"
	Content string
}

// Option allows for optional parameters like Temperature, MaxTokens, etc.
type Option func(*Options)

type Options struct {
	Temperature      float64
	MaxTokens        int
	PresencePenalty  float64
	FrequencyPenalty float64
	Model            string // Override default model
}

func WithTemperature(temp float64) Option {
	return func(o *Options) {
		o.Temperature = temp
	}
}

func WithMaxTokens(n int) Option {
	return func(o *Options) {
		o.MaxTokens = n
	}
}

func WithPresencePenalty(p float64) Option {
	return func(o *Options) {
		o.PresencePenalty = p
	}
}

func WithFrequencyPenalty(p float64) Option {
	return func(o *Options) {
		o.FrequencyPenalty = p
	}
}

func WithModel(model string) Option {
	return func(o *Options) {
		o.Model = model
	}
}

// Apply folds opts over a default option set.
func Apply(defaults Options, opts ...Option) Options {
	for _, opt := range opts {
		opt(&defaults)
	}
	return defaults
}

// ChatProvider defines the contract for a plain chat-completion backend
type ChatProvider interface {
	// Chat sends a chat history to the model and returns the response
	Chat(ctx context.Context, history []Message, options ...Option) (string, error)

	// Generate sends a single prompt to the model (convenience method)
	Generate(ctx context.Context, prompt string, options ...Option) (string, error)
}

// AgenticResponse is the answer of a search-capable provider: the text plus
// whatever source URLs the provider fetched on its own.
type AgenticResponse struct {
	Content      string
	CitationURLs []string
}

// AgenticChatProvider is a provider that can browse on its own and return
// source URLs alongside the answer (e.g. Perplexity sonar models).
type AgenticChatProvider interface {
	ChatWithSearch(ctx context.Context, history []Message, options ...Option) (*AgenticResponse, error)
}
