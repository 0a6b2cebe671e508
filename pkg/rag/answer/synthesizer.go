package answer

import (
	"context"
	"log"
	"net/url"
	"strings"

	"funnel-canvas-be/pkg/llm"
	"funnel-canvas-be/pkg/rag"
)

const maxMergedWebCitations = 5

// staticFallbackAnswer is the last resort when every provider is down. The
// pipeline contract is a structured response, never an error page.
const staticFallbackAnswer = "죄송합니다. 지금은 답변을 생성할 수 없습니다. 잠시 후 다시 시도해 주세요."

// Config controls synthesis behavior
type Config struct {
	// DedupeCitations drops web citations whose normalized URL was already
	// seen before applying the cap.
	DedupeCitations bool
	MaxTokens       int
	Temperature     float64
}

// DefaultConfig returns default synthesis configuration
func DefaultConfig() Config {
	return Config{
		DedupeCitations: true,
		MaxTokens:       1024,
		Temperature:     0.4,
	}
}

// Request carries everything the synthesizer merges into one prompt.
type Request struct {
	Message          string
	KnowledgeContext string
	WebContext       string
	HistoryText      string
	SystemHeader     string // task-specific framing, e.g. a summary instruction
	WebCitations     []rag.WebCitation
}

// Synthesis is the synthesizer's output: the answer text plus the final
// merged citation list.
type Synthesis struct {
	Content      string
	WebCitations []rag.WebCitation
}

// Synthesizer produces the final answer. It tries the search-capable primary
// provider first and falls back transparently to a plain chat provider with
// the identical prompt. The caller never sees a provider failure, only a
// possible difference in citation richness.
type Synthesizer struct {
	primary  llm.AgenticChatProvider
	fallback llm.ChatProvider
	config   Config
	logger   *log.Logger
}

// NewSynthesizer creates a new answer synthesizer
func NewSynthesizer(primary llm.AgenticChatProvider, fallback llm.ChatProvider, config Config, logger *log.Logger) *Synthesizer {
	return &Synthesizer{
		primary:  primary,
		fallback: fallback,
		config:   config,
		logger:   logger,
	}
}

// Synthesize builds the merged prompt and generates the answer. It always
// returns a non-empty content, degrading through fallback provider and
// finally a static message.
func (s *Synthesizer) Synthesize(ctx context.Context, req Request) *Synthesis {
	history := []llm.Message{
		{Role: "system", Content: s.composeSystemPrompt(req)},
		{Role: "user", Content: req.Message},
	}

	options := []llm.Option{
		llm.WithTemperature(s.config.Temperature),
		llm.WithMaxTokens(s.config.MaxTokens),
	}

	if s.primary != nil {
		response, err := s.primary.ChatWithSearch(ctx, history, options...)
		if err == nil && strings.TrimSpace(response.Content) != "" {
			return &Synthesis{
				Content:      response.Content,
				WebCitations: MergeCitations(req.WebCitations, response.CitationURLs, s.config.DedupeCitations),
			}
		}
		s.logger.Printf("[WARN] Primary provider failed, falling back to plain chat: %v", err)
	}

	citations := MergeCitations(req.WebCitations, nil, s.config.DedupeCitations)

	if s.fallback != nil {
		content, err := s.fallback.Chat(ctx, history, options...)
		if err == nil && strings.TrimSpace(content) != "" {
			return &Synthesis{Content: content, WebCitations: citations}
		}
		s.logger.Printf("[WARN] Fallback provider failed as well: %v", err)
	}

	return &Synthesis{Content: staticFallbackAnswer, WebCitations: citations}
}

// composeSystemPrompt merges contexts and formatting constraints into one
// system prompt shared by both providers.
func (s *Synthesizer) composeSystemPrompt(req Request) string {
	var sb strings.Builder

	if req.SystemHeader != "" {
		sb.WriteString(req.SystemHeader)
		sb.WriteString("\n\n")
	} else {
		sb.WriteString("You are the assistant for a collaborative marketing funnel canvas. ")
		sb.WriteString("Answer in the user's language, grounded on the context below.\n\n")
	}

	if req.KnowledgeContext != "" {
		sb.WriteString("<knowledge_context>\n")
		sb.WriteString(req.KnowledgeContext)
		sb.WriteString("\n</knowledge_context>\n\n")
	}

	if req.WebContext != "" {
		sb.WriteString("<web_context>\n")
		sb.WriteString(req.WebContext)
		sb.WriteString("\n</web_context>\n\n")
	}

	if req.HistoryText != "" {
		sb.WriteString("<conversation_history>\n")
		sb.WriteString(req.HistoryText)
		sb.WriteString("\n</conversation_history>\n\n")
	}

	sb.WriteString("Formatting rules:\n")
	sb.WriteString("1. Plain text only. Never use markdown symbols (#, *, `, -).\n")
	sb.WriteString("2. Structure multi-part answers as numbered lists (1. 2. 3.).\n")
	sb.WriteString("3. Be concise and concrete. Do not restate the question.\n")
	sb.WriteString("4. If the context does not cover the question, say so instead of inventing facts.\n")

	return sb.String()
}

// MergeCitations appends primary-provider URLs to the pre-computed web
// citations and caps the total. Deduplication by normalized URL is
// configurable because historical behavior kept duplicates.
func MergeCitations(webCitations []rag.WebCitation, primaryURLs []string, dedupe bool) []rag.WebCitation {
	merged := make([]rag.WebCitation, 0, len(webCitations)+len(primaryURLs))
	seen := make(map[string]bool)

	add := func(c rag.WebCitation) {
		if dedupe {
			key := normalizeURL(c.URL)
			if seen[key] {
				return
			}
			seen[key] = true
		}
		merged = append(merged, c)
	}

	for _, c := range webCitations {
		add(c)
	}
	for _, u := range primaryURLs {
		add(rag.WebCitation{
			Title:  hostOf(u),
			URL:    u,
			Source: hostOf(u),
		})
	}

	if len(merged) > maxMergedWebCitations {
		merged = merged[:maxMergedWebCitations]
	}
	return merged
}

func normalizeURL(raw string) string {
	return strings.TrimSuffix(strings.ToLower(strings.TrimSpace(raw)), "/")
}

func hostOf(raw string) string {
	parsed, err := url.Parse(raw)
	if err != nil || parsed.Host == "" {
		return raw
	}
	return strings.TrimPrefix(parsed.Host, "www.")
}

// Headers for the two summary actions. They reuse the same synthesis path
// with a task-specific framing instead of a separate prompt pipeline.
func ConversationSummaryHeader() string {
	return "You are the assistant for a collaborative marketing funnel canvas. " +
		"Summarize the conversation so far in the user's language. " +
		"Cover decisions made, open questions and next steps."
}

func KnowledgeSummaryHeader() string {
	return "You are the assistant for a collaborative marketing funnel canvas. " +
		"Give an overview of the knowledge context below in the user's language. " +
		"Group related documents and call out gaps."
}
