package decision

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"strings"

	"funnel-canvas-be/pkg/llm"
	"funnel-canvas-be/pkg/rag"

	"github.com/kaptinlin/jsonrepair"
)

// Thresholds for the sufficiency heuristic, expressed on the 0-100
// relevance scale.
const (
	minChunksForJudgment = 3
	minContextChars      = 300

	topStrong   = 95.0
	topGood     = 85.0
	avgGood     = 80.0
	topModerate = 75.0
	deepMatches = 5
)

// Engine classifies one request into a terminal action. The primary judge is
// an LLM prompted for JSON; when the call or the parse fails the engine falls
// back to a similarity heuristic so the pipeline never stalls on a broken
// classifier.
type Engine struct {
	llmProvider llm.ChatProvider
	logger      *log.Logger
}

// NewEngine creates a new action decision engine
func NewEngine(llmProvider llm.ChatProvider, logger *log.Logger) *Engine {
	return &Engine{
		llmProvider: llmProvider,
		logger:      logger,
	}
}

// Decide returns the action verdict for the message given what retrieval
// found. The returned decision always passes Validate.
func (e *Engine) Decide(
	ctx context.Context,
	message string,
	history []rag.ConversationTurn,
	retrieval *rag.Retrieval,
) *rag.ActionDecision {

	prompt := composePrompt(message, history, retrieval)

	response, err := e.llmProvider.Generate(ctx, prompt, llm.WithTemperature(0.0))
	if err != nil {
		e.logger.Printf("[WARN] Decision LLM call failed, using heuristic: %v", err)
		return e.heuristic(message, retrieval)
	}

	decision, err := parseDecision(response)
	if err != nil {
		e.logger.Printf("[WARN] Decision parse failed, using heuristic: %v", err)
		return e.heuristic(message, retrieval)
	}

	if err := decision.Validate(); err != nil {
		e.logger.Printf("[WARN] Decision invalid (%v), using heuristic", err)
		return e.heuristic(message, retrieval)
	}

	e.logger.Printf("[DEBUG] Action decision: %s (%s)", decision.Action, decision.Reason)
	return decision
}

// heuristic is the deterministic fallback: answer from knowledge when the
// match quality clears the bar, otherwise search the web with the user's
// message as the query.
func (e *Engine) heuristic(message string, retrieval *rag.Retrieval) *rag.ActionDecision {
	if HasSufficientKnowledge(retrieval) {
		return &rag.ActionDecision{
			Action: rag.ActionKnowledgeOnly,
			Reason: "knowledge base matches are strong enough to answer directly",
		}
	}
	return &rag.ActionDecision{
		Action:      rag.ActionWebSearch,
		Reason:      "knowledge base coverage is insufficient",
		SearchQuery: message,
	}
}

// HasSufficientKnowledge judges whether retrieval alone can carry the answer.
// It requires a minimum number of matches, a minimum context size, and one of
// three quality profiles: a near-perfect top match, a good top match backed
// by a good average, or a moderate top match backed by depth.
func HasSufficientKnowledge(retrieval *rag.Retrieval) bool {
	if retrieval == nil || !retrieval.RAGSuccess {
		return false
	}
	if len(retrieval.Chunks) < minChunksForJudgment {
		return false
	}
	if len(retrieval.Context) < minContextChars {
		return false
	}

	top := rag.SimilarityToPercent(retrieval.Chunks[0].Similarity)
	for _, c := range retrieval.Chunks[1:] {
		if p := rag.SimilarityToPercent(c.Similarity); p > top {
			top = p
		}
	}

	sum := 0.0
	for i := 0; i < 3; i++ {
		sum += rag.SimilarityToPercent(retrieval.Chunks[i].Similarity)
	}
	avgTop3 := sum / 3

	switch {
	case top >= topStrong:
		return true
	case top >= topGood && avgTop3 >= avgGood:
		return true
	case top >= topModerate && len(retrieval.Chunks) >= deepMatches:
		return true
	default:
		return false
	}
}

// parseDecision extracts the JSON verdict from a model response. Malformed
// output goes through a repair pass before giving up.
func parseDecision(response string) (*rag.ActionDecision, error) {
	jsonContent := extractJSON(response)

	var raw struct {
		Action                string `json:"action"`
		Reason                string `json:"reason"`
		SearchQuery           string `json:"search_query"`
		ClarificationQuestion string `json:"clarification_question"`
	}

	if err := json.Unmarshal([]byte(jsonContent), &raw); err != nil {
		repaired, repairErr := jsonrepair.JSONRepair(jsonContent)
		if repairErr != nil {
			return nil, &rag.ParseError{Raw: response, Err: err}
		}
		if err := json.Unmarshal([]byte(repaired), &raw); err != nil {
			return nil, &rag.ParseError{Raw: response, Err: err}
		}
	}

	action, err := rag.ParseAction(raw.Action)
	if err != nil {
		return nil, &rag.ParseError{Raw: response, Err: err}
	}

	return &rag.ActionDecision{
		Action:                action,
		Reason:                raw.Reason,
		SearchQuery:           strings.TrimSpace(raw.SearchQuery),
		ClarificationQuestion: strings.TrimSpace(raw.ClarificationQuestion),
	}, nil
}

// extractJSON isolates JSON content from response
func extractJSON(response string) string {
	startIdx := strings.Index(response, "{")
	endIdx := strings.LastIndex(response, "}")

	if startIdx == -1 || endIdx == -1 || endIdx <= startIdx {
		return response
	}

	return response[startIdx : endIdx+1]
}

// composePrompt builds the structured classification prompt.
func composePrompt(message string, history []rag.ConversationTurn, retrieval *rag.Retrieval) string {
	var prompt strings.Builder

	writeSystemRole(&prompt)
	writeActionDefinitions(&prompt)
	writeRetrievalContext(&prompt, retrieval)
	writeConversation(&prompt, history)
	writeUserInput(&prompt, message)
	writeOutputStructure(&prompt)

	return prompt.String()
}

func writeSystemRole(prompt *strings.Builder) {
	prompt.WriteString("<system_role>\n")
	prompt.WriteString("You are the routing judge for a marketing funnel canvas assistant.\n")
	prompt.WriteString("You decide how the assistant should answer, not what the answer is.\n")
	prompt.WriteString("Base your verdict on what the user is trying to ACHIEVE and on how well\n")
	prompt.WriteString("the retrieved knowledge covers their question.\n")
	prompt.WriteString("</system_role>\n\n")
}

func writeActionDefinitions(prompt *strings.Builder) {
	prompt.WriteString("<action_definitions>\n")
	prompt.WriteString("Choose exactly ONE action.\n\n")

	prompt.WriteString("<action name=\"KNOWLEDGE_ONLY\">\n")
	prompt.WriteString("  The retrieved knowledge covers the question. Answer from it alone.\n")
	prompt.WriteString("  Example: \"이 제품의 환불 정책은?\" when the refund policy document matched.\n")
	prompt.WriteString("</action>\n\n")

	prompt.WriteString("<action name=\"WEB_SEARCH\">\n")
	prompt.WriteString("  The question needs fresh or external information the knowledge base\n")
	prompt.WriteString("  cannot have: current events, prices, exchange rates, anything the user\n")
	prompt.WriteString("  marks with words like 최신, 오늘, 검색, latest, today.\n")
	prompt.WriteString("  Requires: search_query\n")
	prompt.WriteString("  Example: \"오늘 환율이 어떻게 되나요?\" → search_query about today's exchange rate.\n")
	prompt.WriteString("</action>\n\n")

	prompt.WriteString("<action name=\"CLARIFY\">\n")
	prompt.WriteString("  The question is genuinely ambiguous and any answer would be a guess.\n")
	prompt.WriteString("  Requires: clarification_question\n")
	prompt.WriteString("  Note: Prefer a reasonable inference over asking. Use this sparingly.\n")
	prompt.WriteString("</action>\n\n")

	prompt.WriteString("<action name=\"CONVERSATION_SUMMARY\">\n")
	prompt.WriteString("  The user asks to recap the conversation itself (\"지금까지 얘기한 내용 정리해줘\").\n")
	prompt.WriteString("</action>\n\n")

	prompt.WriteString("<action name=\"KNOWLEDGE_SUMMARY\">\n")
	prompt.WriteString("  The user asks for an overview of the canvas knowledge base as a whole,\n")
	prompt.WriteString("  not an answer to a specific question.\n")
	prompt.WriteString("</action>\n")

	prompt.WriteString("</action_definitions>\n\n")
}

func writeRetrievalContext(prompt *strings.Builder, retrieval *rag.Retrieval) {
	prompt.WriteString("<retrieval_state>\n")
	if retrieval == nil || !retrieval.RAGSuccess {
		prompt.WriteString("Vector retrieval found nothing above the relevance threshold.\n")
	} else {
		top := 0.0
		if len(retrieval.Chunks) > 0 {
			top = rag.SimilarityToPercent(retrieval.Chunks[0].Similarity)
		}
		prompt.WriteString(fmt.Sprintf("Vector retrieval matched %d chunks, best relevance %.0f%%.\n",
			len(retrieval.Chunks), top))
	}
	prompt.WriteString("</retrieval_state>\n\n")
}

func writeConversation(prompt *strings.Builder, history []rag.ConversationTurn) {
	prompt.WriteString("<conversation>\n")
	if len(history) == 0 {
		prompt.WriteString("This is the first message of the conversation.\n")
	} else {
		windowSize := 6
		if len(history) < windowSize {
			windowSize = len(history)
		}
		for _, turn := range history[len(history)-windowSize:] {
			content := turn.Content
			if len(content) > 200 {
				content = content[:200] + "..."
			}
			prompt.WriteString(fmt.Sprintf("%s: %s\n", turn.Role, content))
		}
	}
	prompt.WriteString("</conversation>\n\n")
}

func writeUserInput(prompt *strings.Builder, message string) {
	prompt.WriteString("<user_input>\n")
	prompt.WriteString(message)
	prompt.WriteString("\n</user_input>\n\n")
}

func writeOutputStructure(prompt *strings.Builder) {
	prompt.WriteString("<output_format>\n")
	prompt.WriteString("Respond with ONLY valid JSON in this exact structure:\n\n")
	prompt.WriteString("{\n")
	prompt.WriteString("  \"action\": \"ACTION_NAME\",\n")
	prompt.WriteString("  \"reason\": \"why this action matches the user's intent\",\n")
	prompt.WriteString("  \"search_query\": \"query text (only if action is WEB_SEARCH, otherwise null)\",\n")
	prompt.WriteString("  \"clarification_question\": \"question text (only if action is CLARIFY, otherwise null)\"\n")
	prompt.WriteString("}\n\n")
	prompt.WriteString("IMPORTANT: Output ONLY the JSON. No preamble, no explanation outside the JSON.\n")
	prompt.WriteString("</output_format>\n")
}
