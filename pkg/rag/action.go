package rag

import (
	"fmt"
	"strings"
)

// Action is the closed set of terminal decisions the classifier can reach for
// a single request. Dispatch over it must be exhaustive; an unknown value is
// an error, never a silent default.
type Action string

const (
	ActionKnowledgeOnly       Action = "KNOWLEDGE_ONLY"
	ActionWebSearch           Action = "WEB_SEARCH"
	ActionClarify             Action = "CLARIFY"
	ActionConversationSummary Action = "CONVERSATION_SUMMARY"
	ActionKnowledgeSummary    Action = "KNOWLEDGE_SUMMARY"
)

// ParseAction normalizes a raw classifier label into an Action.
func ParseAction(raw string) (Action, error) {
	switch Action(strings.ToUpper(strings.TrimSpace(raw))) {
	case ActionKnowledgeOnly:
		return ActionKnowledgeOnly, nil
	case ActionWebSearch:
		return ActionWebSearch, nil
	case ActionClarify:
		return ActionClarify, nil
	case ActionConversationSummary:
		return ActionConversationSummary, nil
	case ActionKnowledgeSummary:
		return ActionKnowledgeSummary, nil
	default:
		return "", fmt.Errorf("unknown action %q", raw)
	}
}

// ActionDecision is the classifier's verdict for one request.
//
// Invariants: SearchQuery is non-empty iff Action is WEB_SEARCH;
// ClarificationQuestion is non-empty iff Action is CLARIFY.
type ActionDecision struct {
	Action                Action `json:"action"`
	Reason                string `json:"reason"`
	SearchQuery           string `json:"search_query,omitempty"`
	ClarificationQuestion string `json:"clarification_question,omitempty"`
}

// Validate enforces the per-action field invariants.
func (d *ActionDecision) Validate() error {
	switch d.Action {
	case ActionWebSearch:
		if strings.TrimSpace(d.SearchQuery) == "" {
			return fmt.Errorf("WEB_SEARCH decision requires a search query")
		}
	case ActionClarify:
		if strings.TrimSpace(d.ClarificationQuestion) == "" {
			return fmt.Errorf("CLARIFY decision requires a clarification question")
		}
	case ActionKnowledgeOnly, ActionConversationSummary, ActionKnowledgeSummary:
		// No extra fields required.
	default:
		return fmt.Errorf("unknown action %q", d.Action)
	}
	if d.Action != ActionWebSearch {
		d.SearchQuery = ""
	}
	if d.Action != ActionClarify {
		d.ClarificationQuestion = ""
	}
	return nil
}
