package rag

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseAction(t *testing.T) {
	tests := []struct {
		name    string
		raw     string
		want    Action
		wantErr bool
	}{
		{"canonical", "KNOWLEDGE_ONLY", ActionKnowledgeOnly, false},
		{"lowercase", "web_search", ActionWebSearch, false},
		{"surrounding whitespace", "  CLARIFY  ", ActionClarify, false},
		{"mixed case", "Conversation_Summary", ActionConversationSummary, false},
		{"knowledge summary", "knowledge_summary", ActionKnowledgeSummary, false},
		{"unknown label", "SUMMARIZE", "", true},
		{"empty", "", "", true},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got, err := ParseAction(tc.raw)
			if tc.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tc.want, got)
		})
	}
}

func TestActionDecisionValidate(t *testing.T) {
	t.Run("web search requires query", func(t *testing.T) {
		d := &ActionDecision{Action: ActionWebSearch}
		assert.Error(t, d.Validate())

		d.SearchQuery = "오늘 환율"
		assert.NoError(t, d.Validate())
	})

	t.Run("clarify requires question", func(t *testing.T) {
		d := &ActionDecision{Action: ActionClarify, ClarificationQuestion: "  "}
		assert.Error(t, d.Validate())

		d.ClarificationQuestion = "어떤 캔버스를 말씀하시는 건가요?"
		assert.NoError(t, d.Validate())
	})

	t.Run("extra fields are cleared for other actions", func(t *testing.T) {
		d := &ActionDecision{
			Action:                ActionKnowledgeOnly,
			SearchQuery:           "leftover",
			ClarificationQuestion: "leftover",
		}
		require.NoError(t, d.Validate())
		assert.Empty(t, d.SearchQuery)
		assert.Empty(t, d.ClarificationQuestion)
	})

	t.Run("unknown action rejected", func(t *testing.T) {
		d := &ActionDecision{Action: Action("SUMMARIZE")}
		assert.Error(t, d.Validate())
	})
}
