package factory

import (
	"fmt"

	"funnel-canvas-be/pkg/llm"
	"funnel-canvas-be/pkg/llm/openai"
)

// NewChatProvider builds the configured plain chat backend.
func NewChatProvider(providerName, modelName, openAIKey string) (llm.ChatProvider, error) {
	switch providerName {
	case "openai", "":
		if openAIKey == "" {
			return nil, fmt.Errorf("openai provider requires OPENAI_API_KEY")
		}
		return openai.NewOpenAIProvider(openAIKey, modelName), nil
	default:
		return nil, fmt.Errorf("unsupported LLM provider: %s", providerName)
	}
}
