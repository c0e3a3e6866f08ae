package assistant

import (
	openai "github.com/sashabaranov/go-openai"
)

// NewOllamaProvider creates a new OpenAI provider configured for local Ollama
func NewOllamaProvider(host, model string, settings GenerationSettings) *OpenAIProvider {
	if host == "" {
		host = "http://localhost:11434/v1"
	}
	if model == "" {
		model = "llama3.1" // needs a tool-capable model
	}

	config := openai.DefaultConfig("ollama") // API Key is ignored by Ollama usually
	config.BaseURL = host

	return newOpenAICompatibleProvider("ollama", config, model, settings)
}
