package main

import (
	"context"
	"fmt"
	"strings"

	"github.com/reinhart/mcpdemo/internal/assistant"
	"github.com/reinhart/mcpdemo/internal/configuration"
	"github.com/reinhart/mcpdemo/internal/logger"
)

// missingKeyError renders the setup hint shown when a provider has no credentials.
func missingKeyError(envVar, tomlKey, example string) error {
	var b strings.Builder
	b.WriteString("━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━\n")
	fmt.Fprintf(&b, "Error: %s not set\n\n", envVar)
	b.WriteString("Set it via environment variable:\n")
	fmt.Fprintf(&b, "  export %s='%s'\n\n", envVar, example)
	b.WriteString("Or add it to ~/.config/mcpdemo/config.toml:\n")
	b.WriteString("  [llm]\n")
	fmt.Fprintf(&b, "  %s = \"%s\"\n", tomlKey, example)
	b.WriteString("━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━")
	return fmt.Errorf("%s", b.String())
}

// newProvider builds the chat backend named by llm.provider.
func newProvider(ctx context.Context, cfg configuration.LLMConfig) (assistant.LLMProvider, error) {
	settings := assistant.GenerationSettings{
		Temperature: cfg.Temperature,
		MaxTokens:   cfg.MaxTokens,
	}
	logger.Debug("Selected Provider: %s", cfg.Provider)

	switch cfg.Provider {
	case "github":
		if cfg.GitHubKey == "" {
			return nil, missingKeyError("GITHUB_API_KEY", "github_api_key", "ghp_...")
		}
		return assistant.NewGitHubModelsProvider(cfg.GitHubKey, cfg.GitHubModel, settings), nil

	case "openai":
		if cfg.OpenAIKey == "" {
			return nil, missingKeyError("OPENAI_API_KEY", "openai_api_key", "sk-...")
		}
		return assistant.NewOpenAIProvider(cfg.OpenAIKey, cfg.OpenAIModel, settings), nil

	case "anthropic":
		if cfg.AnthropicKey == "" {
			return nil, missingKeyError("ANTHROPIC_API_KEY", "anthropic_api_key", "sk-ant-...")
		}
		return assistant.NewAnthropicProvider(cfg.AnthropicKey, cfg.AnthropicModel, settings), nil

	case "gemini":
		if cfg.GeminiKey == "" {
			return nil, missingKeyError("GEMINI_API_KEY", "gemini_api_key", "...")
		}
		p, err := assistant.NewGeminiProvider(ctx, cfg.GeminiKey, cfg.GeminiModel, settings)
		if err != nil {
			return nil, fmt.Errorf("initializing Gemini: %w", err)
		}
		return p, nil

	case "ollama":
		return assistant.NewOllamaProvider(cfg.OllamaHost, cfg.OllamaModel, settings), nil

	default:
		return nil, fmt.Errorf("unknown LLM provider %q. Supported: %s", cfg.Provider, strings.Join(configuration.Providers, ", "))
	}
}
