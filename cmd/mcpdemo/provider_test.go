package main

import (
	"context"
	"strings"
	"testing"

	"github.com/reinhart/mcpdemo/internal/assistant"
	"github.com/reinhart/mcpdemo/internal/configuration"
)

func TestNewProvider(t *testing.T) {
	ctx := context.Background()
	base := configuration.DefaultConfig().LLM

	t.Run("missing key", func(t *testing.T) {
		cfg := base
		cfg.Provider = "anthropic"
		_, err := newProvider(ctx, cfg)
		if err == nil || !strings.Contains(err.Error(), "ANTHROPIC_API_KEY") {
			t.Fatalf("err = %v", err)
		}
	})

	t.Run("github", func(t *testing.T) {
		cfg := base
		cfg.GitHubKey = "ghp_test"
		p, err := newProvider(ctx, cfg)
		if err != nil {
			t.Fatal(err)
		}
		if _, ok := p.(*assistant.OpenAIProvider); !ok {
			t.Errorf("provider = %T", p)
		}
	})

	t.Run("ollama needs no key", func(t *testing.T) {
		cfg := base
		cfg.Provider = "ollama"
		if _, err := newProvider(ctx, cfg); err != nil {
			t.Fatal(err)
		}
	})

	t.Run("unknown", func(t *testing.T) {
		cfg := base
		cfg.Provider = "watson"
		if _, err := newProvider(ctx, cfg); err == nil {
			t.Fatal("expected error")
		}
	})
}
