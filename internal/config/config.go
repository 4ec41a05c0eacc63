package config

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
)

const (
	ProviderOpenRouter = "openrouter"
	ProviderVertex     = "vertex"
)

type Config struct {
	Port string `env:"PORT" envDefault:"8080"`

	// LLMProvider selects the chat-completion backend: openrouter|vertex.
	LLMProvider string `env:"LLM_PROVIDER" envDefault:"openrouter"`

	OpenRouterAPIKey  string        `env:"OPENROUTER_API_KEY"`
	OpenRouterBaseURL string        `env:"OPENROUTER_BASE_URL" envDefault:"https://openrouter.ai/api/v1"`
	OpenRouterModel   string        `env:"OPENROUTER_MODEL" envDefault:"qwen/qwen-2.5-7b-instruct"`
	OpenRouterTimeout time.Duration `env:"OPENROUTER_TIMEOUT" envDefault:"30s"`

	VertexProjectID string `env:"VERTEX_PROJECT_ID"`
	VertexLocation  string `env:"VERTEX_LOCATION" envDefault:"us-central1"`
	VertexModel     string `env:"VERTEX_MODEL" envDefault:"gemini-1.5-flash"`
}

func Load() (*Config, error) {
	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) Validate() error {
	switch c.LLMProvider {
	case ProviderOpenRouter:
		if c.OpenRouterAPIKey == "" {
			return fmt.Errorf("OPENROUTER_API_KEY is required when LLM_PROVIDER=%s", ProviderOpenRouter)
		}
	case ProviderVertex:
		if c.VertexProjectID == "" {
			return fmt.Errorf("VERTEX_PROJECT_ID is required when LLM_PROVIDER=%s", ProviderVertex)
		}
	default:
		return fmt.Errorf("LLM_PROVIDER must be %q or %q, got %q", ProviderOpenRouter, ProviderVertex, c.LLMProvider)
	}
	if c.OpenRouterTimeout <= 0 {
		return fmt.Errorf("OPENROUTER_TIMEOUT must be positive, got %s", c.OpenRouterTimeout)
	}
	return nil
}
