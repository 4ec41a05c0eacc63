package config

import "testing"

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("OPENROUTER_API_KEY", "sk-test")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if cfg.Port != "8080" {
		t.Fatalf("expected default port 8080, got %s", cfg.Port)
	}
	if cfg.LLMProvider != ProviderOpenRouter {
		t.Fatalf("expected default provider openrouter, got %s", cfg.LLMProvider)
	}
	if cfg.OpenRouterBaseURL != "https://openrouter.ai/api/v1" {
		t.Fatalf("unexpected base url %s", cfg.OpenRouterBaseURL)
	}
}

func TestLoad_MissingOpenRouterKey(t *testing.T) {
	t.Setenv("LLM_PROVIDER", ProviderOpenRouter)
	t.Setenv("OPENROUTER_API_KEY", "")

	if _, err := Load(); err == nil {
		t.Fatal("expected error when OPENROUTER_API_KEY is missing")
	}
}

func TestLoad_VertexRequiresProject(t *testing.T) {
	t.Setenv("LLM_PROVIDER", ProviderVertex)
	t.Setenv("VERTEX_PROJECT_ID", "")

	if _, err := Load(); err == nil {
		t.Fatal("expected error when VERTEX_PROJECT_ID is missing")
	}

	t.Setenv("VERTEX_PROJECT_ID", "my-project")
	cfg, err := Load()
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if cfg.VertexLocation != "us-central1" || cfg.VertexModel != "gemini-1.5-flash" {
		t.Fatalf("unexpected vertex defaults %+v", cfg)
	}
}

func TestLoad_UnknownProvider(t *testing.T) {
	t.Setenv("LLM_PROVIDER", "bogus")

	if _, err := Load(); err == nil {
		t.Fatal("expected error for unknown provider")
	}
}
