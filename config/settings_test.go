package config

import (
	"os"
	"testing"
)

func TestNewValidProvider(t *testing.T) {
	settings, err := New("openai")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if settings.LLM.Provider != "openai" {
		t.Errorf("expected provider 'openai', got %q", settings.LLM.Provider)
	}
	if settings.LLM.Model == "" {
		t.Error("expected a default model")
	}
}

func TestNewWithAlias(t *testing.T) {
	settings, err := New("claude")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if settings.LLM.Provider != "anthropic" {
		t.Errorf("expected provider 'anthropic' (normalized from 'claude'), got %q", settings.LLM.Provider)
	}
}

func TestNewUnknownProvider(t *testing.T) {
	_, err := New("unknown_provider")
	if err == nil {
		t.Error("expected error for unknown provider")
	}
}

func TestNewWithInvalidEnvVar(t *testing.T) {
	original := os.Getenv("SEARCH_MAX_MATCHES")
	os.Setenv("SEARCH_MAX_MATCHES", "not-a-number")
	defer os.Setenv("SEARCH_MAX_MATCHES", original)

	_, err := New("openai")
	if err == nil {
		t.Error("expected error for invalid SEARCH_MAX_MATCHES")
	}
}

func TestNewDefaults(t *testing.T) {
	settings, err := New("openai")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if settings.Search.MaxMatches != 100 {
		t.Errorf("expected default max matches 100, got %d", settings.Search.MaxMatches)
	}
	if settings.Edit.MinGuardedBytes != 200 {
		t.Errorf("expected default guarded bytes 200, got %d", settings.Edit.MinGuardedBytes)
	}
	if settings.Edit.NearLineWindow != 20 {
		t.Errorf("expected default near-line window 20, got %d", settings.Edit.NearLineWindow)
	}
}

func TestPoolLimitsClamped(t *testing.T) {
	originalTasks := os.Getenv("POOL_MAX_TASKS")
	originalConc := os.Getenv("POOL_MAX_CONCURRENCY")
	os.Setenv("POOL_MAX_TASKS", "16")
	os.Setenv("POOL_MAX_CONCURRENCY", "0")
	defer func() {
		os.Setenv("POOL_MAX_TASKS", originalTasks)
		os.Setenv("POOL_MAX_CONCURRENCY", originalConc)
	}()

	settings, err := New("openai")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if settings.Pool.MaxTasks != 4 {
		t.Errorf("expected task cap clamped to 4, got %d", settings.Pool.MaxTasks)
	}
	if settings.Pool.MaxConcurrency != 1 {
		t.Errorf("expected concurrency clamped up to 1, got %d", settings.Pool.MaxConcurrency)
	}
}

func TestAPIKeyForValidProvider(t *testing.T) {
	original := os.Getenv("OPENAI_API_KEY")
	os.Setenv("OPENAI_API_KEY", "test-key")
	defer os.Setenv("OPENAI_API_KEY", original)

	key, err := APIKeyFor("openai")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if key != "test-key" {
		t.Errorf("expected 'test-key', got %q", key)
	}
}

func TestAPIKeyForMissing(t *testing.T) {
	original := os.Getenv("OPENAI_API_KEY")
	os.Unsetenv("OPENAI_API_KEY")
	defer os.Setenv("OPENAI_API_KEY", original)

	_, err := APIKeyFor("openai")
	if err == nil {
		t.Error("expected error for missing API key")
	}
}

func TestSupportedProviders(t *testing.T) {
	providers := SupportedProviders()
	if len(providers) != 3 {
		t.Errorf("expected 3 providers, got %d", len(providers))
	}
}
