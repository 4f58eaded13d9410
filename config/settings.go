// Package config provides application settings loaded from environment variables.
//
// Settings are created via New() which handles:
// - Environment variable parsing with validation
// - Default value application
// - Provider-specific configuration lookup

package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Settings holds all application configuration.
type Settings struct {
	LLM    LLMConfig
	Search SearchConfig
	Edit   EditConfig
	Pool   PoolConfig
}

// LLMConfig holds reasoning-backend configuration.
type LLMConfig struct {
	Provider    string
	Model       string
	MaxTokens   uint32
	Temperature float64
}

// SearchConfig bounds search output.
type SearchConfig struct {
	MaxMatches    int // hard ceiling on matches per search
	MaxOutputSize int // byte budget for formatted output
	SynonymPath   string
}

// EditConfig holds edit-resolution tuning values. Guardrail thresholds are
// product-tuning values, so they live here rather than in code.
type EditConfig struct {
	MinGuardedBytes  int // files smaller than this may be overwritten freely
	MaxShrinkPercent int // refuse overwrites shrinking content beyond this
	NearLineWindow   int // lines either side of a line hint
}

// PoolConfig holds worker pool limits.
type PoolConfig struct {
	MaxTasks       int
	MaxConcurrency int
	WorkerTimeout  time.Duration
}

// providerInfo holds configuration for a specific LLM provider.
type providerInfo struct {
	modelEnv     string
	defaultModel string
	apiKeyEnv    string
}

// Supported providers and their configuration.
var providers = map[string]providerInfo{
	"openai":    {"OPENAI_MODEL", "gpt-4o", "OPENAI_API_KEY"},
	"anthropic": {"ANTHROPIC_MODEL", "claude-sonnet-4-20250514", "ANTHROPIC_API_KEY"},
	"gemini":    {"GEMINI_MODEL", "gemini-2.5-flash", "GEMINI_API_KEY"},
}

// Provider aliases map to canonical names.
var providerAliases = map[string]string{
	"claude": "anthropic",
	"google": "gemini",
	"gpt":    "openai",
}

// New creates settings for the specified provider, loading values from
// environment variables. Returns an error if the provider is unknown or an
// environment variable contains an invalid value.
func New(provider string) (Settings, error) {
	provider = normalizeProvider(provider)

	info, err := getProviderInfo(provider)
	if err != nil {
		return Settings{}, err
	}

	maxTokens, err := getEnvUint32("LLM_MAX_TOKENS", 4096)
	if err != nil {
		return Settings{}, err
	}
	temperature, err := getEnvFloat64("LLM_TEMPERATURE", 0.7)
	if err != nil {
		return Settings{}, err
	}

	maxMatches, err := getEnvInt("SEARCH_MAX_MATCHES", 100)
	if err != nil {
		return Settings{}, err
	}
	maxOutput, err := getEnvInt("SEARCH_MAX_OUTPUT_BYTES", 16384)
	if err != nil {
		return Settings{}, err
	}

	minGuarded, err := getEnvInt("EDIT_MIN_GUARDED_BYTES", 200)
	if err != nil {
		return Settings{}, err
	}
	maxShrink, err := getEnvInt("EDIT_MAX_SHRINK_PERCENT", 60)
	if err != nil {
		return Settings{}, err
	}
	nearWindow, err := getEnvInt("EDIT_NEAR_LINE_WINDOW", 20)
	if err != nil {
		return Settings{}, err
	}

	maxTasks, err := getEnvInt("POOL_MAX_TASKS", 4)
	if err != nil {
		return Settings{}, err
	}
	maxConcurrency, err := getEnvInt("POOL_MAX_CONCURRENCY", 4)
	if err != nil {
		return Settings{}, err
	}
	workerTimeoutSecs, err := getEnvInt("POOL_WORKER_TIMEOUT_SECS", 120)
	if err != nil {
		return Settings{}, err
	}

	model := os.Getenv(info.modelEnv)
	if model == "" {
		model = info.defaultModel
	}

	return Settings{
		LLM: LLMConfig{
			Provider:    provider,
			Model:       model,
			MaxTokens:   maxTokens,
			Temperature: temperature,
		},
		Search: SearchConfig{
			MaxMatches:    maxMatches,
			MaxOutputSize: maxOutput,
			SynonymPath:   os.Getenv("SEARCH_SYNONYM_FILE"),
		},
		Edit: EditConfig{
			MinGuardedBytes:  minGuarded,
			MaxShrinkPercent: maxShrink,
			NearLineWindow:   nearWindow,
		},
		Pool: PoolConfig{
			MaxTasks:       clampPool(maxTasks),
			MaxConcurrency: clampPool(maxConcurrency),
			WorkerTimeout:  time.Duration(workerTimeoutSecs) * time.Second,
		},
	}, nil
}

// clampPool keeps pool limits within the hard cap of 4.
func clampPool(n int) int {
	if n < 1 {
		return 1
	}
	if n > 4 {
		return 4
	}
	return n
}

// normalizeProvider converts provider aliases to canonical names.
func normalizeProvider(provider string) string {
	provider = strings.ToLower(provider)
	if canonical, ok := providerAliases[provider]; ok {
		return canonical
	}
	return provider
}

// getProviderInfo returns configuration for a provider.
func getProviderInfo(provider string) (providerInfo, error) {
	info, ok := providers[provider]
	if !ok {
		return providerInfo{}, fmt.Errorf("unknown provider: %q", provider)
	}
	return info, nil
}

// APIKeyFor returns the API key for a provider from environment variables.
func APIKeyFor(provider string) (string, error) {
	provider = normalizeProvider(provider)

	info, err := getProviderInfo(provider)
	if err != nil {
		return "", err
	}

	key := os.Getenv(info.apiKeyEnv)
	if key == "" {
		return "", fmt.Errorf("%s environment variable not set", info.apiKeyEnv)
	}
	return key, nil
}

// SupportedProviders returns the list of supported provider names.
func SupportedProviders() []string {
	result := make([]string, 0, len(providers))
	for name := range providers {
		result = append(result, name)
	}
	return result
}

// Environment variable helpers with proper error handling

func getEnvInt(key string, defaultVal int) (int, error) {
	val := os.Getenv(key)
	if val == "" {
		return defaultVal, nil
	}
	i, err := strconv.Atoi(val)
	if err != nil {
		return 0, fmt.Errorf("invalid value for %s: %q: %w", key, val, err)
	}
	return i, nil
}

func getEnvUint32(key string, defaultVal uint32) (uint32, error) {
	val := os.Getenv(key)
	if val == "" {
		return defaultVal, nil
	}
	i, err := strconv.ParseUint(val, 10, 32)
	if err != nil {
		return 0, fmt.Errorf("invalid value for %s: %q: %w", key, val, err)
	}
	return uint32(i), nil
}

func getEnvFloat64(key string, defaultVal float64) (float64, error) {
	val := os.Getenv(key)
	if val == "" {
		return defaultVal, nil
	}
	f, err := strconv.ParseFloat(val, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid value for %s: %q: %w", key, val, err)
	}
	return f, nil
}
