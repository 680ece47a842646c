// Package config resolves two configuration layers: process-level
// LLM/session settings (env vars plus a .env file and XDG credentials)
// and a workspace-level advisory file, bailu.yaml.
package config

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"bailu/internal/llm"
	"bailu/internal/tools"
)

// Config holds the resolved process-level settings: API_KEY/BASE_URL/
// MODEL_NAME for the LLM transport, SAFETY_MODE for the mediator's
// default policy, CONFIG_DIR for on-disk artifact placement, and DEBUG
// for verbose logging.
type Config struct {
	Provider   llm.Provider
	APIKey     string
	Model      string
	BaseURL    string
	MaxTokens  int
	SafetyMode tools.SafetyMode
	ConfigDir  string
	Debug      bool
}

// Load resolves Config from the environment, loading .env (cwd) and
// the XDG credentials file first so either can set variables the
// process environment doesn't already have. provider selects which
// API_KEY/BASE_URL/MODEL_NAME defaults apply; empty defaults to
// "anthropic".
func Load(provider string) (*Config, error) {
	loadEnvFile(".env")

	configDir, err := resolveConfigDir()
	if err != nil {
		return nil, err
	}
	loadEnvFile(filepath.Join(configDir, "credentials"))

	if provider == "" {
		provider = string(llm.ProviderAnthropic)
	}

	defaultModel, defaultBaseURL, maxTokens := providerDefaults(llm.Provider(provider))

	safetyModeStr := os.Getenv("SAFETY_MODE")
	if safetyModeStr == "" {
		safetyModeStr = string(tools.ModeReview)
	}
	safetyMode, err := tools.ParseSafetyMode(safetyModeStr)
	if err != nil {
		return nil, fmt.Errorf("SAFETY_MODE: %w", err)
	}

	cfg := &Config{
		Provider:   llm.Provider(provider),
		APIKey:     os.Getenv("API_KEY"),
		Model:      firstNonEmptyEnv("MODEL_NAME", defaultModel),
		BaseURL:    firstNonEmptyEnv("BASE_URL", defaultBaseURL),
		MaxTokens:  maxTokens,
		SafetyMode: safetyMode,
		ConfigDir:  configDir,
		Debug:      os.Getenv("DEBUG") != "",
	}
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("API_KEY is not set (set it in the environment, .env, or %s/credentials)", configDir)
	}
	return cfg, nil
}

func providerDefaults(provider llm.Provider) (model, baseURL string, maxTokens int) {
	switch provider {
	case llm.ProviderOpenAI:
		return "gpt-4o-mini", "https://api.openai.com/v1", 16384
	default:
		return "claude-sonnet-4-5-20250929", "https://api.anthropic.com/v1", 16384
	}
}

func firstNonEmptyEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

// resolveConfigDir honors CONFIG_DIR, falling back to the XDG config
// directory: $XDG_CONFIG_HOME/bailu or ~/.config/bailu.
func resolveConfigDir() (string, error) {
	if dir := os.Getenv("CONFIG_DIR"); dir != "" {
		return dir, nil
	}
	if dir := os.Getenv("XDG_CONFIG_HOME"); dir != "" && filepath.IsAbs(dir) {
		return filepath.Join(dir, "bailu"), nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("resolve home directory: %w", err)
	}
	return filepath.Join(home, ".config", "bailu"), nil
}

// loadEnvFile reads a KEY=VALUE file, ignoring comments and blank
// lines, and sets only variables not already present in the process
// environment — a file never overrides an explicit env var.
func loadEnvFile(path string) {
	f, err := os.Open(path)
	if err != nil {
		return
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		key, value, ok := strings.Cut(line, "=")
		if !ok {
			continue
		}
		key = strings.TrimSpace(key)
		value = strings.TrimSpace(value)
		if len(value) >= 2 && (value[0] == '"' || value[0] == '\'') && value[len(value)-1] == value[0] {
			value = value[1 : len(value)-1]
		}
		if os.Getenv(key) == "" {
			os.Setenv(key, value)
		}
	}
}
