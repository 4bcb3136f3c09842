package config

import (
	"fmt"
	"os"
	"strings"
)

// Provider names.
const (
	ProviderAnthropic = "anthropic"
	ProviderOpenAI    = "openai"
	ProviderGoogle    = "google"
	ProviderOllama    = "ollama"
)

// ProviderPattern maps a model-name prefix to a provider.
type ProviderPattern struct {
	Prefix   string
	Provider string
}

// ProviderPatterns defines rules for inferring providers from model names.
// Allows using new models without code changes.
//
//nolint:gochecknoglobals // Intentional global for inference rules
var ProviderPatterns = []ProviderPattern{
	{"claude", ProviderAnthropic},
	{"gpt", ProviderOpenAI},
	{"o1", ProviderOpenAI},
	{"o3", ProviderOpenAI},
	{"o4", ProviderOpenAI},
	{"gemini", ProviderGoogle},
	{"phi", ProviderOllama},
	{"llama", ProviderOllama},
	{"qwen", ProviderOllama},
	{"mistral", ProviderOllama},
	{"deepseek", ProviderOllama},
	{"ollama:", ProviderOllama}, // Explicit prefix like "ollama:phi4"
}

// apiKeyEnv lists the variables consulted for each provider, in order.
//
//nolint:gochecknoglobals // static lookup table
var apiKeyEnv = map[string][]string{
	ProviderAnthropic: {"ANTHROPIC_API_KEY"},
	ProviderOpenAI:    {"OPENAI_API_KEY"},
	ProviderGoogle:    {"GEMINI_API_KEY", "GOOGLE_API_KEY"},
}

// DefaultOllamaHost is used when OLLAMA_HOST is unset.
const DefaultOllamaHost = "http://localhost:11434"

// GetModelProvider returns the API provider for a given model.
func GetModelProvider(modelName string) (string, error) {
	name := strings.ToLower(modelName)
	for i := range ProviderPatterns {
		if strings.HasPrefix(name, ProviderPatterns[i].Prefix) {
			return ProviderPatterns[i].Provider, nil
		}
	}
	return "", fmt.Errorf("unknown model '%s': no provider pattern matches", modelName)
}

// OllamaModelName strips the explicit "ollama:" prefix.
func OllamaModelName(modelName string) string {
	return strings.TrimPrefix(modelName, "ollama:")
}

// GetAPIKey returns the credential for a provider from the decrypted secrets
// file or the environment. For Ollama it returns the server URL instead.
func GetAPIKey(provider string) (string, error) {
	if provider == ProviderOllama {
		if host := os.Getenv("OLLAMA_HOST"); host != "" {
			if !strings.Contains(host, "://") {
				host = "http://" + host
			}
			return host, nil
		}
		return DefaultOllamaHost, nil
	}

	names, ok := apiKeyEnv[provider]
	if !ok {
		return "", fmt.Errorf("unknown provider %q", provider)
	}
	for _, name := range names {
		if value, err := GetSecret(name); err == nil {
			return value, nil
		}
	}
	return "", fmt.Errorf("no API key for %s: set %s", provider, strings.Join(names, " or "))
}
