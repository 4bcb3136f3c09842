package config

import (
	"os"
)

// Search provider environment variable names.
const (
	// EnvGoogleSearchAPIKey is the environment variable for Google Custom Search API key.
	EnvGoogleSearchAPIKey = "GOOGLE_SEARCH_API_KEY"
	// EnvGoogleSearchCX is the environment variable for Google Custom Search Engine ID.
	EnvGoogleSearchCX = "GOOGLE_SEARCH_CX"
)

// SearchProviderType identifies which search provider is available.
type SearchProviderType string

// Search provider type constants.
const (
	SearchProviderNone       SearchProviderType = ""
	SearchProviderGoogle     SearchProviderType = "google"
	SearchProviderDuckDuckGo SearchProviderType = "duckduckgo"
)

// SearchAPIStatus contains information about available search APIs.
type SearchAPIStatus struct {
	Provider     SearchProviderType
	GoogleAPIKey string
	GoogleCX     string
}

// DetectSearchAPIs checks credentials and returns the best available provider.
// DuckDuckGo needs no key and is used when Google is not configured.
func DetectSearchAPIs() SearchAPIStatus {
	googleAPIKey, _ := GetSecret(EnvGoogleSearchAPIKey)
	googleCX := os.Getenv(EnvGoogleSearchCX)
	if googleAPIKey != "" && googleCX != "" {
		return SearchAPIStatus{
			Provider:     SearchProviderGoogle,
			GoogleAPIKey: googleAPIKey,
			GoogleCX:     googleCX,
		}
	}
	return SearchAPIStatus{Provider: SearchProviderDuckDuckGo}
}

// ResolveSearchProvider applies the configured preference to what is available.
// An explicit "google" without credentials resolves to none so callers can
// fall back to answering without search.
func ResolveSearchProvider(cfg SearchConfig) SearchAPIStatus {
	status := DetectSearchAPIs()
	switch SearchProviderType(cfg.Provider) {
	case SearchProviderGoogle:
		if status.Provider != SearchProviderGoogle {
			return SearchAPIStatus{Provider: SearchProviderNone}
		}
	case SearchProviderDuckDuckGo:
		return SearchAPIStatus{Provider: SearchProviderDuckDuckGo}
	}
	return status
}
