package config

import "testing"

func TestResolveSearchProvider(t *testing.T) {
	SetDecryptedSecrets(nil)

	t.Setenv(EnvGoogleSearchAPIKey, "")
	t.Setenv(EnvGoogleSearchCX, "")
	if got := ResolveSearchProvider(SearchConfig{Provider: "auto"}).Provider; got != SearchProviderDuckDuckGo {
		t.Errorf("auto without keys = %q, want duckduckgo", got)
	}
	if got := ResolveSearchProvider(SearchConfig{Provider: "google"}).Provider; got != SearchProviderNone {
		t.Errorf("google without keys = %q, want none", got)
	}

	t.Setenv(EnvGoogleSearchAPIKey, "key")
	t.Setenv(EnvGoogleSearchCX, "cx")
	status := ResolveSearchProvider(SearchConfig{Provider: "auto"})
	if status.Provider != SearchProviderGoogle || status.GoogleCX != "cx" {
		t.Errorf("auto with keys = %+v", status)
	}
	if got := ResolveSearchProvider(SearchConfig{Provider: "duckduckgo"}).Provider; got != SearchProviderDuckDuckGo {
		t.Errorf("explicit duckduckgo = %q", got)
	}
}
