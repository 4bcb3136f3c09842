// Package technology recommends a phased technology stack from a static catalog.
package technology

import (
	_ "embed"
	"fmt"
	"sync"

	"gopkg.in/yaml.v3"
)

//go:embed catalog.yaml
var catalogYAML []byte

// CatalogOption is one vendor product listed under a category.
type CatalogOption struct {
	Name                     string   `yaml:"name"`
	Vendor                   string   `yaml:"vendor"`
	Description              string   `yaml:"description"`
	KeyFeatures              []string `yaml:"key_features"`
	Pros                     []string `yaml:"pros"`
	Cons                     []string `yaml:"cons"`
	CostRange                string   `yaml:"cost_range"`
	ImplementationComplexity string   `yaml:"implementation_complexity"`
	IndustryFocus            []string `yaml:"industry_focus"`
	Integrations             []string `yaml:"integrations"`
	SupportsGoals            []string `yaml:"supports_goals"`
	AddressesChallenges      []string `yaml:"addresses_challenges"`
	URL                      string   `yaml:"url"`
}

// CatalogCategory groups options that serve the same capability.
type CatalogCategory struct {
	Name                string          `yaml:"name"`
	Description         string          `yaml:"description"`
	RelatedDimension    string          `yaml:"related_dimension"`
	DependsOn           []string        `yaml:"depends_on"`
	SupportsGoals       []string        `yaml:"supports_goals"`
	AddressesChallenges []string        `yaml:"addresses_challenges"`
	Options             []CatalogOption `yaml:"options"`
}

// Catalog is the full set of categories known to the recommender.
type Catalog struct {
	Standard   []CatalogCategory            `yaml:"standard"`
	Industries map[string][]CatalogCategory `yaml:"industries"`
}

// ParseCatalog decodes a catalog document.
func ParseCatalog(data []byte) (*Catalog, error) {
	var c Catalog
	if err := yaml.Unmarshal(data, &c); err != nil {
		return nil, fmt.Errorf("parse technology catalog: %w", err)
	}
	if len(c.Standard) == 0 {
		return nil, fmt.Errorf("technology catalog has no standard categories")
	}
	return &c, nil
}

//nolint:gochecknoglobals // parsed once from embedded data
var (
	defaultOnce    sync.Once
	defaultCatalog *Catalog
	defaultErr     error
)

// DefaultCatalog returns the embedded catalog.
func DefaultCatalog() (*Catalog, error) {
	defaultOnce.Do(func() {
		defaultCatalog, defaultErr = ParseCatalog(catalogYAML)
	})
	return defaultCatalog, defaultErr
}

// CategoriesFor returns the standard categories followed by those declared for
// the exact industry key.
func (c *Catalog) CategoriesFor(industry string) []CatalogCategory {
	out := make([]CatalogCategory, 0, len(c.Standard)+len(c.Industries[industry]))
	out = append(out, c.Standard...)
	out = append(out, c.Industries[industry]...)
	return out
}
