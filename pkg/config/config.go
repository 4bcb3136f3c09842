// Package config loads dtplanner configuration from defaults, an optional YAML
// file, a .env file and DTPLANNER_* environment variables, in increasing order
// of precedence.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"dtplanner/pkg/logx"
)

// EnvPrefix is prepended to every environment override, e.g. DTPLANNER_PIPELINE_MAX_TURNS.
const EnvPrefix = "DTPLANNER"

// Storage drivers.
const (
	StorageSQLite   = "sqlite"
	StoragePostgres = "postgres"
	StorageNone     = "none"
)

// Workloads select a model from ModelsConfig.
const (
	WorkloadInterview  = "interview"
	WorkloadAssessment = "assessment"
	WorkloadPlanning   = "planning"
)

// Config holds all configuration for a planning run.
type Config struct {
	Models   ModelsConfig   `mapstructure:"models"`
	Pipeline PipelineConfig `mapstructure:"pipeline"`
	Retry    RetryConfig    `mapstructure:"retry"`
	LLM      LLMConfig      `mapstructure:"llm"`
	Search   SearchConfig   `mapstructure:"search"`
	Storage  StorageConfig  `mapstructure:"storage"`
	Server   ServerConfig   `mapstructure:"server"`
	Metrics  MetricsConfig  `mapstructure:"metrics"`
}

// ModelsConfig selects a model per workload. Empty entries fall back to Default.
type ModelsConfig struct {
	Default    string `mapstructure:"default"`
	Interview  string `mapstructure:"interview"`  // questions, answers, search queries
	Assessment string `mapstructure:"assessment"` // maturity and readiness scoring
	Planning   string `mapstructure:"planning"`   // aspects, personas, recommendations, plan
}

// PipelineConfig controls stage sizing and bounds.
type PipelineConfig struct {
	NumAspects            int           `mapstructure:"num_aspects"`
	NumExperts            int           `mapstructure:"num_experts"`
	MaxTurns              int           `mapstructure:"max_turns"`
	MaxParallelInterviews int           `mapstructure:"max_parallel_interviews"` // 0 = one goroutine per expert
	StageTimeout          time.Duration `mapstructure:"stage_timeout"`           // 0 = no per-stage deadline
}

// RetryConfig defines configuration for retry behavior.
type RetryConfig struct {
	MaxAttempts   int           `mapstructure:"max_attempts"`
	InitialDelay  time.Duration `mapstructure:"initial_delay"`
	MaxDelay      time.Duration `mapstructure:"max_delay"`
	BackoffFactor float64       `mapstructure:"backoff_factor"`
	Jitter        bool          `mapstructure:"jitter"`
}

// LLMConfig holds per-request and shared-pool settings for model clients.
type LLMConfig struct {
	RequestTimeout   time.Duration `mapstructure:"request_timeout"`
	MaxTokens        int           `mapstructure:"max_tokens"`
	MaxConcurrency   int           `mapstructure:"max_concurrency"`
	TokensPerMinute  int           `mapstructure:"tokens_per_minute"`
	FailureThreshold int           `mapstructure:"failure_threshold"`
	CircuitTimeout   time.Duration `mapstructure:"circuit_timeout"`
}

// SearchConfig selects the web search backend used during interviews.
type SearchConfig struct {
	Provider   string        `mapstructure:"provider"` // auto, google, duckduckgo
	MaxResults int           `mapstructure:"max_results"`
	Timeout    time.Duration `mapstructure:"timeout"`
}

// StorageConfig selects where runs are persisted.
type StorageConfig struct {
	Driver string `mapstructure:"driver"`
	Path   string `mapstructure:"path"` // sqlite file
	DSN    string `mapstructure:"dsn"`  // postgres connection string
}

// ServerConfig configures the read-only run browser.
type ServerConfig struct {
	Addr string `mapstructure:"addr"`
}

// MetricsConfig toggles Prometheus collection.
type MetricsConfig struct {
	Enabled bool `mapstructure:"enabled"`
}

// ModelFor returns the configured model for a workload, falling back to the default.
func (m ModelsConfig) ModelFor(workload string) string {
	var model string
	switch workload {
	case WorkloadInterview:
		model = m.Interview
	case WorkloadAssessment:
		model = m.Assessment
	case WorkloadPlanning:
		model = m.Planning
	}
	if model == "" {
		return m.Default
	}
	return model
}

// setDefaults configures default values.
func setDefaults(v *viper.Viper) {
	v.SetDefault("models.default", "gpt-4o-mini")
	v.SetDefault("models.interview", "gpt-4o-mini")
	v.SetDefault("models.assessment", "gpt-4o")
	v.SetDefault("models.planning", "gpt-4o")

	v.SetDefault("pipeline.num_aspects", 6)
	v.SetDefault("pipeline.num_experts", 5)
	v.SetDefault("pipeline.max_turns", 5)
	v.SetDefault("pipeline.max_parallel_interviews", 0)
	v.SetDefault("pipeline.stage_timeout", "0s")

	v.SetDefault("retry.max_attempts", 3)
	v.SetDefault("retry.initial_delay", "500ms")
	v.SetDefault("retry.max_delay", "10s")
	v.SetDefault("retry.backoff_factor", 2.0)
	v.SetDefault("retry.jitter", true)

	v.SetDefault("llm.request_timeout", "2m")
	v.SetDefault("llm.max_tokens", 4096)
	v.SetDefault("llm.max_concurrency", 4)
	v.SetDefault("llm.tokens_per_minute", 0)
	v.SetDefault("llm.failure_threshold", 5)
	v.SetDefault("llm.circuit_timeout", "30s")

	v.SetDefault("search.provider", "auto")
	v.SetDefault("search.max_results", 5)
	v.SetDefault("search.timeout", "30s")

	v.SetDefault("storage.driver", StorageSQLite)
	v.SetDefault("storage.path", filepath.Join(".dtplanner", "runs.db"))
	v.SetDefault("storage.dsn", "")

	v.SetDefault("server.addr", ":8080")
	v.SetDefault("metrics.enabled", true)
}

// Default returns the built-in configuration without reading files or the environment.
func Default() *Config {
	v := viper.New()
	setDefaults(v)
	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		panic(fmt.Sprintf("config defaults do not decode: %v", err)) // programming error
	}
	return cfg
}

// LoadDotEnv loads KEY=VALUE pairs from the given files (".env" when none are
// given) into the process environment. Missing files are ignored; existing
// variables are never overwritten.
func LoadDotEnv(files ...string) error {
	if len(files) == 0 {
		files = []string{".env"}
	}
	present := make([]string, 0, len(files))
	for _, f := range files {
		if _, err := os.Stat(f); err == nil {
			present = append(present, f)
		}
	}
	if len(present) == 0 {
		return nil
	}
	if err := godotenv.Load(present...); err != nil {
		return fmt.Errorf("loading env files %v: %w", present, err)
	}
	return nil
}

// Load reads configuration. When path is empty, dtplanner.yaml is looked up in
// the working directory and then in $HOME/.config/dtplanner; a missing file is
// not an error.
func Load(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("dtplanner")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		if home, err := os.UserHomeDir(); err == nil {
			v.AddConfigPath(filepath.Join(home, ".config", "dtplanner"))
		}
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if path != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("reading config: %w", err)
		}
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("unmarshaling config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	if used := v.ConfigFileUsed(); used != "" {
		logx.NewLogger("config").Debug("loaded configuration from %s", used)
	}
	return cfg, nil
}

// Validate rejects configurations the pipeline cannot run with.
func (c *Config) Validate() error {
	var errs []error
	if c.Models.Default == "" {
		errs = append(errs, errors.New("models.default must be set"))
	}
	if c.Pipeline.NumAspects <= 0 {
		errs = append(errs, fmt.Errorf("pipeline.num_aspects must be positive, got %d", c.Pipeline.NumAspects))
	}
	if c.Pipeline.NumExperts <= 0 {
		errs = append(errs, fmt.Errorf("pipeline.num_experts must be positive, got %d", c.Pipeline.NumExperts))
	}
	if c.Pipeline.MaxTurns <= 0 {
		errs = append(errs, fmt.Errorf("pipeline.max_turns must be positive, got %d", c.Pipeline.MaxTurns))
	}
	if c.Pipeline.StageTimeout < 0 {
		errs = append(errs, errors.New("pipeline.stage_timeout cannot be negative"))
	}
	if c.Retry.MaxAttempts <= 0 {
		errs = append(errs, fmt.Errorf("retry.max_attempts must be positive, got %d", c.Retry.MaxAttempts))
	}
	if c.LLM.MaxTokens <= 0 {
		errs = append(errs, fmt.Errorf("llm.max_tokens must be positive, got %d", c.LLM.MaxTokens))
	}
	switch c.Search.Provider {
	case "auto", "google", "duckduckgo":
	default:
		errs = append(errs, fmt.Errorf("search.provider %q is not one of auto, google, duckduckgo", c.Search.Provider))
	}
	switch c.Storage.Driver {
	case StorageSQLite:
		if c.Storage.Path == "" {
			errs = append(errs, errors.New("storage.path is required for the sqlite driver"))
		}
	case StoragePostgres:
		if c.Storage.DSN == "" {
			errs = append(errs, errors.New("storage.dsn is required for the postgres driver"))
		}
	case StorageNone:
	default:
		errs = append(errs, fmt.Errorf("storage.driver %q is not one of sqlite, postgres, none", c.Storage.Driver))
	}
	return errors.Join(errs...)
}
