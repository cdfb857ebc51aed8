// Package config provides configuration loading and management for inquest.
package config

import (
	"time"

	"github.com/kestrelab/inquest/internal/research"
)

// Config is the root configuration.
type Config struct {
	Constraints ConstraintsConfig `json:"constraints" mapstructure:"constraints"`
	Oracle      OracleConfig      `json:"oracle"      mapstructure:"oracle"`
	Providers   ProvidersConfig   `json:"providers"   mapstructure:"providers"`
	Executor    ExecutorConfig    `json:"executor"    mapstructure:"executor"`
	Retention   RetentionPolicy   `json:"retention"   mapstructure:"retention"`
}

// ConstraintsConfig defines the budget envelope of a run. MaxTime uses
// Go duration syntax ("90s", "5m").
type ConstraintsConfig struct {
	MaxDepth      int           `json:"max_depth"      mapstructure:"max_depth"`
	MaxTime       time.Duration `json:"max_time"       mapstructure:"max_time"`
	MaxCost       float64       `json:"max_cost"       mapstructure:"max_cost"`
	MaxGoals      int           `json:"max_goals"      mapstructure:"max_goals"`
	MaxConcurrent int           `json:"max_concurrent" mapstructure:"max_concurrent"`
}

// OracleConfig selects the reasoning model and its pricing, used to
// convert token usage into dollar cost against the budget.
type OracleConfig struct {
	Model             string  `json:"model,omitempty"                mapstructure:"model"`
	InputCostPerMTok  float64 `json:"input_cost_per_mtok,omitempty"  mapstructure:"input_cost_per_mtok"`
	OutputCostPerMTok float64 `json:"output_cost_per_mtok,omitempty" mapstructure:"output_cost_per_mtok"`
}

// ProvidersConfig toggles individual search providers. API keys come
// from the environment, never from the config file.
type ProvidersConfig struct {
	Tavily     TavilyConfig   `json:"tavily"     mapstructure:"tavily"`
	Brave      ProviderToggle `json:"brave"      mapstructure:"brave"`
	DuckDuckGo ProviderToggle `json:"duckduckgo" mapstructure:"duckduckgo"`
}

// TavilyConfig configures the Tavily provider.
type TavilyConfig struct {
	Enabled bool   `json:"enabled"         mapstructure:"enabled"`
	Depth   string `json:"depth,omitempty" mapstructure:"depth"`
}

// ProviderToggle enables or disables a provider with no extra knobs.
type ProviderToggle struct {
	Enabled bool `json:"enabled" mapstructure:"enabled"`
}

// ExecutorConfig tunes the atomic goal executor.
type ExecutorConfig struct {
	MaxRetries  int `json:"max_retries,omitempty"  mapstructure:"max_retries"`
	ResultLimit int `json:"result_limit,omitempty" mapstructure:"result_limit"`
}

// RetentionPolicy defines how many old runs to keep.
type RetentionPolicy struct {
	KeepLast int `json:"keep_last,omitempty" mapstructure:"keep_last"`
	KeepDays int `json:"keep_days,omitempty" mapstructure:"keep_days"`
}

// Default returns the configuration used when no config file exists.
func Default() Config {
	return Config{
		Constraints: ConstraintsConfig{
			MaxDepth:      3,
			MaxTime:       5 * time.Minute,
			MaxCost:       1.0,
			MaxGoals:      25,
			MaxConcurrent: 4,
		},
		Oracle: OracleConfig{
			Model: "gemini-2.5-flash",
		},
		Providers: ProvidersConfig{
			Tavily:     TavilyConfig{Enabled: true, Depth: "basic"},
			Brave:      ProviderToggle{Enabled: true},
			DuckDuckGo: ProviderToggle{Enabled: true},
		},
		Retention: RetentionPolicy{
			KeepLast: 20,
		},
	}
}

// ResearchConstraints converts the config envelope into the runtime
// constraints value consumed by the scheduler and budget tracker.
func (c Config) ResearchConstraints() research.Constraints {
	return research.Constraints{
		MaxDepth:      c.Constraints.MaxDepth,
		MaxTime:       c.Constraints.MaxTime,
		MaxCost:       c.Constraints.MaxCost,
		MaxGoals:      c.Constraints.MaxGoals,
		MaxConcurrent: c.Constraints.MaxConcurrent,
	}
}
