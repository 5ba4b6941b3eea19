// Package config handles configuration loading for sentimentcal.
// It supports YAML config files with environment variable overrides.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config represents the complete application configuration. API keys never
// serialize to JSON.
type Config struct {
	API       APIConfig       `mapstructure:"api"       yaml:"api"       json:"api"`
	Sources   SourcesConfig   `mapstructure:"sources"   yaml:"sources"   json:"sources"`
	LLM       LLMConfig       `mapstructure:"llm"       yaml:"llm"       json:"llm"`
	Analysis  AnalysisConfig  `mapstructure:"analysis"  yaml:"analysis"  json:"analysis"`
	Scheduler SchedulerConfig `mapstructure:"scheduler" yaml:"scheduler" json:"scheduler"`
	Storage   StorageConfig   `mapstructure:"storage"   yaml:"storage"   json:"storage"`
	Logging   LoggingConfig   `mapstructure:"logging"   yaml:"logging"   json:"logging"`
	Dashboard DashboardConfig `mapstructure:"dashboard" yaml:"dashboard" json:"dashboard"`

	// File is the config file that was read, if any.
	File string `mapstructure:"-" yaml:"-" json:"config_file,omitempty"`
}

// APIConfig holds HTTP API server settings.
type APIConfig struct {
	Host        string   `mapstructure:"host"         yaml:"host"         json:"host"`
	Port        int      `mapstructure:"port"         yaml:"port"         json:"port"         validate:"min=1,max=65535"`
	CORSOrigins []string `mapstructure:"cors_origins" yaml:"cors_origins" json:"cors_origins"`
}

// SourcesConfig holds upstream data source settings.
type SourcesConfig struct {
	DolthubURL        string `mapstructure:"dolthub_url"         yaml:"dolthub_url"         json:"dolthub_url"         validate:"required,url"`
	FinnhubURL        string `mapstructure:"finnhub_url"         yaml:"finnhub_url"         json:"finnhub_url"         validate:"required,url"`
	FinnhubKey        string `mapstructure:"finnhub_key"         yaml:"finnhub_key"         json:"-"`
	RSSEnabled        bool   `mapstructure:"rss_enabled"         yaml:"rss_enabled"         json:"rss_enabled"`
	RSSURLTemplate    string `mapstructure:"rss_url_template"    yaml:"rss_url_template"    json:"rss_url_template"    validate:"required_if=RSSEnabled true"`
	NewsDaysBack      int    `mapstructure:"news_days_back"      yaml:"news_days_back"      json:"news_days_back"      validate:"min=1,max=365"`
	FinnhubIntervalMS int    `mapstructure:"finnhub_interval_ms" yaml:"finnhub_interval_ms" json:"finnhub_interval_ms" validate:"min=0"`
	CompanyNamesFile  string `mapstructure:"company_names_file"  yaml:"company_names_file"  json:"company_names_file"`
}

// LLMConfig holds LLM provider configuration.
type LLMConfig struct {
	Provider     string  `mapstructure:"provider"      yaml:"provider"      json:"provider"    validate:"oneof=groq openai anthropic keyword"`
	GroqKey      string  `mapstructure:"groq_key"      yaml:"groq_key"      json:"-"`
	OpenAIKey    string  `mapstructure:"openai_key"    yaml:"openai_key"    json:"-"`
	AnthropicKey string  `mapstructure:"anthropic_key" yaml:"anthropic_key" json:"-"`
	BaseURL      string  `mapstructure:"base_url"      yaml:"base_url"      json:"base_url"    validate:"omitempty,url"`
	Model        string  `mapstructure:"model"         yaml:"model"         json:"model"`
	MaxTokens    int     `mapstructure:"max_tokens"    yaml:"max_tokens"    json:"max_tokens"  validate:"min=1"`
	Temperature  float64 `mapstructure:"temperature"   yaml:"temperature"   json:"temperature" validate:"min=0,max=2"`
}

// AnalysisConfig holds refresh pipeline settings.
type AnalysisConfig struct {
	WeeksAhead   int  `mapstructure:"weeks_ahead"   yaml:"weeks_ahead"   json:"weeks_ahead"   validate:"min=0,max=8"`
	RunSentiment bool `mapstructure:"run_sentiment" yaml:"run_sentiment" json:"run_sentiment"`
	Concurrency  int  `mapstructure:"concurrency"   yaml:"concurrency"   json:"concurrency"   validate:"min=1,max=32"`
	IntervalMS   int  `mapstructure:"interval_ms"   yaml:"interval_ms"   json:"interval_ms"   validate:"min=0"` // spacing between LLM calls
}

// SchedulerConfig holds the periodic refresh settings.
type SchedulerConfig struct {
	Enabled         bool          `mapstructure:"enabled"          yaml:"enabled"          json:"enabled"`
	RefreshInterval time.Duration `mapstructure:"refresh_interval" yaml:"refresh_interval" json:"refresh_interval" validate:"required"`
	Timezone        string        `mapstructure:"timezone"         yaml:"timezone"         json:"timezone"`
}

// StorageConfig holds the SQLite database location.
type StorageConfig struct {
	Path string `mapstructure:"path" yaml:"path" json:"path" validate:"required"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level  string `mapstructure:"level"  yaml:"level"  json:"level"  validate:"oneof=trace debug info warn error"`
	Format string `mapstructure:"format" yaml:"format" json:"format" validate:"oneof=text json"`
}

// DashboardConfig holds settings for the terminal dashboard client.
type DashboardConfig struct {
	BackendURL string `mapstructure:"backend_url" yaml:"backend_url" json:"backend_url" validate:"required,url"`
}

// Load reads the configuration from file and environment variables.
// Config file search order:
//  1. ./config/config.yaml (project root)
//  2. ~/.sentimentcal/config.yaml (home directory)
//  3. /etc/sentimentcal/config.yaml (system)
//
// A .env file in the working directory is loaded first, then environment
// variables override config file values.
// Format: SENTIMENTCAL_<SECTION>_<KEY>, e.g., SENTIMENTCAL_LLM_GROQ_KEY
func Load() (*Config, error) {
	loadDotEnv()

	v := newViper()
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath("./config")
	v.AddConfigPath(filepath.Join(homeDir(), ".sentimentcal"))
	v.AddConfigPath("/etc/sentimentcal")

	// Read config file (not required to exist)
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	cfg, err := decode(v)
	if err != nil {
		return nil, err
	}
	cfg.File = v.ConfigFileUsed()
	return cfg, nil
}

// LoadFromFile reads configuration from a specific file path.
func LoadFromFile(path string) (*Config, error) {
	loadDotEnv()

	v := newViper()
	v.SetConfigFile(path)
	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("error reading config file %s: %w", path, err)
	}

	cfg, err := decode(v)
	if err != nil {
		return nil, err
	}
	cfg.File = path
	return cfg, nil
}

// Default returns the configuration built from defaults and the environment
// only, without reading any file.
func Default() (*Config, error) {
	return decode(newViper())
}

func newViper() *viper.Viper {
	v := viper.New()
	setDefaults(v)
	v.SetEnvPrefix("SENTIMENTCAL")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	return v
}

func decode(v *viper.Viper) (*Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}

	// Override sensitive values from environment
	overrideFromEnv(&cfg)
	return &cfg, nil
}

// setDefaults sets sensible defaults for all config values.
func setDefaults(v *viper.Viper) {
	// API defaults
	v.SetDefault("api.host", "0.0.0.0")
	v.SetDefault("api.port", 5000)
	v.SetDefault("api.cors_origins", []string{"http://localhost:3000", "http://localhost:5173"})

	// Source defaults
	v.SetDefault("sources.dolthub_url", "https://www.dolthub.com/api/v1alpha1/post-no-preference/earnings/master")
	v.SetDefault("sources.finnhub_url", "https://finnhub.io/api/v1")
	v.SetDefault("sources.rss_enabled", false)
	v.SetDefault("sources.rss_url_template", "https://feeds.finance.yahoo.com/rss/2.0/headline?s=%s&region=US&lang=en-US")
	v.SetDefault("sources.news_days_back", 30)
	v.SetDefault("sources.finnhub_interval_ms", 1100) // free tier allows 60 calls/minute
	v.SetDefault("sources.company_names_file", "data/company-names.json")

	// LLM defaults
	v.SetDefault("llm.provider", "groq")
	v.SetDefault("llm.model", "llama-3.1-8b-instant")
	v.SetDefault("llm.max_tokens", 32)
	v.SetDefault("llm.temperature", 0.0)

	// Analysis defaults
	v.SetDefault("analysis.weeks_ahead", 1)
	v.SetDefault("analysis.run_sentiment", true)
	v.SetDefault("analysis.concurrency", 4)
	v.SetDefault("analysis.interval_ms", 1000)

	// Scheduler defaults
	v.SetDefault("scheduler.enabled", true)
	v.SetDefault("scheduler.refresh_interval", "2h")
	v.SetDefault("scheduler.timezone", "America/New_York")

	// Storage defaults
	v.SetDefault("storage.path", filepath.Join(homeDir(), ".sentimentcal", "sentimentcal.db"))

	// Logging defaults
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "text")

	// Dashboard defaults
	v.SetDefault("dashboard.backend_url", "http://localhost:5000")
}

// overrideFromEnv explicitly reads sensitive keys from environment variables.
// The unprefixed names are the ones the upstream services document.
func overrideFromEnv(cfg *Config) {
	for _, o := range []struct {
		dst  *string
		envs []string
	}{
		{&cfg.LLM.GroqKey, []string{"SENTIMENTCAL_LLM_GROQ_KEY", "GROQ_API_KEY"}},
		{&cfg.LLM.OpenAIKey, []string{"SENTIMENTCAL_LLM_OPENAI_KEY", "OPENAI_API_KEY"}},
		{&cfg.LLM.AnthropicKey, []string{"SENTIMENTCAL_LLM_ANTHROPIC_KEY", "ANTHROPIC_API_KEY"}},
		{&cfg.Sources.FinnhubKey, []string{"SENTIMENTCAL_SOURCES_FINNHUB_KEY", "FINNHUB_API_KEY"}},
	} {
		for _, env := range o.envs {
			if key := os.Getenv(env); key != "" {
				*o.dst = key
				break
			}
		}
	}
}

var validate = validator.New(validator.WithRequiredStructEnabled())

// Validate checks field constraints and the scheduler timezone.
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	if _, err := c.Location(); err != nil {
		return fmt.Errorf("invalid config: scheduler.timezone: %w", err)
	}
	return nil
}

// Location returns the scheduler timezone, defaulting to UTC when unset.
func (c *Config) Location() (*time.Location, error) {
	if c.Scheduler.Timezone == "" {
		return time.UTC, nil
	}
	return time.LoadLocation(c.Scheduler.Timezone)
}

// Addr returns the API listen address.
func (c *Config) Addr() string {
	return fmt.Sprintf("%s:%d", c.API.Host, c.API.Port)
}

// loadDotEnv loads ./.env if present. Variables already set win.
func loadDotEnv() {
	_ = godotenv.Load()
}

// homeDir returns the user's home directory.
func homeDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "."
	}
	return home
}
