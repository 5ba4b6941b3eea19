package config

import (
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"
	"time"
)

var keyEnvVars = []string{
	"SENTIMENTCAL_LLM_GROQ_KEY", "GROQ_API_KEY",
	"SENTIMENTCAL_LLM_OPENAI_KEY", "OPENAI_API_KEY",
	"SENTIMENTCAL_LLM_ANTHROPIC_KEY", "ANTHROPIC_API_KEY",
	"SENTIMENTCAL_SOURCES_FINNHUB_KEY", "FINNHUB_API_KEY",
}

// clearKeyEnv blanks every key variable for the duration of the test.
func clearKeyEnv(t *testing.T) {
	t.Helper()
	for _, e := range keyEnvVars {
		t.Setenv(e, "")
	}
}

// ── Load / Defaults ──

func TestLoadReturnsDefaults(t *testing.T) {
	clearKeyEnv(t)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}

	// API defaults
	if cfg.API.Port != 5000 {
		t.Errorf("API.Port: got %d, want 5000", cfg.API.Port)
	}
	if cfg.Addr() != "0.0.0.0:5000" {
		t.Errorf("Addr(): got %q", cfg.Addr())
	}

	// Source defaults
	if !strings.HasPrefix(cfg.Sources.DolthubURL, "https://www.dolthub.com/api/v1alpha1/") {
		t.Errorf("Sources.DolthubURL: got %q", cfg.Sources.DolthubURL)
	}
	if cfg.Sources.NewsDaysBack != 30 {
		t.Errorf("Sources.NewsDaysBack: got %d, want 30", cfg.Sources.NewsDaysBack)
	}
	if cfg.Sources.FinnhubIntervalMS != 1100 {
		t.Errorf("Sources.FinnhubIntervalMS: got %d, want 1100", cfg.Sources.FinnhubIntervalMS)
	}

	// LLM defaults
	if cfg.LLM.Provider != "groq" {
		t.Errorf("LLM.Provider: got %q, want %q", cfg.LLM.Provider, "groq")
	}
	if cfg.LLM.Model != "llama-3.1-8b-instant" {
		t.Errorf("LLM.Model: got %q", cfg.LLM.Model)
	}

	// Analysis defaults
	if cfg.Analysis.WeeksAhead != 1 {
		t.Errorf("Analysis.WeeksAhead: got %d, want 1", cfg.Analysis.WeeksAhead)
	}
	if !cfg.Analysis.RunSentiment {
		t.Error("Analysis.RunSentiment should be true by default")
	}

	// Scheduler defaults
	if cfg.Scheduler.RefreshInterval != 2*time.Hour {
		t.Errorf("Scheduler.RefreshInterval: got %v, want 2h", cfg.Scheduler.RefreshInterval)
	}

	// Logging defaults
	if cfg.Logging.Level != "info" {
		t.Errorf("Logging.Level: got %q, want %q", cfg.Logging.Level, "info")
	}
	if cfg.Logging.Format != "text" {
		t.Errorf("Logging.Format: got %q, want %q", cfg.Logging.Format, "text")
	}

	if err := cfg.Validate(); err != nil {
		t.Errorf("defaults should validate: %v", err)
	}
}

func TestLoadPrefixedEnvOverride(t *testing.T) {
	clearKeyEnv(t)
	t.Setenv("SENTIMENTCAL_API_PORT", "7070")
	t.Setenv("SENTIMENTCAL_ANALYSIS_WEEKS_AHEAD", "0")

	cfg, err := Default()
	if err != nil {
		t.Fatalf("Default() error: %v", err)
	}
	if cfg.API.Port != 7070 {
		t.Errorf("API.Port: got %d, want 7070", cfg.API.Port)
	}
	if cfg.Analysis.WeeksAhead != 0 {
		t.Errorf("Analysis.WeeksAhead: got %d, want 0", cfg.Analysis.WeeksAhead)
	}
}

// ── LoadFromFile ──

func TestLoadFromFile(t *testing.T) {
	clearKeyEnv(t)

	tmpDir := t.TempDir()
	cfgPath := filepath.Join(tmpDir, "test_config.yaml")
	content := []byte(`
llm:
  provider: "anthropic"
  model: "claude-3-5-haiku-latest"
  anthropic_key: "sk-ant-test-key-1234567890"
  max_tokens: 64
sources:
  rss_enabled: true
  news_days_back: 7
analysis:
  weeks_ahead: 2
  concurrency: 8
scheduler:
  refresh_interval: "30m"
  timezone: "UTC"
api:
  port: 9090
logging:
  level: "debug"
  format: "json"
`)
	if err := os.WriteFile(cfgPath, content, 0644); err != nil {
		t.Fatalf("write temp config: %v", err)
	}

	cfg, err := LoadFromFile(cfgPath)
	if err != nil {
		t.Fatalf("LoadFromFile() error: %v", err)
	}
	if cfg.LLM.Provider != "anthropic" {
		t.Errorf("LLM.Provider: got %q, want %q", cfg.LLM.Provider, "anthropic")
	}
	if cfg.LLM.AnthropicKey != "sk-ant-test-key-1234567890" {
		t.Errorf("LLM.AnthropicKey: got %q", cfg.LLM.AnthropicKey)
	}
	if cfg.LLM.MaxTokens != 64 {
		t.Errorf("LLM.MaxTokens: got %d, want 64", cfg.LLM.MaxTokens)
	}
	if !cfg.Sources.RSSEnabled || cfg.Sources.NewsDaysBack != 7 {
		t.Errorf("Sources: got %+v", cfg.Sources)
	}
	if cfg.Analysis.WeeksAhead != 2 || cfg.Analysis.Concurrency != 8 {
		t.Errorf("Analysis: got %+v", cfg.Analysis)
	}
	if cfg.Scheduler.RefreshInterval != 30*time.Minute {
		t.Errorf("Scheduler.RefreshInterval: got %v, want 30m", cfg.Scheduler.RefreshInterval)
	}
	if cfg.API.Port != 9090 {
		t.Errorf("API.Port: got %d, want 9090", cfg.API.Port)
	}
	if cfg.Logging.Level != "debug" || cfg.Logging.Format != "json" {
		t.Errorf("Logging: got %+v", cfg.Logging)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("Validate() error: %v", err)
	}
}

func TestLoadFromFileNotFound(t *testing.T) {
	_, err := LoadFromFile("/nonexistent/path/config.yaml")
	if err == nil {
		t.Error("LoadFromFile() with nonexistent path should return error")
	}
}

// ── Validate ──

func TestValidateRejects(t *testing.T) {
	clearKeyEnv(t)

	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"bad provider", func(c *Config) { c.LLM.Provider = "gemini" }},
		{"bad port", func(c *Config) { c.API.Port = 0 }},
		{"bad level", func(c *Config) { c.Logging.Level = "verbose" }},
		{"bad format", func(c *Config) { c.Logging.Format = "xml" }},
		{"weeks too far", func(c *Config) { c.Analysis.WeeksAhead = 20 }},
		{"zero concurrency", func(c *Config) { c.Analysis.Concurrency = 0 }},
		{"bad dolthub url", func(c *Config) { c.Sources.DolthubURL = "not a url" }},
		{"rss without template", func(c *Config) {
			c.Sources.RSSEnabled = true
			c.Sources.RSSURLTemplate = ""
		}},
		{"zero refresh interval", func(c *Config) { c.Scheduler.RefreshInterval = 0 }},
		{"unknown timezone", func(c *Config) { c.Scheduler.Timezone = "Mars/Olympus" }},
		{"no storage path", func(c *Config) { c.Storage.Path = "" }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg, err := Default()
			if err != nil {
				t.Fatalf("Default() error: %v", err)
			}
			tt.mutate(cfg)
			if err := cfg.Validate(); err == nil {
				t.Error("Validate() should fail")
			}
		})
	}
}

func TestLocation(t *testing.T) {
	cfg := &Config{}
	loc, err := cfg.Location()
	if err != nil || loc != time.UTC {
		t.Errorf("empty timezone: got (%v, %v), want UTC", loc, err)
	}

	cfg.Scheduler.Timezone = "America/New_York"
	if loc, err := cfg.Location(); err != nil || loc.String() != "America/New_York" {
		t.Errorf("Location(): got (%v, %v)", loc, err)
	}
}

// ── overrideFromEnv ──

func TestOverrideFromEnv(t *testing.T) {
	clearKeyEnv(t)
	t.Setenv("GROQ_API_KEY", "gsk-test-groq-key-123456")
	t.Setenv("SENTIMENTCAL_LLM_OPENAI_KEY", "sk-test-openai-key-123456")
	t.Setenv("ANTHROPIC_API_KEY", "sk-ant-test")
	t.Setenv("FINNHUB_API_KEY", "finnhub-key-789")

	cfg := &Config{}
	overrideFromEnv(cfg)

	if cfg.LLM.GroqKey != "gsk-test-groq-key-123456" {
		t.Errorf("GroqKey: got %q", cfg.LLM.GroqKey)
	}
	if cfg.LLM.OpenAIKey != "sk-test-openai-key-123456" {
		t.Errorf("OpenAIKey: got %q", cfg.LLM.OpenAIKey)
	}
	if cfg.LLM.AnthropicKey != "sk-ant-test" {
		t.Errorf("AnthropicKey: got %q", cfg.LLM.AnthropicKey)
	}
	if cfg.Sources.FinnhubKey != "finnhub-key-789" {
		t.Errorf("FinnhubKey: got %q", cfg.Sources.FinnhubKey)
	}
}

func TestOverrideFromEnvPrefixedWins(t *testing.T) {
	clearKeyEnv(t)
	t.Setenv("SENTIMENTCAL_LLM_GROQ_KEY", "prefixed")
	t.Setenv("GROQ_API_KEY", "plain")

	cfg := &Config{}
	overrideFromEnv(cfg)
	if cfg.LLM.GroqKey != "prefixed" {
		t.Errorf("GroqKey: got %q, want %q", cfg.LLM.GroqKey, "prefixed")
	}
}

func TestOverrideFromEnvNoEnvSet(t *testing.T) {
	clearKeyEnv(t)

	cfg := &Config{
		LLM: LLMConfig{GroqKey: "from-config"},
	}
	overrideFromEnv(cfg)

	// Should retain the original value when env is not set
	if cfg.LLM.GroqKey != "from-config" {
		t.Errorf("GroqKey should stay as 'from-config' when env is unset, got %q", cfg.LLM.GroqKey)
	}
}

// ── redact ──

func TestRedact(t *testing.T) {
	tests := []struct {
		input string
		want  string
	}{
		{"", "***"},
		{"abcd", "***"},
		{"12345678", "***"},
		{"123456789", "123...789"},
		{"gsk_abcdef1234567890xyz", "gsk...xyz"},
	}
	for _, tc := range tests {
		if got := redact(tc.input); got != tc.want {
			t.Errorf("redact(%q): got %q, want %q", tc.input, got, tc.want)
		}
	}
}

// ── CheckAPIKeys ──

func TestCheckAPIKeysAllEmpty(t *testing.T) {
	clearKeyEnv(t)

	statuses := CheckAPIKeys(&Config{})
	if len(statuses) != 4 {
		t.Fatalf("CheckAPIKeys: got %d statuses, want 4", len(statuses))
	}
	for _, s := range statuses {
		if s.IsSet || s.Source != OriginMissing || s.Masked != "" {
			t.Errorf("%s: got %+v, want unset", s.Name, s)
		}
	}
}

func TestCheckAPIKeysRequiredFollowsProvider(t *testing.T) {
	clearKeyEnv(t)

	tests := []struct {
		provider string
		required []string
	}{
		{"", []string{"Groq API Key", "Finnhub API Key"}},
		{"groq", []string{"Groq API Key", "Finnhub API Key"}},
		{"OpenAI", []string{"OpenAI API Key", "Finnhub API Key"}},
		{"anthropic", []string{"Anthropic API Key", "Finnhub API Key"}},
		{"keyword", []string{"Finnhub API Key"}},
	}
	for _, tc := range tests {
		var got []string
		for _, s := range CheckAPIKeys(&Config{LLM: LLMConfig{Provider: tc.provider}}) {
			if s.Required {
				got = append(got, s.Name)
			}
			if s.Missing() != s.Required {
				t.Errorf("%q %s: Missing() = %v with nothing set", tc.provider, s.Name, s.Missing())
			}
		}
		if !reflect.DeepEqual(got, tc.required) {
			t.Errorf("provider %q: required %v, want %v", tc.provider, got, tc.required)
		}
	}
}

func TestCheckAPIKeysFromConfig(t *testing.T) {
	clearKeyEnv(t)

	cfg := &Config{LLM: LLMConfig{GroqKey: "gsk-test-very-long-key-value"}}
	var groq *KeyStatus
	for _, s := range CheckAPIKeys(cfg) {
		if s.Name == "Groq API Key" {
			groq = &s
		}
	}
	if groq == nil {
		t.Fatal("Groq API Key status not found")
	}
	if !groq.IsSet || groq.Missing() {
		t.Errorf("Groq key should be set: %+v", *groq)
	}
	if groq.Source != OriginFile || groq.EnvVar != "" {
		t.Errorf("Source: got %q (%q), want %q", groq.Source, groq.EnvVar, OriginFile)
	}
	if groq.Masked != "gsk...lue" {
		t.Errorf("Masked: got %q, want %q", groq.Masked, "gsk...lue")
	}
}

func TestCheckAPIKeysFromEnv(t *testing.T) {
	clearKeyEnv(t)
	t.Setenv("FINNHUB_API_KEY", "finnhub-env-key-for-testing")

	cfg := &Config{Sources: SourcesConfig{FinnhubKey: "finnhub-env-key-for-testing"}}
	for _, s := range CheckAPIKeys(cfg) {
		if s.Name != "Finnhub API Key" {
			continue
		}
		if s.Source != OriginEnv {
			t.Errorf("Source: got %q, want %q", s.Source, OriginEnv)
		}
		if s.EnvVar != "FINNHUB_API_KEY" {
			t.Errorf("EnvVar: got %q, want FINNHUB_API_KEY", s.EnvVar)
		}
	}
}

func TestCheckAPIKeysPrefixedEnvWins(t *testing.T) {
	clearKeyEnv(t)
	t.Setenv("SENTIMENTCAL_LLM_GROQ_KEY", "gsk-prefixed-key-value")
	t.Setenv("GROQ_API_KEY", "gsk-prefixed-key-value")

	s := keyStatus("Groq API Key", "gsk-prefixed-key-value", true,
		"SENTIMENTCAL_LLM_GROQ_KEY", "GROQ_API_KEY")
	if s.EnvVar != "SENTIMENTCAL_LLM_GROQ_KEY" {
		t.Errorf("EnvVar: got %q, want the prefixed variable", s.EnvVar)
	}
}
