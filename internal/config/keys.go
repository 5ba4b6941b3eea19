package config

import (
	"os"
	"strings"
)

// KeyOrigin says where a credential was read from.
type KeyOrigin string

const (
	OriginEnv     KeyOrigin = "env"
	OriginFile    KeyOrigin = "config"
	OriginMissing KeyOrigin = "none"
)

// KeyStatus describes one upstream credential without exposing it.
type KeyStatus struct {
	Name     string    `json:"name"`
	Source   KeyOrigin `json:"source"`
	IsSet    bool      `json:"is_set"`
	Required bool      `json:"required"`
	EnvVar   string    `json:"env_var,omitempty"`
	Masked   string    `json:"masked,omitempty"` // "gsk...abc"
}

// Missing reports a credential the current setup needs but does not have.
func (k KeyStatus) Missing() bool { return k.Required && !k.IsSet }

// CheckAPIKeys reports the LLM and news credentials. Finnhub is always
// required; an LLM key only for the configured provider. The keyword
// provider needs none.
func CheckAPIKeys(cfg *Config) []KeyStatus {
	provider := strings.ToLower(strings.TrimSpace(cfg.LLM.Provider))
	if provider == "" {
		provider = "groq"
	}
	return []KeyStatus{
		keyStatus("Groq API Key", cfg.LLM.GroqKey, provider == "groq",
			"SENTIMENTCAL_LLM_GROQ_KEY", "GROQ_API_KEY"),
		keyStatus("OpenAI API Key", cfg.LLM.OpenAIKey, provider == "openai",
			"SENTIMENTCAL_LLM_OPENAI_KEY", "OPENAI_API_KEY"),
		keyStatus("Anthropic API Key", cfg.LLM.AnthropicKey, provider == "anthropic",
			"SENTIMENTCAL_LLM_ANTHROPIC_KEY", "ANTHROPIC_API_KEY"),
		keyStatus("Finnhub API Key", cfg.Sources.FinnhubKey, true,
			"SENTIMENTCAL_SOURCES_FINNHUB_KEY", "FINNHUB_API_KEY"),
	}
}

// keyStatus attributes value to the first of envVars holding it, else to the
// config file.
func keyStatus(name, value string, required bool, envVars ...string) KeyStatus {
	st := KeyStatus{Name: name, Required: required, Source: OriginMissing}
	if value == "" {
		return st
	}
	st.IsSet = true
	st.Masked = redact(value)
	st.Source = OriginFile
	for _, env := range envVars {
		if os.Getenv(env) == value {
			st.Source = OriginEnv
			st.EnvVar = env
			break
		}
	}
	return st
}

// redact keeps three characters at each end of key. Short keys are hidden.
func redact(key string) string {
	if len(key) <= 8 {
		return "***"
	}
	return key[:3] + "..." + key[len(key)-3:]
}
