// Package config provides configuration for the voice widget service.
package config

import (
	"net/url"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// ModeMock selects the mock LLM provider for every route.
const ModeMock = "MOCK"

// Config holds the service configuration.
type Config struct {
	// Server settings
	HTTPPort int

	// PublicAPIURL is the absolute base URL written into embed scripts.
	// Empty means "derive from the incoming request".
	PublicAPIURL string

	// LLM providers
	GeminiAPIKey    string
	GeminiModel     string
	GeminiBaseURL   string
	GroqAPIKey      string
	GroqModel       string
	OpenAIAPIKey    string
	OpenAIBaseURL   string
	OpenAIModel     string
	DefaultProvider string
	LLMTimeout      time.Duration
	Mode            string

	// Relay settings
	AllowedOrigins      []string
	RelayPingInterval   time.Duration
	RelayWriteTimeout   time.Duration
	RelayReadTimeout    time.Duration
	RelayMaxMessageSize int64

	// Logging
	LogLevel  string
	LogFormat string
}

// Load loads configuration from environment variables.
func Load() *Config {
	return FromViper(newViper())
}

func newViper() *viper.Viper {
	v := viper.New()
	v.AutomaticEnv()

	v.SetDefault("HTTP_PORT", 3000)
	v.SetDefault("PUBLIC_API_URL", "")
	v.SetDefault("GOOGLE_GENERATIVE_AI_API_KEY", "")
	v.SetDefault("GEMINI_MODEL", "gemini-1.5-flash")
	v.SetDefault("GEMINI_BASE_URL", "")
	v.SetDefault("GROQ_API_KEY", "")
	v.SetDefault("GROQ_MODEL", "llama-3.1-70b-versatile")
	v.SetDefault("OPENAI_API_KEY", "")
	v.SetDefault("OPENAI_BASE_URL", "https://api.openai.com/v1")
	v.SetDefault("OPENAI_MODEL", "gpt-4o-mini")
	v.SetDefault("DEFAULT_PROVIDER", "gemini")
	v.SetDefault("LLM_TIMEOUT_MS", 0)
	v.SetDefault("VOICE_MODE", "")
	v.SetDefault("ALLOWED_ORIGINS", "")
	v.SetDefault("RELAY_PING_INTERVAL_MS", 30000)
	v.SetDefault("RELAY_WRITE_TIMEOUT_MS", 10000)
	v.SetDefault("RELAY_READ_TIMEOUT_MS", 60000)
	v.SetDefault("RELAY_MAX_MESSAGE_SIZE", 65536)
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("LOG_FORMAT", "json")
	return v
}

// FromViper reads a Config out of v.
func FromViper(v *viper.Viper) *Config {
	return &Config{
		HTTPPort:            v.GetInt("HTTP_PORT"),
		PublicAPIURL:        strings.TrimSuffix(v.GetString("PUBLIC_API_URL"), "/"),
		GeminiAPIKey:        v.GetString("GOOGLE_GENERATIVE_AI_API_KEY"),
		GeminiModel:         v.GetString("GEMINI_MODEL"),
		GeminiBaseURL:       v.GetString("GEMINI_BASE_URL"),
		GroqAPIKey:          v.GetString("GROQ_API_KEY"),
		GroqModel:           v.GetString("GROQ_MODEL"),
		OpenAIAPIKey:        v.GetString("OPENAI_API_KEY"),
		OpenAIBaseURL:       v.GetString("OPENAI_BASE_URL"),
		OpenAIModel:         v.GetString("OPENAI_MODEL"),
		DefaultProvider:     strings.ToLower(v.GetString("DEFAULT_PROVIDER")),
		LLMTimeout:          time.Duration(v.GetInt("LLM_TIMEOUT_MS")) * time.Millisecond,
		Mode:                strings.ToUpper(v.GetString("VOICE_MODE")),
		AllowedOrigins:      splitList(v.GetString("ALLOWED_ORIGINS")),
		RelayPingInterval:   time.Duration(v.GetInt("RELAY_PING_INTERVAL_MS")) * time.Millisecond,
		RelayWriteTimeout:   time.Duration(v.GetInt("RELAY_WRITE_TIMEOUT_MS")) * time.Millisecond,
		RelayReadTimeout:    time.Duration(v.GetInt("RELAY_READ_TIMEOUT_MS")) * time.Millisecond,
		RelayMaxMessageSize: v.GetInt64("RELAY_MAX_MESSAGE_SIZE"),
		LogLevel:            strings.ToLower(v.GetString("LOG_LEVEL")),
		LogFormat:           strings.ToLower(v.GetString("LOG_FORMAT")),
	}
}

// OriginAllowList returns the origins allowed to talk to the relay: the
// origin of PublicAPIURL followed by ALLOWED_ORIGINS.
func (c *Config) OriginAllowList() []string {
	var origins []string
	if o := Origin(c.PublicAPIURL); o != "" {
		origins = append(origins, o)
	}
	for _, raw := range c.AllowedOrigins {
		if o := Origin(raw); o != "" {
			origins = append(origins, o)
		}
	}
	return origins
}

// Origin reduces a URL to scheme://host[:port]. Invalid input yields "".
func Origin(raw string) string {
	u, err := url.Parse(strings.TrimSpace(raw))
	if err != nil || u.Scheme == "" || u.Host == "" {
		return ""
	}
	return strings.ToLower(u.Scheme + "://" + u.Host)
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
