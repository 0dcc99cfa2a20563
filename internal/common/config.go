package common

import (
	"time"

	"github.com/spf13/viper"
)

// Config holds all configuration for the extraction core.
type Config struct {
	OpenAI   OpenAIConfig
	LogLevel string
}

// OpenAIConfig holds LLM-provider configuration.
type OpenAIConfig struct {
	APIKey          string
	BaseURL         string
	Model           string
	Temperature     float32
	Timeout         time.Duration
	MaxOutputTokens int
}

// LoadConfig loads configuration from environment variables via viper,
// falling back to defaults. Flags bound by the caller override both.
func LoadConfig(v *viper.Viper) *Config {
	if v == nil {
		v = viper.GetViper()
	}

	v.SetDefault("openai.base_url", "https://api.openai.com/v1")
	v.SetDefault("openai.model", "gpt-4o")
	v.SetDefault("openai.temperature", 0.1)
	v.SetDefault("openai.timeout", 120*time.Second)
	// High output budget so large POs don't get truncated mid-array.
	v.SetDefault("openai.max_output_tokens", 128000)
	v.SetDefault("log_level", "info")

	_ = v.BindEnv("openai.api_key", "OPENAI_API_KEY")
	_ = v.BindEnv("openai.base_url", "OPENAI_BASE_URL")
	_ = v.BindEnv("openai.model", "EXTRACTION_MODEL")
	_ = v.BindEnv("openai.temperature", "OPENAI_TEMPERATURE")
	_ = v.BindEnv("openai.timeout", "OPENAI_TIMEOUT")
	_ = v.BindEnv("openai.max_output_tokens", "EXTRACTION_MAX_OUTPUT_TOKENS")
	_ = v.BindEnv("log_level", "LOG_LEVEL")

	return &Config{
		OpenAI: OpenAIConfig{
			APIKey:          v.GetString("openai.api_key"),
			BaseURL:         v.GetString("openai.base_url"),
			Model:           v.GetString("openai.model"),
			Temperature:     float32(v.GetFloat64("openai.temperature")),
			Timeout:         v.GetDuration("openai.timeout"),
			MaxOutputTokens: v.GetInt("openai.max_output_tokens"),
		},
		LogLevel: v.GetString("log_level"),
	}
}

// Validate validates the loaded configuration.
func (c *Config) Validate() error {
	if c.OpenAI.APIKey == "" {
		return NewAppError("CONFIG_ERROR", "OPENAI_API_KEY is required", ErrConfiguration)
	}
	if c.OpenAI.Model == "" {
		return NewAppError("CONFIG_ERROR", "extraction model is required", ErrConfiguration)
	}
	return nil
}
