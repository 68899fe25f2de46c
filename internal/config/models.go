package config

import (
	"time"
)

// LLMConfig represents the remote provider selection and shared limits
type LLMConfig struct {
	Provider    string
	Timeout     time.Duration
	MaxBodySize int
}

// ChatAPIConfig represents one OpenAI-compatible provider's credentials
type ChatAPIConfig struct {
	APIKey    string
	ModelName string
}

// GeminiConfig represents the configuration for Google Gemini
type GeminiConfig struct {
	APIKey    string
	ModelName string
}

// BedrockConfig represents the configuration for Amazon Bedrock
type BedrockConfig struct {
	Region  string
	ModelID string
}

// TriageConfig represents the decision thresholds and whitelist
type TriageConfig struct {
	BayesThreshold      float64
	SuspiciousThreshold float64
	WhitelistedSenders  []string
}

// GetLLM returns the LLM configuration
func (c *Config) GetLLM() LLMConfig {
	timeout, err := c.GetDuration("llm.timeout")
	if err != nil || timeout <= 0 {
		timeout = 30 * time.Second
	}
	return LLMConfig{
		Provider:    c.GetString("llm.provider"),
		Timeout:     timeout,
		MaxBodySize: c.GetInt("llm.max_body_size"),
	}
}

// GetChatAPI returns the credentials for one OpenAI-compatible provider
// (the provider name doubles as its config section)
func (c *Config) GetChatAPI(provider string) ChatAPIConfig {
	return ChatAPIConfig{
		APIKey:    c.GetString(provider + ".api_key"),
		ModelName: c.GetString(provider + ".model_name"),
	}
}

// GetGemini returns the Gemini configuration
func (c *Config) GetGemini() GeminiConfig {
	return GeminiConfig{
		APIKey:    c.GetString("gemini.api_key"),
		ModelName: c.GetString("gemini.model_name"),
	}
}

// GetBedrock returns the Bedrock configuration
func (c *Config) GetBedrock() BedrockConfig {
	return BedrockConfig{
		Region:  c.GetString("bedrock.region"),
		ModelID: c.GetString("bedrock.model_id"),
	}
}

// GetTriage returns the decision thresholds and whitelist
func (c *Config) GetTriage() TriageConfig {
	return TriageConfig{
		BayesThreshold:      c.GetFloat64("triage.bayes_threshold"),
		SuspiciousThreshold: c.GetFloat64("triage.suspicious_threshold"),
		WhitelistedSenders:  c.GetStringSlice("triage.whitelisted_senders"),
	}
}
