package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaults(t *testing.T) {
	cfg := NewFromViper(NewEmptyViper())

	assert.Equal(t, "", cfg.GetString("llm.provider"))
	assert.Equal(t, "sqlite", cfg.GetString("store.type"))
	assert.Equal(t, 10, cfg.GetInt("pipeline.batch_size"))
	assert.False(t, cfg.GetBool("ingest.enabled"))

	interval, err := cfg.GetDuration("pipeline.poll_interval")
	require.NoError(t, err)
	assert.Equal(t, 5*time.Second, interval)
}

func TestGetLLMDefaults(t *testing.T) {
	cfg := NewFromViper(NewEmptyViper())

	llm := cfg.GetLLM()
	assert.Equal(t, "", llm.Provider)
	assert.Equal(t, 30*time.Second, llm.Timeout)
	assert.Equal(t, 4096, llm.MaxBodySize)
}

func TestGetLLMBadTimeoutFallsBack(t *testing.T) {
	v := NewEmptyViper()
	v.Set("llm.timeout", "not-a-duration")
	cfg := NewFromViper(v)

	assert.Equal(t, 30*time.Second, cfg.GetLLM().Timeout)
}

func TestGetChatAPIUsesProviderSection(t *testing.T) {
	v := NewEmptyViper()
	v.Set("groq.api_key", "gk")
	cfg := NewFromViper(v)

	groq := cfg.GetChatAPI("groq")
	assert.Equal(t, "gk", groq.APIKey)
	assert.Equal(t, "openai/gpt-oss-120b", groq.ModelName)

	openai := cfg.GetChatAPI("openai")
	assert.Empty(t, openai.APIKey)
	assert.Equal(t, "gpt-3.5-turbo", openai.ModelName)
}

func TestGetTriage(t *testing.T) {
	v := NewEmptyViper()
	v.Set("triage.whitelisted_senders", []string{"alice@example.com", "trusted.org"})
	cfg := NewFromViper(v)

	triage := cfg.GetTriage()
	assert.InDelta(t, 0.6, triage.BayesThreshold, 1e-9)
	assert.InDelta(t, 0.4, triage.SuspiciousThreshold, 1e-9)
	assert.Equal(t, []string{"alice@example.com", "trusted.org"}, triage.WhitelistedSenders)
}

func TestGetBedrock(t *testing.T) {
	cfg := NewFromViper(NewEmptyViper())

	bedrock := cfg.GetBedrock()
	assert.Equal(t, "us-east-1", bedrock.Region)
	assert.Equal(t, "anthropic.claude-v2", bedrock.ModelID)
}
