package llm

import (
	"testing"

	"github.com/mikey/llm-msg-triage/internal/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseVerdictValid(t *testing.T) {
	result, err := ParseVerdict(`{"is_spam": true, "confidence": 0.92, "reason": "lottery scam", "classification": "spam"}`)
	require.NoError(t, err)
	assert.True(t, result.IsSpam)
	assert.InDelta(t, 0.92, result.Confidence, 1e-9)
	assert.Equal(t, "lottery scam", result.Reason)
	assert.Equal(t, core.ClassSpam, result.Classification)
}

func TestParseVerdictEmbeddedInProse(t *testing.T) {
	raw := `Sure! Here is my analysis:
{"is_spam": false, "confidence": 0.8, "reason": "routine correspondence", "classification": "legitimate"}
Let me know if you need anything else.`
	result, err := ParseVerdict(raw)
	require.NoError(t, err)
	assert.False(t, result.IsSpam)
	assert.Equal(t, core.ClassLegitimate, result.Classification)
}

func TestParseVerdictMissingFields(t *testing.T) {
	cases := map[string]string{
		"is_spam":        `{"confidence": 0.9, "reason": "x", "classification": "spam"}`,
		"confidence":     `{"is_spam": true, "reason": "x", "classification": "spam"}`,
		"reason":         `{"is_spam": true, "confidence": 0.9, "classification": "spam"}`,
		"classification": `{"is_spam": true, "confidence": 0.9, "reason": "x"}`,
	}

	for field, raw := range cases {
		_, err := ParseVerdict(raw)
		require.Error(t, err, "missing %s must be rejected", field)
		assert.Contains(t, err.Error(), field)
	}
}

func TestParseVerdictNoJSON(t *testing.T) {
	_, err := ParseVerdict("I think this message is probably spam.")
	assert.Error(t, err)

	_, err = ParseVerdict("")
	assert.Error(t, err)
}

func TestParseVerdictMalformedJSON(t *testing.T) {
	_, err := ParseVerdict(`{"is_spam": true, "confidence": }`)
	assert.Error(t, err)
}

func TestParseVerdictNormalizesClassification(t *testing.T) {
	result, err := ParseVerdict(`{"is_spam": true, "confidence": 0.9, "reason": "x", "classification": " SPAM "}`)
	require.NoError(t, err)
	assert.Equal(t, core.ClassSpam, result.Classification)
}

func TestParseVerdictUnknownClassification(t *testing.T) {
	_, err := ParseVerdict(`{"is_spam": true, "confidence": 0.9, "reason": "x", "classification": "malware"}`)
	assert.Error(t, err)
}

func TestParseVerdictClampsConfidence(t *testing.T) {
	result, err := ParseVerdict(`{"is_spam": true, "confidence": 1.7, "reason": "x", "classification": "spam"}`)
	require.NoError(t, err)
	assert.InDelta(t, 1.0, result.Confidence, 1e-9)

	result, err = ParseVerdict(`{"is_spam": false, "confidence": -0.3, "reason": "x", "classification": "legitimate"}`)
	require.NoError(t, err)
	assert.InDelta(t, 0.0, result.Confidence, 1e-9)
}

func TestFallbackIsConservative(t *testing.T) {
	result := Fallback("analysis failed: timeout")
	assert.True(t, result.IsSpam)
	assert.InDelta(t, 0.5, result.Confidence, 1e-9)
	assert.Equal(t, core.ClassSuspicious, result.Classification)
	assert.Equal(t, "analysis failed: timeout", result.Reason)
}

func TestBuildPromptDeterministic(t *testing.T) {
	prompt := BuildPrompt("hello there")
	assert.Equal(t, prompt, BuildPrompt("hello there"))
	assert.Contains(t, prompt, `Message: "hello there"`)
	assert.Contains(t, prompt, "is_spam")
	assert.Contains(t, prompt, "classification")
}
