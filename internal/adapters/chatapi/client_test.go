package chatapi

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/mikey/llm-msg-triage/internal/core"
	"github.com/mikey/llm-msg-triage/internal/utils"
	"github.com/sashabaranov/go-openai"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	cfg := openai.DefaultConfig("test-key")
	cfg.BaseURL = srv.URL + "/v1"

	return &Client{
		client:        openai.NewClientWithConfig(cfg),
		provider:      ProviderOpenAI,
		modelName:     "gpt-3.5-turbo",
		timeout:       5 * time.Second,
		maxBodySize:   4096,
		logger:        zap.NewNop(),
		textProcessor: utils.NewTextProcessor(zap.NewNop()),
	}
}

func completionResponse(content string) []byte {
	resp := openai.ChatCompletionResponse{
		Choices: []openai.ChatCompletionChoice{
			{Message: openai.ChatCompletionMessage{Role: openai.ChatMessageRoleAssistant, Content: content}},
		},
	}
	data, _ := json.Marshal(resp)
	return data
}

func TestNewClientKnownProviders(t *testing.T) {
	for _, p := range []Provider{ProviderOpenAI, ProviderGroq, ProviderOpenRouter} {
		c, err := NewClient(p, "key", "model", time.Second, 4096, zap.NewNop(), utils.NewTextProcessor(zap.NewNop()))
		require.NoError(t, err)
		assert.NotNil(t, c)
	}
}

func TestNewClientUnknownProvider(t *testing.T) {
	_, err := NewClient(Provider("azure"), "key", "model", time.Second, 4096, zap.NewNop(), utils.NewTextProcessor(zap.NewNop()))
	assert.Error(t, err)
}

func TestScoreParsesVerdict(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))
		w.Header().Set("Content-Type", "application/json")
		w.Write(completionResponse(`{"is_spam": true, "confidence": 0.93, "reason": "lottery scam", "classification": "spam"}`))
	})

	result := c.Score(context.Background(), "you have won the lottery")
	assert.True(t, result.IsSpam)
	assert.InDelta(t, 0.93, result.Confidence, 1e-9)
	assert.Equal(t, core.ClassSpam, result.Classification)
}

func TestScoreHandlesProseAroundVerdict(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write(completionResponse("Here is my assessment:\n" +
			`{"is_spam": false, "confidence": 0.8, "reason": "routine", "classification": "legitimate"}` +
			"\nHope that helps."))
	})

	result := c.Score(context.Background(), "see you at lunch")
	assert.False(t, result.IsSpam)
	assert.Equal(t, core.ClassLegitimate, result.Classification)
}

func TestScoreFallsBackOnRequestError(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "internal error", http.StatusInternalServerError)
	})

	result := c.Score(context.Background(), "some message")
	assert.True(t, result.IsSpam)
	assert.InDelta(t, 0.5, result.Confidence, 1e-9)
	assert.Equal(t, core.ClassSuspicious, result.Classification)
	assert.Contains(t, result.Reason, "analysis failed")
}

func TestScoreFallsBackOnUnparseableReply(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write(completionResponse("I really cannot decide about this one."))
	})

	result := c.Score(context.Background(), "some message")
	assert.True(t, result.IsSpam)
	assert.Equal(t, core.ClassSuspicious, result.Classification)
}

func TestScoreFallsBackOnEmptyChoices(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"choices": []}`))
	})

	result := c.Score(context.Background(), "some message")
	assert.True(t, result.IsSpam)
	assert.Equal(t, core.ClassSuspicious, result.Classification)
}
