package chatapi

import (
	"context"
	"fmt"
	"time"

	"github.com/mikey/llm-msg-triage/internal/core"
	"github.com/mikey/llm-msg-triage/internal/llm"
	"github.com/mikey/llm-msg-triage/internal/utils"
	"github.com/sashabaranov/go-openai"
	"go.uber.org/zap"
)

// Provider selects one of the OpenAI-compatible chat-completions APIs.
// All three share an identical request shape; only the endpoint and the
// model name differ.
type Provider string

const (
	ProviderOpenAI     Provider = "openai"
	ProviderGroq       Provider = "groq"
	ProviderOpenRouter Provider = "openrouter"
)

var baseURLs = map[Provider]string{
	ProviderOpenAI:     "", // SDK default
	ProviderGroq:       "https://api.groq.com/openai/v1",
	ProviderOpenRouter: "https://openrouter.ai/api/v1",
}

// Client is a remote score provider backed by an OpenAI-compatible
// chat-completions endpoint. It never returns an error across its
// boundary: every failure degrades to the conservative fallback verdict.
type Client struct {
	client        *openai.Client
	provider      Provider
	modelName     string
	timeout       time.Duration
	maxBodySize   int
	logger        *zap.Logger
	textProcessor *utils.TextProcessor
}

// NewClient creates a client for the given provider. The API key is sent
// as a bearer token on every request.
func NewClient(
	provider Provider,
	apiKey string,
	modelName string,
	timeout time.Duration,
	maxBodySize int,
	logger *zap.Logger,
	textProcessor *utils.TextProcessor,
) (*Client, error) {
	baseURL, ok := baseURLs[provider]
	if !ok {
		return nil, fmt.Errorf("unsupported chat API provider: %s", provider)
	}

	cfg := openai.DefaultConfig(apiKey)
	if baseURL != "" {
		cfg.BaseURL = baseURL
	}

	return &Client{
		client:        openai.NewClientWithConfig(cfg),
		provider:      provider,
		modelName:     modelName,
		timeout:       timeout,
		maxBodySize:   maxBodySize,
		logger:        logger,
		textProcessor: textProcessor,
	}, nil
}

// Score analyzes message text via the configured provider. The prompt is
// a single user-role message; the reply is expected to carry a JSON
// verdict somewhere in the completion text.
func (c *Client) Score(ctx context.Context, text string) core.ScoreResult {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	prompt := llm.BuildPrompt(c.textProcessor.ProcessText(text, c.maxBodySize))

	resp, err := c.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: c.modelName,
		Messages: []openai.ChatCompletionMessage{
			{
				Role:    openai.ChatMessageRoleUser,
				Content: prompt,
			},
		},
		MaxTokens:   llm.MaxTokens,
		Temperature: llm.Temperature,
	})
	if err != nil {
		c.logger.Error("Chat completion request failed",
			zap.String("provider", string(c.provider)),
			zap.String("model", c.modelName),
			zap.Error(err))
		return llm.Fallback(fmt.Sprintf("analysis failed: provider request error: %v", err))
	}

	if len(resp.Choices) == 0 {
		c.logger.Error("Chat completion returned no choices",
			zap.String("provider", string(c.provider)))
		return llm.Fallback("analysis failed: empty response from provider")
	}

	result, err := llm.ParseVerdict(resp.Choices[0].Message.Content)
	if err != nil {
		c.logger.Error("Failed to parse provider verdict",
			zap.String("provider", string(c.provider)),
			zap.String("raw", resp.Choices[0].Message.Content),
			zap.Error(err))
		return llm.Fallback(fmt.Sprintf("analysis failed: %v", err))
	}

	return result
}
