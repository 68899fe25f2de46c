package gemini

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/generative-ai-go/genai"
	"github.com/mikey/llm-msg-triage/internal/core"
	"github.com/mikey/llm-msg-triage/internal/llm"
	"github.com/mikey/llm-msg-triage/internal/utils"
	"go.uber.org/zap"
	"google.golang.org/api/option"
)

// Client is a remote score provider backed by Google Gemini
type Client struct {
	client        *genai.Client
	model         *genai.GenerativeModel
	modelName     string
	timeout       time.Duration
	maxBodySize   int
	logger        *zap.Logger
	textProcessor *utils.TextProcessor
}

// NewClient creates a new Gemini client
func NewClient(
	apiKey string,
	modelName string,
	timeout time.Duration,
	maxBodySize int,
	logger *zap.Logger,
	textProcessor *utils.TextProcessor,
) (*Client, error) {
	client, err := genai.NewClient(context.Background(), option.WithAPIKey(apiKey))
	if err != nil {
		return nil, fmt.Errorf("failed to create Gemini client: %w", err)
	}

	model := client.GenerativeModel(modelName)
	model.SetTemperature(llm.Temperature)
	model.SetMaxOutputTokens(llm.MaxTokens)

	return &Client{
		client:        client,
		model:         model,
		modelName:     modelName,
		timeout:       timeout,
		maxBodySize:   maxBodySize,
		logger:        logger,
		textProcessor: textProcessor,
	}, nil
}

// Close closes the underlying Gemini client
func (c *Client) Close() error {
	if c.client != nil {
		return c.client.Close()
	}
	return nil
}

// Score analyzes message text with Gemini, degrading to the conservative
// fallback verdict on any failure.
func (c *Client) Score(ctx context.Context, text string) core.ScoreResult {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	prompt := llm.BuildPrompt(c.textProcessor.ProcessText(text, c.maxBodySize))

	resp, err := c.model.GenerateContent(ctx, genai.Text(prompt))
	if err != nil {
		c.logger.Error("Gemini request failed",
			zap.String("model", c.modelName),
			zap.Error(err))
		return llm.Fallback(fmt.Sprintf("analysis failed: provider request error: %v", err))
	}

	raw := extractText(resp)
	if raw == "" {
		c.logger.Error("Gemini returned no text content", zap.String("model", c.modelName))
		return llm.Fallback("analysis failed: empty response from provider")
	}

	result, err := llm.ParseVerdict(raw)
	if err != nil {
		c.logger.Error("Failed to parse Gemini verdict",
			zap.String("raw", raw),
			zap.Error(err))
		return llm.Fallback(fmt.Sprintf("analysis failed: %v", err))
	}

	return result
}

// extractText concatenates the text parts of the first candidate
func extractText(resp *genai.GenerateContentResponse) string {
	if resp == nil || len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return ""
	}

	var sb strings.Builder
	for _, part := range resp.Candidates[0].Content.Parts {
		if text, ok := part.(genai.Text); ok {
			sb.WriteString(string(text))
		}
	}
	return sb.String()
}
