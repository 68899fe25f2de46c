package bedrock

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime"
	"github.com/mikey/llm-msg-triage/internal/core"
	"github.com/mikey/llm-msg-triage/internal/llm"
	"github.com/mikey/llm-msg-triage/internal/utils"
	"go.uber.org/zap"
)

// Client is a remote score provider backed by Amazon Bedrock
type Client struct {
	client        *bedrockruntime.Client
	modelID       string
	timeout       time.Duration
	maxBodySize   int
	logger        *zap.Logger
	textProcessor *utils.TextProcessor
}

// NewClient creates a new Bedrock client
func NewClient(
	client *bedrockruntime.Client,
	modelID string,
	timeout time.Duration,
	maxBodySize int,
	logger *zap.Logger,
	textProcessor *utils.TextProcessor,
) *Client {
	return &Client{
		client:        client,
		modelID:       modelID,
		timeout:       timeout,
		maxBodySize:   maxBodySize,
		logger:        logger,
		textProcessor: textProcessor,
	}
}

func (c *Client) isAnthropicModel() bool {
	return strings.HasPrefix(c.modelID, "anthropic.")
}

func (c *Client) isAmazonTitanModel() bool {
	return strings.HasPrefix(c.modelID, "amazon.titan")
}

// Score analyzes message text with Bedrock, degrading to the conservative
// fallback verdict on any failure.
func (c *Client) Score(ctx context.Context, text string) core.ScoreResult {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	prompt := llm.BuildPrompt(c.textProcessor.ProcessText(text, c.maxBodySize))

	payload, err := c.buildPayload(prompt)
	if err != nil {
		c.logger.Error("Failed to build Bedrock payload", zap.Error(err))
		return llm.Fallback(fmt.Sprintf("analysis failed: %v", err))
	}

	resp, err := c.client.InvokeModel(ctx, &bedrockruntime.InvokeModelInput{
		ModelId:     aws.String(c.modelID),
		ContentType: aws.String("application/json"),
		Accept:      aws.String("application/json"),
		Body:        payload,
	})
	if err != nil {
		c.logger.Error("Bedrock request failed",
			zap.String("model_id", c.modelID),
			zap.Error(err))
		return llm.Fallback(fmt.Sprintf("analysis failed: provider request error: %v", err))
	}

	raw, err := c.extractText(resp.Body)
	if err != nil {
		c.logger.Error("Failed to extract Bedrock completion",
			zap.String("model_id", c.modelID),
			zap.Error(err))
		return llm.Fallback(fmt.Sprintf("analysis failed: %v", err))
	}

	result, err := llm.ParseVerdict(raw)
	if err != nil {
		c.logger.Error("Failed to parse Bedrock verdict",
			zap.String("raw", raw),
			zap.Error(err))
		return llm.Fallback(fmt.Sprintf("analysis failed: %v", err))
	}

	return result
}

// buildPayload formats the request body for the model family in use
func (c *Client) buildPayload(prompt string) ([]byte, error) {
	switch {
	case c.isAnthropicModel():
		return json.Marshal(map[string]interface{}{
			"prompt":               fmt.Sprintf("\n\nHuman: %s\n\nAssistant:", prompt),
			"max_tokens_to_sample": llm.MaxTokens,
			"temperature":          llm.Temperature,
		})
	case c.isAmazonTitanModel():
		return json.Marshal(map[string]interface{}{
			"inputText": prompt,
			"textGenerationConfig": map[string]interface{}{
				"maxTokenCount": llm.MaxTokens,
				"temperature":   llm.Temperature,
			},
		})
	default:
		return json.Marshal(map[string]interface{}{
			"prompt":      prompt,
			"max_tokens":  llm.MaxTokens,
			"temperature": llm.Temperature,
		})
	}
}

// extractText pulls the completion text out of the model-specific reply shape
func (c *Client) extractText(body []byte) (string, error) {
	switch {
	case c.isAnthropicModel():
		var resp struct {
			Completion string `json:"completion"`
		}
		if err := json.Unmarshal(body, &resp); err != nil {
			return "", fmt.Errorf("failed to decode Anthropic response: %w", err)
		}
		return resp.Completion, nil
	case c.isAmazonTitanModel():
		var resp struct {
			Results []struct {
				OutputText string `json:"outputText"`
			} `json:"results"`
		}
		if err := json.Unmarshal(body, &resp); err != nil {
			return "", fmt.Errorf("failed to decode Titan response: %w", err)
		}
		if len(resp.Results) == 0 {
			return "", fmt.Errorf("empty Titan response")
		}
		return resp.Results[0].OutputText, nil
	default:
		var resp struct {
			Completion string `json:"completion"`
			Text       string `json:"text"`
		}
		if err := json.Unmarshal(body, &resp); err != nil {
			return "", fmt.Errorf("failed to decode response: %w", err)
		}
		if resp.Completion != "" {
			return resp.Completion, nil
		}
		return resp.Text, nil
	}
}
