package factory

import (
	"context"
	"fmt"

	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime"
	"github.com/mikey/llm-msg-triage/internal/adapters/bedrock"
	"github.com/mikey/llm-msg-triage/internal/adapters/chatapi"
	"github.com/mikey/llm-msg-triage/internal/adapters/gemini"
	"github.com/mikey/llm-msg-triage/internal/adapters/mock"
	"github.com/mikey/llm-msg-triage/internal/config"
	"github.com/mikey/llm-msg-triage/internal/core"
	"github.com/mikey/llm-msg-triage/internal/utils"
	"go.uber.org/zap"
)

// LLMFactory creates remote score providers
type LLMFactory struct {
	cfg           *config.Config
	logger        *zap.Logger
	textProcessor *utils.TextProcessor
}

// NewLLMFactory creates a new LLM factory
func NewLLMFactory(cfg *config.Config, logger *zap.Logger, textProcessor *utils.TextProcessor) *LLMFactory {
	return &LLMFactory{
		cfg:           cfg,
		logger:        logger,
		textProcessor: textProcessor,
	}
}

// CreateRemoteScorer creates the remote score provider selected by the
// configuration. An empty provider selects the offline mock so the
// pipeline stays testable without credentials.
func (f *LLMFactory) CreateRemoteScorer() (core.ScoreProvider, error) {
	llmCfg := f.cfg.GetLLM()

	switch llmCfg.Provider {
	case "openai", "groq", "openrouter":
		providerCfg := f.cfg.GetChatAPI(llmCfg.Provider)
		return chatapi.NewClient(
			chatapi.Provider(llmCfg.Provider),
			providerCfg.APIKey,
			providerCfg.ModelName,
			llmCfg.Timeout,
			llmCfg.MaxBodySize,
			f.logger,
			f.textProcessor,
		)
	case "gemini":
		geminiCfg := f.cfg.GetGemini()
		return gemini.NewClient(
			geminiCfg.APIKey,
			geminiCfg.ModelName,
			llmCfg.Timeout,
			llmCfg.MaxBodySize,
			f.logger,
			f.textProcessor,
		)
	case "bedrock":
		bedrockCfg := f.cfg.GetBedrock()
		awsCfg, err := awsconfig.LoadDefaultConfig(context.Background(),
			awsconfig.WithRegion(bedrockCfg.Region))
		if err != nil {
			return nil, fmt.Errorf("failed to load AWS configuration: %w", err)
		}
		return bedrock.NewClient(
			bedrockruntime.NewFromConfig(awsCfg),
			bedrockCfg.ModelID,
			llmCfg.Timeout,
			llmCfg.MaxBodySize,
			f.logger,
			f.textProcessor,
		), nil
	case "", "mock":
		return mock.NewScorer(f.logger), nil
	default:
		return nil, fmt.Errorf("unsupported LLM provider: %s", llmCfg.Provider)
	}
}
