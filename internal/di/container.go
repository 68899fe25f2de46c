package di

import (
	"go.uber.org/dig"
	"go.uber.org/zap"

	"github.com/mikey/llm-msg-triage/internal/adapters/ingest"
	"github.com/mikey/llm-msg-triage/internal/config"
	"github.com/mikey/llm-msg-triage/internal/core"
	"github.com/mikey/llm-msg-triage/internal/factory"
	"github.com/mikey/llm-msg-triage/internal/logging"
	"github.com/mikey/llm-msg-triage/internal/scorer"
	"github.com/mikey/llm-msg-triage/internal/utils"
	"github.com/mikey/llm-msg-triage/internal/whitelist"
)

// BuildContainer creates and configures a dependency injection container
func BuildContainer() (*dig.Container, error) {
	container := dig.New()

	// Register configuration
	if err := container.Provide(config.New); err != nil {
		return nil, err
	}

	// Register logger
	if err := container.Provide(logging.InitLogger); err != nil {
		return nil, err
	}

	// Register text processor
	if err := container.Provide(utils.NewTextProcessor); err != nil {
		return nil, err
	}

	// Register factories
	if err := container.Provide(factory.NewLLMFactory); err != nil {
		return nil, err
	}
	if err := container.Provide(factory.NewStoreFactory); err != nil {
		return nil, err
	}

	// Register message store
	if err := container.Provide(func(f *factory.StoreFactory) (core.MessageStore, error) {
		return f.CreateMessageStore()
	}); err != nil {
		return nil, err
	}

	// Register remote score provider
	if err := container.Provide(func(f *factory.LLMFactory) (core.ScoreProvider, error) {
		return f.CreateRemoteScorer()
	}); err != nil {
		return nil, err
	}

	// Register local score provider
	if err := container.Provide(scorer.NewKeywordScorer); err != nil {
		return nil, err
	}

	// Register sender whitelist
	if err := container.Provide(func(cfg *config.Config, logger *zap.Logger) *whitelist.Checker {
		return whitelist.NewChecker(cfg.GetTriage().WhitelistedSenders, logger)
	}); err != nil {
		return nil, err
	}

	// Register decision engine
	if err := container.Provide(func(cfg *config.Config, logger *zap.Logger) *core.DecisionEngine {
		triage := cfg.GetTriage()
		return core.NewDecisionEngine(triage.BayesThreshold, triage.SuspiciousThreshold, logger)
	}); err != nil {
		return nil, err
	}

	// Register pipeline
	if err := container.Provide(func(
		cfg *config.Config,
		store core.MessageStore,
		local *scorer.KeywordScorer,
		remote core.ScoreProvider,
		engine *core.DecisionEngine,
		wl *whitelist.Checker,
		logger *zap.Logger,
	) *core.Pipeline {
		return core.NewPipeline(store, local, remote, engine, wl, logger, cfg.GetInt("pipeline.batch_size"))
	}); err != nil {
		return nil, err
	}

	// Register SMTP ingest server
	if err := container.Provide(func(cfg *config.Config, store core.MessageStore, logger *zap.Logger) *ingest.Server {
		return ingest.NewServer(
			store,
			logger,
			cfg.GetString("ingest.listen_address"),
			cfg.GetString("ingest.domain"),
			cfg.GetBool("ingest.enabled"),
		)
	}); err != nil {
		return nil, err
	}

	return container, nil
}
