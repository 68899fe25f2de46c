package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/mikey/llm-msg-triage/internal/config"
	"github.com/mikey/llm-msg-triage/internal/core"
	"github.com/mikey/llm-msg-triage/internal/factory"
	"github.com/mikey/llm-msg-triage/internal/logging"
	"github.com/mikey/llm-msg-triage/internal/scorer"
	"github.com/mikey/llm-msg-triage/internal/utils"
	"github.com/mikey/llm-msg-triage/internal/whitelist"
	"go.uber.org/zap"
)

var (
	mode = flag.String("mode", "analyze", "Operation mode (analyze, enqueue, run, inbox, audit)")

	// Message input flags
	text      = flag.String("text", "", "Message text (use -file or stdin if not specified)")
	inputFile = flag.String("file", "", "Input message file")
	sender    = flag.String("sender", "unknown", "Message sender")

	// LLM provider flags
	provider  = flag.String("provider", "", "LLM provider (openai, groq, openrouter, gemini, bedrock; empty = offline mock)")
	apiKey    = flag.String("api-key", "", "API key for the selected provider")
	modelName = flag.String("model", "", "Model name for the selected provider")

	// Bedrock flags
	bedrockRegion = flag.String("bedrock-region", "us-east-1", "AWS region for Bedrock")

	// Triage flags
	bayesThreshold      = flag.Float64("bayes-threshold", 0.6, "Local score threshold for the spam fast path")
	suspiciousThreshold = flag.Float64("suspicious-threshold", 0.4, "Local score threshold below which messages are approved")
	whitelistSenders    = flag.String("whitelist", "", "Comma-separated list of whitelisted senders or domains")

	// Store flags
	storeType = flag.String("store-type", "sqlite", "Message store backend (sqlite, mysql, memory)")
	dbPath    = flag.String("db", "./triage.db", "SQLite database path")
	mysqlDSN  = flag.String("mysql-dsn", "", "MySQL DSN (with -store-type=mysql)")

	// Inbox flags
	status = flag.String("status", "approved", "Status filter for -mode=inbox")

	// Misc flags
	verbose    = flag.Bool("verbose", false, "Enable verbose logging")
	jsonLog    = flag.Bool("json-log", false, "Output logs in JSON format")
	configFile = flag.String("config", "", "Path to config file (overrides command line flags)")
)

func main() {
	flag.Parse()

	logger, err := logging.InitConsoleLogger(*verbose, *jsonLog)
	if err != nil {
		fmt.Printf("Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	var cfg *config.Config
	if *configFile != "" {
		v := config.NewEmptyViper()
		v.SetConfigFile(*configFile)
		if err := v.ReadInConfig(); err != nil {
			logger.Fatal("Failed to load configuration", zap.String("file", *configFile), zap.Error(err))
		}
		cfg = config.NewFromViper(v)
		logger.Info("Loaded configuration from file", zap.String("file", *configFile))
	} else {
		cfg = createConfigFromFlags()
	}

	switch *mode {
	case "analyze":
		runAnalyze(cfg, logger)
	case "enqueue":
		runEnqueue(cfg, logger)
	case "run":
		runPipeline(cfg, logger)
	case "inbox":
		runInbox(cfg, logger)
	case "audit":
		runAudit(cfg, logger)
	default:
		logger.Fatal("Unsupported mode", zap.String("mode", *mode))
	}
}

// runAnalyze scores a single message directly, without touching a store
func runAnalyze(cfg *config.Config, logger *zap.Logger) {
	content := readMessageText(logger)

	fmt.Printf("\n=== Message Summary ===\n")
	fmt.Printf("Sender: %s\n", *sender)
	fmt.Printf("Length: %d bytes\n", len(content))

	fmt.Printf("\n=== Analysis ===\n")
	fmt.Printf("Provider: %s\n", providerLabel(cfg.GetString("llm.provider")))
	fmt.Printf("Thresholds: spam >= %.2f, legitimate < %.2f\n",
		cfg.GetFloat64("triage.bayes_threshold"),
		cfg.GetFloat64("triage.suspicious_threshold"))

	startTime := time.Now()

	local := scorer.NewKeywordScorer(logger)
	triage := cfg.GetTriage()
	engine := core.NewDecisionEngine(triage.BayesThreshold, triage.SuspiciousThreshold, logger)

	localResult := local.Score(context.Background(), content)
	probability := localResult.SpamProbability()
	fmt.Printf("Local score: %.4f (%s)\n", probability, localResult.Reason)

	decision, ok := engine.FastPath(probability)
	var remoteResult *core.ScoreResult
	if !ok {
		fmt.Printf("Local score inconclusive, escalating to remote scorer...\n")
		remote := createRemoteScorer(cfg, logger)
		result := remote.Score(context.Background(), content)
		remoteResult = &result
		decision = engine.Resolve(result)
		closeIfCloser(remote, logger)
	}

	fmt.Printf("\n=== Results ===\n")
	fmt.Printf("Status: %s\n", decision.Status)
	fmt.Printf("Classification: %s\n", decision.Classification)
	fmt.Printf("Decided by: %s\n", decision.Stage)
	fmt.Printf("Reason: %s\n", decision.Reason)
	if remoteResult != nil {
		fmt.Printf("Remote verdict: is_spam=%t confidence=%.4f (%s)\n",
			remoteResult.IsSpam, remoteResult.Confidence, remoteResult.Reason)
	}
	fmt.Printf("Processing time: %v\n", time.Since(startTime))
}

// runEnqueue adds one message to the queue
func runEnqueue(cfg *config.Config, logger *zap.Logger) {
	content := readMessageText(logger)

	store := openStore(cfg, logger)
	defer store.Close()

	id, err := store.Enqueue(context.Background(), content, *sender)
	if err != nil {
		logger.Fatal("Failed to enqueue message", zap.Error(err))
	}
	fmt.Printf("Enqueued message %d from %s\n", id, *sender)
}

// runPipeline processes the pending queue once
func runPipeline(cfg *config.Config, logger *zap.Logger) {
	store := openStore(cfg, logger)
	defer store.Close()

	remote := createRemoteScorer(cfg, logger)
	defer closeIfCloser(remote, logger)

	triage := cfg.GetTriage()
	pipeline := core.NewPipeline(
		store,
		scorer.NewKeywordScorer(logger),
		remote,
		core.NewDecisionEngine(triage.BayesThreshold, triage.SuspiciousThreshold, logger),
		whitelist.NewChecker(triage.WhitelistedSenders, logger),
		logger,
		cfg.GetInt("pipeline.batch_size"),
	)

	ctx := context.Background()
	if err := pipeline.Recover(ctx); err != nil {
		logger.Fatal("Failed to recover interrupted messages", zap.Error(err))
	}

	n, err := pipeline.ProcessPending(ctx)
	if err != nil {
		logger.Fatal("Failed to process pending messages", zap.Error(err))
	}
	fmt.Printf("Processed %d message(s)\n", n)
}

// runInbox lists messages with the requested status, newest first
func runInbox(cfg *config.Config, logger *zap.Logger) {
	store := openStore(cfg, logger)
	defer store.Close()

	messages, err := store.ListMessages(context.Background(), core.MessageStatus(*status))
	if err != nil {
		logger.Fatal("Failed to list messages", zap.Error(err))
	}

	fmt.Printf("%d message(s) with status %q\n\n", len(messages), *status)
	for _, msg := range messages {
		fmt.Printf("[%d] %s  from=%s  classification=%s\n",
			msg.ID, msg.CreatedAt.Format(time.RFC3339), msg.Sender, orDash(string(msg.Classification)))
		fmt.Printf("    %s\n", preview(msg.Content, 120))
	}
}

// runAudit lists every message with its audit trail
func runAudit(cfg *config.Config, logger *zap.Logger) {
	store := openStore(cfg, logger)
	defer store.Close()

	entries, err := store.ListMessagesWithAudit(context.Background())
	if err != nil {
		logger.Fatal("Failed to list audit trails", zap.Error(err))
	}

	for _, entry := range entries {
		msg := entry.Message
		fmt.Printf("[%d] status=%s classification=%s from=%s\n",
			msg.ID, msg.Status, orDash(string(msg.Classification)), msg.Sender)
		fmt.Printf("    %s\n", preview(msg.Content, 120))
		if entry.Audit != "" {
			fmt.Printf("    audit: %s\n", entry.Audit)
		}
		fmt.Printf("\n")
	}
}

func readMessageText(logger *zap.Logger) string {
	if *text != "" {
		return *text
	}
	var reader io.Reader = os.Stdin
	if *inputFile != "" {
		file, err := os.Open(*inputFile)
		if err != nil {
			logger.Fatal("Failed to open input file", zap.Error(err), zap.String("file", *inputFile))
		}
		defer file.Close()
		reader = file
	}
	data, err := io.ReadAll(reader)
	if err != nil {
		logger.Fatal("Failed to read message text", zap.Error(err))
	}
	content := strings.TrimSpace(string(data))
	if content == "" {
		logger.Fatal("Empty message text")
	}
	return content
}

func openStore(cfg *config.Config, logger *zap.Logger) core.MessageStore {
	store, err := factory.NewStoreFactory(cfg, logger).CreateMessageStore()
	if err != nil {
		logger.Fatal("Failed to open message store", zap.Error(err))
	}
	return store
}

func createRemoteScorer(cfg *config.Config, logger *zap.Logger) core.ScoreProvider {
	remote, err := factory.NewLLMFactory(cfg, logger, utils.NewTextProcessor(logger)).CreateRemoteScorer()
	if err != nil {
		logger.Fatal("Failed to create remote scorer", zap.Error(err))
	}
	return remote
}

func closeIfCloser(provider core.ScoreProvider, logger *zap.Logger) {
	if closer, ok := provider.(interface{ Close() error }); ok {
		if err := closer.Close(); err != nil {
			logger.Error("Failed to close remote scorer", zap.Error(err))
		}
	}
}

func providerLabel(provider string) string {
	if provider == "" {
		return "mock (offline)"
	}
	return provider
}

func preview(content string, max int) string {
	content = strings.ReplaceAll(content, "\n", " ")
	if len(content) > max {
		return content[:max] + "..."
	}
	return content
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}

// createConfigFromFlags creates a configuration from command line flags
func createConfigFromFlags() *config.Config {
	v := config.NewEmptyViper()

	v.Set("llm.provider", *provider)

	switch *provider {
	case "openai", "groq", "openrouter", "gemini":
		if *apiKey != "" {
			v.Set(*provider+".api_key", *apiKey)
		}
		if *modelName != "" {
			v.Set(*provider+".model_name", *modelName)
		}
	case "bedrock":
		v.Set("bedrock.region", *bedrockRegion)
		if *modelName != "" {
			v.Set("bedrock.model_id", *modelName)
		}
	}

	v.Set("triage.bayes_threshold", *bayesThreshold)
	v.Set("triage.suspicious_threshold", *suspiciousThreshold)

	if *whitelistSenders != "" {
		senders := strings.Split(*whitelistSenders, ",")
		for i, entry := range senders {
			senders[i] = strings.TrimSpace(entry)
		}
		v.Set("triage.whitelisted_senders", senders)
	} else {
		v.Set("triage.whitelisted_senders", []string{})
	}

	v.Set("store.type", *storeType)
	v.Set("store.sqlite_path", *dbPath)
	if *mysqlDSN != "" {
		v.Set("store.mysql_dsn", *mysqlDSN)
	}

	return config.NewFromViper(v)
}
