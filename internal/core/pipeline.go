package core

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Pipeline drives pending messages through the staged scoring policy:
// local scorer, threshold check, optional remote escalation, finalize.
type Pipeline struct {
	store     MessageStore
	local     ScoreProvider
	remote    ScoreProvider
	engine    *DecisionEngine
	whitelist SenderWhitelist
	logger    *zap.Logger
	batchSize int
}

// NewPipeline creates a new triage pipeline
func NewPipeline(
	store MessageStore,
	local ScoreProvider,
	remote ScoreProvider,
	engine *DecisionEngine,
	whitelist SenderWhitelist,
	logger *zap.Logger,
	batchSize int,
) *Pipeline {
	if batchSize <= 0 {
		batchSize = 10
	}
	return &Pipeline{
		store:     store,
		local:     local,
		remote:    remote,
		engine:    engine,
		whitelist: whitelist,
		logger:    logger,
		batchSize: batchSize,
	}
}

// Recover returns interrupted in_progress messages to the pending queue.
// Call once before the first ProcessPending of a run.
func (p *Pipeline) Recover(ctx context.Context) error {
	n, err := p.store.RequeueInProgress(ctx)
	if err != nil {
		return fmt.Errorf("failed to requeue interrupted messages: %w", err)
	}
	if n > 0 {
		p.logger.Info("Requeued interrupted messages", zap.Int64("count", n))
	}
	return nil
}

// ProcessPending claims and processes one batch of pending messages in
// creation order. Store failures stop the batch and propagate; provider
// failures never do.
func (p *Pipeline) ProcessPending(ctx context.Context) (int, error) {
	messages, err := p.store.FetchPending(ctx, p.batchSize)
	if err != nil {
		return 0, fmt.Errorf("failed to fetch pending messages: %w", err)
	}

	processed := 0
	for _, msg := range messages {
		if ctx.Err() != nil {
			return processed, ctx.Err()
		}
		if err := p.ProcessMessage(ctx, msg); err != nil {
			return processed, err
		}
		processed++
	}
	return processed, nil
}

// ProcessMessage runs one message through the full pipeline. It returns
// an error only for store failures; the message is released back to
// pending so a later run can retry it.
func (p *Pipeline) ProcessMessage(ctx context.Context, msg *Message) error {
	runID := uuid.NewString()
	log := p.logger.With(
		zap.Int64("message_id", msg.ID),
		zap.String("run_id", runID))

	claimed, err := p.store.Claim(ctx, msg.ID)
	if err != nil {
		return fmt.Errorf("failed to claim message %d: %w", msg.ID, err)
	}
	if !claimed {
		log.Debug("Message already claimed by another worker")
		return nil
	}

	if p.whitelist != nil && p.whitelist.IsWhitelisted(msg.Sender) {
		log.Info("Sender is whitelisted, skipping triage", zap.String("sender", msg.Sender))
		p.appendLog(ctx, log, msg.ID, StepWhitelist, "bypass",
			fmt.Sprintf("sender %s is whitelisted", msg.Sender))
		return p.finalize(ctx, log, msg.ID, Decision{
			Status:         StatusApproved,
			Classification: ClassLegitimate,
		}, nil, nil)
	}

	localResult := p.local.Score(ctx, msg.Content)
	probability := localResult.SpamProbability()
	log.Debug("Local scorer finished",
		zap.Float64("probability", probability),
		zap.String("reason", localResult.Reason))

	if decision, ok := p.engine.FastPath(probability); ok {
		p.appendLog(ctx, log, msg.ID, StepNaiveBayes, fastPathResult(decision), decision.Reason)
		log.Info("Message finalized on fast path",
			zap.String("status", string(decision.Status)),
			zap.Float64("probability", probability))
		return p.finalize(ctx, log, msg.ID, decision, &probability, nil)
	}

	p.appendLog(ctx, log, msg.ID, StepNaiveBayes, "escalate",
		fmt.Sprintf("local score %.2f is inconclusive", probability))

	started := time.Now()
	remoteResult := p.remote.Score(ctx, msg.Content)
	log.Debug("Remote scorer finished",
		zap.Duration("elapsed", time.Since(started)),
		zap.Bool("is_spam", remoteResult.IsSpam),
		zap.Float64("confidence", remoteResult.Confidence))

	p.appendLog(ctx, log, msg.ID, StepLLMAnalysis, string(remoteResult.Classification),
		fmt.Sprintf("is_spam=%t confidence=%.2f reason=%s",
			remoteResult.IsSpam, remoteResult.Confidence, remoteResult.Reason))

	decision := p.engine.Resolve(remoteResult)
	p.appendLog(ctx, log, msg.ID, StepDecision, string(decision.Status), decision.Reason)

	llmScore := remoteResult.SignedScore()
	log.Info("Message finalized after escalation",
		zap.String("status", string(decision.Status)),
		zap.String("classification", string(decision.Classification)),
		zap.Float64("llm_score", llmScore))
	return p.finalize(ctx, log, msg.ID, decision, &probability, &llmScore)
}

// Run polls the queue until the context is cancelled. Store errors are
// logged and the loop keeps going; the affected messages stay claimable.
func (p *Pipeline) Run(ctx context.Context, pollInterval time.Duration) error {
	if err := p.Recover(ctx); err != nil {
		return err
	}

	ticker := time.NewTicker(pollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			n, err := p.ProcessPending(ctx)
			if err != nil {
				if ctx.Err() != nil {
					return ctx.Err()
				}
				p.logger.Error("Failed to process pending batch", zap.Error(err))
				continue
			}
			if n > 0 {
				p.logger.Info("Processed batch", zap.Int("count", n))
			}
		}
	}
}

// finalize persists the verdict. On failure the claim is released so the
// message stays claimable, and the store error propagates to the caller.
func (p *Pipeline) finalize(ctx context.Context, log *zap.Logger, id int64, decision Decision, naiveBayesScore, llmScore *float64) error {
	if err := p.store.Finalize(ctx, id, decision.Status, decision.Classification, naiveBayesScore, llmScore); err != nil {
		if relErr := p.store.Release(ctx, id); relErr != nil {
			log.Error("Failed to release claim after finalize failure", zap.Error(relErr))
		}
		return fmt.Errorf("failed to finalize message %d: %w", id, err)
	}
	return nil
}

// appendLog writes an audit entry. A logging failure is reported but
// never stops processing.
func (p *Pipeline) appendLog(ctx context.Context, log *zap.Logger, id int64, step, result, details string) {
	if err := p.store.AppendLog(ctx, id, step, result, details); err != nil {
		log.Error("Failed to append audit entry",
			zap.String("step", step),
			zap.Error(err))
	}
}

func fastPathResult(d Decision) string {
	if d.Status == StatusRejected {
		return "fast-path-spam"
	}
	return "fast-path-ham"
}
