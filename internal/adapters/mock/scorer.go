package mock

import (
	"context"
	"fmt"
	"strings"

	"github.com/mikey/llm-msg-triage/internal/core"
	"go.uber.org/zap"
)

// Scorer is an offline stand-in for a remote LLM provider. It keeps the
// pipeline testable when no provider is configured by scanning for
// keyword classes and emitting verdicts with the remote output contract.
type Scorer struct {
	logger *zap.Logger
}

// NewScorer creates a new mock scorer
func NewScorer(logger *zap.Logger) *Scorer {
	return &Scorer{logger: logger}
}

var (
	strongKeywords = []string{
		"you have won", "claim your prize", "no collateral", "free money",
		"click this link", "account locked", "verify immediately",
		"get rich", "guaranteed profit",
	}
	moneyKeywords = []string{
		"send me money", "need money urgently", "please transfer",
		"lend me", "wire transfer",
	}
	mildKeywords = []string{
		"transfer", "otp", "investment", "promotion", "discount", "buy now",
	}
)

// Score emits a deterministic verdict based on keyword classes
func (s *Scorer) Score(_ context.Context, text string) core.ScoreResult {
	lower := strings.ToLower(text)

	strong := count(lower, strongKeywords)
	money := count(lower, moneyKeywords)
	mild := count(lower, mildKeywords)

	s.logger.Debug("Mock scorer matched",
		zap.Int("strong", strong),
		zap.Int("money", money),
		zap.Int("mild", mild))

	switch {
	case strong >= 1:
		return core.ScoreResult{
			IsSpam:         true,
			Confidence:     0.9,
			Reason:         fmt.Sprintf("detected %d strong spam keyword(s)", strong),
			Classification: core.ClassSpam,
		}
	case money >= 1:
		return core.ScoreResult{
			IsSpam:         true,
			Confidence:     0.8,
			Reason:         fmt.Sprintf("detected %d money-request keyword(s)", money),
			Classification: core.ClassSpam,
		}
	case mild >= 2:
		return core.ScoreResult{
			IsSpam:         false,
			Confidence:     0.6,
			Reason:         fmt.Sprintf("detected %d mild spam keyword(s), needs review", mild),
			Classification: core.ClassSuspicious,
		}
	case mild == 1:
		return core.ScoreResult{
			IsSpam:         false,
			Confidence:     0.7,
			Reason:         "one questionable keyword, possibly legitimate",
			Classification: core.ClassSuspicious,
		}
	default:
		return core.ScoreResult{
			IsSpam:         false,
			Confidence:     0.9,
			Reason:         "no spam keywords detected",
			Classification: core.ClassLegitimate,
		}
	}
}

func count(text string, keywords []string) int {
	n := 0
	for _, kw := range keywords {
		if strings.Contains(text, kw) {
			n++
		}
	}
	return n
}
