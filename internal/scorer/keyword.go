package scorer

import (
	"context"
	"fmt"
	"strings"

	"github.com/mikey/llm-msg-triage/internal/core"
	"go.uber.org/zap"
)

// Keyword scorer classes, ordered by how strongly a match indicates spam
var (
	strongKeywords = []string{
		"you have won", "claim your prize", "congratulations you",
		"no collateral", "free money", "account locked", "account suspended",
		"verify immediately", "click this link", "get rich", "guaranteed profit",
		"act now", "limited offer",
	}
	moneyKeywords = []string{
		"send me money", "need money urgently", "please transfer",
		"wire transfer", "lend me", "western union", "gift card",
	}
	mildKeywords = []string{
		"transfer", "otp", "investment", "promotion", "discount",
		"buy now", "exclusive deal", "winner", "reward",
	}
)

// Per-class evidence weights for the noisy-OR combination below
const (
	baseProbability = 0.05
	strongWeight    = 0.6
	moneyWeight     = 0.5
	mildWeight      = 0.15
)

// KeywordScorer is the local score provider: a deterministic keyword-class
// classifier standing in for a trained model. It is synchronous, performs
// no I/O, and never fails.
type KeywordScorer struct {
	logger *zap.Logger
}

// NewKeywordScorer creates a new local keyword scorer
func NewKeywordScorer(logger *zap.Logger) *KeywordScorer {
	return &KeywordScorer{logger: logger}
}

// Score produces a spam probability for the message text. Each keyword
// match contributes independent evidence; matches are combined with a
// noisy-OR so repeated hits saturate instead of exceeding 1.
func (s *KeywordScorer) Score(_ context.Context, text string) core.ScoreResult {
	lower := strings.ToLower(text)

	strong := countMatches(lower, strongKeywords)
	money := countMatches(lower, moneyKeywords)
	mild := countMatches(lower, mildKeywords)

	clean := 1.0 - baseProbability
	for i := 0; i < strong; i++ {
		clean *= 1.0 - strongWeight
	}
	for i := 0; i < money; i++ {
		clean *= 1.0 - moneyWeight
	}
	for i := 0; i < mild; i++ {
		clean *= 1.0 - mildWeight
	}
	probability := 1.0 - clean
	if probability > 0.99 {
		probability = 0.99
	}

	s.logger.Debug("Keyword scorer matched",
		zap.Int("strong", strong),
		zap.Int("money", money),
		zap.Int("mild", mild),
		zap.Float64("probability", probability))

	reason := "no spam keywords matched"
	if strong+money+mild > 0 {
		reason = fmt.Sprintf("matched %d strong, %d money-request, %d mild keyword(s)", strong, money, mild)
	}

	isSpam := probability >= 0.5
	confidence := probability
	classification := core.ClassSpam
	if !isSpam {
		confidence = 1.0 - probability
		classification = core.ClassLegitimate
	}

	return core.ScoreResult{
		IsSpam:         isSpam,
		Confidence:     confidence,
		Reason:         reason,
		Classification: classification,
	}
}

func countMatches(text string, keywords []string) int {
	n := 0
	for _, kw := range keywords {
		if strings.Contains(text, kw) {
			n++
		}
	}
	return n
}
