package core

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
)

func newTestEngine() *DecisionEngine {
	return NewDecisionEngine(0.6, 0.4, zap.NewNop())
}

func TestFastPathSpam(t *testing.T) {
	engine := newTestEngine()

	decision, ok := engine.FastPath(0.95)
	assert.True(t, ok)
	assert.Equal(t, StatusRejected, decision.Status)
	assert.Equal(t, ClassSpam, decision.Classification)
	assert.Equal(t, StepNaiveBayes, decision.Stage)
	assert.Contains(t, decision.Reason, "fast-path-spam")
}

func TestFastPathHam(t *testing.T) {
	engine := newTestEngine()

	decision, ok := engine.FastPath(0.1)
	assert.True(t, ok)
	assert.Equal(t, StatusApproved, decision.Status)
	assert.Equal(t, ClassLegitimate, decision.Classification)
	assert.Contains(t, decision.Reason, "fast-path-ham")
}

func TestFastPathBoundaries(t *testing.T) {
	engine := newTestEngine()

	// The spam threshold is inclusive
	decision, ok := engine.FastPath(0.6)
	assert.True(t, ok)
	assert.Equal(t, StatusRejected, decision.Status)

	// The suspicious threshold is exclusive: exactly 0.4 escalates
	_, ok = engine.FastPath(0.4)
	assert.False(t, ok)

	decision, ok = engine.FastPath(0.39)
	assert.True(t, ok)
	assert.Equal(t, StatusApproved, decision.Status)

	_, ok = engine.FastPath(0.59)
	assert.False(t, ok)
}

func TestResolveSpamVerdict(t *testing.T) {
	engine := newTestEngine()

	decision := engine.Resolve(ScoreResult{
		IsSpam:         true,
		Confidence:     0.9,
		Reason:         "phishing attempt",
		Classification: ClassSpam,
	})
	assert.Equal(t, StatusRejected, decision.Status)
	assert.Equal(t, ClassSpam, decision.Classification)
	assert.Equal(t, StepLLMAnalysis, decision.Stage)
}

func TestResolveLegitimateVerdict(t *testing.T) {
	engine := newTestEngine()

	decision := engine.Resolve(ScoreResult{
		IsSpam:         false,
		Confidence:     0.85,
		Classification: ClassLegitimate,
	})
	assert.Equal(t, StatusApproved, decision.Status)
	assert.Equal(t, ClassLegitimate, decision.Classification)
}

func TestResolveSuspiciousHoldsRegardlessOfFlag(t *testing.T) {
	engine := newTestEngine()

	// A suspicious classification wins over the is_spam flag either way
	decision := engine.Resolve(ScoreResult{
		IsSpam:         true,
		Confidence:     0.5,
		Classification: ClassSuspicious,
	})
	assert.Equal(t, StatusSuspicious, decision.Status)

	decision = engine.Resolve(ScoreResult{
		IsSpam:         false,
		Confidence:     0.6,
		Classification: ClassSuspicious,
	})
	assert.Equal(t, StatusSuspicious, decision.Status)
}

func TestResolveUnknownClassificationCoercedToSuspicious(t *testing.T) {
	engine := newTestEngine()

	decision := engine.Resolve(ScoreResult{
		IsSpam:         false,
		Confidence:     0.7,
		Classification: Classification("junk"),
	})
	assert.Equal(t, StatusSuspicious, decision.Status)
	assert.Equal(t, ClassSuspicious, decision.Classification)
}

func TestSpamProbability(t *testing.T) {
	assert.InDelta(t, 0.9, ScoreResult{IsSpam: true, Confidence: 0.9}.SpamProbability(), 1e-9)
	assert.InDelta(t, 0.1, ScoreResult{IsSpam: false, Confidence: 0.9}.SpamProbability(), 1e-9)
}

func TestSignedScore(t *testing.T) {
	assert.InDelta(t, 0.8, ScoreResult{IsSpam: true, Confidence: 0.8}.SignedScore(), 1e-9)
	assert.InDelta(t, -0.8, ScoreResult{IsSpam: false, Confidence: 0.8}.SignedScore(), 1e-9)
}
