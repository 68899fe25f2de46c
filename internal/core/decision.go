package core

import (
	"fmt"

	"go.uber.org/zap"
)

// Decision is a final (status, classification) pair together with the
// pipeline stage that produced it and a human-readable reason.
type Decision struct {
	Status         MessageStatus
	Classification Classification
	Stage          string
	Reason         string
}

// DecisionEngine combines local and remote scores into a final verdict
// using two configured thresholds.
type DecisionEngine struct {
	bayesThreshold      float64
	suspiciousThreshold float64
	logger              *zap.Logger
}

// NewDecisionEngine creates a new decision engine
func NewDecisionEngine(bayesThreshold, suspiciousThreshold float64, logger *zap.Logger) *DecisionEngine {
	return &DecisionEngine{
		bayesThreshold:      bayesThreshold,
		suspiciousThreshold: suspiciousThreshold,
		logger:              logger,
	}
}

// FastPath returns a final decision based on the local score alone, or
// ok=false when the score is inconclusive and the remote scorer is needed.
func (e *DecisionEngine) FastPath(probability float64) (Decision, bool) {
	if probability >= e.bayesThreshold {
		e.logger.Debug("Local score above spam threshold",
			zap.Float64("probability", probability),
			zap.Float64("threshold", e.bayesThreshold))
		return Decision{
			Status:         StatusRejected,
			Classification: ClassSpam,
			Stage:          StepNaiveBayes,
			Reason:         fmt.Sprintf("fast-path-spam: local score %.2f >= threshold %.2f", probability, e.bayesThreshold),
		}, true
	}
	if probability < e.suspiciousThreshold {
		e.logger.Debug("Local score below suspicious threshold",
			zap.Float64("probability", probability),
			zap.Float64("threshold", e.suspiciousThreshold))
		return Decision{
			Status:         StatusApproved,
			Classification: ClassLegitimate,
			Stage:          StepNaiveBayes,
			Reason:         fmt.Sprintf("fast-path-ham: local score %.2f < suspicious threshold %.2f", probability, e.suspiciousThreshold),
		}, true
	}
	return Decision{}, false
}

// Resolve turns a remote verdict into a final decision. The remote
// classification is authoritative; its is_spam flag picks between
// rejected and approved, and a suspicious classification holds the
// message for manual review.
func (e *DecisionEngine) Resolve(remote ScoreResult) Decision {
	classification := remote.Classification
	if !ValidClassification(classification) {
		classification = ClassSuspicious
	}

	status := StatusApproved
	if remote.IsSpam {
		status = StatusRejected
	}
	if classification == ClassSuspicious {
		status = StatusSuspicious
	}

	return Decision{
		Status:         status,
		Classification: classification,
		Stage:          StepLLMAnalysis,
		Reason:         fmt.Sprintf("escalated: LLM verdict = %s (confidence %.2f)", classification, remote.Confidence),
	}
}
