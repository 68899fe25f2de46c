package core

import (
	"time"
)

// MessageStatus is the lifecycle status of a queued message
type MessageStatus string

const (
	StatusPending    MessageStatus = "pending"
	StatusInProgress MessageStatus = "in_progress"
	StatusApproved   MessageStatus = "approved"
	StatusRejected   MessageStatus = "rejected"
	StatusSuspicious MessageStatus = "suspicious"
)

// Classification is the final verdict assigned to a message
type Classification string

const (
	ClassLegitimate Classification = "legitimate"
	ClassSuspicious Classification = "suspicious"
	ClassSpam       Classification = "spam"
)

// ValidClassification reports whether c is one of the three canonical labels
func ValidClassification(c Classification) bool {
	return c == ClassLegitimate || c == ClassSuspicious || c == ClassSpam
}

// Message represents a queued text message awaiting or holding a verdict
type Message struct {
	ID              int64
	Content         string
	Sender          string
	Status          MessageStatus
	NaiveBayesScore *float64
	// LLMScore is signed: positive confidence for spam verdicts,
	// negative confidence for legitimate ones
	LLMScore       *float64
	Classification Classification
	CreatedAt      time.Time
	ProcessedAt    *time.Time
}

// ScoreResult represents the verdict produced by a score provider
type ScoreResult struct {
	IsSpam         bool
	Confidence     float64
	Reason         string
	Classification Classification
}

// SpamProbability maps the result onto a single spam probability in [0,1]
func (r ScoreResult) SpamProbability() float64 {
	if r.IsSpam {
		return r.Confidence
	}
	return 1.0 - r.Confidence
}

// SignedScore is the stored llm_score convention: confidence signed by IsSpam
func (r ScoreResult) SignedScore() float64 {
	if r.IsSpam {
		return r.Confidence
	}
	return -r.Confidence
}

// FilterLogEntry is one append-only audit record for a message
type FilterLogEntry struct {
	ID        int64
	MessageID int64
	Step      string
	Result    string
	Details   string
	Timestamp time.Time
}

// Audit step names written by the pipeline
const (
	StepNaiveBayes  = "naive_bayes"
	StepLLMAnalysis = "llm_analysis"
	StepDecision    = "decision"
	StepWhitelist   = "whitelist"
)

// MessageWithAudit pairs a message with its concatenated audit trail
type MessageWithAudit struct {
	Message *Message
	Audit   string
}
