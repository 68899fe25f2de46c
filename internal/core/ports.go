package core

import (
	"context"
)

// ScoreProvider produces a spam verdict for a piece of message text.
// Implementations must not fail: anything that goes wrong is converted
// into a conservative fallback result inside the provider.
type ScoreProvider interface {
	// Score analyzes message text and returns a verdict
	Score(ctx context.Context, text string) ScoreResult
}

// SenderWhitelist reports whether a sender bypasses triage entirely
type SenderWhitelist interface {
	IsWhitelisted(sender string) bool
}

// MessageStore is the durable message queue and audit log
type MessageStore interface {
	// Enqueue creates a new pending message and returns its id
	Enqueue(ctx context.Context, content, sender string) (int64, error)

	// FetchPending returns pending messages, oldest-created first
	FetchPending(ctx context.Context, limit int) ([]*Message, error)

	// Claim atomically transitions a message from pending to in_progress.
	// It reports false when another worker already holds the message.
	Claim(ctx context.Context, id int64) (bool, error)

	// Release returns a claimed message to pending so a later run can retry it
	Release(ctx context.Context, id int64) error

	// RequeueInProgress returns all in_progress messages to pending.
	// Called once at startup to recover work interrupted by a crash.
	RequeueInProgress(ctx context.Context) (int64, error)

	// Finalize records the verdict for a message. It is the only mutator
	// after creation and is safe to call twice for the same id: fields are
	// overwritten but processed_at is only set on the first call.
	Finalize(ctx context.Context, id int64, status MessageStatus, classification Classification, naiveBayesScore, llmScore *float64) error

	// AppendLog appends one audit entry for a message
	AppendLog(ctx context.Context, messageID int64, step, result, details string) error

	// ListMessages returns messages with the given status, newest-created first
	ListMessages(ctx context.Context, status MessageStatus) ([]*Message, error)

	// ListMessagesWithAudit returns all messages with their concatenated
	// audit trails, newest-created first
	ListMessagesWithAudit(ctx context.Context) ([]*MessageWithAudit, error)

	// Close releases the underlying storage resources
	Close() error
}
