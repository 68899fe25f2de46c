package store

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/mikey/llm-msg-triage/internal/core"
	"go.uber.org/zap"
)

// MemoryStore is an in-memory implementation of the MessageStore
// interface, used for tests and offline runs.
type MemoryStore struct {
	mu       sync.RWMutex
	messages map[int64]*core.Message
	logs     map[int64][]core.FilterLogEntry
	nextID   int64
	logger   *zap.Logger
}

// NewMemoryStore creates a new in-memory message store
func NewMemoryStore(logger *zap.Logger) *MemoryStore {
	return &MemoryStore{
		messages: make(map[int64]*core.Message),
		logs:     make(map[int64][]core.FilterLogEntry),
		logger:   logger,
	}
}

// Enqueue creates a new pending message and returns its id
func (s *MemoryStore) Enqueue(_ context.Context, content, sender string) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.nextID++
	s.messages[s.nextID] = &core.Message{
		ID:        s.nextID,
		Content:   content,
		Sender:    sender,
		Status:    core.StatusPending,
		CreatedAt: time.Now().UTC(),
	}
	return s.nextID, nil
}

// FetchPending returns pending messages, oldest-created first
func (s *MemoryStore) FetchPending(_ context.Context, limit int) ([]*core.Message, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var pending []*core.Message
	for _, msg := range s.messages {
		if msg.Status == core.StatusPending {
			pending = append(pending, copyMessage(msg))
		}
	}
	sort.Slice(pending, func(i, j int) bool {
		if pending[i].CreatedAt.Equal(pending[j].CreatedAt) {
			return pending[i].ID < pending[j].ID
		}
		return pending[i].CreatedAt.Before(pending[j].CreatedAt)
	})
	if limit > 0 && len(pending) > limit {
		pending = pending[:limit]
	}
	return pending, nil
}

// Claim atomically transitions a message from pending to in_progress
func (s *MemoryStore) Claim(_ context.Context, id int64) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	msg, ok := s.messages[id]
	if !ok {
		return false, ErrNotFound
	}
	if msg.Status != core.StatusPending {
		return false, nil
	}
	msg.Status = core.StatusInProgress
	return true, nil
}

// Release returns a claimed message to pending
func (s *MemoryStore) Release(_ context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	msg, ok := s.messages[id]
	if !ok {
		return ErrNotFound
	}
	if msg.Status == core.StatusInProgress {
		msg.Status = core.StatusPending
	}
	return nil
}

// RequeueInProgress returns all in_progress messages to pending
func (s *MemoryStore) RequeueInProgress(_ context.Context) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var n int64
	for _, msg := range s.messages {
		if msg.Status == core.StatusInProgress {
			msg.Status = core.StatusPending
			n++
		}
	}
	return n, nil
}

// Finalize records the verdict; processed_at is only set the first time
func (s *MemoryStore) Finalize(_ context.Context, id int64, status core.MessageStatus, classification core.Classification, naiveBayesScore, llmScore *float64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	msg, ok := s.messages[id]
	if !ok {
		return ErrNotFound
	}

	msg.Status = status
	msg.Classification = classification
	msg.NaiveBayesScore = copyFloat(naiveBayesScore)
	msg.LLMScore = copyFloat(llmScore)
	if msg.ProcessedAt == nil {
		now := time.Now().UTC()
		msg.ProcessedAt = &now
	}
	return nil
}

// AppendLog appends one audit entry, verifying the message exists
func (s *MemoryStore) AppendLog(_ context.Context, messageID int64, step, result, details string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.messages[messageID]; !ok {
		return ErrNotFound
	}

	s.logs[messageID] = append(s.logs[messageID], core.FilterLogEntry{
		ID:        int64(len(s.logs[messageID]) + 1),
		MessageID: messageID,
		Step:      step,
		Result:    result,
		Details:   details,
		Timestamp: time.Now().UTC(),
	})
	return nil
}

// Logs returns a copy of the audit entries for a message
func (s *MemoryStore) Logs(messageID int64) []core.FilterLogEntry {
	s.mu.RLock()
	defer s.mu.RUnlock()

	entries := make([]core.FilterLogEntry, len(s.logs[messageID]))
	copy(entries, s.logs[messageID])
	return entries
}

// Get returns a copy of one message
func (s *MemoryStore) Get(id int64) (*core.Message, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	msg, ok := s.messages[id]
	if !ok {
		return nil, ErrNotFound
	}
	return copyMessage(msg), nil
}

// ListMessages returns messages with the given status, newest-created first
func (s *MemoryStore) ListMessages(_ context.Context, status core.MessageStatus) ([]*core.Message, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []*core.Message
	for _, msg := range s.messages {
		if msg.Status == status {
			out = append(out, copyMessage(msg))
		}
	}
	sortNewestFirst(out)
	return out, nil
}

// ListMessagesWithAudit returns all messages with their concatenated
// audit trails, newest-created first
func (s *MemoryStore) ListMessagesWithAudit(_ context.Context) ([]*core.MessageWithAudit, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	messages := make([]*core.Message, 0, len(s.messages))
	for _, msg := range s.messages {
		messages = append(messages, copyMessage(msg))
	}
	sortNewestFirst(messages)

	out := make([]*core.MessageWithAudit, 0, len(messages))
	for _, msg := range messages {
		var parts []string
		for _, entry := range s.logs[msg.ID] {
			part := fmt.Sprintf("%s: %s", entry.Step, entry.Result)
			if entry.Details != "" {
				part += fmt.Sprintf(" (%s)", entry.Details)
			}
			parts = append(parts, part)
		}
		out = append(out, &core.MessageWithAudit{
			Message: msg,
			Audit:   strings.Join(parts, " | "),
		})
	}
	return out, nil
}

// Close is a no-op for the in-memory store
func (s *MemoryStore) Close() error {
	return nil
}

func sortNewestFirst(messages []*core.Message) {
	sort.Slice(messages, func(i, j int) bool {
		if messages[i].CreatedAt.Equal(messages[j].CreatedAt) {
			return messages[i].ID > messages[j].ID
		}
		return messages[i].CreatedAt.After(messages[j].CreatedAt)
	})
}

func copyMessage(msg *core.Message) *core.Message {
	out := *msg
	out.NaiveBayesScore = copyFloat(msg.NaiveBayesScore)
	out.LLMScore = copyFloat(msg.LLMScore)
	if msg.ProcessedAt != nil {
		t := *msg.ProcessedAt
		out.ProcessedAt = &t
	}
	return &out
}

func copyFloat(v *float64) *float64 {
	if v == nil {
		return nil
	}
	out := *v
	return &out
}
