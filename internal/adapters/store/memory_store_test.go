package store

import (
	"context"
	"testing"

	"github.com/mikey/llm-msg-triage/internal/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newMemory(t *testing.T) *MemoryStore {
	t.Helper()
	return NewMemoryStore(zap.NewNop())
}

func TestMemoryEnqueueCreatesPendingMessage(t *testing.T) {
	s := newMemory(t)
	ctx := context.Background()

	id, err := s.Enqueue(ctx, "hello", "alice@example.com")
	require.NoError(t, err)

	msg, err := s.Get(id)
	require.NoError(t, err)
	assert.Equal(t, core.StatusPending, msg.Status)
	assert.Equal(t, "hello", msg.Content)
	assert.Equal(t, "alice@example.com", msg.Sender)
	assert.Nil(t, msg.NaiveBayesScore)
	assert.Nil(t, msg.LLMScore)
	assert.Nil(t, msg.ProcessedAt)
	assert.False(t, msg.CreatedAt.IsZero())
}

func TestMemoryFetchPendingIsOldestFirst(t *testing.T) {
	s := newMemory(t)
	ctx := context.Background()

	first, err := s.Enqueue(ctx, "first", "a@example.com")
	require.NoError(t, err)
	second, err := s.Enqueue(ctx, "second", "b@example.com")
	require.NoError(t, err)
	third, err := s.Enqueue(ctx, "third", "c@example.com")
	require.NoError(t, err)

	pending, err := s.FetchPending(ctx, 10)
	require.NoError(t, err)
	require.Len(t, pending, 3)
	assert.Equal(t, []int64{first, second, third},
		[]int64{pending[0].ID, pending[1].ID, pending[2].ID})

	limited, err := s.FetchPending(ctx, 2)
	require.NoError(t, err)
	assert.Len(t, limited, 2)
}

func TestMemoryClaimIsExclusive(t *testing.T) {
	s := newMemory(t)
	ctx := context.Background()

	id, err := s.Enqueue(ctx, "hello", "a@example.com")
	require.NoError(t, err)

	claimed, err := s.Claim(ctx, id)
	require.NoError(t, err)
	assert.True(t, claimed)

	// A second claim on the same message must lose
	claimed, err = s.Claim(ctx, id)
	require.NoError(t, err)
	assert.False(t, claimed)

	_, err = s.Claim(ctx, 999)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestMemoryReleaseReturnsToQueue(t *testing.T) {
	s := newMemory(t)
	ctx := context.Background()

	id, err := s.Enqueue(ctx, "hello", "a@example.com")
	require.NoError(t, err)

	claimed, err := s.Claim(ctx, id)
	require.NoError(t, err)
	require.True(t, claimed)

	require.NoError(t, s.Release(ctx, id))

	msg, err := s.Get(id)
	require.NoError(t, err)
	assert.Equal(t, core.StatusPending, msg.Status)
}

func TestMemoryRequeueInProgress(t *testing.T) {
	s := newMemory(t)
	ctx := context.Background()

	a, err := s.Enqueue(ctx, "a", "a@example.com")
	require.NoError(t, err)
	b, err := s.Enqueue(ctx, "b", "b@example.com")
	require.NoError(t, err)

	_, err = s.Claim(ctx, a)
	require.NoError(t, err)
	_, err = s.Claim(ctx, b)
	require.NoError(t, err)

	n, err := s.RequeueInProgress(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)

	pending, err := s.FetchPending(ctx, 10)
	require.NoError(t, err)
	assert.Len(t, pending, 2)
}

func TestMemoryFinalizeSetsVerdict(t *testing.T) {
	s := newMemory(t)
	ctx := context.Background()

	id, err := s.Enqueue(ctx, "hello", "a@example.com")
	require.NoError(t, err)

	nb := 0.55
	llm := 0.9
	err = s.Finalize(ctx, id, core.StatusRejected, core.ClassSpam, &nb, &llm)
	require.NoError(t, err)

	msg, err := s.Get(id)
	require.NoError(t, err)
	assert.Equal(t, core.StatusRejected, msg.Status)
	assert.Equal(t, core.ClassSpam, msg.Classification)
	require.NotNil(t, msg.NaiveBayesScore)
	assert.InDelta(t, 0.55, *msg.NaiveBayesScore, 1e-9)
	require.NotNil(t, msg.LLMScore)
	assert.InDelta(t, 0.9, *msg.LLMScore, 1e-9)
	require.NotNil(t, msg.ProcessedAt)
}

func TestMemoryFinalizeKeepsFirstProcessedAt(t *testing.T) {
	s := newMemory(t)
	ctx := context.Background()

	id, err := s.Enqueue(ctx, "hello", "a@example.com")
	require.NoError(t, err)

	nb := 0.7
	require.NoError(t, s.Finalize(ctx, id, core.StatusRejected, core.ClassSpam, &nb, nil))

	first, err := s.Get(id)
	require.NoError(t, err)
	require.NotNil(t, first.ProcessedAt)

	require.NoError(t, s.Finalize(ctx, id, core.StatusApproved, core.ClassLegitimate, &nb, nil))

	second, err := s.Get(id)
	require.NoError(t, err)
	assert.Equal(t, core.StatusApproved, second.Status)
	assert.True(t, first.ProcessedAt.Equal(*second.ProcessedAt),
		"a duplicate finalize must not move processed_at")
}

func TestMemoryFinalizeUnknownMessage(t *testing.T) {
	s := newMemory(t)
	err := s.Finalize(context.Background(), 42, core.StatusApproved, core.ClassLegitimate, nil, nil)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestMemoryAppendLogRequiresMessage(t *testing.T) {
	s := newMemory(t)
	ctx := context.Background()

	err := s.AppendLog(ctx, 42, core.StepNaiveBayes, "escalate", "")
	assert.ErrorIs(t, err, ErrNotFound)

	id, err := s.Enqueue(ctx, "hello", "a@example.com")
	require.NoError(t, err)

	require.NoError(t, s.AppendLog(ctx, id, core.StepNaiveBayes, "escalate", "local score 0.50 is inconclusive"))
	require.NoError(t, s.AppendLog(ctx, id, core.StepDecision, "rejected", ""))

	logs := s.Logs(id)
	require.Len(t, logs, 2)
	assert.Equal(t, core.StepNaiveBayes, logs[0].Step)
	assert.Equal(t, core.StepDecision, logs[1].Step)
}

func TestMemoryListMessagesFiltersByStatus(t *testing.T) {
	s := newMemory(t)
	ctx := context.Background()

	a, err := s.Enqueue(ctx, "a", "a@example.com")
	require.NoError(t, err)
	_, err = s.Enqueue(ctx, "b", "b@example.com")
	require.NoError(t, err)

	require.NoError(t, s.Finalize(ctx, a, core.StatusApproved, core.ClassLegitimate, nil, nil))

	approved, err := s.ListMessages(ctx, core.StatusApproved)
	require.NoError(t, err)
	require.Len(t, approved, 1)
	assert.Equal(t, a, approved[0].ID)

	pending, err := s.ListMessages(ctx, core.StatusPending)
	require.NoError(t, err)
	assert.Len(t, pending, 1)
}

func TestMemoryListMessagesWithAudit(t *testing.T) {
	s := newMemory(t)
	ctx := context.Background()

	id, err := s.Enqueue(ctx, "hello", "a@example.com")
	require.NoError(t, err)

	require.NoError(t, s.AppendLog(ctx, id, core.StepNaiveBayes, "escalate", "local score 0.50 is inconclusive"))
	require.NoError(t, s.AppendLog(ctx, id, core.StepLLMAnalysis, "spam", ""))

	entries, err := s.ListMessagesWithAudit(ctx)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "naive_bayes: escalate (local score 0.50 is inconclusive) | llm_analysis: spam",
		entries[0].Audit)
}

func TestMemoryReturnsCopies(t *testing.T) {
	s := newMemory(t)
	ctx := context.Background()

	id, err := s.Enqueue(ctx, "hello", "a@example.com")
	require.NoError(t, err)

	msg, err := s.Get(id)
	require.NoError(t, err)
	msg.Status = core.StatusRejected

	fresh, err := s.Get(id)
	require.NoError(t, err)
	assert.Equal(t, core.StatusPending, fresh.Status)
}
