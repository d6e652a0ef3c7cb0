package ledger

import (
	"testing"
	"time"

	"github.com/aretw0/parley/pkg/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLedger_RecordRoundTrip(t *testing.T) {
	l := NewLedger()

	_, ok := l.Record("missing")
	assert.False(t, ok)

	l.put(&domain.ExecutionRecord{
		Identity:  "abc123",
		Status:    domain.StatusExecuted,
		StartedAt: time.Now(),
	})

	rec, ok := l.Record("abc123")
	require.True(t, ok)
	assert.Equal(t, domain.StatusExecuted, rec.Status)
}

func TestLedger_WasExecuted(t *testing.T) {
	l := NewLedger()

	assert.False(t, l.WasExecuted("abc123"))

	l.put(&domain.ExecutionRecord{Identity: "abc123", Status: domain.StatusFailed})
	assert.False(t, l.WasExecuted("abc123"), "failed attempts stay eligible for retry")

	l.put(&domain.ExecutionRecord{Identity: "abc123", Status: domain.StatusExecuted})
	assert.True(t, l.WasExecuted("abc123"))
}

func TestLedger_Purge(t *testing.T) {
	l := NewLedger()

	assert.False(t, l.Purge("abc123"))

	l.put(&domain.ExecutionRecord{Identity: "abc123", Status: domain.StatusExecuted})
	assert.True(t, l.Purge("abc123"))
	assert.False(t, l.WasExecuted("abc123"), "a purged identity is eligible again")
}

func TestLedger_RetentionEvictsFinishedRecords(t *testing.T) {
	now := time.Now()
	clock := func() time.Time { return now }
	l := NewLedger(WithRetention(time.Hour), withClock(clock))

	l.put(&domain.ExecutionRecord{
		Identity:   "done",
		Status:     domain.StatusExecuted,
		StartedAt:  now.Add(-2 * time.Hour),
		FinishedAt: now.Add(-2 * time.Hour),
	})
	l.put(&domain.ExecutionRecord{
		Identity:  "inflight",
		Status:    domain.StatusExecuting,
		StartedAt: now.Add(-2 * time.Hour),
	})

	assert.False(t, l.WasExecuted("done"), "records past the retention window are dropped")

	_, ok := l.Record("inflight")
	assert.True(t, ok, "in-flight records are never evicted")
}

func TestLedger_LockTableShrinksToZero(t *testing.T) {
	l := NewLedger()

	entry := l.acquire("abc123")
	entry.mu.Lock()

	second := l.acquire("abc123")
	assert.Same(t, entry, second, "same identity shares one entry")

	entry.mu.Unlock()
	l.release("abc123")
	l.release("abc123")

	l.mu.Lock()
	remaining := len(l.locks)
	l.mu.Unlock()
	assert.Zero(t, remaining, "entries are dropped once nobody holds or waits")
}

func TestLedger_Stats(t *testing.T) {
	now := time.Now()
	l := NewLedger()

	for i, st := range []domain.ExecutionStatus{
		domain.StatusExecuted, domain.StatusExecuted, domain.StatusFailed,
	} {
		l.put(&domain.ExecutionRecord{
			Identity:   string(rune('a' + i)),
			Status:     st,
			StartedAt:  now.Add(time.Duration(i) * time.Second),
			FinishedAt: now.Add(time.Duration(i) * time.Second),
		})
	}

	stats := l.Stats()
	assert.Equal(t, 3, stats.Total)
	assert.Equal(t, 2, stats.ByStatus[string(domain.StatusExecuted)])
	assert.Equal(t, 1, stats.ByStatus[string(domain.StatusFailed)])
	require.Len(t, stats.Recent, 3)
	assert.Equal(t, "a", stats.Recent[0].Identity, "recent list is ordered by start time")
}
