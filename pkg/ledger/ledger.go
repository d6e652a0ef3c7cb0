/*
Package ledger tracks execution status per intent identity and serializes
concurrent execution attempts for the same identity.

The lock table is reference-counted: an identity's mutex exists only while
someone holds or waits on it, so the table does not grow with the number of
distinct identities ever seen. Records are bounded by a retention window and
pruned lazily.
*/
package ledger

import (
	"sort"
	"sync"
	"time"

	"github.com/aretw0/parley/pkg/domain"
)

// DefaultRetention bounds how long finished records are kept. A finished
// identity older than this is eligible for re-execution.
const DefaultRetention = 24 * time.Hour

const recentRecords = 10

// lockEntry holds the mutex and the reference count.
type lockEntry struct {
	mu   sync.Mutex
	refs int
}

// Ledger is the in-memory registry of execution records. Safe for concurrent
// use; this is the only mutable shared state in the pipeline core.
type Ledger struct {
	mu    sync.Mutex // guards the lock table
	locks map[string]*lockEntry

	rmu       sync.RWMutex // guards records
	records   map[string]*domain.ExecutionRecord
	retention time.Duration

	now func() time.Time
}

// LedgerOption configures the Ledger.
type LedgerOption func(*Ledger)

// WithRetention sets how long finished records are kept before lazy eviction.
func WithRetention(d time.Duration) LedgerOption {
	return func(l *Ledger) {
		l.retention = d
	}
}

// withClock overrides the time source. Test hook.
func withClock(now func() time.Time) LedgerOption {
	return func(l *Ledger) {
		l.now = now
	}
}

// NewLedger creates an empty ledger.
func NewLedger(opts ...LedgerOption) *Ledger {
	l := &Ledger{
		locks:     make(map[string]*lockEntry),
		records:   make(map[string]*domain.ExecutionRecord),
		retention: DefaultRetention,
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// acquire gets or creates a lock entry and increments its reference count.
// The caller MUST Lock entry.mu and call release(identity) after unlocking.
func (l *Ledger) acquire(identity string) *lockEntry {
	l.mu.Lock()
	defer l.mu.Unlock()

	entry, exists := l.locks[identity]
	if !exists {
		entry = &lockEntry{}
		l.locks[identity] = entry
	}
	entry.refs++
	return entry
}

// release decrements the reference count and deletes the entry at zero.
func (l *Ledger) release(identity string) {
	l.mu.Lock()
	defer l.mu.Unlock()

	entry, exists := l.locks[identity]
	if !exists {
		return
	}
	entry.refs--
	if entry.refs <= 0 {
		delete(l.locks, identity)
	}
}

// get returns the live record for an identity, dropping it first if the
// retention window has elapsed.
func (l *Ledger) get(identity string) (*domain.ExecutionRecord, bool) {
	l.rmu.Lock()
	defer l.rmu.Unlock()

	rec, ok := l.records[identity]
	if !ok {
		return nil, false
	}
	if l.expired(rec) {
		delete(l.records, identity)
		return nil, false
	}
	return rec, true
}

func (l *Ledger) put(rec *domain.ExecutionRecord) {
	l.rmu.Lock()
	defer l.rmu.Unlock()
	l.records[rec.Identity] = rec
}

func (l *Ledger) expired(rec *domain.ExecutionRecord) bool {
	if rec.FinishedAt.IsZero() {
		return false // in flight, never evict
	}
	return l.now().Sub(rec.FinishedAt) > l.retention
}

// Record returns a copy of the record for an identity, if present.
func (l *Ledger) Record(identity string) (domain.ExecutionRecord, bool) {
	rec, ok := l.get(identity)
	if !ok {
		return domain.ExecutionRecord{}, false
	}
	return *rec, true
}

// WasExecuted reports whether an identity already completed successfully and
// would short-circuit as a duplicate.
func (l *Ledger) WasExecuted(identity string) bool {
	rec, ok := l.get(identity)
	if !ok {
		return false
	}
	return rec.Status == domain.StatusExecuted || rec.Status == domain.StatusDuplicate
}

// Purge deletes the record for an identity, making it eligible for genuine
// re-execution. Unsafe for production use: a purged identity will trigger a
// fresh external call.
func (l *Ledger) Purge(identity string) bool {
	l.rmu.Lock()
	defer l.rmu.Unlock()

	if _, ok := l.records[identity]; !ok {
		return false
	}
	delete(l.records, identity)
	return true
}

// RecordSummary is a compact view of one record for the debug surface.
type RecordSummary struct {
	Identity   string                 `json:"identity"`
	Status     domain.ExecutionStatus `json:"status"`
	Error      string                 `json:"error,omitempty"`
	StartedAt  time.Time              `json:"started_at"`
	FinishedAt time.Time              `json:"finished_at,omitempty"`
}

// Stats summarizes the ledger contents.
type Stats struct {
	Total    int             `json:"total_executions"`
	ByStatus map[string]int  `json:"by_status"`
	Recent   []RecordSummary `json:"recent_executions"`
}

// Stats counts records by status and lists the most recent ones. Expired
// records are evicted on the way.
func (l *Ledger) Stats() Stats {
	l.rmu.Lock()
	defer l.rmu.Unlock()

	live := make([]*domain.ExecutionRecord, 0, len(l.records))
	for id, rec := range l.records {
		if l.expired(rec) {
			delete(l.records, id)
			continue
		}
		live = append(live, rec)
	}

	sort.Slice(live, func(i, j int) bool {
		return live[i].StartedAt.Before(live[j].StartedAt)
	})

	stats := Stats{
		Total:    len(live),
		ByStatus: make(map[string]int),
		Recent:   make([]RecordSummary, 0, recentRecords),
	}
	for _, rec := range live {
		stats.ByStatus[string(rec.Status)]++
	}
	start := 0
	if len(live) > recentRecords {
		start = len(live) - recentRecords
	}
	for _, rec := range live[start:] {
		stats.Recent = append(stats.Recent, RecordSummary{
			Identity:   rec.Identity,
			Status:     rec.Status,
			Error:      rec.Error,
			StartedAt:  rec.StartedAt,
			FinishedAt: rec.FinishedAt,
		})
	}
	return stats
}
