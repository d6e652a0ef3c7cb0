// Package memory implements ports.CallStateStore in process memory.
package memory

import (
	"context"
	"sync"
	"time"

	"github.com/aretw0/parley/pkg/domain"
)

// DefaultTTL is the inactivity window after which call state is swept.
const DefaultTTL = 24 * time.Hour

// Store implements ports.CallStateStore in memory.
// Safe for concurrent use.
type Store struct {
	data map[string]*domain.CallState
	mu   sync.RWMutex

	ttl  time.Duration
	now  func() time.Time
	done chan struct{}
	once sync.Once
}

// Option configures the Store.
type Option func(*Store)

// WithTTL overrides the inactivity window.
func WithTTL(ttl time.Duration) Option {
	return func(s *Store) {
		s.ttl = ttl
	}
}

// WithClock overrides the time source. Test hook.
func WithClock(now func() time.Time) Option {
	return func(s *Store) {
		s.now = now
	}
}

// NewStore creates a new in-memory store. Call Close to stop the sweeper.
func NewStore(opts ...Option) *Store {
	s := &Store{
		data: make(map[string]*domain.CallState),
		ttl:  DefaultTTL,
		now:  time.Now,
		done: make(chan struct{}),
	}
	for _, opt := range opts {
		opt(s)
	}
	go s.sweepLoop()
	return s
}

// Close stops the background sweeper.
func (s *Store) Close() error {
	s.once.Do(func() { close(s.done) })
	return nil
}

func (s *Store) sweepLoop() {
	// Sweeping at a fraction of the TTL keeps the expiry error bounded
	// without waking up constantly for the default 24h window.
	interval := s.ttl / 24
	if interval < time.Second {
		interval = time.Second
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-s.done:
			return
		case <-ticker.C:
			s.Sweep()
		}
	}
}

// Sweep removes states idle longer than the TTL and reports how many.
func (s *Store) Sweep() int {
	cutoff := s.now().Add(-s.ttl)

	s.mu.Lock()
	defer s.mu.Unlock()

	removed := 0
	for callID, state := range s.data {
		if state.UpdatedAt.Before(cutoff) {
			delete(s.data, callID)
			removed++
		}
	}
	return removed
}

// SetState replaces the state for a call.
func (s *Store) SetState(ctx context.Context, callID string, state *domain.CallState) error {
	copied := state.Clone()
	copied.UpdatedAt = s.now().UTC()

	s.mu.Lock()
	defer s.mu.Unlock()
	s.data[callID] = copied
	return nil
}

// GetState retrieves the state for a call.
func (s *Store) GetState(ctx context.Context, callID string) (*domain.CallState, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	state, ok := s.data[callID]
	if !ok {
		return nil, domain.ErrStateNotFound
	}
	// Copy on read so callers can't mutate store state directly by pointer.
	return state.Clone(), nil
}

// UpdatePhase sets the conversation phase, creating state if absent.
func (s *Store) UpdatePhase(ctx context.Context, callID string, phase domain.Phase) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	state := s.getOrCreateLocked(callID)
	state.Phase = phase
	state.UpdatedAt = s.now().UTC()
	return nil
}

// GetPhase returns the current phase, or "" if the call has no state.
func (s *Store) GetPhase(ctx context.Context, callID string) (domain.Phase, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	state, ok := s.data[callID]
	if !ok {
		return "", nil
	}
	return state.Phase, nil
}

// AppendTranscript buffers one transcript line.
func (s *Store) AppendTranscript(ctx context.Context, callID, speaker, text string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	state := s.getOrCreateLocked(callID)
	state.Transcripts = append(state.Transcripts, domain.TranscriptLine{
		Speaker:   speaker,
		Text:      text,
		Timestamp: s.now().UTC(),
	})
	state.UpdatedAt = s.now().UTC()
	return nil
}

// MarkEscalated flags the call and force-sets the Escalation phase.
func (s *Store) MarkEscalated(ctx context.Context, callID, reason, urgency string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	state := s.getOrCreateLocked(callID)
	state.Escalated = true
	state.EscalationReason = reason
	state.EscalationUrgency = urgency
	state.Phase = domain.PhaseEscalation
	state.UpdatedAt = s.now().UTC()
	return nil
}

// DeleteState removes the state for a call.
func (s *Store) DeleteState(ctx context.Context, callID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.data, callID)
	return nil
}

func (s *Store) getOrCreateLocked(callID string) *domain.CallState {
	state, ok := s.data[callID]
	if !ok {
		state = domain.NewCallState()
		s.data[callID] = state
	}
	return state
}
