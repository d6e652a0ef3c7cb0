// Package redis implements ports.CallStateStore on an external Redis,
// so multiple replicas can share conversation state. Entries expire via
// the server-side TTL instead of a local sweep.
package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/aretw0/parley/pkg/domain"
	backend "github.com/redis/go-redis/v9"
)

// DefaultTTL matches the in-memory backend's inactivity window.
const DefaultTTL = 24 * time.Hour

// Store implements ports.CallStateStore using Redis.
type Store struct {
	client *backend.Client
	prefix string
	ttl    time.Duration
}

// Option configures the Store.
type Option func(*Store)

// WithTTL sets the expiration for call state.
func WithTTL(ttl time.Duration) Option {
	return func(s *Store) {
		s.ttl = ttl
	}
}

// WithPrefix sets the key prefix for call state.
func WithPrefix(prefix string) Option {
	return func(s *Store) {
		s.prefix = prefix
	}
}

// New creates a new Redis store with options.
func New(address, password string, db int, opts ...Option) *Store {
	rdb := backend.NewClient(&backend.Options{
		Addr:     address,
		Password: password,
		DB:       db,
	})
	return NewFromClient(rdb, opts...)
}

// NewFromClient creates a new Redis store from an existing client.
func NewFromClient(client *backend.Client, opts ...Option) *Store {
	store := &Store{
		client: client,
		prefix: "parley:call_state:",
		ttl:    DefaultTTL,
	}
	for _, opt := range opts {
		opt(store)
	}
	return store
}

func (s *Store) key(callID string) string {
	return s.prefix + callID
}

// SetState replaces the state for a call.
func (s *Store) SetState(ctx context.Context, callID string, state *domain.CallState) error {
	copied := state.Clone()
	copied.UpdatedAt = time.Now().UTC()

	data, err := json.Marshal(copied)
	if err != nil {
		return fmt.Errorf("failed to marshal call state: %w", err)
	}
	if err := s.client.Set(ctx, s.key(callID), data, s.ttl).Err(); err != nil {
		return fmt.Errorf("failed to save to redis: %w", err)
	}
	return nil
}

// GetState retrieves the state for a call.
func (s *Store) GetState(ctx context.Context, callID string) (*domain.CallState, error) {
	val, err := s.client.Get(ctx, s.key(callID)).Result()
	if err != nil {
		if err == backend.Nil {
			return nil, domain.ErrStateNotFound
		}
		return nil, fmt.Errorf("failed to get from redis: %w", err)
	}

	var state domain.CallState
	if err := json.Unmarshal([]byte(val), &state); err != nil {
		return nil, fmt.Errorf("failed to unmarshal call state: %w", err)
	}
	return &state, nil
}

// UpdatePhase sets the conversation phase, creating state if absent.
func (s *Store) UpdatePhase(ctx context.Context, callID string, phase domain.Phase) error {
	return s.mutate(ctx, callID, func(state *domain.CallState) {
		state.Phase = phase
	})
}

// GetPhase returns the current phase, or "" if the call has no state.
func (s *Store) GetPhase(ctx context.Context, callID string) (domain.Phase, error) {
	state, err := s.GetState(ctx, callID)
	if err == domain.ErrStateNotFound {
		return "", nil
	}
	if err != nil {
		return "", err
	}
	return state.Phase, nil
}

// AppendTranscript buffers one transcript line.
func (s *Store) AppendTranscript(ctx context.Context, callID, speaker, text string) error {
	return s.mutate(ctx, callID, func(state *domain.CallState) {
		state.Transcripts = append(state.Transcripts, domain.TranscriptLine{
			Speaker:   speaker,
			Text:      text,
			Timestamp: time.Now().UTC(),
		})
	})
}

// MarkEscalated flags the call and force-sets the Escalation phase.
func (s *Store) MarkEscalated(ctx context.Context, callID, reason, urgency string) error {
	return s.mutate(ctx, callID, func(state *domain.CallState) {
		state.Escalated = true
		state.EscalationReason = reason
		state.EscalationUrgency = urgency
		state.Phase = domain.PhaseEscalation
	})
}

// DeleteState removes the state for a call.
func (s *Store) DeleteState(ctx context.Context, callID string) error {
	return s.client.Del(ctx, s.key(callID)).Err()
}

// Close closes the redis client.
func (s *Store) Close() error {
	return s.client.Close()
}

// mutate implements read-modify-write for a single call's state. Call IDs
// are logically independent, so no cross-call locking is needed.
func (s *Store) mutate(ctx context.Context, callID string, fn func(*domain.CallState)) error {
	state, err := s.GetState(ctx, callID)
	if err == domain.ErrStateNotFound {
		state = domain.NewCallState()
	} else if err != nil {
		return err
	}
	fn(state)
	return s.SetState(ctx, callID, state)
}
