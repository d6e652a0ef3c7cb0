package ports

import (
	"context"

	"github.com/aretw0/parley/pkg/domain"
)

// CallStateStore holds ephemeral per-call conversation state. State is
// partitioned by call ID, so contention is per-call, not global. Entries
// expire after a fixed inactivity window (backend-specific sweep or TTL).
type CallStateStore interface {
	// SetState replaces the state for a call.
	SetState(ctx context.Context, callID string, state *domain.CallState) error

	// GetState retrieves the state for a call.
	// Returns domain.ErrStateNotFound if the call has no state.
	GetState(ctx context.Context, callID string) (*domain.CallState, error)

	// UpdatePhase sets the conversation phase, creating state if absent.
	UpdatePhase(ctx context.Context, callID string, phase domain.Phase) error

	// GetPhase returns the current phase, or "" if the call has no state.
	GetPhase(ctx context.Context, callID string) (domain.Phase, error)

	// AppendTranscript buffers one transcript line pending durable persistence.
	AppendTranscript(ctx context.Context, callID, speaker, text string) error

	// MarkEscalated sets the escalation flag, stores reason/urgency and
	// force-sets the phase to Escalation in one step.
	MarkEscalated(ctx context.Context, callID, reason, urgency string) error

	// DeleteState removes the state for a call.
	DeleteState(ctx context.Context, callID string) error
}
