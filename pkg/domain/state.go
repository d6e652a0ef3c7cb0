package domain

import "time"

// Phase tracks the coarse progression of a single call's dialogue.
// Transitions are caller-driven; the state store imposes no legality checks.
type Phase string

const (
	PhaseGreeting      Phase = "greeting"
	PhaseIntake        Phase = "intake"
	PhaseClarification Phase = "clarification"
	PhaseEscalation    Phase = "escalation"
	PhaseCompleted     Phase = "completed"
)

// TranscriptLine is one buffered utterance pending durable persistence.
type TranscriptLine struct {
	Speaker   string    `json:"speaker"`
	Text      string    `json:"text"`
	Timestamp time.Time `json:"timestamp"`
}

// CallState is the ephemeral per-call conversation state. It is owned by the
// state store and mutated only through its operations.
type CallState struct {
	Phase             Phase            `json:"phase,omitempty"`
	Transcripts       []TranscriptLine `json:"transcripts,omitempty"`
	Escalated         bool             `json:"escalated,omitempty"`
	EscalationReason  string           `json:"escalation_reason,omitempty"`
	EscalationUrgency string           `json:"escalation_urgency,omitempty"`
	Context           map[string]any   `json:"context,omitempty"`
	UpdatedAt         time.Time        `json:"updated_at"`
}

// NewCallState creates an empty state for a call.
func NewCallState() *CallState {
	return &CallState{
		Context:   make(map[string]any),
		UpdatedAt: time.Now().UTC(),
	}
}

// Clone returns a deep copy so callers cannot mutate store internals.
func (s *CallState) Clone() *CallState {
	if s == nil {
		return nil
	}
	out := *s
	out.Transcripts = make([]TranscriptLine, len(s.Transcripts))
	copy(out.Transcripts, s.Transcripts)
	out.Context = make(map[string]any, len(s.Context))
	for k, v := range s.Context {
		out.Context[k] = v
	}
	return &out
}
