package ports

import (
	"context"
	"testing"
	"time"

	"github.com/aretw0/parley/pkg/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// RunCallStateStoreContract runs a suite of tests to verify that a
// CallStateStore implementation adheres to the defined interface contract.
func RunCallStateStoreContract(t *testing.T, store CallStateStore) {
	ctx := context.Background()
	callID := "contract-test-call-" + time.Now().Format("20060102150405")

	t.Run("Set and Get", func(t *testing.T) {
		state := domain.NewCallState()
		state.Phase = domain.PhaseIntake
		state.Context["caller_name"] = "Pat"

		err := store.SetState(ctx, callID, state)
		require.NoError(t, err, "SetState should not return error")

		loaded, err := store.GetState(ctx, callID)
		require.NoError(t, err, "GetState should not return error")
		assert.Equal(t, domain.PhaseIntake, loaded.Phase)
		assert.Equal(t, "Pat", loaded.Context["caller_name"])
		assert.False(t, loaded.UpdatedAt.IsZero(), "UpdatedAt should be stamped on write")
	})

	t.Run("Get Non-Existent", func(t *testing.T) {
		_, err := store.GetState(ctx, "non-existent-"+callID)
		assert.ErrorIs(t, err, domain.ErrStateNotFound)
	})

	t.Run("Phase", func(t *testing.T) {
		id := callID + "-phase"
		defer func() { _ = store.DeleteState(ctx, id) }()

		// No state yet: phase is empty, not an error.
		phase, err := store.GetPhase(ctx, id)
		require.NoError(t, err)
		assert.Equal(t, domain.Phase(""), phase)

		// UpdatePhase creates state on demand.
		require.NoError(t, store.UpdatePhase(ctx, id, domain.PhaseClarification))
		phase, err = store.GetPhase(ctx, id)
		require.NoError(t, err)
		assert.Equal(t, domain.PhaseClarification, phase)
	})

	t.Run("Transcripts", func(t *testing.T) {
		id := callID + "-transcript"
		defer func() { _ = store.DeleteState(ctx, id) }()

		require.NoError(t, store.AppendTranscript(ctx, id, "caller", "I need an appointment"))
		require.NoError(t, store.AppendTranscript(ctx, id, "agent", "What day works for you?"))

		state, err := store.GetState(ctx, id)
		require.NoError(t, err)
		require.Len(t, state.Transcripts, 2, "transcript lines should be ordered and append-only")
		assert.Equal(t, "caller", state.Transcripts[0].Speaker)
		assert.Equal(t, "What day works for you?", state.Transcripts[1].Text)
	})

	t.Run("MarkEscalated", func(t *testing.T) {
		id := callID + "-escalated"
		defer func() { _ = store.DeleteState(ctx, id) }()

		require.NoError(t, store.MarkEscalated(ctx, id, "caller requested human", "high"))

		state, err := store.GetState(ctx, id)
		require.NoError(t, err)
		assert.True(t, state.Escalated)
		assert.Equal(t, "caller requested human", state.EscalationReason)
		assert.Equal(t, "high", state.EscalationUrgency)
		assert.Equal(t, domain.PhaseEscalation, state.Phase, "escalation force-sets the phase")
	})

	t.Run("Delete", func(t *testing.T) {
		require.NoError(t, store.SetState(ctx, callID, domain.NewCallState()))
		require.NoError(t, store.DeleteState(ctx, callID))

		_, err := store.GetState(ctx, callID)
		assert.ErrorIs(t, err, domain.ErrStateNotFound, "GetState after Delete should return ErrStateNotFound")
	})
}
