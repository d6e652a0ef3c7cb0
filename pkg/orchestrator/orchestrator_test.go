package orchestrator_test

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"

	"github.com/aretw0/parley/pkg/domain"
	"github.com/aretw0/parley/pkg/intent"
	"github.com/aretw0/parley/pkg/ledger"
	"github.com/aretw0/parley/pkg/orchestrator"
	"github.com/aretw0/parley/pkg/ports"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeWebhook is a scriptable ports.WebhookClient.
type fakeWebhook struct {
	calls    atomic.Int64
	err      error
	panicMsg string
}

func (f *fakeWebhook) Dispatch(ctx context.Context, payload domain.WebhookPayload) (map[string]any, error) {
	f.calls.Add(1)
	if f.panicMsg != "" {
		panic(f.panicMsg)
	}
	if f.err != nil {
		return nil, f.err
	}
	return map[string]any{"status": "success", "calendar_link": "https://cal.example/evt_1"}, nil
}

// fakeAppointments records writes and can be told to fail.
type fakeAppointments struct {
	created   []ports.AppointmentRecord
	confirmed []string
	failAll   bool
}

func (f *fakeAppointments) CreateAppointment(ctx context.Context, rec ports.AppointmentRecord) error {
	if f.failAll {
		return errors.New("db unavailable")
	}
	f.created = append(f.created, rec)
	return nil
}

func (f *fakeAppointments) UpdateAppointmentStatus(ctx context.Context, id, status string, inviteSent bool) error {
	if f.failAll {
		return errors.New("db unavailable")
	}
	f.confirmed = append(f.confirmed, id+":"+status)
	return nil
}

func (f *fakeAppointments) GetAppointment(ctx context.Context, id string) (*ports.AppointmentRecord, error) {
	return nil, domain.ErrAppointmentNotFound
}

func (f *fakeAppointments) Close() error { return nil }

// fakeStates records state-store interactions.
type fakeStates struct {
	ports.CallStateStore
	phases    map[string]domain.Phase
	escalated map[string]string
	deleted   []string
}

func newFakeStates() *fakeStates {
	return &fakeStates{
		phases:    make(map[string]domain.Phase),
		escalated: make(map[string]string),
	}
}

func (f *fakeStates) UpdatePhase(ctx context.Context, callID string, phase domain.Phase) error {
	f.phases[callID] = phase
	return nil
}

func (f *fakeStates) MarkEscalated(ctx context.Context, callID, reason, urgency string) error {
	f.escalated[callID] = urgency
	return nil
}

func (f *fakeStates) DeleteState(ctx context.Context, callID string) error {
	f.deleted = append(f.deleted, callID)
	return nil
}

func newOrchestrator(t *testing.T, client ports.WebhookClient, opts ...orchestrator.Option) *orchestrator.Orchestrator {
	t.Helper()
	exec := ledger.NewExecutor(ledger.NewLedger(), client)
	return orchestrator.New(intent.NewValidator(), exec, opts...)
}

func appointmentArgs() map[string]any {
	return map[string]any{
		"title":          "Consult",
		"start_time":     "2024-12-20T14:00:00Z",
		"end_time":       "2024-12-20T15:00:00Z",
		"attendee_email": "john@example.com",
	}
}

func TestHandle_CreateAppointment(t *testing.T) {
	client := &fakeWebhook{}
	o := newOrchestrator(t, client)

	res := o.Handle(context.Background(), domain.ToolCallRequest{
		ToolName: domain.ToolCreateAppointment,
		CallID:   "call_1",
		ToolArgs: appointmentArgs(),
	})

	require.True(t, res.Success, "error: %s", res.Error)
	assert.NotEmpty(t, res.AppointmentID)
	assert.Equal(t, "https://cal.example/evt_1", res.CalendarLink)
	assert.True(t, res.EmailSent)
	assert.Equal(t, "john@example.com", res.AttendeeEmail)
	assert.Contains(t, res.Message, "john@example.com")
	assert.Equal(t, int64(1), client.calls.Load())
}

func TestHandle_DuplicateShortCircuits(t *testing.T) {
	client := &fakeWebhook{}
	o := newOrchestrator(t, client)

	first := o.Handle(context.Background(), domain.ToolCallRequest{
		ToolName: domain.ToolCreateAppointment,
		ToolArgs: appointmentArgs(),
	})
	second := o.Handle(context.Background(), domain.ToolCallRequest{
		ToolName: domain.ToolCreateAppointment,
		ToolArgs: appointmentArgs(),
	})

	require.True(t, second.Success)
	assert.True(t, second.IsDuplicate)
	assert.Equal(t, first.AppointmentID, second.AppointmentID)
	assert.Equal(t, int64(1), client.calls.Load(), "the webhook must not fire again")
}

func TestHandle_ValidationFailure(t *testing.T) {
	o := newOrchestrator(t, &fakeWebhook{})

	res := o.Handle(context.Background(), domain.ToolCallRequest{
		ToolName: domain.ToolCreateAppointment,
		ToolArgs: map[string]any{"title": "Consult"},
	})

	require.False(t, res.Success)
	assert.True(t, res.ShouldRetry)
	assert.Contains(t, res.Clarification, "VALIDATION_FAILED")
	assert.Contains(t, res.MissingFields, "start_time")
	assert.Contains(t, res.MissingFields, "attendee_email")
}

func TestHandle_MalformedArgs(t *testing.T) {
	client := &fakeWebhook{}
	o := newOrchestrator(t, client)

	res := o.Handle(context.Background(), domain.ToolCallRequest{
		ToolName: domain.ToolCreateAppointment,
		ToolArgs: "please book something tomorrow",
	})

	require.False(t, res.Success)
	assert.True(t, res.ShouldRetry)
	assert.NotEmpty(t, res.Clarification)
	assert.Zero(t, client.calls.Load(), "nothing may reach the webhook")
}

func TestHandle_WebhookFailureIsRetryable(t *testing.T) {
	client := &fakeWebhook{err: errors.New("webhook returned 500: boom")}
	o := newOrchestrator(t, client)

	res := o.Handle(context.Background(), domain.ToolCallRequest{
		ToolName: domain.ToolCreateAppointment,
		ToolArgs: appointmentArgs(),
	})

	require.False(t, res.Success)
	assert.True(t, res.ShouldRetry)
	assert.Contains(t, res.Error, "webhook returned 500")
}

func TestHandle_StorageFailureStillExecutes(t *testing.T) {
	client := &fakeWebhook{}
	store := &fakeAppointments{failAll: true}
	o := newOrchestrator(t, client, orchestrator.WithAppointmentStore(store))

	res := o.Handle(context.Background(), domain.ToolCallRequest{
		ToolName: domain.ToolCreateAppointment,
		ToolArgs: appointmentArgs(),
	})

	require.True(t, res.Success, "a storage failure must not block the side effect")
	assert.Equal(t, int64(1), client.calls.Load())
}

func TestHandle_AppointmentPersisted(t *testing.T) {
	client := &fakeWebhook{}
	store := &fakeAppointments{}
	o := newOrchestrator(t, client, orchestrator.WithAppointmentStore(store))

	res := o.Handle(context.Background(), domain.ToolCallRequest{
		ToolName: domain.ToolCreateAppointment,
		CallID:   "call_1",
		ToolArgs: appointmentArgs(),
	})

	require.True(t, res.Success)
	require.Len(t, store.created, 1)
	assert.Equal(t, res.AppointmentID, store.created[0].ID)
	assert.Equal(t, "scheduled", store.created[0].Status)
	require.Len(t, store.confirmed, 1)
	assert.Equal(t, res.AppointmentID+":confirmed", store.confirmed[0])
}

func TestHandle_UnknownTool(t *testing.T) {
	o := newOrchestrator(t, &fakeWebhook{})

	res := o.Handle(context.Background(), domain.ToolCallRequest{ToolName: "book_flight"})

	require.False(t, res.Success)
	assert.False(t, res.ShouldRetry)
	assert.Equal(t, "Unknown tool: book_flight", res.Error)
}

func TestHandle_PanicRecovered(t *testing.T) {
	client := &fakeWebhook{panicMsg: "boom"}
	o := newOrchestrator(t, client)

	res := o.Handle(context.Background(), domain.ToolCallRequest{
		ToolName: domain.ToolCreateAppointment,
		ToolArgs: appointmentArgs(),
	})

	require.False(t, res.Success)
	assert.True(t, res.ShouldRetry)
	assert.Contains(t, res.Error, "internal error")
}

func TestHandle_EscalateCall(t *testing.T) {
	states := newFakeStates()
	o := newOrchestrator(t, &fakeWebhook{}, orchestrator.WithStateStore(states))

	res := o.Handle(context.Background(), domain.ToolCallRequest{
		ToolName: domain.ToolEscalateCall,
		CallID:   "call_1",
		ToolArgs: map[string]any{"reason": "angry caller", "urgency": "high"},
	})

	require.True(t, res.Success)
	assert.Equal(t, "high", res.Urgency)
	assert.Equal(t, "angry caller", res.Reason)
	assert.Equal(t, "high", states.escalated["call_1"])
}

func TestHandle_EscalateCallDefaultUrgency(t *testing.T) {
	o := newOrchestrator(t, &fakeWebhook{})

	res := o.Handle(context.Background(), domain.ToolCallRequest{
		ToolName: domain.ToolEscalateCall,
		ToolArgs: nil,
	})

	require.True(t, res.Success)
	assert.Equal(t, "medium", res.Urgency)
}

func TestHandle_CompleteIntake(t *testing.T) {
	states := newFakeStates()
	o := newOrchestrator(t, &fakeWebhook{}, orchestrator.WithStateStore(states))

	res := o.Handle(context.Background(), domain.ToolCallRequest{
		ToolName: domain.ToolCompleteIntake,
		CallID:   "call_1",
	})

	require.True(t, res.Success)
	assert.Equal(t, domain.PhaseCompleted, states.phases["call_1"])
}

func TestHandle_EndCall(t *testing.T) {
	states := newFakeStates()
	o := newOrchestrator(t, &fakeWebhook{}, orchestrator.WithStateStore(states))

	res := o.Handle(context.Background(), domain.ToolCallRequest{
		ToolName: domain.ToolEndCall,
		CallID:   "call_1",
		ToolArgs: map[string]any{"reason": "caller hung up"},
	})

	require.True(t, res.Success)
	assert.Equal(t, "caller hung up", res.Reason)
	assert.Equal(t, []string{"call_1"}, states.deleted)
}

func TestStatsAndReset(t *testing.T) {
	o := newOrchestrator(t, &fakeWebhook{})

	o.Handle(context.Background(), domain.ToolCallRequest{
		ToolName: domain.ToolCreateAppointment,
		ToolArgs: map[string]any{},
	})
	res := o.Handle(context.Background(), domain.ToolCallRequest{
		ToolName: domain.ToolCreateAppointment,
		ToolArgs: appointmentArgs(),
	})
	require.True(t, res.Success)

	stats := o.Stats()
	assert.Equal(t, 1, stats.Validation.TotalFailures)
	assert.Equal(t, 1, stats.Execution.Total)

	assert.True(t, o.ResetExecution(res.AppointmentID))
	assert.False(t, o.ResetExecution(res.AppointmentID), "second reset finds nothing")
}
