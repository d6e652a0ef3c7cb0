/*
Package orchestrator is the single entry point for inbound tool-call events.

Each event is independent: the orchestrator routes by tool name, runs the
validate → dedupe → execute pipeline for side-effecting tools, and answers
acknowledgment-only tools immediately. Cross-call conversation state lives in
the CallStateStore, not here.

The contract with the upstream conversational engine is that Handle never
panics and never fails silently: every path yields a structured ToolResult.
*/
package orchestrator

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/aretw0/parley/internal/logging"
	"github.com/aretw0/parley/pkg/domain"
	"github.com/aretw0/parley/pkg/intent"
	"github.com/aretw0/parley/pkg/ledger"
	"github.com/aretw0/parley/pkg/observability"
	"github.com/aretw0/parley/pkg/ports"
)

// Orchestrator routes tool calls through the pipeline.
type Orchestrator struct {
	validator    *intent.Validator
	executor     *ledger.Executor
	appointments ports.AppointmentStore // optional, best-effort
	states       ports.CallStateStore   // optional
	logger       *slog.Logger
	metrics      *observability.Metrics
}

// Option configures the Orchestrator.
type Option func(*Orchestrator)

// WithAppointmentStore enables best-effort appointment persistence.
func WithAppointmentStore(s ports.AppointmentStore) Option {
	return func(o *Orchestrator) {
		o.appointments = s
	}
}

// WithStateStore wires the conversation state store used by the
// acknowledgment-only tools.
func WithStateStore(s ports.CallStateStore) Option {
	return func(o *Orchestrator) {
		o.states = s
	}
}

// WithLogger sets a custom structured logger.
func WithLogger(logger *slog.Logger) Option {
	return func(o *Orchestrator) {
		o.logger = logger
	}
}

// WithMetrics enables instrumentation.
func WithMetrics(m *observability.Metrics) Option {
	return func(o *Orchestrator) {
		o.metrics = m
	}
}

// New creates an Orchestrator around a validator and an executor.
func New(validator *intent.Validator, executor *ledger.Executor, opts ...Option) *Orchestrator {
	o := &Orchestrator{
		validator: validator,
		executor:  executor,
		logger:    logging.NewNop(),
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// Handle processes one inbound tool-call event and always returns a
// structured result. Unexpected internal failures are caught at this
// boundary and surfaced as retryable errors.
func (o *Orchestrator) Handle(ctx context.Context, req domain.ToolCallRequest) (result domain.ToolResult) {
	start := time.Now()

	defer func() {
		if r := recover(); r != nil {
			o.logger.Error("tool call panicked", "tool", req.ToolName, "err", r)
			o.metrics.ToolCall(req.ToolName, "panic")
			result = domain.ToolResult{
				Success:     false,
				Error:       fmt.Sprintf("internal error: %v", r),
				ShouldRetry: true,
			}
		}
		o.logger.Info("tool call handled",
			"tool", req.ToolName,
			"call_id", req.CallID,
			"success", result.Success,
			"elapsed", time.Since(start),
		)
	}()

	o.logger.Info("handling tool call",
		"tool", req.ToolName,
		"call_id", req.CallID,
		"item_id", req.ItemID,
	)

	switch req.ToolName {
	case domain.ToolCreateAppointment:
		result = o.handleCreateAppointment(ctx, req)
	case domain.ToolEscalateCall:
		result = o.handleEscalateCall(ctx, req)
	case domain.ToolCompleteIntake:
		result = o.handleCompleteIntake(ctx, req)
	case domain.ToolEndCall:
		result = o.handleEndCall(ctx, req)
	default:
		o.logger.Warn("unknown tool", "tool", req.ToolName)
		result = domain.ToolResult{
			Success:     false,
			Error:       fmt.Sprintf("Unknown tool: %s", req.ToolName),
			ShouldRetry: false,
		}
	}

	o.metrics.ToolCall(req.ToolName, outcome(result))
	return result
}

func outcome(res domain.ToolResult) string {
	switch {
	case res.IsDuplicate:
		return "duplicate"
	case res.Success:
		return "success"
	default:
		return "failure"
	}
}

func (o *Orchestrator) handleCreateAppointment(ctx context.Context, req domain.ToolCallRequest) domain.ToolResult {
	args, err := intent.Parse(req.ToolArgs)
	if err != nil {
		o.logger.Warn("failed to parse tool args", "err", err)
		return domain.ToolResult{
			Success:       false,
			Error:         fmt.Sprintf("Invalid tool arguments: %v", err),
			ShouldRetry:   true,
			Clarification: "Please provide valid appointment details.",
		}
	}

	res := o.validator.Validate(args, req.CallID, req.OrgID)
	if !res.IsValid {
		o.metrics.ValidationFailure()
		return domain.ToolResult{
			Success:       false,
			Error:         strings.Join(res.Errors, "; "),
			ShouldRetry:   true,
			Clarification: o.validator.ClarificationMessage(res),
			MissingFields: res.MissingFields(),
		}
	}

	in := res.Intent

	// Duplicate short-circuit before touching storage or the webhook.
	if o.executor.Ledger().WasExecuted(in.Identity) {
		o.logger.Info("duplicate appointment detected", "identity", in.Identity)
		return domain.ToolResult{
			Success:       true,
			IsDuplicate:   true,
			Message:       "This appointment was already created.",
			AppointmentID: in.Identity,
		}
	}

	// Best-effort pending record. Failure is logged and counted, never
	// propagated: the external side effect still proceeds.
	persisted := o.persistPending(ctx, in)

	exec := o.executor.Execute(ctx, in)

	if exec.IsDuplicate {
		return domain.ToolResult{
			Success:       true,
			IsDuplicate:   true,
			Message:       "This appointment was already created.",
			AppointmentID: in.Identity,
		}
	}

	if !exec.Success {
		o.logger.Error("webhook execution failed", "identity", in.Identity, "err", exec.Error)
		return domain.ToolResult{
			Success:       false,
			Error:         exec.Error,
			ShouldRetry:   true,
			Clarification: "I was unable to send the calendar invite. The appointment was saved but please try again.",
			AppointmentID: in.Identity,
		}
	}

	if persisted {
		o.confirmPersisted(ctx, in.Identity)
	}

	calendarLink, _ := exec.Response["calendar_link"].(string)
	return domain.ToolResult{
		Success:       true,
		Message:       fmt.Sprintf("Appointment created and confirmation email sent to %s", in.PrimaryAttendee()),
		AppointmentID: in.Identity,
		CalendarLink:  calendarLink,
		EmailSent:     true,
		AttendeeEmail: in.PrimaryAttendee(),
		Title:         in.Title,
		StartTime:     in.StartTime,
		EndTime:       in.EndTime,
	}
}

// persistPending mirrors the validated intent into the storage collaborator
// as a scheduled appointment. Reports whether the write succeeded.
func (o *Orchestrator) persistPending(ctx context.Context, in *domain.Intent) bool {
	if o.appointments == nil {
		return false
	}

	startAt, _ := time.Parse(time.RFC3339, in.StartTime)
	endAt, _ := time.Parse(time.RFC3339, in.EndTime)
	now := time.Now().UTC()

	err := o.appointments.CreateAppointment(ctx, ports.AppointmentRecord{
		ID:            in.Identity,
		CallID:        in.CallID,
		OrgID:         in.OrgID,
		Title:         in.Title,
		Description:   in.Description,
		StartTime:     startAt,
		EndTime:       endAt,
		Timezone:      in.Timezone,
		AttendeeEmail: in.PrimaryAttendee(),
		Status:        "scheduled",
		CreatedAt:     now,
		UpdatedAt:     now,
	})
	if err != nil {
		o.logger.Error("failed to persist appointment", "identity", in.Identity, "err", err)
		o.metrics.StorageDivergence()
		return false
	}
	return true
}

func (o *Orchestrator) confirmPersisted(ctx context.Context, identity string) {
	if err := o.appointments.UpdateAppointmentStatus(ctx, identity, "confirmed", true); err != nil {
		o.logger.Error("failed to confirm appointment", "identity", identity, "err", err)
		o.metrics.StorageDivergence()
	}
}
