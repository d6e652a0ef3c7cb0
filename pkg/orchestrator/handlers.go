package orchestrator

import (
	"context"

	"github.com/aretw0/parley/pkg/domain"
	"github.com/aretw0/parley/pkg/intent"
	"github.com/aretw0/parley/pkg/ledger"
)

// The acknowledgment-only tools below run no validation pipeline and no
// idempotency tracking. They trust the caller's own conversation state
// machine and answer immediately, carrying caller-supplied fields through.

func (o *Orchestrator) handleEscalateCall(ctx context.Context, req domain.ToolCallRequest) domain.ToolResult {
	args := looseArgs(req.ToolArgs)

	reason, _ := args["reason"].(string)
	urgency, _ := args["urgency"].(string)
	if urgency == "" {
		urgency = "medium"
	}

	o.logger.Info("call escalated", "call_id", req.CallID, "reason", reason, "urgency", urgency)

	if o.states != nil && req.CallID != "" {
		if err := o.states.MarkEscalated(ctx, req.CallID, reason, urgency); err != nil {
			o.logger.Error("failed to mark call escalated", "call_id", req.CallID, "err", err)
		}
	}

	return domain.ToolResult{
		Success: true,
		Message: "Call escalated to human agent",
		Urgency: urgency,
		Reason:  reason,
	}
}

func (o *Orchestrator) handleCompleteIntake(ctx context.Context, req domain.ToolCallRequest) domain.ToolResult {
	o.logger.Info("intake completed", "call_id", req.CallID)

	if o.states != nil && req.CallID != "" {
		if err := o.states.UpdatePhase(ctx, req.CallID, domain.PhaseCompleted); err != nil {
			o.logger.Error("failed to update phase", "call_id", req.CallID, "err", err)
		}
	}

	return domain.ToolResult{
		Success: true,
		Message: "Intake completed successfully",
	}
}

func (o *Orchestrator) handleEndCall(ctx context.Context, req domain.ToolCallRequest) domain.ToolResult {
	args := looseArgs(req.ToolArgs)

	reason, _ := args["reason"].(string)
	if reason == "" {
		reason = "completed"
	}

	o.logger.Info("call ended", "call_id", req.CallID, "reason", reason)

	if o.states != nil && req.CallID != "" {
		if err := o.states.DeleteState(ctx, req.CallID); err != nil {
			o.logger.Error("failed to delete call state", "call_id", req.CallID, "err", err)
		}
	}

	return domain.ToolResult{
		Success: true,
		Message: "Call ended",
		Reason:  reason,
	}
}

// looseArgs parses arguments leniently for tools that only read optional
// pass-through fields. Malformed input degrades to an empty map.
func looseArgs(raw any) map[string]any {
	args, err := intent.Parse(raw)
	if err != nil {
		return map[string]any{}
	}
	return args
}

// PipelineStats merges the validator's and the ledger's statistics for the
// debug surface.
type PipelineStats struct {
	Validation intent.Stats `json:"validation"`
	Execution  ledger.Stats `json:"execution"`
}

// Stats returns the pipeline statistics.
func (o *Orchestrator) Stats() PipelineStats {
	return PipelineStats{
		Validation: o.validator.Stats(),
		Execution:  o.executor.Ledger().Stats(),
	}
}

// ResetExecution purges a ledger record, making the identity eligible for a
// genuine re-execution. Unsafe for production use.
func (o *Orchestrator) ResetExecution(identity string) bool {
	ok := o.executor.Ledger().Purge(identity)
	if ok {
		o.logger.Info("execution record purged", "identity", identity)
	}
	return ok
}
