package ledger

import (
	"context"
	"log/slog"
	"time"

	"github.com/aretw0/parley/internal/logging"
	"github.com/aretw0/parley/pkg/domain"
	"github.com/aretw0/parley/pkg/observability"
	"github.com/aretw0/parley/pkg/ports"
)

// DefaultTimeout bounds one webhook dispatch.
const DefaultTimeout = 30 * time.Second

// Executor dispatches validated intents to the webhook collaborator exactly
// once per identity, recording outcomes in the Ledger.
type Executor struct {
	ledger  *Ledger
	client  ports.WebhookClient
	timeout time.Duration
	logger  *slog.Logger
	metrics *observability.Metrics
}

// ExecutorOption configures the Executor.
type ExecutorOption func(*Executor)

// WithTimeout overrides the webhook dispatch timeout.
func WithTimeout(d time.Duration) ExecutorOption {
	return func(e *Executor) {
		e.timeout = d
	}
}

// WithLogger sets a custom structured logger.
func WithLogger(logger *slog.Logger) ExecutorOption {
	return func(e *Executor) {
		e.logger = logger
	}
}

// WithMetrics enables instrumentation.
func WithMetrics(m *observability.Metrics) ExecutorOption {
	return func(e *Executor) {
		e.metrics = m
	}
}

// NewExecutor creates an Executor bound to a ledger and a webhook client.
func NewExecutor(l *Ledger, client ports.WebhookClient, opts ...ExecutorOption) *Executor {
	e := &Executor{
		ledger:  l,
		client:  client,
		timeout: DefaultTimeout,
		logger:  logging.NewNop(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Ledger returns the underlying ledger.
func (e *Executor) Ledger() *Ledger {
	return e.ledger
}

// Execute runs one execution attempt for a validated intent.
//
// The per-identity lock is held across the whole attempt, webhook dispatch
// included: concurrent attempts for the same identity wait here, then observe
// the EXECUTING/EXECUTED record and short-circuit as duplicates without a
// second external call. Distinct identities proceed independently.
func (e *Executor) Execute(ctx context.Context, in *domain.Intent) domain.ExecutionResult {
	identity := in.Identity

	entry := e.ledger.acquire(identity)
	entry.mu.Lock()
	defer func() {
		entry.mu.Unlock()
		e.ledger.release(identity)
	}()

	if rec, ok := e.ledger.get(identity); ok {
		if rec.Status == domain.StatusExecuting || rec.Status == domain.StatusExecuted {
			e.logger.Info("duplicate intent, skipping execution", "identity", identity, "status", rec.Status)
			e.metrics.Execution(string(domain.StatusDuplicate))
			return domain.ExecutionResult{
				Success:     true,
				Status:      domain.StatusDuplicate,
				Identity:    identity,
				IsDuplicate: true,
			}
		}
	}

	started := e.ledger.now()
	e.ledger.put(&domain.ExecutionRecord{
		Identity:  identity,
		Status:    domain.StatusExecuting,
		StartedAt: started,
	})

	e.logger.Info("executing webhook",
		"identity", identity,
		"title", in.Title,
		"attendee", in.PrimaryAttendee(),
	)

	cctx, cancel := context.WithTimeout(ctx, e.timeout)
	defer cancel()

	dispatchStart := time.Now()
	response, err := e.client.Dispatch(cctx, in.WebhookPayload())
	e.metrics.WebhookDuration(time.Since(dispatchStart))

	finished := e.ledger.now()
	if err != nil {
		e.logger.Error("webhook execution failed", "identity", identity, "err", err)
		e.ledger.put(&domain.ExecutionRecord{
			Identity:   identity,
			Status:     domain.StatusFailed,
			Error:      err.Error(),
			StartedAt:  started,
			FinishedAt: finished,
		})
		e.metrics.Execution(string(domain.StatusFailed))
		return domain.ExecutionResult{
			Success:  false,
			Status:   domain.StatusFailed,
			Identity: identity,
			Error:    err.Error(),
		}
	}

	e.logger.Info("webhook executed", "identity", identity)
	e.ledger.put(&domain.ExecutionRecord{
		Identity:   identity,
		Status:     domain.StatusExecuted,
		Response:   response,
		StartedAt:  started,
		FinishedAt: finished,
	})
	e.metrics.Execution(string(domain.StatusExecuted))
	return domain.ExecutionResult{
		Success:    true,
		Status:     domain.StatusExecuted,
		Identity:   identity,
		Response:   response,
		ExecutedAt: finished,
	}
}
