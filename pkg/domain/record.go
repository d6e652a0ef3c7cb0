package domain

import "time"

// ExecutionStatus tracks the lifecycle of one intent identity in the ledger.
type ExecutionStatus string

const (
	StatusPending   ExecutionStatus = "pending"
	StatusExecuting ExecutionStatus = "executing"
	StatusExecuted  ExecutionStatus = "executed"
	StatusFailed    ExecutionStatus = "failed"
	StatusDuplicate ExecutionStatus = "duplicate"
)

// ExecutionRecord is a ledger entry for one intent identity.
// Records live for the process lifetime only (bounded by the ledger's
// retention window); they carry no durability guarantee.
type ExecutionRecord struct {
	Identity   string          `json:"identity"`
	Status     ExecutionStatus `json:"status"`
	Response   map[string]any  `json:"response,omitempty"` // only when Executed
	Error      string          `json:"error,omitempty"`    // only when Failed
	StartedAt  time.Time       `json:"started_at"`
	FinishedAt time.Time       `json:"finished_at,omitempty"`
}

// ExecutionResult is the outcome of one execution attempt, returned as a
// value rather than signalled through errors (duplicates are a success path).
type ExecutionResult struct {
	Success     bool
	Status      ExecutionStatus
	Identity    string
	Response    map[string]any
	Error       string
	IsDuplicate bool
	ExecutedAt  time.Time
}
