/*
Package domain contains the core domain models for the Parley pipeline.

It defines the canonical entities shared across the validation, execution and
orchestration layers: the validated Intent, the per-identity ExecutionRecord,
the per-call conversation state, and the wire types exchanged with the
upstream conversational engine. This package is kept pure and free of external
dependencies like I/O or persistence, following Hexagonal Architecture
principles.

# Key Entities

  - Intent: A validated, immutable representation of a requested side effect.
  - ExecutionRecord: The ledger entry tracking the execution status of one
    intent identity.
  - CallState: Ephemeral per-call conversation state (phase, transcripts,
    escalation).
  - ToolCallRequest / ToolResult: The inbound/outbound tool-call envelope.
*/
package domain
