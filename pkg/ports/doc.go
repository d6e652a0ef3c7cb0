/*
Package ports defines the driven ports (interfaces) for the Parley pipeline.

These interfaces decouple the core logic from external implementations,
allowing the orchestrator to work with different state backends, webhook
destinations, and storage collaborators.

# Key Interfaces

  - CallStateStore: Ephemeral per-call conversation state (memory or Redis).
  - WebhookClient: The external automation collaborator performing the real
    side effect (calendar event + confirmation email).
  - AppointmentStore: Best-effort relational mirror of executed appointments.
*/
package ports
