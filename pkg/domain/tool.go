package domain

// Tool names routed by the orchestrator.
const (
	ToolCreateAppointment = "create_appointment"
	ToolEscalateCall      = "escalate_call"
	ToolCompleteIntake    = "complete_intake"
	ToolEndCall           = "end_call"
)

// ToolCallRequest is the inbound tool-call envelope from the conversational
// engine. ToolArgs is kept loose on purpose: the upstream channel may deliver
// a JSON object, a string holding one, or garbage. The intent parser is the
// only component allowed to interpret it.
type ToolCallRequest struct {
	ToolName string `json:"tool_name" mapstructure:"tool_name"`
	ToolArgs any    `json:"tool_args" mapstructure:"tool_args"`
	CallID   string `json:"call_id,omitempty" mapstructure:"call_id"`
	OrgID    string `json:"org_id,omitempty" mapstructure:"org_id"`
	ItemID   string `json:"item_id,omitempty" mapstructure:"item_id"`
}

// ToolResult is the structured outcome returned upstream. Every path through
// the orchestrator produces one of these; the contract with the caller is
// that a tool call never fails silently.
type ToolResult struct {
	Success     bool   `json:"success"`
	Message     string `json:"message,omitempty"`
	Error       string `json:"error,omitempty"`
	ShouldRetry bool   `json:"should_retry"`
	IsDuplicate bool   `json:"is_duplicate"`

	AppointmentID string `json:"appointment_id,omitempty"`
	CalendarLink  string `json:"calendar_link,omitempty"`
	EmailSent     bool   `json:"email_sent"`
	AttendeeEmail string `json:"attendee_email,omitempty"`
	Title         string `json:"title,omitempty"`
	StartTime     string `json:"start_time,omitempty"`
	EndTime       string `json:"end_time,omitempty"`

	Clarification string   `json:"clarification,omitempty"`
	MissingFields []string `json:"missing_fields,omitempty"`

	// Pass-through fields for acknowledgment-only tools.
	Urgency string `json:"urgency,omitempty"`
	Reason  string `json:"reason,omitempty"`
}
