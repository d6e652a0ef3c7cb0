package parley_test

import (
	"context"
	"fmt"

	"github.com/aretw0/parley"
	"github.com/aretw0/parley/pkg/domain"
)

// stubWebhook stands in for the external automation so the example
// is deterministic. Production code uses the default HTTP client.
type stubWebhook struct{}

func (stubWebhook) Dispatch(ctx context.Context, payload domain.WebhookPayload) (map[string]any, error) {
	fmt.Printf("webhook fired for %s\n", payload.AttendeeEmail)
	return map[string]any{"status": "success"}, nil
}

// ExampleNew demonstrates using parley as a library: the same appointment
// replayed by the upstream channel triggers the webhook only once.
func ExampleNew() {
	p := parley.New("", parley.WithWebhookClient(stubWebhook{}))
	defer p.Close()

	req := domain.ToolCallRequest{
		ToolName: domain.ToolCreateAppointment,
		CallID:   "call-42",
		ToolArgs: map[string]any{
			"title":          "Dental checkup",
			"start_time":     "2025-01-10T09:00:00Z",
			"end_time":       "2025-01-10T09:30:00Z",
			"attendee_email": "pat@example.com",
		},
	}

	ctx := context.Background()
	first := p.Orchestrator().Handle(ctx, req)
	fmt.Println("first:", first.Success, first.IsDuplicate)

	// The conversational channel dropped and replayed the tool call.
	second := p.Orchestrator().Handle(ctx, req)
	fmt.Println("second:", second.Success, second.IsDuplicate)

	// Output:
	// webhook fired for pat@example.com
	// first: true false
	// second: true true
}
