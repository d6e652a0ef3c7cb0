package ports

import (
	"context"

	"github.com/aretw0/parley/pkg/domain"
)

// WebhookClient dispatches a validated intent's payload to the external
// automation collaborator. The collaborator owns the real-world side effect
// (calendar event creation, confirmation email); this interface only carries
// the payload across.
//
// A nil-error return means the collaborator accepted the dispatch (HTTP 2xx
// family). The returned map is the collaborator's response body, which may be
// empty. Implementations must honor ctx cancellation and deadlines.
type WebhookClient interface {
	Dispatch(ctx context.Context, payload domain.WebhookPayload) (map[string]any, error)
}
