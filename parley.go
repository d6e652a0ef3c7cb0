// Package parley bridges conversational voice-agent tool calls to external
// automations, guaranteeing that a semantically identical intent triggers its
// side effect at most once no matter how often the upstream channel replays it.
package parley

import (
	"log/slog"
	"time"

	"github.com/aretw0/parley/internal/logging"
	"github.com/aretw0/parley/pkg/adapters/memory"
	"github.com/aretw0/parley/pkg/intent"
	"github.com/aretw0/parley/pkg/ledger"
	"github.com/aretw0/parley/pkg/observability"
	"github.com/aretw0/parley/pkg/orchestrator"
	"github.com/aretw0/parley/pkg/ports"
	"github.com/aretw0/parley/pkg/webhook"
	"github.com/prometheus/client_golang/prometheus"
)

// Version is the release version of the parley module.
const Version = "0.2.0"

// Pipeline is the high-level entry point for the parley library. It owns the
// validator, ledger, executor and orchestrator, constructed once at process
// start and passed by reference to the transport layer.
type Pipeline struct {
	orchestrator *orchestrator.Orchestrator
	ledger       *ledger.Ledger
	states       ports.CallStateStore
	appointments ports.AppointmentStore

	logger        *slog.Logger
	webhookClient ports.WebhookClient
	webhookKey    string
	timeout       time.Duration
	retention     time.Duration
	registry      prometheus.Registerer
}

// Option defines a functional option for configuring the Pipeline.
type Option func(*Pipeline)

// WithLogger sets a custom structured logger for all components.
func WithLogger(logger *slog.Logger) Option {
	return func(p *Pipeline) {
		p.logger = logger
	}
}

// WithStateStore injects a conversation state backend (default: in-memory).
func WithStateStore(s ports.CallStateStore) Option {
	return func(p *Pipeline) {
		p.states = s
	}
}

// WithAppointmentStore enables the best-effort appointment mirror.
func WithAppointmentStore(s ports.AppointmentStore) Option {
	return func(p *Pipeline) {
		p.appointments = s
	}
}

// WithWebhookClient injects a custom webhook collaborator, bypassing the
// default HTTP client.
func WithWebhookClient(c ports.WebhookClient) Option {
	return func(p *Pipeline) {
		p.webhookClient = c
	}
}

// WithWebhookAPIKey sets a bearer token for the default webhook client.
func WithWebhookAPIKey(key string) Option {
	return func(p *Pipeline) {
		p.webhookKey = key
	}
}

// WithExecutionTimeout overrides the webhook dispatch timeout.
func WithExecutionTimeout(d time.Duration) Option {
	return func(p *Pipeline) {
		p.timeout = d
	}
}

// WithRetention overrides how long finished ledger records are kept.
func WithRetention(d time.Duration) Option {
	return func(p *Pipeline) {
		p.retention = d
	}
}

// WithMetrics registers the pipeline's Prometheus collectors on reg.
func WithMetrics(reg prometheus.Registerer) Option {
	return func(p *Pipeline) {
		p.registry = reg
	}
}

// New wires the full pipeline around the given webhook destination URL.
// An empty URL is allowed: executions then fail as retryable until the
// destination is configured.
func New(webhookURL string, opts ...Option) *Pipeline {
	p := &Pipeline{
		logger:    logging.NewNop(),
		timeout:   ledger.DefaultTimeout,
		retention: ledger.DefaultRetention,
	}
	for _, opt := range opts {
		opt(p)
	}

	var metrics *observability.Metrics
	if p.registry != nil {
		metrics = observability.New(p.registry)
	}

	if p.webhookClient == nil {
		p.webhookClient = webhook.NewClient(webhookURL,
			webhook.WithAPIKey(p.webhookKey),
			webhook.WithLogger(p.logger),
		)
	}
	if p.states == nil {
		p.states = memory.NewStore()
	}

	p.ledger = ledger.NewLedger(ledger.WithRetention(p.retention))
	validator := intent.NewValidator(intent.WithLogger(p.logger))
	executor := ledger.NewExecutor(p.ledger, p.webhookClient,
		ledger.WithTimeout(p.timeout),
		ledger.WithLogger(p.logger),
		ledger.WithMetrics(metrics),
	)

	orchOpts := []orchestrator.Option{
		orchestrator.WithStateStore(p.states),
		orchestrator.WithLogger(p.logger),
		orchestrator.WithMetrics(metrics),
	}
	if p.appointments != nil {
		orchOpts = append(orchOpts, orchestrator.WithAppointmentStore(p.appointments))
	}
	p.orchestrator = orchestrator.New(validator, executor, orchOpts...)

	return p
}

// Orchestrator returns the tool-call entry point.
func (p *Pipeline) Orchestrator() *orchestrator.Orchestrator {
	return p.orchestrator
}

// Ledger returns the execution ledger.
func (p *Pipeline) Ledger() *ledger.Ledger {
	return p.ledger
}

// States returns the conversation state store.
func (p *Pipeline) States() ports.CallStateStore {
	return p.states
}

// Close releases pipeline resources (state sweeper, storage connections).
func (p *Pipeline) Close() error {
	var firstErr error
	if closer, ok := p.states.(interface{ Close() error }); ok {
		if err := closer.Close(); err != nil {
			firstErr = err
		}
	}
	if p.appointments != nil {
		if err := p.appointments.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}
