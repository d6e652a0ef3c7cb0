package intent

import (
	"fmt"
	"log/slog"
	"regexp"
	"strings"
	"sync"
	"time"

	"github.com/aretw0/parley/internal/logging"
	"github.com/aretw0/parley/pkg/domain"
	"github.com/mitchellh/mapstructure"
)

const (
	maxTitleLength = 255
	maxEmailLength = 254 // RFC 5321 limit

	// Clarification marker relayed back to the conversational engine.
	clarificationPrefix = "VALIDATION_FAILED"

	recentFailures = 10
)

// Conservative email grammar: local-part @ dotted domain labels, top label
// at least two letters.
var emailPattern = regexp.MustCompile(`^[a-zA-Z0-9._%+-]+@[a-zA-Z0-9.-]+\.[a-zA-Z]{2,}$`)

// rawPayload is the tagged deserialization target for parsed tool arguments.
// Decoding through mapstructure distinguishes "wrong type" from "absent"
// before the canonical Intent is constructed.
type rawPayload struct {
	Title         string   `mapstructure:"title"`
	Description   string   `mapstructure:"description"`
	StartTime     string   `mapstructure:"start_time"`
	EndTime       string   `mapstructure:"end_time"`
	Timezone      string   `mapstructure:"timezone"`
	AttendeeEmail string   `mapstructure:"attendee_email"`
	Attendees     []string `mapstructure:"attendees"`
	SendEmail     *bool    `mapstructure:"send_email"`
	IntentID      string   `mapstructure:"intent_id"`
}

// Result is the outcome of a validation attempt. Invalid results always carry
// a non-empty Errors list; the raw input is preserved for audit.
type Result struct {
	IsValid bool
	Intent  *domain.Intent
	Errors  []string
	Raw     map[string]any
}

// MissingFields extracts the field names from the error list, one per
// "<field>: <reason>" entry. Used upstream to tell the model exactly which
// fields to re-prompt for.
func (r Result) MissingFields() []string {
	fields := make([]string, 0, len(r.Errors))
	for _, e := range r.Errors {
		if idx := strings.Index(e, ":"); idx > 0 {
			fields = append(fields, strings.TrimSpace(e[:idx]))
		}
	}
	return fields
}

// FailureEntry records one rejected validation for the debug surface.
type FailureEntry struct {
	Timestamp time.Time      `json:"timestamp"`
	Input     map[string]any `json:"input"`
	Errors    []string       `json:"errors"`
}

// Stats summarizes validation failures.
type Stats struct {
	TotalFailures  int            `json:"total_failures"`
	RecentFailures []FailureEntry `json:"recent_failures"`
}

// Validator turns parsed tool arguments into canonical intents.
// Safe for concurrent use.
type Validator struct {
	logger *slog.Logger

	mu       sync.Mutex
	total    int
	failures []FailureEntry
}

// Option configures the Validator.
type Option func(*Validator)

// WithLogger sets a custom structured logger.
func WithLogger(logger *slog.Logger) Option {
	return func(v *Validator) {
		v.logger = logger
	}
}

// NewValidator creates a Validator.
func NewValidator(opts ...Option) *Validator {
	v := &Validator{logger: logging.NewNop()}
	for _, opt := range opts {
		opt(v)
	}
	return v
}

// Validate checks parsed tool arguments against the calendar-event schema and
// constructs the canonical Intent. It never panics past this boundary: all
// failure paths produce an invalid Result with field-named errors.
func (v *Validator) Validate(args map[string]any, callID, orgID string) Result {
	var errs []string

	// Wrong-type fields are reported on their own, before presence checks,
	// so "present but mistyped" is never conflated with "absent".
	payload, decodeErrs := decodePayload(args)
	if len(decodeErrs) > 0 {
		return v.fail(args, decodeErrs)
	}

	// Required-field presence. One error entry per missing field so the
	// caller can re-prompt for exactly those.
	if payload.Title == "" {
		errs = append(errs, "title: is required")
	}
	if payload.StartTime == "" {
		errs = append(errs, "start_time: is required")
	}
	if payload.EndTime == "" {
		errs = append(errs, "end_time: is required")
	}

	// The attendees list wins over the single field when both are given.
	attendees := payload.Attendees
	if len(attendees) == 0 && payload.AttendeeEmail != "" {
		attendees = []string{payload.AttendeeEmail}
	}
	if len(attendees) == 0 {
		errs = append(errs, "attendee_email: is required")
	}

	if len(errs) > 0 {
		return v.fail(args, errs)
	}

	if len(payload.Title) > maxTitleLength {
		errs = append(errs, fmt.Sprintf("title: must be at most %d characters", maxTitleLength))
	}

	normalized := make([]string, 0, len(attendees))
	for _, raw := range attendees {
		email := strings.ToLower(strings.TrimSpace(raw))
		if msg := checkEmail(email); msg != "" {
			errs = append(errs, "attendees: "+msg)
			continue
		}
		normalized = append(normalized, email)
	}

	for _, field := range []struct{ name, value string }{
		{"start_time", payload.StartTime},
		{"end_time", payload.EndTime},
	} {
		if _, err := time.Parse(time.RFC3339, field.value); err != nil {
			errs = append(errs, fmt.Sprintf(
				"%s: invalid ISO-8601 datetime: %s. Expected format: YYYY-MM-DDTHH:MM:SSZ",
				field.name, field.value))
		}
	}

	if len(errs) > 0 {
		return v.fail(args, errs)
	}

	timezone := payload.Timezone
	if timezone == "" {
		timezone = "UTC"
	}
	sendEmail := true
	if payload.SendEmail != nil {
		sendEmail = *payload.SendEmail
	}

	// Deterministic identity so transport retries collapse onto one key.
	// A caller-supplied intent_id is honored as-is.
	identity := payload.IntentID
	if identity == "" {
		identity = domain.DeriveIdentity(payload.Title, payload.StartTime, payload.EndTime, normalized[0])
	}

	in := &domain.Intent{
		Action:      domain.ActionCreateCalendarEvent,
		Title:       payload.Title,
		Description: payload.Description,
		StartTime:   payload.StartTime,
		EndTime:     payload.EndTime,
		Timezone:    timezone,
		Attendees:   normalized,
		SendEmail:   sendEmail,
		Identity:    identity,
		CallID:      callID,
		OrgID:       orgID,
	}

	v.logger.Info("intent validated",
		"identity", identity,
		"title", in.Title,
		"attendees", len(in.Attendees),
	)

	return Result{IsValid: true, Intent: in, Raw: args}
}

// ClarificationMessage renders a single sentence for the conversational
// engine to re-prompt the caller with. Empty for valid results.
func (v *Validator) ClarificationMessage(res Result) string {
	if res.IsValid {
		return ""
	}
	return fmt.Sprintf(
		"%s: Cannot create appointment. %s. Please ask the user to provide the missing or correct information.",
		clarificationPrefix, strings.Join(res.Errors, "; "))
}

// Stats returns the failure count and the most recent rejections.
func (v *Validator) Stats() Stats {
	v.mu.Lock()
	defer v.mu.Unlock()

	recent := make([]FailureEntry, len(v.failures))
	copy(recent, v.failures)
	return Stats{TotalFailures: v.total, RecentFailures: recent}
}

func (v *Validator) fail(args map[string]any, errs []string) Result {
	v.logger.Warn("intent validation failed", "errors", strings.Join(errs, "; "))

	v.mu.Lock()
	v.total++
	v.failures = append(v.failures, FailureEntry{
		Timestamp: time.Now().UTC(),
		Input:     args,
		Errors:    errs,
	})
	if len(v.failures) > recentFailures {
		v.failures = v.failures[len(v.failures)-recentFailures:]
	}
	v.mu.Unlock()

	return Result{IsValid: false, Errors: errs, Raw: args}
}

// decodePayload maps loose arguments onto the typed payload. Type mismatches
// come back as one "<field>: <reason>" error each; absent fields stay zero.
func decodePayload(args map[string]any) (rawPayload, []string) {
	var payload rawPayload
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result: &payload,
	})
	if err != nil {
		return payload, []string{fmt.Sprintf("payload: %v", err)}
	}

	if err := decoder.Decode(args); err != nil {
		var errs []string
		if merr, ok := err.(*mapstructure.Error); ok {
			for _, e := range merr.Errors {
				errs = append(errs, fmt.Sprintf("%s: %s", fieldFromDecodeError(e), e))
			}
		} else {
			errs = append(errs, fmt.Sprintf("payload: %v", err))
		}
		return payload, errs
	}
	return payload, nil
}

var decodeFieldPattern = regexp.MustCompile(`'([^']+)'`)

func fieldFromDecodeError(msg string) string {
	if m := decodeFieldPattern.FindStringSubmatch(msg); m != nil {
		return m[1]
	}
	return "payload"
}

func checkEmail(email string) string {
	if email == "" {
		return "email address is required"
	}
	if len(email) > maxEmailLength {
		return fmt.Sprintf("email address is too long: %s", email)
	}
	if strings.HasPrefix(email, ".") || strings.HasPrefix(email, "@") {
		return fmt.Sprintf("email address cannot start with . or @: %s", email)
	}
	if strings.Contains(email, "..") {
		return fmt.Sprintf("email address cannot contain consecutive dots: %s", email)
	}
	if !emailPattern.MatchString(email) {
		return fmt.Sprintf("invalid email format: %s", email)
	}
	return ""
}
