package domain

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"time"
)

// Action identifies the kind of side effect an intent requests.
// Explicit enum prevents unknown actions from reaching execution.
type Action string

const (
	ActionCreateCalendarEvent Action = "create_calendar_event"
)

// Intent is the canonical, validated representation of a requested side
// effect. It is immutable once constructed; a re-attempt is a new Intent.
type Intent struct {
	Action      Action
	Title       string
	Description string
	StartTime   string // RFC 3339, offset verified at validation time
	EndTime     string
	Timezone    string
	Attendees   []string // normalized, never empty
	SendEmail   bool

	// Identity is the deduplication key. Either caller-supplied or derived
	// via DeriveIdentity.
	Identity string

	// Correlation identifiers, informational only.
	CallID string
	OrgID  string
}

// PrimaryAttendee returns the first attendee address.
func (i *Intent) PrimaryAttendee() string {
	if len(i.Attendees) == 0 {
		return ""
	}
	return i.Attendees[0]
}

// DeriveIdentity computes the deterministic identity for an intent's logical
// content. Same appointment details always yield the same identity, so
// transport retries and reconnect replays collapse onto one key.
func DeriveIdentity(title, start, end, primaryAttendee string) string {
	key := fmt.Sprintf("%s|%s|%s|%s", title, start, end, primaryAttendee)
	sum := sha256.Sum256([]byte(key))
	return hex.EncodeToString(sum[:])[:16]
}

// WebhookPayload is the JSON object dispatched to the automation collaborator.
type WebhookPayload struct {
	AppointmentID       string   `json:"appointment_id"`
	Title               string   `json:"title"`
	Description         string   `json:"description"`
	StartTime           string   `json:"start_time"`
	EndTime             string   `json:"end_time"`
	Timezone            string   `json:"timezone"`
	AttendeeEmail       string   `json:"attendee_email"`
	AttendeeName        string   `json:"attendee_name"`
	AdditionalAttendees []string `json:"additional_attendees"`
	SendEmail           bool     `json:"send_email"`
	CreatedAt           string   `json:"created_at"`
}

// WebhookPayload builds the dispatch payload for this intent.
func (i *Intent) WebhookPayload() WebhookPayload {
	additional := []string{}
	if len(i.Attendees) > 1 {
		additional = append(additional, i.Attendees[1:]...)
	}
	return WebhookPayload{
		AppointmentID:       i.Identity,
		Title:               i.Title,
		Description:         i.Description,
		StartTime:           i.StartTime,
		EndTime:             i.EndTime,
		Timezone:            i.Timezone,
		AttendeeEmail:       i.PrimaryAttendee(),
		AttendeeName:        "",
		AdditionalAttendees: additional,
		SendEmail:           i.SendEmail,
		CreatedAt:           time.Now().UTC().Format(time.RFC3339),
	}
}
