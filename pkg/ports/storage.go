package ports

import (
	"context"
	"time"
)

// AppointmentRecord is the storage collaborator's view of an appointment.
type AppointmentRecord struct {
	ID            string
	CallID        string
	OrgID         string
	Title         string
	Description   string
	StartTime     time.Time
	EndTime       time.Time
	Timezone      string
	AttendeeEmail string
	Status        string // "scheduled" | "confirmed"
	InviteSent    bool
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// AppointmentStore mirrors executed appointments into durable storage.
//
// Writes are best-effort and explicitly non-transactional with respect to the
// execution ledger: a ledger-confirmed execution can exist without its
// storage mirror. The pipeline logs and counts that divergence but never
// fails on it.
type AppointmentStore interface {
	// CreateAppointment persists a pending appointment keyed by intent identity.
	CreateAppointment(ctx context.Context, rec AppointmentRecord) error

	// UpdateAppointmentStatus marks an appointment's outcome after execution.
	UpdateAppointmentStatus(ctx context.Context, id, status string, inviteSent bool) error

	// GetAppointment retrieves an appointment by ID.
	// Returns domain.ErrAppointmentNotFound if unknown.
	GetAppointment(ctx context.Context, id string) (*AppointmentRecord, error)

	// Close releases the underlying connection.
	Close() error
}
