// Package sqlite implements ports.AppointmentStore using SQLite.
//
// This is the storage collaborator the pipeline writes to best-effort: the
// execution ledger is authoritative, and a failed write here is logged and
// counted, never surfaced as a pipeline failure.
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/aretw0/parley/pkg/domain"
	"github.com/aretw0/parley/pkg/ports"
	_ "modernc.org/sqlite"
)

// Store implements ports.AppointmentStore.
type Store struct {
	db *sql.DB
}

// New creates a SQLite-backed appointment store at the given path.
func New(dbPath string) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
		return nil, fmt.Errorf("create database directory: %w", err)
	}

	// WAL mode for better concurrency under parallel tool-call events.
	dsn := dbPath + "?_journal=WAL&_sync=NORMAL&_busy_timeout=5000"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(2)
	db.SetConnMaxLifetime(5 * time.Minute)

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("ping database: %w", err)
	}

	store := &Store{db: db}
	if err := store.initSchema(); err != nil {
		return nil, fmt.Errorf("initialize schema: %w", err)
	}
	return store, nil
}

func (s *Store) initSchema() error {
	query := `
	PRAGMA busy_timeout = 5000;
	CREATE TABLE IF NOT EXISTS appointments (
		id TEXT PRIMARY KEY,
		call_id TEXT,
		org_id TEXT,
		title TEXT NOT NULL,
		description TEXT,
		start_time INTEGER NOT NULL,
		end_time INTEGER NOT NULL,
		timezone TEXT NOT NULL,
		attendee_email TEXT NOT NULL,
		status TEXT NOT NULL,
		invite_sent INTEGER DEFAULT 0,
		created_at INTEGER NOT NULL,
		updated_at INTEGER NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_appointments_call ON appointments(call_id);
	`
	if _, err := s.db.Exec(query); err != nil {
		return err
	}
	return nil
}

// CreateAppointment persists a pending appointment keyed by intent identity.
// Re-inserting an existing identity is a no-op so replayed pipelines stay
// idempotent at the storage layer too.
func (s *Store) CreateAppointment(ctx context.Context, rec ports.AppointmentRecord) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO appointments
			(id, call_id, org_id, title, description, start_time, end_time,
			 timezone, attendee_email, status, invite_sent, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO NOTHING`,
		rec.ID, rec.CallID, rec.OrgID, rec.Title, rec.Description,
		rec.StartTime.Unix(), rec.EndTime.Unix(), rec.Timezone,
		rec.AttendeeEmail, rec.Status, boolToInt(rec.InviteSent),
		rec.CreatedAt.Unix(), rec.UpdatedAt.Unix(),
	)
	if err != nil {
		return fmt.Errorf("insert appointment: %w", err)
	}
	return nil
}

// UpdateAppointmentStatus marks an appointment's outcome after execution.
func (s *Store) UpdateAppointmentStatus(ctx context.Context, id, status string, inviteSent bool) error {
	res, err := s.db.ExecContext(ctx, `
		UPDATE appointments SET status = ?, invite_sent = ?, updated_at = ?
		WHERE id = ?`,
		status, boolToInt(inviteSent), time.Now().Unix(), id,
	)
	if err != nil {
		return fmt.Errorf("update appointment: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("update appointment: %w", err)
	}
	if affected == 0 {
		return domain.ErrAppointmentNotFound
	}
	return nil
}

// GetAppointment retrieves an appointment by ID.
func (s *Store) GetAppointment(ctx context.Context, id string) (*ports.AppointmentRecord, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, call_id, org_id, title, description, start_time, end_time,
		       timezone, attendee_email, status, invite_sent, created_at, updated_at
		FROM appointments WHERE id = ?`, id)

	var rec ports.AppointmentRecord
	var start, end, created, updated int64
	var inviteSent int
	err := row.Scan(&rec.ID, &rec.CallID, &rec.OrgID, &rec.Title, &rec.Description,
		&start, &end, &rec.Timezone, &rec.AttendeeEmail, &rec.Status,
		&inviteSent, &created, &updated)
	if err == sql.ErrNoRows {
		return nil, domain.ErrAppointmentNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scan appointment: %w", err)
	}

	rec.StartTime = time.Unix(start, 0).UTC()
	rec.EndTime = time.Unix(end, 0).UTC()
	rec.CreatedAt = time.Unix(created, 0).UTC()
	rec.UpdatedAt = time.Unix(updated, 0).UTC()
	rec.InviteSent = inviteSent != 0
	return &rec, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
