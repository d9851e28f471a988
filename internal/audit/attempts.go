// Package audit keeps an append-only log of appointment creation attempts.
package audit

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"github.com/wolfman30/scheduled-pros/internal/booking"
)

// AttemptRecord is one stored creation attempt.
type AttemptRecord struct {
	ID            string                `json:"id"`
	ClientID      string                `json:"client_id"`
	SessionID     string                `json:"session_id,omitempty"`
	AppointmentID string                `json:"appointment_id,omitempty"`
	PaymentMethod booking.PaymentMethod `json:"payment_method,omitempty"`
	Outcome       string                `json:"outcome"`
	Error         string                `json:"error,omitempty"`
	InvalidFields []string              `json:"invalid_fields,omitempty"`
	CreatedAt     time.Time             `json:"created_at"`
}

// AttemptLog writes attempts to the booking_attempts table.
type AttemptLog struct {
	db  *sql.DB
	now func() time.Time
}

// NewAttemptLog creates an attempt log.
func NewAttemptLog(db *sql.DB) *AttemptLog {
	if db == nil {
		panic("audit: db required")
	}
	return &AttemptLog{db: db, now: time.Now}
}

// RecordAttempt satisfies events.AttemptRecorder.
func (l *AttemptLog) RecordAttempt(ctx context.Context, a booking.Attempt) error {
	fields := a.InvalidFields
	if fields == nil {
		fields = []string{}
	}
	query := `
		INSERT INTO booking_attempts (
			id, client_id, session_id, appointment_id, payment_method,
			outcome, error, invalid_fields, created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`
	_, err := l.db.ExecContext(ctx, query,
		uuid.NewString(),
		a.ClientID,
		nullString(a.SessionID),
		nullString(a.AppointmentID),
		nullString(string(a.PaymentMethod)),
		a.Outcome,
		nullString(a.Error),
		pq.Array(fields),
		l.now().UTC(),
	)
	if err != nil {
		return fmt.Errorf("audit: failed to record attempt: %w", err)
	}
	return nil
}

// Filter narrows Query results.
type Filter struct {
	ClientID  string
	SessionID string
	Outcome   string
	Since     time.Time
	Limit     int
}

// Query returns attempts for a tenant, newest first.
func (l *AttemptLog) Query(ctx context.Context, filter Filter) ([]AttemptRecord, error) {
	query := `
		SELECT id, client_id, session_id, appointment_id, payment_method,
			   outcome, error, invalid_fields, created_at
		FROM booking_attempts
		WHERE client_id = $1
	`
	args := []any{filter.ClientID}
	argIdx := 2

	if filter.SessionID != "" {
		query += fmt.Sprintf(" AND session_id = $%d", argIdx)
		args = append(args, filter.SessionID)
		argIdx++
	}
	if filter.Outcome != "" {
		query += fmt.Sprintf(" AND outcome = $%d", argIdx)
		args = append(args, filter.Outcome)
		argIdx++
	}
	if !filter.Since.IsZero() {
		query += fmt.Sprintf(" AND created_at >= $%d", argIdx)
		args = append(args, filter.Since)
	}
	query += " ORDER BY created_at DESC"
	if filter.Limit > 0 {
		query += fmt.Sprintf(" LIMIT %d", filter.Limit)
	}

	rows, err := l.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("audit: failed to query attempts: %w", err)
	}
	defer rows.Close()

	var out []AttemptRecord
	for rows.Next() {
		var r AttemptRecord
		var sessionID, appointmentID, method, errMsg sql.NullString
		if err := rows.Scan(
			&r.ID, &r.ClientID, &sessionID, &appointmentID, &method,
			&r.Outcome, &errMsg, pq.Array(&r.InvalidFields), &r.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("audit: failed to scan attempt: %w", err)
		}
		r.SessionID = sessionID.String
		r.AppointmentID = appointmentID.String
		r.PaymentMethod = booking.PaymentMethod(method.String)
		r.Error = errMsg.String
		out = append(out, r)
	}
	return out, rows.Err()
}

func nullString(s string) sql.NullString {
	if s == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: s, Valid: true}
}
