// Package audit records every upload attempt to PostgreSQL. The trail is an
// append-only log for operators; the storage directory remains the only
// source of truth for what files exist.
package audit

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
)

// Outcome classifies an upload attempt.
type Outcome string

const (
	OutcomeStored   Outcome = "stored"
	OutcomeRejected Outcome = "rejected" // client input error or size limit
	OutcomeFailed   Outcome = "failed"   // storage I/O error
)

const (
	DefaultRecentLimit = 50
	MaxRecentLimit     = 500
)

var tracer = otel.Tracer("filedrop/audit")

// Event is one upload attempt.
type Event struct {
	ID          string    `json:"id"`
	RequestID   string    `json:"request_id,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
	Outcome     Outcome   `json:"outcome"`
	DisplayName string    `json:"display_name,omitempty"`
	StoredName  string    `json:"stored_name,omitempty"`
	SizeBytes   int64     `json:"size_bytes"`
	Renamed     bool      `json:"renamed"`
	ClientIP    string    `json:"client_ip,omitempty"`
	ErrorMsg    string    `json:"error,omitempty"`
}

// Recorder writes and reads upload events.
type Recorder struct {
	db *sql.DB
}

func NewRecorder(db *sql.DB) *Recorder {
	return &Recorder{db: db}
}

// Record inserts ev, filling in ID and CreatedAt when unset.
func (r *Recorder) Record(ctx context.Context, ev Event) error {
	ctx, span := tracer.Start(ctx, "audit.record")
	defer span.End()
	span.SetAttributes(attribute.String("audit.outcome", string(ev.Outcome)))

	if ev.ID == "" {
		ev.ID = uuid.NewString()
	}
	if ev.CreatedAt.IsZero() {
		ev.CreatedAt = time.Now().UTC()
	}

	_, err := r.db.ExecContext(ctx, `
		INSERT INTO upload_events (
			id, request_id, created_at, outcome, display_name, stored_name,
			size_bytes, renamed, client_ip, error_message
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`,
		ev.ID,
		ev.RequestID,
		ev.CreatedAt,
		string(ev.Outcome),
		ev.DisplayName,
		ev.StoredName,
		ev.SizeBytes,
		ev.Renamed,
		ev.ClientIP,
		nullString(ev.ErrorMsg),
	)
	if err != nil {
		span.RecordError(err)
		return fmt.Errorf("insert upload event: %w", err)
	}
	return nil
}

// Recent returns the newest events first.
func (r *Recorder) Recent(ctx context.Context, limit int) ([]Event, error) {
	limit = ClampLimit(limit)

	rows, err := r.db.QueryContext(ctx, `
		SELECT id, request_id, created_at, outcome, display_name, stored_name,
		       size_bytes, renamed, client_ip, error_message
		FROM upload_events
		ORDER BY created_at DESC
		LIMIT $1
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("query upload events: %w", err)
	}
	defer rows.Close()

	events := make([]Event, 0, limit)
	for rows.Next() {
		var (
			ev       Event
			outcome  string
			errorMsg sql.NullString
		)
		if err := rows.Scan(
			&ev.ID,
			&ev.RequestID,
			&ev.CreatedAt,
			&outcome,
			&ev.DisplayName,
			&ev.StoredName,
			&ev.SizeBytes,
			&ev.Renamed,
			&ev.ClientIP,
			&errorMsg,
		); err != nil {
			return nil, fmt.Errorf("scan upload event: %w", err)
		}
		ev.Outcome = Outcome(outcome)
		if errorMsg.Valid {
			ev.ErrorMsg = errorMsg.String
		}
		events = append(events, ev)
	}
	return events, rows.Err()
}

// Ping checks the database connection.
func (r *Recorder) Ping(ctx context.Context) error {
	return r.db.PingContext(ctx)
}

// ClampLimit maps a requested page size into [1, MaxRecentLimit], using
// DefaultRecentLimit for non-positive values.
func ClampLimit(limit int) int {
	switch {
	case limit <= 0:
		return DefaultRecentLimit
	case limit > MaxRecentLimit:
		return MaxRecentLimit
	}
	return limit
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
