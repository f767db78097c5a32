package repository

import (
	"context"
	"database/sql"
	"encoding/json"

	"storefront/backend/internal/telemetry/domain"
)

type PostgresRepository struct {
	db *sql.DB
}

// NewPostgresRepository returns a telemetry repository that uses the given db for persistence.
func NewPostgresRepository(db *sql.DB) *PostgresRepository {
	return &PostgresRepository{db: db}
}

// Write inserts the event into telemetry_events.
func (r *PostgresRepository) Write(ctx context.Context, e *domain.Event) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO telemetry_events (event_type, source, user_id, device_id, metadata, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6)`,
		e.EventType, e.Source, nullString(e.UserID), nullString(e.DeviceID), metadata(e.Metadata), e.CreatedAt,
	)
	return err
}

// ListByDevice returns events for deviceID, newest first.
func (r *PostgresRepository) ListByDevice(ctx context.Context, deviceID string, limit, offset int32) ([]*domain.Event, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT event_type, source, user_id, device_id, metadata, created_at FROM telemetry_events
		 WHERE device_id = $1 ORDER BY created_at DESC LIMIT $2 OFFSET $3`, deviceID, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []*domain.Event
	for rows.Next() {
		var (
			e        domain.Event
			userID   sql.NullString
			deviceID sql.NullString
			meta     []byte
		)
		if err := rows.Scan(&e.EventType, &e.Source, &userID, &deviceID, &meta, &e.CreatedAt); err != nil {
			return nil, err
		}
		e.UserID = userID.String
		e.DeviceID = deviceID.String
		e.Metadata = meta
		out = append(out, &e)
	}
	return out, rows.Err()
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

func metadata(b []byte) string {
	if len(b) == 0 || !json.Valid(b) {
		return "{}"
	}
	return string(b)
}
