package weather

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

// recordedAtLayout is fixed width so that text order is time order.
const recordedAtLayout = "2006-01-02T15:04:05.000000000Z07:00"

// SQLiteStore reads records from the weather_records table.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore creates a store over db.
func NewSQLiteStore(db *sql.DB) *SQLiteStore {
	return &SQLiteStore{db: db}
}

// Reachable pings the database.
func (s *SQLiteStore) Reachable(ctx context.Context) error {
	if err := s.db.PingContext(ctx); err != nil {
		return fmt.Errorf("%w: %w", ErrUnreachable, err)
	}
	return nil
}

// Latest returns the record with the most recent timestamp.
func (s *SQLiteStore) Latest(ctx context.Context) (Record, error) {
	var (
		safe       int64
		recordedAt string
	)
	err := s.db.QueryRowContext(ctx,
		`SELECT safe, recorded_at FROM weather_records ORDER BY recorded_at DESC, id DESC LIMIT 1`,
	).Scan(&safe, &recordedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return Record{}, ErrNoRecord
	}
	if err != nil {
		return Record{}, fmt.Errorf("querying weather records: %w", err)
	}

	ts, err := time.Parse(time.RFC3339Nano, recordedAt)
	if err != nil {
		return Record{}, fmt.Errorf("%w: recorded_at %q: %w", ErrDecode, recordedAt, err)
	}
	return Record{Safe: safe != 0, Timestamp: ts}, nil
}

// Insert stores a record.
func (s *SQLiteStore) Insert(ctx context.Context, r Record, payload string) error {
	safe := 0
	if r.Safe {
		safe = 1
	}
	var p any
	if payload != "" {
		p = payload
	}

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO weather_records (safe, recorded_at, payload) VALUES (?, ?, ?)`,
		safe, r.Timestamp.UTC().Format(recordedAtLayout), p,
	)
	if err != nil {
		return fmt.Errorf("inserting weather record: %w", err)
	}
	return nil
}
