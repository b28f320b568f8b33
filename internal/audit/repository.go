// Package audit keeps a log of operator commands in the command_log
// table: when each arrived and what the dispatcher did with it.
package audit

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"
)

// OutcomeQueued is the outcome of a command not yet dispatched.
const OutcomeQueued = "queued"

// timeLayout is fixed width so that text order is time order.
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

// ErrNotFound is returned when resolving an unknown command.
var ErrNotFound = errors.New("audit: command not found")

// Entry is one command in the log.
type Entry struct {
	ID         string          `json:"id"`
	Kind       string          `json:"kind"`
	Payload    json.RawMessage `json:"payload"`
	ReceivedAt time.Time       `json:"received_at"`
	HandledAt  *time.Time      `json:"handled_at,omitempty"`
	Outcome    string          `json:"outcome"`
	Error      string          `json:"error,omitempty"`
}

// Filter controls which entries to return.
type Filter struct {
	Kind    string // optional: park, shutdown, unknown
	Outcome string // optional: queued, handled, ignored, failed
	Limit   int    // default 50, max 200
	Offset  int    // pagination offset
}

// ListResult contains a page of entries.
type ListResult struct {
	Entries []Entry `json:"entries"`
	Total   int     `json:"total"`
	Limit   int     `json:"limit"`
	Offset  int     `json:"offset"`
}

// Repository defines the command log operations.
type Repository interface {
	Create(ctx context.Context, e *Entry) error
	Resolve(ctx context.Context, id, outcome string, handlerErr error, at time.Time) error
	List(ctx context.Context, filter Filter) (*ListResult, error)
}

// SQLiteRepository stores the command log in SQLite.
type SQLiteRepository struct {
	db *sql.DB
}

// NewSQLiteRepository creates a new command log repository.
func NewSQLiteRepository(db *sql.DB) *SQLiteRepository {
	return &SQLiteRepository{db: db}
}

// Create inserts a newly received command. Outcome defaults to queued.
func (r *SQLiteRepository) Create(ctx context.Context, e *Entry) error {
	if e.ID == "" {
		return errors.New("audit: entry has no id")
	}
	if e.ReceivedAt.IsZero() {
		e.ReceivedAt = time.Now().UTC()
	}
	if e.Outcome == "" {
		e.Outcome = OutcomeQueued
	}
	payload := string(e.Payload)
	if payload == "" {
		payload = "{}"
	}

	_, err := r.db.ExecContext(ctx,
		`INSERT INTO command_log (id, kind, payload, received_at, outcome)
		 VALUES (?, ?, ?, ?, ?)`,
		e.ID, e.Kind, payload, e.ReceivedAt.UTC().Format(timeLayout), e.Outcome,
	)
	if err != nil {
		return fmt.Errorf("inserting command log entry: %w", err)
	}
	return nil
}

// Resolve records what the dispatcher did with a command.
func (r *SQLiteRepository) Resolve(ctx context.Context, id, outcome string, handlerErr error, at time.Time) error {
	var errText any
	if handlerErr != nil {
		errText = handlerErr.Error()
	}

	res, err := r.db.ExecContext(ctx,
		`UPDATE command_log SET outcome = ?, handled_at = ?, error = ? WHERE id = ?`,
		outcome, at.UTC().Format(timeLayout), errText, id,
	)
	if err != nil {
		return fmt.Errorf("updating command log entry: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("updating command log entry: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return nil
}

// List returns entries matching the filter, most recent first.
func (r *SQLiteRepository) List(ctx context.Context, filter Filter) (*ListResult, error) {
	if filter.Limit <= 0 {
		filter.Limit = 50
	}
	if filter.Limit > 200 { //nolint:mnd // max page size
		filter.Limit = 200
	}
	if filter.Offset < 0 {
		filter.Offset = 0
	}

	var conditions []string
	var args []any

	if filter.Kind != "" {
		conditions = append(conditions, "kind = ?")
		args = append(args, filter.Kind)
	}
	if filter.Outcome != "" {
		conditions = append(conditions, "outcome = ?")
		args = append(args, filter.Outcome)
	}

	where := ""
	if len(conditions) > 0 {
		where = "WHERE " + strings.Join(conditions, " AND ")
	}

	countQuery := fmt.Sprintf("SELECT COUNT(*) FROM command_log %s", where) //nolint:gosec // WHERE built from parameterised conditions, not user input
	var total int
	if err := r.db.QueryRowContext(ctx, countQuery, args...).Scan(&total); err != nil {
		return nil, fmt.Errorf("counting command log: %w", err)
	}

	query := fmt.Sprintf( //nolint:gosec // WHERE built from parameterised conditions, not user input
		"SELECT id, kind, payload, received_at, handled_at, outcome, error FROM command_log %s ORDER BY received_at DESC LIMIT ? OFFSET ?",
		where,
	)
	args = append(args, filter.Limit, filter.Offset)

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying command log: %w", err)
	}
	defer rows.Close()

	entries := []Entry{}
	for rows.Next() {
		var (
			e                     Entry
			payload, receivedAt   string
			handledAt, errMessage sql.NullString
		)
		if err := rows.Scan(&e.ID, &e.Kind, &payload, &receivedAt, &handledAt, &e.Outcome, &errMessage); err != nil {
			return nil, fmt.Errorf("scanning command log entry: %w", err)
		}
		e.Payload = json.RawMessage(payload)

		if e.ReceivedAt, err = time.Parse(time.RFC3339Nano, receivedAt); err != nil {
			return nil, fmt.Errorf("parsing received_at %q: %w", receivedAt, err)
		}
		if handledAt.Valid {
			t, err := time.Parse(time.RFC3339Nano, handledAt.String)
			if err != nil {
				return nil, fmt.Errorf("parsing handled_at %q: %w", handledAt.String, err)
			}
			e.HandledAt = &t
		}
		if errMessage.Valid {
			e.Error = errMessage.String
		}

		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating command log: %w", err)
	}

	return &ListResult{
		Entries: entries,
		Total:   total,
		Limit:   filter.Limit,
		Offset:  filter.Offset,
	}, nil
}
