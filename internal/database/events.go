package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/trogers1052/trade-journal/internal/models"
)

const eventColumns = `id, name, date, created_at, updated_at`

func scanEvent(row rowScanner) (*models.Event, error) {
	var e models.Event
	var date time.Time
	if err := row.Scan(&e.ID, &e.Name, &date, &e.CreatedAt, &e.UpdatedAt); err != nil {
		return nil, err
	}
	e.Date = models.NewDate(date)
	return &e, nil
}

// CreateEvent inserts a calendar event
func (db *DB) CreateEvent(ctx context.Context, e *models.Event) error {
	if e.ID == "" {
		e.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	query := `INSERT INTO events (` + eventColumns + `) VALUES ($1, $2, $3, $4, $5)`

	if _, err := db.conn.ExecContext(ctx, query, e.ID, e.Name, e.Date.Time, now, now); err != nil {
		return fmt.Errorf("failed to create event: %w", err)
	}
	e.CreatedAt = now
	e.UpdatedAt = now
	return nil
}

// GetEvent retrieves an event by ID
func (db *DB) GetEvent(ctx context.Context, id string) (*models.Event, error) {
	if !validID(id) {
		return nil, notFound("event", id)
	}
	query := `SELECT ` + eventColumns + ` FROM events WHERE id = $1`

	e, err := scanEvent(db.conn.QueryRowContext(ctx, query, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, notFound("event", id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get event: %w", err)
	}
	return e, nil
}

// ListEvents retrieves all events ordered by date
func (db *DB) ListEvents(ctx context.Context) ([]*models.Event, error) {
	query := `SELECT ` + eventColumns + ` FROM events ORDER BY date, created_at`

	rows, err := db.conn.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to query events: %w", err)
	}
	defer rows.Close()

	events := []*models.Event{}
	for rows.Next() {
		e, err := scanEvent(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan event: %w", err)
		}
		events = append(events, e)
	}
	return events, rows.Err()
}

// UpdateEvent updates name and date of an event
func (db *DB) UpdateEvent(ctx context.Context, e *models.Event) error {
	if !validID(e.ID) {
		return notFound("event", e.ID)
	}
	query := `
		UPDATE events SET name = $2, date = $3, updated_at = $4
		WHERE id = $1
		RETURNING ` + eventColumns

	updated, err := scanEvent(db.conn.QueryRowContext(ctx, query, e.ID, e.Name, e.Date.Time, time.Now().UTC()))
	if errors.Is(err, sql.ErrNoRows) {
		return notFound("event", e.ID)
	}
	if err != nil {
		return fmt.Errorf("failed to update event: %w", err)
	}
	*e = *updated
	return nil
}

// DeleteEvent removes an event
func (db *DB) DeleteEvent(ctx context.Context, id string) error {
	if !validID(id) {
		return notFound("event", id)
	}
	result, err := db.conn.ExecContext(ctx, `DELETE FROM events WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete event: %w", err)
	}
	if n, _ := result.RowsAffected(); n == 0 {
		return notFound("event", id)
	}
	return nil
}
