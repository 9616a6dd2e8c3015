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

const premarketColumns = `id, day, date, expected_movement, note, created_at, updated_at`

func scanPremarket(row rowScanner) (*models.Premarket, error) {
	var p models.Premarket
	err := row.Scan(&p.ID, &p.Day, &p.Date, &p.ExpectedMovement, &p.Note, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &p, nil
}

// CreatePremarket inserts a premarket note
func (db *DB) CreatePremarket(ctx context.Context, p *models.Premarket) error {
	if p.ID == "" {
		p.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	query := `INSERT INTO premarkets (` + premarketColumns + `) VALUES ($1, $2, $3, $4, $5, $6, $7)`

	_, err := db.conn.ExecContext(ctx, query, p.ID, p.Day, p.Date, p.ExpectedMovement, p.Note, now, now)
	if err != nil {
		return fmt.Errorf("failed to create premarket: %w", err)
	}
	p.CreatedAt = now
	p.UpdatedAt = now
	return nil
}

// GetPremarket retrieves a premarket note by ID
func (db *DB) GetPremarket(ctx context.Context, id string) (*models.Premarket, error) {
	if !validID(id) {
		return nil, notFound("premarket", id)
	}
	query := `SELECT ` + premarketColumns + ` FROM premarkets WHERE id = $1`

	p, err := scanPremarket(db.conn.QueryRowContext(ctx, query, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, notFound("premarket", id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get premarket: %w", err)
	}
	return p, nil
}

// ListPremarkets retrieves all premarket notes, newest first
func (db *DB) ListPremarkets(ctx context.Context) ([]*models.Premarket, error) {
	query := `SELECT ` + premarketColumns + ` FROM premarkets ORDER BY created_at DESC, id DESC`

	rows, err := db.conn.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to query premarkets: %w", err)
	}
	defer rows.Close()

	premarkets := []*models.Premarket{}
	for rows.Next() {
		p, err := scanPremarket(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan premarket: %w", err)
		}
		premarkets = append(premarkets, p)
	}
	return premarkets, rows.Err()
}

// UpdatePremarket updates the editable fields of a premarket note
func (db *DB) UpdatePremarket(ctx context.Context, p *models.Premarket) error {
	if !validID(p.ID) {
		return notFound("premarket", p.ID)
	}
	query := `
		UPDATE premarkets SET day = $2, date = $3, expected_movement = $4, note = $5, updated_at = $6
		WHERE id = $1
		RETURNING ` + premarketColumns

	updated, err := scanPremarket(db.conn.QueryRowContext(ctx, query,
		p.ID, p.Day, p.Date, p.ExpectedMovement, p.Note, time.Now().UTC()))
	if errors.Is(err, sql.ErrNoRows) {
		return notFound("premarket", p.ID)
	}
	if err != nil {
		return fmt.Errorf("failed to update premarket: %w", err)
	}
	*p = *updated
	return nil
}

// DeletePremarket removes a premarket note
func (db *DB) DeletePremarket(ctx context.Context, id string) error {
	if !validID(id) {
		return notFound("premarket", id)
	}
	result, err := db.conn.ExecContext(ctx, `DELETE FROM premarkets WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete premarket: %w", err)
	}
	if n, _ := result.RowsAffected(); n == 0 {
		return notFound("premarket", id)
	}
	return nil
}
