package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"github.com/trogers1052/trade-journal/internal/aggregate"
	"github.com/trogers1052/trade-journal/internal/models"
)

const strategyColumns = `
	id, name, entry_rules, exit_rules, win_rate, net_pnl, max_win, max_loss,
	number_of_trades, trade_ids, created_at, updated_at`

func scanStrategy(row rowScanner) (*models.Strategy, error) {
	var s models.Strategy
	var entryRules, exitRules, tradeIDs pq.StringArray

	err := row.Scan(
		&s.ID, &s.Name, &entryRules, &exitRules, &s.WinRate, &s.NetPnl, &s.MaxWin, &s.MaxLoss,
		&s.NumberOfTrades, &tradeIDs, &s.CreatedAt, &s.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	s.EntryRules = []string(entryRules)
	s.ExitRules = []string(exitRules)
	s.Trades = []string(tradeIDs)
	if s.EntryRules == nil {
		s.EntryRules = []string{}
	}
	if s.ExitRules == nil {
		s.ExitRules = []string{}
	}
	if s.Trades == nil {
		s.Trades = []string{}
	}
	return &s, nil
}

func getStrategy(ctx context.Context, q querier, id string, forUpdate bool) (*models.Strategy, error) {
	if !validID(id) {
		return nil, notFound("strategy", id)
	}
	query := `SELECT ` + strategyColumns + ` FROM strategies WHERE id = $1`
	if forUpdate {
		query += ` FOR UPDATE`
	}

	s, err := scanStrategy(q.QueryRowContext(ctx, query, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, notFound("strategy", id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get strategy: %w", err)
	}
	return s, nil
}

// GetStrategy retrieves a strategy by ID
func (db *DB) GetStrategy(ctx context.Context, id string) (*models.Strategy, error) {
	return getStrategy(ctx, db.conn, id, false)
}

// ListStrategies retrieves all strategies, newest first
func (db *DB) ListStrategies(ctx context.Context) ([]*models.Strategy, error) {
	query := `SELECT ` + strategyColumns + ` FROM strategies ORDER BY created_at DESC, id DESC`

	rows, err := db.conn.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to query strategies: %w", err)
	}
	defer rows.Close()

	strategies := []*models.Strategy{}
	for rows.Next() {
		s, err := scanStrategy(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan strategy: %w", err)
		}
		strategies = append(strategies, s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate strategies: %w", err)
	}
	return strategies, nil
}

// LockStrategy loads the strategy row with FOR UPDATE
func (t *Tx) LockStrategy(ctx context.Context, id string) (*models.Strategy, error) {
	return getStrategy(ctx, t.tx, id, true)
}

// CreateStrategy inserts a new strategy with zeroed statistics
func (t *Tx) CreateStrategy(ctx context.Context, s *models.Strategy) error {
	if s.ID == "" {
		s.ID = uuid.NewString()
	}
	if s.EntryRules == nil {
		s.EntryRules = []string{}
	}
	if s.ExitRules == nil {
		s.ExitRules = []string{}
	}
	if s.Trades == nil {
		s.Trades = []string{}
	}

	query := `
		INSERT INTO strategies (id, name, entry_rules, exit_rules, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`
	now := time.Now().UTC()
	_, err := t.tx.ExecContext(ctx, query,
		s.ID, s.Name, pq.Array(s.EntryRules), pq.Array(s.ExitRules), now, now,
	)
	if err != nil {
		return fmt.Errorf("failed to create strategy: %w", err)
	}
	s.CreatedAt = now
	s.UpdatedAt = now
	return nil
}

// UpdateStrategyDefinition updates the user-editable fields and refreshes s
func (t *Tx) UpdateStrategyDefinition(ctx context.Context, s *models.Strategy) error {
	if !validID(s.ID) {
		return notFound("strategy", s.ID)
	}
	query := `
		UPDATE strategies SET name = $2, entry_rules = $3, exit_rules = $4, updated_at = $5
		WHERE id = $1
		RETURNING ` + strategyColumns

	updated, err := scanStrategy(t.tx.QueryRowContext(ctx, query,
		s.ID, s.Name, pq.Array(s.EntryRules), pq.Array(s.ExitRules), time.Now().UTC(),
	))
	if errors.Is(err, sql.ErrNoRows) {
		return notFound("strategy", s.ID)
	}
	if err != nil {
		return fmt.Errorf("failed to update strategy: %w", err)
	}
	*s = *updated
	return nil
}

// DeleteStrategy removes a strategy
func (t *Tx) DeleteStrategy(ctx context.Context, id string) error {
	if !validID(id) {
		return notFound("strategy", id)
	}
	result, err := t.tx.ExecContext(ctx, `DELETE FROM strategies WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete strategy: %w", err)
	}

	rowsAffected, _ := result.RowsAffected()
	if rowsAffected == 0 {
		return notFound("strategy", id)
	}
	return nil
}

// SaveStrategyStats writes the aggregator output onto the strategy
func (t *Tx) SaveStrategyStats(ctx context.Context, strategyID string, stats aggregate.Stats) error {
	query := `
		UPDATE strategies SET
			win_rate = $2, net_pnl = $3, max_win = $4, max_loss = $5,
			number_of_trades = $6, trade_ids = $7, updated_at = $8
		WHERE id = $1
	`
	tradeIDs := stats.TradeIDs
	if tradeIDs == nil {
		tradeIDs = []string{}
	}
	result, err := t.tx.ExecContext(ctx, query,
		strategyID, stats.WinRate, stats.NetPnl, stats.MaxWin, stats.MaxLoss,
		stats.NumberOfTrades, pq.Array(tradeIDs), time.Now().UTC(),
	)
	if err != nil {
		return fmt.Errorf("failed to save strategy stats: %w", err)
	}

	rowsAffected, _ := result.RowsAffected()
	if rowsAffected == 0 {
		return notFound("strategy", strategyID)
	}
	return nil
}
