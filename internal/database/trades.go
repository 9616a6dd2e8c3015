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
	"github.com/trogers1052/trade-journal/internal/storage"
)

const tradeColumns = `
	id, strategy_id, name, side, entry_price, exit_price, stop_loss, target_price,
	shares, charges, entry_date, exit_date, day, trade_time, duration,
	screenshots, mistakes, emojis, entry_rules, exit_rules, external_id,
	capital, gross_pnl, net_pnl, percent_pnl, roi, created_at, updated_at`

func scanTrade(row rowScanner) (*models.Trade, error) {
	var t models.Trade
	var entryDate, exitDate sql.NullTime
	var externalID sql.NullString
	var screenshots, mistakes, emojis, entryRules, exitRules pq.StringArray

	err := row.Scan(
		&t.ID, &t.StrategyID, &t.Name, &t.Side, &t.Entry, &t.Exit, &t.StopLoss, &t.Target,
		&t.Shares, &t.Charges, &entryDate, &exitDate, &t.Day, &t.Time, &t.Duration,
		&screenshots, &mistakes, &emojis, &entryRules, &exitRules, &externalID,
		&t.Capital, &t.GrossPnl, &t.NetPnl, &t.PercentPnl, &t.ROI, &t.CreatedAt, &t.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	if entryDate.Valid {
		d := models.NewDate(entryDate.Time)
		t.EntryDate = &d
	}
	if exitDate.Valid {
		d := models.NewDate(exitDate.Time)
		t.ExitDate = &d
	}
	t.ExternalID = externalID.String
	t.Screenshots = nonNil(screenshots)
	t.Mistakes = nonNil(mistakes)
	t.Emojis = nonNil(emojis)
	t.EntryRules = nonNil(entryRules)
	t.ExitRules = nonNil(exitRules)
	return &t, nil
}

func nonNil(a pq.StringArray) []string {
	if a == nil {
		return []string{}
	}
	return []string(a)
}

func stringArray(s []string) interface{} {
	if s == nil {
		s = []string{}
	}
	return pq.Array(s)
}

func nullDate(d *models.Date) sql.NullTime {
	if d == nil || d.IsZero() {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: d.Time, Valid: true}
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

func queryTrades(ctx context.Context, q querier, query string, args ...interface{}) ([]*models.Trade, error) {
	rows, err := q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query trades: %w", err)
	}
	defer rows.Close()

	trades := []*models.Trade{}
	for rows.Next() {
		t, err := scanTrade(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan trade: %w", err)
		}
		trades = append(trades, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate trades: %w", err)
	}
	return trades, nil
}

func getTrade(ctx context.Context, q querier, id string) (*models.Trade, error) {
	if !validID(id) {
		return nil, notFound("trade", id)
	}
	query := `SELECT ` + tradeColumns + ` FROM trades WHERE id = $1`

	t, err := scanTrade(q.QueryRowContext(ctx, query, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, notFound("trade", id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get trade: %w", err)
	}
	return t, nil
}

// GetTrade retrieves a trade by ID
func (db *DB) GetTrade(ctx context.Context, id string) (*models.Trade, error) {
	return getTrade(ctx, db.conn, id)
}

// ListTradesByStrategy retrieves the trades of a strategy in creation order
func (db *DB) ListTradesByStrategy(ctx context.Context, strategyID string) ([]*models.Trade, error) {
	if !validID(strategyID) {
		return []*models.Trade{}, nil
	}
	query := `SELECT ` + tradeColumns + ` FROM trades WHERE strategy_id = $1 ORDER BY created_at, id`
	return queryTrades(ctx, db.conn, query, strategyID)
}

// ListTradesByDateRange retrieves trades with entry_date in [start, end]
func (db *DB) ListTradesByDateRange(ctx context.Context, start, end time.Time) ([]*models.Trade, error) {
	query := `
		SELECT ` + tradeColumns + ` FROM trades
		WHERE entry_date >= $1 AND entry_date <= $2
		ORDER BY created_at, id
	`
	return queryTrades(ctx, db.conn, query,
		models.NewDate(start).Time, models.NewDate(end).Time)
}

// TradeExistsByExternalID reports whether an imported trade was already stored
func (db *DB) TradeExistsByExternalID(ctx context.Context, externalID string) (bool, error) {
	var exists bool
	err := db.conn.QueryRowContext(ctx,
		`SELECT EXISTS(SELECT 1 FROM trades WHERE external_id = $1)`, externalID,
	).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("failed to check external id: %w", err)
	}
	return exists, nil
}

// GetTrade retrieves a trade inside the transaction
func (t *Tx) GetTrade(ctx context.Context, id string) (*models.Trade, error) {
	return getTrade(ctx, t.tx, id)
}

// CreateTrade inserts a trade, assigning ID and timestamps
func (t *Tx) CreateTrade(ctx context.Context, trade *models.Trade) error {
	if trade.ID == "" {
		trade.ID = uuid.NewString()
	}
	now := time.Now().UTC()

	query := `
		INSERT INTO trades (` + tradeColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14,
			$15, $16, $17, $18, $19, $20, $21, $22, $23, $24, $25, $26, $27, $28)
	`
	_, err := t.tx.ExecContext(ctx, query,
		trade.ID, trade.StrategyID, trade.Name, trade.Side, trade.Entry,
		trade.Exit, trade.StopLoss, trade.Target, trade.Shares, trade.Charges,
		nullDate(trade.EntryDate), nullDate(trade.ExitDate), trade.Day, trade.Time, trade.Duration,
		stringArray(trade.Screenshots), stringArray(trade.Mistakes), stringArray(trade.Emojis),
		stringArray(trade.EntryRules), stringArray(trade.ExitRules), nullString(trade.ExternalID),
		trade.Capital, trade.GrossPnl, trade.NetPnl, trade.PercentPnl, trade.ROI, now, now,
	)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == "23505" {
			return fmt.Errorf("trade external id %s: %w", trade.ExternalID, storage.ErrDuplicateKey)
		}
		return fmt.Errorf("failed to create trade: %w", err)
	}
	trade.CreatedAt = now
	trade.UpdatedAt = now
	return nil
}

// UpdateTrade replaces every stored field of the trade except created_at
func (t *Tx) UpdateTrade(ctx context.Context, trade *models.Trade) error {
	if !validID(trade.ID) {
		return notFound("trade", trade.ID)
	}
	query := `
		UPDATE trades SET
			strategy_id = $2, name = $3, side = $4, entry_price = $5, exit_price = $6,
			stop_loss = $7, target_price = $8, shares = $9, charges = $10,
			entry_date = $11, exit_date = $12, day = $13, trade_time = $14, duration = $15,
			screenshots = $16, mistakes = $17, emojis = $18, entry_rules = $19, exit_rules = $20,
			capital = $21, gross_pnl = $22, net_pnl = $23, percent_pnl = $24, roi = $25,
			updated_at = $26
		WHERE id = $1
		RETURNING created_at
	`
	now := time.Now().UTC()
	err := t.tx.QueryRowContext(ctx, query,
		trade.ID, trade.StrategyID, trade.Name, trade.Side, trade.Entry,
		trade.Exit, trade.StopLoss, trade.Target, trade.Shares, trade.Charges,
		nullDate(trade.EntryDate), nullDate(trade.ExitDate), trade.Day, trade.Time, trade.Duration,
		stringArray(trade.Screenshots), stringArray(trade.Mistakes), stringArray(trade.Emojis),
		stringArray(trade.EntryRules), stringArray(trade.ExitRules),
		trade.Capital, trade.GrossPnl, trade.NetPnl, trade.PercentPnl, trade.ROI, now,
	).Scan(&trade.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return notFound("trade", trade.ID)
	}
	if err != nil {
		return fmt.Errorf("failed to update trade: %w", err)
	}
	trade.UpdatedAt = now
	return nil
}

// DeleteTrade removes a trade and returns the strategy it belonged to
func (t *Tx) DeleteTrade(ctx context.Context, id string) (string, error) {
	if !validID(id) {
		return "", notFound("trade", id)
	}
	var strategyID string
	err := t.tx.QueryRowContext(ctx,
		`DELETE FROM trades WHERE id = $1 RETURNING strategy_id`, id,
	).Scan(&strategyID)
	if errors.Is(err, sql.ErrNoRows) {
		return "", notFound("trade", id)
	}
	if err != nil {
		return "", fmt.Errorf("failed to delete trade: %w", err)
	}
	return strategyID, nil
}

// DeleteTradesByStrategy removes every trade of a strategy
func (t *Tx) DeleteTradesByStrategy(ctx context.Context, strategyID string) (int64, error) {
	result, err := t.tx.ExecContext(ctx, `DELETE FROM trades WHERE strategy_id = $1`, strategyID)
	if err != nil {
		return 0, fmt.Errorf("failed to delete trades: %w", err)
	}
	return result.RowsAffected()
}

// TradeResults returns the stored net P&L of each trade of a strategy
func (t *Tx) TradeResults(ctx context.Context, strategyID string) ([]aggregate.TradeResult, error) {
	rows, err := t.tx.QueryContext(ctx,
		`SELECT id, net_pnl FROM trades WHERE strategy_id = $1 ORDER BY created_at, id`, strategyID)
	if err != nil {
		return nil, fmt.Errorf("failed to query trade results: %w", err)
	}
	defer rows.Close()

	results := []aggregate.TradeResult{}
	for rows.Next() {
		var r aggregate.TradeResult
		if err := rows.Scan(&r.TradeID, &r.NetPnl); err != nil {
			return nil, fmt.Errorf("failed to scan trade result: %w", err)
		}
		results = append(results, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate trade results: %w", err)
	}
	return results, nil
}
