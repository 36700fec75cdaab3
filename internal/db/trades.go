package db

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/susu3304/pokediabot/internal/models"
)

// RecordTrade stores a finalized trade.
func (db *DB) RecordTrade(ctx context.Context, rec models.TradeRecord) error {
	delivered, err := json.Marshal(nonNil(rec.Delivered))
	if err != nil {
		return fmt.Errorf("encode delivered: %w", err)
	}
	lost, err := json.Marshal(nonNil(rec.Lost))
	if err != nil {
		return fmt.Errorf("encode lost: %w", err)
	}
	_, err = db.pool.Exec(ctx,
		`INSERT INTO trade_history (id, user_a, user_b, mode, aborted, delivered, lost, finalized_at)
         VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		rec.ID, rec.UserA, rec.UserB, rec.Mode, rec.Aborted, delivered, lost, rec.FinalizedAt,
	)
	return err
}

// ListTrades returns the user's most recent trades, newest first.
func (db *DB) ListTrades(ctx context.Context, userID string, limit int) ([]models.TradeRecord, error) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	rows, err := db.pool.Query(ctx,
		`SELECT id, user_a, user_b, mode, aborted, delivered, lost, finalized_at
         FROM trade_history
         WHERE user_a = $1 OR user_b = $1
         ORDER BY finalized_at DESC
         LIMIT $2`,
		userID, limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []models.TradeRecord
	for rows.Next() {
		var rec models.TradeRecord
		var delivered, lost []byte
		if err := rows.Scan(&rec.ID, &rec.UserA, &rec.UserB, &rec.Mode, &rec.Aborted,
			&delivered, &lost, &rec.FinalizedAt); err != nil {
			return nil, err
		}
		if err := json.Unmarshal(delivered, &rec.Delivered); err != nil {
			return nil, fmt.Errorf("decode delivered: %w", err)
		}
		if err := json.Unmarshal(lost, &rec.Lost); err != nil {
			return nil, fmt.Errorf("decode lost: %w", err)
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

func nonNil(entries []models.TradeEntry) []models.TradeEntry {
	if entries == nil {
		return []models.TradeEntry{}
	}
	return entries
}
