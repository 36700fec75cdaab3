package db

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
)

// SortOrder returns the user's inventory order, or "" when none is set.
func (db *DB) SortOrder(ctx context.Context, userID string) (string, error) {
	var order string
	err := db.pool.QueryRow(ctx,
		`SELECT sort_order FROM user_preferences WHERE user_id = $1`, userID,
	).Scan(&order)
	if errors.Is(err, pgx.ErrNoRows) {
		return "", nil
	}
	return order, err
}

func (db *DB) SetSortOrder(ctx context.Context, userID, order string) error {
	_, err := db.pool.Exec(ctx,
		`INSERT INTO user_preferences (user_id, sort_order) VALUES ($1, $2)
         ON CONFLICT (user_id) DO UPDATE SET sort_order = EXCLUDED.sort_order`,
		userID, order,
	)
	return err
}
