package db

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/susu3304/pokediabot/internal/models"
)

const pokemonColumns = `user_id, pokemon_id, name, nickname, level, xp, iv_percent,
	hp_iv, attack_iv, defense_iv, spatk_iv, spdef_iv, speed_iv,
	shiny, fusionable, selected, favorite, caught`

func balanceColumn(c models.Currency) (string, error) {
	switch c {
	case models.CurrencyCash:
		return "pokecash", nil
	case models.CurrencyRedeem:
		return "redeems", nil
	}
	return "", models.ErrUnknownCurrency
}

func scanPokemon(row pgx.Row) (models.Pokemon, error) {
	var p models.Pokemon
	err := row.Scan(
		&p.OwnerID, &p.ID, &p.Name, &p.Nickname, &p.Level, &p.XP, &p.IVPercent,
		&p.IVs.HP, &p.IVs.Attack, &p.IVs.Defense, &p.IVs.SpAtk, &p.IVs.SpDef, &p.IVs.Speed,
		&p.Shiny, &p.Fusionable, &p.Selected, &p.Favorite, &p.Caught,
	)
	return p, err
}

// EnsureUser creates an empty account row if the user has none.
func (db *DB) EnsureUser(ctx context.Context, userID string) error {
	_, err := db.pool.Exec(ctx,
		`INSERT INTO users (user_id) VALUES ($1) ON CONFLICT (user_id) DO NOTHING`, userID)
	return err
}

// Balances returns the user's balances, or models.ErrAccountNotFound.
func (db *DB) Balances(ctx context.Context, userID string) (models.Balances, error) {
	var b models.Balances
	err := db.pool.QueryRow(ctx,
		`SELECT pokecash, shards, redeems FROM users WHERE user_id = $1`, userID,
	).Scan(&b.Cash, &b.Shards, &b.Redeems)
	if errors.Is(err, pgx.ErrNoRows) {
		return b, models.ErrAccountNotFound
	}
	return b, err
}

// Pokemon returns one owned pokemon, or models.ErrPokemonNotFound.
func (db *DB) Pokemon(ctx context.Context, ownerID string, id int) (models.Pokemon, error) {
	p, err := scanPokemon(db.pool.QueryRow(ctx,
		`SELECT `+pokemonColumns+` FROM users_pokemon WHERE user_id = $1 AND pokemon_id = $2`,
		ownerID, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return p, models.ErrPokemonNotFound
	}
	return p, err
}

// ListPokemon returns every pokemon the user owns ordered by id.
func (db *DB) ListPokemon(ctx context.Context, ownerID string) ([]models.Pokemon, error) {
	rows, err := db.pool.Query(ctx,
		`SELECT `+pokemonColumns+` FROM users_pokemon WHERE user_id = $1 ORDER BY pokemon_id`,
		ownerID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []models.Pokemon
	for rows.Next() {
		p, err := scanPokemon(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

// Grant adjusts a balance by delta. A result below zero fails with models.ErrInsufficientFunds.
func (db *DB) Grant(ctx context.Context, userID string, c models.Currency, delta int64) (models.Balances, error) {
	col, err := balanceColumn(c)
	if err != nil {
		return models.Balances{}, err
	}
	var b models.Balances
	err = db.pool.QueryRow(ctx, fmt.Sprintf(`
		INSERT INTO users (user_id, %[1]s) VALUES ($1, $2)
		ON CONFLICT (user_id) DO UPDATE SET %[1]s = users.%[1]s + EXCLUDED.%[1]s
		RETURNING pokecash, shards, redeems`, col),
		userID, delta,
	).Scan(&b.Cash, &b.Shards, &b.Redeems)
	if isCheckViolation(err) {
		return b, models.ErrInsufficientFunds
	}
	return b, err
}

// TransferCurrency moves amount of c from one user to another in a single transaction.
func (db *DB) TransferCurrency(ctx context.Context, from, to string, c models.Currency, amount int64) error {
	return db.withTx(ctx, func(tx pgx.Tx) error {
		if err := lockUsers(ctx, tx, from, to); err != nil {
			return err
		}
		return transferCurrency(ctx, tx, from, to, c, amount)
	})
}

// TransferPokemon hands a pokemon to another user under the recipient's next sequential id.
// The moved pokemon loses its caught, selected and favorite flags.
func (db *DB) TransferPokemon(ctx context.Context, from, to string, id int) (int, error) {
	var newID int
	err := db.withTx(ctx, func(tx pgx.Tx) error {
		if err := lockUsers(ctx, tx, from, to); err != nil {
			return err
		}
		var err error
		newID, err = transferPokemon(ctx, tx, from, to, id)
		return err
	})
	if err != nil {
		return 0, err
	}
	return newID, nil
}

// SettleTrade applies every entry in one transaction, filling in NewID for
// pokemon. If any entry fails nothing is applied and the error is a
// *models.EntryError naming it.
func (db *DB) SettleTrade(ctx context.Context, entries []models.TradeEntry) error {
	users := make([]string, 0, 2)
	seen := make(map[string]bool)
	for _, e := range entries {
		for _, id := range []string{e.From, e.To} {
			if !seen[id] {
				seen[id] = true
				users = append(users, id)
			}
		}
	}
	return db.withTx(ctx, func(tx pgx.Tx) error {
		if err := lockUsers(ctx, tx, users...); err != nil {
			return err
		}
		for i := range entries {
			e := &entries[i]
			var err error
			if e.Currency != "" {
				err = transferCurrency(ctx, tx, e.From, e.To, e.Currency, e.Amount)
			} else {
				e.NewID, err = transferPokemon(ctx, tx, e.From, e.To, e.PokemonID)
			}
			if err != nil {
				if isSerializationError(err) {
					return err
				}
				return &models.EntryError{Index: i, Err: err}
			}
		}
		return nil
	})
}

// transferCurrency expects both rows to be locked by the caller.
func transferCurrency(ctx context.Context, tx pgx.Tx, from, to string, c models.Currency, amount int64) error {
	if amount <= 0 {
		return fmt.Errorf("transfer amount must be positive, got %d", amount)
	}
	col, err := balanceColumn(c)
	if err != nil {
		return err
	}

	var balance int64
	err = tx.QueryRow(ctx,
		fmt.Sprintf(`SELECT %s FROM users WHERE user_id = $1`, col), from,
	).Scan(&balance)
	if errors.Is(err, pgx.ErrNoRows) {
		return models.ErrInsufficientFunds
	}
	if err != nil {
		return err
	}
	if balance < amount {
		return models.ErrInsufficientFunds
	}

	if _, err := tx.Exec(ctx,
		fmt.Sprintf(`UPDATE users SET %[1]s = %[1]s - $1 WHERE user_id = $2`, col), amount, from,
	); err != nil {
		return err
	}
	_, err = tx.Exec(ctx,
		fmt.Sprintf(`UPDATE users SET %[1]s = %[1]s + $1 WHERE user_id = $2`, col), amount, to)
	return err
}

// transferPokemon expects both user rows to be locked by the caller.
func transferPokemon(ctx context.Context, tx pgx.Tx, from, to string, id int) (int, error) {
	var selected, favorite bool
	err := tx.QueryRow(ctx, `
		SELECT selected, favorite
		FROM users_pokemon
		WHERE user_id = $1 AND pokemon_id = $2
		FOR UPDATE
	`, from, id).Scan(&selected, &favorite)
	if errors.Is(err, pgx.ErrNoRows) {
		return 0, models.ErrPokemonNotFound
	}
	if err != nil {
		return 0, err
	}
	if selected || favorite {
		return 0, models.ErrPokemonGuarded
	}

	var newID int
	if err := tx.QueryRow(ctx,
		`SELECT COALESCE(MAX(pokemon_id), 0) + 1 FROM users_pokemon WHERE user_id = $1`, to,
	).Scan(&newID); err != nil {
		return 0, err
	}

	if _, err := tx.Exec(ctx, `
		UPDATE users_pokemon
		SET user_id = $1, pokemon_id = $2, caught = FALSE, selected = FALSE, favorite = FALSE
		WHERE user_id = $3 AND pokemon_id = $4
	`, to, newID, from, id); err != nil {
		return 0, err
	}
	return newID, nil
}

// lockUsers makes sure both accounts exist and row-locks them in id order.
func lockUsers(ctx context.Context, tx pgx.Tx, ids ...string) error {
	sorted := append([]string(nil), ids...)
	sort.Strings(sorted)
	for _, id := range sorted {
		if _, err := tx.Exec(ctx,
			`INSERT INTO users (user_id) VALUES ($1) ON CONFLICT (user_id) DO NOTHING`, id,
		); err != nil {
			return err
		}
	}
	rows, err := tx.Query(ctx,
		`SELECT user_id FROM users WHERE user_id = ANY($1) ORDER BY user_id FOR UPDATE`, sorted)
	if err != nil {
		return err
	}
	rows.Close()
	return rows.Err()
}

func isCheckViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23514"
}
