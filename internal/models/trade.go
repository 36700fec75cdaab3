package models

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// TradeRecord is the persisted outcome of a finalized trade.
type TradeRecord struct {
	ID          uuid.UUID    `json:"id"`
	UserA       string       `json:"user_a"`
	UserB       string       `json:"user_b"`
	Delivered   []TradeEntry `json:"delivered"`
	Lost        []TradeEntry `json:"lost"`
	Mode        string       `json:"mode"`
	Aborted     bool         `json:"aborted"`
	FinalizedAt time.Time    `json:"finalized_at"`
}

// TradeEntry describes one line of a finalized trade.
type TradeEntry struct {
	From      string   `json:"from"`
	To        string   `json:"to"`
	Currency  Currency `json:"currency,omitempty"`
	Amount    int64    `json:"amount,omitempty"`
	PokemonID int      `json:"pokemon_id,omitempty"`
	NewID     int      `json:"new_id,omitempty"`
	Name      string   `json:"name,omitempty"`
	Reason    string   `json:"reason,omitempty"`
}

// EntryError reports which entry of a settlement batch failed. Nothing in the
// batch was applied.
type EntryError struct {
	Index int
	Err   error
}

func (e *EntryError) Error() string { return fmt.Sprintf("entry %d: %v", e.Index, e.Err) }

func (e *EntryError) Unwrap() error { return e.Err }
