package models

import (
	"errors"
	"strings"
)

var (
	ErrAccountNotFound   = errors.New("account not found")
	ErrPokemonNotFound   = errors.New("pokemon not found")
	ErrPokemonGuarded    = errors.New("pokemon is selected or favorited")
	ErrInsufficientFunds = errors.New("insufficient funds")
	ErrUnknownCurrency   = errors.New("unknown currency")
)

// Currency is one of the balances a user can put into a trade.
type Currency string

const (
	CurrencyCash   Currency = "cash"
	CurrencyRedeem Currency = "redeem"
)

// ParseCurrency accepts the keywords players type in chat.
func ParseCurrency(s string) (Currency, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "cash", "pokecash", "pc":
		return CurrencyCash, nil
	case "redeem", "redeems", "redeem(s)":
		return CurrencyRedeem, nil
	}
	return "", ErrUnknownCurrency
}

type Balances struct {
	Cash    int64 `json:"cash"`
	Shards  int64 `json:"shards"`
	Redeems int64 `json:"redeems"`
}

// Of returns the balance held in the given currency.
func (b Balances) Of(c Currency) int64 {
	switch c {
	case CurrencyCash:
		return b.Cash
	case CurrencyRedeem:
		return b.Redeems
	}
	return 0
}

type Stat string

const (
	StatHP      Stat = "hp"
	StatAttack  Stat = "attack"
	StatDefense Stat = "defense"
	StatSpAtk   Stat = "spatk"
	StatSpDef   Stat = "spdef"
	StatSpeed   Stat = "speed"
)

type IVs struct {
	HP      int `json:"hp"`
	Attack  int `json:"attack"`
	Defense int `json:"defense"`
	SpAtk   int `json:"spatk"`
	SpDef   int `json:"spdef"`
	Speed   int `json:"speed"`
}

func (iv IVs) Get(s Stat) (int, bool) {
	switch s {
	case StatHP:
		return iv.HP, true
	case StatAttack:
		return iv.Attack, true
	case StatDefense:
		return iv.Defense, true
	case StatSpAtk:
		return iv.SpAtk, true
	case StatSpDef:
		return iv.SpDef, true
	case StatSpeed:
		return iv.Speed, true
	}
	return 0, false
}

// Pokemon is one owned creature. ID is sequential per owner.
type Pokemon struct {
	OwnerID    string  `json:"owner_id"`
	ID         int     `json:"id"`
	Name       string  `json:"name"`
	Nickname   string  `json:"nickname,omitempty"`
	Level      int     `json:"level"`
	XP         int     `json:"xp"`
	IVPercent  float64 `json:"iv_percent"`
	IVs        IVs     `json:"ivs"`
	Shiny      bool    `json:"shiny"`
	Fusionable bool    `json:"fusionable"`
	Selected   bool    `json:"selected"`
	Favorite   bool    `json:"favorite"`
	Caught     bool    `json:"caught"`
}

// Guarded reports whether the pokemon may not leave its owner's box.
func (p Pokemon) Guarded() bool {
	return p.Selected || p.Favorite
}
