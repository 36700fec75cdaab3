package trade

import (
	"errors"
	"sort"
	"sync"

	"github.com/google/uuid"
	"github.com/susu3304/pokediabot/internal/models"
)

var (
	ErrSelfTrade       = errors.New("you cannot trade with yourself")
	ErrBotTarget       = errors.New("you cannot trade with a bot")
	ErrPendingRequest  = errors.New("one of you already has a pending trade request")
	ErrAlreadyTrading  = errors.New("one of you is already in an active trade")
	ErrNotInTrade      = errors.New("you are not in an active trade")
	ErrNotParticipant  = errors.New("you are not part of this trade")
	ErrDeclined        = errors.New("declined")
	ErrTimedOut        = errors.New("timed out")
	ErrNothingMatched  = errors.New("no pokemon matched the filters")
	ErrItemNotOffered  = errors.New("item or exact amount is not on your side of the trade")
	ErrAlreadyOffered  = errors.New("already in the trade")
	ErrInvalidID       = errors.New("invalid pokemon id")
	ErrInvalidAmount   = errors.New("amount must be a positive whole number")
	ErrEmptyItemSpec   = errors.New("nothing to add or remove")
	ErrSessionNotFound = errors.New("trade session not found")
)

// FinalizeMode selects how stale lines are handled when both sides confirm.
type FinalizeMode string

const (
	// FinalizeBestEffort delivers every line that is still valid and reports the rest.
	FinalizeBestEffort FinalizeMode = "best_effort"
	// FinalizeStrict re-validates every line first and aborts the trade if any is stale.
	FinalizeStrict FinalizeMode = "strict"
)

// Participant identifies one side of a trade plus what is needed to render it.
type Participant struct {
	ID        string
	Name      string
	AvatarURL string
	Bot       bool
}

type LineKind int

const (
	LineCurrency LineKind = iota
	LinePokemon
)

// Line is one promised transfer on a participant's side.
type Line struct {
	Kind     LineKind
	Currency models.Currency
	Amount   int64
	Pokemon  models.Pokemon
}

func currencyLine(c models.Currency, amount int64) Line {
	return Line{Kind: LineCurrency, Currency: c, Amount: amount}
}

func pokemonLine(p models.Pokemon) Line {
	return Line{Kind: LinePokemon, Pokemon: p}
}

// MessageRef points at a rendered summary message.
type MessageRef struct {
	ChannelID string
	MessageID string
}

func (r MessageRef) IsZero() bool { return r.MessageID == "" }

// Session is one open negotiation. All fields are guarded by mu.
type Session struct {
	mu sync.Mutex

	ID        uuid.UUID
	ChannelID string

	parties   [2]Participant
	offers    map[string][]Line
	confirmed map[string]bool
	page      int
	summary   MessageRef
	closed    bool
}

func newSession(channelID string, a, b Participant) *Session {
	return &Session{
		ID:        uuid.New(),
		ChannelID: channelID,
		parties:   [2]Participant{a, b},
		offers:    map[string][]Line{a.ID: nil, b.ID: nil},
		confirmed: map[string]bool{a.ID: false, b.ID: false},
		page:      1,
	}
}

func (s *Session) has(userID string) bool {
	return s.parties[0].ID == userID || s.parties[1].ID == userID
}

func (s *Session) participant(userID string) Participant {
	if s.parties[0].ID == userID {
		return s.parties[0]
	}
	return s.parties[1]
}

// resetConfirmations clears both flags and returns who had confirmed.
func (s *Session) resetConfirmations() []Participant {
	var reversed []Participant
	for _, p := range s.parties {
		if s.confirmed[p.ID] {
			reversed = append(reversed, p)
		}
		s.confirmed[p.ID] = false
	}
	return reversed
}

func (s *Session) bothConfirmed() bool {
	return s.confirmed[s.parties[0].ID] && s.confirmed[s.parties[1].ID]
}

func (s *Session) offered(userID string, c models.Currency) (int, int64) {
	for i, l := range s.offers[userID] {
		if l.Kind == LineCurrency && l.Currency == c {
			return i, l.Amount
		}
	}
	return -1, 0
}

func (s *Session) hasPokemon(ownerID string, id int) bool {
	for _, l := range s.offers[ownerID] {
		if l.Kind == LinePokemon && l.Pokemon.ID == id {
			return true
		}
	}
	return false
}

// pairKey is the unordered pair of participant ids.
type pairKey [2]string

func keyFor(a, b string) pairKey {
	ids := []string{a, b}
	sort.Strings(ids)
	return pairKey{ids[0], ids[1]}
}
