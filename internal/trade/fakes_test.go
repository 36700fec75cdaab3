package trade

import (
	"context"
	"fmt"
	"sync"

	"github.com/susu3304/pokediabot/internal/models"
)

type fakeStore struct {
	mu       sync.Mutex
	balances map[string]models.Balances
	pokemon  map[string]map[int]models.Pokemon
	orders   map[string]string
	records  []models.TradeRecord
	loadErr  error
	// failOn, when set, can fail an individual transfer.
	failOn func(e models.TradeEntry) error
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		balances: make(map[string]models.Balances),
		pokemon:  make(map[string]map[int]models.Pokemon),
		orders:   make(map[string]string),
	}
}

func (s *fakeStore) give(owner string, p models.Pokemon) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.pokemon[owner] == nil {
		s.pokemon[owner] = make(map[int]models.Pokemon)
	}
	p.OwnerID = owner
	s.pokemon[owner][p.ID] = p
}

func (s *fakeStore) setBalances(user string, b models.Balances) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.balances[user] = b
}

func (s *fakeStore) Balances(_ context.Context, userID string) (models.Balances, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.loadErr != nil {
		return models.Balances{}, s.loadErr
	}
	b, ok := s.balances[userID]
	if !ok {
		return b, models.ErrAccountNotFound
	}
	return b, nil
}

func (s *fakeStore) Pokemon(_ context.Context, ownerID string, id int) (models.Pokemon, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.loadErr != nil {
		return models.Pokemon{}, s.loadErr
	}
	p, ok := s.pokemon[ownerID][id]
	if !ok {
		return p, models.ErrPokemonNotFound
	}
	return p, nil
}

func (s *fakeStore) ListPokemon(_ context.Context, ownerID string) ([]models.Pokemon, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []models.Pokemon
	for id := 1; len(out) < len(s.pokemon[ownerID]); id++ {
		if p, ok := s.pokemon[ownerID][id]; ok {
			out = append(out, p)
		}
	}
	return out, nil
}

func (s *fakeStore) SortOrder(_ context.Context, userID string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.orders[userID], nil
}

func (s *fakeStore) TransferCurrency(_ context.Context, from, to string, c models.Currency, amount int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.transferCurrency(from, to, c, amount)
}

func (s *fakeStore) TransferPokemon(_ context.Context, from, to string, id int) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.transferPokemon(from, to, id)
}

func (s *fakeStore) SettleTrade(_ context.Context, entries []models.TradeEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	balances := make(map[string]models.Balances, len(s.balances))
	for k, v := range s.balances {
		balances[k] = v
	}
	pokemon := make(map[string]map[int]models.Pokemon, len(s.pokemon))
	for owner, mons := range s.pokemon {
		pokemon[owner] = make(map[int]models.Pokemon, len(mons))
		for id, p := range mons {
			pokemon[owner][id] = p
		}
	}

	for i := range entries {
		e := &entries[i]
		var err error
		if e.Currency != "" {
			err = s.transferCurrency(e.From, e.To, e.Currency, e.Amount)
		} else {
			e.NewID, err = s.transferPokemon(e.From, e.To, e.PokemonID)
		}
		if err != nil {
			s.balances, s.pokemon = balances, pokemon
			return &models.EntryError{Index: i, Err: err}
		}
	}
	return nil
}

func (s *fakeStore) transferCurrency(from, to string, c models.Currency, amount int64) error {
	if s.failOn != nil {
		if err := s.failOn(models.TradeEntry{From: from, To: to, Currency: c, Amount: amount}); err != nil {
			return err
		}
	}
	if amount <= 0 {
		return fmt.Errorf("transfer amount must be positive, got %d", amount)
	}
	fb, tb := s.balances[from], s.balances[to]
	switch c {
	case models.CurrencyCash:
		if fb.Cash < amount {
			return models.ErrInsufficientFunds
		}
		fb.Cash -= amount
		tb.Cash += amount
	case models.CurrencyRedeem:
		if fb.Redeems < amount {
			return models.ErrInsufficientFunds
		}
		fb.Redeems -= amount
		tb.Redeems += amount
	default:
		return models.ErrUnknownCurrency
	}
	s.balances[from], s.balances[to] = fb, tb
	return nil
}

func (s *fakeStore) transferPokemon(from, to string, id int) (int, error) {
	if s.failOn != nil {
		if err := s.failOn(models.TradeEntry{From: from, To: to, PokemonID: id}); err != nil {
			return 0, err
		}
	}
	p, ok := s.pokemon[from][id]
	if !ok {
		return 0, models.ErrPokemonNotFound
	}
	if p.Guarded() {
		return 0, models.ErrPokemonGuarded
	}
	next := 1
	for existing := range s.pokemon[to] {
		if existing >= next {
			next = existing + 1
		}
	}
	delete(s.pokemon[from], id)
	if s.pokemon[to] == nil {
		s.pokemon[to] = make(map[int]models.Pokemon)
	}
	p.OwnerID, p.ID, p.Caught = to, next, false
	s.pokemon[to][next] = p
	return next, nil
}

func (s *fakeStore) RecordTrade(_ context.Context, rec models.TradeRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.records = append(s.records, rec)
	return nil
}

type fakeSink struct {
	mu        sync.Mutex
	answer    bool
	block     bool
	release   chan bool
	prompted  chan Prompt
	prompts   []Prompt
	rendered  []View
	updated   []View
	discarded int
	dms       map[string]string
	dmErr     error
	seq       int
}

func newFakeSink(answer bool) *fakeSink {
	return &fakeSink{answer: answer, dms: make(map[string]string)}
}

func (s *fakeSink) Prompt(ctx context.Context, p Prompt) (bool, error) {
	s.mu.Lock()
	s.prompts = append(s.prompts, p)
	block, release, prompted, answer := s.block, s.release, s.prompted, s.answer
	s.mu.Unlock()

	if prompted != nil {
		prompted <- p
	}
	if release != nil {
		select {
		case ok := <-release:
			return ok, nil
		case <-ctx.Done():
			return false, ctx.Err()
		}
	}
	if block {
		<-ctx.Done()
		return false, ctx.Err()
	}
	return answer, nil
}

func (s *fakeSink) RenderSummary(_ context.Context, v View) (MessageRef, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.seq++
	s.rendered = append(s.rendered, v)
	return MessageRef{ChannelID: v.ChannelID, MessageID: fmt.Sprintf("m%d", s.seq)}, nil
}

func (s *fakeSink) UpdateSummary(_ context.Context, _ MessageRef, v View) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.updated = append(s.updated, v)
	return nil
}

func (s *fakeSink) DiscardSummary(context.Context, MessageRef) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.discarded++
	return nil
}

func (s *fakeSink) DirectMessage(_ context.Context, userID, text string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.dmErr != nil {
		return s.dmErr
	}
	s.dms[userID] = text
	return nil
}

func (s *fakeSink) lastRendered() View {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.rendered[len(s.rendered)-1]
}

type fakeArchive struct {
	mu   sync.Mutex
	recs []models.TradeRecord
}

func (a *fakeArchive) Append(rec models.TradeRecord) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.recs = append(a.recs, rec)
	return nil
}
