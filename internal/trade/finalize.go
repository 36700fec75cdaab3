package trade

import (
	"context"
	"errors"

	"github.com/susu3304/pokediabot/internal/models"
)

// finalize settles both sides in order, A's lines first. Callers hold sess.mu.
func (m *Manager) finalize(ctx context.Context, sess *Session) Receipt {
	r := Receipt{ID: sess.ID, Parties: sess.parties, Mode: m.opts.Mode}

	if m.opts.Mode == FinalizeStrict {
		m.settleStrict(ctx, sess, &r)
	} else {
		for i, from := range sess.parties {
			to := sess.parties[1-i]
			for _, l := range sess.offers[from.ID] {
				e := entryFor(l, from.ID, to.ID)
				if err := m.deliver(ctx, l, &e); err != nil {
					e.Reason = lostReason(err)
					r.Lost = append(r.Lost, e)
					m.log.Warn("trade line lost",
						"trade_id", sess.ID, "from", from.ID, "to", to.ID,
						"line", l.Describe(), "error", err)
					continue
				}
				r.Delivered = append(r.Delivered, e)
			}
		}
	}

	r.FinalizedAt = m.opts.Now().UTC()
	m.log.Info("trade finalized",
		"trade_id", sess.ID, "mode", r.Mode, "aborted", r.Aborted,
		"delivered", len(r.Delivered), "lost", len(r.Lost))
	m.settle(ctx, r)
	return r
}

// settleStrict delivers every line in one ledger transaction or none at all.
func (m *Manager) settleStrict(ctx context.Context, sess *Session, r *Receipt) {
	if stale := m.validate(ctx, sess); len(stale) > 0 {
		r.Aborted = true
		r.Lost = stale
		return
	}

	var entries []models.TradeEntry
	for i, from := range sess.parties {
		to := sess.parties[1-i]
		for _, l := range sess.offers[from.ID] {
			entries = append(entries, entryFor(l, from.ID, to.ID))
		}
	}
	if len(entries) == 0 {
		return
	}

	err := m.store.SettleTrade(ctx, entries)
	if err == nil {
		r.Delivered = entries
		return
	}
	m.log.Warn("strict settlement failed", "trade_id", sess.ID, "error", err)
	r.Aborted = true
	var ee *models.EntryError
	if errors.As(err, &ee) && ee.Index >= 0 && ee.Index < len(entries) {
		e := entries[ee.Index]
		e.NewID = 0
		e.Reason = lostReason(ee.Err)
		r.Lost = []models.TradeEntry{e}
		return
	}
	for _, e := range entries {
		e.NewID = 0
		e.Reason = lostReason(err)
		r.Lost = append(r.Lost, e)
	}
}

func (m *Manager) deliver(ctx context.Context, l Line, e *models.TradeEntry) error {
	if l.Kind == LineCurrency {
		return m.store.TransferCurrency(ctx, e.From, e.To, l.Currency, l.Amount)
	}
	newID, err := m.store.TransferPokemon(ctx, e.From, e.To, l.Pokemon.ID)
	if err != nil {
		return err
	}
	e.NewID = newID
	return nil
}

// validate returns every line that could no longer be delivered right now.
func (m *Manager) validate(ctx context.Context, sess *Session) []models.TradeEntry {
	var stale []models.TradeEntry
	for i, from := range sess.parties {
		to := sess.parties[1-i]
		var (
			bal    models.Balances
			balErr error
			loaded bool
		)
		for _, l := range sess.offers[from.ID] {
			var err error
			switch l.Kind {
			case LineCurrency:
				if !loaded {
					bal, balErr = m.store.Balances(ctx, from.ID)
					if errors.Is(balErr, models.ErrAccountNotFound) {
						balErr = nil
					}
					loaded = true
				}
				err = balErr
				if err == nil && bal.Of(l.Currency) < l.Amount {
					err = models.ErrInsufficientFunds
				}
			case LinePokemon:
				var p models.Pokemon
				p, err = m.store.Pokemon(ctx, from.ID, l.Pokemon.ID)
				if err == nil && p.Guarded() {
					err = models.ErrPokemonGuarded
				}
			}
			if err != nil {
				e := entryFor(l, from.ID, to.ID)
				e.Reason = lostReason(err)
				stale = append(stale, e)
			}
		}
	}
	return stale
}

// settle records the receipt and sends each side a copy. Failures here never
// affect the outcome.
func (m *Manager) settle(ctx context.Context, r Receipt) {
	rec := r.Record()
	if err := m.store.RecordTrade(ctx, rec); err != nil {
		m.log.Error("record trade", "trade_id", r.ID, "error", err)
	}
	if m.opts.Archive != nil {
		if err := m.opts.Archive.Append(rec); err != nil {
			m.log.Error("archive trade", "trade_id", r.ID, "error", err)
		}
	}
	for _, p := range r.Parties {
		if err := m.sink.DirectMessage(ctx, p.ID, r.Summary(p.ID)); err != nil {
			m.log.Debug("trade receipt not delivered", "user_id", p.ID, "error", err)
		}
	}
}

func lostReason(err error) string {
	switch {
	case errors.Is(err, models.ErrInsufficientFunds):
		return "insufficient funds"
	case errors.Is(err, models.ErrPokemonNotFound):
		return "no longer owned"
	case errors.Is(err, models.ErrPokemonGuarded):
		return "selected or favorite"
	}
	return "transfer failed"
}
