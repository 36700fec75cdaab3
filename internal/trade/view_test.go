package trade

import (
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/susu3304/pokediabot/internal/models"
)

func TestDescribe(t *testing.T) {
	tests := []struct {
		line Line
		want string
	}{
		{currencyLine(models.CurrencyCash, 1234567), "1,234,567 cash"},
		{currencyLine(models.CurrencyRedeem, 3), "3 redeem(s)"},
		{pokemonLine(models.Pokemon{ID: 12, Name: "Eevee", Level: 33, IVPercent: 81.456}), "12 • Eevee • Lvl 33 • 81.46%"},
		{pokemonLine(models.Pokemon{ID: 4, Name: "Mew", Level: 1, IVPercent: 100, Shiny: true, Fusionable: true}), "4 • 🧬 ✨ Mew • Lvl 1 • 100.00%"},
	}
	for _, tt := range tests {
		if got := tt.line.Describe(); got != tt.want {
			t.Errorf("Describe = %q, want %q", got, tt.want)
		}
	}
}

func TestPageCount(t *testing.T) {
	for n, want := range map[int]int{0: 1, 1: 1, 20: 1, 21: 2, 40: 2, 41: 3} {
		if got := pageCount(n); got != want {
			t.Errorf("pageCount(%d) = %d, want %d", n, got, want)
		}
	}
}

func TestViewClampsPage(t *testing.T) {
	s := newSession("chan", alice, bob)
	for i := 1; i <= 3; i++ {
		s.offers[bob.ID] = append(s.offers[bob.ID], pokemonLine(models.Pokemon{ID: i, Name: "Abra"}))
	}
	s.page = 5
	v := s.view(StatusOpen)
	if v.Page != 1 || v.Pages != 1 {
		t.Fatalf("page %d/%d, want 1/1", v.Page, v.Pages)
	}
	if v.Sides[0].Entries != nil || len(v.Sides[1].Entries) != 3 {
		t.Fatalf("unexpected sides %+v", v.Sides)
	}
}

func TestKeyForIsUnordered(t *testing.T) {
	if keyFor("1", "2") != keyFor("2", "1") {
		t.Fatalf("pair key must not depend on order")
	}
}

func TestReceiptSummary(t *testing.T) {
	r := Receipt{
		ID:      uuid.New(),
		Parties: [2]Participant{alice, bob},
		Delivered: []models.TradeEntry{
			{From: alice.ID, To: bob.ID, PokemonID: 7, NewID: 3, Name: "Eevee"},
			{From: bob.ID, To: alice.ID, Currency: models.CurrencyCash, Amount: 2500},
		},
		Lost: []models.TradeEntry{
			{From: bob.ID, To: alice.ID, Currency: models.CurrencyRedeem, Amount: 1, Reason: "insufficient funds"},
		},
	}
	got := r.Summary(alice.ID)
	for _, want := range []string{
		"trade with bob is complete",
		"**Received**\n2,500 cash",
		"**Sent**\nEevee (#7 → #3)",
		"1 redeem(s) from bob (insufficient funds)",
	} {
		if !strings.Contains(got, want) {
			t.Errorf("summary missing %q:\n%s", want, got)
		}
	}

	r.Aborted = true
	if !strings.Contains(r.Summary(bob.ID), "with alice was aborted") {
		t.Errorf("aborted summary wrong: %s", r.Summary(bob.ID))
	}

	rec := r.Record()
	if rec.UserA != alice.ID || rec.UserB != bob.ID || !rec.Aborted || len(rec.Lost) != 1 {
		t.Fatalf("Record = %+v", rec)
	}
}
