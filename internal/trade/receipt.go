package trade

import (
	"fmt"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/google/uuid"
	"github.com/susu3304/pokediabot/internal/models"
)

// Receipt is the outcome of a finalized trade.
type Receipt struct {
	ID          uuid.UUID
	Parties     [2]Participant
	Mode        FinalizeMode
	Aborted     bool
	Delivered   []models.TradeEntry
	Lost        []models.TradeEntry
	FinalizedAt time.Time
}

func (r Receipt) Record() models.TradeRecord {
	return models.TradeRecord{
		ID:          r.ID,
		UserA:       r.Parties[0].ID,
		UserB:       r.Parties[1].ID,
		Delivered:   r.Delivered,
		Lost:        r.Lost,
		Mode:        string(r.Mode),
		Aborted:     r.Aborted,
		FinalizedAt: r.FinalizedAt,
	}
}

func (r Receipt) name(userID string) string {
	for _, p := range r.Parties {
		if p.ID == userID {
			return p.Name
		}
	}
	return userID
}

// Summary renders the receipt from userID's point of view.
func (r Receipt) Summary(userID string) string {
	var b strings.Builder
	other := r.Parties[0]
	if other.ID == userID {
		other = r.Parties[1]
	}
	if r.Aborted {
		fmt.Fprintf(&b, "Your trade with %s was aborted because some items were no longer available. Nothing was exchanged.\n", other.Name)
	} else {
		fmt.Fprintf(&b, "Your trade with %s is complete.\n", other.Name)
	}

	var got, gave []string
	for _, e := range r.Delivered {
		switch userID {
		case e.To:
			got = append(got, describeEntry(e))
		case e.From:
			gave = append(gave, describeEntry(e))
		}
	}
	if len(got) > 0 {
		b.WriteString("\n**Received**\n" + strings.Join(got, "\n") + "\n")
	}
	if len(gave) > 0 {
		b.WriteString("\n**Sent**\n" + strings.Join(gave, "\n") + "\n")
	}
	if len(r.Lost) > 0 {
		b.WriteString("\n**Not delivered**\n")
		for _, e := range r.Lost {
			fmt.Fprintf(&b, "%s from %s (%s)\n", describeEntry(e), r.name(e.From), e.Reason)
		}
	}
	return strings.TrimRight(b.String(), "\n")
}

func describeEntry(e models.TradeEntry) string {
	if e.Currency != "" {
		if e.Currency == models.CurrencyRedeem {
			return humanize.Comma(e.Amount) + " redeem(s)"
		}
		return humanize.Comma(e.Amount) + " " + string(e.Currency)
	}
	if e.NewID > 0 {
		return fmt.Sprintf("%s (#%d → #%d)", e.Name, e.PokemonID, e.NewID)
	}
	return fmt.Sprintf("%s (#%d)", e.Name, e.PokemonID)
}

func entryFor(l Line, from, to string) models.TradeEntry {
	e := models.TradeEntry{From: from, To: to}
	if l.Kind == LineCurrency {
		e.Currency = l.Currency
		e.Amount = l.Amount
	} else {
		e.PokemonID = l.Pokemon.ID
		e.Name = l.Pokemon.Name
	}
	return e
}
