package trade

import (
	"fmt"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/google/uuid"
	"github.com/susu3304/pokediabot/internal/models"
)

// PageSize is the number of lines per side shown on one summary page.
const PageSize = 20

type Status int

const (
	StatusOpen Status = iota
	StatusCompleted
	StatusCancelled
	StatusAborted
)

// View is a render-ready snapshot of a session's current page.
type View struct {
	SessionID uuid.UUID
	ChannelID string
	Sides     [2]SideView
	Page      int
	Pages     int
	Status    Status
}

type SideView struct {
	Participant Participant
	Confirmed   bool
	Entries     []string
	Total       int
}

// Describe formats a line the way the summary lists it.
func (l Line) Describe() string {
	if l.Kind == LineCurrency {
		if l.Currency == models.CurrencyRedeem {
			return humanize.Comma(l.Amount) + " redeem(s)"
		}
		return humanize.Comma(l.Amount) + " " + string(l.Currency)
	}
	return describePokemon(l.Pokemon)
}

func describePokemon(p models.Pokemon) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%d • ", p.ID)
	if p.Fusionable {
		b.WriteString("🧬 ")
	}
	if p.Shiny {
		b.WriteString("✨ ")
	}
	fmt.Fprintf(&b, "%s • Lvl %d • %.2f%%", p.Name, p.Level, p.IVPercent)
	return b.String()
}

// pageCount returns the number of pages needed for the longer side, at least 1.
func pageCount(longest int) int {
	if longest <= 0 {
		return 1
	}
	return (longest + PageSize - 1) / PageSize
}

func clampPage(page, pages int) int {
	if page < 1 {
		return 1
	}
	if page > pages {
		return pages
	}
	return page
}

func (s *Session) pages() int {
	a, b := len(s.offers[s.parties[0].ID]), len(s.offers[s.parties[1].ID])
	if b > a {
		a = b
	}
	return pageCount(a)
}

// view snapshots the session. Callers hold s.mu.
func (s *Session) view(status Status) View {
	pages := s.pages()
	s.page = clampPage(s.page, pages)
	start := (s.page - 1) * PageSize

	v := View{
		SessionID: s.ID,
		ChannelID: s.ChannelID,
		Page:      s.page,
		Pages:     pages,
		Status:    status,
	}
	for i, p := range s.parties {
		lines := s.offers[p.ID]
		side := SideView{Participant: p, Confirmed: s.confirmed[p.ID], Total: len(lines)}
		for j := start; j < len(lines) && j < start+PageSize; j++ {
			side.Entries = append(side.Entries, lines[j].Describe())
		}
		v.Sides[i] = side
	}
	return v
}
