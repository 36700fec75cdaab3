package api

import (
	"errors"
	"net/http"

	"github.com/susu3304/pokediabot/internal/models"
	"github.com/susu3304/pokediabot/internal/trade"
)

func (a *API) handleHealth(w http.ResponseWriter, r *http.Request) {
	if err := a.ledger.Ping(r.Context()); err != nil {
		a.log.Warn("health check failed", "error", err)
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unavailable"})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// Public handlers
func (a *API) handleActiveTrades(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]int{"active": a.trades.ActiveCount()})
}

// Protected handlers
func (a *API) handleBalance(w http.ResponseWriter, r *http.Request) {
	claims := claimsFrom(r.Context())
	bal, err := a.ledger.Balances(r.Context(), claims.UserID)
	if err != nil && !errors.Is(err, models.ErrAccountNotFound) {
		a.log.Error("load balances", "user_id", claims.UserID, "error", err)
		http.Error(w, "failed to load balances", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, bal)
}

func (a *API) handlePokemon(w http.ResponseWriter, r *http.Request) {
	claims := claimsFrom(r.Context())
	order := trade.OrderNone
	if v := r.URL.Query().Get("order"); v != "" {
		o, err := trade.ParseSortOrder(v)
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		order = o
	}

	list, err := a.ledger.ListPokemon(r.Context(), claims.UserID)
	if err != nil {
		a.log.Error("list pokemon", "user_id", claims.UserID, "error", err)
		http.Error(w, "failed to list pokemon", http.StatusInternalServerError)
		return
	}
	order.Sort(list)
	if list == nil {
		list = []models.Pokemon{}
	}
	writeJSON(w, http.StatusOK, list)
}

func (a *API) handleTradeHistory(w http.ResponseWriter, r *http.Request) {
	claims := claimsFrom(r.Context())
	records, err := a.ledger.ListTrades(r.Context(), claims.UserID, queryInt(r, "limit", 20))
	if err != nil {
		a.log.Error("list trades", "user_id", claims.UserID, "error", err)
		http.Error(w, "failed to list trades", http.StatusInternalServerError)
		return
	}
	if records == nil {
		records = []models.TradeRecord{}
	}
	writeJSON(w, http.StatusOK, records)
}

type sideJSON struct {
	UserID    string   `json:"user_id"`
	Name      string   `json:"name"`
	AvatarURL string   `json:"avatar_url,omitempty"`
	Confirmed bool     `json:"confirmed"`
	Items     []string `json:"items"`
	Total     int      `json:"total"`
}

type tradeJSON struct {
	ID    string      `json:"id"`
	Page  int         `json:"page"`
	Pages int         `json:"pages"`
	Sides [2]sideJSON `json:"sides"`
}

func (a *API) handleCurrentTrade(w http.ResponseWriter, r *http.Request) {
	claims := claimsFrom(r.Context())
	v, ok := a.trades.Current(claims.UserID)
	if !ok {
		http.Error(w, "not in a trade", http.StatusNotFound)
		return
	}
	out := tradeJSON{ID: v.SessionID.String(), Page: v.Page, Pages: v.Pages}
	for i, s := range v.Sides {
		items := s.Entries
		if items == nil {
			items = []string{}
		}
		out.Sides[i] = sideJSON{
			UserID:    s.Participant.ID,
			Name:      s.Participant.Name,
			AvatarURL: s.Participant.AvatarURL,
			Confirmed: s.Confirmed,
			Items:     items,
			Total:     s.Total,
		}
	}
	writeJSON(w, http.StatusOK, out)
}
