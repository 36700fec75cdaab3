package commands

import (
	"context"
	"fmt"

	"github.com/bwmarrin/discordgo"
	"github.com/susu3304/pokediabot/internal/trade"
)

// Preferences stores per-user inventory settings.
type Preferences interface {
	SortOrder(ctx context.Context, userID string) (string, error)
	SetSortOrder(ctx context.Context, userID, order string) error
}

// HandleOrder shows or changes the order add-all walks the inventory in.
func HandleOrder(ctx context.Context, s Messenger, m *discordgo.MessageCreate, inv Invocation, prefs Preferences) {
	if len(inv.Args) == 0 {
		cur, err := prefs.SortOrder(ctx, m.Author.ID)
		if err != nil {
			reply(s, m, errorText(err))
			return
		}
		if cur == "" {
			cur = "default"
		}
		reply(s, m, fmt.Sprintf("Your Pokémon are ordered by `%s`. Use `%sorder iv-|iv+|level-|level+|id-|id+` to change it.", cur, inv.Prefix))
		return
	}

	order, err := trade.ParseSortOrder(inv.Args[0])
	if err != nil {
		reply(s, m, capitalize(err.Error())+".")
		return
	}
	if err := prefs.SetSortOrder(ctx, m.Author.ID, string(order)); err != nil {
		reply(s, m, errorText(err))
		return
	}
	reply(s, m, fmt.Sprintf("Now ordering your Pokémon by `%s`.", order))
}
