package commands

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/bwmarrin/discordgo"
	"github.com/google/uuid"
	"github.com/susu3304/pokediabot/internal/models"
	"github.com/susu3304/pokediabot/internal/trade"
)

// Trades is the negotiation surface the chat commands drive.
type Trades interface {
	Request(ctx context.Context, channelID string, initiator, target trade.Participant) (uuid.UUID, error)
	AddItems(ctx context.Context, userID string, spec trade.ItemSpec) (trade.Result, error)
	AddAll(ctx context.Context, channelID, userID string, f trade.Filter) (trade.Result, error)
	RemoveItems(ctx context.Context, userID string, spec trade.ItemSpec) (trade.Result, error)
	Confirm(ctx context.Context, userID string) (trade.ConfirmResult, error)
	Cancel(ctx context.Context, userID string) ([2]trade.Participant, error)
}

const (
	msgNotOffered = "Couldn't find the specified item or the exact amount on your side of the trade."
	msgFailure    = "Something went wrong while updating the trade. Please try again later."
)

var userMessages = []struct {
	err error
	msg string
}{
	{trade.ErrSelfTrade, "You cannot trade with yourself."},
	{trade.ErrBotTarget, "You cannot trade with a bot."},
	{trade.ErrPendingRequest, "One of you already has a pending trade request."},
	{trade.ErrAlreadyTrading, "One of you is already in a trade."},
	{trade.ErrNotInTrade, "You are not in a trade."},
	{trade.ErrNothingMatched, "No Pokémon matched those filters."},
	{trade.ErrItemNotOffered, msgNotOffered},
	{trade.ErrInvalidAmount, "The amount must be a positive whole number."},
	{models.ErrInsufficientFunds, "You don't have enough for that."},
	{trade.ErrInvalidFilter, ""},
}

// errorText maps a trade error to what the participant is told. Unexpected
// errors are logged and get a generic message.
func errorText(err error) string {
	for _, um := range userMessages {
		if errors.Is(err, um.err) {
			if um.msg == "" {
				return capitalize(err.Error()) + "."
			}
			return um.msg
		}
	}
	slog.Error("trade command failed", "error", err)
	return msgFailure
}

// HandleTrade invites the mentioned user. The accept prompt and the summary
// are posted by the presenter.
func HandleTrade(ctx context.Context, s Messenger, m *discordgo.MessageCreate, inv Invocation, svc Trades) {
	ids := parseMentionIDs(strings.Join(inv.Args, " "))
	if len(ids) == 0 {
		reply(s, m, fmt.Sprintf("Usage: `%st @user`", inv.Prefix))
		return
	}
	target, err := resolveUser(s, m, ids[0])
	if err != nil {
		reply(s, m, "Couldn't find that user.")
		return
	}

	_, err = svc.Request(ctx, m.ChannelID, participantOf(m.Author), participantOf(target))
	if err == nil || errors.Is(err, trade.ErrDeclined) || errors.Is(err, trade.ErrTimedOut) {
		return
	}
	reply(s, m, errorText(err))
}

func HandleTradeAdd(ctx context.Context, s Messenger, m *discordgo.MessageCreate, inv Invocation, svc Trades) {
	spec, err := trade.ParseItemSpec(inv.Args)
	if err != nil {
		reply(s, m, itemUsage(inv.Prefix, "ta"))
		return
	}
	res, err := svc.AddItems(ctx, m.Author.ID, spec)
	if err != nil {
		reply(s, m, joinLines(errorText(err), rejectionText(res.Rejected)))
		return
	}
	reply(s, m, resultText("Added", res))
}

func HandleTradeAddAll(ctx context.Context, s Messenger, m *discordgo.MessageCreate, inv Invocation, svc Trades) {
	f, err := trade.ParseFilter(inv.Args)
	if err != nil {
		reply(s, m, errorText(err))
		return
	}
	res, err := svc.AddAll(ctx, m.ChannelID, m.Author.ID, f)
	if errors.Is(err, trade.ErrDeclined) || errors.Is(err, trade.ErrTimedOut) {
		return
	}
	if err != nil {
		reply(s, m, errorText(err))
		return
	}
	reply(s, m, resultText("Added", res))
}

func HandleTradeRemove(ctx context.Context, s Messenger, m *discordgo.MessageCreate, inv Invocation, svc Trades) {
	spec, err := trade.ParseItemSpec(inv.Args)
	if err != nil {
		reply(s, m, itemUsage(inv.Prefix, "tr"))
		return
	}
	res, err := svc.RemoveItems(ctx, m.Author.ID, spec)
	if err != nil {
		reply(s, m, joinLines(errorText(err), rejectionText(res.Rejected)))
		return
	}
	reply(s, m, resultText("Removed", res))
}

func HandleTradeConfirm(ctx context.Context, s Messenger, m *discordgo.MessageCreate, svc Trades) {
	res, err := svc.Confirm(ctx, m.Author.ID)
	if err != nil {
		reply(s, m, errorText(err))
		return
	}
	a, b := res.Parties[0].ID, res.Parties[1].ID
	switch {
	case res.Receipt == nil:
		reply(s, m, fmt.Sprintf("<@%s> confirmed the trade. Waiting for the other side.", m.Author.ID))
	case res.Completed && len(res.Receipt.Lost) > 0:
		reply(s, m, fmt.Sprintf("Trade between <@%s> and <@%s> completed. %d item(s) could not be delivered, check your DMs for details.", a, b, len(res.Receipt.Lost)))
	case res.Completed:
		reply(s, m, fmt.Sprintf("Trade between <@%s> and <@%s> completed!", a, b))
	default:
		reply(s, m, fmt.Sprintf("Trade between <@%s> and <@%s> was aborted because some items were no longer available. Nothing was exchanged.", a, b))
	}
}

func HandleTradeCancel(ctx context.Context, s Messenger, m *discordgo.MessageCreate, svc Trades) {
	parties, err := svc.Cancel(ctx, m.Author.ID)
	if err != nil {
		reply(s, m, errorText(err))
		return
	}
	reply(s, m, fmt.Sprintf("Trade between <@%s> and <@%s> has been cancelled.", parties[0].ID, parties[1].ID))
}

func resolveUser(s Messenger, m *discordgo.MessageCreate, id string) (*discordgo.User, error) {
	for _, u := range m.Mentions {
		if u.ID == id {
			return u, nil
		}
	}
	return s.User(id)
}

func itemUsage(prefix, alias string) string {
	return fmt.Sprintf("Usage: `%[1]s%[2]s cash <amount>`, `%[1]s%[2]s redeem <amount>` or `%[1]s%[2]s <id> [id...]`", prefix, alias)
}

// resultText summarizes a mutation for the channel.
func resultText(verb string, res trade.Result) string {
	prep := "to"
	if verb == "Removed" {
		prep = "from"
	}
	var parts []string
	switch n := len(res.Changed); {
	case n == 1:
		parts = append(parts, fmt.Sprintf("%s **%s** %s the trade.", verb, res.Changed[0].Describe(), prep))
	case n > 1:
		parts = append(parts, fmt.Sprintf("%s **%d** items %s the trade.", verb, n, prep))
	}
	parts = append(parts, rejectionText(res.Rejected))
	for _, p := range res.Reversed {
		parts = append(parts, fmt.Sprintf("<@%s>, the trade changed so your confirmation was reversed.", p.ID))
	}
	if out := joinLines(parts...); out != "" {
		return out
	}
	return "Nothing changed."
}

func rejectionText(rejected []trade.Rejection) string {
	var lines []string
	for _, r := range rejected {
		lines = append(lines, fmt.Sprintf("`%s`: %s", r.Token, r.Err))
	}
	return strings.Join(lines, "\n")
}

func joinLines(parts ...string) string {
	var out []string
	for _, p := range parts {
		if p != "" {
			out = append(out, p)
		}
	}
	return strings.Join(out, "\n")
}

func capitalize(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}
