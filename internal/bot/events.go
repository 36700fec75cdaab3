package bot

import (
	"context"
	"errors"

	"github.com/bwmarrin/discordgo"
	"github.com/google/uuid"
	"github.com/susu3304/pokediabot/internal/commands"
	"github.com/susu3304/pokediabot/internal/trade"
)

func (b *Bot) onReady(s *discordgo.Session, event *discordgo.Ready) {
	b.log.Info("connected", "user", event.User.Username, "guilds", len(event.Guilds))
}

func (b *Bot) onMessageCreate(s *discordgo.Session, m *discordgo.MessageCreate) {
	// Ignore bot messages
	if m.Author == nil || m.Author.Bot {
		return
	}
	inv, ok := commands.ParseInvocation(b.prefix, m.Content)
	if !ok {
		return
	}
	ctx := context.Background()

	switch commands.Canonical(inv.Name) {
	case commands.CmdTrade:
		commands.HandleTrade(ctx, s, m, inv, b.trades)
	case commands.CmdTradeAdd:
		commands.HandleTradeAdd(ctx, s, m, inv, b.trades)
	case commands.CmdTradeAddAll:
		commands.HandleTradeAddAll(ctx, s, m, inv, b.trades)
	case commands.CmdTradeRemove:
		commands.HandleTradeRemove(ctx, s, m, inv, b.trades)
	case commands.CmdTradeConfirm:
		commands.HandleTradeConfirm(ctx, s, m, b.trades)
	case commands.CmdTradeCancel:
		commands.HandleTradeCancel(ctx, s, m, b.trades)
	case commands.CmdOrder:
		commands.HandleOrder(ctx, s, m, inv, b.db)
	}
}

func (b *Bot) onInteractionCreate(s *discordgo.Session, i *discordgo.InteractionCreate) {
	if i.Type != discordgo.InteractionMessageComponent {
		return
	}
	userID := interactionUserID(i.Interaction)
	customID := i.MessageComponentData().CustomID

	var err error
	if id, action, ok := parseComponentID(customID, promptPrefix); ok {
		err = b.presenter.Answer(id, userID, action == "yes")
	} else if id, action, ok := parseComponentID(customID, pagePrefix); ok {
		err = b.paginate(id, userID, action)
	} else {
		return
	}

	if err != nil {
		b.respondEphemeral(s, i.Interaction, interactionErrorText(err))
		return
	}
	if err := s.InteractionRespond(i.Interaction, &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseDeferredMessageUpdate,
	}); err != nil {
		b.log.Warn("acknowledge interaction", "custom_id", customID, "error", err)
	}
}

func (b *Bot) paginate(id, userID, action string) error {
	sessionID, err := uuid.Parse(id)
	if err != nil {
		return trade.ErrSessionNotFound
	}
	delta := 1
	if action == "prev" {
		delta = -1
	}
	return b.trades.Paginate(context.Background(), sessionID, userID, delta)
}

func interactionUserID(i *discordgo.Interaction) string {
	if i.Member != nil && i.Member.User != nil {
		return i.Member.User.ID
	}
	if i.User != nil {
		return i.User.ID
	}
	return ""
}

func interactionErrorText(err error) string {
	switch {
	case errors.Is(err, ErrNotYourPrompt):
		return "This prompt is not for you."
	case errors.Is(err, ErrPromptExpired):
		return "This prompt has expired."
	case errors.Is(err, trade.ErrNotParticipant):
		return "You are not part of this trade."
	case errors.Is(err, trade.ErrSessionNotFound):
		return "This trade is no longer active."
	}
	return "Something went wrong. Please try again later."
}

type interactionResponder interface {
	InteractionRespond(interaction *discordgo.Interaction, resp *discordgo.InteractionResponse, options ...discordgo.RequestOption) error
}

func (b *Bot) respondEphemeral(s interactionResponder, i *discordgo.Interaction, content string) {
	err := s.InteractionRespond(i, &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseChannelMessageWithSource,
		Data: &discordgo.InteractionResponseData{
			Content: content,
			Flags:   discordgo.MessageFlagsEphemeral,
		},
	})
	if err != nil {
		b.log.Warn("respond to interaction", "interaction_id", i.ID, "error", err)
	}
}
