package bot

import (
	"fmt"
	"strings"

	"github.com/bwmarrin/discordgo"
	"github.com/susu3304/pokediabot/internal/trade"
)

const (
	promptPrefix = "trade_prompt:"
	pagePrefix   = "trade_page:"

	colorOpen      = 0x3498db
	colorCompleted = 0x2ecc71
	colorClosed    = 0xe74c3c

	fieldLimit = 1024
	riskNote   = "Note: Trade at your own risk, it is suggested to always check prices before trading for safety."
)

func summaryEmbed(v trade.View) *discordgo.MessageEmbed {
	a, b := v.Sides[0].Participant, v.Sides[1].Participant
	embed := &discordgo.MessageEmbed{
		Title:  fmt.Sprintf("Trade between %s & %s", a.Name, b.Name),
		Color:  colorOpen,
		Author: &discordgo.MessageEmbedAuthor{Name: a.Name, IconURL: a.AvatarURL},
	}
	if b.AvatarURL != "" {
		embed.Thumbnail = &discordgo.MessageEmbedThumbnail{URL: b.AvatarURL}
	}
	for _, side := range v.Sides {
		name := side.Participant.Name
		if side.Confirmed {
			name = "✅ " + name
		}
		embed.Fields = append(embed.Fields, &discordgo.MessageEmbedField{
			Name:   name,
			Value:  fieldValue(side.Entries),
			Inline: true,
		})
	}

	footer := fmt.Sprintf("Showing Page %d/%d\n%s", v.Page, v.Pages, riskNote)
	switch v.Status {
	case trade.StatusCompleted:
		embed.Color = colorCompleted
		footer = "Trade completed\n" + footer
	case trade.StatusCancelled:
		embed.Color = colorClosed
		footer = "Trade cancelled\n" + footer
	case trade.StatusAborted:
		embed.Color = colorClosed
		footer = "Trade aborted, nothing was exchanged\n" + footer
	}
	embed.Footer = &discordgo.MessageEmbedFooter{Text: footer}
	return embed
}

func fieldValue(entries []string) string {
	if len(entries) == 0 {
		return "None"
	}
	var b strings.Builder
	for i, e := range entries {
		if b.Len()+len(e)+1 > fieldLimit-len("…") {
			b.WriteString("…")
			break
		}
		if i > 0 {
			b.WriteString("\n")
		}
		b.WriteString(e)
	}
	return b.String()
}

// summaryComponents returns page buttons for open multi-page trades, and an
// empty row set otherwise so edits clear old buttons.
func summaryComponents(v trade.View) []discordgo.MessageComponent {
	if v.Status != trade.StatusOpen || v.Pages <= 1 {
		return []discordgo.MessageComponent{}
	}
	id := v.SessionID.String()
	return []discordgo.MessageComponent{
		discordgo.ActionsRow{
			Components: []discordgo.MessageComponent{
				discordgo.Button{
					Label:    "⬅️",
					Style:    discordgo.SecondaryButton,
					CustomID: pagePrefix + id + ":prev",
					Disabled: v.Page <= 1,
				},
				discordgo.Button{
					Label:    "➡️",
					Style:    discordgo.SecondaryButton,
					CustomID: pagePrefix + id + ":next",
					Disabled: v.Page >= v.Pages,
				},
			},
		},
	}
}

func promptComponents(promptID string) []discordgo.MessageComponent {
	return []discordgo.MessageComponent{
		discordgo.ActionsRow{
			Components: []discordgo.MessageComponent{
				discordgo.Button{
					Label:    "✅ Accept",
					Style:    discordgo.SuccessButton,
					CustomID: promptPrefix + promptID + ":yes",
				},
				discordgo.Button{
					Label:    "❌ Decline",
					Style:    discordgo.DangerButton,
					CustomID: promptPrefix + promptID + ":no",
				},
			},
		},
	}
}

type promptOutcome int

const (
	outcomeAccepted promptOutcome = iota
	outcomeDeclined
	outcomeTimedOut
)

func promptText(p trade.Prompt) string {
	if p.Kind == trade.PromptAddAll {
		return fmt.Sprintf("<@%s>, are you sure you want to add **%d** Pokémon to your current trade?", p.Responder.ID, p.Count)
	}
	return fmt.Sprintf("<@%s>, <@%s> wants to trade! Press ✅ to accept or ❌ to decline.", p.Responder.ID, p.Initiator.ID)
}

func resolvedPromptText(p trade.Prompt, outcome promptOutcome, prefix string) string {
	if p.Kind == trade.PromptAddAll {
		switch outcome {
		case outcomeAccepted:
			return fmt.Sprintf("Adding **%d** Pokémon to the trade.", p.Count)
		case outcomeDeclined:
			return "Trade addition cancelled."
		}
		return "Trade addition timed out. No Pokémon were added."
	}
	switch outcome {
	case outcomeAccepted:
		return fmt.Sprintf("Trade accepted! <@%s> and <@%s>, add items using `%sta <item>`.", p.Initiator.ID, p.Responder.ID, prefix)
	case outcomeDeclined:
		return fmt.Sprintf("Trade declined by <@%s>.", p.Responder.ID)
	}
	return "Trade request timed out."
}

// parseComponentID splits "<prefix><id>:<action>".
func parseComponentID(customID, prefix string) (id, action string, ok bool) {
	if !strings.HasPrefix(customID, prefix) {
		return "", "", false
	}
	rest := strings.TrimPrefix(customID, prefix)
	idx := strings.LastIndex(rest, ":")
	if idx <= 0 || idx == len(rest)-1 {
		return "", "", false
	}
	return rest[:idx], rest[idx+1:], true
}
