package commands

import (
	"log/slog"
	"regexp"
	"strings"

	"github.com/bwmarrin/discordgo"
	"github.com/susu3304/pokediabot/internal/trade"
)

// Messenger is the part of *discordgo.Session the command handlers use.
type Messenger interface {
	ChannelMessageSend(channelID, content string, options ...discordgo.RequestOption) (*discordgo.Message, error)
	User(userID string, options ...discordgo.RequestOption) (*discordgo.User, error)
}

// Invocation is one prefixed chat command.
type Invocation struct {
	Prefix string
	Name   string
	Args   []string
}

// ParseInvocation splits "p!ta cash 500" into name "ta" and its args.
// Command names are case-insensitive.
func ParseInvocation(prefix, content string) (Invocation, bool) {
	content = strings.TrimSpace(content)
	if prefix == "" || len(content) <= len(prefix) || !strings.EqualFold(content[:len(prefix)], prefix) {
		return Invocation{}, false
	}
	fields := strings.Fields(content[len(prefix):])
	if len(fields) == 0 {
		return Invocation{}, false
	}
	return Invocation{
		Prefix: prefix,
		Name:   strings.ToLower(fields[0]),
		Args:   fields[1:],
	}, true
}

func reply(s Messenger, m *discordgo.MessageCreate, content string) {
	if _, err := s.ChannelMessageSend(m.ChannelID, content); err != nil {
		slog.Warn("send reply", "channel_id", m.ChannelID, "error", err)
	}
}

// participantOf converts a Discord user into a trade participant.
func participantOf(u *discordgo.User) trade.Participant {
	return trade.Participant{
		ID:        u.ID,
		Name:      u.Username,
		AvatarURL: u.AvatarURL("128"),
		Bot:       u.Bot,
	}
}

var mentionRe = regexp.MustCompile(`<@!?([0-9]+)>`)

func parseMentionIDs(text string) []string {
	// Supports <@123>, <@!123>, and raw IDs separated by spaces
	var ids []string
	for _, m := range mentionRe.FindAllStringSubmatch(text, -1) {
		if len(m) >= 2 {
			ids = append(ids, m[1])
		}
	}
	for _, tok := range strings.Fields(text) {
		if allDigits(tok) {
			ids = append(ids, tok)
		}
	}
	return unique(ids)
}

func allDigits(s string) bool {
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}
	return len(s) > 0
}

func unique(ids []string) []string {
	seen := make(map[string]struct{}, len(ids))
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}
