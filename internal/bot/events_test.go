package bot

import (
	"bytes"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"testing"

	"github.com/bwmarrin/discordgo"
	"github.com/susu3304/pokediabot/internal/trade"
)

type fakeResponder struct {
	resp *discordgo.InteractionResponse
	err  error
}

func (f *fakeResponder) InteractionRespond(_ *discordgo.Interaction, resp *discordgo.InteractionResponse, _ ...discordgo.RequestOption) error {
	f.resp = resp
	return f.err
}

func TestRespondEphemeral(t *testing.T) {
	var buf bytes.Buffer
	b := &Bot{log: slog.New(slog.NewTextHandler(&buf, nil))}
	i := &discordgo.Interaction{ID: "i-1"}

	s := &fakeResponder{}
	b.respondEphemeral(s, i, "This prompt has expired.")
	if s.resp == nil || s.resp.Data.Content != "This prompt has expired." || s.resp.Data.Flags != discordgo.MessageFlagsEphemeral {
		t.Fatalf("response = %+v", s.resp)
	}
	if buf.Len() != 0 {
		t.Fatalf("unexpected log output: %s", buf.String())
	}

	s.err = errors.New("unknown interaction")
	b.respondEphemeral(s, i, "This prompt has expired.")
	out := buf.String()
	for _, want := range []string{"respond to interaction", "interaction_id=i-1", "unknown interaction"} {
		if !strings.Contains(out, want) {
			t.Errorf("log missing %q: %s", want, out)
		}
	}
}

func TestInteractionUserID(t *testing.T) {
	tests := []struct {
		name string
		i    *discordgo.Interaction
		want string
	}{
		{"guild member", &discordgo.Interaction{Member: &discordgo.Member{User: &discordgo.User{ID: "100"}}}, "100"},
		{"direct message", &discordgo.Interaction{User: &discordgo.User{ID: "200"}}, "200"},
		{"member without user", &discordgo.Interaction{Member: &discordgo.Member{}, User: &discordgo.User{ID: "300"}}, "300"},
		{"nobody", &discordgo.Interaction{}, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := interactionUserID(tt.i); got != tt.want {
				t.Fatalf("interactionUserID = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestInteractionErrorText(t *testing.T) {
	tests := []struct {
		err  error
		want string
	}{
		{ErrNotYourPrompt, "This prompt is not for you."},
		{fmt.Errorf("answer: %w", ErrPromptExpired), "This prompt has expired."},
		{trade.ErrNotParticipant, "You are not part of this trade."},
		{trade.ErrSessionNotFound, "This trade is no longer active."},
		{errors.New("boom"), "Something went wrong. Please try again later."},
	}
	for _, tt := range tests {
		if got := interactionErrorText(tt.err); got != tt.want {
			t.Errorf("interactionErrorText(%v) = %q, want %q", tt.err, got, tt.want)
		}
	}
}
