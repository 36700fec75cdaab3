package bot

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/bwmarrin/discordgo"
	"github.com/susu3304/pokediabot/internal/trade"
)

type fakeSession struct {
	mu      sync.Mutex
	nextID  int
	sent    chan *discordgo.MessageSend
	edits   []*discordgo.MessageEdit
	deleted []string
	texts   map[string]string
	dmFail  bool
}

func newFakeSession() *fakeSession {
	return &fakeSession{sent: make(chan *discordgo.MessageSend, 8), texts: make(map[string]string)}
}

func (f *fakeSession) id() string {
	f.nextID++
	return fmt.Sprintf("m%d", f.nextID)
}

func (f *fakeSession) ChannelMessageSend(channelID, content string, _ ...discordgo.RequestOption) (*discordgo.Message, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.texts[channelID] = content
	return &discordgo.Message{ID: f.id(), ChannelID: channelID, Content: content}, nil
}

func (f *fakeSession) ChannelMessageSendComplex(channelID string, data *discordgo.MessageSend, _ ...discordgo.RequestOption) (*discordgo.Message, error) {
	f.mu.Lock()
	msg := &discordgo.Message{ID: f.id(), ChannelID: channelID}
	f.mu.Unlock()
	f.sent <- data
	return msg, nil
}

func (f *fakeSession) ChannelMessageEditComplex(m *discordgo.MessageEdit, _ ...discordgo.RequestOption) (*discordgo.Message, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.edits = append(f.edits, m)
	return &discordgo.Message{ID: m.ID, ChannelID: m.Channel}, nil
}

func (f *fakeSession) ChannelMessageDelete(channelID, messageID string, _ ...discordgo.RequestOption) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.deleted = append(f.deleted, messageID)
	return nil
}

func (f *fakeSession) UserChannelCreate(recipientID string, _ ...discordgo.RequestOption) (*discordgo.Channel, error) {
	if f.dmFail {
		return nil, errors.New("cannot send messages to this user")
	}
	return &discordgo.Channel{ID: "dm-" + recipientID}, nil
}

func (f *fakeSession) lastEdit() *discordgo.MessageEdit {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.edits) == 0 {
		return nil
	}
	return f.edits[len(f.edits)-1]
}

func promptID(t *testing.T, data *discordgo.MessageSend) string {
	t.Helper()
	bs := buttons(t, data.Components)
	id, action, ok := parseComponentID(bs[0].CustomID, promptPrefix)
	if !ok || action != "yes" {
		t.Fatalf("accept button custom id = %q", bs[0].CustomID)
	}
	return id
}

func testPrompt() trade.Prompt {
	return trade.Prompt{
		Kind:      trade.PromptTradeRequest,
		ChannelID: "chan",
		Initiator: trade.Participant{ID: "1", Name: "alice"},
		Responder: trade.Participant{ID: "2", Name: "bob"},
	}
}

func TestPromptAnswer(t *testing.T) {
	sess := newFakeSession()
	p := NewPresenter(sess, "p!", nil)

	type result struct {
		ok  bool
		err error
	}
	done := make(chan result, 1)
	go func() {
		ok, err := p.Prompt(context.Background(), testPrompt())
		done <- result{ok, err}
	}()

	id := promptID(t, <-sess.sent)
	if err := p.Answer(id, "1", true); !errors.Is(err, ErrNotYourPrompt) {
		t.Fatalf("initiator answer err = %v, want ErrNotYourPrompt", err)
	}
	if err := p.Answer("unknown", "2", true); !errors.Is(err, ErrPromptExpired) {
		t.Fatalf("unknown prompt err = %v, want ErrPromptExpired", err)
	}
	if err := p.Answer(id, "2", true); err != nil {
		t.Fatalf("Answer failed: %v", err)
	}

	select {
	case r := <-done:
		if !r.ok || r.err != nil {
			t.Fatalf("Prompt = %v, %v", r.ok, r.err)
		}
	case <-time.After(time.Second):
		t.Fatal("Prompt did not return after answer")
	}

	edit := sess.lastEdit()
	if edit == nil || *edit.Content != "Trade accepted! <@1> and <@2>, add items using `p!ta <item>`." {
		t.Fatalf("prompt not resolved: %+v", edit)
	}
	if edit.Components == nil || len(edit.Components) != 0 {
		t.Fatalf("buttons should be cleared")
	}
	if err := p.Answer(id, "2", false); !errors.Is(err, ErrPromptExpired) {
		t.Fatalf("answer after resolve err = %v, want ErrPromptExpired", err)
	}
}

func TestPromptTimeout(t *testing.T) {
	sess := newFakeSession()
	p := NewPresenter(sess, "p!", nil)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	ok, err := p.Prompt(ctx, testPrompt())
	if ok || !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("Prompt = %v, %v; want false, deadline exceeded", ok, err)
	}
	if edit := sess.lastEdit(); edit == nil || *edit.Content != "Trade request timed out." {
		t.Fatalf("timeout not reported: %+v", edit)
	}
}

func TestSummaryLifecycle(t *testing.T) {
	sess := newFakeSession()
	p := NewPresenter(sess, "p!", nil)
	ctx := context.Background()

	ref, err := p.RenderSummary(ctx, testView(1, 2, trade.StatusOpen))
	if err != nil {
		t.Fatalf("RenderSummary failed: %v", err)
	}
	sent := <-sess.sent
	if len(sent.Embeds) != 1 || len(sent.Components) != 1 {
		t.Fatalf("summary message = %+v", sent)
	}
	if ref.ChannelID != "chan" || ref.MessageID == "" {
		t.Fatalf("ref = %+v", ref)
	}

	if err := p.UpdateSummary(ctx, ref, testView(1, 2, trade.StatusCancelled)); err != nil {
		t.Fatalf("UpdateSummary failed: %v", err)
	}
	edit := sess.lastEdit()
	if edit.ID != ref.MessageID || len(edit.Components) != 0 || edit.Components == nil {
		t.Fatalf("edit = %+v", edit)
	}

	if err := p.DiscardSummary(ctx, ref); err != nil {
		t.Fatalf("DiscardSummary failed: %v", err)
	}
	if len(sess.deleted) != 1 || sess.deleted[0] != ref.MessageID {
		t.Fatalf("deleted = %v", sess.deleted)
	}
}

func TestDirectMessage(t *testing.T) {
	sess := newFakeSession()
	p := NewPresenter(sess, "p!", nil)
	if err := p.DirectMessage(context.Background(), "2", "receipt"); err != nil {
		t.Fatalf("DirectMessage failed: %v", err)
	}
	if sess.texts["dm-2"] != "receipt" {
		t.Fatalf("dm not sent: %v", sess.texts)
	}

	sess.dmFail = true
	if err := p.DirectMessage(context.Background(), "2", "receipt"); err == nil {
		t.Fatal("expected error when the DM channel cannot be opened")
	}
}
