package bot

import (
	"context"
	"errors"
	"log/slog"
	"sync"

	"github.com/bwmarrin/discordgo"
	"github.com/google/uuid"
	"github.com/susu3304/pokediabot/internal/trade"
)

var (
	ErrPromptExpired = errors.New("this prompt has expired")
	ErrNotYourPrompt = errors.New("this prompt is not for you")
)

// discordSession is the part of *discordgo.Session the presenter needs.
type discordSession interface {
	ChannelMessageSend(channelID, content string, options ...discordgo.RequestOption) (*discordgo.Message, error)
	ChannelMessageSendComplex(channelID string, data *discordgo.MessageSend, options ...discordgo.RequestOption) (*discordgo.Message, error)
	ChannelMessageEditComplex(m *discordgo.MessageEdit, options ...discordgo.RequestOption) (*discordgo.Message, error)
	ChannelMessageDelete(channelID, messageID string, options ...discordgo.RequestOption) error
	UserChannelCreate(recipientID string, options ...discordgo.RequestOption) (*discordgo.Channel, error)
}

type waiter struct {
	userID string
	answer chan bool
}

// Presenter renders trades as embeds and collects button answers.
type Presenter struct {
	session discordSession
	prefix  string
	log     *slog.Logger

	mu      sync.Mutex
	waiters map[string]*waiter
}

func NewPresenter(session discordSession, prefix string, logger *slog.Logger) *Presenter {
	if logger == nil {
		logger = slog.Default()
	}
	return &Presenter{
		session: session,
		prefix:  prefix,
		log:     logger.With("component", "presenter"),
		waiters: make(map[string]*waiter),
	}
}

// Prompt posts accept/decline buttons and waits for the responder or ctx.
func (p *Presenter) Prompt(ctx context.Context, pr trade.Prompt) (bool, error) {
	id := uuid.NewString()
	w := &waiter{userID: pr.Responder.ID, answer: make(chan bool, 1)}

	p.mu.Lock()
	p.waiters[id] = w
	p.mu.Unlock()
	defer func() {
		p.mu.Lock()
		delete(p.waiters, id)
		p.mu.Unlock()
	}()

	msg, err := p.session.ChannelMessageSendComplex(pr.ChannelID, &discordgo.MessageSend{
		Content:    promptText(pr),
		Components: promptComponents(id),
	}, discordgo.WithContext(ctx))
	if err != nil {
		return false, err
	}

	select {
	case ok := <-w.answer:
		outcome := outcomeDeclined
		if ok {
			outcome = outcomeAccepted
		}
		p.resolvePrompt(msg, resolvedPromptText(pr, outcome, p.prefix))
		return ok, nil
	case <-ctx.Done():
		p.resolvePrompt(msg, resolvedPromptText(pr, outcomeTimedOut, p.prefix))
		return false, ctx.Err()
	}
}

// Answer delivers a button press to the waiting prompt.
func (p *Presenter) Answer(promptID, userID string, yes bool) error {
	p.mu.Lock()
	w := p.waiters[promptID]
	p.mu.Unlock()
	if w == nil {
		return ErrPromptExpired
	}
	if w.userID != userID {
		return ErrNotYourPrompt
	}
	select {
	case w.answer <- yes:
	default:
	}
	return nil
}

func (p *Presenter) resolvePrompt(msg *discordgo.Message, text string) {
	edit := discordgo.NewMessageEdit(msg.ChannelID, msg.ID).SetContent(text)
	edit.Components = []discordgo.MessageComponent{}
	if _, err := p.session.ChannelMessageEditComplex(edit); err != nil {
		p.log.Warn("edit prompt", "message_id", msg.ID, "error", err)
	}
}

func (p *Presenter) RenderSummary(ctx context.Context, v trade.View) (trade.MessageRef, error) {
	msg, err := p.session.ChannelMessageSendComplex(v.ChannelID, &discordgo.MessageSend{
		Embeds:     []*discordgo.MessageEmbed{summaryEmbed(v)},
		Components: summaryComponents(v),
	}, discordgo.WithContext(ctx))
	if err != nil {
		return trade.MessageRef{}, err
	}
	return trade.MessageRef{ChannelID: msg.ChannelID, MessageID: msg.ID}, nil
}

func (p *Presenter) UpdateSummary(ctx context.Context, ref trade.MessageRef, v trade.View) error {
	edit := discordgo.NewMessageEdit(ref.ChannelID, ref.MessageID).SetEmbed(summaryEmbed(v))
	edit.Components = summaryComponents(v)
	_, err := p.session.ChannelMessageEditComplex(edit, discordgo.WithContext(ctx))
	return err
}

func (p *Presenter) DiscardSummary(ctx context.Context, ref trade.MessageRef) error {
	return p.session.ChannelMessageDelete(ref.ChannelID, ref.MessageID, discordgo.WithContext(ctx))
}

// DirectMessage fails quietly for users who block DMs; callers only log it.
func (p *Presenter) DirectMessage(ctx context.Context, userID, text string) error {
	ch, err := p.session.UserChannelCreate(userID, discordgo.WithContext(ctx))
	if err != nil {
		return err
	}
	_, err = p.session.ChannelMessageSend(ch.ID, text, discordgo.WithContext(ctx))
	return err
}
