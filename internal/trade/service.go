package trade

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/susu3304/pokediabot/internal/catalog"
	"github.com/susu3304/pokediabot/internal/models"
)

// Store is the ledger the trade manager reads from and settles against.
// Each transfer call must be atomic on its own.
type Store interface {
	Balances(ctx context.Context, userID string) (models.Balances, error)
	Pokemon(ctx context.Context, ownerID string, id int) (models.Pokemon, error)
	ListPokemon(ctx context.Context, ownerID string) ([]models.Pokemon, error)
	SortOrder(ctx context.Context, userID string) (string, error)
	TransferCurrency(ctx context.Context, from, to string, c models.Currency, amount int64) error
	TransferPokemon(ctx context.Context, from, to string, id int) (int, error)
	SettleTrade(ctx context.Context, entries []models.TradeEntry) error
	RecordTrade(ctx context.Context, rec models.TradeRecord) error
}

type PromptKind int

const (
	PromptTradeRequest PromptKind = iota
	PromptAddAll
)

// Prompt asks Responder a yes/no question.
type Prompt struct {
	Kind      PromptKind
	ChannelID string
	Responder Participant
	Initiator Participant
	Count     int
}

// Sink presents negotiations to the participants.
type Sink interface {
	// Prompt blocks until the responder answers or ctx is done.
	Prompt(ctx context.Context, p Prompt) (bool, error)
	RenderSummary(ctx context.Context, v View) (MessageRef, error)
	UpdateSummary(ctx context.Context, ref MessageRef, v View) error
	DiscardSummary(ctx context.Context, ref MessageRef) error
	DirectMessage(ctx context.Context, userID, text string) error
}

// Archiver receives every finalized trade.
type Archiver interface {
	Append(rec models.TradeRecord) error
}

type Options struct {
	RequestTimeout time.Duration
	AddAllTimeout  time.Duration
	Mode           FinalizeMode
	Catalog        *catalog.Catalog
	Archive        Archiver
	Logger         *slog.Logger
	Now            func() time.Time
}

// Manager owns every open negotiation.
type Manager struct {
	store Store
	sink  Sink
	opts  Options
	log   *slog.Logger

	mu       sync.Mutex
	sessions map[pairKey]*Session
	byID     map[uuid.UUID]*Session
	members  map[string]*Session
	pending  map[string]struct{}
}

func NewManager(store Store, sink Sink, opts Options) *Manager {
	if opts.RequestTimeout <= 0 {
		opts.RequestTimeout = 60 * time.Second
	}
	if opts.AddAllTimeout <= 0 {
		opts.AddAllTimeout = 30 * time.Second
	}
	if opts.Mode == "" {
		opts.Mode = FinalizeBestEffort
	}
	if opts.Catalog == nil {
		opts.Catalog = catalog.Default()
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Manager{
		store:    store,
		sink:     sink,
		opts:     opts,
		log:      logger.With("component", "trade"),
		sessions: make(map[pairKey]*Session),
		byID:     make(map[uuid.UUID]*Session),
		members:  make(map[string]*Session),
		pending:  make(map[string]struct{}),
	}
}

// Result reports what an add or remove changed.
type Result struct {
	Changed  []Line
	Rejected []Rejection
	// Reversed lists participants whose confirmation was cleared.
	Reversed []Participant
}

type Rejection struct {
	Token string
	Err   error
}

type ConfirmResult struct {
	Parties   [2]Participant
	Completed bool
	Receipt   *Receipt
}

// Request invites target to trade and waits for the answer.
func (m *Manager) Request(ctx context.Context, channelID string, initiator, target Participant) (uuid.UUID, error) {
	if initiator.ID == target.ID {
		return uuid.Nil, ErrSelfTrade
	}
	if initiator.Bot || target.Bot {
		return uuid.Nil, ErrBotTarget
	}

	m.mu.Lock()
	if m.isPendingLocked(initiator.ID) || m.isPendingLocked(target.ID) {
		m.mu.Unlock()
		return uuid.Nil, ErrPendingRequest
	}
	if m.members[initiator.ID] != nil || m.members[target.ID] != nil {
		m.mu.Unlock()
		return uuid.Nil, ErrAlreadyTrading
	}
	m.pending[initiator.ID] = struct{}{}
	m.pending[target.ID] = struct{}{}
	m.mu.Unlock()

	askErr := m.ask(ctx, m.opts.RequestTimeout, Prompt{
		Kind:      PromptTradeRequest,
		ChannelID: channelID,
		Responder: target,
		Initiator: initiator,
	})

	sess := newSession(channelID, initiator, target)
	sess.mu.Lock()
	defer sess.mu.Unlock()

	m.mu.Lock()
	delete(m.pending, initiator.ID)
	delete(m.pending, target.ID)
	if askErr != nil {
		m.mu.Unlock()
		return uuid.Nil, askErr
	}
	m.sessions[keyFor(initiator.ID, target.ID)] = sess
	m.byID[sess.ID] = sess
	m.members[initiator.ID] = sess
	m.members[target.ID] = sess
	m.mu.Unlock()

	m.log.Info("trade opened", "trade_id", sess.ID, "user_a", initiator.ID, "user_b", target.ID)
	m.rerender(ctx, sess, StatusOpen)
	return sess.ID, nil
}

// AddItems adds a currency amount or a batch of pokemon to userID's side.
func (m *Manager) AddItems(ctx context.Context, userID string, spec ItemSpec) (Result, error) {
	var res Result
	for _, tok := range spec.Invalid {
		res.Rejected = append(res.Rejected, Rejection{Token: tok, Err: ErrInvalidID})
	}

	sess, err := m.lockSession(userID)
	if err != nil {
		return res, err
	}
	defer sess.mu.Unlock()

	if spec.IsCurrency() {
		if spec.Amount <= 0 {
			return res, ErrInvalidAmount
		}
		bal, err := m.store.Balances(ctx, userID)
		if err != nil && !errors.Is(err, models.ErrAccountNotFound) {
			m.log.Error("load balances", "user_id", userID, "error", err)
			return res, fmt.Errorf("load balances: %w", err)
		}
		// Balance and offered are both non-negative, so this form cannot overflow.
		idx, offered := sess.offered(userID, spec.Currency)
		if spec.Amount > bal.Of(spec.Currency)-offered {
			return res, models.ErrInsufficientFunds
		}
		if idx >= 0 {
			sess.offers[userID][idx].Amount += spec.Amount
		} else {
			sess.offers[userID] = append(sess.offers[userID], currencyLine(spec.Currency, spec.Amount))
		}
		res.Changed = append(res.Changed, currencyLine(spec.Currency, spec.Amount))
	} else {
		var lines []Line
		for _, id := range spec.IDs {
			tok := strconv.Itoa(id)
			if sess.hasPokemon(userID, id) {
				res.Rejected = append(res.Rejected, Rejection{Token: tok, Err: ErrAlreadyOffered})
				continue
			}
			p, err := m.store.Pokemon(ctx, userID, id)
			if errors.Is(err, models.ErrPokemonNotFound) {
				res.Rejected = append(res.Rejected, Rejection{Token: tok, Err: err})
				continue
			}
			if err != nil {
				m.log.Error("load pokemon", "user_id", userID, "pokemon_id", id, "error", err)
				return Result{}, fmt.Errorf("load pokemon %d: %w", id, err)
			}
			if p.Guarded() {
				res.Rejected = append(res.Rejected, Rejection{Token: tok, Err: models.ErrPokemonGuarded})
				continue
			}
			lines = append(lines, pokemonLine(p))
		}
		sess.offers[userID] = append(sess.offers[userID], lines...)
		res.Changed = lines
	}

	if len(res.Changed) == 0 {
		return res, nil
	}
	res.Reversed = sess.resetConfirmations()
	m.rerender(ctx, sess, StatusOpen)
	return res, nil
}

// AddAll offers every pokemon matching f after the user confirms the count.
func (m *Manager) AddAll(ctx context.Context, channelID, userID string, f Filter) (Result, error) {
	var res Result
	sess, err := m.lockSession(userID)
	if err != nil {
		return res, err
	}
	offered := make(map[int]struct{})
	for _, l := range sess.offers[userID] {
		if l.Kind == LinePokemon {
			offered[l.Pokemon.ID] = struct{}{}
		}
	}
	who := sess.participant(userID)
	sess.mu.Unlock()

	list, err := m.store.ListPokemon(ctx, userID)
	if err != nil {
		m.log.Error("list pokemon", "user_id", userID, "error", err)
		return res, fmt.Errorf("list pokemon: %w", err)
	}
	order, err := m.store.SortOrder(ctx, userID)
	if err != nil {
		m.log.Warn("load sort order", "user_id", userID, "error", err)
		order = ""
	}
	picked := f.Select(list, SortOrder(order), m.opts.Catalog, func(id int) bool {
		_, ok := offered[id]
		return ok
	})
	if len(picked) == 0 {
		return res, ErrNothingMatched
	}

	if err := m.ask(ctx, m.opts.AddAllTimeout, Prompt{
		Kind:      PromptAddAll,
		ChannelID: channelID,
		Responder: who,
		Count:     len(picked),
	}); err != nil {
		return res, err
	}

	sess.mu.Lock()
	defer sess.mu.Unlock()
	if sess.closed {
		return res, ErrNotInTrade
	}
	// The list was read before the prompt; anything may have changed since.
	for _, p := range picked {
		tok := strconv.Itoa(p.ID)
		if sess.hasPokemon(userID, p.ID) {
			res.Rejected = append(res.Rejected, Rejection{Token: tok, Err: ErrAlreadyOffered})
			continue
		}
		cur, err := m.store.Pokemon(ctx, userID, p.ID)
		if errors.Is(err, models.ErrPokemonNotFound) {
			res.Rejected = append(res.Rejected, Rejection{Token: tok, Err: err})
			continue
		}
		if err != nil {
			m.log.Error("load pokemon", "user_id", userID, "pokemon_id", p.ID, "error", err)
			return Result{}, fmt.Errorf("load pokemon %d: %w", p.ID, err)
		}
		if cur.Guarded() {
			res.Rejected = append(res.Rejected, Rejection{Token: tok, Err: models.ErrPokemonGuarded})
			continue
		}
		l := pokemonLine(cur)
		sess.offers[userID] = append(sess.offers[userID], l)
		res.Changed = append(res.Changed, l)
	}
	if len(res.Changed) == 0 {
		return res, nil
	}
	res.Reversed = sess.resetConfirmations()
	m.rerender(ctx, sess, StatusOpen)
	return res, nil
}

// RemoveItems takes lines back off userID's side. A currency amount equal to
// the offered one removes the line, a smaller one decrements it.
func (m *Manager) RemoveItems(ctx context.Context, userID string, spec ItemSpec) (Result, error) {
	var res Result
	for _, tok := range spec.Invalid {
		res.Rejected = append(res.Rejected, Rejection{Token: tok, Err: ErrInvalidID})
	}

	sess, err := m.lockSession(userID)
	if err != nil {
		return res, err
	}
	defer sess.mu.Unlock()

	lines := sess.offers[userID]
	if spec.IsCurrency() {
		idx, offered := sess.offered(userID, spec.Currency)
		if idx < 0 || spec.Amount <= 0 || spec.Amount > offered {
			return res, ErrItemNotOffered
		}
		if spec.Amount == offered {
			sess.offers[userID] = append(lines[:idx:idx], lines[idx+1:]...)
		} else {
			lines[idx].Amount -= spec.Amount
		}
		res.Changed = append(res.Changed, currencyLine(spec.Currency, spec.Amount))
	} else {
		for _, id := range spec.IDs {
			idx := -1
			for i, l := range sess.offers[userID] {
				if l.Kind == LinePokemon && l.Pokemon.ID == id {
					idx = i
					break
				}
			}
			if idx < 0 {
				res.Rejected = append(res.Rejected, Rejection{Token: strconv.Itoa(id), Err: ErrItemNotOffered})
				continue
			}
			cur := sess.offers[userID]
			res.Changed = append(res.Changed, cur[idx])
			sess.offers[userID] = append(cur[:idx:idx], cur[idx+1:]...)
		}
		if len(res.Changed) == 0 {
			return res, ErrItemNotOffered
		}
	}

	res.Reversed = sess.resetConfirmations()
	m.rerender(ctx, sess, StatusOpen)
	return res, nil
}

// Confirm locks in userID's side. When both sides are confirmed the trade
// is settled and removed, whatever the settlement outcome.
func (m *Manager) Confirm(ctx context.Context, userID string) (ConfirmResult, error) {
	sess, err := m.lockSession(userID)
	if err != nil {
		return ConfirmResult{}, err
	}
	defer sess.mu.Unlock()

	res := ConfirmResult{Parties: sess.parties}
	sess.confirmed[userID] = true
	if !sess.bothConfirmed() {
		m.rerender(ctx, sess, StatusOpen)
		return res, nil
	}

	sess.closed = true
	m.remove(sess)

	// Settlement must not be interrupted by the triggering event going away.
	ctx = context.WithoutCancel(ctx)
	receipt := m.finalize(ctx, sess)
	status := StatusCompleted
	if receipt.Aborted {
		status = StatusAborted
	}
	m.rerender(ctx, sess, status)

	res.Completed = !receipt.Aborted
	res.Receipt = &receipt
	return res, nil
}

// Cancel discards userID's trade. No ledger change happens.
func (m *Manager) Cancel(ctx context.Context, userID string) ([2]Participant, error) {
	sess, err := m.lockSession(userID)
	if err != nil {
		return [2]Participant{}, err
	}
	defer sess.mu.Unlock()

	sess.closed = true
	m.remove(sess)
	m.log.Info("trade cancelled", "trade_id", sess.ID, "by", userID)
	m.update(ctx, sess, StatusCancelled)
	return sess.parties, nil
}

// Paginate moves a summary by delta pages. Only participants may page.
func (m *Manager) Paginate(ctx context.Context, sessionID uuid.UUID, userID string, delta int) error {
	m.mu.Lock()
	sess := m.byID[sessionID]
	m.mu.Unlock()
	if sess == nil {
		return ErrSessionNotFound
	}

	sess.mu.Lock()
	defer sess.mu.Unlock()
	if sess.closed {
		return ErrSessionNotFound
	}
	if !sess.has(userID) {
		return ErrNotParticipant
	}
	next := clampPage(sess.page+delta, sess.pages())
	if next == sess.page {
		return nil
	}
	sess.page = next
	m.update(ctx, sess, StatusOpen)
	return nil
}

// Current returns the open negotiation userID is part of.
func (m *Manager) Current(userID string) (View, bool) {
	m.mu.Lock()
	sess := m.members[userID]
	m.mu.Unlock()
	if sess == nil {
		return View{}, false
	}
	sess.mu.Lock()
	defer sess.mu.Unlock()
	if sess.closed {
		return View{}, false
	}
	return sess.view(StatusOpen), true
}

// ActiveCount returns the number of open negotiations.
func (m *Manager) ActiveCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.sessions)
}

func (m *Manager) isPendingLocked(userID string) bool {
	_, ok := m.pending[userID]
	return ok
}

// lockSession returns userID's open session with its mutex held.
func (m *Manager) lockSession(userID string) (*Session, error) {
	m.mu.Lock()
	sess := m.members[userID]
	m.mu.Unlock()
	if sess == nil {
		return nil, ErrNotInTrade
	}
	sess.mu.Lock()
	if sess.closed {
		sess.mu.Unlock()
		return nil, ErrNotInTrade
	}
	return sess, nil
}

func (m *Manager) remove(sess *Session) {
	m.mu.Lock()
	defer m.mu.Unlock()
	key := keyFor(sess.parties[0].ID, sess.parties[1].ID)
	if m.sessions[key] == sess {
		delete(m.sessions, key)
	}
	delete(m.byID, sess.ID)
	for _, p := range sess.parties {
		if m.members[p.ID] == sess {
			delete(m.members, p.ID)
		}
	}
}

func (m *Manager) ask(ctx context.Context, timeout time.Duration, p Prompt) error {
	pctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	ok, err := m.sink.Prompt(pctx, p)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return ErrTimedOut
		}
		return fmt.Errorf("prompt: %w", err)
	}
	if !ok {
		return ErrDeclined
	}
	return nil
}

// rerender replaces the summary message with a fresh one. Callers hold sess.mu.
func (m *Manager) rerender(ctx context.Context, sess *Session, status Status) {
	if !sess.summary.IsZero() {
		if err := m.sink.DiscardSummary(ctx, sess.summary); err != nil {
			m.log.Warn("discard trade summary", "trade_id", sess.ID, "error", err)
		}
	}
	ref, err := m.sink.RenderSummary(ctx, sess.view(status))
	if err != nil {
		m.log.Warn("render trade summary", "trade_id", sess.ID, "error", err)
		sess.summary = MessageRef{}
		return
	}
	sess.summary = ref
}

// update edits the summary in place. Callers hold sess.mu.
func (m *Manager) update(ctx context.Context, sess *Session, status Status) {
	if sess.summary.IsZero() {
		m.rerender(ctx, sess, status)
		return
	}
	if err := m.sink.UpdateSummary(ctx, sess.summary, sess.view(status)); err != nil {
		m.log.Warn("update trade summary", "trade_id", sess.ID, "error", err)
	}
}
