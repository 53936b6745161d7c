package game

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/leaderbattle/battle-server-go/internal/game/catalog"
	"github.com/leaderbattle/battle-server-go/internal/game/rules"
	"github.com/leaderbattle/battle-server-go/internal/game/state"
)

// Notification types emitted by the manager besides the engine's event types.
const (
	NotificationMatchUpdated = "MATCH_UPDATED"
	NotificationMatchCreated = "MATCH_CREATED"
)

// ErrNoAdvisor is returned by SuggestAction when no MoveAdvisor is configured.
var ErrNoAdvisor = errors.New("no move advisor configured")

// GameNotification is a message for UI/websocket clients.
type GameNotification struct {
	Type      string                 // engine event type or one of the Notification* constants
	GameID    string                 // match id
	PlayerID  string                 // acting player, empty for broadcasts
	Timestamp time.Time              // when the notification was created
	Data      map[string]interface{} // notification-specific data
}

// NotificationHandler receives notifications. It is invoked on its own goroutine.
type NotificationHandler func(notification GameNotification)

// MoveAdvisor suggests an action for a player. The AI searcher implements it.
type MoveAdvisor interface {
	Suggest(ctx context.Context, m *state.MatchState, player state.PlayerID) (Action, error)
}

// ManagerOption configures a Manager.
type ManagerOption func(*Manager)

// WithDeckSource lets CreateMatchForPlayers look up deck lists by player id.
func WithDeckSource(decks catalog.DeckSource) ManagerOption {
	return func(m *Manager) { m.decks = decks }
}

// WithAdvisor enables SuggestAction.
func WithAdvisor(advisor MoveAdvisor) ManagerOption {
	return func(m *Manager) { m.advisor = advisor }
}

// WithReplays records every accepted state and saves finished matches.
func WithReplays(recorder *ReplayRecorder) ManagerOption {
	return func(m *Manager) { m.replays = recorder }
}

// Manager owns match persistence and serializes actions per match id. The engine itself
// keeps no state between calls.
type Manager struct {
	engine  *Engine
	store   Store
	logger  *zap.Logger
	decks   catalog.DeckSource
	advisor MoveAdvisor
	replays *ReplayRecorder

	locks sync.Map // match id -> *sync.Mutex

	mu                  sync.RWMutex
	notificationHandler NotificationHandler
	subscription        int

	heldMu sync.Mutex
	held   map[string][]GameNotification // engine notifications waiting for a commit
}

// NewManager wires an engine to a store.
func NewManager(engine *Engine, store Store, logger *zap.Logger, opts ...ManagerOption) *Manager {
	if logger == nil {
		logger = zap.NewNop()
	}
	mgr := &Manager{
		engine:       engine,
		store:        store,
		logger:       logger,
		subscription: -1,
		held:         make(map[string][]GameNotification),
	}
	for _, opt := range opts {
		opt(mgr)
	}
	if bus := engine.Bus(); bus != nil {
		mgr.subscription = bus.Subscribe(mgr.forwardEvent)
	}
	return mgr
}

// Close detaches the manager from the engine's event bus.
func (mgr *Manager) Close() {
	if bus := mgr.engine.Bus(); bus != nil && mgr.subscription >= 0 {
		bus.Unsubscribe(mgr.subscription)
		mgr.subscription = -1
	}
}

// Engine returns the underlying engine.
func (mgr *Manager) Engine() *Engine {
	return mgr.engine
}

// SetNotificationHandler sets the handler for match notifications.
func (mgr *Manager) SetNotificationHandler(handler NotificationHandler) {
	mgr.mu.Lock()
	defer mgr.mu.Unlock()
	mgr.notificationHandler = handler
}

func (mgr *Manager) emitNotification(n GameNotification) {
	mgr.mu.RLock()
	handler := mgr.notificationHandler
	mgr.mu.RUnlock()

	if handler != nil {
		go handler(n)
	}
}

func (mgr *Manager) forwardEvent(evt rules.Event) {
	data := map[string]interface{}{
		"phase": evt.Phase.String(),
		"turn":  evt.Turn,
	}
	if evt.CardID != "" {
		data["card_id"] = evt.CardID
	}
	if evt.Zone != "" {
		data["zone"] = string(evt.Zone)
	}
	if evt.Amount != 0 {
		data["amount"] = evt.Amount
	}
	if evt.Data != "" {
		data["detail"] = evt.Data
	}
	n := GameNotification{
		Type:      string(evt.Type),
		GameID:    evt.MatchID,
		PlayerID:  evt.PlayerID,
		Timestamp: evt.Timestamp,
		Data:      data,
	}
	// A blocked placement is reported although nothing gets committed.
	if evt.Type != rules.EventRestrictionBlock && mgr.buffer(n) {
		return
	}
	mgr.emitNotification(n)
}

// hold starts buffering engine notifications of matchID.
func (mgr *Manager) hold(matchID string) {
	mgr.heldMu.Lock()
	defer mgr.heldMu.Unlock()
	mgr.held[matchID] = nil
}

func (mgr *Manager) buffer(n GameNotification) bool {
	mgr.heldMu.Lock()
	defer mgr.heldMu.Unlock()
	pending, ok := mgr.held[n.GameID]
	if !ok {
		return false
	}
	mgr.held[n.GameID] = append(pending, n)
	return true
}

// release ends the hold on matchID. Buffered notifications are emitted only if the
// update was committed.
func (mgr *Manager) release(matchID string, committed bool) {
	mgr.heldMu.Lock()
	pending := mgr.held[matchID]
	delete(mgr.held, matchID)
	mgr.heldMu.Unlock()

	if !committed {
		return
	}
	for _, n := range pending {
		mgr.emitNotification(n)
	}
}

// lock serializes work on matchID. Entries are pruned while held, so a waiter that wakes
// up on a pruned mutex retries with the current one.
func (mgr *Manager) lock(matchID string) func() {
	for {
		v, _ := mgr.locks.LoadOrStore(matchID, &sync.Mutex{})
		mu := v.(*sync.Mutex)
		mu.Lock()
		if cur, ok := mgr.locks.Load(matchID); ok && cur == v {
			return mu.Unlock
		}
		mu.Unlock()
	}
}

// CreateMatch starts a match for two deck lists and persists it.
func (mgr *Manager) CreateMatch(ctx context.Context, decks []catalog.DeckSnapshot) (*state.MatchState, error) {
	m, err := mgr.engine.InitializeMatch("", decks)
	if err != nil {
		return nil, err
	}
	unlock := mgr.lock(m.MatchID)
	defer unlock()

	if err := mgr.commit(ctx, m, NotificationMatchCreated); err != nil {
		return nil, err
	}
	if mgr.replays != nil {
		mgr.replays.StartRecording(m.MatchID)
		mgr.replays.RecordState(m.MatchID, m)
	}
	mgr.logger.Info("match created",
		zap.String("match_id", m.MatchID),
		zap.String("first_player", string(m.CurrentPlayerID)),
	)
	return m, nil
}

// CreateMatchForPlayers looks up both players' decks and starts a match.
func (mgr *Manager) CreateMatchForPlayers(ctx context.Context, players []string) (*state.MatchState, error) {
	if mgr.decks == nil {
		return nil, fmt.Errorf("no deck source configured")
	}
	decks := make([]catalog.DeckSnapshot, 0, len(players))
	for _, id := range players {
		deck, err := mgr.decks.Deck(id)
		if err != nil {
			return nil, err
		}
		deck.PlayerID = id
		decks = append(decks, deck)
	}
	return mgr.CreateMatch(ctx, decks)
}

// GetMatch returns the stored state of a match.
func (mgr *Manager) GetMatch(ctx context.Context, matchID string) (*state.MatchState, error) {
	return mgr.store.Load(ctx, matchID)
}

// SubmitRedraw applies a redraw decision.
func (mgr *Manager) SubmitRedraw(ctx context.Context, matchID string, player state.PlayerID, wantsRedraw bool) (*state.MatchState, error) {
	return mgr.update(ctx, matchID, func(m *state.MatchState) (*state.MatchState, error) {
		return mgr.engine.SubmitRedraw(m, player, wantsRedraw)
	})
}

// ApplyAction applies a player action.
func (mgr *Manager) ApplyAction(ctx context.Context, matchID string, player state.PlayerID, action Action) (*state.MatchState, error) {
	return mgr.update(ctx, matchID, func(m *state.MatchState) (*state.MatchState, error) {
		return mgr.engine.ApplyAction(m, player, action)
	})
}

// SuggestAction asks the configured advisor for player's best move.
func (mgr *Manager) SuggestAction(ctx context.Context, matchID string, player state.PlayerID) (Action, error) {
	if mgr.advisor == nil {
		return Action{}, ErrNoAdvisor
	}
	m, err := mgr.store.Load(ctx, matchID)
	if err != nil {
		return Action{}, err
	}
	return mgr.advisor.Suggest(ctx, m, player)
}

// InjectState overwrites a match with an externally built state after validating it.
func (mgr *Manager) InjectState(ctx context.Context, m *state.MatchState) (*state.MatchState, error) {
	if err := ValidateState(m); err != nil {
		return nil, err
	}
	unlock := mgr.lock(m.MatchID)
	defer unlock()

	next := m.Clone()
	mgr.engine.refresh(next)
	if err := mgr.commit(ctx, next, NotificationMatchUpdated); err != nil {
		return nil, err
	}
	mgr.logger.Warn("match state injected", zap.String("match_id", next.MatchID))
	return next, nil
}

// Replay returns the replay of a match. Finished matches are read back from the replay
// directory.
func (mgr *Manager) Replay(matchID string) (*Replay, bool) {
	if mgr.replays == nil {
		return nil, false
	}
	if replay, ok := mgr.replays.GetReplay(matchID); ok {
		return replay, true
	}
	if mgr.replays.saveDir == "" {
		return nil, false
	}
	replay, err := mgr.replays.LoadReplay(matchID)
	if err != nil {
		mgr.logger.Debug("no saved replay", zap.String("match_id", matchID), zap.Error(err))
		return nil, false
	}
	return replay, true
}

// DeleteMatch removes a match from the store and forgets its replay and lock.
func (mgr *Manager) DeleteMatch(ctx context.Context, matchID string) error {
	unlock := mgr.lock(matchID)
	defer unlock()

	if err := mgr.store.Delete(ctx, matchID); err != nil {
		return err
	}
	if mgr.replays != nil {
		mgr.replays.ClearReplay(matchID)
	}
	mgr.locks.Delete(matchID)
	mgr.logger.Info("match deleted", zap.String("match_id", matchID))
	return nil
}

func (mgr *Manager) update(ctx context.Context, matchID string, fn func(*state.MatchState) (*state.MatchState, error)) (*state.MatchState, error) {
	unlock := mgr.lock(matchID)
	defer unlock()

	committed := false
	mgr.hold(matchID)
	defer func() { mgr.release(matchID, committed) }()

	m, err := mgr.store.Load(ctx, matchID)
	if err != nil {
		return nil, err
	}
	next, err := fn(m)
	if err != nil {
		return nil, err
	}
	if err := mgr.commit(ctx, next, NotificationMatchUpdated); err != nil {
		return nil, err
	}
	committed = true
	if mgr.replays != nil {
		mgr.replays.RecordState(matchID, next)
		if next.Ended() && mgr.replays.saveDir != "" {
			if err := mgr.replays.SaveReplay(matchID); err != nil {
				mgr.logger.Warn("failed to save replay", zap.String("match_id", matchID), zap.Error(err))
			}
		}
	}
	if next.Ended() {
		mgr.locks.Delete(matchID)
	}
	return next, nil
}

func (mgr *Manager) commit(ctx context.Context, m *state.MatchState, notification string) error {
	mgr.engine.Stamp(m)
	if err := mgr.store.Save(ctx, m); err != nil {
		return fmt.Errorf("failed to save match %s: %w", m.MatchID, err)
	}
	mgr.emitNotification(GameNotification{
		Type:      notification,
		GameID:    m.MatchID,
		PlayerID:  string(m.CurrentPlayerID),
		Timestamp: m.LastUpdate,
		Data: map[string]interface{}{
			"update_id": m.UpdateID,
			"phase":     m.Phase.String(),
			"turn":      m.CurrentTurn,
		},
	})
	return nil
}
