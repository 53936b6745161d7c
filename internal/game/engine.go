package game

import (
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/leaderbattle/battle-server-go/internal/game/catalog"
	"github.com/leaderbattle/battle-server-go/internal/game/effects"
	"github.com/leaderbattle/battle-server-go/internal/game/placement"
	"github.com/leaderbattle/battle-server-go/internal/game/rules"
	"github.com/leaderbattle/battle-server-go/internal/game/scoring"
	"github.com/leaderbattle/battle-server-go/internal/game/state"
)

// ActionType names a player action.
type ActionType string

const (
	ActionPlayCard     ActionType = "PlayCard"
	ActionPlayCardBack ActionType = "PlayCardBack"
	ActionSelectCard   ActionType = "SelectCard"
)

// Action is a player's move. Zone indices: 0=top, 1=left, 2=right, 3=help, 4=sp.
type Action struct {
	Type            ActionType `json:"type"`
	CardIndexInHand int        `json:"cardIndexInHand"`
	ZoneIndex       int        `json:"zoneIndex"`
	SelectionID     string     `json:"selectionId,omitempty"`
	SelectedCardIDs []string   `json:"selectedCardIds,omitempty"`
}

// Settings tunes match rules.
type Settings struct {
	VictoryThreshold int
	StartingHand     int
	LeaderRoster     int
	Combos           scoring.Bonuses
}

// DefaultSettings returns the standard match rules.
func DefaultSettings() Settings {
	return Settings{
		VictoryThreshold: 50,
		StartingHand:     7,
		LeaderRoster:     5,
		Combos:           scoring.DefaultBonuses(),
	}
}

// Option configures an Engine.
type Option func(*Engine)

// WithRand injects the random source used for shuffles, tie-breaks and random effects.
func WithRand(rng effects.Random) Option {
	return func(e *Engine) { e.rng = rng }
}

// WithSettings overrides the default match rules.
func WithSettings(s Settings) Option {
	return func(e *Engine) { e.settings = s }
}

// WithAutoSelect makes deck searches resolve at random instead of waiting for a SelectCard.
func WithAutoSelect(auto bool) Option {
	return func(e *Engine) { e.autoSelect = auto }
}

// WithEventBus publishes match events while actions are applied.
func WithEventBus(bus *rules.EventBus) Option {
	return func(e *Engine) { e.bus = bus }
}

// WithClock overrides the time source used for LastUpdate stamps.
func WithClock(now func() time.Time) Option {
	return func(e *Engine) { e.now = now }
}

// Engine is the match orchestrator. It is stateless between calls: every call takes a
// MatchState and returns a new one, leaving its input unchanged.
type Engine struct {
	catalog    catalog.Catalog
	logger     *zap.Logger
	rng        effects.Random
	settings   Settings
	autoSelect bool
	bus        *rules.EventBus
	now        func() time.Time
	pending    *[]rules.Event

	interp    *effects.Interpreter
	validator *placement.Validator
	scorer    *scoring.Calculator
}

// NewEngine creates an engine backed by a pre-loaded catalog.
func NewEngine(cat catalog.Catalog, logger *zap.Logger, opts ...Option) *Engine {
	if logger == nil {
		logger = zap.NewNop()
	}
	e := &Engine{
		catalog:  cat,
		logger:   logger,
		settings: DefaultSettings(),
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(e)
	}
	if e.rng == nil {
		e.rng = NewRand(0)
	}
	e.interp = effects.NewInterpreter(cat, e.rng, logger, e.autoSelect)
	e.validator = placement.NewValidator(e.interp)
	e.scorer = scoring.NewCalculator(e.interp, e.settings.Combos)
	return e
}

// Bus returns the event bus the engine publishes to, or nil.
func (e *Engine) Bus() *rules.EventBus {
	return e.bus
}

// Settings returns the engine's match rules.
func (e *Engine) Settings() Settings {
	return e.settings
}

// Fork returns an engine sharing catalog and settings but using rng, with automatic
// search selection and no event publishing. Hypothetical play (AI search) uses it.
func (e *Engine) Fork(rng effects.Random) *Engine {
	return NewEngine(e.catalog, zap.NewNop(),
		WithRand(rng),
		WithSettings(e.settings),
		WithAutoSelect(true),
		WithClock(e.now),
	)
}

// Score evaluates both players without mutating m.
func (e *Engine) Score(m *state.MatchState) map[state.PlayerID]scoring.PlayerScore {
	return e.scorer.Evaluate(m)
}

// CalculatePlayerPoint returns the current point total of player.
func (e *Engine) CalculatePlayerPoint(m *state.MatchState, player state.PlayerID) int {
	return e.scorer.CalculatePlayerPoint(m, player)
}

// CheckPlacement exposes the placement validator.
func (e *Engine) CheckPlacement(m *state.MatchState, player state.PlayerID, card catalog.CardDefinition, zone rules.Zone, faceDown bool) placement.Result {
	return e.validator.CheckPlacement(m, player, card, zone, faceDown)
}

// Stamp assigns a fresh update id and timestamp before a state is persisted.
func (e *Engine) Stamp(m *state.MatchState) {
	m.UpdateID = uuid.NewString()
	m.LastUpdate = e.now().UTC()
}

// batch returns a copy of e that holds its events back. flush publishes them; callers
// only flush once the whole call has succeeded.
func (e *Engine) batch() (run *Engine, flush func()) {
	if e.bus == nil {
		return e, func() {}
	}
	var pending []rules.Event
	cp := *e
	cp.pending = &pending
	return &cp, func() { e.bus.PublishBatch(pending) }
}

func (e *Engine) publish(m *state.MatchState, evt rules.Event) {
	if e.bus == nil {
		return
	}
	if e.pending != nil {
		*e.pending = append(*e.pending, e.stampEvent(m, evt))
		return
	}
	e.bus.Publish(e.stampEvent(m, evt))
}

// publishNow bypasses any batch. Rejections use it to report why they were rejected.
func (e *Engine) publishNow(m *state.MatchState, evt rules.Event) {
	if e.bus != nil {
		e.bus.Publish(e.stampEvent(m, evt))
	}
}

func (e *Engine) stampEvent(m *state.MatchState, evt rules.Event) rules.Event {
	evt.MatchID = m.MatchID
	evt.Phase = m.Phase
	evt.Turn = m.CurrentTurn
	evt.Timestamp = e.now()
	return evt
}

// refresh recomputes restriction tables and points after any mutation.
func (e *Engine) refresh(m *state.MatchState) {
	e.interp.RefreshRestrictions(m)
	e.scorer.Apply(m)
}
