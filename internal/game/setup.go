package game

import (
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/leaderbattle/battle-server-go/internal/game/catalog"
	"github.com/leaderbattle/battle-server-go/internal/game/effects"
	"github.com/leaderbattle/battle-server-go/internal/game/rules"
	"github.com/leaderbattle/battle-server-go/internal/game/state"
)

// InitializeMatch creates a match for exactly two deck lists. The first player is the owner
// of the leader with the higher initial point; a tie is broken at random.
func (e *Engine) InitializeMatch(matchID string, decks []catalog.DeckSnapshot) (*state.MatchState, error) {
	if len(decks) != 2 {
		return nil, invalidAction("a match needs exactly 2 decks, got %d", len(decks))
	}
	if decks[0].PlayerID == "" || decks[1].PlayerID == "" {
		return nil, invalidAction("deck without player id")
	}
	if decks[0].PlayerID == decks[1].PlayerID {
		return nil, invalidAction("both decks belong to %s", decks[0].PlayerID)
	}
	if matchID == "" {
		matchID = uuid.NewString()
	}

	m := &state.MatchState{
		MatchID:    matchID,
		PhaseState: rules.NewPhaseState(),
		Players:    make(map[state.PlayerID]*state.PlayerState, 2),
	}
	for _, snap := range decks {
		if len(snap.Leaders) == 0 {
			return nil, invalidAction("deck of %s has no leaders", snap.PlayerID)
		}
		for _, id := range snap.Cards {
			if _, err := e.catalog.Card(id); err != nil {
				return nil, asActionError(err)
			}
		}
		deck := prepareDeck(snap, e.settings, e.rng)
		leader, err := e.catalog.Leader(deck.Leaders[0])
		if err != nil {
			return nil, asActionError(err)
		}
		id := state.PlayerID(snap.PlayerID)
		m.PlayerOrder = append(m.PlayerOrder, id)
		m.Players[id] = &state.PlayerState{
			ID:           id,
			Deck:         deck,
			Leader:       leader,
			Field:        state.NewField(),
			TurnAction:   []state.ActionRecord{},
			Restrictions: map[state.RestrictionKey]state.Restriction{},
		}
	}

	a, b := m.Players[m.PlayerOrder[0]], m.Players[m.PlayerOrder[1]]
	switch {
	case a.Leader.InitialPoint > b.Leader.InitialPoint:
		m.FirstPlayerIndex = 0
	case b.Leader.InitialPoint > a.Leader.InitialPoint:
		m.FirstPlayerIndex = 1
	default:
		m.FirstPlayerIndex = e.rng.Intn(2)
	}
	m.CurrentPlayerID = m.PlayerOrder[m.FirstPlayerIndex]

	e.refresh(m)
	e.logger.Debug("match initialized",
		zap.String("match_id", m.MatchID),
		zap.String("first_player", string(m.CurrentPlayerID)),
	)
	return m, nil
}

// SubmitRedraw records a player's redraw decision. Once both players answered, the match
// enters MAIN_PHASE and the first player draws one card.
func (e *Engine) SubmitRedraw(m *state.MatchState, player state.PlayerID, wantsRedraw bool) (*state.MatchState, error) {
	if m == nil {
		return nil, invalidAction("no match state")
	}
	if m.Phase != rules.PhaseStartRedraw {
		return nil, outOfTurn("redraw is only allowed during %s", rules.PhaseStartRedraw)
	}
	p, ok := m.Player(player)
	if !ok {
		return nil, invalidAction("player %s is not in match %s", player, m.MatchID)
	}
	if p.HasRedrawn() {
		return nil, invalidAction("player %s already answered the redraw", player)
	}

	run, flush := e.batch()
	next := m.Clone()
	np := next.Players[player]
	if wantsRedraw {
		redraw(np, e.rng)
		np.TurnAction = append(np.TurnAction, state.ActionRecord{Type: state.RecordRedraw, Turn: next.CurrentTurn})
	}
	np.Redraw = &wantsRedraw

	if allRedrawn(next) {
		if err := run.startMain(next); err != nil {
			return nil, asActionError(err)
		}
	}
	e.refresh(next)
	flush()
	return next, nil
}

func allRedrawn(m *state.MatchState) bool {
	for _, p := range m.Ordered() {
		if !p.HasRedrawn() {
			return false
		}
	}
	return true
}

func (e *Engine) startMain(m *state.MatchState) error {
	if err := e.transition(m, rules.PhaseMain); err != nil {
		return err
	}
	m.CurrentTurn = 0
	m.CurrentPlayerID = m.PlayerOrder[m.FirstPlayerIndex]
	e.draw(m, m.CurrentPlayerID)
	e.publish(m, rules.Event{Type: rules.EventTurnChanged, PlayerID: string(m.CurrentPlayerID)})
	return nil
}

// transition moves to phase and logs the change on both players' turn logs.
func (e *Engine) transition(m *state.MatchState, to rules.Phase) error {
	if err := m.Transition(to); err != nil {
		return err
	}
	for _, p := range m.Ordered() {
		p.TurnAction = append(p.TurnAction, state.ActionRecord{
			Type:  state.RecordPhaseChange,
			Turn:  m.CurrentTurn,
			Phase: to.String(),
		})
	}
	e.publish(m, rules.Event{Type: rules.EventPhaseChanged, Data: to.String()})
	e.logger.Debug("phase changed",
		zap.String("match_id", m.MatchID),
		zap.Stringer("phase", to),
		zap.Float64("turn", m.CurrentTurn),
	)
	return nil
}

func (e *Engine) draw(m *state.MatchState, player state.PlayerID) int {
	return effects.DrawCards(m.Players[player], 1)
}
