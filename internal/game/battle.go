package game

import (
	"sort"

	"go.uber.org/zap"

	"github.com/leaderbattle/battle-server-go/internal/game/catalog"
	"github.com/leaderbattle/battle-server-go/internal/game/effects"
	"github.com/leaderbattle/battle-server-go/internal/game/rules"
	"github.com/leaderbattle/battle-server-go/internal/game/state"
)

// battleReady reports whether every character zone of both players has an occupant and
// nobody still owes a forced SP play.
func (e *Engine) battleReady(m *state.MatchState) bool {
	for _, p := range m.Ordered() {
		if !p.Field.CharacterZonesFilled() || e.owesSP(p) {
			return false
		}
	}
	return true
}

// owesSP reports whether a forced SP play is still outstanding for p.
func (e *Engine) owesSP(p *state.PlayerState) bool {
	return p.MustPlaySP && !p.Field.Occupied(rules.ZoneSP) && p.HoldsCardType(e.catalog.Card, catalog.CardTypeSP)
}

func (e *Engine) anySPOccupied(m *state.MatchState) bool {
	for _, p := range m.Ordered() {
		if p.Field.Occupied(rules.ZoneSP) {
			return true
		}
	}
	return false
}

// runSPPhase fires spPhase rules of every face-up sp card, highest leader initial point
// first. Searches resolve automatically; nobody can answer a prompt mid-phase.
func (e *Engine) runSPPhase(m *state.MatchState) error {
	if err := e.transition(m, rules.PhaseSP); err != nil {
		return err
	}

	type spSource struct {
		src      effects.Source
		priority int
	}
	var queue []spSource
	for _, p := range m.Ordered() {
		cards := p.Field.Zone(rules.ZoneSP)
		for i := range cards {
			if cards[i].FaceDown {
				continue
			}
			queue = append(queue, spSource{src: effects.CardSource(p.ID, &cards[i]), priority: p.Leader.InitialPoint})
		}
	}
	sort.SliceStable(queue, func(i, j int) bool { return queue[i].priority > queue[j].priority })

	interp := e.interp.Auto()
	for _, item := range queue {
		fired, err := interp.Fire(m, item.src, rules.EventSPPhase)
		if err != nil {
			return err
		}
		owner := m.Players[item.src.Owner]
		owner.TurnAction = append(owner.TurnAction, state.ActionRecord{
			Type:   state.RecordSPEffect,
			Turn:   m.CurrentTurn,
			CardID: item.src.CardID,
		})
		e.publish(m, rules.Event{Type: rules.EventSPPhase, PlayerID: string(item.src.Owner), CardID: item.src.CardID, Zone: rules.ZoneSP})
		e.logger.Debug("sp effect resolved",
			zap.String("match_id", m.MatchID),
			zap.String("card_id", item.src.CardID),
			zap.Strings("effects", fired.Applied),
		)
	}
	for _, p := range m.Ordered() {
		p.MustPlaySP = false
	}
	return nil
}

// concludeBattle scores the leader battle, awards victory points and either ends the match
// or starts the next battle with the next leaders.
func (e *Engine) concludeBattle(m *state.MatchState) error {
	if err := e.transition(m, rules.PhaseLeaderBattleEnd); err != nil {
		return err
	}
	scores := e.scorer.Apply(m)
	a, b := m.Players[m.PlayerOrder[0]], m.Players[m.PlayerOrder[1]]
	pa, pb := scores[a.ID].Total, scores[b.ID].Total

	var winner *state.PlayerState
	diff := pa - pb
	switch {
	case diff > 0:
		winner = a
	case diff < 0:
		winner = b
		diff = -diff
	}
	label := state.DrawWinner
	if winner != nil {
		winner.VictoryPoints += diff
		label = string(winner.ID)
	}
	for _, p := range m.Ordered() {
		p.TurnAction = append(p.TurnAction, state.ActionRecord{
			Type:   state.RecordEndLeaderBattle,
			Turn:   m.CurrentTurn,
			Winner: label,
			Points: diff,
		})
	}
	e.publish(m, rules.Event{Type: rules.EventBattleConcluded, PlayerID: label, Amount: diff})
	e.logger.Info("leader battle concluded",
		zap.String("match_id", m.MatchID),
		zap.String("winner", label),
		zap.Int("points_first_seat", pa),
		zap.Int("points_second_seat", pb),
	)

	if winner != nil && winner.VictoryPoints >= e.settings.VictoryThreshold {
		return e.endGame(m, winner.ID)
	}

	for _, p := range m.Ordered() {
		p.Field.ClearCharacterZones()
		p.PlayerPoint = 0
	}
	if a.Deck.RosterExhausted() || b.Deck.RosterExhausted() {
		switch {
		case a.VictoryPoints > b.VictoryPoints:
			return e.endGame(m, a.ID)
		case b.VictoryPoints > a.VictoryPoints:
			return e.endGame(m, b.ID)
		}
		return e.endGame(m, "")
	}

	for _, p := range m.Ordered() {
		p.Deck.CurrentLeaderIdx++
		leader, err := e.catalog.Leader(p.Deck.Leaders[p.Deck.CurrentLeaderIdx])
		if err != nil {
			return err
		}
		p.Leader = leader
		e.publish(m, rules.Event{Type: rules.EventLeaderAdvanced, PlayerID: string(p.ID), CardID: leader.ID})
	}
	if err := e.transition(m, rules.PhaseMain); err != nil {
		return err
	}
	e.refresh(m)
	return e.advanceTurn(m)
}

// endGame finishes the match. An empty winner is a draw.
func (e *Engine) endGame(m *state.MatchState, winner state.PlayerID) error {
	if err := e.transition(m, rules.PhaseGameEnd); err != nil {
		return err
	}
	m.WinnerID = winner
	m.IsDraw = winner == ""
	m.PendingSelection = nil
	e.refresh(m)
	e.publish(m, rules.Event{Type: rules.EventGameEnded, PlayerID: string(winner)})
	e.logger.Info("match ended",
		zap.String("match_id", m.MatchID),
		zap.String("winner", string(winner)),
		zap.Bool("draw", m.IsDraw),
	)
	return nil
}

// advanceTurn passes play to the other player, who draws a card. A player left without
// a legal placement after the draw is skipped; when both are skipped the battle
// concludes as it stands.
func (e *Engine) advanceTurn(m *state.MatchState) error {
	for i := 0; i < len(m.PlayerOrder); i++ {
		turn := m.AdvanceHalfTurn()
		p := m.Players[m.PlayerOrder[rules.ActingIndex(turn, m.FirstPlayerIndex)]]
		m.CurrentPlayerID = p.ID
		e.publish(m, rules.Event{Type: rules.EventTurnChanged, PlayerID: string(p.ID)})

		if !p.Field.CharacterZonesFilled() || e.owesSP(p) {
			e.draw(m, p.ID)
			if len(e.LegalActions(m, p.ID)) > 0 {
				return nil
			}
		}
		p.TurnAction = append(p.TurnAction, state.ActionRecord{Type: state.RecordTurnSkipped, Turn: turn})
		e.publish(m, rules.Event{Type: rules.EventTurnSkipped, PlayerID: string(p.ID)})
		e.logger.Debug("turn skipped",
			zap.String("match_id", m.MatchID),
			zap.String("player_id", string(p.ID)),
			zap.Float64("turn", turn),
		)
	}
	return e.concludeBattle(m)
}
