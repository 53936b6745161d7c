package game

import (
	"go.uber.org/zap"

	"github.com/leaderbattle/battle-server-go/internal/game/effects"
	"github.com/leaderbattle/battle-server-go/internal/game/rules"
	"github.com/leaderbattle/battle-server-go/internal/game/state"
)

// ApplyAction validates and applies a player action. It returns a new state; m is never
// modified. Rejections are *ActionError values.
func (e *Engine) ApplyAction(m *state.MatchState, player state.PlayerID, action Action) (*state.MatchState, error) {
	if m == nil {
		return nil, invalidAction("no match state")
	}
	if m.Ended() {
		return nil, outOfTurn("match %s is over", m.MatchID)
	}
	if _, ok := m.Player(player); !ok {
		return nil, invalidAction("player %s is not in match %s", player, m.MatchID)
	}

	var (
		next *state.MatchState
		err  error
	)
	run, flush := e.batch()
	switch action.Type {
	case ActionPlayCard, ActionPlayCardBack:
		next, err = run.playCard(m, player, action)
	case ActionSelectCard:
		next, err = run.selectCard(m, player, action)
	default:
		return nil, invalidAction("unknown action type %q", action.Type)
	}
	if err != nil {
		e.logger.Debug("action rejected",
			zap.String("match_id", m.MatchID),
			zap.String("player_id", string(player)),
			zap.String("action", string(action.Type)),
			zap.Error(err),
		)
		return nil, asActionError(err)
	}
	flush()
	return next, nil
}

func (e *Engine) playCard(m *state.MatchState, player state.PlayerID, action Action) (*state.MatchState, error) {
	if m.Phase != rules.PhaseMain {
		return nil, outOfTurn("cards can only be played during %s, match is in %s", rules.PhaseMain, m.Phase)
	}
	if m.PendingSelection != nil {
		return nil, outOfTurn("waiting for %s to resolve a card search", m.PendingSelection.PlayerID)
	}
	if m.CurrentPlayerID != player {
		return nil, outOfTurn("it is %s's turn", m.CurrentPlayerID)
	}
	p := m.Players[player]
	if action.CardIndexInHand < 0 || action.CardIndexInHand >= len(p.Deck.Hand) {
		return nil, invalidAction("hand card out of range: index %d, hand holds %d", action.CardIndexInHand, len(p.Deck.Hand))
	}
	zone, ok := rules.ZoneFromIndex(action.ZoneIndex)
	if !ok {
		return nil, invalidAction("zone index %d out of range", action.ZoneIndex)
	}
	cardID := p.Deck.Hand[action.CardIndexInHand]
	def, err := e.catalog.Card(cardID)
	if err != nil {
		return nil, err
	}
	faceDown := action.Type == ActionPlayCardBack

	result := e.validator.CheckPlacement(m, player, def, zone, faceDown)
	if !result.Allowed {
		if key, ok := result.Details["restriction"]; ok {
			e.publishNow(m, rules.Event{Type: rules.EventRestrictionBlock, PlayerID: string(player), CardID: cardID, Zone: zone, Data: key})
		}
		return nil, illegalPlacement(result.Reason, result.Details)
	}

	next := m.Clone()
	np := next.Players[player]
	np.Deck.Hand = append(np.Deck.Hand[:action.CardIndexInHand:action.CardIndexInHand], np.Deck.Hand[action.CardIndexInHand+1:]...)
	if !np.Field.Place(zone, state.PlacedCard{CardID: cardID, Definition: def, FaceDown: faceDown}) {
		return nil, illegalPlacement("Unknown zone", map[string]string{"zone": string(zone)})
	}
	np.TurnAction = append(np.TurnAction, state.ActionRecord{
		Type:            string(action.Type),
		Turn:            next.CurrentTurn,
		CardIndexInHand: action.CardIndexInHand,
		ZoneIndex:       action.ZoneIndex,
		CardID:          cardID,
		FaceDown:        faceDown,
		Override:        result.Override,
	})
	e.publish(next, rules.Event{Type: rules.EventCardPlaced, PlayerID: string(player), CardID: cardID, Zone: zone})
	if result.Override != nil {
		e.logger.Debug("restriction overridden",
			zap.String("match_id", m.MatchID),
			zap.String("card_id", cardID),
			zap.String("source", result.Override.SourceCardID),
		)
	}

	if !faceDown {
		placed := np.Field.Zone(zone)
		src := effects.CardSource(player, &placed[len(placed)-1])
		fired, err := e.interp.Fire(next, src, rules.PlayEventFor(string(def.CardType)))
		if err != nil {
			return nil, err
		}
		if fired.Pending != nil {
			next.PendingSelection = fired.Pending
			e.refresh(next)
			return next, nil
		}
	}

	if err := e.afterPlacement(next, player); err != nil {
		return nil, err
	}
	return next, nil
}

func (e *Engine) selectCard(m *state.MatchState, player state.PlayerID, action Action) (*state.MatchState, error) {
	sel := m.PendingSelection
	if sel == nil {
		return nil, invalidAction("no card search is pending")
	}
	if sel.PlayerID != player {
		return nil, outOfTurn("card search belongs to %s", sel.PlayerID)
	}
	if action.SelectionID != "" && action.SelectionID != sel.ID {
		return nil, invalidAction("selection %s is not pending", action.SelectionID)
	}

	next := m.Clone()
	np := next.Players[player]
	if err := effects.ResolveSelection(np, next.PendingSelection, action.SelectedCardIDs); err != nil {
		return nil, invalidAction("%s", err.Error())
	}
	next.PendingSelection = nil
	np.TurnAction = append(np.TurnAction, state.ActionRecord{
		Type:   string(ActionSelectCard),
		Turn:   next.CurrentTurn,
		CardID: sel.SourceCardID,
	})
	e.publish(next, rules.Event{Type: rules.EventCardSelected, PlayerID: string(player), CardID: sel.SourceCardID, Amount: len(action.SelectedCardIDs)})

	if err := e.afterPlacement(next, player); err != nil {
		return nil, err
	}
	return next, nil
}

// afterPlacement recomputes points and either advances the turn or starts the battle.
func (e *Engine) afterPlacement(m *state.MatchState, actor state.PlayerID) error {
	e.refresh(m)
	if e.battleReady(m) {
		if e.anySPOccupied(m) {
			if err := e.runSPPhase(m); err != nil {
				return err
			}
		}
		return e.concludeBattle(m)
	}
	if placedThisTurn(m.Players[actor], m.CurrentTurn) {
		return e.advanceTurn(m)
	}
	return nil
}

func placedThisTurn(p *state.PlayerState, turn float64) bool {
	for i := len(p.TurnAction) - 1; i >= 0; i-- {
		rec := p.TurnAction[i]
		if rec.Turn != turn {
			return false
		}
		switch ActionType(rec.Type) {
		case ActionPlayCard, ActionPlayCardBack, ActionSelectCard:
			return true
		}
	}
	return false
}
