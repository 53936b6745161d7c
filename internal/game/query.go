package game

import (
	"fmt"

	"github.com/leaderbattle/battle-server-go/internal/game/rules"
	"github.com/leaderbattle/battle-server-go/internal/game/state"
)

// LegalActions lists every action player may take in m. Duplicate card ids in hand are
// only listed once. A pending search yields a single SelectCard action taking the first
// eligible cards.
func (e *Engine) LegalActions(m *state.MatchState, player state.PlayerID) []Action {
	if m == nil || m.Ended() || m.Phase != rules.PhaseMain {
		return nil
	}
	if sel := m.PendingSelection; sel != nil {
		if sel.PlayerID != player {
			return nil
		}
		n := sel.SelectCount
		if n > len(sel.Eligible) {
			n = len(sel.Eligible)
		}
		return []Action{{
			Type:            ActionSelectCard,
			SelectionID:     sel.ID,
			SelectedCardIDs: append([]string(nil), sel.Eligible[:n]...),
		}}
	}
	if m.CurrentPlayerID != player {
		return nil
	}
	p, ok := m.Player(player)
	if !ok {
		return nil
	}

	var actions []Action
	seen := make(map[string]bool, len(p.Deck.Hand))
	for idx, cardID := range p.Deck.Hand {
		if seen[cardID] {
			continue
		}
		seen[cardID] = true
		def, err := e.catalog.Card(cardID)
		if err != nil {
			continue
		}
		for _, zone := range rules.AllZones() {
			for _, faceDown := range []bool{false, true} {
				if !e.validator.CheckPlacement(m, player, def, zone, faceDown).Allowed {
					continue
				}
				typ := ActionPlayCard
				if faceDown {
					typ = ActionPlayCardBack
				}
				actions = append(actions, Action{Type: typ, CardIndexInHand: idx, ZoneIndex: zone.Index()})
			}
		}
	}
	return actions
}

// ValidateState checks the structural invariants of an externally supplied match state.
func ValidateState(m *state.MatchState) error {
	if m == nil {
		return invalidAction("no match state")
	}
	if m.MatchID == "" {
		return invalidAction("match id is empty")
	}
	if _, err := m.Phase.MarshalText(); err != nil {
		return invalidAction("%s", err.Error())
	}
	if len(m.PlayerOrder) != 2 || len(m.Players) != 2 {
		return invalidAction("a match needs exactly 2 players")
	}
	if m.FirstPlayerIndex != 0 && m.FirstPlayerIndex != 1 {
		return invalidAction("first player index %d out of range", m.FirstPlayerIndex)
	}
	for _, id := range m.PlayerOrder {
		p, ok := m.Players[id]
		if !ok || p == nil {
			return invalidAction("player %s listed in order but missing", id)
		}
		if err := validateField(&p.Field); err != nil {
			return invalidAction("player %s: %v", id, err)
		}
		if len(p.Deck.Leaders) > 0 && (p.Deck.CurrentLeaderIdx < 0 || p.Deck.CurrentLeaderIdx >= len(p.Deck.Leaders)) {
			return invalidAction("player %s: leader index %d out of range", id, p.Deck.CurrentLeaderIdx)
		}
	}
	if m.CurrentPlayerID != "" {
		if _, ok := m.Players[m.CurrentPlayerID]; !ok {
			return invalidAction("current player %s is not in match", m.CurrentPlayerID)
		}
	}
	if m.WinnerID != "" {
		if _, ok := m.Players[m.WinnerID]; !ok {
			return invalidAction("winner %s is not in match", m.WinnerID)
		}
	}
	return nil
}

func validateField(f *state.Field) error {
	for _, zone := range rules.CharacterZones {
		faceUp := 0
		for _, card := range f.Zone(zone) {
			if card.IsScoringCharacter() {
				faceUp++
			}
		}
		if faceUp > 1 {
			return fmt.Errorf("%s zone holds %d face-up characters", zone, faceUp)
		}
	}
	for _, zone := range []rules.Zone{rules.ZoneHelp, rules.ZoneSP} {
		if n := len(f.Zone(zone)); n > 1 {
			return fmt.Errorf("%s zone holds %d cards", zone, n)
		}
	}
	return nil
}
