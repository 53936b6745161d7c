package effects

import (
	"math/rand"
	"testing"

	"go.uber.org/zap/zaptest"

	"github.com/leaderbattle/battle-server-go/internal/game/catalog"
	"github.com/leaderbattle/battle-server-go/internal/game/rules"
	"github.com/leaderbattle/battle-server-go/internal/game/state"
)

func char(id string, power int, traits ...string) catalog.CardDefinition {
	return catalog.CardDefinition{ID: id, Name: id, CardType: catalog.CardTypeCharacter, Power: power, Traits: traits}
}

func twoPlayerMatch() *state.MatchState {
	m := &state.MatchState{
		MatchID:     "m",
		PhaseState:  rules.PhaseState{Phase: rules.PhaseMain},
		PlayerOrder: []state.PlayerID{"p1", "p2"},
		Players:     map[state.PlayerID]*state.PlayerState{},
	}
	for _, id := range m.PlayerOrder {
		m.Players[id] = &state.PlayerState{
			ID:           id,
			Field:        state.NewField(),
			Restrictions: map[state.RestrictionKey]state.Restriction{},
			Leader:       catalog.LeaderDefinition{ID: "leader-" + string(id), Name: "Leader " + string(id), Level: 5},
		}
	}
	return m
}

func place(m *state.MatchState, id state.PlayerID, zone rules.Zone, def catalog.CardDefinition, faceDown bool) {
	m.Players[id].Field.Place(zone, state.PlacedCard{CardID: def.ID, Definition: def, FaceDown: faceDown})
}

func newInterpreter(t *testing.T, cards []catalog.CardDefinition, auto bool) *Interpreter {
	t.Helper()
	return NewInterpreter(catalog.NewMemoryCatalog(cards, nil, nil), rand.New(rand.NewSource(7)), zaptest.NewLogger(t), auto)
}

func powerOf(ls *LayerSystem, m *state.MatchState, owner state.PlayerID, zone rules.Zone) int {
	cards := m.Players[owner].Field.Zone(zone)
	for i := range cards {
		if cards[i].IsScoringCharacter() {
			s := NewSnapshot(owner, zone, &cards[i])
			ls.Apply(s)
			return s.Power
		}
	}
	return -1
}
