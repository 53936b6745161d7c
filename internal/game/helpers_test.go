package game

import (
	"math/rand"
	"testing"

	"go.uber.org/zap/zaptest"

	"github.com/leaderbattle/battle-server-go/internal/game/catalog"
	"github.com/leaderbattle/battle-server-go/internal/game/rules"
	"github.com/leaderbattle/battle-server-go/internal/game/scoring"
	"github.com/leaderbattle/battle-server-go/internal/game/state"
)

func allZones() map[rules.Zone][]string {
	out := make(map[rules.Zone][]string)
	for _, zone := range rules.AllZones() {
		out[zone] = []string{catalog.WildcardToken}
	}
	return out
}

func selfTarget() catalog.Target {
	return catalog.Target{Owner: "self"}
}

func fixtureCatalog() *catalog.MemoryCatalog {
	cards := []catalog.CardDefinition{
		{ID: "hero-50", Name: "Hero Fifty", CardType: catalog.CardTypeCharacter, Power: 50, Traits: []string{"hero"}, GameType: "alpha"},
		{ID: "hero-30", Name: "Hero Thirty", CardType: catalog.CardTypeCharacter, Power: 30, Traits: []string{"hero"}, GameType: "beta"},
		{ID: "grunt-10", Name: "Grunt", CardType: catalog.CardTypeCharacter, Power: 10, Traits: []string{"grunt"}, GameType: "gamma"},
		{ID: "help-1", Name: "Helping Hand", CardType: catalog.CardTypeHelp},
		{ID: "sp-1", Name: "Quiet Special", CardType: catalog.CardTypeSP},
		{ID: "sp-boost", Name: "Rally Cry", CardType: catalog.CardTypeSP, Effects: catalog.Effects{Rules: []catalog.Rule{{
			Trigger: catalog.Trigger{Type: catalog.TriggerTriggered, Event: string(rules.EventSPPhase)},
			Target:  selfTarget(),
			Effect:  catalog.Effect{Type: "modifyPower", Operation: "add", Value: 50},
		}}}},
		{ID: "sp-draw", Name: "Second Wind", CardType: catalog.CardTypeSP, Effects: catalog.Effects{Rules: []catalog.Rule{{
			Trigger: catalog.Trigger{Type: catalog.TriggerTriggered, Event: string(rules.EventSPPhase)},
			Target:  selfTarget(),
			Effect:  catalog.Effect{Type: "drawCard", Count: 1},
		}}}},
		{ID: "seeker", Name: "Seeker", CardType: catalog.CardTypeCharacter, Power: 20, Traits: []string{"scout"}, Effects: catalog.Effects{Rules: []catalog.Rule{{
			Trigger: catalog.Trigger{Type: catalog.TriggerTriggered, Event: string(rules.EventOnSummon)},
			Target:  selfTarget(),
			Effect:  catalog.Effect{Type: "searchCard", SearchCount: 3, SelectCount: 1, CardType: "character"},
		}}}},
	}
	leaders := []catalog.LeaderDefinition{
		{ID: "lead-110", Name: "Vanguard", InitialPoint: 110, ZoneCompatibility: allZones()},
		{ID: "lead-100", Name: "Warden", InitialPoint: 100, ZoneCompatibility: allZones()},
		{ID: "lead-boost", Name: "Captain", InitialPoint: 100, ZoneCompatibility: allZones(), Effects: catalog.Effects{Rules: []catalog.Rule{{
			Trigger: catalog.Trigger{Type: catalog.TriggerContinuous},
			Target:  catalog.Target{Owner: "self", Filters: []catalog.Filter{{Type: "hasTrait", Value: "hero"}}},
			Effect:  catalog.Effect{Type: "modifyPower", Operation: "add", Value: 45},
		}}}},
	}
	return catalog.NewMemoryCatalog(cards, leaders, nil)
}

// flatScoring disables combo bonuses so expected totals are plain power sums.
func flatScoring() Settings {
	s := DefaultSettings()
	s.Combos = scoring.Bonuses{HighPowerThreshold: 80, BalancedSpread: 30, MinCharacters: 3}
	return s
}

func newTestEngine(t *testing.T, opts ...Option) *Engine {
	t.Helper()
	base := []Option{WithRand(rand.New(rand.NewSource(1)))}
	return NewEngine(fixtureCatalog(), zaptest.NewLogger(t), append(base, opts...)...)
}

func leader(t *testing.T, id string) catalog.LeaderDefinition {
	t.Helper()
	l, err := fixtureCatalog().Leader(id)
	if err != nil {
		t.Fatalf("leader %s: %v", id, err)
	}
	return l
}

func card(t *testing.T, id string) catalog.CardDefinition {
	t.Helper()
	c, err := fixtureCatalog().Card(id)
	if err != nil {
		t.Fatalf("card %s: %v", id, err)
	}
	return c
}

// mainPhaseMatch builds a match already in MAIN_PHASE with p1 to act on turn 0.
func mainPhaseMatch(t *testing.T) *state.MatchState {
	t.Helper()
	m := &state.MatchState{
		MatchID:         "match-1",
		PhaseState:      rules.PhaseState{Phase: rules.PhaseMain},
		CurrentPlayerID: "p1",
		PlayerOrder:     []state.PlayerID{"p1", "p2"},
		Players:         map[state.PlayerID]*state.PlayerState{},
	}
	redrawn := false
	for i, id := range m.PlayerOrder {
		leaderID := []string{"lead-110", "lead-100"}[i]
		m.Players[id] = &state.PlayerState{
			ID: id,
			Deck: state.Deck{
				Hand:     []string{"hero-50", "hero-30", "help-1"},
				MainDeck: []string{"grunt-10", "grunt-10", "grunt-10", "hero-30"},
				Leaders:  []string{leaderID, "lead-100"},
			},
			Redraw:       &redrawn,
			Leader:       leader(t, leaderID),
			Field:        state.NewField(),
			TurnAction:   []state.ActionRecord{},
			Restrictions: map[state.RestrictionKey]state.Restriction{},
		}
	}
	return m
}

func put(t *testing.T, m *state.MatchState, player state.PlayerID, zone rules.Zone, id string, faceDown bool) {
	t.Helper()
	def := card(t, id)
	m.Players[player].Field.Place(zone, state.PlacedCard{CardID: id, Definition: def, FaceDown: faceDown})
}

func phaseChanges(p *state.PlayerState) []string {
	var out []string
	for _, rec := range p.TurnAction {
		if rec.Type == state.RecordPhaseChange {
			out = append(out, rec.Phase)
		}
	}
	return out
}

func lastRecord(p *state.PlayerState, typ string) (state.ActionRecord, bool) {
	for i := len(p.TurnAction) - 1; i >= 0; i-- {
		if p.TurnAction[i].Type == typ {
			return p.TurnAction[i], true
		}
	}
	return state.ActionRecord{}, false
}
