package placement

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/leaderbattle/battle-server-go/internal/game/catalog"
	"github.com/leaderbattle/battle-server-go/internal/game/effects"
	"github.com/leaderbattle/battle-server-go/internal/game/rules"
	"github.com/leaderbattle/battle-server-go/internal/game/state"
)

var (
	knight = catalog.CardDefinition{ID: "knight", Name: "Knight", CardType: catalog.CardTypeCharacter, Power: 50, Traits: []string{"knight"}}
	dragon = catalog.CardDefinition{ID: "dragon", Name: "Dragon", CardType: catalog.CardTypeCharacter, Power: 90, Traits: []string{"dragon"}}
	potion = catalog.CardDefinition{ID: "potion", Name: "Potion", CardType: catalog.CardTypeHelp}
	flare  = catalog.CardDefinition{ID: "flare", Name: "Flare", CardType: catalog.CardTypeSP}
)

func newMatch() *state.MatchState {
	m := &state.MatchState{
		PhaseState:  rules.PhaseState{Phase: rules.PhaseMain},
		PlayerOrder: []state.PlayerID{"p1", "p2"},
		Players:     map[state.PlayerID]*state.PlayerState{},
	}
	for _, id := range m.PlayerOrder {
		m.Players[id] = &state.PlayerState{
			ID:           id,
			Field:        state.NewField(),
			Restrictions: map[state.RestrictionKey]state.Restriction{},
			Leader: catalog.LeaderDefinition{ID: "leader-" + string(id), Name: "Leader", ZoneCompatibility: map[rules.Zone][]string{
				rules.ZoneTop:   {"dragon"},
				rules.ZoneLeft:  {"knight", "dragon"},
				rules.ZoneRight: {"all"},
			}},
		}
	}
	return m
}

func newValidator(t *testing.T) (*Validator, *effects.Interpreter) {
	in := effects.NewInterpreter(catalog.NewMemoryCatalog(nil, nil, nil), rand.New(rand.NewSource(1)), zaptest.NewLogger(t), true)
	return NewValidator(in), in
}

func TestCheckPlacementFaceUp(t *testing.T) {
	v, _ := newValidator(t)

	tests := []struct {
		name    string
		setup   func(*state.MatchState)
		card    catalog.CardDefinition
		zone    rules.Zone
		allowed bool
		reason  string
	}{
		{name: "compatible character", card: knight, zone: rules.ZoneLeft, allowed: true},
		{name: "wildcard zone", card: knight, zone: rules.ZoneRight, allowed: true},
		{name: "incompatible character", card: knight, zone: rules.ZoneTop, reason: "do not match"},
		{name: "character in help zone", card: knight, zone: rules.ZoneHelp, reason: "Can't play character"},
		{name: "help in character zone", card: potion, zone: rules.ZoneTop, reason: "only be played in the help zone"},
		{name: "help in sp zone", card: potion, zone: rules.ZoneSP, reason: "only be played in the help zone"},
		{name: "help in help zone", card: potion, zone: rules.ZoneHelp, allowed: true},
		{name: "sp in sp zone", card: flare, zone: rules.ZoneSP, allowed: true},
		{
			name: "occupied character zone",
			setup: func(m *state.MatchState) {
				m.Players["p1"].Field.Place(rules.ZoneLeft, state.PlacedCard{CardID: "k0", Definition: knight})
			},
			card: dragon, zone: rules.ZoneLeft, reason: "left zone already occupied",
		},
		{
			name: "face-down occupant does not block",
			setup: func(m *state.MatchState) {
				m.Players["p1"].Field.Place(rules.ZoneLeft, state.PlacedCard{CardID: "k0", Definition: knight, FaceDown: true})
			},
			card: dragon, zone: rules.ZoneLeft, allowed: true,
		},
		{name: "unknown zone", card: knight, zone: rules.Zone("deck"), reason: "Unknown zone"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := newMatch()
			if tt.setup != nil {
				tt.setup(m)
			}
			res := v.CheckPlacement(m, "p1", tt.card, tt.zone, false)
			assert.Equal(t, tt.allowed, res.Allowed, res.Reason)
			if !tt.allowed {
				assert.Contains(t, res.Reason, tt.reason)
			}
		})
	}
}

func TestHelpIntoOccupiedHelpZone(t *testing.T) {
	v, _ := newValidator(t)
	m := newMatch()
	m.Players["p1"].Field.Place(rules.ZoneHelp, state.PlacedCard{CardID: "potion", Definition: potion})

	res := v.CheckPlacement(m, "p1", catalog.CardDefinition{ID: "elixir", CardType: catalog.CardTypeHelp}, rules.ZoneHelp, false)
	assert.False(t, res.Allowed)
	assert.Contains(t, res.Reason, "already occupied")
	assert.Len(t, m.Players["p1"].Field.Help, 1)

	res = v.CheckPlacement(m, "p1", catalog.CardDefinition{ID: "elixir", CardType: catalog.CardTypeHelp}, rules.ZoneHelp, true)
	assert.False(t, res.Allowed)
	assert.Contains(t, res.Reason, "already occupied")
}

func TestCheckPlacementFaceDown(t *testing.T) {
	v, _ := newValidator(t)
	m := newMatch()

	// Bluffs bypass compatibility.
	assert.True(t, v.CheckPlacement(m, "p1", knight, rules.ZoneTop, true).Allowed)

	res := v.CheckPlacement(m, "p1", potion, rules.ZoneTop, true)
	assert.False(t, res.Allowed)
	assert.Contains(t, res.Reason, "face down")

	res = v.CheckPlacement(m, "p1", knight, rules.ZoneSP, true)
	assert.False(t, res.Allowed)
	assert.Contains(t, res.Reason, "face down")

	assert.True(t, v.CheckPlacement(m, "p1", flare, rules.ZoneSP, true).Allowed)

	m.Players["p1"].Field.Place(rules.ZoneTop, state.PlacedCard{CardID: "d", Definition: dragon})
	res = v.CheckPlacement(m, "p1", knight, rules.ZoneTop, true)
	assert.False(t, res.Allowed)
	assert.Contains(t, res.Reason, "already occupied")
}

func TestRestrictionAndOverride(t *testing.T) {
	v, in := newValidator(t)
	m := newMatch()
	m.Players["p2"].Leader.Effects.Rules = []catalog.Rule{{
		Trigger: catalog.Trigger{Type: catalog.TriggerContinuous},
		Target:  catalog.Target{Owner: "opponent", Filters: []catalog.Filter{{Type: effects.FilterHasTrait, Value: "dragon"}}},
		Effect:  catalog.Effect{Type: effects.EffectBlockSummonCard, Reason: "Cannot summon dragon type monsters due to summoner effect"},
	}}
	in.RefreshRestrictions(m)

	res := v.CheckPlacement(m, "p1", dragon, rules.ZoneTop, false)
	assert.False(t, res.Allowed)
	assert.Equal(t, "Cannot summon dragon type monsters due to summoner effect", res.Reason)
	assert.Equal(t, "p2/leader-p2/0", res.Details["restriction"])

	// Bluffing is never restricted.
	assert.True(t, v.CheckPlacement(m, "p1", dragon, rules.ZoneTop, true).Allowed)
	// Other characters are unaffected.
	assert.True(t, v.CheckPlacement(m, "p1", knight, rules.ZoneLeft, false).Allowed)

	m.Players["p1"].Field.Place(rules.ZoneSP, state.PlacedCard{CardID: "pact", Definition: catalog.CardDefinition{
		ID: "pact", Name: "Pact", CardType: catalog.CardTypeSP,
		Effects: catalog.Effects{Rules: []catalog.Rule{{
			Trigger: catalog.Trigger{Type: catalog.TriggerContinuous},
			Effect:  catalog.Effect{Type: effects.EffectOverrideRestriction, Reason: "pact allows dragons"},
		}}},
	}})
	res = v.CheckPlacement(m, "p1", dragon, rules.ZoneTop, false)
	require.True(t, res.Allowed)
	require.NotNil(t, res.Override)
	assert.Equal(t, "pact", res.Override.SourceCardID)
	assert.Equal(t, "pact allows dragons", res.Override.Reason)

	// Overrides never bypass structural checks.
	m.Players["p1"].Field.Place(rules.ZoneTop, state.PlacedCard{CardID: "d", Definition: dragon})
	assert.False(t, v.CheckPlacement(m, "p1", dragon, rules.ZoneTop, false).Allowed)
}

func TestNilValidatorNeverOverrides(t *testing.T) {
	m := newMatch()
	key := state.RestrictionKey{SourcePlayer: "p2", SourceCardID: "x", RuleIndex: 0}
	m.Players["p1"].Restrictions[key] = state.Restriction{Key: key, Reason: "blocked"}
	res := NewValidator(nil).CheckPlacement(m, "p1", knight, rules.ZoneLeft, false)
	assert.False(t, res.Allowed)
	assert.Equal(t, "blocked", res.Reason)
}
