package effects

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/leaderbattle/battle-server-go/internal/game/catalog"
	"github.com/leaderbattle/battle-server-go/internal/game/rules"
	"github.com/leaderbattle/battle-server-go/internal/game/state"
)

func blockDragons() catalog.Rule {
	return catalog.Rule{
		Trigger: catalog.Trigger{Type: catalog.TriggerContinuous},
		Target:  catalog.Target{Owner: "opponent", Filters: []catalog.Filter{{Type: FilterHasTrait, Value: "dragon"}}},
		Effect:  catalog.Effect{Type: EffectBlockSummonCard, CardType: "character"},
	}
}

func TestRefreshRestrictionsIsIdempotent(t *testing.T) {
	m := twoPlayerMatch()
	m.Players["p1"].Leader.Effects.Rules = []catalog.Rule{blockDragons()}
	in := newInterpreter(t, nil, true)

	in.RefreshRestrictions(m)
	in.RefreshRestrictions(m)

	p2 := m.Players["p2"]
	require.Len(t, p2.Restrictions, 1)
	assert.Empty(t, m.Players["p1"].Restrictions)

	key := state.RestrictionKey{SourcePlayer: "p1", SourceCardID: "leader-p1", RuleIndex: 0}
	r, ok := p2.Restrictions[key]
	require.True(t, ok)
	assert.Equal(t, []string{"dragon"}, r.Traits)
	assert.Contains(t, r.Reason, "Cannot summon dragon")

	blocked, hit := BlockingRestriction(p2, char("wyrm", 80, "dragon"), rules.ZoneTop)
	assert.True(t, hit)
	assert.Equal(t, key, blocked.Key)
	_, hit = BlockingRestriction(p2, char("knight", 80, "knight"), rules.ZoneTop)
	assert.False(t, hit)
}

func TestRestrictionLiftsWhenSourceLeaves(t *testing.T) {
	m := twoPlayerMatch()
	help := catalog.CardDefinition{ID: "ward", Name: "Ward", CardType: catalog.CardTypeHelp, Effects: catalog.Effects{Rules: []catalog.Rule{blockDragons()}}}
	place(m, "p1", rules.ZoneHelp, help, false)
	in := newInterpreter(t, nil, true)

	in.RefreshRestrictions(m)
	assert.Len(t, m.Players["p2"].Restrictions, 1)

	m.Players["p1"].Field.Help = nil
	in.RefreshRestrictions(m)
	assert.Empty(t, m.Players["p2"].Restrictions)
}

func TestRestrictionConditionGate(t *testing.T) {
	m := twoPlayerMatch()
	rule := blockDragons()
	rule.Trigger.Condition = &catalog.Condition{Type: CondZoneEmpty, Owner: "opponent", Zone: "sp"}
	m.Players["p1"].Leader.Effects.Rules = []catalog.Rule{rule}
	in := newInterpreter(t, nil, true)

	in.RefreshRestrictions(m)
	assert.Len(t, m.Players["p2"].Restrictions, 1)

	place(m, "p2", rules.ZoneSP, catalog.CardDefinition{ID: "sp", CardType: catalog.CardTypeSP}, true)
	in.RefreshRestrictions(m)
	assert.Empty(t, m.Players["p2"].Restrictions)
}

func TestOverrideFor(t *testing.T) {
	m := twoPlayerMatch()
	in := newInterpreter(t, nil, true)
	dragon := char("wyrm", 80, "dragon")
	assert.Nil(t, in.OverrideFor(m, "p2", dragon, rules.ZoneTop))

	override := catalog.CardDefinition{ID: "pact", Name: "Dragon Pact", CardType: catalog.CardTypeSP, Effects: catalog.Effects{Rules: []catalog.Rule{{
		Trigger: catalog.Trigger{Type: catalog.TriggerContinuous},
		Target:  catalog.Target{Filters: []catalog.Filter{{Type: FilterHasTrait, Value: "dragon"}}},
		Effect:  catalog.Effect{Type: EffectOverrideRestriction},
	}}}}
	place(m, "p2", rules.ZoneSP, override, false)

	info := in.OverrideFor(m, "p2", dragon, rules.ZoneTop)
	require.NotNil(t, info)
	assert.Equal(t, "pact", info.SourceCardID)
	assert.Equal(t, catalog.CardTypeSP, info.SourceType)
	assert.Contains(t, info.Reason, "Dragon Pact")

	assert.Nil(t, in.OverrideFor(m, "p2", char("knight", 50, "knight"), rules.ZoneTop))
	assert.Nil(t, in.OverrideFor(m, "p1", dragon, rules.ZoneTop), "overrides only help their owner")
}
