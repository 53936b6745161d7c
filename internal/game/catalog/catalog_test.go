package catalog

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/leaderbattle/battle-server-go/internal/game/rules"
)

const sampleCatalog = `
cards:
  - id: c-eagle
    name: Eagle Scout
    cardType: character
    traits: [patriot, right-wing]
    power: 50
    gameType: politics
  - id: h-rally
    name: Rally
    cardType: help
    effects:
      rules:
        - id: rally-boost
          trigger: {type: continuous}
          target: {owner: self, zones: [top, left, right]}
          effect: {type: modifyPower, operation: add, value: 10}
leaders:
  - id: l-trump
    name: Trump
    level: 7
    initialPoint: 110
    zoneCompatibility:
      top: [right-wing]
      left: [patriot]
      right: [all]
      help: [all]
      sp: [all]
decks:
  - playerId: p1
    leaders: [l-trump]
    cards: [c-eagle, h-rally]
`

func TestParseAndLookup(t *testing.T) {
	f, err := Parse([]byte(sampleCatalog))
	require.NoError(t, err)
	cat := f.Catalog()

	card, err := cat.Card("c-eagle")
	require.NoError(t, err)
	assert.Equal(t, CardTypeCharacter, card.CardType)
	assert.Equal(t, 50, card.Power)
	assert.True(t, card.HasTrait("Patriot"))

	help, err := cat.Card("h-rally")
	require.NoError(t, err)
	require.Len(t, help.Effects.Rules, 1)
	assert.Equal(t, TriggerContinuous, help.Effects.Rules[0].Trigger.Type)
	assert.Equal(t, []rules.Zone{rules.ZoneTop, rules.ZoneLeft, rules.ZoneRight}, help.Effects.Rules[0].Target.Zones)

	leader, err := cat.Leader("l-trump")
	require.NoError(t, err)
	assert.Equal(t, CardTypeLeader, leader.CardType)
	assert.Equal(t, 110, leader.InitialPoint)
	assert.True(t, leader.Accepts(rules.ZoneTop, card))

	deck, err := cat.Deck("p1")
	require.NoError(t, err)
	assert.Equal(t, []string{"c-eagle", "h-rally"}, deck.Cards)
	deck.Cards[0] = "mutated"
	again, _ := cat.Deck("p1")
	assert.Equal(t, "c-eagle", again.Cards[0])
}

func TestLookupMissesWrapSentinels(t *testing.T) {
	cat := NewMemoryCatalog(nil, nil, nil)

	_, err := cat.Card("nope")
	assert.True(t, errors.Is(err, ErrCardNotFound))
	_, err = cat.Leader("nope")
	assert.True(t, errors.Is(err, ErrLeaderNotFound))
	_, err = cat.Deck("nope")
	assert.True(t, errors.Is(err, ErrDeckNotFound))
}

func TestValidateRejectsBrokenFiles(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"missing id", "cards:\n  - name: x\n    cardType: character\n"},
		{"leader as card", "cards:\n  - id: x\n    cardType: leader\n"},
		{"unknown deck card", "decks:\n  - playerId: p\n    cards: [ghost]\n"},
		{"unknown deck leader", "decks:\n  - playerId: p\n    leaders: [ghost]\n"},
		{"bad yaml", "cards: [\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse([]byte(tt.body))
			assert.Error(t, err)
		})
	}
}

func TestLoadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "catalog.yaml")
	require.NoError(t, os.WriteFile(path, []byte(sampleCatalog), 0o600))

	cat, err := LoadFile(path)
	require.NoError(t, err)
	cards, leaders := cat.Size()
	assert.Equal(t, 2, cards)
	assert.Equal(t, 1, leaders)

	exported := cat.Export()
	assert.Equal(t, "c-eagle", exported.Cards[0].ID)
	assert.Len(t, exported.Decks, 1)

	_, err = LoadFile(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

func TestLeaderAccepts(t *testing.T) {
	leader := LeaderDefinition{ZoneCompatibility: map[rules.Zone][]string{
		rules.ZoneTop:   {"knight"},
		rules.ZoneLeft:  {"all"},
		rules.ZoneRight: {"politics"},
	}}
	knight := CardDefinition{Traits: []string{"Knight"}}
	wizard := CardDefinition{Traits: []string{"wizard"}, GameType: "politics"}
	wild := CardDefinition{Traits: []string{"all"}}

	assert.True(t, leader.Accepts(rules.ZoneTop, knight))
	assert.False(t, leader.Accepts(rules.ZoneTop, wizard))
	assert.True(t, leader.Accepts(rules.ZoneLeft, wizard))
	assert.True(t, leader.Accepts(rules.ZoneRight, wizard), "game type matches")
	assert.True(t, leader.Accepts(rules.ZoneTop, wild))
	assert.False(t, leader.Accepts(rules.ZoneHelp, knight))
}

func TestSampleCatalogLoads(t *testing.T) {
	cat, err := LoadFile(filepath.Join("..", "..", "..", "config", "catalog.yaml"))
	require.NoError(t, err)

	cards, leaders := cat.Size()
	assert.Equal(t, 10, cards)
	assert.Equal(t, 3, leaders)

	deck, err := cat.Deck("alice")
	require.NoError(t, err)
	assert.Len(t, deck.Cards, 12)
}
