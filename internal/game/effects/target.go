package effects

import (
	"strings"

	"github.com/leaderbattle/battle-server-go/internal/game/catalog"
	"github.com/leaderbattle/battle-server-go/internal/game/rules"
	"github.com/leaderbattle/battle-server-go/internal/game/state"
)

// Filter kinds understood by MatchesFilters. Anything else never matches.
const (
	FilterHasTrait   = "hasTrait"
	FilterGameTypeIn = "gameTypeIn"
	FilterNameIs     = "nameIs"
	FilterCardType   = "cardType"
)

// Selector is a compiled target descriptor.
type Selector struct {
	Owner   string
	Zones   []rules.Zone
	Filters []catalog.Filter
}

// NewSelector fills in defaults: owner defaults to defaultOwner, zones to the character zones.
func NewSelector(t catalog.Target, defaultOwner string) Selector {
	owner := strings.ToLower(strings.TrimSpace(t.Owner))
	switch owner {
	case OwnerSelf, OwnerOpponent, OwnerBoth:
	default:
		owner = defaultOwner
	}
	zones := t.Zones
	if len(zones) == 0 {
		zones = rules.CharacterZones
	}
	return Selector{Owner: owner, Zones: zones, Filters: t.Filters}
}

// Players returns the ids of the players the selector points at, relative to ruleOwner.
func (s Selector) Players(m *state.MatchState, ruleOwner state.PlayerID) []state.PlayerID {
	opponent, _ := state.OpponentOf(m, ruleOwner)
	switch s.Owner {
	case OwnerOpponent:
		if opponent == "" {
			return nil
		}
		return []state.PlayerID{opponent}
	case OwnerBoth:
		out := []state.PlayerID{ruleOwner}
		if opponent != "" {
			out = append(out, opponent)
		}
		return out
	}
	return []state.PlayerID{ruleOwner}
}

// CoversZone reports whether zone is one of the selector zones.
func (s Selector) CoversZone(zone rules.Zone) bool {
	for _, z := range s.Zones {
		if z == zone {
			return true
		}
	}
	return false
}

// Matches reports whether a card in zone owned by cardOwner is selected.
func (s Selector) Matches(m *state.MatchState, ruleOwner, cardOwner state.PlayerID, zone rules.Zone, card catalog.CardDefinition) bool {
	if !s.CoversZone(zone) {
		return false
	}
	hit := false
	for _, id := range s.Players(m, ruleOwner) {
		if id == cardOwner {
			hit = true
			break
		}
	}
	return hit && MatchesFilters(s.Filters, card)
}

// Resolve returns the face-up characters the selector points at.
func (s Selector) Resolve(m *state.MatchState, ruleOwner state.PlayerID) []*state.PlacedCard {
	var out []*state.PlacedCard
	for _, id := range s.Players(m, ruleOwner) {
		p, ok := m.Players[id]
		if !ok {
			continue
		}
		for _, zone := range s.Zones {
			cards := p.Field.Zone(zone)
			for i := range cards {
				if cards[i].IsScoringCharacter() && MatchesFilters(s.Filters, cards[i].Definition) {
					out = append(out, &cards[i])
				}
			}
		}
	}
	return out
}

// MatchesFilters reports whether card passes every filter.
func MatchesFilters(filters []catalog.Filter, card catalog.CardDefinition) bool {
	for _, f := range filters {
		if !matchesFilter(f, card) {
			return false
		}
	}
	return true
}

func matchesFilter(f catalog.Filter, card catalog.CardDefinition) bool {
	values := f.Values
	if f.Value != "" {
		values = append([]string{f.Value}, values...)
	}
	switch f.Type {
	case FilterHasTrait:
		for _, v := range values {
			if card.HasTrait(v) {
				return true
			}
		}
	case FilterGameTypeIn:
		for _, v := range values {
			if strings.EqualFold(v, card.GameType) {
				return true
			}
		}
	case FilterNameIs:
		for _, v := range values {
			if strings.EqualFold(v, card.Name) {
				return true
			}
		}
	case FilterCardType:
		for _, v := range values {
			if strings.EqualFold(v, string(card.CardType)) {
				return true
			}
		}
	}
	return false
}
