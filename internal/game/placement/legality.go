package placement

import (
	"fmt"

	"github.com/leaderbattle/battle-server-go/internal/game/catalog"
	"github.com/leaderbattle/battle-server-go/internal/game/effects"
	"github.com/leaderbattle/battle-server-go/internal/game/rules"
	"github.com/leaderbattle/battle-server-go/internal/game/state"
)

// OverrideFinder looks for a card effect that lifts an active restriction.
type OverrideFinder interface {
	OverrideFor(m *state.MatchState, player state.PlayerID, card catalog.CardDefinition, zone rules.Zone) *state.OverrideInfo
}

// Result is the outcome of a placement check.
type Result struct {
	Allowed  bool
	Reason   string
	Override *state.OverrideInfo
	Details  map[string]string
}

func allowed() Result {
	return Result{Allowed: true}
}

func rejected(reason string, details map[string]string) Result {
	return Result{Allowed: false, Reason: reason, Details: details}
}

// Validator decides whether a card may be placed into a zone.
type Validator struct {
	overrides OverrideFinder
}

// NewValidator creates a validator. A nil finder never overrides.
func NewValidator(overrides OverrideFinder) *Validator {
	return &Validator{overrides: overrides}
}

// CheckPlacement validates placing card into zone for player. The first failing check wins;
// an override can only turn a restriction failure into success.
func (v *Validator) CheckPlacement(m *state.MatchState, player state.PlayerID, card catalog.CardDefinition, zone rules.Zone, faceDown bool) Result {
	p, ok := m.Players[player]
	if !ok {
		return rejected("Player not in match", map[string]string{"player_id": string(player)})
	}
	if !zone.Valid() {
		return rejected("Unknown zone", map[string]string{"zone": string(zone)})
	}
	if faceDown {
		return checkFaceDown(p, card, zone)
	}

	// Check 1: structural
	if result := checkStructure(p, card, zone); !result.Allowed {
		return result
	}

	// Check 2: leader zone compatibility
	if result := checkCompatibility(p, card, zone); !result.Allowed {
		return result
	}

	// Check 3 and 4: restrictions, then overrides
	restriction, blocked := effects.BlockingRestriction(p, card, zone)
	if !blocked {
		return allowed()
	}
	if v != nil && v.overrides != nil {
		if info := v.overrides.OverrideFor(m, player, card, zone); info != nil {
			return Result{Allowed: true, Override: info}
		}
	}
	return rejected(restriction.Reason, map[string]string{
		"restriction": restriction.Key.String(),
		"card_id":     card.ID,
		"zone":        string(zone),
	})
}

func checkFaceDown(p *state.PlayerState, card catalog.CardDefinition, zone rules.Zone) Result {
	details := map[string]string{"card_id": card.ID, "zone": string(zone), "card_type": string(card.CardType)}
	if zone.IsCharacter() {
		if card.CardType != catalog.CardTypeCharacter {
			return rejected(fmt.Sprintf("Can't play %s card face down in a character zone", card.CardType), details)
		}
		if state.IsCharacterZoneOccupied(&p.Field, zone) {
			return rejected(fmt.Sprintf("%s zone already occupied", zone), details)
		}
		return allowed()
	}
	if card.CardType == catalog.CardTypeCharacter {
		return rejected(fmt.Sprintf("Can't play character card face down in the %s zone", zone), details)
	}
	return checkUtility(p, card, zone, details)
}

func checkStructure(p *state.PlayerState, card catalog.CardDefinition, zone rules.Zone) Result {
	details := map[string]string{"card_id": card.ID, "zone": string(zone), "card_type": string(card.CardType)}
	switch card.CardType {
	case catalog.CardTypeCharacter:
		if zone.IsUtility() {
			return rejected(fmt.Sprintf("Can't play character card in the %s zone", zone), details)
		}
		if state.IsCharacterZoneOccupied(&p.Field, zone) {
			return rejected(fmt.Sprintf("%s zone already occupied", zone), details)
		}
		return allowed()
	case catalog.CardTypeHelp, catalog.CardTypeSP:
		return checkUtility(p, card, zone, details)
	}
	return rejected(fmt.Sprintf("Can't play %q card from hand", card.CardType), details)
}

func checkUtility(p *state.PlayerState, card catalog.CardDefinition, zone rules.Zone, details map[string]string) Result {
	if string(zone) != string(card.CardType) {
		return rejected(fmt.Sprintf("%s card can only be played in the %s zone", card.CardType, card.CardType), details)
	}
	if p.Field.Occupied(zone) {
		return rejected(fmt.Sprintf("%s zone already occupied", zone), details)
	}
	return allowed()
}

func checkCompatibility(p *state.PlayerState, card catalog.CardDefinition, zone rules.Zone) Result {
	if card.CardType != catalog.CardTypeCharacter {
		if _, listed := p.Leader.ZoneCompatibility[zone]; !listed {
			return allowed()
		}
	}
	if p.Leader.Accepts(zone, card) {
		return allowed()
	}
	return rejected("Card attributes do not match the leader's zone", map[string]string{
		"card_id":   card.ID,
		"zone":      string(zone),
		"leader_id": p.Leader.ID,
	})
}
