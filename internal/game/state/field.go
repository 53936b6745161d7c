package state

import (
	"github.com/leaderbattle/battle-server-go/internal/game/catalog"
	"github.com/leaderbattle/battle-server-go/internal/game/rules"
)

// PowerModifier is a battle-scoped power change recorded by a triggered effect.
type PowerModifier struct {
	SourceCardID string `json:"sourceCardId"`
	Operation    string `json:"operation"`
	Value        int    `json:"value"`
}

// PlacedCard is a card sitting in a zone.
type PlacedCard struct {
	CardID     string                 `json:"cardId"`
	Definition catalog.CardDefinition `json:"definition"`
	FaceDown   bool                   `json:"faceDown"`
	// ValueOnField is derived by the scoring pass and never read back as authoritative.
	ValueOnField int             `json:"valueOnField"`
	Modifiers    []PowerModifier `json:"modifiers,omitempty"`
}

// IsScoringCharacter reports whether the card is a face-up character.
func (p PlacedCard) IsScoringCharacter() bool {
	return !p.FaceDown && p.Definition.CardType == catalog.CardTypeCharacter
}

// IsFaceUpUtility reports whether the card is a face-up help or sp card.
func (p PlacedCard) IsFaceUpUtility() bool {
	if p.FaceDown {
		return false
	}
	return p.Definition.CardType == catalog.CardTypeHelp || p.Definition.CardType == catalog.CardTypeSP
}

// Field holds the five zones of one player.
type Field struct {
	Top   []PlacedCard `json:"top"`
	Left  []PlacedCard `json:"left"`
	Right []PlacedCard `json:"right"`
	Help  []PlacedCard `json:"help"`
	SP    []PlacedCard `json:"sp"`
}

func (f *Field) slot(zone rules.Zone) *[]PlacedCard {
	switch zone {
	case rules.ZoneTop:
		return &f.Top
	case rules.ZoneLeft:
		return &f.Left
	case rules.ZoneRight:
		return &f.Right
	case rules.ZoneHelp:
		return &f.Help
	case rules.ZoneSP:
		return &f.SP
	}
	return nil
}

// Zone returns the cards in zone. The slice is owned by the field.
func (f *Field) Zone(zone rules.Zone) []PlacedCard {
	if s := f.slot(zone); s != nil {
		return *s
	}
	return nil
}

// Place appends card to zone.
func (f *Field) Place(zone rules.Zone, card PlacedCard) bool {
	s := f.slot(zone)
	if s == nil {
		return false
	}
	*s = append(*s, card)
	return true
}

// Occupied reports whether zone holds any card, face up or face down.
func (f *Field) Occupied(zone rules.Zone) bool {
	return len(f.Zone(zone)) > 0
}

// ClearCharacterZones empties top, left and right.
func (f *Field) ClearCharacterZones() {
	f.Top = []PlacedCard{}
	f.Left = []PlacedCard{}
	f.Right = []PlacedCard{}
}

// CharacterZonesFilled reports whether every character zone has an occupant.
func (f *Field) CharacterZonesFilled() bool {
	for _, zone := range rules.CharacterZones {
		if !f.Occupied(zone) {
			return false
		}
	}
	return true
}

// ScoringCharacters returns the face-up characters in top, left, right order.
func (f *Field) ScoringCharacters() []*PlacedCard {
	var out []*PlacedCard
	for _, zone := range rules.CharacterZones {
		cards := *f.slot(zone)
		for i := range cards {
			if cards[i].IsScoringCharacter() {
				out = append(out, &cards[i])
			}
		}
	}
	return out
}

// FaceUpUtilities returns face-up help then sp cards.
func (f *Field) FaceUpUtilities() []*PlacedCard {
	var out []*PlacedCard
	for _, zone := range []rules.Zone{rules.ZoneHelp, rules.ZoneSP} {
		cards := *f.slot(zone)
		for i := range cards {
			if cards[i].IsFaceUpUtility() {
				out = append(out, &cards[i])
			}
		}
	}
	return out
}

// Count returns the number of cards on the field.
func (f *Field) Count() int {
	n := 0
	for _, zone := range rules.AllZones() {
		n += len(f.Zone(zone))
	}
	return n
}

// IsCharacterZoneOccupied reports whether zone holds a face-up character.
func IsCharacterZoneOccupied(f *Field, zone rules.Zone) bool {
	if !zone.IsCharacter() {
		return false
	}
	for _, card := range f.Zone(zone) {
		if card.IsScoringCharacter() {
			return true
		}
	}
	return false
}

// NewField returns a field with empty (non-nil) zones.
func NewField() Field {
	return Field{
		Top:   []PlacedCard{},
		Left:  []PlacedCard{},
		Right: []PlacedCard{},
		Help:  []PlacedCard{},
		SP:    []PlacedCard{},
	}
}

func (f Field) clone() Field {
	return Field{
		Top:   clonePlaced(f.Top),
		Left:  clonePlaced(f.Left),
		Right: clonePlaced(f.Right),
		Help:  clonePlaced(f.Help),
		SP:    clonePlaced(f.SP),
	}
}

func clonePlaced(in []PlacedCard) []PlacedCard {
	if in == nil {
		return nil
	}
	out := make([]PlacedCard, len(in))
	for i, card := range in {
		card.Modifiers = append([]PowerModifier(nil), card.Modifiers...)
		out[i] = card
	}
	return out
}
