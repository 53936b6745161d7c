package effects

import (
	"fmt"

	"github.com/google/uuid"

	"github.com/leaderbattle/battle-server-go/internal/game/rules"
	"github.com/leaderbattle/battle-server-go/internal/game/state"
)

// Power operations.
const (
	OperationAdd = "add"
	OperationSet = "set"
)

// RulePowerEffect is an active continuous modifyPower rule bound to its owner.
type RulePowerEffect struct {
	id        string
	layer     Layer
	sourceID  string
	owner     state.PlayerID
	match     *state.MatchState
	selector  Selector
	operation string
	value     int
}

// NewRulePowerEffect binds a modifyPower rule. The id is stable for (owner, source, rule index).
func NewRulePowerEffect(m *state.MatchState, layer Layer, owner state.PlayerID, sourceID string, ruleIndex int, selector Selector, operation string, value int) *RulePowerEffect {
	seed := fmt.Sprintf("%s|%s|%d|%d", owner, sourceID, ruleIndex, layer)
	return &RulePowerEffect{
		id:        uuid.NewSHA1(uuid.NameSpaceOID, []byte(seed)).String(),
		layer:     layer,
		sourceID:  sourceID,
		owner:     owner,
		match:     m,
		selector:  selector,
		operation: operation,
		value:     value,
	}
}

// ID returns the unique identifier.
func (e *RulePowerEffect) ID() string { return e.id }

// Layer identifies the layer in which the effect applies.
func (e *RulePowerEffect) Layer() Layer { return e.layer }

// SourceID returns the card the rule comes from.
func (e *RulePowerEffect) SourceID() string { return e.sourceID }

// AppliesTo determines whether the snapshot is a target of the rule.
func (e *RulePowerEffect) AppliesTo(s *Snapshot) bool {
	if s == nil {
		return false
	}
	return e.selector.Matches(e.match, e.owner, s.OwnerID, s.Zone, s.Definition)
}

// Apply modifies the snapshot power.
func (e *RulePowerEffect) Apply(s *Snapshot) {
	applyOperation(s, e.operation, e.value)
}

// StoredModifierEffect replays a triggered power change recorded on a placed card.
type StoredModifierEffect struct {
	id       string
	owner    state.PlayerID
	zone     rules.Zone
	cardID   string
	modifier state.PowerModifier
}

// NewStoredModifierEffect wraps the i-th modifier of the card in zone.
func NewStoredModifierEffect(owner state.PlayerID, zone rules.Zone, cardID string, i int, mod state.PowerModifier) *StoredModifierEffect {
	return &StoredModifierEffect{
		id:       fmt.Sprintf("stored|%s|%s|%s|%d", owner, zone, cardID, i),
		owner:    owner,
		zone:     zone,
		cardID:   cardID,
		modifier: mod,
	}
}

func (e *StoredModifierEffect) ID() string   { return e.id }
func (e *StoredModifierEffect) Layer() Layer { return LayerBattle }

// SourceID returns the card whose triggered effect recorded the modifier.
func (e *StoredModifierEffect) SourceID() string { return e.modifier.SourceCardID }

func (e *StoredModifierEffect) AppliesTo(s *Snapshot) bool {
	return s != nil && s.OwnerID == e.owner && s.Zone == e.zone && s.CardID == e.cardID
}

func (e *StoredModifierEffect) Apply(s *Snapshot) {
	applyOperation(s, e.modifier.Operation, e.modifier.Value)
}

func applyOperation(s *Snapshot, operation string, value int) {
	if operation == OperationSet {
		s.Power = value
		return
	}
	s.Power += value
}
