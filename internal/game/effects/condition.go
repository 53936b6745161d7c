package effects

import (
	"strconv"
	"strings"

	"go.uber.org/zap"

	"github.com/leaderbattle/battle-server-go/internal/game/catalog"
	"github.com/leaderbattle/battle-server-go/internal/game/rules"
	"github.com/leaderbattle/battle-server-go/internal/game/state"
)

// Context is what a condition is evaluated against: the match and the player owning the rule.
type Context struct {
	Match *state.MatchState
	Owner state.PlayerID
}

// Player resolves "self" / "opponent" relative to the rule owner.
func (c Context) Player(owner string) *state.PlayerState {
	if c.Match == nil {
		return nil
	}
	if strings.EqualFold(owner, OwnerOpponent) {
		return c.Match.Opponent(c.Owner)
	}
	return c.Match.Players[c.Owner]
}

// Condition is a compiled condition tree node.
type Condition interface {
	Evaluate(Context) bool
	isCondition()
}

type alwaysCondition struct{}

func (alwaysCondition) Evaluate(Context) bool { return true }
func (alwaysCondition) isCondition()          {}

// unknownCondition fails closed.
type unknownCondition struct{ kind string }

func (unknownCondition) Evaluate(Context) bool { return false }
func (unknownCondition) isCondition()          {}

type hasCharacterCondition struct {
	owner string
	name  string
}

func (c hasCharacterCondition) Evaluate(ctx Context) bool {
	p := ctx.Player(c.owner)
	if p == nil {
		return false
	}
	for _, card := range p.Field.ScoringCharacters() {
		if strings.EqualFold(card.Definition.Name, c.name) || card.CardID == c.name {
			return true
		}
	}
	return false
}
func (hasCharacterCondition) isCondition() {}

type hasTraitCondition struct {
	owner string
	trait string
}

func (c hasTraitCondition) Evaluate(ctx Context) bool {
	p := ctx.Player(c.owner)
	if p == nil {
		return false
	}
	for _, card := range p.Field.ScoringCharacters() {
		if card.Definition.HasTrait(c.trait) {
			return true
		}
	}
	return false
}
func (hasTraitCondition) isCondition() {}

type leaderAttributeCondition struct {
	owner     string
	attribute string
	operator  string
	value     string
}

func (c leaderAttributeCondition) Evaluate(ctx Context) bool {
	p := ctx.Player(c.owner)
	if p == nil || p.Leader.ID == "" {
		return false
	}
	leader := p.Leader
	switch c.attribute {
	case "name":
		return c.operator == OpEqual && strings.EqualFold(leader.Name, c.value)
	case "type":
		if c.operator != OpEqual {
			return false
		}
		return strings.EqualFold(leader.GameType, c.value) ||
			catalog.CardDefinition{Traits: leader.Traits}.HasTrait(c.value)
	case "level":
		want, err := strconv.Atoi(c.value)
		if err != nil {
			return false
		}
		switch c.operator {
		case OpEqual:
			return leader.Level == want
		case OpAtLeast:
			return leader.Level >= want
		case OpAtMost:
			return leader.Level <= want
		}
	}
	return false
}
func (leaderAttributeCondition) isCondition() {}

type zoneEmptyCondition struct {
	owner string
	zone  rules.Zone
}

func (c zoneEmptyCondition) Evaluate(ctx Context) bool {
	p := ctx.Player(c.owner)
	if p == nil {
		return false
	}
	return !p.Field.Occupied(c.zone)
}
func (zoneEmptyCondition) isCondition() {}

type opponentHandAboveCondition struct{ count int }

func (c opponentHandAboveCondition) Evaluate(ctx Context) bool {
	p := ctx.Player(OwnerOpponent)
	return p != nil && len(p.Deck.Hand) > c.count
}
func (opponentHandAboveCondition) isCondition() {}

type anyCondition struct{ children []Condition }

func (c anyCondition) Evaluate(ctx Context) bool {
	for _, child := range c.children {
		if child.Evaluate(ctx) {
			return true
		}
	}
	return false
}
func (anyCondition) isCondition() {}

type allCondition struct{ children []Condition }

func (c allCondition) Evaluate(ctx Context) bool {
	for _, child := range c.children {
		if !child.Evaluate(ctx) {
			return false
		}
	}
	return true
}
func (allCondition) isCondition() {}

// Condition kinds understood by CompileCondition.
const (
	CondHasCharacter          = "hasCharacter"
	CondHasCharacterWithTrait = "hasCharacterWithTrait"
	CondLeaderAttribute       = "leaderAttribute"
	CondZoneEmpty             = "zoneEmpty"
	CondOpponentHandAbove     = "opponentHandSizeAbove"
	CondOr                    = "or"
	CondAnd                   = "and"
	CondAlways                = "always"

	OwnerSelf     = "self"
	OwnerOpponent = "opponent"
	OwnerBoth     = "both"

	OpEqual   = "eq"
	OpAtLeast = "gte"
	OpAtMost  = "lte"
)

// CompileCondition turns the data form into a Condition. A nil input always holds.
// Unrecognised shapes compile to a condition that never holds.
func CompileCondition(c *catalog.Condition, logger *zap.Logger) Condition {
	if c == nil {
		return alwaysCondition{}
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	owner := c.Owner
	if owner == "" {
		owner = OwnerSelf
	}
	switch c.Type {
	case CondAlways, "":
		return alwaysCondition{}
	case CondHasCharacter:
		if c.Name != "" {
			return hasCharacterCondition{owner: owner, name: c.Name}
		}
	case CondHasCharacterWithTrait:
		if c.Trait != "" {
			return hasTraitCondition{owner: owner, trait: c.Trait}
		}
	case CondLeaderAttribute:
		op := normaliseOperator(c.Operator)
		attr := strings.ToLower(c.Attribute)
		if op != "" && (attr == "name" || attr == "type" || attr == "level") {
			return leaderAttributeCondition{owner: owner, attribute: attr, operator: op, value: c.Value}
		}
	case CondZoneEmpty:
		if zone, err := rules.ParseZone(c.Zone); err == nil {
			return zoneEmptyCondition{owner: owner, zone: zone}
		}
	case CondOpponentHandAbove:
		return opponentHandAboveCondition{count: c.Count}
	case CondOr, CondAnd:
		children := make([]Condition, 0, len(c.Conditions))
		for i := range c.Conditions {
			children = append(children, CompileCondition(&c.Conditions[i], logger))
		}
		if c.Type == CondOr {
			return anyCondition{children: children}
		}
		return allCondition{children: children}
	}
	logger.Warn("malformed rule condition evaluates false", zap.String("type", c.Type))
	return unknownCondition{kind: c.Type}
}

func normaliseOperator(op string) string {
	switch strings.ToLower(strings.TrimSpace(op)) {
	case "", "eq", "=", "==", "equal", "equals":
		return OpEqual
	case "gte", ">=", "atleast":
		return OpAtLeast
	case "lte", "<=", "atmost":
		return OpAtMost
	}
	return ""
}
