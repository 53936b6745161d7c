package effects

import (
	"strings"

	"go.uber.org/zap"

	"github.com/leaderbattle/battle-server-go/internal/game/catalog"
)

// Effect kinds understood by CompileEffect.
const (
	EffectModifyPower         = "modifyPower"
	EffectDrawCard            = "drawCard"
	EffectDiscardRandomCard   = "discardRandomCard"
	EffectSearchCard          = "searchCard"
	EffectForcePlaySP         = "forcePlaySP"
	EffectBlockSummonCard     = "blockSummonCard"
	EffectOverrideRestriction = "overrideRestriction"
)

// Effect is a compiled effect descriptor. The concrete types below are the only implementations.
type Effect interface {
	Kind() string
	isEffect()
}

// ModifyPower adds to or overwrites the power of the targets.
type ModifyPower struct {
	Operation string
	Value     int
}

// DrawCard makes the target player draw Count cards.
type DrawCard struct{ Count int }

// DiscardRandomCard discards Count random cards from the target player's hand.
type DiscardRandomCard struct{ Count int }

// SearchCard looks at the top SearchCount cards and keeps up to SelectCount.
type SearchCard struct {
	SearchCount int
	SelectCount int
	CardType    catalog.CardType
}

// ForcePlaySP obliges the target player to fill their SP zone before the next SP phase.
type ForcePlaySP struct{}

// BlockSummon is a standing restriction on the target player's face-up placements.
type BlockSummon struct {
	CardType string
	Reason   string
}

// OverrideRestriction lifts restrictions for its owner's placements.
type OverrideRestriction struct{ Reason string }

// UnknownEffect is the no-op produced for unrecognised effect shapes.
type UnknownEffect struct{ Type string }

func (ModifyPower) Kind() string         { return EffectModifyPower }
func (DrawCard) Kind() string            { return EffectDrawCard }
func (DiscardRandomCard) Kind() string   { return EffectDiscardRandomCard }
func (SearchCard) Kind() string          { return EffectSearchCard }
func (ForcePlaySP) Kind() string         { return EffectForcePlaySP }
func (BlockSummon) Kind() string         { return EffectBlockSummonCard }
func (OverrideRestriction) Kind() string { return EffectOverrideRestriction }
func (e UnknownEffect) Kind() string     { return e.Type }

func (ModifyPower) isEffect()         {}
func (DrawCard) isEffect()            {}
func (DiscardRandomCard) isEffect()   {}
func (SearchCard) isEffect()          {}
func (ForcePlaySP) isEffect()         {}
func (BlockSummon) isEffect()         {}
func (OverrideRestriction) isEffect() {}
func (UnknownEffect) isEffect()       {}

// CompileEffect turns the data form into an Effect. Unrecognised shapes become UnknownEffect.
func CompileEffect(e catalog.Effect, logger *zap.Logger) Effect {
	if logger == nil {
		logger = zap.NewNop()
	}
	switch e.Type {
	case EffectModifyPower:
		op := strings.ToLower(e.Operation)
		if op == "" {
			op = OperationAdd
		}
		if op == OperationAdd || op == OperationSet {
			return ModifyPower{Operation: op, Value: e.Value}
		}
	case EffectDrawCard:
		return DrawCard{Count: atLeastOne(e.Count, e.Value)}
	case EffectDiscardRandomCard:
		return DiscardRandomCard{Count: atLeastOne(e.Count, e.Value)}
	case EffectSearchCard:
		if e.SearchCount > 0 {
			return SearchCard{
				SearchCount: e.SearchCount,
				SelectCount: atLeastOne(e.SelectCount, 0),
				CardType:    catalog.CardType(strings.ToLower(e.CardType)),
			}
		}
	case EffectForcePlaySP:
		return ForcePlaySP{}
	case EffectBlockSummonCard:
		return BlockSummon{CardType: strings.ToLower(e.CardType), Reason: e.Reason}
	case EffectOverrideRestriction:
		return OverrideRestriction{Reason: e.Reason}
	}
	logger.Warn("malformed rule effect ignored", zap.String("type", e.Type))
	return UnknownEffect{Type: e.Type}
}

func atLeastOne(values ...int) int {
	for _, v := range values {
		if v > 0 {
			return v
		}
	}
	return 1
}
