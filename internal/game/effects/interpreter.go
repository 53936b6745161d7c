package effects

import (
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/leaderbattle/battle-server-go/internal/game/catalog"
	"github.com/leaderbattle/battle-server-go/internal/game/rules"
	"github.com/leaderbattle/battle-server-go/internal/game/state"
)

// Random is the injectable random source. *rand.Rand satisfies it.
type Random interface {
	Intn(n int) int
	Shuffle(n int, swap func(i, j int))
}

// Source is a card whose rules are in play.
type Source struct {
	Owner    state.PlayerID
	CardID   string
	CardType catalog.CardType
	Name     string
	Effects  catalog.Effects
}

// Interpreter evaluates card rules against a match.
type Interpreter struct {
	catalog    catalog.Catalog
	rng        Random
	logger     *zap.Logger
	autoSelect bool
}

// NewInterpreter creates an interpreter. With autoSelect, searches pick at random instead of
// waiting for the player.
func NewInterpreter(cat catalog.Catalog, rng Random, logger *zap.Logger, autoSelect bool) *Interpreter {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Interpreter{catalog: cat, rng: rng, logger: logger, autoSelect: autoSelect}
}

// Auto returns a copy of the interpreter that never waits for player input.
func (in *Interpreter) Auto() *Interpreter {
	cp := *in
	cp.autoSelect = true
	return &cp
}

// AutoSelect reports whether searches resolve without player input.
func (in *Interpreter) AutoSelect() bool {
	return in.autoSelect
}

// LeaderSource returns the player's current leader as a rule source.
func LeaderSource(p *state.PlayerState) (Source, bool) {
	if p == nil || p.Leader.ID == "" {
		return Source{}, false
	}
	return Source{
		Owner:    p.ID,
		CardID:   p.Leader.ID,
		CardType: catalog.CardTypeLeader,
		Name:     p.Leader.Name,
		Effects:  p.Leader.Effects,
	}, true
}

// CardSource wraps a placed card as a rule source.
func CardSource(owner state.PlayerID, card *state.PlacedCard) Source {
	return Source{
		Owner:    owner,
		CardID:   card.CardID,
		CardType: card.Definition.CardType,
		Name:     card.Definition.Name,
		Effects:  card.Definition.Effects,
	}
}

// Continuous builds the layer system for one scoring pass: leaders, then face-up help/sp,
// then face-up characters, then modifiers stored by triggered effects.
func (in *Interpreter) Continuous(m *state.MatchState) *LayerSystem {
	ls := NewLayerSystem()
	players := m.Ordered()

	for _, p := range players {
		if src, ok := LeaderSource(p); ok {
			in.registerPower(ls, m, LayerLeader, src)
		}
	}
	for _, p := range players {
		for _, card := range p.Field.FaceUpUtilities() {
			in.registerPower(ls, m, LayerUtility, CardSource(p.ID, card))
		}
	}
	for _, p := range players {
		for _, card := range p.Field.ScoringCharacters() {
			in.registerPower(ls, m, LayerCharacter, CardSource(p.ID, card))
		}
	}
	for _, p := range players {
		for _, zone := range rules.CharacterZones {
			for _, card := range p.Field.Zone(zone) {
				if !card.IsScoringCharacter() {
					continue
				}
				for i, mod := range card.Modifiers {
					ls.AddEffect(NewStoredModifierEffect(p.ID, zone, card.CardID, i, mod))
				}
			}
		}
	}
	return ls
}

func (in *Interpreter) registerPower(ls *LayerSystem, m *state.MatchState, layer Layer, src Source) {
	for i, rule := range src.Effects.Rules {
		if rule.Trigger.Type != catalog.TriggerContinuous {
			continue
		}
		eff, ok := CompileEffect(rule.Effect, in.logger).(ModifyPower)
		if !ok {
			continue
		}
		if !CompileCondition(rule.Trigger.Condition, in.logger).Evaluate(Context{Match: m, Owner: src.Owner}) {
			continue
		}
		selector := NewSelector(rule.Target, OwnerSelf)
		ls.AddEffect(NewRulePowerEffect(m, layer, src.Owner, src.CardID, i, selector, eff.Operation, eff.Value))
	}
}

// FireResult reports what a triggered event did.
type FireResult struct {
	Applied []string
	Pending *state.PendingSelection
}

// Fire runs the source's triggered rules listening for event. Effects mutate m in place.
func (in *Interpreter) Fire(m *state.MatchState, src Source, event rules.EventType) (FireResult, error) {
	var result FireResult
	ctx := Context{Match: m, Owner: src.Owner}

	for i, rule := range src.Effects.Rules {
		if rule.Trigger.Type != catalog.TriggerTriggered || rules.EventType(rule.Trigger.Event) != event {
			continue
		}
		if !CompileCondition(rule.Trigger.Condition, in.logger).Evaluate(ctx) {
			continue
		}
		eff := CompileEffect(rule.Effect, in.logger)
		pending, err := in.apply(m, src, i, rule, eff)
		if err != nil {
			return result, err
		}
		result.Applied = append(result.Applied, eff.Kind())
		in.logger.Debug("triggered effect applied",
			zap.String("source", src.CardID),
			zap.String("event", string(event)),
			zap.String("effect", eff.Kind()),
		)
		if pending != nil {
			result.Pending = pending
			break
		}
	}
	return result, nil
}

func (in *Interpreter) apply(m *state.MatchState, src Source, ruleIndex int, rule catalog.Rule, eff Effect) (*state.PendingSelection, error) {
	switch e := eff.(type) {
	case ModifyPower:
		selector := NewSelector(rule.Target, OwnerSelf)
		for _, card := range selector.Resolve(m, src.Owner) {
			card.Modifiers = append(card.Modifiers, state.PowerModifier{
				SourceCardID: src.CardID,
				Operation:    e.Operation,
				Value:        e.Value,
			})
		}
	case DrawCard:
		for _, id := range NewSelector(rule.Target, OwnerSelf).Players(m, src.Owner) {
			DrawCards(m.Players[id], e.Count)
		}
	case DiscardRandomCard:
		for _, id := range NewSelector(rule.Target, OwnerOpponent).Players(m, src.Owner) {
			in.discardRandom(m.Players[id], e.Count)
		}
	case SearchCard:
		return in.search(m, src, e)
	case ForcePlaySP:
		for _, id := range NewSelector(rule.Target, OwnerOpponent).Players(m, src.Owner) {
			if p := m.Players[id]; p != nil {
				p.MustPlaySP = true
			}
		}
	case BlockSummon, OverrideRestriction:
		// Standing effects; picked up by RefreshRestrictions and OverrideFor.
	case UnknownEffect:
	default:
		return nil, fmt.Errorf("unhandled effect %T", eff)
	}
	return nil, nil
}

// DrawCards moves up to n cards from the front of the main deck into hand.
func DrawCards(p *state.PlayerState, n int) int {
	if p == nil {
		return 0
	}
	drawn := 0
	for ; drawn < n && len(p.Deck.MainDeck) > 0; drawn++ {
		p.Deck.Hand = append(p.Deck.Hand, p.Deck.MainDeck[0])
		p.Deck.MainDeck = p.Deck.MainDeck[1:]
	}
	return drawn
}

func (in *Interpreter) discardRandom(p *state.PlayerState, n int) {
	if p == nil {
		return
	}
	for i := 0; i < n && len(p.Deck.Hand) > 0; i++ {
		idx := in.rng.Intn(len(p.Deck.Hand))
		p.Deck.Hand = append(p.Deck.Hand[:idx:idx], p.Deck.Hand[idx+1:]...)
	}
}

func (in *Interpreter) search(m *state.MatchState, src Source, e SearchCard) (*state.PendingSelection, error) {
	p := m.Players[src.Owner]
	if p == nil {
		return nil, nil
	}
	n := e.SearchCount
	if n > len(p.Deck.MainDeck) {
		n = len(p.Deck.MainDeck)
	}
	candidates := append([]string(nil), p.Deck.MainDeck[:n]...)
	var eligible []string
	for _, id := range candidates {
		def, err := in.catalog.Card(id)
		if err != nil {
			return nil, err
		}
		if e.CardType == "" || def.CardType == e.CardType {
			eligible = append(eligible, id)
		}
	}

	sel := &state.PendingSelection{
		ID:           uuid.NewString(),
		PlayerID:     src.Owner,
		SourceCardID: src.CardID,
		Candidates:   candidates,
		Eligible:     eligible,
		SelectCount:  e.SelectCount,
	}
	if len(eligible) == 0 || in.autoSelect {
		return nil, ResolveSelection(p, sel, in.pickRandom(eligible, e.SelectCount))
	}
	return sel, nil
}

func (in *Interpreter) pickRandom(ids []string, n int) []string {
	if n > len(ids) {
		n = len(ids)
	}
	picked := append([]string(nil), ids...)
	in.rng.Shuffle(len(picked), func(i, j int) { picked[i], picked[j] = picked[j], picked[i] })
	return picked[:n]
}

// ResolveSelection completes a search: chosen cards go to hand, the other candidates to
// the bottom of the main deck. chosen must be a sub-multiset of sel.Eligible.
func ResolveSelection(p *state.PlayerState, sel *state.PendingSelection, chosen []string) error {
	if len(chosen) > sel.SelectCount {
		return fmt.Errorf("selected %d cards, at most %d allowed", len(chosen), sel.SelectCount)
	}
	if len(p.Deck.MainDeck) < len(sel.Candidates) {
		return fmt.Errorf("main deck no longer holds the searched cards")
	}
	eligible := make(map[string]int, len(sel.Eligible))
	for _, id := range sel.Eligible {
		eligible[id]++
	}
	keep := make(map[string]int, len(chosen))
	for _, id := range chosen {
		if eligible[id] == 0 {
			return fmt.Errorf("card %s is not a selectable search result", id)
		}
		eligible[id]--
		keep[id]++
	}

	rest := append([]string(nil), p.Deck.MainDeck[len(sel.Candidates):]...)
	for _, id := range sel.Candidates {
		if keep[id] > 0 {
			keep[id]--
			p.Deck.Hand = append(p.Deck.Hand, id)
			continue
		}
		rest = append(rest, id)
	}
	p.Deck.MainDeck = rest
	return nil
}
