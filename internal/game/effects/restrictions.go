package effects

import (
	"fmt"
	"strings"

	"github.com/leaderbattle/battle-server-go/internal/game/catalog"
	"github.com/leaderbattle/battle-server-go/internal/game/rules"
	"github.com/leaderbattle/battle-server-go/internal/game/state"
)

// standingSources returns the leader and face-up help/sp cards of p.
func standingSources(p *state.PlayerState) []Source {
	var out []Source
	if src, ok := LeaderSource(p); ok {
		out = append(out, src)
	}
	for _, card := range p.Field.FaceUpUtilities() {
		out = append(out, CardSource(p.ID, card))
	}
	return out
}

// RefreshRestrictions rebuilds every player's restriction table from the blockSummonCard
// rules currently in play whose conditions hold. Entries are keyed by
// (source player, source card, rule index) so a rule never lands twice.
func (in *Interpreter) RefreshRestrictions(m *state.MatchState) {
	for _, p := range m.Ordered() {
		p.Restrictions = make(map[state.RestrictionKey]state.Restriction)
	}
	for _, owner := range m.Ordered() {
		ctx := Context{Match: m, Owner: owner.ID}
		for _, src := range standingSources(owner) {
			for i, rule := range src.Effects.Rules {
				block, ok := CompileEffect(rule.Effect, in.logger).(BlockSummon)
				if !ok {
					continue
				}
				if !CompileCondition(rule.Trigger.Condition, in.logger).Evaluate(ctx) {
					continue
				}
				key := state.RestrictionKey{SourcePlayer: owner.ID, SourceCardID: src.CardID, RuleIndex: i}
				restriction := buildRestriction(key, src, rule.Target, block)
				for _, id := range NewSelector(rule.Target, OwnerOpponent).Players(m, owner.ID) {
					if target := m.Players[id]; target != nil {
						target.Restrictions[key] = restriction
					}
				}
			}
		}
	}
}

func buildRestriction(key state.RestrictionKey, src Source, target catalog.Target, block BlockSummon) state.Restriction {
	r := state.Restriction{Key: key, Zones: append([]rules.Zone(nil), target.Zones...), Reason: block.Reason}
	if block.CardType != "" {
		r.CardTypes = append(r.CardTypes, block.CardType)
	}
	for _, f := range target.Filters {
		values := f.Values
		if f.Value != "" {
			values = append([]string{f.Value}, values...)
		}
		switch f.Type {
		case FilterHasTrait:
			r.Traits = append(r.Traits, values...)
		case FilterGameTypeIn:
			r.GameTypes = append(r.GameTypes, values...)
		case FilterNameIs:
			r.Names = append(r.Names, values...)
		case FilterCardType:
			r.CardTypes = append(r.CardTypes, values...)
		}
	}
	if r.Reason == "" {
		scope := strings.Join(append(append([]string{}, r.Traits...), r.GameTypes...), "/")
		if scope == "" {
			scope = strings.Join(r.CardTypes, "/")
		}
		if scope == "" {
			scope = "these"
		}
		r.Reason = fmt.Sprintf("Cannot summon %s cards due to %s effect", scope, src.Name)
	}
	return r
}

// BlockingRestriction returns the first restriction on player that forbids card in zone.
func BlockingRestriction(p *state.PlayerState, card catalog.CardDefinition, zone rules.Zone) (state.Restriction, bool) {
	var (
		found state.Restriction
		hit   bool
	)
	for key, r := range p.Restrictions {
		if !r.Matches(card, zone) {
			continue
		}
		// Map order is random; pick the smallest key so the reported reason is stable.
		if !hit || key.String() < found.Key.String() {
			found, hit = r, true
		}
	}
	return found, hit
}

// OverrideFor scans the player's face-up help/sp cards for an overrideRestriction rule whose
// condition holds and whose target admits card in zone.
func (in *Interpreter) OverrideFor(m *state.MatchState, player state.PlayerID, card catalog.CardDefinition, zone rules.Zone) *state.OverrideInfo {
	p := m.Players[player]
	if p == nil {
		return nil
	}
	ctx := Context{Match: m, Owner: player}
	for _, utility := range p.Field.FaceUpUtilities() {
		src := CardSource(player, utility)
		for _, rule := range src.Effects.Rules {
			override, ok := CompileEffect(rule.Effect, in.logger).(OverrideRestriction)
			if !ok {
				continue
			}
			if len(rule.Target.Zones) > 0 && !NewSelector(rule.Target, OwnerSelf).CoversZone(zone) {
				continue
			}
			if !MatchesFilters(rule.Target.Filters, card) {
				continue
			}
			if !CompileCondition(rule.Trigger.Condition, in.logger).Evaluate(ctx) {
				continue
			}
			reason := override.Reason
			if reason == "" {
				reason = fmt.Sprintf("%s overrides summon restrictions", src.Name)
			}
			return &state.OverrideInfo{SourceCardID: src.CardID, SourceType: src.CardType, Reason: reason}
		}
	}
	return nil
}
