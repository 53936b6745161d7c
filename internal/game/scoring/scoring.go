// Package scoring computes leader-battle points: zone power after continuous effects plus combo bonuses.
package scoring

import (
	"strings"

	"github.com/leaderbattle/battle-server-go/internal/game/effects"
	"github.com/leaderbattle/battle-server-go/internal/game/rules"
	"github.com/leaderbattle/battle-server-go/internal/game/state"
)

// Combo names a bonus pattern over the scoring characters.
type Combo string

const (
	ComboSameCategory       Combo = "sameCategory"
	ComboDistinctCategories Combo = "distinctCategories"
	ComboHighPower          Combo = "highPower"
	ComboTraitSynergy       Combo = "traitSynergy"
	ComboBalanced           Combo = "balanced"
)

// Bonuses configures combo detection and the power each combo adds.
type Bonuses struct {
	SameCategory       int `mapstructure:"same_category"`
	DistinctCategories int `mapstructure:"distinct_categories"`
	HighPower          int `mapstructure:"high_power"`
	TraitSynergy       int `mapstructure:"trait_synergy"`
	Balanced           int `mapstructure:"balanced"`

	HighPowerThreshold int `mapstructure:"high_power_threshold"`
	BalancedSpread     int `mapstructure:"balanced_spread"`
	MinCharacters      int `mapstructure:"min_characters"`
}

// DefaultBonuses returns the standard combo table.
func DefaultBonuses() Bonuses {
	return Bonuses{
		SameCategory:       50,
		DistinctCategories: 30,
		HighPower:          40,
		TraitSynergy:       20,
		Balanced:           25,
		HighPowerThreshold: 80,
		BalancedSpread:     30,
		MinCharacters:      3,
	}
}

func (b Bonuses) value(c Combo) int {
	switch c {
	case ComboSameCategory:
		return b.SameCategory
	case ComboDistinctCategories:
		return b.DistinctCategories
	case ComboHighPower:
		return b.HighPower
	case ComboTraitSynergy:
		return b.TraitSynergy
	case ComboBalanced:
		return b.Balanced
	}
	return 0
}

// CharacterScore is the final power of one face-up character. Sources lists the cards
// whose effects changed it, in application order.
type CharacterScore struct {
	CardID  string     `json:"cardId"`
	Zone    rules.Zone `json:"zone"`
	Base    int        `json:"base"`
	Final   int        `json:"final"`
	Sources []string   `json:"sources,omitempty"`
}

// PlayerScore is the breakdown of one player's points.
type PlayerScore struct {
	PlayerID   state.PlayerID   `json:"playerId"`
	Characters []CharacterScore `json:"characters"`
	Power      int              `json:"power"`
	Combos     []Combo          `json:"combos"`
	ComboBonus int              `json:"comboBonus"`
	Total      int              `json:"total"`
}

// Calculator computes player points.
type Calculator struct {
	interp  *effects.Interpreter
	bonuses Bonuses
}

// NewCalculator creates a calculator using interp for continuous rules.
func NewCalculator(interp *effects.Interpreter, bonuses Bonuses) *Calculator {
	return &Calculator{interp: interp, bonuses: bonuses}
}

// Evaluate scores both players without touching m.
func (c *Calculator) Evaluate(m *state.MatchState) map[state.PlayerID]PlayerScore {
	ls := c.interp.Continuous(m)
	out := make(map[state.PlayerID]PlayerScore, len(m.Players))
	for _, p := range m.Ordered() {
		out[p.ID] = c.score(ls, p)
	}
	return out
}

// CalculatePlayerPoint returns the total points of player.
func (c *Calculator) CalculatePlayerPoint(m *state.MatchState, player state.PlayerID) int {
	return c.Evaluate(m)[player].Total
}

// Apply writes points, combos and per-card values back onto m.
func (c *Calculator) Apply(m *state.MatchState) map[state.PlayerID]PlayerScore {
	scores := c.Evaluate(m)
	for id, score := range scores {
		p := m.Players[id]
		p.PlayerPoint = score.Total
		p.Combos = p.Combos[:0]
		for _, combo := range score.Combos {
			p.Combos = append(p.Combos, string(combo))
		}
		final := make(map[rules.Zone]int, len(score.Characters))
		for _, ch := range score.Characters {
			final[ch.Zone] = ch.Final
		}
		for _, zone := range rules.CharacterZones {
			cards := p.Field.Zone(zone)
			for i := range cards {
				cards[i].ValueOnField = 0
				if cards[i].IsScoringCharacter() {
					cards[i].ValueOnField = final[zone]
				}
			}
		}
	}
	return scores
}

func (c *Calculator) score(ls *effects.LayerSystem, p *state.PlayerState) PlayerScore {
	score := PlayerScore{PlayerID: p.ID}
	var scoring []*state.PlacedCard
	for _, zone := range rules.CharacterZones {
		cards := p.Field.Zone(zone)
		for i := range cards {
			if !cards[i].IsScoringCharacter() {
				continue
			}
			snap := effects.NewSnapshot(p.ID, zone, &cards[i])
			sources := effectSources(ls.EffectsFor(snap))
			ls.Apply(snap)
			final := snap.Power
			if final < 0 {
				final = 0
			}
			score.Characters = append(score.Characters, CharacterScore{
				CardID:  cards[i].CardID,
				Zone:    zone,
				Base:    snap.BasePower,
				Final:   final,
				Sources: sources,
			})
			score.Power += final
			scoring = append(scoring, &cards[i])
		}
	}
	score.Combos = c.detectCombos(scoring, score.Characters)
	for _, combo := range score.Combos {
		score.ComboBonus += c.bonuses.value(combo)
	}
	score.Total = score.Power + score.ComboBonus
	return score
}

func effectSources(applied []effects.ContinuousEffect) []string {
	var out []string
	seen := make(map[string]bool, len(applied))
	for _, effect := range applied {
		id := effect.SourceID()
		if id == "" || seen[id] {
			continue
		}
		seen[id] = true
		out = append(out, id)
	}
	return out
}

func (c *Calculator) detectCombos(cards []*state.PlacedCard, finals []CharacterScore) []Combo {
	var combos []Combo
	n := len(cards)
	if n == 0 {
		return nil
	}
	minChars := c.bonuses.MinCharacters

	if n >= minChars {
		categories := make(map[string]int)
		for _, card := range cards {
			categories[strings.ToLower(card.Definition.GameType)]++
		}
		_, blank := categories[""]
		if !blank && len(categories) == 1 {
			combos = append(combos, ComboSameCategory)
		}
		if !blank && len(categories) == n {
			combos = append(combos, ComboDistinctCategories)
		}

		high := true
		lo, hi := finals[0].Final, finals[0].Final
		for _, f := range finals {
			if f.Final < c.bonuses.HighPowerThreshold {
				high = false
			}
			if f.Final < lo {
				lo = f.Final
			}
			if f.Final > hi {
				hi = f.Final
			}
		}
		if high {
			combos = append(combos, ComboHighPower)
		}
		if hi-lo <= c.bonuses.BalancedSpread {
			combos = append(combos, ComboBalanced)
		}
	}

	traits := make(map[string]int)
	for _, card := range cards {
		seen := make(map[string]bool)
		for _, trait := range card.Definition.Traits {
			key := strings.ToLower(strings.TrimSpace(trait))
			if key == "" || seen[key] {
				continue
			}
			seen[key] = true
			traits[key]++
		}
	}
	for _, count := range traits {
		if count >= 2 {
			combos = append(combos, ComboTraitSynergy)
			break
		}
	}
	return combos
}
