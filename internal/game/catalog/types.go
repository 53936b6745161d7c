package catalog

import (
	"strings"

	"github.com/leaderbattle/battle-server-go/internal/game/rules"
)

// CardType classifies static card definitions.
type CardType string

const (
	CardTypeCharacter CardType = "character"
	CardTypeHelp      CardType = "help"
	CardTypeSP        CardType = "sp"
	CardTypeLeader    CardType = "leader"
)

// TriggerType distinguishes rules re-evaluated every scoring pass from one-shot rules.
type TriggerType string

const (
	TriggerContinuous TriggerType = "continuous"
	TriggerTriggered  TriggerType = "triggered"
)

// WildcardToken in a compatibility list or a card's traits matches everything.
const WildcardToken = "all"

// CardDefinition is an immutable, externally supplied card.
type CardDefinition struct {
	ID       string   `json:"id" yaml:"id"`
	Name     string   `json:"name" yaml:"name"`
	CardType CardType `json:"cardType" yaml:"cardType"`
	Traits   []string `json:"traits,omitempty" yaml:"traits"`
	Power    int      `json:"power" yaml:"power"`
	GameType string   `json:"gameType,omitempty" yaml:"gameType"`
	Effects  Effects  `json:"effects" yaml:"effects"`
}

// HasTrait reports whether the card carries trait (case-insensitive).
func (c CardDefinition) HasTrait(trait string) bool {
	return containsFold(c.Traits, trait)
}

// LeaderDefinition is a card definition plus turn-order priority and zone compatibility.
type LeaderDefinition struct {
	ID                string                  `json:"id" yaml:"id"`
	Name              string                  `json:"name" yaml:"name"`
	CardType          CardType                `json:"cardType" yaml:"cardType"`
	Traits            []string                `json:"traits,omitempty" yaml:"traits"`
	GameType          string                  `json:"gameType,omitempty" yaml:"gameType"`
	Level             int                     `json:"level" yaml:"level"`
	InitialPoint      int                     `json:"initialPoint" yaml:"initialPoint"`
	ZoneCompatibility map[rules.Zone][]string `json:"zoneCompatibility" yaml:"zoneCompatibility"`
	Effects           Effects                 `json:"effects" yaml:"effects"`
}

// Accepts reports whether the leader's compatibility list for zone admits the card.
func (l LeaderDefinition) Accepts(zone rules.Zone, card CardDefinition) bool {
	if containsFold(card.Traits, WildcardToken) {
		return true
	}
	allowed := l.ZoneCompatibility[zone]
	if containsFold(allowed, WildcardToken) {
		return true
	}
	for _, trait := range card.Traits {
		if containsFold(allowed, trait) {
			return true
		}
	}
	return card.GameType != "" && containsFold(allowed, card.GameType)
}

// Effects wraps the rule list of a card.
type Effects struct {
	Rules []Rule `json:"rules,omitempty" yaml:"rules"`
}

// Rule is one trigger -> target -> effect entry.
type Rule struct {
	ID      string  `json:"id,omitempty" yaml:"id"`
	Trigger Trigger `json:"trigger" yaml:"trigger"`
	Target  Target  `json:"target" yaml:"target"`
	Effect  Effect  `json:"effect" yaml:"effect"`
}

// Trigger describes when a rule applies.
type Trigger struct {
	Type      TriggerType `json:"type" yaml:"type"`
	Event     string      `json:"event,omitempty" yaml:"event"`
	Condition *Condition  `json:"condition,omitempty" yaml:"condition"`
}

// Condition is the data form of a condition tree node.
// Which fields are meaningful depends on Type.
type Condition struct {
	Type       string      `json:"type" yaml:"type"`
	Owner      string      `json:"owner,omitempty" yaml:"owner"`
	Name       string      `json:"name,omitempty" yaml:"name"`
	Trait      string      `json:"trait,omitempty" yaml:"trait"`
	Attribute  string      `json:"attribute,omitempty" yaml:"attribute"`
	Operator   string      `json:"operator,omitempty" yaml:"operator"`
	Value      string      `json:"value,omitempty" yaml:"value"`
	Zone       string      `json:"zone,omitempty" yaml:"zone"`
	Count      int         `json:"count,omitempty" yaml:"count"`
	Conditions []Condition `json:"conditions,omitempty" yaml:"conditions"`
}

// Target selects the cards an effect applies to.
type Target struct {
	Owner   string       `json:"owner,omitempty" yaml:"owner"`
	Zones   []rules.Zone `json:"zones,omitempty" yaml:"zones"`
	Filters []Filter     `json:"filters,omitempty" yaml:"filters"`
}

// Filter narrows a target selection.
type Filter struct {
	Type   string   `json:"type" yaml:"type"`
	Value  string   `json:"value,omitempty" yaml:"value"`
	Values []string `json:"values,omitempty" yaml:"values"`
}

// Effect is the data form of an effect descriptor.
type Effect struct {
	Type        string `json:"type" yaml:"type"`
	Operation   string `json:"operation,omitempty" yaml:"operation"`
	Value       int    `json:"value,omitempty" yaml:"value"`
	Count       int    `json:"count,omitempty" yaml:"count"`
	SearchCount int    `json:"searchCount,omitempty" yaml:"searchCount"`
	SelectCount int    `json:"selectCount,omitempty" yaml:"selectCount"`
	CardType    string `json:"cardType,omitempty" yaml:"cardType"`
	Reason      string `json:"reason,omitempty" yaml:"reason"`
}

// DeckSnapshot is a player's deck list as stored in the catalog.
type DeckSnapshot struct {
	PlayerID string   `json:"playerId" yaml:"playerId"`
	Leaders  []string `json:"leaders" yaml:"leaders"`
	Cards    []string `json:"cards" yaml:"cards"`
}

func containsFold(values []string, want string) bool {
	want = strings.TrimSpace(want)
	for _, v := range values {
		if strings.EqualFold(strings.TrimSpace(v), want) {
			return true
		}
	}
	return false
}
