package state

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/leaderbattle/battle-server-go/internal/game/catalog"
	"github.com/leaderbattle/battle-server-go/internal/game/rules"
)

// PlayerID identifies a participant of a match.
type PlayerID string

// Deck holds a player's private card piles and leader roster.
type Deck struct {
	Hand             []string `json:"hand"`
	MainDeck         []string `json:"mainDeck"`
	Leaders          []string `json:"leaders"`
	CurrentLeaderIdx int      `json:"currentLeaderIdx"`
}

// CardCount returns hand plus main deck size.
func (d Deck) CardCount() int {
	return len(d.Hand) + len(d.MainDeck)
}

// RosterExhausted reports whether the current leader is the last of the roster.
func (d Deck) RosterExhausted() bool {
	return d.CurrentLeaderIdx >= len(d.Leaders)-1
}

// Action record types written to the turn log besides player actions.
const (
	RecordEndLeaderBattle = "EndLeaderBattle"
	RecordPhaseChange     = "PhaseChange"
	RecordTurnSkipped     = "TurnSkipped"
	RecordRedraw          = "Redraw"
	RecordSPEffect        = "SPEffect"

	DrawWinner = "draw"
)

// OverrideInfo describes which card lifted a restriction for a placement.
type OverrideInfo struct {
	SourceCardID string           `json:"sourceCardId"`
	SourceType   catalog.CardType `json:"sourceType"`
	Reason       string           `json:"reason"`
}

// ActionRecord is one entry of a player's turn log.
type ActionRecord struct {
	Type            string        `json:"type"`
	Turn            float64       `json:"turn"`
	CardIndexInHand int           `json:"cardIndexInHand,omitempty"`
	ZoneIndex       int           `json:"zoneIndex,omitempty"`
	CardID          string        `json:"cardId,omitempty"`
	FaceDown        bool          `json:"faceDown,omitempty"`
	Winner          string        `json:"winner,omitempty"`
	Phase           string        `json:"phase,omitempty"`
	Points          int           `json:"points,omitempty"`
	Override        *OverrideInfo `json:"override,omitempty"`
}

// RestrictionKey identifies the rule that produced a restriction.
type RestrictionKey struct {
	SourcePlayer PlayerID
	SourceCardID string
	RuleIndex    int
}

func (k RestrictionKey) String() string {
	return fmt.Sprintf("%s/%s/%d", k.SourcePlayer, k.SourceCardID, k.RuleIndex)
}

// MarshalText lets the key be used as a JSON object key.
func (k RestrictionKey) MarshalText() ([]byte, error) {
	return []byte(k.String()), nil
}

// UnmarshalText parses player/card/index. Player and card ids must not contain '/'.
func (k *RestrictionKey) UnmarshalText(text []byte) error {
	parts := strings.Split(string(text), "/")
	if len(parts) != 3 {
		return fmt.Errorf("malformed restriction key %q", string(text))
	}
	idx, err := strconv.Atoi(parts[2])
	if err != nil {
		return fmt.Errorf("malformed restriction key %q: %w", string(text), err)
	}
	*k = RestrictionKey{SourcePlayer: PlayerID(parts[0]), SourceCardID: parts[1], RuleIndex: idx}
	return nil
}

// Restriction forbids face-up placements matching its scope. Empty scope lists match anything.
type Restriction struct {
	Key       RestrictionKey `json:"key"`
	CardTypes []string       `json:"cardTypes,omitempty"`
	Traits    []string       `json:"traits,omitempty"`
	GameTypes []string       `json:"gameTypes,omitempty"`
	Names     []string       `json:"names,omitempty"`
	Zones     []rules.Zone   `json:"zones,omitempty"`
	Reason    string         `json:"reason,omitempty"`
}

// Matches reports whether placing card into zone falls under the restriction.
func (r Restriction) Matches(card catalog.CardDefinition, zone rules.Zone) bool {
	if len(r.Zones) > 0 && !containsZone(r.Zones, zone) {
		return false
	}
	if len(r.CardTypes) > 0 && !containsFold(r.CardTypes, string(card.CardType)) {
		return false
	}
	if len(r.GameTypes) > 0 && !containsFold(r.GameTypes, card.GameType) {
		return false
	}
	if len(r.Names) > 0 && !containsFold(r.Names, card.Name) {
		return false
	}
	if len(r.Traits) > 0 {
		hit := false
		for _, trait := range r.Traits {
			if card.HasTrait(trait) {
				hit = true
				break
			}
		}
		if !hit {
			return false
		}
	}
	return true
}

// PendingSelection is an unresolved deck search waiting for the player's choice.
type PendingSelection struct {
	ID           string   `json:"id"`
	PlayerID     PlayerID `json:"playerId"`
	SourceCardID string   `json:"sourceCardId"`
	Candidates   []string `json:"candidates"`
	Eligible     []string `json:"eligible"`
	SelectCount  int      `json:"selectCount"`
}

// PlayerState is the per-player part of a match.
type PlayerState struct {
	ID            PlayerID                       `json:"id"`
	Deck          Deck                           `json:"deck"`
	Redraw        *bool                          `json:"redraw,omitempty"`
	Leader        catalog.LeaderDefinition       `json:"leader"`
	Field         Field                          `json:"field"`
	PlayerPoint   int                            `json:"playerPoint"`
	VictoryPoints int                            `json:"victoryPoints"`
	TurnAction    []ActionRecord                 `json:"turnAction"`
	Restrictions  map[RestrictionKey]Restriction `json:"restrictions"`
	MustPlaySP    bool                           `json:"mustPlaySP"`
	Combos        []string                       `json:"combos,omitempty"`
}

// HasRedrawn reports whether the player already answered the redraw prompt.
func (p *PlayerState) HasRedrawn() bool {
	return p.Redraw != nil
}

// HoldsCardType reports whether any hand card resolves to cardType.
func (p *PlayerState) HoldsCardType(resolve func(string) (catalog.CardDefinition, error), cardType catalog.CardType) bool {
	for _, id := range p.Deck.Hand {
		def, err := resolve(id)
		if err == nil && def.CardType == cardType {
			return true
		}
	}
	return false
}

// MatchState is the root aggregate of a match.
type MatchState struct {
	MatchID string `json:"matchId"`
	rules.PhaseState
	CurrentPlayerID  PlayerID                  `json:"currentPlayerId"`
	FirstPlayerIndex int                       `json:"firstPlayerIndex"`
	WinnerID         PlayerID                  `json:"winnerId,omitempty"`
	IsDraw           bool                      `json:"isDraw,omitempty"`
	PlayerOrder      []PlayerID                `json:"playerOrder"`
	Players          map[PlayerID]*PlayerState `json:"players"`
	PendingSelection *PendingSelection         `json:"pendingSelection,omitempty"`
	UpdateID         string                    `json:"updateId,omitempty"`
	LastUpdate       time.Time                 `json:"lastUpdate,omitempty"`
}

// Player returns the state of id.
func (m *MatchState) Player(id PlayerID) (*PlayerState, bool) {
	p, ok := m.Players[id]
	return p, ok
}

// OpponentOf returns the other participant of the match.
func OpponentOf(m *MatchState, id PlayerID) (PlayerID, bool) {
	if len(m.PlayerOrder) != 2 {
		return "", false
	}
	switch id {
	case m.PlayerOrder[0]:
		return m.PlayerOrder[1], true
	case m.PlayerOrder[1]:
		return m.PlayerOrder[0], true
	}
	return "", false
}

// Opponent is the method form of OpponentOf for callers that know id is a participant.
func (m *MatchState) Opponent(id PlayerID) *PlayerState {
	other, ok := OpponentOf(m, id)
	if !ok {
		return nil
	}
	return m.Players[other]
}

// Ordered returns the players in seat order.
func (m *MatchState) Ordered() []*PlayerState {
	out := make([]*PlayerState, 0, len(m.PlayerOrder))
	for _, id := range m.PlayerOrder {
		if p, ok := m.Players[id]; ok {
			out = append(out, p)
		}
	}
	return out
}

// Clone deep-copies the match so hypothetical branches never share mutable state.
func (m *MatchState) Clone() *MatchState {
	if m == nil {
		return nil
	}
	out := *m
	out.PlayerOrder = append([]PlayerID(nil), m.PlayerOrder...)
	out.Players = make(map[PlayerID]*PlayerState, len(m.Players))
	for id, p := range m.Players {
		out.Players[id] = p.clone()
	}
	if m.PendingSelection != nil {
		sel := *m.PendingSelection
		sel.Candidates = append([]string(nil), sel.Candidates...)
		sel.Eligible = append([]string(nil), sel.Eligible...)
		out.PendingSelection = &sel
	}
	return &out
}

func (p *PlayerState) clone() *PlayerState {
	if p == nil {
		return nil
	}
	out := *p
	out.Deck = Deck{
		Hand:             append([]string(nil), p.Deck.Hand...),
		MainDeck:         append([]string(nil), p.Deck.MainDeck...),
		Leaders:          append([]string(nil), p.Deck.Leaders...),
		CurrentLeaderIdx: p.Deck.CurrentLeaderIdx,
	}
	if p.Redraw != nil {
		v := *p.Redraw
		out.Redraw = &v
	}
	out.Field = p.Field.clone()
	out.TurnAction = nil
	if p.TurnAction != nil {
		out.TurnAction = make([]ActionRecord, len(p.TurnAction))
	}
	for i, rec := range p.TurnAction {
		if rec.Override != nil {
			o := *rec.Override
			rec.Override = &o
		}
		out.TurnAction[i] = rec
	}
	out.Restrictions = nil
	if p.Restrictions != nil {
		out.Restrictions = make(map[RestrictionKey]Restriction, len(p.Restrictions))
	}
	for k, r := range p.Restrictions {
		out.Restrictions[k] = r
	}
	out.Combos = append([]string(nil), p.Combos...)
	return &out
}

func containsFold(values []string, want string) bool {
	for _, v := range values {
		if strings.EqualFold(strings.TrimSpace(v), strings.TrimSpace(want)) {
			return true
		}
	}
	return false
}

func containsZone(zones []rules.Zone, zone rules.Zone) bool {
	for _, z := range zones {
		if z == zone {
			return true
		}
	}
	return false
}
