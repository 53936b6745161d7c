package rules

import (
	"fmt"
	"math"
)

// Phase represents the broad phases of a match.
type Phase int

const (
	PhaseStartRedraw Phase = iota
	PhaseMain
	PhaseSP
	PhaseLeaderBattleEnd
	PhaseGameEnd
)

var phaseNames = map[Phase]string{
	PhaseStartRedraw:     "START_REDRAW",
	PhaseMain:            "MAIN_PHASE",
	PhaseSP:              "SP_PHASE",
	PhaseLeaderBattleEnd: "LEADER_BATTLE_END",
	PhaseGameEnd:         "GAME_END",
}

func (p Phase) String() string {
	if name, ok := phaseNames[p]; ok {
		return name
	}
	return fmt.Sprintf("PHASE_%d", int(p))
}

// MarshalText encodes the phase by name so persisted snapshots stay readable.
func (p Phase) MarshalText() ([]byte, error) {
	if _, ok := phaseNames[p]; !ok {
		return nil, fmt.Errorf("unknown phase %d", int(p))
	}
	return []byte(p.String()), nil
}

// UnmarshalText decodes a phase name.
func (p *Phase) UnmarshalText(text []byte) error {
	for phase, name := range phaseNames {
		if name == string(text) {
			*p = phase
			return nil
		}
	}
	return fmt.Errorf("unknown phase %q", string(text))
}

// phaseTransitions lists the phases reachable from each phase.
// GAME_END has no successors.
var phaseTransitions = map[Phase][]Phase{
	PhaseStartRedraw:     {PhaseMain},
	PhaseMain:            {PhaseSP, PhaseLeaderBattleEnd, PhaseGameEnd},
	PhaseSP:              {PhaseMain, PhaseLeaderBattleEnd, PhaseGameEnd},
	PhaseLeaderBattleEnd: {PhaseMain, PhaseGameEnd},
}

// CanTransition reports whether the state machine allows from -> to.
func CanTransition(from, to Phase) bool {
	for _, next := range phaseTransitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// PhaseState holds the current phase and the half-turn counter of a match.
type PhaseState struct {
	Phase       Phase   `json:"phase"`
	CurrentTurn float64 `json:"currentTurn"`
}

// NewPhaseState creates a phase state at START_REDRAW, turn 0.
func NewPhaseState() PhaseState {
	return PhaseState{Phase: PhaseStartRedraw}
}

// Transition moves to the next phase if the state machine allows it.
func (ps *PhaseState) Transition(to Phase) error {
	if !CanTransition(ps.Phase, to) {
		return fmt.Errorf("illegal phase transition %s -> %s", ps.Phase, to)
	}
	ps.Phase = to
	return nil
}

// Ended reports whether the match reached its terminal phase.
func (ps PhaseState) Ended() bool {
	return ps.Phase == PhaseGameEnd
}

// AdvanceHalfTurn increments the turn counter by half a turn and returns it.
func (ps *PhaseState) AdvanceHalfTurn() float64 {
	ps.CurrentTurn += 0.5
	return ps.CurrentTurn
}

// IsSecondHalf reports whether the counter sits on a x.5 half-turn,
// i.e. whether the non-first player is acting.
func IsSecondHalf(turn float64) bool {
	return int(math.Round(turn*10))%10 == 5
}

// ActingIndex returns the index (0 or 1) of the player acting on turn,
// given the index of the player who moves first.
func ActingIndex(turn float64, firstPlayerIndex int) int {
	if IsSecondHalf(turn) {
		return 1 - firstPlayerIndex
	}
	return firstPlayerIndex
}
