// Package ai suggests moves by exploring hypothetical continuations of a match.
package ai

import (
	"context"
	"fmt"
	"math"

	"go.uber.org/zap"

	"github.com/leaderbattle/battle-server-go/internal/game"
	"github.com/leaderbattle/battle-server-go/internal/game/state"
)

// DefaultDepth is the number of plies searched when none is configured.
const DefaultDepth = 3

// victoryWeight makes one victory point outweigh any on-field point swing.
const victoryWeight = 1000

// Option configures a Searcher.
type Option func(*Searcher)

// WithDepth bounds the search to depth plies.
func WithDepth(depth int) Option {
	return func(s *Searcher) {
		if depth > 0 {
			s.depth = depth
		}
	}
}

// WithSeed fixes the random source used inside hypothetical branches.
func WithSeed(seed int64) Option {
	return func(s *Searcher) { s.seed = seed }
}

// Searcher is a bounded-depth alpha-beta minimax over engine actions. Every branch works on
// the engine's returned copies, so the caller's state is never touched.
type Searcher struct {
	engine *game.Engine
	logger *zap.Logger
	depth  int
	seed   int64
}

// NewSearcher creates a searcher over engine.
func NewSearcher(engine *game.Engine, logger *zap.Logger, opts ...Option) *Searcher {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &Searcher{engine: engine, logger: logger, depth: DefaultDepth}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Depth returns the configured search depth.
func (s *Searcher) Depth() int {
	return s.depth
}

type node struct {
	score  int
	action *game.Action
}

type search struct {
	ctx      context.Context
	engine   *game.Engine
	root     state.PlayerID
	battle   int
	visited  int
	canceled error
}

// Suggest returns the best action for player in m.
func (s *Searcher) Suggest(ctx context.Context, m *state.MatchState, player state.PlayerID) (game.Action, error) {
	if m == nil {
		return game.Action{}, &game.ActionError{Kind: game.KindInvalidAction, Reason: "no match state"}
	}
	if _, ok := m.Player(player); !ok {
		return game.Action{}, &game.ActionError{Kind: game.KindInvalidAction, Reason: fmt.Sprintf("player %s not in match", player)}
	}
	if actor(m) != player {
		return game.Action{}, &game.ActionError{Kind: game.KindOutOfTurn, Reason: fmt.Sprintf("player %s is not acting", player)}
	}

	sr := &search{
		ctx:    ctx,
		engine: s.engine.Fork(game.NewRand(s.seed)),
		root:   player,
		battle: battleNumber(m),
	}
	best := sr.minimax(m, s.depth, math.MinInt, math.MaxInt)
	if sr.canceled != nil {
		return game.Action{}, sr.canceled
	}
	if best.action == nil {
		return game.Action{}, &game.ActionError{Kind: game.KindInvalidAction, Reason: "no legal action available"}
	}

	s.logger.Debug("suggested action",
		zap.String("match_id", m.MatchID),
		zap.String("player_id", string(player)),
		zap.String("type", string(best.action.Type)),
		zap.Int("card_index", best.action.CardIndexInHand),
		zap.Int("zone_index", best.action.ZoneIndex),
		zap.Int("score", best.score),
		zap.Int("nodes", sr.visited),
	)
	return *best.action, nil
}

func (sr *search) minimax(m *state.MatchState, depth, alpha, beta int) node {
	sr.visited++
	if err := sr.ctx.Err(); err != nil {
		sr.canceled = err
		return node{score: Evaluate(m, sr.root)}
	}
	if depth == 0 || m.Ended() || battleNumber(m) != sr.battle {
		return node{score: Evaluate(m, sr.root)}
	}

	acting := actor(m)
	actions := sr.engine.LegalActions(m, acting)
	if len(actions) == 0 {
		return node{score: Evaluate(m, sr.root)}
	}

	maximizing := acting == sr.root
	best := node{score: math.MaxInt}
	if maximizing {
		best.score = math.MinInt
	}
	for i := range actions {
		next, err := sr.engine.ApplyAction(m, acting, actions[i])
		if err != nil {
			continue
		}
		child := sr.minimax(next, depth-1, alpha, beta)
		if sr.canceled != nil {
			return best
		}
		if maximizing {
			if best.action == nil || child.score > best.score {
				best = node{score: child.score, action: &actions[i]}
			}
			alpha = max(alpha, best.score)
		} else {
			if best.action == nil || child.score < best.score {
				best = node{score: child.score, action: &actions[i]}
			}
			beta = min(beta, best.score)
		}
		if beta <= alpha {
			break
		}
	}
	if best.action == nil {
		return node{score: Evaluate(m, sr.root)}
	}
	return best
}

// Evaluate scores m from player's point of view: victory-point lead first, then the current
// on-field point lead.
func Evaluate(m *state.MatchState, player state.PlayerID) int {
	me, ok := m.Player(player)
	if !ok {
		return 0
	}
	opp := m.Opponent(player)
	if opp == nil {
		return 0
	}
	if m.Ended() {
		switch m.WinnerID {
		case player:
			return victoryWeight * victoryWeight
		case opp.ID:
			return -victoryWeight * victoryWeight
		}
	}
	return (me.VictoryPoints-opp.VictoryPoints)*victoryWeight + me.PlayerPoint - opp.PlayerPoint
}

// actor is the player the match is waiting on.
func actor(m *state.MatchState) state.PlayerID {
	if m.PendingSelection != nil {
		return m.PendingSelection.PlayerID
	}
	return m.CurrentPlayerID
}

// battleNumber identifies the current leader battle; it changes once a battle concludes.
func battleNumber(m *state.MatchState) int {
	n := 0
	for _, p := range m.Ordered() {
		n += p.Deck.CurrentLeaderIdx
	}
	return n
}
