package game

import (
	"math/rand"
	"sync"
	"time"

	"github.com/leaderbattle/battle-server-go/internal/game/effects"
)

// lockedRand makes a *rand.Rand safe to share between matches.
type lockedRand struct {
	mu  sync.Mutex
	rnd *rand.Rand
}

// NewRand returns a goroutine-safe random source. A zero seed seeds from the clock.
func NewRand(seed int64) effects.Random {
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	return &lockedRand{rnd: rand.New(rand.NewSource(seed))}
}

func (r *lockedRand) Intn(n int) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.rnd.Intn(n)
}

func (r *lockedRand) Shuffle(n int, swap func(i, j int)) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.rnd.Shuffle(n, swap)
}
