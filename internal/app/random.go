package app

import (
	"math/rand/v2"
	"sync"
	"time"
)

// Randomizer is a seedable random source safe for concurrent use.
type Randomizer struct {
	mu  sync.Mutex
	rnd *rand.Rand
}

// NewRandomizer returns a Randomizer seeded with seed. A zero seed is
// replaced by the current time.
func NewRandomizer(seed uint64) *Randomizer {
	if seed == 0 {
		seed = uint64(time.Now().UnixNano())
	}
	return &Randomizer{rnd: rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))}
}

// IntN returns a number in [0, n). n must be positive.
func (r *Randomizer) IntN(n int) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.rnd.IntN(n)
}

func (r *Randomizer) Shuffle(n int, swap func(i, j int)) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.rnd.Shuffle(n, swap)
}
