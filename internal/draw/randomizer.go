package draw

import (
	"math/rand/v2"
	"sync"
)

// Shuffler permutes n elements in place through swap.
type Shuffler interface {
	Shuffle(n int, swap func(i, j int))
}

// Randomizer shuffles with the runtime's ChaCha8-backed global source.
// It is safe for concurrent use.
type Randomizer struct{}

// NewRandomizer returns the default Shuffler.
func NewRandomizer() Randomizer {
	return Randomizer{}
}

func (Randomizer) Shuffle(n int, swap func(i, j int)) {
	rand.Shuffle(n, swap)
}

// SeededRandomizer produces a reproducible sequence of shuffles.
// Use it for dry runs and tests, never for a real exchange.
type SeededRandomizer struct {
	mu  sync.Mutex
	rnd *rand.Rand
}

// NewSeededRandomizer creates a PCG-backed Shuffler from seed.
func NewSeededRandomizer(seed uint64) *SeededRandomizer {
	return &SeededRandomizer{
		rnd: rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15)), // #nosec G404
	}
}

func (r *SeededRandomizer) Shuffle(n int, swap func(i, j int)) {
	if n <= 1 {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.rnd.Shuffle(n, swap)
}
