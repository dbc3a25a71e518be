package code

import (
	crand "crypto/rand"
	"math/rand/v2"
	"strconv"
	"sync"
)

// Bounds of the issued codes. Every code is exactly six digits.
const (
	Min = 100000
	Max = 999999
)

// Generator produces verification codes.
type Generator interface {
	Generate() string
}

// Random draws codes uniformly from [Min, Max].
// It is safe for concurrent use; the underlying source is guarded by a mutex.
type Random struct {
	mu  sync.Mutex
	rnd *rand.Rand
}

// NewRandom returns a generator backed by a ChaCha8 stream seeded from crypto/rand.
func NewRandom() *Random {
	var seed [32]byte
	// crypto/rand.Read never returns an error on supported platforms.
	_, _ = crand.Read(seed[:])
	return NewRandomWithSource(rand.NewChaCha8(seed))
}

// NewRandomWithSource returns a generator drawing from src. Used for deterministic tests.
func NewRandomWithSource(src rand.Source) *Random {
	return &Random{rnd: rand.New(src)}
}

func (g *Random) Generate() string {
	g.mu.Lock()
	n := Min + g.rnd.IntN(Max-Min+1)
	g.mu.Unlock()
	return strconv.Itoa(n)
}
