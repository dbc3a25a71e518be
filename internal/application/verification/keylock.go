package verification

import (
	"sync"

	"github.com/go-api-verification/internal/pkg/keyhash"
)

const lockStripes = 256

// keyLock serializes operations on the same email inside one process.
// Emails map onto a fixed set of mutexes, so unrelated emails only contend
// on a stripe collision.
type keyLock struct {
	stripes [lockStripes]sync.Mutex
}

// lock acquires the stripe for key and returns its unlock func.
func (l *keyLock) lock(key string) func() {
	m := &l.stripes[stripeFor(key)]
	m.Lock()
	return m.Unlock
}

func stripeFor(key string) uint32 {
	return keyhash.Bucket(key, lockStripes)
}
