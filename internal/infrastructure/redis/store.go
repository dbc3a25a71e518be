package redis

import (
	"context"
	"time"

	"github.com/go-api-verification/internal/pkg/codehash"
	"github.com/redis/go-redis/v9"
)

// consumeScript deletes the key only when it still holds the expected digest.
// Redis runs scripts atomically, so two callers cannot both see a match.
var consumeScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// Store keeps one code digest per email under prefix+email.
// Expiry is native: an expired key no longer exists, so it cannot match.
type Store struct {
	client redis.UniversalClient
	prefix string
	hasher *codehash.Hasher
}

func NewStore(client redis.UniversalClient, prefix string, hasher *codehash.Hasher) *Store {
	return &Store{client: client, prefix: prefix, hasher: hasher}
}

func (s *Store) key(email string) string {
	return s.prefix + email
}

// Put stores code for email, replacing any previous code.
func (s *Store) Put(ctx context.Context, email, code string, ttl time.Duration) error {
	return s.client.Set(ctx, s.key(email), s.hasher.Sum(email, code), ttl).Err()
}

func (s *Store) InvalidateAll(ctx context.Context, email string) error {
	return s.client.Del(ctx, s.key(email)).Err()
}

func (s *Store) ConsumeIfMatch(ctx context.Context, email, code string) (bool, error) {
	n, err := consumeScript.Run(ctx, s.client, []string{s.key(email)}, s.hasher.Sum(email, code)).Int64()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}
