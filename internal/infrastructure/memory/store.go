package memory

import (
	"context"
	"crypto/subtle"
	"errors"
	"sync"
	"time"

	"github.com/go-api-verification/internal/domain"
	"github.com/go-api-verification/internal/pkg/id"
	"github.com/go-api-verification/internal/pkg/keyhash"
)

const shardCount = 32

// ErrClosed is returned by every operation after Close.
var ErrClosed = errors.New("memory store closed")

// Store is an in-process code store. Records live in a sharded map keyed
// by email; each shard has its own mutex so ConsumeIfMatch is atomic per key.
type Store struct {
	shards [shardCount]shard
	now    func() time.Time
}

type shard struct {
	mu      sync.Mutex
	records map[string][]domain.VerificationRecord
	closed  bool
}

type Option func(*Store)

// WithClock overrides the time source. Used by tests to move past expiry.
func WithClock(now func() time.Time) Option {
	return func(s *Store) { s.now = now }
}

func New(opts ...Option) *Store {
	s := &Store{now: time.Now}
	for i := range s.shards {
		s.shards[i].records = make(map[string][]domain.VerificationRecord)
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Store) shardFor(email string) *shard {
	return &s.shards[keyhash.Bucket(email, shardCount)]
}

// Put adds a record for email. Existing records are kept; callers that want
// a single active code invalidate first.
func (s *Store) Put(ctx context.Context, email, code string, ttl time.Duration) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	sh := s.shardFor(email)
	sh.mu.Lock()
	defer sh.mu.Unlock()
	if sh.closed {
		return ErrClosed
	}

	now := s.now()
	live := pruneExpired(sh.records[email], now)
	sh.records[email] = append(live, domain.VerificationRecord{
		ID:        id.New(),
		Email:     email,
		Code:      code,
		CreatedAt: now,
		ExpiresAt: now.Add(ttl),
	})
	return nil
}

func (s *Store) InvalidateAll(ctx context.Context, email string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	sh := s.shardFor(email)
	sh.mu.Lock()
	defer sh.mu.Unlock()
	if sh.closed {
		return ErrClosed
	}
	delete(sh.records, email)
	return nil
}

func (s *Store) ConsumeIfMatch(ctx context.Context, email, code string) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	sh := s.shardFor(email)
	sh.mu.Lock()
	defer sh.mu.Unlock()
	if sh.closed {
		return false, ErrClosed
	}

	now := s.now()
	recs := sh.records[email]
	for i, r := range recs {
		if !r.Active(now) {
			continue
		}
		if subtle.ConstantTimeCompare([]byte(r.Code), []byte(code)) != 1 {
			continue
		}
		rest := append(recs[:i:i], recs[i+1:]...)
		setOrDelete(sh, email, pruneExpired(rest, now))
		return true, nil
	}
	return false, nil
}

// Sweep drops expired records across all shards and reports how many were removed.
func (s *Store) Sweep(ctx context.Context) (int64, error) {
	now := s.now()
	var removed int64
	for i := range s.shards {
		if err := ctx.Err(); err != nil {
			return removed, err
		}
		sh := &s.shards[i]
		sh.mu.Lock()
		if sh.closed {
			sh.mu.Unlock()
			return removed, ErrClosed
		}
		for email, recs := range sh.records {
			live := pruneExpired(recs, now)
			removed += int64(len(recs) - len(live))
			setOrDelete(sh, email, live)
		}
		sh.mu.Unlock()
	}
	return removed, nil
}

// ActiveCount reports how many unexpired records email has.
func (s *Store) ActiveCount(email string) int {
	sh := s.shardFor(email)
	sh.mu.Lock()
	defer sh.mu.Unlock()
	return len(pruneExpired(sh.records[email], s.now()))
}

// Close releases every record. The store is unusable afterwards.
func (s *Store) Close() error {
	for i := range s.shards {
		sh := &s.shards[i]
		sh.mu.Lock()
		sh.records = nil
		sh.closed = true
		sh.mu.Unlock()
	}
	return nil
}

func setOrDelete(sh *shard, email string, recs []domain.VerificationRecord) {
	if len(recs) == 0 {
		delete(sh.records, email)
		return
	}
	sh.records[email] = recs
}

// pruneExpired returns the active records of recs without touching the input.
func pruneExpired(recs []domain.VerificationRecord, now time.Time) []domain.VerificationRecord {
	out := make([]domain.VerificationRecord, 0, len(recs))
	for _, r := range recs {
		if r.Active(now) {
			out = append(out, r)
		}
	}
	return out
}
