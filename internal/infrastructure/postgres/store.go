package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/go-api-verification/internal/pkg/codehash"
	"github.com/go-api-verification/internal/pkg/id"
	"github.com/jackc/pgx/v5/pgxpool"
)

const (
	insertCodeQuery = `
		INSERT INTO verification_codes (id, email, code_hash, created_at, expires_at)
		VALUES ($1, $2, $3, $4, $5)`

	deleteByEmailQuery = `DELETE FROM verification_codes WHERE email = $1`

	// Serializes writers for one email across every connection and replica.
	lockEmailQuery = `SELECT pg_advisory_xact_lock(hashtext($1))`

	consumeQuery = `
		DELETE FROM verification_codes
		WHERE id = (
			SELECT id FROM verification_codes
			WHERE email = $1 AND code_hash = $2 AND expires_at > $3
			ORDER BY created_at DESC
			LIMIT 1
			FOR UPDATE SKIP LOCKED
		)`

	sweepQuery = `DELETE FROM verification_codes WHERE expires_at <= $1`
)

// Store keeps verification codes in the verification_codes table. Rows hold a
// digest of the code, never the code itself.
type Store struct {
	pool   *pgxpool.Pool
	hasher *codehash.Hasher
	now    func() time.Time
}

func NewStore(pool *pgxpool.Pool, hasher *codehash.Hasher) *Store {
	return &Store{pool: pool, hasher: hasher, now: time.Now}
}

// Put replaces every row for email with the new code. Delete and insert run
// in one transaction under an advisory lock on the email, so concurrent
// writers on other connections leave exactly one row behind.
func (s *Store) Put(ctx context.Context, email, code string, ttl time.Duration) error {
	now := s.now().UTC()

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx, lockEmailQuery, email); err != nil {
		return fmt.Errorf("lock email: %w", err)
	}
	if _, err := tx.Exec(ctx, deleteByEmailQuery, email); err != nil {
		return fmt.Errorf("delete previous codes: %w", err)
	}
	if _, err := tx.Exec(ctx, insertCodeQuery, id.New(), email, s.hasher.Sum(email, code), now, now.Add(ttl)); err != nil {
		return fmt.Errorf("insert code: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}

func (s *Store) InvalidateAll(ctx context.Context, email string) error {
	_, err := s.pool.Exec(ctx, deleteByEmailQuery, email)
	return err
}

// ConsumeIfMatch deletes one matching active row. The row lock taken by the
// subquery means concurrent callers race for the same row and only one deletes it.
func (s *Store) ConsumeIfMatch(ctx context.Context, email, code string) (bool, error) {
	tag, err := s.pool.Exec(ctx, consumeQuery, email, s.hasher.Sum(email, code), s.now().UTC())
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() > 0, nil
}

// Sweep deletes rows that have already expired.
func (s *Store) Sweep(ctx context.Context) (int64, error) {
	tag, err := s.pool.Exec(ctx, sweepQuery, s.now().UTC())
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}
