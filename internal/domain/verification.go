package domain

import (
	"strings"
	"time"
)

// DefaultCodeTTL is how long an issued code stays valid.
const DefaultCodeTTL = 5 * time.Minute

// VerificationRecord is a pending code issued for an email address.
// At most one record per email is active (unexpired and unconsumed) at a time.
type VerificationRecord struct {
	ID        string    `json:"id"`
	Email     string    `json:"email"`
	Code      string    `json:"-"`
	CreatedAt time.Time `json:"created_at"`
	ExpiresAt time.Time `json:"expires_at"`
}

// Active reports whether the record can still be consumed at now.
// A record whose ExpiresAt is at or before now is expired.
func (r VerificationRecord) Active(now time.Time) bool {
	return now.Before(r.ExpiresAt)
}

// Result is the outcome of a send or verify operation as shown to the caller.
type Result struct {
	Succeeded bool   `json:"succeeded"`
	Message   string `json:"message,omitempty"`
	Error     string `json:"error,omitempty"`
}

// Succeed builds a successful Result.
func Succeed(msg string) Result {
	return Result{Succeeded: true, Message: msg}
}

// Fail builds a failed Result carrying a user-facing error message.
func Fail(msg string) Result {
	return Result{Succeeded: false, Error: msg}
}

// NormalizeEmail returns the key used for every store lookup.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
