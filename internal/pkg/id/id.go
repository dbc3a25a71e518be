package id

import (
	"crypto/rand"

	"github.com/oklog/ulid/v2"
)

// New generates a new ULID string. ULIDs sort lexicographically by
// creation time, so verification rows for one email list oldest first.
func New() string {
	return ulid.MustNew(ulid.Now(), rand.Reader).String()
}
