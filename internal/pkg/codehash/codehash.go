package codehash

import (
	"encoding/hex"
	"fmt"

	"golang.org/x/crypto/blake2b"
)

// Hasher derives the digest durable stores persist in place of a raw code.
// The digest covers both the email and the code, so equal digests mean the
// exact same code was issued for the exact same address.
type Hasher struct {
	key []byte
}

// New returns a Hasher keyed with key. An empty key yields an unkeyed BLAKE2b-256.
func New(key string) (*Hasher, error) {
	if len(key) > blake2b.Size {
		return nil, fmt.Errorf("code hash key must be at most %d bytes, got %d", blake2b.Size, len(key))
	}
	return &Hasher{key: []byte(key)}, nil
}

// Sum returns the hex-encoded digest of (email, code).
func (h *Hasher) Sum(email, code string) string {
	d, err := blake2b.New256(h.key)
	if err != nil {
		// Unreachable: key length is checked in New.
		panic(err)
	}
	d.Write([]byte(email))
	d.Write([]byte{0})
	d.Write([]byte(code))
	return hex.EncodeToString(d.Sum(nil))
}
