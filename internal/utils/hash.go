package utils

import (
	"encoding/hex"
	"errors"

	"golang.org/x/crypto/argon2"
)

// ErrNoSalt is returned by a Hasher that has no salt configured.  Callers
// treat it as "hash unavailable": token lookups fail and IP-based checks
// are skipped.
var ErrNoSalt = errors.New("hash salt not configured")

// Hasher produces a deterministic one-way digest of a secret value.  Seller
// tokens and client IPs are only ever persisted in this form.
type Hasher interface {
	Hash(value string) (string, error)
}

// argon2id parameters.  Memory is kept small because a hash is computed on
// the request path for every anonymous write.
const (
	argonTime    = 1
	argonMemory  = 19 * 1024
	argonThreads = 1
	argonKeyLen  = 32
)

// Argon2Hasher derives a hex encoded argon2id key from the value and a
// fixed salt.  The same input always yields the same output, which makes
// the digest usable as a lookup key.
type Argon2Hasher struct {
	salt []byte
}

// NewArgon2Hasher returns a hasher for the given salt.  An empty salt
// yields a hasher whose Hash always fails with ErrNoSalt.
func NewArgon2Hasher(salt string) *Argon2Hasher {
	return &Argon2Hasher{salt: []byte(salt)}
}

func (h *Argon2Hasher) Hash(value string) (string, error) {
	if len(h.salt) == 0 {
		return "", ErrNoSalt
	}
	key := argon2.IDKey([]byte(value), h.salt, argonTime, argonMemory, argonThreads, argonKeyLen)
	return hex.EncodeToString(key), nil
}
