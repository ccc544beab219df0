package utils // package utils provides helpers for ids, secrets and hashing

import (
	"crypto/rand"
	"encoding/base64"

	"github.com/segmentio/ksuid"
)

// NewID returns a new globally unique, time sortable identifier.
func NewID() string {
	return ksuid.New().String()
}

// NewSellerToken returns 32 bytes of secure random data encoded as
// unpadded base64url.  The raw token is handed to the seller once and
// only its hash is stored.
func NewSellerToken() (string, error) {
	buf, err := randomBytes(32)
	if err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(buf), nil
}

func randomBytes(n int) ([]byte, error) {
	buf := make([]byte, n)
	if _, err := rand.Read(buf); err != nil {
		return nil, err
	}
	return buf, nil
}
