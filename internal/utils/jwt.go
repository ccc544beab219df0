package utils

import (
	"errors"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// ErrInvalidAssertion is returned when an identity assertion cannot be
// verified or carries no e-mail claim.
var ErrInvalidAssertion = errors.New("invalid identity assertion")

// NewIdentityAssertion signs an HS256 token asserting the given e-mail
// identity.  The upstream access proxy issues these in production; the
// function exists for local tooling and tests.
func NewIdentityAssertion(secret, email string, ttl time.Duration) (string, error) {
	now := time.Now().UTC()
	claims := jwt.MapClaims{
		"email": email,
		"iat":   now.Unix(),
		"exp":   now.Add(ttl).Unix(),
	}
	t := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return t.SignedString([]byte(secret))
}

// ParseIdentityAssertion verifies raw with the shared secret and returns the
// lower-cased e-mail claim.
func ParseIdentityAssertion(secret, raw string) (string, error) {
	tok, err := jwt.Parse(raw, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, ErrInvalidAssertion
		}
		return []byte(secret), nil
	}, jwt.WithExpirationRequired())
	if err != nil || !tok.Valid {
		return "", ErrInvalidAssertion
	}
	claims, ok := tok.Claims.(jwt.MapClaims)
	if !ok {
		return "", ErrInvalidAssertion
	}
	email, _ := claims["email"].(string)
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" {
		return "", ErrInvalidAssertion
	}
	return email, nil
}
