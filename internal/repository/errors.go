// Package repository holds the MySQL (sqlx) implementations of the
// persistence interfaces declared by the service package, together with the
// sentinel errors shared by every store implementation.
package repository

import (
	"database/sql"
	"errors"
	"strings"
)

// ErrNotFound is returned when a looked up row does not exist.  Handlers
// translate it into an HTTP 404 response.
var ErrNotFound = errors.New("not found")

// ErrConflict is returned when an insert collides with an existing key.
var ErrConflict = errors.New("conflict")

// notFound maps sql.ErrNoRows onto ErrNotFound.
func notFound(err error) error {
	if errors.Is(err, sql.ErrNoRows) {
		return ErrNotFound
	}
	return err
}

// duplicate maps MySQL error 1062 onto ErrConflict.
func duplicate(err error) error {
	if err != nil && strings.Contains(err.Error(), "1062") {
		return ErrConflict
	}
	return err
}
