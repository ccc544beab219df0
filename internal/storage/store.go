// Package storage holds the blob backends used for listing images and the
// public snapshot document.  All backends satisfy Store; Accounted wraps
// one and mirrors every call into the usage ledger.
package storage

import (
	"context"
	"errors"
	"net/url"
	"strings"
)

// ErrNotFound is returned by Get for a missing key.
var ErrNotFound = errors.New("blob not found")

// PutOptions carries the HTTP metadata stored alongside an object.
type PutOptions struct {
	ContentType  string
	CacheControl string
}

// Object is a blob read back from a backend.
type Object struct {
	Data         []byte
	ContentType  string
	CacheControl string
}

// Store is a keyed binary object store.  Delete of a missing key succeeds.
type Store interface {
	Put(ctx context.Context, key string, data []byte, opts PutOptions) error
	Get(ctx context.Context, key string) (*Object, error)
	Delete(ctx context.Context, key string) error
}

// NormalizeKey turns a stored reference into a bare object key.  Absolute
// URLs are reduced to their path, and leading slashes are dropped.  It
// returns "" for references that do not name an object.
func NormalizeKey(ref string) string {
	ref = strings.TrimSpace(ref)
	if ref == "" {
		return ""
	}
	lower := strings.ToLower(ref)
	if strings.HasPrefix(lower, "http://") || strings.HasPrefix(lower, "https://") {
		u, err := url.Parse(ref)
		if err != nil {
			return ""
		}
		ref = u.Path
	}
	return strings.TrimLeft(ref, "/")
}

// PublicURL resolves key against the public base URL.  With no base the bare
// key is returned so the document stays relative to its own origin.
func PublicURL(base, key string) string {
	key = NormalizeKey(key)
	if key == "" {
		return ""
	}
	base = strings.TrimRight(base, "/")
	if base == "" {
		return key
	}
	return base + "/" + key
}

// validKey rejects keys that could escape a backend's namespace.
func validKey(key string) bool {
	if key == "" || strings.HasPrefix(key, "/") {
		return false
	}
	for _, part := range strings.Split(key, "/") {
		if part == "" || part == "." || part == ".." {
			return false
		}
	}
	return true
}

// ErrInvalidKey is returned for empty or path-escaping keys.
var ErrInvalidKey = errors.New("invalid blob key")
