// Package service implements the marketplace operations: admission checks,
// seller identity, the listing lifecycle, the public snapshot, retention
// sweeps, buyer contacts, reports and the admin surface.
package service

import (
	"errors"
	"fmt"

	"github.com/iliyamo/bike-marketplace/internal/validation"
)

// Kind classifies an Error for the transport layer.
type Kind int

const (
	KindInternal Kind = iota
	KindValidation
	KindAuth
	KindForbidden
	KindNotFound
	KindRateLimited
	KindExternal
)

// Error is a failure the caller may see.  Message is user facing; Err
// carries the cause for logs and is never shown.
type Error struct {
	Kind    Kind
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *Error) Unwrap() error { return e.Err }

// User facing messages shared across operations.
const (
	MsgBlocked          = "Blocked."
	MsgCaptchaFailed    = "Turnstile verification failed."
	MsgInvalidToken     = "Invalid seller token."
	MsgListingNotFound  = "Listing not found."
	MsgListingGone      = "Listing not available."
	MsgListingIDMissing = "Listing id is required."
	MsgCooldown         = "Please wait before sending another message."
	MsgReportNotFound   = "Report not found."
	MsgSellerNotFound   = "Seller not found."
	MsgTooManyImages    = "Too many images."
	MsgImageTooLarge    = "Image is too large."
	MsgUploadTooLarge   = "Total upload is too large."
	MsgInvalidImageType = "Invalid image type."
	MsgForbidden        = "Forbidden."
	MsgInternal         = "Internal error."
)

func invalid(msg string) *Error     { return &Error{Kind: KindValidation, Message: msg} }
func notFound(msg string) *Error    { return &Error{Kind: KindNotFound, Message: msg} }
func forbidden(msg string) *Error   { return &Error{Kind: KindForbidden, Message: msg} }
func rateLimited(msg string) *Error { return &Error{Kind: KindRateLimited, Message: msg} }

func internal(op string, err error) *Error {
	return &Error{Kind: KindInternal, Message: MsgInternal, Err: fmt.Errorf("%s: %w", op, err)}
}

// fromValidation lifts a validator failure into a validation Error.  Any
// other error is internal.
func fromValidation(err error) error {
	var ve *validation.Error
	if errors.As(err, &ve) {
		return &Error{Kind: KindValidation, Message: ve.Message, Err: ve}
	}
	return internal("validate", err)
}
