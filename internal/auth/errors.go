// Package auth implements the token lifecycle and authorization core:
// credential verification, signed token issuance, revocation bookkeeping
// and per-request validation. HTTP concerns stay in the handler layer;
// this package only produces tagged error values.
package auth

import "errors"

var (
	// ErrInvalidCredentials is returned when a password does not match
	// the stored hash. A corrupted stored hash produces the same error.
	ErrInvalidCredentials = errors.New("invalid credentials")
	// ErrUserNotFound is returned when no user holds the given email.
	ErrUserNotFound = errors.New("user not found")
	// ErrEmailTaken is returned when a sign-up or update would claim an
	// email held by another user.
	ErrEmailTaken = errors.New("email already exists")
	// ErrInvalidInput is returned for missing or malformed request fields.
	ErrInvalidInput = errors.New("invalid input")
	// ErrTokenMalformed is returned when a token cannot be decoded.
	ErrTokenMalformed = errors.New("malformed token")
	// ErrBadSignature is returned when a token decodes but its MAC does
	// not verify. Distinct from ErrTokenExpired so callers can tell a
	// forged token from an authentic stale one.
	ErrBadSignature = errors.New("bad token signature")
	// ErrTokenExpired is returned for an authentic token past its expiry.
	ErrTokenExpired = errors.New("token expired")
	// ErrTokenRevoked is returned for an authentic, unexpired token that
	// was invalidated by a later authentication event.
	ErrTokenRevoked = errors.New("token revoked")
	// ErrWrongTokenKind is returned when an access token is presented
	// where a refresh token is expected, or vice versa.
	ErrWrongTokenKind = errors.New("wrong token kind")
	// ErrMissingToken is returned when no bearer token is present in the
	// Authorization header.
	ErrMissingToken = errors.New("missing bearer token")
	// ErrUnauthorized is returned when the caller's roles do not
	// intersect the roles an operation requires.
	ErrUnauthorized = errors.New("unauthorized")
)
