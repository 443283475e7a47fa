package model

import "time"

// TokenKind distinguishes short-lived access tokens from the
// longer-lived refresh tokens used solely to obtain new access tokens.
type TokenKind string

const (
	KindAccess  TokenKind = "ACCESS"
	KindRefresh TokenKind = "REFRESH"
)

// IssuedToken models an entry in the `issued_tokens` table: the
// authoritative record of which tokens are currently usable. The raw
// token string is never stored; only its SHA-256 hash. UserID is a weak
// reference; the ledger does not own the user lifecycle.
//
// For a given user, at most one set of tokens (the one from the most
// recent authentication event) may be simultaneously non-revoked and
// non-expired. Rows with both flags set and a past expiry are garbage
// collected by Sweep.
type IssuedToken struct {
	ID        string    // issued_tokens.id, the token's jti claim
	UserID    string    // issued_tokens.user_id
	TokenHash string    // issued_tokens.token_hash (SHA-256 hex of the raw token)
	Kind      TokenKind // issued_tokens.kind
	Revoked   bool      // issued_tokens.revoked
	Expired   bool      // issued_tokens.expired
	ExpiresAt time.Time // issued_tokens.expires_at
	IssuedAt  time.Time // issued_tokens.issued_at
}
