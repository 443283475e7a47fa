// Package queue defines the auth domain events exchanged over the
// message broker and the publisher/consumer around them.
package queue

// Event names carried in AuthEvent.Type.
const (
	EventUserRegistered = "user.registered"
	EventUserSignedIn   = "user.signed_in"
	EventTokensRevoked  = "tokens.revoked"
	EventUserDeleted    = "user.deleted"
)

// AuthEvent is published after an authentication-state change. It
// carries enough for downstream audit and analytics consumers without
// querying the primary database. Token values never appear in events.
type AuthEvent struct {
	Type       string `json:"type"`
	Subject    string `json:"subject"`              // user email
	Actor      string `json:"actor,omitempty"`      // who triggered the change, if not the subject
	RemoteAddr string `json:"remote_addr,omitempty"`
	OccurredAt string `json:"occurred_at"` // RFC 3339 UTC
}
