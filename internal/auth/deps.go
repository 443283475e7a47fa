package auth

import (
	"context"

	"github.com/ekinsu/auth-service/internal/model"
)

// UserDirectory is the user store the core collaborates with. FindByEmail
// returns (nil, nil) when no user holds the email; errors are reserved
// for store failures. Save inserts or replaces a user by id.
type UserDirectory interface {
	FindByEmail(ctx context.Context, email string) (*model.User, error)
	Save(ctx context.Context, u *model.User) error
	DeleteByEmail(ctx context.Context, email string) error
	ExistsByEmail(ctx context.Context, email string) (bool, error)
	List(ctx context.Context, offset, limit int) ([]model.User, error)
}

// Ledger is the authoritative record of issued tokens. Register and
// RotateForUser must be atomic relative to concurrent calls for the same
// user: no interleaving may leave two non-revoked token sets live.
// IsRevoked must read the most recently committed state; an unknown
// token id counts as revoked.
type Ledger interface {
	Register(ctx context.Context, tok model.IssuedToken) error
	// RotateForUser revokes every live token of the user except keepID
	// (pass "" to revoke all) and registers the given new tokens, as one
	// atomic unit. On failure the ledger is left in the pre-state.
	RotateForUser(ctx context.Context, userID, keepID string, tokens ...model.IssuedToken) error
	RevokeAllForUser(ctx context.Context, userID string) error
	IsRevoked(ctx context.Context, tokenID string) (bool, error)
	// Sweep deletes entries that are both revoked and past expiry,
	// returning how many rows were collected.
	Sweep(ctx context.Context) (int64, error)
}
