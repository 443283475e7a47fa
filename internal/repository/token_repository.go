package repository

import (
	"context"
	"database/sql"

	"github.com/ekinsu/auth-service/internal/model"
)

// TokenRepo is the MySQL revocation ledger. Rows are looked up by token
// id (jti), never by token content; only the SHA-256 hash of the raw
// token is stored. IsRevoked always reads the committed state from the
// database; there is deliberately no cache in front of it.
type TokenRepo struct{ DB *sql.DB }

func NewTokenRepo(db *sql.DB) *TokenRepo { return &TokenRepo{DB: db} }

// Register inserts a single issued token.
func (r *TokenRepo) Register(ctx context.Context, tok model.IssuedToken) error {
	_, err := r.DB.ExecContext(ctx,
		"INSERT INTO issued_tokens (id,user_id,token_hash,kind,revoked,expired,expires_at,issued_at) VALUES (?,?,?,?,?,?,?,?)",
		tok.ID, tok.UserID, tok.TokenHash, string(tok.Kind), tok.Revoked, tok.Expired, tok.ExpiresAt, tok.IssuedAt)
	return err
}

// RotateForUser revokes every live token of the user except keepID and
// inserts the new set, in one transaction. Either the whole rotation
// commits or none of it does; a timed-out write leaves the ledger in
// the pre-state.
func (r *TokenRepo) RotateForUser(ctx context.Context, userID, keepID string, tokens ...model.IssuedToken) error {
	tx, err := r.DB.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	// keepID is a uuid or empty; an empty keepID matches no row, so the
	// update revokes everything live.
	_, err = tx.ExecContext(ctx,
		"UPDATE issued_tokens SET revoked=1, expired=1 WHERE user_id=? AND revoked=0 AND id<>?",
		userID, keepID)
	if err != nil {
		return err
	}
	for _, tok := range tokens {
		if _, err := tx.ExecContext(ctx,
			"INSERT INTO issued_tokens (id,user_id,token_hash,kind,revoked,expired,expires_at,issued_at) VALUES (?,?,?,?,?,?,?,?)",
			tok.ID, tok.UserID, tok.TokenHash, string(tok.Kind), tok.Revoked, tok.Expired, tok.ExpiresAt, tok.IssuedAt); err != nil {
			return err
		}
	}
	return tx.Commit()
}

// RevokeAllForUser marks all of the user's live tokens revoked.
func (r *TokenRepo) RevokeAllForUser(ctx context.Context, userID string) error {
	_, err := r.DB.ExecContext(ctx,
		"UPDATE issued_tokens SET revoked=1, expired=1 WHERE user_id=? AND revoked=0",
		userID)
	return err
}

// IsRevoked reports whether the token id is unusable. An id the ledger
// has never seen counts as revoked: validators must not trust tokens
// with no authoritative record.
func (r *TokenRepo) IsRevoked(ctx context.Context, tokenID string) (bool, error) {
	var revoked, expired bool
	err := r.DB.QueryRowContext(ctx,
		"SELECT revoked, expired FROM issued_tokens WHERE id=? LIMIT 1",
		tokenID).Scan(&revoked, &expired)
	if err == sql.ErrNoRows {
		return true, nil
	}
	if err != nil {
		return false, err
	}
	return revoked || expired, nil
}

// Sweep deletes rows that are both revoked and past their natural
// expiry. Rows merely revoked keep blocking their token id until the
// token could no longer verify anyway.
func (r *TokenRepo) Sweep(ctx context.Context) (int64, error) {
	res, err := r.DB.ExecContext(ctx,
		"DELETE FROM issued_tokens WHERE revoked=1 AND expired=1 AND expires_at < UTC_TIMESTAMP()")
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}
