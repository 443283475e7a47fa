package auth

import (
	"context"
	"fmt"
	"strings"

	"github.com/ekinsu/auth-service/internal/model"
)

// Validator decides whether a presented token is currently usable. It
// composes the codec with the revocation ledger: signature and expiry
// checks run first, so a forged or stale token never triggers a ledger
// read.
type Validator struct {
	codec  *Codec
	ledger Ledger
}

func NewValidator(codec *Codec, ledger Ledger) *Validator {
	return &Validator{codec: codec, ledger: ledger}
}

// Validate parses the raw token, checks its kind and consults the
// ledger. On success it returns the token's claims; the subject is the
// authenticated user's email.
func (v *Validator) Validate(ctx context.Context, raw string, kind model.TokenKind) (Claims, error) {
	claims, err := v.codec.Parse(raw)
	if err != nil {
		return Claims{}, err
	}
	if claims.Kind != kind {
		return Claims{}, ErrWrongTokenKind
	}
	revoked, err := v.ledger.IsRevoked(ctx, claims.ID)
	if err != nil {
		return Claims{}, fmt.Errorf("revocation lookup: %w", err)
	}
	if revoked {
		return Claims{}, ErrTokenRevoked
	}
	return claims, nil
}

// ExtractBearer pulls the raw token out of an "Authorization: Bearer"
// header value. A missing header or wrong prefix yields ErrMissingToken.
func ExtractBearer(header string) (string, error) {
	if !strings.HasPrefix(header, "Bearer ") {
		return "", ErrMissingToken
	}
	raw := strings.TrimSpace(strings.TrimPrefix(header, "Bearer "))
	if raw == "" {
		return "", ErrMissingToken
	}
	return raw, nil
}
