package auth

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/ekinsu/auth-service/internal/model"
)

// Claims is the decoded payload of a signed token. Claims are derived
// from the raw token on every validation and never persisted.
type Claims struct {
	ID        string          // jti, the ledger lookup key
	Subject   string          // sub, the user's email
	Kind      model.TokenKind // kind, ACCESS or REFRESH
	IssuedAt  time.Time
	ExpiresAt time.Time
}

type codecClaims struct {
	Kind model.TokenKind `json:"kind"`
	jwt.RegisteredClaims
}

// Codec builds and parses HS256-signed tokens. The signing secret is
// loaded once at startup and never appears in token payloads or logs.
// The clock is injected so expiry behavior is testable.
type Codec struct {
	secret     []byte
	accessTTL  time.Duration
	refreshTTL time.Duration
	now        func() time.Time
}

// NewCodec validates the token configuration and returns a Codec.
// Refresh TTL must exceed access TTL; this is checked here, at startup,
// not on every issuance.
func NewCodec(secret string, accessTTL, refreshTTL time.Duration, now func() time.Time) (*Codec, error) {
	if secret == "" {
		return nil, errors.New("empty signing secret")
	}
	if accessTTL <= 0 || refreshTTL <= 0 {
		return nil, errors.New("token TTLs must be positive")
	}
	if refreshTTL <= accessTTL {
		return nil, errors.New("refresh TTL must exceed access TTL")
	}
	if now == nil {
		now = time.Now
	}
	return &Codec{secret: []byte(secret), accessTTL: accessTTL, refreshTTL: refreshTTL, now: now}, nil
}

// AccessTTL returns the configured access token lifetime.
func (c *Codec) AccessTTL() time.Duration { return c.accessTTL }

// RefreshTTL returns the configured refresh token lifetime.
func (c *Codec) RefreshTTL() time.Duration { return c.refreshTTL }

// Issue signs a new token of the given kind for the subject and returns
// the raw token string together with the ledger row describing it. The
// TTL is the configured one for the kind.
func (c *Codec) Issue(subject string, kind model.TokenKind) (string, model.IssuedToken, error) {
	ttl := c.accessTTL
	if kind == model.KindRefresh {
		ttl = c.refreshTTL
	}
	now := c.now().UTC()
	exp := now.Add(ttl)
	id := uuid.NewString()

	t := jwt.NewWithClaims(jwt.SigningMethodHS256, codecClaims{
		Kind: kind,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        id,
			Subject:   subject,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(exp),
		},
	})
	raw, err := t.SignedString(c.secret)
	if err != nil {
		return "", model.IssuedToken{}, err
	}
	return raw, model.IssuedToken{
		ID:        id,
		TokenHash: TokenHash(raw),
		Kind:      kind,
		ExpiresAt: exp,
		IssuedAt:  now,
	}, nil
}

// Parse decodes and verifies a raw token. It fails with
// ErrTokenMalformed when decoding fails, ErrBadSignature when the MAC
// does not verify, and ErrTokenExpired when the token is authentic but
// past its expiry. Only HS256 tokens are accepted.
func (c *Codec) Parse(raw string) (Claims, error) {
	var cc codecClaims
	_, err := jwt.ParseWithClaims(raw, &cc,
		func(t *jwt.Token) (interface{}, error) { return c.secret, nil },
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithTimeFunc(c.now),
		jwt.WithExpirationRequired(),
	)
	if err != nil {
		switch {
		case errors.Is(err, jwt.ErrTokenSignatureInvalid):
			return Claims{}, ErrBadSignature
		case errors.Is(err, jwt.ErrTokenExpired):
			return Claims{}, ErrTokenExpired
		default:
			return Claims{}, ErrTokenMalformed
		}
	}
	if cc.ID == "" || cc.Subject == "" || cc.IssuedAt == nil {
		return Claims{}, ErrTokenMalformed
	}
	return Claims{
		ID:        cc.ID,
		Subject:   cc.Subject,
		Kind:      cc.Kind,
		IssuedAt:  cc.IssuedAt.Time,
		ExpiresAt: cc.ExpiresAt.Time,
	}, nil
}

// TokenHash returns the SHA-256 hex digest of a raw token. The ledger
// stores only this hash so a leaked database row cannot be replayed as
// a bearer token.
func TokenHash(raw string) string {
	sum := sha256.Sum256([]byte(raw))
	return hex.EncodeToString(sum[:])
}
