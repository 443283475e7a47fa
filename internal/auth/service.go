package auth

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/ekinsu/auth-service/internal/model"
	"github.com/ekinsu/auth-service/internal/repository"
)

// emailPattern is the address grammar accepted at sign-up. phonePattern
// accepts the national formats 5551234567, 555-123-4567 and
// (555)123-4567.
var (
	emailPattern = regexp.MustCompile("^[\\w!#$%&'*+/=?`{|}~^-]+(?:\\.[\\w!#$%&'*+/=?`{|}~^-]+)*@(?:[a-zA-Z0-9-]+\\.)+[a-zA-Z]{2,6}$")
	phonePattern = regexp.MustCompile(`^(\d{10}|(?:\d{3}-){2}\d{4}|\(\d{3}\)\d{3}-?\d{4})$`)
)

// Credential is one issued token as returned to the caller.
type Credential struct {
	Raw       string
	ExpiresAt time.Time
}

// TokenPair bundles the access and refresh credentials produced by an
// authentication event.
type TokenPair struct {
	Access  Credential
	Refresh Credential
}

// SignUpRequest carries the fields of a registration call.
type SignUpRequest struct {
	FirstName   string
	LastName    string
	Email       string
	Password    string
	PhoneNumber string
}

// Service drives the sign-up, sign-in and refresh flows. It owns the
// only shared mutable state of the core: the per-user critical sections
// around the ledger's revoke-then-register step. Everything else is
// read-only per request.
type Service struct {
	users      UserDirectory
	ledger     Ledger
	codec      *Codec
	validator  *Validator
	bcryptCost int
	locks      *keyedMutex
	now        func() time.Time
}

// NewService wires the orchestrator. The codec's clock is reused so the
// whole core observes a single time source.
func NewService(users UserDirectory, ledger Ledger, codec *Codec, bcryptCost int) *Service {
	return &Service{
		users:      users,
		ledger:     ledger,
		codec:      codec,
		validator:  NewValidator(codec, ledger),
		bcryptCost: bcryptCost,
		locks:      newKeyedMutex(),
		now:        codec.now,
	}
}

// Validator exposes the composed token validator for middleware use.
func (s *Service) Validator() *Validator { return s.validator }

// NormalizeEmail lowercases and trims an email for lookups and storage.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func validateSignUp(req SignUpRequest) error {
	if req.FirstName == "" || req.LastName == "" || req.Email == "" || req.Password == "" || req.PhoneNumber == "" {
		return fmt.Errorf("%w: missing required field", ErrInvalidInput)
	}
	if !emailPattern.MatchString(req.Email) {
		return fmt.Errorf("%w: email is not valid", ErrInvalidInput)
	}
	if !phonePattern.MatchString(req.PhoneNumber) {
		return fmt.Errorf("%w: phone number is not valid", ErrInvalidInput)
	}
	return nil
}

// SignUp registers a new user with role USER and returns the user plus
// a fresh token pair. A duplicate email fails before any write.
func (s *Service) SignUp(ctx context.Context, req SignUpRequest) (*model.User, TokenPair, error) {
	req.Email = NormalizeEmail(req.Email)
	if err := validateSignUp(req); err != nil {
		return nil, TokenPair{}, err
	}
	taken, err := s.users.ExistsByEmail(ctx, req.Email)
	if err != nil {
		return nil, TokenPair{}, fmt.Errorf("email lookup: %w", err)
	}
	if taken {
		return nil, TokenPair{}, ErrEmailTaken
	}

	hash, err := HashPassword(req.Password, s.bcryptCost)
	if err != nil {
		return nil, TokenPair{}, fmt.Errorf("hash password: %w", err)
	}
	now := s.now().UTC()
	u := &model.User{
		ID:           uuid.NewString(),
		FirstName:    req.FirstName,
		LastName:     req.LastName,
		Email:        req.Email,
		PasswordHash: hash,
		PhoneNumber:  req.PhoneNumber,
		Roles:        []model.Role{model.RoleUser},
		CreatedAt:    now,
		UpdatedAt:    now,
		CreatedBy:    req.Email,
		UpdatedBy:    req.Email,
	}
	if err := s.users.Save(ctx, u); err != nil {
		// Two racing sign-ups can both pass the existence pre-check; the
		// unique index breaks the tie.
		if errors.Is(err, repository.ErrEmailExists) {
			return nil, TokenPair{}, ErrEmailTaken
		}
		return nil, TokenPair{}, fmt.Errorf("save user: %w", err)
	}

	pair, err := s.issuePair(ctx, u, "")
	if err != nil {
		return nil, TokenPair{}, err
	}
	return u, pair, nil
}

// SignIn verifies the credentials and rotates the user's token set: the
// new pair becomes the only live one, every earlier token is revoked in
// the same atomic step.
func (s *Service) SignIn(ctx context.Context, email, password string) (*model.User, TokenPair, error) {
	email = NormalizeEmail(email)
	if email == "" || password == "" {
		return nil, TokenPair{}, fmt.Errorf("%w: email and password required", ErrInvalidInput)
	}
	u, err := s.users.FindByEmail(ctx, email)
	if err != nil {
		return nil, TokenPair{}, fmt.Errorf("user lookup: %w", err)
	}
	if u == nil {
		return nil, TokenPair{}, ErrUserNotFound
	}
	if !VerifyPassword(u.PasswordHash, password) {
		return nil, TokenPair{}, ErrInvalidCredentials
	}
	pair, err := s.issuePair(ctx, u, "")
	if err != nil {
		return nil, TokenPair{}, err
	}
	return u, pair, nil
}

// Refresh exchanges a valid refresh token for a new access token. The
// refresh token itself is NOT rotated: the returned refresh credential
// is the presented string with its original expiry, and its ledger row
// survives the rotation that revokes the user's prior access token.
func (s *Service) Refresh(ctx context.Context, bearerHeader string) (*model.User, TokenPair, error) {
	raw, err := ExtractBearer(bearerHeader)
	if err != nil {
		return nil, TokenPair{}, err
	}
	claims, err := s.validator.Validate(ctx, raw, model.KindRefresh)
	if err != nil {
		return nil, TokenPair{}, err
	}
	u, err := s.users.FindByEmail(ctx, claims.Subject)
	if err != nil {
		return nil, TokenPair{}, fmt.Errorf("user lookup: %w", err)
	}
	if u == nil {
		return nil, TokenPair{}, ErrUserNotFound
	}

	rawAccess, access, err := s.codec.Issue(u.Email, model.KindAccess)
	if err != nil {
		return nil, TokenPair{}, fmt.Errorf("issue access token: %w", err)
	}
	access.UserID = u.ID

	s.locks.Lock(u.ID)
	defer s.locks.Unlock(u.ID)
	// The validation above ran outside this critical section; a logout
	// or sign-in may have revoked the refresh token since. Re-check the
	// ledger under the lock so a dead refresh token cannot mint a live
	// access token.
	revoked, err := s.ledger.IsRevoked(ctx, claims.ID)
	if err != nil {
		return nil, TokenPair{}, fmt.Errorf("revocation lookup: %w", err)
	}
	if revoked {
		return nil, TokenPair{}, ErrTokenRevoked
	}
	if err := s.ledger.RotateForUser(ctx, u.ID, claims.ID, access); err != nil {
		return nil, TokenPair{}, fmt.Errorf("rotate tokens: %w", err)
	}
	return u, TokenPair{
		Access:  Credential{Raw: rawAccess, ExpiresAt: access.ExpiresAt},
		Refresh: Credential{Raw: raw, ExpiresAt: claims.ExpiresAt},
	}, nil
}

// Logout revokes every live token of the caller identified by a valid
// access token and returns the caller's email.
func (s *Service) Logout(ctx context.Context, bearerHeader string) (string, error) {
	raw, err := ExtractBearer(bearerHeader)
	if err != nil {
		return "", err
	}
	claims, err := s.validator.Validate(ctx, raw, model.KindAccess)
	if err != nil {
		return "", err
	}
	u, err := s.users.FindByEmail(ctx, claims.Subject)
	if err != nil {
		return "", fmt.Errorf("user lookup: %w", err)
	}
	if u == nil {
		return "", ErrUserNotFound
	}
	s.locks.Lock(u.ID)
	defer s.locks.Unlock(u.ID)
	if err := s.ledger.RevokeAllForUser(ctx, u.ID); err != nil {
		return "", fmt.Errorf("revoke tokens: %w", err)
	}
	return u.Email, nil
}

// Validate checks a raw token of the expected kind and returns its
// claims. This is the surface the HTTP middleware consumes.
func (s *Service) Validate(ctx context.Context, raw string, kind model.TokenKind) (Claims, error) {
	return s.validator.Validate(ctx, raw, kind)
}

// issuePair mints an access+refresh pair and commits it as the user's
// only live token set. keepID carries a refresh token id that must
// survive the rotation, or "" to revoke everything prior.
func (s *Service) issuePair(ctx context.Context, u *model.User, keepID string) (TokenPair, error) {
	rawAccess, access, err := s.codec.Issue(u.Email, model.KindAccess)
	if err != nil {
		return TokenPair{}, fmt.Errorf("issue access token: %w", err)
	}
	rawRefresh, refresh, err := s.codec.Issue(u.Email, model.KindRefresh)
	if err != nil {
		return TokenPair{}, fmt.Errorf("issue refresh token: %w", err)
	}
	access.UserID = u.ID
	refresh.UserID = u.ID

	s.locks.Lock(u.ID)
	defer s.locks.Unlock(u.ID)
	if err := s.ledger.RotateForUser(ctx, u.ID, keepID, access, refresh); err != nil {
		return TokenPair{}, fmt.Errorf("rotate tokens: %w", err)
	}
	return TokenPair{
		Access:  Credential{Raw: rawAccess, ExpiresAt: access.ExpiresAt},
		Refresh: Credential{Raw: rawRefresh, ExpiresAt: refresh.ExpiresAt},
	}, nil
}
