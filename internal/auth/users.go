package auth

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/ekinsu/auth-service/internal/model"
	"github.com/ekinsu/auth-service/internal/repository"
)

// CreateUserRequest is the admin-side registration: unlike SignUp the
// caller chooses the role set.
type CreateUserRequest struct {
	FirstName   string
	LastName    string
	Email       string
	Password    string
	PhoneNumber string
	Roles       []model.Role
}

// UpdateUserRequest carries the mutable profile fields.
type UpdateUserRequest struct {
	FirstName   string
	LastName    string
	Email       string
	PhoneNumber string
}

// GetUser returns the user holding the email.
func (s *Service) GetUser(ctx context.Context, email string) (*model.User, error) {
	u, err := s.users.FindByEmail(ctx, NormalizeEmail(email))
	if err != nil {
		return nil, fmt.Errorf("user lookup: %w", err)
	}
	if u == nil {
		return nil, ErrUserNotFound
	}
	return u, nil
}

// Page bounds for ListUsers. Query values beyond these are clamped so
// caller-supplied ints can never overflow the offset computation.
const (
	maxPageSize = 100
	maxPage     = 1 << 20
)

// ListUsers returns a page of users.
func (s *Service) ListUsers(ctx context.Context, page, size int) ([]model.User, error) {
	if page < 0 {
		page = 0
	}
	if page > maxPage {
		page = maxPage
	}
	if size <= 0 {
		size = 5
	}
	if size > maxPageSize {
		size = maxPageSize
	}
	return s.users.List(ctx, page*size, size)
}

// CreateUser registers a user on behalf of an administrator. The actor
// is recorded as the audit author.
func (s *Service) CreateUser(ctx context.Context, actor string, req CreateUserRequest) (*model.User, error) {
	req.Email = NormalizeEmail(req.Email)
	if err := validateSignUp(SignUpRequest{
		FirstName:   req.FirstName,
		LastName:    req.LastName,
		Email:       req.Email,
		Password:    req.Password,
		PhoneNumber: req.PhoneNumber,
	}); err != nil {
		return nil, err
	}
	if len(req.Roles) == 0 {
		return nil, fmt.Errorf("%w: at least one role required", ErrInvalidInput)
	}
	for _, r := range req.Roles {
		if !model.ValidRole(r) {
			return nil, fmt.Errorf("%w: unknown role %q", ErrInvalidInput, r)
		}
	}
	taken, err := s.users.ExistsByEmail(ctx, req.Email)
	if err != nil {
		return nil, fmt.Errorf("email lookup: %w", err)
	}
	if taken {
		return nil, ErrEmailTaken
	}

	hash, err := HashPassword(req.Password, s.bcryptCost)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}
	now := s.now().UTC()
	u := &model.User{
		ID:           uuid.NewString(),
		FirstName:    req.FirstName,
		LastName:     req.LastName,
		Email:        req.Email,
		PasswordHash: hash,
		PhoneNumber:  req.PhoneNumber,
		Roles:        req.Roles,
		CreatedAt:    now,
		UpdatedAt:    now,
		CreatedBy:    actor,
		UpdatedBy:    actor,
	}
	if err := s.users.Save(ctx, u); err != nil {
		if errors.Is(err, repository.ErrEmailExists) {
			return nil, ErrEmailTaken
		}
		return nil, fmt.Errorf("save user: %w", err)
	}
	return u, nil
}

// UpdateUser rewrites the profile of the user holding email. A changed
// email must be unique against every other user; the check happens
// before any write. The actor becomes the audit author of the update.
func (s *Service) UpdateUser(ctx context.Context, actor, email string, req UpdateUserRequest) (*model.User, error) {
	u, err := s.GetUser(ctx, email)
	if err != nil {
		return nil, err
	}
	if req.FirstName == "" || req.LastName == "" || req.Email == "" {
		return nil, fmt.Errorf("%w: missing required field", ErrInvalidInput)
	}
	req.Email = NormalizeEmail(req.Email)
	if !emailPattern.MatchString(req.Email) {
		return nil, fmt.Errorf("%w: email is not valid", ErrInvalidInput)
	}
	if req.PhoneNumber != "" && !phonePattern.MatchString(req.PhoneNumber) {
		return nil, fmt.Errorf("%w: phone number is not valid", ErrInvalidInput)
	}
	if req.Email != u.Email {
		taken, err := s.users.ExistsByEmail(ctx, req.Email)
		if err != nil {
			return nil, fmt.Errorf("email lookup: %w", err)
		}
		if taken {
			return nil, ErrEmailTaken
		}
	}

	u.FirstName = req.FirstName
	u.LastName = req.LastName
	u.Email = req.Email
	if req.PhoneNumber != "" {
		u.PhoneNumber = req.PhoneNumber
	}
	u.UpdatedAt = s.now().UTC()
	u.UpdatedBy = actor
	if err := s.users.Save(ctx, u); err != nil {
		if errors.Is(err, repository.ErrEmailExists) {
			return nil, ErrEmailTaken
		}
		return nil, fmt.Errorf("save user: %w", err)
	}
	return u, nil
}

// ChangePassword verifies the current password, stores a new hash and
// revokes every live token so stolen sessions die with the old secret.
func (s *Service) ChangePassword(ctx context.Context, email, current, next string) error {
	if next == "" {
		return fmt.Errorf("%w: new password required", ErrInvalidInput)
	}
	u, err := s.GetUser(ctx, email)
	if err != nil {
		return err
	}
	if !VerifyPassword(u.PasswordHash, current) {
		return ErrInvalidCredentials
	}
	hash, err := HashPassword(next, s.bcryptCost)
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}
	u.PasswordHash = hash
	u.UpdatedAt = s.now().UTC()
	u.UpdatedBy = u.Email
	if err := s.users.Save(ctx, u); err != nil {
		return fmt.Errorf("save user: %w", err)
	}

	s.locks.Lock(u.ID)
	defer s.locks.Unlock(u.ID)
	if err := s.ledger.RevokeAllForUser(ctx, u.ID); err != nil {
		return fmt.Errorf("revoke tokens: %w", err)
	}
	return nil
}

// DeleteUser removes the user holding email. The removal is hard: the
// row is gone, and every token the user held is revoked first so no
// credential outlives the account.
func (s *Service) DeleteUser(ctx context.Context, email string) error {
	u, err := s.GetUser(ctx, email)
	if err != nil {
		return err
	}
	s.locks.Lock(u.ID)
	defer s.locks.Unlock(u.ID)
	if err := s.ledger.RevokeAllForUser(ctx, u.ID); err != nil {
		return fmt.Errorf("revoke tokens: %w", err)
	}
	if err := s.users.DeleteByEmail(ctx, u.Email); err != nil {
		return fmt.Errorf("delete user: %w", err)
	}
	return nil
}
