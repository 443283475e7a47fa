package model

import "time"

// Role names a level of access a user holds. Roles live on the user
// record, not inside tokens, so changing a user's roles takes effect on
// the next validated request without re-issuing tokens.
type Role string

const (
	RoleUser  Role = "USER"
	RoleAdmin Role = "ADMIN"
)

// ValidRole reports whether the given name is a known role.
func ValidRole(r Role) bool {
	return r == RoleUser || r == RoleAdmin
}

// User represents a row in the `users` table plus its roles from the
// `user_roles` table. The email is the login subject and is unique
// across all users. PasswordHash is a bcrypt hash; the plaintext is
// never stored. CreatedBy/UpdatedBy record the actor responsible for
// the write (the user's own email on sign-up, the caller's on admin
// operations).
type User struct {
	ID           string    // users.id (uuid)
	FirstName    string    // users.first_name
	LastName     string    // users.last_name
	Email        string    // users.email (unique, login subject)
	PasswordHash string    // users.password_hash
	PhoneNumber  string    // users.phone_number
	Roles        []Role    // user_roles.role, ordered
	CreatedAt    time.Time // users.created_at
	UpdatedAt    time.Time // users.updated_at
	CreatedBy    string    // users.created_by
	UpdatedBy    string    // users.updated_by
}

// HasRole reports whether the user holds the given role.
func (u *User) HasRole(r Role) bool {
	for _, have := range u.Roles {
		if have == r {
			return true
		}
	}
	return false
}

// PublicUser is the caller-facing view of a user. It never carries the
// password hash.
type PublicUser struct {
	ID          string    `json:"id"`
	FirstName   string    `json:"first_name"`
	LastName    string    `json:"last_name"`
	Email       string    `json:"email"`
	PhoneNumber string    `json:"phone_number"`
	Roles       []Role    `json:"roles"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// Public returns the caller-facing view of the user.
func (u *User) Public() PublicUser {
	return PublicUser{
		ID:          u.ID,
		FirstName:   u.FirstName,
		LastName:    u.LastName,
		Email:       u.Email,
		PhoneNumber: u.PhoneNumber,
		Roles:       u.Roles,
		CreatedAt:   u.CreatedAt,
		UpdatedAt:   u.UpdatedAt,
	}
}
