package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/go-sql-driver/mysql"

	"github.com/ekinsu/auth-service/internal/model"
)

// UserRepo is the MySQL user directory. Emails are stored normalized
// (lowercase, trimmed); callers are expected to normalize before
// lookups, but Create/FindByEmail normalize again to be safe.
type UserRepo struct{ DB *sql.DB }

func NewUserRepo(db *sql.DB) *UserRepo { return &UserRepo{DB: db} }

const userColumns = "id,first_name,last_name,email,password_hash,phone_number,created_at,updated_at,created_by,updated_by"

// FindByEmail fetches a user and its roles. Returns (nil, nil) when no
// user holds the email.
func (r *UserRepo) FindByEmail(ctx context.Context, email string) (*model.User, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	var u model.User
	err := r.DB.QueryRowContext(ctx,
		"SELECT "+userColumns+" FROM users WHERE email=? LIMIT 1",
		email).Scan(&u.ID, &u.FirstName, &u.LastName, &u.Email, &u.PasswordHash,
		&u.PhoneNumber, &u.CreatedAt, &u.UpdatedAt, &u.CreatedBy, &u.UpdatedBy)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	if u.Roles, err = r.loadRoles(ctx, u.ID); err != nil {
		return nil, err
	}
	return &u, nil
}

// Save inserts a new user or updates the row holding the same id. The
// two cases stay separate statements: an upsert would let an INSERT
// that collides on the email unique index silently rewrite the other
// user's row instead of failing. With a plain INSERT the index raises
// a duplicate-key error and the racing sign-up loses. The role set is
// rewritten in the same transaction so readers never observe a user
// with half its roles.
func (r *UserRepo) Save(ctx context.Context, u *model.User) error {
	tx, err := r.DB.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	var exists bool
	if err := tx.QueryRowContext(ctx,
		"SELECT EXISTS(SELECT 1 FROM users WHERE id=?)", u.ID).Scan(&exists); err != nil {
		return err
	}
	if exists {
		_, err = tx.ExecContext(ctx,
			`UPDATE users SET first_name=?, last_name=?, email=?, password_hash=?,
			 phone_number=?, updated_at=?, updated_by=? WHERE id=?`,
			u.FirstName, u.LastName, u.Email, u.PasswordHash, u.PhoneNumber,
			u.UpdatedAt, u.UpdatedBy, u.ID)
	} else {
		_, err = tx.ExecContext(ctx,
			`INSERT INTO users (id,first_name,last_name,email,password_hash,phone_number,created_at,updated_at,created_by,updated_by)
			 VALUES (?,?,?,?,?,?,?,?,?,?)`,
			u.ID, u.FirstName, u.LastName, u.Email, u.PasswordHash, u.PhoneNumber,
			u.CreatedAt, u.UpdatedAt, u.CreatedBy, u.UpdatedBy)
	}
	if err != nil {
		// Both statements can only hit a duplicate key through the unique
		// index on email (the id was just checked inside the tx).
		if isDuplicateKey(err) {
			return ErrEmailExists
		}
		return err
	}

	if _, err := tx.ExecContext(ctx, "DELETE FROM user_roles WHERE user_id=?", u.ID); err != nil {
		return err
	}
	for pos, role := range u.Roles {
		if _, err := tx.ExecContext(ctx,
			"INSERT INTO user_roles (user_id, role, position) VALUES (?,?,?)",
			u.ID, string(role), pos); err != nil {
			return err
		}
	}
	return tx.Commit()
}

// DeleteByEmail hard-deletes a user; user_roles rows go with it via the
// foreign key. Ledger rows are weak references and are left to Sweep.
func (r *UserRepo) DeleteByEmail(ctx context.Context, email string) error {
	res, err := r.DB.ExecContext(ctx, "DELETE FROM users WHERE email=?",
		strings.ToLower(strings.TrimSpace(email)))
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// ExistsByEmail reports whether any user holds the email.
func (r *UserRepo) ExistsByEmail(ctx context.Context, email string) (bool, error) {
	var exists bool
	err := r.DB.QueryRowContext(ctx,
		"SELECT EXISTS(SELECT 1 FROM users WHERE email=?)",
		strings.ToLower(strings.TrimSpace(email))).Scan(&exists)
	return exists, err
}

// List returns users ordered by creation time, newest first.
func (r *UserRepo) List(ctx context.Context, offset, limit int) ([]model.User, error) {
	rows, err := r.DB.QueryContext(ctx,
		"SELECT "+userColumns+" FROM users ORDER BY created_at DESC, id LIMIT ? OFFSET ?",
		limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var users []model.User
	for rows.Next() {
		var u model.User
		if err := rows.Scan(&u.ID, &u.FirstName, &u.LastName, &u.Email, &u.PasswordHash,
			&u.PhoneNumber, &u.CreatedAt, &u.UpdatedAt, &u.CreatedBy, &u.UpdatedBy); err != nil {
			return nil, err
		}
		users = append(users, u)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	for i := range users {
		if users[i].Roles, err = r.loadRoles(ctx, users[i].ID); err != nil {
			return nil, err
		}
	}
	return users, nil
}

// isDuplicateKey reports whether err is MySQL error 1062.
func isDuplicateKey(err error) bool {
	var me *mysql.MySQLError
	return errors.As(err, &me) && me.Number == 1062
}

func (r *UserRepo) loadRoles(ctx context.Context, userID string) ([]model.Role, error) {
	rows, err := r.DB.QueryContext(ctx,
		"SELECT role FROM user_roles WHERE user_id=? ORDER BY position", userID)
	if err != nil {
		return nil, fmt.Errorf("load roles: %w", err)
	}
	defer rows.Close()

	var roles []model.Role
	for rows.Next() {
		var role string
		if err := rows.Scan(&role); err != nil {
			return nil, err
		}
		roles = append(roles, model.Role(role))
	}
	return roles, rows.Err()
}
