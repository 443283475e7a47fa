// Package repository holds the MySQL-backed stores behind the auth
// core: the user directory and the revocation ledger. Sentinel errors
// defined here let higher layers distinguish storage conflicts from
// plain failures.
package repository

import "errors"

// ErrEmailExists is returned when an insert or update would violate the
// unique constraint on users.email. The service layer translates this
// into its duplicate-email error.
var ErrEmailExists = errors.New("email already exists")
