// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

/*
Package account manages user records after enrollment.

Identity concerns (hashing, login, tokens, password reset) live in the auth
package. This package owns listing, lookup, profile edits, and soft deletion,
and delegates every credential write back to auth.
*/
package account

import (
	"context"

	"github.com/taibuivan/useraccount/internal/platform/sec"
	"github.com/taibuivan/useraccount/internal/users/auth"
)

// # Query Types

// ListFilter narrows an account listing.
type ListFilter struct {
	// Search is matched case-insensitively against email, username, and names.
	Search string

	// Roles keeps only accounts holding one of the listed roles. Empty means any.
	Roles []sec.UserRole

	Limit  int
	Offset int
}

// ProfileChanges is a partial update. Nil fields are left untouched.
type ProfileChanges struct {
	Email     *string
	Username  *string
	FirstName *string
	LastName  *string
	Role      *sec.UserRole

	// Credential replaces the password in the same write. It also stamps
	// passwordChangedAt and clears any pending reset.
	Credential *auth.Credential
}

// IsEmpty reports whether no column would change.
func (c ProfileChanges) IsEmpty() bool {
	return c.Email == nil && c.Username == nil && c.FirstName == nil && c.LastName == nil && c.Role == nil &&
		c.Credential == nil
}

// # Data Access

// AccountRepository defines the data access contract for account records.
// Soft-deleted accounts are invisible to every method.
type AccountRepository interface {

	/*
		FindByID returns the account with the given ID.

		Returns:
		  - *auth.User: Hydrated entity
		  - error: apperr.NotFound or storage failures
	*/
	FindByID(ctx context.Context, id int64) (*auth.User, error)

	/*
		List returns one page of accounts ordered by ID, plus the total match count.
	*/
	List(ctx context.Context, filter ListFilter) ([]*auth.User, int, error)

	/*
		UpdateProfile applies changes and returns the stored row.

		Returns:
		  - *auth.User: The account after the write
		  - error: apperr.NotFound, apperr.Conflict on duplicate email/username
	*/
	UpdateProfile(ctx context.Context, id int64, changes ProfileChanges) (*auth.User, error)

	/*
		SoftDelete stamps deletedat. Deleting twice is apperr.NotFound.
	*/
	SoftDelete(ctx context.Context, id int64) error
}

// CredentialManager creates accounts and prepares password hashes. See [auth.Service].
type CredentialManager interface {
	Register(ctx context.Context, input auth.RegisterInput) (*auth.User, error)
	NewCredential(newPassword string) (*auth.Credential, error)
}
