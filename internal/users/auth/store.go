// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package auth

import (
	"context"
	"time"
)

// # User Data Access

// UserRepository defines the data access contract for the identity side of
// user accounts. Soft-deleted accounts are invisible to every method.
type UserRepository interface {

	/*
		FindByID returns the account with the given ID.

		Returns:
		  - *User: Hydrated entity
		  - error: apperr.NotFound or storage failures
	*/
	FindByID(ctx context.Context, id int64) (*User, error)

	/*
		FindByEmail returns the account with the given normalized email.

		Returns:
		  - *User: Hydrated entity
		  - error: apperr.NotFound or storage failures
	*/
	FindByEmail(ctx context.Context, email string) (*User, error)

	/*
		FindByUsername returns the account with the given username.

		Returns:
		  - *User: Hydrated entity
		  - error: apperr.NotFound or storage failures
	*/
	FindByUsername(ctx context.Context, username string) (*User, error)

	/*
		Create persists a brand-new account and fills in ID and timestamps.

		Returns:
		  - error: apperr.Conflict on duplicate email/username, or storage failures
	*/
	Create(ctx context.Context, user *User) error

	/*
		UpdateResetFields replaces all four reset fields in one write.

		The write only applies if the row still matches guard. A guarded write
		that matches nothing returns [ErrResetStateChanged]; an unguarded one
		returns apperr.NotFound.
	*/
	UpdateResetFields(ctx context.Context, id int64, state ResetState, guard ResetGuard) error

	/*
		UpdateCredential stores a new password hash, stamps passwordChangedAt,
		and clears all four reset fields in one write, under the same guard
		rules as UpdateResetFields.
	*/
	UpdateCredential(ctx context.Context, id int64, passwordHash string, changedAt time.Time, guard ResetGuard) error
}
