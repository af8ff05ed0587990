// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/taibuivan/useraccount/internal/platform/apperr"
	"github.com/taibuivan/useraccount/internal/platform/database/schema"
	"github.com/taibuivan/useraccount/internal/platform/dberr"
)

// UserColumns is the canonical column list for [ScanUser].
var UserColumns = strings.Join(schema.UserAccount.Columns(), ", ")

// ScanUser hydrates a [User] from a row selected with [UserColumns].
func ScanUser(row pgx.Row) (*User, error) {
	user := &User{}
	err := row.Scan(
		&user.ID,
		&user.Email,
		&user.Username,
		&user.FirstName,
		&user.LastName,
		&user.Role,
		&user.PasswordHash,
		&user.ResetOtp,
		&user.OtpExpiry,
		&user.ResetSessionToken,
		&user.ResetSessionExpiry,
		&user.PasswordChangedAt,
		&user.CreatedAt,
		&user.UpdatedAt,
		&user.DeletedAt,
	)
	if err != nil {
		return nil, err
	}
	return user, nil
}

// # User Repository

// PostgresUserRepository implements [UserRepository] on users.account using pgx.
type PostgresUserRepository struct {
	pool *pgxpool.Pool
}

// NewUserRepository creates a new PostgreSQL implementation of the UserRepository.
func NewUserRepository(pool *pgxpool.Pool) *PostgresUserRepository {
	return &PostgresUserRepository{pool: pool}
}

/*
FindByID retrieves an active account by primary key.

Returns:
  - *User: Hydrated account entity
  - error: apperr.NotFound or database errors
*/
func (repository *PostgresUserRepository) FindByID(ctx context.Context, id int64) (*User, error) {
	query := `SELECT ` + UserColumns + ` FROM users.account WHERE id = $1 AND deletedat IS NULL`
	return repository.findOne(ctx, "postgres_user_repo_find_by_id", query, id)
}

/*
FindByEmail retrieves an active account by its normalized email.

Returns:
  - *User: Hydrated account entity
  - error: apperr.NotFound or database errors
*/
func (repository *PostgresUserRepository) FindByEmail(ctx context.Context, email string) (*User, error) {
	query := `SELECT ` + UserColumns + ` FROM users.account WHERE email = $1 AND deletedat IS NULL`
	return repository.findOne(ctx, "postgres_user_repo_find_by_email", query, email)
}

/*
FindByUsername retrieves an active account by username.

Returns:
  - *User: Hydrated account entity
  - error: apperr.NotFound or database errors
*/
func (repository *PostgresUserRepository) FindByUsername(ctx context.Context, username string) (*User, error) {
	query := `SELECT ` + UserColumns + ` FROM users.account WHERE username = $1 AND deletedat IS NULL`
	return repository.findOne(ctx, "postgres_user_repo_find_by_username", query, username)
}

func (repository *PostgresUserRepository) findOne(ctx context.Context, action, query string, arg any) (*User, error) {
	user, err := ScanUser(repository.pool.QueryRow(ctx, query, arg))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperr.NotFound("User")
		}
		return nil, fmt.Errorf("%s_failed: %w", action, err)
	}
	return user, nil
}

/*
Create inserts a new account. The identity column assigns the ID.

Returns:
  - error: apperr.Conflict on duplicate email/username, or database errors
*/
func (repository *PostgresUserRepository) Create(ctx context.Context, user *User) error {
	const query = `
		INSERT INTO users.account (email, username, firstname, lastname, role, passwordhash, passwordchangedat)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id, createdat, updatedat`

	err := repository.pool.QueryRow(ctx, query,
		user.Email,
		user.Username,
		user.FirstName,
		user.LastName,
		user.Role,
		user.PasswordHash,
		user.PasswordChangedAt,
	).Scan(&user.ID, &user.CreatedAt, &user.UpdatedAt)

	if err != nil {
		if dberr.IsUniqueViolation(err) {
			return dberr.Wrap(err, "User", "postgres_user_repo_create")
		}
		return fmt.Errorf("postgres_user_repo_create_failed: %w", err)
	}

	return nil
}

/*
UpdateResetFields overwrites the reset columns as one compare-and-set.

The guard parameters are compared only when non-empty, so an unguarded call
(a fresh forgot-password request) always lands on an active row.
*/
func (repository *PostgresUserRepository) UpdateResetFields(ctx context.Context, id int64, state ResetState, guard ResetGuard) error {
	const query = `
		UPDATE users.account
		SET resetotp = $2,
		    otpexpiry = $3,
		    resetsessiontoken = $4,
		    resetsessionexpiry = $5,
		    updatedat = NOW()
		WHERE id = $1
		  AND deletedat IS NULL
		  AND ($6::text = '' OR resetotp = $6::text)
		  AND ($7::text = '' OR resetsessiontoken = $7::text)`

	tag, err := repository.pool.Exec(ctx, query,
		id,
		state.Otp,
		state.OtpExpiry,
		state.SessionToken,
		state.SessionExpiry,
		guard.Otp,
		guard.SessionToken,
	)
	if err != nil {
		return fmt.Errorf("postgres_user_repo_update_reset_failed: %w", err)
	}

	return guardedResult(tag.RowsAffected(), guard)
}

/*
UpdateCredential replaces the password hash and wipes reset state as one
compare-and-set.
*/
func (repository *PostgresUserRepository) UpdateCredential(ctx context.Context, id int64, passwordHash string, changedAt time.Time, guard ResetGuard) error {
	const query = `
		UPDATE users.account
		SET passwordhash = $2,
		    passwordchangedat = $3,
		    resetotp = NULL,
		    otpexpiry = NULL,
		    resetsessiontoken = NULL,
		    resetsessionexpiry = NULL,
		    updatedat = NOW()
		WHERE id = $1
		  AND deletedat IS NULL
		  AND ($4::text = '' OR resetotp = $4::text)
		  AND ($5::text = '' OR resetsessiontoken = $5::text)`

	tag, err := repository.pool.Exec(ctx, query, id, passwordHash, changedAt, guard.Otp, guard.SessionToken)
	if err != nil {
		return fmt.Errorf("postgres_user_repo_update_credential_failed: %w", err)
	}

	return guardedResult(tag.RowsAffected(), guard)
}

// guardedResult turns a zero row count into the right error for the guard used.
func guardedResult(rows int64, guard ResetGuard) error {
	if rows > 0 {
		return nil
	}
	if guard == (ResetGuard{}) {
		return apperr.NotFound("User")
	}
	return ErrResetStateChanged
}
