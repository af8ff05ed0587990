// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

// Package dberr provides a bridge between low-level database errors and
// higher-level application errors.
package dberr

import (
	"errors"
	"fmt"

	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/taibuivan/useraccount/internal/platform/apperr"
)

// Wrap inspects a database error and wraps it into a meaningful [apperr.AppError].
// It hides internal database details from the client while classifying the error type.
//
// The resource names the entity in NOT_FOUND messages ("User not found").
func Wrap(err error, resource, action string) error {
	if err == nil {
		return nil
	}

	// 1. Not Found mapping
	if errors.Is(err, pgx.ErrNoRows) {
		return apperr.NotFound(resource)
	}

	// 2. Unique constraint violations become 409s naming the column
	if pgErr, ok := AsPgError(err); ok && pgErr.Code == pgerrcode.UniqueViolation {
		return apperr.Conflict(conflictMessage(resource, pgErr.ConstraintName))
	}

	// 3. Unknown query errors become Internal Server Errors
	return apperr.Internal(fmt.Errorf("%s: %w", action, err))
}

// IsUniqueViolation reports whether err carries SQLSTATE 23505.
func IsUniqueViolation(err error) bool {
	pgErr, ok := AsPgError(err)
	return ok && pgErr.Code == pgerrcode.UniqueViolation
}

// AsPgError extracts the server-side Postgres error from err's chain.
func AsPgError(err error) (*pgconn.PgError, bool) {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr, true
	}
	return nil, false
}

// conflictMessage names the violated constraint when it follows the
// <table>_<column>_key convention.
func conflictMessage(resource, constraint string) string {
	switch constraint {
	case "account_email_key":
		return resource + " with this email already exists"
	case "account_username_key":
		return resource + " with this username already exists"
	default:
		return resource + " already exists"
	}
}
