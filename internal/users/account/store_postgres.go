// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package account

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/taibuivan/useraccount/internal/platform/apperr"
	"github.com/taibuivan/useraccount/internal/platform/database/schema"
	"github.com/taibuivan/useraccount/internal/platform/dberr"
	"github.com/taibuivan/useraccount/internal/users/auth"
)

const resourceUser = "User"

// PostgresAccountRepository implements [AccountRepository] on users.account.
type PostgresAccountRepository struct {
	pool *pgxpool.Pool
}

// NewAccountRepository creates a new PostgreSQL implementation of the AccountRepository.
func NewAccountRepository(pool *pgxpool.Pool) *PostgresAccountRepository {
	return &PostgresAccountRepository{pool: pool}
}

/*
FindByID retrieves an active account by primary key.

Returns:
  - *auth.User: Hydrated account entity
  - error: apperr.NotFound or database errors
*/
func (repository *PostgresAccountRepository) FindByID(ctx context.Context, id int64) (*auth.User, error) {
	query := fmt.Sprintf(`SELECT %s FROM %s WHERE %s = $1 AND %s IS NULL`,
		auth.UserColumns, schema.UserAccount.Table, schema.UserAccount.ID, schema.UserAccount.DeletedAt,
	)

	user, err := auth.ScanUser(repository.pool.QueryRow(ctx, query, id))
	if err != nil {
		return nil, dberr.Wrap(err, resourceUser, "postgres_account_repo_find_by_id")
	}
	return user, nil
}

/*
List returns one page of active accounts and the total number of matches.

Search is a case-insensitive substring match over email, username, and
both name columns.
*/
func (repository *PostgresAccountRepository) List(ctx context.Context, filter ListFilter) ([]*auth.User, int, error) {
	where, args := listConditions(filter)

	countQuery := fmt.Sprintf(`SELECT count(*) FROM %s WHERE %s`, schema.UserAccount.Table, where)

	var total int
	if err := repository.pool.QueryRow(ctx, countQuery, args...).Scan(&total); err != nil {
		return nil, 0, dberr.Wrap(err, resourceUser, "postgres_account_repo_count")
	}

	query := fmt.Sprintf(`SELECT %s FROM %s WHERE %s ORDER BY %s ASC LIMIT $`,
		auth.UserColumns, schema.UserAccount.Table, where, schema.UserAccount.ID,
	) + itos(len(args)+1) + ` OFFSET $` + itos(len(args)+2)

	rows, err := repository.pool.Query(ctx, query, append(args, filter.Limit, filter.Offset)...)
	if err != nil {
		return nil, 0, dberr.Wrap(err, resourceUser, "postgres_account_repo_list")
	}
	defer rows.Close()

	users := make([]*auth.User, 0, filter.Limit)
	for rows.Next() {
		user, err := auth.ScanUser(rows)
		if err != nil {
			return nil, 0, dberr.Wrap(err, resourceUser, "postgres_account_repo_scan")
		}
		users = append(users, user)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, dberr.Wrap(err, resourceUser, "postgres_account_repo_rows")
	}

	return users, total, nil
}

// listConditions builds the shared WHERE clause of the list and count queries.
func listConditions(filter ListFilter) (string, []any) {
	conditions := []string{schema.UserAccount.DeletedAt + " IS NULL"}
	args := []any{}

	if search := strings.TrimSpace(filter.Search); search != "" {
		args = append(args, "%"+search+"%")
		placeholder := "$" + itos(len(args))

		matches := make([]string, 0, len(schema.UserAccount.SearchColumns()))
		for _, column := range schema.UserAccount.SearchColumns() {
			matches = append(matches, column+" ILIKE "+placeholder)
		}
		conditions = append(conditions, "("+strings.Join(matches, " OR ")+")")
	}

	if len(filter.Roles) > 0 {
		roles := make([]string, len(filter.Roles))
		for i, role := range filter.Roles {
			roles[i] = string(role)
		}
		args = append(args, roles)
		conditions = append(conditions, schema.UserAccount.Role+" = ANY($"+itos(len(args))+")")
	}

	return strings.Join(conditions, " AND "), args
}

/*
UpdateProfile writes only the columns present in changes and returns the row.

Returns:
  - *auth.User: The account after the write
  - error: apperr.NotFound, apperr.Conflict or database errors
*/
func (repository *PostgresAccountRepository) UpdateProfile(ctx context.Context, id int64, changes ProfileChanges) (*auth.User, error) {
	if changes.IsEmpty() {
		return repository.FindByID(ctx, id)
	}

	args := []any{id}
	sets := []string{}

	set := func(column string, value any) {
		args = append(args, value)
		sets = append(sets, column+" = $"+itos(len(args)))
	}

	if changes.Email != nil {
		set(schema.UserAccount.Email, *changes.Email)
	}
	if changes.Username != nil {
		set(schema.UserAccount.Username, *changes.Username)
	}
	if changes.FirstName != nil {
		set(schema.UserAccount.FirstName, *changes.FirstName)
	}
	if changes.LastName != nil {
		set(schema.UserAccount.LastName, *changes.LastName)
	}
	if changes.Role != nil {
		set(schema.UserAccount.Role, string(*changes.Role))
	}
	if changes.Credential != nil {
		set(schema.UserAccount.Password, changes.Credential.PasswordHash)
		set(schema.UserAccount.PasswordChangedAt, changes.Credential.ChangedAt)
		for _, column := range []string{
			schema.UserAccount.ResetOtp, schema.UserAccount.OtpExpiry,
			schema.UserAccount.ResetSessionToken, schema.UserAccount.ResetSessionExpiry,
		} {
			sets = append(sets, column+" = NULL")
		}
	}
	sets = append(sets, schema.UserAccount.UpdatedAt+" = NOW()")

	query := fmt.Sprintf(`UPDATE %s SET %s WHERE %s = $1 AND %s IS NULL RETURNING %s`,
		schema.UserAccount.Table, strings.Join(sets, ", "),
		schema.UserAccount.ID, schema.UserAccount.DeletedAt, auth.UserColumns,
	)

	user, err := auth.ScanUser(repository.pool.QueryRow(ctx, query, args...))
	if err != nil {
		return nil, dberr.Wrap(err, resourceUser, "postgres_account_repo_update")
	}
	return user, nil
}

/*
SoftDelete flags a user account as logically destroyed.

Returns:
  - error: apperr.NotFound when no active account has this ID
*/
func (repository *PostgresAccountRepository) SoftDelete(ctx context.Context, id int64) error {
	query := fmt.Sprintf(`UPDATE %s SET %s = NOW(), %s = NOW() WHERE %s = $1 AND %s IS NULL`,
		schema.UserAccount.Table, schema.UserAccount.DeletedAt, schema.UserAccount.UpdatedAt,
		schema.UserAccount.ID, schema.UserAccount.DeletedAt,
	)

	cmd, err := repository.pool.Exec(ctx, query, id)
	if err != nil {
		return dberr.Wrap(err, resourceUser, "postgres_account_repo_soft_delete")
	}

	if cmd.RowsAffected() == 0 {
		return apperr.NotFound(resourceUser)
	}
	return nil
}

func itos(i int) string {
	return strconv.Itoa(i)
}
