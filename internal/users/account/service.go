// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package account

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/taibuivan/useraccount/internal/platform/apperr"
	"github.com/taibuivan/useraccount/internal/platform/sec"
	"github.com/taibuivan/useraccount/internal/platform/validate"
	"github.com/taibuivan/useraccount/internal/users/auth"
	"github.com/taibuivan/useraccount/pkg/email"
	"github.com/taibuivan/useraccount/pkg/pointer"
)

// # Service Layer

// Service orchestrates account record use cases.
//
// It enforces who may touch which record. Credential writes are forwarded to
// the [CredentialManager] so hashing and token invalidation stay in one place.
type Service struct {
	accounts    AccountRepository
	credentials CredentialManager
	logger      *slog.Logger
}

// NewService constructs a new [Service] with its dependencies.
func NewService(accounts AccountRepository, credentials CredentialManager, logger *slog.Logger) *Service {
	return &Service{
		accounts:    accounts,
		credentials: credentials,
		logger:      logger,
	}
}

/*
CreateUser enrolls an account on behalf of an administrator.

Unlike self-registration the caller may choose the role.

Returns:
  - *auth.User: Created entity
  - error: Unauthorized, Forbidden, ValidationError, Conflict
*/
func (service *Service) CreateUser(ctx context.Context, actor *sec.AuthClaims, input auth.RegisterInput) (*auth.User, error) {
	if err := sec.RequireRole(actor, sec.RoleAdmin); err != nil {
		return nil, err
	}

	user, err := service.credentials.Register(ctx, input)
	if err != nil {
		return nil, err
	}

	service.logger.InfoContext(ctx, "user_created_by_admin",
		slog.Int64("user_id", user.ID),
		slog.Int64("actor_id", actor.UserID),
	)
	return user, nil
}

// ListUsers returns one page of active accounts and the total match count.
func (service *Service) ListUsers(ctx context.Context, filter ListFilter) ([]*auth.User, int, error) {
	users, total, err := service.accounts.List(ctx, filter)
	if err != nil {
		return nil, 0, fmt.Errorf("account_service_list_failed: %w", err)
	}
	return users, total, nil
}

// GetUser returns a single active account.
func (service *Service) GetUser(ctx context.Context, id int64) (*auth.User, error) {
	user, err := service.accounts.FindByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("account_service_get_failed: %w", err)
	}
	return user, nil
}

// UpdateInput is a partial account update. Nil fields are left untouched.
type UpdateInput struct {
	Email     *string
	Username  *string
	FirstName *string
	LastName  *string
	Role      *sec.UserRole
	Password  *string
}

/*
UpdateUser applies a partial update to an account.

A user may edit their own record; an ADMIN may edit any record. Only an ADMIN
may change a role. A new password is hashed before anything is written, and
the profile and credential land in one statement, so a failure leaves the
record untouched.

Returns:
  - *auth.User: The account after the write
  - error: Unauthorized, Forbidden, ValidationError, NotFound, Conflict
*/
func (service *Service) UpdateUser(ctx context.Context, actor *sec.AuthClaims, id int64, input UpdateInput) (*auth.User, error) {
	if err := authorizeUpdate(actor, id, input); err != nil {
		return nil, err
	}

	changes := normalizeChanges(input)
	if err := validateUpdate(changes, input.Password); err != nil {
		return nil, err
	}

	if input.Password != nil {
		credential, err := service.credentials.NewCredential(*input.Password)
		if err != nil {
			return nil, err
		}
		changes.Credential = credential
	}

	user, err := service.accounts.UpdateProfile(ctx, id, changes)
	if err != nil {
		return nil, fmt.Errorf("account_service_update_failed: %w", err)
	}

	service.logger.InfoContext(ctx, "user_updated",
		slog.Int64("user_id", id),
		slog.Int64("actor_id", actor.UserID),
		slog.Bool("password_changed", changes.Credential != nil),
	)

	return user, nil
}

func authorizeUpdate(actor *sec.AuthClaims, id int64, input UpdateInput) error {
	if actor == nil {
		return apperr.Unauthorized("Authentication required")
	}

	isAdmin := actor.Role == sec.RoleAdmin
	if actor.UserID != id && !isAdmin {
		return apperr.Forbidden("You can only update your own account")
	}
	if input.Role != nil && !isAdmin {
		return apperr.Forbidden("Only administrators can change roles")
	}
	return nil
}

func normalizeChanges(input UpdateInput) ProfileChanges {
	changes := ProfileChanges{
		FirstName: input.FirstName,
		LastName:  input.LastName,
		Role:      input.Role,
	}
	if input.Email != nil {
		changes.Email = pointer.To(email.Normalize(*input.Email))
	}
	if input.Username != nil {
		changes.Username = pointer.To(strings.TrimSpace(*input.Username))
	}
	return changes
}

func validateUpdate(changes ProfileChanges, password *string) error {
	validator := &validate.Validator{}

	if changes.Email != nil {
		validator.Required(auth.FieldEmail, *changes.Email).
			MaxLen(auth.FieldEmail, *changes.Email, auth.EmailMaxLen).
			Email(auth.FieldEmail, *changes.Email)
	}
	if changes.Username != nil {
		validator.Required(auth.FieldUsername, *changes.Username).
			MinLen(auth.FieldUsername, *changes.Username, auth.UsernameMinLen).
			MaxLen(auth.FieldUsername, *changes.Username, auth.UsernameMaxLen).
			Username(auth.FieldUsername, *changes.Username)
	}
	if changes.FirstName != nil {
		validator.MaxLen(auth.FieldFirstName, *changes.FirstName, auth.NameMaxLen)
	}
	if changes.LastName != nil {
		validator.MaxLen(auth.FieldLastName, *changes.LastName, auth.NameMaxLen)
	}
	if changes.Role != nil {
		validator.OneOf(auth.FieldRole, string(*changes.Role), string(sec.RoleUser), string(sec.RoleAdmin))
	}
	if password != nil {
		validator.Password(auth.FieldPassword, *password)
	}

	return validator.Err()
}

/*
DeleteUser soft-deletes an account. ADMIN only.

The row stays for audit; it disappears from every lookup and listing.
*/
func (service *Service) DeleteUser(ctx context.Context, actor *sec.AuthClaims, id int64) error {
	if err := sec.RequireRole(actor, sec.RoleAdmin); err != nil {
		return err
	}

	if err := service.accounts.SoftDelete(ctx, id); err != nil {
		return fmt.Errorf("account_service_delete_failed: %w", err)
	}

	service.logger.InfoContext(ctx, "user_deleted",
		slog.Int64("user_id", id),
		slog.Int64("actor_id", actor.UserID),
	)
	return nil
}
