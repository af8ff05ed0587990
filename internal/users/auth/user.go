// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

/*
Package auth implements account identity: registration, login, token
verification, and the password reset flow.

# Architecture

  - Entities: User and the four reset fields it carries.
  - Service: Orchestrates Register, Login, Verify, and the reset state machine.
  - Repository: Postgres for accounts; Redis only for reset throttling.

Every reset transition is a single guarded UPDATE, so two requests racing on
the same code or session token cannot both succeed.
*/
package auth

import (
	"errors"
	"time"

	"github.com/taibuivan/useraccount/internal/platform/sec"
)

// # Domain Entities

// User represents a registered account.
//
// The reset fields and the password hash never leave the service layer; they
// are tagged out of JSON.
type User struct {
	ID        int64        `json:"id"`
	Email     string       `json:"email"`
	Username  string       `json:"username"`
	FirstName *string      `json:"first_name"`
	LastName  *string      `json:"last_name"`
	Role      sec.UserRole `json:"role"`

	PasswordHash string `json:"-"`

	ResetOtp           *string    `json:"-"`
	OtpExpiry          *time.Time `json:"-"`
	ResetSessionToken  *string    `json:"-"`
	ResetSessionExpiry *time.Time `json:"-"`

	PasswordChangedAt *time.Time `json:"password_changed_at,omitempty"`
	CreatedAt         time.Time  `json:"created_at"`
	UpdatedAt         time.Time  `json:"updated_at"`
	DeletedAt         *time.Time `json:"-"`
}

// IsDeleted reports whether the account has been soft-deleted.
func (u *User) IsDeleted() bool {
	return u.DeletedAt != nil
}

// # Reset State

// ResetPhase is the derived position of an account in the reset flow.
type ResetPhase string

const (
	PhaseNone          ResetPhase = "NONE"
	PhaseOtpPending    ResetPhase = "OTP_PENDING"
	PhaseSessionActive ResetPhase = "RESET_SESSION_ACTIVE"
)

// ResetPhase derives the phase from which reset fields are populated.
// Expiry does not change the phase; it is checked when the value is used.
func (u *User) ResetPhase() ResetPhase {
	switch {
	case u.ResetSessionToken != nil:
		return PhaseSessionActive
	case u.ResetOtp != nil:
		return PhaseOtpPending
	default:
		return PhaseNone
	}
}

// OtpExpired reports whether an OTP expiry is set and lies strictly before now.
// An unset expiry never expires.
func (u *User) OtpExpired(now time.Time) bool {
	return u.OtpExpiry != nil && u.OtpExpiry.Before(now)
}

// ResetSessionExpired is [User.OtpExpired] for the reset session.
func (u *User) ResetSessionExpired(now time.Time) bool {
	return u.ResetSessionExpiry != nil && u.ResetSessionExpiry.Before(now)
}

// ResetState is the full replacement value for the four reset fields.
// Nil pointers clear the column.
type ResetState struct {
	Otp           *string
	OtpExpiry     *time.Time
	SessionToken  *string
	SessionExpiry *time.Time
}

// ResetGuard makes a reset write conditional on the values the caller read.
// An empty field means "no condition on this column".
type ResetGuard struct {
	Otp          string
	SessionToken string
}

// ErrResetStateChanged is returned by guarded writes when the row no longer
// holds the guarded value, i.e. another request consumed it first.
var ErrResetStateChanged = errors.New("auth: reset state changed concurrently")

// # Field Identifiers

// Field names used in validation errors and JSON payloads.
const (
	FieldEmail       = "email"
	FieldUsername    = "username"
	FieldPassword    = "password"
	FieldNewPassword = "new_password"
	FieldFirstName   = "first_name"
	FieldLastName    = "last_name"
	FieldRole        = "role"
	FieldOtp         = "otp"
	FieldResetToken  = "reset_token"
)
