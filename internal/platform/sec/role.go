// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package sec

import (
	"slices"

	"github.com/taibuivan/useraccount/internal/platform/apperr"
)

// # User Roles

// UserRole represents the authorization level granted to an account.
type UserRole string

const (
	// Unrestricted system access
	RoleAdmin UserRole = "ADMIN"

	// Default role for standard registered users
	RoleUser UserRole = "USER"
)

// IsValid reports whether r is one of the known roles.
func (r UserRole) IsValid() bool {
	return r == RoleAdmin || r == RoleUser
}

// # Role Checks

// RequireRole fails with FORBIDDEN unless the verified identity holds one of
// the allowed roles. A nil identity is UNAUTHORIZED.
func RequireRole(claims *AuthClaims, allowed ...UserRole) error {
	if claims == nil {
		return apperr.Unauthorized("Authentication required")
	}
	if !slices.Contains(allowed, claims.Role) {
		return apperr.Forbidden("Insufficient permissions")
	}
	return nil
}
