// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

/*
Package apperr defines the centralized error handling framework for the account service.

It provides a rich error type that bridges the gap between low-level Domain/Storage
errors and high-level HTTP responses.

Architecture:

  - AppError: A struct containing machine-readable ErrorCode and user-friendly messages.
  - Kinds: One constructor per error kind the service exposes (OTP, reset session, tokens).
  - Mapping: Explicit mapping from AppError to standard HTTP Status Codes.

Every error that leaves the service layer should be wrapped as an [AppError] to ensure
consistent API responses.
*/
package apperr

import (
	"errors"
	"fmt"
	"net/http"
)

// # Error Codes

// Machine-readable codes carried by [AppError.Code].
const (
	CodeNotFound            = "NOT_FOUND"
	CodeUnauthorized        = "UNAUTHORIZED"
	CodeForbidden           = "FORBIDDEN"
	CodeConflict            = "CONFLICT"
	CodeValidation          = "VALIDATION_ERROR"
	CodeRateLimited         = "RATE_LIMITED"
	CodeInternal            = "INTERNAL_ERROR"
	CodeInvalidOtp          = "INVALID_OTP"
	CodeOtpExpired          = "OTP_EXPIRED"
	CodeInvalidResetToken   = "INVALID_RESET_TOKEN"
	CodeResetSessionExpired = "RESET_SESSION_EXPIRED"
	CodeInvalidCredentials  = "INVALID_CREDENTIALS"
	CodeTokenExpired        = "TOKEN_EXPIRED"
	CodeInvalidToken        = "INVALID_TOKEN"
	CodeTokenStale          = "TOKEN_STALE"
	CodeAuthentication      = "AUTHENTICATION_ERROR"
	CodeDeliveryFailed      = "MAIL_DELIVERY_FAILED"
)

// AppError is the canonical error type for the account API.
//
// It carries an HTTP status code, a machine-readable code, a client-safe
// message, and an optional slice of field-level validation errors.
//
// # Security
//
// The Cause field is for server-side logging only and is never sent to clients
// to avoid leaking internal implementation details (e.g., SQL queries, secrets).
type AppError struct {
	// Code is a machine-readable error identifier (e.g. "NOT_FOUND", "INVALID_OTP").
	Code string `json:"code"`
	// Message is a human-readable description safe to return to the client.
	Message string `json:"error"`
	// HTTPStatus is the HTTP response status code.
	HTTPStatus int `json:"-"`
	// Cause is the underlying error, used for server-side logging only.
	Cause error `json:"-"`
	// Details holds per-field validation errors for VALIDATION_ERROR responses.
	Details []FieldError `json:"details,omitempty"`
	// RetryAfter is the number of seconds a RATE_LIMITED client should wait.
	RetryAfter int `json:"-"`
}

// FieldError represents a single field-level validation failure.
type FieldError struct {
	// Field is the JSON field name that failed validation.
	Field string `json:"field"`
	// Message is the human-readable description of the failure.
	Message string `json:"message"`
}

// Error implements the error interface. It returns the client-safe message.
func (e *AppError) Error() string { return e.Message }

// Unwrap allows [errors.Is] and [errors.As] to traverse the cause chain.
func (e *AppError) Unwrap() error { return e.Cause }

// Is reports whether target is an [*AppError] of the same kind.
//
// Two errors are the same kind when their codes match, so callers can write
// errors.Is(err, apperr.InvalidOtp()) without caring about the message.
func (e *AppError) Is(target error) bool {
	var other *AppError
	if !errors.As(target, &other) {
		return false
	}
	return e.Code == other.Code
}

func newError(code string, status int, msg string) *AppError {
	return &AppError{Code: code, Message: msg, HTTPStatus: status}
}

// # Client Errors (4xx)

// NotFound creates a 404 [AppError] for a named resource.
//
// Example:
//
//	apperr.NotFound("User") // Returns "User not found"
func NotFound(resource string) *AppError {
	return newError(CodeNotFound, http.StatusNotFound, resource+" not found")
}

// Unauthorized creates a 401 [AppError].
func Unauthorized(msg string) *AppError {
	return newError(CodeUnauthorized, http.StatusUnauthorized, msg)
}

// Forbidden creates a 403 [AppError].
func Forbidden(msg string) *AppError {
	return newError(CodeForbidden, http.StatusForbidden, msg)
}

// Conflict creates a 409 [AppError] for duplicate or unique-constraint violations.
func Conflict(msg string) *AppError {
	return newError(CodeConflict, http.StatusConflict, msg)
}

// ValidationError creates a 400 [AppError] with optional per-field details.
func ValidationError(msg string, details ...FieldError) *AppError {
	e := newError(CodeValidation, http.StatusBadRequest, msg)
	e.Details = details
	return e
}

// RateLimited creates a 429 [AppError].
func RateLimited(retryAfterSeconds int) *AppError {
	e := newError(CodeRateLimited, http.StatusTooManyRequests,
		fmt.Sprintf("Too many requests. Try again in %ds.", retryAfterSeconds))
	e.RetryAfter = retryAfterSeconds
	return e
}

// # Password Reset (4xx)

// InvalidOtp is returned when the submitted one-time code does not match.
func InvalidOtp() *AppError {
	return newError(CodeInvalidOtp, http.StatusBadRequest, "Invalid OTP")
}

// OtpExpired is returned when the one-time code exists but its window has passed.
func OtpExpired() *AppError {
	return newError(CodeOtpExpired, http.StatusBadRequest, "OTP has expired")
}

// InvalidResetToken is returned when the reset session token does not match.
func InvalidResetToken() *AppError {
	return newError(CodeInvalidResetToken, http.StatusBadRequest, "Invalid reset token")
}

// ResetSessionExpired is returned when the reset session window has passed.
func ResetSessionExpired() *AppError {
	return newError(CodeResetSessionExpired, http.StatusBadRequest, "Reset session has expired")
}

// # Authentication (401)

// InvalidCredentials is deliberately uniform: it never says whether the
// account exists.
func InvalidCredentials() *AppError {
	return newError(CodeInvalidCredentials, http.StatusUnauthorized, "Invalid email or password")
}

// TokenExpired creates a 401 for an access token past its expiry.
func TokenExpired() *AppError {
	return newError(CodeTokenExpired, http.StatusUnauthorized, "Token expired")
}

// InvalidToken creates a 401 for a malformed or badly signed access token.
func InvalidToken() *AppError {
	return newError(CodeInvalidToken, http.StatusUnauthorized, "Invalid token")
}

// TokenStale creates a 401 for a token issued before the last password change.
func TokenStale() *AppError {
	return newError(CodeTokenStale, http.StatusUnauthorized, "Token is no longer valid, please log in again")
}

// Authentication creates the catch-all 401 for verification failures that are
// neither expiry nor a recognised signature problem.
func Authentication(cause error) *AppError {
	e := newError(CodeAuthentication, http.StatusUnauthorized, "Authentication error")
	e.Cause = cause
	return e
}

// # Server Errors (5xx)

// Internal creates a 500 [AppError] wrapping an unexpected server-side error.
// The cause is stored for logging but is never sent to the client.
func Internal(cause error) *AppError {
	e := newError(CodeInternal, http.StatusInternalServerError, "An unexpected error occurred")
	e.Cause = cause
	return e
}

// DeliveryFailed creates a 502 [AppError] for an outbound mail failure.
func DeliveryFailed(cause error) *AppError {
	e := newError(CodeDeliveryFailed, http.StatusBadGateway, "The email could not be delivered, please try again")
	e.Cause = cause
	return e
}

// # Helpers

// IsAppError reports whether err (or any error in its chain) is an [*AppError].
func IsAppError(err error) bool {
	var ae *AppError
	return errors.As(err, &ae)
}

// As extracts the [*AppError] from err's chain. It returns nil if not found.
func As(err error) *AppError {
	var ae *AppError
	if errors.As(err, &ae) {
		return ae
	}
	return nil
}

// CodeOf returns the code of the first [*AppError] in err's chain, or "".
func CodeOf(err error) string {
	if ae := As(err); ae != nil {
		return ae.Code
	}
	return ""
}
