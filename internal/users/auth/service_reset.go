// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package auth

import (
	"context"
	"crypto/subtle"
	"errors"
	"fmt"
	"log/slog"

	"github.com/taibuivan/useraccount/internal/platform/apperr"
	"github.com/taibuivan/useraccount/internal/platform/constants"
	"github.com/taibuivan/useraccount/internal/platform/validate"
	"github.com/taibuivan/useraccount/pkg/email"
	"github.com/taibuivan/useraccount/pkg/pointer"
)

// # Password Reset Flow
//
// NONE --RequestReset--> OTP_PENDING --VerifyOtp--> RESET_SESSION_ACTIVE --ConfirmReset--> NONE
//
// RequestReset is allowed from any phase and always starts over.

/*
RequestReset issues a fresh one-time code for the account and mails it.

Any previous code or reset session is discarded. The code is persisted before
the mail is sent; when delivery fails the caller gets MAIL_DELIVERY_FAILED and
may simply request again.

Returns:
  - error: NotFound, RateLimited, DeliveryFailed, or storage failures
*/
func (service *Service) RequestReset(ctx context.Context, rawEmail string) error {
	address := email.Normalize(rawEmail)

	if err := service.limiter.AllowResetRequest(ctx, address); err != nil {
		return err
	}

	user, err := service.users.FindByEmail(ctx, address)
	if err != nil {
		return err
	}

	otp, err := service.secrets.GenerateOtp()
	if err != nil {
		return fmt.Errorf("auth_service_generate_otp_failed: %w", err)
	}

	state := ResetState{Otp: pointer.To(otp), OtpExpiry: pointer.To(service.now().Add(constants.OtpTTL))}

	if err := service.users.UpdateResetFields(ctx, user.ID, state, ResetGuard{}); err != nil {
		return fmt.Errorf("auth_service_store_otp_failed: %w", err)
	}

	if err := service.mailer.SendResetOtp(ctx, user.Email, otp); err != nil {
		service.logger.ErrorContext(ctx, "reset_mail_delivery_failed",
			slog.Int64("user_id", user.ID),
			slog.Any("error", err),
		)
		return apperr.DeliveryFailed(err)
	}

	service.logger.InfoContext(ctx, "password_reset_requested", slog.Int64("user_id", user.ID))
	return nil
}

/*
VerifyOtp exchanges a valid one-time code for a reset session token.

The code is checked for a match before its expiry, and consumed together with
the creation of the session in a single guarded write. Of two concurrent
calls with the same code, exactly one gets a token.

Returns:
  - string: The reset session token (256 bits, hex)
  - error: NotFound, InvalidOtp, OtpExpired, RateLimited, or storage failures
*/
func (service *Service) VerifyOtp(ctx context.Context, rawEmail, otp string) (string, error) {
	address := email.Normalize(rawEmail)

	if err := service.limiter.AllowOtpAttempt(ctx, address); err != nil {
		return "", err
	}

	user, err := service.users.FindByEmail(ctx, address)
	if err != nil {
		return "", err
	}

	if !secretMatches(user.ResetOtp, otp) {
		return "", apperr.InvalidOtp()
	}

	now := service.now()
	if user.OtpExpired(now) {
		return "", apperr.OtpExpired()
	}

	sessionToken, err := service.secrets.GenerateSessionToken()
	if err != nil {
		return "", fmt.Errorf("auth_service_generate_session_failed: %w", err)
	}

	state := ResetState{SessionToken: pointer.To(sessionToken), SessionExpiry: pointer.To(now.Add(constants.ResetSessionTTL))}

	err = service.users.UpdateResetFields(ctx, user.ID, state, ResetGuard{Otp: *user.ResetOtp})
	if err != nil {
		if errors.Is(err, ErrResetStateChanged) {
			return "", apperr.InvalidOtp()
		}
		return "", fmt.Errorf("auth_service_open_reset_session_failed: %w", err)
	}

	service.logger.InfoContext(ctx, "password_reset_otp_verified", slog.Int64("user_id", user.ID))
	return sessionToken, nil
}

/*
ConfirmReset sets a new password using a reset session token.

The new hash, passwordChangedAt, and the clearing of every reset field land in
one guarded write. Tokens issued before this moment stop verifying.

Returns:
  - error: ValidationError, NotFound, InvalidResetToken, ResetSessionExpired,
    or storage failures
*/
func (service *Service) ConfirmReset(ctx context.Context, rawEmail, newPassword, resetToken string) error {
	validator := &validate.Validator{}
	if err := validator.Password(FieldNewPassword, newPassword).Err(); err != nil {
		return err
	}

	user, err := service.users.FindByEmail(ctx, email.Normalize(rawEmail))
	if err != nil {
		return err
	}

	if !secretMatches(user.ResetSessionToken, resetToken) {
		return apperr.InvalidResetToken()
	}

	now := service.now()
	if user.ResetSessionExpired(now) {
		return apperr.ResetSessionExpired()
	}

	hashedPassword, err := service.hasher.Hash(newPassword)
	if err != nil {
		return fmt.Errorf("auth_service_hash_failed: %w", err)
	}

	err = service.users.UpdateCredential(ctx, user.ID, hashedPassword, now, ResetGuard{SessionToken: *user.ResetSessionToken})
	if err != nil {
		if errors.Is(err, ErrResetStateChanged) {
			return apperr.InvalidResetToken()
		}
		return fmt.Errorf("auth_service_store_credential_failed: %w", err)
	}

	service.logger.InfoContext(ctx, "password_reset_completed", slog.Int64("user_id", user.ID))
	return nil
}

// secretMatches compares a submitted secret against the stored one in
// constant time. A missing stored value or empty submission never matches.
func secretMatches(stored *string, submitted string) bool {
	expected := pointer.Val(stored)
	if expected == "" || submitted == "" {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(expected), []byte(submitted)) == 1
}
