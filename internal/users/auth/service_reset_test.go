// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package auth_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/taibuivan/useraccount/internal/platform/apperr"
	"github.com/taibuivan/useraccount/internal/users/auth"
	"github.com/taibuivan/useraccount/pkg/pointer"
)

/*
TestPasswordReset_FullFlow walks one account from NONE back to NONE.
*/
func TestPasswordReset_FullFlow(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	user := f.seedUser(t, testEmail)

	oldToken, _, err := f.tokens.GenerateAccessToken(user.ID, user.Role)
	require.NoError(t, err)

	// 1. Request: OTP persisted and mailed
	require.NoError(t, f.service.RequestReset(ctx, testEmail))

	stored := f.repo.snapshot(t, user.ID)
	assert.Equal(t, auth.PhaseOtpPending, stored.ResetPhase())
	require.NotNil(t, stored.ResetOtp)
	assert.Equal(t, "123456", *stored.ResetOtp)
	assert.Equal(t, f.clock.Now().Add(10*time.Minute), *stored.OtpExpiry)
	assert.Equal(t, sentMail{email: testEmail, otp: "123456"}, f.mailer.last(t))

	// 2. Verify: OTP consumed, session opened
	f.clock.Advance(2 * time.Minute)
	resetToken, err := f.service.VerifyOtp(ctx, testEmail, "123456")
	require.NoError(t, err)
	assert.Equal(t, "session-token-1", resetToken)

	stored = f.repo.snapshot(t, user.ID)
	assert.Equal(t, auth.PhaseSessionActive, stored.ResetPhase())
	assert.Nil(t, stored.ResetOtp)
	assert.Nil(t, stored.OtpExpiry)
	assert.Equal(t, f.clock.Now().Add(10*time.Minute), *stored.ResetSessionExpiry)

	// 3. Confirm: new hash, audit stamp, everything cleared
	f.clock.Advance(time.Minute)
	require.NoError(t, f.service.ConfirmReset(ctx, testEmail, "Brand#New1", resetToken))

	stored = f.repo.snapshot(t, user.ID)
	assert.Equal(t, auth.PhaseNone, stored.ResetPhase())
	assert.Nil(t, stored.ResetSessionToken)
	assert.Nil(t, stored.ResetSessionExpiry)
	require.NotNil(t, stored.PasswordChangedAt)
	assert.Equal(t, f.clock.Now(), *stored.PasswordChangedAt)
	assert.True(t, f.hasher.Compare("Brand#New1", stored.PasswordHash))
	assert.False(t, f.hasher.Compare(testPassword, stored.PasswordHash))

	// 4. Old credentials and old tokens are dead, new ones work
	_, err = f.service.Login(ctx, testEmail, testPassword)
	assert.ErrorIs(t, err, apperr.InvalidCredentials())

	_, err = f.service.Verify(ctx, oldToken)
	assert.ErrorIs(t, err, apperr.TokenStale())

	result, err := f.service.Login(ctx, testEmail, "Brand#New1")
	require.NoError(t, err)
	_, err = f.service.Verify(ctx, result.AccessToken)
	assert.NoError(t, err)
}

/*
TestRequestReset_UnknownEmail reports NOT_FOUND and sends nothing.
*/
func TestRequestReset_UnknownEmail(t *testing.T) {
	f := newFixture(t)

	err := f.service.RequestReset(context.Background(), "ghost@example.com")
	assert.ErrorIs(t, err, apperr.NotFound(""))
	assert.Empty(t, f.mailer.sent)
}

/*
TestRequestReset_NormalizesEmail finds the account regardless of case and padding.
*/
func TestRequestReset_NormalizesEmail(t *testing.T) {
	f := newFixture(t)
	f.seedUser(t, testEmail)

	require.NoError(t, f.service.RequestReset(context.Background(), "  Alice@Example.COM "))
	assert.Equal(t, testEmail, f.mailer.last(t).email)
}

/*
TestRequestReset_RestartsFromAnyPhase replaces the OTP and drops an open session.
*/
func TestRequestReset_RestartsFromAnyPhase(t *testing.T) {
	f := newFixture(t)
	f.secrets.otps = []string{"111111", "222222", "333333"}
	ctx := context.Background()
	user := f.seedUser(t, testEmail)

	require.NoError(t, f.service.RequestReset(ctx, testEmail))
	require.NoError(t, f.service.RequestReset(ctx, testEmail))

	// Only the latest code is live
	_, err := f.service.VerifyOtp(ctx, testEmail, "111111")
	assert.ErrorIs(t, err, apperr.InvalidOtp())

	resetToken, err := f.service.VerifyOtp(ctx, testEmail, "222222")
	require.NoError(t, err)

	// A new request from RESET_SESSION_ACTIVE closes that session
	require.NoError(t, f.service.RequestReset(ctx, testEmail))
	stored := f.repo.snapshot(t, user.ID)
	assert.Equal(t, auth.PhaseOtpPending, stored.ResetPhase())
	assert.Nil(t, stored.ResetSessionToken)

	err = f.service.ConfirmReset(ctx, testEmail, "Brand#New1", resetToken)
	assert.ErrorIs(t, err, apperr.InvalidResetToken())
}

/*
TestRequestReset_MailFailure surfaces the delivery error and keeps the OTP.
*/
func TestRequestReset_MailFailure(t *testing.T) {
	f := newFixture(t)
	f.mailer.err = errors.New("smtp: 421 service not available")
	ctx := context.Background()
	user := f.seedUser(t, testEmail)

	err := f.service.RequestReset(ctx, testEmail)
	assert.ErrorIs(t, err, apperr.DeliveryFailed(nil))
	assert.Equal(t, apperr.CodeDeliveryFailed, apperr.CodeOf(err))

	stored := f.repo.snapshot(t, user.ID)
	assert.Equal(t, auth.PhaseOtpPending, stored.ResetPhase())

	// The persisted code still verifies
	_, err = f.service.VerifyOtp(ctx, testEmail, "123456")
	assert.NoError(t, err)
}

/*
TestVerifyOtp_Failures leaves the row untouched on every rejection.
*/
func TestVerifyOtp_Failures(t *testing.T) {
	tests := []struct {
		name    string
		email   string
		otp     string
		advance time.Duration
		want    error
	}{
		{"unknown_email", "ghost@example.com", "123456", 0, apperr.NotFound("")},
		{"wrong_code", testEmail, "654321", 0, apperr.InvalidOtp()},
		{"empty_code", testEmail, "", 0, apperr.InvalidOtp()},
		{"expired", testEmail, "123456", 10*time.Minute + time.Second, apperr.OtpExpired()},
		{"wrong_and_expired", testEmail, "000000", time.Hour, apperr.InvalidOtp()},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			ctx := context.Background()
			user := f.seedUser(t, testEmail)
			require.NoError(t, f.service.RequestReset(ctx, testEmail))
			before := f.repo.snapshot(t, user.ID)

			f.clock.Advance(tt.advance)
			_, err := f.service.VerifyOtp(ctx, tt.email, tt.otp)
			assert.ErrorIs(t, err, tt.want)

			assert.Equal(t, before, f.repo.snapshot(t, user.ID))
		})
	}
}

/*
TestVerifyOtp_NoPendingCode rejects verification when no code was requested.
*/
func TestVerifyOtp_NoPendingCode(t *testing.T) {
	f := newFixture(t)
	f.seedUser(t, testEmail)

	_, err := f.service.VerifyOtp(context.Background(), testEmail, "123456")
	assert.ErrorIs(t, err, apperr.InvalidOtp())
}

/*
TestVerifyOtp_ExpiryBoundary accepts a code at exactly its expiry instant.
*/
func TestVerifyOtp_ExpiryBoundary(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.seedUser(t, testEmail)
	require.NoError(t, f.service.RequestReset(ctx, testEmail))

	f.clock.Advance(10 * time.Minute)
	_, err := f.service.VerifyOtp(ctx, testEmail, "123456")
	assert.NoError(t, err)
}

/*
TestPasswordReset_UnsetExpiry accepts a stored code and session that carry no expiry.
*/
func TestPasswordReset_UnsetExpiry(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	user := f.seedUser(t, testEmail)

	require.NoError(t, f.repo.UpdateResetFields(ctx, user.ID, auth.ResetState{Otp: pointer.To("654321")}, auth.ResetGuard{}))
	f.clock.Advance(time.Hour)

	_, err := f.service.VerifyOtp(ctx, testEmail, "654321")
	require.NoError(t, err)

	require.NoError(t, f.repo.UpdateResetFields(ctx, user.ID, auth.ResetState{SessionToken: pointer.To("open-session")}, auth.ResetGuard{}))
	f.clock.Advance(time.Hour)

	require.NoError(t, f.service.ConfirmReset(ctx, testEmail, "Brand#New1", "open-session"))
	assert.Equal(t, auth.PhaseNone, f.repo.snapshot(t, user.ID).ResetPhase())
}

/*
TestVerifyOtp_SingleUse rejects a code once it has been exchanged.
*/
func TestVerifyOtp_SingleUse(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.seedUser(t, testEmail)
	require.NoError(t, f.service.RequestReset(ctx, testEmail))

	_, err := f.service.VerifyOtp(ctx, testEmail, "123456")
	require.NoError(t, err)

	_, err = f.service.VerifyOtp(ctx, testEmail, "123456")
	assert.ErrorIs(t, err, apperr.InvalidOtp())
}

/*
TestVerifyOtp_Concurrent lets exactly one of many racing verifications win.
*/
func TestVerifyOtp_Concurrent(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	user := f.seedUser(t, testEmail)
	require.NoError(t, f.service.RequestReset(ctx, testEmail))

	const workers = 16
	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		successes []string
		failures  int
	)

	for range workers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			token, err := f.service.VerifyOtp(ctx, testEmail, "123456")

			mu.Lock()
			defer mu.Unlock()
			if err == nil {
				successes = append(successes, token)
				return
			}
			assert.ErrorIs(t, err, apperr.InvalidOtp())
			failures++
		}()
	}
	wg.Wait()

	require.Len(t, successes, 1)
	assert.Equal(t, workers-1, failures)

	stored := f.repo.snapshot(t, user.ID)
	require.NotNil(t, stored.ResetSessionToken)
	assert.Equal(t, successes[0], *stored.ResetSessionToken)
}

/*
TestConfirmReset_Failures covers token, expiry, and policy rejections.
*/
func TestConfirmReset_Failures(t *testing.T) {
	tests := []struct {
		name     string
		token    string
		password string
		advance  time.Duration
		want     error
	}{
		{"wrong_token", "session-token-999", "Brand#New1", 0, apperr.InvalidResetToken()},
		{"empty_token", "", "Brand#New1", 0, apperr.InvalidResetToken()},
		{"expired", "session-token-1", "Brand#New1", 10*time.Minute + time.Second, apperr.ResetSessionExpired()},
		{"weak_password", "session-token-1", "weak", 0, apperr.ValidationError("")},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			ctx := context.Background()
			user := f.seedUser(t, testEmail)
			require.NoError(t, f.service.RequestReset(ctx, testEmail))
			_, err := f.service.VerifyOtp(ctx, testEmail, "123456")
			require.NoError(t, err)
			before := f.repo.snapshot(t, user.ID)

			f.clock.Advance(tt.advance)
			err = f.service.ConfirmReset(ctx, testEmail, tt.password, tt.token)
			assert.ErrorIs(t, err, tt.want)

			assert.Equal(t, before, f.repo.snapshot(t, user.ID))
		})
	}
}

/*
TestConfirmReset_WithoutSession rejects a token when no session was opened.
*/
func TestConfirmReset_WithoutSession(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.seedUser(t, testEmail)
	require.NoError(t, f.service.RequestReset(ctx, testEmail))

	err := f.service.ConfirmReset(ctx, testEmail, "Brand#New1", "123456")
	assert.ErrorIs(t, err, apperr.InvalidResetToken())
}

/*
TestConfirmReset_SingleUse rejects a reset token after it set a password.
*/
func TestConfirmReset_SingleUse(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.seedUser(t, testEmail)
	require.NoError(t, f.service.RequestReset(ctx, testEmail))
	resetToken, err := f.service.VerifyOtp(ctx, testEmail, "123456")
	require.NoError(t, err)

	require.NoError(t, f.service.ConfirmReset(ctx, testEmail, "Brand#New1", resetToken))
	err = f.service.ConfirmReset(ctx, testEmail, "Other#Pass2", resetToken)
	assert.ErrorIs(t, err, apperr.InvalidResetToken())

	_, err = f.service.Login(ctx, testEmail, "Brand#New1")
	assert.NoError(t, err)
}

/*
TestConfirmReset_Concurrent lets exactly one racing confirmation set the password.
*/
func TestConfirmReset_Concurrent(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	user := f.seedUser(t, testEmail)
	require.NoError(t, f.service.RequestReset(ctx, testEmail))
	resetToken, err := f.service.VerifyOtp(ctx, testEmail, "123456")
	require.NoError(t, err)

	passwords := []string{"First#Pass1", "Second#Pass2", "Third#Pass3", "Fourth#Pass4"}
	results := make([]error, len(passwords))

	var wg sync.WaitGroup
	for i, password := range passwords {
		wg.Add(1)
		go func() {
			defer wg.Done()
			results[i] = f.service.ConfirmReset(ctx, testEmail, password, resetToken)
		}()
	}
	wg.Wait()

	var winner string
	for i, err := range results {
		if err == nil {
			require.Empty(t, winner, "two confirmations succeeded")
			winner = passwords[i]
			continue
		}
		assert.ErrorIs(t, err, apperr.InvalidResetToken())
	}
	require.NotEmpty(t, winner)

	stored := f.repo.snapshot(t, user.ID)
	assert.True(t, f.hasher.Compare(winner, stored.PasswordHash))
}

/*
TestPasswordReset_RateLimited throttles requests and guesses per email via Redis.
*/
func TestPasswordReset_RateLimited(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	limiter := auth.NewResetLimiter(client, 2, 3, 15*time.Minute)
	f := newFixture(t, auth.WithResetLimiter(limiter))
	ctx := context.Background()
	f.seedUser(t, testEmail)

	require.NoError(t, f.service.RequestReset(ctx, testEmail))
	require.NoError(t, f.service.RequestReset(ctx, testEmail))
	err := f.service.RequestReset(ctx, testEmail)
	assert.ErrorIs(t, err, apperr.RateLimited(0))
	assert.Len(t, f.mailer.sent, 2)

	for range 3 {
		_, err = f.service.VerifyOtp(ctx, testEmail, "000000")
		assert.ErrorIs(t, err, apperr.InvalidOtp())
	}
	_, err = f.service.VerifyOtp(ctx, testEmail, "123456")
	assert.ErrorIs(t, err, apperr.RateLimited(0))

	// The window resets
	mr.FastForward(15*time.Minute + time.Second)
	_, err = f.service.VerifyOtp(ctx, testEmail, "123456")
	assert.NoError(t, err)
}
