// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package auth

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"math"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/taibuivan/useraccount/internal/platform/apperr"
	"github.com/taibuivan/useraccount/internal/platform/constants"
	platformredis "github.com/taibuivan/useraccount/internal/platform/redis"
)

// RedisResetLimiter throttles forgot-password requests and OTP guesses per
// email with fixed-window counters in Redis.
//
// A limit of zero or less disables that check.
type RedisResetLimiter struct {
	client       redis.Cmdable
	requestLimit int
	attemptLimit int
	window       time.Duration
}

// NewResetLimiter creates a new Redis-backed [ResetLimiter].
func NewResetLimiter(client redis.Cmdable, requestLimit, attemptLimit int, window time.Duration) *RedisResetLimiter {
	return &RedisResetLimiter{
		client:       client,
		requestLimit: requestLimit,
		attemptLimit: attemptLimit,
		window:       window,
	}
}

/*
AllowResetRequest counts one forgot-password request for email.

Returns:
  - error: apperr.RateLimited once the window's budget is spent, or Redis failures
*/
func (limiter *RedisResetLimiter) AllowResetRequest(ctx context.Context, email string) error {
	return limiter.allow(ctx, constants.RedisPrefixResetRequest, email, limiter.requestLimit)
}

/*
AllowOtpAttempt counts one OTP verification attempt for email.

Returns:
  - error: apperr.RateLimited once the window's budget is spent, or Redis failures
*/
func (limiter *RedisResetLimiter) AllowOtpAttempt(ctx context.Context, email string) error {
	return limiter.allow(ctx, constants.RedisPrefixOtpAttempt, email, limiter.attemptLimit)
}

func (limiter *RedisResetLimiter) allow(ctx context.Context, prefix, email string, limit int) error {
	if limit <= 0 {
		return nil
	}

	count, ttl, err := platformredis.FixedWindow(ctx, limiter.client, limiterKey(prefix, email), limiter.window)
	if err != nil {
		return fmt.Errorf("redis_reset_limiter_failed: %w", err)
	}

	if count > int64(limit) {
		return apperr.RateLimited(int(math.Ceil(ttl.Seconds())))
	}
	return nil
}

// limiterKey hashes the email so addresses are not stored in Redis key names.
func limiterKey(prefix, email string) string {
	sum := sha256.Sum256([]byte(email))
	return prefix + hex.EncodeToString(sum[:])
}

// noopLimiter is used when no limiter is configured.
type noopLimiter struct{}

func (noopLimiter) AllowResetRequest(context.Context, string) error { return nil }
func (noopLimiter) AllowOtpAttempt(context.Context, string) error   { return nil }
