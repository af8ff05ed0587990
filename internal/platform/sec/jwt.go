// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

// Package sec provides cryptographic primitives and token management.
//
// # Architecture
//
// This package isolates security-sensitive code (Hashing, OTP generation, JWT Signing)
// from the domain logic. It acts as an Infrastructure service injected into the
// Application layer via small interfaces declared by the consumer.
package sec

import (
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/taibuivan/useraccount/internal/platform/apperr"
)

// AuthClaims represents the payload embedded inside a JWT Access Token.
//
// The issued-at claim is kept at second resolution so it can be compared
// against the account's password change timestamp.
type AuthClaims struct {
	jwt.RegisteredClaims

	// Custom application claims are abbreviated to keep the JWT payload small.
	UserID int64    `json:"uid"`
	Role   UserRole `json:"rol"`
}

// IssuedAtTime returns the iat claim, or the zero time when absent.
func (c *AuthClaims) IssuedAtTime() time.Time {
	if c.IssuedAt == nil {
		return time.Time{}
	}
	return c.IssuedAt.Time
}

// TokenService handles generation and verification of HS256 access tokens.
type TokenService struct {
	secret []byte
	ttl    time.Duration
	issuer string
	now    func() time.Time
}

// TokenOption customises a [TokenService].
type TokenOption func(*TokenService)

// WithTokenClock overrides the clock used for iat/exp and expiry checks.
func WithTokenClock(now func() time.Time) TokenOption {
	return func(service *TokenService) { service.now = now }
}

// NewTokenService creates a new TokenService.
// An empty secret or non-positive lifetime is a configuration error.
func NewTokenService(secret string, ttl time.Duration, issuer string, opts ...TokenOption) (*TokenService, error) {
	if secret == "" {
		return nil, fmt.Errorf("%w: token signing secret is not set", ErrConfiguration)
	}
	if ttl <= 0 {
		return nil, fmt.Errorf("%w: token lifetime must be positive", ErrConfiguration)
	}

	service := &TokenService{
		secret: []byte(secret),
		ttl:    ttl,
		issuer: issuer,
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(service)
	}
	return service, nil
}

// TTL returns the fixed lifetime of issued tokens.
func (service *TokenService) TTL() time.Duration {
	return service.ttl
}

// GenerateAccessToken signs a token for the user and returns it with its expiry.
func (service *TokenService) GenerateAccessToken(userID int64, role UserRole) (string, time.Time, error) {
	issuedAt := service.now()
	expiresAt := issuedAt.Add(service.ttl)

	claims := AuthClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   strconv.FormatInt(userID, 10),
			Issuer:    service.issuer,
			IssuedAt:  jwt.NewNumericDate(issuedAt),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
		UserID: userID,
		Role:   role,
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signedToken, err := token.SignedString(service.secret)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("sec: failed to sign token: %w", err)
	}

	return signedToken, expiresAt, nil
}

// VerifyToken checks the signature and validity of a JWT string.
//
// Failures are reported as TOKEN_EXPIRED, INVALID_TOKEN, or the catch-all
// AUTHENTICATION_ERROR. It does not consult the user store.
func (service *TokenService) VerifyToken(tokenString string) (*AuthClaims, error) {
	claims := &AuthClaims{}
	token, err := jwt.ParseWithClaims(tokenString, claims,
		func(token *jwt.Token) (interface{}, error) {
			return service.secret, nil
		},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(service.issuer),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(service.now),
	)

	if err != nil {
		switch {
		case errors.Is(err, jwt.ErrTokenExpired):
			return nil, apperr.TokenExpired()
		case errors.Is(err, jwt.ErrTokenMalformed),
			errors.Is(err, jwt.ErrTokenSignatureInvalid),
			errors.Is(err, jwt.ErrTokenUnverifiable),
			errors.Is(err, jwt.ErrTokenInvalidIssuer),
			errors.Is(err, jwt.ErrTokenRequiredClaimMissing),
			errors.Is(err, jwt.ErrTokenNotValidYet):
			return nil, apperr.InvalidToken()
		default:
			return nil, apperr.Authentication(err)
		}
	}

	if !token.Valid || claims.UserID <= 0 || !claims.Role.IsValid() || claims.IssuedAt == nil {
		return nil, apperr.InvalidToken()
	}

	return claims, nil
}
