// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/taibuivan/useraccount/internal/platform/apperr"
	"github.com/taibuivan/useraccount/internal/platform/sec"
	"github.com/taibuivan/useraccount/internal/platform/validate"
	"github.com/taibuivan/useraccount/pkg/email"
)

// # Contracts & Types

// PasswordHasher hashes and checks passwords. See [sec.Hasher].
type PasswordHasher interface {
	Hash(password string) (string, error)
	Compare(password, hash string) bool
}

// TokenProvider signs and checks access tokens. See [sec.TokenService].
type TokenProvider interface {
	// GenerateAccessToken returns a signed token and its expiry.
	GenerateAccessToken(userID int64, role sec.UserRole) (string, time.Time, error)

	// VerifyToken checks signature and expiry only; it does not consult storage.
	VerifyToken(token string) (*sec.AuthClaims, error)
}

// Mailer delivers the reset code out of band.
type Mailer interface {
	SendResetOtp(ctx context.Context, email, otp string) error
}

// ResetLimiter throttles the reset flow per email. See [RedisResetLimiter].
type ResetLimiter interface {
	AllowResetRequest(ctx context.Context, email string) error
	AllowOtpAttempt(ctx context.Context, email string) error
}

// Service implements account identity use cases.
//
// # Review Process
//
// This service is critical for security. Any changes to hashing, login,
// token verification, or the reset flow must be reviewed by the security team.
type Service struct {
	users   UserRepository
	hasher  PasswordHasher
	tokens  TokenProvider
	mailer  Mailer
	secrets sec.SecretGenerator
	limiter ResetLimiter
	now     func() time.Time
	logger  *slog.Logger

	dummyOnce sync.Once
	dummyHash string
}

// Option customises a [Service].
type Option func(*Service)

// WithClock overrides the time source used for expiries and passwordChangedAt.
func WithClock(now func() time.Time) Option {
	return func(service *Service) { service.now = now }
}

// WithSecretGenerator overrides the OTP and session token source.
func WithSecretGenerator(secrets sec.SecretGenerator) Option {
	return func(service *Service) { service.secrets = secrets }
}

// WithResetLimiter enables per-email throttling of the reset flow.
func WithResetLimiter(limiter ResetLimiter) Option {
	return func(service *Service) { service.limiter = limiter }
}

// NewService constructs a new [Service] with necessary dependencies.
func NewService(
	users UserRepository,
	hasher PasswordHasher,
	tokens TokenProvider,
	mailer Mailer,
	logger *slog.Logger,
	opts ...Option,
) *Service {
	service := &Service{
		users:   users,
		hasher:  hasher,
		tokens:  tokens,
		mailer:  mailer,
		secrets: sec.RandomGenerator{},
		limiter: noopLimiter{},
		now:     time.Now,
		logger:  logger,
	}
	for _, opt := range opts {
		opt(service)
	}
	return service
}

// # Registration Flow

// RegisterInput holds the data required to enroll a new account.
type RegisterInput struct {
	Email     string
	Username  string
	Password  string
	FirstName *string
	LastName  *string

	// Role defaults to USER when empty.
	Role sec.UserRole
}

/*
Register validates, hashes, and persists a brand new user account.

Returns:
  - *User: Created entity
  - error: ValidationError, Conflict (if identity exists) or storage errors
*/
func (service *Service) Register(ctx context.Context, input RegisterInput) (*User, error) {
	input.Email = email.Normalize(input.Email)
	input.Username = strings.TrimSpace(input.Username)
	if input.Role == "" {
		input.Role = sec.RoleUser
	}

	if err := validateRegistration(input); err != nil {
		return nil, err
	}

	// Friendly pre-checks; the unique indexes still decide races.
	if err := service.ensureUnique(ctx, input.Email, input.Username); err != nil {
		return nil, err
	}

	hashedPassword, err := service.hasher.Hash(input.Password)
	if err != nil {
		return nil, fmt.Errorf("auth_service_hash_failed: %w", err)
	}

	changedAt := service.now()
	user := &User{
		Email:             input.Email,
		Username:          input.Username,
		FirstName:         input.FirstName,
		LastName:          input.LastName,
		Role:              input.Role,
		PasswordHash:      hashedPassword,
		PasswordChangedAt: &changedAt,
	}

	if err := service.users.Create(ctx, user); err != nil {
		return nil, fmt.Errorf("auth_service_register_failed: %w", err)
	}

	service.logger.InfoContext(ctx, "user_registered",
		slog.Int64("user_id", user.ID),
		slog.String("role", string(user.Role)),
	)

	return user, nil
}

func validateRegistration(input RegisterInput) error {
	validator := &validate.Validator{}
	validator.Required(FieldEmail, input.Email).
		MaxLen(FieldEmail, input.Email, EmailMaxLen).
		Email(FieldEmail, input.Email).
		Required(FieldUsername, input.Username).
		MinLen(FieldUsername, input.Username, UsernameMinLen).
		MaxLen(FieldUsername, input.Username, UsernameMaxLen).
		Username(FieldUsername, input.Username).
		Password(FieldPassword, input.Password).
		Custom(FieldRole, !input.Role.IsValid(), "Must be USER or ADMIN")

	if input.FirstName != nil {
		validator.MaxLen(FieldFirstName, *input.FirstName, NameMaxLen)
	}
	if input.LastName != nil {
		validator.MaxLen(FieldLastName, *input.LastName, NameMaxLen)
	}

	return validator.Err()
}

// ensureUnique returns Conflict when email or username is already taken.
func (service *Service) ensureUnique(ctx context.Context, address, username string) error {
	if _, err := service.users.FindByEmail(ctx, address); err == nil {
		return apperr.Conflict("Email is already registered")
	} else if !errors.Is(err, apperr.NotFound("")) {
		return err
	}

	if _, err := service.users.FindByUsername(ctx, username); err == nil {
		return apperr.Conflict("Username is already taken")
	} else if !errors.Is(err, apperr.NotFound("")) {
		return err
	}

	return nil
}

// Credential is a validated, hashed password ready to be stored.
type Credential struct {
	PasswordHash string
	ChangedAt    time.Time
}

/*
NewCredential checks newPassword against the policy and hashes it.

Nothing is written. Callers that persist the result must also stamp
passwordChangedAt with ChangedAt and clear any pending reset.
*/
func (service *Service) NewCredential(newPassword string) (*Credential, error) {
	validator := &validate.Validator{}
	if err := validator.Password(FieldPassword, newPassword).Err(); err != nil {
		return nil, err
	}

	hashedPassword, err := service.hasher.Hash(newPassword)
	if err != nil {
		return nil, fmt.Errorf("auth_service_hash_failed: %w", err)
	}

	return &Credential{PasswordHash: hashedPassword, ChangedAt: service.now()}, nil
}

/*
ChangePassword replaces an account's password outside the reset flow.

It stamps passwordChangedAt, which invalidates every token issued earlier,
and clears any pending reset.
*/
func (service *Service) ChangePassword(ctx context.Context, userID int64, newPassword string) error {
	credential, err := service.NewCredential(newPassword)
	if err != nil {
		return err
	}

	if err := service.users.UpdateCredential(ctx, userID, credential.PasswordHash, credential.ChangedAt, ResetGuard{}); err != nil {
		return fmt.Errorf("auth_service_change_password_failed: %w", err)
	}

	service.logger.InfoContext(ctx, "user_password_changed", slog.Int64("user_id", userID))
	return nil
}

// # Authentication Flow

// LoginResult is a freshly issued access token plus the public account view.
type LoginResult struct {
	AccessToken string
	ExpiresAt   time.Time
	User        *User
}

/*
Login validates credentials and issues an access token.

Unknown email and wrong password produce the same INVALID_CREDENTIALS error,
and both run one bcrypt comparison.

Returns:
  - *LoginResult: Signed token, expiry, and user
  - error: InvalidCredentials or internal failures
*/
func (service *Service) Login(ctx context.Context, rawEmail, password string) (*LoginResult, error) {
	user, err := service.users.FindByEmail(ctx, email.Normalize(rawEmail))
	if err != nil {
		if errors.Is(err, apperr.NotFound("")) {
			// Burn comparable CPU so response time does not reveal the miss.
			service.hasher.Compare(password, service.placeholderHash())
			return nil, apperr.InvalidCredentials()
		}
		return nil, fmt.Errorf("auth_service_login_lookup_failed: %w", err)
	}

	if !service.hasher.Compare(password, user.PasswordHash) {
		service.logger.WarnContext(ctx, "user_login_failed", slog.Int64("user_id", user.ID))
		return nil, apperr.InvalidCredentials()
	}

	token, expiresAt, err := service.tokens.GenerateAccessToken(user.ID, user.Role)
	if err != nil {
		return nil, fmt.Errorf("auth_service_sign_token_failed: %w", err)
	}

	service.logger.InfoContext(ctx, "user_login_succeeded", slog.Int64("user_id", user.ID))

	return &LoginResult{AccessToken: token, ExpiresAt: expiresAt, User: user}, nil
}

// placeholderHash is a real hash of a throwaway value, computed once.
func (service *Service) placeholderHash() string {
	service.dummyOnce.Do(func() {
		hash, err := service.hasher.Hash("placeholder-password")
		if err != nil {
			service.logger.Error("auth_placeholder_hash_failed", slog.Any("error", err))
			return
		}
		service.dummyHash = hash
	})
	return service.dummyHash
}

/*
Verify checks an access token end to end.

Signature and expiry failures come from the token provider. The account must
still exist, and a token issued before the last password change (compared in
whole seconds) is TOKEN_STALE.

Returns:
  - *sec.AuthClaims: The verified identity
  - error: TokenExpired, InvalidToken, TokenStale, Authentication
*/
func (service *Service) Verify(ctx context.Context, token string) (*sec.AuthClaims, error) {
	claims, err := service.tokens.VerifyToken(token)
	if err != nil {
		return nil, err
	}

	user, err := service.users.FindByID(ctx, claims.UserID)
	if err != nil {
		if errors.Is(err, apperr.NotFound("")) {
			return nil, apperr.InvalidToken()
		}
		return nil, apperr.Authentication(fmt.Errorf("auth_service_verify_lookup_failed: %w", err))
	}

	if user.PasswordChangedAt != nil && claims.IssuedAtTime().Unix() < user.PasswordChangedAt.Unix() {
		return nil, apperr.TokenStale()
	}

	return claims, nil
}

/*
Me returns the account behind a verified identity.
*/
func (service *Service) Me(ctx context.Context, claims *sec.AuthClaims) (*User, error) {
	if claims == nil {
		return nil, apperr.Unauthorized("Authentication required")
	}
	return service.users.FindByID(ctx, claims.UserID)
}
