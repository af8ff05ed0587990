// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package auth

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/taibuivan/useraccount/internal/platform/constants"
	"github.com/taibuivan/useraccount/internal/platform/middleware"
	requestutil "github.com/taibuivan/useraccount/internal/platform/request"
	"github.com/taibuivan/useraccount/internal/platform/respond"
	"github.com/taibuivan/useraccount/internal/platform/validate"
)

// # Definitions & Constructors

// Handler implements authentication-related HTTP endpoints.
//
// # Scope
//
// Registration, login, the current identity, and the three password reset
// steps. Account CRUD lives in the account package.
type Handler struct {
	authService *Service
}

// NewHandler constructs a new [Handler] with its service dependency.
func NewHandler(service *Service) *Handler {
	return &Handler{authService: service}
}

// Routes returns a [chi.Router] configured with authentication-specific routes.
//
// # Endpoints
//   - POST /register        : Creates a USER account.
//   - POST /login           : Authenticates and returns a JWT.
//   - POST /forgot-password : Mails a reset code.
//   - POST /verify-otp      : Exchanges the code for a reset token.
//   - POST /reset-password  : Sets a new password with the reset token.
//   - GET  /me              : Returns the authenticated account.
func (handler *Handler) Routes() chi.Router {
	router := chi.NewRouter()

	// Public endpoints
	router.Post("/register", handler.register)
	router.Post("/login", handler.login)
	router.Post("/forgot-password", handler.forgotPassword)
	router.Post("/verify-otp", handler.verifyOtp)
	router.Post("/reset-password", handler.resetPassword)

	// Protected endpoints
	router.Group(func(r chi.Router) {
		r.Use(middleware.RequireAuth)
		r.Get("/me", handler.me)
	})

	return router
}

// # Request Payloads

type registerRequest struct {
	Email     string  `json:"email"`
	Username  string  `json:"username"`
	Password  string  `json:"password"`
	FirstName *string `json:"first_name"`
	LastName  *string `json:"last_name"`
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type forgotPasswordRequest struct {
	Email string `json:"email"`
}

type verifyOtpRequest struct {
	Email string `json:"email"`
	Otp   string `json:"otp"`
}

type resetPasswordRequest struct {
	Email       string `json:"email"`
	NewPassword string `json:"new_password"`
	ResetToken  string `json:"reset_token"`
}

/*
Register handles public self-registration.

POST /api/v1/auth/register

Response:
  - 201: User: Created user profile
  - 400: VALIDATION_ERROR
  - 409: CONFLICT: Username or Email already exists
*/
func (handler *Handler) register(writer http.ResponseWriter, request *http.Request) {
	var input registerRequest
	if err := requestutil.DecodeJSON(writer, request, &input); err != nil {
		respond.Error(writer, request, err)
		return
	}

	// Self-registration never grants ADMIN.
	user, err := handler.authService.Register(request.Context(), RegisterInput{
		Email:     input.Email,
		Username:  input.Username,
		Password:  input.Password,
		FirstName: input.FirstName,
		LastName:  input.LastName,
	})
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	respond.Created(writer, user)
}

/*
Login authenticates a user and issues an access token.

POST /api/v1/auth/login

Response:
  - 200: access_token, token_type, expires_in, expires_at, user
  - 401: INVALID_CREDENTIALS
*/
func (handler *Handler) login(writer http.ResponseWriter, request *http.Request) {
	var input loginRequest
	if err := requestutil.DecodeJSON(writer, request, &input); err != nil {
		respond.Error(writer, request, err)
		return
	}

	validator := &validate.Validator{}
	validator.Required(FieldEmail, input.Email).
		Required(FieldPassword, input.Password)
	if err := validator.Err(); err != nil {
		respond.Error(writer, request, err)
		return
	}

	result, err := handler.authService.Login(request.Context(), input.Email, input.Password)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	respond.OK(writer, map[string]any{
		"access_token": result.AccessToken,
		"token_type":   TokenType,
		"expires_in":   int(result.ExpiresAt.Sub(handler.authService.now()).Seconds()),
		"expires_at":   result.ExpiresAt,
		"user":         result.User,
	})
}

/*
Me returns the account behind the bearer token.

GET /api/v1/auth/me
*/
func (handler *Handler) me(writer http.ResponseWriter, request *http.Request) {
	user, err := handler.authService.Me(request.Context(), requestutil.Claims(request))
	if err != nil {
		respond.Error(writer, request, err)
		return
	}
	respond.OK(writer, user)
}

/*
ForgotPassword starts the reset flow by mailing a one-time code.

POST /api/v1/auth/forgot-password

Response:
  - 200: message
  - 404: NOT_FOUND: No account with this email
  - 429: RATE_LIMITED
  - 502: MAIL_DELIVERY_FAILED
*/
func (handler *Handler) forgotPassword(writer http.ResponseWriter, request *http.Request) {
	var input forgotPasswordRequest
	if err := requestutil.DecodeJSON(writer, request, &input); err != nil {
		respond.Error(writer, request, err)
		return
	}

	validator := &validate.Validator{}
	if err := validator.Required(FieldEmail, input.Email).Email(FieldEmail, input.Email).Err(); err != nil {
		respond.Error(writer, request, err)
		return
	}

	if err := handler.authService.RequestReset(request.Context(), input.Email); err != nil {
		respond.Error(writer, request, err)
		return
	}

	respond.OK(writer, map[string]string{
		constants.FieldMessage: "OTP sent to your email",
	})
}

/*
VerifyOtp exchanges the mailed code for a reset token.

POST /api/v1/auth/verify-otp

Response:
  - 200: reset_token
  - 400: INVALID_OTP or OTP_EXPIRED
  - 404: NOT_FOUND
*/
func (handler *Handler) verifyOtp(writer http.ResponseWriter, request *http.Request) {
	var input verifyOtpRequest
	if err := requestutil.DecodeJSON(writer, request, &input); err != nil {
		respond.Error(writer, request, err)
		return
	}

	validator := &validate.Validator{}
	validator.Required(FieldEmail, input.Email).
		Required(FieldOtp, input.Otp).
		Custom(FieldOtp, len(input.Otp) != OtpLength, "Must be a 6 digit code")
	if err := validator.Err(); err != nil {
		respond.Error(writer, request, err)
		return
	}

	resetToken, err := handler.authService.VerifyOtp(request.Context(), input.Email, input.Otp)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	respond.OK(writer, map[string]string{
		FieldResetToken: resetToken,
	})
}

/*
ResetPassword completes the flow with the reset token and a new password.

POST /api/v1/auth/reset-password

Response:
  - 200: message
  - 400: VALIDATION_ERROR, INVALID_RESET_TOKEN or RESET_SESSION_EXPIRED
  - 404: NOT_FOUND
*/
func (handler *Handler) resetPassword(writer http.ResponseWriter, request *http.Request) {
	var input resetPasswordRequest
	if err := requestutil.DecodeJSON(writer, request, &input); err != nil {
		respond.Error(writer, request, err)
		return
	}

	validator := &validate.Validator{}
	validator.Required(FieldEmail, input.Email).
		Required(FieldResetToken, input.ResetToken)
	if err := validator.Err(); err != nil {
		respond.Error(writer, request, err)
		return
	}

	if err := handler.authService.ConfirmReset(request.Context(), input.Email, input.NewPassword, input.ResetToken); err != nil {
		respond.Error(writer, request, err)
		return
	}

	respond.OK(writer, map[string]string{
		constants.FieldMessage: "Password has been reset successfully",
	})
}
