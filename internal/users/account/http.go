// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package account

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/taibuivan/useraccount/internal/platform/middleware"
	requestutil "github.com/taibuivan/useraccount/internal/platform/request"
	"github.com/taibuivan/useraccount/internal/platform/respond"
	"github.com/taibuivan/useraccount/internal/platform/sec"
	"github.com/taibuivan/useraccount/internal/users/auth"
	"github.com/taibuivan/useraccount/pkg/pagination"
	"github.com/taibuivan/useraccount/pkg/query"
	"github.com/taibuivan/useraccount/pkg/slice"
)

// Handler implements the HTTP layer for account records.
type Handler struct {
	accountService *Service
}

// NewHandler constructs a new account [Handler].
func NewHandler(service *Service) *Handler {
	return &Handler{accountService: service}
}

// Routes returns a [chi.Router] configured with the account endpoints.
//
// # Endpoints
//   - POST   /     : Creates an account with any role (ADMIN).
//   - GET    /     : Lists accounts with search and pagination (authenticated).
//   - GET    /{id} : Returns one account (public).
//   - PATCH  /{id} : Partially updates an account (self or ADMIN).
//   - DELETE /{id} : Soft-deletes an account (ADMIN).
func (handler *Handler) Routes() chi.Router {
	router := chi.NewRouter()

	router.Get("/{id}", handler.getUser)

	router.Group(func(r chi.Router) {
		r.Use(middleware.RequireAuth)
		r.Get("/", handler.listUsers)
		r.Patch("/{id}", handler.updateUser)
	})

	router.Group(func(r chi.Router) {
		r.Use(middleware.RequireRole(sec.RoleAdmin))
		r.Post("/", handler.createUser)
		r.Delete("/{id}", handler.deleteUser)
	})

	return router
}

// # Request Payloads

type createUserRequest struct {
	Email     string       `json:"email"`
	Username  string       `json:"username"`
	Password  string       `json:"password"`
	FirstName *string      `json:"first_name"`
	LastName  *string      `json:"last_name"`
	Role      sec.UserRole `json:"role"`
}

type updateUserRequest struct {
	Email     *string       `json:"email"`
	Username  *string       `json:"username"`
	FirstName *string       `json:"first_name"`
	LastName  *string       `json:"last_name"`
	Role      *sec.UserRole `json:"role"`
	Password  *string       `json:"password"`
}

/*
POST /api/v1/users.

Response:
  - 201: User
  - 400: VALIDATION_ERROR
  - 403: FORBIDDEN
  - 409: CONFLICT
*/
func (handler *Handler) createUser(writer http.ResponseWriter, request *http.Request) {
	var input createUserRequest
	if err := requestutil.DecodeJSON(writer, request, &input); err != nil {
		respond.Error(writer, request, err)
		return
	}

	user, err := handler.accountService.CreateUser(request.Context(), requestutil.Claims(request), auth.RegisterInput{
		Email:     input.Email,
		Username:  input.Username,
		Password:  input.Password,
		FirstName: input.FirstName,
		LastName:  input.LastName,
		Role:      input.Role,
	})
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	respond.Created(writer, user)
}

/*
GET /api/v1/users?page=&limit=&search=&role=.

Response:
  - 200: Paginated list of users
  - 401: UNAUTHORIZED
*/
func (handler *Handler) listUsers(writer http.ResponseWriter, request *http.Request) {
	params := pagination.FromRequest(request)
	values := request.URL.Query()

	roles := slice.Filter(
		slice.Map(query.UpperSlice(values.Get("role")), func(raw string) sec.UserRole { return sec.UserRole(raw) }),
		sec.UserRole.IsValid,
	)

	users, total, err := handler.accountService.ListUsers(request.Context(), ListFilter{
		Search: values.Get("search"),
		Roles:  roles,
		Limit:  params.Limit,
		Offset: params.Offset(),
	})
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	respond.Paginated(writer, users, pagination.NewMeta(params.Page, params.Limit, total))
}

/*
GET /api/v1/users/{id}.

Response:
  - 200: User
  - 400: VALIDATION_ERROR (non-numeric id)
  - 404: NOT_FOUND
*/
func (handler *Handler) getUser(writer http.ResponseWriter, request *http.Request) {
	id, err := requestutil.Int64Param(request, "id")
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	user, err := handler.accountService.GetUser(request.Context(), id)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	respond.OK(writer, user)
}

/*
PATCH /api/v1/users/{id}.

Response:
  - 200: User
  - 400: VALIDATION_ERROR
  - 403: FORBIDDEN
  - 404: NOT_FOUND
  - 409: CONFLICT
*/
func (handler *Handler) updateUser(writer http.ResponseWriter, request *http.Request) {
	id, err := requestutil.Int64Param(request, "id")
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	var input updateUserRequest
	if err := requestutil.DecodeJSON(writer, request, &input); err != nil {
		respond.Error(writer, request, err)
		return
	}

	user, err := handler.accountService.UpdateUser(request.Context(), requestutil.Claims(request), id, UpdateInput(input))
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	respond.OK(writer, user)
}

/*
DELETE /api/v1/users/{id}.

Response:
  - 204: No Content
  - 403: FORBIDDEN
  - 404: NOT_FOUND
*/
func (handler *Handler) deleteUser(writer http.ResponseWriter, request *http.Request) {
	id, err := requestutil.Int64Param(request, "id")
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	if err := handler.accountService.DeleteUser(request.Context(), requestutil.Claims(request), id); err != nil {
		respond.Error(writer, request, err)
		return
	}

	respond.NoContent(writer)
}
