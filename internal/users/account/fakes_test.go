// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package account_test

import (
	"context"
	"io"
	"log/slog"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/taibuivan/useraccount/internal/platform/apperr"
	"github.com/taibuivan/useraccount/internal/platform/sec"
	"github.com/taibuivan/useraccount/internal/users/account"
	"github.com/taibuivan/useraccount/internal/users/auth"
)

// # Fake Repository

type fakeAccounts struct {
	mu    sync.Mutex
	users map[int64]*auth.User
}

func newFakeAccounts(users ...*auth.User) *fakeAccounts {
	repo := &fakeAccounts{users: map[int64]*auth.User{}}
	for _, u := range users {
		repo.users[u.ID] = u
	}
	return repo
}

func (r *fakeAccounts) FindByID(_ context.Context, id int64) (*auth.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	user, ok := r.users[id]
	if !ok || user.IsDeleted() {
		return nil, apperr.NotFound("User")
	}
	copied := *user
	return &copied, nil
}

func (r *fakeAccounts) List(_ context.Context, filter account.ListFilter) ([]*auth.User, int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	search := strings.ToLower(filter.Search)
	var matched []*auth.User
	for _, u := range r.users {
		if u.IsDeleted() {
			continue
		}
		if search != "" && !strings.Contains(strings.ToLower(u.Email+" "+u.Username), search) {
			continue
		}
		if len(filter.Roles) > 0 && !hasRole(filter.Roles, u.Role) {
			continue
		}
		copied := *u
		matched = append(matched, &copied)
	}
	sort.Slice(matched, func(i, j int) bool { return matched[i].ID < matched[j].ID })

	total := len(matched)
	start := min(filter.Offset, total)
	end := min(start+filter.Limit, total)
	return matched[start:end], total, nil
}

func hasRole(roles []sec.UserRole, role sec.UserRole) bool {
	for _, r := range roles {
		if r == role {
			return true
		}
	}
	return false
}

func (r *fakeAccounts) UpdateProfile(_ context.Context, id int64, changes account.ProfileChanges) (*auth.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	user, ok := r.users[id]
	if !ok || user.IsDeleted() {
		return nil, apperr.NotFound("User")
	}

	if changes.Email != nil {
		for otherID, other := range r.users {
			if otherID != id && other.Email == *changes.Email {
				return nil, apperr.Conflict("User with this email already exists")
			}
		}
		user.Email = *changes.Email
	}
	if changes.Username != nil {
		user.Username = *changes.Username
	}
	if changes.FirstName != nil {
		user.FirstName = changes.FirstName
	}
	if changes.LastName != nil {
		user.LastName = changes.LastName
	}
	if changes.Role != nil {
		user.Role = *changes.Role
	}
	if changes.Credential != nil {
		changedAt := changes.Credential.ChangedAt
		user.PasswordHash = changes.Credential.PasswordHash
		user.PasswordChangedAt = &changedAt
		user.ResetOtp, user.OtpExpiry = nil, nil
		user.ResetSessionToken, user.ResetSessionExpiry = nil, nil
	}

	copied := *user
	return &copied, nil
}

func (r *fakeAccounts) SoftDelete(_ context.Context, id int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	user, ok := r.users[id]
	if !ok || user.IsDeleted() {
		return apperr.NotFound("User")
	}
	now := time.Now()
	user.DeletedAt = &now
	return nil
}

// # Fake Credential Manager

type fakeCredentials struct {
	repo       *fakeAccounts
	nextID     int64
	registered []auth.RegisterInput
	hashed     []string
	hashErr    error
}

func newFakeCredentials(repo *fakeAccounts) *fakeCredentials {
	return &fakeCredentials{repo: repo, nextID: 100}
}

func (c *fakeCredentials) Register(_ context.Context, input auth.RegisterInput) (*auth.User, error) {
	if input.Role == "" {
		input.Role = sec.RoleUser
	}
	c.registered = append(c.registered, input)

	c.nextID++
	user := &auth.User{ID: c.nextID, Email: input.Email, Username: input.Username, Role: input.Role}

	c.repo.mu.Lock()
	c.repo.users[user.ID] = user
	c.repo.mu.Unlock()

	copied := *user
	return &copied, nil
}

func (c *fakeCredentials) NewCredential(newPassword string) (*auth.Credential, error) {
	if c.hashErr != nil {
		return nil, c.hashErr
	}
	c.hashed = append(c.hashed, newPassword)
	return &auth.Credential{PasswordHash: "hashed:" + newPassword, ChangedAt: time.Unix(1_700_000_000, 0)}, nil
}

// # Fixtures

const (
	adminID int64 = 1
	aliceID int64 = 2
	bobID   int64 = 3
)

func seedUsers() []*auth.User {
	return []*auth.User{
		{ID: adminID, Email: "root@example.com", Username: "root", Role: sec.RoleAdmin},
		{ID: aliceID, Email: "alice@example.com", Username: "alice", Role: sec.RoleUser},
		{ID: bobID, Email: "bob@example.com", Username: "bob", Role: sec.RoleUser},
	}
}

func claimsFor(id int64, role sec.UserRole) *sec.AuthClaims {
	return &sec.AuthClaims{UserID: id, Role: role}
}

type fixture struct {
	repo        *fakeAccounts
	credentials *fakeCredentials
	service     *account.Service
}

func newFixture() *fixture {
	repo := newFakeAccounts(seedUsers()...)
	credentials := newFakeCredentials(repo)
	return &fixture{
		repo:        repo,
		credentials: credentials,
		service:     account.NewService(repo, credentials, slog.New(slog.NewTextHandler(io.Discard, nil))),
	}
}
