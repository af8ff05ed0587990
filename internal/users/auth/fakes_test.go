// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package auth_test

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/taibuivan/useraccount/internal/platform/apperr"
	"github.com/taibuivan/useraccount/internal/platform/sec"
	"github.com/taibuivan/useraccount/internal/users/auth"
)

// # Fake Repository

// memoryRepository mirrors the guarded UPDATE semantics of the Postgres store.
type memoryRepository struct {
	mu     sync.Mutex
	users  map[int64]*auth.User
	nextID int64
}

func newMemoryRepository() *memoryRepository {
	return &memoryRepository{users: make(map[int64]*auth.User), nextID: 1}
}

func cloneUser(u *auth.User) *auth.User {
	c := *u
	c.ResetOtp = clonePtr(u.ResetOtp)
	c.OtpExpiry = clonePtr(u.OtpExpiry)
	c.ResetSessionToken = clonePtr(u.ResetSessionToken)
	c.ResetSessionExpiry = clonePtr(u.ResetSessionExpiry)
	c.PasswordChangedAt = clonePtr(u.PasswordChangedAt)
	c.DeletedAt = clonePtr(u.DeletedAt)
	return &c
}

func clonePtr[T any](p *T) *T {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}

func (r *memoryRepository) find(match func(*auth.User) bool) (*auth.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, u := range r.users {
		if u.DeletedAt == nil && match(u) {
			return cloneUser(u), nil
		}
	}
	return nil, apperr.NotFound("User")
}

func (r *memoryRepository) FindByID(_ context.Context, id int64) (*auth.User, error) {
	return r.find(func(u *auth.User) bool { return u.ID == id })
}

func (r *memoryRepository) FindByEmail(_ context.Context, email string) (*auth.User, error) {
	return r.find(func(u *auth.User) bool { return u.Email == email })
}

func (r *memoryRepository) FindByUsername(_ context.Context, username string) (*auth.User, error) {
	return r.find(func(u *auth.User) bool { return u.Username == username })
}

func (r *memoryRepository) Create(_ context.Context, user *auth.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, u := range r.users {
		if u.Email == user.Email || u.Username == user.Username {
			return apperr.Conflict("User already exists")
		}
	}
	user.ID = r.nextID
	r.nextID++
	user.CreatedAt = time.Now()
	user.UpdatedAt = user.CreatedAt
	r.users[user.ID] = cloneUser(user)
	return nil
}

// matchGuard must be called with mu held.
func (r *memoryRepository) matchGuard(id int64, guard auth.ResetGuard) (*auth.User, error) {
	u, ok := r.users[id]
	if !ok || u.DeletedAt != nil ||
		(guard.Otp != "" && (u.ResetOtp == nil || *u.ResetOtp != guard.Otp)) ||
		(guard.SessionToken != "" && (u.ResetSessionToken == nil || *u.ResetSessionToken != guard.SessionToken)) {
		if guard == (auth.ResetGuard{}) {
			return nil, apperr.NotFound("User")
		}
		return nil, auth.ErrResetStateChanged
	}
	return u, nil
}

func (r *memoryRepository) UpdateResetFields(_ context.Context, id int64, state auth.ResetState, guard auth.ResetGuard) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, err := r.matchGuard(id, guard)
	if err != nil {
		return err
	}
	u.ResetOtp = clonePtr(state.Otp)
	u.OtpExpiry = clonePtr(state.OtpExpiry)
	u.ResetSessionToken = clonePtr(state.SessionToken)
	u.ResetSessionExpiry = clonePtr(state.SessionExpiry)
	return nil
}

func (r *memoryRepository) UpdateCredential(_ context.Context, id int64, hash string, changedAt time.Time, guard auth.ResetGuard) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, err := r.matchGuard(id, guard)
	if err != nil {
		return err
	}
	u.PasswordHash = hash
	u.PasswordChangedAt = &changedAt
	u.ResetOtp, u.OtpExpiry, u.ResetSessionToken, u.ResetSessionExpiry = nil, nil, nil, nil
	return nil
}

// snapshot returns a copy of the stored row, deleted or not.
func (r *memoryRepository) snapshot(t *testing.T, id int64) *auth.User {
	t.Helper()
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.users[id]
	require.True(t, ok, "user %d not stored", id)
	return cloneUser(u)
}

func (r *memoryRepository) softDelete(id int64, at time.Time) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.users[id].DeletedAt = &at
}

// # Fake Collaborators

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

// fixedSecrets hands out OTPs from a list (repeating the last) and numbered session tokens.
type fixedSecrets struct {
	mu       sync.Mutex
	otps     []string
	sessions int
}

func (g *fixedSecrets) GenerateOtp() (string, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if len(g.otps) == 0 {
		return "123456", nil
	}
	otp := g.otps[0]
	if len(g.otps) > 1 {
		g.otps = g.otps[1:]
	}
	return otp, nil
}

func (g *fixedSecrets) GenerateSessionToken() (string, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.sessions++
	return fmt.Sprintf("session-token-%d", g.sessions), nil
}

type sentMail struct {
	email string
	otp   string
}

type recordingMailer struct {
	mu   sync.Mutex
	sent []sentMail
	err  error
}

func (m *recordingMailer) SendResetOtp(_ context.Context, email, otp string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sent = append(m.sent, sentMail{email: email, otp: otp})
	return m.err
}

func (m *recordingMailer) last(t *testing.T) sentMail {
	t.Helper()
	m.mu.Lock()
	defer m.mu.Unlock()
	require.NotEmpty(t, m.sent, "no mail sent")
	return m.sent[len(m.sent)-1]
}

// # Fixture

type fixture struct {
	repo    *memoryRepository
	clock   *fakeClock
	secrets *fixedSecrets
	mailer  *recordingMailer
	hasher  *sec.Hasher
	tokens  *sec.TokenService
	service *auth.Service
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newFixture(t *testing.T, opts ...auth.Option) *fixture {
	t.Helper()

	f := &fixture{
		repo:    newMemoryRepository(),
		clock:   newFakeClock(),
		secrets: &fixedSecrets{},
		mailer:  &recordingMailer{},
	}

	var err error
	f.hasher, err = sec.NewHasher("test-pepper", bcrypt.MinCost)
	require.NoError(t, err)
	f.tokens, err = sec.NewTokenService("test-secret", 15*time.Minute, "useraccount", sec.WithTokenClock(f.clock.Now))
	require.NoError(t, err)

	opts = append([]auth.Option{
		auth.WithClock(f.clock.Now),
		auth.WithSecretGenerator(f.secrets),
	}, opts...)

	f.service = auth.NewService(f.repo, f.hasher, f.tokens, f.mailer, discardLogger(), opts...)
	return f
}

const (
	testEmail    = "alice@example.com"
	testPassword = "Initial#Pass1"
)

// seedUser stores an account with testPassword directly, bypassing Register.
func (f *fixture) seedUser(t *testing.T, email string) *auth.User {
	t.Helper()
	hash, err := f.hasher.Hash(testPassword)
	require.NoError(t, err)

	user := &auth.User{
		Email:        email,
		Username:     "user" + fmt.Sprint(f.repo.nextID),
		Role:         sec.RoleUser,
		PasswordHash: hash,
	}
	require.NoError(t, f.repo.Create(context.Background(), user))
	return user
}
