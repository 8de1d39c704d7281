// Package session holds the signed-in console user and the credential lifecycle.
//
// A Store is the single source of truth for "who is the current user". Its
// state is restored from the persistent cache on construction and mutated only
// by Login, GetInfo and Logout/Reset. All methods are safe for concurrent use.
package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/sync/singleflight"

	"github.com/hongminglow/therapy-console/internal/cache"
	"github.com/hongminglow/therapy-console/internal/models"
	"github.com/hongminglow/therapy-console/internal/models/dto"
)

// ErrSessionReset is returned by GetInfo when Logout ran while the fetch was in flight.
var ErrSessionReset = errors.New("session reset during identity fetch")

// AuthAPI is the remote side of authentication.
type AuthAPI interface {
	Login(ctx context.Context, req dto.LoginRequest) (string, error)
	GetUserInfo(ctx context.Context) (models.UserInfo, error)
}

// Store is the process-wide session.
type Store struct {
	auth   AuthAPI
	cache  cache.Cache
	logger *slog.Logger
	now    func() time.Time

	mu            sync.RWMutex
	identity      *models.UserInfo
	userName      string
	roles         []string
	permissions   []string
	authenticated bool
	// generation advances on every reset so stale fetches can be dropped.
	generation uint64

	fetches singleflight.Group
}

// New builds a Store and restores whatever the cache remembers from a previous run.
func New(ctx context.Context, auth AuthAPI, c cache.Cache, logger *slog.Logger) *Store {
	s := &Store{
		auth:   auth,
		cache:  c,
		logger: logger.With("component", "session"),
		now:    time.Now,
	}
	s.restore(ctx)
	return s
}

func (s *Store) restore(ctx context.Context) {
	if _, ok := s.Token(ctx); !ok {
		return
	}
	var loggedIn bool
	if err := s.cache.Get(ctx, cache.KeyIsLoggedIn, &loggedIn); err != nil && !errors.Is(err, cache.ErrMiss) {
		s.logger.Warn("read cached login flag", "error", err)
	}
	var info models.UserInfo
	switch err := s.cache.Get(ctx, cache.KeyUserInfo, &info); {
	case err == nil:
		s.setIdentityLocked(info)
	case !errors.Is(err, cache.ErrMiss):
		s.logger.Warn("read cached identity", "error", err)
	}
	s.authenticated = loggedIn
	s.logger.Debug("session restored", "authenticated", loggedIn, "identity", s.identity != nil)
}

// Login authenticates against the remote API and persists the issued token.
// On failure the collaborator's error is returned and nothing changes.
func (s *Store) Login(ctx context.Context, req dto.LoginRequest) error {
	token, err := s.auth.Login(ctx, req)
	if err != nil {
		return fmt.Errorf("login: %w", err)
	}
	if err := s.cache.Set(ctx, cache.KeyToken, token); err != nil {
		return fmt.Errorf("persist token: %w", err)
	}
	if err := s.cache.Set(ctx, cache.KeyIsLoggedIn, true); err != nil {
		return fmt.Errorf("persist login flag: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.authenticated = true
	// The new token may belong to someone else; identity is fetched again lazily.
	if s.identity != nil && s.identity.User.UserName != req.UserName {
		s.clearIdentityLocked()
	}
	s.logger.Info("logged in", "user", req.UserName)
	return nil
}

// GetInfo fetches the identity behind the current token and caches it.
// Concurrent callers share a single remote call. On failure the state is left untouched.
func (s *Store) GetInfo(ctx context.Context) error {
	s.mu.RLock()
	gen := s.generation
	s.mu.RUnlock()

	v, err, shared := s.fetches.Do(fmt.Sprintf("info-%d", gen), func() (any, error) {
		return s.auth.GetUserInfo(ctx)
	})
	if err != nil {
		return fmt.Errorf("get user info: %w", err)
	}
	info := v.(models.UserInfo)

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.generation != gen {
		return ErrSessionReset
	}
	s.setIdentityLocked(info)
	s.logger.Debug("identity loaded", "user", info.User.UserName, "roles", info.Roles, "shared", shared)

	// Written under the lock so a concurrent Reset cannot be followed by a stale write.
	if err := s.cache.Set(ctx, cache.KeyUserInfo, info); err != nil {
		s.logger.Warn("persist identity", "error", err)
	}
	return nil
}

// Logout clears the session. It never fails; cache errors are only logged.
// Callers wanting to revoke the token server-side call the remote logout endpoint themselves.
func (s *Store) Logout(ctx context.Context) {
	s.Reset(ctx)
	s.logger.Info("logged out")
}

// Reset wipes every in-memory field and the cached token, identity and login flag.
func (s *Store) Reset(ctx context.Context) {
	s.mu.Lock()
	s.clearIdentityLocked()
	s.authenticated = false
	s.generation++
	s.mu.Unlock()

	if err := s.cache.Remove(ctx, cache.KeyToken, cache.KeyUserInfo, cache.KeyIsLoggedIn); err != nil {
		s.logger.Warn("clear cached session", "error", err)
	}
}

// Token returns the cached token. JWTs whose exp claim has passed count as absent.
func (s *Store) Token(ctx context.Context) (string, bool) {
	var token string
	if err := s.cache.Get(ctx, cache.KeyToken, &token); err != nil {
		if !errors.Is(err, cache.ErrMiss) {
			s.logger.Warn("read cached token", "error", err)
		}
		return "", false
	}
	if token == "" {
		return "", false
	}
	if s.expired(token) {
		s.logger.Debug("cached token expired")
		return "", false
	}
	return token, true
}

// expired only inspects tokens that parse as JWTs; opaque tokens never expire client-side.
func (s *Store) expired(token string) bool {
	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, claims); err != nil {
		return false
	}
	exp, err := claims.GetExpirationTime()
	if err != nil || exp == nil {
		return false
	}
	return !s.now().Before(exp.Time)
}

// HasPermission reports whether name is in the permission set.
func (s *Store) HasPermission(name string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return slices.Contains(s.permissions, name)
}

// HasRole reports whether name is in the role set. The super admin role satisfies every query.
func (s *Store) HasRole(name string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if slices.Contains(s.roles, models.SuperAdmin) {
		return true
	}
	return slices.Contains(s.roles, name)
}

func (s *Store) IsAuthenticated() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.authenticated
}

// HasIdentity reports whether the identity has been fetched or restored.
func (s *Store) HasIdentity() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.identity != nil
}

// Identity returns a copy of the current identity.
func (s *Store) Identity() (models.UserInfo, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.identity == nil {
		return models.UserInfo{}, false
	}
	info := *s.identity
	info.Roles = slices.Clone(s.roles)
	info.Permissions = slices.Clone(s.permissions)
	return info, true
}

func (s *Store) UserName() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.userName
}

func (s *Store) Roles() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return slices.Clone(s.roles)
}

func (s *Store) Permissions() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return slices.Clone(s.permissions)
}

func (s *Store) setIdentityLocked(info models.UserInfo) {
	info.Roles = slices.Clone(info.Roles)
	info.Permissions = slices.Clone(info.Permissions)
	s.identity = &info
	s.userName = info.User.DisplayName()
	s.roles = info.Roles
	s.permissions = info.Permissions
}

func (s *Store) clearIdentityLocked() {
	s.identity = nil
	s.userName = ""
	s.roles = nil
	s.permissions = nil
}
