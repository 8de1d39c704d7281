package session

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hongminglow/therapy-console/internal/cache"
	"github.com/hongminglow/therapy-console/internal/logging"
	"github.com/hongminglow/therapy-console/internal/models"
	"github.com/hongminglow/therapy-console/internal/models/dto"
)

type fakeAuth struct {
	token    string
	loginErr error
	info     models.UserInfo
	infoErr  error
	// gate, when set, blocks GetUserInfo until closed.
	gate      chan struct{}
	infoCalls atomic.Int32
}

func (f *fakeAuth) Login(_ context.Context, _ dto.LoginRequest) (string, error) {
	if f.loginErr != nil {
		return "", f.loginErr
	}
	return f.token, nil
}

func (f *fakeAuth) GetUserInfo(ctx context.Context) (models.UserInfo, error) {
	f.infoCalls.Add(1)
	if f.gate != nil {
		select {
		case <-f.gate:
		case <-ctx.Done():
			return models.UserInfo{}, ctx.Err()
		}
	}
	return f.info, f.infoErr
}

func viewerInfo() models.UserInfo {
	return models.UserInfo{
		User:        models.User{ID: 1, UserName: "A"},
		Roles:       []string{"viewer"},
		Permissions: []string{"device:list", "report:view"},
	}
}

func newStore(t *testing.T, auth AuthAPI, c cache.Cache) *Store {
	t.Helper()
	return New(context.Background(), auth, c, logging.Discard())
}

func TestLoginPersistsToken(t *testing.T) {
	ctx := context.Background()
	c := cache.NewMemory()
	s := newStore(t, &fakeAuth{token: "tok-1"}, c)

	require.False(t, s.IsAuthenticated())
	require.NoError(t, s.Login(ctx, dto.LoginRequest{UserName: "A", Password: "pw"}))

	assert.True(t, s.IsAuthenticated())
	token, ok := s.Token(ctx)
	require.True(t, ok)
	assert.Equal(t, "tok-1", token)

	var loggedIn bool
	require.NoError(t, c.Get(ctx, cache.KeyIsLoggedIn, &loggedIn))
	assert.True(t, loggedIn)
	assert.False(t, s.HasIdentity(), "login does not fetch identity")
}

func TestLoginFailureLeavesStateUntouched(t *testing.T) {
	ctx := context.Background()
	rejected := errors.New("invalid credentials")
	s := newStore(t, &fakeAuth{loginErr: rejected}, cache.NewMemory())

	err := s.Login(ctx, dto.LoginRequest{UserName: "A", Password: "bad"})
	assert.ErrorIs(t, err, rejected)
	assert.False(t, s.IsAuthenticated())
	_, ok := s.Token(ctx)
	assert.False(t, ok)
}

func TestGetInfoPopulatesIdentity(t *testing.T) {
	ctx := context.Background()
	c := cache.NewMemory()
	s := newStore(t, &fakeAuth{token: "tok", info: viewerInfo()}, c)
	require.NoError(t, s.Login(ctx, dto.LoginRequest{UserName: "A"}))

	require.NoError(t, s.GetInfo(ctx))

	assert.True(t, s.HasIdentity())
	assert.Equal(t, "A", s.UserName())
	assert.True(t, s.HasRole("viewer"))
	assert.False(t, s.HasRole("doctor"))
	assert.True(t, s.HasPermission("device:list"))
	assert.False(t, s.HasPermission("device:delete"))

	var cached models.UserInfo
	require.NoError(t, c.Get(ctx, cache.KeyUserInfo, &cached))
	assert.Equal(t, "A", cached.User.UserName)
	assert.Equal(t, []string{"viewer"}, cached.Roles)
}

func TestGetInfoFailureDoesNotModifyState(t *testing.T) {
	ctx := context.Background()
	boom := errors.New("network down")
	auth := &fakeAuth{token: "tok", info: viewerInfo()}
	s := newStore(t, auth, cache.NewMemory())
	require.NoError(t, s.GetInfo(ctx))

	auth.infoErr = boom
	auth.info = models.UserInfo{User: models.User{UserName: "B"}, Roles: []string{"doctor"}}
	err := s.GetInfo(ctx)

	assert.ErrorIs(t, err, boom)
	assert.Equal(t, "A", s.UserName())
	assert.True(t, s.HasRole("viewer"))
	assert.False(t, s.HasRole("doctor"))
}

func TestGetInfoWithoutTokenStaysUnauthenticated(t *testing.T) {
	ctx := context.Background()
	c := cache.NewMemory()
	s := newStore(t, &fakeAuth{info: viewerInfo()}, c)

	require.NoError(t, s.GetInfo(ctx))

	assert.True(t, s.HasIdentity())
	assert.False(t, s.IsAuthenticated())
	_, ok := s.Token(ctx)
	assert.False(t, ok)
	var loggedIn bool
	assert.ErrorIs(t, c.Get(ctx, cache.KeyIsLoggedIn, &loggedIn), cache.ErrMiss)
}

func TestDisplayNameFallback(t *testing.T) {
	s := newStore(t, &fakeAuth{info: models.UserInfo{Roles: []string{"viewer"}}}, cache.NewMemory())
	require.NoError(t, s.GetInfo(context.Background()))
	assert.Equal(t, models.DefaultDisplayName, s.UserName())
}

func TestSuperAdminSatisfiesEveryRole(t *testing.T) {
	s := newStore(t, &fakeAuth{info: models.UserInfo{Roles: []string{models.SuperAdmin}}}, cache.NewMemory())
	require.NoError(t, s.GetInfo(context.Background()))

	for _, role := range []string{"admin", "viewer", "doctor", "", "no-such-role"} {
		assert.True(t, s.HasRole(role), "HasRole(%q)", role)
	}
	assert.False(t, s.HasPermission("anything"), "the override is for roles only")
}

func TestLogoutClearsEverything(t *testing.T) {
	ctx := context.Background()
	c := cache.NewMemory()
	s := newStore(t, &fakeAuth{token: "tok", info: viewerInfo()}, c)
	require.NoError(t, s.Login(ctx, dto.LoginRequest{UserName: "A"}))
	require.NoError(t, s.GetInfo(ctx))

	s.Logout(ctx)

	assert.False(t, s.IsAuthenticated())
	assert.False(t, s.HasIdentity())
	assert.Empty(t, s.UserName())
	assert.Empty(t, s.Roles())
	for _, p := range []string{"device:list", "report:view", ""} {
		assert.False(t, s.HasPermission(p))
	}
	for _, key := range []string{cache.KeyToken, cache.KeyUserInfo, cache.KeyIsLoggedIn} {
		var v any
		assert.ErrorIs(t, c.Get(ctx, key, &v), cache.ErrMiss, key)
	}
}

func TestRestoreFromCache(t *testing.T) {
	ctx := context.Background()
	c := cache.NewMemory()
	first := newStore(t, &fakeAuth{token: "tok", info: viewerInfo()}, c)
	require.NoError(t, first.Login(ctx, dto.LoginRequest{UserName: "A"}))
	require.NoError(t, first.GetInfo(ctx))

	second := newStore(t, &fakeAuth{}, c)

	assert.True(t, second.IsAuthenticated())
	assert.True(t, second.HasIdentity())
	assert.True(t, second.HasRole("viewer"))
	assert.Equal(t, "A", second.UserName())
}

func TestRestoreIgnoresIdentityWithoutToken(t *testing.T) {
	ctx := context.Background()
	c := cache.NewMemory()
	require.NoError(t, c.Set(ctx, cache.KeyUserInfo, viewerInfo()))
	require.NoError(t, c.Set(ctx, cache.KeyIsLoggedIn, true))

	s := newStore(t, &fakeAuth{}, c)

	assert.False(t, s.IsAuthenticated())
	assert.False(t, s.HasIdentity())
}

func TestExpiredJWTCountsAsAbsent(t *testing.T) {
	ctx := context.Background()
	c := cache.NewMemory()
	s := newStore(t, &fakeAuth{}, c)

	expired := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{"exp": time.Now().Add(-time.Minute).Unix()})
	signed, err := expired.SignedString([]byte("k"))
	require.NoError(t, err)
	require.NoError(t, c.Set(ctx, cache.KeyToken, signed))
	_, ok := s.Token(ctx)
	assert.False(t, ok)

	fresh := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{"exp": time.Now().Add(time.Hour).Unix()})
	signed, err = fresh.SignedString([]byte("k"))
	require.NoError(t, err)
	require.NoError(t, c.Set(ctx, cache.KeyToken, signed))
	_, ok = s.Token(ctx)
	assert.True(t, ok)

	require.NoError(t, c.Set(ctx, cache.KeyToken, "opaque-token"))
	tok, ok := s.Token(ctx)
	assert.True(t, ok)
	assert.Equal(t, "opaque-token", tok)
}

func TestConcurrentGetInfoSharesOneCall(t *testing.T) {
	auth := &fakeAuth{info: viewerInfo(), gate: make(chan struct{})}
	s := newStore(t, auth, cache.NewMemory())

	var wg sync.WaitGroup
	errs := make(chan error, 5)
	for range 5 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			errs <- s.GetInfo(context.Background())
		}()
	}
	require.Eventually(t, func() bool { return auth.infoCalls.Load() == 1 }, time.Second, 5*time.Millisecond)
	// Give the remaining callers time to join the in-flight call.
	time.Sleep(20 * time.Millisecond)
	close(auth.gate)
	wg.Wait()
	close(errs)

	for err := range errs {
		assert.NoError(t, err)
	}
	assert.EqualValues(t, 1, auth.infoCalls.Load())
	assert.True(t, s.HasRole("viewer"))
}

func TestLogoutDuringFetchDropsResult(t *testing.T) {
	ctx := context.Background()
	auth := &fakeAuth{token: "tok", info: viewerInfo(), gate: make(chan struct{})}
	s := newStore(t, auth, cache.NewMemory())
	require.NoError(t, s.Login(ctx, dto.LoginRequest{UserName: "A"}))

	done := make(chan error, 1)
	go func() { done <- s.GetInfo(ctx) }()
	require.Eventually(t, func() bool { return auth.infoCalls.Load() == 1 }, time.Second, 5*time.Millisecond)

	s.Logout(ctx)
	close(auth.gate)

	assert.ErrorIs(t, <-done, ErrSessionReset)
	assert.False(t, s.HasIdentity())
	assert.False(t, s.IsAuthenticated())
}

func TestLoginAsAnotherUserDropsIdentity(t *testing.T) {
	ctx := context.Background()
	s := newStore(t, &fakeAuth{token: "tok", info: viewerInfo()}, cache.NewMemory())
	require.NoError(t, s.Login(ctx, dto.LoginRequest{UserName: "A"}))
	require.NoError(t, s.GetInfo(ctx))

	require.NoError(t, s.Login(ctx, dto.LoginRequest{UserName: "A"}))
	assert.True(t, s.HasIdentity())

	require.NoError(t, s.Login(ctx, dto.LoginRequest{UserName: "B"}))
	assert.False(t, s.HasIdentity())
}

// gatedCache blocks the identity write until release is closed.
type gatedCache struct {
	cache.Cache
	entered chan struct{}
	release chan struct{}
	once    sync.Once
}

func (g *gatedCache) Set(ctx context.Context, key string, v any) error {
	if key == cache.KeyUserInfo {
		g.once.Do(func() { close(g.entered) })
		<-g.release
	}
	return g.Cache.Set(ctx, key, v)
}

func TestLogoutDuringIdentityWriteLeavesCacheClean(t *testing.T) {
	ctx := context.Background()
	c := &gatedCache{Cache: cache.NewMemory(), entered: make(chan struct{}), release: make(chan struct{})}
	s := newStore(t, &fakeAuth{token: "tok", info: viewerInfo()}, c)
	require.NoError(t, s.Login(ctx, dto.LoginRequest{UserName: "A"}))

	fetched := make(chan error, 1)
	go func() { fetched <- s.GetInfo(ctx) }()
	<-c.entered

	loggedOut := make(chan struct{})
	go func() {
		s.Logout(ctx)
		close(loggedOut)
	}()
	close(c.release)

	require.NoError(t, <-fetched)
	<-loggedOut

	assert.False(t, s.HasIdentity())
	for _, key := range []string{cache.KeyToken, cache.KeyUserInfo, cache.KeyIsLoggedIn} {
		var v any
		assert.ErrorIs(t, c.Get(ctx, key, &v), cache.ErrMiss, key)
	}
}
