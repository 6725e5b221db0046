package store

import (
	"context"
	"testing"
	"time"

	"shici/internal/cache"
	"shici/pkg/domain"

	"github.com/golang-jwt/jwt/v5"
)

type fakeUserService struct {
	sess        domain.Session
	signInErr   error
	signUpErr   error
	currentUser domain.User
	currentErr  error
	updated     domain.User
	updateErr   error

	// onCurrent runs inside CurrentUser so tests can observe in-flight state.
	onCurrent func()

	signInCalls  int
	signOutCalls int
	currentCalls int
}

func (f *fakeUserService) SignIn(_ context.Context, _ domain.LoginParams) (domain.Session, error) {
	f.signInCalls++
	return f.sess, f.signInErr
}

func (f *fakeUserService) SignUp(_ context.Context, _ domain.RegisterParams) error {
	return f.signUpErr
}

func (f *fakeUserService) SignOut(_ context.Context, _ string) error {
	f.signOutCalls++
	return nil
}

func (f *fakeUserService) CurrentUser(_ context.Context, _ string) (domain.User, error) {
	f.currentCalls++
	if f.onCurrent != nil {
		f.onCurrent()
	}
	return f.currentUser, f.currentErr
}

func (f *fakeUserService) UpdateProfile(_ context.Context, _ domain.Session, _ domain.UserUpdateParams) (domain.User, error) {
	return f.updated, f.updateErr
}

func (f *fakeUserService) ChangePassword(_ context.Context, _, _, _ string) error {
	return nil
}

type classifiedErr struct {
	kind domain.ErrorKind
	msg  string
}

func (e classifiedErr) Error() string { return e.msg }

func (e classifiedErr) ErrorKind() domain.ErrorKind { return e.kind }

func testUser() domain.User {
	return domain.User{ID: "u-1", Email: "u@example.com", Username: "libai", Level: 2}
}

func testSession() domain.Session {
	user := testUser()
	return domain.Session{Token: "tok-1", User: &user}
}

func validLogin() domain.LoginParams {
	return domain.LoginParams{Email: "u@example.com", Password: "secret1"}
}

func TestLoginPersistsSession(t *testing.T) {
	svc := &fakeUserService{sess: testSession()}
	c := cache.NewMemoryCache(nil)
	s := NewUserStore(svc, c, nil)

	if !s.Login(context.Background(), validLogin()) {
		t.Fatalf("login failed: %s", s.LastError())
	}
	if !s.IsLoggedIn() || s.DisplayName() != "libai" {
		t.Fatalf("unexpected state: loggedIn=%v name=%q", s.IsLoggedIn(), s.DisplayName())
	}

	var token string
	if !c.Get(cache.KeyToken, &token) || token != "tok-1" {
		t.Fatalf("token not persisted, got %q", token)
	}
	var user domain.User
	if !c.Get(cache.KeyUser, &user) || user.ID != "u-1" {
		t.Fatalf("user not persisted, got %+v", user)
	}
}

func TestFailedLoginLeavesCacheTokenless(t *testing.T) {
	svc := &fakeUserService{signInErr: classifiedErr{kind: domain.KindBadCredentials, msg: "nope"}}
	c := cache.NewMemoryCache(nil)
	s := NewUserStore(svc, c, nil)

	if s.Login(context.Background(), validLogin()) {
		t.Fatalf("login should fail")
	}
	if s.IsLoggedIn() {
		t.Fatalf("store should stay anonymous")
	}
	var token string
	if c.Get(cache.KeyToken, &token) {
		t.Fatalf("cache should hold no token, got %q", token)
	}
	if s.LastError() != "邮箱或密码错误，请重新输入" {
		t.Fatalf("unexpected message %q", s.LastError())
	}
}

func TestLoginClassifiesUnverifiedEmail(t *testing.T) {
	svc := &fakeUserService{signInErr: classifiedErr{kind: domain.KindUnverifiedEmail, msg: "confirm first"}}
	s := NewUserStore(svc, cache.NewMemoryCache(nil), nil)

	s.Login(context.Background(), validLogin())
	if s.LastError() != "邮箱未验证，请检查您的邮箱并点击验证链接" {
		t.Fatalf("unexpected message %q", s.LastError())
	}
}

func TestLoginRejectsInvalidParamsWithoutNetwork(t *testing.T) {
	svc := &fakeUserService{sess: testSession()}
	s := NewUserStore(svc, cache.NewMemoryCache(nil), nil)

	if s.Login(context.Background(), domain.LoginParams{Email: "not-an-email", Password: "x"}) {
		t.Fatalf("login should fail validation")
	}
	if svc.signInCalls != 0 {
		t.Fatalf("sign-in reached the network %d times", svc.signInCalls)
	}
}

func TestInitializeRestoresSession(t *testing.T) {
	c := cache.NewMemoryCache(nil)
	c.Set(cache.KeyToken, "tok-1", 0)
	c.Set(cache.KeyUser, testUser(), 0)

	s := NewUserStore(&fakeUserService{}, c, nil)
	s.Initialize()
	if !s.IsLoggedIn() || s.Session().Token != "tok-1" {
		t.Fatalf("session not restored: %+v", s.Session())
	}
}

func TestInitializeClearsCorruptUserPayload(t *testing.T) {
	// A token paired with an undecodable user record is corrupt state.
	c := cache.NewMemoryCache(nil)
	c.Set(cache.KeyToken, "tok-1", 0)
	c.Set(cache.KeyUser, "not-a-user-record", 0)

	s := NewUserStore(&fakeUserService{}, c, nil)
	s.Initialize()
	if s.IsLoggedIn() {
		t.Fatalf("store should stay anonymous on corrupt cache")
	}
	var token string
	if c.Get(cache.KeyToken, &token) {
		t.Fatalf("token should be evicted alongside the corrupt user")
	}
	var raw string
	if c.Get(cache.KeyUser, &raw) {
		t.Fatalf("corrupt user record should be evicted")
	}
}

func TestInitializeClearsPartialCache(t *testing.T) {
	// Token without a user is corrupt state: both keys must go.
	c := cache.NewMemoryCache(nil)
	c.Set(cache.KeyToken, "tok-1", 0)

	s := NewUserStore(&fakeUserService{}, c, nil)
	s.Initialize()
	if s.IsLoggedIn() {
		t.Fatalf("store should stay anonymous on partial cache")
	}
	var token string
	if c.Get(cache.KeyToken, &token) {
		t.Fatalf("stale token should be evicted")
	}
}

func TestLogoutClearsStateAndCache(t *testing.T) {
	svc := &fakeUserService{sess: testSession()}
	c := cache.NewMemoryCache(nil)
	s := NewUserStore(svc, c, nil)
	s.Login(context.Background(), validLogin())

	s.Logout(context.Background())
	if s.IsLoggedIn() {
		t.Fatalf("still logged in after logout")
	}
	if svc.signOutCalls != 1 {
		t.Fatalf("remote sign-out calls = %d", svc.signOutCalls)
	}
	var token string
	if c.Get(cache.KeyToken, &token) {
		t.Fatalf("token survived logout")
	}
	var user domain.User
	if c.Get(cache.KeyUser, &user) {
		t.Fatalf("user survived logout")
	}
}

func TestFetchUserInfoUnauthorizedForcesLogout(t *testing.T) {
	svc := &fakeUserService{
		sess:       testSession(),
		currentErr: classifiedErr{kind: domain.KindUnauthorized, msg: "token expired"},
	}
	c := cache.NewMemoryCache(nil)
	s := NewUserStore(svc, c, nil)
	s.Login(context.Background(), validLogin())

	if s.FetchUserInfo(context.Background()) {
		t.Fatalf("refresh should fail")
	}
	if s.IsLoggedIn() {
		t.Fatalf("stale session should be cleared")
	}
	var token string
	if c.Get(cache.KeyToken, &token) {
		t.Fatalf("stale token should be evicted")
	}
}

func TestFetchUserInfoRefreshesProfile(t *testing.T) {
	refreshed := testUser()
	refreshed.Level = 5
	svc := &fakeUserService{sess: testSession(), currentUser: refreshed}
	s := NewUserStore(svc, cache.NewMemoryCache(nil), nil)
	s.Login(context.Background(), validLogin())

	if !s.FetchUserInfo(context.Background()) {
		t.Fatalf("refresh failed: %s", s.LastError())
	}
	if s.Level() != 5 {
		t.Fatalf("level = %d, want 5", s.Level())
	}
}

func TestFetchUserInfoTracksLoading(t *testing.T) {
	svc := &fakeUserService{sess: testSession(), currentUser: testUser()}
	s := NewUserStore(svc, cache.NewMemoryCache(nil), nil)
	s.Login(context.Background(), validLogin())

	var inFlight bool
	svc.onCurrent = func() { inFlight = s.IsLoading() }
	if !s.FetchUserInfo(context.Background()) {
		t.Fatalf("refresh failed: %s", s.LastError())
	}
	if !inFlight {
		t.Fatalf("loading should be set while the refresh is in flight")
	}
	if s.IsLoading() {
		t.Fatalf("loading should clear once the refresh completes")
	}
}

func TestUpdateUserInfoRequiresLogin(t *testing.T) {
	s := NewUserStore(&fakeUserService{}, cache.NewMemoryCache(nil), nil)
	name := "newname"
	err := s.UpdateUserInfo(context.Background(), domain.UserUpdateParams{Username: &name})
	if err != ErrNotLoggedIn {
		t.Fatalf("err = %v, want ErrNotLoggedIn", err)
	}
}

func TestTokenTTLUsesExpClaim(t *testing.T) {
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub": "u-1",
		"exp": jwt.NewNumericDate(time.Now().Add(time.Hour)).Unix(),
	}).SignedString([]byte("test-secret"))
	if err != nil {
		t.Fatalf("sign token: %v", err)
	}
	ttl := tokenTTL(token)
	if ttl <= 0 || ttl > time.Hour {
		t.Fatalf("ttl = %v, want within (0, 1h]", ttl)
	}
	if ttl < 55*time.Minute {
		t.Fatalf("ttl = %v, want about an hour", ttl)
	}
}

func TestTokenTTLFallsBackWithoutExp(t *testing.T) {
	if ttl := tokenTTL("not-a-jwt"); ttl != defaultSessionTTL {
		t.Fatalf("ttl = %v, want default", ttl)
	}
}
