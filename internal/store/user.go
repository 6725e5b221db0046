package store

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/sync/singleflight"

	"shici/internal/cache"
	"shici/pkg/domain"
)

// defaultSessionTTL bounds cached sessions whose token carries no usable
// expiry claim.
const defaultSessionTTL = 7 * 24 * time.Hour

// UserStore owns the authentication state: the current session, a loading
// flag, and the last human-readable error. All state is mutex-guarded;
// the session is persisted to the cache so a restart can restore it.
type UserStore struct {
	svc      UserService
	cache    cache.Cache
	log      *slog.Logger
	validate *validator.Validate
	group    singleflight.Group

	mu      sync.Mutex
	sess    domain.Session
	loading bool
	lastErr string
}

func NewUserStore(svc UserService, c cache.Cache, logger *slog.Logger) *UserStore {
	if logger == nil {
		logger = slog.Default()
	}
	return &UserStore{
		svc:      svc,
		cache:    c,
		log:      logger,
		validate: validator.New(),
	}
}

// Initialize restores the session from the cache. Partial or corrupt data
// (token without user, or the reverse) forces a clean logged-out state with
// both keys evicted.
func (s *UserStore) Initialize() {
	var token string
	var user domain.User
	haveToken := s.cache.Get(cache.KeyToken, &token) && token != ""
	haveUser := s.cache.Get(cache.KeyUser, &user) && user.ID != ""
	if !haveToken || !haveUser {
		if haveToken || haveUser {
			s.log.Warn("partial cached session, clearing")
			s.cache.Remove(cache.KeyToken)
			s.cache.Remove(cache.KeyUser)
		}
		return
	}
	s.mu.Lock()
	s.sess = domain.Session{Token: token, User: &user}
	s.mu.Unlock()
	s.log.Info("session restored", "user", user.ID)
}

// Login validates the credentials, signs in, and persists the session. It
// reports success; on failure the reason is available via LastError.
func (s *UserStore) Login(ctx context.Context, p domain.LoginParams) bool {
	if err := s.validate.Struct(p); err != nil {
		s.setError("请输入有效的邮箱和密码")
		return false
	}
	s.setLoading(true)
	defer s.setLoading(false)

	sess, err := s.svc.SignIn(ctx, p)
	if err != nil {
		s.log.Warn("login failed", "email", p.Email, "err", err)
		s.setError(loginMessage(err))
		return false
	}

	s.mu.Lock()
	s.sess = sess
	s.lastErr = ""
	s.mu.Unlock()
	s.persist(sess)
	s.log.Info("login succeeded", "user", sess.User.ID)
	return true
}

// Register validates the parameters and creates the account. The user stays
// anonymous: the service may require email verification before sign-in.
func (s *UserStore) Register(ctx context.Context, p domain.RegisterParams) bool {
	if err := s.validate.Struct(p); err != nil {
		s.setError("请检查注册信息：用户名、邮箱和密码均为必填")
		return false
	}
	s.setLoading(true)
	defer s.setLoading(false)

	if err := s.svc.SignUp(ctx, p); err != nil {
		s.log.Warn("register failed", "email", p.Email, "err", err)
		s.setError(messageOr(err, "注册失败，请稍后重试"))
		return false
	}
	s.clearErrorLocked()
	return true
}

// Logout signs out remotely best-effort and always clears local state.
func (s *UserStore) Logout(ctx context.Context) {
	sess := s.Session()
	if sess.Token != "" {
		if err := s.svc.SignOut(ctx, sess.Token); err != nil {
			s.log.Warn("remote sign-out failed", "err", err)
		}
	}
	s.forceLogout()
}

// FetchUserInfo refreshes the profile from the backend. Concurrent calls are
// collapsed into one request. An unauthorized response means the token is
// stale, so the store heals itself by logging out.
func (s *UserStore) FetchUserInfo(ctx context.Context) bool {
	sess := s.Session()
	if !sess.Valid() {
		s.setError(ErrNotLoggedIn.Error())
		return false
	}
	s.setLoading(true)
	defer s.setLoading(false)

	v, err, _ := s.group.Do("current-user", func() (any, error) {
		return s.svc.CurrentUser(ctx, sess.Token)
	})
	if err != nil {
		if domain.KindOf(err) == domain.KindUnauthorized {
			s.log.Info("session expired, logging out")
			s.forceLogout()
		}
		s.setError(messageOr(err, "获取用户信息失败"))
		return false
	}
	user := v.(domain.User)

	s.mu.Lock()
	stale := s.sess.Token != sess.Token
	if !stale {
		s.sess.User = &user
		s.lastErr = ""
	}
	s.mu.Unlock()
	if !stale {
		s.persist(domain.Session{Token: sess.Token, User: &user})
	}
	return !stale
}

// UpdateUserInfo applies a partial profile update and persists the result.
func (s *UserStore) UpdateUserInfo(ctx context.Context, p domain.UserUpdateParams) error {
	sess := s.Session()
	if !sess.Valid() {
		return ErrNotLoggedIn
	}
	user, err := s.svc.UpdateProfile(ctx, sess, p)
	if err != nil {
		s.setError(messageOr(err, "更新用户信息失败"))
		return err
	}
	s.mu.Lock()
	if s.sess.Token == sess.Token {
		s.sess.User = &user
	}
	s.lastErr = ""
	s.mu.Unlock()
	s.persist(domain.Session{Token: sess.Token, User: &user})
	return nil
}

// ChangePassword rotates the password for the signed-in account.
func (s *UserStore) ChangePassword(ctx context.Context, oldPassword, newPassword string) error {
	sess := s.Session()
	if !sess.Valid() {
		return ErrNotLoggedIn
	}
	if err := s.svc.ChangePassword(ctx, sess.Token, oldPassword, newPassword); err != nil {
		s.setError(messageOr(err, "修改密码失败"))
		return err
	}
	return nil
}

// Session returns a copy of the current session.
func (s *UserStore) Session() domain.Session {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.sess
}

func (s *UserStore) IsLoggedIn() bool {
	return s.Session().Valid()
}

// DisplayName prefers the username, falling back to the email address.
func (s *UserStore) DisplayName() string {
	sess := s.Session()
	if sess.User == nil {
		return ""
	}
	if sess.User.Username != "" {
		return sess.User.Username
	}
	return sess.User.Email
}

func (s *UserStore) Level() int {
	sess := s.Session()
	if sess.User == nil {
		return 0
	}
	return sess.User.Level
}

func (s *UserStore) IsVerified() bool {
	sess := s.Session()
	return sess.User != nil && sess.User.IsVerified
}

func (s *UserStore) IsLoading() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.loading
}

func (s *UserStore) LastError() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastErr
}

func (s *UserStore) ClearError() {
	s.clearErrorLocked()
}

func (s *UserStore) forceLogout() {
	s.mu.Lock()
	s.sess = domain.Session{}
	s.mu.Unlock()
	s.cache.Remove(cache.KeyToken)
	s.cache.Remove(cache.KeyUser)
}

func (s *UserStore) persist(sess domain.Session) {
	ttl := tokenTTL(sess.Token)
	s.cache.Set(cache.KeyToken, sess.Token, ttl)
	s.cache.Set(cache.KeyUser, sess.User, ttl)
}

func (s *UserStore) setLoading(v bool) {
	s.mu.Lock()
	s.loading = v
	s.mu.Unlock()
}

func (s *UserStore) setError(msg string) {
	s.mu.Lock()
	s.lastErr = msg
	s.mu.Unlock()
}

func (s *UserStore) clearErrorLocked() {
	s.mu.Lock()
	s.lastErr = ""
	s.mu.Unlock()
}

// tokenTTL derives the cache TTL from the token's exp claim. The signature is
// not verified here, only the backend can do that; the claim is read purely
// to avoid caching a session past its lifetime.
func tokenTTL(token string) time.Duration {
	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, claims); err != nil {
		return defaultSessionTTL
	}
	exp, err := claims.GetExpirationTime()
	if err != nil || exp == nil {
		return defaultSessionTTL
	}
	ttl := time.Until(exp.Time)
	if ttl <= 0 || ttl > defaultSessionTTL {
		return defaultSessionTTL
	}
	return ttl
}

func loginMessage(err error) string {
	switch domain.KindOf(err) {
	case domain.KindUnverifiedEmail:
		return "邮箱未验证，请检查您的邮箱并点击验证链接"
	case domain.KindBadCredentials:
		return "邮箱或密码错误，请重新输入"
	default:
		return messageOr(err, "登录失败，请稍后重试")
	}
}

func messageOr(err error, fallback string) string {
	if err == nil || err.Error() == "" {
		return fallback
	}
	return err.Error()
}
