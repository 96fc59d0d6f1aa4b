package session

import (
	"context"
	"sync"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/golang-jwt/jwt/v5"
	"go.uber.org/zap"

	"github.com/noah-isme/backoffice-console/internal/models"
	appErrors "github.com/noah-isme/backoffice-console/pkg/errors"
)

type authAPI interface {
	Login(ctx context.Context, req models.LoginRequest) (*models.LoginResponse, error)
	Me(ctx context.Context, token string) (*models.UserInfo, error)
}

// Navigator moves the operator back to the login screen.
type Navigator interface {
	RedirectToLogin()
}

// Store owns the operator session. It is created once per console process and
// passed to every component that needs to know who is logged in.
type Store struct {
	api       authAPI
	tokens    TokenStore
	nav       Navigator
	validator *validator.Validate
	logger    *zap.Logger
	now       func() time.Time

	mu      sync.RWMutex
	session *models.Session
	loading bool
	lastErr error
	onEnd   []func()
}

// NewStore constructs a session store.
func NewStore(api authAPI, tokens TokenStore, nav Navigator, validate *validator.Validate, logger *zap.Logger) *Store {
	if logger == nil {
		logger = zap.NewNop()
	}
	if validate == nil {
		validate = validator.New()
	}
	return &Store{api: api, tokens: tokens, nav: nav, validator: validate, logger: logger, now: time.Now}
}

// OnEnd registers fn to run whenever the session ends through logout or a 401.
func (s *Store) OnEnd(fn func()) {
	s.mu.Lock()
	s.onEnd = append(s.onEnd, fn)
	s.mu.Unlock()
}

// Init restores a persisted session. An expired, rejected or non-admin token is
// discarded and the store stays logged out.
func (s *Store) Init(ctx context.Context) error {
	token, err := s.tokens.Load(ctx)
	if err != nil {
		s.logger.Warn("failed to load persisted token", zap.Error(err))
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load persisted token")
	}
	if token == "" {
		return nil
	}

	if s.expired(token) {
		s.logger.Info("persisted token expired, discarding")
		s.discardToken(ctx)
		return nil
	}

	s.setLoading(true)
	info, err := s.api.Me(ctx, token)
	s.setLoading(false)
	if err != nil {
		if appErrors.IsUnauthorized(err) {
			s.logger.Info("persisted token rejected by backend")
			s.discardToken(ctx)
			return nil
		}
		s.setError(err)
		s.logger.Warn("failed to verify persisted token", zap.Error(err))
		return err
	}

	if !info.Role.IsAdminTier() {
		s.logger.Warn("persisted token belongs to non-admin account", zap.String("user_id", info.ID), zap.String("role", string(info.Role)))
		s.discardToken(ctx)
		s.setError(appErrors.ErrNotAdmin)
		return appErrors.ErrNotAdmin
	}

	s.mu.Lock()
	s.session = models.NewSession(*info, token)
	s.lastErr = nil
	s.mu.Unlock()
	s.logger.Info("session restored", zap.String("user_id", info.ID), zap.String("role", string(info.Role)))
	return nil
}

// Login authenticates the operator. Non-admin accounts are rejected and nothing
// is persisted for them.
func (s *Store) Login(ctx context.Context, req models.LoginRequest) (*models.Session, error) {
	if err := s.validator.Struct(req); err != nil {
		appErr := appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "phone and password are required")
		s.setError(appErr)
		return nil, appErr
	}

	s.setLoading(true)
	resp, err := s.api.Login(ctx, req)
	s.setLoading(false)
	if err != nil {
		s.setError(err)
		return nil, err
	}

	if !resp.User.Role.IsAdminTier() {
		s.logger.Warn("login rejected for non-admin account", zap.String("user_id", resp.User.ID), zap.String("role", string(resp.User.Role)))
		s.setError(appErrors.ErrNotAdmin)
		return nil, appErrors.ErrNotAdmin
	}
	if resp.Token == "" {
		appErr := appErrors.Clone(appErrors.ErrInternal, "backend returned no token")
		s.setError(appErr)
		return nil, appErr
	}

	if err := s.tokens.Save(ctx, resp.Token); err != nil {
		s.logger.Warn("failed to persist token", zap.Error(err))
	}

	sess := models.NewSession(resp.User, resp.Token)
	s.mu.Lock()
	s.session = sess
	s.lastErr = nil
	s.mu.Unlock()

	s.logger.Info("operator logged in", zap.String("user_id", sess.UserID), zap.String("role", string(sess.Role)))
	return sess, nil
}

// Logout ends the session unconditionally.
func (s *Store) Logout(ctx context.Context) {
	s.end(ctx, "logout")
}

// HandleUnauthorized is the global 401 handler: it clears the session and the
// persisted token and sends the operator to the login screen.
func (s *Store) HandleUnauthorized(ctx context.Context) {
	s.end(ctx, "unauthorized")
}

func (s *Store) end(ctx context.Context, reason string) {
	s.mu.Lock()
	prev := s.session
	s.session = nil
	s.loading = false
	if reason == "unauthorized" && prev != nil {
		s.lastErr = appErrors.Clone(appErrors.ErrUnauthorized, "session expired, please log in again")
	} else {
		s.lastErr = nil
	}
	hooks := make([]func(), len(s.onEnd))
	copy(hooks, s.onEnd)
	s.mu.Unlock()

	// The request context may already be cancelled; clearing must still happen.
	s.discardToken(context.WithoutCancel(ctx))

	if prev != nil {
		s.logger.Info("session ended", zap.String("user_id", prev.UserID), zap.String("reason", reason))
	}
	for _, fn := range hooks {
		fn()
	}
	if s.nav != nil {
		s.nav.RedirectToLogin()
	}
}

// Current returns the active session or nil.
func (s *Store) Current() *models.Session {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.session == nil {
		return nil
	}
	cp := *s.session
	return &cp
}

// Token implements apiclient.TokenSource.
func (s *Store) Token() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.session == nil {
		return ""
	}
	return s.session.Token
}

// State reports the authentication state.
func (s *Store) State() models.SessionState {
	s.mu.RLock()
	defer s.mu.RUnlock()
	state := models.SessionState{Authenticated: s.session != nil, Loading: s.loading}
	if s.session != nil {
		cp := *s.session
		state.User = &cp
	}
	if s.lastErr != nil {
		state.Error = appErrors.FromError(s.lastErr).Message
	}
	return state
}

func (s *Store) expired(token string) bool {
	claims := &models.TokenClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, claims); err != nil {
		// Opaque tokens can only be judged by the backend.
		return false
	}
	return claims.ExpiresAt != nil && !claims.ExpiresAt.After(s.now())
}

func (s *Store) discardToken(ctx context.Context) {
	if err := s.tokens.Clear(ctx); err != nil {
		s.logger.Warn("failed to clear persisted token", zap.Error(err))
	}
}

func (s *Store) setLoading(v bool) {
	s.mu.Lock()
	s.loading = v
	s.mu.Unlock()
}

func (s *Store) setError(err error) {
	s.mu.Lock()
	s.lastErr = err
	s.mu.Unlock()
}
