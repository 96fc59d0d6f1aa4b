package session

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/backoffice-console/internal/models"
	appErrors "github.com/noah-isme/backoffice-console/pkg/errors"
)

type fakeAuthAPI struct {
	loginResp *models.LoginResponse
	loginErr  error
	meResp    *models.UserInfo
	meErr     error
	meCalls   int
	meToken   string
}

func (f *fakeAuthAPI) Login(ctx context.Context, req models.LoginRequest) (*models.LoginResponse, error) {
	if f.loginErr != nil {
		return nil, f.loginErr
	}
	return f.loginResp, nil
}

func (f *fakeAuthAPI) Me(ctx context.Context, token string) (*models.UserInfo, error) {
	f.meCalls++
	f.meToken = token
	if f.meErr != nil {
		return nil, f.meErr
	}
	return f.meResp, nil
}

type fakeNavigator struct{ redirects int }

func (n *fakeNavigator) RedirectToLogin() { n.redirects++ }

func newTestStore(t *testing.T, api *fakeAuthAPI) (*Store, *FileTokenStore, *fakeNavigator) {
	t.Helper()
	tokens := NewFileTokenStore(filepath.Join(t.TempDir(), "token"))
	nav := &fakeNavigator{}
	return NewStore(api, tokens, nav, nil, nil), tokens, nav
}

func signedToken(t *testing.T, exp time.Time) string {
	t.Helper()
	claims := models.TokenClaims{UserID: "a1", Role: models.RoleAdmin, RegisteredClaims: jwt.RegisteredClaims{ExpiresAt: jwt.NewNumericDate(exp)}}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte("backend-secret"))
	require.NoError(t, err)
	return token
}

func TestLoginPersistsAdminSession(t *testing.T) {
	api := &fakeAuthAPI{loginResp: &models.LoginResponse{Token: "tok-1", User: models.UserInfo{ID: "a1", Name: "Ana", Role: models.RoleAdmin, Permissions: []string{"users:view"}}}}
	store, tokens, _ := newTestStore(t, api)

	sess, err := store.Login(context.Background(), models.LoginRequest{Phone: "0812345", Password: "secret"})
	require.NoError(t, err)
	assert.Equal(t, "a1", sess.UserID)
	assert.Equal(t, "tok-1", store.Token())

	persisted, err := tokens.Load(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "tok-1", persisted)
	assert.True(t, store.State().Authenticated)
}

func TestLoginRejectsNonAdmin(t *testing.T) {
	api := &fakeAuthAPI{loginResp: &models.LoginResponse{Token: "tok-client", User: models.UserInfo{ID: "c1", Role: models.RoleClient}}}
	store, tokens, _ := newTestStore(t, api)

	_, err := store.Login(context.Background(), models.LoginRequest{Phone: "0812345", Password: "secret"})
	require.ErrorIs(t, err, appErrors.ErrNotAdmin)
	assert.Nil(t, store.Current())

	persisted, err := tokens.Load(context.Background())
	require.NoError(t, err)
	assert.Empty(t, persisted)
	assert.NotEmpty(t, store.State().Error)
}

func TestLoginValidatesPayload(t *testing.T) {
	api := &fakeAuthAPI{}
	store, _, _ := newTestStore(t, api)

	_, err := store.Login(context.Background(), models.LoginRequest{Phone: "", Password: ""})
	assert.ErrorIs(t, err, appErrors.ErrValidation)
}

func TestInitRestoresVerifiedAdmin(t *testing.T) {
	api := &fakeAuthAPI{meResp: &models.UserInfo{ID: "a1", Role: models.RoleSuperAdmin}}
	store, tokens, _ := newTestStore(t, api)
	require.NoError(t, tokens.Save(context.Background(), "opaque-token"))

	require.NoError(t, store.Init(context.Background()))
	assert.Equal(t, "opaque-token", api.meToken)
	require.NotNil(t, store.Current())
	assert.Equal(t, models.RoleSuperAdmin, store.Current().Role)
}

func TestInitDiscardsNonAdminToken(t *testing.T) {
	api := &fakeAuthAPI{meResp: &models.UserInfo{ID: "c1", Role: models.RoleClient}}
	store, tokens, _ := newTestStore(t, api)
	require.NoError(t, tokens.Save(context.Background(), "opaque-token"))

	err := store.Init(context.Background())
	assert.ErrorIs(t, err, appErrors.ErrNotAdmin)
	assert.Nil(t, store.Current())
	persisted, _ := tokens.Load(context.Background())
	assert.Empty(t, persisted)
}

func TestInitSkipsBackendForExpiredJWT(t *testing.T) {
	api := &fakeAuthAPI{meResp: &models.UserInfo{ID: "a1", Role: models.RoleAdmin}}
	store, tokens, _ := newTestStore(t, api)
	require.NoError(t, tokens.Save(context.Background(), signedToken(t, time.Now().Add(-time.Hour))))

	require.NoError(t, store.Init(context.Background()))
	assert.Zero(t, api.meCalls)
	assert.Nil(t, store.Current())
	persisted, _ := tokens.Load(context.Background())
	assert.Empty(t, persisted)
}

func TestInitVerifiesUnexpiredJWT(t *testing.T) {
	api := &fakeAuthAPI{meResp: &models.UserInfo{ID: "a1", Role: models.RoleAdmin}}
	store, tokens, _ := newTestStore(t, api)
	require.NoError(t, tokens.Save(context.Background(), signedToken(t, time.Now().Add(time.Hour))))

	require.NoError(t, store.Init(context.Background()))
	assert.Equal(t, 1, api.meCalls)
	assert.NotNil(t, store.Current())
}

func TestInitKeepsTokenOnNetworkFailure(t *testing.T) {
	api := &fakeAuthAPI{meErr: appErrors.ErrNetwork}
	store, tokens, _ := newTestStore(t, api)
	require.NoError(t, tokens.Save(context.Background(), "opaque-token"))

	err := store.Init(context.Background())
	assert.ErrorIs(t, err, appErrors.ErrNetwork)
	assert.Nil(t, store.Current())
	persisted, _ := tokens.Load(context.Background())
	assert.Equal(t, "opaque-token", persisted)
}

func TestInitWithoutTokenIsNoop(t *testing.T) {
	api := &fakeAuthAPI{}
	store, _, _ := newTestStore(t, api)

	require.NoError(t, store.Init(context.Background()))
	assert.Zero(t, api.meCalls)
}

func TestHandleUnauthorizedClearsEverything(t *testing.T) {
	api := &fakeAuthAPI{loginResp: &models.LoginResponse{Token: "tok-1", User: models.UserInfo{ID: "a1", Role: models.RoleAdmin}}}
	store, tokens, nav := newTestStore(t, api)
	ended := 0
	store.OnEnd(func() { ended++ })

	_, err := store.Login(context.Background(), models.LoginRequest{Phone: "0812345", Password: "secret"})
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	store.HandleUnauthorized(ctx)

	assert.Nil(t, store.Current())
	assert.Empty(t, store.Token())
	persisted, _ := tokens.Load(context.Background())
	assert.Empty(t, persisted)
	assert.Equal(t, 1, nav.redirects)
	assert.Equal(t, 1, ended)
	assert.Contains(t, store.State().Error, "session expired")
}

func TestLogoutIsUnconditional(t *testing.T) {
	store, tokens, nav := newTestStore(t, &fakeAuthAPI{})
	require.NoError(t, tokens.Save(context.Background(), "left-over"))

	store.Logout(context.Background())
	persisted, _ := tokens.Load(context.Background())
	assert.Empty(t, persisted)
	assert.Equal(t, 1, nav.redirects)
	assert.Empty(t, store.State().Error)
}
