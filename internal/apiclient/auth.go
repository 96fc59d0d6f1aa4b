package apiclient

import (
	"context"
	"net/http"

	"github.com/noah-isme/backoffice-console/internal/models"
)

// Auth wraps the backend's session endpoints.
type Auth struct {
	client *Client
}

// NewAuth builds the auth sub-client.
func NewAuth(c *Client) *Auth {
	return &Auth{client: c}
}

// Login exchanges credentials for a bearer token and the account profile.
func (a *Auth) Login(ctx context.Context, req models.LoginRequest) (*models.LoginResponse, error) {
	var out models.LoginResponse
	if _, err := a.client.Do(ctx, Request{Method: http.MethodPost, Path: "/auth/login", Body: req, Anonymous: true}, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Me verifies token against the backend and returns its account.
func (a *Auth) Me(ctx context.Context, token string) (*models.UserInfo, error) {
	var out models.UserInfo
	if _, err := a.client.Do(ctx, Request{Method: http.MethodGet, Path: "/auth/me", Token: token}, &out); err != nil {
		return nil, err
	}
	return &out, nil
}
