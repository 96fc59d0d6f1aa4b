package models

import "github.com/golang-jwt/jwt/v5"

// UserRole represents the roles the marketplace backend assigns to accounts.
type UserRole string

const (
	RoleClient     UserRole = "client"
	RoleAdmin      UserRole = "admin"
	RoleSuperAdmin UserRole = "superadmin"
)

// IsAdminTier reports whether the role may hold a console session.
func (r UserRole) IsAdminTier() bool {
	return r == RoleAdmin || r == RoleSuperAdmin
}

// IsTopTier reports whether the role bypasses explicit permission checks.
func (r UserRole) IsTopTier() bool {
	return r == RoleSuperAdmin
}

// LoginRequest holds operator credentials.
type LoginRequest struct {
	Phone    string `json:"phone" validate:"required,min=6"`
	Password string `json:"password" validate:"required"`
}

// LoginResponse is the backend payload for a successful login.
type LoginResponse struct {
	Token string   `json:"token"`
	User  UserInfo `json:"user"`
}

// UserInfo describes the authenticated account as returned by the backend.
type UserInfo struct {
	ID          string   `json:"id"`
	Name        string   `json:"name"`
	Phone       string   `json:"phone"`
	Role        UserRole `json:"role"`
	Permissions []string `json:"permissions"`
}

// TokenClaims is the subset of the bearer token payload the console inspects.
type TokenClaims struct {
	UserID string   `json:"user_id"`
	Role   UserRole `json:"role"`
	jwt.RegisteredClaims
}
