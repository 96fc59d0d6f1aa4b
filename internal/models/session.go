package models

// Session is the authenticated operator. Only admin-tier roles are ever held.
type Session struct {
	UserID      string   `json:"user_id"`
	Name        string   `json:"name"`
	Phone       string   `json:"phone"`
	Role        UserRole `json:"role"`
	Permissions []string `json:"permissions"`
	Token       string   `json:"-"`
}

// NewSession builds a session from the backend user payload and its bearer token.
func NewSession(info UserInfo, token string) *Session {
	perms := make([]string, len(info.Permissions))
	copy(perms, info.Permissions)
	return &Session{
		UserID:      info.ID,
		Name:        info.Name,
		Phone:       info.Phone,
		Role:        info.Role,
		Permissions: perms,
		Token:       token,
	}
}

// SessionState is what the console reports about authentication.
type SessionState struct {
	Authenticated bool     `json:"authenticated"`
	Loading       bool     `json:"loading"`
	Error         string   `json:"error,omitempty"`
	User          *Session `json:"user,omitempty"`
}
