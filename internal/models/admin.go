package models

import (
	"strings"
	"time"
)

// Admin is a back-office operator account.
type Admin struct {
	ID          string     `json:"id"`
	Name        string     `json:"name"`
	Phone       string     `json:"phone"`
	Email       string     `json:"email"`
	Role        UserRole   `json:"role"`
	Permissions []string   `json:"permissions"`
	Status      string     `json:"status"`
	LastLoginAt *time.Time `json:"last_login_at,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
}

func (a Admin) RecordID() string { return a.ID }

func (a Admin) Row() map[string]string {
	return map[string]string{
		"id":            a.ID,
		"name":          a.Name,
		"phone":         a.Phone,
		"email":         a.Email,
		"role":          string(a.Role),
		"permissions":   strings.Join(a.Permissions, " "),
		"status":        a.Status,
		"last_login_at": formatTimePtr(a.LastLoginAt),
		"created_at":    formatTime(a.CreatedAt),
	}
}
