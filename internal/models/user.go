package models

import (
	"strconv"
	"time"
)

// User account statuses.
const (
	UserStatusActive    = "active"
	UserStatusSuspended = "suspended"
	UserStatusBanned    = "banned"
)

// User represents a marketplace account.
type User struct {
	ID           string     `json:"id"`
	Name         string     `json:"name"`
	Phone        string     `json:"phone"`
	Email        string     `json:"email"`
	Role         UserRole   `json:"role"`
	Status       string     `json:"status"`
	Credits      float64    `json:"credits"`
	ReferralCode string     `json:"referral_code,omitempty"`
	LastSeenAt   *time.Time `json:"last_seen_at,omitempty"`
	CreatedAt    time.Time  `json:"created_at"`
	UpdatedAt    time.Time  `json:"updated_at"`

	// Online is filled from the presence overlay, never by the backend.
	Online bool `json:"online"`
}

func (u User) RecordID() string { return u.ID }

func (u User) Row() map[string]string {
	return map[string]string{
		"id":         u.ID,
		"name":       u.Name,
		"phone":      u.Phone,
		"email":      u.Email,
		"role":       string(u.Role),
		"status":     u.Status,
		"credits":    strconv.FormatFloat(u.Credits, 'f', 2, 64),
		"online":     strconv.FormatBool(u.Online),
		"created_at": formatTime(u.CreatedAt),
	}
}

// Credit operations accepted by the credits endpoint.
const (
	CreditAdd      = "add"
	CreditSubtract = "subtract"
)

// CreditAdjustment changes a user's credit balance.
type CreditAdjustment struct {
	Amount    float64 `json:"amount" validate:"required,gt=0"`
	Operation string  `json:"operation" validate:"required,oneof=add subtract"`
	Reason    string  `json:"reason" validate:"max=255"`
}

// Message deliveries.
const (
	DeliveryRealtime     = "realtime"
	DeliveryNotification = "notification"
)

// Message is sent to a single user through the backend.
type Message struct {
	UserID   string `json:"user_id"`
	Title    string `json:"title" validate:"required,max=120"`
	Body     string `json:"body" validate:"required,max=2000"`
	Delivery string `json:"delivery"`
}

// MessageReceipt is returned by the message endpoint.
type MessageReceipt struct {
	ID       string    `json:"id"`
	UserID   string    `json:"user_id"`
	Delivery string    `json:"delivery"`
	SentAt   time.Time `json:"sent_at"`
}
