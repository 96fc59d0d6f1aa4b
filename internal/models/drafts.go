package models

import "time"

// ProductDraft is the product form.
type ProductDraft struct {
	Name        string  `json:"name" validate:"required,max=120"`
	Description string  `json:"description" validate:"max=2000"`
	Category    string  `json:"category" validate:"required,max=60"`
	Price       float64 `json:"price" validate:"gt=0"`
	Stock       int     `json:"stock" validate:"gte=0"`
	Status      string  `json:"status,omitempty" validate:"omitempty,oneof=active inactive"`
}

// UserDraft is the user form. Password is only sent when creating or resetting.
type UserDraft struct {
	Name     string `json:"name" validate:"required,max=120"`
	Phone    string `json:"phone" validate:"required,min=6,max=20"`
	Email    string `json:"email,omitempty" validate:"omitempty,email"`
	Status   string `json:"status,omitempty" validate:"omitempty,oneof=active suspended banned"`
	Password string `json:"password,omitempty" validate:"omitempty,min=8"`
}

// ReferralCodeDraft is the referral code form.
type ReferralCodeDraft struct {
	Code        string     `json:"code" validate:"required,alphanum,min=4,max=32"`
	Description string     `json:"description" validate:"max=255"`
	Reward      float64    `json:"reward" validate:"gte=0"`
	MaxUses     int        `json:"max_uses" validate:"gte=0"`
	Status      string     `json:"status,omitempty" validate:"omitempty,oneof=active inactive"`
	ExpiresAt   *time.Time `json:"expires_at,omitempty"`
}

// AdminDraft is the administrator form.
type AdminDraft struct {
	Name        string   `json:"name" validate:"required,max=120"`
	Phone       string   `json:"phone" validate:"required,min=6,max=20"`
	Email       string   `json:"email,omitempty" validate:"omitempty,email"`
	Role        UserRole `json:"role" validate:"required,oneof=admin superadmin"`
	Permissions []string `json:"permissions" validate:"dive,required"`
	Status      string   `json:"status,omitempty" validate:"omitempty,oneof=active suspended"`
	Password    string   `json:"password,omitempty" validate:"omitempty,min=8"`
}

// WithdrawalDraft edits the operator-owned fields of a withdrawal.
type WithdrawalDraft struct {
	Method         string `json:"method" validate:"required,max=60"`
	AccountDetails string `json:"account_details" validate:"required,max=255"`
	Note           string `json:"note" validate:"max=500"`
}

// StatusChange is the body of a status toggle.
type StatusChange struct {
	Status string `json:"status" validate:"required"`
	Note   string `json:"note,omitempty" validate:"max=500"`
}
