package models

import (
	"strconv"
	"time"
)

// ReferralCode is a signup/referral code.
type ReferralCode struct {
	ID          string     `json:"id"`
	Code        string     `json:"code"`
	Description string     `json:"description"`
	Reward      float64    `json:"reward"`
	MaxUses     int        `json:"max_uses"`
	Uses        int        `json:"uses"`
	Status      string     `json:"status"`
	ExpiresAt   *time.Time `json:"expires_at,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
}

func (r ReferralCode) RecordID() string { return r.ID }

func (r ReferralCode) Row() map[string]string {
	return map[string]string{
		"id":         r.ID,
		"code":       r.Code,
		"reward":     strconv.FormatFloat(r.Reward, 'f', 2, 64),
		"uses":       strconv.Itoa(r.Uses),
		"max_uses":   strconv.Itoa(r.MaxUses),
		"status":     r.Status,
		"expires_at": formatTimePtr(r.ExpiresAt),
		"created_at": formatTime(r.CreatedAt),
	}
}
