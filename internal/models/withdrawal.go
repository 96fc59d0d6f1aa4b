package models

import (
	"strconv"
	"time"
)

// Withdrawal statuses.
const (
	WithdrawalPending  = "pending"
	WithdrawalApproved = "approved"
	WithdrawalRejected = "rejected"
	WithdrawalPaid     = "paid"
)

// Withdrawal is a user's request to cash out credits.
type Withdrawal struct {
	ID             string     `json:"id"`
	UserID         string     `json:"user_id"`
	UserName       string     `json:"user_name"`
	Amount         float64    `json:"amount"`
	Method         string     `json:"method"`
	AccountDetails string     `json:"account_details"`
	Status         string     `json:"status"`
	Note           string     `json:"note,omitempty"`
	ProcessedAt    *time.Time `json:"processed_at,omitempty"`
	CreatedAt      time.Time  `json:"created_at"`
}

func (w Withdrawal) RecordID() string { return w.ID }

func (w Withdrawal) Row() map[string]string {
	return map[string]string{
		"id":           w.ID,
		"user":         w.UserName,
		"amount":       strconv.FormatFloat(w.Amount, 'f', 2, 64),
		"method":       w.Method,
		"status":       w.Status,
		"note":         w.Note,
		"processed_at": formatTimePtr(w.ProcessedAt),
		"created_at":   formatTime(w.CreatedAt),
	}
}

// withdrawalTransitions lists the statuses reachable from each status.
var withdrawalTransitions = map[string][]string{
	WithdrawalPending:  {WithdrawalApproved, WithdrawalRejected},
	WithdrawalApproved: {WithdrawalPaid, WithdrawalRejected},
}

// CanTransition reports whether the withdrawal may move to next.
func (w Withdrawal) CanTransition(next string) bool {
	for _, s := range withdrawalTransitions[w.Status] {
		if s == next {
			return true
		}
	}
	return false
}
