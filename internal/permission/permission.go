// Package permission answers "may this operator see or do X" for the console.
//
// These checks only decide what the console shows or enables. The marketplace
// backend re-checks every permission on every request and is the sole authority.
package permission

import "github.com/noah-isme/backoffice-console/internal/models"

// Permission catalogue understood by the backend.
const (
	ProductsView        = "products:view"
	ProductsManage      = "products:manage"
	UsersView           = "users:view"
	UsersManage         = "users:manage"
	UsersCredits        = "users:credits"
	UsersMessage        = "users:message"
	ReferralCodesView   = "referral_codes:view"
	ReferralCodesManage = "referral_codes:manage"
	AdminsManage        = "admins:manage"
	AuditLogsView       = "audit_logs:view"
	WithdrawalsView     = "withdrawals:view"
	WithdrawalsManage   = "withdrawals:manage"
)

// All lists every known permission, in menu order.
var All = []string{
	ProductsView, ProductsManage,
	UsersView, UsersManage, UsersCredits, UsersMessage,
	ReferralCodesView, ReferralCodesManage,
	AdminsManage,
	AuditLogsView,
	WithdrawalsView, WithdrawalsManage,
}

// HasPermission is true for the top tier, otherwise iff p is in the session's set.
func HasPermission(s *models.Session, p string) bool {
	if s == nil {
		return false
	}
	if s.Role.IsTopTier() {
		return true
	}
	for _, granted := range s.Permissions {
		if granted == p {
			return true
		}
	}
	return false
}

// HasAnyPermission is true for the top tier, otherwise iff at least one of ps is granted.
func HasAnyPermission(s *models.Session, ps ...string) bool {
	if s == nil {
		return false
	}
	if s.Role.IsTopTier() {
		return true
	}
	for _, p := range ps {
		if HasPermission(s, p) {
			return true
		}
	}
	return false
}

// HasAllPermissions is true for the top tier, otherwise iff every one of ps is granted.
func HasAllPermissions(s *models.Session, ps ...string) bool {
	if s == nil {
		return false
	}
	if s.Role.IsTopTier() {
		return true
	}
	for _, p := range ps {
		if !HasPermission(s, p) {
			return false
		}
	}
	return true
}
