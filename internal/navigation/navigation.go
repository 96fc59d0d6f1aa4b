package navigation

import (
	"github.com/noah-isme/backoffice-console/internal/models"
	"github.com/noah-isme/backoffice-console/internal/permission"
)

// Screen keys.
const (
	Products      = "products"
	Users         = "users"
	ReferralCodes = "referral_codes"
	Admins        = "admins"
	AuditLogs     = "audit_logs"
	Withdrawals   = "withdrawals"
)

// LoginPath is where an operator is sent when the session ends.
const LoginPath = "/login"

// MenuItem is one entry of the console menu.
type MenuItem struct {
	Key         string   `json:"key"`
	Label       string   `json:"label"`
	Path        string   `json:"path"`
	AnyOf       []string `json:"-"`
	TopTierOnly bool     `json:"-"`
}

// Menu is the full menu in display order.
var Menu = []MenuItem{
	{Key: Products, Label: "Products", Path: "/products", AnyOf: []string{permission.ProductsView, permission.ProductsManage}},
	{Key: Users, Label: "Users", Path: "/users", AnyOf: []string{permission.UsersView, permission.UsersManage}},
	{Key: ReferralCodes, Label: "Referral Codes", Path: "/referral-codes", AnyOf: []string{permission.ReferralCodesView, permission.ReferralCodesManage}},
	{Key: Withdrawals, Label: "Withdrawals", Path: "/withdrawals", AnyOf: []string{permission.WithdrawalsView, permission.WithdrawalsManage}},
	{Key: AuditLogs, Label: "Audit Logs", Path: "/audit-logs", AnyOf: []string{permission.AuditLogsView}},
	{Key: Admins, Label: "Administrators", Path: "/admins", AnyOf: []string{permission.AdminsManage}, TopTierOnly: true},
}

// Visible returns the menu items the operator may see.
func Visible(s *models.Session) []MenuItem {
	out := make([]MenuItem, 0, len(Menu))
	for _, item := range Menu {
		if allowed(s, item) {
			out = append(out, item)
		}
	}
	return out
}

// Allowed reports whether the operator may open the screen with the given key.
func Allowed(s *models.Session, key string) bool {
	item, ok := Lookup(key)
	return ok && allowed(s, item)
}

func allowed(s *models.Session, item MenuItem) bool {
	if s == nil {
		return false
	}
	if item.TopTierOnly && !s.Role.IsTopTier() {
		return false
	}
	return permission.HasAnyPermission(s, item.AnyOf...)
}

// Lookup returns the menu item for key.
func Lookup(key string) (MenuItem, bool) {
	for _, item := range Menu {
		if item.Key == key {
			return item, true
		}
	}
	return MenuItem{}, false
}
