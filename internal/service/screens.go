package service

import (
	"github.com/noah-isme/backoffice-console/internal/apiclient"
	"github.com/noah-isme/backoffice-console/internal/models"
	"github.com/noah-isme/backoffice-console/internal/navigation"
	"github.com/noah-isme/backoffice-console/internal/permission"
	appErrors "github.com/noah-isme/backoffice-console/pkg/errors"
	"github.com/noah-isme/backoffice-console/pkg/export"
)

// ProductsDefinition is the products screen.
func ProductsDefinition(c *apiclient.Client) Definition[models.Product] {
	return Definition[models.Product]{
		Key:              navigation.Products,
		Title:            "Products",
		ManagePermission: permission.ProductsManage,
		Resource:         apiclient.NewResource[models.Product](c, "/products"),
		NewCreateDraft:   func() interface{} { return &models.ProductDraft{} },
		NewUpdateDraft:   func() interface{} { return &models.ProductDraft{} },
		CanDelete:        true,
		Statuses:         []string{models.StatusActive, models.StatusInactive},
		Filters:          []string{"status", "category"},
		Columns: []export.Column{
			{Key: "id", Label: "ID"},
			{Key: "name", Label: "Name"},
			{Key: "category", Label: "Category"},
			{Key: "price", Label: "Price"},
			{Key: "stock", Label: "Stock"},
			{Key: "status", Label: "Status"},
			{Key: "created_at", Label: "Created"},
		},
	}
}

// ReferralCodesDefinition is the referral codes screen.
func ReferralCodesDefinition(c *apiclient.Client) Definition[models.ReferralCode] {
	return Definition[models.ReferralCode]{
		Key:              navigation.ReferralCodes,
		Title:            "Referral Codes",
		ManagePermission: permission.ReferralCodesManage,
		Resource:         apiclient.NewResource[models.ReferralCode](c, "/referral-codes"),
		NewCreateDraft:   func() interface{} { return &models.ReferralCodeDraft{} },
		NewUpdateDraft:   func() interface{} { return &models.ReferralCodeDraft{} },
		CanDelete:        true,
		Statuses:         []string{models.StatusActive, models.StatusInactive},
		Filters:          []string{"status"},
		Columns: []export.Column{
			{Key: "code", Label: "Code"},
			{Key: "reward", Label: "Reward"},
			{Key: "uses", Label: "Uses"},
			{Key: "max_uses", Label: "Max uses"},
			{Key: "status", Label: "Status"},
			{Key: "expires_at", Label: "Expires"},
			{Key: "created_at", Label: "Created"},
		},
	}
}

// AdminsDefinition is the administrators screen, shown to the top tier only.
func AdminsDefinition(c *apiclient.Client) Definition[models.Admin] {
	return Definition[models.Admin]{
		Key:              navigation.Admins,
		Title:            "Administrators",
		ManagePermission: permission.AdminsManage,
		Resource:         apiclient.NewResource[models.Admin](c, "/admins"),
		NewCreateDraft:   func() interface{} { return &models.AdminDraft{} },
		NewUpdateDraft:   func() interface{} { return &models.AdminDraft{} },
		CanDelete:        true,
		Statuses:         []string{models.UserStatusActive, models.UserStatusSuspended},
		Filters:          []string{"role", "status"},
		Columns: []export.Column{
			{Key: "name", Label: "Name"},
			{Key: "phone", Label: "Phone"},
			{Key: "email", Label: "Email"},
			{Key: "role", Label: "Role"},
			{Key: "status", Label: "Status"},
			{Key: "last_login_at", Label: "Last login"},
		},
	}
}

// AuditLogsDefinition is the read-only audit trail.
func AuditLogsDefinition(c *apiclient.Client) Definition[models.AuditLog] {
	return Definition[models.AuditLog]{
		Key:      navigation.AuditLogs,
		Title:    "Audit Logs",
		Resource: apiclient.NewResource[models.AuditLog](c, "/audit-logs"),
		Filters:  []string{"severity", "action", "from", "to"},
		Columns: []export.Column{
			{Key: "created_at", Label: "Time"},
			{Key: "actor", Label: "Actor"},
			{Key: "action", Label: "Action"},
			{Key: "resource", Label: "Resource"},
			{Key: "resource_id", Label: "Resource ID"},
			{Key: "severity", Label: "Severity"},
			{Key: "ip_address", Label: "IP"},
		},
	}
}

// WithdrawalsDefinition is the withdrawals screen. Status changes follow the
// withdrawal lifecycle and the operator may edit payout details.
func WithdrawalsDefinition(c *apiclient.Client) Definition[models.Withdrawal] {
	return Definition[models.Withdrawal]{
		Key:              navigation.Withdrawals,
		Title:            "Withdrawals",
		ManagePermission: permission.WithdrawalsManage,
		Resource:         apiclient.NewResource[models.Withdrawal](c, "/withdrawals"),
		NewUpdateDraft:   func() interface{} { return &models.WithdrawalDraft{} },
		Statuses:         []string{models.WithdrawalApproved, models.WithdrawalRejected, models.WithdrawalPaid},
		StatusGuard: func(w models.Withdrawal, next string) error {
			if !w.CanTransition(next) {
				return appErrors.Clone(appErrors.ErrConflict, "withdrawal cannot move from "+w.Status+" to "+next)
			}
			return nil
		},
		Filters:  []string{"status"},
		Defaults: map[string]string{"status": models.WithdrawalPending},
		Columns: []export.Column{
			{Key: "id", Label: "ID"},
			{Key: "user", Label: "User"},
			{Key: "amount", Label: "Amount"},
			{Key: "method", Label: "Method"},
			{Key: "status", Label: "Status"},
			{Key: "processed_at", Label: "Processed"},
			{Key: "created_at", Label: "Requested"},
		},
	}
}
