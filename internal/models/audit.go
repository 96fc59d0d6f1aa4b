package models

import "time"

// Audit severities.
const (
	SeverityInfo     = "info"
	SeverityWarning  = "warning"
	SeverityCritical = "critical"
)

// AuditLog represents an audit trail record recorded by the backend.
type AuditLog struct {
	ID         string    `json:"id"`
	ActorID    string    `json:"actor_id"`
	ActorName  string    `json:"actor_name"`
	Action     string    `json:"action"`
	Resource   string    `json:"resource"`
	ResourceID string    `json:"resource_id,omitempty"`
	Severity   string    `json:"severity"`
	Details    string    `json:"details,omitempty"`
	IPAddress  string    `json:"ip_address"`
	CreatedAt  time.Time `json:"created_at"`
}

func (a AuditLog) RecordID() string { return a.ID }

func (a AuditLog) Row() map[string]string {
	return map[string]string{
		"id":          a.ID,
		"created_at":  formatTime(a.CreatedAt),
		"actor":       a.ActorName,
		"action":      a.Action,
		"resource":    a.Resource,
		"resource_id": a.ResourceID,
		"severity":    a.Severity,
		"ip_address":  a.IPAddress,
		"details":     a.Details,
	}
}
