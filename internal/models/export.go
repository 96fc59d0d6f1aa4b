package models

import "time"

// ExportStatus tracks an export through the queue.
type ExportStatus string

const (
	ExportQueued    ExportStatus = "queued"
	ExportRunning   ExportStatus = "running"
	ExportCompleted ExportStatus = "completed"
	ExportFailed    ExportStatus = "failed"
)

// ExportJob describes one file export of a screen's visible rows.
type ExportJob struct {
	ID          string       `json:"id"`
	Screen      string       `json:"screen"`
	Format      string       `json:"format"`
	Status      ExportStatus `json:"status"`
	RowCount    int          `json:"row_count"`
	FileName    string       `json:"file_name,omitempty"`
	URL         string       `json:"url,omitempty"`
	ExpiresAt   *time.Time   `json:"expires_at,omitempty"`
	Error       string       `json:"error,omitempty"`
	RequestedBy string       `json:"requested_by,omitempty"`
	CreatedAt   time.Time    `json:"created_at"`
	CompletedAt *time.Time   `json:"completed_at,omitempty"`
}
