package models

import "time"

// ConsoleMetrics summarises the console's own activity.
type ConsoleMetrics struct {
	RequestsTotal            uint64    `json:"requests_total"`
	AverageRequestDurationMs float64   `json:"average_request_duration_ms"`
	BackendCallsTotal        uint64    `json:"backend_calls_total"`
	BackendErrorsTotal       uint64    `json:"backend_errors_total"`
	AverageBackendDurationMs float64   `json:"average_backend_duration_ms"`
	StaleResponsesDiscarded  uint64    `json:"stale_responses_discarded"`
	OnlineUsers              int       `json:"online_users"`
	Goroutines               int       `json:"goroutines"`
	GeneratedAt              time.Time `json:"generated_at"`
}
