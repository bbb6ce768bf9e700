package dto

import "time"

// ErrorResponse represents a standardized error response
type ErrorResponse struct {
	Error     string    `json:"error" example:"Node not found"`
	Message   string    `json:"message" example:"No node configured with id: ET9999"`
	RequestID string    `json:"request_id,omitempty" example:"6f1c2b0e-8d53-4a43-9b0f-0c4f3f3c7a11"`
	Timestamp time.Time `json:"timestamp" example:"2025-01-18T12:34:56Z"`
}
