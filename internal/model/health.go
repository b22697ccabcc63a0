package model

import "time"

// HealthResponse reports process liveness.
type HealthResponse struct {
	Status    string    `json:"status"`
	Version   string    `json:"version"`
	Timestamp time.Time `json:"timestamp"`
}

// ReadinessResponse reports connectivity to the stores this process
// depends on. "degraded" means at least one check failed.
type ReadinessResponse struct {
	Status string          `json:"status"`
	Checks map[string]bool `json:"checks"`
}
