package health

import (
	"context"
	"time"
)

// Status represents the health status of a component
type Status string

const (
	StatusHealthy   Status = "healthy"
	StatusDegraded  Status = "degraded"
	StatusUnhealthy Status = "unhealthy"
)

// Check is the outcome of one preflight check
type Check struct {
	Name     string         `json:"name"`
	Status   Status         `json:"status"`
	Message  string         `json:"message,omitempty"`
	Details  map[string]any `json:"details,omitempty"`
	Duration time.Duration  `json:"duration_ms"`
}

// CheckFunc performs a check
type CheckFunc func(ctx context.Context) Check

// Checker runs registered checks in registration order
type Checker struct {
	names  []string
	checks map[string]CheckFunc
}

// Report is the outcome of a full run
type Report struct {
	Status    Status    `json:"status"`
	Timestamp time.Time `json:"timestamp"`
	Checks    []Check   `json:"checks"`
}
