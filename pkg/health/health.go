// Package health runs preflight checks before generation: store connectivity, template
// files and the output directory.
package health

import (
	"context"
	"time"
)

// NewChecker creates an empty checker
func NewChecker() *Checker {
	return &Checker{checks: make(map[string]CheckFunc)}
}

// Register adds a check. Registering a name again replaces the earlier check in place.
func (c *Checker) Register(name string, check CheckFunc) {
	if _, exists := c.checks[name]; !exists {
		c.names = append(c.names, name)
	}
	c.checks[name] = check
}

// Run performs every check one after another
func (c *Checker) Run(ctx context.Context) Report {
	report := Report{
		Status:    StatusHealthy,
		Timestamp: time.Now(),
		Checks:    make([]Check, 0, len(c.names)),
	}

	for _, name := range c.names {
		start := time.Now()
		check := c.checks[name](ctx)
		check.Name = name
		check.Duration = time.Since(start)
		report.Checks = append(report.Checks, check)

		// worst status wins
		if check.Status == StatusUnhealthy {
			report.Status = StatusUnhealthy
		} else if check.Status == StatusDegraded && report.Status != StatusUnhealthy {
			report.Status = StatusDegraded
		}
	}

	return report
}
