package health

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/dd0wney/cluso-ift/pkg/template"
)

// PingCheck creates a connectivity check from a ping function
func PingCheck(ping func(ctx context.Context) error) CheckFunc {
	return func(ctx context.Context) Check {
		if err := ping(ctx); err != nil {
			return Check{Status: StatusUnhealthy, Message: err.Error()}
		}
		return Check{Status: StatusHealthy, Message: "Connected"}
	}
}

// TemplatesCheck verifies that path holds at least one parseable template
func TemplatesCheck(path string) CheckFunc {
	return func(context.Context) Check {
		check := Check{Details: map[string]any{"path": path}}

		templates, err := template.Load(path)
		if err != nil {
			check.Status = StatusUnhealthy
			check.Message = err.Error()
			return check
		}

		var tokens int
		for _, t := range templates {
			tokens += len(t.Tokens())
		}
		check.Details["templates"] = len(templates)
		check.Details["placeholders"] = tokens

		if tokens == 0 {
			// entries would be the templates verbatim
			check.Status = StatusDegraded
			check.Message = "templates have no placeholders"
			return check
		}
		check.Status = StatusHealthy
		check.Message = fmt.Sprintf("%d templates", len(templates))
		return check
	}
}

// OutputDirCheck verifies that dir exists, or can be created, and is writable
func OutputDirCheck(dir string) CheckFunc {
	return func(context.Context) Check {
		check := Check{Details: map[string]any{"path": dir}}

		if _, err := os.Stat(dir); errors.Is(err, os.ErrNotExist) {
			if err := os.MkdirAll(dir, 0755); err != nil {
				check.Status = StatusUnhealthy
				check.Message = err.Error()
				return check
			}
		}

		f, err := os.CreateTemp(dir, ".ift-status-*")
		if err != nil {
			check.Status = StatusUnhealthy
			check.Message = err.Error()
			return check
		}
		f.Close()
		os.Remove(f.Name())

		check.Status = StatusHealthy
		check.Message = "Writable"
		return check
	}
}
