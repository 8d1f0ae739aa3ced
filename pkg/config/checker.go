package config

import (
	"errors"
	"fmt"
	"net/url"
	"slices"
	"time"
)

// Checker provides a fluent interface for validating configuration values.
// It collects all validation errors rather than failing on the first one.
type Checker struct {
	errors []error
	name   string // config section name for error messages
}

// NewChecker creates a checker for the named config section.
func NewChecker(section string) *Checker {
	return &Checker{name: section}
}

// Required validates that a string field is not empty.
func (c *Checker) Required(field, value string) *Checker {
	if value == "" {
		c.errors = append(c.errors, fmt.Errorf("%s.%s: required field is empty", c.name, field))
	}
	return c
}

// RangeInt validates that an int field is within [min, max].
func (c *Checker) RangeInt(field string, value, min, max int) *Checker {
	if value < min || value > max {
		c.errors = append(c.errors, fmt.Errorf("%s.%s: value %d is outside range [%d, %d]", c.name, field, value, min, max))
	}
	return c
}

// NonNegative validates that an int field is >= 0.
func (c *Checker) NonNegative(field string, value int) *Checker {
	if value < 0 {
		c.errors = append(c.errors, fmt.Errorf("%s.%s: value %d must be non-negative", c.name, field, value))
	}
	return c
}

// MinDuration validates that a duration is at least min.
func (c *Checker) MinDuration(field string, value, min time.Duration) *Checker {
	if value < min {
		c.errors = append(c.errors, fmt.Errorf("%s.%s: duration %v is below minimum %v", c.name, field, value, min))
	}
	return c
}

// OneOf validates that a string field is one of the allowed values.
func (c *Checker) OneOf(field, value string, allowed []string) *Checker {
	for _, a := range allowed {
		if value == a {
			return c
		}
	}
	c.errors = append(c.errors, fmt.Errorf("%s.%s: value %q must be one of %v", c.name, field, value, allowed))
	return c
}

// HTTPURL validates that a field is an absolute http or https URL.
func (c *Checker) HTTPURL(field, value string) *Checker {
	u, err := url.Parse(value)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		c.errors = append(c.errors, fmt.Errorf("%s.%s: %q is not an http(s) URL", c.name, field, value))
	}
	return c
}

// URLScheme validates that a field is an absolute URL with one of the given schemes.
func (c *Checker) URLScheme(field, value string, schemes []string) *Checker {
	u, err := url.Parse(value)
	if err != nil || !slices.Contains(schemes, u.Scheme) || u.Host == "" {
		c.errors = append(c.errors, fmt.Errorf("%s.%s: %q must be a URL with scheme %v", c.name, field, value, schemes))
	}
	return c
}

// Custom applies a custom validation function.
func (c *Checker) Custom(field string, fn func() error) *Checker {
	if err := fn(); err != nil {
		c.errors = append(c.errors, fmt.Errorf("%s.%s: %w", c.name, field, err))
	}
	return c
}

// When conditionally applies validations if the condition is true.
func (c *Checker) When(condition bool, validations func(*Checker)) *Checker {
	if condition {
		validations(c)
	}
	return c
}

// Errors returns all validation errors.
func (c *Checker) Errors() []error {
	return c.errors
}

// Err joins every validation error, or returns nil.
func (c *Checker) Err() error {
	return errors.Join(c.errors...)
}

// DefaultOr returns the value if it's non-zero, otherwise returns the default.
func DefaultOr[T comparable](value, defaultValue T) T {
	var zero T
	if value == zero {
		return defaultValue
	}
	return value
}
