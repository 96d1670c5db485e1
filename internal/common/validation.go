package common

import (
	"fmt"
	"strings"
	"time"
)

// FieldError is one failed check on a named config or request field.
type FieldError struct {
	Field   string
	Value   any
	Message string
}

func (e FieldError) Error() string {
	return fmt.Sprintf("%s=%v: %s", e.Field, e.Value, e.Message)
}

// Rule checks one value and returns a failure message, or "" when it passes.
type Rule func(value any) string

// Checker collects field failures so every problem is reported at once.
type Checker struct {
	failures []FieldError
}

func NewChecker() *Checker {
	return &Checker{}
}

// Check runs rules against value and records each failure under field.
func (c *Checker) Check(field string, value any, rules ...Rule) *Checker {
	for _, rule := range rules {
		if msg := rule(value); msg != "" {
			c.failures = append(c.failures, FieldError{Field: field, Value: value, Message: msg})
		}
	}
	return c
}

func (c *Checker) Failures() []FieldError {
	return c.failures
}

// Err joins the failures into one error of the given code, or returns nil.
func (c *Checker) Err(code string) error {
	if len(c.failures) == 0 {
		return nil
	}
	msgs := make([]string, len(c.failures))
	for i, f := range c.failures {
		msgs[i] = f.Error()
	}
	return NewAppError(code, strings.Join(msgs, "; "), ErrInvalidInput)
}

// NotBlank rejects empty or whitespace-only strings.
func NotBlank(value any) string {
	if s, ok := value.(string); ok && strings.TrimSpace(s) == "" {
		return "must not be blank"
	}
	return ""
}

// Between requires an int within [lo, hi].
func Between(lo, hi int) Rule {
	return func(value any) string {
		n, ok := value.(int)
		if !ok {
			return "must be an integer"
		}
		if n < lo || n > hi {
			return fmt.Sprintf("must be between %d and %d", lo, hi)
		}
		return ""
	}
}

// NonNegativeDuration rejects negative durations.
func NonNegativeDuration(value any) string {
	if d, ok := value.(time.Duration); ok && d < 0 {
		return "must not be negative"
	}
	return ""
}

// AnyOf accepts the listed strings case-insensitively. Empty strings pass.
func AnyOf(allowed ...string) Rule {
	return func(value any) string {
		s, _ := value.(string)
		if s == "" {
			return ""
		}
		for _, a := range allowed {
			if strings.EqualFold(strings.TrimSpace(s), a) {
				return ""
			}
		}
		return "must be one of " + strings.Join(allowed, ", ")
	}
}
