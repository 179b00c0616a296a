package validation

import (
	"errors"
	"fmt"
)

// ConfigValidator collects every problem of a configuration section instead of
// stopping at the first one. Methods chain.
type ConfigValidator struct {
	section string
	errs    []error
}

// NewConfigValidator returns a validator whose messages are prefixed by section.
func NewConfigValidator(section string) *ConfigValidator {
	return &ConfigValidator{section: section}
}

func (cv *ConfigValidator) fail(field string, err error) {
	cv.errs = append(cv.errs, fmt.Errorf("%s.%s: %w", cv.section, field, err))
}

// NonNegativeFloat rejects values below zero.
func (cv *ConfigValidator) NonNegativeFloat(field string, value float64) *ConfigValidator {
	if value < 0 {
		cv.fail(field, fmt.Errorf("value %g must be non-negative", value))
	}
	return cv
}

// Unique rejects repeated values. Each repeat is reported once.
func (cv *ConfigValidator) Unique(field string, values []string) *ConfigValidator {
	seen := make(map[string]int, len(values))
	for _, v := range values {
		seen[v]++
		if seen[v] == 2 {
			cv.fail(field, fmt.Errorf("duplicate value %q", v))
		}
	}
	return cv
}

// Each runs parse on every value and reports each failure at its index.
// Errors returned by parse stay visible to errors.Is.
func (cv *ConfigValidator) Each(field string, values []string, parse func(string) error) *ConfigValidator {
	for i, v := range values {
		if err := parse(v); err != nil {
			cv.fail(fmt.Sprintf("%s[%d]", field, i), err)
		}
	}
	return cv
}

// Custom records the error returned by fn, if any.
func (cv *ConfigValidator) Custom(field string, fn func() error) *ConfigValidator {
	if err := fn(); err != nil {
		cv.fail(field, err)
	}
	return cv
}

// When runs validations only if condition holds.
func (cv *ConfigValidator) When(condition bool, validations func(*ConfigValidator)) *ConfigValidator {
	if condition {
		validations(cv)
	}
	return cv
}

// HasErrors reports whether anything failed.
func (cv *ConfigValidator) HasErrors() bool {
	return len(cv.errs) > 0
}

// Errors returns the collected errors in the order they were found.
func (cv *ConfigValidator) Errors() []error {
	return cv.errs
}

// Validate returns nil, the single error, or all errors joined.
func (cv *ConfigValidator) Validate() error {
	switch len(cv.errs) {
	case 0:
		return nil
	case 1:
		return cv.errs[0]
	}
	return fmt.Errorf("%s validation failed with %d errors: %w", cv.section, len(cv.errs), errors.Join(cv.errs...))
}

// DefaultOrInt returns value when positive, otherwise fallback.
func DefaultOrInt(value, fallback int) int {
	if value > 0 {
		return value
	}
	return fallback
}
