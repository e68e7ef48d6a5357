// Package validator provides composable field validation rules for the
// registration data collected at checkout: required fields, e-mail and phone
// formats, and Brazilian tax ids (CPF/CNPJ).
package validator

import (
	"errors"
	"fmt"
	"strings"
)

// ValidationError represents a single field validation failure.
type ValidationError struct {
	Field   string
	Message string
}

// ValidationErrors is a collection of field validation failures.
type ValidationErrors []ValidationError

func (ve ValidationErrors) Error() string {
	if len(ve) == 0 {
		return "validation failed"
	}
	parts := make([]string, 0, len(ve))
	for _, err := range ve {
		parts = append(parts, fmt.Sprintf("%s: %s", err.Field, err.Message))
	}
	return "validation failed: " + strings.Join(parts, "; ")
}

// Has reports whether any error exists for the given field.
func (ve ValidationErrors) Has(field string) bool {
	for _, err := range ve {
		if err.Field == field {
			return true
		}
	}
	return false
}

// Fields returns the distinct field names that failed validation.
func (ve ValidationErrors) Fields() []string {
	seen := make(map[string]bool, len(ve))
	var fields []string
	for _, err := range ve {
		if !seen[err.Field] {
			fields = append(fields, err.Field)
			seen[err.Field] = true
		}
	}
	return fields
}

// Rule is a single validation check with its failure description.
type Rule struct {
	Check func() bool
	Error ValidationError
}

// Apply runs the rules and returns accumulated ValidationErrors, or nil when
// everything passes.
func Apply(rules ...Rule) error {
	var errs ValidationErrors
	for _, rule := range rules {
		if !rule.Check() {
			errs = append(errs, rule.Error)
		}
	}
	if len(errs) == 0 {
		return nil
	}
	return errs
}

// Extract returns the ValidationErrors wrapped in err, or nil.
func Extract(err error) ValidationErrors {
	var ve ValidationErrors
	if errors.As(err, &ve) {
		return ve
	}
	return nil
}

// IsValidationError reports whether err carries ValidationErrors.
func IsValidationError(err error) bool {
	var ve ValidationErrors
	return errors.As(err, &ve)
}
