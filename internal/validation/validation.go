// Package validation provides input validation for wizard answers and API requests.
package validation

import (
	"fmt"
	"strings"
	"unicode/utf8"
)

// ValidationError represents a validation failure with field context.
type ValidationError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
	Code    string `json:"code"`
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// ValidationErrors is a collection of validation errors.
type ValidationErrors []ValidationError

func (e ValidationErrors) Error() string {
	if len(e) == 0 {
		return "validation failed"
	}
	msgs := make([]string, len(e))
	for i, err := range e {
		msgs[i] = err.Error()
	}
	return strings.Join(msgs, "; ")
}

// HasErrors returns true if there are any validation errors.
func (e ValidationErrors) HasErrors() bool {
	return len(e) > 0
}

// FieldErrors returns errors for a specific field.
func (e ValidationErrors) FieldErrors(field string) ValidationErrors {
	var result ValidationErrors
	for _, err := range e {
		if err.Field == field {
			result = append(result, err)
		}
	}
	return result
}

// Error codes for validation failures.
const (
	CodeRequired      = "required"
	CodeInvalidFormat = "invalid_format"
	CodeTooLong       = "too_long"
	CodeTooShort      = "too_short"
	CodeInvalidValue  = "invalid_value"
	CodeMalicious     = "malicious_content"
	CodePlaceholder   = "placeholder"
	CodeUnknownField  = "unknown_field"
)

// Validator accumulates field validation errors.
type Validator struct {
	errors ValidationErrors
}

// New creates a new Validator.
func New() *Validator {
	return &Validator{}
}

// Errors returns all accumulated validation errors.
func (v *Validator) Errors() ValidationErrors {
	return v.errors
}

// IsValid returns true if no validation errors occurred.
func (v *Validator) IsValid() bool {
	return len(v.errors) == 0
}

// AddError adds a validation error.
func (v *Validator) AddError(field, message, code string) {
	v.errors = append(v.errors, ValidationError{
		Field:   field,
		Message: message,
		Code:    code,
	})
}

// Required validates that a string field is not empty.
func (v *Validator) Required(field, value string) bool {
	if strings.TrimSpace(value) == "" {
		v.AddError(field, "is required", CodeRequired)
		return false
	}
	return true
}

// MaxLength validates string length doesn't exceed maximum.
func (v *Validator) MaxLength(field, value string, maxLen int) bool {
	if utf8.RuneCountInString(value) > maxLen {
		v.AddError(field, fmt.Sprintf("must be at most %d characters", maxLen), CodeTooLong)
		return false
	}
	return true
}

// MinLength validates string length meets minimum.
func (v *Validator) MinLength(field, value string, minLen int) bool {
	if utf8.RuneCountInString(value) < minLen {
		v.AddError(field, fmt.Sprintf("must be at least %d characters", minLen), CodeTooShort)
		return false
	}
	return true
}

// OneOf validates that value is one of the allowed values.
func (v *Validator) OneOf(field, value string, allowed []string) bool {
	if value == "" {
		return true
	}
	for _, a := range allowed {
		if value == a {
			return true
		}
	}
	v.AddError(field, fmt.Sprintf("must be one of: %s", strings.Join(allowed, ", ")), CodeInvalidValue)
	return false
}

// NoScriptTags validates that the value doesn't contain script tags (XSS prevention).
func (v *Validator) NoScriptTags(field, value string) bool {
	lower := strings.ToLower(value)
	if strings.Contains(lower, "<script") || strings.Contains(lower, "javascript:") {
		v.AddError(field, "contains potentially malicious content", CodeMalicious)
		return false
	}
	return true
}

// SafeString validates a string is safe for display (no control characters except newlines).
func (v *Validator) SafeString(field, value string) bool {
	for _, r := range value {
		// Allow printable characters, newlines, tabs
		if r < 32 && r != '\n' && r != '\r' && r != '\t' {
			v.AddError(field, "contains invalid control characters", CodeMalicious)
			return false
		}
	}
	return true
}

// NonNegativeInt validates that an integer is not negative (zero or positive).
func (v *Validator) NonNegativeInt(field string, value int) bool {
	if value < 0 {
		v.AddError(field, "must not be negative", CodeInvalidValue)
		return false
	}
	return true
}

// Range validates an integer is within range.
func (v *Validator) Range(field string, value, minVal, maxVal int) bool {
	if value < minVal || value > maxVal {
		v.AddError(field, fmt.Sprintf("must be between %d and %d", minVal, maxVal), CodeInvalidValue)
		return false
	}
	return true
}

// PaginationConfig contains constraints for pagination parameters.
type PaginationConfig struct {
	MaxLimit     int
	DefaultLimit int
	MaxOffset    int
}

// DefaultPaginationConfig returns sensible defaults for pagination.
func DefaultPaginationConfig() *PaginationConfig {
	return &PaginationConfig{
		MaxLimit:     100,
		DefaultLimit: 20,
		MaxOffset:    10000,
	}
}

// PaginationParams represents validated pagination parameters.
type PaginationParams struct {
	Limit  int
	Offset int
}

// NormalizePaginationParams normalizes limit and offset without strict validation.
// Use this when you want to silently clamp values instead of returning errors.
func NormalizePaginationParams(limit, offset int, cfg *PaginationConfig) PaginationParams {
	if cfg == nil {
		cfg = DefaultPaginationConfig()
	}

	// Clamp limit
	if limit <= 0 {
		limit = cfg.DefaultLimit
	} else if limit > cfg.MaxLimit {
		limit = cfg.MaxLimit
	}

	// Clamp offset
	if offset < 0 {
		offset = 0
	} else if offset > cfg.MaxOffset {
		offset = cfg.MaxOffset
	}

	return PaginationParams{
		Limit:  limit,
		Offset: offset,
	}
}
