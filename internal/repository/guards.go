package repository

import (
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/jkindrix/draftwise/internal/domain"
	apperrors "github.com/jkindrix/draftwise/internal/errors"
)

// Pagination bounds for list queries.
const (
	DefaultPageSize = 20
	MaxPageSize     = 100
)

// ValidationResult collects multiple validation errors.
type ValidationResult struct {
	errors []error
}

// Validate returns a new ValidationResult for fluent validation.
func Validate() *ValidationResult {
	return &ValidationResult{}
}

// Check adds an error when condition is false.
func (v *ValidationResult) Check(condition bool, field, message string) *ValidationResult {
	if !condition {
		v.errors = append(v.errors, apperrors.ValidationFailed(fmt.Sprintf("%s %s", field, message)))
	}
	return v
}

// RequireUUID adds a UUID validation.
func (v *ValidationResult) RequireUUID(id uuid.UUID, field string) *ValidationResult {
	if err := GuardUUID(id, field); err != nil {
		v.errors = append(v.errors, err)
	}
	return v
}

// RequireString adds a non-blank string validation.
func (v *ValidationResult) RequireString(s, field string) *ValidationResult {
	if err := GuardString(s, field); err != nil {
		v.errors = append(v.errors, err)
	}
	return v
}

// HasErrors returns true if there are any validation errors.
func (v *ValidationResult) HasErrors() bool {
	return len(v.errors) > 0
}

// Error returns a combined error, or nil if there are no errors.
func (v *ValidationResult) Error() error {
	switch len(v.errors) {
	case 0:
		return nil
	case 1:
		return v.errors[0]
	}

	messages := make([]string, len(v.errors))
	for i, err := range v.errors {
		messages[i] = err.Error()
	}
	return apperrors.ValidationFailed("validation errors: " + strings.Join(messages, "; "))
}

// GuardUUID rejects the nil UUID.
func GuardUUID(id uuid.UUID, field string) error {
	if id == uuid.Nil {
		return apperrors.ValidationFailed(field + " is required")
	}
	return nil
}

// GuardString rejects blank strings.
func GuardString(s, field string) error {
	if strings.TrimSpace(s) == "" {
		return apperrors.ValidationFailed(field + " is required")
	}
	return nil
}

// NormalizePagination clamps limit and offset to safe values.
func NormalizePagination(limit, offset int) (int, int) {
	if limit <= 0 {
		limit = DefaultPageSize
	}
	if limit > MaxPageSize {
		limit = MaxPageSize
	}
	if offset < 0 {
		offset = 0
	}
	return limit, offset
}

// validateGeneration checks a record before it is written.
func validateGeneration(gen *domain.Generation) error {
	if gen == nil {
		return apperrors.ValidationFailed("generation is required")
	}
	return Validate().
		RequireUUID(gen.ID, "id").
		RequireString(gen.UserID, "user_id").
		Check(gen.ContentType.IsValid(), "content_type", "must be one of bio, project, reflection").
		Check(gen.Tone.IsValid(), "tone", "must be first-person or third-person").
		Check(gen.WordLimit >= domain.MinWordLimit && gen.WordLimit <= domain.MaxWordLimit,
			"word_limit", fmt.Sprintf("must be between %d and %d", domain.MinWordLimit, domain.MaxWordLimit)).
		RequireString(gen.GeneratedContent, "generated_content").
		Error()
}
