package validation

import (
	"strings"
	"testing"
)

func TestValidator_Required(t *testing.T) {
	tests := []struct {
		name    string
		value   string
		isValid bool
	}{
		{"non-empty", "hello", true},
		{"empty", "", false},
		{"whitespace only", "   ", false},
		{"tabs only", "\t\t", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v := New()
			result := v.Required("field", tt.value)
			if result != tt.isValid {
				t.Errorf("Required() = %v, want %v", result, tt.isValid)
			}
			if tt.isValid && len(v.Errors()) > 0 {
				t.Errorf("expected no errors, got %v", v.Errors())
			}
			if !tt.isValid && len(v.Errors()) == 0 {
				t.Error("expected errors, got none")
			}
		})
	}
}

func TestValidator_MaxLength(t *testing.T) {
	tests := []struct {
		name    string
		value   string
		max     int
		isValid bool
	}{
		{"under limit", "hello", 10, true},
		{"at limit", "hello", 5, true},
		{"over limit", "hello world", 5, false},
		{"empty string", "", 5, true},
		{"unicode characters", "héllo", 5, true},
		{"unicode over limit", "héllo wörld", 5, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v := New()
			result := v.MaxLength("field", tt.value, tt.max)
			if result != tt.isValid {
				t.Errorf("MaxLength() = %v, want %v", result, tt.isValid)
			}
		})
	}
}

func TestValidator_MinLength(t *testing.T) {
	tests := []struct {
		name    string
		value   string
		min     int
		isValid bool
	}{
		{"over minimum", "hello world", 5, true},
		{"at minimum", "hello", 5, true},
		{"under minimum", "hi", 5, false},
		{"empty string", "", 5, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v := New()
			result := v.MinLength("field", tt.value, tt.min)
			if result != tt.isValid {
				t.Errorf("MinLength() = %v, want %v", result, tt.isValid)
			}
		})
	}
}

func TestValidator_OneOf(t *testing.T) {
	allowed := []string{"apple", "banana", "cherry"}

	tests := []struct {
		name    string
		value   string
		isValid bool
	}{
		{"first option", "apple", true},
		{"last option", "cherry", true},
		{"not allowed", "orange", false},
		{"empty allowed", "", true},
		{"case sensitive", "Apple", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v := New()
			result := v.OneOf("fruit", tt.value, allowed)
			if result != tt.isValid {
				t.Errorf("OneOf(%q) = %v, want %v", tt.value, result, tt.isValid)
			}
		})
	}
}

func TestValidator_NoScriptTags(t *testing.T) {
	tests := []struct {
		name    string
		value   string
		isValid bool
	}{
		{"clean text", "Hello world", true},
		{"html safe", "<b>bold</b>", true},
		{"script tag", "<script>alert(1)</script>", false},
		{"uppercase script", "<SCRIPT>alert(1)</SCRIPT>", false},
		{"mixed case script", "<ScRiPt>alert(1)</script>", false},
		{"javascript protocol", "javascript:alert(1)", false},
		{"clean url", "https://example.com", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v := New()
			result := v.NoScriptTags("content", tt.value)
			if result != tt.isValid {
				t.Errorf("NoScriptTags(%q) = %v, want %v", tt.value, result, tt.isValid)
			}
		})
	}
}

func TestValidator_SafeString(t *testing.T) {
	tests := []struct {
		name    string
		value   string
		isValid bool
	}{
		{"normal text", "Hello world", true},
		{"with newline", "Hello\nworld", true},
		{"with tab", "Hello\tworld", true},
		{"with carriage return", "Hello\rworld", true},
		{"with null byte", "Hello\x00world", false},
		{"with control char", "Hello\x01world", false},
		{"with bell", "Hello\x07world", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v := New()
			result := v.SafeString("text", tt.value)
			if result != tt.isValid {
				t.Errorf("SafeString() = %v, want %v", result, tt.isValid)
			}
		})
	}
}

func TestValidator_NonNegativeInt(t *testing.T) {
	tests := []struct {
		name    string
		value   int
		isValid bool
	}{
		{"positive", 5, true},
		{"zero", 0, true},
		{"negative", -1, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v := New()
			result := v.NonNegativeInt("count", tt.value)
			if result != tt.isValid {
				t.Errorf("NonNegativeInt(%d) = %v, want %v", tt.value, result, tt.isValid)
			}
		})
	}
}

func TestValidator_Range(t *testing.T) {
	tests := []struct {
		name    string
		value   int
		min     int
		max     int
		isValid bool
	}{
		{"in range", 5, 1, 10, true},
		{"at min", 1, 1, 10, true},
		{"at max", 10, 1, 10, true},
		{"below min", 0, 1, 10, false},
		{"above max", 11, 1, 10, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v := New()
			result := v.Range("value", tt.value, tt.min, tt.max)
			if result != tt.isValid {
				t.Errorf("Range(%d, %d, %d) = %v, want %v", tt.value, tt.min, tt.max, result, tt.isValid)
			}
		})
	}
}

func TestValidationErrors_Error(t *testing.T) {
	errs := ValidationErrors{
		{Field: "name", Message: "is required", Code: CodeRequired},
		{Field: "email", Message: "is invalid", Code: CodeInvalidFormat},
	}

	result := errs.Error()
	if !strings.Contains(result, "name") || !strings.Contains(result, "email") {
		t.Errorf("Error() should contain field names, got: %s", result)
	}
}

func TestValidationErrors_FieldErrors(t *testing.T) {
	errs := ValidationErrors{
		{Field: "name", Message: "is required"},
		{Field: "email", Message: "is invalid"},
		{Field: "name", Message: "is too short"},
	}

	nameErrors := errs.FieldErrors("name")
	if len(nameErrors) != 2 {
		t.Errorf("FieldErrors(name) = %d errors, want 2", len(nameErrors))
	}
}

func TestNormalizePaginationParams(t *testing.T) {
	tests := []struct {
		name       string
		limit      int
		offset     int
		wantLimit  int
		wantOffset int
	}{
		{"valid params", 10, 5, 10, 5},
		{"zero limit clamped", 0, 0, 20, 0},
		{"negative limit clamped", -5, 0, 20, 0},
		{"over max limit clamped", 2000, 0, 100, 0},
		{"negative offset clamped", 10, -1, 10, 0},
		{"over max offset clamped", 10, 200000, 10, 10000},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := NormalizePaginationParams(tt.limit, tt.offset, nil)
			if result.Limit != tt.wantLimit {
				t.Errorf("NormalizePaginationParams() limit = %d, want %d", result.Limit, tt.wantLimit)
			}
			if result.Offset != tt.wantOffset {
				t.Errorf("NormalizePaginationParams() offset = %d, want %d", result.Offset, tt.wantOffset)
			}
		})
	}
}
