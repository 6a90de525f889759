package validation

import (
	"regexp"
	"strings"
	"unicode/utf8"
)

// DefaultMinAnswerLength is the minimum trimmed answer length in characters.
const DefaultMinAnswerLength = 10

// Rejection messages shown to the user in the transcript.
const (
	MessageTooShort    = "That seems a bit short. Could you provide more details?"
	MessagePlaceholder = "I need real information to help you. Please share actual details."
)

var placeholderPattern = regexp.MustCompile(`(?i)^(test|example|sample|n/a|na|none|idk|i don't know)$`)

// AnswerCheck is the outcome of a local answer check.
type AnswerCheck struct {
	Accepted bool
	Code     string
	Reason   string
}

// AnswerValidator rejects obviously insufficient answers before any remote call.
type AnswerValidator struct {
	MinLength int
}

// NewAnswerValidator returns a validator with the given minimum length.
// A non-positive minLength selects DefaultMinAnswerLength.
func NewAnswerValidator(minLength int) *AnswerValidator {
	if minLength <= 0 {
		minLength = DefaultMinAnswerLength
	}
	return &AnswerValidator{MinLength: minLength}
}

// Check applies the rules in order; the first failing rule wins.
func (v *AnswerValidator) Check(answer string) AnswerCheck {
	trimmed := strings.TrimSpace(answer)
	if utf8.RuneCountInString(trimmed) < v.MinLength {
		return AnswerCheck{Code: CodeTooShort, Reason: MessageTooShort}
	}
	if placeholderPattern.MatchString(trimmed) {
		return AnswerCheck{Code: CodePlaceholder, Reason: MessagePlaceholder}
	}
	return AnswerCheck{Accepted: true}
}
