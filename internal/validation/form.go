package validation

import (
	"sort"

	"github.com/jkindrix/draftwise/internal/domain"
)

// MaxAnswerLength caps a single answer in characters.
const MaxAnswerLength = 5000

// ValidateForm checks a flat-form submission against a schedule. Every
// question is required and keys outside the schedule are rejected.
func ValidateForm(schedule *domain.Schedule, answers domain.AnswerSet) ValidationErrors {
	v := New()
	for _, q := range schedule.Questions {
		value := answers[q.Key]
		if !v.Required(q.Key, value) {
			continue
		}
		v.MaxLength(q.Key, value, MaxAnswerLength)
		v.SafeString(q.Key, value)
	}

	var unknown []string
	for key := range answers {
		if schedule.IndexOf(key) < 0 {
			unknown = append(unknown, key)
		}
	}
	sort.Strings(unknown)
	for _, key := range unknown {
		v.AddError(key, "is not a question for "+string(schedule.ContentType), CodeUnknownField)
	}
	return v.Errors()
}

// GenerationParams are the knobs of a content generation request.
type GenerationParams struct {
	Tone      domain.Tone
	WordLimit int
}

// NormalizeGenerationParams fills defaults for zero values.
func NormalizeGenerationParams(p GenerationParams) GenerationParams {
	if p.Tone == "" {
		p.Tone = domain.ToneFirstPerson
	}
	if p.WordLimit == 0 {
		p.WordLimit = domain.DefaultWordLimit
	}
	return p
}

// ValidateGenerationParams checks tone and word limit after normalization.
func ValidateGenerationParams(p GenerationParams) ValidationErrors {
	v := New()
	v.OneOf("tone", string(p.Tone), []string{string(domain.ToneFirstPerson), string(domain.ToneThirdPerson)})
	v.Range("word_limit", p.WordLimit, domain.MinWordLimit, domain.MaxWordLimit)
	return v.Errors()
}

// ValidateRefinement checks a refinement prompt.
func ValidateRefinement(prompt string) ValidationErrors {
	v := New()
	if v.Required("prompt", prompt) {
		v.MaxLength("prompt", prompt, MaxAnswerLength)
		v.SafeString("prompt", prompt)
		v.NoScriptTags("prompt", prompt)
	}
	return v.Errors()
}
