// Package sanitize masks personal data in user answers and error messages
// before they reach logs or traces.
package sanitize

import (
	"regexp"
	"strings"
	"unicode/utf8"
)

// DefaultPreviewLength is the rune budget of an answer preview.
const DefaultPreviewLength = 40

var (
	phonePattern      = regexp.MustCompile(`\+?[1-9]\d{6,14}`)
	emailPattern      = regexp.MustCompile(`[a-zA-Z0-9._%+-]+@[a-zA-Z0-9.-]+\.[a-zA-Z]{2,}`)
	apiKeyPattern     = regexp.MustCompile(`(?i)(api[_-]?key|apikey|secret|token|password|x-api-key)[=:\s"']*([\w-]{16,})`)
	bearerPattern     = regexp.MustCompile(`(?i)bearer\s+[\w.-]+`)
	providerKey       = regexp.MustCompile(`\b(sk-[\w-]{16,}|AIza[\w-]{20,})`)
	creditCardPattern = regexp.MustCompile(`\b(?:\d{4}[-\s]?){3}\d{4}\b`)
)

// Sanitizer masks sensitive substrings.
type Sanitizer struct {
	rules []rule
}

type rule struct {
	pattern *regexp.Regexp
	replace func(string) string
}

// Config selects which kinds of data are masked.
type Config struct {
	MaskPhones      bool
	MaskEmails      bool
	MaskSecrets     bool
	MaskCreditCards bool
}

// DefaultConfig returns a configuration with all masking enabled.
func DefaultConfig() Config {
	return Config{
		MaskPhones:      true,
		MaskEmails:      true,
		MaskSecrets:     true,
		MaskCreditCards: true,
	}
}

// New creates a new Sanitizer with the given configuration.
func New(cfg Config) *Sanitizer {
	s := &Sanitizer{}
	if cfg.MaskSecrets {
		// Secrets first so a long key is not half-eaten by the phone rule.
		s.rules = append(s.rules,
			rule{apiKeyPattern, maskAPIKey},
			rule{bearerPattern, func(string) string { return "Bearer [REDACTED]" }},
			rule{providerKey, func(string) string { return "[REDACTED-KEY]" }},
		)
	}
	if cfg.MaskCreditCards {
		s.rules = append(s.rules, rule{creditCardPattern, maskCreditCard})
	}
	if cfg.MaskEmails {
		s.rules = append(s.rules, rule{emailPattern, maskEmail})
	}
	if cfg.MaskPhones {
		s.rules = append(s.rules, rule{phonePattern, maskPhone})
	}
	return s
}

// NewDefault creates a sanitizer with default configuration.
func NewDefault() *Sanitizer {
	return New(DefaultConfig())
}

// String masks all sensitive data in input.
func (s *Sanitizer) String(input string) string {
	result := input
	for _, r := range s.rules {
		result = r.pattern.ReplaceAllStringFunc(result, r.replace)
	}
	return result
}

// Error sanitizes an error message.
func (s *Sanitizer) Error(err error) string {
	if err == nil {
		return ""
	}
	return s.String(err.Error())
}

// Preview masks text, collapses whitespace and truncates it to max runes.
// A max of zero or less uses DefaultPreviewLength.
func (s *Sanitizer) Preview(text string, max int) string {
	if max <= 0 {
		max = DefaultPreviewLength
	}
	masked := strings.Join(strings.Fields(s.String(text)), " ")
	if utf8.RuneCountInString(masked) <= max {
		return masked
	}
	runes := []rune(masked)
	return string(runes[:max]) + "…"
}

// Answers returns previews of every answer, keyed like the input.
func (s *Sanitizer) Answers(answers map[string]string) map[string]string {
	out := make(map[string]string, len(answers))
	for k, v := range answers {
		out[k] = s.Preview(v, 0)
	}
	return out
}

func maskPhone(phone string) string {
	if len(phone) <= 5 {
		return "****"
	}
	return phone[:3] + strings.Repeat("*", len(phone)-5) + phone[len(phone)-2:]
}

func maskEmail(email string) string {
	at := strings.Index(email, "@")
	if at <= 0 {
		return "[email]"
	}
	if at <= 2 {
		return email[:1] + "***" + email[at:]
	}
	return email[:2] + "***" + email[at:]
}

func maskAPIKey(match string) string {
	parts := apiKeyPattern.FindStringSubmatch(match)
	if len(parts) == 3 {
		return strings.TrimSuffix(match, parts[2]) + "[REDACTED]"
	}
	return "[REDACTED-KEY]"
}

func maskCreditCard(cc string) string {
	clean := strings.NewReplacer("-", "", " ", "").Replace(cc)
	return "****-****-****-" + clean[len(clean)-4:]
}

// APIKey masks a configured key for startup logs.
func APIKey(key string) string {
	if key == "" {
		return ""
	}
	if len(key) <= 8 {
		return "[REDACTED]"
	}
	return key[:4] + "..." + key[len(key)-4:]
}
