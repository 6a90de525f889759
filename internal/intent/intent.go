// Package intent classifies a free-text answer given while revising a field
// that already holds a value.
package intent

import "regexp"

// Intent is how a revision relates to the prior value.
type Intent int

const (
	// Replace discards the prior value.
	Replace Intent = iota
	// Append extends the prior value.
	Append
	// KeepUnchanged leaves the prior value as it is.
	KeepUnchanged
)

func (i Intent) String() string {
	switch i {
	case Replace:
		return "replace"
	case Append:
		return "append"
	case KeepUnchanged:
		return "keep"
	default:
		return "unknown"
	}
}

var (
	keepPattern        = regexp.MustCompile(`(?i)\b(same|keep|no change|that'?s fine|ok)\b`)
	additivePattern    = regexp.MustCompile(`(?i)\b(also|and|additionally|plus|as well|too|furthermore|moreover)\b`)
	replacementPattern = regexp.MustCompile(`(?i)\b(actually|change to|replace with|instead|rather than)\b|\bnot\b.*\bbut\b`)
)

// AppendSeparator joins a prior value and an appended revision.
const AppendSeparator = ". "

// Classify decides the intent of text. Keep markers are checked first and
// match anywhere, so "I also keep bees" keeps the prior value. Replacement
// markers win over additive ones.
func Classify(text string) Intent {
	if keepPattern.MatchString(text) {
		return KeepUnchanged
	}
	if replacementPattern.MatchString(text) {
		return Replace
	}
	if additivePattern.MatchString(text) {
		return Append
	}
	return Replace
}

// Compose classifies text against prior and returns the value to carry
// forward. With an empty prior every revision is a replacement.
func Compose(prior, text string) (Intent, string) {
	if prior == "" {
		return Replace, text
	}
	switch in := Classify(text); in {
	case KeepUnchanged:
		return in, prior
	case Append:
		return in, prior + AppendSeparator + text
	default:
		return Replace, text
	}
}
