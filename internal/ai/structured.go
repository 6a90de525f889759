package ai

import (
	"encoding/json"
	"fmt"
	"strings"
)

// Validator checks a decoded value after extraction.
type Validator[T any] func(T) error

// ExtractJSON decodes the first JSON object found in raw model output. It
// tolerates code fences, prose around the object and // or /* */ comments.
func ExtractJSON[T any](raw string, validate Validator[T]) (T, error) {
	var zero T

	block := firstObject(stripFences(raw))
	if block == "" {
		return zero, fmt.Errorf("%w: no JSON object found in response", ErrInvalidOutput)
	}

	var out T
	if err := json.Unmarshal([]byte(stripComments(block)), &out); err != nil {
		return zero, fmt.Errorf("%w: %v", ErrInvalidOutput, err)
	}
	if validate != nil {
		if err := validate(out); err != nil {
			return zero, fmt.Errorf("%w: %v", ErrInvalidOutput, err)
		}
	}
	return out, nil
}

// stripFences drops markdown fence lines and keeps their content.
func stripFences(s string) string {
	lines := strings.Split(s, "\n")
	kept := lines[:0]
	for _, line := range lines {
		if strings.HasPrefix(strings.TrimSpace(line), "```") {
			continue
		}
		kept = append(kept, line)
	}
	return strings.Join(kept, "\n")
}

// jsonScanner tracks whether a byte offset is inside a JSON string.
type jsonScanner struct {
	inString bool
	escaped  bool
}

// step consumes c and reports whether it is outside any string literal.
func (s *jsonScanner) step(c byte) bool {
	switch {
	case s.escaped:
		s.escaped = false
		return false
	case s.inString && c == '\\':
		s.escaped = true
		return false
	case c == '"':
		s.inString = !s.inString
		return false
	}
	return !s.inString
}

// firstObject returns the first balanced {...} block in s.
func firstObject(s string) string {
	start := strings.IndexByte(s, '{')
	if start < 0 {
		return ""
	}
	var sc jsonScanner
	depth := 0
	for i := start; i < len(s); i++ {
		if !sc.step(s[i]) {
			continue
		}
		switch s[i] {
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				return s[start : i+1]
			}
		}
	}
	return ""
}

// stripComments removes comments outside string literals.
func stripComments(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	var sc jsonScanner
	for i := 0; i < len(s); i++ {
		c := s[i]
		if sc.step(c) && c == '/' && i+1 < len(s) {
			switch s[i+1] {
			case '/':
				for i+1 < len(s) && s[i+1] != '\n' {
					i++
				}
				continue
			case '*':
				end := strings.Index(s[i+2:], "*/")
				if end < 0 {
					return b.String()
				}
				i += end + 3
				continue
			}
		}
		b.WriteByte(c)
	}
	return b.String()
}
