// Package schedule provides the fixed question schedules for each content type.
package schedule

import (
	_ "embed"
	"errors"
	"fmt"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/jkindrix/draftwise/internal/domain"
)

//go:embed schedules.yaml
var defaultSchedules []byte

// ErrUnknownContentType is returned for content types without a schedule.
var ErrUnknownContentType = errors.New("unknown content type")

// Registry holds one schedule per content type. It is immutable after Load.
type Registry struct {
	schedules map[domain.ContentType]*domain.Schedule
	order     []domain.ContentType
}

// Default returns the registry built from the embedded schedules.
// It panics if the embedded data is invalid, which is a build defect.
func Default() *Registry {
	r, err := Load(defaultSchedules)
	if err != nil {
		panic(fmt.Sprintf("schedule: invalid embedded schedules: %v", err))
	}
	return r
}

// Load parses schedules from YAML keyed by content type.
func Load(data []byte) (*Registry, error) {
	var raw yaml.Node
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("failed to parse schedules: %w", err)
	}
	if len(raw.Content) == 0 || raw.Content[0].Kind != yaml.MappingNode {
		return nil, errors.New("schedules must be a mapping of content type to schedule")
	}

	r := &Registry{schedules: make(map[domain.ContentType]*domain.Schedule)}
	root := raw.Content[0]
	for i := 0; i+1 < len(root.Content); i += 2 {
		ct := domain.ContentType(root.Content[i].Value)
		var s domain.Schedule
		if err := root.Content[i+1].Decode(&s); err != nil {
			return nil, fmt.Errorf("failed to decode schedule %q: %w", ct, err)
		}
		s.ContentType = ct
		if err := check(&s); err != nil {
			return nil, fmt.Errorf("schedule %q: %w", ct, err)
		}
		r.schedules[ct] = &s
		r.order = append(r.order, ct)
	}
	return r, nil
}

func check(s *domain.Schedule) error {
	if s.Len() == 0 {
		return errors.New("no questions")
	}
	seen := make(map[string]bool, s.Len())
	for i, q := range s.Questions {
		if strings.TrimSpace(q.Key) == "" {
			return fmt.Errorf("question %d has no key", i)
		}
		if strings.TrimSpace(q.Prompt) == "" {
			return fmt.Errorf("question %q has no prompt", q.Key)
		}
		if seen[q.Key] {
			return fmt.Errorf("duplicate key %q", q.Key)
		}
		seen[q.Key] = true
	}
	if s.NameKey != "" && !seen[s.NameKey] {
		return fmt.Errorf("name_key %q is not a question", s.NameKey)
	}
	return nil
}

// Get returns the schedule for a content type.
func (r *Registry) Get(ct domain.ContentType) (*domain.Schedule, error) {
	s, ok := r.schedules[ct]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownContentType, ct)
	}
	return s, nil
}

// Types returns the content types in declaration order.
func (r *Registry) Types() []domain.ContentType {
	out := make([]domain.ContentType, len(r.order))
	copy(out, r.order)
	return out
}
