package domain

// Question is one entry of a question schedule.
type Question struct {
	Key         string `json:"key" yaml:"key"`
	Prompt      string `json:"prompt" yaml:"prompt"`
	Label       string `json:"label,omitempty" yaml:"label"`
	Placeholder string `json:"placeholder,omitempty" yaml:"placeholder"`
}

// Schedule is the fixed, ordered list of questions for one content type.
type Schedule struct {
	ContentType ContentType `json:"content_type" yaml:"-"`
	Title       string      `json:"title" yaml:"title"`
	NameKey     string      `json:"name_key,omitempty" yaml:"name_key"`
	Questions   []Question  `json:"questions" yaml:"questions"`
}

// Len returns the number of questions in the schedule.
func (s *Schedule) Len() int {
	if s == nil {
		return 0
	}
	return len(s.Questions)
}

// At returns the question at position i.
func (s *Schedule) At(i int) Question {
	return s.Questions[i]
}

// IndexOf returns the position of key in the schedule, or -1.
func (s *Schedule) IndexOf(key string) int {
	for i, q := range s.Questions {
		if q.Key == key {
			return i
		}
	}
	return -1
}

// Keys returns the question keys in schedule order.
func (s *Schedule) Keys() []string {
	keys := make([]string, len(s.Questions))
	for i, q := range s.Questions {
		keys[i] = q.Key
	}
	return keys
}
