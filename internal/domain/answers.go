package domain

// AnswerSet maps question keys to the committed answer text.
type AnswerSet map[string]string

// Clone returns a copy of the answer set.
func (a AnswerSet) Clone() AnswerSet {
	out := make(AnswerSet, len(a))
	for k, v := range a {
		out[k] = v
	}
	return out
}

// Has reports whether key has a committed answer.
func (a AnswerSet) Has(key string) bool {
	_, ok := a[key]
	return ok
}

// CompleteFor reports whether the set holds exactly the keys of schedule.
func (a AnswerSet) CompleteFor(schedule *Schedule) bool {
	if len(a) != schedule.Len() {
		return false
	}
	for _, q := range schedule.Questions {
		if !a.Has(q.Key) {
			return false
		}
	}
	return true
}

// Answer is a key/value pair in schedule order.
type Answer struct {
	Key   string `json:"key"`
	Label string `json:"label,omitempty"`
	Value string `json:"value"`
}

// Ordered returns the answers present in the set in schedule order.
func (a AnswerSet) Ordered(schedule *Schedule) []Answer {
	out := make([]Answer, 0, len(a))
	for _, q := range schedule.Questions {
		if v, ok := a[q.Key]; ok {
			out = append(out, Answer{Key: q.Key, Label: q.Label, Value: v})
		}
	}
	return out
}
