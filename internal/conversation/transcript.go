package conversation

import (
	"time"

	"github.com/jkindrix/draftwise/internal/domain"
)

// ChangeOp is the kind of transcript mutation.
type ChangeOp string

const (
	ChangeAppend  ChangeOp = "append"
	ChangeRetract ChangeOp = "retract"
)

// Change is one transcript mutation, published to renderers in order.
// A retract carries the removed entry.
type Change struct {
	Op    ChangeOp               `json:"op"`
	Entry domain.TranscriptEntry `json:"entry"`
}

// transcript is append-only except that at most one confirmation entry is
// live: appending a confirmation retracts the previous one.
type transcript struct {
	entries        []domain.TranscriptEntry
	nextID         int
	confirmationID int
	pending        []Change
}

func (t *transcript) append(speaker domain.Speaker, kind domain.EntryKind, key, text, html string, at time.Time) domain.TranscriptEntry {
	if kind == domain.EntryConfirmation && t.confirmationID != 0 {
		t.retract(t.confirmationID)
	}
	t.nextID++
	e := domain.TranscriptEntry{
		ID:        t.nextID,
		Speaker:   speaker,
		Kind:      kind,
		Key:       key,
		Text:      text,
		HTML:      html,
		CreatedAt: at,
	}
	t.entries = append(t.entries, e)
	if kind == domain.EntryConfirmation {
		t.confirmationID = e.ID
	}
	t.pending = append(t.pending, Change{Op: ChangeAppend, Entry: e})
	return e
}

func (t *transcript) retract(id int) {
	for i, e := range t.entries {
		if e.ID == id {
			t.entries = append(t.entries[:i], t.entries[i+1:]...)
			t.pending = append(t.pending, Change{Op: ChangeRetract, Entry: e})
			break
		}
	}
	if t.confirmationID == id {
		t.confirmationID = 0
	}
}

func (t *transcript) snapshot() []domain.TranscriptEntry {
	out := make([]domain.TranscriptEntry, len(t.entries))
	copy(out, t.entries)
	return out
}

func (t *transcript) drain() []Change {
	out := t.pending
	t.pending = nil
	return out
}
