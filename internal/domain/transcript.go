package domain

import "time"

// Speaker identifies who authored a transcript entry.
type Speaker string

const (
	SpeakerSystem Speaker = "system"
	SpeakerUser   Speaker = "user"
)

// EntryKind classifies transcript entries for renderers.
type EntryKind string

const (
	EntryGreeting     EntryKind = "greeting"
	EntryPrompt       EntryKind = "prompt"
	EntryAnswer       EntryKind = "answer"
	EntryAck          EntryKind = "ack"
	EntryFeedback     EntryKind = "feedback"
	EntryConfirmation EntryKind = "confirmation"
	EntryNotice       EntryKind = "notice"
)

// TranscriptEntry is one message in a wizard conversation.
type TranscriptEntry struct {
	ID        int       `json:"id"`
	Speaker   Speaker   `json:"speaker"`
	Kind      EntryKind `json:"kind"`
	Key       string    `json:"key,omitempty"`
	Text      string    `json:"text"`
	HTML      string    `json:"html,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}
