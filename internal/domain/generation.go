package domain

import (
	"time"

	"github.com/google/uuid"
)

// AnonymousOwner is used when a request carries no user identity.
const AnonymousOwner = "anonymous"

// Generation is a persisted piece of generated content and the answers it came from.
type Generation struct {
	ID               uuid.UUID   `json:"id"`
	UserID           string      `json:"user_id"`
	ContentType      ContentType `json:"content_type"`
	Tone             Tone        `json:"tone"`
	WordLimit        int         `json:"word_limit"`
	InputData        AnswerSet   `json:"input_data"`
	GeneratedContent string      `json:"generated_content"`
	CreatedAt        time.Time   `json:"created_at"`
	UpdatedAt        time.Time   `json:"updated_at"`
}

// NewGeneration creates a Generation with a fresh ID, created and updated at now.
func NewGeneration(userID string, contentType ContentType, tone Tone, wordLimit int, input AnswerSet, content string, now time.Time) *Generation {
	if userID == "" {
		userID = AnonymousOwner
	}
	now = now.UTC()
	return &Generation{
		ID:               uuid.New(),
		UserID:           userID,
		ContentType:      contentType,
		Tone:             tone,
		WordLimit:        wordLimit,
		InputData:        input.Clone(),
		GeneratedContent: content,
		CreatedAt:        now,
		UpdatedAt:        now,
	}
}

// Revise replaces the generated content after a refinement made at now.
func (g *Generation) Revise(content string, now time.Time) {
	g.GeneratedContent = content
	g.UpdatedAt = now.UTC()
}

// Title returns a short display title for the generation.
func (g *Generation) Title() string {
	for _, key := range []string{"name", "projectName", "topic"} {
		if v := g.InputData[key]; v != "" {
			return g.ContentType.Label() + ": " + v
		}
	}
	return g.ContentType.Label()
}
