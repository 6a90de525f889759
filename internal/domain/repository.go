package domain

import (
	"context"

	"github.com/google/uuid"
)

// GenerationRepository defines the interface for generation persistence.
type GenerationRepository interface {
	// Create inserts a new generation record.
	Create(ctx context.Context, gen *Generation) error

	// GetByID retrieves a generation by its ID.
	GetByID(ctx context.Context, id uuid.UUID) (*Generation, error)

	// UpdateContent stores revised content for an existing generation.
	UpdateContent(ctx context.Context, gen *Generation) error

	// ListByUser retrieves a user's generations, newest first.
	ListByUser(ctx context.Context, userID string, limit, offset int) ([]*Generation, error)

	// CountByUser returns the number of generations owned by a user.
	CountByUser(ctx context.Context, userID string) (int, error)

	// Delete removes a generation.
	Delete(ctx context.Context, id uuid.UUID) error
}
