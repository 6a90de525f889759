// Package repository implements generation persistence on PostgreSQL and SQLite.
package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/jkindrix/draftwise/internal/domain"
)

// pgxQuerier is the subset of pgxpool.Pool the repository uses.
type pgxQuerier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// GenerationRepository implements domain.GenerationRepository using PostgreSQL.
type GenerationRepository struct {
	pool pgxQuerier
}

// NewGenerationRepository creates a new GenerationRepository.
func NewGenerationRepository(pool *pgxpool.Pool) *GenerationRepository {
	return &GenerationRepository{pool: pool}
}

// Create inserts a new generation record.
func (r *GenerationRepository) Create(ctx context.Context, gen *domain.Generation) error {
	if err := validateGeneration(gen); err != nil {
		return err
	}

	inputJSON, err := json.Marshal(gen.InputData)
	if err != nil {
		return fmt.Errorf("failed to marshal input data: %w", err)
	}

	ctx, cancel := writeContext(ctx)
	defer cancel()

	query := `
		INSERT INTO generations (` + GenerationColumns.InsertColumns() + `)
		VALUES (` + GenerationColumns.Placeholders() + `)`

	_, err = r.pool.Exec(ctx, query,
		gen.ID,
		gen.UserID,
		gen.ContentType,
		gen.Tone,
		gen.WordLimit,
		inputJSON,
		gen.GeneratedContent,
		gen.CreatedAt,
		gen.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert generation: %w", err)
	}

	return nil
}

// GetByID retrieves a generation by its ID.
func (r *GenerationRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.Generation, error) {
	if err := GuardUUID(id, "id"); err != nil {
		return nil, err
	}

	ctx, cancel := readContext(ctx)
	defer cancel()

	query := `SELECT ` + GenerationColumns.Select() + ` FROM generations WHERE id = $1`

	gen, err := scanGeneration(r.pool.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to scan generation: %w", err)
	}
	return gen, nil
}

// UpdateContent stores revised content for an existing generation.
func (r *GenerationRepository) UpdateContent(ctx context.Context, gen *domain.Generation) error {
	if err := GuardUUID(gen.ID, "id"); err != nil {
		return err
	}

	ctx, cancel := writeContext(ctx)
	defer cancel()

	query := `
		UPDATE generations SET
			generated_content = $2,
			updated_at = $3
		WHERE id = $1`

	result, err := r.pool.Exec(ctx, query, gen.ID, gen.GeneratedContent, gen.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to update generation: %w", err)
	}
	if result.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// ListByUser retrieves a user's generations, newest first.
func (r *GenerationRepository) ListByUser(ctx context.Context, userID string, limit, offset int) ([]*domain.Generation, error) {
	if err := GuardString(userID, "user_id"); err != nil {
		return nil, err
	}
	limit, offset = NormalizePagination(limit, offset)

	ctx, cancel := listContext(ctx)
	defer cancel()

	query := `
		SELECT ` + GenerationColumns.Select() + `
		FROM generations
		WHERE user_id = $1
		ORDER BY created_at DESC
		LIMIT $2 OFFSET $3`

	rows, err := r.pool.Query(ctx, query, userID, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to query generations: %w", err)
	}
	defer rows.Close()

	var gens []*domain.Generation
	for rows.Next() {
		gen, err := scanGeneration(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan generation row: %w", err)
		}
		gens = append(gens, gen)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating generations: %w", err)
	}

	return gens, nil
}

// CountByUser returns the number of generations owned by a user.
func (r *GenerationRepository) CountByUser(ctx context.Context, userID string) (int, error) {
	ctx, cancel := readContext(ctx)
	defer cancel()

	var count int
	err := r.pool.QueryRow(ctx, "SELECT COUNT(*) FROM generations WHERE user_id = $1", userID).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count generations: %w", err)
	}
	return count, nil
}

// Delete removes a generation.
func (r *GenerationRepository) Delete(ctx context.Context, id uuid.UUID) error {
	ctx, cancel := writeContext(ctx)
	defer cancel()

	result, err := r.pool.Exec(ctx, "DELETE FROM generations WHERE id = $1", id)
	if err != nil {
		return fmt.Errorf("failed to delete generation: %w", err)
	}
	if result.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// rowScanner is satisfied by pgx.Row and pgx.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

func scanGeneration(row rowScanner) (*domain.Generation, error) {
	gen := &domain.Generation{}
	var inputJSON []byte

	err := row.Scan(
		&gen.ID,
		&gen.UserID,
		&gen.ContentType,
		&gen.Tone,
		&gen.WordLimit,
		&inputJSON,
		&gen.GeneratedContent,
		&gen.CreatedAt,
		&gen.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	if err := decodeInput(inputJSON, gen); err != nil {
		return nil, err
	}
	return gen, nil
}

func decodeInput(raw []byte, gen *domain.Generation) error {
	gen.InputData = domain.AnswerSet{}
	if len(raw) == 0 {
		return nil
	}
	if err := json.Unmarshal(raw, &gen.InputData); err != nil {
		return fmt.Errorf("failed to unmarshal input data: %w", err)
	}
	return nil
}

// Compile-time check.
var _ domain.GenerationRepository = (*GenerationRepository)(nil)
