package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"github.com/jkindrix/draftwise/internal/domain"
)

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS generations (
	id TEXT PRIMARY KEY,
	user_id TEXT NOT NULL,
	content_type TEXT NOT NULL CHECK (content_type IN ('bio', 'project', 'reflection')),
	tone TEXT NOT NULL CHECK (tone IN ('first-person', 'third-person')),
	word_limit INTEGER NOT NULL CHECK (word_limit BETWEEN 100 AND 1000),
	input_data TEXT NOT NULL DEFAULT '{}',
	generated_content TEXT NOT NULL,
	created_at TEXT NOT NULL,
	updated_at TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_generations_user_created ON generations (user_id, created_at DESC);
`

// sqliteTimeLayout is fixed width so stored timestamps sort lexically.
const sqliteTimeLayout = "2006-01-02T15:04:05.000000000Z07:00"

// SQLiteStore implements domain.GenerationRepository on a local SQLite file.
type SQLiteStore struct {
	db *sql.DB
}

// OpenSQLite opens (creating if needed) a SQLite database at path and
// ensures the generations schema exists. ":memory:" opens an in-memory database.
func OpenSQLite(path string) (*SQLiteStore, error) {
	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, fmt.Errorf("creating db directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}
	// One connection keeps ":memory:" databases shared and serializes writers.
	db.SetMaxOpenConns(1)

	if path != ":memory:" {
		if _, err := db.Exec("PRAGMA journal_mode = WAL"); err != nil {
			db.Close()
			return nil, fmt.Errorf("setting WAL mode: %w", err)
		}
	}

	if _, err := db.Exec(sqliteSchema); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating schema: %w", err)
	}

	return &SQLiteStore{db: db}, nil
}

// Close closes the underlying database.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// Ping checks that the database is reachable.
func (s *SQLiteStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// Create inserts a new generation record.
func (s *SQLiteStore) Create(ctx context.Context, gen *domain.Generation) error {
	if err := validateGeneration(gen); err != nil {
		return err
	}

	inputJSON, err := json.Marshal(gen.InputData)
	if err != nil {
		return fmt.Errorf("marshaling input data: %w", err)
	}

	ctx, cancel := writeContext(ctx)
	defer cancel()

	query := `INSERT INTO generations (` + GenerationColumns.InsertColumns() + `)
		VALUES (` + GenerationColumns.QuestionMarks() + `)`
	_, err = s.db.ExecContext(ctx, query,
		gen.ID.String(),
		gen.UserID,
		string(gen.ContentType),
		string(gen.Tone),
		gen.WordLimit,
		string(inputJSON),
		gen.GeneratedContent,
		gen.CreatedAt.UTC().Format(sqliteTimeLayout),
		gen.UpdatedAt.UTC().Format(sqliteTimeLayout),
	)
	if err != nil {
		return fmt.Errorf("inserting generation: %w", err)
	}
	return nil
}

// GetByID retrieves a generation by its ID.
func (s *SQLiteStore) GetByID(ctx context.Context, id uuid.UUID) (*domain.Generation, error) {
	ctx, cancel := readContext(ctx)
	defer cancel()

	query := `SELECT ` + GenerationColumns.Select() + ` FROM generations WHERE id = ?`
	gen, err := scanSQLiteGeneration(s.db.QueryRowContext(ctx, query, id.String()))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("generation %s: %w", id, ErrNotFound)
		}
		return nil, fmt.Errorf("scanning generation: %w", err)
	}
	return gen, nil
}

// UpdateContent stores revised content for an existing generation.
func (s *SQLiteStore) UpdateContent(ctx context.Context, gen *domain.Generation) error {
	ctx, cancel := writeContext(ctx)
	defer cancel()

	query := `UPDATE generations SET generated_content = ?, updated_at = ? WHERE id = ?`
	result, err := s.db.ExecContext(ctx, query,
		gen.GeneratedContent,
		gen.UpdatedAt.UTC().Format(sqliteTimeLayout),
		gen.ID.String(),
	)
	if err != nil {
		return fmt.Errorf("updating generation: %w", err)
	}
	return requireAffected(result, gen.ID)
}

// ListByUser retrieves a user's generations, newest first.
func (s *SQLiteStore) ListByUser(ctx context.Context, userID string, limit, offset int) ([]*domain.Generation, error) {
	limit, offset = NormalizePagination(limit, offset)
	ctx, cancel := listContext(ctx)
	defer cancel()

	query := `SELECT ` + GenerationColumns.Select() + `
		FROM generations
		WHERE user_id = ?
		ORDER BY created_at DESC
		LIMIT ? OFFSET ?`
	rows, err := s.db.QueryContext(ctx, query, userID, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("listing generations: %w", err)
	}
	defer rows.Close()

	var gens []*domain.Generation
	for rows.Next() {
		gen, err := scanSQLiteGeneration(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning generation row: %w", err)
		}
		gens = append(gens, gen)
	}
	return gens, rows.Err()
}

// CountByUser returns the number of generations owned by a user.
func (s *SQLiteStore) CountByUser(ctx context.Context, userID string) (int, error) {
	ctx, cancel := readContext(ctx)
	defer cancel()

	var count int
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM generations WHERE user_id = ?`, userID).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("counting generations: %w", err)
	}
	return count, nil
}

// Delete removes a generation.
func (s *SQLiteStore) Delete(ctx context.Context, id uuid.UUID) error {
	ctx, cancel := writeContext(ctx)
	defer cancel()

	result, err := s.db.ExecContext(ctx, `DELETE FROM generations WHERE id = ?`, id.String())
	if err != nil {
		return fmt.Errorf("deleting generation: %w", err)
	}
	return requireAffected(result, id)
}

func requireAffected(result sql.Result, id uuid.UUID) error {
	n, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("reading rows affected: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("generation %s: %w", id, ErrNotFound)
	}
	return nil
}

func scanSQLiteGeneration(row rowScanner) (*domain.Generation, error) {
	var (
		gen                  domain.Generation
		id, inputJSON        string
		contentType, tone    string
		createdAt, updatedAt string
	)

	err := row.Scan(
		&id, &gen.UserID, &contentType, &tone, &gen.WordLimit,
		&inputJSON, &gen.GeneratedContent, &createdAt, &updatedAt,
	)
	if err != nil {
		return nil, err
	}

	if gen.ID, err = uuid.Parse(id); err != nil {
		return nil, fmt.Errorf("parsing id: %w", err)
	}
	gen.ContentType = domain.ContentType(contentType)
	gen.Tone = domain.Tone(tone)
	if gen.CreatedAt, err = time.Parse(sqliteTimeLayout, createdAt); err != nil {
		return nil, fmt.Errorf("parsing created_at: %w", err)
	}
	if gen.UpdatedAt, err = time.Parse(sqliteTimeLayout, updatedAt); err != nil {
		return nil, fmt.Errorf("parsing updated_at: %w", err)
	}
	if err := decodeInput([]byte(inputJSON), &gen); err != nil {
		return nil, err
	}
	return &gen, nil
}

var _ domain.GenerationRepository = (*SQLiteStore)(nil)
