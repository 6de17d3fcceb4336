// Package repository provides data access for feedback memories.
package repository

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pgvector/pgvector-go"

	"github.com/sundai/social-agent/internal/agenterrors"
	"github.com/sundai/social-agent/internal/models"
)

// errEmbeddingScanInvalidType is returned when Scan receives an unsupported source type.
var errEmbeddingScanInvalidType = errors.New("embedding: expected []byte or string")

// nullableEmbedding scans a vector column that may be NULL. The column arrives in
// pgvector's text representation ("[0.1,0.2,...]") because the vector OID is not
// registered with pgx.
type nullableEmbedding []float32

func (n *nullableEmbedding) Scan(src any) error {
	if src == nil {
		*n = nil

		return nil
	}

	var text string

	switch v := src.(type) {
	case []byte:
		text = string(v)
	case string:
		text = v
	default:
		return fmt.Errorf("%w: got %T", errEmbeddingScanInvalidType, src)
	}

	text = strings.TrimSpace(text)
	if text == "" {
		*n = nil

		return nil
	}

	text = strings.TrimPrefix(text, "[")
	text = strings.TrimSuffix(text, "]")
	if text == "" {
		*n = nil

		return nil
	}

	parts := strings.Split(text, ",")
	vec := make([]float32, len(parts))

	for i, p := range parts {
		f, err := strconv.ParseFloat(strings.TrimSpace(p), 32)
		if err != nil {
			return fmt.Errorf("embedding decode: %w", err)
		}

		vec[i] = float32(f)
	}

	*n = vec

	return nil
}

// MemoriesRepository handles data access for feedback memory records.
// The table is append-only: records are inserted and deleted, never updated.
type MemoriesRepository struct {
	db *pgxpool.Pool
}

// NewMemoriesRepository creates a new feedback memories repository.
func NewMemoriesRepository(db *pgxpool.Pool) *MemoriesRepository {
	return &MemoriesRepository{db: db}
}

// Create inserts a new feedback memory. A nil embedding is stored as NULL
// (embedding generation failed at write time; the record scores 0 in retrieval).
func (r *MemoriesRepository) Create(ctx context.Context, req *models.CreateFeedbackMemoryRequest) (*models.FeedbackMemory, error) {
	query := `
		INSERT INTO feedback_memories (original_content, feedback_text, embedding)
		VALUES ($1, $2, $3)
		RETURNING id, original_content, feedback_text, created_at
	`

	var embedding any
	if len(req.Embedding) > 0 {
		embedding = pgvector.NewVector(req.Embedding)
	}

	var record models.FeedbackMemory

	err := r.db.QueryRow(ctx, query, req.OriginalContent, req.FeedbackText, embedding).Scan(
		&record.ID, &record.OriginalContent, &record.FeedbackText, &record.CreatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create feedback memory: %w", err)
	}

	record.Embedding = req.Embedding

	return &record, nil
}

// List retrieves all feedback memories in insertion order. Retrieval is a full
// table scan on purpose: the store is small and similarity is computed in-process.
func (r *MemoriesRepository) List(ctx context.Context) ([]models.FeedbackMemory, error) {
	query := `
		SELECT id, original_content, feedback_text, embedding, created_at
		FROM feedback_memories
		ORDER BY created_at, id
	`

	rows, err := r.db.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list feedback memories: %w", err)
	}
	defer rows.Close()

	records := []models.FeedbackMemory{} // Initialize as empty slice, not nil

	for rows.Next() {
		var record models.FeedbackMemory

		var emb nullableEmbedding

		err := rows.Scan(&record.ID, &record.OriginalContent, &record.FeedbackText, &emb, &record.CreatedAt)
		if err != nil {
			return nil, fmt.Errorf("failed to scan feedback memory: %w", err)
		}

		record.Embedding = emb

		records = append(records, record)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating feedback memories: %w", err)
	}

	return records, nil
}

// GetByID retrieves a single feedback memory by ID.
func (r *MemoriesRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.FeedbackMemory, error) {
	query := `
		SELECT id, original_content, feedback_text, embedding, created_at
		FROM feedback_memories
		WHERE id = $1
	`

	var record models.FeedbackMemory

	var emb nullableEmbedding

	err := r.db.QueryRow(ctx, query, id).Scan(
		&record.ID, &record.OriginalContent, &record.FeedbackText, &emb, &record.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, agenterrors.NewNotFoundError("feedback memory", "feedback memory not found")
		}

		return nil, fmt.Errorf("failed to get feedback memory: %w", err)
	}

	record.Embedding = emb

	return &record, nil
}

// Delete removes a feedback memory. This is an administrative operation;
// the automation write path only ever inserts.
func (r *MemoriesRepository) Delete(ctx context.Context, id uuid.UUID) error {
	query := `DELETE FROM feedback_memories WHERE id = $1`

	result, err := r.db.Exec(ctx, query, id)
	if err != nil {
		return fmt.Errorf("failed to delete feedback memory: %w", err)
	}

	if result.RowsAffected() == 0 {
		return agenterrors.NewNotFoundError("feedback memory", "feedback memory not found")
	}

	return nil
}
