package models

import (
	"time"

	"github.com/google/uuid"
)

// FeedbackMemory is one persisted piece of rejection feedback: the draft that was
// rejected, what the human said about it, and an embedding of both combined.
// Records are append-only; they are inserted and deleted but never updated.
type FeedbackMemory struct {
	ID              uuid.UUID `json:"id"`
	OriginalContent string    `json:"original_content"`
	FeedbackText    string    `json:"feedback_text"`
	// Embedding is nil when embedding generation failed at write time.
	// Such records score 0 in retrieval, never an error.
	Embedding []float32 `json:"-"`
	CreatedAt time.Time `json:"created_at"`
}

// CreateFeedbackMemoryRequest carries the fields for a new memory record.
type CreateFeedbackMemoryRequest struct {
	OriginalContent string
	FeedbackText    string
	// Embedding may be nil when the embedding collaborator failed (fail-soft).
	Embedding []float32
}

// ScoredMemory is a memory record annotated with its cosine similarity against
// the canonical retrieval query. Score is 0 when the record has no embedding.
type ScoredMemory struct {
	ID              uuid.UUID `json:"id"`
	OriginalContent string    `json:"original_content"`
	FeedbackText    string    `json:"feedback_text"`
	Score           float64   `json:"score"`
	CreatedAt       time.Time `json:"created_at"`
}

// ListMemoriesResponse is the admin listing payload: every record, scored.
type ListMemoriesResponse struct {
	Data  []ScoredMemory `json:"data"`
	Total int            `json:"total"`
}
