package handlers

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/google/uuid"

	"github.com/sundai/social-agent/internal/agenterrors"
	"github.com/sundai/social-agent/internal/api/response"
	"github.com/sundai/social-agent/internal/models"
)

// MemoryScorer lists every stored memory with its current relevance score.
type MemoryScorer interface {
	ScoreAll(ctx context.Context) ([]models.ScoredMemory, error)
}

// MemoryStore provides the by-id operations of the memory repository.
type MemoryStore interface {
	GetByID(ctx context.Context, id uuid.UUID) (*models.FeedbackMemory, error)
	Delete(ctx context.Context, id uuid.UUID) error
}

// MemoriesHandler exposes the admin surface over the feedback memory store.
type MemoriesHandler struct {
	scorer MemoryScorer
	store  MemoryStore
	logger *slog.Logger
}

// NewMemoriesHandler creates a memories handler.
func NewMemoriesHandler(scorer MemoryScorer, store MemoryStore, logger *slog.Logger) *MemoriesHandler {
	if logger == nil {
		logger = slog.Default()
	}

	return &MemoriesHandler{scorer: scorer, store: store, logger: logger}
}

// List handles GET /v1/memories: every record with its score, highest first.
func (h *MemoriesHandler) List(w http.ResponseWriter, r *http.Request) {
	scored, err := h.scorer.ScoreAll(r.Context())
	if err != nil {
		h.logger.ErrorContext(r.Context(), "failed to list memories", "error", err)
		response.RespondInternalServerError(w, "Failed to list memories")

		return
	}

	if scored == nil {
		scored = []models.ScoredMemory{}
	}

	response.RespondJSON(w, http.StatusOK, models.ListMemoriesResponse{
		Data:  scored,
		Total: len(scored),
	})
}

// Get handles GET /v1/memories/{id}.
func (h *MemoriesHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		response.RespondBadRequest(w, "Invalid memory ID format")

		return
	}

	record, err := h.store.GetByID(r.Context(), id)
	if err != nil {
		var notFoundErr *agenterrors.NotFoundError
		if errors.As(err, &notFoundErr) {
			response.RespondNotFound(w, "Memory not found")

			return
		}

		h.logger.ErrorContext(r.Context(), "failed to get memory", "error", err, "id", id.String())
		response.RespondInternalServerError(w, "Failed to get memory")

		return
	}

	response.RespondJSON(w, http.StatusOK, record)
}

// Delete handles DELETE /v1/memories/{id}.
func (h *MemoriesHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		response.RespondBadRequest(w, "Invalid memory ID format")

		return
	}

	if err := h.store.Delete(r.Context(), id); err != nil {
		var notFoundErr *agenterrors.NotFoundError
		if errors.As(err, &notFoundErr) {
			response.RespondNotFound(w, "Memory not found")

			return
		}

		h.logger.ErrorContext(r.Context(), "failed to delete memory", "error", err, "id", id.String())
		response.RespondInternalServerError(w, "Failed to delete memory")

		return
	}

	w.WriteHeader(http.StatusNoContent)
}
