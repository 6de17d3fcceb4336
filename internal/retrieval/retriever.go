// Package retrieval scores stored feedback memories against a canonical
// style-rules query and surfaces the most relevant ones as plain-text rules
// for prompt injection.
package retrieval

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"sort"

	lru "github.com/hashicorp/golang-lru/v2"
	"golang.org/x/sync/singleflight"

	"github.com/sundai/social-agent/internal/embeddings"
	"github.com/sundai/social-agent/internal/models"
)

// CanonicalQuery is the fixed retrieval query. Embedding a static "rules"
// query instead of the day's document content keeps retrieval symmetric:
// feedback like "be funnier" is close to a query about style rules, but far
// from an arbitrary product doc.
const CanonicalQuery = "social media style guide rules, user preferences, and critical feedback to follow"

const (
	defaultLimit     = 3
	defaultThreshold = 0.15
	queryCacheSize   = 4
)

// MemoryLister provides the stored memories to score.
type MemoryLister interface {
	List(ctx context.Context) ([]models.FeedbackMemory, error)
}

// Retriever ranks feedback memories by cosine similarity to the canonical
// query. The scan is linear over all rows; the memory set is small by nature
// (one row per human rejection).
type Retriever struct {
	store     MemoryLister
	embedder  embeddings.Client
	limit     int
	threshold float64

	queryCache     *lru.Cache[string, []float32]
	queryLoadGroup singleflight.Group
	logger         *slog.Logger
}

// Option configures the Retriever.
type Option func(*Retriever)

// WithLimit caps how many rules Relevant returns.
func WithLimit(limit int) Option {
	return func(r *Retriever) {
		if limit > 0 {
			r.limit = limit
		}
	}
}

// WithThreshold sets the minimum similarity score a memory must reach.
func WithThreshold(threshold float64) Option {
	return func(r *Retriever) {
		r.threshold = threshold
	}
}

// WithLogger sets the logger. Defaults to slog.Default.
func WithLogger(logger *slog.Logger) Option {
	return func(r *Retriever) {
		if logger != nil {
			r.logger = logger
		}
	}
}

// NewRetriever creates a Retriever over the given store and embedder.
func NewRetriever(store MemoryLister, embedder embeddings.Client, opts ...Option) *Retriever {
	// The cache only ever holds the canonical query; the tiny size bounds it
	// if more queries appear later.
	cache, _ := lru.New[string, []float32](queryCacheSize)

	r := &Retriever{
		store:      store,
		embedder:   embedder,
		limit:      defaultLimit,
		threshold:  defaultThreshold,
		queryCache: cache,
		logger:     slog.Default(),
	}

	for _, opt := range opts {
		opt(r)
	}

	return r
}

// Relevant returns the top feedback rules as "<text> (Score: x.xx)" lines,
// highest score first, ties in insertion order. Retrieval is strictly
// advisory: any failure is logged and an empty slice returned so the caller
// proceeds without memory.
func (r *Retriever) Relevant(ctx context.Context) []string {
	queryEmbedding, err := r.queryEmbedding(ctx)
	if err != nil {
		r.logger.WarnContext(ctx, "memory retrieval degraded: query embedding failed", "error", err)

		return nil
	}

	memories, err := r.store.List(ctx)
	if err != nil {
		r.logger.WarnContext(ctx, "memory retrieval degraded: listing memories failed", "error", err)

		return nil
	}

	type scored struct {
		score float64
		text  string
	}

	matches := make([]scored, 0, len(memories))

	for _, memory := range memories {
		if len(memory.Embedding) == 0 {
			continue
		}

		score := cosineSimilarity(queryEmbedding, memory.Embedding)
		if score >= r.threshold {
			matches = append(matches, scored{score: score, text: memory.FeedbackText})
		}
	}

	sort.SliceStable(matches, func(i, j int) bool {
		return matches[i].score > matches[j].score
	})

	if len(matches) > r.limit {
		matches = matches[:r.limit]
	}

	rules := make([]string, 0, len(matches))
	for _, match := range matches {
		rules = append(rules, fmt.Sprintf("%s (Score: %.2f)", match.text, match.score))
	}

	return rules
}

// ScoreAll returns every stored memory with its similarity score, highest
// first, for the admin surface. Memories without an embedding score 0; if the
// query embedding cannot be produced, all scores degrade to 0 rather than
// hiding the rows.
func (r *Retriever) ScoreAll(ctx context.Context) ([]models.ScoredMemory, error) {
	memories, err := r.store.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("list memories: %w", err)
	}

	queryEmbedding, embedErr := r.queryEmbedding(ctx)
	if embedErr != nil {
		r.logger.WarnContext(ctx, "scoring degraded: query embedding failed", "error", embedErr)
	}

	scoredMemories := make([]models.ScoredMemory, 0, len(memories))

	for _, memory := range memories {
		var score float64
		if embedErr == nil && len(memory.Embedding) > 0 {
			score = cosineSimilarity(queryEmbedding, memory.Embedding)
		}

		scoredMemories = append(scoredMemories, models.ScoredMemory{
			ID:              memory.ID,
			OriginalContent: memory.OriginalContent,
			FeedbackText:    memory.FeedbackText,
			CreatedAt:       memory.CreatedAt,
			Score:           score,
		})
	}

	sort.SliceStable(scoredMemories, func(i, j int) bool {
		return scoredMemories[i].Score > scoredMemories[j].Score
	})

	return scoredMemories, nil
}

// queryEmbedding returns the canonical query vector, cached across runs.
// singleflight collapses concurrent cold-cache loads into one API call.
func (r *Retriever) queryEmbedding(ctx context.Context) ([]float32, error) {
	if vec, ok := r.queryCache.Get(CanonicalQuery); ok {
		return vec, nil
	}

	val, err, _ := r.queryLoadGroup.Do(CanonicalQuery, func() (any, error) {
		vec, loadErr := r.embedder.CreateEmbedding(ctx, CanonicalQuery)
		if loadErr != nil {
			return nil, fmt.Errorf("create embedding: %w", loadErr)
		}

		r.queryCache.Add(CanonicalQuery, vec)

		return vec, nil
	})
	if err != nil {
		return nil, err
	}

	vec, ok := val.([]float32)
	if !ok {
		return nil, fmt.Errorf("unexpected cached type %T", val)
	}

	return vec, nil
}

// cosineSimilarity computes the cosine of the angle between two vectors in
// float64 for precision. Mismatched lengths or a zero-norm vector score 0.
func cosineSimilarity(a, b []float32) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}

	var dot, normA, normB float64

	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}

	if normA == 0 || normB == 0 {
		return 0
	}

	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}
