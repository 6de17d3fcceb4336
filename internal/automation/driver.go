// Package automation orchestrates the daily run: fetch the source document,
// draft and publish a brand post behind human approval, then run the keyword
// engagement goal. Rejection feedback is embedded and persisted so future
// drafts improve.
package automation

import (
	"context"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"time"

	"github.com/sundai/social-agent/internal/approval"
	"github.com/sundai/social-agent/internal/embeddings"
	"github.com/sundai/social-agent/internal/llm"
	"github.com/sundai/social-agent/internal/models"
	"github.com/sundai/social-agent/internal/observability"
)

// Callback ids correlate button presses with the goal that sent them.
const (
	brandPostCallbackID  = "brand_post"
	engagementCallbackID = "engagement"
)

const (
	defaultBatchSize     = 5
	defaultReplyDelayMin = 30 * time.Second
	defaultReplyDelayMax = 90 * time.Second
)

// DocumentSource fetches the day's source material.
type DocumentSource interface {
	GetPageText(ctx context.Context, pageID string) (string, error)
}

// Publisher is the outbound social publishing surface.
type Publisher interface {
	// PublishPost publishes the approved draft and returns the confirmation.
	PublishPost(ctx context.Context, post *models.SocialPost) (*models.PublishedStatus, error)
	// SearchStatuses finds recent third-party posts matching the keyword.
	SearchStatuses(ctx context.Context, keyword string, limit int) ([]models.ExternalStatus, error)
	// PublishReply publishes one reply to an external status.
	PublishReply(ctx context.Context, replyText, inReplyToID string) error
}

// Approver runs one human approval session to a terminal outcome.
type Approver interface {
	Await(ctx context.Context, req approval.Request) (approval.Result, error)
}

// MemoryWriter persists rejection feedback.
type MemoryWriter interface {
	Create(ctx context.Context, req *models.CreateFeedbackMemoryRequest) (*models.FeedbackMemory, error)
}

// FeedbackRetriever supplies the feedback rules injected into generation.
type FeedbackRetriever interface {
	Relevant(ctx context.Context) []string
}

// Params wires the Driver's collaborators. Metrics may be nil.
type Params struct {
	Source    DocumentSource
	Generator llm.Generator
	Publisher Publisher
	Approver  Approver
	Memories  MemoryWriter
	Embedder  embeddings.Client
	Retriever FeedbackRetriever

	PageID        string
	BatchSize     int
	ReplyDelayMin time.Duration
	ReplyDelayMax time.Duration

	Metrics *observability.Metrics
	Logger  *slog.Logger
}

// Driver runs the automation goals in sequence.
type Driver struct {
	source    DocumentSource
	generator llm.Generator
	publisher Publisher
	approver  Approver
	memories  MemoryWriter
	embedder  embeddings.Client
	retriever FeedbackRetriever

	pageID        string
	batchSize     int
	replyDelayMin time.Duration
	replyDelayMax time.Duration

	// sleep is injectable so tests run without real delays.
	sleep func(ctx context.Context, d time.Duration) error

	metrics *observability.Metrics
	logger  *slog.Logger
}

// NewDriver creates a Driver.
func NewDriver(p Params) *Driver {
	logger := p.Logger
	if logger == nil {
		logger = slog.Default()
	}

	batchSize := p.BatchSize
	if batchSize <= 0 {
		batchSize = defaultBatchSize
	}

	delayMin, delayMax := p.ReplyDelayMin, p.ReplyDelayMax
	if delayMin <= 0 || delayMax < delayMin {
		delayMin, delayMax = defaultReplyDelayMin, defaultReplyDelayMax
	}

	return &Driver{
		source:        p.Source,
		generator:     p.Generator,
		publisher:     p.Publisher,
		approver:      p.Approver,
		memories:      p.Memories,
		embedder:      p.Embedder,
		retriever:     p.Retriever,
		pageID:        p.PageID,
		batchSize:     batchSize,
		replyDelayMin: delayMin,
		replyDelayMax: delayMax,
		sleep:         sleepContext,
		metrics:       p.Metrics,
		logger:        logger,
	}
}

// Run executes one full automation pass: brand post first, engagement second.
// A hard failure in either goal aborts the run; skips and rejections do not.
func (d *Driver) Run(ctx context.Context) error {
	docs, err := d.source.GetPageText(ctx, d.pageID)
	if err != nil {
		return fmt.Errorf("fetch source document: %w", err)
	}

	if err := d.runBrandPost(ctx, docs); err != nil {
		return err
	}

	return d.runEngagement(ctx, docs)
}

// runBrandPost drafts a post with retrieved feedback rules, asks a human, and
// either publishes the draft or turns the rejection feedback into memory.
func (d *Driver) runBrandPost(ctx context.Context, docs string) error {
	rules := d.retriever.Relevant(ctx)

	d.logger.InfoContext(ctx, "generating brand post", "feedback_rules", len(rules))

	draft, err := d.generator.GeneratePost(ctx, docs, rules)
	if err != nil {
		return fmt.Errorf("generate post: %w", err)
	}

	result, err := d.approver.Await(ctx, approval.Request{
		CallbackID:    brandPostCallbackID,
		Preview:       "*DRAFT POST:*\n" + draft.Content,
		AllowFeedback: true,
		MemoryLines:   rules,
	})
	if err != nil {
		return fmt.Errorf("brand post approval: %w", err)
	}

	d.metrics.RecordApprovalOutcome("brand_post", result.Outcome.String())

	switch result.Outcome {
	case approval.OutcomeApproved:
		status, err := d.publisher.PublishPost(ctx, draft)
		if err != nil {
			return fmt.Errorf("publish post: %w", err)
		}

		d.metrics.RecordPostPublished()
		d.logger.InfoContext(ctx, "post published", "url", status.URL)

	case approval.OutcomeRejectedWithFeedback:
		d.saveFeedback(ctx, draft, result.Feedback)

	default:
		d.logger.InfoContext(ctx, "brand post skipped", "outcome", result.Outcome.String())
	}

	return nil
}

// saveFeedback embeds the rejected draft together with the human's feedback
// and persists the pair. Never fails the run: a lost memory only costs future
// draft quality.
func (d *Driver) saveFeedback(ctx context.Context, draft *models.SocialPost, feedback string) {
	combined := fmt.Sprintf("Post: %s\nFeedback: %s", draft.Content, feedback)

	embedding, err := d.embedder.CreateEmbedding(ctx, combined)
	if err != nil {
		// The record is still worth keeping; it scores 0 until re-embedded.
		d.logger.WarnContext(ctx, "embedding feedback failed, saving without vector", "error", err)

		embedding = nil
	}

	_, err = d.memories.Create(ctx, &models.CreateFeedbackMemoryRequest{
		OriginalContent: draft.Content,
		FeedbackText:    feedback,
		Embedding:       embedding,
	})
	if err != nil {
		d.logger.ErrorContext(ctx, "failed to save feedback memory", "error", err)

		return
	}

	d.metrics.RecordMemorySaved()
	d.logger.InfoContext(ctx, "feedback saved to memory")
}

// runEngagement extracts keywords, asks a human to confirm the first one, and
// replies to recent posts matching it. Individual reply failures are logged
// and skipped; the batch continues.
func (d *Driver) runEngagement(ctx context.Context, docs string) error {
	keywords, err := d.generator.ExtractKeywords(ctx, docs)
	if err != nil {
		return fmt.Errorf("extract keywords: %w", err)
	}

	if len(keywords) == 0 {
		d.logger.InfoContext(ctx, "no keywords extracted, skipping engagement")

		return nil
	}

	keyword := keywords[0]

	result, err := d.approver.Await(ctx, approval.Request{
		CallbackID: engagementCallbackID,
		Preview:    fmt.Sprintf("*Engagement Check*\nKeyword: `%s`\nShould I find and reply to posts?", keyword),
	})
	if err != nil {
		return fmt.Errorf("engagement approval: %w", err)
	}

	d.metrics.RecordApprovalOutcome("engagement", result.Outcome.String())

	if result.Outcome != approval.OutcomeApproved {
		d.logger.InfoContext(ctx, "engagement skipped", "outcome", result.Outcome.String())

		return nil
	}

	posts, err := d.publisher.SearchStatuses(ctx, keyword, d.batchSize)
	if err != nil {
		return fmt.Errorf("search statuses: %w", err)
	}

	if len(posts) == 0 {
		d.logger.InfoContext(ctx, "no recent posts found", "keyword", keyword)

		return nil
	}

	batch, err := d.generator.GenerateReplies(ctx, docs, posts)
	if err != nil {
		return fmt.Errorf("generate replies: %w", err)
	}

	for _, reply := range batch.AllReplies {
		// Spacing out replies keeps the account from looking like a bot.
		delay := d.replyDelay()
		d.logger.InfoContext(ctx, "waiting before next reply", "delay", delay)

		if err := d.sleep(ctx, delay); err != nil {
			return fmt.Errorf("reply delay: %w", err)
		}

		if err := d.publisher.PublishReply(ctx, reply.ReplyText, reply.PostID); err != nil {
			d.logger.WarnContext(ctx, "could not reply", "post_id", reply.PostID, "error", err)

			continue
		}

		d.metrics.RecordReplyPublished()
		d.logger.InfoContext(ctx, "replied to post", "post_id", reply.PostID)
	}

	return nil
}

// replyDelay picks a uniform delay within the configured window.
func (d *Driver) replyDelay() time.Duration {
	window := d.replyDelayMax - d.replyDelayMin

	return d.replyDelayMin + rand.N(window+1)
}

// sleepContext sleeps for d unless the context is cancelled first.
func sleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
