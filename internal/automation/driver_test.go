package automation

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sundai/social-agent/internal/approval"
	"github.com/sundai/social-agent/internal/models"
)

type fakeSource struct {
	text string
	err  error
}

func (s *fakeSource) GetPageText(_ context.Context, _ string) (string, error) {
	return s.text, s.err
}

type fakeGenerator struct {
	post        *models.SocialPost
	postErr     error
	keywords    []string
	keywordsErr error
	batch       *models.ReplyBatch
	batchErr    error

	postRules []string
}

func (g *fakeGenerator) GeneratePost(_ context.Context, _ string, rules []string) (*models.SocialPost, error) {
	g.postRules = rules

	return g.post, g.postErr
}

func (g *fakeGenerator) ExtractKeywords(_ context.Context, _ string) ([]string, error) {
	return g.keywords, g.keywordsErr
}

func (g *fakeGenerator) GenerateReplies(_ context.Context, _ string, _ []models.ExternalStatus) (*models.ReplyBatch, error) {
	return g.batch, g.batchErr
}

type fakePublisher struct {
	published *models.SocialPost
	statuses  []models.ExternalStatus
	searchErr error

	replies     []string
	replyIDs    []string
	failReplyID string
}

func (p *fakePublisher) PublishPost(_ context.Context, post *models.SocialPost) (*models.PublishedStatus, error) {
	p.published = post

	return &models.PublishedStatus{ID: "1", URL: "https://example.social/@brand/1"}, nil
}

func (p *fakePublisher) SearchStatuses(_ context.Context, _ string, _ int) ([]models.ExternalStatus, error) {
	return p.statuses, p.searchErr
}

func (p *fakePublisher) PublishReply(_ context.Context, replyText, inReplyToID string) error {
	if inReplyToID == p.failReplyID {
		return errors.New("status gone")
	}

	p.replies = append(p.replies, replyText)
	p.replyIDs = append(p.replyIDs, inReplyToID)

	return nil
}

type fakeApprover struct {
	results  map[string]approval.Result
	requests []approval.Request
}

func (a *fakeApprover) Await(_ context.Context, req approval.Request) (approval.Result, error) {
	a.requests = append(a.requests, req)

	return a.results[req.CallbackID], nil
}

type fakeMemories struct {
	created []*models.CreateFeedbackMemoryRequest
	err     error
}

func (m *fakeMemories) Create(_ context.Context, req *models.CreateFeedbackMemoryRequest) (*models.FeedbackMemory, error) {
	if m.err != nil {
		return nil, m.err
	}

	m.created = append(m.created, req)

	return &models.FeedbackMemory{}, nil
}

type fakeEmbedder struct {
	vec   []float32
	err   error
	texts []string
}

func (e *fakeEmbedder) CreateEmbedding(_ context.Context, text string) ([]float32, error) {
	e.texts = append(e.texts, text)

	return e.vec, e.err
}

type fakeRetriever struct {
	rules []string
}

func (r *fakeRetriever) Relevant(_ context.Context) []string {
	return r.rules
}

type fixture struct {
	source    *fakeSource
	generator *fakeGenerator
	publisher *fakePublisher
	approver  *fakeApprover
	memories  *fakeMemories
	embedder  *fakeEmbedder
	retriever *fakeRetriever
	delays    []time.Duration
	driver    *Driver
}

func newFixture() *fixture {
	f := &fixture{
		source:    &fakeSource{text: "quarterly valuation report"},
		generator: &fakeGenerator{
			post:     &models.SocialPost{Content: "a sharp take on valuations", Hashtags: []string{"#fintech"}},
			keywords: []string{"valuation", "startups"},
			batch:    &models.ReplyBatch{},
		},
		publisher: &fakePublisher{},
		approver:  &fakeApprover{results: map[string]approval.Result{}},
		memories:  &fakeMemories{},
		embedder:  &fakeEmbedder{vec: []float32{0.1, 0.2}},
		retriever: &fakeRetriever{},
	}

	f.driver = NewDriver(Params{
		Source:        f.source,
		Generator:     f.generator,
		Publisher:     f.publisher,
		Approver:      f.approver,
		Memories:      f.memories,
		Embedder:      f.embedder,
		Retriever:     f.retriever,
		PageID:        "page-1",
		BatchSize:     5,
		ReplyDelayMin: 30 * time.Second,
		ReplyDelayMax: 90 * time.Second,
	})

	f.driver.sleep = func(_ context.Context, d time.Duration) error {
		f.delays = append(f.delays, d)

		return nil
	}

	return f
}

func TestRunPublishesApprovedPost(t *testing.T) {
	f := newFixture()
	f.retriever.rules = []string{"be funnier (Score: 0.50)"}
	f.approver.results[brandPostCallbackID] = approval.Result{Outcome: approval.OutcomeApproved}

	require.NoError(t, f.driver.Run(context.Background()))

	require.NotNil(t, f.publisher.published)
	assert.Equal(t, "a sharp take on valuations", f.publisher.published.Content)
	assert.Empty(t, f.memories.created)

	// Retrieved rules flow into generation and into the reviewer preview.
	assert.Equal(t, []string{"be funnier (Score: 0.50)"}, f.generator.postRules)
	require.NotEmpty(t, f.approver.requests)
	assert.Equal(t, []string{"be funnier (Score: 0.50)"}, f.approver.requests[0].MemoryLines)
	assert.True(t, f.approver.requests[0].AllowFeedback)
}

func TestRunSavesRejectionFeedbackAsMemory(t *testing.T) {
	f := newFixture()
	f.approver.results[brandPostCallbackID] = approval.Result{
		Outcome:  approval.OutcomeRejectedWithFeedback,
		Feedback: "be funnier",
	}

	require.NoError(t, f.driver.Run(context.Background()))

	assert.Nil(t, f.publisher.published)

	require.Len(t, f.memories.created, 1)
	created := f.memories.created[0]
	assert.Equal(t, "a sharp take on valuations", created.OriginalContent)
	assert.Equal(t, "be funnier", created.FeedbackText)
	assert.Equal(t, []float32{0.1, 0.2}, created.Embedding)

	// The draft and the feedback are embedded together.
	require.Len(t, f.embedder.texts, 1)
	assert.Equal(t, "Post: a sharp take on valuations\nFeedback: be funnier", f.embedder.texts[0])
}

func TestRunSavesMemoryWithoutVectorWhenEmbeddingFails(t *testing.T) {
	f := newFixture()
	f.embedder.err = errors.New("embedding API down")
	f.approver.results[brandPostCallbackID] = approval.Result{
		Outcome:  approval.OutcomeRejectedWithFeedback,
		Feedback: "avoid jargon",
	}

	require.NoError(t, f.driver.Run(context.Background()))

	require.Len(t, f.memories.created, 1)
	assert.Nil(t, f.memories.created[0].Embedding)
}

func TestRunSurvivesMemorySaveFailure(t *testing.T) {
	f := newFixture()
	f.memories.err = errors.New("db down")
	f.approver.results[brandPostCallbackID] = approval.Result{
		Outcome:  approval.OutcomeRejectedWithFeedback,
		Feedback: "be funnier",
	}

	require.NoError(t, f.driver.Run(context.Background()))
}

func TestRunSkipsRejectedPostAndContinues(t *testing.T) {
	f := newFixture()
	f.approver.results[brandPostCallbackID] = approval.Result{Outcome: approval.OutcomeRejectedNoFeedback}
	f.approver.results[engagementCallbackID] = approval.Result{Outcome: approval.OutcomeRejectedNoFeedback}

	require.NoError(t, f.driver.Run(context.Background()))

	assert.Nil(t, f.publisher.published)
	assert.Empty(t, f.memories.created)

	// The engagement goal still ran its approval.
	require.Len(t, f.approver.requests, 2)
	assert.Equal(t, engagementCallbackID, f.approver.requests[1].CallbackID)
	assert.False(t, f.approver.requests[1].AllowFeedback)
	assert.Contains(t, f.approver.requests[1].Preview, "valuation")
}

func TestRunEngagementRepliesWithDelays(t *testing.T) {
	f := newFixture()
	f.approver.results[brandPostCallbackID] = approval.Result{Outcome: approval.OutcomeRejectedNoFeedback}
	f.approver.results[engagementCallbackID] = approval.Result{Outcome: approval.OutcomeApproved}
	f.publisher.statuses = []models.ExternalStatus{
		{ID: "101", Account: "alice", Content: "valuations are hard"},
		{ID: "102", Account: "bob", Content: "DCF is dead"},
		{ID: "103", Account: "carol", Content: "multiples only"},
	}
	f.publisher.failReplyID = "102"
	f.generator.batch = &models.ReplyBatch{AllReplies: []models.PostReply{
		{PostID: "101", ReplyText: "great point"},
		{PostID: "102", ReplyText: "have you tried multiples"},
		{PostID: "103", ReplyText: "agreed"},
	}}

	require.NoError(t, f.driver.Run(context.Background()))

	// The failed reply is skipped, the rest of the batch continues.
	assert.Equal(t, []string{"101", "103"}, f.publisher.replyIDs)

	require.Len(t, f.delays, 3)
	for _, delay := range f.delays {
		assert.GreaterOrEqual(t, delay, 30*time.Second)
		assert.LessOrEqual(t, delay, 90*time.Second)
	}
}

func TestRunSkipsEngagementWithoutKeywords(t *testing.T) {
	f := newFixture()
	f.approver.results[brandPostCallbackID] = approval.Result{Outcome: approval.OutcomeRejectedNoFeedback}
	f.generator.keywords = nil

	require.NoError(t, f.driver.Run(context.Background()))

	require.Len(t, f.approver.requests, 1, "no engagement approval without a keyword")
}

func TestRunSkipsEngagementWithoutMatchingPosts(t *testing.T) {
	f := newFixture()
	f.approver.results[brandPostCallbackID] = approval.Result{Outcome: approval.OutcomeRejectedNoFeedback}
	f.approver.results[engagementCallbackID] = approval.Result{Outcome: approval.OutcomeApproved}
	f.publisher.statuses = nil

	require.NoError(t, f.driver.Run(context.Background()))

	assert.Empty(t, f.publisher.replyIDs)
	assert.Empty(t, f.delays)
}

func TestRunFailsWhenSourceUnavailable(t *testing.T) {
	f := newFixture()
	f.source.err = errors.New("notion down")

	require.Error(t, f.driver.Run(context.Background()))
	assert.Empty(t, f.approver.requests)
}

func TestRunFailsWhenGenerationExhausted(t *testing.T) {
	f := newFixture()
	f.generator.post = nil
	f.generator.postErr = errors.New("model unavailable")

	require.Error(t, f.driver.Run(context.Background()))
	assert.Empty(t, f.approver.requests, "engagement must not run after a hard generation failure")
}
