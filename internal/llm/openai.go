package llm

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	openaisdk "github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"

	"github.com/sundai/social-agent/internal/models"
)

var (
	// ErrNoChoicesInResponse is returned when the API response contains no completion choices.
	ErrNoChoicesInResponse = errors.New("llm: no choices in response")
	// ErrNoKeywords is returned when keyword extraction produced an empty list.
	ErrNoKeywords = errors.New("llm: no keywords extracted")
)

const (
	postMaxAttempts  = 3
	postRetryBackoff = 2 * time.Second
)

// Client implements Generator on an OpenAI-compatible chat completions API
// with JSON-schema structured output.
type Client struct {
	sdk          openaisdk.Client
	model        string
	baseURL      string
	retryBackoff time.Duration
	logger       *slog.Logger
}

// Ensure Client implements Generator interface
var _ Generator = (*Client)(nil)

// ClientOption configures the Client.
type ClientOption func(*Client)

// WithBaseURL points the SDK at a non-default endpoint (e.g. OpenRouter).
func WithBaseURL(baseURL string) ClientOption {
	return func(c *Client) {
		c.baseURL = baseURL
	}
}

// WithRetryBackoff overrides the fixed sleep between post generation attempts.
func WithRetryBackoff(d time.Duration) ClientOption {
	return func(c *Client) {
		c.retryBackoff = d
	}
}

// WithLogger sets the logger. Defaults to slog.Default.
func WithLogger(logger *slog.Logger) ClientOption {
	return func(c *Client) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// NewClient creates a generation client for the given model.
func NewClient(apiKey, model string, opts ...ClientOption) *Client {
	client := &Client{
		model:        model,
		retryBackoff: postRetryBackoff,
		logger:       slog.Default(),
	}

	for _, opt := range opts {
		opt(client)
	}

	sdkOpts := []option.RequestOption{option.WithAPIKey(apiKey)}
	if client.baseURL != "" {
		sdkOpts = append(sdkOpts, option.WithBaseURL(client.baseURL))
	}

	client.sdk = openaisdk.NewClient(sdkOpts...)

	return client
}

// GeneratePost drafts a brand post. Retries up to 3 attempts with a fixed
// backoff; after that the error surfaces and the caller aborts the goal.
func (c *Client) GeneratePost(ctx context.Context, source string, feedbackRules []string) (*models.SocialPost, error) {
	prompt := postPrompt(source, feedbackRules)

	var lastErr error

	for attempt := 1; attempt <= postMaxAttempts; attempt++ {
		var post models.SocialPost

		err := c.complete(ctx, prompt, "social_media_post", socialPostSchema, &post)
		if err == nil {
			return &post, nil
		}

		lastErr = err
		c.logger.WarnContext(ctx, "post generation failed",
			"attempt", attempt, "max_attempts", postMaxAttempts, "error", err)

		if attempt < postMaxAttempts {
			select {
			case <-ctx.Done():
				return nil, fmt.Errorf("generate post: %w", ctx.Err())
			case <-time.After(c.retryBackoff):
			}
		}
	}

	return nil, fmt.Errorf("generate post after %d attempts: %w", postMaxAttempts, lastErr)
}

// ExtractKeywords identifies search keywords. Single attempt by design.
func (c *Client) ExtractKeywords(ctx context.Context, source string) ([]string, error) {
	var keywords models.BusinessKeywords

	if err := c.complete(ctx, keywordsPrompt(source), "business_keywords", businessKeywordsSchema, &keywords); err != nil {
		return nil, err
	}

	if len(keywords.PrimaryKeywords) == 0 {
		return nil, ErrNoKeywords
	}

	return keywords.PrimaryKeywords, nil
}

// GenerateReplies drafts one reply per external status. Single attempt by design.
func (c *Client) GenerateReplies(ctx context.Context, brandContext string, posts []models.ExternalStatus) (*models.ReplyBatch, error) {
	var batch models.ReplyBatch

	if err := c.complete(ctx, repliesPrompt(brandContext, posts), "reply_batch", replyBatchSchema, &batch); err != nil {
		return nil, err
	}

	return &batch, nil
}

// complete runs one chat completion with a strict JSON-schema response format
// and unmarshals the result into out.
func (c *Client) complete(ctx context.Context, prompt, schemaName string, schema map[string]any, out any) error {
	resp, err := c.sdk.Chat.Completions.New(ctx, openaisdk.ChatCompletionNewParams{
		Messages: []openaisdk.ChatCompletionMessageParamUnion{
			openaisdk.UserMessage(prompt),
		},
		Model: openaisdk.ChatModel(c.model),
		ResponseFormat: openaisdk.ChatCompletionNewParamsResponseFormatUnion{
			OfJSONSchema: &openaisdk.ResponseFormatJSONSchemaParam{
				JSONSchema: openaisdk.ResponseFormatJSONSchemaJSONSchemaParam{
					Name:   schemaName,
					Schema: schema,
					Strict: openaisdk.Bool(true),
				},
			},
		},
	})
	if err != nil {
		return fmt.Errorf("chat completion: %w", err)
	}

	if len(resp.Choices) == 0 {
		return ErrNoChoicesInResponse
	}

	if err := json.Unmarshal([]byte(resp.Choices[0].Message.Content), out); err != nil {
		return fmt.Errorf("parse %s response: %w", schemaName, err)
	}

	return nil
}
