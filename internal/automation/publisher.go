package automation

import (
	"context"
	"fmt"
	"strings"

	"github.com/sundai/social-agent/internal/models"
	"github.com/sundai/social-agent/pkg/mastodon"
)

// Published content is always labeled as machine-prepared.
const (
	postSignature  = "Prepared by the Valuation Engine AI"
	replySignature = "— Prepared by the Valuation Engine AI"
)

// MastodonPublisher adapts the Mastodon client to the Publisher interface,
// handling text assembly and signatures.
type MastodonPublisher struct {
	client *mastodon.Client
}

// NewMastodonPublisher wraps a Mastodon client.
func NewMastodonPublisher(client *mastodon.Client) *MastodonPublisher {
	return &MastodonPublisher{client: client}
}

// PublishPost publishes the draft as content, hashtags, and signature.
func (p *MastodonPublisher) PublishPost(ctx context.Context, post *models.SocialPost) (*models.PublishedStatus, error) {
	text := post.Content

	if len(post.Hashtags) > 0 {
		text += "\n\n" + strings.Join(post.Hashtags, " ")
	}

	text += "\n\n" + postSignature

	status, err := p.client.PostStatus(ctx, text, "")
	if err != nil {
		return nil, fmt.Errorf("post status: %w", err)
	}

	return &models.PublishedStatus{ID: status.ID, URL: status.URL}, nil
}

// SearchStatuses finds recent statuses matching the keyword.
func (p *MastodonPublisher) SearchStatuses(ctx context.Context, keyword string, limit int) ([]models.ExternalStatus, error) {
	statuses, err := p.client.SearchStatuses(ctx, keyword, limit)
	if err != nil {
		return nil, fmt.Errorf("search statuses: %w", err)
	}

	results := make([]models.ExternalStatus, 0, len(statuses))
	for _, status := range statuses {
		results = append(results, models.ExternalStatus{
			ID:      status.ID,
			Account: status.Account.Acct,
			Content: status.Content,
		})
	}

	return results, nil
}

// PublishReply posts a signed reply to an external status.
func (p *MastodonPublisher) PublishReply(ctx context.Context, replyText, inReplyToID string) error {
	text := replyText + "\n\n" + replySignature

	if _, err := p.client.PostStatus(ctx, text, inReplyToID); err != nil {
		return fmt.Errorf("post reply: %w", err)
	}

	return nil
}
