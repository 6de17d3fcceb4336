// Package llm provides the generation collaborator: structured content
// (posts, keywords, reply batches) produced by a chat-completions model.
package llm

import (
	"context"
	"fmt"
	"strings"

	"github.com/sundai/social-agent/internal/models"
)

// Generator produces structured content from source material.
// Implementations return typed results or fail; they never publish anything.
type Generator interface {
	// GeneratePost drafts a brand post from the source material, obeying the
	// retrieved feedback rules. Retried internally on failure.
	GeneratePost(ctx context.Context, source string, feedbackRules []string) (*models.SocialPost, error)

	// ExtractKeywords identifies search keywords for the engagement goal.
	// Single attempt, no retry.
	ExtractKeywords(ctx context.Context, source string) ([]string, error)

	// GenerateReplies drafts one reply per external status. Single attempt, no retry.
	GenerateReplies(ctx context.Context, brandContext string, posts []models.ExternalStatus) (*models.ReplyBatch, error)
}

// postPrompt builds the brand-post prompt. Retrieved feedback is injected
// verbatim as an instruction block the model must obey.
func postPrompt(source string, feedbackRules []string) string {
	var b strings.Builder

	b.WriteString("CONTEXT: You are a social media manager for a valuation tech brand.\n")
	fmt.Fprintf(&b, "SOURCE MATERIAL: %s\n\n", source)

	if len(feedbackRules) > 0 {
		b.WriteString("CRITICAL USER FEEDBACK (YOU MUST OBEY THIS):\n")
		for _, rule := range feedbackRules {
			fmt.Fprintf(&b, "- %s\n", rule)
		}
		b.WriteString("\n")
	}

	b.WriteString("TASK: Generate a professional post based on the source material. ")
	b.WriteString("You MUST incorporate the 'CRITICAL USER FEEDBACK' above. ")
	b.WriteString("If the feedback says to be funny, be funny. If it says to avoid something, avoid it.")

	return b.String()
}

// keywordsPrompt builds the keyword extraction prompt.
func keywordsPrompt(source string) string {
	return fmt.Sprintf("Analyze these docs and give me 5 search keywords: %s", source)
}

// repliesPrompt builds the reply-batch prompt for the engagement goal.
func repliesPrompt(brandContext string, posts []models.ExternalStatus) string {
	var b strings.Builder

	fmt.Fprintf(&b, "Branding context: %s\n\n", brandContext)
	fmt.Fprintf(&b, "Reply to these %d posts. Each reply must be professional and under 250 characters.\n", len(posts))

	for _, p := range posts {
		fmt.Fprintf(&b, "\npost_id: %s\nauthor: %s\ncontent: %s\n", p.ID, p.Account, p.Content)
	}

	return b.String()
}
