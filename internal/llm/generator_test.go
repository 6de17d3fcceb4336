package llm

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/sundai/social-agent/internal/models"
)

func TestPostPrompt(t *testing.T) {
	t.Run("injects feedback rules verbatim", func(t *testing.T) {
		prompt := postPrompt("quarterly valuation report", []string{
			"be funnier (Score: 0.50)",
			"avoid jargon (Score: 0.31)",
		})

		assert.Contains(t, prompt, "SOURCE MATERIAL: quarterly valuation report")
		assert.Contains(t, prompt, "CRITICAL USER FEEDBACK (YOU MUST OBEY THIS)")
		assert.Contains(t, prompt, "- be funnier (Score: 0.50)")
		assert.Contains(t, prompt, "- avoid jargon (Score: 0.31)")
	})

	t.Run("omits feedback block when no rules retrieved", func(t *testing.T) {
		prompt := postPrompt("some docs", nil)

		assert.NotContains(t, prompt, "CRITICAL USER FEEDBACK")
		assert.Contains(t, prompt, "TASK: Generate a professional post")
	})
}

func TestRepliesPrompt(t *testing.T) {
	posts := []models.ExternalStatus{
		{ID: "101", Account: "alice", Content: "thoughts on startup valuations?"},
		{ID: "102", Account: "bob", Content: "DCF is dead"},
	}

	prompt := repliesPrompt("we do valuation tech", posts)

	assert.Contains(t, prompt, "Branding context: we do valuation tech")
	assert.Contains(t, prompt, "Reply to these 2 posts")
	assert.Contains(t, prompt, "post_id: 101")
	assert.Contains(t, prompt, "post_id: 102")
	assert.True(t, strings.Index(prompt, "post_id: 101") < strings.Index(prompt, "post_id: 102"),
		"posts should appear in search order")
}
