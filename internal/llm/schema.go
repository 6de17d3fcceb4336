package llm

// JSON schemas for the structured response formats. Strict mode requires every
// property to be listed in required and additionalProperties to be false.

var socialPostSchema = map[string]any{
	"type": "object",
	"properties": map[string]any{
		"reasoning": map[string]any{
			"type":        "string",
			"description": "Explain how you applied the feedback/instructions to this post.",
		},
		"content": map[string]any{
			"type":        "string",
			"description": "The post text, between 10 and 500 characters.",
		},
		"hashtags": map[string]any{
			"type":  "array",
			"items": map[string]any{"type": "string"},
		},
	},
	"required":             []string{"reasoning", "content", "hashtags"},
	"additionalProperties": false,
}

var businessKeywordsSchema = map[string]any{
	"type": "object",
	"properties": map[string]any{
		"primary_keywords": map[string]any{
			"type":        "array",
			"description": "5 search terms for the publishing platform.",
			"items":       map[string]any{"type": "string"},
		},
	},
	"required":             []string{"primary_keywords"},
	"additionalProperties": false,
}

var replyBatchSchema = map[string]any{
	"type": "object",
	"properties": map[string]any{
		"all_replies": map[string]any{
			"type": "array",
			"items": map[string]any{
				"type": "object",
				"properties": map[string]any{
					"post_id": map[string]any{"type": "string"},
					"reply_text": map[string]any{
						"type":        "string",
						"description": "A professional reply under 250 characters.",
					},
				},
				"required":             []string{"post_id", "reply_text"},
				"additionalProperties": false,
			},
		},
	},
	"required":             []string{"all_replies"},
	"additionalProperties": false,
}
