package models

// SocialPost is the structured draft produced by the generation collaborator.
type SocialPost struct {
	// Reasoning explains how the model applied the feedback rules to the draft.
	// It is shown to the reviewer but never published.
	Reasoning string   `json:"reasoning"`
	Content   string   `json:"content"`
	Hashtags  []string `json:"hashtags"`
}

// BusinessKeywords is the structured keyword extraction result.
type BusinessKeywords struct {
	PrimaryKeywords []string `json:"primary_keywords"`
}

// PostReply is a single generated reply targeted at an external status.
type PostReply struct {
	PostID    string `json:"post_id"`
	ReplyText string `json:"reply_text"`
}

// ReplyBatch is the structured batch of replies for the engagement goal.
type ReplyBatch struct {
	AllReplies []PostReply `json:"all_replies"`
}

// ExternalStatus is a third-party post returned by the publishing service's
// search API, candidate for an engagement reply.
type ExternalStatus struct {
	ID      string `json:"id"`
	Account string `json:"account"`
	Content string `json:"content"`
}

// PublishedStatus is the publish confirmation returned by the publishing service.
type PublishedStatus struct {
	ID  string `json:"id"`
	URL string `json:"url"`
}
