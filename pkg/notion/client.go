// Package notion provides a minimal read-only client for the Notion API,
// limited to fetching the plain text of a page's paragraph blocks.
package notion

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/hashicorp/go-retryablehttp"
)

const (
	defaultBaseURL = "https://api.notion.com"
	apiVersion     = "2022-06-28"
)

// ClientOptions configures the Notion API client.
type ClientOptions struct {
	// BaseURL is the base URL for the Notion API (default: "https://api.notion.com").
	BaseURL string
	// Token is the Notion integration token.
	Token string
	// RetryMax is the maximum number of retries (default: 3).
	RetryMax int
	// Timeout is the HTTP client timeout (default: 30 seconds).
	Timeout time.Duration
}

// Client is a read-only Notion API client.
type Client struct {
	baseURL    string
	token      string
	httpClient *retryablehttp.Client
}

// NewClient creates a new Notion API client with default settings.
func NewClient(token string) *Client {
	return NewClientWithOptions(ClientOptions{Token: token})
}

// NewClientWithOptions creates a new Notion API client with custom options.
func NewClientWithOptions(opts ClientOptions) *Client {
	if opts.BaseURL == "" {
		opts.BaseURL = defaultBaseURL
	}
	opts.BaseURL = strings.TrimSuffix(opts.BaseURL, "/")

	if opts.Timeout == 0 {
		opts.Timeout = 30 * time.Second
	}
	if opts.RetryMax == 0 {
		opts.RetryMax = 3
	}

	retryClient := retryablehttp.NewClient()
	retryClient.RetryMax = opts.RetryMax
	retryClient.HTTPClient.Timeout = opts.Timeout
	retryClient.Logger = nil // Disable logging by default

	return &Client{
		baseURL:    opts.BaseURL,
		token:      opts.Token,
		httpClient: retryClient,
	}
}

// blockChildrenResponse mirrors the subset of the Notion block children
// payload the page text extraction needs.
type blockChildrenResponse struct {
	Results []struct {
		Type      string `json:"type"`
		Paragraph struct {
			RichText []struct {
				PlainText string `json:"plain_text"`
			} `json:"rich_text"`
		} `json:"paragraph"`
	} `json:"results"`
}

// GetPageText fetches the page's child blocks and concatenates the plain text
// of its paragraph blocks, one line per paragraph.
func (c *Client) GetPageText(ctx context.Context, pageID string) (string, error) {
	reqURL := fmt.Sprintf("%s/v1/blocks/%s/children", c.baseURL, pageID)

	req, err := retryablehttp.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Authorization", "Bearer "+c.token)
	req.Header.Set("Notion-Version", apiVersion)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("failed to fetch page blocks: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)

		return "", fmt.Errorf("notion API returned status %d: %s", resp.StatusCode, string(body))
	}

	var blocks blockChildrenResponse
	if err := json.NewDecoder(resp.Body).Decode(&blocks); err != nil {
		return "", fmt.Errorf("failed to decode block children: %w", err)
	}

	var b strings.Builder

	for _, block := range blocks.Results {
		if block.Type != "paragraph" || len(block.Paragraph.RichText) == 0 {
			continue
		}

		b.WriteString(block.Paragraph.RichText[0].PlainText)
		b.WriteString("\n")
	}

	return b.String(), nil
}
