// Package mastodon provides a minimal Mastodon API client: posting statuses
// (optionally as replies) and searching recent statuses by keyword.
package mastodon

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/hashicorp/go-retryablehttp"
)

// ClientOptions configures the Mastodon API client.
type ClientOptions struct {
	// BaseURL is the instance base URL, e.g. "https://mastodon.social".
	BaseURL string
	// AccessToken is the OAuth access token.
	AccessToken string
	// RetryMax is the maximum number of retries (default: 3).
	RetryMax int
	// Timeout is the HTTP client timeout (default: 30 seconds).
	Timeout time.Duration
}

// Client is a Mastodon API client.
type Client struct {
	baseURL     string
	accessToken string
	httpClient  *retryablehttp.Client
}

// NewClient creates a new Mastodon API client with default settings.
func NewClient(baseURL, accessToken string) *Client {
	return NewClientWithOptions(ClientOptions{BaseURL: baseURL, AccessToken: accessToken})
}

// NewClientWithOptions creates a new Mastodon API client with custom options.
func NewClientWithOptions(opts ClientOptions) *Client {
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
		baseURL:     opts.BaseURL,
		accessToken: opts.AccessToken,
		httpClient:  retryClient,
	}
}

// Status is a published or searched Mastodon status.
type Status struct {
	ID      string  `json:"id"`
	URL     string  `json:"url"`
	Content string  `json:"content"`
	Account Account `json:"account"`
}

// Account is the author of a status.
type Account struct {
	Acct string `json:"acct"`
}

// PostStatus publishes a status. When inReplyToID is non-empty the status is
// posted as a reply to that status.
func (c *Client) PostStatus(ctx context.Context, text, inReplyToID string) (*Status, error) {
	form := url.Values{}
	form.Set("status", text)

	if inReplyToID != "" {
		form.Set("in_reply_to_id", inReplyToID)
	}

	reqURL := c.baseURL + "/api/v1/statuses"

	req, err := retryablehttp.NewRequestWithContext(ctx, http.MethodPost, reqURL, strings.NewReader(form.Encode()))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Authorization", "Bearer "+c.accessToken)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to post status: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)

		return nil, fmt.Errorf("mastodon API returned status %d: %s", resp.StatusCode, string(body))
	}

	var status Status
	if err := json.NewDecoder(resp.Body).Decode(&status); err != nil {
		return nil, fmt.Errorf("failed to decode status: %w", err)
	}

	return &status, nil
}

// searchResponse mirrors the subset of the v2 search payload used here.
type searchResponse struct {
	Statuses []Status `json:"statuses"`
}

// SearchStatuses returns up to limit recent statuses matching the keyword.
func (c *Client) SearchStatuses(ctx context.Context, keyword string, limit int) ([]Status, error) {
	params := url.Values{}
	params.Set("q", keyword)
	params.Set("type", "statuses")

	if limit > 0 {
		params.Set("limit", strconv.Itoa(limit))
	}

	reqURL := c.baseURL + "/api/v2/search?" + params.Encode()

	req, err := retryablehttp.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Authorization", "Bearer "+c.accessToken)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to search statuses: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)

		return nil, fmt.Errorf("mastodon API returned status %d: %s", resp.StatusCode, string(body))
	}

	var result searchResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("failed to decode search response: %w", err)
	}

	return result.Statuses, nil
}
