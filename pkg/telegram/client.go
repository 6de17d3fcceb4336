// Package telegram provides a minimal Telegram Bot API client for the
// approval workflow: sending messages with inline keyboards, clearing
// keyboards, and polling updates with a cursor.
//
// The client deliberately does not retry: the approval protocol owns the
// retry policy for chat transport errors.
package telegram

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

const defaultBaseURL = "https://api.telegram.org"

// ClientOptions configures the Telegram Bot API client.
type ClientOptions struct {
	// BaseURL is the API base URL (default: "https://api.telegram.org").
	BaseURL string
	// Token is the bot token.
	Token string
	// ChatID is the chat all messages are sent to.
	ChatID string
	// Timeout is the HTTP client timeout (default: 30 seconds).
	Timeout time.Duration
}

// Client is a Telegram Bot API client bound to a single chat.
type Client struct {
	baseURL    string
	token      string
	chatID     string
	httpClient *http.Client
}

// NewClient creates a new Telegram client with default settings.
func NewClient(token, chatID string) *Client {
	return NewClientWithOptions(ClientOptions{Token: token, ChatID: chatID})
}

// NewClientWithOptions creates a new Telegram client with custom options.
func NewClientWithOptions(opts ClientOptions) *Client {
	if opts.BaseURL == "" {
		opts.BaseURL = defaultBaseURL
	}
	opts.BaseURL = strings.TrimSuffix(opts.BaseURL, "/")

	if opts.Timeout == 0 {
		opts.Timeout = 30 * time.Second
	}

	return &Client{
		baseURL:    opts.BaseURL,
		token:      opts.Token,
		chatID:     opts.ChatID,
		httpClient: &http.Client{Timeout: opts.Timeout},
	}
}

// InlineKeyboardButton is one button row entry of an inline keyboard.
type InlineKeyboardButton struct {
	Text         string `json:"text"`
	CallbackData string `json:"callback_data"`
}

// InlineKeyboardMarkup is the reply markup carrying action buttons.
type InlineKeyboardMarkup struct {
	InlineKeyboard [][]InlineKeyboardButton `json:"inline_keyboard"`
}

// Message is a message the bot sent or received.
type Message struct {
	MessageID int64  `json:"message_id"`
	Text      string `json:"text"`
}

// CallbackQuery is a button press event.
type CallbackQuery struct {
	ID      string   `json:"id"`
	Data    string   `json:"data"`
	Message *Message `json:"message"`
}

// Update is one inbound event from getUpdates.
type Update struct {
	UpdateID      int64          `json:"update_id"`
	Message       *Message       `json:"message"`
	CallbackQuery *CallbackQuery `json:"callback_query"`
}

// apiResponse is the Bot API envelope.
type apiResponse struct {
	OK          bool            `json:"ok"`
	Result      json.RawMessage `json:"result"`
	Description string          `json:"description"`
}

// SendMessage sends a message to the configured chat. markup may be nil.
// Returns the sent message (its ID is needed to clear buttons later).
func (c *Client) SendMessage(ctx context.Context, text string, markup *InlineKeyboardMarkup) (*Message, error) {
	payload := map[string]any{
		"chat_id":    c.chatID,
		"text":       text,
		"parse_mode": "Markdown",
	}
	if markup != nil {
		payload["reply_markup"] = markup
	}

	var message Message
	if err := c.call(ctx, "sendMessage", payload, &message); err != nil {
		return nil, err
	}

	return &message, nil
}

// ClearReplyMarkup removes the inline keyboard from a previously sent message.
// Clearing an already-cleared keyboard is treated as success by the Bot API,
// which makes this safe to repeat.
func (c *Client) ClearReplyMarkup(ctx context.Context, messageID int64) error {
	payload := map[string]any{
		"chat_id":    c.chatID,
		"message_id": messageID,
	}

	return c.call(ctx, "editMessageReplyMarkup", payload, nil)
}

// GetUpdates polls for updates with update_id >= offset.
func (c *Client) GetUpdates(ctx context.Context, offset int64) ([]Update, error) {
	payload := map[string]any{
		"offset": offset,
	}

	var updates []Update
	if err := c.call(ctx, "getUpdates", payload, &updates); err != nil {
		return nil, err
	}

	return updates, nil
}

// call performs one Bot API method call and unmarshals the result into out.
func (c *Client) call(ctx context.Context, method string, payload map[string]any, out any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to encode %s payload: %w", method, err)
	}

	reqURL := fmt.Sprintf("%s/bot%s/%s", c.baseURL, c.token, method)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, reqURL, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to create %s request: %w", method, err)
	}

	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("telegram %s: %w", method, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("telegram %s: read response: %w", method, err)
	}

	var envelope apiResponse
	if err := json.Unmarshal(raw, &envelope); err != nil {
		return fmt.Errorf("telegram %s: decode response: %w", method, err)
	}

	if !envelope.OK {
		return fmt.Errorf("telegram %s failed: %s", method, envelope.Description)
	}

	if out != nil {
		if err := json.Unmarshal(envelope.Result, out); err != nil {
			return fmt.Errorf("telegram %s: decode result: %w", method, err)
		}
	}

	return nil
}
