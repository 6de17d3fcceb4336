package approval

import (
	"context"

	"github.com/sundai/social-agent/pkg/telegram"
)

// TelegramGateway adapts the Telegram Bot API client to the Gateway interface.
type TelegramGateway struct {
	client *telegram.Client
}

// NewTelegramGateway wraps a Telegram client bound to the reviewer chat.
func NewTelegramGateway(client *telegram.Client) *TelegramGateway {
	return &TelegramGateway{client: client}
}

// SendPreview sends the preview with a single row of inline buttons.
func (g *TelegramGateway) SendPreview(ctx context.Context, text string, buttons []Button) (int64, error) {
	row := make([]telegram.InlineKeyboardButton, 0, len(buttons))
	for _, button := range buttons {
		row = append(row, telegram.InlineKeyboardButton{Text: button.Label, CallbackData: button.Data})
	}

	markup := &telegram.InlineKeyboardMarkup{InlineKeyboard: [][]telegram.InlineKeyboardButton{row}}

	message, err := g.client.SendMessage(ctx, text, markup)
	if err != nil {
		return 0, err
	}

	return message.MessageID, nil
}

// ClearButtons removes the inline keyboard from a sent message.
func (g *TelegramGateway) ClearButtons(ctx context.Context, messageID int64) error {
	return g.client.ClearReplyMarkup(ctx, messageID)
}

// SendText sends a plain message to the reviewer chat.
func (g *TelegramGateway) SendText(ctx context.Context, text string) error {
	_, err := g.client.SendMessage(ctx, text, nil)

	return err
}

// PollEvents fetches updates from the cursor and normalizes button presses
// and text replies into events. Other update kinds still advance the cursor
// so they are not refetched.
func (g *TelegramGateway) PollEvents(ctx context.Context, sinceCursor int64) ([]Event, error) {
	updates, err := g.client.GetUpdates(ctx, sinceCursor)
	if err != nil {
		return nil, err
	}

	events := make([]Event, 0, len(updates))

	for _, update := range updates {
		event := Event{ID: update.UpdateID}

		switch {
		case update.CallbackQuery != nil:
			event.ButtonData = update.CallbackQuery.Data
			if update.CallbackQuery.Message != nil {
				event.MessageID = update.CallbackQuery.Message.MessageID
			}
		case update.Message != nil:
			event.Text = update.Message.Text
		}

		events = append(events, event)
	}

	return events, nil
}
