package telegram

import (
	"context"
	"fmt"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/alejandrodnm/whalebridge/internal/ports"
)

// Notifier implements ports.Notifier over the Telegram Bot API, delivering
// to a single preconfigured chat.
type Notifier struct {
	bot    *tgbotapi.BotAPI
	chatID int64
}

var _ ports.Notifier = (*Notifier)(nil)

// New creates a Notifier. The token is validated against the API (getMe).
func New(token string, chatID int64) (*Notifier, error) {
	if token == "" || chatID == 0 {
		return nil, fmt.Errorf("telegram.New: missing bot token or chat id")
	}
	bot, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, fmt.Errorf("telegram.New: %w", err)
	}
	return &Notifier{bot: bot, chatID: chatID}, nil
}

// Send delivers one plain-text message. An error here means the proposal
// must NOT be recorded as sent.
func (n *Notifier) Send(ctx context.Context, text string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	msg := tgbotapi.NewMessage(n.chatID, text)
	if _, err := n.bot.Send(msg); err != nil {
		return fmt.Errorf("telegram.Send: %w", err)
	}
	return nil
}
