package gateway

import (
	"context"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"
)

// TelegramNotifier delivers messages through the Telegram Bot API.
type TelegramNotifier struct {
	bot    *tgbotapi.BotAPI
	logger *zap.Logger
}

// NewTelegramNotifier authenticates against the Bot API.
func NewTelegramNotifier(token string, logger *zap.Logger) (*TelegramNotifier, error) {
	bot, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, err
	}
	logger.Info("telegram bot authorized", zap.String("username", bot.Self.UserName))
	return &TelegramNotifier{bot: bot, logger: logger}, nil
}

// Send delivers text, as a photo caption when an attachment reference
// (Telegram file id) is present.
func (t *TelegramNotifier) Send(ctx context.Context, chatID int64, text string, attachmentRef string) (int, error) {
	if attachmentRef != "" {
		photo := tgbotapi.NewPhoto(chatID, tgbotapi.FileID(attachmentRef))
		photo.Caption = text
		sent, err := t.bot.Send(photo)
		if err != nil {
			return 0, err
		}
		return sent.MessageID, nil
	}

	msg := tgbotapi.NewMessage(chatID, text)
	sent, err := t.bot.Send(msg)
	if err != nil {
		return 0, err
	}
	return sent.MessageID, nil
}

// Edit rewrites a previously sent text message.
func (t *TelegramNotifier) Edit(ctx context.Context, chatID int64, messageID int, text string) error {
	edit := tgbotapi.NewEditMessageText(chatID, messageID, text)
	_, err := t.bot.Send(edit)
	return err
}
