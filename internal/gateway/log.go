package gateway

import (
	"context"
	"sync/atomic"

	"go.uber.org/zap"
)

// LogNotifier writes deliveries to the log instead of a chat platform.
// Used in development when no bot credential should reach a real channel.
type LogNotifier struct {
	logger *zap.Logger
	nextID atomic.Int64
}

// NewLogNotifier creates the logging notifier.
func NewLogNotifier(logger *zap.Logger) *LogNotifier {
	return &LogNotifier{logger: logger}
}

func (l *LogNotifier) Send(ctx context.Context, chatID int64, text string, attachmentRef string) (int, error) {
	id := int(l.nextID.Add(1))
	l.logger.Info("notification delivered (log)",
		zap.Int64("chat_id", chatID),
		zap.Int("message_id", id),
		zap.String("attachment_ref", attachmentRef),
		zap.String("text", text))
	return id, nil
}

func (l *LogNotifier) Edit(ctx context.Context, chatID int64, messageID int, text string) error {
	l.logger.Info("notification edited (log)",
		zap.Int64("chat_id", chatID),
		zap.Int("message_id", messageID),
		zap.String("text", text))
	return nil
}
