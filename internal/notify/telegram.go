package notify

import (
	"context"
	"fmt"
	"html"
	"log/slog"
	"strconv"
	"strings"

	tgbot "github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"

	"sitewatch/internal/config"
	"sitewatch/internal/domain"
)

// TelegramSender delivers notifications into one Telegram chat.
// Params: bot client, chat id, and retry policy.
// Returns: Sender implementation for the telegram channel.
type TelegramSender struct {
	bot    *tgbot.Bot
	chatID any
	retry  config.NotifyRetry
	logger *slog.Logger
}

// NewTelegramSender creates a Telegram channel sender.
// Params: telegram notifier config section and logger.
// Returns: initialized sender or bot client setup error.
func NewTelegramSender(cfg config.TelegramNotifier, logger *slog.Logger) (*TelegramSender, error) {
	opts := []tgbot.Option{tgbot.WithSkipGetMe()}
	if strings.TrimSpace(cfg.APIBase) != "" {
		opts = append(opts, tgbot.WithServerURL(cfg.APIBase))
	}
	bot, err := tgbot.New(cfg.BotToken, opts...)
	if err != nil {
		return nil, fmt.Errorf("create telegram bot client: %w", err)
	}
	return &TelegramSender{
		bot:    bot,
		chatID: normalizeChatID(cfg.ChatID),
		retry:  cfg.Retry,
		logger: logger,
	}, nil
}

// normalizeChatID converts numeric chat IDs to int64 and keeps the rest as string.
// Params: raw chat id from config.
// Returns: value accepted by the bot API client.
func normalizeChatID(raw string) any {
	trimmed := strings.TrimSpace(raw)
	if id, err := strconv.ParseInt(trimmed, 10, 64); err == nil {
		return id
	}
	return trimmed
}

// Name returns channel label used in logs and metrics.
// Params: none.
// Returns: "telegram".
func (s *TelegramSender) Name() string { return "telegram" }

// Send delivers one notification as a Telegram message.
// Params: context and notification payload.
// Returns: nil on delivery or retry-exhausted error.
func (s *TelegramSender) Send(ctx context.Context, notification domain.Notification) error {
	text := renderTelegramText(notification)
	return sendWithRetry(ctx, s.retry, s.logger, s.Name(), func(ctx context.Context) error {
		_, err := s.bot.SendMessage(ctx, &tgbot.SendMessageParams{
			ChatID:    s.chatID,
			Text:      text,
			ParseMode: models.ParseModeHTML,
		})
		if err != nil {
			return fmt.Errorf("send telegram message: %w", err)
		}
		return nil
	})
}

// renderTelegramText formats one notification as HTML message body.
// Params: notification payload.
// Returns: escaped message with bold severity header.
func renderTelegramText(notification domain.Notification) string {
	var b strings.Builder
	fmt.Fprintf(&b, "<b>%s alert</b>\n", html.EscapeString(strings.ToUpper(string(notification.Severity))))
	b.WriteString(html.EscapeString(notification.Message))
	if notification.ZoneID != "" {
		fmt.Fprintf(&b, "\nzone: %s", html.EscapeString(notification.ZoneID))
	}
	return b.String()
}
