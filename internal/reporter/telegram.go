package reporter

import (
	"context"
	"fmt"
	"html"

	"go-actuarylist-ingest/internal/ingest"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

// sender is the part of *tgbotapi.BotAPI the reporter uses.
type sender interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
}

type TelegramReporter struct {
	bot    sender
	chatID int64
	source string
}

func NewTelegramReporter(token string, chatID int64, source string) (*TelegramReporter, error) {
	bot, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, fmt.Errorf("failed to init telegram bot: %w", err)
	}

	//turn this on in case of debug
	//bot.Debug = true

	return &TelegramReporter{
		bot:    bot,
		chatID: chatID,
		source: source,
	}, nil
}

func (t *TelegramReporter) SendMessage(text string) error {
	msg := tgbotapi.NewMessage(t.chatID, text)
	msg.ParseMode = tgbotapi.ModeHTML
	msg.DisableWebPagePreview = true
	_, err := t.bot.Send(msg)
	return err
}

// SendSummary implements ingest.Notifier.
func (t *TelegramReporter) SendSummary(_ context.Context, s ingest.Summary) error {
	text := fmt.Sprintf(
		"📊 <b>Ingestion finished</b>\n"+
			"🔗 %s\n"+
			"🔍 Scraped: %d\n"+
			"✅ Inserted: %d\n"+
			"⏭ Skipped: %d",
		html.EscapeString(t.source),
		s.Scraped,
		s.Inserted,
		s.Skipped,
	)
	if s.Scraped == 0 {
		text += "\n⚠️ Nothing was scraped, check the logs."
	}
	return t.SendMessage(text)
}

// SendError implements ingest.Notifier.
func (t *TelegramReporter) SendError(_ context.Context, errReq error) error {
	text := fmt.Sprintf("⚠️ <b>Ingestion error</b>:\n%s", html.EscapeString(errReq.Error()))
	return t.SendMessage(text)
}
