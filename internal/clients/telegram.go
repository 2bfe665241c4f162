package clients

import (
	"fmt"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

// TelegramNotifier delivers notifications to users who linked a Telegram
// chat instead of (or alongside) SMS. Optional: nil bot disables it.
type TelegramNotifier struct {
	bot *tgbotapi.BotAPI
}

func NewTelegramNotifier(token string) (*TelegramNotifier, error) {
	if token == "" {
		return &TelegramNotifier{}, nil
	}

	bot, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, fmt.Errorf("init telegram bot: %w", err)
	}
	return &TelegramNotifier{bot: bot}, nil
}

func (t *TelegramNotifier) Enabled() bool {
	return t != nil && t.bot != nil
}

func (t *TelegramNotifier) Send(chatID int64, text string) error {
	if !t.Enabled() {
		return fmt.Errorf("telegram notifications not configured")
	}
	if chatID == 0 {
		return fmt.Errorf("user has no linked telegram chat")
	}

	_, err := t.bot.Send(tgbotapi.NewMessage(chatID, text))
	return err
}
