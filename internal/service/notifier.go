package service

import (
	"fmt"

	"adreward_miniapp/internal/model"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

type NotifierConfig struct {
	BotToken string
	ChatID   int64
	Debug    bool
}

// TelegramNotifier posts withdrawal submissions to the operator chat.
type TelegramNotifier struct {
	bot    *tgbotapi.BotAPI
	chatID int64
}

func NewTelegramNotifier(cfg NotifierConfig) (*TelegramNotifier, error) {
	bot, err := tgbotapi.NewBotAPI(cfg.BotToken)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize bot: %w", err)
	}

	bot.Debug = cfg.Debug

	return &TelegramNotifier{
		bot:    bot,
		chatID: cfg.ChatID,
	}, nil
}

func (n *TelegramNotifier) NotifyWithdrawal(w *model.Withdrawal) error {
	text := fmt.Sprintf(
		"New withdrawal request\nUser: %s (%d)\nAmount: %d points\nMethod: %s\nDestination: %s",
		w.Username, w.TelegramID, w.AmountPoints, w.Method, w.Destination,
	)

	msg := tgbotapi.NewMessage(n.chatID, text)
	_, err := n.bot.Send(msg)
	return err
}
