package bot

import (
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

// Notifier sends plain outbound messages to users and the admin over the
// Telegram API.
type Notifier struct {
	api     *tgbotapi.BotAPI
	adminID int64
}

func NewNotifier(api *tgbotapi.BotAPI, adminID int64) *Notifier {
	return &Notifier{api: api, adminID: adminID}
}

func (n *Notifier) NotifyUser(userID int64, text string) error {
	_, err := n.api.Send(tgbotapi.NewMessage(userID, text))
	return err
}

func (n *Notifier) NotifyAdmin(text string) error {
	_, err := n.api.Send(tgbotapi.NewMessage(n.adminID, text))
	return err
}
