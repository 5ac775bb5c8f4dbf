package logger

import (
	"fmt"
	"sync"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"
)

var (
	botInstance *tgbotapi.BotAPI
	adminID     int64
	once        sync.Once
)

// InitNotifier wires Telegram alerts for the admin error channel.
func InitNotifier(bot *tgbotapi.BotAPI, admin int64) {
	once.Do(func() {
		botInstance = bot
		adminID = admin
	})
}

// NotifyAdmin sends a critical alert to the admin chat.
func NotifyAdmin(msg string) {
	if botInstance == nil || adminID == 0 {
		return
	}
	botInstance.Send(tgbotapi.NewMessage(adminID, "[ALERT] "+msg))
}

// NotifyOnPanic is the top-level fault boundary for event handling: it
// recovers, logs, alerts the admin and sends a generic failure reply to the
// affected chat so no failure is silently dropped and no panic kills the
// process.
func NotifyOnPanic(context string, chatID int64) {
	if r := recover(); r != nil {
		Error("panic recovered", zap.String("context", context), zap.Any("panic", r))
		NotifyAdmin(fmt.Sprintf("Panic in %s: %v", context, r))
		if botInstance != nil && chatID != 0 {
			botInstance.Send(tgbotapi.NewMessage(chatID, "⚠️ Something went wrong."))
		}
	}
}
