package bot

import (
	"context"
	"log"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"rabbit-key-bot/internal/accounts"
	"rabbit-key-bot/internal/order"
)

// Bot ties the Telegram transport to the order workflow and the account
// ledger.
type Bot struct {
	api     *tgbotapi.BotAPI
	ctrl    *order.Controller
	ledger  *accounts.Ledger
	limiter *RateLimiter
}

func New(api *tgbotapi.BotAPI, ctrl *order.Controller, ledger *accounts.Ledger, adminID int64) *Bot {
	return &Bot{
		api:     api,
		ctrl:    ctrl,
		ledger:  ledger,
		limiter: NewRateLimiter(adminID),
	}
}

// Run polls for updates until ctx is cancelled. Each update is handled in
// its own goroutine so one user's slow backend call never blocks the others.
func (b *Bot) Run(ctx context.Context) {
	log.Printf("Authorized on account %s", b.api.Self.UserName)

	u := tgbotapi.NewUpdate(0)
	u.Timeout = 60
	updates := b.api.GetUpdatesChan(u)

	go func() {
		<-ctx.Done()
		b.api.StopReceivingUpdates()
	}()

	for update := range updates {
		go b.handleUpdate(update)
	}
}
