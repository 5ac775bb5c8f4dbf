package main

import (
	"context"
	"io"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/robfig/cron/v3"

	"rabbit-key-bot/config"
	"rabbit-key-bot/internal/accounts"
	"rabbit-key-bot/internal/bot"
	"rabbit-key-bot/internal/db"
	"rabbit-key-bot/internal/ledger"
	"rabbit-key-bot/internal/logger"
	"rabbit-key-bot/internal/order"
	"rabbit-key-bot/internal/pricing"
	"rabbit-key-bot/internal/services"
	"rabbit-key-bot/internal/session"
)

func main() {
	config.LoadConfig()
	db.InitDB()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	store, err := accounts.Connect(ctx, config.AppCfg.MongoURI)
	if err != nil {
		log.Fatalf("Failed to connect account store: %v", err)
	}

	botapi, err := tgbotapi.NewBotAPI(config.AppCfg.BotToken)
	if err != nil {
		log.Fatalf("Failed to create bot: %v", err)
	}
	logger.InitNotifier(botapi, config.AppCfg.AdminTelegramID)

	// --- File and console logging ---
	logFile, err := os.OpenFile("bot.log", os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		log.Fatalf("Failed to open log file: %v", err)
	}
	mw := io.MultiWriter(os.Stdout, logFile)
	log.SetOutput(mw)
	log.SetFlags(log.Ldate | log.Ltime | log.Lshortfile)

	accountLedger := accounts.NewLedger(store, config.AppCfg.ReferralBonus, config.AppCfg.MinWithdraw)
	issuer := ledger.NewIssuer(db.KeyLog{}, store)
	engine := pricing.NewEngine(config.AppCfg.KeyPrice)
	ctrl := order.NewController(
		session.NewStore(),
		engine,
		issuer,
		bot.NewNotifier(botapi, config.AppCfg.AdminTelegramID),
		config.AppCfg.AdminTelegramID,
		config.AppCfg.UPIID,
		config.AppCfg.QRImageURL,
	)

	// Daily divergence scan over the two credential backends (04:00)
	c := cron.New()
	c.AddFunc("0 4 * * *", func() {
		services.ReconcileKeyBackends(store)
	})
	c.Start()

	// Telegram polling; returns once the update channel is closed
	bot.New(botapi, ctrl, accountLedger, config.AppCfg.AdminTelegramID).Run(ctx)

	// Graceful shutdown on SIGINT/SIGTERM
	c.Stop()
	closeCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := store.Close(closeCtx); err != nil {
		log.Printf("Account store close error: %v", err)
	}
	logger.Sync()
	log.Println("Bot stopped")
}
