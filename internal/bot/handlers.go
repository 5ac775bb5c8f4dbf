package bot

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"

	"rabbit-key-bot/config"
	"rabbit-key-bot/internal/accounts"
	"rabbit-key-bot/internal/db"
	"rabbit-key-bot/internal/ledger"
	"rabbit-key-bot/internal/logger"
	"rabbit-key-bot/internal/order"
	"rabbit-key-bot/internal/pricing"
)

func (b *Bot) handleUpdate(update tgbotapi.Update) {
	defer logger.NotifyOnPanic("handleUpdate", updateChatID(update))

	if update.CallbackQuery != nil {
		b.handleCallback(update.CallbackQuery)
		return
	}
	if update.Message == nil || update.Message.From == nil {
		return
	}
	b.handleMessage(update.Message)
}

func updateChatID(update tgbotapi.Update) int64 {
	if update.Message != nil {
		return update.Message.Chat.ID
	}
	if update.CallbackQuery != nil && update.CallbackQuery.Message != nil {
		return update.CallbackQuery.Message.Chat.ID
	}
	return 0
}

func (b *Bot) handleCallback(cb *tgbotapi.CallbackQuery) {
	if cb.Message == nil {
		return
	}
	userID := cb.From.ID
	chatID := cb.Message.Chat.ID
	data := cb.Data

	switch {
	case strings.HasPrefix(data, "buy:"):
		_, err := b.ctrl.ChooseDuration(userID, strings.TrimPrefix(data, "buy:"))
		if err != nil {
			b.api.Request(tgbotapi.NewCallback(cb.ID, "Unknown duration"))
			return
		}
		msg := tgbotapi.NewMessage(chatID, "📱 Select Number of Devices:")
		msg.ReplyMarkup = deviceKeyboard()
		b.api.Send(msg)
		b.api.Request(tgbotapi.NewCallback(cb.ID, "Duration selected"))

	case strings.HasPrefix(data, "device:"):
		devices, err := strconv.Atoi(strings.TrimPrefix(data, "device:"))
		if err != nil {
			b.api.Request(tgbotapi.NewCallback(cb.ID, "Invalid device count"))
			return
		}
		details, err := b.ctrl.ChooseDevices(userID, devices)
		if errors.Is(err, order.ErrNoActiveOrder) {
			b.api.Send(tgbotapi.NewMessage(chatID, noActiveOrderText))
			b.api.Request(tgbotapi.NewCallback(cb.ID, ""))
			return
		}
		if err != nil {
			b.api.Request(tgbotapi.NewCallback(cb.ID, "Invalid device count"))
			return
		}
		photo := tgbotapi.NewPhoto(chatID, tgbotapi.FileURL(details.QRImageURL))
		photo.Caption = fmt.Sprintf(
			"🧾 *Order Summary*\n\n"+
				"🕒 Duration: *%s*\n📱 Devices: *%d*\n💵 Price: *₹%d*\n\n"+
				"📌 Pay to UPI: `%s`\n\n"+
				"✅ After payment, send Transaction ID using /tx <your_id>",
			details.Duration, details.Devices, details.Price, details.UPIID)
		photo.ParseMode = tgbotapi.ModeMarkdown
		b.api.Send(photo)
		b.api.Request(tgbotapi.NewCallback(cb.ID, "Devices selected"))
	}
}

func (b *Bot) handleMessage(msg *tgbotapi.Message) {
	userID := msg.From.ID
	chatID := msg.Chat.ID
	ctx := context.Background()

	// Every contact upserts the user's account; a /start payload carries the
	// referrer id.
	var referrerID int64
	if msg.Command() == "start" {
		referrerID, _ = strconv.ParseInt(msg.CommandArguments(), 10, 64)
	}
	if err := b.ledger.RegisterContact(ctx, userID, referrerID); err != nil {
		logger.Error("account registration failed", zap.Int64("user", userID), zap.Error(err))
	}

	text := strings.TrimSpace(msg.Text)
	if text == "" {
		return
	}
	cmd := strings.Fields(text)[0]
	if b.ctrl.Authorize(userID) != nil && b.limiter.IsLimited(userID, cmd) {
		b.reply(chatID, "Please slow down! Wait a couple of seconds...")
		return
	}

	switch {
	case msg.Command() == "start":
		reply := tgbotapi.NewMessage(chatID, fmt.Sprintf("👋 Welcome %s!\n\nThis is 𝐌𝐫 𝐑𝐚𝐛𝐛𝐢𝐭 𝐊𝐞𝐲 Bot.", msg.From.FirstName))
		reply.ReplyMarkup = mainKeyboard()
		b.api.Send(reply)

	case text == buyKeyLabel:
		reply := tgbotapi.NewMessage(chatID, "📅 Choose Key Duration:")
		reply.ReplyMarkup = durationKeyboard()
		b.api.Send(reply)

	case text == myKeysLabel:
		b.handleMyKeys(ctx, userID, chatID)

	case text == walletLabel:
		b.handleWallet(ctx, userID, chatID)

	case text == referralLabel:
		link := fmt.Sprintf("https://t.me/%s?start=%d", b.api.Self.UserName, userID)
		b.reply(chatID, fmt.Sprintf("👥 Your referral link:\n%s\n💵 Bonus per referral: ₹%d", link, config.AppCfg.ReferralBonus))

	case text == settingsLabel:
		b.reply(chatID, settingsText())

	case msg.Command() == "tx":
		b.handleTx(msg)

	case msg.Command() == "withdraw":
		b.handleWithdraw(ctx, msg)

	case msg.Command() == "approve":
		b.handleApprove(ctx, msg)

	case msg.Command() == "broadcast":
		b.handleBroadcast(ctx, msg)

	case msg.Command() == "keylog":
		b.handleKeyLog(ctx, msg)

	case msg.Command() == "help":
		b.reply(chatID, helpText)

	default:
		b.reply(chatID, "Unknown command. Use /help or the keyboard below.")
	}
}

const noActiveOrderText = "❌ No active order. Please start again with 🔑 Buy Key."

const helpText = `Available commands:
🔑 Buy Key — start a purchase
📦 My Keys — your key history
💰 Wallet — your balance
👥 Referral — your referral link
⚙️ Settings — prices and offers
/tx <id> — submit a payment transaction id
/withdraw <amount> — withdraw from your wallet
/help — show this help`

func settingsText() string {
	cfg := config.AppCfg
	return fmt.Sprintf(
		"⚙️ Current System Settings:\n\n"+
			"💵 Key Price:\n  • 7 Day = ₹%d\n  • 15 Day = ₹%d\n  • 30 Day = ₹%d\n\n"+
			"🎁 Offer: Buy %d Keys → Get %d Free\n"+
			"👥 Referral Bonus = ₹%d\n"+
			"💳 Minimum Withdraw = ₹%d\n"+
			"🌐 Languages: %s",
		cfg.KeyPrice[string(pricing.Duration7Day)],
		cfg.KeyPrice[string(pricing.Duration15Day)],
		cfg.KeyPrice[string(pricing.Duration30Day)],
		cfg.OfferKeyCount, cfg.OfferFreeKeys,
		cfg.ReferralBonus, cfg.MinWithdraw,
		strings.Join(cfg.Languages, ", "))
}

func (b *Bot) handleMyKeys(ctx context.Context, userID, chatID int64) {
	keys, err := b.ledger.KeyHistory(ctx, userID)
	if err != nil {
		logger.Error("key history read failed", zap.Int64("user", userID), zap.Error(err))
		logger.NotifyAdmin("Key history read failed for user " + strconv.FormatInt(userID, 10) + ": " + err.Error())
		b.reply(chatID, "⚠️ Could not load your keys right now. Please try again later.")
		return
	}
	if len(keys) == 0 {
		b.reply(chatID, "📭 You have no keys yet.")
		return
	}
	var sb strings.Builder
	sb.WriteString("📦 Your Keys:\n\n")
	for i, k := range keys {
		status := "❌"
		if k.Active {
			status = "✅"
		}
		sb.WriteString(fmt.Sprintf("%d. %s | Active: %s | %s\n", i+1, k.Key, status, k.Date.Format("2006-01-02 15:04")))
	}
	b.reply(chatID, sb.String())
}

func (b *Bot) handleWallet(ctx context.Context, userID, chatID int64) {
	balance, err := b.ledger.Balance(ctx, userID)
	if err != nil {
		logger.Error("wallet read failed", zap.Int64("user", userID), zap.Error(err))
		logger.NotifyAdmin("Wallet read failed for user " + strconv.FormatInt(userID, 10) + ": " + err.Error())
		b.reply(chatID, "⚠️ Could not load your wallet right now. Please try again later.")
		return
	}
	b.reply(chatID, fmt.Sprintf("💰 Your Wallet Balance: ₹%d\n\nWithdraw with /withdraw <amount> (minimum ₹%d).", balance, b.ledger.MinWithdraw()))
}

func (b *Bot) handleTx(msg *tgbotapi.Message) {
	txID := strings.TrimSpace(msg.CommandArguments())
	if txID == "" {
		b.reply(msg.Chat.ID, "⚠️ Please provide transaction id. Example: /tx 1234567890")
		return
	}
	buyer := order.Buyer{ID: msg.From.ID, FirstName: msg.From.FirstName}
	err := b.ctrl.SubmitTransaction(buyer, txID)
	switch {
	case errors.Is(err, order.ErrNoActiveOrder):
		b.reply(msg.Chat.ID, noActiveOrderText)
	case err != nil:
		logger.Error("transaction submit failed", zap.Int64("user", msg.From.ID), zap.Error(err))
		b.reply(msg.Chat.ID, "⚠️ Could not submit your transaction id. Please try again later.")
	default:
		b.reply(msg.Chat.ID, "✅ Transaction ID submitted. Admin will verify and provide your key within 6 hours.")
	}
}

func (b *Bot) handleWithdraw(ctx context.Context, msg *tgbotapi.Message) {
	amount, err := strconv.ParseInt(strings.TrimSpace(msg.CommandArguments()), 10, 64)
	if err != nil || amount <= 0 {
		b.reply(msg.Chat.ID, "Usage: /withdraw <amount>")
		return
	}
	err = b.ledger.Withdraw(ctx, msg.From.ID, amount)
	switch {
	case errors.Is(err, accounts.ErrInsufficientFunds):
		b.reply(msg.Chat.ID, fmt.Sprintf("❌ Insufficient funds. Minimum withdraw is ₹%d and the amount must not exceed your balance.", b.ledger.MinWithdraw()))
	case err != nil:
		logger.Error("withdraw failed", zap.Int64("user", msg.From.ID), zap.Error(err))
		b.reply(msg.Chat.ID, "⚠️ Withdrawal failed. Please try again later.")
	default:
		logger.Info("withdrawal", zap.Int64("user", msg.From.ID), zap.Int64("amount", amount))
		b.reply(msg.Chat.ID, fmt.Sprintf("✅ Withdrawal of ₹%d requested. Admin will process the payout.", amount))
		logger.NotifyAdmin(fmt.Sprintf("Withdrawal request: user %d, ₹%d", msg.From.ID, amount))
	}
}

func (b *Bot) handleApprove(ctx context.Context, msg *tgbotapi.Message) {
	args := strings.Fields(msg.CommandArguments())
	if err := b.ctrl.Authorize(msg.From.ID); err != nil {
		b.reply(msg.Chat.ID, "❌ Unauthorized")
		return
	}
	if len(args) < 2 {
		b.reply(msg.Chat.ID, "Usage: /approve <user_id> <key>")
		return
	}
	targetID, err := strconv.ParseInt(args[0], 10, 64)
	if err != nil {
		b.reply(msg.Chat.ID, "Usage: /approve <user_id> <key>")
		return
	}
	err = b.ctrl.Approve(ctx, msg.From.ID, targetID, args[1])
	var issuanceErr *ledger.IssuanceError
	switch {
	case errors.As(err, &issuanceErr):
		// Tell the admin exactly which backend failed so the partial write
		// can be found and retried by hand.
		b.reply(msg.Chat.ID, fmt.Sprintf("❌ Error approving key: write to %s failed (%v). Earlier stages are NOT rolled back — check and retry.", issuanceErr.Stage, issuanceErr.Err))
	case err != nil:
		b.reply(msg.Chat.ID, "❌ Error approving key: "+err.Error())
	default:
		b.reply(msg.Chat.ID, fmt.Sprintf("✅ Key approved and sent to user %d", targetID))
	}
}

// handleKeyLog dumps a user's raw key log records so the admin can compare
// the two backends after an issuance failure and retry the missing write.
func (b *Bot) handleKeyLog(ctx context.Context, msg *tgbotapi.Message) {
	if err := b.ctrl.Authorize(msg.From.ID); err != nil {
		b.reply(msg.Chat.ID, "❌ Unauthorized")
		return
	}
	targetID, err := strconv.ParseInt(strings.TrimSpace(msg.CommandArguments()), 10, 64)
	if err != nil {
		b.reply(msg.Chat.ID, "Usage: /keylog <user_id>")
		return
	}
	records, err := db.KeyRecordsFor(ctx, targetID)
	if err != nil {
		b.reply(msg.Chat.ID, "❌ Key log read failed: "+err.Error())
		return
	}
	if len(records) == 0 {
		b.reply(msg.Chat.ID, fmt.Sprintf("Key log is empty for user %d.", targetID))
		return
	}
	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("Key log for user %d (%d records):\n", targetID, len(records)))
	for _, r := range records {
		sb.WriteString(fmt.Sprintf("%s | %s | active=%v\n", r.IssuedAt.Format("2006-01-02 15:04:05"), r.KeyValue, r.Active))
	}
	b.reply(msg.Chat.ID, sb.String())
}

func (b *Bot) handleBroadcast(ctx context.Context, msg *tgbotapi.Message) {
	if err := b.ctrl.Authorize(msg.From.ID); err != nil {
		b.reply(msg.Chat.ID, "❌ Unauthorized")
		return
	}
	text := strings.TrimSpace(msg.CommandArguments())
	if text == "" {
		b.reply(msg.Chat.ID, "Usage: /broadcast <message>")
		return
	}
	ids, err := b.ledger.AllTelegramIDs(ctx)
	if err != nil {
		logger.Error("broadcast user listing failed", zap.Error(err))
		b.reply(msg.Chat.ID, "❌ Could not load the user list: "+err.Error())
		return
	}
	attempted := Broadcast(ids, text, func(userID int64, text string) error {
		_, err := b.api.Send(tgbotapi.NewMessage(userID, text))
		return err
	})
	logger.LogAdminAction(msg.From.ID, "broadcast", fmt.Sprintf("recipients=%d", attempted))
	b.reply(msg.Chat.ID, fmt.Sprintf("✅ Broadcast sent to %d users.", attempted))
}

func (b *Bot) reply(chatID int64, text string) {
	b.api.Send(tgbotapi.NewMessage(chatID, text))
}
