package bot

import (
	"fmt"
	"strconv"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"rabbit-key-bot/config"
	"rabbit-key-bot/internal/pricing"
)

const (
	buyKeyLabel   = "🔑 Buy Key"
	myKeysLabel   = "📦 My Keys"
	walletLabel   = "💰 Wallet"
	referralLabel = "👥 Referral"
	settingsLabel = "⚙️ Settings"
)

func mainKeyboard() tgbotapi.ReplyKeyboardMarkup {
	kb := tgbotapi.NewReplyKeyboard(
		tgbotapi.NewKeyboardButtonRow(
			tgbotapi.NewKeyboardButton(buyKeyLabel),
			tgbotapi.NewKeyboardButton(myKeysLabel),
		),
		tgbotapi.NewKeyboardButtonRow(
			tgbotapi.NewKeyboardButton(walletLabel),
			tgbotapi.NewKeyboardButton(referralLabel),
		),
		tgbotapi.NewKeyboardButtonRow(
			tgbotapi.NewKeyboardButton(settingsLabel),
		),
	)
	kb.ResizeKeyboard = true
	return kb
}

func durationKeyboard() tgbotapi.InlineKeyboardMarkup {
	labels := map[pricing.Duration]string{
		pricing.Duration7Day:  "7 Days",
		pricing.Duration15Day: "15 Days",
		pricing.Duration30Day: "30 Days",
	}
	var rows [][]tgbotapi.InlineKeyboardButton
	for _, d := range pricing.Durations {
		label := fmt.Sprintf("%s (₹%d)", labels[d], config.AppCfg.KeyPrice[string(d)])
		rows = append(rows, tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData(label, "buy:"+string(d)),
		))
	}
	return tgbotapi.NewInlineKeyboardMarkup(rows...)
}

func deviceKeyboard() tgbotapi.InlineKeyboardMarkup {
	var rows [][]tgbotapi.InlineKeyboardButton
	for _, n := range pricing.AllowedDevices {
		label := strconv.Itoa(n) + " Device"
		if n > 1 {
			label += "s"
		}
		rows = append(rows, tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData(label, "device:"+strconv.Itoa(n)),
		))
	}
	return tgbotapi.NewInlineKeyboardMarkup(rows...)
}
