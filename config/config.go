package config

import (
	"log"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

// AppConfig is the process-wide policy config. Loaded once at startup,
// read-only afterwards.
type AppConfig struct {
	BotToken        string
	AdminTelegramID int64
	DatabaseURL     string
	MongoURI        string
	UPIID           string
	QRImageURL      string
	KeyPrice        map[string]int64 // price per duration, whole rupees
	ReferralBonus   int64
	MinWithdraw     int64
	OfferKeyCount   int
	OfferFreeKeys   int
	Languages       []string
}

var AppCfg AppConfig

func LoadConfig() {
	err := godotenv.Load()
	if err != nil {
		log.Println(".env file not found, relying on environment variables")
	}

	AppCfg.BotToken = os.Getenv("BOT_TOKEN")
	AppCfg.AdminTelegramID = envInt64("ADMIN_TELEGRAM_ID", 0)
	AppCfg.DatabaseURL = os.Getenv("DATABASE_URL")
	AppCfg.MongoURI = os.Getenv("MONGODB_URI")
	AppCfg.UPIID = os.Getenv("UPI_ID")
	AppCfg.QRImageURL = os.Getenv("QR_IMAGE_URL")

	AppCfg.KeyPrice = map[string]int64{
		"7day":  envInt64("KEY_PRICE_7DAY", 100),
		"15day": envInt64("KEY_PRICE_15DAY", 180),
		"30day": envInt64("KEY_PRICE_30DAY", 300),
	}
	AppCfg.ReferralBonus = envInt64("REFERRAL_BONUS", 10)
	AppCfg.MinWithdraw = envInt64("MIN_WITHDRAW", 50)
	AppCfg.OfferKeyCount = int(envInt64("OFFER_KEY_COUNT", 10))
	AppCfg.OfferFreeKeys = int(envInt64("OFFER_FREE_KEY", 2))

	AppCfg.Languages = []string{"EN"}
	if langs := os.Getenv("LANGUAGES"); langs != "" {
		AppCfg.Languages = strings.Split(langs, ",")
	}

	if AppCfg.BotToken == "" || AppCfg.AdminTelegramID == 0 || AppCfg.DatabaseURL == "" || AppCfg.MongoURI == "" || AppCfg.UPIID == "" || AppCfg.QRImageURL == "" {
		log.Fatal("Critical environment variables are missing. Bot will exit.")
	}
}

func envInt64(key string, def int64) int64 {
	raw := os.Getenv(key)
	if raw == "" {
		return def
	}
	v, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		log.Fatalf("Invalid value for %s: %q", key, raw)
	}
	return v
}
