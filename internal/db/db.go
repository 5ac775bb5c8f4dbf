package db

import (
	"context"
	"log"
	"time"

	"github.com/google/uuid"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"rabbit-key-bot/config"
)

var DB *gorm.DB

func InitDB() {
	dsn := config.AppCfg.DatabaseURL
	if dsn == "" {
		log.Fatal("DATABASE_URL not set")
	}
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{})
	if err != nil {
		log.Fatalf("failed to connect database: %v", err)
	}
	DB = db
	db.AutoMigrate(&KeyRecord{})
}

// AppendKeyRecord appends one issuance to the per-user key log.
func AppendKeyRecord(ctx context.Context, telegramID int64, keyValue string, issuedAt time.Time) error {
	record := KeyRecord{
		ID:         uuid.NewString(),
		TelegramID: telegramID,
		KeyValue:   keyValue,
		IssuedAt:   issuedAt,
		Active:     true,
	}
	return DB.WithContext(ctx).Create(&record).Error
}

// KeyRecordsFor returns the user's log entries in issuance order.
func KeyRecordsFor(ctx context.Context, telegramID int64) ([]KeyRecord, error) {
	var records []KeyRecord
	err := DB.WithContext(ctx).Where("telegram_id = ?", telegramID).Order("issued_at asc").Find(&records).Error
	return records, err
}

// CountKeyRecords is used by the reconciliation scan to compare this backend
// against the document store.
func CountKeyRecords(ctx context.Context, telegramID int64) (int64, error) {
	var count int64
	err := DB.WithContext(ctx).Model(&KeyRecord{}).Where("telegram_id = ?", telegramID).Count(&count).Error
	return count, err
}

// KeyLog adapts the package to the issuer's backend-A interface.
type KeyLog struct{}

func (KeyLog) Append(ctx context.Context, telegramID int64, keyValue string, issuedAt time.Time) error {
	return AppendKeyRecord(ctx, telegramID, keyValue, issuedAt)
}
