package db

import "time"

// KeyRecord is one issuance in the realtime key log. The log is append-only:
// re-approving the same key value produces a second record with its own id
// and timestamp.
type KeyRecord struct {
	ID         string `gorm:"primaryKey"`
	TelegramID int64  `gorm:"index"`
	KeyValue   string
	IssuedAt   time.Time
	Active     bool `gorm:"default:true"`
}
