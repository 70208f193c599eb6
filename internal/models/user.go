package models

import (
	"time"
)

// User is a ledger account keyed by the Telegram user id. A row exists only
// for users who passed the full channel membership check at least once.
type User struct {
	TelegramID    int64   `gorm:"primaryKey;autoIncrement:false"`
	Username      string  `gorm:"size:255"`
	FullName      string  `gorm:"size:255"`
	Balance       float64 `gorm:"not null;default:0"`
	ReferralCount int     `gorm:"not null;default:0"`
	WalletAddress string  `gorm:"size:255"`
	ReferrerID    *int64  `gorm:"index"`
	StartCount    int     `gorm:"not null;default:1"`
	LastStartAt   time.Time
	JoinedAt      time.Time `gorm:"autoCreateTime"`
}
