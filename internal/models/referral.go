package models

import (
	"time"
)

// ReferralReward is an immutable audit record of a referral payout. Exactly
// one row is written per referred user, in the same transaction that creates
// the referred user's account.
type ReferralReward struct {
	ID         uint    `gorm:"primaryKey"`
	ReferrerID int64   `gorm:"not null;index"`
	ReferredID int64   `gorm:"not null;index"`
	Amount     float64 `gorm:"not null"`
	CreatedAt  time.Time
}
