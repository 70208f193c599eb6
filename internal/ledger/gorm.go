package ledger

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"airdrop-bot/internal/models"
)

type gormLedger struct {
	db             *gorm.DB
	welcomeBonus   float64
	referralReward float64
}

// New creates the postgres-backed ledger. welcomeBonus seeds every new
// account; referralReward is credited per successful referral.
func New(db *gorm.DB, welcomeBonus, referralReward float64) Ledger {
	return &gormLedger{
		db:             db,
		welcomeBonus:   welcomeBonus,
		referralReward: referralReward,
	}
}

func (l *gormLedger) GetOrNone(ctx context.Context, userID int64) (*models.User, error) {
	var user models.User
	err := l.db.WithContext(ctx).Where("telegram_id = ?", userID).First(&user).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get user %d: %w", userID, err)
	}
	return &user, nil
}

func (l *gormLedger) Create(ctx context.Context, userID int64, username, fullName string, referrerID *int64) (bool, error) {
	// Self-referral is dropped before anything touches the database.
	if referrerID != nil && *referrerID == userID {
		referrerID = nil
	}

	created := false
	err := l.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		user := models.User{
			TelegramID:  userID,
			Username:    username,
			FullName:    fullName,
			Balance:     l.welcomeBonus,
			ReferrerID:  referrerID,
			StartCount:  1,
			LastStartAt: time.Now(),
		}
		res := tx.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "telegram_id"}},
			DoNothing: true,
		}).Create(&user)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			// Already exists; the second of two concurrent creates lands here.
			return nil
		}
		created = true

		if referrerID == nil {
			return nil
		}

		credit := tx.Model(&models.User{}).
			Where("telegram_id = ?", *referrerID).
			UpdateColumns(map[string]interface{}{
				"balance":        gorm.Expr("balance + ?", l.referralReward),
				"referral_count": gorm.Expr("referral_count + 1"),
			})
		if credit.Error != nil {
			return credit.Error
		}
		if credit.RowsAffected == 0 {
			// Referrer does not exist: keep the new user, drop the back-reference.
			return tx.Model(&models.User{}).
				Where("telegram_id = ?", userID).
				UpdateColumn("referrer_id", nil).Error
		}

		return tx.Create(&models.ReferralReward{
			ReferrerID: *referrerID,
			ReferredID: userID,
			Amount:     l.referralReward,
		}).Error
	})
	if err != nil {
		return false, fmt.Errorf("failed to create user %d: %w", userID, err)
	}
	return created, nil
}

func (l *gormLedger) RecordStart(ctx context.Context, userID int64) (int, error) {
	count := 1
	err := l.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var user models.User
		err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("telegram_id = ?", userID).
			First(&user).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			// Unknown users are not recorded; membership comes first.
			return nil
		}
		if err != nil {
			return err
		}
		count = user.StartCount + 1
		return tx.Model(&models.User{}).
			Where("telegram_id = ?", userID).
			UpdateColumns(map[string]interface{}{
				"start_count":   count,
				"last_start_at": time.Now(),
			}).Error
	})
	if err != nil {
		return 1, fmt.Errorf("failed to record start for %d: %w", userID, err)
	}
	return count, nil
}

func (l *gormLedger) Stats(ctx context.Context, userID int64) (float64, int, error) {
	user, err := l.GetOrNone(ctx, userID)
	if err != nil {
		return 0, 0, err
	}
	if user == nil {
		return 0, 0, nil
	}
	return user.Balance, user.ReferralCount, nil
}

func (l *gormLedger) SetWallet(ctx context.Context, userID int64, address string) (bool, error) {
	res := l.db.WithContext(ctx).Model(&models.User{}).
		Where("telegram_id = ?", userID).
		UpdateColumn("wallet_address", address)
	if res.Error != nil {
		return false, fmt.Errorf("failed to set wallet for %d: %w", userID, res.Error)
	}
	return res.RowsAffected > 0, nil
}

func (l *gormLedger) Debit(ctx context.Context, userID int64, amount float64) (bool, error) {
	// The balance check rides the same UPDATE, so concurrent debits can
	// never spend more than the row held.
	res := l.db.WithContext(ctx).Model(&models.User{}).
		Where("telegram_id = ? AND balance >= ?", userID, amount).
		UpdateColumn("balance", gorm.Expr("balance - ?", amount))
	if res.Error != nil {
		return false, fmt.Errorf("failed to debit %d: %w", userID, res.Error)
	}
	return res.RowsAffected > 0, nil
}

func (l *gormLedger) Withdraw(ctx context.Context, userID int64, address string, min float64) (float64, bool, error) {
	var amount float64
	ok := false
	err := l.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var user models.User
		err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("telegram_id = ?", userID).
			First(&user).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil
		}
		if err != nil {
			return err
		}
		if user.Balance < min {
			return nil
		}
		amount = user.Balance
		ok = true
		return tx.Model(&models.User{}).
			Where("telegram_id = ?", userID).
			UpdateColumns(map[string]interface{}{
				"wallet_address": address,
				"balance":        float64(0),
			}).Error
	})
	if err != nil {
		return 0, false, fmt.Errorf("failed to withdraw for %d: %w", userID, err)
	}
	return amount, ok, nil
}

func (l *gormLedger) Totals(ctx context.Context) (Totals, error) {
	var totals Totals
	db := l.db.WithContext(ctx).Model(&models.User{})

	if err := db.Count(&totals.Users).Error; err != nil {
		return totals, fmt.Errorf("failed to count users: %w", err)
	}
	if err := l.db.WithContext(ctx).Model(&models.User{}).
		Select("COALESCE(SUM(balance), 0)").Scan(&totals.Balance).Error; err != nil {
		return totals, fmt.Errorf("failed to sum balances: %w", err)
	}
	if err := l.db.WithContext(ctx).Model(&models.User{}).
		Where("referrer_id IS NOT NULL").Count(&totals.ReferredUsers).Error; err != nil {
		return totals, fmt.Errorf("failed to count referred users: %w", err)
	}
	if err := l.db.WithContext(ctx).Model(&models.User{}).
		Select("COALESCE(SUM(start_count), 0)").Scan(&totals.StartRequests).Error; err != nil {
		return totals, fmt.Errorf("failed to sum start counts: %w", err)
	}
	return totals, nil
}

func (l *gormLedger) RecentUsers(ctx context.Context, limit int) ([]models.User, error) {
	var users []models.User
	err := l.db.WithContext(ctx).
		Order("joined_at DESC").
		Limit(limit).
		Find(&users).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list recent users: %w", err)
	}
	return users, nil
}

func (l *gormLedger) AllUsers(ctx context.Context) ([]models.User, error) {
	var users []models.User
	err := l.db.WithContext(ctx).Order("joined_at DESC").Find(&users).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list users: %w", err)
	}
	return users, nil
}

func (l *gormLedger) UserIDs(ctx context.Context) ([]int64, error) {
	var ids []int64
	err := l.db.WithContext(ctx).Model(&models.User{}).
		Pluck("telegram_id", &ids).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list user ids: %w", err)
	}
	return ids, nil
}

func (l *gormLedger) ReferralsOf(ctx context.Context, userID int64) ([]models.ReferralReward, error) {
	var rewards []models.ReferralReward
	err := l.db.WithContext(ctx).
		Where("referrer_id = ?", userID).
		Order("created_at DESC").
		Find(&rewards).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list referrals of %d: %w", userID, err)
	}
	return rewards, nil
}
