package ledger

import (
	"context"

	"airdrop-bot/internal/models"
)

// Totals are the aggregate numbers shown on the admin dashboard.
type Totals struct {
	Users         int64   `json:"total_users"`
	Balance       float64 `json:"total_balance"`
	ReferredUsers int64   `json:"total_referrals"`
	StartRequests int64   `json:"total_starts"`
}

// Ledger owns all durable user, balance and referral state. Creation and
// balance mutations are atomic: concurrent Create calls for the same id
// succeed exactly once, and Debit never allows a double spend.
type Ledger interface {
	// GetOrNone returns the user row, or nil without error when absent.
	GetOrNone(ctx context.Context, userID int64) (*models.User, error)

	// Create inserts a new user seeded with the welcome bonus. It returns
	// false when the user already exists. A resolvable referrer distinct
	// from the new user is credited the referral reward, its referral count
	// incremented and one ReferralReward row appended, all in the same
	// transaction as the insert. A self or unknown referrer is treated as
	// no referrer.
	Create(ctx context.Context, userID int64, username, fullName string, referrerID *int64) (bool, error)

	// RecordStart increments the user's start counter and returns the new
	// value. Unknown users get a synthetic count of 1 and no row.
	RecordStart(ctx context.Context, userID int64) (int, error)

	// Stats returns balance and referral count, (0, 0) for unknown users.
	Stats(ctx context.Context, userID int64) (float64, int, error)

	// SetWallet overwrites the wallet address, reporting whether a row
	// matched.
	SetWallet(ctx context.Context, userID int64, address string) (bool, error)

	// Debit subtracts amount if and only if the current balance covers it.
	// The precondition and the decrement are a single statement.
	Debit(ctx context.Context, userID int64, amount float64) (bool, error)

	// Withdraw sets the wallet address and debits the full balance in one
	// transaction, provided the balance is at least min. It returns the
	// amount withdrawn.
	Withdraw(ctx context.Context, userID int64, address string, min float64) (float64, bool, error)

	// Admin console reads.
	Totals(ctx context.Context) (Totals, error)
	RecentUsers(ctx context.Context, limit int) ([]models.User, error)
	AllUsers(ctx context.Context) ([]models.User, error)
	UserIDs(ctx context.Context) ([]int64, error)
	ReferralsOf(ctx context.Context, userID int64) ([]models.ReferralReward, error)
}
