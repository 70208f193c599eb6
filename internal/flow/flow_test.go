package flow

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"airdrop-bot/internal/config"
	"airdrop-bot/internal/ledger"
	"airdrop-bot/internal/models"
	"airdrop-bot/internal/state"
)

// fakeLedger mimics the postgres ledger semantics in memory: welcome bonus
// on create, referral credit only for existing referrers, conditional debit.
type fakeLedger struct {
	users map[int64]*models.User
	// failing makes every call error.
	failing bool
}

func newFakeLedger() *fakeLedger {
	return &fakeLedger{users: make(map[int64]*models.User)}
}

var errLedger = assert.AnError

func (l *fakeLedger) GetOrNone(_ context.Context, userID int64) (*models.User, error) {
	if l.failing {
		return nil, errLedger
	}
	u, ok := l.users[userID]
	if !ok {
		return nil, nil
	}
	copied := *u
	return &copied, nil
}

func (l *fakeLedger) Create(_ context.Context, userID int64, username, fullName string, referrerID *int64) (bool, error) {
	if l.failing {
		return false, errLedger
	}
	if _, exists := l.users[userID]; exists {
		return false, nil
	}
	if referrerID != nil && *referrerID == userID {
		referrerID = nil
	}
	if referrerID != nil {
		referrer, exists := l.users[*referrerID]
		if !exists {
			referrerID = nil
		} else {
			referrer.Balance += 0.1
			referrer.ReferralCount++
		}
	}
	l.users[userID] = &models.User{
		TelegramID: userID,
		Username:   username,
		FullName:   fullName,
		Balance:    0.1,
		ReferrerID: referrerID,
		StartCount: 1,
	}
	return true, nil
}

func (l *fakeLedger) RecordStart(_ context.Context, userID int64) (int, error) {
	if l.failing {
		return 1, errLedger
	}
	u, ok := l.users[userID]
	if !ok {
		return 1, nil
	}
	u.StartCount++
	return u.StartCount, nil
}

func (l *fakeLedger) Stats(_ context.Context, userID int64) (float64, int, error) {
	if l.failing {
		return 0, 0, errLedger
	}
	u, ok := l.users[userID]
	if !ok {
		return 0, 0, nil
	}
	return u.Balance, u.ReferralCount, nil
}

func (l *fakeLedger) SetWallet(_ context.Context, userID int64, address string) (bool, error) {
	u, ok := l.users[userID]
	if !ok {
		return false, nil
	}
	u.WalletAddress = address
	return true, nil
}

func (l *fakeLedger) Debit(_ context.Context, userID int64, amount float64) (bool, error) {
	u, ok := l.users[userID]
	if !ok || u.Balance < amount {
		return false, nil
	}
	u.Balance -= amount
	return true, nil
}

func (l *fakeLedger) Withdraw(_ context.Context, userID int64, address string, min float64) (float64, bool, error) {
	if l.failing {
		return 0, false, errLedger
	}
	u, ok := l.users[userID]
	if !ok || u.Balance < min {
		return 0, false, nil
	}
	amount := u.Balance
	u.Balance = 0
	u.WalletAddress = address
	return amount, true, nil
}

func (l *fakeLedger) Totals(_ context.Context) (ledger.Totals, error) {
	var t ledger.Totals
	for _, u := range l.users {
		t.Users++
		t.Balance += u.Balance
		t.StartRequests += int64(u.StartCount)
		if u.ReferrerID != nil {
			t.ReferredUsers++
		}
	}
	return t, nil
}

func (l *fakeLedger) RecentUsers(_ context.Context, limit int) ([]models.User, error) {
	return nil, nil
}
func (l *fakeLedger) AllUsers(_ context.Context) ([]models.User, error) { return nil, nil }
func (l *fakeLedger) UserIDs(_ context.Context) ([]int64, error)        { return nil, nil }
func (l *fakeLedger) ReferralsOf(_ context.Context, _ int64) ([]models.ReferralReward, error) {
	return nil, nil
}

type fakeChecker struct {
	member   bool
	missing  []string
	channels []config.Channel
}

func (c *fakeChecker) Check(_ context.Context, _ int64) (bool, []string) {
	if c.member {
		return true, nil
	}
	return false, c.missing
}

func (c *fakeChecker) Channels() []config.Channel { return c.channels }

type fakeNotifier struct {
	sent map[int64][]string
}

func newFakeNotifier() *fakeNotifier {
	return &fakeNotifier{sent: make(map[int64][]string)}
}

func (n *fakeNotifier) Notify(chatID int64, text string) {
	n.sent[chatID] = append(n.sent[chatID], text)
}

func testConfig() *config.Config {
	return &config.Config{
		ReferralReward:    0.1,
		WelcomeBonus:      0.1,
		MinimumWithdrawal: 1.0,
	}
}

func setupFlow(member bool) (*Flow, *fakeLedger, *fakeChecker, *fakeNotifier, state.Store) {
	l := newFakeLedger()
	c := &fakeChecker{
		member:  member,
		missing: []string{"First"},
		channels: []config.Channel{
			{Name: "First", Username: "first"},
			{Name: "Second", Username: "second"},
		},
	}
	n := newFakeNotifier()
	s := state.NewMemory()
	f := New(l, c, s, n, testConfig(), zap.NewNop())
	f.SetBotUsername("testbot")
	return f, l, c, n, s
}

func user(id int64) UserInfo {
	return UserInfo{ID: id, Username: "u", FullName: "Test User"}
}

func TestStartVerifiedCreatesAccount(t *testing.T) {
	f, l, _, _, _ := setupFlow(true)
	ctx := context.Background()

	reply := f.Start(ctx, user(100), "")
	assert.Contains(t, reply.Text, "Verification Successful")
	assert.Equal(t, KeyboardMain, reply.Keyboard)

	row := l.users[100]
	require.NotNil(t, row)
	assert.InDelta(t, 0.1, row.Balance, 1e-9)

	// A repeat start greets a returning user.
	reply = f.Start(ctx, user(100), "")
	assert.Equal(t, msgWelcomeBack, reply.Text)
	assert.Equal(t, 2, row.StartCount)
}

func TestStartCreditsReferrer(t *testing.T) {
	f, l, _, n, _ := setupFlow(true)
	ctx := context.Background()

	f.Start(ctx, user(100), "")
	reply := f.Start(ctx, user(200), "100")
	assert.Contains(t, reply.Text, "Verification Successful")

	assert.InDelta(t, 0.2, l.users[100].Balance, 1e-9)
	assert.Equal(t, 1, l.users[100].ReferralCount)

	require.Len(t, n.sent[100], 1, "referrer gets an alert")
	assert.Contains(t, n.sent[100][0], "New Referral Reward")
}

func TestStartIgnoresBadReferralArgs(t *testing.T) {
	f, l, _, n, _ := setupFlow(true)
	ctx := context.Background()

	f.Start(ctx, user(100), "not-a-number")
	assert.Nil(t, l.users[100].ReferrerID)

	f.Start(ctx, user(200), "200") // self-referral
	assert.Nil(t, l.users[200].ReferrerID)

	f.Start(ctx, user(300), "999") // unknown referrer
	assert.Nil(t, l.users[300].ReferrerID)

	assert.Empty(t, n.sent, "no referral alerts for dropped referrers")
}

func TestStartUnverifiedStashesReferrer(t *testing.T) {
	f, l, c, n, s := setupFlow(false)
	ctx := context.Background()

	// The referrer already holds an account.
	l.users[100] = &models.User{TelegramID: 100, Balance: 0.1}

	reply := f.Start(ctx, user(200), "100")
	assert.Contains(t, reply.Text, "join all the required channels")
	assert.Equal(t, KeyboardJoin, reply.Keyboard)
	assert.Nil(t, l.users[200], "no account before verification")

	conv, err := s.Get(ctx, 200)
	require.NoError(t, err)
	assert.Equal(t, int64(100), conv.PendingReferrer)

	// The user joins and hits the verify button, which carries no referral
	// argument of its own. The stashed referrer must still be credited.
	c.member = true
	reply = f.CheckChannels(ctx, user(200))
	assert.Contains(t, reply.Text, "Verification Successful")

	require.NotNil(t, l.users[200])
	assert.Equal(t, 1, l.users[100].ReferralCount)
	require.Len(t, n.sent[100], 1)

	conv, err = s.Get(ctx, 200)
	require.NoError(t, err)
	assert.Zero(t, conv.PendingReferrer, "stash cleared after credit")
}

func TestCheckChannelsStillMissing(t *testing.T) {
	f, l, _, _, _ := setupFlow(false)

	reply := f.CheckChannels(context.Background(), user(100))
	assert.Equal(t, KeyboardJoin, reply.Keyboard)
	assert.Contains(t, reply.Text, "https://t.me/first")
	assert.Nil(t, l.users[100])
}

func TestHelpVariants(t *testing.T) {
	f, _, _, _, _ := setupFlow(true)
	ctx := context.Background()

	reply := f.Help(ctx, 100)
	assert.Equal(t, KeyboardJoin, reply.Keyboard, "unknown users get the join prompt")
	assert.Contains(t, reply.Text, "Required Channels")

	f.Start(ctx, user(100), "")
	reply = f.Help(ctx, 100)
	assert.Equal(t, KeyboardMain, reply.Keyboard)
	assert.Contains(t, reply.Text, "USDT Airdrop Bot")
}

func TestStatusVerified(t *testing.T) {
	f, _, _, _, _ := setupFlow(true)
	ctx := context.Background()

	f.Start(ctx, user(100), "")
	reply := f.Status(ctx, user(100))
	assert.Contains(t, reply.Text, "Status: Verified Member")
	assert.Contains(t, reply.Text, "0.10 USDT")
}

func TestStatusUnverified(t *testing.T) {
	f, _, c, _, _ := setupFlow(false)

	reply := f.Status(context.Background(), user(100))
	assert.Contains(t, reply.Text, "Access Restricted")
	assert.Contains(t, reply.Text, "First")
	assert.Equal(t, KeyboardJoin, reply.Keyboard)

	// Member of everything but not yet verified.
	c.member = true
	reply = f.Status(context.Background(), user(100))
	assert.Contains(t, reply.Text, "Ready for Verification")
	assert.Equal(t, KeyboardMain, reply.Keyboard)
}

func TestReferIncludesLink(t *testing.T) {
	f, _, _, _, _ := setupFlow(true)
	ctx := context.Background()

	f.Start(ctx, user(100), "")
	reply := f.Refer(ctx, 100)
	assert.Contains(t, reply.Text, "https://t.me/testbot?start=100")
	assert.Equal(t, KeyboardBack, reply.Keyboard)
}

func TestWithdrawShortfall(t *testing.T) {
	f, _, _, _, _ := setupFlow(true)
	ctx := context.Background()

	f.Start(ctx, user(100), "")
	reply := f.Withdraw(ctx, 100)
	assert.Contains(t, reply.Text, "Insufficient Balance")
	// 0.9 short at 0.1 per referral rounds up to 9 more friends.
	assert.Contains(t, reply.Text, "Refer 9 more friends")
	assert.Equal(t, KeyboardBack, reply.Keyboard)
}

func TestWithdrawOffer(t *testing.T) {
	f, l, _, _, _ := setupFlow(true)
	ctx := context.Background()

	f.Start(ctx, user(100), "")
	l.users[100].Balance = 1.5

	reply := f.Withdraw(ctx, 100)
	assert.Contains(t, reply.Text, "Withdrawal Request")
	assert.Equal(t, KeyboardWithdraw, reply.Keyboard)
}

func TestWalletEntryFlow(t *testing.T) {
	f, l, _, _, s := setupFlow(true)
	ctx := context.Background()

	f.Start(ctx, user(100), "")
	l.users[100].Balance = 2.0

	reply := f.EnterWallet(ctx, 100)
	assert.Equal(t, msgEnterWallet, reply.Text)

	conv, err := s.Get(ctx, 100)
	require.NoError(t, err)
	assert.Equal(t, state.StageAwaitingWallet, conv.Stage)

	// The next message is the wallet address.
	reply = f.Text(ctx, user(100), "  TWalletAddr123  ")
	assert.Contains(t, reply.Text, "Withdrawal Request Submitted")
	assert.Contains(t, reply.Text, "2.00 USDT")
	assert.Contains(t, reply.Text, "TWalletAddr123")

	assert.Equal(t, "TWalletAddr123", l.users[100].WalletAddress)
	assert.Zero(t, l.users[100].Balance)

	conv, err = s.Get(ctx, 100)
	require.NoError(t, err)
	assert.Empty(t, conv.Stage, "wallet stage exits after one message")

	// Free text afterwards goes back to auto-replies.
	reply = f.Text(ctx, user(100), "random words")
	assert.Contains(t, reply.Text, "Auto-Reply")
}

func TestWalletEntryInsufficientBalance(t *testing.T) {
	f, l, _, _, s := setupFlow(true)
	ctx := context.Background()

	f.Start(ctx, user(100), "")
	f.EnterWallet(ctx, 100)

	reply := f.Text(ctx, user(100), "TWalletAddr123")
	assert.Contains(t, reply.Text, "Insufficient balance")

	assert.Empty(t, l.users[100].WalletAddress)
	assert.InDelta(t, 0.1, l.users[100].Balance, 1e-9)

	conv, err := s.Get(ctx, 100)
	require.NoError(t, err)
	assert.Empty(t, conv.Stage, "stage exits even on failure")
}

func TestAutoReplyPrecedence(t *testing.T) {
	f, _, _, _, _ := setupFlow(true)
	ctx := context.Background()
	f.Start(ctx, user(100), "")

	cases := []struct {
		text string
		want string
	}{
		// "how" matches help before "withdraw" gets a chance.
		{"how do I withdraw", "Auto-Reply: Help"},
		{"my balance please", "Auto-Reply: Your Balance"},
		{"withdraw now", "Auto-Reply: Minimum Not Met"},
		{"invite a friend", "Auto-Reply: Your Referral Link"},
		{"thanks a lot", "You're welcome"},
		{"hello there", "Auto-Reply: Hello"},
		{"qwerty", "handling requests automatically"},
	}
	for _, tc := range cases {
		reply := f.Text(ctx, user(100), tc.text)
		assert.Contains(t, reply.Text, tc.want, "input %q", tc.text)
	}
}

func TestAutoReplyUnverifiedGetsJoinPrompts(t *testing.T) {
	f, _, _, _, _ := setupFlow(false)
	ctx := context.Background()

	reply := f.Text(ctx, user(100), "show my balance")
	assert.Contains(t, reply.Text, "Join Required")
	assert.Equal(t, KeyboardJoin, reply.Keyboard)

	reply = f.Text(ctx, user(100), "withdraw")
	assert.Contains(t, reply.Text, "Join Required")
	assert.Equal(t, KeyboardJoin, reply.Keyboard)
}

func TestLedgerErrorsSurfaceGently(t *testing.T) {
	f, l, _, _, _ := setupFlow(true)
	l.failing = true

	reply := f.Help(context.Background(), 100)
	assert.Equal(t, msgTryAgain, reply.Text)
	assert.Equal(t, KeyboardMain, reply.Keyboard)
}

func TestParseReferrer(t *testing.T) {
	assert.Nil(t, parseReferrer("", 1))
	assert.Nil(t, parseReferrer("abc", 1))
	assert.Nil(t, parseReferrer("1", 1), "self-referral is dropped")

	got := parseReferrer(" 42 ", 1)
	require.NotNil(t, got)
	assert.Equal(t, int64(42), *got)
}

func TestReferralsNeededRoundsUp(t *testing.T) {
	assert.Equal(t, 9, referralsNeeded(0.9, 0.1))
	assert.Equal(t, 9, referralsNeeded(0.85, 0.1))
	assert.Equal(t, 1, referralsNeeded(0.01, 0.1))
	assert.Equal(t, 0, referralsNeeded(0.5, 0))
}

func TestJoinRequiredTextListsOnlyMissing(t *testing.T) {
	channels := []config.Channel{
		{Name: "First", Username: "first"},
		{Name: "Second", Username: "second"},
	}
	text := joinRequiredText(channels, []string{"Second"})
	assert.NotContains(t, text, "https://t.me/first")
	assert.Contains(t, text, "https://t.me/second")

	// An empty missing list shows everything.
	text = joinRequiredText(channels, nil)
	assert.True(t, strings.Contains(text, "first") && strings.Contains(text, "second"))
}
