package flow

import (
	"context"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"airdrop-bot/internal/config"
	"airdrop-bot/internal/ledger"
	"airdrop-bot/internal/metrics"
	"airdrop-bot/internal/state"
)

// UserInfo is the sender identity attached to an inbound update.
type UserInfo struct {
	ID       int64
	Username string
	FullName string
}

// Keyboard tells the transport layer which inline keyboard to attach.
type Keyboard int

const (
	KeyboardNone Keyboard = iota
	KeyboardJoin
	KeyboardRetry
	KeyboardMain
	KeyboardBack
	KeyboardWithdraw
)

// Reply is a composed answer to one inbound update.
type Reply struct {
	Text     string
	Markdown bool
	Keyboard Keyboard
}

// Notifier is the fire-and-forget sender used for referrer alerts.
type Notifier interface {
	Notify(chatID int64, text string)
}

// Checker resolves the membership gate. *verifier.Verifier satisfies it.
type Checker interface {
	Check(ctx context.Context, userID int64) (bool, []string)
	Channels() []config.Channel
}

// Flow drives the per-user conversation: the membership gate, first-contact
// account creation, the menus and the withdrawal state machine.
type Flow struct {
	ledger   ledger.Ledger
	checker  Checker
	states   state.Store
	notifier Notifier

	referralReward    float64
	welcomeBonus      float64
	minimumWithdrawal float64

	botUsername string
	log         *zap.Logger
}

func New(l ledger.Ledger, c Checker, s state.Store, n Notifier, cfg *config.Config, log *zap.Logger) *Flow {
	return &Flow{
		ledger:            l,
		checker:           c,
		states:            s,
		notifier:          n,
		referralReward:    cfg.ReferralReward,
		welcomeBonus:      cfg.WelcomeBonus,
		minimumWithdrawal: cfg.MinimumWithdrawal,
		log:               log,
	}
}

// SetBotUsername fixes the handle used in referral links.
func (f *Flow) SetBotUsername(username string) {
	f.botUsername = username
}

// Start handles the entry command. refArg is the raw referral argument, if
// any; a non-numeric or self-referential value is silently treated as no
// referrer.
func (f *Flow) Start(ctx context.Context, user UserInfo, refArg string) Reply {
	count, err := f.ledger.RecordStart(ctx, user.ID)
	if err != nil {
		f.log.Error("failed to record start", zap.Int64("user_id", user.ID), zap.Error(err))
	}
	f.log.Info("start command",
		zap.Int64("user_id", user.ID),
		zap.String("full_name", user.FullName),
		zap.Int("start_count", count))

	referrerID := parseReferrer(refArg, user.ID)
	return f.verifyAndGreet(ctx, user, referrerID)
}

// CheckChannels handles the "I joined all channels" button.
func (f *Flow) CheckChannels(ctx context.Context, user UserInfo) Reply {
	return f.verifyAndGreet(ctx, user, nil)
}

func (f *Flow) verifyAndGreet(ctx context.Context, user UserInfo, referrerID *int64) Reply {
	isMember, missing := f.checker.Check(ctx, user.ID)
	if !isMember {
		metrics.VerificationsTotal.WithLabelValues("missing").Inc()

		// Keep the referral argument around so the eventual successful
		// verification still credits the referrer.
		if referrerID != nil {
			f.stashReferrer(ctx, user.ID, *referrerID)
		}
		return Reply{
			Text:     joinRequiredText(f.checker.Channels(), missing),
			Keyboard: KeyboardJoin,
		}
	}
	metrics.VerificationsTotal.WithLabelValues("ok").Inc()

	created, credited := f.ensureCreated(ctx, user, referrerID)
	if created {
		if credited != nil {
			f.notifier.Notify(*credited, referrerAlertText(user.FullName, f.referralReward))
			metrics.ReferralRewardsTotal.Inc()
		}
		return Reply{
			Text:     welcomeNewText(f.welcomeBonus, f.referralReward, f.minimumWithdrawal),
			Markdown: true,
			Keyboard: KeyboardMain,
		}
	}
	return Reply{Text: msgWelcomeBack, Keyboard: KeyboardMain}
}

// ensureCreated creates the ledger row on a user's first successful
// verification. It returns whether a row was created and, when a referrer
// was actually credited, that referrer's id.
func (f *Flow) ensureCreated(ctx context.Context, user UserInfo, referrerID *int64) (bool, *int64) {
	conv, err := f.states.Get(ctx, user.ID)
	if err != nil {
		f.log.Warn("failed to load conversation state", zap.Int64("user_id", user.ID), zap.Error(err))
	}
	if referrerID == nil && conv.PendingReferrer != 0 && conv.PendingReferrer != user.ID {
		pending := conv.PendingReferrer
		referrerID = &pending
	}

	created, err := f.ledger.Create(ctx, user.ID, user.Username, user.FullName, referrerID)
	if err != nil {
		f.log.Error("failed to create user", zap.Int64("user_id", user.ID), zap.Error(err))
		return false, nil
	}
	if !created {
		return false, nil
	}

	if conv.PendingReferrer != 0 {
		conv.PendingReferrer = 0
		if err := f.states.Set(ctx, user.ID, conv); err != nil {
			f.log.Warn("failed to clear pending referrer", zap.Int64("user_id", user.ID), zap.Error(err))
		}
	}

	if referrerID == nil {
		return true, nil
	}
	// The ledger drops unresolvable referrers; only a surviving
	// back-reference means the reward was credited.
	row, err := f.ledger.GetOrNone(ctx, user.ID)
	if err != nil || row == nil || row.ReferrerID == nil {
		return true, nil
	}
	return true, row.ReferrerID
}

func (f *Flow) stashReferrer(ctx context.Context, userID, referrerID int64) {
	conv, err := f.states.Get(ctx, userID)
	if err != nil {
		f.log.Warn("failed to load conversation state", zap.Int64("user_id", userID), zap.Error(err))
		return
	}
	conv.PendingReferrer = referrerID
	if err := f.states.Set(ctx, userID, conv); err != nil {
		f.log.Warn("failed to stash referrer", zap.Int64("user_id", userID), zap.Error(err))
	}
}

// Help composes the help text, richer for verified users.
func (f *Flow) Help(ctx context.Context, userID int64) Reply {
	row, err := f.ledger.GetOrNone(ctx, userID)
	if err != nil {
		f.log.Error("failed to look up user", zap.Int64("user_id", userID), zap.Error(err))
		return errorReply()
	}
	if row != nil {
		return Reply{
			Text:     helpVerifiedText(f.referralReward, f.minimumWithdrawal),
			Markdown: true,
			Keyboard: KeyboardMain,
		}
	}
	return Reply{
		Text:     helpUnverifiedText(f.checker.Channels()),
		Markdown: true,
		Keyboard: KeyboardJoin,
	}
}

// Status reports account stats for verified users, or the membership gap
// for everyone else.
func (f *Flow) Status(ctx context.Context, user UserInfo) Reply {
	row, err := f.ledger.GetOrNone(ctx, user.ID)
	if err != nil {
		f.log.Error("failed to look up user", zap.Int64("user_id", user.ID), zap.Error(err))
		return errorReply()
	}
	if row != nil {
		return Reply{
			Text:     statusVerifiedText(user, row.Balance, row.ReferralCount, f.minimumWithdrawal),
			Markdown: true,
			Keyboard: KeyboardMain,
		}
	}

	isMember, missing := f.checker.Check(ctx, user.ID)
	kb := KeyboardJoin
	if isMember {
		kb = KeyboardMain
	}
	return Reply{
		Text:     statusUnverifiedText(user, isMember, missing),
		Markdown: true,
		Keyboard: kb,
	}
}

// Refer shows the user's referral link and earnings so far.
func (f *Flow) Refer(ctx context.Context, userID int64) Reply {
	balance, referrals, err := f.ledger.Stats(ctx, userID)
	if err != nil {
		f.log.Error("failed to load stats", zap.Int64("user_id", userID), zap.Error(err))
		return errorReply()
	}
	link := referralLink(f.botUsername, userID)
	return Reply{
		Text:     referText(balance, referrals, f.referralReward, f.minimumWithdrawal, link),
		Markdown: true,
		Keyboard: KeyboardBack,
	}
}

// Balance shows balance, referral totals and withdrawal eligibility.
func (f *Flow) Balance(ctx context.Context, userID int64) Reply {
	balance, referrals, err := f.ledger.Stats(ctx, userID)
	if err != nil {
		f.log.Error("failed to load stats", zap.Int64("user_id", userID), zap.Error(err))
		return errorReply()
	}
	return Reply{
		Text:     balanceText(balance, referrals, f.referralReward, f.minimumWithdrawal),
		Markdown: true,
		Keyboard: KeyboardBack,
	}
}

// Withdraw is the withdraw menu action: it offers wallet entry when the
// balance clears the minimum and otherwise reports the shortfall. It never
// mutates the ledger.
func (f *Flow) Withdraw(ctx context.Context, userID int64) Reply {
	balance, _, err := f.ledger.Stats(ctx, userID)
	if err != nil {
		f.log.Error("failed to load stats", zap.Int64("user_id", userID), zap.Error(err))
		return errorReply()
	}
	if balance >= f.minimumWithdrawal {
		return Reply{
			Text:     withdrawOfferText(balance),
			Markdown: true,
			Keyboard: KeyboardWithdraw,
		}
	}
	return Reply{
		Text:     withdrawShortfallText(balance, f.minimumWithdrawal, f.referralReward),
		Markdown: true,
		Keyboard: KeyboardBack,
	}
}

// EnterWallet transitions the user into the awaiting-wallet stage; the next
// text message will be treated as the wallet address.
func (f *Flow) EnterWallet(ctx context.Context, userID int64) Reply {
	conv, err := f.states.Get(ctx, userID)
	if err != nil {
		f.log.Warn("failed to load conversation state", zap.Int64("user_id", userID), zap.Error(err))
	}
	conv.Stage = state.StageAwaitingWallet
	if err := f.states.Set(ctx, userID, conv); err != nil {
		f.log.Error("failed to enter wallet stage", zap.Int64("user_id", userID), zap.Error(err))
		return errorReply()
	}
	return Reply{Text: msgEnterWallet, Markdown: true}
}

// Text handles free-form messages: a wallet address when the user is in the
// awaiting-wallet stage, keyword auto-replies otherwise.
func (f *Flow) Text(ctx context.Context, user UserInfo, text string) Reply {
	conv, err := f.states.Get(ctx, user.ID)
	if err != nil {
		f.log.Warn("failed to load conversation state", zap.Int64("user_id", user.ID), zap.Error(err))
	}
	if conv.Stage == state.StageAwaitingWallet {
		// The stage exits on any message, whatever the outcome.
		conv.Stage = ""
		if err := f.states.Set(ctx, user.ID, conv); err != nil {
			f.log.Warn("failed to leave wallet stage", zap.Int64("user_id", user.ID), zap.Error(err))
		}
		return f.submitWithdrawal(ctx, user.ID, strings.TrimSpace(text))
	}
	return f.autoReply(ctx, user, text)
}

func (f *Flow) submitWithdrawal(ctx context.Context, userID int64, wallet string) Reply {
	amount, ok, err := f.ledger.Withdraw(ctx, userID, wallet, f.minimumWithdrawal)
	if err != nil {
		metrics.WithdrawalsTotal.WithLabelValues("error").Inc()
		f.log.Error("withdrawal failed", zap.Int64("user_id", userID), zap.Error(err))
		return Reply{Text: msgWithdrawError, Keyboard: KeyboardMain}
	}
	if !ok {
		metrics.WithdrawalsTotal.WithLabelValues("insufficient").Inc()
		return Reply{
			Text:     insufficientBalanceText(f.minimumWithdrawal),
			Keyboard: KeyboardMain,
		}
	}
	metrics.WithdrawalsTotal.WithLabelValues("ok").Inc()
	f.log.Info("withdrawal submitted",
		zap.Int64("user_id", userID),
		zap.Float64("amount", amount))
	return Reply{
		Text:     withdrawSubmittedText(amount, wallet),
		Markdown: true,
		Keyboard: KeyboardMain,
	}
}

func parseReferrer(arg string, selfID int64) *int64 {
	arg = strings.TrimSpace(arg)
	if arg == "" {
		return nil
	}
	id, err := strconv.ParseInt(arg, 10, 64)
	if err != nil || id == selfID {
		return nil
	}
	return &id
}

func referralLink(botUsername string, userID int64) string {
	return "https://t.me/" + botUsername + "?start=" + strconv.FormatInt(userID, 10)
}

func errorReply() Reply {
	return Reply{Text: msgTryAgain, Keyboard: KeyboardMain}
}
