package flow

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"
)

// Keyword categories checked in order; the first match wins.
var (
	helpWords     = []string{"help", "support", "assist", "how"}
	balanceWords  = []string{"balance", "money", "usdt", "earning", "earn"}
	withdrawWords = []string{"withdraw", "payout", "cash", "payment"}
	referWords    = []string{"refer", "invite", "friend", "link"}
	thanksWords   = []string{"thank", "thanks", "good", "great", "awesome"}
	greetingWords = []string{"hi", "hello", "hey", "good morning", "good evening"}
)

func matchesAny(text string, words []string) bool {
	for _, w := range words {
		if strings.Contains(text, w) {
			return true
		}
	}
	return false
}

// autoReply answers unrecognized free text with a canned reply picked by
// keyword, falling through to a generic acknowledgment.
func (f *Flow) autoReply(ctx context.Context, user UserInfo, text string) Reply {
	lower := strings.ToLower(text)

	row, err := f.ledger.GetOrNone(ctx, user.ID)
	if err != nil {
		f.log.Error("failed to look up user", zap.Int64("user_id", user.ID), zap.Error(err))
		return errorReply()
	}
	verified := row != nil

	menu := KeyboardJoin
	if verified {
		menu = KeyboardMain
	}

	switch {
	case matchesAny(lower, helpWords):
		totals, err := f.ledger.Totals(ctx)
		if err != nil {
			f.log.Warn("failed to load totals", zap.Error(err))
		}
		return Reply{
			Text: fmt.Sprintf("🤖 *Auto-Reply: Help*\n\n"+
				"I'm here to help! Here are the available commands:\n\n"+
				"• /start - Access main menu (anytime)\n"+
				"• /help - Show help information\n"+
				"• /status - Check your account status\n\n"+
				"📊 Total /start requests received: %d\n\n"+
				"Use the buttons below for quick actions.", totals.StartRequests),
			Markdown: true,
			Keyboard: menu,
		}

	case matchesAny(lower, balanceWords):
		if !verified {
			return Reply{
				Text: "💰 *Auto-Reply: Join Required*\n\n" +
					"To access balance and earning features, please join our required channels first.",
				Markdown: true,
				Keyboard: KeyboardJoin,
			}
		}
		return Reply{
			Text: fmt.Sprintf("💰 *Auto-Reply: Your Balance*\n\n"+
				"Current Balance: *%.2f USDT*\n"+
				"Total Referrals: *%d*\n"+
				"Available for withdrawal: *%.2f USDT*\n\n"+
				"Minimum withdrawal: %.1f USDT",
				row.Balance, row.ReferralCount,
				maxZero(row.Balance-f.minimumWithdrawal), f.minimumWithdrawal),
			Markdown: true,
			Keyboard: KeyboardMain,
		}

	case matchesAny(lower, withdrawWords):
		if !verified {
			return Reply{
				Text: "💸 *Auto-Reply: Join Required*\n\n" +
					"Please join our required channels to access withdrawal features.",
				Markdown: true,
				Keyboard: KeyboardJoin,
			}
		}
		if row.Balance >= f.minimumWithdrawal {
			return Reply{
				Text: fmt.Sprintf("💸 *Auto-Reply: Withdrawal Available*\n\n"+
					"Your balance: %.2f USDT\n"+
					"Ready for withdrawal!\n\n"+
					"Processing time: 24-48 hours\n"+
					"Use the 'Withdraw' button to proceed.", row.Balance),
				Markdown: true,
				Keyboard: KeyboardMain,
			}
		}
		needed := f.minimumWithdrawal - row.Balance
		return Reply{
			Text: fmt.Sprintf("💸 *Auto-Reply: Minimum Not Met*\n\n"+
				"Current balance: %.2f USDT\n"+
				"Minimum required: %.1f USDT\n"+
				"Need %.2f more USDT\n\n"+
				"Refer more friends to reach the minimum!",
				row.Balance, f.minimumWithdrawal, needed),
			Markdown: true,
			Keyboard: KeyboardMain,
		}

	case matchesAny(lower, referWords):
		if !verified {
			return Reply{
				Text: "👥 *Auto-Reply: Join First*\n\n" +
					"Join our channels to access the referral system and start earning!",
				Markdown: true,
				Keyboard: KeyboardJoin,
			}
		}
		return Reply{
			Text: fmt.Sprintf("👥 *Auto-Reply: Your Referral Link*\n\n"+
				"Earn %.1f USDT for each successful referral!\n\n"+
				"Your link:\n`%s`\n\n"+
				"Share this link with friends to earn rewards.",
				f.referralReward, referralLink(f.botUsername, user.ID)),
			Markdown: true,
			Keyboard: KeyboardMain,
		}

	case matchesAny(lower, thanksWords):
		return Reply{
			Text: "😊 *Auto-Reply*\n\n" +
				"You're welcome! I'm glad I could help.\n\n" +
				"Feel free to use the menu buttons for any other actions you need.",
			Markdown: true,
			Keyboard: menu,
		}

	case matchesAny(lower, greetingWords):
		hint := "Please join our required channels to get started."
		if verified {
			hint = "Use the menu below to access your account."
		}
		return Reply{
			Text: fmt.Sprintf("👋 *Auto-Reply: Hello!*\n\n"+
				"Hello %s! Welcome to our USDT airdrop bot.\n\n"+
				"%s\n\n"+
				"How can I help you today?", firstName(user.FullName), hint),
			Markdown: true,
			Keyboard: menu,
		}

	default:
		return Reply{
			Text: "🤖 *Auto-Reply*\n\n" +
				"Thank you for your message! I'm currently handling requests automatically.\n\n" +
				"For immediate assistance:\n" +
				"• Use the menu buttons below\n" +
				"• Type /help for available commands\n" +
				"• Type /status to check your account\n\n" +
				"Your message has been received and logged.",
			Markdown: true,
			Keyboard: menu,
		}
	}
}

func maxZero(v float64) float64 {
	if v < 0 {
		return 0
	}
	return v
}

func firstName(fullName string) string {
	if name, _, found := strings.Cut(fullName, " "); found {
		return name
	}
	return fullName
}
