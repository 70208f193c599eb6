package flow

import (
	"fmt"
	"math"
	"strings"

	"airdrop-bot/internal/config"
)

const (
	msgWelcomeBack   = "✅ Welcome back! You have access to all bot features now."
	msgTryAgain      = "⚠️ Something went wrong. Please try again in a moment."
	msgWithdrawError = "❌ Error processing withdrawal. Please try again."

	msgEnterWallet = "💳 *Enter Wallet Address*\n\n" +
		"Please send your USDT wallet address in the next message.\n\n" +
		"⚠️ *Important:*\n" +
		"• Make sure your wallet supports USDT\n" +
		"• Double-check your wallet address\n" +
		"• Only TRC20 USDT addresses are supported\n\n" +
		"📝 Type your wallet address and send it:"
)

func joinRequiredText(channels []config.Channel, missing []string) string {
	var b strings.Builder
	b.WriteString("❗ To use this bot, please join all the required channels below:\n\n")

	missingSet := make(map[string]bool, len(missing))
	for _, name := range missing {
		missingSet[name] = true
	}
	for _, ch := range channels {
		if len(missing) == 0 || missingSet[ch.Name] {
			fmt.Fprintf(&b, "🔗 https://t.me/%s - %s\n", ch.Username, ch.Name)
		}
	}
	b.WriteString("\nClick the buttons below to join each channel:")
	return b.String()
}

func welcomeNewText(bonus, reward, minimum float64) string {
	return fmt.Sprintf("✅ *Verification Successful!*\n\n"+
		"🎉 Welcome to our community! You now have full access to all bot features.\n\n"+
		"💰 *Your Benefits:*\n"+
		"• %.1f USDT welcome bonus added to your account\n"+
		"• Earn %.1f USDT for each successful referral\n"+
		"• Minimum withdrawal: %.1f USDT\n\n"+
		"Choose an option below to get started:", bonus, reward, minimum)
}

func referrerAlertText(fullName string, reward float64) string {
	return fmt.Sprintf("🎉 <b>New Referral Reward!</b> 🎉\n\n"+
		"💰 You earned <b>+%.1f USDT</b> for a successful referral!\n"+
		"👤 %s just joined using your link\n\n"+
		"Keep sharing your referral link to earn more! 🚀", reward, fullName)
}

func helpVerifiedText(reward, minimum float64) string {
	return fmt.Sprintf("🤖 *USDT Airdrop Bot*\n\n"+
		"Welcome! You have full access to all bot features.\n\n"+
		"*Available Commands:*\n"+
		"/start - Access main menu\n"+
		"/help - Show this help message\n"+
		"/status - Check your account status\n\n"+
		"*Features:*\n"+
		"💰 Refer friends and earn %.1f USDT per referral\n"+
		"💸 Withdraw your earnings (minimum %.1f USDT)\n"+
		"📊 Track your balance and referrals", reward, minimum)
}

func helpUnverifiedText(channels []config.Channel) string {
	return "🤖 *Channel Membership Bot*\n\n" +
		"This bot requires you to join specific channels before accessing its features.\n\n" +
		"*Commands:*\n" +
		"/start - Start the bot and check membership\n" +
		"/help - Show this help message\n" +
		"/status - Check your current membership status\n\n" +
		channelListText(channels) +
		"\nAfter joining all channels, use the verification button to gain access."
}

func channelListText(channels []config.Channel) string {
	var b strings.Builder
	b.WriteString("📋 Required Channels:\n")
	for i, ch := range channels {
		fmt.Fprintf(&b, "%d. %s (@%s)\n", i+1, ch.Name, ch.Username)
	}
	return b.String()
}

func userInfoText(user UserInfo) string {
	info := "👤 " + user.FullName
	if user.Username != "" {
		info += " (@" + user.Username + ")"
	}
	return fmt.Sprintf("%s\n🆔 ID: %d", info, user.ID)
}

func statusVerifiedText(user UserInfo, balance float64, referrals int, minimum float64) string {
	return fmt.Sprintf("%s\n\n"+
		"✅ *Status: Verified Member*\n\n"+
		"💰 Balance: *%.2f USDT*\n"+
		"👥 Referrals: *%d*\n"+
		"💸 Available for withdrawal: *%.2f USDT*",
		userInfoText(user), balance, referrals, math.Max(0, balance-minimum))
}

func statusUnverifiedText(user UserInfo, isMember bool, missing []string) string {
	if isMember {
		return userInfoText(user) + "\n\n" +
			"✅ *Status: Ready for Verification*\n" +
			"You are a member of all required channels. Click verify to continue."
	}
	return userInfoText(user) + "\n\n" +
		"❌ *Status: Access Restricted*\n" +
		"Missing channels: " + strings.Join(missing, ", ")
}

func referText(balance float64, referrals int, reward, minimum float64, link string) string {
	return fmt.Sprintf("👥 *Refer & Earn Program*\n\n"+
		"💰 *Your Stats:*\n"+
		"• Balance: %.2f USDT\n"+
		"• Referrals: %d\n"+
		"• Earnings: %.2f USDT\n\n"+
		"🎯 *How it works:*\n"+
		"• Share your referral link\n"+
		"• Earn %.1f USDT per referral\n"+
		"• Minimum withdrawal: %.1f USDT\n\n"+
		"🔗 *Your Referral Link:*\n"+
		"`%s`\n\n"+
		"💡 Share this link with friends to start earning!",
		balance, referrals, float64(referrals)*reward, reward, minimum, link)
}

func balanceText(balance float64, referrals int, reward, minimum float64) string {
	text := fmt.Sprintf("💰 *Your Balance*\n\n"+
		"💵 *Current Balance:* %.2f USDT\n"+
		"👥 *Total Referrals:* %d\n"+
		"📈 *Total Earned:* %.2f USDT\n\n"+
		"💸 *Withdrawal Status:*\n",
		balance, referrals, float64(referrals)*reward)
	if balance >= minimum {
		return text + fmt.Sprintf("✅ You can withdraw %.2f USDT", balance)
	}
	needed := minimum - balance
	return text + fmt.Sprintf("❌ Need %.2f more USDT to withdraw\n🎯 Refer %d more friends!",
		needed, referralsNeeded(needed, reward))
}

func withdrawOfferText(balance float64) string {
	return fmt.Sprintf("💸 *Withdrawal Request*\n\n"+
		"💰 *Available Balance:* %.2f USDT\n"+
		"💳 *Withdrawal Amount:* %.2f USDT\n\n"+
		"📝 *Next Step:*\n"+
		"Please provide your USDT wallet address to proceed with the withdrawal.\n\n"+
		"⚠️ *Important:*\n"+
		"• Make sure your wallet supports USDT\n"+
		"• Double-check your wallet address\n"+
		"• Processing takes 24-48 hours", balance, balance)
}

func withdrawShortfallText(balance, minimum, reward float64) string {
	needed := minimum - balance
	return fmt.Sprintf("❌ *Insufficient Balance*\n\n"+
		"💰 *Current Balance:* %.2f USDT\n"+
		"💸 *Minimum Withdrawal:* %.1f USDT\n"+
		"📊 *Need:* %.2f more USDT\n\n"+
		"🎯 *To reach minimum:*\n"+
		"Refer %d more friends to earn %.2f USDT",
		balance, minimum, needed, referralsNeeded(needed, reward), needed)
}

func withdrawSubmittedText(amount float64, wallet string) string {
	return fmt.Sprintf("✅ *Withdrawal Request Submitted*\n\n"+
		"💰 *Amount:* %.2f USDT\n"+
		"💳 *Wallet:* %s\n\n"+
		"⏳ *Please wait 24-48 hours to receive your payment.*", amount, wallet)
}

func insufficientBalanceText(minimum float64) string {
	return fmt.Sprintf("❌ Insufficient balance. You need %.2f USDT to withdraw.", minimum)
}

// referralsNeeded rounds the shortfall up to whole referrals.
func referralsNeeded(shortfall, reward float64) int {
	if reward <= 0 {
		return 0
	}
	return int(math.Ceil(shortfall / reward))
}
