package bot

import (
	"fmt"

	"github.com/mymmrac/telego"
	tu "github.com/mymmrac/telego/telegoutil"

	"airdrop-bot/internal/config"
)

func joinKeyboard(channels []config.Channel) *telego.InlineKeyboardMarkup {
	rows := make([][]telego.InlineKeyboardButton, 0, len(channels)+1)
	for _, ch := range channels {
		rows = append(rows, tu.InlineKeyboardRow(
			tu.InlineKeyboardButton(fmt.Sprintf("📢 Join %s", ch.Name)).
				WithURL("https://t.me/"+ch.Username),
		))
	}
	rows = append(rows, tu.InlineKeyboardRow(
		tu.InlineKeyboardButton("✅ I Joined All Channels").WithCallbackData("check_channels"),
	))
	return tu.InlineKeyboard(rows...)
}

func retryKeyboard() *telego.InlineKeyboardMarkup {
	return tu.InlineKeyboard(
		tu.InlineKeyboardRow(
			tu.InlineKeyboardButton("🔄 Check Again").WithCallbackData("check_channels"),
		),
	)
}

func mainMenuKeyboard() *telego.InlineKeyboardMarkup {
	return tu.InlineKeyboard(
		tu.InlineKeyboardRow(
			tu.InlineKeyboardButton("👥 Refer & Earn").WithCallbackData("refer"),
			tu.InlineKeyboardButton("💰 My Balance").WithCallbackData("balance"),
		),
		tu.InlineKeyboardRow(
			tu.InlineKeyboardButton("💸 Withdraw").WithCallbackData("withdraw"),
			tu.InlineKeyboardButton("📊 Status").WithCallbackData("status"),
		),
		tu.InlineKeyboardRow(
			tu.InlineKeyboardButton("ℹ️ Help").WithCallbackData("help"),
		),
	)
}

func backKeyboard() *telego.InlineKeyboardMarkup {
	return tu.InlineKeyboard(
		tu.InlineKeyboardRow(
			tu.InlineKeyboardButton("🔙 Back to Menu").WithCallbackData("back_to_menu"),
		),
	)
}

func withdrawKeyboard() *telego.InlineKeyboardMarkup {
	return tu.InlineKeyboard(
		tu.InlineKeyboardRow(
			tu.InlineKeyboardButton("💳 Enter Wallet Address").WithCallbackData("enter_wallet"),
		),
		tu.InlineKeyboardRow(
			tu.InlineKeyboardButton("🔙 Back to Menu").WithCallbackData("back_to_menu"),
		),
	)
}
