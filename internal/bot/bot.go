package bot

import (
	"context"
	"fmt"
	"strings"

	"github.com/mymmrac/telego"
	th "github.com/mymmrac/telego/telegohandler"
	tu "github.com/mymmrac/telego/telegoutil"
	"go.uber.org/zap"

	"airdrop-bot/internal/config"
	"airdrop-bot/internal/flow"
)

// Bot wires Telegram updates to the conversation flow.
type Bot struct {
	Instance *telego.Bot
	Flow     *flow.Flow
	Channels []config.Channel
	Log      *zap.Logger
}

// NewBot creates the Telegram client. The Flow field is wired afterwards,
// once the verifier and notifier built on Instance exist.
func NewBot(token string, channels []config.Channel, log *zap.Logger) (*Bot, error) {
	tgBot, err := telego.NewBot(token)
	if err != nil {
		return nil, fmt.Errorf("failed to create bot: %w", err)
	}

	return &Bot{
		Instance: tgBot,
		Channels: channels,
		Log:      log,
	}, nil
}

func userInfo(from telego.User) flow.UserInfo {
	fullName := from.FirstName
	if from.LastName != "" {
		fullName += " " + from.LastName
	}
	if fullName == "" {
		fullName = fmt.Sprintf("User %d", from.ID)
	}
	return flow.UserInfo{ID: from.ID, Username: from.Username, FullName: fullName}
}

func (b *Bot) markup(kb flow.Keyboard) telego.ReplyMarkup {
	switch kb {
	case flow.KeyboardJoin:
		return joinKeyboard(b.Channels)
	case flow.KeyboardRetry:
		return retryKeyboard()
	case flow.KeyboardMain:
		return mainMenuKeyboard()
	case flow.KeyboardBack:
		return backKeyboard()
	case flow.KeyboardWithdraw:
		return withdrawKeyboard()
	default:
		return nil
	}
}

func (b *Bot) send(ctx *th.Context, chatID int64, reply flow.Reply) {
	msg := tu.Message(tu.ID(chatID), reply.Text)
	if reply.Markdown {
		msg = msg.WithParseMode(telego.ModeMarkdown)
	}
	if markup := b.markup(reply.Keyboard); markup != nil {
		msg = msg.WithReplyMarkup(markup)
	}
	if _, err := ctx.Bot().SendMessage(ctx.Context(), msg); err != nil {
		b.Log.Warn("failed to send reply", zap.Int64("chat_id", chatID), zap.Error(err))
	}
}

func (b *Bot) answerCallback(ctx *th.Context, callbackID, text string) {
	params := tu.CallbackQuery(callbackID)
	if text != "" {
		params = params.WithText(text)
	}
	if err := ctx.Bot().AnswerCallbackQuery(ctx.Context(), params); err != nil {
		b.Log.Debug("failed to answer callback", zap.Error(err))
	}
}

func (b *Bot) Start() {
	updates, _ := b.Instance.UpdatesViaLongPolling(context.Background(), nil)

	handler, _ := th.NewBotHandler(b.Instance, updates)

	if me, err := b.Instance.GetMe(context.Background()); err == nil {
		b.Flow.SetBotUsername(me.Username)
	} else {
		b.Log.Warn("failed to resolve bot username", zap.Error(err))
	}

	// /start, optionally carrying a referral argument
	handler.Handle(func(ctx *th.Context, update telego.Update) error {
		message := update.Message

		args := ""
		if parts := strings.Split(message.Text, " "); len(parts) > 1 {
			args = parts[1]
		}

		reply := b.Flow.Start(ctx.Context(), userInfo(*message.From), args)
		b.send(ctx, message.Chat.ID, reply)
		return nil
	}, th.CommandEqual("start"))

	handler.Handle(func(ctx *th.Context, update telego.Update) error {
		message := update.Message
		reply := b.Flow.Help(ctx.Context(), message.From.ID)
		b.send(ctx, message.Chat.ID, reply)
		return nil
	}, th.CommandEqual("help"))

	handler.Handle(func(ctx *th.Context, update telego.Update) error {
		message := update.Message
		reply := b.Flow.Status(ctx.Context(), userInfo(*message.From))
		b.send(ctx, message.Chat.ID, reply)
		return nil
	}, th.CommandEqual("status"))

	// Verification button under the join list
	handler.Handle(func(ctx *th.Context, update telego.Update) error {
		callback := update.CallbackQuery
		b.answerCallback(ctx, callback.ID, "🔍 Checking your membership status...")

		reply := b.Flow.CheckChannels(ctx.Context(), userInfo(callback.From))
		b.send(ctx, callback.From.ID, reply)
		return nil
	}, th.CallbackDataEqual("check_channels"))

	handler.Handle(func(ctx *th.Context, update telego.Update) error {
		callback := update.CallbackQuery
		b.answerCallback(ctx, callback.ID, "")
		reply := b.Flow.Refer(ctx.Context(), callback.From.ID)
		b.send(ctx, callback.From.ID, reply)
		return nil
	}, th.CallbackDataEqual("refer"))

	handler.Handle(func(ctx *th.Context, update telego.Update) error {
		callback := update.CallbackQuery
		b.answerCallback(ctx, callback.ID, "")
		reply := b.Flow.Balance(ctx.Context(), callback.From.ID)
		b.send(ctx, callback.From.ID, reply)
		return nil
	}, th.CallbackDataEqual("balance"))

	handler.Handle(func(ctx *th.Context, update telego.Update) error {
		callback := update.CallbackQuery
		b.answerCallback(ctx, callback.ID, "")
		reply := b.Flow.Withdraw(ctx.Context(), callback.From.ID)
		b.send(ctx, callback.From.ID, reply)
		return nil
	}, th.CallbackDataEqual("withdraw"))

	handler.Handle(func(ctx *th.Context, update telego.Update) error {
		callback := update.CallbackQuery
		b.answerCallback(ctx, callback.ID, "")
		reply := b.Flow.Status(ctx.Context(), userInfo(callback.From))
		b.send(ctx, callback.From.ID, reply)
		return nil
	}, th.CallbackDataEqual("status"))

	handler.Handle(func(ctx *th.Context, update telego.Update) error {
		callback := update.CallbackQuery
		b.answerCallback(ctx, callback.ID, "")
		reply := b.Flow.Help(ctx.Context(), callback.From.ID)
		b.send(ctx, callback.From.ID, reply)
		return nil
	}, th.CallbackDataEqual("help"))

	handler.Handle(func(ctx *th.Context, update telego.Update) error {
		callback := update.CallbackQuery
		b.answerCallback(ctx, callback.ID, "")
		b.send(ctx, callback.From.ID, flow.Reply{
			Text:     "🏠 *Main Menu*\n\nChoose an option below:",
			Markdown: true,
			Keyboard: flow.KeyboardMain,
		})
		return nil
	}, th.CallbackDataEqual("back_to_menu"))

	handler.Handle(func(ctx *th.Context, update telego.Update) error {
		callback := update.CallbackQuery
		b.answerCallback(ctx, callback.ID, "")
		reply := b.Flow.EnterWallet(ctx.Context(), callback.From.ID)
		b.send(ctx, callback.From.ID, reply)
		return nil
	}, th.CallbackDataEqual("enter_wallet"))

	// Free text: wallet addresses and keyword auto-replies. Registered last
	// so the command handlers above win.
	handler.Handle(func(ctx *th.Context, update telego.Update) error {
		message := update.Message
		reply := b.Flow.Text(ctx.Context(), userInfo(*message.From), message.Text)
		b.send(ctx, message.Chat.ID, reply)
		return nil
	}, th.AnyMessageWithText())

	handler.Start()
}
