package verifier

import (
	"context"

	"github.com/mymmrac/telego"
	tu "github.com/mymmrac/telego/telegoutil"
	"go.uber.org/zap"

	"airdrop-bot/internal/config"
)

// ChatMemberAPI is the slice of the Telegram API the verifier needs.
// *telego.Bot satisfies it.
type ChatMemberAPI interface {
	GetChatMember(ctx context.Context, params *telego.GetChatMemberParams) (telego.ChatMember, error)
}

// Verifier checks whether a user belongs to every required channel.
type Verifier struct {
	api      ChatMemberAPI
	channels []config.Channel
	log      *zap.Logger
}

func New(api ChatMemberAPI, channels []config.Channel, log *zap.Logger) *Verifier {
	return &Verifier{api: api, channels: channels, log: log}
}

// Channels returns the configured channel list in order.
func (v *Verifier) Channels() []config.Channel {
	return v.channels
}

// Check queries every configured channel, in order, one lookup per channel.
// Any lookup error counts as not a member of that channel, so verification
// fails closed. Every channel is checked even after a failure so the missing
// list is complete.
func (v *Verifier) Check(ctx context.Context, userID int64) (bool, []string) {
	var missing []string

	for _, channel := range v.channels {
		member, err := v.api.GetChatMember(ctx, &telego.GetChatMemberParams{
			ChatID: tu.Username("@" + channel.Username),
			UserID: userID,
		})
		if err != nil {
			v.log.Warn("membership lookup failed",
				zap.Int64("user_id", userID),
				zap.String("channel", channel.Username),
				zap.Error(err))
			missing = append(missing, channel.Name)
			continue
		}

		switch member.MemberStatus() {
		case telego.MemberStatusMember, telego.MemberStatusAdministrator, telego.MemberStatusCreator:
		default:
			v.log.Debug("user not a member",
				zap.Int64("user_id", userID),
				zap.String("channel", channel.Username),
				zap.String("status", member.MemberStatus()))
			missing = append(missing, channel.Name)
		}
	}

	return len(missing) == 0, missing
}
