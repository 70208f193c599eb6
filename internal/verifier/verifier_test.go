package verifier

import (
	"context"
	"errors"
	"testing"

	"github.com/mymmrac/telego"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"airdrop-bot/internal/config"
)

type fakeChatAPI struct {
	// statuses maps "@handle" to a membership status; missing entries
	// simulate an API error.
	statuses map[string]string
	calls    []string
}

func (f *fakeChatAPI) GetChatMember(_ context.Context, params *telego.GetChatMemberParams) (telego.ChatMember, error) {
	handle := params.ChatID.Username
	f.calls = append(f.calls, handle)

	status, ok := f.statuses[handle]
	if !ok {
		return nil, errors.New("chat not found")
	}
	switch status {
	case telego.MemberStatusMember:
		return &telego.ChatMemberMember{Status: status}, nil
	case telego.MemberStatusAdministrator:
		return &telego.ChatMemberAdministrator{Status: status}, nil
	case telego.MemberStatusCreator:
		return &telego.ChatMemberOwner{Status: status}, nil
	default:
		return &telego.ChatMemberLeft{Status: status}, nil
	}
}

func testChannels() []config.Channel {
	return []config.Channel{
		{Name: "First", Username: "first"},
		{Name: "Second", Username: "second"},
		{Name: "Third", Username: "third"},
	}
}

func TestCheckAllMember(t *testing.T) {
	api := &fakeChatAPI{statuses: map[string]string{
		"@first":  telego.MemberStatusMember,
		"@second": telego.MemberStatusAdministrator,
		"@third":  telego.MemberStatusCreator,
	}}
	v := New(api, testChannels(), zap.NewNop())

	ok, missing := v.Check(context.Background(), 42)
	assert.True(t, ok)
	assert.Empty(t, missing)
	assert.Equal(t, []string{"@first", "@second", "@third"}, api.calls, "one ordered lookup per channel")
}

func TestCheckReportsAllMissing(t *testing.T) {
	api := &fakeChatAPI{statuses: map[string]string{
		"@first":  telego.MemberStatusLeft,
		"@second": telego.MemberStatusMember,
		"@third":  telego.MemberStatusBanned,
	}}
	v := New(api, testChannels(), zap.NewNop())

	ok, missing := v.Check(context.Background(), 42)
	assert.False(t, ok)
	assert.Equal(t, []string{"First", "Third"}, missing, "every channel checked even after a miss")
	assert.Len(t, api.calls, 3)
}

func TestCheckFailsClosedOnError(t *testing.T) {
	// Second channel errors out; the user must not pass.
	api := &fakeChatAPI{statuses: map[string]string{
		"@first": telego.MemberStatusMember,
		"@third": telego.MemberStatusMember,
	}}
	v := New(api, testChannels(), zap.NewNop())

	ok, missing := v.Check(context.Background(), 42)
	assert.False(t, ok)
	assert.Equal(t, []string{"Second"}, missing)
}

func TestCheckNoChannels(t *testing.T) {
	api := &fakeChatAPI{}
	v := New(api, nil, zap.NewNop())

	ok, missing := v.Check(context.Background(), 42)
	assert.True(t, ok, "an empty channel list gates nothing")
	assert.Empty(t, missing)
	assert.Empty(t, api.calls)
}

func TestChannelsReturnsConfiguredOrder(t *testing.T) {
	channels := testChannels()
	v := New(&fakeChatAPI{}, channels, zap.NewNop())
	require.Equal(t, channels, v.Channels())
}
