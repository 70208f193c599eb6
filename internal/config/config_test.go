package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseChannels(t *testing.T) {
	channels := parseChannels("News:newschannel, Chat:@chatgroup ,bare")
	require.Len(t, channels, 3)
	assert.Equal(t, Channel{Name: "News", Username: "newschannel"}, channels[0])
	assert.Equal(t, Channel{Name: "Chat", Username: "chatgroup"}, channels[1], "leading @ is stripped")
	assert.Equal(t, Channel{Name: "bare", Username: "bare"}, channels[2], "bare entries double as handle")
}

func TestParseChannelsEmpty(t *testing.T) {
	assert.Empty(t, parseChannels(""))
	assert.Empty(t, parseChannels(" , ,"))
}

func TestLoadConfigDefaults(t *testing.T) {
	cfg := LoadConfig()

	assert.Equal(t, "postgres", cfg.DBUser)
	assert.Equal(t, ":8081", cfg.AdminAddr)
	assert.InDelta(t, 0.1, cfg.ReferralReward, 1e-9)
	assert.InDelta(t, 1.0, cfg.MinimumWithdrawal, 1e-9)
	assert.Len(t, cfg.Channels, 4)
	assert.Equal(t, 4, cfg.NotifyWorkers)
}

func TestLoadConfigOverrides(t *testing.T) {
	t.Setenv("CHANNELS", "Main:mainchannel")
	t.Setenv("MINIMUM_WITHDRAWAL", "2.5")
	t.Setenv("NOTIFY_WORKERS", "8")

	cfg := LoadConfig()
	require.Len(t, cfg.Channels, 1)
	assert.Equal(t, "mainchannel", cfg.Channels[0].Username)
	assert.InDelta(t, 2.5, cfg.MinimumWithdrawal, 1e-9)
	assert.Equal(t, 8, cfg.NotifyWorkers)
}

func TestInvalidNumbersFallBack(t *testing.T) {
	t.Setenv("REFERRAL_REWARD", "lots")
	t.Setenv("NOTIFY_QUEUE", "many")

	cfg := LoadConfig()
	assert.InDelta(t, 0.1, cfg.ReferralReward, 1e-9)
	assert.Equal(t, 256, cfg.NotifyQueue)
}
