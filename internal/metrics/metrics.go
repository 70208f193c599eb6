package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// VerificationsTotal counts membership checks by result.
	VerificationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "bot_verifications_total",
			Help: "Total number of channel membership checks",
		},
		[]string{"result"},
	)

	// ReferralRewardsTotal counts credited referral rewards.
	ReferralRewardsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "bot_referral_rewards_total",
			Help: "Total number of referral rewards credited",
		},
	)

	// WithdrawalsTotal counts withdrawal attempts by result.
	WithdrawalsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "bot_withdrawals_total",
			Help: "Total number of withdrawal attempts",
		},
		[]string{"result"},
	)

	// BroadcastMessagesTotal counts broadcast sends by status.
	BroadcastMessagesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "bot_broadcast_messages_total",
			Help: "Total number of broadcast messages sent",
		},
		[]string{"status"},
	)

	// NotificationsDroppedTotal counts notifications dropped because the
	// notifier queue was full.
	NotificationsDroppedTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "bot_notifications_dropped_total",
			Help: "Total number of notifications dropped due to a full queue",
		},
	)
)
