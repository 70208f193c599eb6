package main

import (
	"go.uber.org/zap"

	"airdrop-bot/internal/admin"
	"airdrop-bot/internal/bot"
	"airdrop-bot/internal/config"
	"airdrop-bot/internal/database"
	"airdrop-bot/internal/flow"
	"airdrop-bot/internal/ledger"
	"airdrop-bot/internal/notify"
	"airdrop-bot/internal/state"
	"airdrop-bot/internal/verifier"
)

func main() {
	cfg := config.LoadConfig()

	log, err := config.NewLogger(cfg)
	if err != nil {
		panic(err)
	}
	defer log.Sync()

	if cfg.BotToken == "" {
		log.Fatal("BOT_TOKEN is not set")
	}

	db, err := database.ConnectPostgres(cfg)
	if err != nil {
		log.Fatal("failed to connect to database", zap.Error(err))
	}

	// Conversation state lives in redis so restarts don't drop users who
	// are mid withdrawal. Without redis the bot still works, state is just
	// process local.
	var convState state.Store
	if rdb, err := database.ConnectRedis(cfg); err != nil {
		log.Warn("redis unavailable, using in-memory conversation state", zap.Error(err))
		convState = state.NewMemory()
	} else {
		convState = state.NewRedis(rdb)
	}

	b, err := bot.NewBot(cfg.BotToken, cfg.Channels, log)
	if err != nil {
		log.Fatal("failed to create bot", zap.Error(err))
	}

	notifier := notify.NewNotifier(
		notify.NewTelegoAPI(b.Instance),
		cfg.NotifyWorkers, cfg.NotifyQueue, cfg.BroadcastDelay, log,
	)
	defer notifier.Close()

	led := ledger.New(db, cfg.WelcomeBonus, cfg.ReferralReward)
	checker := verifier.New(b.Instance, cfg.Channels, log)
	b.Flow = flow.New(led, checker, convState, notifier, cfg, log)

	console := admin.NewServer(led, notifier, log)
	go func() {
		if err := console.Start(cfg.AdminAddr); err != nil {
			log.Error("admin server stopped", zap.Error(err))
		}
	}()

	log.Info("bot started",
		zap.Int("channels", len(cfg.Channels)),
		zap.String("admin_addr", cfg.AdminAddr))
	b.Start()
}
