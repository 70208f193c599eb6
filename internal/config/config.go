package config

import (
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Channel is a required broadcast channel users must join before the bot
// unlocks the earnings program.
type Channel struct {
	Name     string // display name shown to users
	Username string // telegram handle, without the @
}

type Config struct {
	BotToken string

	DBUser     string
	DBPassword string
	DBName     string
	DBHost     string
	DBPort     string

	RedisHost     string
	RedisPort     string
	RedisPassword string

	AdminAddr string

	Channels []Channel

	ReferralReward    float64
	WelcomeBonus      float64
	MinimumWithdrawal float64

	BroadcastDelay time.Duration
	NotifyWorkers  int
	NotifyQueue    int

	LogLevel  string
	LogFormat string
}

func LoadConfig() *Config {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using system environment variables")
	}

	return &Config{
		BotToken: getEnv("BOT_TOKEN", ""),

		DBUser:     getEnv("DB_USER", "postgres"),
		DBPassword: getEnv("DB_PASSWORD", "postgres"),
		DBName:     getEnv("DB_NAME", "airdrop_bot"),
		DBHost:     getEnv("DB_HOST", "localhost"),
		DBPort:     getEnv("DB_PORT", "5432"),

		RedisHost:     getEnv("REDIS_HOST", "localhost"),
		RedisPort:     getEnv("REDIS_PORT", "6379"),
		RedisPassword: getEnv("REDIS_PASSWORD", ""),

		AdminAddr: getEnv("ADMIN_ADDR", ":8081"),

		Channels: parseChannels(getEnv("CHANNELS",
			"Restrictionlesschat:Restrictionlesschat,botfypay:botfypay,groupofincom:groupofincom,Crpto_Hnter:Crpto_Hnter")),

		ReferralReward:    getEnvFloat("REFERRAL_REWARD", 0.1),
		WelcomeBonus:      getEnvFloat("WELCOME_BONUS", 0.1),
		MinimumWithdrawal: getEnvFloat("MINIMUM_WITHDRAWAL", 1.0),

		BroadcastDelay: time.Duration(getEnvInt("BROADCAST_DELAY_MS", 50)) * time.Millisecond,
		NotifyWorkers:  getEnvInt("NOTIFY_WORKERS", 4),
		NotifyQueue:    getEnvInt("NOTIFY_QUEUE", 256),

		LogLevel:  getEnv("LOG_LEVEL", "info"),
		LogFormat: getEnv("LOG_FORMAT", "console"),
	}
}

// parseChannels parses "Name:handle,Name:handle". A bare entry without a
// colon is used as both the display name and the handle.
func parseChannels(raw string) []Channel {
	var channels []Channel
	for _, entry := range strings.Split(raw, ",") {
		entry = strings.TrimSpace(entry)
		if entry == "" {
			continue
		}
		name, username, found := strings.Cut(entry, ":")
		if !found {
			username = name
		}
		channels = append(channels, Channel{
			Name:     strings.TrimSpace(name),
			Username: strings.TrimPrefix(strings.TrimSpace(username), "@"),
		})
	}
	return channels
}

func getEnv(key, fallback string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return fallback
}

func getEnvFloat(key string, fallback float64) float64 {
	if value, exists := os.LookupEnv(key); exists {
		if parsed, err := strconv.ParseFloat(value, 64); err == nil {
			return parsed
		}
		log.Printf("Invalid float for %s, using default %v", key, fallback)
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if value, exists := os.LookupEnv(key); exists {
		if parsed, err := strconv.Atoi(value); err == nil {
			return parsed
		}
		log.Printf("Invalid integer for %s, using default %d", key, fallback)
	}
	return fallback
}
