package game

import (
	"os"
	"strconv"
	"time"

	_ "github.com/joho/godotenv/autoload"
)

// Config carries the operator-tunable knobs for the crash game. Everything
// has a sane default so the server runs from a bare environment.
type Config struct {
	TickInterval time.Duration
	BettingTime  time.Duration
	Cooldown     time.Duration

	HouseEdge float64
	MinStake  float64
	MaxStake  float64

	HistorySize int

	// Simulated participants placed each round to keep the table lively.
	BotCount    int
	BotBankroll float64
	BotMinStake float64
	BotMaxStake float64

	// ClientSeed is aggregated from player input in a full deployment; a
	// fixed operator value keeps rounds replayable in the meantime.
	ClientSeed string

	CreditRetries int
}

func DefaultConfig() Config {
	return Config{
		TickInterval:  100 * time.Millisecond,
		BettingTime:   5 * time.Second,
		Cooldown:      3 * time.Second,
		HouseEdge:     0.97,
		MinStake:      1.0,
		MaxStake:      10000.0,
		HistorySize:   100,
		BotCount:      6,
		BotBankroll:   100000.0,
		BotMinStake:   5.0,
		BotMaxStake:   500.0,
		ClientSeed:    "crashpit-public-client-seed",
		CreditRetries: 3,
	}
}

// ConfigFromEnv overlays environment variables onto the defaults.
func ConfigFromEnv() Config {
	cfg := DefaultConfig()

	cfg.TickInterval = getEnvAsDuration("GAME_TICK_INTERVAL", cfg.TickInterval)
	cfg.BettingTime = getEnvAsDuration("GAME_BETTING_TIME", cfg.BettingTime)
	cfg.Cooldown = getEnvAsDuration("GAME_COOLDOWN", cfg.Cooldown)
	cfg.HouseEdge = getEnvAsFloat("GAME_HOUSE_EDGE", cfg.HouseEdge)
	cfg.MinStake = getEnvAsFloat("GAME_MIN_STAKE", cfg.MinStake)
	cfg.MaxStake = getEnvAsFloat("GAME_MAX_STAKE", cfg.MaxStake)
	cfg.HistorySize = getEnvAsInt("GAME_HISTORY_SIZE", cfg.HistorySize)
	cfg.BotCount = getEnvAsInt("GAME_BOT_COUNT", cfg.BotCount)
	cfg.BotBankroll = getEnvAsFloat("GAME_BOT_BANKROLL", cfg.BotBankroll)
	cfg.BotMinStake = getEnvAsFloat("GAME_BOT_MIN_STAKE", cfg.BotMinStake)
	cfg.BotMaxStake = getEnvAsFloat("GAME_BOT_MAX_STAKE", cfg.BotMaxStake)
	cfg.ClientSeed = getEnv("GAME_CLIENT_SEED", cfg.ClientSeed)
	cfg.CreditRetries = getEnvAsInt("GAME_CREDIT_RETRIES", cfg.CreditRetries)

	if cfg.HouseEdge <= 0 || cfg.HouseEdge > 1 {
		cfg.HouseEdge = DefaultConfig().HouseEdge
	}

	return cfg
}

func getEnv(key, defaultVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultVal
}

func getEnvAsInt(key string, defaultVal int) int {
	if val := os.Getenv(key); val != "" {
		if intVal, err := strconv.Atoi(val); err == nil {
			return intVal
		}
	}
	return defaultVal
}

func getEnvAsFloat(key string, defaultVal float64) float64 {
	if val := os.Getenv(key); val != "" {
		if floatVal, err := strconv.ParseFloat(val, 64); err == nil {
			return floatVal
		}
	}
	return defaultVal
}

func getEnvAsDuration(key string, defaultVal time.Duration) time.Duration {
	if val := os.Getenv(key); val != "" {
		if d, err := time.ParseDuration(val); err == nil {
			return d
		}
	}
	return defaultVal
}
