package config

import (
	"os"
	"strconv"
)

// Game holds the tunables for a single Callbreak match.
type Game struct {
	TotalRounds    int
	TurnTimeoutSec int
	TrickDelayMs   int
	RoundDelayMs   int
}

// Bots holds bot backfill behaviour for rooms.
type Bots struct {
	FillEnabled bool
	MinDelayMs  int
	MaxDelayMs  int
}

type Config struct {
	HTTPAddr string
	Game     Game
	Bots     Bots
}

func getenvInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return def
}

func getenvBool(key string, def bool) bool {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return def
}

func getenvStr(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func Load() Config {
	return Config{
		HTTPAddr: getenvStr("HTTP_ADDR", ":8080"),
		Game: Game{
			TotalRounds:    getenvInt("TOTAL_ROUNDS", 5),
			TurnTimeoutSec: getenvInt("TURN_TIMEOUT_SEC", 30),
			TrickDelayMs:   getenvInt("TRICK_DELAY_MS", 1500),
			RoundDelayMs:   getenvInt("ROUND_DELAY_MS", 2000),
		},
		Bots: Bots{
			FillEnabled: getenvBool("BOT_FILL", true),
			MinDelayMs:  getenvInt("BOT_MIN_DELAY_MS", 500),
			MaxDelayMs:  getenvInt("BOT_MAX_DELAY_MS", 1500),
		},
	}
}
