// Package config loads the server configuration from the environment,
// optionally seeded from a .env file.
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"

	"github.com/eduwordle/puzzle-ledger/internal/leaderboard"
	"github.com/eduwordle/puzzle-ledger/internal/ledger"
	"github.com/eduwordle/puzzle-ledger/internal/puzzle"
)

// Config is the server configuration.
type Config struct {
	Port        string
	LogLevel    slog.Level
	DatabaseURL string // empty = in-memory store
	RedisURL    string // empty = no cache
	CacheTTL    time.Duration

	Owner          common.Address
	TokenSymbol    string
	TokenDecimals  int32
	BaseReward     decimal.Decimal
	HintPrice      decimal.Decimal
	StreakBonusBps int64
	MaxHintsPerDay int64
	MaxTopPlayers  int

	Allocations     []ledger.Allocation
	TreasuryFunding decimal.Decimal

	RateLimitRPS     float64
	RateLimitBurst   int
	SignatureMaxSkew time.Duration
}

// Load reads the configuration. Malformed optional values fall back to their
// defaults with a warning; a missing or malformed owner address or amount is
// an error.
func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{
		Port:             getEnv("PORT", "8080"),
		DatabaseURL:      os.Getenv("DATABASE_URL"),
		RedisURL:         os.Getenv("REDIS_URL"),
		CacheTTL:         getEnvDuration("CACHE_TTL", 30*time.Second),
		TokenSymbol:      getEnv("TOKEN_SYMBOL", "cUSD"),
		TokenDecimals:    int32(getEnvInt("TOKEN_DECIMALS", 18)),
		StreakBonusBps:   int64(getEnvInt("STREAK_BONUS_BPS", 1000)),
		MaxHintsPerDay:   int64(getEnvInt("MAX_HINTS_PER_DAY", puzzle.DefaultMaxHintsPerDay)),
		MaxTopPlayers:    getEnvInt("MAX_TOP_PLAYERS", leaderboard.DefaultMaxTopPlayers),
		RateLimitRPS:     getEnvFloat("RATE_LIMIT_RPS", 2),
		RateLimitBurst:   getEnvInt("RATE_LIMIT_BURST", 10),
		SignatureMaxSkew: getEnvDuration("SIGNATURE_MAX_SKEW", 5*time.Minute),
	}

	if err := cfg.LogLevel.UnmarshalText([]byte(getEnv("LOG_LEVEL", "INFO"))); err != nil {
		slog.Warn("invalid LOG_LEVEL, using INFO", "err", err)
		cfg.LogLevel = slog.LevelInfo
	}

	owner := os.Getenv("OWNER_ADDRESS")
	if !common.IsHexAddress(owner) {
		return nil, fmt.Errorf("config: OWNER_ADDRESS must be a 0x-prefixed address, got %q", owner)
	}
	cfg.Owner = common.HexToAddress(owner)
	if cfg.Owner == (common.Address{}) {
		return nil, errors.New("config: OWNER_ADDRESS must not be the zero address")
	}

	var err error
	if cfg.BaseReward, err = getEnvAmount("BASE_REWARD", "1000000000000000000"); err != nil {
		return nil, err
	}
	if cfg.HintPrice, err = getEnvAmount("HINT_PRICE", "100000000000000000"); err != nil {
		return nil, err
	}
	if cfg.TreasuryFunding, err = getEnvAmount("TREASURY_FUNDING", "0"); err != nil {
		return nil, err
	}
	if cfg.Allocations, err = ParseAllocations(os.Getenv("GENESIS_ALLOCATIONS")); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Genesis returns the constructor state described by the configuration.
func (c *Config) Genesis() ledger.Genesis {
	return ledger.Genesis{
		Allocations: c.Allocations,
		Puzzle: puzzle.Config{
			BaseReward:     c.BaseReward,
			HintPrice:      c.HintPrice,
			StreakBonusBps: c.StreakBonusBps,
			MaxHintsPerDay: c.MaxHintsPerDay,
		},
		MaxTopPlayers:   c.MaxTopPlayers,
		TreasuryFunding: c.TreasuryFunding,
	}
}

// ParseAllocations parses "0xaddr=amount,0xaddr=amount".
func ParseAllocations(s string) ([]ledger.Allocation, error) {
	var out []ledger.Allocation
	for _, part := range strings.Split(s, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		addr, amount, ok := strings.Cut(part, "=")
		if !ok || !common.IsHexAddress(strings.TrimSpace(addr)) {
			return nil, fmt.Errorf("config: invalid allocation %q", part)
		}
		amt, err := parseAmount(strings.TrimSpace(amount))
		if err != nil {
			return nil, fmt.Errorf("config: allocation %q: %w", part, err)
		}
		out = append(out, ledger.Allocation{Holder: common.HexToAddress(strings.TrimSpace(addr)), Amount: amt})
	}
	return out, nil
}

// parseAmount accepts a non-negative whole number of base units.
func parseAmount(s string) (decimal.Decimal, error) {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, err
	}
	if d.IsNegative() || !d.Equal(d.Truncate(0)) {
		return decimal.Zero, fmt.Errorf("amount %s must be a non-negative integer", s)
	}
	return d, nil
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvAmount(key, fallback string) (decimal.Decimal, error) {
	d, err := parseAmount(getEnv(key, fallback))
	if err != nil {
		return decimal.Zero, fmt.Errorf("config: %s: %w", key, err)
	}
	return d, nil
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	val := os.Getenv(key)
	if val == "" {
		return fallback
	}
	d, err := time.ParseDuration(val)
	if err != nil {
		slog.Warn("invalid duration, using default", "key", key, "err", err, "default", fallback)
		return fallback
	}
	return d
}

func getEnvInt(key string, fallback int) int {
	val := os.Getenv(key)
	if val == "" {
		return fallback
	}
	i, err := strconv.Atoi(val)
	if err != nil {
		slog.Warn("invalid int, using default", "key", key, "err", err, "default", fallback)
		return fallback
	}
	return i
}

func getEnvFloat(key string, fallback float64) float64 {
	val := os.Getenv(key)
	if val == "" {
		return fallback
	}
	f, err := strconv.ParseFloat(val, 64)
	if err != nil {
		slog.Warn("invalid float, using default", "key", key, "err", err, "default", fallback)
		return fallback
	}
	return f
}
