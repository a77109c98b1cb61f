// Package model defines the ledger state shared by the puzzle programs.
// All asset amounts use shopspring/decimal holding integer base units of the
// reward asset. Never float64 for money.
package model

import (
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/shopspring/decimal"
)

// Puzzle is the puzzle engine's singleton state and configuration.
type Puzzle struct {
	CurrentDay     int64           `json:"current_day"`   // UTC-midnight epoch seconds; 0 = never initialized
	SolutionHash   common.Hash     `json:"solution_hash"` // keccak256 of the uppercase word
	SolversToday   int64           `json:"solvers_today"`
	SolversDay     int64           `json:"solvers_day"` // day the solver count belongs to
	Treasury       decimal.Decimal `json:"treasury_balance"`
	BaseReward     decimal.Decimal `json:"base_reward_amount"`
	HintPrice      decimal.Decimal `json:"hint_price"`
	StreakBonusBps int64           `json:"streak_bonus_bps"`
	MaxHintsPerDay int64           `json:"max_hints_per_day"`
	Owner          common.Address  `json:"owner"`
	Leaderboard    common.Address  `json:"leaderboard_contract"` // zero = detached
}

// PlayerRecord is a player's per-engine state. Absent records read as the
// zero value.
type PlayerRecord struct {
	Address        common.Address `json:"address"`
	Streak         int64          `json:"streak"`
	LastClaimedDay int64          `json:"last_claimed_day"`
	HintsToday     int64          `json:"hints_today"`
	LastHintDay    int64          `json:"last_hint_day"`
}

// RegistryConfig is the leaderboard registry's configuration.
type RegistryConfig struct {
	Owner         common.Address `json:"owner"`
	PuzzleEngine  common.Address `json:"puzzle_engine"`
	MaxTopPlayers int            `json:"max_top_players"`
}

// LeaderboardEntry is the registry's lifetime record of one player.
type LeaderboardEntry struct {
	Address       common.Address  `json:"address"`
	TotalWins     int64           `json:"total_wins"`
	LongestStreak int64           `json:"longest_streak"`
	CurrentStreak int64           `json:"current_streak"`
	TotalRewards  decimal.Decimal `json:"total_rewards_earned"`
	LastWinDay    int64           `json:"last_win_day"`
	Exists        bool            `json:"exists"`
}

// Board names a bounded ranking kept by the registry.
type Board string

const (
	BoardWins   Board = "wins"
	BoardStreak Board = "streak"
)

// RankedPlayer is one row of a ranking.
type RankedPlayer struct {
	Address common.Address `json:"address"`
	Metric  int64          `json:"metric"`
}

// Event is an immutable, committed record of a state change.
type Event struct {
	Seq        int64             `json:"seq"`
	TxID       string            `json:"tx_id"`
	Contract   common.Address    `json:"contract"`
	Name       string            `json:"name"`
	DayID      int64             `json:"day_id"`
	Attributes map[string]string `json:"attributes"`
	Time       time.Time         `json:"time"`
}

// EventFilter selects events from the log. Zero fields match everything.
type EventFilter struct {
	Name     string
	Contract common.Address
	AfterSeq int64
	Limit    int
}
