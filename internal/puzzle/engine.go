// Package puzzle implements the daily puzzle engine: the owner commits one
// solution hash per UTC day, players submit one winning guess per day for a
// streak-scaled reward paid from the treasury, and may buy a bounded number
// of hints per day.
//
// Every operation reads and writes state through the store.Tx it is given
// and reports failure as a named rejection; the caller owns the transaction
// and discards it on error, so a failed operation leaves no partial effect.
package puzzle

import (
	"context"

	"github.com/ethereum/go-ethereum/common"
	"github.com/shopspring/decimal"

	"github.com/eduwordle/puzzle-ledger/internal/chain"
	"github.com/eduwordle/puzzle-ledger/internal/model"
	"github.com/eduwordle/puzzle-ledger/internal/store"
	"github.com/eduwordle/puzzle-ledger/internal/word"
)

const (
	// DefaultMaxHintsPerDay is the per-player daily hint allowance.
	DefaultMaxHintsPerDay = 3

	// BpsDenominator is 100% in basis points.
	BpsDenominator = 10000

	// MaxStreakBonusBps caps the per-day streak bonus at 1000%.
	MaxStreakBonusBps = 100000
)

var (
	ErrAlreadyDeployed           = chain.NewError("already_deployed", "puzzle: engine already deployed")
	ErrDayAlreadyInitialized     = chain.NewError("day_already_initialized", "puzzle: day already initialized")
	ErrInvalidSolutionHash       = chain.NewError("invalid_solution_hash", "puzzle: solution hash must not be zero")
	ErrPuzzleNotInitialized      = chain.NewError("puzzle_not_initialized", "puzzle: puzzle not initialized for today")
	ErrAlreadyClaimedToday       = chain.NewError("already_claimed_today", "puzzle: already claimed today")
	ErrIncorrectAnswer           = chain.NewError("incorrect_answer", "puzzle: incorrect answer")
	ErrInsufficientTreasuryFunds = chain.NewError("insufficient_treasury_funds", "puzzle: insufficient treasury funds")
	ErrAlreadySolvedToday        = chain.NewError("already_solved_today", "puzzle: already solved today")
	ErrMaxHintsReached           = chain.NewError("max_hints_reached", "puzzle: max hints reached")
	ErrInvalidAmount             = chain.NewError("invalid_amount", "puzzle: amount must be a whole number of base units")
	ErrInvalidAddress            = chain.NewError("invalid_address", "puzzle: zero address")
	ErrInvalidConfig             = chain.NewError("invalid_config", "puzzle: configuration value out of range")
	ErrLeaderboardUnavailable    = chain.NewError("leaderboard_unavailable", "puzzle: no leaderboard deployed at configured address")

	// ErrInvalidGuessLength is returned for guesses that are not word.Length bytes.
	ErrInvalidGuessLength = word.ErrInvalidGuessLength
)

// Asset is the fungible asset rewards are paid in and hints are bought with.
type Asset interface {
	BalanceOf(ctx context.Context, tx store.Tx, holder common.Address) (decimal.Decimal, error)
	Transfer(ctx context.Context, tx store.Tx, call chain.Call, to common.Address, amount decimal.Decimal) error
	TransferFrom(ctx context.Context, tx store.Tx, call chain.Call, from, to common.Address, amount decimal.Decimal) error
}

// WinRecorder is the leaderboard surface the engine notifies on every solve.
type WinRecorder interface {
	RecordWin(ctx context.Context, tx store.Tx, call chain.Call,
		player common.Address, streak int64, reward decimal.Decimal, day int64) error
}

// Directory resolves a configured leaderboard address to a deployed
// registry.
type Directory interface {
	Leaderboard(addr common.Address) (WinRecorder, bool)
}

// Engine is the puzzle program deployed at Address.
type Engine struct {
	Address common.Address
	asset   Asset
	boards  Directory
}

// NewEngine returns an engine deployed at addr paying in asset.
func NewEngine(addr common.Address, asset Asset, boards Directory) *Engine {
	return &Engine{Address: addr, asset: asset, boards: boards}
}

// Config is the engine's constructor state.
type Config struct {
	BaseReward     decimal.Decimal
	HintPrice      decimal.Decimal
	StreakBonusBps int64
	MaxHintsPerDay int64
}

// Deploy writes the engine's constructor state; the caller becomes owner.
func (e *Engine) Deploy(ctx context.Context, tx store.Tx, call chain.Call, cfg Config) error {
	p, err := tx.Puzzle(ctx)
	if err != nil {
		return err
	}
	if p.Owner != (common.Address{}) {
		return ErrAlreadyDeployed
	}
	if !wholeUnits(cfg.BaseReward) || !wholeUnits(cfg.HintPrice) {
		return ErrInvalidAmount
	}
	if !validBonus(cfg.StreakBonusBps) || cfg.MaxHintsPerDay <= 0 {
		return ErrInvalidConfig
	}
	return tx.PutPuzzle(ctx, model.Puzzle{
		BaseReward:     cfg.BaseReward,
		HintPrice:      cfg.HintPrice,
		StreakBonusBps: cfg.StreakBonusBps,
		MaxHintsPerDay: cfg.MaxHintsPerDay,
		Treasury:       decimal.Zero,
		Owner:          call.Sender,
	})
}

// wholeUnits reports whether amount is a non-negative integer of base units.
func wholeUnits(amount decimal.Decimal) bool {
	return !amount.IsNegative() && amount.IsInteger()
}

func validBonus(bps int64) bool {
	return bps >= 0 && bps <= MaxStreakBonusBps
}

// loadAsOwner returns the puzzle state, failing unless the caller is the owner.
func (e *Engine) loadAsOwner(ctx context.Context, tx store.Tx, call chain.Call) (model.Puzzle, error) {
	p, err := tx.Puzzle(ctx)
	if err != nil {
		return p, err
	}
	if p.Owner == (common.Address{}) || call.Sender != p.Owner {
		return p, chain.ErrUnauthorized
	}
	return p, nil
}

// loadOpen returns the puzzle state, failing unless today's puzzle is open.
func (e *Engine) loadOpen(ctx context.Context, tx store.Tx, call chain.Call) (model.Puzzle, error) {
	p, err := tx.Puzzle(ctx)
	if err != nil {
		return p, err
	}
	if p.CurrentDay == 0 || p.CurrentDay != call.Today() {
		return p, ErrPuzzleNotInitialized
	}
	return p, nil
}

func (e *Engine) leaderboard(addr common.Address) (WinRecorder, bool) {
	if e.boards == nil {
		return nil, false
	}
	return e.boards.Leaderboard(addr)
}
