package puzzle

import (
	"context"

	"github.com/ethereum/go-ethereum/common"
	"github.com/shopspring/decimal"

	"github.com/eduwordle/puzzle-ledger/internal/store"
)

// Read-only accessors. "Today" is the engine's current puzzle day; counters
// stamped with an earlier day read as zero.

// Snapshot is the engine's public state.
type Snapshot struct {
	Address             common.Address  `json:"address"`
	CurrentDay          int64           `json:"current_day"`
	SolutionHash        common.Hash     `json:"solution_hash"`
	TotalSolversToday   int64           `json:"total_solvers_today"`
	TreasuryBalance     decimal.Decimal `json:"treasury_balance"`
	AssetBalance        decimal.Decimal `json:"asset_balance"`
	BaseRewardAmount    decimal.Decimal `json:"base_reward_amount"`
	HintPrice           decimal.Decimal `json:"hint_price"`
	StreakBonusBps      int64           `json:"streak_bonus_bps"`
	MaxHintsPerDay      int64           `json:"max_hints_per_day"`
	Owner               common.Address  `json:"owner"`
	LeaderboardContract common.Address  `json:"leaderboard_contract"`
}

// Snapshot returns the engine's configuration and day state.
func (e *Engine) Snapshot(ctx context.Context, tx store.Tx) (Snapshot, error) {
	p, err := tx.Puzzle(ctx)
	if err != nil {
		return Snapshot{}, err
	}
	bal, err := e.asset.BalanceOf(ctx, tx, e.Address)
	if err != nil {
		return Snapshot{}, err
	}
	return Snapshot{
		Address:             e.Address,
		CurrentDay:          p.CurrentDay,
		SolutionHash:        p.SolutionHash,
		TotalSolversToday:   EffectiveSolvers(p),
		TreasuryBalance:     p.Treasury,
		AssetBalance:        bal,
		BaseRewardAmount:    p.BaseReward,
		HintPrice:           p.HintPrice,
		StreakBonusBps:      p.StreakBonusBps,
		MaxHintsPerDay:      p.MaxHintsPerDay,
		Owner:               p.Owner,
		LeaderboardContract: p.Leaderboard,
	}, nil
}

// PlayerStatus is one player's view of today's puzzle.
type PlayerStatus struct {
	Address        common.Address  `json:"address"`
	Streak         int64           `json:"streak"`
	LastClaimedDay int64           `json:"last_claimed_day"`
	HasClaimed     bool            `json:"has_claimed"`
	HintsPurchased int64           `json:"hints_purchased"`
	RewardAmount   decimal.Decimal `json:"reward_amount"`
}

// Player returns player's status for today.
func (e *Engine) Player(ctx context.Context, tx store.Tx, player common.Address) (PlayerStatus, error) {
	p, err := tx.Puzzle(ctx)
	if err != nil {
		return PlayerStatus{}, err
	}
	rec, err := tx.Player(ctx, player)
	if err != nil {
		return PlayerStatus{}, err
	}
	return PlayerStatus{
		Address:        player,
		Streak:         rec.Streak,
		LastClaimedDay: rec.LastClaimedDay,
		HasClaimed:     p.CurrentDay != 0 && rec.LastClaimedDay == p.CurrentDay,
		HintsPurchased: EffectiveHints(rec, p.CurrentDay),
		RewardAmount:   ComputeReward(p.BaseReward, p.StreakBonusBps, NextStreak(rec, p.CurrentDay)),
	}, nil
}

// CurrentDay returns the day id of the most recently opened puzzle.
func (e *Engine) CurrentDay(ctx context.Context, tx store.Tx) (int64, error) {
	p, err := tx.Puzzle(ctx)
	return p.CurrentDay, err
}

// CurrentSolutionHash returns the commitment for the current day.
func (e *Engine) CurrentSolutionHash(ctx context.Context, tx store.Tx) (common.Hash, error) {
	p, err := tx.Puzzle(ctx)
	return p.SolutionHash, err
}

// TreasuryBalance returns the accounted reward pool.
func (e *Engine) TreasuryBalance(ctx context.Context, tx store.Tx) (decimal.Decimal, error) {
	p, err := tx.Puzzle(ctx)
	return p.Treasury, err
}

// BaseRewardAmount returns the reward for a one-day streak.
func (e *Engine) BaseRewardAmount(ctx context.Context, tx store.Tx) (decimal.Decimal, error) {
	p, err := tx.Puzzle(ctx)
	return p.BaseReward, err
}

// TotalSolversToday returns how many players solved the current day.
func (e *Engine) TotalSolversToday(ctx context.Context, tx store.Tx) (int64, error) {
	p, err := tx.Puzzle(ctx)
	return EffectiveSolvers(p), err
}

// LeaderboardContract returns the registry wins are recorded on, or zero.
func (e *Engine) LeaderboardContract(ctx context.Context, tx store.Tx) (common.Address, error) {
	p, err := tx.Puzzle(ctx)
	return p.Leaderboard, err
}

// HasUserClaimed reports whether player has solved the current day.
func (e *Engine) HasUserClaimed(ctx context.Context, tx store.Tx, player common.Address) (bool, error) {
	s, err := e.Player(ctx, tx, player)
	return s.HasClaimed, err
}

// UserStreak returns the stored streak. It is not expired on read: a player
// who missed days keeps the old value until the next solve resets it.
func (e *Engine) UserStreak(ctx context.Context, tx store.Tx, player common.Address) (int64, error) {
	rec, err := tx.Player(ctx, player)
	return rec.Streak, err
}

// HintsPurchased returns how many hints player bought for the current day.
func (e *Engine) HintsPurchased(ctx context.Context, tx store.Tx, player common.Address) (int64, error) {
	s, err := e.Player(ctx, tx, player)
	return s.HintsPurchased, err
}

// RewardAmount returns what player would be paid for solving today.
func (e *Engine) RewardAmount(ctx context.Context, tx store.Tx, player common.Address) (decimal.Decimal, error) {
	s, err := e.Player(ctx, tx, player)
	return s.RewardAmount, err
}

// HintPrice returns the price of one hint.
func (e *Engine) HintPrice(ctx context.Context, tx store.Tx) (decimal.Decimal, error) {
	p, err := tx.Puzzle(ctx)
	return p.HintPrice, err
}

// StreakBonusBps returns the per-day streak bonus in basis points.
func (e *Engine) StreakBonusBps(ctx context.Context, tx store.Tx) (int64, error) {
	p, err := tx.Puzzle(ctx)
	return p.StreakBonusBps, err
}

// MaxHintsPerDay returns the per-player daily hint allowance.
func (e *Engine) MaxHintsPerDay(ctx context.Context, tx store.Tx) (int64, error) {
	p, err := tx.Puzzle(ctx)
	return p.MaxHintsPerDay, err
}

// Owner returns the engine owner.
func (e *Engine) Owner(ctx context.Context, tx store.Tx) (common.Address, error) {
	p, err := tx.Puzzle(ctx)
	return p.Owner, err
}
