package puzzle

import (
	"context"
	"strconv"

	"github.com/ethereum/go-ethereum/common"
	"github.com/shopspring/decimal"

	"github.com/eduwordle/puzzle-ledger/internal/chain"
	"github.com/eduwordle/puzzle-ledger/internal/model"
	"github.com/eduwordle/puzzle-ledger/internal/store"
)

// InitializeDay opens today's puzzle with the given solution commitment.
// Owner only, at most once per day.
func (e *Engine) InitializeDay(ctx context.Context, tx store.Tx, call chain.Call, solution common.Hash) error {
	p, err := e.loadAsOwner(ctx, tx, call)
	if err != nil {
		return err
	}
	today := call.Today()
	if today <= p.CurrentDay {
		return ErrDayAlreadyInitialized
	}
	if solution == (common.Hash{}) {
		return ErrInvalidSolutionHash
	}

	p.CurrentDay = today
	p.SolutionHash = solution
	p.SolversToday = 0
	p.SolversDay = today
	if err := tx.PutPuzzle(ctx, p); err != nil {
		return err
	}
	return tx.AppendEvent(ctx, call.Event(e.Address, "PuzzleInitialized", map[string]string{
		"day_id":        strconv.FormatInt(today, 10),
		"solution_hash": solution.Hex(),
	}))
}

// SetBaseRewardAmount replaces the base reward. Owner only.
func (e *Engine) SetBaseRewardAmount(ctx context.Context, tx store.Tx, call chain.Call, amount decimal.Decimal) error {
	if !wholeUnits(amount) {
		return ErrInvalidAmount
	}
	return e.update(ctx, tx, call, "RewardAmountUpdated", map[string]string{"amount": amount.String()},
		func(p *model.Puzzle) { p.BaseReward = amount })
}

// SetHintPrice replaces the hint price. Owner only.
func (e *Engine) SetHintPrice(ctx context.Context, tx store.Tx, call chain.Call, price decimal.Decimal) error {
	if !wholeUnits(price) {
		return ErrInvalidAmount
	}
	return e.update(ctx, tx, call, "HintPriceUpdated", map[string]string{"price": price.String()},
		func(p *model.Puzzle) { p.HintPrice = price })
}

// SetStreakBonus replaces the per-day streak bonus in basis points. Owner only.
func (e *Engine) SetStreakBonus(ctx context.Context, tx store.Tx, call chain.Call, bps int64) error {
	if !validBonus(bps) {
		return ErrInvalidConfig
	}
	return e.update(ctx, tx, call, "StreakBonusUpdated", map[string]string{"bps": strconv.FormatInt(bps, 10)},
		func(p *model.Puzzle) { p.StreakBonusBps = bps })
}

// SetLeaderboardContract points the engine at a leaderboard registry. The
// zero address detaches it. Owner only.
func (e *Engine) SetLeaderboardContract(ctx context.Context, tx store.Tx, call chain.Call, board common.Address) error {
	return e.update(ctx, tx, call, "LeaderboardContractUpdated", map[string]string{"leaderboard": board.Hex()},
		func(p *model.Puzzle) { p.Leaderboard = board })
}

// TransferOwnership hands the owner role to next. Owner only.
func (e *Engine) TransferOwnership(ctx context.Context, tx store.Tx, call chain.Call, next common.Address) error {
	if next == (common.Address{}) {
		return ErrInvalidAddress
	}
	return e.update(ctx, tx, call, "OwnershipTransferred",
		map[string]string{"previous_owner": call.Sender.Hex(), "new_owner": next.Hex()},
		func(p *model.Puzzle) { p.Owner = next })
}

func (e *Engine) update(ctx context.Context, tx store.Tx, call chain.Call,
	event string, attrs map[string]string, apply func(*model.Puzzle)) error {
	p, err := e.loadAsOwner(ctx, tx, call)
	if err != nil {
		return err
	}
	apply(&p)
	if err := tx.PutPuzzle(ctx, p); err != nil {
		return err
	}
	return tx.AppendEvent(ctx, call.Event(e.Address, event, attrs))
}
