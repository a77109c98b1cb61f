package puzzle

import (
	"context"
	"fmt"
	"strconv"

	"github.com/ethereum/go-ethereum/common"
	"github.com/shopspring/decimal"

	"github.com/eduwordle/puzzle-ledger/internal/chain"
	"github.com/eduwordle/puzzle-ledger/internal/store"
	"github.com/eduwordle/puzzle-ledger/internal/word"
)

// SolveResult describes an accepted answer.
type SolveResult struct {
	Player       common.Address  `json:"player"`
	DayID        int64           `json:"day_id"`
	Streak       int64           `json:"streak"`
	Reward       decimal.Decimal `json:"reward"`
	SolversToday int64           `json:"solvers_today"`
}

// SubmitAnswer checks the caller's guess against today's solution and, if it
// matches, pays the streak-scaled reward and records the win.
func (e *Engine) SubmitAnswer(ctx context.Context, tx store.Tx, call chain.Call, guess string) (*SolveResult, error) {
	p, err := e.loadOpen(ctx, tx, call)
	if err != nil {
		return nil, err
	}
	canonical, err := word.Canonicalize(guess)
	if err != nil {
		return nil, err
	}
	player := call.Sender
	rec, err := tx.Player(ctx, player)
	if err != nil {
		return nil, err
	}
	if rec.LastClaimedDay == p.CurrentDay {
		return nil, ErrAlreadyClaimedToday
	}
	if word.Hash(canonical) != p.SolutionHash {
		return nil, ErrIncorrectAnswer
	}

	streak := NextStreak(rec, p.CurrentDay)
	reward := ComputeReward(p.BaseReward, p.StreakBonusBps, streak)
	if reward.GreaterThan(p.Treasury) {
		return nil, ErrInsufficientTreasuryFunds
	}

	p.Treasury = p.Treasury.Sub(reward)
	p.SolversToday = EffectiveSolvers(p) + 1
	p.SolversDay = p.CurrentDay
	if err := tx.PutPuzzle(ctx, p); err != nil {
		return nil, err
	}
	if err := e.asset.Transfer(ctx, tx, call.As(e.Address), player, reward); err != nil {
		return nil, fmt.Errorf("pay reward: %w", err)
	}

	rec.Streak = streak
	rec.LastClaimedDay = p.CurrentDay
	if err := tx.PutPlayer(ctx, rec); err != nil {
		return nil, err
	}

	if p.Leaderboard != (common.Address{}) {
		board, ok := e.leaderboard(p.Leaderboard)
		if !ok {
			return nil, ErrLeaderboardUnavailable
		}
		if err := board.RecordWin(ctx, tx, call.As(e.Address), player, streak, reward, p.CurrentDay); err != nil {
			return nil, fmt.Errorf("record win: %w", err)
		}
	}

	if err := tx.AppendEvent(ctx, call.Event(e.Address, "PuzzleSolved", map[string]string{
		"player": player.Hex(),
		"day_id": strconv.FormatInt(p.CurrentDay, 10),
		"streak": strconv.FormatInt(streak, 10),
	})); err != nil {
		return nil, err
	}
	if err := tx.AppendEvent(ctx, call.Event(e.Address, "RewardClaimed", map[string]string{
		"player": player.Hex(),
		"amount": reward.String(),
	})); err != nil {
		return nil, err
	}

	return &SolveResult{
		Player:       player,
		DayID:        p.CurrentDay,
		Streak:       streak,
		Reward:       reward,
		SolversToday: p.SolversToday,
	}, nil
}

// BuyHint charges the caller the hint price and records one more hint
// purchase for today. It returns the caller's hint count for today.
func (e *Engine) BuyHint(ctx context.Context, tx store.Tx, call chain.Call) (int64, error) {
	p, err := e.loadOpen(ctx, tx, call)
	if err != nil {
		return 0, err
	}
	player := call.Sender
	rec, err := tx.Player(ctx, player)
	if err != nil {
		return 0, err
	}
	if rec.LastClaimedDay == p.CurrentDay {
		return 0, ErrAlreadySolvedToday
	}
	hints := EffectiveHints(rec, p.CurrentDay)
	if hints >= p.MaxHintsPerDay {
		return 0, ErrMaxHintsReached
	}

	if err := e.asset.TransferFrom(ctx, tx, call.As(e.Address), player, e.Address, p.HintPrice); err != nil {
		return 0, err
	}
	p.Treasury = p.Treasury.Add(p.HintPrice)
	if err := tx.PutPuzzle(ctx, p); err != nil {
		return 0, err
	}

	rec.HintsToday = hints + 1
	rec.LastHintDay = p.CurrentDay
	if err := tx.PutPlayer(ctx, rec); err != nil {
		return 0, err
	}

	err = tx.AppendEvent(ctx, call.Event(e.Address, "HintPurchased", map[string]string{
		"player":                player.Hex(),
		"hints_purchased_today": strconv.FormatInt(rec.HintsToday, 10),
	}))
	return rec.HintsToday, err
}
