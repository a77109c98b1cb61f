package puzzle

import (
	"github.com/shopspring/decimal"

	"github.com/eduwordle/puzzle-ledger/internal/chain"
	"github.com/eduwordle/puzzle-ledger/internal/model"
)

// ComputeReward returns the payout for a solve at the given streak:
//
//	base + floor(base * bonusBps / 10000) * (streak - 1)
//
// The per-day bonus is truncated once, then scaled.
func ComputeReward(base decimal.Decimal, bonusBps, streak int64) decimal.Decimal {
	if streak <= 1 {
		return base
	}
	bonusPerDay, _ := base.Mul(decimal.NewFromInt(bonusBps)).QuoRem(decimal.NewFromInt(BpsDenominator), 0)
	return base.Add(bonusPerDay.Mul(decimal.NewFromInt(streak - 1)))
}

// NextStreak returns the streak a solve on day would produce: one more than
// the stored streak if the previous claim was the day before, else 1.
func NextStreak(rec model.PlayerRecord, day int64) int64 {
	if rec.LastClaimedDay != 0 && rec.LastClaimedDay == day-chain.DayLength {
		return rec.Streak + 1
	}
	return 1
}

// effectiveCounter reads a day-stamped counter: it counts only on the day it
// was stamped with and reads as zero afterwards.
func effectiveCounter(count, stampedDay, day int64) int64 {
	if stampedDay != day {
		return 0
	}
	return count
}

// EffectiveHints returns the hints rec bought on day.
func EffectiveHints(rec model.PlayerRecord, day int64) int64 {
	return effectiveCounter(rec.HintsToday, rec.LastHintDay, day)
}

// EffectiveSolvers returns the number of solvers on p's current day.
func EffectiveSolvers(p model.Puzzle) int64 {
	return effectiveCounter(p.SolversToday, p.SolversDay, p.CurrentDay)
}
