package leaderboard

import (
	"bytes"
	"cmp"
	"slices"

	"github.com/ethereum/go-ethereum/common"

	"github.com/eduwordle/puzzle-ledger/internal/model"
)

// compareRank orders by metric descending, then by address ascending.
func compareRank(a, b model.RankedPlayer) int {
	if c := cmp.Compare(b.Metric, a.Metric); c != 0 {
		return c
	}
	return bytes.Compare(a.Address[:], b.Address[:])
}

// Upsert returns ranked with player's metric updated, keeping the ranking
// sorted and at most limit long. The input slice is not modified.
//
// A player already on the board is re-placed. A newcomer joins a full board
// only when its metric strictly exceeds the last row's metric, in which case
// the last row is evicted.
func Upsert(ranked []model.RankedPlayer, player common.Address, metric int64, limit int) []model.RankedPlayer {
	if limit <= 0 {
		return []model.RankedPlayer{}
	}
	out := slices.Clone(ranked)

	if i := slices.IndexFunc(out, func(r model.RankedPlayer) bool { return r.Address == player }); i >= 0 {
		out = slices.Delete(out, i, i+1)
	} else if len(out) >= limit {
		if metric <= out[len(out)-1].Metric {
			return out
		}
		out = out[:len(out)-1]
	}

	row := model.RankedPlayer{Address: player, Metric: metric}
	pos, _ := slices.BinarySearchFunc(out, row, compareRank)
	out = slices.Insert(out, pos, row)
	if len(out) > limit {
		out = out[:limit]
	}
	return out
}

// top returns the first n rows of ranked.
func top(ranked []model.RankedPlayer, n int) []model.RankedPlayer {
	if n < 0 {
		n = 0
	}
	if len(ranked) == 0 {
		return []model.RankedPlayer{}
	}
	return ranked[:min(n, len(ranked))]
}
