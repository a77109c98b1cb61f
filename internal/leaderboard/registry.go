// Package leaderboard implements the leaderboard registry: lifetime per-player
// statistics plus two bounded rankings (by total wins and by longest streak)
// fed by the puzzle engine after every successful solve.
package leaderboard

import (
	"context"
	"fmt"
	"strconv"

	"github.com/ethereum/go-ethereum/common"
	"github.com/shopspring/decimal"

	"github.com/eduwordle/puzzle-ledger/internal/chain"
	"github.com/eduwordle/puzzle-ledger/internal/model"
	"github.com/eduwordle/puzzle-ledger/internal/store"
)

// DefaultMaxTopPlayers bounds each ranking when no size is configured.
const DefaultMaxTopPlayers = 100

var (
	ErrAlreadyDeployed  = chain.NewError("already_deployed", "leaderboard: registry already deployed")
	ErrInvalidAddress   = chain.NewError("invalid_address", "leaderboard: zero address")
	ErrInvalidBoardSize = chain.NewError("invalid_board_size", "leaderboard: max top players must be positive")
)

// Registry is the leaderboard program deployed at Address. Its state lives in
// the store passed to each call.
type Registry struct {
	Address common.Address
}

// NewRegistry returns a registry deployed at addr.
func NewRegistry(addr common.Address) *Registry {
	return &Registry{Address: addr}
}

// Deploy writes the registry's constructor state: the caller becomes owner
// and engine is the only address allowed to record wins.
func (r *Registry) Deploy(ctx context.Context, tx store.Tx, call chain.Call, engine common.Address, maxTopPlayers int) error {
	cfg, err := tx.Registry(ctx)
	if err != nil {
		return err
	}
	if cfg.Owner != (common.Address{}) {
		return ErrAlreadyDeployed
	}
	if maxTopPlayers <= 0 {
		return ErrInvalidBoardSize
	}
	return tx.PutRegistry(ctx, model.RegistryConfig{
		Owner:         call.Sender,
		PuzzleEngine:  engine,
		MaxTopPlayers: maxTopPlayers,
	})
}

// RecordWin folds one solve into player's lifetime stats and both rankings.
// Only the configured puzzle engine may call it.
func (r *Registry) RecordWin(ctx context.Context, tx store.Tx, call chain.Call,
	player common.Address, streak int64, reward decimal.Decimal, day int64) error {
	cfg, err := tx.Registry(ctx)
	if err != nil {
		return err
	}
	if cfg.PuzzleEngine == (common.Address{}) || call.Sender != cfg.PuzzleEngine {
		return chain.ErrUnauthorized
	}

	e, err := tx.Entry(ctx, player)
	if err != nil {
		return err
	}
	e.Address = player
	e.TotalWins++
	e.CurrentStreak = streak
	e.LongestStreak = max(e.LongestStreak, streak)
	e.TotalRewards = e.TotalRewards.Add(reward)
	e.LastWinDay = day
	if err := tx.PutEntry(ctx, e); err != nil {
		return err
	}

	if err := r.rerank(ctx, tx, model.BoardWins, player, e.TotalWins, cfg.MaxTopPlayers); err != nil {
		return err
	}
	if err := r.rerank(ctx, tx, model.BoardStreak, player, e.LongestStreak, cfg.MaxTopPlayers); err != nil {
		return err
	}

	return tx.AppendEvent(ctx, call.Event(r.Address, "WinRecorded", map[string]string{
		"player":         player.Hex(),
		"total_wins":     strconv.FormatInt(e.TotalWins, 10),
		"current_streak": strconv.FormatInt(e.CurrentStreak, 10),
		"longest_streak": strconv.FormatInt(e.LongestStreak, 10),
		"day_id":         strconv.FormatInt(day, 10),
	}))
}

func (r *Registry) rerank(ctx context.Context, tx store.Tx, board model.Board,
	player common.Address, metric int64, maxTop int) error {
	ranked, err := tx.Ranking(ctx, board)
	if err != nil {
		return fmt.Errorf("load %s ranking: %w", board, err)
	}
	return tx.PutRanking(ctx, board, Upsert(ranked, player, metric, maxTop))
}

// TopByWins returns up to n players ranked by total wins.
func (r *Registry) TopByWins(ctx context.Context, tx store.Tx, n int) ([]model.RankedPlayer, error) {
	return r.topOf(ctx, tx, model.BoardWins, n)
}

// TopByStreak returns up to n players ranked by longest streak.
func (r *Registry) TopByStreak(ctx context.Context, tx store.Tx, n int) ([]model.RankedPlayer, error) {
	return r.topOf(ctx, tx, model.BoardStreak, n)
}

func (r *Registry) topOf(ctx context.Context, tx store.Tx, board model.Board, n int) ([]model.RankedPlayer, error) {
	ranked, err := tx.Ranking(ctx, board)
	if err != nil {
		return nil, err
	}
	return top(ranked, n), nil
}

// PlayerStats returns player's entry; unknown players get a zero entry with
// Exists false.
func (r *Registry) PlayerStats(ctx context.Context, tx store.Tx, player common.Address) (model.LeaderboardEntry, error) {
	return tx.Entry(ctx, player)
}

// TotalPlayers returns the number of distinct players ever recorded.
func (r *Registry) TotalPlayers(ctx context.Context, tx store.Tx) (int64, error) {
	return tx.EntryCount(ctx)
}

// Config returns the registry owner, engine and board size.
func (r *Registry) Config(ctx context.Context, tx store.Tx) (model.RegistryConfig, error) {
	return tx.Registry(ctx)
}

// SetPuzzleEngine rewires the registry to a new engine. Owner only.
func (r *Registry) SetPuzzleEngine(ctx context.Context, tx store.Tx, call chain.Call, engine common.Address) error {
	cfg, err := tx.Registry(ctx)
	if err != nil {
		return err
	}
	if call.Sender != cfg.Owner {
		return chain.ErrUnauthorized
	}
	if engine == (common.Address{}) {
		return ErrInvalidAddress
	}
	previous := cfg.PuzzleEngine
	cfg.PuzzleEngine = engine
	if err := tx.PutRegistry(ctx, cfg); err != nil {
		return err
	}
	return tx.AppendEvent(ctx, call.Event(r.Address, "PuzzleEngineUpdated", map[string]string{
		"previous": previous.Hex(),
		"engine":   engine.Hex(),
	}))
}
