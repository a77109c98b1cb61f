package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/redis/go-redis/v9"
	"github.com/samber/lo"

	"github.com/eduwordle/puzzle-ledger/internal/model"
)

// CachedStore wraps a primary Store (PostgreSQL) with a Redis read-through
// cache. Writes go to the primary store and invalidate the touched keys once
// the transaction commits; View reads check Redis first then fall back to
// the primary. Balances, allowances and the event log are never cached.
type CachedStore struct {
	primary Store
	rdb     *redis.Client
	ttl     time.Duration
}

// NewCachedStore creates a cached wrapper around a primary store.
func NewCachedStore(primary Store, rdb *redis.Client, ttl time.Duration) *CachedStore {
	return &CachedStore{
		primary: primary,
		rdb:     rdb,
		ttl:     ttl,
	}
}

// --- Write path (write to primary, invalidate after commit) ---

func (s *CachedStore) Update(ctx context.Context, fn func(Tx) error) error {
	var dirty []string
	err := s.primary.Update(ctx, func(tx Tx) error {
		dirty = dirty[:0]
		return fn(&invalidatingTx{Tx: tx, dirty: &dirty})
	})
	if err != nil {
		return err
	}
	if len(dirty) > 0 {
		s.invalidate(ctx, lo.Uniq(dirty))
	}
	return nil
}

// invalidate drops keys and bumps the cache generation, so a read that
// loaded from the primary before this commit does not repopulate them.
func (s *CachedStore) invalidate(ctx context.Context, keys []string) {
	_, err := s.rdb.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Del(ctx, keys...)
		pipe.Incr(ctx, generationKey())
		return nil
	})
	if err != nil {
		slog.Warn("cache invalidation failed", "keys", len(keys), "err", err)
	}
}

// invalidatingTx records the cache keys its writes touch.
type invalidatingTx struct {
	Tx
	dirty *[]string
}

func (t *invalidatingTx) touch(key string) { *t.dirty = append(*t.dirty, key) }

func (t *invalidatingTx) PutPuzzle(ctx context.Context, p model.Puzzle) error {
	t.touch(puzzleKey())
	return t.Tx.PutPuzzle(ctx, p)
}

func (t *invalidatingTx) PutPlayer(ctx context.Context, rec model.PlayerRecord) error {
	t.touch(playerKey(rec.Address))
	return t.Tx.PutPlayer(ctx, rec)
}

func (t *invalidatingTx) PutRegistry(ctx context.Context, cfg model.RegistryConfig) error {
	t.touch(registryKey())
	return t.Tx.PutRegistry(ctx, cfg)
}

func (t *invalidatingTx) PutEntry(ctx context.Context, e model.LeaderboardEntry) error {
	t.touch(entryKey(e.Address))
	t.touch(entryCountKey())
	return t.Tx.PutEntry(ctx, e)
}

func (t *invalidatingTx) PutRanking(ctx context.Context, board model.Board, ranked []model.RankedPlayer) error {
	t.touch(rankingKey(board))
	return t.Tx.PutRanking(ctx, board, ranked)
}

// --- Read path (check cache first) ---

func (s *CachedStore) View(ctx context.Context, fn func(Tx) error) error {
	return s.primary.View(ctx, func(tx Tx) error {
		return fn(&cachingTx{Tx: tx, s: s})
	})
}

// cachingTx serves reads from Redis and populates it on a miss.
type cachingTx struct {
	Tx
	s *CachedStore
}

func (t *cachingTx) Puzzle(ctx context.Context) (model.Puzzle, error) {
	return readThrough(ctx, t.s, puzzleKey(), func() (model.Puzzle, error) {
		return t.Tx.Puzzle(ctx)
	})
}

func (t *cachingTx) Player(ctx context.Context, addr common.Address) (model.PlayerRecord, error) {
	return readThrough(ctx, t.s, playerKey(addr), func() (model.PlayerRecord, error) {
		return t.Tx.Player(ctx, addr)
	})
}

func (t *cachingTx) Registry(ctx context.Context) (model.RegistryConfig, error) {
	return readThrough(ctx, t.s, registryKey(), func() (model.RegistryConfig, error) {
		return t.Tx.Registry(ctx)
	})
}

func (t *cachingTx) Entry(ctx context.Context, addr common.Address) (model.LeaderboardEntry, error) {
	return readThrough(ctx, t.s, entryKey(addr), func() (model.LeaderboardEntry, error) {
		return t.Tx.Entry(ctx, addr)
	})
}

func (t *cachingTx) EntryCount(ctx context.Context) (int64, error) {
	return readThrough(ctx, t.s, entryCountKey(), func() (int64, error) {
		return t.Tx.EntryCount(ctx)
	})
}

func (t *cachingTx) Ranking(ctx context.Context, board model.Board) ([]model.RankedPlayer, error) {
	return readThrough(ctx, t.s, rankingKey(board), func() ([]model.RankedPlayer, error) {
		return t.Tx.Ranking(ctx, board)
	})
}

// --- Passthrough (not cached) ---

func (s *CachedStore) Events(ctx context.Context, f model.EventFilter) ([]model.Event, error) {
	return s.primary.Events(ctx, f)
}

// --- Cache helpers ---

func readThrough[T any](ctx context.Context, s *CachedStore, key string, load func() (T, error)) (T, error) {
	data, err := s.rdb.Get(ctx, key).Bytes()
	if err == nil {
		var v T
		if json.Unmarshal(data, &v) == nil {
			return v, nil
		}
	}

	// Cache miss: read from primary. The write-back is dropped if a commit
	// bumped the generation while the load was in flight.
	var (
		v       T
		loadErr error
		loaded  bool
	)
	err = s.rdb.Watch(ctx, func(rtx *redis.Tx) error {
		v, loadErr = load()
		loaded = true
		if loadErr != nil {
			return loadErr
		}
		data, err := json.Marshal(v)
		if err != nil {
			return nil
		}
		_, err = rtx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, key, data, s.ttl)
			return nil
		})
		return err
	}, generationKey())
	if !loaded {
		return load()
	}
	if loadErr != nil {
		return v, loadErr
	}
	if err != nil && !errors.Is(err, redis.TxFailedErr) {
		slog.Debug("cache populate failed", "key", key, "err", err)
	}
	return v, nil
}

func generationKey() string                { return "cache:generation" }
func puzzleKey() string                    { return "puzzle:state" }
func registryKey() string                  { return "leaderboard:config" }
func entryCountKey() string                { return "leaderboard:count" }
func playerKey(a common.Address) string    { return fmt.Sprintf("player:%s", a.Hex()) }
func entryKey(a common.Address) string     { return fmt.Sprintf("leaderboard:entry:%s", a.Hex()) }
func rankingKey(b model.Board) string      { return fmt.Sprintf("leaderboard:ranking:%s", b) }
