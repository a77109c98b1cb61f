package store

import (
	"context"
	"maps"
	"slices"
	"sync"

	"github.com/ethereum/go-ethereum/common"
	"github.com/samber/lo"
	"github.com/shopspring/decimal"

	"github.com/eduwordle/puzzle-ledger/internal/model"
)

type balanceKey struct {
	token, holder common.Address
}

type allowanceKey struct {
	token, owner, spender common.Address
}

// MemoryStore implements Store with in-memory maps. Used for testing
// and development. Not suitable for production (no persistence).
//
// Update transactions buffer their writes in an overlay and apply them under
// the write lock only when fn succeeds, so a failed transaction leaves the
// committed maps untouched.
type MemoryStore struct {
	mu         sync.RWMutex
	puzzle     model.Puzzle
	registry   model.RegistryConfig
	players    map[common.Address]model.PlayerRecord
	entries    map[common.Address]model.LeaderboardEntry
	rankings   map[model.Board][]model.RankedPlayer
	balances   map[balanceKey]decimal.Decimal
	allowances map[allowanceKey]decimal.Decimal
	events     []model.Event
}

// NewMemoryStore creates a new in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		players:    make(map[common.Address]model.PlayerRecord),
		entries:    make(map[common.Address]model.LeaderboardEntry),
		rankings:   make(map[model.Board][]model.RankedPlayer),
		balances:   make(map[balanceKey]decimal.Decimal),
		allowances: make(map[allowanceKey]decimal.Decimal),
	}
}

func (s *MemoryStore) Update(ctx context.Context, fn func(Tx) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return err
	}
	tx := newMemTx(s, false)
	if err := fn(tx); err != nil {
		return err
	}
	tx.commit()
	return nil
}

func (s *MemoryStore) View(ctx context.Context, fn func(Tx) error) error {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if err := ctx.Err(); err != nil {
		return err
	}
	return fn(newMemTx(s, true))
}

func (s *MemoryStore) Events(_ context.Context, f model.EventFilter) ([]model.Event, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := lo.Filter(s.events, func(e model.Event, _ int) bool {
		return matchEvent(e, f)
	})
	if f.Limit > 0 && len(result) > f.Limit {
		result = result[:f.Limit]
	}
	return lo.Map(result, func(e model.Event, _ int) model.Event {
		e.Attributes = maps.Clone(e.Attributes)
		return e
	}), nil
}

func matchEvent(e model.Event, f model.EventFilter) bool {
	if e.Seq <= f.AfterSeq {
		return false
	}
	if f.Name != "" && e.Name != f.Name {
		return false
	}
	if f.Contract != (common.Address{}) && e.Contract != f.Contract {
		return false
	}
	return true
}

// memTx reads through to the committed maps and buffers writes.
type memTx struct {
	s        *MemoryStore
	readOnly bool

	puzzle     *model.Puzzle
	registry   *model.RegistryConfig
	players    map[common.Address]model.PlayerRecord
	entries    map[common.Address]model.LeaderboardEntry
	rankings   map[model.Board][]model.RankedPlayer
	balances   map[balanceKey]decimal.Decimal
	allowances map[allowanceKey]decimal.Decimal
	events     []model.Event
}

func newMemTx(s *MemoryStore, readOnly bool) *memTx {
	return &memTx{
		s:          s,
		readOnly:   readOnly,
		players:    make(map[common.Address]model.PlayerRecord),
		entries:    make(map[common.Address]model.LeaderboardEntry),
		rankings:   make(map[model.Board][]model.RankedPlayer),
		balances:   make(map[balanceKey]decimal.Decimal),
		allowances: make(map[allowanceKey]decimal.Decimal),
	}
}

// commit applies the overlay. Caller holds the write lock.
func (t *memTx) commit() {
	s := t.s
	if t.puzzle != nil {
		s.puzzle = *t.puzzle
	}
	if t.registry != nil {
		s.registry = *t.registry
	}
	maps.Copy(s.players, t.players)
	maps.Copy(s.entries, t.entries)
	maps.Copy(s.rankings, t.rankings)
	maps.Copy(s.balances, t.balances)
	maps.Copy(s.allowances, t.allowances)
	s.events = append(s.events, t.events...)
}

func (t *memTx) Puzzle(_ context.Context) (model.Puzzle, error) {
	if t.puzzle != nil {
		return *t.puzzle, nil
	}
	return t.s.puzzle, nil
}

func (t *memTx) PutPuzzle(_ context.Context, p model.Puzzle) error {
	if t.readOnly {
		return ErrReadOnly
	}
	t.puzzle = &p
	return nil
}

func (t *memTx) Player(_ context.Context, addr common.Address) (model.PlayerRecord, error) {
	if rec, ok := t.players[addr]; ok {
		return rec, nil
	}
	if rec, ok := t.s.players[addr]; ok {
		return rec, nil
	}
	return model.PlayerRecord{Address: addr}, nil
}

func (t *memTx) PutPlayer(_ context.Context, rec model.PlayerRecord) error {
	if t.readOnly {
		return ErrReadOnly
	}
	t.players[rec.Address] = rec
	return nil
}

func (t *memTx) Registry(_ context.Context) (model.RegistryConfig, error) {
	if t.registry != nil {
		return *t.registry, nil
	}
	return t.s.registry, nil
}

func (t *memTx) PutRegistry(_ context.Context, cfg model.RegistryConfig) error {
	if t.readOnly {
		return ErrReadOnly
	}
	t.registry = &cfg
	return nil
}

func (t *memTx) Entry(_ context.Context, addr common.Address) (model.LeaderboardEntry, error) {
	if e, ok := t.entries[addr]; ok {
		return e, nil
	}
	if e, ok := t.s.entries[addr]; ok {
		return e, nil
	}
	return model.LeaderboardEntry{Address: addr}, nil
}

func (t *memTx) PutEntry(_ context.Context, e model.LeaderboardEntry) error {
	if t.readOnly {
		return ErrReadOnly
	}
	e.Exists = true
	t.entries[e.Address] = e
	return nil
}

func (t *memTx) EntryCount(_ context.Context) (int64, error) {
	n := int64(len(t.s.entries))
	for addr := range t.entries {
		if _, ok := t.s.entries[addr]; !ok {
			n++
		}
	}
	return n, nil
}

func (t *memTx) Ranking(_ context.Context, board model.Board) ([]model.RankedPlayer, error) {
	if r, ok := t.rankings[board]; ok {
		return slices.Clone(r), nil
	}
	return slices.Clone(t.s.rankings[board]), nil
}

func (t *memTx) PutRanking(_ context.Context, board model.Board, ranked []model.RankedPlayer) error {
	if t.readOnly {
		return ErrReadOnly
	}
	t.rankings[board] = slices.Clone(ranked)
	return nil
}

func (t *memTx) Balance(_ context.Context, token, holder common.Address) (decimal.Decimal, error) {
	k := balanceKey{token, holder}
	if v, ok := t.balances[k]; ok {
		return v, nil
	}
	return t.s.balances[k], nil
}

func (t *memTx) PutBalance(_ context.Context, token, holder common.Address, amount decimal.Decimal) error {
	if t.readOnly {
		return ErrReadOnly
	}
	t.balances[balanceKey{token, holder}] = amount
	return nil
}

func (t *memTx) Allowance(_ context.Context, token, owner, spender common.Address) (decimal.Decimal, error) {
	k := allowanceKey{token, owner, spender}
	if v, ok := t.allowances[k]; ok {
		return v, nil
	}
	return t.s.allowances[k], nil
}

func (t *memTx) PutAllowance(_ context.Context, token, owner, spender common.Address, amount decimal.Decimal) error {
	if t.readOnly {
		return ErrReadOnly
	}
	t.allowances[allowanceKey{token, owner, spender}] = amount
	return nil
}

func (t *memTx) AppendEvent(_ context.Context, e *model.Event) error {
	if t.readOnly {
		return ErrReadOnly
	}
	e.Seq = int64(len(t.s.events)+len(t.events)) + 1
	stored := *e
	stored.Attributes = maps.Clone(e.Attributes)
	t.events = append(t.events, stored)
	return nil
}
