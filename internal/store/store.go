// Package store defines the ledger's state store. Implementations include
// PostgreSQL (source of truth), Redis (read-through cache) and in-memory
// (for testing and development).
package store

import (
	"context"
	"errors"

	"github.com/ethereum/go-ethereum/common"
	"github.com/shopspring/decimal"

	"github.com/eduwordle/puzzle-ledger/internal/model"
)

// ErrReadOnly is returned by writes attempted inside View.
var ErrReadOnly = errors.New("store: write in read-only transaction")

// Store is the state store. Update runs fn atomically: either every write
// made through the Tx is committed, or none is. Implementations commit
// Update transactions in a single total order.
type Store interface {
	// Update runs fn in a read-write transaction, committed iff fn returns nil.
	Update(ctx context.Context, fn func(Tx) error) error

	// View runs fn in a read-only transaction.
	View(ctx context.Context, fn func(Tx) error) error

	// Events returns committed events in sequence order.
	Events(ctx context.Context, filter model.EventFilter) ([]model.Event, error)
}

// Tx is the state visible to one transaction. Getters of keyed records never
// fail for absent keys; they return the zero record.
type Tx interface {
	// --- Puzzle engine ---

	Puzzle(ctx context.Context) (model.Puzzle, error)
	PutPuzzle(ctx context.Context, p model.Puzzle) error
	Player(ctx context.Context, addr common.Address) (model.PlayerRecord, error)
	PutPlayer(ctx context.Context, rec model.PlayerRecord) error

	// --- Leaderboard registry ---

	Registry(ctx context.Context) (model.RegistryConfig, error)
	PutRegistry(ctx context.Context, cfg model.RegistryConfig) error
	Entry(ctx context.Context, addr common.Address) (model.LeaderboardEntry, error)
	PutEntry(ctx context.Context, e model.LeaderboardEntry) error
	EntryCount(ctx context.Context) (int64, error)
	Ranking(ctx context.Context, board model.Board) ([]model.RankedPlayer, error)
	PutRanking(ctx context.Context, board model.Board, ranked []model.RankedPlayer) error

	// --- Asset ---

	Balance(ctx context.Context, token, holder common.Address) (decimal.Decimal, error)
	PutBalance(ctx context.Context, token, holder common.Address, amount decimal.Decimal) error
	Allowance(ctx context.Context, token, owner, spender common.Address) (decimal.Decimal, error)
	PutAllowance(ctx context.Context, token, owner, spender common.Address, amount decimal.Decimal) error

	// --- Event log ---

	// AppendEvent adds an event to the transaction and assigns its Seq.
	// The event becomes visible to Events only after commit.
	AppendEvent(ctx context.Context, e *model.Event) error
}
