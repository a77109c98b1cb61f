// Package ledger runs the puzzle programs as serialized, all-or-nothing
// transactions over a store.Store.
//
// A Ledger owns the three deployed programs (reward token, puzzle engine and
// leaderboard registry). Every state change goes through Execute, which
// stamps the transaction with an id, sender and block time, runs it inside a
// store transaction and publishes the committed events.
package ledger

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/google/uuid"
	"github.com/samber/lo"
	"github.com/shopspring/decimal"

	"github.com/eduwordle/puzzle-ledger/internal/asset"
	"github.com/eduwordle/puzzle-ledger/internal/chain"
	"github.com/eduwordle/puzzle-ledger/internal/leaderboard"
	"github.com/eduwordle/puzzle-ledger/internal/metrics"
	"github.com/eduwordle/puzzle-ledger/internal/model"
	"github.com/eduwordle/puzzle-ledger/internal/puzzle"
	"github.com/eduwordle/puzzle-ledger/internal/store"
)

// Publisher receives the events of every committed transaction, in commit
// order.
type Publisher interface {
	Publish(events []model.Event)
}

// Addresses are the deployed program addresses.
type Addresses struct {
	Token    common.Address `json:"token"`
	Engine   common.Address `json:"engine"`
	Registry common.Address `json:"registry"`
}

// DeriveAddresses returns the addresses owner's first three deployments
// would get: token, engine and registry, in that order.
func DeriveAddresses(owner common.Address) Addresses {
	return Addresses{
		Token:    crypto.CreateAddress(owner, 0),
		Engine:   crypto.CreateAddress(owner, 1),
		Registry: crypto.CreateAddress(owner, 2),
	}
}

// Options configure a Ledger.
type Options struct {
	Owner         common.Address
	TokenSymbol   string
	TokenDecimals int32
	Clock         chain.Clock // defaults to chain.SystemClock
	Publisher     Publisher   // optional
}

// Ledger serializes transactions against the programs it owns. Uses a mutex
// for serialized execution (single-instance); the Postgres store adds an
// advisory lock so several instances stay totally ordered.
type Ledger struct {
	store     store.Store
	clock     chain.Clock
	publisher Publisher
	mu        sync.Mutex

	addrs    Addresses
	token    *asset.Token
	engine   *puzzle.Engine
	registry *leaderboard.Registry
}

// New builds a ledger whose programs are deployed by opts.Owner. Call Deploy
// once to write their constructor state.
func New(st store.Store, opts Options) *Ledger {
	clock := opts.Clock
	if clock == nil {
		clock = chain.SystemClock{}
	}
	addrs := DeriveAddresses(opts.Owner)
	l := &Ledger{
		store:     st,
		clock:     clock,
		publisher: opts.Publisher,
		addrs:     addrs,
		token:     asset.NewToken(addrs.Token, opts.Owner, opts.TokenSymbol, opts.TokenDecimals),
		registry:  leaderboard.NewRegistry(addrs.Registry),
	}
	l.engine = puzzle.NewEngine(addrs.Engine, l.token, l)
	return l
}

func (l *Ledger) Addresses() Addresses { return l.addrs }

func (l *Ledger) Token() *asset.Token { return l.token }

func (l *Ledger) Engine() *puzzle.Engine { return l.engine }

func (l *Ledger) Registry() *leaderboard.Registry { return l.registry }

// Leaderboard resolves a configured leaderboard address to the registry
// deployed on this ledger.
func (l *Ledger) Leaderboard(addr common.Address) (puzzle.WinRecorder, bool) {
	if addr != l.addrs.Registry {
		return nil, false
	}
	return l.registry, true
}

// TxFunc is the body of a ledger transaction.
type TxFunc func(ctx context.Context, tx store.Tx, call chain.Call) error

// Receipt describes a committed transaction.
type Receipt struct {
	TxID   string         `json:"tx_id"`
	Method string         `json:"method"`
	Sender common.Address `json:"sender"`
	Time   time.Time      `json:"time"`
	Events []model.Event  `json:"events"`
}

// Execute runs fn as one transaction issued by sender. fn's writes commit
// only if it returns nil; otherwise the store discards every write and the
// error is returned unchanged.
func (l *Ledger) Execute(ctx context.Context, sender common.Address, method string, fn TxFunc) (*Receipt, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	start := time.Now()
	call := chain.Call{
		TxID:   uuid.New().String(),
		Sender: sender,
		Time:   l.clock.Now().UTC(),
	}

	var emitted []*model.Event
	err := l.store.Update(ctx, func(tx store.Tx) error {
		rec := &recordingTx{Tx: tx}
		if err := fn(ctx, rec, call); err != nil {
			return err
		}
		emitted = rec.events
		return nil
	})
	metrics.TxLatency.WithLabelValues(method).Observe(time.Since(start).Seconds())

	if err != nil {
		l.reject(method, call, err)
		return nil, err
	}

	events := lo.Map(emitted, func(e *model.Event, _ int) model.Event { return *e })
	metrics.TxTotal.WithLabelValues(method, "committed").Inc()
	observe(events)
	l.refreshGauges(ctx)

	slog.Info("tx committed",
		"tx", call.TxID,
		"method", method,
		"sender", sender.Hex(),
		"events", len(events),
	)

	if l.publisher != nil && len(events) > 0 {
		l.publisher.Publish(events)
	}

	return &Receipt{
		TxID:   call.TxID,
		Method: method,
		Sender: sender,
		Time:   call.Time,
		Events: events,
	}, nil
}

func (l *Ledger) reject(method string, call chain.Call, err error) {
	if !chain.IsRejection(err) {
		metrics.TxTotal.WithLabelValues(method, "failed").Inc()
		slog.Error("tx failed", "tx", call.TxID, "method", method, "sender", call.Sender.Hex(), "err", err)
		return
	}
	code := chain.CodeOf(err)
	metrics.TxTotal.WithLabelValues(method, "rejected").Inc()
	metrics.RejectionsTotal.WithLabelValues(code).Inc()
	if errors.Is(err, puzzle.ErrIncorrectAnswer) {
		metrics.IncorrectGuessesTotal.Inc()
	}
	slog.Info("tx rejected", "tx", call.TxID, "method", method, "sender", call.Sender.Hex(), "code", code)
}

// View runs fn against committed state. It never writes.
func (l *Ledger) View(ctx context.Context, fn func(ctx context.Context, tx store.Tx) error) error {
	return l.store.View(ctx, func(tx store.Tx) error { return fn(ctx, tx) })
}

// Events returns committed events matching f.
func (l *Ledger) Events(ctx context.Context, f model.EventFilter) ([]model.Event, error) {
	return l.store.Events(ctx, f)
}

// Now returns the ledger clock's current time.
func (l *Ledger) Now() time.Time {
	return l.clock.Now().UTC()
}

func observe(events []model.Event) {
	for _, e := range events {
		switch e.Name {
		case "PuzzleSolved":
			metrics.SolvesTotal.Inc()
		case "HintPurchased":
			metrics.HintsSoldTotal.Inc()
		case "RewardClaimed":
			if amt, err := decimal.NewFromString(e.Attributes["amount"]); err == nil {
				metrics.RewardsPaidTotal.Add(amt.InexactFloat64())
			}
		}
	}
}

func (l *Ledger) refreshGauges(ctx context.Context) {
	err := l.View(ctx, func(ctx context.Context, tx store.Tx) error {
		p, err := tx.Puzzle(ctx)
		if err != nil {
			return err
		}
		players, err := tx.EntryCount(ctx)
		if err != nil {
			return err
		}
		metrics.TreasuryBalance.Set(p.Treasury.InexactFloat64())
		metrics.LeaderboardPlayers.Set(float64(players))
		return nil
	})
	if err != nil {
		slog.Warn("gauge refresh failed", "err", err)
	}
}

// recordingTx keeps the events appended through it so Execute can publish
// them once the transaction commits.
type recordingTx struct {
	store.Tx
	events []*model.Event
}

func (t *recordingTx) AppendEvent(ctx context.Context, e *model.Event) error {
	if err := t.Tx.AppendEvent(ctx, e); err != nil {
		return err
	}
	t.events = append(t.events, e)
	return nil
}
