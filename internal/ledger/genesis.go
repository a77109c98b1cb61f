package ledger

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/ethereum/go-ethereum/common"
	"github.com/shopspring/decimal"

	"github.com/eduwordle/puzzle-ledger/internal/chain"
	"github.com/eduwordle/puzzle-ledger/internal/puzzle"
	"github.com/eduwordle/puzzle-ledger/internal/store"
)

// Allocation is a genesis token balance.
type Allocation struct {
	Holder common.Address
	Amount decimal.Decimal
}

// Genesis is the constructor state of the three programs.
type Genesis struct {
	Allocations     []Allocation
	Puzzle          puzzle.Config
	MaxTopPlayers   int
	TreasuryFunding decimal.Decimal // moved from the owner into the treasury
}

// Deploy writes the genesis state on an empty store: it mints the
// allocations, deploys the engine and the registry, points the engine at the
// registry and funds the treasury. It is a no-op once the engine has an
// owner, so restarts against a persistent store keep their state. It reports
// whether anything was written.
func (l *Ledger) Deploy(ctx context.Context, g Genesis) (bool, error) {
	owner := l.token.Owner
	deployed := false
	_, err := l.Execute(ctx, owner, "deploy", func(ctx context.Context, tx store.Tx, call chain.Call) error {
		p, err := tx.Puzzle(ctx)
		if err != nil {
			return err
		}
		if p.Owner != (common.Address{}) {
			return nil
		}

		for _, a := range g.Allocations {
			if err := l.token.Mint(ctx, tx, call, a.Holder, a.Amount); err != nil {
				return fmt.Errorf("mint to %s: %w", a.Holder.Hex(), err)
			}
		}
		if err := l.engine.Deploy(ctx, tx, call, g.Puzzle); err != nil {
			return fmt.Errorf("deploy engine: %w", err)
		}
		if err := l.registry.Deploy(ctx, tx, call, l.engine.Address, g.MaxTopPlayers); err != nil {
			return fmt.Errorf("deploy registry: %w", err)
		}
		if err := l.engine.SetLeaderboardContract(ctx, tx, call, l.registry.Address); err != nil {
			return fmt.Errorf("wire leaderboard: %w", err)
		}
		if g.TreasuryFunding.IsPositive() {
			if err := l.token.Approve(ctx, tx, call, l.engine.Address, g.TreasuryFunding); err != nil {
				return err
			}
			if err := l.engine.FundTreasury(ctx, tx, call, g.TreasuryFunding); err != nil {
				return fmt.Errorf("fund treasury: %w", err)
			}
		}
		deployed = true
		return nil
	})
	if err != nil {
		return false, err
	}
	if deployed {
		slog.Info("programs deployed",
			"owner", owner.Hex(),
			"token", l.addrs.Token.Hex(),
			"engine", l.addrs.Engine.Hex(),
			"registry", l.addrs.Registry.Hex(),
			"allocations", len(g.Allocations),
			"treasury", g.TreasuryFunding.String(),
		)
	}
	return deployed, nil
}
