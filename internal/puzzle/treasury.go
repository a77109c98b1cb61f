package puzzle

import (
	"context"
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"github.com/shopspring/decimal"

	"github.com/eduwordle/puzzle-ledger/internal/chain"
	"github.com/eduwordle/puzzle-ledger/internal/store"
)

// FundTreasury pulls amount from the caller into the engine. The caller must
// have approved the engine for at least amount.
func (e *Engine) FundTreasury(ctx context.Context, tx store.Tx, call chain.Call, amount decimal.Decimal) error {
	if !amount.IsPositive() || !amount.IsInteger() {
		return ErrInvalidAmount
	}
	p, err := tx.Puzzle(ctx)
	if err != nil {
		return err
	}
	if err := e.asset.TransferFrom(ctx, tx, call.As(e.Address), call.Sender, e.Address, amount); err != nil {
		return err
	}
	p.Treasury = p.Treasury.Add(amount)
	if err := tx.PutPuzzle(ctx, p); err != nil {
		return err
	}
	return tx.AppendEvent(ctx, call.Event(e.Address, "TreasuryFunded", map[string]string{
		"funder": call.Sender.Hex(),
		"amount": amount.String(),
	}))
}

// WithdrawFunds pays amount out of the treasury to recipient. Owner only.
func (e *Engine) WithdrawFunds(ctx context.Context, tx store.Tx, call chain.Call,
	amount decimal.Decimal, recipient common.Address) error {
	p, err := e.loadAsOwner(ctx, tx, call)
	if err != nil {
		return err
	}
	if !amount.IsPositive() || !amount.IsInteger() {
		return ErrInvalidAmount
	}
	if recipient == (common.Address{}) {
		return ErrInvalidAddress
	}
	if amount.GreaterThan(p.Treasury) {
		return ErrInsufficientTreasuryFunds
	}

	p.Treasury = p.Treasury.Sub(amount)
	if err := tx.PutPuzzle(ctx, p); err != nil {
		return err
	}
	if err := e.asset.Transfer(ctx, tx, call.As(e.Address), recipient, amount); err != nil {
		return fmt.Errorf("withdraw: %w", err)
	}
	return tx.AppendEvent(ctx, call.Event(e.Address, "FundsWithdrawn", map[string]string{
		"recipient": recipient.Hex(),
		"amount":    amount.String(),
	}))
}
