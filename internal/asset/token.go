// Package asset implements the fungible reward asset the puzzle engine pays
// out and collects hint fees in. Balances and allowances live in the ledger
// store, so token movements commit or roll back with the transaction that
// caused them.
package asset

import (
	"context"

	"github.com/ethereum/go-ethereum/common"
	"github.com/shopspring/decimal"

	"github.com/eduwordle/puzzle-ledger/internal/chain"
	"github.com/eduwordle/puzzle-ledger/internal/store"
)

var (
	ErrInsufficientBalance   = chain.NewError("insufficient_balance", "asset: transfer amount exceeds balance")
	ErrInsufficientAllowance = chain.NewError("insufficient_allowance", "asset: insufficient allowance")
	ErrInvalidAmount         = chain.NewError("invalid_amount", "asset: amount must be a non-negative integer")
	ErrInvalidAddress        = chain.NewError("invalid_address", "asset: zero address")
)

// Token is an ERC-20 style asset addressed by Address. Only Owner may mint.
type Token struct {
	Address  common.Address
	Owner    common.Address
	Symbol   string
	Decimals int32
}

// NewToken returns a token deployed at addr.
func NewToken(addr, owner common.Address, symbol string, decimals int32) *Token {
	return &Token{Address: addr, Owner: owner, Symbol: symbol, Decimals: decimals}
}

func (t *Token) BalanceOf(ctx context.Context, tx store.Tx, holder common.Address) (decimal.Decimal, error) {
	return tx.Balance(ctx, t.Address, holder)
}

func (t *Token) Allowance(ctx context.Context, tx store.Tx, owner, spender common.Address) (decimal.Decimal, error) {
	return tx.Allowance(ctx, t.Address, owner, spender)
}

// Transfer moves amount from the caller to to.
func (t *Token) Transfer(ctx context.Context, tx store.Tx, call chain.Call, to common.Address, amount decimal.Decimal) error {
	return t.move(ctx, tx, call, call.Sender, to, amount)
}

// TransferFrom moves amount from from to to, spending the caller's allowance.
func (t *Token) TransferFrom(ctx context.Context, tx store.Tx, call chain.Call, from, to common.Address, amount decimal.Decimal) error {
	if !validAmount(amount) {
		return ErrInvalidAmount
	}
	allowed, err := tx.Allowance(ctx, t.Address, from, call.Sender)
	if err != nil {
		return err
	}
	if allowed.LessThan(amount) {
		return ErrInsufficientAllowance
	}
	if err := tx.PutAllowance(ctx, t.Address, from, call.Sender, allowed.Sub(amount)); err != nil {
		return err
	}
	return t.move(ctx, tx, call, from, to, amount)
}

// Approve sets the caller's allowance for spender, replacing any previous
// value.
func (t *Token) Approve(ctx context.Context, tx store.Tx, call chain.Call, spender common.Address, amount decimal.Decimal) error {
	if !validAmount(amount) {
		return ErrInvalidAmount
	}
	if spender == (common.Address{}) {
		return ErrInvalidAddress
	}
	if err := tx.PutAllowance(ctx, t.Address, call.Sender, spender, amount); err != nil {
		return err
	}
	return tx.AppendEvent(ctx, call.Event(t.Address, "Approval", map[string]string{
		"owner":   call.Sender.Hex(),
		"spender": spender.Hex(),
		"value":   amount.String(),
	}))
}

// Mint credits amount to to. Owner only.
func (t *Token) Mint(ctx context.Context, tx store.Tx, call chain.Call, to common.Address, amount decimal.Decimal) error {
	if call.Sender != t.Owner {
		return chain.ErrUnauthorized
	}
	if !validAmount(amount) {
		return ErrInvalidAmount
	}
	if to == (common.Address{}) {
		return ErrInvalidAddress
	}
	bal, err := tx.Balance(ctx, t.Address, to)
	if err != nil {
		return err
	}
	if err := tx.PutBalance(ctx, t.Address, to, bal.Add(amount)); err != nil {
		return err
	}
	return tx.AppendEvent(ctx, call.Event(t.Address, "Transfer", map[string]string{
		"from":  common.Address{}.Hex(),
		"to":    to.Hex(),
		"value": amount.String(),
	}))
}

// validAmount reports whether amount is a whole number of base units.
func validAmount(amount decimal.Decimal) bool {
	return !amount.IsNegative() && amount.IsInteger()
}

func (t *Token) move(ctx context.Context, tx store.Tx, call chain.Call, from, to common.Address, amount decimal.Decimal) error {
	if !validAmount(amount) {
		return ErrInvalidAmount
	}
	if to == (common.Address{}) {
		return ErrInvalidAddress
	}
	fromBal, err := tx.Balance(ctx, t.Address, from)
	if err != nil {
		return err
	}
	if fromBal.LessThan(amount) {
		return ErrInsufficientBalance
	}
	if err := tx.PutBalance(ctx, t.Address, from, fromBal.Sub(amount)); err != nil {
		return err
	}
	// Read after the debit so a self-transfer nets to zero.
	toBal, err := tx.Balance(ctx, t.Address, to)
	if err != nil {
		return err
	}
	if err := tx.PutBalance(ctx, t.Address, to, toBal.Add(amount)); err != nil {
		return err
	}
	return tx.AppendEvent(ctx, call.Event(t.Address, "Transfer", map[string]string{
		"from":  from.Hex(),
		"to":    to.Hex(),
		"value": amount.String(),
	}))
}
