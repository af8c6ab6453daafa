// Package dex defines the collaborator contracts the settlement engine
// consumes: the pool price source, the swap executor, and the token custody
// primitive. The engine depends only on these interfaces; pool internals live
// behind them.
package dex

import (
	"errors"
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum/common"
)

var (
	// ErrPoolNotFound is returned for price reads and swaps against an
	// unknown pool. Never reported as a zero price.
	ErrPoolNotFound = errors.New("pool not found")

	// ErrInsufficientFunds is returned when a custody transfer would
	// overdraw the source account. The enclosing operation must abort with
	// no partial effect.
	ErrInsufficientFunds = errors.New("insufficient funds")

	// ErrInsufficientAllowance is returned when a delegated debit exceeds
	// what the owner approved.
	ErrInsufficientAllowance = errors.New("insufficient allowance")

	// ErrDeadlineExpired is returned by the swap executor when the caller's
	// deadline has already passed.
	ErrDeadlineExpired = errors.New("swap deadline expired")

	// ErrUnknownToken is returned for metadata lookups on unregistered
	// assets.
	ErrUnknownToken = errors.New("unknown token")

	// ErrSlippageExceeded is returned when realized output falls below the
	// caller's minOut.
	ErrSlippageExceeded = errors.New("swap output below minimum")
)

// PriceOracle reads a pool's current price in the engine's Q96 fixed-point
// scale. A failed read (unknown pool) must surface as a hard error, never a
// silent zero.
type PriceOracle interface {
	CurrentPrice(pool common.Address) (*big.Int, error)
}

// SwapExecutor converts an exact input amount into the output asset on the
// given pool. minOut of zero means the caller relies on its own price checks
// rather than the executor's slippage protection. The deadline bounds stale
// execution.
type SwapExecutor interface {
	SwapExactIn(pool, tokenIn, tokenOut common.Address, amountIn, minOut *big.Int, deadline time.Time) (*big.Int, error)
}

// TokenInfo exposes asset metadata. The engine reads the output asset's
// decimals once at placement to normalize the target price.
type TokenInfo interface {
	Decimals(token common.Address) (uint8, error)
}

// Custody is the external asset debit/credit primitive, bound to the
// engine's vault account. Every failure must abort the enclosing operation
// with no partial effect.
type Custody interface {
	// TransferFrom debits amount of token from owner into the vault,
	// consuming the owner's allowance.
	TransferFrom(owner, token common.Address, amount *big.Int) error

	// Transfer credits amount of token from the vault to the recipient.
	Transfer(to, token common.Address, amount *big.Int) error

	// Approve sets the vault's spending allowance on behalf of the caller.
	Approve(owner, spender, token common.Address, amount *big.Int) error
}
