package order

import (
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
)

// Status represents the lifecycle state of a limit order.
// Active is the only initial state; Executed and Cancelled are terminal and
// mutually exclusive. No transition ever leaves a terminal state.
type Status int8

const (
	Active Status = iota
	Executed
	Cancelled
)

func (s Status) String() string {
	switch s {
	case Active:
		return "active"
	case Executed:
		return "executed"
	case Cancelled:
		return "cancelled"
	default:
		return "unknown"
	}
}

// Terminal returns true if no further transition is allowed out of s.
func (s Status) Terminal() bool {
	return s == Executed || s == Cancelled
}

// Valid reports whether the status value is within the supported range.
func (s Status) Valid() bool {
	switch s {
	case Active, Executed, Cancelled:
		return true
	default:
		return false
	}
}

// Order is a standing instruction to swap AmountIn of TokenIn for TokenOut
// once the pool's price reaches TargetPrice within the slippage band.
// The deposit is held in custody for exactly as long as the order is Active.
type Order struct {
	ID    uint64         // Monotonic, unique, never reused
	Owner common.Address // Placing principal; the only one allowed to cancel

	TokenIn  common.Address // Deposited asset
	TokenOut common.Address // Asset received on execution
	Pool     common.Address // Venue whose price gates execution

	// AmountIn is the custodied deposit in the token's smallest unit.
	AmountIn *big.Int

	// TargetPrice is pre-normalized to the oracle's Q96 fixed-point scale at
	// placement time so the execution check is a plain integer comparison.
	TargetPrice *big.Int

	ResolverFeeBps int64 // Fee paid to whoever triggers execution (0-10000)
	SlippageBps    int64 // Allowed band above target, in bps of target (0-10000)

	Status Status

	// Timestamps (Unix milliseconds)
	CreatedAt int64
	UpdatedAt int64
}

// Validate checks the placement invariants. Orders failing validation are
// rejected before any custody transfer.
func (o *Order) Validate() error {
	if o.AmountIn == nil || o.AmountIn.Sign() <= 0 {
		return fmt.Errorf("amount in must be positive")
	}
	if o.TargetPrice == nil || o.TargetPrice.Sign() <= 0 {
		return fmt.Errorf("target price must be positive")
	}
	if o.TokenIn == o.TokenOut {
		return fmt.Errorf("token in and token out must differ")
	}
	if o.ResolverFeeBps < 0 || o.ResolverFeeBps > 10000 {
		return fmt.Errorf("resolver fee bps out of range: %d", o.ResolverFeeBps)
	}
	if o.SlippageBps < 0 || o.SlippageBps > 10000 {
		return fmt.Errorf("slippage bps out of range: %d", o.SlippageBps)
	}
	return nil
}

// Clone returns a deep copy so callers can safely mutate the copy without
// affecting the stored instance.
func (o *Order) Clone() *Order {
	if o == nil {
		return nil
	}
	clone := *o
	if o.AmountIn != nil {
		clone.AmountIn = new(big.Int).Set(o.AmountIn)
	}
	if o.TargetPrice != nil {
		clone.TargetPrice = new(big.Int).Set(o.TargetPrice)
	}
	return &clone
}
