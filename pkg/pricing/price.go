// Package pricing holds the fixed-point price scale and the execution
// predicate that gates order settlement. Prices are integers scaled by a
// constant radix so the hot-path comparison never touches floats.
package pricing

import (
	"fmt"
	"math/big"
)

// RadixBits is the bit width of the Q96 fixed-point scale. The scale mirrors
// the venue's native price encoding (the square of its sqrt-price ratio,
// shifted down to 96 fractional bits), so stored targets and oracle reads
// compare directly.
const RadixBits = 96

// Radix returns the Q96 scaling constant (2^96) as a fresh big.Int.
func Radix() *big.Int {
	return new(big.Int).Lsh(big.NewInt(1), RadixBits)
}

// Normalize converts a raw price into the Q96 scale used for storage and
// comparison. Performed once at placement time.
//
// Formula: normalized = raw * 2^96 / 10^outDecimals
//
// Both sides of every later comparison must use this exact radix and exponent
// base; VerifyScale exists so wiring code can assert that once at startup.
func Normalize(raw *big.Int, outDecimals uint8) (*big.Int, error) {
	if raw == nil || raw.Sign() <= 0 {
		return nil, fmt.Errorf("raw price must be positive")
	}
	scaled := new(big.Int).Lsh(raw, RadixBits)
	exp := new(big.Int).Exp(big.NewInt(10), big.NewInt(int64(outDecimals)), nil)
	scaled.Div(scaled, exp)
	if scaled.Sign() <= 0 {
		return nil, fmt.Errorf("normalized price underflows to zero (raw=%s decimals=%d)", raw, outDecimals)
	}
	return scaled, nil
}

// Tolerance returns the allowed band above target: target * slippageBps / 10000.
func Tolerance(target *big.Int, slippageBps int64) *big.Int {
	tol := new(big.Int).Mul(target, big.NewInt(slippageBps))
	return tol.Div(tol, big.NewInt(10000))
}

// Executable is the execution predicate, evaluated fresh on every attempt.
//
// Buy-side semantics: the order settles once the pool price has fallen to or
// below the target plus the allowed slippage band:
//
//	current <= target + target*slippageBps/10000
//
// With zero slippage this degenerates to current <= target exactly. The band
// is one-directional; a price far below target is always executable.
func Executable(current, target *big.Int, slippageBps int64) bool {
	if current == nil || target == nil {
		return false
	}
	limit := new(big.Int).Add(target, Tolerance(target, slippageBps))
	return current.Cmp(limit) <= 0
}

// VerifyScale checks that an externally injected radix matches the scale this
// package compares against. Oracle adapters call this once at construction;
// a mismatched radix would make every comparison silently wrong.
func VerifyScale(radix *big.Int) error {
	if radix == nil || radix.Cmp(Radix()) != 0 {
		return fmt.Errorf("price radix mismatch: want 2^%d, got %v", RadixBits, radix)
	}
	return nil
}
