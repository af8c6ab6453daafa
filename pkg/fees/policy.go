package fees

import (
	"fmt"
	"math/big"
)

// Split is the payout arithmetic applied to swap proceeds.
//
// Formula:
//
//	resolverFee = amountOut × resolverFeeBps / 10000
//	operatorCut = resolverFee × contractFeeBps / 10000
//	toOwner     = amountOut - resolverFee
//	toResolver  = resolverFee - operatorCut
//
// Integer division remainders land with the owner: toOwner is computed by
// subtraction, so toOwner + toResolver + toOperator == amountOut exactly for
// every input. Pure function, no state.
type Split struct {
	ToOwner    *big.Int
	ToResolver *big.Int
	ToOperator *big.Int
}

const bpsDenominator = 10000

// ComputeSplit divides amountOut between the order owner, the resolver that
// triggered execution, and the operator.
func ComputeSplit(amountOut *big.Int, resolverFeeBps, contractFeeBps int64) (Split, error) {
	if amountOut == nil || amountOut.Sign() < 0 {
		return Split{}, fmt.Errorf("amount out must be non-negative")
	}
	if resolverFeeBps < 0 || resolverFeeBps > bpsDenominator {
		return Split{}, fmt.Errorf("resolver fee bps out of range: %d", resolverFeeBps)
	}
	if contractFeeBps < 0 || contractFeeBps > bpsDenominator {
		return Split{}, fmt.Errorf("contract fee bps out of range: %d", contractFeeBps)
	}

	den := big.NewInt(bpsDenominator)

	resolverFee := new(big.Int).Mul(amountOut, big.NewInt(resolverFeeBps))
	resolverFee.Div(resolverFee, den)

	operatorCut := new(big.Int).Mul(resolverFee, big.NewInt(contractFeeBps))
	operatorCut.Div(operatorCut, den)

	return Split{
		ToOwner:    new(big.Int).Sub(amountOut, resolverFee),
		ToResolver: new(big.Int).Sub(resolverFee, operatorCut),
		ToOperator: operatorCut,
	}, nil
}

// Total returns the sum of the three parts. Always equals the amountOut the
// split was computed from.
func (s Split) Total() *big.Int {
	total := new(big.Int).Add(s.ToOwner, s.ToResolver)
	return total.Add(total, s.ToOperator)
}
