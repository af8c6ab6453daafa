package order

import (
	"math/big"
	"testing"
)

func TestOrderValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Order)
		wantErr bool
	}{
		{name: "valid", mutate: func(o *Order) {}},
		{name: "nil amount", mutate: func(o *Order) { o.AmountIn = nil }, wantErr: true},
		{name: "zero amount", mutate: func(o *Order) { o.AmountIn = big.NewInt(0) }, wantErr: true},
		{name: "negative amount", mutate: func(o *Order) { o.AmountIn = big.NewInt(-5) }, wantErr: true},
		{name: "nil target price", mutate: func(o *Order) { o.TargetPrice = nil }, wantErr: true},
		{name: "zero target price", mutate: func(o *Order) { o.TargetPrice = big.NewInt(0) }, wantErr: true},
		{name: "same token both sides", mutate: func(o *Order) { o.TokenOut = o.TokenIn }, wantErr: true},
		{name: "resolver fee above cap", mutate: func(o *Order) { o.ResolverFeeBps = 10001 }, wantErr: true},
		{name: "resolver fee negative", mutate: func(o *Order) { o.ResolverFeeBps = -1 }, wantErr: true},
		{name: "slippage above cap", mutate: func(o *Order) { o.SlippageBps = 10001 }, wantErr: true},
		{name: "slippage negative", mutate: func(o *Order) { o.SlippageBps = -1 }, wantErr: true},
		{name: "zero fee and slippage allowed", mutate: func(o *Order) { o.ResolverFeeBps = 0; o.SlippageBps = 0 }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ord := testOrder(testOwner)
			tt.mutate(ord)
			err := ord.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestStatusTerminal(t *testing.T) {
	if Active.Terminal() {
		t.Error("Active reported terminal")
	}
	if !Executed.Terminal() || !Cancelled.Terminal() {
		t.Error("terminal states not reported terminal")
	}
}

func TestOrderClone(t *testing.T) {
	orig := testOrder(testOwner)
	clone := orig.Clone()

	clone.AmountIn.SetInt64(1)
	clone.TargetPrice.SetInt64(1)
	clone.Status = Executed

	if orig.AmountIn.Int64() != 1_000_000 {
		t.Error("clone shares AmountIn with original")
	}
	if orig.TargetPrice.Int64() != 500 {
		t.Error("clone shares TargetPrice with original")
	}
	if orig.Status != Active {
		t.Error("clone shares status with original")
	}

	var nilOrder *Order
	if nilOrder.Clone() != nil {
		t.Error("nil clone should be nil")
	}
}
