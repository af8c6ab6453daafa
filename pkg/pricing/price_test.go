package pricing

import (
	"math/big"
	"testing"
)

func q96(v int64) *big.Int {
	return new(big.Int).Lsh(big.NewInt(v), RadixBits)
}

// TestNormalize verifies the placement-time scaling formula
func TestNormalize(t *testing.T) {
	tests := []struct {
		name     string
		raw      *big.Int
		decimals uint8
		want     *big.Int
		wantErr  bool
	}{
		{
			name:     "exact scale, 18 decimals",
			raw:      new(big.Int).Mul(big.NewInt(500_000_000), big.NewInt(1_000_000_000_000_000_000)),
			decimals: 18,
			want:     q96(500_000_000),
		},
		{
			name:     "exact scale, 6 decimals",
			raw:      big.NewInt(2_000_000_000),
			decimals: 6,
			want:     q96(2000),
		},
		{
			name:     "zero decimals is identity times radix",
			raw:      big.NewInt(7),
			decimals: 0,
			want:     q96(7),
		},
		{
			name:     "zero price rejected",
			raw:      big.NewInt(0),
			decimals: 18,
			wantErr:  true,
		},
		{
			name:     "negative price rejected",
			raw:      big.NewInt(-5),
			decimals: 18,
			wantErr:  true,
		},
		{
			name:     "nil price rejected",
			raw:      nil,
			decimals: 18,
			wantErr:  true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Normalize(tt.raw, tt.decimals)
			if (err != nil) != tt.wantErr {
				t.Fatalf("wantErr=%v, got err=%v", tt.wantErr, err)
			}
			if err != nil {
				return
			}
			if got.Cmp(tt.want) != 0 {
				t.Errorf("Normalize() = %s, want %s", got, tt.want)
			}
		})
	}
}

// TestExecutable verifies the buy-side predicate across the tolerance band
func TestExecutable(t *testing.T) {
	target := big.NewInt(10000)

	tests := []struct {
		name        string
		current     *big.Int
		slippageBps int64
		want        bool
	}{
		{name: "below target", current: big.NewInt(9000), slippageBps: 0, want: true},
		{name: "exactly at target, zero slippage", current: big.NewInt(10000), slippageBps: 0, want: true},
		{name: "one above target, zero slippage", current: big.NewInt(10001), slippageBps: 0, want: false},
		{name: "inside band", current: big.NewInt(10099), slippageBps: 100, want: true},
		{name: "at band edge", current: big.NewInt(10100), slippageBps: 100, want: true},
		{name: "just past band edge", current: big.NewInt(10101), slippageBps: 100, want: false},
		{name: "far below target always executable", current: big.NewInt(1), slippageBps: 0, want: true},
		{name: "full slippage doubles the limit", current: big.NewInt(20000), slippageBps: 10000, want: true},
		{name: "nil current never executable", current: nil, slippageBps: 10000, want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Executable(tt.current, target, tt.slippageBps); got != tt.want {
				t.Errorf("Executable(%v, %v, %d) = %v, want %v", tt.current, target, tt.slippageBps, got, tt.want)
			}
		})
	}
}

// TestTolerance verifies band arithmetic including integer truncation
func TestTolerance(t *testing.T) {
	tests := []struct {
		target      int64
		slippageBps int64
		want        int64
	}{
		{target: 10000, slippageBps: 100, want: 100},
		{target: 10000, slippageBps: 0, want: 0},
		{target: 99, slippageBps: 100, want: 0}, // truncates: 99*100/10000
		{target: 10000, slippageBps: 10000, want: 10000},
	}

	for _, tt := range tests {
		got := Tolerance(big.NewInt(tt.target), tt.slippageBps)
		if got.Int64() != tt.want {
			t.Errorf("Tolerance(%d, %d) = %s, want %d", tt.target, tt.slippageBps, got, tt.want)
		}
	}
}

func TestVerifyScale(t *testing.T) {
	if err := VerifyScale(Radix()); err != nil {
		t.Errorf("matching radix rejected: %v", err)
	}
	if err := VerifyScale(big.NewInt(1 << 32)); err == nil {
		t.Error("mismatched radix accepted")
	}
	if err := VerifyScale(nil); err == nil {
		t.Error("nil radix accepted")
	}
}
