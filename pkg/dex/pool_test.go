package dex

import (
	"errors"
	"math/big"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"

	"github.com/dev-yomi/limit-order/pkg/pricing"
	"github.com/dev-yomi/limit-order/pkg/util"
)

var poolAddr = common.HexToAddress("0x4444444444444444444444444444444444444444")

func newTestPool(t *testing.T, feeBps int64) *SimPool {
	t.Helper()
	p, err := NewSimPool(poolAddr, tokenA, tokenB, big.NewInt(1000), big.NewInt(500_000), feeBps)
	if err != nil {
		t.Fatalf("failed to create pool: %v", err)
	}
	return p
}

func TestSimPoolPrice(t *testing.T) {
	p := newTestPool(t, 0)

	want := new(big.Int).Lsh(big.NewInt(500), pricing.RadixBits)
	if got := p.Price(); got.Cmp(want) != 0 {
		t.Errorf("price = %s, want %s", got, want)
	}

	if err := p.SetReserves(big.NewInt(1000), big.NewInt(400_000)); err != nil {
		t.Fatalf("set reserves failed: %v", err)
	}
	want = new(big.Int).Lsh(big.NewInt(400), pricing.RadixBits)
	if got := p.Price(); got.Cmp(want) != 0 {
		t.Errorf("price after SetReserves = %s, want %s", got, want)
	}
}

func TestSimPoolSwapConstantProduct(t *testing.T) {
	tests := []struct {
		name    string
		feeBps  int64
		amtIn   int64
		wantOut int64
	}{
		{name: "no fee", feeBps: 0, amtIn: 1000, wantOut: 250_000},
		{name: "30 bps fee", feeBps: 30, amtIn: 1000, wantOut: 249_624},
		{name: "small trade", feeBps: 0, amtIn: 10, wantOut: 4950},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := newTestPool(t, tt.feeBps)
			out, err := p.swap(tokenA, big.NewInt(tt.amtIn))
			if err != nil {
				t.Fatalf("swap failed: %v", err)
			}
			if out.Int64() != tt.wantOut {
				t.Errorf("out = %s, want %d", out, tt.wantOut)
			}

			r0, r1 := p.Reserves()
			if r0.Int64() != 1000+tt.amtIn {
				t.Errorf("reserve0 = %s, want %d", r0, 1000+tt.amtIn)
			}
			if r1.Int64() != 500_000-tt.wantOut {
				t.Errorf("reserve1 = %s, want %d", r1, 500_000-tt.wantOut)
			}
		})
	}
}

func TestSimPoolSwapUnknownToken(t *testing.T) {
	p := newTestPool(t, 0)
	if _, err := p.swap(vault, big.NewInt(10)); err == nil {
		t.Error("swap with a token outside the pool accepted")
	}
}

func TestSimPoolRejectsBadConstruction(t *testing.T) {
	if _, err := NewSimPool(poolAddr, tokenA, tokenA, big.NewInt(1), big.NewInt(1), 0); err == nil {
		t.Error("identical tokens accepted")
	}
	if _, err := NewSimPool(poolAddr, tokenA, tokenB, big.NewInt(0), big.NewInt(1), 0); err == nil {
		t.Error("zero reserve accepted")
	}
	if _, err := NewSimPool(poolAddr, tokenA, tokenB, big.NewInt(1), big.NewInt(1), 10000); err == nil {
		t.Error("100% fee accepted")
	}
}

func TestPoolRegistry(t *testing.T) {
	r := NewPoolRegistry()
	p := newTestPool(t, 0)

	if err := r.Register(p); err != nil {
		t.Fatalf("register failed: %v", err)
	}
	if err := r.Register(p); err == nil {
		t.Error("duplicate registration accepted")
	}

	got, err := r.Get(poolAddr)
	if err != nil {
		t.Fatalf("get failed: %v", err)
	}
	if got != p {
		t.Error("registry returned a different pool")
	}

	if _, err := r.Get(vault); !errors.Is(err, ErrPoolNotFound) {
		t.Errorf("err = %v, want ErrPoolNotFound", err)
	}
	if len(r.List()) != 1 {
		t.Errorf("list size = %d, want 1", len(r.List()))
	}
}

func newTestDex(t *testing.T, feeBps int64) (*SimDex, *Bank, *SimPool, *util.FakeClock) {
	t.Helper()

	bank := NewBank()
	pool := newTestPool(t, feeBps)
	registry := NewPoolRegistry()
	if err := registry.Register(pool); err != nil {
		t.Fatalf("register failed: %v", err)
	}

	// bank accounts mirror the pool reserves
	bank.Mint(tokenA, poolAddr, big.NewInt(1000))
	bank.Mint(tokenB, poolAddr, big.NewInt(500_000))

	clock := &util.FakeClock{Time: time.Unix(1_700_000_000, 0)}
	d, err := NewSimDex(registry, bank, vault, clock)
	if err != nil {
		t.Fatalf("failed to create dex: %v", err)
	}
	return d, bank, pool, clock
}

func TestSimDexCurrentPrice(t *testing.T) {
	d, _, _, _ := newTestDex(t, 0)

	want := new(big.Int).Lsh(big.NewInt(500), pricing.RadixBits)
	got, err := d.CurrentPrice(poolAddr)
	if err != nil {
		t.Fatalf("current price failed: %v", err)
	}
	if got.Cmp(want) != 0 {
		t.Errorf("price = %s, want %s", got, want)
	}

	if _, err := d.CurrentPrice(vault); !errors.Is(err, ErrPoolNotFound) {
		t.Errorf("err = %v, want ErrPoolNotFound", err)
	}
}

func TestSimDexSwapExactIn(t *testing.T) {
	d, bank, _, clock := newTestDex(t, 0)
	bank.Mint(tokenA, vault, big.NewInt(1000))

	deadline := clock.Now().Add(time.Minute)
	out, err := d.SwapExactIn(poolAddr, tokenA, tokenB, big.NewInt(1000), nil, deadline)
	if err != nil {
		t.Fatalf("swap failed: %v", err)
	}
	if out.Int64() != 250_000 {
		t.Errorf("out = %s, want 250000", out)
	}

	if got := bank.BalanceOf(tokenA, vault); got.Sign() != 0 {
		t.Errorf("vault tokenA = %s, want 0", got)
	}
	if got := bank.BalanceOf(tokenB, vault); got.Int64() != 250_000 {
		t.Errorf("vault tokenB = %s, want 250000", got)
	}
	if got := bank.BalanceOf(tokenA, poolAddr); got.Int64() != 2000 {
		t.Errorf("pool tokenA = %s, want 2000", got)
	}
	if got := bank.BalanceOf(tokenB, poolAddr); got.Int64() != 250_000 {
		t.Errorf("pool tokenB = %s, want 250000", got)
	}
}

func TestSimDexSwapFailures(t *testing.T) {
	d, bank, pool, clock := newTestDex(t, 0)
	bank.Mint(tokenA, vault, big.NewInt(100))

	deadline := clock.Now().Add(time.Minute)

	t.Run("expired deadline", func(t *testing.T) {
		_, err := d.SwapExactIn(poolAddr, tokenA, tokenB, big.NewInt(10), nil, clock.Now().Add(-time.Second))
		if !errors.Is(err, ErrDeadlineExpired) {
			t.Errorf("err = %v, want ErrDeadlineExpired", err)
		}
	})

	t.Run("unknown pool", func(t *testing.T) {
		_, err := d.SwapExactIn(vault, tokenA, tokenB, big.NewInt(10), nil, deadline)
		if !errors.Is(err, ErrPoolNotFound) {
			t.Errorf("err = %v, want ErrPoolNotFound", err)
		}
	})

	t.Run("pair not served", func(t *testing.T) {
		_, err := d.SwapExactIn(poolAddr, tokenA, alice, big.NewInt(10), nil, deadline)
		if err == nil {
			t.Error("pair outside the pool accepted")
		}
	})

	t.Run("insufficient vault funds", func(t *testing.T) {
		_, err := d.SwapExactIn(poolAddr, tokenA, tokenB, big.NewInt(101), nil, deadline)
		if !errors.Is(err, ErrInsufficientFunds) {
			t.Errorf("err = %v, want ErrInsufficientFunds", err)
		}
	})

	t.Run("min out not met reverts reserves", func(t *testing.T) {
		r0Before, r1Before := pool.Reserves()
		_, err := d.SwapExactIn(poolAddr, tokenA, tokenB, big.NewInt(10), big.NewInt(1_000_000), deadline)
		if !errors.Is(err, ErrSlippageExceeded) {
			t.Fatalf("err = %v, want ErrSlippageExceeded", err)
		}
		r0After, r1After := pool.Reserves()
		if r0Before.Cmp(r0After) != 0 || r1Before.Cmp(r1After) != 0 {
			t.Error("rejected swap left reserves mutated")
		}
		if got := bank.BalanceOf(tokenA, vault); got.Int64() != 100 {
			t.Errorf("vault balance after rejected swap = %s, want 100", got)
		}
	})
}
