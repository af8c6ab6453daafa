package dex

import (
	"fmt"
	"math/big"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/common"

	"github.com/dev-yomi/limit-order/pkg/pricing"
	"github.com/dev-yomi/limit-order/pkg/util"
)

// SimPool is an in-memory constant-product pool used as the devnet venue and
// in tests. Its spot price is derived from reserves in the canonical
// orientation: token1 units per token0 unit, Q96 scaled.
type SimPool struct {
	Addr   common.Address
	Token0 common.Address
	Token1 common.Address
	FeeBps int64

	mu       sync.Mutex
	reserve0 *big.Int
	reserve1 *big.Int
}

func NewSimPool(addr, token0, token1 common.Address, reserve0, reserve1 *big.Int, feeBps int64) (*SimPool, error) {
	if token0 == token1 {
		return nil, fmt.Errorf("pool tokens must differ")
	}
	if reserve0 == nil || reserve0.Sign() <= 0 || reserve1 == nil || reserve1.Sign() <= 0 {
		return nil, fmt.Errorf("pool reserves must be positive")
	}
	if feeBps < 0 || feeBps >= 10000 {
		return nil, fmt.Errorf("pool fee bps out of range: %d", feeBps)
	}
	return &SimPool{
		Addr:     addr,
		Token0:   token0,
		Token1:   token1,
		FeeBps:   feeBps,
		reserve0: new(big.Int).Set(reserve0),
		reserve1: new(big.Int).Set(reserve1),
	}, nil
}

// Price returns the current spot price (token1 per token0, Q96).
func (p *SimPool) Price() *big.Int {
	p.mu.Lock()
	defer p.mu.Unlock()
	price := new(big.Int).Lsh(p.reserve1, pricing.RadixBits)
	return price.Div(price, p.reserve0)
}

// Reserves returns copies of the current reserves.
func (p *SimPool) Reserves() (*big.Int, *big.Int) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return new(big.Int).Set(p.reserve0), new(big.Int).Set(p.reserve1)
}

// SetReserves overwrites both reserves. Devnet/test price steering only.
func (p *SimPool) SetReserves(reserve0, reserve1 *big.Int) error {
	if reserve0 == nil || reserve0.Sign() <= 0 || reserve1 == nil || reserve1.Sign() <= 0 {
		return fmt.Errorf("pool reserves must be positive")
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	p.reserve0 = new(big.Int).Set(reserve0)
	p.reserve1 = new(big.Int).Set(reserve1)
	return nil
}

// swap applies the constant-product formula for an exact input and updates
// reserves. Returns the realized output.
//
// Formula: out = reserveOut × inAfterFee / (reserveIn + inAfterFee)
func (p *SimPool) swap(tokenIn common.Address, amountIn *big.Int) (*big.Int, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	var reserveIn, reserveOut *big.Int
	switch tokenIn {
	case p.Token0:
		reserveIn, reserveOut = p.reserve0, p.reserve1
	case p.Token1:
		reserveIn, reserveOut = p.reserve1, p.reserve0
	default:
		return nil, fmt.Errorf("token %s not in pool %s", tokenIn.Hex(), p.Addr.Hex())
	}

	inAfterFee := new(big.Int).Mul(amountIn, big.NewInt(10000-p.FeeBps))
	inAfterFee.Div(inAfterFee, big.NewInt(10000))

	denom := new(big.Int).Add(reserveIn, inAfterFee)
	out := new(big.Int).Mul(reserveOut, inAfterFee)
	out.Div(out, denom)

	if out.Sign() <= 0 {
		return nil, fmt.Errorf("swap output rounds to zero")
	}

	reserveIn.Add(reserveIn, amountIn)
	reserveOut.Sub(reserveOut, out)
	return out, nil
}

// PoolRegistry manages the known pools in a thread-safe manner.
type PoolRegistry struct {
	mu    sync.RWMutex
	pools map[common.Address]*SimPool
}

func NewPoolRegistry() *PoolRegistry {
	return &PoolRegistry{pools: make(map[common.Address]*SimPool)}
}

// Register adds a pool to the registry.
// Returns error if a pool with the same address already exists.
func (r *PoolRegistry) Register(p *SimPool) error {
	if p == nil {
		return fmt.Errorf("cannot register nil pool")
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.pools[p.Addr]; exists {
		return fmt.Errorf("pool %s already registered", p.Addr.Hex())
	}
	r.pools[p.Addr] = p
	return nil
}

// Get retrieves a pool by address.
func (r *PoolRegistry) Get(addr common.Address) (*SimPool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	p, exists := r.pools[addr]
	if !exists {
		return nil, fmt.Errorf("%w: %s", ErrPoolNotFound, addr.Hex())
	}
	return p, nil
}

// List returns all registered pools.
func (r *PoolRegistry) List() []*SimPool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	pools := make([]*SimPool, 0, len(r.pools))
	for _, p := range r.pools {
		pools = append(pools, p)
	}
	return pools
}

// SimDex implements PriceOracle and SwapExecutor over the registry and bank.
// Swapped funds move between the vault and the pool's bank account, so pool
// bank balances must be funded to match reserves at setup.
type SimDex struct {
	registry *PoolRegistry
	bank     *Bank
	vault    common.Address
	clock    util.Clock
}

func NewSimDex(registry *PoolRegistry, bank *Bank, vault common.Address, clock util.Clock) (*SimDex, error) {
	// The registry reports Q96 prices; refuse to wire against anything else.
	if err := pricing.VerifyScale(pricing.Radix()); err != nil {
		return nil, err
	}
	if clock == nil {
		clock = util.RealClock{}
	}
	return &SimDex{registry: registry, bank: bank, vault: vault, clock: clock}, nil
}

// CurrentPrice returns the pool's spot price in Q96 scale.
func (d *SimDex) CurrentPrice(pool common.Address) (*big.Int, error) {
	p, err := d.registry.Get(pool)
	if err != nil {
		return nil, err
	}
	return p.Price(), nil
}

// SwapExactIn executes a swap from the vault's balances:
// tokenIn moves vault -> pool, tokenOut moves pool -> vault.
func (d *SimDex) SwapExactIn(pool, tokenIn, tokenOut common.Address, amountIn, minOut *big.Int, deadline time.Time) (*big.Int, error) {
	if amountIn == nil || amountIn.Sign() <= 0 {
		return nil, fmt.Errorf("swap amount must be positive")
	}
	if d.clock.Now().After(deadline) {
		return nil, ErrDeadlineExpired
	}

	p, err := d.registry.Get(pool)
	if err != nil {
		return nil, err
	}
	if (tokenIn != p.Token0 && tokenIn != p.Token1) || (tokenOut != p.Token0 && tokenOut != p.Token1) || tokenIn == tokenOut {
		return nil, fmt.Errorf("pair %s/%s not served by pool %s", tokenIn.Hex(), tokenOut.Hex(), pool.Hex())
	}

	// All checks before any mutation so a failure leaves no partial effect.
	if d.bank.BalanceOf(tokenIn, d.vault).Cmp(amountIn) < 0 {
		return nil, ErrInsufficientFunds
	}

	amountOut, err := p.swap(tokenIn, amountIn)
	if err != nil {
		return nil, err
	}
	if minOut != nil && minOut.Sign() > 0 && amountOut.Cmp(minOut) < 0 {
		// Undo the reserve update; the trade never happened.
		p.swapRevert(tokenIn, amountIn, amountOut)
		return nil, ErrSlippageExceeded
	}

	if err := d.bank.Move(tokenIn, d.vault, pool, amountIn); err != nil {
		p.swapRevert(tokenIn, amountIn, amountOut)
		return nil, err
	}
	if err := d.bank.Move(tokenOut, pool, d.vault, amountOut); err != nil {
		_ = d.bank.Move(tokenIn, pool, d.vault, amountIn)
		p.swapRevert(tokenIn, amountIn, amountOut)
		return nil, err
	}
	return amountOut, nil
}

var (
	_ PriceOracle  = (*SimDex)(nil)
	_ SwapExecutor = (*SimDex)(nil)
)

// swapRevert restores reserves after a rejected swap.
func (p *SimPool) swapRevert(tokenIn common.Address, amountIn, amountOut *big.Int) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if tokenIn == p.Token0 {
		p.reserve0.Sub(p.reserve0, amountIn)
		p.reserve1.Add(p.reserve1, amountOut)
		return
	}
	p.reserve1.Sub(p.reserve1, amountIn)
	p.reserve0.Add(p.reserve0, amountOut)
}
