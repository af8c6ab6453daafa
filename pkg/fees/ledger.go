package fees

import (
	"encoding/json"
	"fmt"
	"math/big"
	"sync"

	"github.com/cockroachdb/pebble"
	"github.com/ethereum/go-ethereum/common"
)

const prefixFee = "fee:"

func feeKey(asset common.Address) []byte {
	return []byte(prefixFee + asset.Hex())
}

func feePrefix() []byte {
	return []byte(prefixFee)
}

func feeKeyUpperBound() []byte {
	prefix := feePrefix()
	bound := make([]byte, len(prefix))
	copy(bound, prefix)
	bound[len(bound)-1]++
	return bound
}

type storedBalance struct {
	Asset   common.Address `json:"asset"`
	Balance *big.Int       `json:"balance"`
}

// Ledger accumulates operator fee balances per asset. Balances are credited
// by the execution path and debited to zero by withdrawal; they can never go
// negative because withdrawal always takes the full balance.
// Uses in-memory cache + Pebble persistence for durability.
type Ledger struct {
	mu       sync.Mutex
	db       *pebble.DB
	balances map[common.Address]*big.Int
}

// NewLedger opens a Pebble database at the given path and restores any
// persisted balances.
func NewLedger(dbPath string) (*Ledger, error) {
	db, err := pebble.Open(dbPath, &pebble.Options{})
	if err != nil {
		return nil, fmt.Errorf("failed to open pebble db at %s: %w", dbPath, err)
	}

	l := &Ledger{
		db:       db,
		balances: make(map[common.Address]*big.Int),
	}
	if err := l.restore(); err != nil {
		db.Close()
		return nil, err
	}
	return l, nil
}

// Close closes the database
func (l *Ledger) Close() error {
	return l.db.Close()
}

func (l *Ledger) restore() error {
	iter, err := l.db.NewIter(&pebble.IterOptions{
		LowerBound: feePrefix(),
		UpperBound: feeKeyUpperBound(),
	})
	if err != nil {
		return fmt.Errorf("failed to open fee iterator: %w", err)
	}
	defer iter.Close()

	for iter.First(); iter.Valid(); iter.Next() {
		var entry storedBalance
		if err := json.Unmarshal(iter.Value(), &entry); err != nil {
			return fmt.Errorf("failed to unmarshal fee balance: %w", err)
		}
		if entry.Balance == nil {
			entry.Balance = big.NewInt(0)
		}
		l.balances[entry.Asset] = entry.Balance
	}
	return nil
}

// Credit adds amount to the asset's accumulated balance. Never fails for a
// non-negative amount; a negative amount is a programming error upstream and
// is rejected.
func (l *Ledger) Credit(asset common.Address, amount *big.Int) error {
	if amount == nil || amount.Sign() < 0 {
		return fmt.Errorf("fee credit must be non-negative")
	}
	if amount.Sign() == 0 {
		return nil
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	bal, ok := l.balances[asset]
	if !ok {
		bal = big.NewInt(0)
	}
	updated := new(big.Int).Add(bal, amount)

	if err := l.persist(asset, updated); err != nil {
		return err
	}
	l.balances[asset] = updated
	return nil
}

// Withdraw zeroes the asset's balance and returns the amount that was held.
// Withdrawing an asset with no balance is a harmless no-op returning zero,
// keeping withdrawal idempotent. Caller authorization is enforced by the
// engine, not here.
func (l *Ledger) Withdraw(asset common.Address) (*big.Int, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	bal, ok := l.balances[asset]
	if !ok || bal.Sign() == 0 {
		return big.NewInt(0), nil
	}

	if err := l.persist(asset, big.NewInt(0)); err != nil {
		return nil, err
	}
	withdrawn := bal
	l.balances[asset] = big.NewInt(0)
	return withdrawn, nil
}

// Balance returns a copy of the asset's accumulated balance.
func (l *Ledger) Balance(asset common.Address) *big.Int {
	l.mu.Lock()
	defer l.mu.Unlock()

	bal, ok := l.balances[asset]
	if !ok {
		return big.NewInt(0)
	}
	return new(big.Int).Set(bal)
}

// Balances returns a snapshot of every asset with a non-zero balance.
func (l *Ledger) Balances() map[common.Address]*big.Int {
	l.mu.Lock()
	defer l.mu.Unlock()

	out := make(map[common.Address]*big.Int, len(l.balances))
	for asset, bal := range l.balances {
		if bal.Sign() > 0 {
			out[asset] = new(big.Int).Set(bal)
		}
	}
	return out
}

func (l *Ledger) persist(asset common.Address, balance *big.Int) error {
	data, err := json.Marshal(storedBalance{Asset: asset, Balance: balance})
	if err != nil {
		return fmt.Errorf("failed to marshal fee balance: %w", err)
	}
	if err := l.db.Set(feeKey(asset), data, pebble.Sync); err != nil {
		return fmt.Errorf("failed to persist fee balance: %w", err)
	}
	return nil
}
