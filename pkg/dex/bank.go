package dex

import (
	"fmt"
	"math/big"
	"sync"

	"github.com/ethereum/go-ethereum/common"
)

type balanceKey struct {
	token  common.Address
	holder common.Address
}

type allowanceKey struct {
	token   common.Address
	owner   common.Address
	spender common.Address
}

// Bank is an in-memory token ledger used as the devnet custody backend and in
// tests. It models the standard debit/credit/allowance primitives: balances
// can never go negative, and delegated debits consume allowances.
// Thread-safe.
type Bank struct {
	mu         sync.Mutex
	balances   map[balanceKey]*big.Int
	allowances map[allowanceKey]*big.Int
	decimals   map[common.Address]uint8
}

func NewBank() *Bank {
	return &Bank{
		balances:   make(map[balanceKey]*big.Int),
		allowances: make(map[allowanceKey]*big.Int),
		decimals:   make(map[common.Address]uint8),
	}
}

// RegisterToken records an asset's decimals. Devnet/test setup only.
func (b *Bank) RegisterToken(token common.Address, decimals uint8) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.decimals[token] = decimals
}

// Decimals returns the asset's registered decimals.
func (b *Bank) Decimals(token common.Address) (uint8, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	dec, ok := b.decimals[token]
	if !ok {
		return 0, fmt.Errorf("%w: %s", ErrUnknownToken, token.Hex())
	}
	return dec, nil
}

var _ TokenInfo = (*Bank)(nil)

// Mint credits freshly created units to a holder. Devnet/test setup only.
func (b *Bank) Mint(token, holder common.Address, amount *big.Int) error {
	if amount == nil || amount.Sign() < 0 {
		return fmt.Errorf("mint amount must be non-negative")
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	b.credit(token, holder, amount)
	return nil
}

// BalanceOf returns a copy of the holder's balance of token.
func (b *Bank) BalanceOf(token, holder common.Address) *big.Int {
	b.mu.Lock()
	defer b.mu.Unlock()
	if bal, ok := b.balances[balanceKey{token, holder}]; ok {
		return new(big.Int).Set(bal)
	}
	return big.NewInt(0)
}

// Move transfers amount of token between holders. Fails atomically if the
// source balance is insufficient.
func (b *Bank) Move(token, from, to common.Address, amount *big.Int) error {
	if amount == nil || amount.Sign() < 0 {
		return fmt.Errorf("transfer amount must be non-negative")
	}
	if amount.Sign() == 0 {
		return nil
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.move(token, from, to, amount)
}

// Approve sets spender's allowance over owner's token balance.
func (b *Bank) Approve(owner, spender, token common.Address, amount *big.Int) error {
	if amount == nil || amount.Sign() < 0 {
		return fmt.Errorf("allowance must be non-negative")
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	b.allowances[allowanceKey{token, owner, spender}] = new(big.Int).Set(amount)
	return nil
}

// Allowance returns a copy of the spender's remaining allowance.
func (b *Bank) Allowance(owner, spender, token common.Address) *big.Int {
	b.mu.Lock()
	defer b.mu.Unlock()
	if a, ok := b.allowances[allowanceKey{token, owner, spender}]; ok {
		return new(big.Int).Set(a)
	}
	return big.NewInt(0)
}

// MoveFrom transfers using spender's allowance over owner's balance. Both the
// allowance check and the balance check happen before any mutation, so a
// failure leaves no partial effect.
func (b *Bank) MoveFrom(spender, token, owner, to common.Address, amount *big.Int) error {
	if amount == nil || amount.Sign() < 0 {
		return fmt.Errorf("transfer amount must be non-negative")
	}
	if amount.Sign() == 0 {
		return nil
	}
	b.mu.Lock()
	defer b.mu.Unlock()

	key := allowanceKey{token, owner, spender}
	allowance, ok := b.allowances[key]
	if !ok || allowance.Cmp(amount) < 0 {
		return ErrInsufficientAllowance
	}
	if err := b.move(token, owner, to, amount); err != nil {
		return err
	}
	b.allowances[key] = new(big.Int).Sub(allowance, amount)
	return nil
}

// move assumes the lock is held.
func (b *Bank) move(token, from, to common.Address, amount *big.Int) error {
	fromKey := balanceKey{token, from}
	bal, ok := b.balances[fromKey]
	if !ok || bal.Cmp(amount) < 0 {
		return ErrInsufficientFunds
	}
	b.balances[fromKey] = new(big.Int).Sub(bal, amount)
	b.credit(token, to, amount)
	return nil
}

// credit assumes the lock is held.
func (b *Bank) credit(token, holder common.Address, amount *big.Int) {
	key := balanceKey{token, holder}
	if bal, ok := b.balances[key]; ok {
		b.balances[key] = new(big.Int).Add(bal, amount)
		return
	}
	b.balances[key] = new(big.Int).Set(amount)
}

// VaultCustody adapts the Bank to the Custody interface with all transfers
// bound to a single vault address, mirroring how the engine holds deposits.
type VaultCustody struct {
	bank  *Bank
	vault common.Address
}

func NewVaultCustody(bank *Bank, vault common.Address) *VaultCustody {
	return &VaultCustody{bank: bank, vault: vault}
}

// Vault returns the custody account address.
func (c *VaultCustody) Vault() common.Address { return c.vault }

func (c *VaultCustody) TransferFrom(owner, token common.Address, amount *big.Int) error {
	return c.bank.MoveFrom(c.vault, token, owner, c.vault, amount)
}

func (c *VaultCustody) Transfer(to, token common.Address, amount *big.Int) error {
	return c.bank.Move(token, c.vault, to, amount)
}

func (c *VaultCustody) Approve(owner, spender, token common.Address, amount *big.Int) error {
	return c.bank.Approve(owner, spender, token, amount)
}

var _ Custody = (*VaultCustody)(nil)
