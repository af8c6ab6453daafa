package dex

import (
	"errors"
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/common"
)

var (
	tokenA = common.HexToAddress("0x1111111111111111111111111111111111111111")
	tokenB = common.HexToAddress("0x2222222222222222222222222222222222222222")
	alice  = common.HexToAddress("0xaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaa")
	bob    = common.HexToAddress("0xbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbb")
	vault  = common.HexToAddress("0xffffffffffffffffffffffffffffffffffffffff")
)

func TestBankMintAndMove(t *testing.T) {
	b := NewBank()

	if err := b.Mint(tokenA, alice, big.NewInt(1000)); err != nil {
		t.Fatalf("mint failed: %v", err)
	}
	if err := b.Move(tokenA, alice, bob, big.NewInt(300)); err != nil {
		t.Fatalf("move failed: %v", err)
	}

	if got := b.BalanceOf(tokenA, alice); got.Int64() != 700 {
		t.Errorf("alice balance = %s, want 700", got)
	}
	if got := b.BalanceOf(tokenA, bob); got.Int64() != 300 {
		t.Errorf("bob balance = %s, want 300", got)
	}
}

func TestBankMoveInsufficientFunds(t *testing.T) {
	b := NewBank()
	b.Mint(tokenA, alice, big.NewInt(100))

	err := b.Move(tokenA, alice, bob, big.NewInt(101))
	if !errors.Is(err, ErrInsufficientFunds) {
		t.Fatalf("err = %v, want ErrInsufficientFunds", err)
	}
	// failed move mutates nothing
	if got := b.BalanceOf(tokenA, alice); got.Int64() != 100 {
		t.Errorf("alice balance after failed move = %s, want 100", got)
	}
	if got := b.BalanceOf(tokenA, bob); got.Sign() != 0 {
		t.Errorf("bob balance after failed move = %s, want 0", got)
	}
}

func TestBankMoveFromConsumesAllowance(t *testing.T) {
	b := NewBank()
	b.Mint(tokenA, alice, big.NewInt(1000))
	b.Approve(alice, vault, tokenA, big.NewInt(600))

	if err := b.MoveFrom(vault, tokenA, alice, vault, big.NewInt(400)); err != nil {
		t.Fatalf("move from failed: %v", err)
	}
	if got := b.Allowance(alice, vault, tokenA); got.Int64() != 200 {
		t.Errorf("remaining allowance = %s, want 200", got)
	}
	if got := b.BalanceOf(tokenA, vault); got.Int64() != 400 {
		t.Errorf("vault balance = %s, want 400", got)
	}

	// second pull exceeds the remaining allowance
	err := b.MoveFrom(vault, tokenA, alice, vault, big.NewInt(201))
	if !errors.Is(err, ErrInsufficientAllowance) {
		t.Fatalf("err = %v, want ErrInsufficientAllowance", err)
	}
}

func TestBankMoveFromInsufficientBalanceKeepsAllowance(t *testing.T) {
	b := NewBank()
	b.Mint(tokenA, alice, big.NewInt(100))
	b.Approve(alice, vault, tokenA, big.NewInt(500))

	err := b.MoveFrom(vault, tokenA, alice, vault, big.NewInt(200))
	if !errors.Is(err, ErrInsufficientFunds) {
		t.Fatalf("err = %v, want ErrInsufficientFunds", err)
	}
	if got := b.Allowance(alice, vault, tokenA); got.Int64() != 500 {
		t.Errorf("allowance after failed pull = %s, want 500", got)
	}
}

func TestBankDecimals(t *testing.T) {
	b := NewBank()
	b.RegisterToken(tokenA, 6)

	dec, err := b.Decimals(tokenA)
	if err != nil {
		t.Fatalf("decimals failed: %v", err)
	}
	if dec != 6 {
		t.Errorf("decimals = %d, want 6", dec)
	}

	if _, err := b.Decimals(tokenB); !errors.Is(err, ErrUnknownToken) {
		t.Errorf("err = %v, want ErrUnknownToken", err)
	}
}

func TestVaultCustodyRoundTrip(t *testing.T) {
	b := NewBank()
	b.Mint(tokenA, alice, big.NewInt(1000))

	c := NewVaultCustody(b, vault)
	if err := c.Approve(alice, c.Vault(), tokenA, big.NewInt(1000)); err != nil {
		t.Fatalf("approve failed: %v", err)
	}
	if err := c.TransferFrom(alice, tokenA, big.NewInt(1000)); err != nil {
		t.Fatalf("deposit failed: %v", err)
	}
	if got := b.BalanceOf(tokenA, vault); got.Int64() != 1000 {
		t.Errorf("vault balance after deposit = %s, want 1000", got)
	}

	if err := c.Transfer(alice, tokenA, big.NewInt(1000)); err != nil {
		t.Fatalf("refund failed: %v", err)
	}
	if got := b.BalanceOf(tokenA, alice); got.Int64() != 1000 {
		t.Errorf("alice balance after refund = %s, want 1000", got)
	}
}
