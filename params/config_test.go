package params

import (
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
)

func TestDefault(t *testing.T) {
	cfg := Default()

	if cfg.Engine.ContractFeeBps != 10 {
		t.Errorf("contract fee bps = %d, want 10", cfg.Engine.ContractFeeBps)
	}
	if cfg.Engine.SwapDeadline != 300*time.Second {
		t.Errorf("swap deadline = %v, want 300s", cfg.Engine.SwapDeadline)
	}
	if cfg.Server.APIAddr != ":8080" {
		t.Errorf("api addr = %q, want :8080", cfg.Server.APIAddr)
	}
	if cfg.Resolver.Enabled {
		t.Error("resolver enabled by default")
	}
}

func TestLoadFromEnvOverrides(t *testing.T) {
	operator := "0xcCcCCCCcccCCCCcCCcCCcCcCcCCCcccCcCcccCcC"

	t.Setenv("CONTRACT_FEE_BPS", "25")
	t.Setenv("SWAP_DEADLINE_S", "60")
	t.Setenv("OPERATOR_ADDR", operator)
	t.Setenv("API_ADDR", ":9090")
	t.Setenv("DB_PATH", "/tmp/orders.db")
	t.Setenv("ENABLE_RESOLVER", "true")
	t.Setenv("RESOLVER_POLL_MS", "250")

	cfg := LoadFromEnv("")

	if cfg.Engine.ContractFeeBps != 25 {
		t.Errorf("contract fee bps = %d, want 25", cfg.Engine.ContractFeeBps)
	}
	if cfg.Engine.SwapDeadline != time.Minute {
		t.Errorf("swap deadline = %v, want 1m", cfg.Engine.SwapDeadline)
	}
	if cfg.Engine.Operator != common.HexToAddress(operator) {
		t.Errorf("operator = %s", cfg.Engine.Operator.Hex())
	}
	if cfg.Server.APIAddr != ":9090" {
		t.Errorf("api addr = %q, want :9090", cfg.Server.APIAddr)
	}
	if cfg.Server.DBPath != "/tmp/orders.db" {
		t.Errorf("db path = %q", cfg.Server.DBPath)
	}
	if !cfg.Resolver.Enabled {
		t.Error("resolver not enabled")
	}
	if cfg.Resolver.PollInterval != 250*time.Millisecond {
		t.Errorf("poll interval = %v, want 250ms", cfg.Resolver.PollInterval)
	}
}

func TestLoadFromEnvRejectsBadValues(t *testing.T) {
	t.Setenv("CONTRACT_FEE_BPS", "20000")
	t.Setenv("SWAP_DEADLINE_S", "-5")
	t.Setenv("OPERATOR_ADDR", "not-an-address")

	cfg := LoadFromEnv("")

	if cfg.Engine.ContractFeeBps != 10 {
		t.Errorf("out-of-range fee overrode default: %d", cfg.Engine.ContractFeeBps)
	}
	if cfg.Engine.SwapDeadline != 300*time.Second {
		t.Errorf("negative deadline overrode default: %v", cfg.Engine.SwapDeadline)
	}
	if cfg.Engine.Operator != (common.Address{}) {
		t.Errorf("bad operator address accepted: %s", cfg.Engine.Operator.Hex())
	}
}
