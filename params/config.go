package params

import (
	"os"
	"strconv"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/joho/godotenv"
)

type Engine struct {
	// ContractFeeBps is the operator's cut of the resolver fee, in basis
	// points of the resolver fee (not of the swap proceeds).
	ContractFeeBps int64

	// SwapDeadline bounds how far in the future the swap executor deadline
	// is set on each execution attempt.
	SwapDeadline time.Duration

	// Operator is the only address allowed to withdraw accumulated fees.
	Operator common.Address
}

type Server struct {
	APIAddr string
	DBPath  string
	LogFile string
}

type Resolver struct {
	Enabled bool
	// PollInterval throttles how often the resolver loop re-scans active
	// orders against current pool prices.
	//
	// Recommended values:
	//   - Devnet:      500ms (fast feedback against the sim pool)
	//   - Production:  match the venue's block cadence; polling faster than
	//     the price source updates only burns failed attempts.
	PollInterval time.Duration
	// Caller is the address credited with resolver fees for executions
	// triggered by the built-in loop.
	Caller common.Address
}

type Config struct {
	Engine   Engine
	Server   Server
	Resolver Resolver
}

func Default() Config {
	return Config{
		Engine: Engine{
			ContractFeeBps: 10,
			SwapDeadline:   300 * time.Second,
		},
		Server: Server{
			APIAddr: ":8080",
			DBPath:  "data/orders.db",
			LogFile: "data/settler.log",
		},
		Resolver: Resolver{
			Enabled:      false,
			PollInterval: 500 * time.Millisecond,
		},
	}
}

// LoadFromEnv loads configuration from .env file (if exists) and environment variables
// Priority: ENV > .env file > defaults
func LoadFromEnv(envPath string) Config {
	cfg := Default()

	// Try to load .env file (optional - won't fail if not exists)
	if envPath != "" {
		_ = godotenv.Load(envPath)
	} else {
		_ = godotenv.Load() // loads .env from current directory
	}

	if bps := os.Getenv("CONTRACT_FEE_BPS"); bps != "" {
		if v, err := strconv.ParseInt(bps, 10, 64); err == nil && v >= 0 && v <= 10000 {
			cfg.Engine.ContractFeeBps = v
		}
	}
	if dl := os.Getenv("SWAP_DEADLINE_S"); dl != "" {
		if s, err := strconv.Atoi(dl); err == nil && s > 0 {
			cfg.Engine.SwapDeadline = time.Duration(s) * time.Second
		}
	}
	if op := os.Getenv("OPERATOR_ADDR"); common.IsHexAddress(op) {
		cfg.Engine.Operator = common.HexToAddress(op)
	}

	if addr := os.Getenv("API_ADDR"); addr != "" {
		cfg.Server.APIAddr = addr
	}
	if path := os.Getenv("DB_PATH"); path != "" {
		cfg.Server.DBPath = path
	}
	if path := os.Getenv("LOG_FILE"); path != "" {
		cfg.Server.LogFile = path
	}

	if enable := os.Getenv("ENABLE_RESOLVER"); enable != "" {
		cfg.Resolver.Enabled = enable == "true"
	}
	if poll := os.Getenv("RESOLVER_POLL_MS"); poll != "" {
		if ms, err := strconv.Atoi(poll); err == nil && ms > 0 {
			cfg.Resolver.PollInterval = time.Duration(ms) * time.Millisecond
		}
	}
	if caller := os.Getenv("RESOLVER_ADDR"); common.IsHexAddress(caller) {
		cfg.Resolver.Caller = common.HexToAddress(caller)
	}

	return cfg
}
