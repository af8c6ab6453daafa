package main

import (
	"context"
	"log"
	"math/big"
	"os"
	"os/signal"
	"syscall"

	"github.com/ethereum/go-ethereum/common"

	"github.com/dev-yomi/limit-order/params"
	"github.com/dev-yomi/limit-order/pkg/api"
	"github.com/dev-yomi/limit-order/pkg/dex"
	"github.com/dev-yomi/limit-order/pkg/engine"
	"github.com/dev-yomi/limit-order/pkg/events"
	"github.com/dev-yomi/limit-order/pkg/fees"
	"github.com/dev-yomi/limit-order/pkg/order"
	"github.com/dev-yomi/limit-order/pkg/resolver"
	"github.com/dev-yomi/limit-order/pkg/util"
)

// Devnet addresses. The sim pool and bank stand in for the external venue;
// point these at real adapters for anything beyond local development.
var (
	vaultAddr = common.HexToAddress("0x00000000000000000000000000000000000000fe")
	usdcAddr  = common.HexToAddress("0x0000000000000000000000000000000000000a01")
	wethAddr  = common.HexToAddress("0x0000000000000000000000000000000000000a02")
	poolAddr  = common.HexToAddress("0x0000000000000000000000000000000000000b01")
)

func main() {
	// Load config from .env file and environment variables
	cfg := params.LoadFromEnv("") // "" means load from .env in current directory

	logger, err := util.NewLoggerWithFile(cfg.Server.LogFile)
	if err != nil {
		log.Fatalf("logger: %v", err)
	}
	defer logger.Sync()
	sugar := logger.Sugar()
	sugar.Infow("logger_initialized", "log_file", cfg.Server.LogFile)

	// ---- Stores ----
	store, err := order.NewStore(cfg.Server.DBPath)
	if err != nil {
		sugar.Fatalw("order_store_init_failed", "err", err)
	}
	defer store.Close()

	ledger, err := fees.NewLedger(cfg.Server.DBPath + "-fees")
	if err != nil {
		sugar.Fatalw("fee_ledger_init_failed", "err", err)
	}
	defer ledger.Close()

	// ---- Devnet venue: sim bank + constant-product pool ----
	bank := dex.NewBank()
	bank.RegisterToken(usdcAddr, 6)
	bank.RegisterToken(wethAddr, 18)

	// Seed a USDC/WETH pool around 2000 USDC per WETH.
	reserveUSDC := new(big.Int).Mul(big.NewInt(20_000_000), big.NewInt(1_000_000))
	reserveWETH := new(big.Int).Mul(big.NewInt(10_000), new(big.Int).Exp(big.NewInt(10), big.NewInt(18), nil))
	pool, err := dex.NewSimPool(poolAddr, usdcAddr, wethAddr, reserveUSDC, reserveWETH, 30)
	if err != nil {
		sugar.Fatalw("pool_init_failed", "err", err)
	}
	registry := dex.NewPoolRegistry()
	if err := registry.Register(pool); err != nil {
		sugar.Fatalw("pool_register_failed", "err", err)
	}
	// Pool bank balances mirror reserves so swaps can settle.
	bank.Mint(usdcAddr, poolAddr, reserveUSDC)
	bank.Mint(wethAddr, poolAddr, reserveWETH)

	simDex, err := dex.NewSimDex(registry, bank, vaultAddr, util.RealClock{})
	if err != nil {
		sugar.Fatalw("dex_init_failed", "err", err)
	}
	custody := dex.NewVaultCustody(bank, vaultAddr)

	// ---- Engine ----
	eng, err := engine.New(cfg.Engine, engine.Deps{
		Store:   store,
		Ledger:  ledger,
		Oracle:  simDex,
		Swapper: simDex,
		Custody: custody,
		Tokens:  bank,
		Clock:   util.RealClock{},
		Logger:  sugar,
	})
	if err != nil {
		sugar.Fatalw("engine_init_failed", "err", err)
	}

	apiServer := api.NewServer(eng)

	// Events fan out to the structured log and the WebSocket feed.
	eng.SetEmitter(events.MultiEmitter{
		events.LogEmitter{Logger: sugar},
		apiServer.EventHub(),
	})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// ---- Resolver loop (optional) ----
	// Enable with: ENABLE_RESOLVER=true RESOLVER_ADDR=0x...
	if cfg.Resolver.Enabled {
		runner := resolver.NewRunner(eng, cfg.Resolver.Caller, cfg.Resolver.PollInterval, util.RealClock{}, sugar)
		go runner.Run(ctx)
	} else {
		sugar.Info("resolver_disabled - external resolvers only")
	}

	sugar.Infow("settler_starting",
		"api_addr", cfg.Server.APIAddr,
		"contract_fee_bps", cfg.Engine.ContractFeeBps,
		"operator", cfg.Engine.Operator.Hex())

	go func() {
		if err := apiServer.Start(cfg.Server.APIAddr); err != nil {
			sugar.Fatalw("api_server_failed", "err", err)
		}
	}()

	<-ctx.Done()
	sugar.Info("settler_stopped")
}
