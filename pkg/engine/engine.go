// Package engine implements the limit-order lifecycle: placement with custody
// of the deposit, permissionless resolver-triggered execution against the
// pool price, owner cancellation, and operator fee withdrawal.
package engine

import (
	"errors"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"go.uber.org/zap"

	"github.com/dev-yomi/limit-order/params"
	"github.com/dev-yomi/limit-order/pkg/dex"
	"github.com/dev-yomi/limit-order/pkg/events"
	"github.com/dev-yomi/limit-order/pkg/fees"
	"github.com/dev-yomi/limit-order/pkg/order"
	"github.com/dev-yomi/limit-order/pkg/pricing"
	"github.com/dev-yomi/limit-order/pkg/util"
)

// Engine orchestrates the order store, fee ledger, and the external
// collaborators. It is the only writer of order lifecycle state.
//
// Execution ordering discipline: the price predicate and the swap run before
// the state transition; the conflict-checked Active->Executed transition is
// confirmed before any payout transfer is issued; the per-order guard makes
// the whole operation one atomic unit against racing callers and reentrant
// collaborators.
type Engine struct {
	store   *order.Store
	ledger  *fees.Ledger
	oracle  dex.PriceOracle
	swapper dex.SwapExecutor
	custody dex.Custody
	tokens  dex.TokenInfo

	cfg     params.Engine
	emitter events.Emitter
	clock   util.Clock
	guard   *opGuard
	log     *zap.SugaredLogger
}

// Deps bundles the engine's collaborators.
type Deps struct {
	Store   *order.Store
	Ledger  *fees.Ledger
	Oracle  dex.PriceOracle
	Swapper dex.SwapExecutor
	Custody dex.Custody
	Tokens  dex.TokenInfo
	Emitter events.Emitter
	Clock   util.Clock
	Logger  *zap.SugaredLogger
}

func New(cfg params.Engine, deps Deps) (*Engine, error) {
	if deps.Store == nil || deps.Ledger == nil {
		return nil, fmt.Errorf("engine: store and ledger are required")
	}
	if deps.Oracle == nil || deps.Swapper == nil || deps.Custody == nil || deps.Tokens == nil {
		return nil, fmt.Errorf("engine: all dex collaborators are required")
	}
	if cfg.ContractFeeBps < 0 || cfg.ContractFeeBps > 10000 {
		return nil, fmt.Errorf("engine: contract fee bps out of range: %d", cfg.ContractFeeBps)
	}
	if deps.Emitter == nil {
		deps.Emitter = events.NoopEmitter{}
	}
	if deps.Clock == nil {
		deps.Clock = util.RealClock{}
	}
	if deps.Logger == nil {
		deps.Logger = zap.NewNop().Sugar()
	}
	return &Engine{
		store:   deps.Store,
		ledger:  deps.Ledger,
		oracle:  deps.Oracle,
		swapper: deps.Swapper,
		custody: deps.Custody,
		tokens:  deps.Tokens,
		cfg:     cfg,
		emitter: deps.Emitter,
		clock:   deps.Clock,
		guard:   newOpGuard(),
		log:     deps.Logger,
	}, nil
}

// SetEmitter configures the event emitter used by the engine. Passing nil
// resets the emitter to a no-op implementation. Wire this before serving
// traffic; it is not synchronized against in-flight operations.
func (e *Engine) SetEmitter(emitter events.Emitter) {
	if emitter == nil {
		e.emitter = events.NoopEmitter{}
		return
	}
	e.emitter = emitter
}

// PlaceRequest carries the placement parameters. Price is the raw target
// price; the engine normalizes it to the oracle's Q96 scale exactly once.
type PlaceRequest struct {
	Owner          common.Address
	TokenIn        common.Address
	TokenOut       common.Address
	Pool           common.Address
	AmountIn       *big.Int
	Price          *big.Int
	ResolverFeeBps int64
	SlippageBps    int64
}

// Place validates the request, custodies the deposit, and creates an Active
// order. No swap occurs at this step. Returns the assigned order ID.
func (e *Engine) Place(req PlaceRequest) (uint64, error) {
	ord := &order.Order{
		Owner:          req.Owner,
		TokenIn:        req.TokenIn,
		TokenOut:       req.TokenOut,
		Pool:           req.Pool,
		AmountIn:       req.AmountIn,
		TargetPrice:    req.Price,
		ResolverFeeBps: req.ResolverFeeBps,
		SlippageBps:    req.SlippageBps,
	}
	if err := ord.Validate(); err != nil {
		return 0, fmt.Errorf("%w: %v", ErrValidation, err)
	}

	outDecimals, err := e.tokens.Decimals(req.TokenOut)
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrValidation, err)
	}
	normalized, err := pricing.Normalize(req.Price, outDecimals)
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrValidation, err)
	}
	ord.TargetPrice = normalized

	// Custody the deposit. Validation is complete, so a transfer failure
	// leaves nothing behind.
	if err := e.custody.TransferFrom(req.Owner, req.TokenIn, req.AmountIn); err != nil {
		return 0, fmt.Errorf("%w: deposit transfer: %v", ErrExternal, err)
	}

	id, err := e.store.Create(ord)
	if err != nil {
		// The deposit is already in custody; hand it back so the failed
		// placement has no effect.
		if refundErr := e.custody.Transfer(req.Owner, req.TokenIn, req.AmountIn); refundErr != nil {
			e.log.Errorw("deposit_refund_failed", "owner", req.Owner.Hex(), "err", refundErr)
		}
		return 0, fmt.Errorf("%w: create order: %v", ErrExternal, err)
	}

	e.emitter.Emit(events.OrderCreated{
		ID:          id,
		Owner:       req.Owner.Hex(),
		TokenIn:     req.TokenIn.Hex(),
		TokenOut:    req.TokenOut.Hex(),
		Pool:        req.Pool.Hex(),
		AmountIn:    req.AmountIn.String(),
		TargetPrice: normalized.String(),
		Timestamp:   e.clock.Now().UnixMilli(),
	})
	e.log.Infow("order_placed",
		"id", id,
		"owner", req.Owner.Hex(),
		"amount_in", req.AmountIn.String(),
		"target_price_q96", normalized.String())
	return id, nil
}

// ExecuteResult is the outcome of an execution attempt. Settled=false with a
// nil error is the benign "price not met" case: the order stays Active and
// the resolver is expected to retry later.
type ExecuteResult struct {
	Settled      bool
	Reason       string
	CurrentPrice *big.Int
	AmountOut    *big.Int
	ToOwner      *big.Int
	ToResolver   *big.Int
	OperatorCut  *big.Int
}

// Execute attempts to settle an Active order. Any caller may invoke it; the
// caller earns the resolver fee if the order settles. The price predicate is
// evaluated fresh on every attempt.
func (e *Engine) Execute(id uint64, caller common.Address) (*ExecuteResult, error) {
	if !e.guard.acquire(id) {
		return nil, fmt.Errorf("%w: settlement in flight", ErrStateConflict)
	}
	defer e.guard.release(id)

	ord, err := e.store.Get(id)
	if err != nil {
		return nil, ErrNotFound
	}
	if ord.Status != order.Active {
		return nil, fmt.Errorf("%w: order is %s", ErrStateConflict, ord.Status)
	}

	current, err := e.oracle.CurrentPrice(ord.Pool)
	if err != nil {
		return nil, fmt.Errorf("%w: price read: %v", ErrExternal, err)
	}
	if !pricing.Executable(current, ord.TargetPrice, ord.SlippageBps) {
		return &ExecuteResult{
			Settled:      false,
			Reason:       "price not met",
			CurrentPrice: current,
		}, nil
	}

	// The engine's own price predicate is the slippage protection, so
	// minOut stays zero.
	deadline := e.clock.Now().Add(e.cfg.SwapDeadline)
	amountOut, err := e.swapper.SwapExactIn(ord.Pool, ord.TokenIn, ord.TokenOut, ord.AmountIn, big.NewInt(0), deadline)
	if err != nil {
		return nil, fmt.Errorf("%w: swap: %v", ErrExternal, err)
	}

	split, err := fees.ComputeSplit(amountOut, ord.ResolverFeeBps, e.cfg.ContractFeeBps)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrValidation, err)
	}

	// Linearization point: confirm the transition before any payout leaves
	// the vault. A conflict here means another settlement already won and
	// the proceeds must not be paid out twice.
	if err := e.store.Transition(id, order.Active, order.Executed); err != nil {
		if errors.Is(err, order.ErrConflict) {
			e.log.Errorw("settlement_race_after_swap", "id", id)
			return nil, ErrStateConflict
		}
		return nil, fmt.Errorf("%w: transition: %v", ErrExternal, err)
	}

	if err := e.ledger.Credit(ord.TokenOut, split.ToOperator); err != nil {
		// Balances only grow here; a failure is a persistence fault, not
		// an arithmetic one. The order is already settled.
		e.log.Errorw("fee_credit_failed", "id", id, "err", err)
	}

	if err := e.custody.Transfer(ord.Owner, ord.TokenOut, split.ToOwner); err != nil {
		e.log.Errorw("owner_payout_failed", "id", id, "owner", ord.Owner.Hex(), "err", err)
		return nil, fmt.Errorf("%w: owner payout: %v", ErrExternal, err)
	}
	if err := e.custody.Transfer(caller, ord.TokenOut, split.ToResolver); err != nil {
		e.log.Errorw("resolver_payout_failed", "id", id, "caller", caller.Hex(), "err", err)
		return nil, fmt.Errorf("%w: resolver payout: %v", ErrExternal, err)
	}

	e.emitter.Emit(events.OrderExecuted{
		ID:          id,
		Owner:       ord.Owner.Hex(),
		Caller:      caller.Hex(),
		AmountOut:   amountOut.String(),
		ToOwner:     split.ToOwner.String(),
		ToResolver:  split.ToResolver.String(),
		OperatorCut: split.ToOperator.String(),
		Timestamp:   e.clock.Now().UnixMilli(),
	})
	e.log.Infow("order_executed",
		"id", id,
		"caller", caller.Hex(),
		"amount_out", amountOut.String(),
		"resolver_fee", split.ToResolver.String(),
		"operator_cut", split.ToOperator.String())

	return &ExecuteResult{
		Settled:     true,
		AmountOut:   amountOut,
		ToOwner:     split.ToOwner,
		ToResolver:  split.ToResolver,
		OperatorCut: split.ToOperator,
	}, nil
}

// Cancel returns the deposit to the owner and retires the order. Only the
// owning principal may cancel, and only while the order is still Active.
func (e *Engine) Cancel(id uint64, caller common.Address) error {
	if !e.guard.acquire(id) {
		return fmt.Errorf("%w: settlement in flight", ErrStateConflict)
	}
	defer e.guard.release(id)

	ord, err := e.store.Get(id)
	if err != nil {
		return ErrNotFound
	}
	if ord.Owner != caller {
		return fmt.Errorf("%w: only the owner may cancel", ErrUnauthorized)
	}

	if err := e.store.Transition(id, order.Active, order.Cancelled); err != nil {
		if errors.Is(err, order.ErrConflict) {
			return fmt.Errorf("%w: order is %s", ErrStateConflict, ord.Status)
		}
		return fmt.Errorf("%w: transition: %v", ErrExternal, err)
	}

	if err := e.custody.Transfer(ord.Owner, ord.TokenIn, ord.AmountIn); err != nil {
		e.log.Errorw("refund_failed", "id", id, "owner", ord.Owner.Hex(), "err", err)
		return fmt.Errorf("%w: deposit refund: %v", ErrExternal, err)
	}

	e.emitter.Emit(events.OrderCancelled{
		ID:        id,
		Owner:     ord.Owner.Hex(),
		AmountIn:  ord.AmountIn.String(),
		Timestamp: e.clock.Now().UnixMilli(),
	})
	e.log.Infow("order_cancelled", "id", id, "owner", ord.Owner.Hex())
	return nil
}

// GetOrder returns a copy of the order record.
func (e *Engine) GetOrder(id uint64) (*order.Order, error) {
	ord, err := e.store.Get(id)
	if err != nil {
		return nil, ErrNotFound
	}
	return ord, nil
}

// ListActiveOrders returns all orders still eligible for execution.
func (e *Engine) ListActiveOrders() []*order.Order {
	return e.store.ListActive()
}

// ListOrdersByOwner returns all orders placed by the owner.
func (e *Engine) ListOrdersByOwner(owner common.Address) []*order.Order {
	return e.store.ListByOwner(owner)
}

// FeeBalance reports the accumulated operator balance for an asset.
func (e *Engine) FeeBalance(asset common.Address) *big.Int {
	return e.ledger.Balance(asset)
}

// WithdrawFees drains the asset's accumulated fee balance to the operator.
// Withdrawing a zero balance is a harmless no-op returning zero; no event is
// emitted for it.
func (e *Engine) WithdrawFees(asset common.Address, caller common.Address) (*big.Int, error) {
	if caller != e.cfg.Operator || caller == (common.Address{}) {
		return nil, fmt.Errorf("%w: only the operator may withdraw fees", ErrUnauthorized)
	}

	amount, err := e.ledger.Withdraw(asset)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrExternal, err)
	}
	if amount.Sign() == 0 {
		return amount, nil
	}

	if err := e.custody.Transfer(caller, asset, amount); err != nil {
		// Put the balance back so the withdrawal can be retried.
		if creditErr := e.ledger.Credit(asset, amount); creditErr != nil {
			e.log.Errorw("fee_recredit_failed", "asset", asset.Hex(), "err", creditErr)
		}
		return nil, fmt.Errorf("%w: fee payout: %v", ErrExternal, err)
	}

	e.emitter.Emit(events.FeesWithdrawn{
		Asset:     asset.Hex(),
		To:        caller.Hex(),
		Amount:    amount.String(),
		Timestamp: e.clock.Now().UnixMilli(),
	})
	e.log.Infow("fees_withdrawn", "asset", asset.Hex(), "amount", amount.String())
	return amount, nil
}
