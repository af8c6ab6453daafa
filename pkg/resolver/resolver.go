// Package resolver runs the built-in resolver: a loop that scans Active
// orders and submits execution attempts when the pool price looks right.
// Execution stays permissionless - this loop has no privilege, it just races
// any external resolver for the same fee.
package resolver

import (
	"context"
	"errors"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"go.uber.org/zap"

	"github.com/dev-yomi/limit-order/pkg/engine"
	"github.com/dev-yomi/limit-order/pkg/util"
)

type Runner struct {
	engine   *engine.Engine
	caller   common.Address
	interval time.Duration
	clock    util.Clock
	log      *zap.SugaredLogger
}

func NewRunner(eng *engine.Engine, caller common.Address, interval time.Duration, clock util.Clock, log *zap.SugaredLogger) *Runner {
	if clock == nil {
		clock = util.RealClock{}
	}
	if log == nil {
		log = zap.NewNop().Sugar()
	}
	return &Runner{
		engine:   eng,
		caller:   caller,
		interval: interval,
		clock:    clock,
		log:      log,
	}
}

// Run polls until the context is cancelled. Each pass attempts every Active
// order once; "price not met" and lost races are normal outcomes, not faults.
func (r *Runner) Run(ctx context.Context) {
	r.log.Infow("resolver_started", "caller", r.caller.Hex(), "poll_interval_ms", r.interval.Milliseconds())
	for {
		select {
		case <-ctx.Done():
			r.log.Info("resolver_stopped")
			return
		case <-r.clock.After(r.interval):
			r.Sweep()
		}
	}
}

// Sweep makes one pass over the Active orders. Returns how many settled.
func (r *Runner) Sweep() int {
	settled := 0
	for _, ord := range r.engine.ListActiveOrders() {
		res, err := r.engine.Execute(ord.ID, r.caller)
		switch {
		case errors.Is(err, engine.ErrStateConflict):
			// Lost the race to another resolver or a cancel.
			continue
		case err != nil:
			r.log.Warnw("execute_attempt_failed", "id", ord.ID, "err", err)
			continue
		case res.Settled:
			settled++
			r.log.Infow("order_settled",
				"id", ord.ID,
				"amount_out", res.AmountOut.String(),
				"resolver_fee", res.ToResolver.String())
		}
	}
	return settled
}
