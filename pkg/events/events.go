// Package events carries the structured notifications emitted on every
// successful lifecycle transition. Emission is a side effect for off-chain
// observers, never part of an operation's return value, and happens exactly
// once per committed transition - never on no-ops or failures.
package events

import "go.uber.org/zap"

const (
	TypeOrderCreated   = "order_created"
	TypeOrderExecuted  = "order_executed"
	TypeOrderCancelled = "order_cancelled"
	TypeFeesWithdrawn  = "fees_withdrawn"
)

type Event interface {
	EventType() string
}

// OrderCreated is emitted after a deposit is custodied and the record stored.
type OrderCreated struct {
	ID          uint64 `json:"id"`
	Owner       string `json:"owner"`
	TokenIn     string `json:"tokenIn"`
	TokenOut    string `json:"tokenOut"`
	Pool        string `json:"pool"`
	AmountIn    string `json:"amountIn"`
	TargetPrice string `json:"targetPrice"`
	Timestamp   int64  `json:"timestamp"`
}

func (OrderCreated) EventType() string { return TypeOrderCreated }

// OrderExecuted is emitted after the Active->Executed transition commits and
// the proceeds are paid out.
type OrderExecuted struct {
	ID          uint64 `json:"id"`
	Owner       string `json:"owner"`
	Caller      string `json:"caller"`
	AmountOut   string `json:"amountOut"`
	ToOwner     string `json:"toOwner"`
	ToResolver  string `json:"toResolver"`
	OperatorCut string `json:"operatorCut"`
	Timestamp   int64  `json:"timestamp"`
}

func (OrderExecuted) EventType() string { return TypeOrderExecuted }

// OrderCancelled is emitted after the Active->Cancelled transition commits
// and the deposit is returned.
type OrderCancelled struct {
	ID        uint64 `json:"id"`
	Owner     string `json:"owner"`
	AmountIn  string `json:"amountIn"`
	Timestamp int64  `json:"timestamp"`
}

func (OrderCancelled) EventType() string { return TypeOrderCancelled }

// FeesWithdrawn is emitted when the operator drains an asset's fee balance.
type FeesWithdrawn struct {
	Asset     string `json:"asset"`
	To        string `json:"to"`
	Amount    string `json:"amount"`
	Timestamp int64  `json:"timestamp"`
}

func (FeesWithdrawn) EventType() string { return TypeFeesWithdrawn }

// Emitter delivers events to an observer.
type Emitter interface {
	Emit(Event)
}

// NoopEmitter drops every event. Default when nothing is wired.
type NoopEmitter struct{}

func (NoopEmitter) Emit(Event) {}

// MultiEmitter fans an event out to several sinks in order.
type MultiEmitter []Emitter

func (m MultiEmitter) Emit(e Event) {
	for _, sink := range m {
		if sink != nil {
			sink.Emit(e)
		}
	}
}

// LogEmitter mirrors events into the structured log.
type LogEmitter struct {
	Logger *zap.SugaredLogger
}

func (l LogEmitter) Emit(e Event) {
	if l.Logger == nil {
		return
	}
	l.Logger.Infow(e.EventType(), "event", e)
}

// Recorder captures events for assertions in tests.
type Recorder struct {
	Events []Event
}

func (r *Recorder) Emit(e Event) { r.Events = append(r.Events, e) }
