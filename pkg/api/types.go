package api

// API request/response types for REST endpoints and WebSocket messages

// ==============================
// REST Request Types
// ==============================

// PlaceOrderRequest is the payload for POST /api/v1/orders
// Amounts and prices are decimal strings so arbitrary-precision values
// survive JSON round-trips.
type PlaceOrderRequest struct {
	Owner          string `json:"owner"`          // Placing principal (0x...)
	TokenIn        string `json:"tokenIn"`        // Deposited asset address
	TokenOut       string `json:"tokenOut"`       // Asset received on execution
	Pool           string `json:"pool"`           // Venue address
	AmountIn       string `json:"amountIn"`       // Deposit, smallest unit
	Price          string `json:"price"`          // Raw target price (pre-normalization)
	ResolverFeeBps int64  `json:"resolverFeeBps"` // 0-10000
	SlippageBps    int64  `json:"slippageBps"`    // 0-10000
}

// ExecuteOrderRequest is the payload for POST /api/v1/orders/{id}/execute
type ExecuteOrderRequest struct {
	Caller string `json:"caller"` // Resolver address credited with the fee
}

// CancelOrderRequest is the payload for POST /api/v1/orders/{id}/cancel
type CancelOrderRequest struct {
	Caller string `json:"caller"` // Must equal the order owner
}

// WithdrawFeesRequest is the payload for POST /api/v1/fees/{asset}/withdraw
type WithdrawFeesRequest struct {
	Caller string `json:"caller"` // Must equal the configured operator
}

// ==============================
// REST Response Types
// ==============================

// OrderInfo represents an order record
type OrderInfo struct {
	ID             uint64 `json:"id"`
	Owner          string `json:"owner"`
	TokenIn        string `json:"tokenIn"`
	TokenOut       string `json:"tokenOut"`
	Pool           string `json:"pool"`
	AmountIn       string `json:"amountIn"`
	TargetPrice    string `json:"targetPrice"` // Q96-normalized
	ResolverFeeBps int64  `json:"resolverFeeBps"`
	SlippageBps    int64  `json:"slippageBps"`
	Status         string `json:"status"` // "active" | "executed" | "cancelled"
	CreatedAt      int64  `json:"createdAt"`
	UpdatedAt      int64  `json:"updatedAt"`
}

// PlaceOrderResponse is the response from order placement
type PlaceOrderResponse struct {
	Status  string `json:"status"` // "placed"
	OrderID uint64 `json:"orderId"`
}

// ExecuteOrderResponse reports an execution attempt's outcome. Settled=false
// with HTTP 200 is the benign "price not met" case.
type ExecuteOrderResponse struct {
	Settled      bool   `json:"settled"`
	Reason       string `json:"reason,omitempty"`
	CurrentPrice string `json:"currentPrice,omitempty"`
	AmountOut    string `json:"amountOut,omitempty"`
	ToOwner      string `json:"toOwner,omitempty"`
	ToResolver   string `json:"toResolver,omitempty"`
	OperatorCut  string `json:"operatorCut,omitempty"`
}

// FeeBalanceInfo reports the operator's accumulated balance for an asset
type FeeBalanceInfo struct {
	Asset   string `json:"asset"`
	Balance string `json:"balance"`
}

// WithdrawFeesResponse reports how much was drained (zero for the no-op case)
type WithdrawFeesResponse struct {
	Asset     string `json:"asset"`
	Withdrawn string `json:"withdrawn"`
}

// ErrorResponse is returned for all errors
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

// ==============================
// WebSocket Message Types
// ==============================

// WSMessage is the base structure for all WebSocket messages
type WSMessage struct {
	Type string      `json:"type"` // event type, e.g. "order_executed"
	Data interface{} `json:"data"` // Type-specific payload
}

// WSSubscribeRequest is sent by client to subscribe to channels
type WSSubscribeRequest struct {
	Op       string   `json:"op"`       // "subscribe" or "unsubscribe"
	Channels []string `json:"channels"` // e.g., ["orders", "fees"]
}
